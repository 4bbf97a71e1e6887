// Package objstm implements ObjStmDecoder: extracting the compressed
// indirect objects packed inside an Object Stream (Type=ObjStm).
//
// Adapted from reader/file/object_streams.go's processObjectStream: same
// prolog-parsing and 0x00-separator tolerance, rebuilt against pdfobj.Stream
// and objparser instead of the teacher's internal context/parser types.
package objstm

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/benoitkugler/pdfreader/cursor"
	"github.com/benoitkugler/pdfreader/filter"
	"github.com/benoitkugler/pdfreader/objparser"
	"github.com/benoitkugler/pdfreader/pdfobj"
)

// Entry is one compressed object extracted from a container stream.
type Entry struct {
	ObjNo int // the compressed object's own object number, from the prolog
	Index int // position within the container, 0-based
	Value pdfobj.Object
}

// Decode extracts every object packed into an ObjStm stream. Resulting
// objects always have generation 0, per the PDF specification.
func Decode(stream pdfobj.Stream, resolver pdfobj.Resolver) ([]Entry, error) {
	typeName, _ := stream.Dict.Get("Type")
	if n, ok := typeName.(pdfobj.Name); !ok || n.Expanded() != "ObjStm" {
		return nil, fmt.Errorf("objstm: stream Type is not ObjStm")
	}

	decoded, err := filter.Decode(stream.Dict, stream.Raw)
	if err != nil {
		return nil, fmt.Errorf("objstm: decoding payload: %w", err)
	}

	nObj, err := requireInt(stream.Dict, "N")
	if err != nil {
		return nil, err
	}
	first, err := requireInt(stream.Dict, "First")
	if err != nil {
		return nil, err
	}
	if first > len(decoded) {
		return nil, fmt.Errorf("objstm: First %d exceeds decoded length %d", first, len(decoded))
	}

	if _, has := stream.Dict.Get("Extents"); has {
		return nil, fmt.Errorf("objstm: unsupported Extents entry")
	}

	prolog := bytes.ReplaceAll(decoded[:first], []byte{0x00}, []byte{0x20})
	fields := bytes.Fields(prolog)
	if len(fields) < 2*nObj {
		return nil, fmt.Errorf("objstm: prolog has %d fields, want %d", len(fields), 2*nObj)
	}

	objNos := make([]int, nObj)
	offsets := make([]int, nObj)
	for i := 0; i < nObj; i++ {
		on, err := strconv.Atoi(string(fields[2*i]))
		if err != nil {
			return nil, fmt.Errorf("objstm: invalid object-number field %q", fields[2*i])
		}
		off, err := strconv.Atoi(string(fields[2*i+1]))
		if err != nil {
			return nil, fmt.Errorf("objstm: invalid offset field %q", fields[2*i+1])
		}
		objNos[i] = on
		offsets[i] = first + off
		if offsets[i] > len(decoded) {
			return nil, fmt.Errorf("objstm: offset %d exceeds decoded length %d", offsets[i], len(decoded))
		}
	}

	entries := make([]Entry, nObj)
	for i := range entries {
		start, end := offsets[i], len(decoded)
		if i+1 < len(offsets) {
			end = offsets[i+1]
		}
		c := cursor.New(bytes.NewReader(decoded[start:end]), int64(end-start))
		p := objparser.New(c, resolver)
		obj, err := p.ParseObject()
		if err != nil {
			return nil, fmt.Errorf("objstm: parsing inner object %d: %w", i, err)
		}
		entries[i] = Entry{ObjNo: objNos[i], Index: i, Value: obj}
	}
	return entries, nil
}

func requireInt(dict pdfobj.Dict, key string) (int, error) {
	obj, ok := dict.Get(key)
	if !ok {
		return 0, pdfobj.ErrMissingRequiredEntry{Dict: "ObjStm", Key: key}
	}
	n, ok := obj.(pdfobj.Numeric)
	if !ok || !n.IsInt {
		return 0, fmt.Errorf("objstm: %s is not an integer", key)
	}
	return int(n.Int), nil
}
