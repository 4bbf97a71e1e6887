// Package xref implements XRefParser: parsing classic cross-reference
// subsections and the compressed XRef-stream form into a uniform Section,
// and looking up (obj_no, gen_no) -> location within one.
//
// Classic-table parsing follows reader/file/read.go's
// parseXRefTableSubSection/parseXRefTableEntry; XRef-stream field decoding
// follows parseXRefStream/xrefStreamDict/extractXRefTableEntriesFromXRefStream
// in the same file, cross-checked against unidoc-unipdf/core/crossrefs.go's
// XrefObject type tagging.
package xref

import (
	"fmt"

	"github.com/benoitkugler/pdfreader/cursor"
	"github.com/benoitkugler/pdfreader/filter"
	"github.com/benoitkugler/pdfreader/lexer"
	"github.com/benoitkugler/pdfreader/objparser"
	"github.com/benoitkugler/pdfreader/pdfobj"
)

// Kind discriminates the three xref entry shapes.
type Kind uint8

const (
	Free Kind = iota
	InUse
	Compressed
)

// Entry is one cross-reference record, normalized across the classic and
// stream forms.
type Entry struct {
	Kind      Kind
	ObjNo     int // redundant with the subsection range, kept for convenience
	GenNo     int // Free/InUse
	Offset    int64
	NextFree  int // Free
	Container int // Compressed
	Index     int // Compressed
}

// Subsection is a contiguous run of object numbers starting at FirstObjNo.
type Subsection struct {
	FirstObjNo int
	Entries    []Entry
}

// Section is an ordered list of subsections, as found in one xref table or
// xref stream.
type Section struct {
	Subsections []Subsection
}

// Lookup returns the entry for (objNo, genNo), or ok=false if objNo falls
// outside every subsection's range, or its entry's generation doesn't
// match genNo.
func (s Section) Lookup(objNo, genNo int) (Entry, bool) {
	for _, sub := range s.Subsections {
		if objNo < sub.FirstObjNo || objNo >= sub.FirstObjNo+len(sub.Entries) {
			continue
		}
		e := sub.Entries[objNo-sub.FirstObjNo]
		if e.Kind == Compressed {
			// compressed objects always have generation 0
			if genNo != 0 {
				return Entry{}, false
			}
			return e, true
		}
		if e.GenNo != genNo {
			return Entry{}, false
		}
		return e, true
	}
	return Entry{}, false
}

// Result bundles a parsed Section with the trailer dictionary that
// accompanies it (the table's own trailer dict for classic form, the
// stream dict itself for xref-stream form).
type Result struct {
	Section Section
	Trailer pdfobj.Dict
}

// ParseAt parses the xref section (classic or stream) located at offset.
func ParseAt(c *cursor.Cursor, resolver pdfobj.Resolver, offset int64) (Result, error) {
	if err := c.SeekSet(offset); err != nil {
		return Result{}, pdfobj.ErrInvalidXRef{Offset: offset, Detail: "offset out of range"}
	}
	l := lexer.New(c)
	if err := l.SkipWhitespaceAndComments(); err != nil {
		return Result{}, err
	}
	window, _ := c.PeekAtLeast(4)
	if string(window) == "xref" {
		return parseClassic(c, l, resolver)
	}
	return parseStream(c, resolver, offset)
}

func parseClassic(c *cursor.Cursor, l *lexer.Lexer, resolver pdfobj.Resolver) (Result, error) {
	c.Read(4) // "xref"
	var section Section
	for {
		if err := l.SkipWhitespaceAndComments(); err != nil {
			return Result{}, err
		}
		window, _ := c.PeekAtLeast(7)
		if string(window) == "trailer" {
			c.Read(7)
			break
		}
		sub, err := parseSubsection(c, l)
		if err != nil {
			return Result{}, err
		}
		section.Subsections = append(section.Subsections, sub)
	}
	p := objparser.New(c, resolver)
	trailerObj, err := p.ParseObject()
	if err != nil {
		return Result{}, fmt.Errorf("xref: parsing trailer: %w", err)
	}
	trailer, ok := trailerObj.(pdfobj.Dict)
	if !ok {
		return Result{}, pdfobj.ErrInvalidXRef{Offset: c.Tell(), Detail: "trailer is not a dictionary"}
	}
	if _, ok := trailer.Get("Size"); !ok {
		return Result{}, pdfobj.ErrMissingRequiredEntry{Dict: "trailer", Key: "Size"}
	}
	if _, ok := trailer.Get("Root"); !ok {
		return Result{}, pdfobj.ErrMissingRequiredEntry{Dict: "trailer", Key: "Root"}
	}
	return Result{Section: section, Trailer: trailer}, nil
}

func parseSubsection(c *cursor.Cursor, l *lexer.Lexer) (Subsection, error) {
	start := c.Tell()
	firstTok, err := readInt(c, l)
	if err != nil {
		return Subsection{}, pdfobj.ErrInvalidXRef{Offset: start, Detail: "bad subsection start object number"}
	}
	if err := l.SkipWhitespaceAndComments(); err != nil {
		return Subsection{}, err
	}
	countTok, err := readInt(c, l)
	if err != nil {
		return Subsection{}, pdfobj.ErrInvalidXRef{Offset: start, Detail: "bad subsection count"}
	}
	if err := skipOneEOL(c); err != nil {
		return Subsection{}, err
	}

	sub := Subsection{FirstObjNo: firstTok, Entries: make([]Entry, countTok)}
	for i := 0; i < countTok; i++ {
		e, err := parseEntry(c, firstTok+i)
		if err != nil {
			return Subsection{}, err
		}
		sub.Entries[i] = e
	}
	return sub, nil
}

func readInt(c *cursor.Cursor, l *lexer.Lexer) (int, error) {
	var digits []byte
	for {
		b, ok := l.PeekByte()
		if !ok || b < '0' || b > '9' {
			break
		}
		c.Read(1)
		digits = append(digits, b)
	}
	if len(digits) == 0 {
		return 0, fmt.Errorf("xref: expected a number")
	}
	v := 0
	for _, d := range digits {
		v = v*10 + int(d-'0')
	}
	return v, nil
}

func skipOneEOL(c *cursor.Cursor) error {
	w, _ := c.PeekAtLeast(2)
	switch {
	case len(w) >= 2 && w[0] == '\r' && w[1] == '\n':
		c.Read(2)
	case len(w) >= 1 && (w[0] == '\n' || w[0] == '\r'):
		c.Read(1)
	}
	return nil
}

// parseEntry reads exactly one fixed 20-byte classic xref entry:
// "nnnnnnnnnn ggggg [nf] <EOL>".
func parseEntry(c *cursor.Cursor, objNo int) (Entry, error) {
	start := c.Tell()
	raw, err := c.Read(20)
	if err != nil || len(raw) != 20 {
		return Entry{}, pdfobj.ErrInvalidXRef{Offset: start, Detail: "truncated 20-byte xref entry"}
	}
	offsetOrNext, err := parseFixedDigits(raw[0:10])
	if err != nil {
		return Entry{}, pdfobj.ErrInvalidXRef{Offset: start, Detail: "bad offset/next-free field"}
	}
	gen, err := parseFixedDigits(raw[11:16])
	if err != nil {
		return Entry{}, pdfobj.ErrInvalidXRef{Offset: start, Detail: "bad generation field"}
	}
	switch raw[17] {
	case 'n':
		return Entry{Kind: InUse, ObjNo: objNo, Offset: int64(offsetOrNext), GenNo: int(gen)}, nil
	case 'f':
		return Entry{Kind: Free, ObjNo: objNo, NextFree: int(offsetOrNext), GenNo: int(gen)}, nil
	default:
		return Entry{}, pdfobj.ErrInvalidXRef{Offset: start, Detail: "entry type byte is neither 'n' nor 'f'"}
	}
}

func parseFixedDigits(b []byte) (int64, error) {
	var v int64
	for _, d := range b {
		if d == ' ' {
			continue
		}
		if d < '0' || d > '9' {
			return 0, fmt.Errorf("xref: non-digit %q in fixed field", d)
		}
		v = v*10 + int64(d-'0')
	}
	return v, nil
}

// parseStream parses an xref-stream form: the offset points at an indirect
// Stream object with Type=XRef, whose dictionary doubles as the trailer.
func parseStream(c *cursor.Cursor, resolver pdfobj.Resolver, offset int64) (Result, error) {
	c.SeekSet(offset)
	p := objparser.New(c, resolver)
	obj, err := p.ParseObject()
	if err != nil {
		return Result{}, fmt.Errorf("xref: parsing xref stream object: %w", err)
	}
	ind, ok := obj.(pdfobj.Indirect)
	if !ok {
		return Result{}, pdfobj.ErrInvalidXRef{Offset: offset, Detail: "xref stream offset is not an indirect object"}
	}
	stream, ok := ind.Value.(pdfobj.Stream)
	if !ok {
		return Result{}, pdfobj.ErrInvalidXRef{Offset: offset, Detail: "xref stream object is not a Stream"}
	}

	w, err := intArray(stream.Dict, "W")
	if err != nil || len(w) != 3 {
		return Result{}, pdfobj.ErrMissingRequiredEntry{Dict: "XRef", Key: "W"}
	}
	sizeObj, ok := stream.Dict.Get("Size")
	if !ok {
		return Result{}, pdfobj.ErrMissingRequiredEntry{Dict: "XRef", Key: "Size"}
	}
	size, ok := sizeObj.(pdfobj.Numeric)
	if !ok {
		return Result{}, pdfobj.ErrInvalidXRef{Offset: offset, Detail: "Size is not numeric"}
	}

	var index []int
	if idx, err := intArray(stream.Dict, "Index"); err == nil {
		index = idx
	} else {
		index = []int{0, int(size.Int64())}
	}

	decoded, err := filter.Decode(stream.Dict, stream.Raw)
	if err != nil {
		return Result{}, fmt.Errorf("xref: decoding xref stream: %w", err)
	}

	recSize := w[0] + w[1] + w[2]
	if recSize <= 0 {
		return Result{}, pdfobj.ErrInvalidXRef{Offset: offset, Detail: "zero-width xref stream record"}
	}

	var section Section
	pos := 0
	for i := 0; i+1 < len(index); i += 2 {
		first, count := index[i], index[i+1]
		sub := Subsection{FirstObjNo: first, Entries: make([]Entry, count)}
		for j := 0; j < count; j++ {
			if pos+recSize > len(decoded) {
				return Result{}, pdfobj.ErrInvalidXRef{Offset: offset, Detail: "xref stream payload too short for Index"}
			}
			rec := decoded[pos : pos+recSize]
			pos += recSize

			typ := int64(1)
			if w[0] > 0 {
				typ = beInt(rec[:w[0]])
			}
			f2 := beInt(rec[w[0] : w[0]+w[1]])
			f3 := beInt(rec[w[0]+w[1] : w[0]+w[1]+w[2]])

			objNo := first + j
			switch typ {
			case 0:
				sub.Entries[j] = Entry{Kind: Free, ObjNo: objNo, NextFree: int(f2), GenNo: int(f3)}
			case 1:
				sub.Entries[j] = Entry{Kind: InUse, ObjNo: objNo, Offset: f2, GenNo: int(f3)}
			case 2:
				sub.Entries[j] = Entry{Kind: Compressed, ObjNo: objNo, Container: int(f2), Index: int(f3)}
			default:
				return Result{}, pdfobj.ErrInvalidXRef{Offset: offset, Detail: fmt.Sprintf("unknown xref stream entry type %d", typ)}
			}
		}
		section.Subsections = append(section.Subsections, sub)
	}

	return Result{Section: section, Trailer: stream.Dict}, nil
}

func intArray(dict pdfobj.Dict, key string) ([]int, error) {
	obj, ok := dict.Get(key)
	if !ok {
		return nil, fmt.Errorf("xref: missing %s", key)
	}
	arr, ok := obj.(pdfobj.Array)
	if !ok {
		return nil, fmt.Errorf("xref: %s is not an array", key)
	}
	out := make([]int, len(arr))
	for i, o := range arr {
		n, ok := o.(pdfobj.Numeric)
		if !ok {
			return nil, fmt.Errorf("xref: %s element is not numeric", key)
		}
		out[i] = int(n.Int64())
	}
	return out, nil
}

func beInt(b []byte) int64 {
	var v int64
	for _, x := range b {
		v = v<<8 | int64(x)
	}
	return v
}

// VerifyFreeList checks the invariants of a merged, effective xref table:
// object 0 is free with generation 65535, and the free chain it starts
// visits every free entry exactly once before returning to object 0.
func VerifyFreeList(lookup func(objNo int) (Entry, bool), size int) error {
	zero, ok := lookup(0)
	if !ok || zero.Kind != Free || zero.GenNo != 65535 {
		return pdfobj.ErrInvalidXRef{Detail: "object 0 is not Free with generation 65535"}
	}
	seen := map[int]bool{0: true}
	cur := zero.NextFree
	for cur != 0 {
		if seen[cur] {
			return pdfobj.ErrInvalidXRef{Detail: "free list does not terminate cleanly at object 0"}
		}
		e, ok := lookup(cur)
		if !ok || e.Kind != Free {
			return pdfobj.ErrInvalidXRef{Detail: "free list references a non-free object"}
		}
		seen[cur] = true
		cur = e.NextFree
	}
	for n := 0; n < size; n++ {
		if e, ok := lookup(n); ok && e.Kind == Free && !seen[n] {
			return pdfobj.ErrInvalidXRef{Detail: "free entry not reachable from object 0's free list"}
		}
	}
	return nil
}
