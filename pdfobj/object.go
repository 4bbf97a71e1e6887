// Package pdfobj implements the in-memory representation of PDF objects:
// the tagged union described by the PDF object model (booleans, numbers,
// strings, names, arrays, dictionaries, streams) plus the indirection
// envelope (Reference/Indirect) used to stitch a document's object graph
// together.
//
// The shapes below are adapted from the concrete object types the teacher
// used for its writer-oriented model (see the former model package), but
// the Write/Clone/PDFWritter machinery needed only for serialization has
// been dropped: this package is read-only.
package pdfobj

import (
	"fmt"
	"strconv"
	"strings"
)

// Object is a node of a PDF syntax tree.
//
// Note that the PDF null object is represented by its own concrete type,
// so Object must never be a nil interface.
type Object interface {
	fmt.Stringer

	// Equal reports whether o represents the same PDF value as other.
	// Null never equals anything, including another Null, per the
	// PDF null-equality quirk carried over from the source material.
	Equal(other Object) bool

	isObject()
}

// Resolver dereferences an indirect object by its number and generation.
// Document implements Resolver; Reference only holds onto one so it never
// owns, and cannot cycle through, the object it points at.
type Resolver interface {
	GetObject(objNo, genNo int) (Object, error)
}

// Null is the PDF null singleton.
type Null struct{}

func (Null) isObject()          {}
func (Null) String() string     { return "null" }
func (Null) Equal(Object) bool  { return false }
func IsNull(o Object) bool      { _, ok := o.(Null); return ok }

// Boolean is a PDF boolean object.
type Boolean bool

func (Boolean) isObject() {}
func (b Boolean) String() string { return strconv.FormatBool(bool(b)) }
func (b Boolean) Equal(o Object) bool {
	ob, ok := o.(Boolean)
	return ok && b == ob
}

// Numeric is a PDF number. PDF numbers are decimal and of unbounded
// precision in principle; integers that fit in an int64 are kept exact,
// everything else falls back to float64.
type Numeric struct {
	IsInt bool
	Int   int64
	Float float64
}

func IntNumeric(v int64) Numeric   { return Numeric{IsInt: true, Int: v} }
func FloatNumeric(v float64) Numeric { return Numeric{Float: v} }

func (Numeric) isObject() {}

func (n Numeric) String() string {
	if n.IsInt {
		return strconv.FormatInt(n.Int, 10)
	}
	return strconv.FormatFloat(n.Float, 'f', -1, 64)
}

// Float64 returns the value as a float64 regardless of representation.
func (n Numeric) Float64() float64 {
	if n.IsInt {
		return float64(n.Int)
	}
	return n.Float
}

// Int64 returns the value truncated to an int64.
func (n Numeric) Int64() int64 {
	if n.IsInt {
		return n.Int
	}
	return int64(n.Float)
}

func (n Numeric) Equal(o Object) bool {
	on, ok := o.(Numeric)
	if !ok {
		return false
	}
	if n.IsInt && on.IsInt {
		return n.Int == on.Int
	}
	return n.Float64() == on.Float64()
}

// LiteralString is a PDF string written as ( ... ), already unescaped.
type LiteralString []byte

func (LiteralString) isObject() {}
func (s LiteralString) String() string { return string(s) }
func (s LiteralString) Equal(o Object) bool {
	os, ok := o.(LiteralString)
	return ok && string(s) == string(os)
}

// HexString is a PDF string written as < ... >, already decoded from hex
// with odd-length inputs padded with a trailing zero nibble.
type HexString []byte

func (HexString) isObject() {}
func (s HexString) String() string { return fmt.Sprintf("%x", []byte(s)) }
func (s HexString) Equal(o Object) bool {
	os, ok := o.(HexString)
	return ok && string(s) == string(os)
}

// IsStringObject reports whether o is a LiteralString or HexString, and
// returns its decoded bytes.
func IsStringObject(o Object) ([]byte, bool) {
	switch s := o.(type) {
	case LiteralString:
		return []byte(s), true
	case HexString:
		return []byte(s), true
	default:
		return nil, false
	}
}

// Name is a PDF name object. Raw holds the bytes exactly as written after
// the leading '/', including any '#xx' escapes: equality and hashing use
// the expanded form (see ExpandName) so that "/A#20B" and "/A B" compare
// equal, but Raw is preserved for anyone who needs the original bytes.
type Name struct {
	Raw []byte
}

func NewName(raw []byte) Name { return Name{Raw: append([]byte(nil), raw...)} }

func (Name) isObject() {}

func (n Name) String() string { return "/" + string(ExpandName(n.Raw)) }

// Expanded returns the #xx-expanded bytes, interpreted as UTF-8.
func (n Name) Expanded() string { return string(ExpandName(n.Raw)) }

func (n Name) Equal(o Object) bool {
	on, ok := o.(Name)
	return ok && n.Expanded() == on.Expanded()
}

// ExpandName resolves '#xx' escapes in a raw name's bytes.
func ExpandName(raw []byte) []byte {
	out := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		if raw[i] == '#' && i+2 < len(raw) && isHexDigit(raw[i+1]) && isHexDigit(raw[i+2]) {
			out = append(out, hexVal(raw[i+1])<<4|hexVal(raw[i+2]))
			i += 2
			continue
		}
		out = append(out, raw[i])
	}
	return out
}

func isHexDigit(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

func hexVal(b byte) byte {
	switch {
	case b >= '0' && b <= '9':
		return b - '0'
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10
	default:
		return b - 'A' + 10
	}
}

// Array is an ordered sequence of Objects.
type Array []Object

func (Array) isObject() {}

func (a Array) String() string {
	parts := make([]string, len(a))
	for i, o := range a {
		parts[i] = o.String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func (a Array) Equal(o Object) bool {
	oa, ok := o.(Array)
	if !ok || len(a) != len(oa) {
		return false
	}
	for i := range a {
		if !a[i].Equal(oa[i]) {
			return false
		}
	}
	return true
}

// Dict maps expanded Name strings to Objects. An explicit Null value is
// equivalent to key absence for Get; GetRaw still returns it. RawName
// preserves the original Name spelling of each key for diagnostics.
type Dict struct {
	entries map[string]Object
	raw     map[string]Name
}

func NewDict() Dict {
	return Dict{entries: map[string]Object{}, raw: map[string]Name{}}
}

// Set stores value under key, keyed by its expanded form.
func (d *Dict) Set(key Name, value Object) {
	if d.entries == nil {
		*d = NewDict()
	}
	d.entries[key.Expanded()] = value
	d.raw[key.Expanded()] = key
}

// Get returns the value for name, or (nil, false) if absent or explicitly
// Null.
func (d Dict) Get(name string) (Object, bool) {
	v, ok := d.entries[name]
	if !ok {
		return nil, false
	}
	if IsNull(v) {
		return nil, false
	}
	return v, true
}

// GetRaw returns the value exactly as stored, including an explicit Null.
func (d Dict) GetRaw(name string) (Object, bool) {
	v, ok := d.entries[name]
	return v, ok
}

// RawName returns the Name exactly as it was written for an already-known
// expanded key, for callers that need to re-Set an entry they copied from
// another Dict (e.g. page-tree attribute inheritance).
func (d Dict) RawName(name string) (Name, bool) {
	n, ok := d.raw[name]
	return n, ok
}

func (d Dict) Len() int { return len(d.entries) }

// Keys returns the expanded key strings, in no particular order.
func (d Dict) Keys() []string {
	out := make([]string, 0, len(d.entries))
	for k := range d.entries {
		out = append(out, k)
	}
	return out
}

func (Dict) isObject() {}

func (d Dict) String() string {
	parts := make([]string, 0, len(d.entries))
	for k, v := range d.entries {
		parts = append(parts, "/"+k+" "+v.String())
	}
	return "<<" + strings.Join(parts, " ") + ">>"
}

func (d Dict) Equal(o Object) bool {
	od, ok := o.(Dict)
	if !ok || len(d.entries) != len(od.entries) {
		return false
	}
	for k, v := range d.entries {
		ov, ok := od.entries[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

// Stream couples a Dict with its raw, still-encoded payload bytes. Decoded
// content is produced lazily by the filter package and is not this
// package's concern.
type Stream struct {
	Dict Dict
	Raw  []byte
}

func (Stream) isObject() {}

func (s Stream) String() string {
	return s.Dict.String() + fmt.Sprintf(" stream(%d bytes)", len(s.Raw))
}

func (s Stream) Equal(o Object) bool {
	os, ok := o.(Stream)
	return ok && s.Dict.Equal(os.Dict) && string(s.Raw) == string(os.Raw)
}

// Reference is a non-owning (resolver, obj_no, gen_no) triple: looking it
// up re-enters the owning Document on every call, so Object graphs built
// from References can never cycle.
type Reference struct {
	Resolver Resolver
	ObjNo    int
	GenNo    int
}

func (Reference) isObject() {}

func (r Reference) String() string { return fmt.Sprintf("%d %d R", r.ObjNo, r.GenNo) }

func (r Reference) Equal(o Object) bool {
	or, ok := o.(Reference)
	return ok && r.ObjNo == or.ObjNo && r.GenNo == or.GenNo
}

// Resolve dereferences the reference through its Resolver.
func (r Reference) Resolve() (Object, error) {
	return r.Resolver.GetObject(r.ObjNo, r.GenNo)
}

// Indirect is the envelope form "obj_no gen_no obj ... endobj" found in a
// PDF file's body.
type Indirect struct {
	ObjNo int
	GenNo int
	Value Object
}

func (Indirect) isObject() {}

func (ind Indirect) String() string {
	return fmt.Sprintf("%d %d obj %s endobj", ind.ObjNo, ind.GenNo, ind.Value)
}

func (ind Indirect) Equal(o Object) bool {
	oi, ok := o.(Indirect)
	return ok && ind.ObjNo == oi.ObjNo && ind.GenNo == oi.GenNo && ind.Value.Equal(oi.Value)
}

// Resolve follows o through any Reference indirection until a concrete
// value is reached, or a non-Reference object is returned unchanged. It
// stops after a fixed depth to guard against malformed self-referencing
// chains (normal PDFs never chain references).
func Resolve(o Object) (Object, error) {
	const maxDepth = 32
	for i := 0; i < maxDepth; i++ {
		ref, ok := o.(Reference)
		if !ok {
			return o, nil
		}
		var err error
		o, err = ref.Resolve()
		if err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("pdfobj: reference chain too deep")
}
