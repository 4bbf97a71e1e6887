// Package objparser implements the recursive-descent construction of the
// eight PDF object kinds plus the dictionary/stream splice and the
// indirect-object envelope, built on top of cursor.Cursor and
// lexer.Lexer.
//
// The dispatch-by-leading-byte structure and the numeric/indirect-object/
// reference lookahead are adapted from reader/parser/parser.go's
// ParseObject/parseNumericOrIndRef, generalized from operating over a
// pre-tokenized stream to driving the cursor directly; literal-string
// escape handling follows pdftokenizer/prtokenizer.go's parseLiteralString.
package objparser

import (
	"fmt"
	"io"
	"strconv"

	"github.com/benoitkugler/pdfreader/cursor"
	"github.com/benoitkugler/pdfreader/lexer"
	"github.com/benoitkugler/pdfreader/pdfobj"
)

// Parser builds Objects by reading directly from a Cursor.
type Parser struct {
	C        *cursor.Cursor
	L        *lexer.Lexer
	Resolver pdfobj.Resolver // used to construct Reference values and to resolve an indirect stream Length
}

// New creates a Parser reading from c. resolver may be nil when parsing
// standalone object-stream content, which never contains Stream objects
// or forward Length references.
func New(c *cursor.Cursor, resolver pdfobj.Resolver) *Parser {
	return &Parser{C: c, L: lexer.New(c), Resolver: resolver}
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// ParseObject parses exactly one PDF object starting at the cursor's
// current position, leaving the cursor just past the object on success,
// or restored to the entry position on error.
func (p *Parser) ParseObject() (pdfobj.Object, error) {
	entry := p.C.Tell()
	if err := p.L.SkipWhitespaceAndComments(); err != nil && err != io.EOF {
		p.restore(entry)
		return nil, err
	}
	b, ok := p.L.PeekByte()
	if !ok {
		p.restore(entry)
		return nil, pdfobj.ErrUnexpectedEOF{Offset: entry}
	}

	var (
		obj pdfobj.Object
		err error
	)
	switch {
	case b == 't' || b == 'f':
		obj, err = p.parseBoolean()
	case b == 'n':
		obj, err = p.parseNull()
	case isDigit(b) || b == '+' || b == '-':
		obj, err = p.parseNumericOrIndirectOrReference()
	case b == '(':
		obj, err = p.parseLiteralString()
	case b == '<':
		obj, err = p.parseAngleBracket()
	case b == '/':
		obj, err = p.parseName()
	case b == '[':
		obj, err = p.parseArray()
	default:
		err = pdfobj.ErrMalformedToken{Offset: p.C.Tell(), Expected: "object"}
	}
	if err != nil {
		p.restore(entry)
		return nil, err
	}
	return obj, nil
}

func (p *Parser) restore(to int64) { p.C.SeekSet(to) }

func (p *Parser) parseBoolean() (pdfobj.Object, error) {
	kw, err := p.L.ReadRegularRun()
	if err != nil {
		return nil, err
	}
	switch string(kw) {
	case "true":
		return pdfobj.Boolean(true), nil
	case "false":
		return pdfobj.Boolean(false), nil
	}
	return nil, pdfobj.ErrMalformedToken{Offset: p.C.Tell(), Expected: "true or false"}
}

func (p *Parser) parseNull() (pdfobj.Object, error) {
	kw, err := p.L.ReadRegularRun()
	if err != nil {
		return nil, err
	}
	if string(kw) != "null" {
		return nil, pdfobj.ErrMalformedToken{Offset: p.C.Tell(), Expected: "null"}
	}
	return pdfobj.Null{}, nil
}

// numberToken is an intermediate result distinguishing ints from floats
// before a two-token indirect/reference lookahead decides what to do with
// it.
type numberToken struct {
	pdfobj.Numeric
	text string
}

func (p *Parser) parseNumberToken() (numberToken, error) {
	start := p.C.Tell()
	var raw []byte
	b, ok := p.L.PeekByte()
	if ok && (b == '+' || b == '-') {
		p.C.Read(1)
		raw = append(raw, b)
	}
	sawDigit := false
	sawDot := false
	for {
		b, ok := p.L.PeekByte()
		if !ok {
			break
		}
		if isDigit(b) {
			p.C.Read(1)
			raw = append(raw, b)
			sawDigit = true
			continue
		}
		if b == '.' && !sawDot {
			p.C.Read(1)
			raw = append(raw, b)
			sawDot = true
			continue
		}
		break
	}
	if !sawDigit {
		p.restore(start)
		return numberToken{}, pdfobj.ErrMalformedToken{Offset: start, Expected: "number"}
	}
	text := string(raw)
	if !sawDot {
		if v, err := strconv.ParseInt(text, 10, 64); err == nil {
			return numberToken{Numeric: pdfobj.IntNumeric(v), text: text}, nil
		}
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		p.restore(start)
		return numberToken{}, pdfobj.ErrMalformedToken{Offset: start, Expected: "number"}
	}
	return numberToken{Numeric: pdfobj.FloatNumeric(v), text: text}, nil
}

// parseNumericOrIndirectOrReference implements the lookahead that turns a
// bare non-negative integer into "N G obj" (Indirect) or "N G R"
// (Reference) when what follows matches, restoring to just past the first
// number otherwise.
func (p *Parser) parseNumericOrIndirectOrReference() (pdfobj.Object, error) {
	first, err := p.parseNumberToken()
	if err != nil {
		return nil, err
	}
	afterFirst := p.C.Tell()
	if !first.IsInt || first.Int < 0 {
		return first.Numeric, nil
	}

	if err := p.L.SkipWhitespaceAndComments(); err != nil && err != io.EOF {
		p.restore(afterFirst)
		return first.Numeric, nil
	}
	b, ok := p.L.PeekByte()
	if !ok || !isDigit(b) {
		p.restore(afterFirst)
		return first.Numeric, nil
	}
	gen, err := p.parseNumberToken()
	if err != nil || !gen.IsInt || gen.Int < 0 {
		p.restore(afterFirst)
		return first.Numeric, nil
	}

	if err := p.L.SkipWhitespaceAndComments(); err != nil && err != io.EOF {
		p.restore(afterFirst)
		return first.Numeric, nil
	}
	kwStart := p.C.Tell()
	kw, err := p.L.ReadRegularRun()
	if err != nil || len(kw) == 0 {
		p.restore(afterFirst)
		return first.Numeric, nil
	}

	switch string(kw) {
	case "R":
		return pdfobj.Reference{Resolver: p.Resolver, ObjNo: int(first.Int), GenNo: int(gen.Int)}, nil
	case "obj":
		return p.finishIndirect(int(first.Int), int(gen.Int))
	default:
		_ = kwStart
		p.restore(afterFirst)
		return first.Numeric, nil
	}
}

// finishIndirect parses the body of "objNo genNo obj <value> endobj" (or
// the Stream-promoted form), the cursor already positioned just past
// "obj".
func (p *Parser) finishIndirect(objNo, genNo int) (pdfobj.Object, error) {
	inner, err := p.ParseObject()
	if err != nil {
		return nil, err
	}

	value, err := p.maybePromoteToStream(inner)
	if err != nil {
		return nil, err
	}

	if err := p.L.SkipWhitespaceAndComments(); err != nil && err != io.EOF {
		return nil, err
	}
	kw, err := p.L.ReadRegularRun()
	if err != nil {
		return nil, err
	}
	if string(kw) != "endobj" {
		return nil, pdfobj.ErrMalformedToken{Offset: p.C.Tell(), Expected: "endobj"}
	}
	return pdfobj.Indirect{ObjNo: objNo, GenNo: genNo, Value: value}, nil
}

// maybePromoteToStream checks whether a freshly parsed Dictionary is
// immediately followed by the "stream" keyword, and if so reads the raw
// payload bytes and returns a Stream instead.
func (p *Parser) maybePromoteToStream(inner pdfobj.Object) (pdfobj.Object, error) {
	dict, isDict := inner.(pdfobj.Dict)
	if !isDict {
		return inner, nil
	}

	save := p.C.Tell()
	p.skipPureWhitespace()
	window, _ := p.C.PeekAtLeast(len("stream"))
	if string(window) != "stream" {
		p.restore(save)
		return dict, nil
	}
	p.C.Read(len("stream"))

	eol, _ := p.C.PeekAtLeast(2)
	switch {
	case len(eol) >= 2 && eol[0] == '\r' && eol[1] == '\n':
		p.C.Read(2)
	case len(eol) >= 1 && eol[0] == '\n':
		p.C.Read(1)
	default:
		return nil, pdfobj.ErrMalformedToken{Offset: p.C.Tell(), Expected: "stream EOL"}
	}

	length, err := p.resolveStreamLength(dict)
	if err != nil {
		return nil, err
	}
	raw, err := p.C.Read(length)
	if err != nil && err != io.EOF {
		return nil, err
	}
	if len(raw) != length {
		return nil, pdfobj.ErrUnexpectedEOF{Offset: p.C.Tell()}
	}

	p.skipPureWhitespace()
	kw, err := p.L.ReadRegularRun()
	if err != nil {
		return nil, err
	}
	if string(kw) != "endstream" {
		return nil, pdfobj.ErrMalformedToken{Offset: p.C.Tell(), Expected: "endstream"}
	}

	return pdfobj.Stream{Dict: dict, Raw: raw}, nil
}

func (p *Parser) resolveStreamLength(dict pdfobj.Dict) (int, error) {
	lengthObj, ok := dict.Get("Length")
	if !ok {
		return 0, pdfobj.ErrMissingRequiredEntry{Dict: "Stream", Key: "Length"}
	}
	if ref, isRef := lengthObj.(pdfobj.Reference); isRef {
		if p.Resolver == nil {
			return 0, fmt.Errorf("objparser: cannot resolve indirect Length without a resolver")
		}
		resolved, err := p.Resolver.GetObject(ref.ObjNo, ref.GenNo)
		if err != nil {
			return 0, err
		}
		lengthObj = resolved
	}
	n, ok := lengthObj.(pdfobj.Numeric)
	if !ok || !n.IsInt || n.Int <= 0 {
		return 0, pdfobj.ErrInvalidXRef{Offset: p.C.Tell(), Detail: "Stream Length is not a positive integer"}
	}
	return int(n.Int), nil
}

func (p *Parser) skipPureWhitespace() {
	for {
		b, ok := p.L.PeekByte()
		if !ok || !lexer.IsWhitespace(b) {
			return
		}
		p.C.Read(1)
	}
}

func (p *Parser) parseAngleBracket() (pdfobj.Object, error) {
	window, _ := p.C.PeekAtLeast(2)
	if len(window) >= 2 && window[0] == '<' && window[1] == '<' {
		return p.parseDict()
	}
	return p.parseHexString()
}

func (p *Parser) parseHexString() (pdfobj.Object, error) {
	start := p.C.Tell()
	p.C.Read(1) // '<'
	var digits []byte
	for {
		b, ok := p.L.PeekByte()
		if !ok {
			p.restore(start)
			return nil, pdfobj.ErrUnexpectedEOF{Offset: p.C.Tell()}
		}
		if b == '>' {
			p.C.Read(1)
			break
		}
		if lexer.IsWhitespace(b) {
			p.C.Read(1)
			continue
		}
		if !isHex(b) {
			p.restore(start)
			return nil, pdfobj.ErrMalformedToken{Offset: p.C.Tell(), Expected: "hex digit"}
		}
		p.C.Read(1)
		digits = append(digits, b)
	}
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	out := make([]byte, len(digits)/2)
	for i := range out {
		out[i] = hexByte(digits[2*i])<<4 | hexByte(digits[2*i+1])
	}
	return pdfobj.HexString(out), nil
}

func isHex(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

func hexByte(b byte) byte {
	switch {
	case b >= '0' && b <= '9':
		return b - '0'
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10
	default:
		return b - 'A' + 10
	}
}

func (p *Parser) parseName() (pdfobj.Object, error) {
	p.C.Read(1) // '/'
	raw, err := p.L.ReadRegularRun()
	if err != nil {
		return nil, err
	}
	return pdfobj.NewName(raw), nil
}

func (p *Parser) parseArray() (pdfobj.Object, error) {
	start := p.C.Tell()
	p.C.Read(1) // '['
	arr := pdfobj.Array{}
	for {
		if err := p.L.SkipWhitespaceAndComments(); err != nil && err != io.EOF {
			p.restore(start)
			return nil, err
		}
		b, ok := p.L.PeekByte()
		if !ok {
			p.restore(start)
			return nil, pdfobj.ErrUnexpectedEOF{Offset: p.C.Tell()}
		}
		if b == ']' {
			p.C.Read(1)
			return arr, nil
		}
		obj, err := p.ParseObject()
		if err != nil {
			p.restore(start)
			return nil, err
		}
		arr = append(arr, obj)
	}
}

func (p *Parser) parseDict() (pdfobj.Object, error) {
	start := p.C.Tell()
	p.C.Read(2) // '<<'
	dict := pdfobj.NewDict()
	for {
		if err := p.L.SkipWhitespaceAndComments(); err != nil && err != io.EOF {
			p.restore(start)
			return nil, err
		}
		window, _ := p.C.PeekAtLeast(2)
		if len(window) >= 2 && window[0] == '>' && window[1] == '>' {
			p.C.Read(2)
			return dict, nil
		}
		b, ok := p.L.PeekByte()
		if !ok {
			p.restore(start)
			return nil, pdfobj.ErrUnexpectedEOF{Offset: p.C.Tell()}
		}
		if b != '/' {
			p.restore(start)
			return nil, pdfobj.ErrMalformedToken{Offset: p.C.Tell(), Expected: "dictionary key"}
		}
		keyObj, err := p.parseName()
		if err != nil {
			p.restore(start)
			return nil, err
		}
		value, err := p.ParseObject()
		if err != nil {
			p.restore(start)
			return nil, err
		}
		dict.Set(keyObj.(pdfobj.Name), value)
	}
}

func (p *Parser) parseLiteralString() (pdfobj.Object, error) {
	start := p.C.Tell()
	p.C.Read(1) // '('
	depth := 1
	var raw []byte
	for {
		b, err := p.C.Read(1)
		if len(b) == 0 {
			p.restore(start)
			if err == nil {
				err = io.EOF
			}
			return nil, pdfobj.ErrUnexpectedEOF{Offset: p.C.Tell()}
		}
		switch b[0] {
		case '(':
			depth++
			raw = append(raw, b[0])
		case ')':
			depth--
			if depth == 0 {
				return pdfobj.LiteralString(unescapeLiteral(raw)), nil
			}
			raw = append(raw, b[0])
		case '\\':
			esc, _ := p.C.Read(1)
			if len(esc) == 0 {
				p.restore(start)
				return nil, pdfobj.ErrUnexpectedEOF{Offset: p.C.Tell()}
			}
			raw = append(raw, '\\', esc[0])
			if esc[0] == '\r' {
				// possible \r\n line continuation: peek the \n so the
				// post-processor sees the whole CRLF to strip.
				nxt, _ := p.L.PeekByte()
				if nxt == '\n' {
					p.C.Read(1)
					raw = append(raw, '\n')
				}
			}
		default:
			raw = append(raw, b[0])
		}
	}
}

// unescapeLiteral applies, in order: line-continuation removal, raw
// CR/CRLF normalization to LF, escape-sequence expansion, and octal
// escape expansion, per the literal-string rules.
func unescapeLiteral(raw []byte) []byte {
	out := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		b := raw[i]
		if b == '\r' {
			out = append(out, '\n')
			if i+1 < len(raw) && raw[i+1] == '\n' {
				i++
			}
			continue
		}
		if b != '\\' {
			out = append(out, b)
			continue
		}
		if i+1 >= len(raw) {
			out = append(out, b)
			continue
		}
		next := raw[i+1]
		switch next {
		case '\n':
			i++ // line continuation: drop both bytes
		case '\r':
			i++
			if i+1 < len(raw) && raw[i+1] == '\n' {
				i++
			}
		case 'n':
			out = append(out, '\n')
			i++
		case 'r':
			out = append(out, '\r')
			i++
		case 't':
			out = append(out, '\t')
			i++
		case 'b':
			out = append(out, '\b')
			i++
		case 'f':
			out = append(out, '\f')
			i++
		case '(':
			out = append(out, '(')
			i++
		case ')':
			out = append(out, ')')
			i++
		case '\\':
			out = append(out, '\\')
			i++
		default:
			if next >= '0' && next <= '7' {
				val := int(next - '0')
				j := i + 2
				for k := 0; k < 2 && j < len(raw) && raw[j] >= '0' && raw[j] <= '7'; k++ {
					val = val*8 + int(raw[j]-'0')
					j++
				}
				if val <= 255 {
					out = append(out, byte(val))
					i = j - 1
				} else {
					out = append(out, b)
				}
			} else {
				// unknown escape: the backslash is dropped, the byte kept
				out = append(out, next)
				i++
			}
		}
	}
	return out
}
