package filter

import (
	"bytes"
	"compress/zlib"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benoitkugler/pdfreader/pdfobj"
)

func deflate(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	_, err := w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func dictWithFilter(name string, params pdfobj.Dict) pdfobj.Dict {
	d := pdfobj.NewDict()
	d.Set(pdfobj.NewName([]byte("Filter")), pdfobj.NewName([]byte(name)))
	if params.Len() > 0 {
		d.Set(pdfobj.NewName([]byte("DecodeParms")), params)
	}
	return d
}

func TestFlateDecodeNoPredictor(t *testing.T) {
	raw := deflate(t, []byte("hello, pdf"))
	out, err := Decode(dictWithFilter(FlateDecode, pdfobj.NewDict()), raw)
	require.NoError(t, err)
	assert.Equal(t, "hello, pdf", string(out))
}

func TestFlateDecodePNGUpPredictor(t *testing.T) {
	// two rows of 3 bytes, row-filter byte 2 (Up) prefixed to each
	rows := []byte{
		2, 1, 2, 3,
		2, 4, 5, 6,
	}
	raw := deflate(t, rows)
	params := pdfobj.NewDict()
	params.Set(pdfobj.NewName([]byte("Predictor")), pdfobj.IntNumeric(12))
	params.Set(pdfobj.NewName([]byte("Columns")), pdfobj.IntNumeric(3))
	out, err := Decode(dictWithFilter(FlateDecode, params), raw)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 5, 7, 9}, out)
}

func TestASCIIHexDecode(t *testing.T) {
	out, err := Decode(dictWithFilter(ASCIIHexDecode, pdfobj.NewDict()), []byte("68656C6C6F>"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(out))
}

func TestASCIIHexDecodeOddDigitsPadded(t *testing.T) {
	out, err := Decode(dictWithFilter(ASCIIHexDecode, pdfobj.NewDict()), []byte("68656C6C6>"))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x68, 0x65, 0x6C, 0x6C, 0x60}, out)
}

func TestASCII85Decode(t *testing.T) {
	// "hello" encoded with ascii85, terminated with ~>
	out, err := Decode(dictWithFilter(ASCII85Decode, pdfobj.NewDict()), []byte("BOu!rDZ~>"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(out))
}

func TestRunLengthDecode(t *testing.T) {
	// literal run "abc" (length-1=2) then repeat 'x' 4 times (257-253=4), then EOD
	data := []byte{2, 'a', 'b', 'c', 253, 'x', 0x80}
	out, err := Decode(dictWithFilter(RunLengthDecode, pdfobj.NewDict()), data)
	require.NoError(t, err)
	assert.Equal(t, "abcxxxx", string(out))
}

func TestUnsupportedFilter(t *testing.T) {
	_, err := Decode(dictWithFilter("BogusDecode", pdfobj.NewDict()), []byte("x"))
	var unsupported pdfobj.ErrUnsupportedFilter
	assert.ErrorAs(t, err, &unsupported)
}

func TestNoFilterPassesThrough(t *testing.T) {
	out, err := Decode(pdfobj.NewDict(), []byte("raw bytes"))
	require.NoError(t, err)
	assert.Equal(t, "raw bytes", string(out))
}
