package objstm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benoitkugler/pdfreader/pdfobj"
)

func dict(pairs ...interface{}) pdfobj.Dict {
	d := pdfobj.NewDict()
	for i := 0; i < len(pairs); i += 2 {
		d.Set(pdfobj.NewName([]byte(pairs[i].(string))), pairs[i+1].(pdfobj.Object))
	}
	return d
}

func TestDecodeTwoObjects(t *testing.T) {
	// prolog: "5 0 7 2" -> obj 5 at rel offset 0, obj 7 at rel offset 2
	// content starting at First=8: "42 " then "true"
	content := "5 0 7 2 " // 8 bytes
	for len(content) < 8 {
		content += " "
	}
	payload := content + "42 true"

	stream := pdfobj.Stream{
		Dict: dict(
			"Type", pdfobj.NewName([]byte("ObjStm")),
			"N", pdfobj.IntNumeric(2),
			"First", pdfobj.IntNumeric(8),
		),
		Raw: []byte(payload),
	}

	entries, err := Decode(stream, nil)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, 5, entries[0].ObjNo)
	assert.Equal(t, 0, entries[0].Index)
	assert.Equal(t, pdfobj.IntNumeric(42), entries[0].Value)

	assert.Equal(t, 7, entries[1].ObjNo)
	assert.Equal(t, 1, entries[1].Index)
	assert.Equal(t, pdfobj.Boolean(true), entries[1].Value)
}

func TestDecodeRejectsWrongType(t *testing.T) {
	stream := pdfobj.Stream{
		Dict: dict("Type", pdfobj.NewName([]byte("XRef")), "N", pdfobj.IntNumeric(0), "First", pdfobj.IntNumeric(0)),
		Raw:  []byte(""),
	}
	_, err := Decode(stream, nil)
	assert.Error(t, err)
}

func TestDecodeRejectsMissingN(t *testing.T) {
	stream := pdfobj.Stream{
		Dict: dict("Type", pdfobj.NewName([]byte("ObjStm")), "First", pdfobj.IntNumeric(0)),
		Raw:  []byte(""),
	}
	_, err := Decode(stream, nil)
	var missing pdfobj.ErrMissingRequiredEntry
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "N", missing.Key)
}

func TestDecodeSingleObjectRunsToEnd(t *testing.T) {
	payload := "9 0 " + "null"
	stream := pdfobj.Stream{
		Dict: dict(
			"Type", pdfobj.NewName([]byte("ObjStm")),
			"N", pdfobj.IntNumeric(1),
			"First", pdfobj.IntNumeric(4),
		),
		Raw: []byte(payload),
	}
	entries, err := Decode(stream, nil)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 9, entries[0].ObjNo)
	assert.Equal(t, pdfobj.Null{}, entries[0].Value)
}
