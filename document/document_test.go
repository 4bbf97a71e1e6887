package document

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benoitkugler/pdfreader/pdfconfig"
	"github.com/benoitkugler/pdfreader/pdfobj"
	"github.com/benoitkugler/pdfreader/progress"
)

// minimalPDFBuilder builds a classic-xref PDF with objects placed at
// exact byte offsets, tracking each "N 0 obj" start so the xref table can
// point at them precisely.
type minimalPDFBuilder struct {
	buf     bytes.Buffer
	offsets map[int]int64
}

func newMinimalPDFBuilder() *minimalPDFBuilder {
	b := &minimalPDFBuilder{offsets: map[int]int64{}}
	b.buf.WriteString("%PDF-1.7\n")
	return b
}

func (b *minimalPDFBuilder) object(n int, body string) {
	b.offsets[n] = int64(b.buf.Len())
	fmt.Fprintf(&b.buf, "%d 0 obj\n%s\nendobj\n", n, body)
}

func (b *minimalPDFBuilder) finish(t *testing.T, size int, extra string) []byte {
	t.Helper()
	xrefOffset := int64(b.buf.Len())
	b.buf.WriteString("xref\n")
	fmt.Fprintf(&b.buf, "0 %d\n", size)
	b.buf.WriteString("0000000000 65535 f \n")
	for n := 1; n < size; n++ {
		off, ok := b.offsets[n]
		if !ok {
			b.buf.WriteString("0000000000 00000 f \n")
			continue
		}
		fmt.Fprintf(&b.buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b.buf, "trailer\n<</Size %d%s>>\nstartxref\n%d\n%%%%EOF", size, extra, xrefOffset)
	return b.buf.Bytes()
}

func openBuilder(t *testing.T, data []byte) *Document {
	t.Helper()
	doc, err := Open(bytes.NewReader(data), int64(len(data)), nil, nil)
	require.NoError(t, err)
	return doc
}

func simpleOnePagePDF(t *testing.T) []byte {
	t.Helper()
	b := newMinimalPDFBuilder()
	b.object(1, "<</Type/Catalog/Pages 2 0 R>>")
	b.object(2, "<</Type/Pages/Kids[3 0 R]/Count 1/MediaBox[0 0 612 792]>>")
	b.object(3, "<</Type/Page/Parent 2 0 R>>")
	return b.finish(t, 4, "/Root 1 0 R")
}

func TestOpenRejectsMissingHeader(t *testing.T) {
	data := []byte("not a pdf at all")
	_, err := Open(bytes.NewReader(data), int64(len(data)), nil, nil)
	var notAPdf pdfobj.ErrNotAPdf
	assert.ErrorAs(t, err, &notAPdf)
}

func TestOpenParsesVersionAndTrailer(t *testing.T) {
	data := simpleOnePagePDF(t)
	doc := openBuilder(t, data)
	assert.Equal(t, "1.7", doc.Version())

	trailer, err := doc.GetTrailer(-1)
	require.NoError(t, err)
	size, ok := trailer.Get("Size")
	require.True(t, ok)
	assert.Equal(t, int64(4), size.(pdfobj.Numeric).Int64())
}

func TestOpenReportsDoneProgress(t *testing.T) {
	data := simpleOnePagePDF(t)
	doc := openBuilder(t, data)
	status, fraction := doc.Progress()
	assert.Equal(t, "Done", status)
	assert.Equal(t, 1.0, fraction)
}

func TestGetObjectFreeEntryYieldsNull(t *testing.T) {
	data := simpleOnePagePDF(t)
	doc := openBuilder(t, data)
	obj, err := doc.GetObject(0, 65535)
	require.NoError(t, err)
	assert.True(t, pdfobj.IsNull(obj))
}

func TestGetObjectIsIdempotent(t *testing.T) {
	data := simpleOnePagePDF(t)
	doc := openBuilder(t, data)
	first, err := doc.GetObject(3, 0)
	require.NoError(t, err)
	second, err := doc.GetObject(3, 0)
	require.NoError(t, err)
	assert.True(t, first.Equal(second))
}

func TestGetCatalogResolvesRoot(t *testing.T) {
	data := simpleOnePagePDF(t)
	doc := openBuilder(t, data)
	catalog, err := doc.GetCatalog(-1)
	require.NoError(t, err)
	assert.Equal(t, "Catalog", nodeType(catalog))
}

func TestGetPageDictInheritsMediaBox(t *testing.T) {
	data := simpleOnePagePDF(t)
	doc := openBuilder(t, data)
	page, err := doc.GetPageDict(0, -1)
	require.NoError(t, err)
	mb, ok := page.Get("MediaBox")
	require.True(t, ok, "Page must inherit MediaBox from its Pages parent")
	arr, ok := mb.(pdfobj.Array)
	require.True(t, ok)
	require.Len(t, arr, 4)
}

func TestGetAllPageDictsCollectsEveryLeaf(t *testing.T) {
	b := newMinimalPDFBuilder()
	b.object(1, "<</Type/Catalog/Pages 2 0 R>>")
	b.object(2, "<</Type/Pages/Kids[3 0 R 4 0 R]/Count 2/Resources<</Font<<>>>>>>")
	b.object(3, "<</Type/Page/Parent 2 0 R>>")
	b.object(4, "<</Type/Page/Parent 2 0 R/Resources<</Font<</F1 5 0 R>>>>>>")
	data := b.finish(t, 6, "/Root 1 0 R")

	doc := openBuilder(t, data)
	pages, err := doc.GetAllPageDicts()
	require.NoError(t, err)
	require.Len(t, pages, 2)

	// second page overrides the inherited Resources (an empty Font dict)
	// with its own, whose Font names F1
	res, ok := pages[1].Get("Resources")
	require.True(t, ok)
	resDict := res.(pdfobj.Dict)
	font, hasFont := resDict.Get("Font")
	require.True(t, hasFont)
	_, hasF1 := font.(pdfobj.Dict).Get("F1")
	assert.True(t, hasF1)
}

func TestIncrementalUpdatePrevChainNewestWins(t *testing.T) {
	// build the original, then append an incremental update that
	// replaces object 3 and chains back via /Prev.
	b := newMinimalPDFBuilder()
	b.object(1, "<</Type/Catalog/Pages 2 0 R>>")
	b.object(2, "<</Type/Pages/Kids[3 0 R]/Count 1>>")
	b.object(3, "<</Type/Page/Parent 2 0 R/Rotate 0>>")
	original := b.finish(t, 4, "/Root 1 0 R")
	firstXRefOffset := bytes.LastIndex(original, []byte("\nxref\n")) + 1

	var full bytes.Buffer
	full.Write(original)
	updateObjOffset := int64(full.Len())
	fmt.Fprintf(&full, "3 0 obj\n<</Type/Page/Parent 2 0 R/Rotate 90>>\nendobj\n")
	xrefOffset := int64(full.Len())
	full.WriteString("xref\n")
	full.WriteString("3 1\n")
	fmt.Fprintf(&full, "%010d 00000 n \n", updateObjOffset)
	fmt.Fprintf(&full, "trailer\n<</Size 4/Root 1 0 R/Prev %d>>\nstartxref\n%d\n%%%%EOF", firstXRefOffset, xrefOffset)

	doc := openBuilder(t, full.Bytes())
	page, err := doc.GetObject(3, 0)
	require.NoError(t, err)
	dict := page.(pdfobj.Dict)
	rotate, ok := dict.Get("Rotate")
	require.True(t, ok)
	assert.Equal(t, int64(90), rotate.(pdfobj.Numeric).Int64(), "newest increment's object must win")
}

func TestPublicQueriesBlockBeforeReady(t *testing.T) {
	doc := &Document{}
	_, err := doc.GetTrailer(-1)
	var notReady pdfobj.ErrNotReady
	assert.ErrorAs(t, err, &notReady)
}

func TestOpenDefaultsNilConfigAndTracker(t *testing.T) {
	data := simpleOnePagePDF(t)
	doc, err := Open(bytes.NewReader(data), int64(len(data)), nil, nil)
	require.NoError(t, err)
	assert.NotNil(t, doc)
}

func TestOpenUsesSuppliedConfiguration(t *testing.T) {
	data := simpleOnePagePDF(t)
	cfg := pdfconfig.NewDefaultConfiguration()
	cfg.StrictMode = false
	tracker := progress.New()
	doc, err := Open(bytes.NewReader(data), int64(len(data)), cfg, tracker)
	require.NoError(t, err)
	assert.NotNil(t, doc)
}
