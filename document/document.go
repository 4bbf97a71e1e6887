// Package document implements Document: the orchestrator that turns a
// seekable byte source into a fully materialized PDF object graph.
//
// Construction follows reader/file/file.go's Read pipeline
// (offsetLastXRefSection -> buildXRefTableStartingAt -> processObjectStreams),
// generalized to build an explicit Increment chain instead of mutating a
// single flattened context, and to run the eager-materialization and
// ObjStm-decode passes on a bounded worker pool instead of a plain loop.
// Page-tree traversal and attribute inheritance follow reader/pages.go's
// resolvePageTree/resolvePageObject.
package document

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/encoding/unicode"

	"github.com/benoitkugler/pdfreader/cursor"
	"github.com/benoitkugler/pdfreader/lexer"
	"github.com/benoitkugler/pdfreader/objparser"
	"github.com/benoitkugler/pdfreader/objstm"
	"github.com/benoitkugler/pdfreader/pdfconfig"
	"github.com/benoitkugler/pdfreader/pdfobj"
	"github.com/benoitkugler/pdfreader/progress"
	"github.com/benoitkugler/pdfreader/xref"
)

// maxMaterializeWorkers bounds the goroutine pool used during eager
// materialization and ObjStm decoding; the public API still blocks until
// every worker finishes, so the "single-threaded per document" external
// contract in the concurrency design holds regardless of this value.
const maxMaterializeWorkers = 8

// increment is one (xref section, trailer) pair loaded from a single
// startxref target, in file order within a chain walked from newest to
// oldest. eofSeen records whether this increment's own revision block is
// immediately followed by its own "startxref <n> %%EOF" trailer, the
// confirmation that the bytes it was parsed from were not left behind by a
// truncated or otherwise incomplete append.
type increment struct {
	xrefOffset int64
	section    xref.Section
	trailer    pdfobj.Dict
	eofSeen    bool
}

type objKey struct{ objNo, genNo int }

// Document owns a read-only view of a PDF file's object graph: the
// increment chain, every eagerly materialized in-use object, and every
// object unpacked from a compressed object stream.
type Document struct {
	src  io.ReaderAt
	size int64

	config  *pdfconfig.Configuration
	logger  *slog.Logger
	tracker *progress.Tracker

	version string

	mu            sync.Mutex
	increments    []increment // newest first
	confirmedFrom int         // index of the newest increment with eofSeen true
	materialized  map[objKey]pdfobj.Object
	objstmEntries map[int][]pdfobj.Object // container obj_no -> objects by index

	ready int32
}

// Open reads a complete PDF object graph from src, a seekable source of
// size bytes. Construction blocks until every in-use object and every
// object stream has been materialized; a caller that wants progress
// updates while that happens should pass a Tracker it polls from another
// goroutine while this call runs on a worker of its own. A nil tracker is
// replaced with one nobody observes.
func Open(src io.ReaderAt, size int64, config *pdfconfig.Configuration, tracker *progress.Tracker) (*Document, error) {
	if config == nil {
		config = pdfconfig.NewDefaultConfiguration()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if tracker == nil {
		tracker = progress.New()
	}

	d := &Document{
		src:           src,
		size:          size,
		config:        config,
		logger:        config.LoggerOrDefault(),
		tracker:       tracker,
		materialized:  map[objKey]pdfobj.Object{},
		objstmEntries: map[int][]pdfobj.Object{},
	}

	c := cursor.New(src, size)
	version, err := readHeader(c)
	if err != nil {
		return nil, err
	}
	d.version = version

	primary, err := locateStartXRef(c)
	if err != nil {
		return nil, err
	}

	if err := d.loadXRefChain(primary); err != nil {
		return nil, err
	}

	ctx := context.Background()
	if err := d.materializeAll(ctx); err != nil {
		return nil, err
	}
	if err := d.decodeAllObjStm(ctx); err != nil {
		return nil, err
	}

	d.tracker.Set("100% processed", 1.0)
	d.tracker.Set("Done", 1.0)
	atomic.StoreInt32(&d.ready, 1)
	return d, nil
}

// Progress returns the current construction status and fraction, safe to
// call from any goroutine at any time.
func (d *Document) Progress() (status string, fraction float64) {
	return d.tracker.Snapshot()
}

// Version returns the document's declared "major.minor" header version.
func (d *Document) Version() string { return d.version }

func (d *Document) checkReady() error {
	if atomic.LoadInt32(&d.ready) == 0 {
		return pdfobj.ErrNotReady{}
	}
	return nil
}

// readHeader reads the first line and extracts "%PDF-M.N".
func readHeader(c *cursor.Cursor) (string, error) {
	if err := c.SeekSet(0); err != nil {
		return "", pdfobj.ErrNotAPdf{}
	}
	window, _ := c.PeekAtLeast(32)
	nl := len(window)
	for i, b := range window {
		if b == '\n' || b == '\r' {
			nl = i
			break
		}
	}
	line := window[:nl]
	const prefix = "%PDF-"
	if len(line) < len(prefix)+3 || string(line[:len(prefix)]) != prefix {
		return "", pdfobj.ErrNotAPdf{}
	}
	rest := line[len(prefix):]
	dot := -1
	for i, b := range rest {
		if b == '.' {
			dot = i
			break
		}
	}
	if dot <= 0 || dot >= len(rest)-1 {
		return "", pdfobj.ErrNotAPdf{}
	}
	if _, err := strconv.Atoi(string(rest[:dot])); err != nil {
		return "", pdfobj.ErrNotAPdf{}
	}
	if _, err := strconv.Atoi(string(rest[dot+1:])); err != nil {
		return "", pdfobj.ErrNotAPdf{}
	}
	return string(rest), nil
}

// locateStartXRef walks lines backward from the end of the file, per the
// design note that only the startxref immediately preceding the final
// %%EOF is authoritative: the last three non-blank lines must read
// "startxref", "<offset>", "%%EOF" in that order.
func locateStartXRef(c *cursor.Cursor) (int64, error) {
	it := c.RLines(-1)
	var lines [][]byte
	for len(lines) < 3 {
		line, _, err := it.Next()
		if err != nil {
			return 0, pdfobj.ErrInvalidXRef{Detail: "could not locate a trailing startxref/%%EOF pair"}
		}
		trimmed := trimSpace(line)
		if len(trimmed) == 0 {
			continue
		}
		lines = append(lines, trimmed)
	}
	if string(lines[0]) != "%%EOF" {
		return 0, pdfobj.ErrInvalidXRef{Detail: "last non-blank line is not %%EOF"}
	}
	offset, err := strconv.ParseInt(string(lines[1]), 10, 64)
	if err != nil {
		return 0, pdfobj.ErrInvalidXRef{Detail: "line before %%EOF is not an integer offset"}
	}
	if string(lines[2]) != "startxref" {
		return 0, pdfobj.ErrInvalidXRef{Detail: "startxref keyword not found two lines before %%EOF"}
	}
	return offset, nil
}

func trimSpace(b []byte) []byte {
	start := 0
	for start < len(b) && isSpace(b[start]) {
		start++
	}
	end := len(b)
	for end > start && isSpace(b[end-1]) {
		end--
	}
	return b[start:end]
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f' || b == 0x00
}

// loadXRefChain walks the trailer Prev chain starting at the primary
// offset, appending newest-first, since the primary offset found by
// locateStartXRef is always the newest increment.
func (d *Document) loadXRefChain(primary int64) error {
	visited := map[int64]bool{}
	offset := primary
	for {
		if visited[offset] {
			return pdfobj.ErrXRefChainCycle{Offset: offset}
		}
		if len(d.increments) >= d.config.MaxXRefChainLength {
			return pdfobj.ErrXRefChainCycle{Offset: offset}
		}
		visited[offset] = true

		c := cursor.New(d.src, d.size)
		result, err := xref.ParseAt(c, d, offset)
		if err != nil {
			return fmt.Errorf("document: parsing xref at offset %d: %w", offset, err)
		}
		eofSeen := hasTrailingEOF(c)
		d.increments = append(d.increments, increment{
			xrefOffset: offset,
			section:    result.Section,
			trailer:    result.Trailer,
			eofSeen:    eofSeen,
		})
		d.logger.Debug("xref chain hop", "offset", offset, "subsections", len(result.Section.Subsections), "eofSeen", eofSeen)

		prevObj, ok := result.Trailer.Get("Prev")
		if !ok {
			break
		}
		prevNum, ok := prevObj.(pdfobj.Numeric)
		if !ok {
			return pdfobj.ErrInvalidXRef{Offset: offset, Detail: "trailer Prev is not numeric"}
		}
		offset = prevNum.Int64()
	}

	d.confirmedFrom = firstConfirmed(d.increments)
	if d.confirmedFrom > 0 {
		d.logger.Warn("ignoring increments without a confirmed trailing EOF marker", "skipped", d.confirmedFrom)
	}
	return nil
}

// hasTrailingEOF reports whether the bytes immediately following the
// cursor's current position are "startxref <offset> %%EOF". Whitespace and
// comments are skipped before "startxref" and before the offset; before
// "%%EOF", which itself starts with '%', only whitespace is. It restores the
// cursor to its entry position before returning, since it only inspects,
// never consumes, the increment's trailer block.
func hasTrailingEOF(c *cursor.Cursor) bool {
	save := c.Tell()
	defer c.SeekSet(save)

	l := lexer.New(c)
	if err := l.SkipWhitespaceAndComments(); err != nil {
		return false
	}
	if !consumeLiteral(l, "startxref") {
		return false
	}
	if err := l.SkipWhitespaceAndComments(); err != nil {
		return false
	}
	digits, err := l.ReadRegularRun()
	if err != nil || len(digits) == 0 {
		return false
	}
	for {
		b, ok := l.PeekByte()
		if !ok || !lexer.IsWhitespace(b) {
			break
		}
		l.C.Read(1)
	}
	return consumeLiteral(l, "%%EOF")
}

// consumeLiteral reads len(want) bytes from l and reports whether they
// match want exactly. Callers that care about cursor position on failure
// restore it themselves.
func consumeLiteral(l *lexer.Lexer, want string) bool {
	got, err := l.C.Read(len(want))
	if err != nil || string(got) != want {
		return false
	}
	return true
}

// firstConfirmed returns the index of the newest increment with eofSeen
// true, so GetObject can skip any newer increments left behind by a
// truncated or otherwise incomplete append. If none are confirmed, it
// falls back to 0 rather than refusing to look up anything at all.
func firstConfirmed(increments []increment) int {
	for i, inc := range increments {
		if inc.eofSeen {
			return i
		}
	}
	return 0
}

// materializeAll parses every distinct in-use (obj_no, gen_no) named by any
// increment's xref section, over a bounded worker pool.
func (d *Document) materializeAll(ctx context.Context) error {
	seen := map[objKey]bool{}
	var jobs []objKey
	for _, inc := range d.increments {
		for _, sub := range inc.section.Subsections {
			for _, e := range sub.Entries {
				if e.Kind != xref.InUse {
					continue
				}
				k := objKey{e.ObjNo, e.GenNo}
				if seen[k] {
					continue
				}
				seen[k] = true
				jobs = append(jobs, k)
			}
		}
	}

	total := int64(len(jobs))
	var done int64
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(maxMaterializeWorkers)
	for _, job := range jobs {
		job := job
		g.Go(func() error {
			if _, err := d.GetObject(job.objNo, job.genNo); err != nil {
				if d.config.StrictMode {
					return fmt.Errorf("document: materializing %d %d: %w", job.objNo, job.genNo, err)
				}
				d.logger.Warn("skipping unmaterializable object", "objNo", job.objNo, "genNo", job.genNo, "err", err)
			}
			n := atomic.AddInt64(&done, 1)
			if total > 0 {
				d.tracker.Set(fmt.Sprintf("%d%% processed", int(100*n/total)), float64(n)/float64(total))
			}
			return nil
		})
	}
	return g.Wait()
}

// decodeAllObjStm finds every materialized Stream with Type=ObjStm and
// decodes it, over a bounded worker pool.
func (d *Document) decodeAllObjStm(ctx context.Context) error {
	d.tracker.Set("Decoding object streams…", 1.0)

	d.mu.Lock()
	var containers []int
	for k, v := range d.materialized {
		if stream, ok := v.(pdfobj.Stream); ok && isObjStm(stream.Dict) {
			containers = append(containers, k.objNo)
		}
	}
	d.mu.Unlock()

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(maxMaterializeWorkers)
	for _, containerObjNo := range containers {
		containerObjNo := containerObjNo
		g.Go(func() error {
			if err := d.decodeContainer(containerObjNo); err != nil && d.config.StrictMode {
				return fmt.Errorf("document: decoding object stream %d: %w", containerObjNo, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func isObjStm(dict pdfobj.Dict) bool {
	typeObj, ok := dict.Get("Type")
	if !ok {
		return false
	}
	name, ok := typeObj.(pdfobj.Name)
	return ok && name.Expanded() == "ObjStm"
}

// GetObject implements pdfobj.Resolver: it walks the increment chain
// newest-to-oldest starting from the newest increment with a confirmed
// trailing EOF marker, returning the first entry found for (objNo, genNo).
// Increments newer than that are the tail of a truncated or otherwise
// incomplete append and are not consulted. Because this is also how stream
// Length references and ObjStm container lookups are resolved during
// construction itself — before confirmedFrom has been computed, so it is
// still its zero value 0 and every increment loaded so far is consulted —
// this method is deliberately not gated on readiness.
func (d *Document) GetObject(objNo, genNo int) (pdfobj.Object, error) {
	for _, inc := range d.increments[d.confirmedFrom:] {
		entry, ok := inc.section.Lookup(objNo, genNo)
		if !ok {
			continue
		}
		switch entry.Kind {
		case xref.Free:
			return pdfobj.Null{}, nil
		case xref.InUse:
			return d.materializeEntry(entry, objNo, genNo)
		case xref.Compressed:
			return d.getCompressed(entry.Container, entry.Index)
		}
	}
	return nil, pdfobj.ErrObjectNotFound{ObjNo: objNo, GenNo: genNo}
}

func (d *Document) materializeEntry(entry xref.Entry, objNo, genNo int) (pdfobj.Object, error) {
	key := objKey{objNo, genNo}
	d.mu.Lock()
	if v, ok := d.materialized[key]; ok {
		d.mu.Unlock()
		return v, nil
	}
	d.mu.Unlock()

	obj, err := d.parseIndirectAt(entry.Offset, objNo, genNo)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	d.materialized[key] = obj
	d.mu.Unlock()
	return obj, nil
}

// parseIndirectAt parses the "N G obj ... endobj" form at offset on a
// fresh Cursor (a new view over the same io.ReaderAt, never the shared
// one), so concurrent workers never race over cursor position.
func (d *Document) parseIndirectAt(offset int64, wantObjNo, wantGenNo int) (pdfobj.Object, error) {
	c := cursor.New(d.src, d.size)
	if err := c.SeekSet(offset); err != nil {
		return nil, pdfobj.ErrInvalidXRef{Offset: offset, Detail: "xref entry offset out of range"}
	}
	p := objparser.New(c, d)
	obj, err := p.ParseObject()
	if err != nil {
		return nil, err
	}
	ind, ok := obj.(pdfobj.Indirect)
	if !ok {
		return nil, pdfobj.ErrObjectMismatch{
			XRefSays: fmt.Sprintf("%d %d obj", wantObjNo, wantGenNo),
			Found:    obj.String(),
		}
	}
	if ind.ObjNo != wantObjNo || ind.GenNo != wantGenNo {
		return nil, pdfobj.ErrObjectMismatch{
			XRefSays: fmt.Sprintf("%d %d", wantObjNo, wantGenNo),
			Found:    fmt.Sprintf("%d %d", ind.ObjNo, ind.GenNo),
		}
	}
	return ind.Value, nil
}

func (d *Document) decodeContainer(containerObjNo int) error {
	d.mu.Lock()
	_, already := d.objstmEntries[containerObjNo]
	d.mu.Unlock()
	if already {
		return nil
	}

	containerObj, err := d.GetObject(containerObjNo, 0)
	if err != nil {
		return err
	}
	stream, ok := containerObj.(pdfobj.Stream)
	if !ok {
		return fmt.Errorf("document: object %d is flagged as an ObjStm container but is not a Stream", containerObjNo)
	}
	entries, err := objstm.Decode(stream, d)
	if err != nil {
		return err
	}
	objs := make([]pdfobj.Object, len(entries))
	for _, e := range entries {
		if e.Index >= 0 && e.Index < len(objs) {
			objs[e.Index] = e.Value
		}
	}

	d.mu.Lock()
	d.objstmEntries[containerObjNo] = objs
	d.mu.Unlock()
	return nil
}

func (d *Document) getCompressed(container, index int) (pdfobj.Object, error) {
	d.mu.Lock()
	objs, ok := d.objstmEntries[container]
	d.mu.Unlock()
	if !ok {
		if err := d.decodeContainer(container); err != nil {
			return nil, err
		}
		d.mu.Lock()
		objs = d.objstmEntries[container]
		d.mu.Unlock()
	}
	if index < 0 || index >= len(objs) || objs[index] == nil {
		return nil, pdfobj.ErrObjectNotFound{ObjNo: container, GenNo: index}
	}
	return objs[index], nil
}

// GetTrailer returns the trailer dictionary of the given increment. Any
// negative value means the newest increment. Non-negative values index
// d.increments directly, which is ordered newest-first, so 0 is also the
// newest increment, 1 is the next-oldest, and so on.
func (d *Document) GetTrailer(increment int) (pdfobj.Dict, error) {
	if err := d.checkReady(); err != nil {
		return pdfobj.Dict{}, err
	}
	if increment < 0 {
		increment = 0
	}
	if increment >= len(d.increments) {
		return pdfobj.Dict{}, fmt.Errorf("document: increment %d out of range (have %d)", increment, len(d.increments))
	}
	return d.increments[increment].trailer, nil
}

// GetCatalog resolves the /Root entry of the given increment's trailer.
func (d *Document) GetCatalog(increment int) (pdfobj.Dict, error) {
	trailer, err := d.GetTrailer(increment)
	if err != nil {
		return pdfobj.Dict{}, err
	}
	rootObj, ok := trailer.Get("Root")
	if !ok {
		return pdfobj.Dict{}, pdfobj.ErrMissingRequiredEntry{Dict: "trailer", Key: "Root"}
	}
	return resolveToDict(rootObj, "Root")
}

func resolveToDict(o pdfobj.Object, what string) (pdfobj.Dict, error) {
	resolved, err := pdfobj.Resolve(o)
	if err != nil {
		return pdfobj.Dict{}, err
	}
	dict, ok := resolved.(pdfobj.Dict)
	if !ok {
		return pdfobj.Dict{}, fmt.Errorf("document: %s is not a dictionary", what)
	}
	return dict, nil
}

func nodeType(dict pdfobj.Dict) string {
	typeObj, ok := dict.Get("Type")
	if !ok {
		return ""
	}
	name, ok := typeObj.(pdfobj.Name)
	if !ok {
		return ""
	}
	return name.Expanded()
}

var inheritableAttrs = []string{"Resources", "MediaBox", "Rotate", "CropBox"}

// narrowInheritable extracts only the page-tree inheritable attributes
// present directly on dict.
func narrowInheritable(dict pdfobj.Dict) pdfobj.Dict {
	out := pdfobj.NewDict()
	for _, attr := range inheritableAttrs {
		if v, ok := dict.Get(attr); ok {
			name, _ := dict.RawName(attr)
			out.Set(name, v)
		}
	}
	return out
}

// overlayInherited copies every entry of base, then every entry of
// overrides, so overrides wins on key collisions.
func overlayInherited(base, overrides pdfobj.Dict) pdfobj.Dict {
	out := pdfobj.NewDict()
	for _, k := range base.Keys() {
		v, _ := base.GetRaw(k)
		name, _ := base.RawName(k)
		out.Set(name, v)
	}
	for _, k := range overrides.Keys() {
		v, _ := overrides.GetRaw(k)
		name, _ := overrides.RawName(k)
		out.Set(name, v)
	}
	return out
}

// pageFrame is a pending page-tree node paired with the inheritable
// attributes accumulated from its ancestors.
type pageFrame struct {
	dict      pdfobj.Dict
	inherited pdfobj.Dict
}

func kidsOf(dict pdfobj.Dict) (pdfobj.Array, error) {
	kidsObj, ok := dict.Get("Kids")
	if !ok {
		return nil, pdfobj.ErrMissingRequiredEntry{Dict: "Pages", Key: "Kids"}
	}
	kids, ok := kidsObj.(pdfobj.Array)
	if !ok {
		return nil, fmt.Errorf("document: Pages Kids is not an array")
	}
	return kids, nil
}

func countOf(dict pdfobj.Dict) (int, error) {
	countObj, ok := dict.Get("Count")
	if !ok {
		return 0, pdfobj.ErrMissingRequiredEntry{Dict: "Pages", Key: "Count"}
	}
	n, ok := countObj.(pdfobj.Numeric)
	if !ok {
		return 0, fmt.Errorf("document: Pages Count is not numeric")
	}
	return int(n.Int64()), nil
}

func pushKidsReversed(stack []pageFrame, kids pdfobj.Array, inherited pdfobj.Dict) ([]pageFrame, error) {
	for i := len(kids) - 1; i >= 0; i-- {
		kidDict, err := resolveToDict(kids[i], "Kids element")
		if err != nil {
			return nil, err
		}
		stack = append(stack, pageFrame{dict: kidDict, inherited: inherited})
	}
	return stack, nil
}

// GetPageDict performs a right-push DFS over the page tree of the given
// increment, returning the index-th Page leaf (0-based) in document order,
// with Resources/MediaBox/Rotate/CropBox resolved from ancestor Pages
// nodes when absent locally.
func (d *Document) GetPageDict(index, increment int) (pdfobj.Dict, error) {
	catalog, err := d.GetCatalog(increment)
	if err != nil {
		return pdfobj.Dict{}, err
	}
	pagesObj, ok := catalog.Get("Pages")
	if !ok {
		return pdfobj.Dict{}, pdfobj.ErrMissingRequiredEntry{Dict: "catalog", Key: "Pages"}
	}
	root, err := resolveToDict(pagesObj, "Pages")
	if err != nil {
		return pdfobj.Dict{}, err
	}

	stack := []pageFrame{{dict: root, inherited: pdfobj.NewDict()}}
	counter := 0
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch nodeType(top.dict) {
		case "Pages":
			count, err := countOf(top.dict)
			if err != nil {
				return pdfobj.Dict{}, err
			}
			if counter+count <= index {
				counter += count
				continue
			}
			kids, err := kidsOf(top.dict)
			if err != nil {
				return pdfobj.Dict{}, err
			}
			newInherited := overlayInherited(top.inherited, narrowInheritable(top.dict))
			stack, err = pushKidsReversed(stack, kids, newInherited)
			if err != nil {
				return pdfobj.Dict{}, err
			}
		case "Page":
			if counter == index {
				return overlayInherited(top.inherited, top.dict), nil
			}
			counter++
		default:
			return pdfobj.Dict{}, fmt.Errorf("document: page tree node has unexpected /Type %q", nodeType(top.dict))
		}
	}
	return pdfobj.Dict{}, fmt.Errorf("document: page index %d out of range", index)
}

// GetAllPageDicts walks the entire page tree of the newest increment and
// returns every Page leaf, in document order, with inherited attributes
// resolved the same way GetPageDict does.
func (d *Document) GetAllPageDicts() ([]pdfobj.Dict, error) {
	catalog, err := d.GetCatalog(-1)
	if err != nil {
		return nil, err
	}
	pagesObj, ok := catalog.Get("Pages")
	if !ok {
		return nil, pdfobj.ErrMissingRequiredEntry{Dict: "catalog", Key: "Pages"}
	}
	root, err := resolveToDict(pagesObj, "Pages")
	if err != nil {
		return nil, err
	}

	var out []pdfobj.Dict
	stack := []pageFrame{{dict: root, inherited: pdfobj.NewDict()}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch nodeType(top.dict) {
		case "Pages":
			kids, err := kidsOf(top.dict)
			if err != nil {
				return nil, err
			}
			newInherited := overlayInherited(top.inherited, narrowInheritable(top.dict))
			stack, err = pushKidsReversed(stack, kids, newInherited)
			if err != nil {
				return nil, err
			}
		case "Page":
			out = append(out, overlayInherited(top.inherited, top.dict))
		default:
			return nil, fmt.Errorf("document: page tree node has unexpected /Type %q", nodeType(top.dict))
		}
	}
	return out, nil
}

// GetInfoString returns the Info dictionary entry named key, decoding it
// from UTF-16BE when it carries the PDF text-string BOM, per the
// convention Info dictionary values use for anything outside PDFDocEncoding.
func (d *Document) GetInfoString(key string) (string, error) {
	trailer, err := d.GetTrailer(-1)
	if err != nil {
		return "", err
	}
	infoObj, ok := trailer.Get("Info")
	if !ok {
		return "", fmt.Errorf("document: trailer has no Info dictionary")
	}
	infoDict, err := resolveToDict(infoObj, "Info")
	if err != nil {
		return "", err
	}
	v, ok := infoDict.Get(key)
	if !ok {
		return "", fmt.Errorf("document: Info has no %s entry", key)
	}
	raw, ok := pdfobj.IsStringObject(v)
	if !ok {
		return "", fmt.Errorf("document: Info.%s is not a string", key)
	}
	return decodePDFTextString(raw)
}

func decodePDFTextString(b []byte) (string, error) {
	if len(b) >= 2 && b[0] == 0xFE && b[1] == 0xFF {
		dec := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder()
		out, err := dec.Bytes(b)
		if err != nil {
			return "", fmt.Errorf("document: decoding UTF-16BE text string: %w", err)
		}
		return string(out), nil
	}
	return string(b), nil
}
