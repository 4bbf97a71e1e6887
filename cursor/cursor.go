// Package cursor implements ByteCursor, a seekable byte-stream abstraction
// over an io.ReaderAt: bounded peeks that never short-read when enough
// bytes remain, and a lazy reverse line iterator used to locate the
// trailing startxref/%%EOF markers without loading a whole file.
//
// The block-wise backward scan is adapted from the teacher's lineReader
// and the reverse 512-byte-block scan in offsetLastXRefSection.
package cursor

import (
	"errors"
	"io"
)

// ErrOutOfRange is returned by Seek calls that would move the cursor
// outside [0, size].
var ErrOutOfRange = errors.New("cursor: seek out of range")

// Cursor is a seekable, peekable view over a fixed-size byte source.
type Cursor struct {
	r    io.ReaderAt
	size int64
	pos  int64
}

// New wraps r, whose total length is size.
func New(r io.ReaderAt, size int64) *Cursor {
	return &Cursor{r: r, size: size}
}

func (c *Cursor) Tell() int64 { return c.pos }
func (c *Cursor) Size() int64 { return c.size }

func (c *Cursor) SeekSet(off int64) error {
	if off < 0 || off > c.size {
		return ErrOutOfRange
	}
	c.pos = off
	return nil
}

func (c *Cursor) SeekCur(delta int64) error { return c.SeekSet(c.pos + delta) }
func (c *Cursor) SeekEnd(delta int64) error { return c.SeekSet(c.size + delta) }

// Read returns up to n bytes starting at the current position and
// advances the cursor by the number of bytes returned. At end of stream
// it returns a shorter (possibly empty) slice together with io.EOF;
// callers that need exactly n bytes should use PeekAtLeast first.
func (c *Cursor) Read(n int) ([]byte, error) {
	b, err := c.peek(c.pos, n)
	c.pos += int64(len(b))
	return b, err
}

// PeekAtLeast returns at least n bytes from the current position without
// advancing the cursor, re-reading the underlying source if it short-reads
// on the first attempt. If fewer than n bytes remain before the end of the
// stream, it returns all remaining bytes and io.EOF.
func (c *Cursor) PeekAtLeast(n int) ([]byte, error) {
	return c.peek(c.pos, n)
}

func (c *Cursor) peek(at int64, n int) ([]byte, error) {
	if at >= c.size {
		return nil, io.EOF
	}
	want := int64(n)
	if at+want > c.size {
		want = c.size - at
	}
	buf := make([]byte, want)
	got := 0
	for got < len(buf) {
		m, err := c.r.ReadAt(buf[got:], at+int64(got))
		got += m
		if err != nil {
			if err == io.EOF && int64(got) == want {
				break
			}
			if err == io.EOF {
				return buf[:got], io.EOF
			}
			return buf[:got], err
		}
	}
	if int64(len(buf)) < int64(n) {
		return buf, io.EOF
	}
	return buf, nil
}

const defaultBlockSize = 512

// RLineIter lazily yields lines in reverse order, splitting on
// "\r\n", lone "\r" and lone "\n", starting from a given offset and
// walking toward the beginning of the stream.
type RLineIter struct {
	c         *Cursor
	blockSize int64
	lo        int64 // offset in file of buf[0]
	buf       []byte
	lines     [][2]int // pending complete [start,end) line spans into buf, forward order
	atStart   bool     // lo == 0 and buf has been fully split
	doneErr   error
}

// RLines returns a reverse line iterator over bytes [0, fromOffset). A
// negative fromOffset means the end of the stream.
func (c *Cursor) RLines(fromOffset int64) *RLineIter {
	if fromOffset < 0 || fromOffset > c.size {
		fromOffset = c.size
	}
	return &RLineIter{c: c, blockSize: defaultBlockSize, lo: fromOffset}
}

// Next returns the next line (without its terminator) and the file offset
// of its first byte, scanning backward. It returns io.EOF once the
// beginning of the stream has been reached.
func (it *RLineIter) Next() ([]byte, int64, error) {
	if it.doneErr != nil {
		return nil, 0, it.doneErr
	}
	for {
		if len(it.lines) > 0 {
			span := it.lines[len(it.lines)-1]
			it.lines = it.lines[:len(it.lines)-1]
			line := it.buf[span[0]:span[1]]
			off := it.lo + int64(span[0])
			it.buf = it.buf[:span[0]] // drop the consumed suffix and its separator
			return line, off, nil
		}
		if it.atStart {
			if len(it.buf) > 0 {
				line := it.buf
				off := it.lo
				it.buf = nil
				it.doneErr = io.EOF // nothing left after this
				return line, off, nil
			}
			it.doneErr = io.EOF
			return nil, 0, io.EOF
		}
		if err := it.grow(); err != nil {
			return nil, 0, err
		}
	}
}

func (it *RLineIter) grow() error {
	n := it.blockSize
	if n > it.lo {
		n = it.lo
	}
	newLo := it.lo - n
	chunk, err := it.c.peek(newLo, int(n))
	if err != nil && err != io.EOF {
		return err
	}
	it.buf = append(chunk, it.buf...)
	it.lo = newLo
	if it.lo == 0 {
		it.atStart = true
	}
	it.lines = splitCompleteLines(it.buf, it.atStart)
	return nil
}

// splitCompleteLines splits buf into line spans separated by \r\n, \r or
// \n. Unless atZero, the leading fragment before the first separator found
// (scanning forward) is excluded: that fragment's true start is still
// unknown since more data may yet be prepended to buf by a later grow().
// Once atZero, buf's first byte is known to be the real start of the
// stream, so that fragment is a genuine line and must be included too.
func splitCompleteLines(buf []byte, atZero bool) [][2]int {
	var spans [][2]int
	start := -1
	if atZero {
		start = 0
	}
	i := 0
	for i < len(buf) {
		switch buf[i] {
		case '\r':
			if start >= 0 {
				spans = append(spans, [2]int{start, i})
			}
			if i+1 < len(buf) && buf[i+1] == '\n' {
				i += 2
			} else {
				i++
			}
			start = i
		case '\n':
			if start >= 0 {
				spans = append(spans, [2]int{start, i})
			}
			i++
			start = i
		default:
			i++
		}
	}
	if start >= 0 && start < len(buf) {
		spans = append(spans, [2]int{start, len(buf)})
	}
	return spans
}
