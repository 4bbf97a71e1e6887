package cursor

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadAndTell(t *testing.T) {
	c := New(bytes.NewReader([]byte("hello world")), 11)
	b, err := c.Read(5)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(b))
	assert.Equal(t, int64(5), c.Tell())
}

func TestSeekOutOfRange(t *testing.T) {
	c := New(bytes.NewReader([]byte("abc")), 3)
	assert.ErrorIs(t, c.SeekSet(-1), ErrOutOfRange)
	assert.ErrorIs(t, c.SeekSet(4), ErrOutOfRange)
	assert.NoError(t, c.SeekSet(3))
}

func TestPeekAtLeastDoesNotAdvance(t *testing.T) {
	c := New(bytes.NewReader([]byte("abcdef")), 6)
	b, err := c.PeekAtLeast(3)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(b))
	assert.Equal(t, int64(0), c.Tell())
}

func TestPeekAtLeastShortAtEOF(t *testing.T) {
	c := New(bytes.NewReader([]byte("ab")), 2)
	b, err := c.PeekAtLeast(5)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, "ab", string(b))
}

// shortReaderAt always serves at most one byte per call, forcing
// PeekAtLeast to retry internally.
type shortReaderAt struct{ data []byte }

func (s shortReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(s.data)) {
		return 0, io.EOF
	}
	p[0] = s.data[off]
	return 1, nil
}

func TestPeekAtLeastRetriesShortReads(t *testing.T) {
	data := []byte("abcdefgh")
	c := New(shortReaderAt{data}, int64(len(data)))
	b, err := c.PeekAtLeast(8)
	require.NoError(t, err)
	assert.Equal(t, string(data), string(b))
}

func TestRLinesSplitsAllEOLFlavors(t *testing.T) {
	data := "first\r\nsecond\rthird\nfourth"
	c := New(bytes.NewReader([]byte(data)), int64(len(data)))
	it := c.RLines(-1)

	var got []string
	for {
		line, _, err := it.Next()
		if err != nil {
			break
		}
		got = append(got, string(line))
	}
	assert.Equal(t, []string{"fourth", "third", "second", "first"}, got)
}

func TestRLinesCrossesBlockBoundary(t *testing.T) {
	// "start" is the first line of the stream, with no separator before
	// it, and sits before enough "line\n" repeats to force more than one
	// 512-byte grow(), so the final grow (the one that reaches the real
	// beginning of the stream) must still split it out as its own line.
	var buf bytes.Buffer
	buf.WriteString("start\n")
	for i := 0; i < 200; i++ {
		buf.WriteString("line\n")
	}
	data := buf.Bytes()
	require.Greater(t, len(data), 512)

	c := New(bytes.NewReader(data), int64(len(data)))
	it := c.RLines(-1)

	var got []string
	for {
		line, _, err := it.Next()
		if err != nil {
			break
		}
		got = append(got, string(line))
	}
	require.Len(t, got, 201)
	for _, line := range got[:200] {
		assert.Equal(t, "line", line)
	}
	assert.Equal(t, "start", got[200])
}

func TestRLinesFromOffset(t *testing.T) {
	data := "aaa\nbbb\nccc"
	c := New(bytes.NewReader([]byte(data)), int64(len(data)))
	it := c.RLines(7) // just past "aaa\nbbb"
	line, off, err := it.Next()
	require.NoError(t, err)
	assert.Equal(t, "bbb", string(line))
	assert.Equal(t, int64(4), off)
}
