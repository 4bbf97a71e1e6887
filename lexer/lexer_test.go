package lexer

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benoitkugler/pdfreader/cursor"
)

func newLexer(s string) *Lexer {
	c := cursor.New(bytes.NewReader([]byte(s)), int64(len(s)))
	return New(c)
}

func TestReadUntilStopsAtLongestMatch(t *testing.T) {
	l := newLexer("abc>>def")
	out, m, err := l.ReadUntil([][]byte{{'>'}, {'>', '>'}}, 0)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(out))
	assert.True(t, m.Matched)
	assert.Equal(t, ">>", string(m.Pattern))
}

func TestReadUntilReachesEOF(t *testing.T) {
	l := newLexer("abcdef")
	out, m, err := l.ReadUntil([][]byte{{'>'}}, 0)
	require.NoError(t, err)
	assert.Equal(t, "abcdef", string(out))
	assert.False(t, m.Matched)
}

func TestSeekUntilSkipsComments(t *testing.T) {
	l := newLexer("%a comment\ntrue")
	m, err := l.SeekUntil([][]byte{{'t'}}, true)
	require.NoError(t, err)
	assert.True(t, m.Matched)
	assert.Equal(t, int64(11), l.C.Tell())
}

func TestSkipWhitespaceAndComments(t *testing.T) {
	l := newLexer("   %hi\r\n  /Name")
	require.NoError(t, l.SkipWhitespaceAndComments())
	b, ok := l.PeekByte()
	require.True(t, ok)
	assert.Equal(t, byte('/'), b)
}

func TestReadRegularRunStopsAtDelimiter(t *testing.T) {
	l := newLexer("Name1/Name2")
	out, err := l.ReadRegularRun()
	require.NoError(t, err)
	assert.Equal(t, "Name1", string(out))
}

func TestCharacterClasses(t *testing.T) {
	assert.True(t, IsWhitespace(' '))
	assert.True(t, IsWhitespace('\x00'))
	assert.False(t, IsWhitespace('a'))
	assert.True(t, IsDelimiter('/'))
	assert.True(t, IsDelimiter('%'))
	assert.False(t, IsDelimiter('a'))
}
