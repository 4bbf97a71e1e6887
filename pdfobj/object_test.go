package pdfobj

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNullNeverEqual(t *testing.T) {
	assert.False(t, Null{}.Equal(Null{}))
	assert.True(t, IsNull(Null{}))
	assert.False(t, IsNull(Boolean(true)))
}

func TestNameExpansionEquality(t *testing.T) {
	a := NewName([]byte("A#20B"))
	b := NewName([]byte("A B"))
	assert.True(t, a.Equal(b))
	assert.Equal(t, "A B", a.Expanded())
	assert.Equal(t, []byte("A#20B"), a.Raw)
}

func TestNumericIntVsFloatEquality(t *testing.T) {
	assert.True(t, IntNumeric(42).Equal(IntNumeric(42)))
	assert.False(t, IntNumeric(42).Equal(FloatNumeric(42.5)))
	assert.True(t, FloatNumeric(1.5).Equal(FloatNumeric(1.5)))
}

func TestDictNullIsAbsent(t *testing.T) {
	d := NewDict()
	d.Set(NewName([]byte("A")), Null{})
	d.Set(NewName([]byte("B")), Boolean(true))

	_, ok := d.Get("A")
	assert.False(t, ok)
	_, ok = d.GetRaw("A")
	assert.True(t, ok, "GetRaw must still see the explicit null")

	v, ok := d.Get("B")
	require.True(t, ok)
	assert.Equal(t, Boolean(true), v)
}

func TestDictRawNamePreservesEscape(t *testing.T) {
	d := NewDict()
	d.Set(NewName([]byte("A#20B")), Boolean(true))

	name, ok := d.RawName("A B")
	require.True(t, ok)
	assert.Equal(t, "A#20B", string(name.Raw))
}

func TestArrayEqual(t *testing.T) {
	a := Array{Boolean(true), IntNumeric(1)}
	b := Array{Boolean(true), IntNumeric(1)}
	c := Array{Boolean(true), IntNumeric(2)}
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestResolveFollowsReferenceChain(t *testing.T) {
	doc := fakeResolver{1: Boolean(true)}
	ref := Reference{Resolver: doc, ObjNo: 1, GenNo: 0}
	resolved, err := Resolve(ref)
	require.NoError(t, err)
	assert.Equal(t, Boolean(true), resolved)
}

func TestResolvePassesThroughNonReference(t *testing.T) {
	resolved, err := Resolve(IntNumeric(7))
	require.NoError(t, err)
	assert.Equal(t, IntNumeric(7), resolved)
}

type fakeResolver map[int]Object

func (f fakeResolver) GetObject(objNo, genNo int) (Object, error) {
	v, ok := f[objNo]
	if !ok {
		return nil, ErrObjectNotFound{ObjNo: objNo, GenNo: genNo}
	}
	return v, nil
}
