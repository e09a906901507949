package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rampCube returns an array whose value encodes its own index.
func rampCube(shape Shape) *Dense {
	return FromFunc(shape, func(z, y, x int) float64 {
		return float64(z*100 + y*10 + x)
	})
}

func TestViewNormalize(t *testing.T) {
	shape := Shape{4, 3, 2}

	v, err := FullView().Normalize(shape)
	require.NoError(t, err)
	assert.Equal(t, shape, v.Shape())
	assert.True(t, v.IsFull(shape))

	v, err = View{Span(-2, End), Strided(0, 3, 2), Index(1)}.Normalize(shape)
	require.NoError(t, err)
	assert.Equal(t, Shape{2, 2, 1}, v.Shape())
	assert.Equal(t, 2, v[0].Start)
	assert.Equal(t, 2, v[1].At(1))

	_, err = View{Strided(0, 3, -1), All(), All()}.Normalize(shape)
	require.ErrorIs(t, err, ErrShape)
}

func TestViewCompose(t *testing.T) {
	shape := Shape{10, 10, 10}
	outer, err := View{Strided(2, 10, 2), Span(1, 9), All()}.Normalize(shape)
	require.NoError(t, err)

	composed, err := outer.Compose(View{Span(1, 3), Strided(0, End, 4), Index(5)})
	require.NoError(t, err)

	assert.Equal(t, Shape{2, 2, 1}, composed.Shape())
	assert.Equal(t, 4, composed[0].At(0))
	assert.Equal(t, 6, composed[0].At(1))
	assert.Equal(t, 1, composed[1].At(0))
	assert.Equal(t, 5, composed[1].At(1))
	assert.Equal(t, 5, composed[2].At(0))
}

func TestDenseReadAndTranspose(t *testing.T) {
	d := rampCube(Shape{4, 3, 2})

	block, err := d.Read(View{Span(1, 3), Index(2), All()})
	require.NoError(t, err)
	assert.Equal(t, Shape{2, 1, 2}, block.Shape())
	assert.Equal(t, []float64{120, 121, 220, 221}, block.Data())

	tr, err := d.Transpose([3]int{2, 0, 1})
	require.NoError(t, err)
	assert.Equal(t, Shape{2, 4, 3}, tr.Shape())
	assert.Equal(t, d.At(3, 2, 1), tr.At(1, 3, 2))

	_, err = d.Transpose([3]int{0, 0, 1})
	require.ErrorIs(t, err, ErrShape)

	_, err = NewDense(Shape{2, 2, 2}, make([]float64, 7))
	require.ErrorIs(t, err, ErrShape)
}

func TestDenseLines(t *testing.T) {
	d := rampCube(Shape{4, 3, 2})
	assert.Equal(t, []float64{11, 111, 211, 311}, d.Line(Spectral, 1, 1))
	assert.Equal(t, []float64{201, 211, 221}, d.Line(Lat, 2, 1))

	d.SetLine(Lon, 0, 0, []float64{-1, -2})
	assert.Equal(t, -2.0, d.At(0, 0, 1))
}

func TestBoolBroadcast(t *testing.T) {
	plane, err := NewBool(Shape{1, 2, 2}, []bool{true, false, false, true})
	require.NoError(t, err)

	full, err := plane.ReadBroadcast(Shape{3, 2, 2}, FullView())
	require.NoError(t, err)
	assert.Equal(t, Shape{3, 2, 2}, full.Shape())
	assert.Equal(t, 6, full.Count())
	assert.True(t, full.At(2, 1, 1))
	assert.False(t, full.At(2, 0, 1))

	_, err = plane.ReadBroadcast(Shape{3, 4, 2}, FullView())
	require.ErrorIs(t, err, ErrShape)

	s, err := BroadcastShape(Shape{1, 2, 1}, Shape{5, 1, 3})
	require.NoError(t, err)
	assert.Equal(t, Shape{5, 2, 3}, s)
	assert.False(t, Broadcastable(Shape{2, 2, 2}, Shape{3, 2, 2}))
}

func TestChunkedReadMatchesDense(t *testing.T) {
	d := rampCube(Shape{5, 4, 3})
	c, err := NewChunkedFromDense(d, Shape{2, 3, 2})
	require.NoError(t, err)
	assert.Equal(t, [3]int{3, 2, 2}, c.NumChunks())

	views := []View{
		FullView(),
		{Span(1, 4), Strided(0, End, 3), Span(1, 3)},
		Plane(Spectral, 4),
		Ray(Lat, 2, 1),
	}
	for _, v := range views {
		want, err := d.Read(v)
		require.NoError(t, err)
		got, err := c.Read(v)
		require.NoError(t, err)
		assert.Equal(t, want.Shape(), got.Shape())
		assert.Equal(t, want.Data(), got.Data())
	}
}

func TestSubArrayComposes(t *testing.T) {
	d := rampCube(Shape{6, 5, 4})
	s, err := Sub(d, View{Span(1, 5), Strided(0, End, 2), All()})
	require.NoError(t, err)
	assert.Equal(t, Shape{4, 3, 4}, s.Shape())

	nested, err := Sub(s, View{Index(2), All(), Span(1, 3)})
	require.NoError(t, err)
	got, err := nested.Read(FullView())
	require.NoError(t, err)
	assert.Equal(t, Shape{1, 3, 2}, got.Shape())
	assert.Equal(t, []float64{301, 302, 321, 322, 341, 342}, got.Data())
}

func TestPermuteMatchesTranspose(t *testing.T) {
	d := rampCube(Shape{2, 3, 4})
	c, err := NewChunkedFromDense(d, Shape{1, 2, 3})
	require.NoError(t, err)
	perm := [3]int{2, 0, 1}

	lazy, err := Permute(c, perm)
	require.NoError(t, err)
	assert.Equal(t, Shape{4, 2, 3}, lazy.Shape())

	want, err := d.Transpose(perm)
	require.NoError(t, err)
	v := View{Span(1, 3), All(), Index(2)}
	w, err := want.Read(v)
	require.NoError(t, err)
	g, err := lazy.Read(v)
	require.NoError(t, err)
	assert.Equal(t, w.Data(), g.Data())

	same, err := Permute(c, [3]int{0, 1, 2})
	require.NoError(t, err)
	assert.Same(t, c, same)

	_, err = Permute(c, [3]int{0, 0, 1})
	require.ErrorIs(t, err, ErrShape)
}

func TestParseAxis(t *testing.T) {
	for in, want := range map[string]Axis{"spectral": Spectral, " LAT ": Lat, "2": Lon} {
		got, err := ParseAxis(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseAxis("velocity")
	require.ErrorIs(t, err, ErrOutOfRange)
}
