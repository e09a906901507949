package mask

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spectralcube/pkg/grid"
	"spectralcube/pkg/wcs"
)

// spyArray records the extents of every read.
type spyArray struct {
	*grid.Dense
	reads []grid.Shape
}

func (s *spyArray) Read(v grid.View) (*grid.Dense, error) {
	d, err := s.Dense.Read(v)
	if err == nil {
		s.reads = append(s.reads, d.Shape())
	}
	return d, err
}

// createTestCube returns a 4x3x2 array holding v[z,y,x] = z*6 + y*2 + x.
func createTestCube() *grid.Dense {
	return grid.FromFunc(grid.Shape{4, 3, 2}, func(z, y, x int) float64 {
		return float64(z*6 + y*2 + x)
	})
}

func testWCS() *wcs.WCS {
	w := wcs.New(3)
	w.CType = []string{"GLON", "GLAT", "VELO"}
	return w
}

func TestBooleanArrayPartition(t *testing.T) {
	d := createTestCube()
	arr, err := grid.NewBool(d.Shape(), nil)
	require.NoError(t, err)
	arr.Data()[5] = true
	arr.Data()[17] = true
	m := FromBool(arr)
	tg := Target{Data: d}

	inc, err := m.Include(tg, grid.FullView())
	require.NoError(t, err)
	exc, err := Exclude(m, tg, grid.FullView())
	require.NoError(t, err)
	for i := range inc.Data() {
		assert.NotEqual(t, inc.Data()[i], exc.Data()[i], "voxel %d", i)
	}
	assert.Equal(t, 2, inc.Count())

	neg := NewBooleanArray(arr, nil, false)
	n, err := Count(neg, tg, grid.FullView())
	require.NoError(t, err)
	assert.Equal(t, d.Shape().Size()-2, n)
}

func TestBooleanArrayBroadcasts(t *testing.T) {
	d := createTestCube()
	arr := grid.TrueBool(grid.Shape{1, 3, 2})
	arr.Data()[3] = false // (y=1, x=1)
	m := FromBool(arr)

	inc, err := m.Include(Target{Data: d}, grid.View{grid.All(), grid.Index(1), grid.All()})
	require.NoError(t, err)
	assert.Equal(t, grid.Shape{4, 1, 2}, inc.Shape())
	for z := 0; z < 4; z++ {
		assert.True(t, inc.At(z, 0, 0))
		assert.False(t, inc.At(z, 0, 1))
	}

	_, err = m.Include(Target{Data: grid.Zeros(grid.Shape{4, 2, 2})}, grid.FullView())
	require.ErrorIs(t, err, grid.ErrShape)
}

func TestBooleanArrayCoordinateCheck(t *testing.T) {
	d := createTestCube()
	m := NewBooleanArray(grid.TrueBool(d.Shape()), testWCS(), true)

	_, err := m.Include(Target{Data: d, WCS: testWCS(), Tolerance: 1e-6}, grid.FullView())
	require.NoError(t, err)

	other := testWCS()
	other.CRVal[2] = 0.5
	_, err = m.Include(Target{Data: d, WCS: other, Tolerance: 1e-6}, grid.FullView())
	require.ErrorIs(t, err, wcs.ErrCoordinateMismatch)

	other.CRVal[2] = 1e-9
	_, err = m.Include(Target{Data: d, WCS: other, Tolerance: 1e-6}, grid.FullView())
	require.NoError(t, err)
}

func TestLazyReadsOnlyView(t *testing.T) {
	spy := &spyArray{Dense: createTestCube()}
	m := GreaterThan(10)
	v := grid.View{grid.Index(2), grid.Span(0, 2), grid.All()}

	inc, err := m.Include(Target{Data: spy}, v)
	require.NoError(t, err)
	require.Len(t, spy.reads, 1)
	assert.Equal(t, grid.Shape{1, 2, 2}, spy.reads[0])
	// z=2 holds 12..15, all above 10.
	assert.Equal(t, 4, inc.Count())

	inc, err = LessEqual(3).Include(Target{Data: spy}, grid.FullView())
	require.NoError(t, err)
	assert.Equal(t, 4, inc.Count())
}

func TestLazyBound(t *testing.T) {
	d := createTestCube()
	other := grid.Filled(d.Shape(), 1)
	other.Set(0, 0, 0, -1)
	m := GreaterThan(0).Bind(other)

	inc, err := m.Include(Target{Data: d}, grid.FullView())
	require.NoError(t, err)
	assert.Equal(t, d.Shape().Size()-1, inc.Count())
	assert.False(t, inc.At(0, 0, 0))

	v, err := grid.View{grid.Span(0, 2), grid.All(), grid.All()}.Normalize(d.Shape())
	require.NoError(t, err)
	s, err := m.Slice(v)
	require.NoError(t, err)
	sub, err := grid.Sub(d, v)
	require.NoError(t, err)
	inc, err = s.Include(Target{Data: sub}, grid.FullView())
	require.NoError(t, err)
	assert.Equal(t, grid.Shape{2, 3, 2}, inc.Shape())
	assert.False(t, inc.At(0, 0, 0))
}

func TestAndIsIdempotentAndCommutative(t *testing.T) {
	d := createTestCube()
	tg := Target{Data: d}
	a := GreaterThan(5)
	arr := grid.TrueBool(d.Shape())
	arr.Data()[20] = false
	b := FromBool(arr)

	ia, err := a.Include(tg, grid.FullView())
	require.NoError(t, err)
	aa, err := And(a, a)
	require.NoError(t, err)
	iaa, err := aa.Include(tg, grid.FullView())
	require.NoError(t, err)
	assert.Equal(t, ia.Data(), iaa.Data())

	ab, err := And(a, b)
	require.NoError(t, err)
	ba, err := And(b, a)
	require.NoError(t, err)
	iab, err := ab.Include(tg, grid.FullView())
	require.NoError(t, err)
	iba, err := ba.Include(tg, grid.FullView())
	require.NoError(t, err)
	assert.Equal(t, iab.Data(), iba.Data())
	assert.Equal(t, ia.Count()-1, iab.Count())

	s, ok := ab.Shape()
	assert.True(t, ok)
	assert.Equal(t, d.Shape(), s)
}

func TestAndShapeMismatch(t *testing.T) {
	a := FromBool(grid.TrueBool(grid.Shape{4, 3, 2}))
	b := FromBool(grid.TrueBool(grid.Shape{4, 2, 2}))
	_, err := And(a, b)
	require.ErrorIs(t, err, grid.ErrShape)

	c := FromBool(grid.TrueBool(grid.Shape{1, 3, 1}))
	_, err = And(a, c)
	require.NoError(t, err)
}

func TestNotAndAll(t *testing.T) {
	d := createTestCube()
	tg := Target{Data: d}
	n, err := Count(Not(GreaterThan(5)), tg, grid.FullView())
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	n, err = Count(All{}, tg, grid.View{grid.Index(0), grid.All(), grid.All()})
	require.NoError(t, err)
	assert.Equal(t, 6, n)
}

func TestFilledAndFlattened(t *testing.T) {
	d := createTestCube()
	tg := Target{Data: d}
	m := GreaterEqual(20)

	f, err := Filled(m, tg, -1, grid.View{grid.Index(3), grid.All(), grid.All()})
	require.NoError(t, err)
	assert.Equal(t, []float64{-1, -1, 20, 21, 22, 23}, f.Data())

	flat, err := Flattened(m, tg, grid.FullView())
	require.NoError(t, err)
	assert.Equal(t, []float64{20, 21, 22, 23}, flat)

	// The source array is untouched.
	assert.Equal(t, 18.0, d.At(3, 0, 0))
}

func TestBooleanArraySliceMatchesView(t *testing.T) {
	d := createTestCube()
	arr := grid.TrueBool(d.Shape())
	arr.Data()[d.Shape().Index(2, 1, 0)] = false
	m := NewBooleanArray(arr, testWCS(), true)

	v, err := grid.View{grid.Span(1, 4), grid.Span(1, 3), grid.All()}.Normalize(d.Shape())
	require.NoError(t, err)
	s, err := m.Slice(v)
	require.NoError(t, err)
	sub, err := grid.Sub(d, v)
	require.NoError(t, err)

	want, err := m.Include(Target{Data: d, WCS: testWCS()}, v)
	require.NoError(t, err)
	got, err := s.Include(Target{Data: sub, WCS: wcs.ApplyView(testWCS(), v)}, grid.FullView())
	require.NoError(t, err)
	assert.Equal(t, want.Data(), got.Data())
	assert.False(t, got.At(1, 0, 0))
}
