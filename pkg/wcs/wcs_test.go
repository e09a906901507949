package wcs

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"spectralcube/pkg/grid"
)

// tanCube returns a RA/DEC/VELO WCS with a TAN projection.
func tanCube() *WCS {
	w := New(3)
	w.CType = []string{"RA---TAN", "DEC--TAN", "VELO-LSR"}
	w.CUnit = []string{"deg", "deg", "km/s"}
	w.CRPix = []float64{5, 4, 1}
	w.CDelt = []float64{-0.01, 0.01, 0.5}
	w.CRVal = []float64{180, 30, -10}
	return w
}

func TestTypeOf(t *testing.T) {
	assert.Equal(t, Longitude, TypeOf("RA---TAN"))
	assert.Equal(t, Latitude, TypeOf("DEC--SIN"))
	assert.Equal(t, Longitude, TypeOf("GLON"))
	assert.Equal(t, Spectral, TypeOf("VELO-LSR"))
	assert.Equal(t, Spectral, TypeOf("FREQ"))
	assert.Equal(t, Stokes, TypeOf("STOKES"))
	assert.Equal(t, Linear, TypeOf("OFFSET"))
}

func TestPixelToWorldReference(t *testing.T) {
	w := tanCube()
	require.NoError(t, w.Validate())

	world, err := w.PixelToWorld([]float64{4, 3, 0})
	require.NoError(t, err)
	assert.InDelta(t, 180, world[0], 1e-12)
	assert.InDelta(t, 30, world[1], 1e-12)
	assert.InDelta(t, -10, world[2], 1e-12)

	world, err = w.PixelToWorld([]float64{4, 3, 4})
	require.NoError(t, err)
	assert.InDelta(t, -8, world[2], 1e-12)
}

func TestTANRoundTrip(t *testing.T) {
	w := tanCube()
	for _, pix := range [][]float64{{0, 0, 0}, {9, 7, 3}, {2.5, 6.25, 1}} {
		world, err := w.PixelToWorld(pix)
		require.NoError(t, err)
		back, err := w.WorldToPixel(world)
		require.NoError(t, err)
		for i := range pix {
			assert.InDelta(t, pix[i], back[i], 1e-9)
		}
	}
}

func TestTANPixelScale(t *testing.T) {
	w := tanCube()
	a, err := w.PixelToWorld([]float64{4, 3, 0})
	require.NoError(t, err)
	b, err := w.PixelToWorld([]float64{5, 3, 0})
	require.NoError(t, err)
	sep := AngularSeparation(a[0], a[1], b[0], b[1])
	assert.InDelta(t, 0.01, sep, 1e-8)
	// RA decreases with increasing pixel for a negative CDELT.
	assert.Less(t, b[0], a[0])
}

func TestRotatedRoundTrip(t *testing.T) {
	w := tanCube()
	c, s := math.Cos(0.3), math.Sin(0.3)
	w.PC = mat.NewDense(3, 3, []float64{c, -s, 0, s, c, 0, 0, 0, 1})
	require.NoError(t, w.Validate())

	world, err := w.PixelToWorld([]float64{1, 2, 3})
	require.NoError(t, err)
	back, err := w.WorldToPixel(world)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1, 2, 3}, back, 1e-9)
}

func TestValidate(t *testing.T) {
	w := tanCube()
	w.CDelt[2] = 0
	require.ErrorIs(t, w.Validate(), ErrAxes)

	w = tanCube()
	w.PC = mat.NewDense(3, 3, []float64{1, 1, 0, 1, 1, 0, 0, 0, 1})
	require.ErrorIs(t, w.Validate(), ErrSingular)

	w = tanCube()
	w.CType[1] = "OFFSET"
	require.ErrorIs(t, w.Validate(), ErrAxes)
}

func TestDropAndSwap(t *testing.T) {
	w := New(3)
	w.PC = mat.NewDense(3, 3, []float64{1, 0, 0, 0, 2, 0, 0, 0, 3})
	w.CType = []string{"A", "B", "C"}

	for drop, want := range [][]float64{{2, 3}, {1, 3}, {1, 2}} {
		d, err := DropAxis(w, drop)
		require.NoError(t, err)
		require.Equal(t, 2, d.NAxis())
		assert.Equal(t, want, []float64{d.PCAt(0, 0), d.PCAt(1, 1)})
	}

	s, err := SwapAxes(w, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "B", "A"}, s.CType)
	assert.Equal(t, 3.0, s.PCAt(0, 0))
	assert.Equal(t, 1.0, s.PCAt(2, 2))

	_, err = DropAxis(w, 5)
	require.ErrorIs(t, err, ErrAxes)
}

func TestSliceAxis(t *testing.T) {
	w := tanCube()
	s := SliceAxis(w, 2, 2, 3)
	orig, err := w.PixelToWorld([]float64{4, 3, 2 + 3*2})
	require.NoError(t, err)
	got, err := s.PixelToWorld([]float64{4, 3, 2})
	require.NoError(t, err)
	assert.InDeltaSlice(t, orig, got, 1e-12)

	shifted := ShiftReference(w, 2, 4)
	got, err = shifted.PixelToWorld([]float64{4, 3, 0})
	require.NoError(t, err)
	orig, err = w.PixelToWorld([]float64{4, 3, 4})
	require.NoError(t, err)
	assert.InDeltaSlice(t, orig, got, 1e-12)
}

func TestBinAxis(t *testing.T) {
	w := tanCube()
	b := BinAxis(w, 2, 3)
	// New pixel 1 covers old pixels 3, 4 and 5.
	got, err := b.PixelToWorld([]float64{4, 3, 1})
	require.NoError(t, err)
	orig, err := w.PixelToWorld([]float64{4, 3, 4})
	require.NoError(t, err)
	assert.InDeltaSlice(t, orig, got, 1e-12)
	assert.InDelta(t, 3*w.CDelt[2], b.CDelt[2], 1e-15)
}

func TestCheckCompatible(t *testing.T) {
	a := tanCube()
	b := a.Copy()
	b.CRVal[0] += 1e-9
	require.NoError(t, CheckCompatible(a, b, 1e-6))

	b.CRVal[0] += 1
	require.ErrorIs(t, CheckCompatible(a, b, 1e-6), ErrCoordinateMismatch)
	require.NoError(t, CheckCompatible(a, nil, 1e-6))
}

func TestOrient(t *testing.T) {
	w := New(3)
	w.CType = []string{"VELO", "RA---TAN", "DEC--TAN"}
	o, err := Orient(w)
	require.NoError(t, err)
	assert.Equal(t, [3]int{2, 0, 1}, o.Perm)
	assert.Equal(t, []int{1, 2, 0}, o.Axes)

	w.CType = []string{"RA---TAN", "DEC--TAN", "FREQ"}
	o, err = Orient(w)
	require.NoError(t, err)
	assert.Equal(t, [3]int{0, 1, 2}, o.Perm)

	w.CType = []string{"RA---TAN", "DEC--TAN", "OFFSET"}
	_, err = Orient(w)
	require.ErrorIs(t, err, ErrAxes)
}

func TestAngularSeparation(t *testing.T) {
	assert.InDelta(t, 90, AngularSeparation(0, 0, 90, 0), 1e-12)
	assert.InDelta(t, 180, AngularSeparation(0, 0, 180, 0), 1e-12)
	assert.InDelta(t, 1, AngularSeparation(10, 89.5, 190, 89.5), 1e-9)
}

func TestApplyView(t *testing.T) {
	w := tanCube()
	v, err := grid.View{grid.Span(2, 6), grid.All(), grid.Strided(1, 9, 2)}.Normalize(grid.Shape{8, 7, 9})
	require.NoError(t, err)
	s := ApplyView(w, v)

	// Array index (z, y, x) of the selection is (2+z, y, 1+2x) of the cube.
	got, err := s.PixelToWorld([]float64{1, 3, 1})
	require.NoError(t, err)
	want, err := w.PixelToWorld([]float64{3, 3, 3})
	require.NoError(t, err)
	assert.InDeltaSlice(t, want, got, 1e-12)
	assert.NotSame(t, w, ApplyView(w, grid.FullView()))
}
