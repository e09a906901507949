package cube

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"spectralcube/internal/observability"
	"spectralcube/pkg/grid"
)

func TestBeamEqual(t *testing.T) {
	b := Beam{Major: 2, Minor: 1, PA: 10}
	assert.True(t, b.Equal(Beam{Major: 2, Minor: 1, PA: 190}))
	assert.False(t, b.Equal(Beam{Major: 2, Minor: 1, PA: 20}))
	assert.False(t, b.Equal(Beam{Major: 2.1, Minor: 1, PA: 10}))

	round := Beam{Major: 1, Minor: 1, PA: 0}
	assert.True(t, round.Equal(Beam{Major: 1, Minor: 1, PA: 45}))
}

func TestBeamDeconvolve(t *testing.T) {
	got, err := Beam{Major: 2, Minor: 2}.Deconvolve(Beam{Major: 1, Minor: 1})
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt(3), got.Major, 1e-9)
	assert.InDelta(t, math.Sqrt(3), got.Minor, 1e-9)

	got, err = Beam{Major: 3, Minor: 2, PA: 30}.Deconvolve(Beam{Major: 1, Minor: 1})
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt(8), got.Major, 1e-9)
	assert.InDelta(t, math.Sqrt(3), got.Minor, 1e-9)
	assert.InDelta(t, 30, got.PA, 1e-6)

	got, err = Beam{Major: 1, Minor: 1}.Deconvolve(Beam{Major: 1, Minor: 1})
	require.NoError(t, err)
	assert.InDelta(t, 0, got.Major, 1e-6)

	_, err = Beam{Major: 1, Minor: 1}.Deconvolve(Beam{Major: 2, Minor: 1})
	require.ErrorIs(t, err, ErrDeconvolution)
}

func TestBeamDeconvolveInvertsConvolution(t *testing.T) {
	inner := Beam{Major: 3, Minor: 2, PA: 30}
	other := Beam{Major: 1.5, Minor: 1, PA: 100}
	var sum mat.SymDense
	sum.AddSym(inner.covariance(), other.covariance())
	outer, err := beamFromCovariance(&sum)
	require.NoError(t, err)

	got, err := outer.Deconvolve(other)
	require.NoError(t, err)
	assert.InDelta(t, inner.Major, got.Major, 1e-9)
	assert.InDelta(t, inner.Minor, got.Minor, 1e-9)
	assert.InDelta(t, inner.PA, got.PA, 1e-6)

	_, err = other.Deconvolve(outer)
	require.ErrorIs(t, err, ErrDeconvolution)
}

func TestBeamArea(t *testing.T) {
	assert.InDelta(t, math.Pi/(4*math.Ln2), Beam{Major: 1, Minor: 1}.Area(), 1e-12)
	assert.True(t, Beam{}.IsPoint())
	k := Beam{}.Kernel(1)
	assert.Equal(t, []float64{1}, k.W)
}

func pointSource(n int) *grid.Dense {
	d := grid.Zeros(grid.Shape{1, n, n})
	d.Set(0, n/2, n/2, 1)
	return d
}

func TestConvolveToConservesFlux(t *testing.T) {
	c := newTestCube(t, pointSource(21), linearWCS(0, 1), WithBeam(Beam{Major: 1, Minor: 1}))
	target := Beam{Major: 3, Minor: 3}
	out, err := c.ConvolveTo(target, false)
	require.NoError(t, err)
	b, ok := out.Beam()
	require.True(t, ok)
	assert.Equal(t, target, b)

	got := unmasked(t, out)
	assert.InDelta(t, 1, floats.Sum(got.Data()), 1e-9)
	assert.Less(t, got.At(0, 10, 10), 0.5)
	assert.InDelta(t, got.At(0, 10, 9), got.At(0, 9, 10), 1e-12)
}

func TestConvolveToSameBeam(t *testing.T) {
	buf := captureWarnings(t)
	c := newTestCube(t, pointSource(5), linearWCS(0, 1), WithBeam(Beam{Major: 1, Minor: 1}))
	out, err := c.ConvolveTo(Beam{Major: 1, Minor: 1, PA: 30}, false)
	require.NoError(t, err)
	assert.Same(t, c, out)
	assert.Contains(t, buf.String(), observability.WarnIdenticalBeam)

	_, err = c.ConvolveTo(Beam{Major: 0.5, Minor: 0.5}, false)
	require.ErrorIs(t, err, ErrDeconvolution)
}

func TestConvolveToPerPlaneBeams(t *testing.T) {
	d := grid.Zeros(grid.Shape{3, 21, 21})
	for z := 0; z < 3; z++ {
		d.Set(z, 10, 10, 1)
	}
	beams := []Beam{{Major: 3, Minor: 3}, {Major: 1, Minor: 1}, {Major: 4, Minor: 4}}
	c := newTestCube(t, d, linearWCS(0, 1), WithBeams(beams))

	_, err := c.ConvolveTo(Beam{Major: 3, Minor: 3}, false)
	require.ErrorIs(t, err, ErrDeconvolution)

	out, err := c.ConvolveTo(Beam{Major: 3, Minor: 3}, true)
	require.NoError(t, err)
	assert.False(t, out.VaryingResolution())
	got := unmasked(t, out)
	// Plane 0 is already at the target and plane 2 cannot be brought to it.
	assert.Equal(t, 1.0, got.At(0, 10, 10))
	assert.Equal(t, 1.0, got.At(2, 10, 10))
	assert.Less(t, got.At(1, 10, 10), 0.5)
	plane, err := got.Read(grid.Plane(grid.Spectral, 1))
	require.NoError(t, err)
	assert.InDelta(t, 1, floats.Sum(plane.Data()), 1e-9)
}

func TestConvolveToWithoutBeam(t *testing.T) {
	c := newTestCube(t, pointSource(5), linearWCS(0, 1))
	_, err := c.ConvolveTo(Beam{Major: 1, Minor: 1}, false)
	require.ErrorIs(t, err, ErrUnsupportedOperation)
}
