package convolve

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sum(v []float64) float64 {
	s := 0.0
	for _, x := range v {
		s += x
	}
	return s
}

func TestKernelsAreNormalized(t *testing.T) {
	g := Gaussian1D(2)
	assert.Len(t, g, 17)
	assert.InDelta(t, 1, sum(g), 1e-12)
	assert.Equal(t, g[0], g[16])

	b := Box1D(3)
	assert.Equal(t, Kernel1D{1.0 / 3, 1.0 / 3, 1.0 / 3}, b)
	assert.Len(t, Box1D(4), 5)

	k := Gaussian2D(3, 1, 0.4)
	assert.InDelta(t, 1, sum(k.W), 1e-12)
	assert.Equal(t, k.NY, k.NX)
	// Point symmetry about the centre.
	assert.InDelta(t, k.At(0, 1), k.At(k.NY-1, k.NX-2), 1e-15)
}

func TestGaussian2DOrientation(t *testing.T) {
	// pa = 0 puts the major axis along y.
	k := Gaussian2D(3, 1, 0)
	c := k.NY / 2
	assert.Greater(t, k.At(c+2, c), k.At(c, c+2))

	k = Gaussian2D(3, 1, math.Pi/2)
	assert.Greater(t, k.At(c, c+2), k.At(c+2, c))
}

func TestDirect1DConstantIsPreserved(t *testing.T) {
	data := []float64{2, 2, 2, 2, 2, 2}
	data[2] = math.NaN()
	got := Direct1D(data, Box1D(3))
	// Edges see one padded zero.
	assert.InDelta(t, 2.0, got[2], 1e-12)
	assert.InDelta(t, 4.0/3, got[0], 1e-12)
	assert.InDelta(t, 2.0, got[3], 1e-12)
}

func TestDirect1DAllNaN(t *testing.T) {
	got := Direct1D([]float64{math.NaN(), math.NaN(), math.NaN()}, Kernel1D{1})
	for _, v := range got {
		assert.True(t, math.IsNaN(v))
	}
}

func TestFFT1DMatchesDirect(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	data := make([]float64, 50)
	for i := range data {
		data[i] = rng.NormFloat64()
	}
	data[10], data[11] = math.NaN(), math.NaN()
	// An asymmetric kernel catches flipped indexing.
	for _, k := range []Kernel1D{Gaussian1D(1.5), Custom1D([]float64{1, 2, 3, 0, 0})} {
		want := Direct1D(data, k)
		got := FFT1D(data, k)
		require.Len(t, got, len(want))
		for i := range want {
			assert.InDelta(t, want[i], got[i], 1e-9, "index %d", i)
		}
	}
}

func TestDirect2DMatchesSeparable(t *testing.T) {
	ny, nx := 5, 6
	img := make([]float64, ny*nx)
	for i := range img {
		img[i] = float64(i % 7)
	}
	b := Box1D(3)
	got := Direct2D(img, ny, nx, Box2D(3))

	rows := make([]float64, ny*nx)
	for y := 0; y < ny; y++ {
		copy(rows[y*nx:], Direct1D(img[y*nx:(y+1)*nx], b))
	}
	for x := 0; x < nx; x++ {
		col := make([]float64, ny)
		for y := range col {
			col[y] = rows[y*nx+x]
		}
		col = Direct1D(col, b)
		for y := range col {
			assert.InDelta(t, col[y], got[y*nx+x], 1e-12)
		}
	}
}

func TestMedianFilters(t *testing.T) {
	got := Median1D([]float64{1, 9, 2, math.NaN(), 3}, 3)
	assert.Equal(t, []float64{1, 2, 5.5, 2.5, 3}, got)

	img := []float64{
		1, 1, 1,
		1, 50, 1,
		1, 1, 1,
	}
	out := Median2D(img, 3, 3, 3)
	assert.Equal(t, 1.0, out[4])

	assert.True(t, math.IsNaN(Median(nil)))
	assert.Equal(t, 2.5, Median([]float64{4, 1, 3, 2}))
}
