// Package convolve provides the smoothing kernels and NaN-aware filters
// used by the cube smoothing operations.
//
// Convolutions normalize the kernel and interpolate over NaN values: each
// output is the kernel-weighted mean of the finite samples it covers.
// Samples beyond the edges count as zeros.
package convolve

import (
	"math"
)

// Kernel1D is an odd-length kernel centred on its middle element.
type Kernel1D []float64

// Gaussian1D returns a Gaussian kernel with the given standard deviation in
// pixels, sampled over eight standard deviations.
func Gaussian1D(stddev float64) Kernel1D {
	n := oddSize(8 * stddev)
	k := make(Kernel1D, n)
	c := n / 2
	for i := range k {
		x := float64(i - c)
		k[i] = math.Exp(-0.5 * x * x / (stddev * stddev))
	}
	return k.Normalized()
}

// Box1D returns a flat kernel of the given width in pixels.
func Box1D(width int) Kernel1D {
	n := width
	if n%2 == 0 {
		n++
	}
	k := make(Kernel1D, n)
	for i := range k {
		k[i] = 1
	}
	if n != width {
		// Even widths spread half a sample onto each end.
		k[0], k[n-1] = 0.5, 0.5
	}
	return k.Normalized()
}

// Custom1D wraps w, padding it to odd length.
func Custom1D(w []float64) Kernel1D {
	k := append(Kernel1D(nil), w...)
	if len(k)%2 == 0 {
		k = append(k, 0)
	}
	return k
}

// Normalized returns a copy scaled to unit sum. A zero-sum kernel is
// returned unchanged.
func (k Kernel1D) Normalized() Kernel1D {
	s := 0.0
	for _, v := range k {
		s += v
	}
	out := append(Kernel1D(nil), k...)
	if s == 0 {
		return out
	}
	for i := range out {
		out[i] /= s
	}
	return out
}

// Kernel2D is an NY x NX kernel centred on its middle element, stored
// row-major.
type Kernel2D struct {
	NY, NX int
	W      []float64
}

// At returns the weight at row i, column j.
func (k Kernel2D) At(i, j int) float64 { return k.W[i*k.NX+j] }

// Gaussian2D returns an elliptical Gaussian kernel with sigma major and
// minor in pixels and the major axis at angle pa (radians) from the +y
// axis towards +x.
func Gaussian2D(major, minor, pa float64) Kernel2D {
	s, c := math.Sincos(pa)
	// Covariance with the major axis along (sin pa, cos pa) in (x, y).
	cxx := major*major*s*s + minor*minor*c*c
	cyy := major*major*c*c + minor*minor*s*s
	cxy := (major*major - minor*minor) * s * c
	return GaussianCovariance(cxx, cyy, cxy)
}

// GaussianCovariance returns a Gaussian kernel with the given pixel
// covariance terms.
func GaussianCovariance(cxx, cyy, cxy float64) Kernel2D {
	det := cxx*cyy - cxy*cxy
	ix, iy, ixy := cyy/det, cxx/det, -cxy/det
	ext := 8 * math.Sqrt(math.Max(cxx, cyy))
	k := Kernel2D{NY: oddSize(ext), NX: oddSize(ext)}
	k.W = make([]float64, k.NY*k.NX)
	cy, cx := k.NY/2, k.NX/2
	for i := 0; i < k.NY; i++ {
		y := float64(i - cy)
		for j := 0; j < k.NX; j++ {
			x := float64(j - cx)
			k.W[i*k.NX+j] = math.Exp(-0.5 * (ix*x*x + iy*y*y + 2*ixy*x*y))
		}
	}
	return k.Normalized()
}

// Box2D returns a flat square kernel of the given width.
func Box2D(width int) Kernel2D {
	b := Box1D(width)
	k := Kernel2D{NY: len(b), NX: len(b), W: make([]float64, len(b)*len(b))}
	for i := range b {
		for j := range b {
			k.W[i*k.NX+j] = b[i] * b[j]
		}
	}
	return k.Normalized()
}

// Normalized returns a copy of k scaled to unit sum.
func (k Kernel2D) Normalized() Kernel2D {
	out := Kernel2D{NY: k.NY, NX: k.NX, W: Kernel1D(k.W).Normalized()}
	return out
}

func oddSize(ext float64) int {
	n := int(math.Round(ext))
	if n < 1 {
		n = 1
	}
	if n%2 == 0 {
		n++
	}
	return n
}
