package convolve

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// FFTThreshold is the kernel length above which Convolve1D uses FFT1D.
const FFTThreshold = 32

// Convolve1D convolves data with k, switching to the FFT for long kernels.
func Convolve1D(data []float64, k Kernel1D) []float64 {
	if len(k) > FFTThreshold {
		return FFT1D(data, k)
	}
	return Direct1D(data, k)
}

// Direct1D convolves data with k by direct summation.
func Direct1D(data []float64, k Kernel1D) []float64 {
	k = k.Normalized()
	n, c := len(data), len(k)/2
	out := make([]float64, n)
	for i := range out {
		var num, den float64
		for j, w := range k {
			p := i + c - j
			if p < 0 || p >= n {
				den += w
				continue
			}
			if v := data[p]; !math.IsNaN(v) {
				num += w * v
				den += w
			}
		}
		out[i] = ratio(num, den)
	}
	return out
}

// FFT1D convolves data with k through real FFTs of the zero-padded
// sequences. NaN samples are replaced by zero and the result is divided
// by the kernel weight that fell on finite samples.
func FFT1D(data []float64, k Kernel1D) []float64 {
	k = k.Normalized()
	n, m := len(data), len(k)
	size := n + m - 1
	fft := fourier.NewFFT(size)

	vals := make([]float64, size)
	nans := make([]float64, size)
	for i, v := range data {
		if math.IsNaN(v) {
			nans[i] = 1
			continue
		}
		vals[i] = v
	}
	kern := make([]float64, size)
	copy(kern, k)

	kc := fft.Coefficients(nil, kern)
	num := convolveCoefficients(fft, vals, kc, size)
	lost := convolveCoefficients(fft, nans, kc, size)

	out := make([]float64, n)
	c := m / 2
	for i := range out {
		den := 1 - lost[i+c]
		if math.Abs(den) < 1e-12 {
			den = 0
		}
		out[i] = ratio(num[i+c], den)
	}
	return out
}

func convolveCoefficients(fft *fourier.FFT, seq []float64, kc []complex128, size int) []float64 {
	sc := fft.Coefficients(nil, seq)
	for i := range sc {
		sc[i] *= kc[i]
	}
	out := fft.Sequence(nil, sc)
	for i := range out {
		// Sequence does not normalize.
		out[i] /= float64(size)
	}
	return out
}

// Direct2D convolves an ny x nx row-major image with k.
func Direct2D(img []float64, ny, nx int, k Kernel2D) []float64 {
	k = k.Normalized()
	cy, cx := k.NY/2, k.NX/2
	out := make([]float64, ny*nx)
	for y := 0; y < ny; y++ {
		for x := 0; x < nx; x++ {
			var num, den float64
			for i := 0; i < k.NY; i++ {
				py := y + cy - i
				for j := 0; j < k.NX; j++ {
					w := k.W[i*k.NX+j]
					px := x + cx - j
					if py < 0 || py >= ny || px < 0 || px >= nx {
						den += w
						continue
					}
					if v := img[py*nx+px]; !math.IsNaN(v) {
						num += w * v
						den += w
					}
				}
			}
			out[y*nx+x] = ratio(num, den)
		}
	}
	return out
}

func ratio(num, den float64) float64 {
	if den == 0 {
		return math.NaN()
	}
	return num / den
}
