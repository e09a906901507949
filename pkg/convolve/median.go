package convolve

import (
	"math"
	"sort"
)

// Median1D applies a median filter of the given odd size, ignoring NaN
// samples and reflecting at the edges.
func Median1D(data []float64, size int) []float64 {
	n, h := len(data), size/2
	out := make([]float64, n)
	win := make([]float64, 0, size)
	for i := range out {
		win = win[:0]
		for j := -h; j <= h; j++ {
			if v := data[reflect(i+j, n)]; !math.IsNaN(v) {
				win = append(win, v)
			}
		}
		out[i] = Median(win)
	}
	return out
}

// Median2D applies a size x size median filter to an ny x nx row-major
// image, ignoring NaN samples and reflecting at the edges.
func Median2D(img []float64, ny, nx, size int) []float64 {
	h := size / 2
	out := make([]float64, ny*nx)
	win := make([]float64, 0, size*size)
	for y := 0; y < ny; y++ {
		for x := 0; x < nx; x++ {
			win = win[:0]
			for i := -h; i <= h; i++ {
				py := reflect(y+i, ny)
				for j := -h; j <= h; j++ {
					if v := img[py*nx+reflect(x+j, nx)]; !math.IsNaN(v) {
						win = append(win, v)
					}
				}
			}
			out[y*nx+x] = Median(win)
		}
	}
	return out
}

// Median returns the median of v, sorting v in place. An empty slice gives
// NaN.
func Median(v []float64) float64 {
	n := len(v)
	if n == 0 {
		return math.NaN()
	}
	sort.Float64s(v)
	if n%2 == 1 {
		return v[n/2]
	}
	return (v[n/2-1] + v[n/2]) / 2
}

// reflect maps i into [0, n) mirroring about the edges (d c b a | a b c d).
func reflect(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i - 1
		}
		if i >= n {
			i = 2*n - i - 1
		}
	}
	return i
}
