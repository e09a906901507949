package cube

import (
	"fmt"
	"math"

	"spectralcube/pkg/convolve"
	"spectralcube/pkg/grid"
	"spectralcube/pkg/lazy"
)

// DefaultSigmaClipIters bounds the clipping passes of SigmaClipSpectrally.
const DefaultSigmaClipIters = 5

var (
	spectralBlocks = []grid.Axis{grid.Spectral}
	spatialBlocks  = []grid.Axis{grid.Lat, grid.Lon}
)

// mapBlocks returns a cube whose data is fn applied lazily to blocks of
// the NaN-filled data. Blocks span the whole of the axes in whole. The
// mask, transform and metadata are kept.
func (c *Cube) mapBlocks(op string, whole []grid.Axis, fn lazy.BlockFunc) *Cube {
	n := c.derive()
	n.data = c.exec.MapBlocks(op, c.filled(math.NaN()), whole, fn)
	return n
}

// eachSpectrum applies fn to every spectrum of block in place.
func eachSpectrum(block *grid.Dense, fn func(spec []float64) []float64) {
	s := block.Shape()
	for y := 0; y < s[1]; y++ {
		for x := 0; x < s[2]; x++ {
			block.SetLine(grid.Spectral, y, x, fn(block.Line(grid.Spectral, y, x)))
		}
	}
}

// eachImage applies fn to every spatial plane of block in place.
func eachImage(block *grid.Dense, fn func(z int, img []float64, ny, nx int) []float64) {
	s := block.Shape()
	size := s[1] * s[2]
	data := block.Data()
	for z := 0; z < s[0]; z++ {
		img := data[z*size : (z+1)*size]
		copy(img, fn(z, img, s[1], s[2]))
	}
}

// SigmaClipSpectrally replaces by NaN every value further than threshold
// standard deviations from the median of its spectrum. Clipping repeats
// on the surviving values until nothing changes or maxIters passes have
// run; maxIters <= 0 runs until convergence. Excluded voxels become NaN.
func (c *Cube) SigmaClipSpectrally(threshold float64, maxIters int) (*Cube, error) {
	if threshold <= 0 || math.IsNaN(threshold) {
		return nil, fmt.Errorf("sigma clip threshold %v: %w", threshold, grid.ErrOutOfRange)
	}
	return c.mapBlocks("sigma_clip", spectralBlocks, func(block *grid.Dense, _ grid.View) (*grid.Dense, error) {
		eachSpectrum(block, func(spec []float64) []float64 {
			sigmaClip(spec, threshold, maxIters)
			return spec
		})
		return block, nil
	}), nil
}

func sigmaClip(v []float64, threshold float64, maxIters int) {
	for iter := 0; maxIters <= 0 || iter < maxIters; iter++ {
		var kept []float64
		for _, x := range v {
			if !math.IsNaN(x) {
				kept = append(kept, x)
			}
		}
		if len(kept) == 0 {
			return
		}
		sd := std(kept, 0)
		cen := median(kept)
		clipped := 0
		for i, x := range v {
			if !math.IsNaN(x) && math.Abs(x-cen) > threshold*sd {
				v[i] = math.NaN()
				clipped++
			}
		}
		if clipped == 0 {
			return
		}
	}
}

// SpectralSmooth convolves every spectrum with k. Excluded voxels are
// interpolated over; the mask is unchanged. Cubes with per-plane beams
// must be convolved to a common resolution first.
func (c *Cube) SpectralSmooth(k convolve.Kernel1D) (*Cube, error) {
	if c.VaryingResolution() {
		return nil, fmt.Errorf("spectral smoothing of a cube with per-plane beams: %w", ErrUnsupportedOperation)
	}
	if len(k) == 0 {
		return nil, fmt.Errorf("empty kernel: %w", grid.ErrShape)
	}
	return c.mapBlocks("spectral_smooth", spectralBlocks, func(block *grid.Dense, _ grid.View) (*grid.Dense, error) {
		eachSpectrum(block, func(spec []float64) []float64 { return convolve.Convolve1D(spec, k) })
		return block, nil
	}), nil
}

// SpectralSmoothMedian applies a median filter of ksize channels to every
// spectrum.
func (c *Cube) SpectralSmoothMedian(ksize int) (*Cube, error) {
	if ksize < 1 {
		return nil, fmt.Errorf("median filter size %d: %w", ksize, grid.ErrOutOfRange)
	}
	return c.mapBlocks("spectral_median", spectralBlocks, func(block *grid.Dense, _ grid.View) (*grid.Dense, error) {
		eachSpectrum(block, func(spec []float64) []float64 { return convolve.Median1D(spec, ksize) })
		return block, nil
	}), nil
}

// SpatialSmooth convolves every channel image with k.
func (c *Cube) SpatialSmooth(k convolve.Kernel2D) (*Cube, error) {
	if k.NY == 0 || k.NX == 0 || len(k.W) != k.NY*k.NX {
		return nil, fmt.Errorf("kernel %dx%d with %d weights: %w", k.NY, k.NX, len(k.W), grid.ErrShape)
	}
	return c.mapBlocks("spatial_smooth", spatialBlocks, func(block *grid.Dense, _ grid.View) (*grid.Dense, error) {
		eachImage(block, func(_ int, img []float64, ny, nx int) []float64 {
			return convolve.Direct2D(img, ny, nx, k)
		})
		return block, nil
	}), nil
}

// SpatialSmoothMedian applies a ksize x ksize median filter to every
// channel image.
func (c *Cube) SpatialSmoothMedian(ksize int) (*Cube, error) {
	if ksize < 1 {
		return nil, fmt.Errorf("median filter size %d: %w", ksize, grid.ErrOutOfRange)
	}
	return c.mapBlocks("spatial_median", spatialBlocks, func(block *grid.Dense, _ grid.View) (*grid.Dense, error) {
		eachImage(block, func(_ int, img []float64, ny, nx int) []float64 {
			return convolve.Median2D(img, ny, nx, ksize)
		})
		return block, nil
	}), nil
}
