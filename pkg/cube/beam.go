package cube

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"spectralcube/internal/observability"
	"spectralcube/pkg/convolve"
	"spectralcube/pkg/grid"
	"spectralcube/pkg/wcs"
)

// ErrDeconvolution reports a target beam smaller than the beam it must
// contain.
var ErrDeconvolution = errors.New("cube: beam cannot be deconvolved")

// beamTolerance is the relative tolerance for beam comparisons.
const beamTolerance = 1e-9

// Beam is an elliptical Gaussian resolution element. Major and Minor are
// full widths at half maximum in degrees; PA is the position angle of the
// major axis in degrees, measured from the latitude pixel axis towards the
// longitude pixel axis.
type Beam struct {
	Major float64
	Minor float64
	PA    float64
}

// covariance returns the (lon, lat) covariance of the beam in deg^2.
func (b Beam) covariance() *mat.SymDense {
	smaj := b.Major / fwhmPerSigma
	smin := b.Minor / fwhmPerSigma
	s, c := math.Sincos(b.PA * math.Pi / 180)
	cxx := smaj*smaj*s*s + smin*smin*c*c
	cyy := smaj*smaj*c*c + smin*smin*s*s
	cxy := (smaj*smaj - smin*smin) * s * c
	return mat.NewSymDense(2, []float64{cxx, cxy, cxy, cyy})
}

// beamFromCovariance inverts covariance.
func beamFromCovariance(cov *mat.SymDense) (Beam, error) {
	var es mat.EigenSym
	if !es.Factorize(cov, true) {
		return Beam{}, fmt.Errorf("beam covariance eigen decomposition failed: %w", ErrDeconvolution)
	}
	vals := es.Values(nil) // ascending
	var vecs mat.Dense
	es.VectorsTo(&vecs)
	scale := math.Max(math.Abs(vals[0]), math.Abs(vals[1]))
	if vals[0] < -1e-12*math.Max(scale, 1e-300) {
		return Beam{}, ErrDeconvolution
	}
	lmin, lmaj := math.Max(vals[0], 0), math.Max(vals[1], 0)
	ex, ey := vecs.At(0, 1), vecs.At(1, 1)
	pa := math.Atan2(ex, ey) * 180 / math.Pi
	pa = math.Mod(pa+180, 180)
	return Beam{
		Major: math.Sqrt(lmaj) * fwhmPerSigma,
		Minor: math.Sqrt(lmin) * fwhmPerSigma,
		PA:    pa,
	}, nil
}

// IsPoint reports whether the beam has no extent.
func (b Beam) IsPoint() bool { return b.Major == 0 && b.Minor == 0 }

// Area returns the beam solid angle in deg^2.
func (b Beam) Area() float64 {
	return math.Pi * b.Major * b.Minor / (4 * math.Ln2)
}

// Equal reports whether b and o describe the same beam. Position angles of
// round beams are ignored.
func (b Beam) Equal(o Beam) bool {
	near := func(x, y float64) bool {
		return math.Abs(x-y) <= beamTolerance*math.Max(1e-12, math.Max(math.Abs(x), math.Abs(y)))
	}
	if !near(b.Major, o.Major) || !near(b.Minor, o.Minor) {
		return false
	}
	if near(b.Major, b.Minor) {
		return true
	}
	d := math.Mod(math.Abs(b.PA-o.PA), 180)
	return d < 1e-9 || 180-d < 1e-9
}

// Deconvolve returns the beam that convolved with other gives b. It fails
// with ErrDeconvolution when other does not fit inside b.
func (b Beam) Deconvolve(other Beam) (Beam, error) {
	var neg, diff mat.SymDense
	neg.ScaleSym(-1, other.covariance())
	diff.AddSym(b.covariance(), &neg)
	out, err := beamFromCovariance(&diff)
	if err != nil {
		return Beam{}, fmt.Errorf("deconvolving %+v from %+v: %w", other, b, err)
	}
	return out, nil
}

// Kernel returns the beam as a convolution kernel for pixels of pixscale
// degrees. A point beam gives a 1x1 identity kernel.
func (b Beam) Kernel(pixscale float64) convolve.Kernel2D {
	if b.IsPoint() {
		return convolve.Kernel2D{NY: 1, NX: 1, W: []float64{1}}
	}
	cov := b.covariance()
	p2 := pixscale * pixscale
	cxx, cyy, cxy := cov.At(0, 0)/p2, cov.At(1, 1)/p2, cov.At(0, 1)/p2
	// Beams far below a pixel sample to the identity.
	if cxx*cyy-cxy*cxy <= 1e-12 {
		return convolve.Kernel2D{NY: 1, NX: 1, W: []float64{1}}
	}
	return convolve.GaussianCovariance(cxx, cyy, cxy)
}

// pixelScale returns the square root of the celestial pixel area in
// degrees.
func pixelScale(w *wcs.WCS) float64 {
	lon, lat := wcs.WorldAxis(grid.Lon), wcs.WorldAxis(grid.Lat)
	m := mat.NewDense(2, 2, []float64{
		w.CDelt[lon] * w.PCAt(lon, lon), w.CDelt[lon] * w.PCAt(lon, lat),
		w.CDelt[lat] * w.PCAt(lat, lon), w.CDelt[lat] * w.PCAt(lat, lat),
	})
	return math.Sqrt(math.Abs(mat.Det(m)))
}

func rotatedCelestial(w *wcs.WCS) bool {
	lon, lat := wcs.WorldAxis(grid.Lon), wcs.WorldAxis(grid.Lat)
	return w.PCAt(lon, lat) != 0 || w.PCAt(lat, lon) != 0
}

// ConvolveTo smooths every channel to the resolution target and returns a
// single-beam cube. Channels already at target are left alone. For a cube
// with per-plane beams, allowSmaller skips channels whose beam does not
// fit inside target instead of failing.
func (c *Cube) ConvolveTo(target Beam, allowSmaller bool) (*Cube, error) {
	pixscale := pixelScale(c.wcs)
	switch {
	case c.beam != nil:
		if target.Equal(*c.beam) {
			observability.Warn(observability.WarnIdenticalBeam).
				Msg("target beam equals the cube beam, skipping convolution")
			return c, nil
		}
		kb, err := target.Deconvolve(*c.beam)
		if err != nil {
			return nil, err
		}
		k := kb.Kernel(pixscale)
		out := c.mapBlocks("convolve_to", spatialBlocks, func(block *grid.Dense, _ grid.View) (*grid.Dense, error) {
			eachImage(block, func(_ int, img []float64, ny, nx int) []float64 {
				return convolve.Direct2D(img, ny, nx, k)
			})
			return block, nil
		})
		return out.WithBeam(target), nil

	case c.beams != nil:
		if rotatedCelestial(c.wcs) {
			observability.Warn(observability.WarnRotatedBeamKernel).
				Msg("beam kernels ignore the rotation between pixel and world axes")
		}
		kernels := make([]*convolve.Kernel2D, len(c.beams))
		for i, bm := range c.beams {
			if target.Equal(bm) {
				continue
			}
			kb, err := target.Deconvolve(bm)
			if err != nil {
				if allowSmaller {
					continue
				}
				return nil, fmt.Errorf("channel %d: %w", i, err)
			}
			k := kb.Kernel(pixscale)
			kernels[i] = &k
		}
		out := c.mapBlocks("convolve_to", spatialBlocks, func(block *grid.Dense, bv grid.View) (*grid.Dense, error) {
			eachImage(block, func(z int, img []float64, ny, nx int) []float64 {
				k := kernels[bv[grid.Spectral].At(z)]
				if k == nil {
					return img
				}
				return convolve.Direct2D(img, ny, nx, *k)
			})
			return block, nil
		})
		return out.WithBeam(target), nil
	}
	return nil, fmt.Errorf("cube has no beam to convolve from: %w", ErrUnsupportedOperation)
}
