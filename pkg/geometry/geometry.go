// Package geometry derives the per-voxel world offsets and physical sizes
// of a cube from its coordinate transform.
//
// Centers are offsets from the first voxel along each axis: cumulative
// great-circle separations between neighbouring pixel centers for the
// celestial axes and plain world differences for the spectral axis. Sizes
// are the absolute separations between the half-pixel edges of each voxel.
// Both are stored compactly and broadcast to the cube shape.
package geometry

import (
	"errors"
	"fmt"
	"math"

	"spectralcube/pkg/grid"
	"spectralcube/pkg/wcs"
)

// ErrIllPosed reports a transform for which separable offsets and sizes
// are undefined.
var ErrIllPosed = errors.New("geometry: ill-posed coordinate geometry")

// DefaultRotationTolerance bounds the accepted ratio of cross-axis world
// change to the step along a pixel row or column.
const DefaultRotationTolerance = 1e-2

type options struct {
	rotationTol float64
	axisTol     float64
}

// Option configures Compute.
type Option func(*options)

// RotationTolerance sets the accepted pixel-grid rotation, as the ratio of
// cross-axis to along-axis world change.
func RotationTolerance(tol float64) Option {
	return func(o *options) { o.rotationTol = tol }
}

// AxisTolerance sets the accepted relative variation of the spectral world
// value across the image, and of the celestial position across channels.
func AxisTolerance(tol float64) Option {
	return func(o *options) { o.axisTol = tol }
}

// Geometry holds the offsets and sizes of every voxel of one cube.
type Geometry struct {
	shape     grid.Shape
	centers   [3]*Broadcast
	sizes     [3]*Broadcast
	spectral  []float64
	celestial bool
}

// Shape returns the cube extents.
func (g *Geometry) Shape() grid.Shape { return g.shape }

// PixelCenter returns the offset of every voxel from the first voxel
// along axis a.
func (g *Geometry) PixelCenter(a grid.Axis) *Broadcast { return g.centers[a] }

// PixelSize returns the world extent of every voxel along axis a.
func (g *Geometry) PixelSize(a grid.Axis) *Broadcast { return g.sizes[a] }

// SpectralWorld returns the absolute spectral world value of each channel.
func (g *Geometry) SpectralWorld() []float64 { return g.spectral }

// Celestial reports whether spatial offsets are angular separations.
func (g *Geometry) Celestial() bool { return g.celestial }

// sampler evaluates the oriented transform at array coordinates.
type sampler struct {
	t wcs.Transform
}

func (s sampler) world(z, y, x float64) ([3]float64, error) {
	w, err := s.t.PixelToWorld([]float64{x, y, z})
	if err != nil {
		return [3]float64{}, fmt.Errorf("%w: %v", ErrIllPosed, err)
	}
	out := [3]float64{w[2], w[1], w[0]}
	for _, v := range out {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return out, fmt.Errorf("non-finite world coordinate at pixel (%g, %g, %g): %w", z, y, x, ErrIllPosed)
		}
	}
	return out, nil
}

// Compute derives the geometry of a cube of the given shape whose array
// axis a runs along world axis 2-a of t.
func Compute(t wcs.Transform, shape grid.Shape, opts ...Option) (*Geometry, error) {
	o := options{rotationTol: DefaultRotationTolerance, axisTol: 1e-6}
	for _, fn := range opts {
		fn(&o)
	}
	if t.NAxis() != 3 {
		return nil, fmt.Errorf("transform has %d axes: %w", t.NAxis(), grid.ErrShape)
	}
	for i := 0; i < 3; i++ {
		if shape[i] <= 0 {
			return nil, fmt.Errorf("empty shape %v: %w", shape, grid.ErrShape)
		}
	}
	g := &Geometry{
		shape:     shape,
		celestial: wcs.IsCelestial(t, 0) && wcs.IsCelestial(t, 1),
	}
	s := sampler{t: t}
	sep := g.separation

	nz, ny, nx := shape[0], shape[1], shape[2]

	// Spectral values at the first spatial pixel.
	g.spectral = make([]float64, nz)
	for z := 0; z < nz; z++ {
		w, err := s.world(float64(z), 0, 0)
		if err != nil {
			return nil, err
		}
		g.spectral[z] = w[0]
	}
	specCen := make([]float64, nz)
	for z := range specCen {
		specCen[z] = g.spectral[z] - g.spectral[0]
	}
	specSize := make([]float64, nz)
	prev, err := s.world(-0.5, 0, 0)
	if err != nil {
		return nil, err
	}
	for z := 0; z < nz; z++ {
		next, err := s.world(float64(z)+0.5, 0, 0)
		if err != nil {
			return nil, err
		}
		specSize[z] = math.Abs(next[0] - prev[0])
		prev = next
	}

	// Celestial positions of the pixel centers of the first channel.
	lat := make([]float64, ny*nx)
	lon := make([]float64, ny*nx)
	for y := 0; y < ny; y++ {
		for x := 0; x < nx; x++ {
			w, err := s.world(0, float64(y), float64(x))
			if err != nil {
				return nil, err
			}
			lat[y*nx+x], lon[y*nx+x] = w[1], w[2]
		}
	}
	xCen := make([]float64, ny*nx)
	yCen := make([]float64, ny*nx)
	for y := 0; y < ny; y++ {
		for x := 1; x < nx; x++ {
			i := y*nx + x
			// Both ends at the latitude of the left pixel.
			xCen[i] = xCen[i-1] + sep(lon[i-1], lat[i-1], lon[i], lat[i-1])
		}
	}
	for y := 1; y < ny; y++ {
		for x := 0; x < nx; x++ {
			i := y*nx + x
			yCen[i] = yCen[i-nx] + sep(lon[i-nx], lat[i-nx], lon[i], lat[i])
		}
	}

	xSize := make([]float64, ny*nx)
	for y := 0; y < ny; y++ {
		left, err := s.world(0, float64(y), -0.5)
		if err != nil {
			return nil, err
		}
		for x := 0; x < nx; x++ {
			right, err := s.world(0, float64(y), float64(x)+0.5)
			if err != nil {
				return nil, err
			}
			xSize[y*nx+x] = math.Abs(sep(left[2], left[1], right[2], left[1]))
			left = right
		}
	}
	ySize := make([]float64, ny*nx)
	for x := 0; x < nx; x++ {
		below, err := s.world(0, -0.5, float64(x))
		if err != nil {
			return nil, err
		}
		for y := 0; y < ny; y++ {
			above, err := s.world(0, float64(y)+0.5, float64(x))
			if err != nil {
				return nil, err
			}
			ySize[y*nx+x] = math.Abs(sep(below[2], below[1], above[2], above[1]))
			below = above
		}
	}

	g.centers = [3]*Broadcast{
		spectralBroadcast(shape, specCen),
		spatialBroadcast(shape, yCen),
		spatialBroadcast(shape, xCen),
	}
	g.sizes = [3]*Broadcast{
		spectralBroadcast(shape, specSize),
		spatialBroadcast(shape, ySize),
		spatialBroadcast(shape, xSize),
	}

	if err := g.checkSeparable(s, o); err != nil {
		return nil, err
	}
	return g, nil
}

// separation is the distance between two spatial world positions: the
// great-circle distance for celestial axes and the Euclidean distance
// otherwise. Arguments are (lon, lat) pairs.
func (g *Geometry) separation(lon1, lat1, lon2, lat2 float64) float64 {
	if g.celestial {
		return wcs.AngularSeparation(lon1, lat1, lon2, lat2)
	}
	return math.Hypot(lon2-lon1, lat2-lat1)
}

// checkSeparable rejects transforms that mix the spectral and spatial axes
// or rotate the pixel grid relative to the world axes.
func (g *Geometry) checkSeparable(s sampler, o options) error {
	nz, ny, nx := g.shape[0], g.shape[1], g.shape[2]
	corners := [][2]int{{0, 0}, {0, nx - 1}, {ny - 1, 0}, {ny - 1, nx - 1}}

	dspec := math.Abs(g.sizes[grid.Spectral].spectral[0])
	for _, z := range []int{0, nz - 1} {
		for _, c := range corners {
			w, err := s.world(float64(z), float64(c[0]), float64(c[1]))
			if err != nil {
				return err
			}
			if math.Abs(w[0]-g.spectral[z]) > o.axisTol*dspec+1e-12*math.Abs(g.spectral[z]) {
				return fmt.Errorf("spectral coordinate varies across the image at pixel (%d, %d): %w", c[0], c[1], ErrIllPosed)
			}
		}
	}

	if nz > 1 {
		dpix := math.Min(g.sizes[grid.Lat].spatial[0], g.sizes[grid.Lon].spatial[0])
		for _, c := range corners {
			a, err := s.world(0, float64(c[0]), float64(c[1]))
			if err != nil {
				return err
			}
			b, err := s.world(float64(nz-1), float64(c[0]), float64(c[1]))
			if err != nil {
				return err
			}
			if g.separation(a[2], a[1], b[2], b[1]) > o.axisTol*math.Max(dpix, 1e-12) {
				return fmt.Errorf("spatial coordinates vary along the spectral axis at pixel (%d, %d): %w", c[0], c[1], ErrIllPosed)
			}
		}
	}

	cy, cx := float64(ny-1)/2, float64(nx-1)/2
	ratio := func(a, b [3]float64, along grid.Axis) float64 {
		d := g.separation(a[2], a[1], b[2], b[1])
		if d == 0 {
			return math.Inf(1)
		}
		if along == grid.Lon {
			return math.Abs(b[1]-a[1]) / d
		}
		dl := b[2] - a[2]
		if g.celestial {
			dl *= math.Cos(a[1] * math.Pi / 180)
		}
		return math.Abs(dl) / d
	}
	for _, step := range []struct {
		dy, dx float64
		along  grid.Axis
	}{{0, 0.5, grid.Lon}, {0.5, 0, grid.Lat}} {
		a, err := s.world(0, cy-step.dy, cx-step.dx)
		if err != nil {
			return err
		}
		b, err := s.world(0, cy+step.dy, cx+step.dx)
		if err != nil {
			return err
		}
		if r := ratio(a, b, step.along); r > o.rotationTol {
			return fmt.Errorf("pixel grid rotated by ratio %.3g against the world axes: %w", r, ErrIllPosed)
		}
	}
	return nil
}
