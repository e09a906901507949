// Package cube is the composition root of the module: a Cube couples a
// spectral-spatial data array with its coordinate transform, mask, unit,
// metadata and resolution model.
//
// A Cube is immutable. Every builder and transform returns a new Cube that
// shares what it can with its parent; only Materialize-style operations
// (whole-array reductions and the Whole moment strategy) load the full
// array into memory.
//
// Array axes are always ordered (spectral, latitude, longitude). New
// reorders the data and the transform to that order whatever the storage
// order was.
package cube

import (
	"errors"
	"fmt"
	"maps"
	"math"

	"spectralcube/pkg/geometry"
	"spectralcube/pkg/grid"
	"spectralcube/pkg/lazy"
	"spectralcube/pkg/mask"
	"spectralcube/pkg/moments"
	"spectralcube/pkg/wcs"
)

var (
	// ErrUnsupportedOperation reports an operation that the cube's
	// resolution model or layout does not allow.
	ErrUnsupportedOperation = errors.New("cube: unsupported operation")

	// ErrGrid reports an output grid that cannot be resampled onto.
	ErrGrid = errors.New("cube: invalid output grid")
)

// DefaultWCSTolerance is the relative tolerance used when comparing a mask
// transform with the cube transform.
const DefaultWCSTolerance = 1e-6

// Meta is free-form cube metadata.
type Meta map[string]any

// Cube is a masked spectral cube.
type Cube struct {
	data  grid.Array
	wcs   *wcs.WCS
	mask  mask.Mask
	fill  float64
	unit  string
	meta  Meta
	beam  *Beam
	beams []Beam
	tol   float64

	engine   *moments.Engine
	exec     *lazy.Executor
	geomOpts []geometry.Option

	// Geometry is memoized per cube in a table shared by every cube
	// derived from the same New call.
	token geometry.Token
	cache *geometry.Cache
}

type options struct {
	mask     mask.Mask
	fill     float64
	unit     string
	unitSet  bool
	meta     Meta
	beam     *Beam
	beams    []Beam
	engine   *moments.Engine
	exec     *lazy.Executor
	tol      float64
	geomOpts []geometry.Option
}

// Option configures New.
type Option func(*options)

// WithMask sets the cube mask. The mask is given in the oriented
// (spectral, latitude, longitude) layout.
func WithMask(m mask.Mask) Option { return func(o *options) { o.mask = m } }

// WithFill sets the value substituted at excluded voxels by FilledData.
func WithFill(v float64) Option { return func(o *options) { o.fill = v } }

// WithUnit sets the data unit, overriding any BUNIT in the metadata.
func WithUnit(u string) Option {
	return func(o *options) { o.unit, o.unitSet = u, true }
}

// WithMeta sets the metadata. A string BUNIT entry sets the unit unless
// WithUnit is also given.
func WithMeta(m Meta) Option { return func(o *options) { o.meta = maps.Clone(m) } }

// WithBeam gives the cube a single resolution shared by every plane.
func WithBeam(b Beam) Option {
	return func(o *options) { o.beam, o.beams = &b, nil }
}

// WithBeams gives the cube one resolution per spectral plane.
func WithBeams(bs []Beam) Option {
	return func(o *options) { o.beams, o.beam = append([]Beam(nil), bs...), nil }
}

// WithEngine sets the moment engine.
func WithEngine(e *moments.Engine) Option { return func(o *options) { o.engine = e } }

// WithExecutor sets the executor used by chunked reductions and
// transforms.
func WithExecutor(x *lazy.Executor) Option { return func(o *options) { o.exec = x } }

// WithWCSTolerance sets the tolerance for mask transform comparisons.
func WithWCSTolerance(tol float64) Option { return func(o *options) { o.tol = tol } }

// WithGeometryOptions passes options to the coordinate geometry
// computation.
func WithGeometryOptions(opts ...geometry.Option) Option {
	return func(o *options) { o.geomOpts = append(o.geomOpts, opts...) }
}

// New builds a cube from data stored in reverse world-axis order (the
// FITS convention) and its three-axis transform.
func New(data grid.Array, t *wcs.WCS, opts ...Option) (*Cube, error) {
	if t == nil {
		return nil, fmt.Errorf("cube needs a coordinate transform: %w", wcs.ErrAxes)
	}
	if t.NAxis() != 3 {
		return nil, fmt.Errorf("transform has %d axes for a 3-d array: %w", t.NAxis(), grid.ErrShape)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	o := options{fill: math.NaN(), tol: DefaultWCSTolerance}
	for _, opt := range opts {
		opt(&o)
	}

	orient, err := wcs.Orient(t)
	if err != nil {
		return nil, err
	}
	arr, err := grid.Permute(data, orient.Perm)
	if err != nil {
		return nil, err
	}
	w, err := wcs.Reindex(t, orient.Axes)
	if err != nil {
		return nil, err
	}

	c := &Cube{
		data:     arr,
		wcs:      w,
		mask:     o.mask,
		fill:     o.fill,
		unit:     o.unit,
		meta:     o.meta,
		beam:     o.beam,
		beams:    o.beams,
		tol:      o.tol,
		engine:   o.engine,
		exec:     o.exec,
		geomOpts: o.geomOpts,
		token:    geometry.NewToken(),
		cache:    geometry.NewCache(),
	}
	if c.meta == nil {
		c.meta = Meta{}
	}
	if !o.unitSet {
		if bu, ok := c.meta["BUNIT"].(string); ok {
			c.unit = bu
		}
	}
	if c.exec == nil {
		if c.engine != nil {
			c.exec = c.engine.Executor()
		} else {
			c.exec = lazy.NewExecutor(0)
		}
	}
	if c.engine == nil {
		c.engine = moments.NewEngine(moments.WithExecutor(c.exec))
	}
	if c.mask != nil {
		if err := mask.CheckShape(c.mask, arr.Shape()); err != nil {
			return nil, err
		}
	}
	if c.beams != nil && len(c.beams) != arr.Shape()[grid.Spectral] {
		return nil, fmt.Errorf("%d beams for %d planes: %w", len(c.beams), arr.Shape()[grid.Spectral], grid.ErrShape)
	}
	return c, nil
}

// derive returns a shallow copy of c with a fresh geometry token and a
// private metadata map.
func (c *Cube) derive() *Cube {
	n := *c
	n.meta = maps.Clone(c.meta)
	n.token = geometry.NewToken()
	return &n
}

// Shape returns the oriented extents (spectral, latitude, longitude).
func (c *Cube) Shape() grid.Shape { return c.data.Shape() }

// Size returns the number of voxels.
func (c *Cube) Size() int { return c.data.Shape().Size() }

// Unit returns the data unit. The empty string is dimensionless.
func (c *Cube) Unit() string { return c.unit }

// WCS returns a copy of the oriented transform. World axis 0 is longitude,
// 1 latitude and 2 spectral.
func (c *Cube) WCS() *wcs.WCS { return c.wcs.Copy() }

// SpectralUnit returns the unit of the spectral world axis.
func (c *Cube) SpectralUnit() string { return c.wcs.Unit(wcs.WorldAxis(grid.Spectral)) }

// Mask returns the mask, or nil when every voxel is included.
func (c *Cube) Mask() mask.Mask { return c.mask }

// FillValue returns the value substituted at excluded voxels.
func (c *Cube) FillValue() float64 { return c.fill }

// Meta returns a copy of the metadata.
func (c *Cube) Meta() Meta { return maps.Clone(c.meta) }

// Data returns the raw oriented data array.
func (c *Cube) Data() grid.Array { return c.data }

// Engine returns the moment engine.
func (c *Cube) Engine() *moments.Engine { return c.engine }

// Beam returns the single resolution of the cube, if it has one.
func (c *Cube) Beam() (Beam, bool) {
	if c.beam == nil {
		return Beam{}, false
	}
	return *c.beam, true
}

// Beams returns the per-plane resolutions, or nil.
func (c *Cube) Beams() []Beam { return append([]Beam(nil), c.beams...) }

// VaryingResolution reports whether the cube carries per-plane beams.
func (c *Cube) VaryingResolution() bool { return c.beams != nil }

func (c *Cube) String() string {
	return fmt.Sprintf("Cube with shape %v and unit %q", c.Shape(), c.unit)
}

// filled returns the lazy filled view of the cube using fill.
func (c *Cube) filled(fill float64) *lazy.FilledView {
	return &lazy.FilledView{Data: c.data, Mask: c.mask, WCS: c.wcs, Tolerance: c.tol, Fill: fill}
}

func (c *Cube) target() mask.Target {
	return mask.Target{Data: c.data, WCS: c.wcs, Tolerance: c.tol}
}

// GetMaskArray returns the inclusion array of the whole cube. Non-finite
// data are not excluded by it.
func (c *Cube) GetMaskArray() (*grid.Bool, error) {
	return c.filled(c.fill).Include(grid.FullView())
}

// FilledData reads view with excluded and non-finite voxels replaced by the
// fill value.
func (c *Cube) FilledData(view grid.View) (*grid.Dense, error) {
	return c.filled(c.fill).Read(view)
}

// UnmaskedData reads view of the raw data.
func (c *Cube) UnmaskedData(view grid.View) (*grid.Dense, error) {
	return c.data.Read(view)
}

// Flattened returns the valid values of view in row-major order.
func (c *Cube) Flattened(view grid.View) ([]float64, error) {
	return c.filled(c.fill).Flattened(view)
}

// Geometry returns the coordinate geometry of the cube, computing it on
// first use.
func (c *Cube) Geometry() (*geometry.Geometry, error) {
	return c.cache.Get(c.token, func() (*geometry.Geometry, error) {
		return geometry.Compute(c.wcs, c.Shape(), c.geomOpts...)
	})
}
