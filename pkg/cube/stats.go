package cube

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"spectralcube/internal/observability"
	"spectralcube/pkg/grid"
	"spectralcube/pkg/lazy"
	"spectralcube/pkg/wcs"
)

// madScale turns a median absolute deviation into a Gaussian standard
// deviation.
const madScale = 1.482602218505602

// reducer is a NaN-free statistic over the valid values of a block.
type reducer struct {
	op string
	// fill is substituted at invalid voxels before the kernel sees them.
	fill float64
	// fn reduces vals, of which valid marks the included finite entries.
	fn func(vals []float64, valid []bool) float64
	// index reports a positional result, which carries no unit and cannot
	// be taken over two axes.
	index bool
}

func valuesOf(vals []float64, valid []bool) []float64 {
	out := make([]float64, 0, len(vals))
	for i, v := range vals {
		if valid[i] {
			out = append(out, v)
		}
	}
	return out
}

func statistic(op string, fn func(x []float64) float64) reducer {
	return reducer{op: op, fill: math.NaN(), fn: func(vals []float64, valid []bool) float64 {
		x := valuesOf(vals, valid)
		if len(x) == 0 {
			return math.NaN()
		}
		return fn(x)
	}}
}

// quantile returns the q-quantile (0 <= q <= 1) of x, linearly
// interpolating between the two nearest ranks. x is sorted in place.
func quantile(x []float64, q float64) float64 {
	sort.Float64s(x)
	pos := q * float64(len(x)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	return x[lo] + (x[hi]-x[lo])*(pos-float64(lo))
}

func median(x []float64) float64 { return quantile(x, 0.5) }

func madStd(x []float64) float64 {
	m := median(x)
	dev := make([]float64, len(x))
	for i, v := range x {
		dev[i] = math.Abs(v - m)
	}
	return madScale * median(dev)
}

// std returns the standard deviation of x with n - ddof degrees of
// freedom, or NaN when there are none.
func std(x []float64, ddof int) float64 {
	n := len(x)
	if n-ddof <= 0 {
		return math.NaN()
	}
	if n == 1 {
		return 0
	}
	_, v := stat.MeanVariance(x, nil)
	return math.Sqrt(v * float64(n-1) / float64(n-ddof))
}

func argExtreme(op string, fill float64, better func(a, b float64) bool) reducer {
	return reducer{op: op, fill: fill, index: true, fn: func(vals []float64, valid []bool) float64 {
		best := -1
		for i, v := range vals {
			if valid[i] && (best < 0 || better(v, vals[best])) {
				best = i
			}
		}
		// Arbitrary but stable when nothing is valid.
		if best < 0 {
			return 0
		}
		return float64(best)
	}}
}

// Sum returns the sum over axes, or over the whole cube when none are
// given. Positions with no valid voxel are NaN.
func (c *Cube) Sum(axes ...grid.Axis) (*Projection, error) {
	return c.reduce(statistic("sum", floats.Sum), axes)
}

// Mean returns the mean over axes.
func (c *Cube) Mean(axes ...grid.Axis) (*Projection, error) {
	return c.reduce(statistic("mean", func(x []float64) float64 { return stat.Mean(x, nil) }), axes)
}

// Median returns the median over axes.
func (c *Cube) Median(axes ...grid.Axis) (*Projection, error) {
	return c.reduce(statistic("median", median), axes)
}

// Percentile returns the q-th percentile (0 <= q <= 100) over axes, with
// linear interpolation between ranks.
func (c *Cube) Percentile(q float64, axes ...grid.Axis) (*Projection, error) {
	if q < 0 || q > 100 || math.IsNaN(q) {
		return nil, fmt.Errorf("percentile %v outside [0, 100]: %w", q, grid.ErrOutOfRange)
	}
	return c.reduce(statistic("percentile", func(x []float64) float64 { return quantile(x, q/100) }), axes)
}

// Std returns the standard deviation over axes with ddof delta degrees of
// freedom.
func (c *Cube) Std(ddof int, axes ...grid.Axis) (*Projection, error) {
	return c.reduce(statistic("std", func(x []float64) float64 { return std(x, ddof) }), axes)
}

// MadStd returns the median absolute deviation over axes, scaled to a
// Gaussian standard deviation.
func (c *Cube) MadStd(axes ...grid.Axis) (*Projection, error) {
	return c.reduce(statistic("mad_std", madStd), axes)
}

// Min returns the minimum over axes.
func (c *Cube) Min(axes ...grid.Axis) (*Projection, error) {
	return c.reduce(statistic("min", floats.Min), axes)
}

// Max returns the maximum over axes.
func (c *Cube) Max(axes ...grid.Axis) (*Projection, error) {
	return c.reduce(statistic("max", floats.Max), axes)
}

// ArgMin returns the index of the minimum along one axis, or the flat
// row-major index over the whole cube when no axis is given. The index is
// 0 where every voxel is excluded.
func (c *Cube) ArgMin(axes ...grid.Axis) (*Projection, error) {
	return c.reduce(argExtreme("argmin", math.Inf(1), func(a, b float64) bool { return a < b }), axes)
}

// ArgMax is ArgMin for the maximum.
func (c *Cube) ArgMax(axes ...grid.Axis) (*Projection, error) {
	return c.reduce(argExtreme("argmax", math.Inf(-1), func(a, b float64) bool { return a > b }), axes)
}

func axisError(a grid.Axis) error {
	return fmt.Errorf("axis %d: %w", int(a), grid.ErrOutOfRange)
}

// normalizeAxes validates axes and returns them sorted without
// duplicates.
func normalizeAxes(axes []grid.Axis) ([]grid.Axis, error) {
	var seen [3]bool
	for _, a := range axes {
		if !a.Valid() {
			return nil, axisError(a)
		}
		seen[a] = true
	}
	var out []grid.Axis
	for a := grid.Spectral; a <= grid.Lon; a++ {
		if seen[a] {
			out = append(out, a)
		}
	}
	return out, nil
}

func (c *Cube) reduce(r reducer, axes []grid.Axis) (*Projection, error) {
	axes, err := normalizeAxes(axes)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	view := c.filled(r.fill)
	var p *Projection
	switch len(axes) {
	case 1:
		p, err = c.reduceOne(r, view, axes[0])
	case 2:
		p, err = c.reduceTwo(r, view, axes)
	default:
		p, err = c.reduceAll(r, view)
	}
	if err != nil {
		return nil, err
	}
	if r.index {
		p.Unit = ""
	}
	observability.RecordReduction(r.op, fmt.Sprintf("axes%d", len(axes)), time.Since(start))
	return p, nil
}

func (c *Cube) reduceOne(r reducer, view *lazy.FilledView, axis grid.Axis) (*Projection, error) {
	out, err := c.exec.ReduceAlong(r.op, view, axis, func(ray []float64, valid []bool, _, _ int) float64 {
		return r.fn(ray, valid)
	})
	if err != nil {
		return nil, err
	}
	p, err := c.reducedProjection(out.Data(), axis)
	if err != nil {
		return nil, err
	}
	p.Unit = c.unit
	return p, nil
}

// reduceTwo reduces each plane perpendicular to the one remaining axis.
func (c *Cube) reduceTwo(r reducer, view *lazy.FilledView, axes []grid.Axis) (*Projection, error) {
	if r.index {
		return nil, fmt.Errorf("%s over axes %v: %w", r.op, axes, ErrUnsupportedOperation)
	}
	keep := grid.Spectral + grid.Lat + grid.Lon - axes[0] - axes[1]
	n := c.Shape()[keep]
	data := make([]float64, n)
	err := c.exec.Each(r.op, n, func(i int) error {
		block, valid, err := view.ReadValid(grid.Plane(keep, i))
		if err != nil {
			return err
		}
		data[i] = r.fn(block.Data(), valid.Data())
		return nil
	})
	if err != nil {
		return nil, err
	}
	p, err := newProjection(data, []int{n}, []grid.Axis{keep})
	if err != nil {
		return nil, err
	}
	p.Meta = c.Meta()
	p.Meta["collapse_axis"] = []int{int(axes[0]), int(axes[1])}
	if keep != grid.Spectral {
		observability.Warn(observability.WarnMixedAxesProjection).
			Str("op", r.op).
			Msg("reducing over a spatial and the spectral axis keeps no unit or coordinates")
		return p, nil
	}
	p.Unit = c.unit
	if p.WCS, err = wcs.Reindex(c.wcs, []int{wcs.WorldAxis(grid.Spectral)}); err != nil {
		return nil, err
	}
	if c.beam != nil {
		b := *c.beam
		p.Beam = &b
	}
	return p, nil
}

func (c *Cube) reduceAll(r reducer, view *lazy.FilledView) (*Projection, error) {
	d, valid, err := c.exec.MaterializeValid(r.op, view)
	if err != nil {
		return nil, err
	}
	p, err := newProjection([]float64{r.fn(d.Data(), valid.Data())}, nil, nil)
	if err != nil {
		return nil, err
	}
	p.Unit = c.unit
	p.Meta = c.Meta()
	return p, nil
}
