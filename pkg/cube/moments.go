package cube

import (
	"math"

	"spectralcube/internal/observability"
	"spectralcube/pkg/grid"
	"spectralcube/pkg/moments"
	"spectralcube/pkg/units"
	"spectralcube/pkg/wcs"
)

// fwhmPerSigma converts a Gaussian standard deviation to its full width at
// half maximum.
var fwhmPerSigma = math.Sqrt(8 * math.Ln2)

// Moment computes the moment of the given order along axis with strategy
// k.
//
// Order 0 has the data unit times the axis unit; order N >= 1 has the axis
// unit to the power N. Order 1 along the spectral axis is the absolute
// spectral coordinate; along a spatial axis it is the offset from the
// first pixel. Where every voxel along the axis is excluded the moment is
// NaN.
func (c *Cube) Moment(order int, axis grid.Axis, k moments.Kind) (*Projection, error) {
	if order == 2 && axis == grid.Spectral {
		observability.Warn(observability.WarnVarianceMoment).
			Msg("second moment along the spectral axis is a variance; use LinewidthSigma for a width")
	}
	return c.moment(order, axis, k)
}

func (c *Cube) moment(order int, axis grid.Axis, k moments.Kind) (*Projection, error) {
	if !axis.Valid() {
		return nil, axisError(axis)
	}
	g, err := c.Geometry()
	if err != nil {
		return nil, err
	}
	src := moments.NewSource(c.filled(0), g)
	out, used, err := c.engine.Moment(src, order, axis, k)
	if err != nil {
		return nil, err
	}

	data := out.Data()
	if order == 1 && axis == grid.Spectral {
		ref := g.SpectralWorld()[0]
		for i := range data {
			data[i] += ref
		}
	}
	p, err := c.reducedProjection(data, axis)
	if err != nil {
		return nil, err
	}
	axisUnit := c.wcs.Unit(wcs.WorldAxis(axis))
	if order == 0 {
		p.Unit = units.Mul(c.unit, axisUnit)
	} else {
		p.Unit = units.Pow(axisUnit, order)
	}
	p.Meta["moment_order"] = order
	p.Meta["moment_axis"] = int(axis)
	p.Meta["moment_strategy"] = used.String()
	return p, nil
}

// reducedProjection wraps the row-major values left by a reduction over
// axis as a 2-d projection carrying the transform of the remaining axes.
func (c *Cube) reducedProjection(data []float64, axis grid.Axis) (*Projection, error) {
	o1, o2 := axis.Others()
	shape := c.Shape()
	p, err := newProjection(data, []int{shape[o1], shape[o2]}, []grid.Axis{o1, o2})
	if err != nil {
		return nil, err
	}
	if p.WCS, err = wcs.DropAxis(c.wcs, wcs.WorldAxis(axis)); err != nil {
		return nil, err
	}
	p.Meta = c.Meta()
	p.Meta["collapse_axis"] = int(axis)
	if axis == grid.Spectral && c.beam != nil {
		b := *c.beam
		p.Beam = &b
	}
	return p, nil
}

// Moment0 is Moment(0, axis, k).
func (c *Cube) Moment0(axis grid.Axis, k moments.Kind) (*Projection, error) {
	return c.Moment(0, axis, k)
}

// Moment1 is Moment(1, axis, k).
func (c *Cube) Moment1(axis grid.Axis, k moments.Kind) (*Projection, error) {
	return c.Moment(1, axis, k)
}

// Moment2 is Moment(2, axis, k).
func (c *Cube) Moment2(axis grid.Axis, k moments.Kind) (*Projection, error) {
	return c.Moment(2, axis, k)
}

// LinewidthSigma returns the spectral line width as the square root of
// the second spectral moment, in the spectral unit.
func (c *Cube) LinewidthSigma(k moments.Kind) (*Projection, error) {
	p, err := c.moment(2, grid.Spectral, k)
	if err != nil {
		return nil, err
	}
	for i, v := range p.Data {
		p.Data[i] = math.Sqrt(v)
	}
	p.Unit = c.SpectralUnit()
	return p, nil
}

// LinewidthFWHM returns the spectral line width as a Gaussian full width at
// half maximum.
func (c *Cube) LinewidthFWHM(k moments.Kind) (*Projection, error) {
	p, err := c.LinewidthSigma(k)
	if err != nil {
		return nil, err
	}
	for i := range p.Data {
		p.Data[i] *= fwhmPerSigma
	}
	return p, nil
}
