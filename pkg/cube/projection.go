package cube

import (
	"fmt"
	"math"

	"spectralcube/pkg/grid"
	"spectralcube/pkg/wcs"
)

// Projection is the result of reducing a cube over one or more axes: a
// 2-d map, a 1-d spectrum or a 0-d scalar. NaN marks undefined values.
type Projection struct {
	// Data holds the values in row-major order over Shape.
	Data []float64
	// Shape lists the remaining extents in array axis order.
	Shape []int
	// Axes lists the cube axes that remain, matching Shape.
	Axes []grid.Axis
	Unit string
	// WCS describes the remaining axes. It is nil when the reduction mixes
	// spatial and spectral axes or leaves a scalar.
	WCS  *wcs.WCS
	Meta Meta
	// Beam is the resolution of a spatial map or spectrum, when known.
	Beam *Beam
}

func newProjection(data []float64, shape []int, axes []grid.Axis) (*Projection, error) {
	n := 1
	for _, s := range shape {
		n *= s
	}
	if len(data) != n {
		return nil, fmt.Errorf("projection of %d values for shape %v: %w", len(data), shape, grid.ErrShape)
	}
	return &Projection{Data: data, Shape: shape, Axes: axes, Meta: Meta{}}, nil
}

// NDim returns the number of dimensions.
func (p *Projection) NDim() int { return len(p.Shape) }

// Size returns the number of values.
func (p *Projection) Size() int { return len(p.Data) }

// At returns the value at the given indices, one per dimension.
func (p *Projection) At(idx ...int) float64 {
	if len(idx) != len(p.Shape) {
		panic(fmt.Sprintf("cube: %d indices for a %d-d projection", len(idx), len(p.Shape)))
	}
	off := 0
	for i, v := range idx {
		off = off*p.Shape[i] + v
	}
	return p.Data[off]
}

// IsUndefined reports whether the value at idx is the undefined sentinel.
func (p *Projection) IsUndefined(idx ...int) bool { return math.IsNaN(p.At(idx...)) }

// Value returns the single value of a 0-d projection.
func (p *Projection) Value() float64 { return p.Data[0] }

// Dense returns a 2-d projection as a (1, ny, nx) array, or a 1-d spectrum
// as (n, 1, 1), for plotting and writing.
func (p *Projection) Dense() (*grid.Dense, error) {
	switch len(p.Shape) {
	case 2:
		return grid.NewDense(grid.Shape{1, p.Shape[0], p.Shape[1]}, append([]float64(nil), p.Data...))
	case 1:
		return grid.NewDense(grid.Shape{p.Shape[0], 1, 1}, append([]float64(nil), p.Data...))
	}
	return grid.NewDense(grid.Shape{1, 1, 1}, append([]float64(nil), p.Data...))
}
