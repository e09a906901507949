// Package lazy exposes masked cube data as filled, reducible arrays and
// runs chunk-parallel reductions over them.
//
// Nothing here loads more than the requested view. Materialize is the one
// place where a deferred array is turned into a full in-memory copy.
package lazy

import (
	"math"

	"spectralcube/pkg/grid"
	"spectralcube/pkg/mask"
	"spectralcube/pkg/wcs"
)

// Source is readable data with a per-voxel validity mask.
type Source interface {
	Shape() grid.Shape
	ReadValid(view grid.View) (*grid.Dense, *grid.Bool, error)
}

// FilledView is the masked data of a cube with excluded and non-finite
// voxels replaced by Fill.
type FilledView struct {
	Data      grid.Array
	Mask      mask.Mask
	WCS       wcs.Transform
	Tolerance float64
	Fill      float64
}

// WithFill returns a copy of the view using fill.
func (f *FilledView) WithFill(fill float64) *FilledView {
	out := *f
	out.Fill = fill
	return &out
}

func (f *FilledView) Shape() grid.Shape { return f.Data.Shape() }

func (f *FilledView) target() mask.Target {
	return mask.Target{Data: f.Data, WCS: f.WCS, Tolerance: f.Tolerance}
}

// Include evaluates the mask alone on view. Non-finite values are not
// excluded by Include.
func (f *FilledView) Include(view grid.View) (*grid.Bool, error) {
	if f.Mask == nil {
		return mask.All{}.Include(f.target(), view)
	}
	return f.Mask.Include(f.target(), view)
}

// ReadValid reads view, substitutes Fill at invalid voxels and returns the
// filled block along with the validity array (included and finite).
func (f *FilledView) ReadValid(view grid.View) (*grid.Dense, *grid.Bool, error) {
	d, err := f.Data.Read(view)
	if err != nil {
		return nil, nil, err
	}
	valid, err := f.Include(view)
	if err != nil {
		return nil, nil, err
	}
	vals, ok := d.Data(), valid.Data()
	for i, v := range vals {
		if !ok[i] || math.IsNaN(v) || math.IsInf(v, 0) {
			ok[i] = false
			vals[i] = f.Fill
		}
	}
	return d, valid, nil
}

// Read implements grid.Array.
func (f *FilledView) Read(view grid.View) (*grid.Dense, error) {
	d, _, err := f.ReadValid(view)
	return d, err
}

// Valid returns the validity array of view.
func (f *FilledView) Valid(view grid.View) (*grid.Bool, error) {
	_, v, err := f.ReadValid(view)
	return v, err
}

// Flattened returns the valid values of view in row-major order.
func (f *FilledView) Flattened(view grid.View) ([]float64, error) {
	d, valid, err := f.ReadValid(view)
	if err != nil {
		return nil, err
	}
	ok := valid.Data()
	out := make([]float64, 0, valid.Count())
	for i, v := range d.Data() {
		if ok[i] {
			out = append(out, v)
		}
	}
	return out, nil
}

// Dense adapts a plain array to Source, treating non-finite values as
// invalid.
type Dense struct {
	grid.Array
}

func (d Dense) ReadValid(view grid.View) (*grid.Dense, *grid.Bool, error) {
	out, err := d.Array.Read(view)
	if err != nil {
		return nil, nil, err
	}
	valid, err := grid.NewBool(out.Shape(), nil)
	if err != nil {
		return nil, nil, err
	}
	ok := valid.Data()
	for i, v := range out.Data() {
		ok[i] = !math.IsNaN(v) && !math.IsInf(v, 0)
	}
	return out, valid, nil
}
