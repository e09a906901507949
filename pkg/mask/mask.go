// Package mask implements the boolean mask algebra applied to cube data.
//
// A Mask decides, for every voxel of a requested view, whether the voxel is
// included. Masks never need more than the requested view: explicit masks
// slice their boolean array and predicate masks read only the viewed part of
// the data they test. Masks compose with And and Not and are read-only.
package mask

import (
	"fmt"

	"spectralcube/pkg/grid"
	"spectralcube/pkg/wcs"
)

// Target is the data a mask is applied to.
type Target struct {
	Data grid.Array
	// WCS is the transform of Data. Masks that carry their own transform
	// are checked against it.
	WCS wcs.Transform
	// Tolerance bounds the relative disagreement accepted between a mask
	// transform and WCS.
	Tolerance float64
}

// Mask is a predicate over voxel indices.
type Mask interface {
	// Include returns the inclusion array of view, shaped like the view.
	Include(t Target, view grid.View) (*grid.Bool, error)
	// Shape returns the mask's own extents. The second result is false when
	// the mask takes its shape from the data it is applied to.
	Shape() (grid.Shape, bool)
	// Slice returns the mask restricted to a normalized view of the data.
	Slice(view grid.View) (Mask, error)
}

// Exclude returns the complement of Include.
func Exclude(m Mask, t Target, view grid.View) (*grid.Bool, error) {
	inc, err := m.Include(t, view)
	if err != nil {
		return nil, err
	}
	return inc.Not(), nil
}

// Filled reads view of the target data with excluded voxels replaced by fill.
func Filled(m Mask, t Target, fill float64, view grid.View) (*grid.Dense, error) {
	d, err := t.Data.Read(view)
	if err != nil {
		return nil, err
	}
	inc, err := m.Include(t, view)
	if err != nil {
		return nil, err
	}
	vals, keep := d.Data(), inc.Data()
	for i := range vals {
		if !keep[i] {
			vals[i] = fill
		}
	}
	return d, nil
}

// Flattened returns the included values of view in row-major order.
func Flattened(m Mask, t Target, view grid.View) ([]float64, error) {
	d, err := t.Data.Read(view)
	if err != nil {
		return nil, err
	}
	inc, err := m.Include(t, view)
	if err != nil {
		return nil, err
	}
	keep := inc.Data()
	out := make([]float64, 0, inc.Count())
	for i, v := range d.Data() {
		if keep[i] {
			out = append(out, v)
		}
	}
	return out, nil
}

// Count returns the number of included voxels in view.
func Count(m Mask, t Target, view grid.View) (int, error) {
	inc, err := m.Include(t, view)
	if err != nil {
		return 0, err
	}
	return inc.Count(), nil
}

// CheckShape returns grid.ErrShape when m has its own extents and they do
// not broadcast to shape.
func CheckShape(m Mask, shape grid.Shape) error {
	ms, ok := m.Shape()
	if !ok {
		return nil
	}
	for i := 0; i < 3; i++ {
		if ms[i] != shape[i] && ms[i] != 1 {
			return fmt.Errorf("mask %v against data %v: %w", ms, shape, grid.ErrShape)
		}
	}
	return nil
}
