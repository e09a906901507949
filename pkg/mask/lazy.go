package mask

import (
	"spectralcube/pkg/grid"
)

// Predicate decides inclusion from a single raw value.
type Predicate func(v float64) bool

// Lazy is a predicate mask. It is evaluated on demand against the raw data
// of the requested view and never materialized.
type Lazy struct {
	fn Predicate
	// data is set when the predicate tests an array other than the target.
	data grid.Array
}

// FromPredicate returns a mask including voxels whose value satisfies fn.
func FromPredicate(fn Predicate) *Lazy {
	return &Lazy{fn: fn}
}

// Bind returns a copy of the mask that tests values of data instead of the
// data it is applied to. data must have the target's extents.
func (m *Lazy) Bind(data grid.Array) *Lazy {
	return &Lazy{fn: m.fn, data: data}
}

func GreaterThan(v float64) *Lazy  { return FromPredicate(func(x float64) bool { return x > v }) }
func GreaterEqual(v float64) *Lazy { return FromPredicate(func(x float64) bool { return x >= v }) }
func LessThan(v float64) *Lazy     { return FromPredicate(func(x float64) bool { return x < v }) }
func LessEqual(v float64) *Lazy    { return FromPredicate(func(x float64) bool { return x <= v }) }

func (m *Lazy) Shape() (grid.Shape, bool) {
	if m.data != nil {
		return m.data.Shape(), true
	}
	return grid.Shape{}, false
}

func (m *Lazy) Include(t Target, view grid.View) (*grid.Bool, error) {
	src := t.Data
	if m.data != nil {
		if err := CheckShape(m, src.Shape()); err != nil {
			return nil, err
		}
		src = m.data
	}
	d, err := src.Read(view)
	if err != nil {
		return nil, err
	}
	out, err := grid.NewBool(d.Shape(), nil)
	if err != nil {
		return nil, err
	}
	keep := out.Data()
	for i, v := range d.Data() {
		keep[i] = m.fn(v)
	}
	return out, nil
}

func (m *Lazy) Slice(view grid.View) (Mask, error) {
	if m.data == nil {
		return m, nil
	}
	sub, err := grid.Sub(m.data, view)
	if err != nil {
		return nil, err
	}
	return &Lazy{fn: m.fn, data: sub}, nil
}
