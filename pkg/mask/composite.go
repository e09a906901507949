package mask

import (
	"fmt"

	"spectralcube/pkg/grid"
)

// Composite includes a voxel when both of its operands do.
type Composite struct {
	a, b Mask
}

// And returns the conjunction of a and b. It fails with grid.ErrShape when
// both masks have their own extents and those do not broadcast.
func And(a, b Mask) (*Composite, error) {
	sa, oka := a.Shape()
	sb, okb := b.Shape()
	if oka && okb && !grid.Broadcastable(sa, sb) {
		return nil, fmt.Errorf("and of masks %v and %v: %w", sa, sb, grid.ErrShape)
	}
	return &Composite{a: a, b: b}, nil
}

// Operands returns the two combined masks.
func (m *Composite) Operands() (Mask, Mask) { return m.a, m.b }

func (m *Composite) Shape() (grid.Shape, bool) {
	sa, oka := m.a.Shape()
	sb, okb := m.b.Shape()
	switch {
	case oka && okb:
		s, err := grid.BroadcastShape(sa, sb)
		if err != nil {
			return sa, true
		}
		return s, true
	case oka:
		return sa, true
	case okb:
		return sb, true
	}
	return grid.Shape{}, false
}

func (m *Composite) Include(t Target, view grid.View) (*grid.Bool, error) {
	ia, err := m.a.Include(t, view)
	if err != nil {
		return nil, err
	}
	ib, err := m.b.Include(t, view)
	if err != nil {
		return nil, err
	}
	return ia.And(ib)
}

func (m *Composite) Slice(view grid.View) (Mask, error) {
	a, err := m.a.Slice(view)
	if err != nil {
		return nil, err
	}
	b, err := m.b.Slice(view)
	if err != nil {
		return nil, err
	}
	return &Composite{a: a, b: b}, nil
}

// Inverted includes exactly the voxels its operand excludes.
type Inverted struct {
	m Mask
}

// Not returns the complement of m.
func Not(m Mask) *Inverted { return &Inverted{m: m} }

func (m *Inverted) Shape() (grid.Shape, bool) { return m.m.Shape() }

func (m *Inverted) Include(t Target, view grid.View) (*grid.Bool, error) {
	return Exclude(m.m, t, view)
}

func (m *Inverted) Slice(view grid.View) (Mask, error) {
	s, err := m.m.Slice(view)
	if err != nil {
		return nil, err
	}
	return Not(s), nil
}

// All includes every voxel.
type All struct{}

func (All) Shape() (grid.Shape, bool) { return grid.Shape{}, false }

func (All) Include(t Target, view grid.View) (*grid.Bool, error) {
	v, err := view.Normalize(t.Data.Shape())
	if err != nil {
		return nil, err
	}
	return grid.TrueBool(v.Shape()), nil
}

func (m All) Slice(grid.View) (Mask, error) { return m, nil }
