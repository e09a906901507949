package grid

import "fmt"

// SubArray is a deferred selection of another array. Reads compose the
// selection with the requested view, so only the selected part of the
// parent is ever loaded.
type SubArray struct {
	parent Array
	view   View
}

// Sub returns the view v of a. Nested selections collapse into a single
// view of the innermost array.
func Sub(a Array, v View) (*SubArray, error) {
	if s, ok := a.(*SubArray); ok {
		nv, err := s.view.Compose(v)
		if err != nil {
			return nil, err
		}
		return &SubArray{parent: s.parent, view: nv}, nil
	}
	nv, err := v.Normalize(a.Shape())
	if err != nil {
		return nil, err
	}
	return &SubArray{parent: a, view: nv}, nil
}

// Shape returns the extents of the selection.
func (s *SubArray) Shape() Shape { return s.view.Shape() }

// View returns the selection relative to the parent.
func (s *SubArray) View() View { return s.view }

// Read reads view relative to the selection.
func (s *SubArray) Read(view View) (*Dense, error) {
	v, err := s.view.Compose(view)
	if err != nil {
		return nil, err
	}
	return s.parent.Read(v)
}

// Permuted is a deferred axis permutation of another array: its axis i is
// axis Perm[i] of the parent.
type Permuted struct {
	parent Array
	perm   [3]int
	shape  Shape
}

// Permute returns a lazily transposed view of a. The identity permutation
// returns a unchanged.
func Permute(a Array, perm [3]int) (Array, error) {
	seen := [3]bool{}
	for _, p := range perm {
		if p < 0 || p > 2 || seen[p] {
			return nil, fmt.Errorf("invalid permutation %v: %w", perm, ErrShape)
		}
		seen[p] = true
	}
	if perm == [3]int{0, 1, 2} {
		return a, nil
	}
	if d, ok := a.(*Dense); ok {
		return d.Transpose(perm)
	}
	ps := a.Shape()
	return &Permuted{parent: a, perm: perm, shape: Shape{ps[perm[0]], ps[perm[1]], ps[perm[2]]}}, nil
}

// Shape returns the permuted extents.
func (p *Permuted) Shape() Shape { return p.shape }

// Read loads the matching parent view and transposes it.
func (p *Permuted) Read(view View) (*Dense, error) {
	var pv View
	for i := 0; i < 3; i++ {
		pv[p.perm[i]] = view[i]
	}
	d, err := p.parent.Read(pv)
	if err != nil {
		return nil, err
	}
	return d.Transpose(p.perm)
}
