package mask

import (
	"spectralcube/pkg/grid"
	"spectralcube/pkg/wcs"
)

// BooleanArray is an explicit mask backed by a boolean array. Extents of 1
// broadcast along that axis.
type BooleanArray struct {
	arr *grid.Bool
	wcs wcs.Transform
}

// NewBooleanArray returns a mask over arr registered with transform t, which
// may be nil. With include false, true elements of arr mark excluded voxels.
func NewBooleanArray(arr *grid.Bool, t wcs.Transform, include bool) *BooleanArray {
	if !include {
		arr = arr.Not()
	}
	if w, ok := t.(*wcs.WCS); ok && w == nil {
		t = nil
	}
	return &BooleanArray{arr: arr, wcs: t}
}

// FromBool is NewBooleanArray(arr, nil, true).
func FromBool(arr *grid.Bool) *BooleanArray {
	return NewBooleanArray(arr, nil, true)
}

// Array returns the backing inclusion array.
func (m *BooleanArray) Array() *grid.Bool { return m.arr }

// WCS returns the transform the mask is registered with.
func (m *BooleanArray) WCS() wcs.Transform { return m.wcs }

func (m *BooleanArray) Shape() (grid.Shape, bool) { return m.arr.Shape(), true }

func (m *BooleanArray) Include(t Target, view grid.View) (*grid.Bool, error) {
	if err := wcs.CheckCompatible(m.wcs, t.WCS, t.Tolerance); err != nil {
		return nil, err
	}
	return m.arr.ReadBroadcast(t.Data.Shape(), view)
}

func (m *BooleanArray) Slice(view grid.View) (Mask, error) {
	arr, err := m.arr.Slice(view)
	if err != nil {
		return nil, err
	}
	out := &BooleanArray{arr: arr, wcs: m.wcs}
	if w, ok := m.wcs.(*wcs.WCS); ok {
		out.wcs = wcs.ApplyView(w, view)
	} else {
		// Only concrete transforms can be co-sliced; the sliced mask is
		// then matched by shape alone.
		out.wcs = nil
	}
	return out, nil
}
