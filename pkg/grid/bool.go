package grid

import "fmt"

// Bool is a row-major boolean array. Extents of 1 broadcast against any
// extent when read through ReadBroadcast.
type Bool struct {
	shape Shape
	data  []bool
}

// NewBool wraps data with the given shape. A nil data slice allocates an
// all-false array.
func NewBool(shape Shape, data []bool) (*Bool, error) {
	if data == nil {
		data = make([]bool, shape.Size())
	}
	if len(data) != shape.Size() {
		return nil, fmt.Errorf("mask length %d does not match shape %v: %w", len(data), shape, ErrShape)
	}
	return &Bool{shape: shape, data: data}, nil
}

// TrueBool returns an all-true array.
func TrueBool(shape Shape) *Bool {
	b := &Bool{shape: shape, data: make([]bool, shape.Size())}
	for i := range b.data {
		b.data[i] = true
	}
	return b
}

// Shape returns the array extents.
func (b *Bool) Shape() Shape { return b.shape }

// Data returns the backing slice. It is shared, not copied.
func (b *Bool) Data() []bool { return b.data }

// At returns the element at (z, y, x).
func (b *Bool) At(z, y, x int) bool { return b.data[b.shape.Index(z, y, x)] }

// Any reports whether any element is true.
func (b *Bool) Any() bool {
	for _, v := range b.data {
		if v {
			return true
		}
	}
	return false
}

// Count returns the number of true elements.
func (b *Bool) Count() int {
	n := 0
	for _, v := range b.data {
		if v {
			n++
		}
	}
	return n
}

// Not returns the element-wise negation.
func (b *Bool) Not() *Bool {
	out := &Bool{shape: b.shape, data: make([]bool, len(b.data))}
	for i, v := range b.data {
		out.data[i] = !v
	}
	return out
}

// And returns the element-wise conjunction of two arrays of equal shape.
func (b *Bool) And(o *Bool) (*Bool, error) {
	if b.shape != o.shape {
		return nil, fmt.Errorf("and of %v with %v: %w", b.shape, o.shape, ErrShape)
	}
	out := &Bool{shape: b.shape, data: make([]bool, len(b.data))}
	for i := range b.data {
		out.data[i] = b.data[i] && o.data[i]
	}
	return out, nil
}

// ReadBroadcast reads view of the array broadcast to target. Axes of
// extent 1 repeat their single element.
func (b *Bool) ReadBroadcast(target Shape, view View) (*Bool, error) {
	if !Broadcastable(b.shape, target) {
		return nil, fmt.Errorf("mask %v against data %v: %w", b.shape, target, ErrShape)
	}
	for i := 0; i < 3; i++ {
		if b.shape[i] != target[i] && b.shape[i] != 1 {
			return nil, fmt.Errorf("mask %v is larger than data %v: %w", b.shape, target, ErrShape)
		}
	}
	v, err := view.Normalize(target)
	if err != nil {
		return nil, err
	}
	out := &Bool{shape: v.Shape(), data: make([]bool, v.Shape().Size())}
	pick := func(axis, idx int) int {
		if b.shape[axis] == 1 {
			return 0
		}
		return idx
	}
	i := 0
	for a := 0; a < v[0].Len(); a++ {
		z := pick(0, v[0].At(a))
		for c := 0; c < v[1].Len(); c++ {
			y := pick(1, v[1].At(c))
			for d := 0; d < v[2].Len(); d++ {
				out.data[i] = b.data[b.shape.Index(z, y, pick(2, v[2].At(d)))]
				i++
			}
		}
	}
	return out, nil
}

// Slice returns the sub-array selected by view, keeping broadcast axes of
// extent 1 intact.
func (b *Bool) Slice(view View) (*Bool, error) {
	var target View
	for i := 0; i < 3; i++ {
		if b.shape[i] == 1 {
			target[i] = All()
			continue
		}
		target[i] = view[i]
	}
	return b.ReadBroadcast(b.shape, target)
}

// Line copies the elements along axis a at transverse indices (p, q).
func (b *Bool) Line(a Axis, p, q int) []bool {
	out := make([]bool, b.shape[a])
	for i := range out {
		out[i] = b.data[lineIndex(b.shape, a, i, p, q)]
	}
	return out
}
