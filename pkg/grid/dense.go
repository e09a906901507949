package grid

import "fmt"

// Array is a readable three-dimensional array. Implementations may be
// in-memory or deferred; Read returns a concrete copy of the view.
type Array interface {
	Shape() Shape
	Read(view View) (*Dense, error)
}

// Dense is an in-memory row-major float64 array.
type Dense struct {
	shape Shape
	data  []float64
}

// NewDense wraps data with the given shape. A nil data slice allocates a
// zero-filled array.
func NewDense(shape Shape, data []float64) (*Dense, error) {
	for i := 0; i < 3; i++ {
		if shape[i] < 0 {
			return nil, fmt.Errorf("negative extent in %v: %w", shape, ErrShape)
		}
	}
	if data == nil {
		data = make([]float64, shape.Size())
	}
	if len(data) != shape.Size() {
		return nil, fmt.Errorf("data length %d does not match shape %v: %w", len(data), shape, ErrShape)
	}
	return &Dense{shape: shape, data: data}, nil
}

// Zeros returns a zero-filled array.
func Zeros(shape Shape) *Dense {
	return &Dense{shape: shape, data: make([]float64, shape.Size())}
}

// Filled returns an array with every element set to v.
func Filled(shape Shape, v float64) *Dense {
	d := Zeros(shape)
	for i := range d.data {
		d.data[i] = v
	}
	return d
}

// FromFunc builds an array by evaluating fn at every index.
func FromFunc(shape Shape, fn func(z, y, x int) float64) *Dense {
	d := Zeros(shape)
	i := 0
	for z := 0; z < shape[0]; z++ {
		for y := 0; y < shape[1]; y++ {
			for x := 0; x < shape[2]; x++ {
				d.data[i] = fn(z, y, x)
				i++
			}
		}
	}
	return d
}

// Shape returns the array extents.
func (d *Dense) Shape() Shape { return d.shape }

// Data returns the backing slice. It is shared, not copied.
func (d *Dense) Data() []float64 { return d.data }

// At returns the element at (z, y, x).
func (d *Dense) At(z, y, x int) float64 { return d.data[d.shape.Index(z, y, x)] }

// Set stores v at (z, y, x).
func (d *Dense) Set(z, y, x int, v float64) { d.data[d.shape.Index(z, y, x)] = v }

// Clone returns a deep copy.
func (d *Dense) Clone() *Dense {
	out := make([]float64, len(d.data))
	copy(out, d.data)
	return &Dense{shape: d.shape, data: out}
}

// Read copies the selected view into a new array.
func (d *Dense) Read(view View) (*Dense, error) {
	v, err := view.Normalize(d.shape)
	if err != nil {
		return nil, err
	}
	if v.IsFull(d.shape) {
		return d.Clone(), nil
	}
	out := Zeros(v.Shape())
	i := 0
	for a := 0; a < v[0].Len(); a++ {
		z := v[0].At(a)
		for b := 0; b < v[1].Len(); b++ {
			y := v[1].At(b)
			base := d.shape.Index(z, y, 0)
			for c := 0; c < v[2].Len(); c++ {
				out.data[i] = d.data[base+v[2].At(c)]
				i++
			}
		}
	}
	return out, nil
}

// Transpose returns a copy whose axis i is axis perm[i] of d.
func (d *Dense) Transpose(perm [3]int) (*Dense, error) {
	seen := [3]bool{}
	for _, p := range perm {
		if p < 0 || p > 2 || seen[p] {
			return nil, fmt.Errorf("invalid axis permutation %v: %w", perm, ErrShape)
		}
		seen[p] = true
	}
	if perm == [3]int{0, 1, 2} {
		return d.Clone(), nil
	}
	var shape Shape
	for i := 0; i < 3; i++ {
		shape[i] = d.shape[perm[i]]
	}
	out := Zeros(shape)
	src := d.shape.Strides()
	stride := [3]int{src[perm[0]], src[perm[1]], src[perm[2]]}
	i := 0
	for a := 0; a < shape[0]; a++ {
		for b := 0; b < shape[1]; b++ {
			base := a*stride[0] + b*stride[1]
			for c := 0; c < shape[2]; c++ {
				out.data[i] = d.data[base+c*stride[2]]
				i++
			}
		}
	}
	return out, nil
}

// Line copies the elements along axis a at transverse indices (p, q).
func (d *Dense) Line(a Axis, p, q int) []float64 {
	n := d.shape[a]
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = d.data[lineIndex(d.shape, a, i, p, q)]
	}
	return out
}

// SetLine stores values along axis a at transverse indices (p, q).
func (d *Dense) SetLine(a Axis, p, q int, values []float64) {
	for i, v := range values {
		d.data[lineIndex(d.shape, a, i, p, q)] = v
	}
}

func lineIndex(s Shape, a Axis, i, p, q int) int {
	return s.Index(a.Place(i, p, q))
}
