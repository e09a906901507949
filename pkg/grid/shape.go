// Package grid provides the array primitives shared by the cube packages:
// three-dimensional shapes, strided views, dense and boolean arrays, and a
// chunked backend that only loads the chunks a view touches.
//
// Arrays are stored row-major with axis 0 varying slowest. After a cube is
// oriented, axis 0 is spectral, axis 1 is latitude and axis 2 is longitude.
package grid

import (
	"fmt"
	"math"
	"strings"
)

// Axis identifies one of the three array axes of an oriented cube.
type Axis int

const (
	// Spectral is the spectral axis (always axis 0 after orientation).
	Spectral Axis = iota
	// Lat is the celestial latitude axis.
	Lat
	// Lon is the celestial longitude axis.
	Lon
)

// Valid reports whether a names one of the three axes.
func (a Axis) Valid() bool { return a >= Spectral && a <= Lon }

func (a Axis) String() string {
	switch a {
	case Spectral:
		return "spectral"
	case Lat:
		return "lat"
	case Lon:
		return "lon"
	default:
		return fmt.Sprintf("axis(%d)", int(a))
	}
}

// ParseAxis accepts an axis name as printed by String, or its index.
func ParseAxis(s string) (Axis, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "spectral", "0":
		return Spectral, nil
	case "lat", "1":
		return Lat, nil
	case "lon", "2":
		return Lon, nil
	}
	return 0, fmt.Errorf("unknown axis %q: %w", s, ErrOutOfRange)
}

// Others returns the two axes transverse to a, in increasing order.
func (a Axis) Others() (Axis, Axis) {
	switch a {
	case Spectral:
		return Lat, Lon
	case Lat:
		return Spectral, Lon
	default:
		return Spectral, Lat
	}
}

// Shape is the extent of a three-dimensional array along each axis.
type Shape [3]int

// Size returns the number of elements.
func (s Shape) Size() int { return s[0] * s[1] * s[2] }

// Strides returns the row-major element strides.
func (s Shape) Strides() [3]int { return [3]int{s[1] * s[2], s[2], 1} }

// Index returns the flat offset of (z, y, x).
func (s Shape) Index(z, y, x int) int { return (z*s[1]+y)*s[2] + x }

// Contains reports whether (z, y, x) lies inside the shape.
func (s Shape) Contains(z, y, x int) bool {
	return z >= 0 && z < s[0] && y >= 0 && y < s[1] && x >= 0 && x < s[2]
}

// Drop returns the two remaining extents after removing axis a.
func (s Shape) Drop(a Axis) [2]int {
	p, q := a.Others()
	return [2]int{s[p], s[q]}
}

func (s Shape) String() string { return fmt.Sprintf("(%d, %d, %d)", s[0], s[1], s[2]) }

// Broadcastable reports whether a and b are compatible under broadcasting:
// along every axis the extents are equal or one of them is 1.
func Broadcastable(a, b Shape) bool {
	for i := 0; i < 3; i++ {
		if a[i] != b[i] && a[i] != 1 && b[i] != 1 {
			return false
		}
	}
	return true
}

// BroadcastShape returns the shape that a and b broadcast to.
func BroadcastShape(a, b Shape) (Shape, error) {
	if !Broadcastable(a, b) {
		return Shape{}, fmt.Errorf("cannot broadcast %v with %v: %w", a, b, ErrShape)
	}
	var out Shape
	for i := 0; i < 3; i++ {
		out[i] = a[i]
		if a[i] == 1 {
			out[i] = b[i]
		}
	}
	return out, nil
}

// End marks an open upper bound in a Range.
const End = math.MaxInt

// Range selects indices Start, Start+Step, ... below Stop along one axis.
// Negative Start/Stop count from the end of the axis; a zero Step means 1.
type Range struct {
	Start int
	Stop  int
	Step  int
}

// All selects the whole axis.
func All() Range { return Range{Start: 0, Stop: End, Step: 1} }

// Span selects [start, stop).
func Span(start, stop int) Range { return Range{Start: start, Stop: stop, Step: 1} }

// Strided selects [start, stop) every step indices.
func Strided(start, stop, step int) Range { return Range{Start: start, Stop: stop, Step: step} }

// Index selects the single index i, keeping the axis with length 1.
func Index(i int) Range { return Range{Start: i, Stop: i + 1, Step: 1} }

// Len returns the number of selected indices of a normalized range.
func (r Range) Len() int {
	if r.Stop <= r.Start {
		return 0
	}
	return (r.Stop - r.Start + r.Step - 1) / r.Step
}

// At returns the i-th selected index of a normalized range.
func (r Range) At(i int) int { return r.Start + i*r.Step }

func (r Range) normalize(n int) (Range, error) {
	if r.Step == 0 {
		r.Step = 1
	}
	if r.Step < 0 {
		return Range{}, fmt.Errorf("negative step %d: %w", r.Step, ErrShape)
	}
	if r.Start < 0 {
		r.Start += n
	}
	if r.Stop != End && r.Stop < 0 {
		r.Stop += n
	}
	if r.Start < 0 {
		r.Start = 0
	}
	if r.Stop > n {
		r.Stop = n
	}
	if r.Start > n {
		r.Start = n
	}
	if r.Stop < r.Start {
		r.Stop = r.Start
	}
	// Canonical stop so that equal selections compare equal.
	r.Stop = r.Start + r.Len()*r.Step
	if r.Stop > n {
		r.Stop = n
	}
	return r, nil
}

// View is a strided selection along each of the three axes.
type View [3]Range

// FullView selects every element.
func FullView() View { return View{All(), All(), All()} }

// Plane selects index i along axis a and everything along the other axes.
func Plane(a Axis, i int) View {
	v := FullView()
	v[a] = Index(i)
	return v
}

// Ray selects the full extent of axis a at transverse indices (p, q) of
// the two remaining axes in increasing order.
func Ray(a Axis, p, q int) View {
	v := View{}
	o1, o2 := a.Others()
	v[a] = All()
	v[o1] = Index(p)
	v[o2] = Index(q)
	return v
}

// Normalize resolves negative and open bounds against shape.
func (v View) Normalize(shape Shape) (View, error) {
	var out View
	for i := 0; i < 3; i++ {
		r, err := v[i].normalize(shape[i])
		if err != nil {
			return View{}, err
		}
		out[i] = r
	}
	return out, nil
}

// Shape returns the extents selected by a normalized view.
func (v View) Shape() Shape { return Shape{v[0].Len(), v[1].Len(), v[2].Len()} }

// IsFull reports whether the normalized view covers all of shape.
func (v View) IsFull(shape Shape) bool {
	for i := 0; i < 3; i++ {
		if v[i].Start != 0 || v[i].Step != 1 || v[i].Len() != shape[i] {
			return false
		}
	}
	return true
}

// Compose returns the view, relative to the base array, of inner taken
// relative to the normalized outer view v.
func (v View) Compose(inner View) (View, error) {
	in, err := inner.Normalize(v.Shape())
	if err != nil {
		return View{}, err
	}
	var out View
	for i := 0; i < 3; i++ {
		o := v[i]
		start := o.Start + in[i].Start*o.Step
		step := o.Step * in[i].Step
		out[i] = Range{Start: start, Stop: start + in[i].Len()*step, Step: step}
	}
	return out, nil
}

// Place returns the voxel at index i along a and transverse indices (p, q)
// on the other axes, in increasing axis order.
func (a Axis) Place(i, p, q int) (z, y, x int) {
	switch a {
	case Spectral:
		return i, p, q
	case Lat:
		return p, i, q
	default:
		return p, q, i
	}
}
