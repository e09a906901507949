package wcs

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Reindex returns a WCS keeping the axes listed in inds, in that order.
// The number of axes may shrink, as when dropping an axis.
func Reindex(w *WCS, inds []int) (*WCS, error) {
	n := w.NAxis()
	seen := make(map[int]bool, len(inds))
	for _, i := range inds {
		if i < 0 || i >= n || seen[i] {
			return nil, fmt.Errorf("reindex %v of %d axes: %w", inds, n, ErrAxes)
		}
		seen[i] = true
	}
	out := &WCS{
		CRPix: make([]float64, len(inds)),
		CDelt: make([]float64, len(inds)),
		CRVal: make([]float64, len(inds)),
		CType: make([]string, len(inds)),
		CUnit: make([]string, len(inds)),
	}
	for k, i := range inds {
		out.CRPix[k] = w.CRPix[i]
		out.CDelt[k] = w.CDelt[i]
		out.CRVal[k] = w.CRVal[i]
		out.CType[k] = w.CType[i]
		out.CUnit[k] = w.CUnit[i]
	}
	if w.PC != nil {
		pc := mat.NewDense(len(inds), len(inds), nil)
		for a, i := range inds {
			for b, j := range inds {
				pc.Set(a, b, w.PC.At(i, j))
			}
		}
		out.PC = pc
	}
	return out, nil
}

// DropAxis removes world axis i.
func DropAxis(w *WCS, i int) (*WCS, error) {
	inds := make([]int, 0, w.NAxis()-1)
	for k := 0; k < w.NAxis(); k++ {
		if k != i {
			inds = append(inds, k)
		}
	}
	if len(inds) == w.NAxis() {
		return nil, fmt.Errorf("drop axis %d of %d: %w", i, w.NAxis(), ErrAxes)
	}
	return Reindex(w, inds)
}

// SwapAxes exchanges world axes a and b.
func SwapAxes(w *WCS, a, b int) (*WCS, error) {
	inds := make([]int, w.NAxis())
	for k := range inds {
		inds[k] = k
	}
	if a < 0 || b < 0 || a >= len(inds) || b >= len(inds) {
		return nil, fmt.Errorf("swap %d and %d of %d axes: %w", a, b, len(inds), ErrAxes)
	}
	inds[a], inds[b] = inds[b], inds[a]
	return Reindex(w, inds)
}

// ShiftReference moves the reference pixel of axis i as if delta leading
// pixels had been removed.
func ShiftReference(w *WCS, i int, delta float64) *WCS {
	out := w.Copy()
	out.CRPix[i] -= delta
	return out
}

// SliceAxis returns the WCS of the pixel selection start, start+step, ...
// along world axis i.
func SliceAxis(w *WCS, i, start, step int) *WCS {
	out := w.Copy()
	if step <= 0 {
		step = 1
	}
	out.CRPix[i] = (w.CRPix[i]-1-float64(start))/float64(step) + 1
	if step == 1 {
		return out
	}
	if isDiagonalColumn(w, i) {
		out.CDelt[i] *= float64(step)
		return out
	}
	// Off-diagonal terms mix this pixel axis into others, so scale its
	// PC column instead of CDELT.
	for r := 0; r < w.NAxis(); r++ {
		out.PC.Set(r, i, w.PC.At(r, i)*float64(step))
	}
	return out
}

// BinAxis returns the WCS of axis i after averaging every factor adjacent
// pixels into one. New pixel k covers old pixels [k*factor, (k+1)*factor).
func BinAxis(w *WCS, i, factor int) *WCS {
	if factor <= 1 {
		return w.Copy()
	}
	f := float64(factor)
	out := SliceAxis(w, i, 0, factor)
	out.CRPix[i] = (w.CRPix[i]-1)/f + 0.5 + 0.5/f
	return out
}

func isDiagonalColumn(w *WCS, j int) bool {
	if w.PC == nil {
		return true
	}
	for r := 0; r < w.NAxis(); r++ {
		if r != j && w.PC.At(r, j) != 0 {
			return false
		}
	}
	return w.PC.At(j, j) == 1
}

// SetLinearAxis replaces the linear description of axis i, as done when a
// cube is resampled onto a new spectral grid.
func SetLinearAxis(w *WCS, i int, crpix, crval, cdelt float64, unit string) *WCS {
	out := w.Copy()
	out.CRPix[i] = crpix
	out.CRVal[i] = crval
	out.CDelt[i] = cdelt
	if unit != "" {
		out.CUnit[i] = unit
	}
	return out
}

// Equal reports whether a and b describe the same transform within tol.
// Numeric fields are compared with a tolerance relative to their magnitude.
func Equal(a, b *WCS, tol float64) bool {
	if a.NAxis() != b.NAxis() {
		return false
	}
	for i := 0; i < a.NAxis(); i++ {
		if a.CType[i] != b.CType[i] || a.Unit(i) != b.Unit(i) {
			return false
		}
		if !approxEqual(a.CRPix[i], b.CRPix[i], tol) || !approxEqual(a.CDelt[i], b.CDelt[i], tol) ||
			!approxEqual(a.CRVal[i], b.CRVal[i], tol) {
			return false
		}
		for j := 0; j < a.NAxis(); j++ {
			if !approxEqual(a.PCAt(i, j), b.PCAt(i, j), tol) {
				return false
			}
		}
	}
	return true
}

func approxEqual(a, b, tol float64) bool {
	scale := math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
	return math.Abs(a-b) <= tol*scale
}

// CheckCompatible returns ErrCoordinateMismatch unless a and b agree within
// tol. Concrete WCS values are compared field by field; other transforms
// are compared by sampling the pixel grid origin and unit offsets.
func CheckCompatible(a, b Transform, tol float64) error {
	if a == nil || b == nil {
		return nil
	}
	if wa, ok := a.(*WCS); ok {
		if wb, ok := b.(*WCS); ok {
			if Equal(wa, wb, tol) {
				return nil
			}
			return ErrCoordinateMismatch
		}
	}
	if a.NAxis() != b.NAxis() {
		return fmt.Errorf("%d vs %d axes: %w", a.NAxis(), b.NAxis(), ErrCoordinateMismatch)
	}
	n := a.NAxis()
	for k := -1; k < n; k++ {
		pix := make([]float64, n)
		if k >= 0 {
			pix[k] = 1
		}
		wa, err := a.PixelToWorld(pix)
		if err != nil {
			return err
		}
		wb, err := b.PixelToWorld(pix)
		if err != nil {
			return err
		}
		for i := range wa {
			if !approxEqual(wa[i], wb[i], tol) {
				return fmt.Errorf("axis %d differs at pixel %v: %w", i, pix, ErrCoordinateMismatch)
			}
		}
	}
	return nil
}

// Orientation describes how to reorder a cube so that array axis 0 is
// spectral, axis 1 latitude and axis 2 longitude.
type Orientation struct {
	// Perm is the array transpose: new array axis i is old array axis Perm[i].
	Perm [3]int
	// Axes lists the world axes of the reordered WCS in FITS order
	// (longitude, latitude, spectral).
	Axes []int
}

// Orient finds the spectral and celestial axes of a three-axis WCS whose
// array axes are stored in reverse world-axis order. When no celestial
// pair exists, the two non-spectral axes keep their relative order.
func Orient(w *WCS) (Orientation, error) {
	if w.NAxis() != 3 {
		return Orientation{}, fmt.Errorf("need 3 axes, got %d: %w", w.NAxis(), ErrAxes)
	}
	spec := FindAxis(w, Spectral)
	lon := FindAxis(w, Longitude)
	lat := FindAxis(w, Latitude)
	if spec < 0 {
		return Orientation{}, fmt.Errorf("no spectral axis in %v: %w", w.CType, ErrAxes)
	}
	if lon < 0 || lat < 0 {
		var rest []int
		for i := 0; i < 3; i++ {
			if i != spec {
				rest = append(rest, i)
			}
		}
		lon, lat = rest[0], rest[1]
	}
	axes := []int{lon, lat, spec}
	var o Orientation
	o.Axes = axes
	// World axis k lives on array axis 2-k; new array axis i holds world
	// axis axes[2-i].
	for i := 0; i < 3; i++ {
		o.Perm[i] = 2 - axes[2-i]
	}
	return o, nil
}
