// Package wcs implements the pixel to world coordinate transform consumed by
// the cube packages.
//
// WCS follows the FITS linear model: intermediate coordinates are
// CDELT * PC * (p - CRPIX + 1) for 0-based pixel p, which are then either
// offset by CRVAL (linear and spectral axes) or deprojected through a
// zenithal projection (celestial TAN and SIN). Axis i of a WCS is FITS axis
// i+1, so it runs opposite to array axis order.
package wcs

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Transform is an opaque pixel <-> world bijection over NAxis axes.
// Pixel coordinates are 0-based and ordered like the world axes.
type Transform interface {
	NAxis() int
	PixelToWorld(pix []float64) ([]float64, error)
	WorldToPixel(world []float64) ([]float64, error)
	AxisName(i int) string
	Unit(i int) string
}

// WCS is a FITS-style world coordinate system. Values are treated as
// immutable once handed to a cube; every manipulation returns a copy.
type WCS struct {
	CRPix []float64
	CDelt []float64
	CRVal []float64
	CType []string
	CUnit []string
	// PC is the NAxis x NAxis rotation/skew matrix. Nil means identity.
	PC *mat.Dense
}

// New returns an identity-like WCS with n axes: CRPIX 1, CDELT 1, CRVAL 0.
func New(n int) *WCS {
	w := &WCS{
		CRPix: make([]float64, n),
		CDelt: make([]float64, n),
		CRVal: make([]float64, n),
		CType: make([]string, n),
		CUnit: make([]string, n),
	}
	for i := 0; i < n; i++ {
		w.CRPix[i] = 1
		w.CDelt[i] = 1
	}
	return w
}

// Validate checks that every per-axis slice has NAxis entries and that the
// PC matrix is square and invertible.
func (w *WCS) Validate() error {
	n := len(w.CRPix)
	if len(w.CDelt) != n || len(w.CRVal) != n || len(w.CType) != n || len(w.CUnit) != n {
		return fmt.Errorf("inconsistent axis count: %w", ErrAxes)
	}
	for i, d := range w.CDelt {
		if d == 0 || math.IsNaN(d) || math.IsInf(d, 0) {
			return fmt.Errorf("axis %d has invalid CDELT %v: %w", i, d, ErrAxes)
		}
	}
	if w.PC != nil {
		r, c := w.PC.Dims()
		if r != n || c != n {
			return fmt.Errorf("PC is %dx%d for %d axes: %w", r, c, n, ErrAxes)
		}
		if mat.Det(w.PC) == 0 {
			return ErrSingular
		}
	}
	if lon, lat := w.celestialPair(); (lon < 0) != (lat < 0) {
		return fmt.Errorf("projected celestial axis without its pair: %w", ErrAxes)
	}
	return nil
}

// NAxis returns the number of axes.
func (w *WCS) NAxis() int { return len(w.CRPix) }

// AxisName returns the CTYPE of axis i.
func (w *WCS) AxisName(i int) string { return w.CType[i] }

// Unit returns the CUNIT of axis i. Celestial axes default to "deg".
func (w *WCS) Unit(i int) string {
	if w.CUnit[i] == "" && IsCelestial(w, i) {
		return "deg"
	}
	return w.CUnit[i]
}

// PCAt returns PC[i][j], treating a nil matrix as identity.
func (w *WCS) PCAt(i, j int) float64 {
	if w.PC == nil {
		if i == j {
			return 1
		}
		return 0
	}
	return w.PC.At(i, j)
}

// Copy returns a deep copy.
func (w *WCS) Copy() *WCS {
	out := &WCS{
		CRPix: append([]float64(nil), w.CRPix...),
		CDelt: append([]float64(nil), w.CDelt...),
		CRVal: append([]float64(nil), w.CRVal...),
		CType: append([]string(nil), w.CType...),
		CUnit: append([]string(nil), w.CUnit...),
	}
	if w.PC != nil {
		out.PC = mat.DenseCopyOf(w.PC)
	}
	return out
}

// celestialPair returns the indices of the projected longitude and latitude
// axes, or -1 for each when the transform has no projected pair.
func (w *WCS) celestialPair() (lon, lat int) {
	lon, lat = -1, -1
	for i, c := range w.CType {
		if projectionCode(c) == "" {
			continue
		}
		switch TypeOf(c) {
		case Longitude:
			lon = i
		case Latitude:
			lat = i
		}
	}
	return lon, lat
}

// PixelToWorld maps 0-based pixel coordinates to world coordinates.
func (w *WCS) PixelToWorld(pix []float64) ([]float64, error) {
	n := w.NAxis()
	if len(pix) != n {
		return nil, fmt.Errorf("got %d pixel coordinates for %d axes: %w", len(pix), n, ErrAxes)
	}
	inter := make([]float64, n)
	for i := 0; i < n; i++ {
		var s float64
		for j := 0; j < n; j++ {
			s += w.PCAt(i, j) * (pix[j] - (w.CRPix[j] - 1))
		}
		inter[i] = w.CDelt[i] * s
	}
	world := make([]float64, n)
	for i := 0; i < n; i++ {
		world[i] = w.CRVal[i] + inter[i]
	}
	if lon, lat := w.celestialPair(); lon >= 0 {
		code := projectionCode(w.CType[lon])
		a, d, err := deproject(code, inter[lon], inter[lat], w.CRVal[lon], w.CRVal[lat])
		if err != nil {
			return nil, err
		}
		world[lon], world[lat] = a, d
	}
	return world, nil
}

// WorldToPixel maps world coordinates to 0-based pixel coordinates.
func (w *WCS) WorldToPixel(world []float64) ([]float64, error) {
	n := w.NAxis()
	if len(world) != n {
		return nil, fmt.Errorf("got %d world coordinates for %d axes: %w", len(world), n, ErrAxes)
	}
	inter := make([]float64, n)
	for i := 0; i < n; i++ {
		inter[i] = world[i] - w.CRVal[i]
	}
	if lon, lat := w.celestialPair(); lon >= 0 {
		code := projectionCode(w.CType[lon])
		x, y, err := project(code, world[lon], world[lat], w.CRVal[lon], w.CRVal[lat])
		if err != nil {
			return nil, err
		}
		inter[lon], inter[lat] = x, y
	}
	u := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		u.SetVec(i, inter[i]/w.CDelt[i])
	}
	d := mat.NewVecDense(n, nil)
	if w.PC == nil {
		d.CopyVec(u)
	} else if err := d.SolveVec(w.PC, u); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSingular, err)
	}
	pix := make([]float64, n)
	for i := 0; i < n; i++ {
		pix[i] = d.AtVec(i) + w.CRPix[i] - 1
	}
	return pix, nil
}
