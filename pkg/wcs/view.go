package wcs

import "spectralcube/pkg/grid"

// WorldAxis returns the world axis of an oriented three-axis transform that
// runs along array axis a.
func WorldAxis(a grid.Axis) int { return 2 - int(a) }

// ApplyView returns the transform of the normalized array selection v of
// an oriented cube.
func ApplyView(w *WCS, v grid.View) *WCS {
	out := w
	for a := grid.Spectral; a <= grid.Lon; a++ {
		r := v[a]
		if r.Start == 0 && r.Step == 1 {
			continue
		}
		out = SliceAxis(out, WorldAxis(a), r.Start, r.Step)
	}
	if out == w {
		return w.Copy()
	}
	return out
}
