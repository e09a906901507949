package cube

import (
	"fmt"

	"spectralcube/internal/observability"
	"spectralcube/pkg/grid"
	"spectralcube/pkg/mask"
	"spectralcube/pkg/units"
	"spectralcube/pkg/wcs"
)

// WithMask returns a cube masked by m. With inherit the new mask is the
// conjunction of the current mask and m; otherwise m replaces it.
func (c *Cube) WithMask(m mask.Mask, inherit bool) (*Cube, error) {
	if err := mask.CheckShape(m, c.Shape()); err != nil {
		return nil, err
	}
	n := c.derive()
	if inherit && c.mask != nil {
		both, err := mask.And(c.mask, m)
		if err != nil {
			return nil, err
		}
		n.mask = both
	} else {
		n.mask = m
	}
	return n, nil
}

// WithFillValue returns a cube that fills excluded voxels with v. No data
// is copied.
func (c *Cube) WithFillValue(v float64) *Cube {
	n := c.derive()
	n.fill = v
	return n
}

// WithBeam returns a single-resolution cube with beam b.
func (c *Cube) WithBeam(b Beam) *Cube {
	n := c.derive()
	n.beam, n.beams = &b, nil
	return n
}

// Slice returns the cube restricted to view. The transform and the mask
// are sliced with the data and the normalized view is recorded under the
// "slice" metadata key as (start, stop, step) triples.
func (c *Cube) Slice(view grid.View) (*Cube, error) {
	v, err := view.Normalize(c.Shape())
	if err != nil {
		return nil, err
	}
	n, err := c.slice(v)
	if err != nil {
		return nil, err
	}
	n.meta["slice"] = [][3]int{
		{v[0].Start, v[0].Stop, v[0].Step},
		{v[1].Start, v[1].Stop, v[1].Step},
		{v[2].Start, v[2].Stop, v[2].Step},
	}
	return n, nil
}

func (c *Cube) slice(v grid.View) (*Cube, error) {
	data, err := grid.Sub(c.data, v)
	if err != nil {
		return nil, err
	}
	n := c.derive()
	n.data = data
	n.wcs = wcs.ApplyView(c.wcs, v)
	if c.mask != nil {
		if n.mask, err = c.mask.Slice(v); err != nil {
			return nil, err
		}
	}
	if c.beams != nil {
		r := v[grid.Spectral]
		n.beams = make([]Beam, r.Len())
		for i := range n.beams {
			n.beams[i] = c.beams[r.At(i)]
		}
	}
	return n, nil
}

// Subcube returns the contiguous block selected by view. Strided views
// are rejected; use Slice for those.
func (c *Cube) Subcube(view grid.View) (*Cube, error) {
	v, err := view.Normalize(c.Shape())
	if err != nil {
		return nil, err
	}
	for a, r := range v {
		if r.Step != 1 {
			return nil, fmt.Errorf("subcube step %d along %v: %w", r.Step, grid.Axis(a), ErrUnsupportedOperation)
		}
		if r.Len() == 0 {
			return nil, fmt.Errorf("empty subcube along %v: %w", grid.Axis(a), grid.ErrShape)
		}
	}
	return c.slice(v)
}

// SubcubeSlicesFromMask returns the smallest view enclosing every voxel m
// includes. An axis with nothing included gets an empty range. With
// spatialOnly the spectral axis is left whole.
func (c *Cube) SubcubeSlicesFromMask(m mask.Mask, spatialOnly bool) (grid.View, error) {
	if err := mask.CheckShape(m, c.Shape()); err != nil {
		return grid.View{}, err
	}
	inc, err := m.Include(c.target(), grid.FullView())
	if err != nil {
		return grid.View{}, err
	}
	shape := c.Shape()
	lo := [3]int{shape[0], shape[1], shape[2]}
	hi := [3]int{-1, -1, -1}
	for z := 0; z < shape[0]; z++ {
		for y := 0; y < shape[1]; y++ {
			for x := 0; x < shape[2]; x++ {
				if !inc.At(z, y, x) {
					continue
				}
				for a, i := range [3]int{z, y, x} {
					lo[a] = min(lo[a], i)
					hi[a] = max(hi[a], i)
				}
			}
		}
	}
	var v grid.View
	for a := range v {
		if hi[a] < 0 {
			v[a] = grid.Span(0, 0)
			continue
		}
		v[a] = grid.Span(lo[a], hi[a]+1)
	}
	if spatialOnly {
		v[grid.Spectral] = grid.All()
	}
	return v, nil
}

// SubcubeFromMask extracts the smallest subcube enclosing m and applies m
// to it.
func (c *Cube) SubcubeFromMask(m mask.Mask) (*Cube, error) {
	v, err := c.SubcubeSlicesFromMask(m, false)
	if err != nil {
		return nil, err
	}
	masked, err := c.WithMask(m, true)
	if err != nil {
		return nil, err
	}
	return masked.Subcube(v)
}

// SpectralSlab returns the channels between the ones closest to lo and
// hi, inclusive. Bounds given in reverse order are swapped. restHz is the
// rest frequency for velocity conversions, or 0.
func (c *Cube) SpectralSlab(lo, hi units.Quantity, restHz float64) (*Cube, error) {
	ilo, err := c.ClosestSpectralChannel(lo, restHz)
	if err != nil {
		return nil, err
	}
	ihi, err := c.ClosestSpectralChannel(hi, restHz)
	if err != nil {
		return nil, err
	}
	if ilo > ihi {
		ilo, ihi = ihi, ilo
	}
	ihi++

	v := grid.FullView()
	v[grid.Spectral] = grid.Span(ilo, ihi)
	v, err = v.Normalize(c.Shape())
	if err != nil {
		return nil, err
	}
	data, err := grid.Sub(c.data, v)
	if err != nil {
		return nil, err
	}
	n := c.derive()
	n.data = data
	n.wcs = wcs.ShiftReference(c.wcs, wcs.WorldAxis(grid.Spectral), float64(ilo))
	if c.mask != nil {
		sliced, err := c.mask.Slice(v)
		if err != nil {
			observability.Warn(observability.WarnMaskDropped).
				Err(err).
				Msg("mask slicing failed, dropping mask")
			sliced = nil
		}
		n.mask = sliced
	}
	if c.beams != nil {
		n.beams = append([]Beam(nil), c.beams[ilo:ihi]...)
	}
	return n, nil
}
