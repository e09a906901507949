package cube

import (
	"fmt"
	"math"

	"spectralcube/pkg/grid"
	"spectralcube/pkg/units"
	"spectralcube/pkg/wcs"
)

// World returns the world coordinates of every voxel in view as three
// arrays shaped like the view, in array axis order: spectral, latitude,
// longitude. Only the voxels in view are transformed.
func (c *Cube) World(view grid.View) ([3]*grid.Dense, error) {
	var out [3]*grid.Dense
	v, err := view.Normalize(c.Shape())
	if err != nil {
		return out, err
	}
	shape := v.Shape()
	for a := range out {
		out[a] = grid.Zeros(shape)
	}
	pix := make([]float64, 3)
	for i := 0; i < shape[0]; i++ {
		for j := 0; j < shape[1]; j++ {
			for k := 0; k < shape[2]; k++ {
				pix[0], pix[1], pix[2] = float64(v[2].At(k)), float64(v[1].At(j)), float64(v[0].At(i))
				w, err := c.wcs.PixelToWorld(pix)
				if err != nil {
					return out, err
				}
				for a := grid.Spectral; a <= grid.Lon; a++ {
					out[a].Set(i, j, k, w[wcs.WorldAxis(a)])
				}
			}
		}
	}
	return out, nil
}

// SpectralAxis returns the world value of every channel at the first
// spatial pixel, in SpectralUnit.
func (c *Cube) SpectralAxis() ([]float64, error) {
	v := grid.FullView()
	v[grid.Lat], v[grid.Lon] = grid.Index(0), grid.Index(0)
	w, err := c.World(v)
	if err != nil {
		return nil, err
	}
	return w[grid.Spectral].Data(), nil
}

// SpatialCoordinateMap returns the latitude and longitude of every spatial
// pixel of the first channel, each shaped (1, ny, nx).
func (c *Cube) SpatialCoordinateMap() (lat, lon *grid.Dense, err error) {
	w, err := c.World(grid.Plane(grid.Spectral, 0))
	if err != nil {
		return nil, nil, err
	}
	return w[grid.Lat], w[grid.Lon], nil
}

// ClosestSpectralChannel returns the channel whose spectral value is
// nearest to q, preferring the lower index on ties. q is converted to the
// spectral unit of the cube first; restHz is used for velocity conversions
// and may be 0 when none is needed.
func (c *Cube) ClosestSpectralChannel(q units.Quantity, restHz float64) (int, error) {
	axis, err := c.SpectralAxis()
	if err != nil {
		return 0, err
	}
	if len(axis) == 0 {
		return 0, fmt.Errorf("no spectral channels: %w", grid.ErrShape)
	}
	v := q.Value
	if q.Unit != "" && !units.Equivalent(q.Unit, c.SpectralUnit()) {
		if v, err = q.To(c.SpectralUnit(), restHz); err != nil {
			return 0, fmt.Errorf("closest channel to %v %s: %w", q.Value, q.Unit, err)
		}
	}
	best, bestDist := 0, math.Inf(1)
	for i, s := range axis {
		if d := math.Abs(s - v); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best, nil
}
