package geometry

import (
	"spectralcube/pkg/grid"
)

// Broadcast is a per-voxel quantity that depends either on the spectral
// index alone or on the spatial indices alone. Only the varying axes are
// stored; every other index broadcasts.
type Broadcast struct {
	shape grid.Shape
	// spectral has one value per channel when the quantity is spectral.
	spectral []float64
	// spatial is row-major over (lat, lon) otherwise.
	spatial []float64
}

func spectralBroadcast(shape grid.Shape, v []float64) *Broadcast {
	return &Broadcast{shape: shape, spectral: v}
}

func spatialBroadcast(shape grid.Shape, v []float64) *Broadcast {
	return &Broadcast{shape: shape, spatial: v}
}

// Shape returns the full extents the values broadcast to.
func (b *Broadcast) Shape() grid.Shape { return b.shape }

// At returns the value at voxel (z, y, x).
func (b *Broadcast) At(z, y, x int) float64 {
	if b.spectral != nil {
		return b.spectral[z]
	}
	return b.spatial[y*b.shape[2]+x]
}

// Spectral returns the per-channel values, or nil for a spatial quantity.
func (b *Broadcast) Spectral() []float64 { return b.spectral }

// Line returns the values along axis a at transverse indices (p, q), in
// the order used by grid.Ray.
func (b *Broadcast) Line(a grid.Axis, p, q int) []float64 {
	out := make([]float64, b.shape[a])
	for i := range out {
		z, y, x := a.Place(i, p, q)
		out[i] = b.At(z, y, x)
	}
	return out
}

// Read implements grid.Array.
func (b *Broadcast) Read(view grid.View) (*grid.Dense, error) {
	v, err := view.Normalize(b.shape)
	if err != nil {
		return nil, err
	}
	out := grid.Zeros(v.Shape())
	data := out.Data()
	i := 0
	for a := 0; a < v[0].Len(); a++ {
		z := v[0].At(a)
		for c := 0; c < v[1].Len(); c++ {
			y := v[1].At(c)
			for d := 0; d < v[2].Len(); d++ {
				data[i] = b.At(z, y, v[2].At(d))
				i++
			}
		}
	}
	return out, nil
}

// Materialize expands the values to the full shape.
func (b *Broadcast) Materialize() *grid.Dense {
	d, _ := b.Read(grid.FullView())
	return d
}
