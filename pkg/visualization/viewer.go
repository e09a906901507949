// Package visualization renders quicklook images of cubes and moment maps.
package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/floats"

	"spectralcube/pkg/cube"
	"spectralcube/pkg/grid"
)

// Viewer renders planes of an oriented (spectral, lat, lon) array as
// 16-bit grayscale images. Values are scaled linearly between the finite
// minimum and maximum of the array; NaN renders black.
type Viewer struct {
	data *grid.Dense

	// lo and hi are the display range
	lo, hi float64
}

// NewViewer creates a viewer over d.
func NewViewer(d *grid.Dense) *Viewer {
	v := &Viewer{data: d}
	finite := make([]float64, 0, len(d.Data()))
	for _, x := range d.Data() {
		if !math.IsNaN(x) && !math.IsInf(x, 0) {
			finite = append(finite, x)
		}
	}
	if len(finite) > 0 {
		v.lo, v.hi = floats.Min(finite), floats.Max(finite)
	}
	return v
}

// NewCubeViewer creates a viewer over the filled data of c, with excluded
// voxels shown black.
func NewCubeViewer(c *cube.Cube) (*Viewer, error) {
	d, err := c.WithFillValue(math.NaN()).FilledData(grid.FullView())
	if err != nil {
		return nil, err
	}
	return NewViewer(d), nil
}

// NewProjectionViewer creates a viewer over a moment map or other 2-d
// projection, exposed as a single spectral plane.
func NewProjectionViewer(p *cube.Projection) (*Viewer, error) {
	if p.NDim() != 2 {
		return nil, fmt.Errorf("quicklook of a %d-d projection: %w", p.NDim(), grid.ErrShape)
	}
	d, err := p.Dense()
	if err != nil {
		return nil, err
	}
	return NewViewer(d), nil
}

// Range returns the display range.
func (v *Viewer) Range() (lo, hi float64) { return v.lo, v.hi }

// SetRange overrides the display range.
func (v *Viewer) SetRange(lo, hi float64) { v.lo, v.hi = lo, hi }

func (v *Viewer) gray(x float64) color.Gray16 {
	if math.IsNaN(x) || v.hi <= v.lo {
		return color.Gray16{}
	}
	s := (x - v.lo) / (v.hi - v.lo)
	return color.Gray16{Y: uint16(math.Max(0, math.Min(65535, s*65535)))}
}

// ExtractChannel renders the plane at position along axis. Image rows run
// top to bottom with decreasing latitude (or spectral index), so the first
// array row is at the bottom.
func (v *Viewer) ExtractChannel(axis grid.Axis, position int) (*image.Gray16, error) {
	if !axis.Valid() {
		return nil, fmt.Errorf("invalid axis: %v: %w", axis, grid.ErrOutOfRange)
	}
	s := v.data.Shape()
	if position < 0 || position >= s[axis] {
		return nil, fmt.Errorf("position %d outside %d planes along %v: %w", position, s[axis], axis, grid.ErrOutOfRange)
	}
	// The image shows a1 vertically and a2 horizontally.
	a1, a2 := axis.Others()
	h, w := s[a1], s[a2]
	img := image.NewGray16(image.Rect(0, 0, w, h))
	for r := 0; r < h; r++ {
		for c := 0; c < w; c++ {
			z, y, x := axis.Place(position, r, c)
			img.SetGray16(c, h-1-r, v.gray(v.data.At(z, y, x)))
		}
	}
	return img, nil
}

// ExtractRegion copies the voxels selected by view.
func (v *Viewer) ExtractRegion(view grid.View) (*grid.Dense, error) {
	nv, err := view.Normalize(v.data.Shape())
	if err != nil {
		return nil, err
	}
	for a, r := range nv {
		if r.Len() == 0 {
			return nil, fmt.Errorf("empty region along %v: %w", grid.Axis(a), grid.ErrShape)
		}
	}
	return v.data.Read(nv)
}

// SaveImage saves an extracted plane as a PNG image
func (v *Viewer) SaveImage(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := png.Encode(file, img); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// SaveChannelSequence extracts and saves every plane along axis
func (v *Viewer) SaveChannelSequence(axis grid.Axis, outputDir string) error {
	if !axis.Valid() {
		return fmt.Errorf("invalid axis: %v: %w", axis, grid.ErrOutOfRange)
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	for pos := 0; pos < v.data.Shape()[axis]; pos++ {
		img, err := v.ExtractChannel(axis, pos)
		if err != nil {
			return err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("channel_%s_%03d.png", axis, pos))
		if err := v.SaveImage(img, filename); err != nil {
			return err
		}
	}

	return nil
}
