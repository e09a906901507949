package models

// Axis describes one world axis of a cube file, in FITS order.
type Axis struct {
	// CType is the axis type, e.g. "RA---TAN" or "VRAD"
	CType string `yaml:"ctype"`

	// CUnit is the unit of CRVal and CDelt
	CUnit string `yaml:"cunit,omitempty"`

	// CRPix is the 1-based reference pixel
	CRPix float64 `yaml:"crpix"`

	// CDelt is the coordinate increment per pixel at the reference pixel
	CDelt float64 `yaml:"cdelt"`

	// CRVal is the world coordinate of the reference pixel
	CRVal float64 `yaml:"crval"`
}

// Beam is one row of a beam table. Major and minor axes are FWHM in
// degrees, PA in degrees.
type Beam struct {
	Major float64 `yaml:"major"`
	Minor float64 `yaml:"minor"`
	PA    float64 `yaml:"pa"`
}

// Header is the YAML sidecar describing a raw cube or projection file.
type Header struct {
	// Shape is the array shape in storage order, slowest axis first. It
	// runs opposite to Axes.
	Shape []int `yaml:"shape"`

	// Axes holds the world axes in FITS order
	Axes []Axis `yaml:"axes"`

	// PC is the rotation matrix over Axes, row-major. Empty means identity.
	PC [][]float64 `yaml:"pc,omitempty"`

	// BUnit is the data unit
	BUnit string `yaml:"bunit,omitempty"`

	// Chunk is the chunk shape of the data file in storage order. Empty
	// means the whole array is one chunk.
	Chunk []int `yaml:"chunk,omitempty"`

	// Data is the path of the raw little-endian float64 file, relative to
	// the header
	Data string `yaml:"data,omitempty"`

	// Beam is the single resolution of the data, if any
	Beam *Beam `yaml:"beam,omitempty"`

	// Beams is the per-channel beam table of a varying-resolution cube
	Beams []Beam `yaml:"beams,omitempty"`

	// Meta carries free-form metadata
	Meta map[string]any `yaml:"meta,omitempty"`
}

// Size returns the number of values the data file holds.
func (h *Header) Size() int {
	if len(h.Shape) == 0 {
		return 0
	}
	n := 1
	for _, s := range h.Shape {
		n *= s
	}
	return n
}
