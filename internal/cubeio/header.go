// Package cubeio reads and writes cubes and projections as a raw
// little-endian float64 data file described by a YAML header.
package cubeio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"

	"spectralcube/internal/models"
	"spectralcube/pkg/grid"
	"spectralcube/pkg/wcs"
)

// ErrHeader reports a header that does not describe a readable array.
var ErrHeader = errors.New("cubeio: invalid header")

// ReadHeader loads a YAML header.
func ReadHeader(path string) (*models.Header, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading header: %w", err)
	}
	var h models.Header
	if err := yaml.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("error parsing header %s: %w", path, err)
	}
	return &h, nil
}

// WriteHeader stores h as YAML at path, creating the directory if needed.
func WriteHeader(path string, h *models.Header) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("error creating header directory: %w", err)
	}
	data, err := yaml.Marshal(h)
	if err != nil {
		return fmt.Errorf("error marshaling header: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("error writing header: %w", err)
	}
	return nil
}

// HeaderWCS builds the transform described by h.
func HeaderWCS(h *models.Header) (*wcs.WCS, error) {
	n := len(h.Axes)
	if n != len(h.Shape) {
		return nil, fmt.Errorf("%d axes for a %d-d shape: %w", n, len(h.Shape), ErrHeader)
	}
	w := wcs.New(n)
	for i, a := range h.Axes {
		w.CType[i] = a.CType
		w.CUnit[i] = a.CUnit
		w.CRPix[i] = a.CRPix
		w.CDelt[i] = a.CDelt
		w.CRVal[i] = a.CRVal
	}
	if len(h.PC) > 0 {
		flat := make([]float64, 0, n*n)
		for _, row := range h.PC {
			if len(row) != n {
				return nil, fmt.Errorf("pc row of %d values for %d axes: %w", len(row), n, ErrHeader)
			}
			flat = append(flat, row...)
		}
		if len(h.PC) != n {
			return nil, fmt.Errorf("pc has %d rows for %d axes: %w", len(h.PC), n, ErrHeader)
		}
		w.PC = mat.NewDense(n, n, flat)
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return w, nil
}

// describe fills the axis and PC entries of h from w.
func describe(h *models.Header, w *wcs.WCS) {
	if w == nil {
		return
	}
	n := w.NAxis()
	h.Axes = make([]models.Axis, n)
	for i := range h.Axes {
		h.Axes[i] = models.Axis{
			CType: w.CType[i],
			CUnit: w.CUnit[i],
			CRPix: w.CRPix[i],
			CDelt: w.CDelt[i],
			CRVal: w.CRVal[i],
		}
	}
	if w.PC == nil {
		return
	}
	h.PC = make([][]float64, n)
	for i := range h.PC {
		h.PC[i] = make([]float64, n)
		for j := range h.PC[i] {
			h.PC[i][j] = w.PCAt(i, j)
		}
	}
}

// cubeShape returns the storage shape of a 3-d header.
func cubeShape(h *models.Header) (grid.Shape, error) {
	if len(h.Shape) != 3 {
		return grid.Shape{}, fmt.Errorf("cube header with %d axes: %w", len(h.Shape), grid.ErrShape)
	}
	s := grid.Shape{h.Shape[0], h.Shape[1], h.Shape[2]}
	for _, n := range s {
		if n <= 0 {
			return grid.Shape{}, fmt.Errorf("cube shape %v: %w", s, grid.ErrShape)
		}
	}
	return s, nil
}

// chunkShape returns the chunk extents of h, defaulting to one spectral
// plane of the storage layout per chunk.
func chunkShape(h *models.Header, shape grid.Shape) (grid.Shape, error) {
	if len(h.Chunk) == 0 {
		return grid.Shape{1, shape[1], shape[2]}, nil
	}
	if len(h.Chunk) != 3 {
		return grid.Shape{}, fmt.Errorf("chunk shape %v: %w", h.Chunk, grid.ErrShape)
	}
	return grid.Shape{h.Chunk[0], h.Chunk[1], h.Chunk[2]}, nil
}

// resolveData resolves the data file of h relative to the header location.
func resolveData(headerPath string, h *models.Header) (string, error) {
	if h.Data == "" {
		return "", fmt.Errorf("header %s names no data file: %w", headerPath, ErrHeader)
	}
	if filepath.IsAbs(h.Data) {
		return h.Data, nil
	}
	return filepath.Join(filepath.Dir(headerPath), h.Data), nil
}
