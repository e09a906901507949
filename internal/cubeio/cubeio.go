package cubeio

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"spectralcube/internal/models"
	"spectralcube/pkg/cube"
	"spectralcube/pkg/grid"
	"spectralcube/pkg/wcs"
)

// Ingest is everything a cube file provides to cube.New.
type Ingest struct {
	Data  grid.Array
	WCS   *wcs.WCS
	Unit  string
	Meta  map[string]any
	Beam  *cube.Beam
	Beams []cube.Beam

	closer io.Closer
}

// Options returns the cube options carrying the unit, metadata and beams.
func (in *Ingest) Options() []cube.Option {
	opts := []cube.Option{cube.WithMeta(in.Meta)}
	if in.Unit != "" {
		opts = append(opts, cube.WithUnit(in.Unit))
	}
	switch {
	case in.Beams != nil:
		opts = append(opts, cube.WithBeams(in.Beams))
	case in.Beam != nil:
		opts = append(opts, cube.WithBeam(*in.Beam))
	}
	return opts
}

// Cube builds the cube described by the ingest. Extra options are applied
// after the ingest's own.
func (in *Ingest) Cube(opts ...cube.Option) (*cube.Cube, error) {
	return cube.New(in.Data, in.WCS, append(in.Options(), opts...)...)
}

// Close releases the data file of a chunked ingest.
func (in *Ingest) Close() error {
	if in.closer == nil {
		return nil
	}
	return in.closer.Close()
}

func ingestFrom(h *models.Header) (*Ingest, error) {
	w, err := HeaderWCS(h)
	if err != nil {
		return nil, err
	}
	in := &Ingest{WCS: w, Unit: h.BUnit, Meta: h.Meta}
	if h.Beam != nil {
		b := cube.Beam(*h.Beam)
		in.Beam = &b
	}
	if len(h.Beams) > 0 {
		in.Beams = make([]cube.Beam, len(h.Beams))
		for i, b := range h.Beams {
			in.Beams[i] = cube.Beam(b)
		}
	}
	return in, nil
}

// Open reads the header and exposes the data file through a chunked
// backend, so only the chunks a computation touches are loaded. An empty
// dataPath uses the file named in the header. The caller must Close the
// ingest.
func Open(headerPath, dataPath string) (*Ingest, error) {
	h, shape, path, err := load(headerPath, dataPath)
	if err != nil {
		return nil, err
	}
	chunk, err := chunkShape(h, shape)
	if err != nil {
		return nil, err
	}
	in, err := ingestFrom(h)
	if err != nil {
		return nil, err
	}
	cf, err := OpenChunkFile(path, shape, chunk)
	if err != nil {
		return nil, err
	}
	arr, err := grid.NewChunked(cf)
	if err != nil {
		cf.Close()
		return nil, err
	}
	in.Data, in.closer = arr, cf
	return in, nil
}

// ReadAll loads the whole data file into memory.
func ReadAll(headerPath, dataPath string) (*Ingest, error) {
	h, shape, path, err := load(headerPath, dataPath)
	if err != nil {
		return nil, err
	}
	in, err := ingestFrom(h)
	if err != nil {
		return nil, err
	}
	values, err := readValues(path, shape.Size())
	if err != nil {
		return nil, err
	}
	if in.Data, err = grid.NewDense(shape, values); err != nil {
		return nil, err
	}
	return in, nil
}

func load(headerPath, dataPath string) (*models.Header, grid.Shape, string, error) {
	h, err := ReadHeader(headerPath)
	if err != nil {
		return nil, grid.Shape{}, "", err
	}
	shape, err := cubeShape(h)
	if err != nil {
		return nil, grid.Shape{}, "", err
	}
	if dataPath == "" {
		if dataPath, err = resolveData(headerPath, h); err != nil {
			return nil, grid.Shape{}, "", err
		}
	}
	return h, shape, dataPath, nil
}

func readValues(path string, n int) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening data file: %w", err)
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if want := int64(n) * bytesPerValue; st.Size() != want {
		return nil, fmt.Errorf("data file %s has %d bytes, want %d: %w", path, st.Size(), want, grid.ErrShape)
	}
	values := make([]float64, n)
	if err := binary.Read(bufio.NewReader(f), binary.LittleEndian, values); err != nil {
		return nil, fmt.Errorf("error reading data file: %w", err)
	}
	return values, nil
}

func writeValues(path string, values []float64) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("error creating output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating data file: %w", err)
	}
	w := bufio.NewWriter(f)
	if err := binary.Write(w, binary.LittleEndian, values); err != nil {
		f.Close()
		return fmt.Errorf("error writing data file: %w", err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("error writing data file: %w", err)
	}
	return f.Close()
}

// relativeData returns dataPath as the header should record it.
func relativeData(headerPath, dataPath string) string {
	if rel, err := filepath.Rel(filepath.Dir(headerPath), dataPath); err == nil {
		return rel
	}
	return dataPath
}

// WriteCube writes the filled data of c to dataPath and its header to
// headerPath. Excluded voxels are stored as the cube's fill value. The
// per-plane beam table is written for varying-resolution cubes.
func WriteCube(c *cube.Cube, headerPath, dataPath string) error {
	d, err := c.FilledData(grid.FullView())
	if err != nil {
		return err
	}
	s := c.Shape()
	h := &models.Header{
		Shape: []int{s[0], s[1], s[2]},
		BUnit: c.Unit(),
		Data:  relativeData(headerPath, dataPath),
		Meta:  c.Meta(),
	}
	describe(h, c.WCS())
	if b, ok := c.Beam(); ok {
		mb := models.Beam(b)
		h.Beam = &mb
	}
	for _, b := range c.Beams() {
		h.Beams = append(h.Beams, models.Beam(b))
	}
	if err := writeValues(dataPath, d.Data()); err != nil {
		return err
	}
	return WriteHeader(headerPath, h)
}

// WriteProjection writes p the same way as WriteCube. Zero-dimensional
// results are stored with shape [1].
func WriteProjection(p *cube.Projection, headerPath, dataPath string) error {
	h := &models.Header{
		Shape: append([]int(nil), p.Shape...),
		BUnit: p.Unit,
		Data:  relativeData(headerPath, dataPath),
		Meta:  p.Meta,
	}
	if len(h.Shape) == 0 {
		h.Shape = []int{1}
	}
	describe(h, p.WCS)
	if p.Beam != nil {
		mb := models.Beam(*p.Beam)
		h.Beam = &mb
	}
	if err := writeValues(dataPath, p.Data); err != nil {
		return err
	}
	return WriteHeader(headerPath, h)
}

// ReadProjection loads a file written by WriteProjection. The axes of the
// result are left unset.
func ReadProjection(headerPath, dataPath string) (*cube.Projection, error) {
	h, err := ReadHeader(headerPath)
	if err != nil {
		return nil, err
	}
	if dataPath == "" {
		if dataPath, err = resolveData(headerPath, h); err != nil {
			return nil, err
		}
	}
	values, err := readValues(dataPath, h.Size())
	if err != nil {
		return nil, err
	}
	p := &cube.Projection{Data: values, Shape: h.Shape, Unit: h.BUnit, Meta: h.Meta}
	if len(h.Axes) > 0 {
		if p.WCS, err = HeaderWCS(h); err != nil {
			return nil, err
		}
	}
	if h.Beam != nil {
		b := cube.Beam(*h.Beam)
		p.Beam = &b
	}
	return p, nil
}
