package cubeio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"sync"

	"spectralcube/pkg/grid"
)

const bytesPerValue = 8

// ChunkFile serves chunks of a row-major little-endian float64 file. Each
// chunk row is fetched with one ReadAt, so concurrent reads are safe.
type ChunkFile struct {
	f     *os.File
	shape grid.Shape
	chunk grid.Shape

	bufs sync.Pool
}

// OpenChunkFile opens path as an array of shape read chunk by chunk. The
// file size must match the shape.
func OpenChunkFile(path string, shape, chunk grid.Shape) (*ChunkFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening data file: %w", err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if want := int64(shape.Size()) * bytesPerValue; st.Size() != want {
		f.Close()
		return nil, fmt.Errorf("data file %s has %d bytes, want %d for shape %v: %w",
			path, st.Size(), want, shape, grid.ErrShape)
	}
	cf := &ChunkFile{f: f, shape: shape, chunk: chunk}
	cf.bufs.New = func() any {
		b := make([]byte, chunk[2]*bytesPerValue)
		return &b
	}
	return cf, nil
}

func (c *ChunkFile) Shape() grid.Shape      { return c.shape }
func (c *ChunkFile) ChunkShape() grid.Shape { return c.chunk }

// ReadChunk returns chunk idx with its extents clipped to the array.
func (c *ChunkFile) ReadChunk(idx [3]int) ([]float64, error) {
	var origin [3]int
	var ext grid.Shape
	for i := 0; i < 3; i++ {
		origin[i] = idx[i] * c.chunk[i]
		if idx[i] < 0 || origin[i] >= c.shape[i] {
			return nil, fmt.Errorf("chunk %v outside %v: %w", idx, c.shape, grid.ErrOutOfRange)
		}
		ext[i] = min(c.chunk[i], c.shape[i]-origin[i])
	}
	out := make([]float64, ext.Size())
	bp := c.bufs.Get().(*[]byte)
	defer c.bufs.Put(bp)
	buf := (*bp)[:ext[2]*bytesPerValue]
	for z := 0; z < ext[0]; z++ {
		for y := 0; y < ext[1]; y++ {
			off := int64(c.shape.Index(origin[0]+z, origin[1]+y, origin[2])) * bytesPerValue
			if _, err := c.f.ReadAt(buf, off); err != nil && err != io.EOF {
				return nil, fmt.Errorf("error reading row (%d, %d): %w", origin[0]+z, origin[1]+y, err)
			}
			row := out[ext.Index(z, y, 0) : ext.Index(z, y, 0)+ext[2]]
			for x := range row {
				row[x] = math.Float64frombits(binary.LittleEndian.Uint64(buf[x*bytesPerValue:]))
			}
		}
	}
	return out, nil
}

// Close releases the underlying file.
func (c *ChunkFile) Close() error { return c.f.Close() }
