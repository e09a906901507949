package lazy

import (
	"fmt"

	"spectralcube/pkg/grid"
)

// Deferred is an array whose views are computed on demand.
type Deferred struct {
	shape grid.Shape
	read  func(view grid.View) (*grid.Dense, error)
}

// NewDeferred returns an array of the given shape whose reads call read
// with a normalized view.
func NewDeferred(shape grid.Shape, read func(view grid.View) (*grid.Dense, error)) *Deferred {
	return &Deferred{shape: shape, read: read}
}

func (d *Deferred) Shape() grid.Shape { return d.shape }

func (d *Deferred) Read(view grid.View) (*grid.Dense, error) {
	v, err := view.Normalize(d.shape)
	if err != nil {
		return nil, err
	}
	return d.read(v)
}

// BlockFunc transforms one block. view locates the block in the full array
// and the result must have the block's shape.
type BlockFunc func(block *grid.Dense, view grid.View) (*grid.Dense, error)

// MapBlocks returns a deferred shape-preserving transform of arr. Blocks
// cover the whole extent of every axis listed in whole and tiles of the
// executor's tile size along the others; a read evaluates only the blocks
// it touches.
func (e *Executor) MapBlocks(op string, arr grid.Array, whole []grid.Axis, fn BlockFunc) *Deferred {
	shape := arr.Shape()
	var full [3]bool
	for _, a := range whole {
		full[a] = true
	}
	tile := e.tile()
	return NewDeferred(shape, func(v grid.View) (*grid.Dense, error) {
		out := grid.Zeros(v.Shape())
		if out.Shape().Size() == 0 {
			return out, nil
		}
		var spans [3][][2]int
		for a := 0; a < 3; a++ {
			if full[a] {
				spans[a] = [][2]int{{0, shape[a]}}
				continue
			}
			first, last := v[a].Start, v[a].At(v[a].Len()-1)
			for b := first / tile * tile; b <= last; b += tile {
				spans[a] = append(spans[a], [2]int{b, min(b+tile, shape[a])})
			}
		}
		var blocks []grid.View
		for _, sz := range spans[0] {
			for _, sy := range spans[1] {
				for _, sx := range spans[2] {
					blocks = append(blocks, grid.View{
						grid.Span(sz[0], sz[1]), grid.Span(sy[0], sy[1]), grid.Span(sx[0], sx[1]),
					})
				}
			}
		}
		err := e.Each(op, len(blocks), func(i int) error {
			bv := blocks[i]
			in, err := arr.Read(bv)
			if err != nil {
				return err
			}
			res, err := fn(in, bv)
			if err != nil {
				return err
			}
			if res.Shape() != in.Shape() {
				return fmt.Errorf("block result %v for block %v: %w", res.Shape(), in.Shape(), grid.ErrShape)
			}
			copyInto(out, v, res, bv)
			return nil
		})
		if err != nil {
			return nil, err
		}
		return out, nil
	})
}

// copyInto writes the part of block (located at bv) selected by v into out.
func copyInto(out *grid.Dense, v grid.View, block *grid.Dense, bv grid.View) {
	var idx [3][][2]int // (output index, block index) pairs per axis
	for a := 0; a < 3; a++ {
		for i := 0; i < v[a].Len(); i++ {
			g := v[a].At(i)
			if g >= bv[a].Start && g < bv[a].Stop {
				idx[a] = append(idx[a], [2]int{i, g - bv[a].Start})
			}
		}
	}
	for _, z := range idx[0] {
		for _, y := range idx[1] {
			for _, x := range idx[2] {
				out.Set(z[0], y[0], x[0], block.At(z[1], y[1], x[1]))
			}
		}
	}
}
