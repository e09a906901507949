package lazy

import (
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"spectralcube/internal/observability"
	"spectralcube/pkg/grid"
)

// DefaultTileSize is the transverse tile edge used by ReduceAlong.
const DefaultTileSize = 64

// Executor runs chunk-wise work on a bounded number of goroutines. Every
// chunk writes a disjoint part of the output, and the first failing chunk
// aborts the whole operation.
type Executor struct {
	Workers  int
	TileSize int
	// WarnThreshold is the voxel count above which Materialize logs a
	// large_materialize warning. Zero disables the warning.
	WarnThreshold int
}

// NewExecutor returns an executor with workers goroutines and the default
// tile size. Non-positive workers means runtime.NumCPU().
func NewExecutor(workers int) *Executor {
	return &Executor{Workers: workers, TileSize: DefaultTileSize}
}

func (e *Executor) workers() int {
	if e == nil || e.Workers <= 0 {
		return runtime.NumCPU()
	}
	return e.Workers
}

func (e *Executor) tile() int {
	if e == nil || e.TileSize <= 0 {
		return DefaultTileSize
	}
	return e.TileSize
}

// WithTile returns a copy of e using tile as the transverse tile edge.
func (e *Executor) WithTile(tile int) *Executor {
	out := Executor{}
	if e != nil {
		out = *e
	}
	out.TileSize = tile
	return &out
}

// Each runs fn for i in [0, n) in parallel and returns the first error.
func (e *Executor) Each(op string, n int, fn func(i int) error) error {
	var g errgroup.Group
	g.SetLimit(e.workers())
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error { return fn(i) })
	}
	err := g.Wait()
	observability.RecordChunks(op, n)
	return err
}

// RayKernel reduces the values along one ray. valid marks the included,
// finite voxels; invalid voxels hold the source's fill value.
type RayKernel func(ray []float64, valid []bool, p, q int) float64

// ReduceAlong applies kernel to every ray of src along axis and returns the
// results with axis kept at extent 1. The transverse plane is split into
// tiles, each read as one block covering the whole axis.
func (e *Executor) ReduceAlong(op string, src Source, axis grid.Axis, kernel RayKernel) (*grid.Dense, error) {
	start := time.Now()
	shape := src.Shape()
	outShape := shape
	outShape[axis] = 1
	out := grid.Zeros(outShape)

	o1, o2 := axis.Others()
	tiles := Tiles(shape[o1], shape[o2], e.tile())
	err := e.Each(op, len(tiles), func(i int) error {
		t := tiles[i]
		v := grid.FullView()
		v[o1] = grid.Span(t.P0, t.P1)
		v[o2] = grid.Span(t.Q0, t.Q1)
		block, valid, err := src.ReadValid(v)
		if err != nil {
			return err
		}
		for p := t.P0; p < t.P1; p++ {
			for q := t.Q0; q < t.Q1; q++ {
				ray := block.Line(axis, p-t.P0, q-t.Q0)
				ok := valid.Line(axis, p-t.P0, q-t.Q0)
				out.SetLine(axis, p, q, []float64{kernel(ray, ok, p, q)})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	observability.RecordReduction(op, "chunked", time.Since(start))
	return out, nil
}

// Tile is a rectangle [P0, P1) x [Q0, Q1) of the transverse plane.
type Tile struct {
	P0, P1, Q0, Q1 int
}

// Tiles splits an n1 x n2 plane into tiles of at most size x size.
func Tiles(n1, n2, size int) []Tile {
	if size <= 0 {
		size = DefaultTileSize
	}
	var out []Tile
	for p := 0; p < n1; p += size {
		for q := 0; q < n2; q += size {
			out = append(out, Tile{P0: p, P1: min(p+size, n1), Q0: q, Q1: min(q+size, n2)})
		}
	}
	return out
}

// Accumulate folds fn over [0, n) with an associative combine. The range is
// split into one contiguous part per worker, folded in parallel, and the
// partial results are combined in index order.
func Accumulate[T any](e *Executor, op string, n int, fn func(i int) (T, error), combine func(a, b T) T) (T, error) {
	var zero T
	if n == 0 {
		return zero, nil
	}
	parts := min(e.workers(), n)
	partial := make([]T, parts)
	err := e.Each(op, parts, func(k int) error {
		lo, hi := k*n/parts, (k+1)*n/parts
		acc, err := fn(lo)
		if err != nil {
			return err
		}
		for i := lo + 1; i < hi; i++ {
			v, err := fn(i)
			if err != nil {
				return err
			}
			acc = combine(acc, v)
		}
		partial[k] = acc
		return nil
	})
	if err != nil {
		return zero, err
	}
	acc := partial[0]
	for _, p := range partial[1:] {
		acc = combine(acc, p)
	}
	return acc, nil
}

// Materialize reads the whole of arr into memory, logging a warning when
// it is larger than the executor's threshold.
func (e *Executor) Materialize(op string, arr grid.Array) (*grid.Dense, error) {
	e.warnLarge(op, arr.Shape())
	return Materialize(arr)
}

// MaterializeValid is Materialize for a Source, also returning validity.
func (e *Executor) MaterializeValid(op string, src Source) (*grid.Dense, *grid.Bool, error) {
	e.warnLarge(op, src.Shape())
	return src.ReadValid(grid.FullView())
}

func (e *Executor) warnLarge(op string, shape grid.Shape) {
	if e != nil && e.WarnThreshold > 0 && shape.Size() > e.WarnThreshold {
		observability.Warn(observability.WarnLargeMaterialize).
			Str("op", op).
			Int("voxels", shape.Size()).
			Msg("materializing a large array in memory")
	}
}

// Materialize converts any array into a concrete in-memory copy.
func Materialize(arr grid.Array) (*grid.Dense, error) {
	if d, ok := arr.(*grid.Dense); ok {
		return d.Clone(), nil
	}
	return arr.Read(grid.FullView())
}
