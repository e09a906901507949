package moments

import (
	"math"

	"spectralcube/pkg/grid"
	"spectralcube/pkg/lazy"
)

type planeStrategy struct {
	exec *lazy.Executor
}

func (planeStrategy) Kind() Kind { return Plane }

// partial holds per-transverse-pixel sums over a run of planes.
type partial struct {
	sum    []float64
	weight []float64
	valid  []bool
}

func addPartial(a, b partial) partial {
	for i := range a.sum {
		a.sum[i] += b.sum[i]
		a.weight[i] += b.weight[i]
		a.valid[i] = a.valid[i] || b.valid[i]
	}
	return a
}

func (s planeStrategy) Compute(src Source, order int, axis grid.Axis) (*grid.Dense, error) {
	g, err := src.Geometry()
	if err != nil {
		return nil, err
	}
	shape := src.Shape()
	outShape := shape
	outShape[axis] = 1

	// pass accumulates sum(I dl f(l, i)) and sum(I dl) over all planes,
	// where i indexes the transverse pixel.
	pass := func(f func(l float64, i int) float64) (partial, error) {
		return lazy.Accumulate(s.exec, "moment_plane", shape[axis], func(k int) (partial, error) {
			v := grid.Plane(axis, k)
			plane, valid, err := src.ReadValid(v)
			if err != nil {
				return partial{}, err
			}
			dl, err := g.PixelSize(axis).Read(v)
			if err != nil {
				return partial{}, err
			}
			l, err := g.PixelCenter(axis).Read(v)
			if err != nil {
				return partial{}, err
			}
			n := outShape.Size()
			p := partial{sum: make([]float64, n), weight: make([]float64, n), valid: valid.Data()}
			pd, dd, ld := plane.Data(), dl.Data(), l.Data()
			for i := 0; i < n; i++ {
				w := pd[i] * dd[i]
				p.weight[i] = w
				p.sum[i] = w * f(ld[i], i)
			}
			return p, nil
		}, addPartial)
	}

	first, err := pass(func(l float64, _ int) float64 {
		if order == 0 {
			return 1
		}
		return l
	})
	if err != nil {
		return nil, err
	}
	res := make([]float64, outShape.Size())
	for i := range res {
		switch order {
		case 0:
			res[i] = first.weight[i]
		default:
			res[i] = first.sum[i] / first.weight[i]
		}
	}
	if order >= 2 {
		m1 := res
		second, err := pass(func(l float64, i int) float64 {
			return ipow(l-m1[i], order)
		})
		if err != nil {
			return nil, err
		}
		res = make([]float64, len(m1))
		for i := range res {
			res[i] = second.sum[i] / second.weight[i]
		}
	}
	for i, ok := range first.valid {
		if !ok {
			res[i] = math.NaN()
		}
	}
	return grid.NewDense(outShape, res)
}
