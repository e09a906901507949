package moments

import (
	"math"

	"spectralcube/pkg/grid"
	"spectralcube/pkg/lazy"
)

type rayStrategy struct {
	exec *lazy.Executor
}

func (rayStrategy) Kind() Kind { return Ray }

// Compute reduces one line of sight at a time, skipping invalid voxels.
// Every ray is read once. Central moments use the ray's own centroid,
// computed in the same pass over the ray.
func (s rayStrategy) Compute(src Source, order int, axis grid.Axis) (*grid.Dense, error) {
	g, err := src.Geometry()
	if err != nil {
		return nil, err
	}
	shape := src.Shape()
	outShape := shape
	outShape[axis] = 1
	out := grid.Filled(outShape, math.NaN())
	o1, o2 := axis.Others()
	n2 := shape[o2]

	err = s.exec.Each("moment_ray", shape[o1]*n2, func(k int) error {
		p, q := k/n2, k%n2
		block, valid, err := src.ReadValid(grid.Ray(axis, p, q))
		if err != nil {
			return err
		}
		if !valid.Any() {
			return nil
		}
		ok := valid.Data()
		vals := compact(block.Data(), ok)
		cen := compact(g.PixelCenter(axis).Line(axis, p, q), ok)
		size := compact(g.PixelSize(axis).Line(axis, p, q), ok)

		var m0, m1 float64
		for i, x := range vals {
			w := x * size[i]
			m0 += w
			m1 += w * cen[i]
		}
		res := m0
		if order >= 1 {
			m1 /= m0
			res = m1
		}
		if order >= 2 {
			var mn float64
			for i, x := range vals {
				mn += x * size[i] * ipow(cen[i]-m1, order)
			}
			res = mn / m0
		}
		out.SetLine(axis, p, q, []float64{res})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// compact keeps the elements of v where keep is true.
func compact(v []float64, keep []bool) []float64 {
	out := v[:0]
	for i, x := range v {
		if keep[i] {
			out = append(out, x)
		}
	}
	return out
}
