package moments

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"spectralcube/pkg/grid"
	"spectralcube/pkg/lazy"
)

type wholeStrategy struct {
	exec *lazy.Executor
}

func (wholeStrategy) Kind() Kind { return Whole }

func (s wholeStrategy) Compute(src Source, order int, axis grid.Axis) (*grid.Dense, error) {
	g, err := src.Geometry()
	if err != nil {
		return nil, err
	}
	data, valid, err := s.exec.MaterializeValid("moment", src)
	if err != nil {
		return nil, err
	}
	dl, err := g.PixelSize(axis).Read(grid.FullView())
	if err != nil {
		return nil, err
	}
	w := data.Data()
	floats.Mul(w, dl.Data())

	m0 := sumAlong(data, axis)
	anyValid := anyAlong(valid, axis)
	var result *grid.Dense
	switch {
	case order == 0:
		result = m0
	default:
		l, err := g.PixelCenter(axis).Read(grid.FullView())
		if err != nil {
			return nil, err
		}
		wl := make([]float64, len(w))
		floats.MulTo(wl, w, l.Data())
		wld, err := grid.NewDense(data.Shape(), wl)
		if err != nil {
			return nil, err
		}
		m1 := sumAlong(wld, axis)
		floats.Div(m1.Data(), m0.Data())
		if order == 1 {
			result = m1
			break
		}
		shape := data.Shape()
		d := make([]float64, len(w))
		ld := l.Data()
		for z := 0; z < shape[0]; z++ {
			for y := 0; y < shape[1]; y++ {
				for x := 0; x < shape[2]; x++ {
					i := shape.Index(z, y, x)
					d[i] = w[i] * ipow(ld[i]-m1.At(keep(axis, z, y, x)), order)
				}
			}
		}
		dd, err := grid.NewDense(shape, d)
		if err != nil {
			return nil, err
		}
		result = sumAlong(dd, axis)
		floats.Div(result.Data(), m0.Data())
	}
	for i, ok := range anyValid {
		if !ok {
			result.Data()[i] = math.NaN()
		}
	}
	return result, nil
}

// keep collapses index (z, y, x) onto the reduced output with axis at
// extent 1.
func keep(axis grid.Axis, z, y, x int) (int, int, int) {
	switch axis {
	case grid.Spectral:
		return 0, y, x
	case grid.Lat:
		return z, 0, x
	default:
		return z, y, 0
	}
}

// sumAlong sums d along axis, keeping the axis at extent 1.
func sumAlong(d *grid.Dense, axis grid.Axis) *grid.Dense {
	shape := d.Shape()
	out := shape
	out[axis] = 1
	res := grid.Zeros(out)
	src, dst := d.Data(), res.Data()
	for z := 0; z < shape[0]; z++ {
		for y := 0; y < shape[1]; y++ {
			for x := 0; x < shape[2]; x++ {
				dst[out.Index(keep(axis, z, y, x))] += src[shape.Index(z, y, x)]
			}
		}
	}
	return res
}

// anyAlong reports, per transverse position, whether any element along
// axis is true, in the row-major order of the reduced output.
func anyAlong(b *grid.Bool, axis grid.Axis) []bool {
	shape := b.Shape()
	out := shape
	out[axis] = 1
	res := make([]bool, out.Size())
	src := b.Data()
	for z := 0; z < shape[0]; z++ {
		for y := 0; y < shape[1]; y++ {
			for x := 0; x < shape[2]; x++ {
				if src[shape.Index(z, y, x)] {
					res[out.Index(keep(axis, z, y, x))] = true
				}
			}
		}
	}
	return res
}
