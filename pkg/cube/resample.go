package cube

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/interp"

	"spectralcube/internal/observability"
	"spectralcube/pkg/grid"
	"spectralcube/pkg/lazy"
	"spectralcube/pkg/mask"
	"spectralcube/pkg/units"
	"spectralcube/pkg/wcs"
)

// linearGridTolerance is the relative spread of channel spacings accepted
// for an output grid.
const linearGridTolerance = 1e-7

type interpOptions struct {
	fill     float64
	fillSet  bool
	suppress bool
	restHz   float64
}

// InterpolateOption configures SpectralInterpolate.
type InterpolateOption func(*interpOptions)

// InterpFill sets the value used outside the input spectral range. By
// default the nearest end channel is repeated.
func InterpFill(v float64) InterpolateOption {
	return func(o *interpOptions) { o.fill, o.fillSet = v, true }
}

// SuppressSmoothWarning silences the undersampling warning, for data that
// were smoothed beforehand.
func SuppressSmoothWarning() InterpolateOption {
	return func(o *interpOptions) { o.suppress = true }
}

// InterpRestFrequency sets the rest frequency in Hz used to convert the
// spectral axis to the unit of the output grid.
func InterpRestFrequency(hz float64) InterpolateOption {
	return func(o *interpOptions) { o.restHz = hz }
}

func isFinite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// SpectralInterpolate resamples every spectrum linearly onto out, a
// linear grid of spectral values in unit. The result has len(out)
// channels, a transform describing out, and a mask excluding the voxels
// that came out NaN.
func (c *Cube) SpectralInterpolate(out []float64, unit string, opts ...InterpolateOption) (*Cube, error) {
	if c.VaryingResolution() {
		return nil, fmt.Errorf("spectral interpolation of a cube with per-plane beams: %w", ErrUnsupportedOperation)
	}
	var o interpOptions
	for _, opt := range opts {
		opt(&o)
	}
	if len(out) < 2 {
		return nil, fmt.Errorf("output grid of %d channels: %w", len(out), ErrGrid)
	}
	if unit == "" {
		unit = c.SpectralUnit()
	}
	outDiff := (out[len(out)-1] - out[0]) / float64(len(out)-1)
	for i := 1; i < len(out); i++ {
		d := out[i] - out[i-1]
		if d == 0 || math.Abs(d-outDiff) > linearGridTolerance*math.Abs(outDiff) {
			return nil, fmt.Errorf("output grid is not linear at channel %d: %w", i, ErrGrid)
		}
	}

	axis, err := c.SpectralAxis()
	if err != nil {
		return nil, err
	}
	if len(axis) < 2 {
		return nil, fmt.Errorf("cannot interpolate %d channels: %w", len(axis), grid.ErrShape)
	}
	in := make([]float64, len(axis))
	for i, v := range axis {
		if in[i], err = units.Q(v, c.SpectralUnit()).To(unit, o.restHz); err != nil {
			return nil, err
		}
	}
	// The fit needs increasing abscissae.
	reversed := in[len(in)-1] < in[0]
	if reversed {
		slices.Reverse(in)
	}
	for i := 1; i < len(in); i++ {
		if in[i] <= in[i-1] {
			return nil, fmt.Errorf("spectral axis is not monotonic at channel %d: %w", i, ErrGrid)
		}
	}
	inDiff := (in[len(in)-1] - in[0]) / float64(len(in)-1)
	if math.Abs(outDiff) > 2*inDiff && !o.suppress {
		observability.Warn(observability.WarnUndersampled).
			Float64("input_spacing", inDiff).
			Float64("output_spacing", math.Abs(outDiff)).
			Msg("output grid is coarser than twice the input spacing; smooth before resampling")
	}

	src := c.filled(math.NaN())
	shape := c.Shape()
	newShape := grid.Shape{len(out), shape[1], shape[2]}
	grid0 := append([]float64(nil), out...)
	data := lazy.NewDeferred(newShape, func(v grid.View) (*grid.Dense, error) {
		iv := v
		iv[grid.Spectral] = grid.All()
		block, err := src.Read(iv)
		if err != nil {
			return nil, err
		}
		bs := block.Shape()
		res := grid.Zeros(v.Shape())
		err = c.exec.Each("spectral_interpolate", bs[1], func(y int) error {
			ys := make([]float64, bs[0])
			line := make([]float64, v[0].Len())
			for x := 0; x < bs[2]; x++ {
				copy(ys, block.Line(grid.Spectral, y, x))
				if reversed {
					slices.Reverse(ys)
				}
				var pl interp.PiecewiseLinear
				if err := pl.Fit(in, ys); err != nil {
					return err
				}
				for k := range line {
					xv := grid0[v[0].At(k)]
					if o.fillSet && (xv < in[0] || xv > in[len(in)-1]) {
						line[k] = o.fill
						continue
					}
					line[k] = pl.Predict(xv)
				}
				res.SetLine(grid.Spectral, y, x, line)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		return res, nil
	})

	n := c.derive()
	// The finiteness mask reads the same blocks as the data.
	memo := lazy.NewMemo(data, 0)
	n.data = memo
	n.wcs = wcs.SetLinearAxis(c.wcs, wcs.WorldAxis(grid.Spectral), 1, out[0], outDiff, unit)
	n.mask = mask.FromPredicate(isFinite).Bind(memo)
	return n, nil
}

// DownsampleAxis averages every factor adjacent pixels along axis into
// one, using the valid voxels of each group. A trailing partial group is
// averaged too unless truncate is set. The transform is rebinned to match
// and the new mask excludes groups without any valid voxel.
func (c *Cube) DownsampleAxis(factor int, axis grid.Axis, truncate bool) (*Cube, error) {
	if !axis.Valid() {
		return nil, axisError(axis)
	}
	if factor < 1 {
		return nil, fmt.Errorf("downsample factor %d: %w", factor, grid.ErrOutOfRange)
	}
	if axis == grid.Spectral && c.VaryingResolution() && factor > 1 {
		return nil, fmt.Errorf("spectral downsampling of a cube with per-plane beams: %w", ErrUnsupportedOperation)
	}
	shape := c.Shape()
	n := shape[axis]
	nOut := n / factor
	if !truncate {
		nOut = (n + factor - 1) / factor
	}
	if nOut == 0 {
		return nil, fmt.Errorf("downsampling %d pixels by %d: %w", n, factor, grid.ErrShape)
	}
	newShape := shape
	newShape[axis] = nOut

	src := c.filled(math.NaN())
	o1, o2 := axis.Others()
	data := lazy.NewDeferred(newShape, func(v grid.View) (*grid.Dense, error) {
		res := grid.Zeros(v.Shape())
		r := v[axis]
		if res.Shape().Size() == 0 {
			return res, nil
		}
		iv := v
		first := r.Start * factor
		iv[axis] = grid.Span(first, min((r.At(r.Len()-1)+1)*factor, n))
		block, valid, err := src.ReadValid(iv)
		if err != nil {
			return nil, err
		}
		rs := res.Shape()
		out := make([]float64, r.Len())
		for p := 0; p < rs[o1]; p++ {
			for q := 0; q < rs[o2]; q++ {
				line := block.Line(axis, p, q)
				ok := valid.Line(axis, p, q)
				for t := range out {
					lo := r.At(t)*factor - first
					hi := min(lo+factor, len(line))
					sum, cnt := 0.0, 0
					for i := lo; i < hi; i++ {
						if ok[i] {
							sum += line[i]
							cnt++
						}
					}
					if cnt == 0 {
						out[t] = math.NaN()
						continue
					}
					out[t] = sum / float64(cnt)
				}
				res.SetLine(axis, p, q, out)
			}
		}
		return res, nil
	})

	nc := c.derive()
	memo := lazy.NewMemo(data, 0)
	nc.data = memo
	nc.wcs = wcs.BinAxis(c.wcs, wcs.WorldAxis(axis), factor)
	nc.mask = mask.FromPredicate(isFinite).Bind(memo)
	return nc, nil
}
