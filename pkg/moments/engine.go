package moments

import (
	"fmt"
	"time"

	"spectralcube/internal/observability"
	"spectralcube/pkg/grid"
	"spectralcube/pkg/lazy"
)

// DefaultAutoThreshold is the voxel count below which Auto picks Whole.
const DefaultAutoThreshold = 10_000_000

// Engine dispatches moment computations to a strategy.
type Engine struct {
	autoThreshold int
	exec          *lazy.Executor
}

// Option configures an Engine.
type Option func(*Engine)

// WithAutoThreshold sets the voxel count below which Auto resolves to
// Whole.
func WithAutoThreshold(n int) Option {
	return func(e *Engine) { e.autoThreshold = n }
}

// WithExecutor sets the executor used by the chunked strategies.
func WithExecutor(x *lazy.Executor) Option {
	return func(e *Engine) { e.exec = x }
}

// NewEngine returns an engine with the default threshold and an executor
// using every CPU.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{autoThreshold: DefaultAutoThreshold, exec: lazy.NewExecutor(0)}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// AutoThreshold returns the configured Auto threshold.
func (e *Engine) AutoThreshold() int { return e.autoThreshold }

// Executor returns the engine's executor.
func (e *Engine) Executor() *lazy.Executor { return e.exec }

// Resolve returns the concrete strategy for k on a cube of the given shape.
func (e *Engine) Resolve(k Kind, shape grid.Shape) (Strategy, error) {
	if k == Auto {
		if shape.Size() < e.autoThreshold {
			k = Whole
		} else {
			k = Plane
		}
	}
	switch k {
	case Whole:
		return wholeStrategy{exec: e.exec}, nil
	case Plane:
		return planeStrategy{exec: e.exec}, nil
	case Ray:
		return rayStrategy{exec: e.exec}, nil
	}
	return nil, fmt.Errorf("kind %d: %w", int(k), ErrUnknownStrategy)
}

// Moment computes the moment of the given order along axis. The result
// keeps axis at extent 1; the second result is the strategy used.
func (e *Engine) Moment(src Source, order int, axis grid.Axis, k Kind) (*grid.Dense, Kind, error) {
	if order < 0 {
		return nil, k, fmt.Errorf("negative moment order %d", order)
	}
	if !axis.Valid() {
		return nil, k, fmt.Errorf("axis %d: %w", int(axis), grid.ErrOutOfRange)
	}
	s, err := e.Resolve(k, src.Shape())
	if err != nil {
		return nil, k, err
	}
	start := time.Now()
	out, err := s.Compute(src, order, axis)
	if err != nil {
		return nil, s.Kind(), err
	}
	observability.RecordReduction(fmt.Sprintf("moment%d", order), s.Kind().String(), time.Since(start))
	return out, s.Kind(), nil
}
