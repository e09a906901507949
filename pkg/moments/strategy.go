// Package moments computes intensity-weighted moments of a cube along one
// axis with three interchangeable strategies.
//
// For intensity I, pixel size dl and pixel offset l along the axis:
//
//	M0 = sum(I dl)
//	M1 = sum(I l dl) / M0
//	MN = sum(I (l - M1)^N dl) / M0   for N >= 2
//
// Invalid voxels contribute nothing. Where no voxel along the axis is valid
// the result is NaN for every order. Offsets are relative to the first
// voxel; callers add absolute world values where they need them.
package moments

import (
	"errors"
	"fmt"
	"strings"

	"spectralcube/pkg/geometry"
	"spectralcube/pkg/grid"
	"spectralcube/pkg/lazy"
)

// ErrUnknownStrategy reports a strategy name that is not recognised.
var ErrUnknownStrategy = errors.New("moments: unknown strategy")

// Kind selects a strategy.
type Kind int

const (
	// Auto picks Whole for small cubes and Plane otherwise.
	Auto Kind = iota
	// Whole materializes the cube and reduces it in one go.
	Whole
	// Plane accumulates one slice perpendicular to the axis at a time.
	Plane
	// Ray reduces one line of sight at a time.
	Ray
)

func (k Kind) String() string {
	switch k {
	case Whole:
		return "whole"
	case Plane:
		return "plane"
	case Ray:
		return "ray"
	default:
		return "auto"
	}
}

// ParseKind accepts "whole" (or "cube"), "plane" (or "slice"), "ray" and
// "auto".
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "auto", "":
		return Auto, nil
	case "whole", "cube":
		return Whole, nil
	case "plane", "slice":
		return Plane, nil
	case "ray":
		return Ray, nil
	}
	return Auto, fmt.Errorf("%q: %w", s, ErrUnknownStrategy)
}

// Source is the cube data a strategy reduces. ReadValid fills invalid
// voxels with 0.
type Source interface {
	lazy.Source
	Valid(view grid.View) (*grid.Bool, error)
	Flattened(view grid.View) ([]float64, error)
	Geometry() (*geometry.Geometry, error)
}

// Strategy computes a moment. The result keeps the reduced axis with
// extent 1.
type Strategy interface {
	Kind() Kind
	Compute(src Source, order int, axis grid.Axis) (*grid.Dense, error)
}

// FieldSource adapts a filled view and its geometry to Source.
type FieldSource struct {
	view *lazy.FilledView
	geom *geometry.Geometry
}

// NewSource returns a Source over v, refilled with 0.
func NewSource(v *lazy.FilledView, g *geometry.Geometry) *FieldSource {
	return &FieldSource{view: v.WithFill(0), geom: g}
}

func (s *FieldSource) Shape() grid.Shape { return s.view.Shape() }

func (s *FieldSource) ReadValid(v grid.View) (*grid.Dense, *grid.Bool, error) {
	return s.view.ReadValid(v)
}

func (s *FieldSource) Valid(v grid.View) (*grid.Bool, error) { return s.view.Valid(v) }

func (s *FieldSource) Flattened(v grid.View) ([]float64, error) { return s.view.Flattened(v) }

func (s *FieldSource) Geometry() (*geometry.Geometry, error) { return s.geom, nil }

// ipow returns x^n for n >= 0.
func ipow(x float64, n int) float64 {
	switch n {
	case 0:
		return 1
	case 1:
		return x
	case 2:
		return x * x
	}
	r := 1.0
	for ; n > 0; n >>= 1 {
		if n&1 == 1 {
			r *= x
		}
		x *= x
	}
	return r
}
