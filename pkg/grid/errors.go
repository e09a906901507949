package grid

import "errors"

var (
	// ErrShape reports incompatible shapes between arrays, masks or views.
	// It is the shape error of the cube taxonomy and every package that
	// validates shapes wraps it.
	ErrShape = errors.New("grid: shape mismatch")

	// ErrOutOfRange reports an index outside the array bounds.
	ErrOutOfRange = errors.New("grid: index out of range")
)
