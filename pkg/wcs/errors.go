package wcs

import "errors"

var (
	// ErrCoordinateMismatch reports two transforms that do not agree within
	// the requested tolerance.
	ErrCoordinateMismatch = errors.New("wcs: coordinate transforms do not match")

	// ErrAxes reports a transform whose axes cannot be classified or
	// reordered as requested.
	ErrAxes = errors.New("wcs: invalid axis layout")

	// ErrProjection reports a world or intermediate coordinate outside the
	// domain of the projection.
	ErrProjection = errors.New("wcs: coordinate outside projection domain")

	// ErrSingular reports a PC matrix that cannot be inverted.
	ErrSingular = errors.New("wcs: singular PC matrix")
)
