package physics

import "errors"

var (
	// ErrInvalidParameter is returned when an entity is constructed with a
	// parameter outside its valid range (mass <= 0, negative damping, ...).
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrDegenerateGeometry is returned when a direction is requested from
	// coincident points or a zero-length vector.
	ErrDegenerateGeometry = errors.New("degenerate geometry")
)
