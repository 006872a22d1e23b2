package engine

import "errors"

var (
	// ErrNotFound is returned when an ID does not name a live entity of the
	// requested kind.
	ErrNotFound = errors.New("entity not found")

	// ErrSameEndpoint is returned when a link or thruster would join a point
	// to itself.
	ErrSameEndpoint = errors.New("endpoints must differ")

	// ErrEmptySelection is returned when a center of mass is requested over
	// no points.
	ErrEmptySelection = errors.New("empty selection")
)
