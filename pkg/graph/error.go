package graph

import "errors"

var (
	// ErrNotFound is returned when a node does not exist in the store.
	ErrNotFound = errors.New("node not found")

	// ErrConnection is returned when the graph store is unreachable.
	ErrConnection = errors.New("graph store connection failed")

	// ErrInvalidIdentifier is returned when a structural identifier fails
	// validation and must not be interpolated into a query.
	ErrInvalidIdentifier = errors.New("invalid identifier")

	// ErrDimensionMismatch is returned when an embedding's length does not
	// match the configured dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrConfidenceRange is returned when a memory confidence score is
	// outside [0,1].
	ErrConfidenceRange = errors.New("confidence must be in [0,1]")
)
