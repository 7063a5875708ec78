package vector

import "errors"

var (
	// ErrDimensionMismatch is returned when an embedding does not have the
	// dimensionality of the index.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrInvalidTopK is returned for a non positive result count.
	ErrInvalidTopK = errors.New("topK must be positive")

	// ErrConnection is returned when the vector store connection fails.
	ErrConnection = errors.New("vector store connection failed")
)
