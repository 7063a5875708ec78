package splitter

import "errors"

var (
	// ErrNoContent is returned when splitting produced no usable chunk.
	ErrNoContent = errors.New("no meaningful content")

	// ErrInvalidConfig is returned for an impossible size / overlap pair.
	ErrInvalidConfig = errors.New("invalid splitter config")
)
