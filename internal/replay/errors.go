package replay

import "errors"

var (
	// ErrEmptyRecording is returned when a recording holds no frames.
	ErrEmptyRecording = errors.New("recording has no frames")

	// ErrInvalidOrdering is returned when frame rounds are not consecutive from zero.
	ErrInvalidOrdering = errors.New("frames are not in round order")

	// ErrConservation is returned when per-resource totals change between frames.
	ErrConservation = errors.New("resource totals not conserved")

	// ErrNegativeState is returned when a frame holds negative coin or quantity.
	ErrNegativeState = errors.New("negative coin or quantity")
)
