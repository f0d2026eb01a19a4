package bitrate

import "errors"

var (
	// ErrEmptySequence is returned when a sequence would contain no samples
	ErrEmptySequence = errors.New("file contains no analyzable samples")

	// ErrInvalidResolution is returned when a resample resolution is not positive
	ErrInvalidResolution = errors.New("resolution must be positive")

	// ErrInvalidState signals an internal aggregation defect, such as combining an empty run
	ErrInvalidState = errors.New("invalid aggregation state")

	// ErrInvalidTimescale is returned for a zero ticks-per-second value
	ErrInvalidTimescale = errors.New("timescale must be positive")

	// ErrInvalidMode is returned for an unknown mode or a non-positive time window
	ErrInvalidMode = errors.New("invalid aggregation mode")

	// ErrOverflow is returned when a time conversion does not fit in 64 bits
	ErrOverflow = errors.New("time value overflows 64 bits")
)
