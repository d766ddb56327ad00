package domain

import "errors"

var (
	// ErrEmptySample is returned when a PD sample has no values.
	ErrEmptySample = errors.New("pd sample is empty")

	// ErrInvalidPD is returned for a sample value that is NaN or outside [0,1).
	ErrInvalidPD = errors.New("pd value outside [0,1)")

	// ErrDegenerateMean is returned when the sample mean is exactly 0 or 1,
	// where the moment-to-shape transform is undefined.
	ErrDegenerateMean = errors.New("sample mean must lie strictly between 0 and 1")

	// ErrInvalidShape is returned when Beta shape parameters are not positive and finite.
	ErrInvalidShape = errors.New("beta shape parameters must be positive and finite")

	// ErrInvalidLevels is returned for quantile levels outside 0 < low < high < 1.
	ErrInvalidLevels = errors.New("quantile levels must satisfy 0 < low < high < 1")

	// ErrInvalidObservation is returned when a default count is negative,
	// exceeds the number of trials, or the trial count is not positive.
	ErrInvalidObservation = errors.New("default count must lie within [0, N] with N > 0")

	// ErrDegenerateThreshold is returned when a posterior quantile collapses
	// onto 0 or 1 in floating point, which happens for shapes far below 1.
	ErrDegenerateThreshold = errors.New("posterior threshold not strictly inside (0,1)")
)
