package models

import "errors"

var (
	// ErrInvalidInput is returned for malformed rows, wrong vector lengths,
	// and unknown demographic categories.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInsufficientData is returned when lag-corrected aggregation needs
	// months beyond the end of the available data.
	ErrInsufficientData = errors.New("insufficient data")
)
