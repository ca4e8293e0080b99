package dispatch

import "errors"

var (
	// ErrMissingCoordinates means the pharmacy has no usable location. Assign manually instead.
	ErrMissingCoordinates = errors.New("pharmacy coordinates are missing")
	ErrAlreadyAssigned    = errors.New("delivery already has a courier")
	ErrOrderClosed        = errors.New("order is delivered or cancelled")
	ErrNotReassignable    = errors.New("delivery can no longer be reassigned")
	ErrCourierUnavailable = errors.New("courier is not available")
)
