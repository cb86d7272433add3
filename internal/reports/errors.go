package reports

import "errors"

var (
	ErrNotFound          = errors.New("report not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrNotReady          = errors.New("report not ready")
	ErrInvalidTransition = errors.New("invalid status transition")
)
