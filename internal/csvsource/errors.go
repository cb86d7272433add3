package csvsource

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrTooLarge          = errors.New("csv exceeds size limit")
	ErrUnsupportedScheme = errors.New("unsupported csv url scheme")
	ErrNotConfigured     = errors.New("csv source not configured")
)

// StatusError is returned for non-2xx HTTP responses.
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: unexpected status %s", e.URL, e.Status)
}

// TransportError is returned when an HTTP fetch fails before a response
// arrives. URL is redacted and Err is the underlying cause without the
// request URL.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Timeout reports whether the fetch failed on a deadline.
func (e *TransportError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var t interface{ Timeout() bool }
	return errors.As(e.Err, &t) && t.Timeout()
}

// PairError names which export of a pair failed.
type PairError struct {
	Side string
	Err  error
}

func (e *PairError) Error() string { return e.Side + " csv: " + e.Err.Error() }

func (e *PairError) Unwrap() error { return e.Err }
