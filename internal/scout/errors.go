package scout

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors surfaced to callers of the orchestrator and pool.
var (
	// ErrEmptyQuery is returned when a run is requested without a query.
	ErrEmptyQuery = errors.New("query is required")

	// ErrPoolExhausted is returned when no session slot frees up within
	// the pool's acquisition timeout.
	ErrPoolExhausted = errors.New("session pool exhausted")

	// ErrDoubleRelease indicates a session was released twice. This is a
	// programming error, not an operational one.
	ErrDoubleRelease = errors.New("session released twice")

	// ErrPoolClosed is returned by Acquire after the pool shuts down.
	ErrPoolClosed = errors.New("session pool closed")

	// ErrRunNotFound is returned by run stores for unknown run IDs.
	ErrRunNotFound = errors.New("run not found")
)

// NavigationError wraps a failed page load. Timeouts unwrap to
// context.DeadlineExceeded.
type NavigationError struct {
	URL string
	Err error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("navigate %s: %v", e.URL, e.Err)
}

func (e *NavigationError) Unwrap() error { return e.Err }

// IsNavigationTimeout reports whether err is a navigation that exceeded
// its deadline.
func IsNavigationTimeout(err error) bool {
	var nav *NavigationError
	return errors.As(err, &nav) && errors.Is(err, context.DeadlineExceeded)
}
