package fallback

import (
	"errors"
	"fmt"
)

// ErrUnknownBackend is returned when a chain names a backend that was never
// registered with the executor.
var ErrUnknownBackend = errors.New("unknown backend")

// BackendExecutionError is a single tier's failure.
type BackendExecutionError struct {
	Backend string
	Tier    int
	Err     error
}

func (e *BackendExecutionError) Error() string {
	return fmt.Sprintf("backend %s (tier %d): %v", e.Backend, e.Tier, e.Err)
}

func (e *BackendExecutionError) Unwrap() error { return e.Err }

// AllTiersExhaustedError aggregates every tier's failure when the whole
// chain failed. Its message carries the last tier's failure; earlier
// attempts remain available for diagnostics.
type AllTiersExhaustedError struct {
	Attempts []*BackendExecutionError
}

func (e *AllTiersExhaustedError) Error() string {
	last := e.Attempts[len(e.Attempts)-1]
	return fmt.Sprintf("all %d fallback tiers exhausted, last: %v", len(e.Attempts), last)
}

func (e *AllTiersExhaustedError) Unwrap() error {
	return e.Attempts[len(e.Attempts)-1]
}
