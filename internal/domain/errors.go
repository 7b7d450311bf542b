package domain

import "errors"

var (
	// ErrNotFound means the referenced job or product does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidState means an illegal lifecycle transition was attempted.
	ErrInvalidState = errors.New("invalid state transition")
	// ErrInvalidProgress means a progress report was out of range or
	// decreasing, or the job was not active.
	ErrInvalidProgress = errors.New("invalid progress")
	// ErrCapacityExceeded means a reservation found no remaining
	// capacity. Surfaced to callers as a normal failed reservation.
	ErrCapacityExceeded = errors.New("capacity exceeded")
	// ErrBlacklisted means a notification recipient is blacklisted.
	ErrBlacklisted = errors.New("recipient is blacklisted")
	// ErrTimeout means a handler exceeded its execution budget.
	ErrTimeout = errors.New("timeout")
	// ErrStoreUnavailable means the backing store could not be reached.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// Retryable reports whether a handler error is transient and worth
// consuming retry budget on. Business failures (capacity, blacklist) are
// permanent; only infrastructure errors are retried. Unclassified errors
// default to permanent so non-idempotent work is never re-run blindly.
func Retryable(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrStoreUnavailable)
}
