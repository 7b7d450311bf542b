// Package counter provides the shared reservation counters. Every
// mutation is a single atomic operation against the backing store; a
// read followed by a separate write would reintroduce the lost-update
// race the reservation services exist to prevent.
package counter

import "context"

// Store holds named non-negative integer counters.
type Store interface {
	// Get returns the counter's value, 0 when the key is absent.
	Get(ctx context.Context, key string) (int64, error)
	// Set overwrites the counter.
	Set(ctx context.Context, key string, value int64) error
	// DecrIfPositive decrements the counter only when its value is at
	// least one. It returns the post-operation value and whether the
	// decrement applied.
	DecrIfPositive(ctx context.Context, key string) (value int64, ok bool, err error)
	// IncrWithCeiling increments the counter only while the result
	// stays at or below ceiling. It returns the post-operation value
	// and whether the increment applied.
	IncrWithCeiling(ctx context.Context, key string, ceiling int64) (value int64, ok bool, err error)
}
