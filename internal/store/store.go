// Package store defines the job store contract. The store owns every job
// record and is the only component allowed to move a job through its
// lifecycle; workers and services go through this interface.
package store

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/mgn-dev/alx-backend/internal/domain"
)

// Event describes one observed state transition.
type Event struct {
	JobID string       `json:"jobId"`
	Type  string       `json:"type"`
	From  domain.State `json:"from"`
	To    domain.State `json:"to"`
}

// Listener receives transition events. Listeners must be fast; they are
// invoked synchronously on the transition path.
type Listener func(Event)

// JobStore is the durable record of jobs plus the per-type FIFO ready
// lists workers pull from.
type JobStore interface {
	// Create allocates an id and persists the job in the created state.
	// It does not enqueue.
	Create(ctx context.Context, jobType string, payload json.RawMessage) (*domain.Job, error)
	// Enqueue moves created → queued and appends the id to the type's
	// ready list.
	Enqueue(ctx context.Context, id string) error
	// Dequeue pops the oldest queued id for the type, or "" when the
	// ready list is empty.
	Dequeue(ctx context.Context, jobType string) (string, error)
	// MarkActive moves queued → active.
	MarkActive(ctx context.Context, id string) error
	// ReportProgress records progress while active. Progress must be
	// within [0,100] and non-decreasing.
	ReportProgress(ctx context.Context, id string, percent int) error
	// Complete moves active → complete and sets progress to 100.
	// Calling it on an already complete job is a logged no-op.
	Complete(ctx context.Context, id string) error
	// Fail moves active → failed. When retryable and retry budget
	// remains the job is re-queued (progress reset, retry counter
	// incremented) and Fail reports requeued = true.
	Fail(ctx context.Context, id, reason string, retryable bool) (requeued bool, err error)
	// Get returns a copy of the job.
	Get(ctx context.Context, id string) (*domain.Job, error)
	// Notify registers a transition listener.
	Notify(fn Listener)
}

// Hub fans transition events out to registered listeners. Embedded by
// store implementations.
type Hub struct {
	mu        sync.RWMutex
	listeners []Listener
}

// Notify registers a listener for all future events.
func (h *Hub) Notify(fn Listener) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listeners = append(h.listeners, fn)
}

// Emit delivers an event to every listener. Callers must not hold the
// store's own lock, listeners may call back into the store.
func (h *Hub) Emit(ev Event) {
	h.mu.RLock()
	fns := make([]Listener, len(h.listeners))
	copy(fns, h.listeners)
	h.mu.RUnlock()
	for _, fn := range fns {
		fn(ev)
	}
}
