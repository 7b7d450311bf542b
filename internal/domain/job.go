package domain

import (
	"encoding/json"
	"time"
)

// State is the lifecycle state of a job.
type State string

const (
	// Created means the job exists but has not been enqueued yet.
	Created State = "created"
	// Queued means the job is waiting in its type's FIFO queue.
	Queued State = "queued"
	// Active means a worker is currently executing the job.
	Active State = "active"
	// Complete means the job finished successfully. Terminal.
	Complete State = "complete"
	// Failed means the job failed. Terminal unless the store re-queues
	// it as part of a retry.
	Failed State = "failed"
)

// Well-known job types.
const (
	TypeReserveSeat      = "reserve_seat"
	TypePushNotification = "push_notification"
)

// Job is a unit of asynchronous work. The job store is the single source
// of truth for every field; handlers never mutate a Job directly.
type Job struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	State      State           `json:"state"`
	Progress   int             `json:"progress"`
	Retries    int             `json:"retries"`
	MaxRetries int             `json:"maxRetries"`
	Error      string          `json:"error,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// Terminal reports whether the job has reached a final state.
func (j *Job) Terminal() bool {
	return j.State == Complete || j.State == Failed
}

// CanTransition reports whether moving between the two states follows
// the lifecycle graph. Failed → Queued is only legal as a retry and the
// retry budget is validated separately by the store.
func CanTransition(from, to State) bool {
	switch from {
	case Created:
		return to == Queued
	case Queued:
		return to == Active
	case Active:
		return to == Complete || to == Failed
	case Failed:
		return to == Queued
	default:
		return false
	}
}
