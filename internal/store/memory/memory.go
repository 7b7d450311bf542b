// Package memory implements store.JobStore entirely in memory. Safe for
// concurrent use. Intended for unit tests and development.
package memory

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mgn-dev/alx-backend/internal/domain"
	"github.com/mgn-dev/alx-backend/internal/store"
)

var _ store.JobStore = (*Store)(nil)

// Option configures the Store.
type Option func(*Store)

// WithLogger sets a custom logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *Store) { s.log = log }
}

// WithMaxRetries sets the retry budget assigned to new jobs.
func WithMaxRetries(n int) Option {
	return func(s *Store) { s.maxRetries = n }
}

// Store holds jobs in a map and ready lists in per-type FIFO slices.
type Store struct {
	store.Hub

	mu         sync.Mutex
	jobs       map[string]*domain.Job
	ready      map[string][]string
	maxRetries int
	log        *zap.Logger
}

// New returns an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		jobs:       make(map[string]*domain.Job),
		ready:      make(map[string][]string),
		maxRetries: 3,
		log:        zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) Create(_ context.Context, jobType string, payload json.RawMessage) (*domain.Job, error) {
	now := time.Now().UTC()
	j := &domain.Job{
		ID:         uuid.NewString(),
		Type:       jobType,
		Payload:    payload,
		State:      domain.Created,
		MaxRetries: s.maxRetries,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	s.mu.Lock()
	s.jobs[j.ID] = j
	s.mu.Unlock()

	cp := *j
	return &cp, nil
}

func (s *Store) Enqueue(_ context.Context, id string) error {
	s.mu.Lock()
	j, ok := s.jobs[id]
	if !ok {
		s.mu.Unlock()
		return errors.Wrap(domain.ErrNotFound, id)
	}
	if j.State != domain.Created {
		s.mu.Unlock()
		return errors.Wrapf(domain.ErrInvalidState, "enqueue %s in state %s", id, j.State)
	}
	j.State = domain.Queued
	j.UpdatedAt = time.Now().UTC()
	s.ready[j.Type] = append(s.ready[j.Type], id)
	ev := store.Event{JobID: id, Type: j.Type, From: domain.Created, To: domain.Queued}
	s.mu.Unlock()

	s.Emit(ev)
	return nil
}

func (s *Store) Dequeue(_ context.Context, jobType string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.ready[jobType]
	if len(q) == 0 {
		return "", nil
	}
	id := q[0]
	s.ready[jobType] = q[1:]
	return id, nil
}

func (s *Store) MarkActive(_ context.Context, id string) error {
	s.mu.Lock()
	j, ok := s.jobs[id]
	if !ok {
		s.mu.Unlock()
		return errors.Wrap(domain.ErrNotFound, id)
	}
	if j.State != domain.Queued {
		s.mu.Unlock()
		return errors.Wrapf(domain.ErrInvalidState, "activate %s in state %s", id, j.State)
	}
	j.State = domain.Active
	j.UpdatedAt = time.Now().UTC()
	ev := store.Event{JobID: id, Type: j.Type, From: domain.Queued, To: domain.Active}
	s.mu.Unlock()

	s.Emit(ev)
	return nil
}

func (s *Store) ReportProgress(_ context.Context, id string, percent int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return errors.Wrap(domain.ErrNotFound, id)
	}
	if j.State != domain.Active {
		return errors.Wrapf(domain.ErrInvalidProgress, "job %s is %s, not active", id, j.State)
	}
	if percent < 0 || percent > 100 || percent < j.Progress {
		return errors.Wrapf(domain.ErrInvalidProgress, "job %s: %d%% after %d%%", id, percent, j.Progress)
	}
	j.Progress = percent
	j.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Store) Complete(_ context.Context, id string) error {
	s.mu.Lock()
	j, ok := s.jobs[id]
	if !ok {
		s.mu.Unlock()
		return errors.Wrap(domain.ErrNotFound, id)
	}
	if j.State == domain.Complete {
		s.mu.Unlock()
		s.log.Info("duplicate completion ignored", zap.String("job_id", id))
		return nil
	}
	if j.State != domain.Active {
		s.mu.Unlock()
		return errors.Wrapf(domain.ErrInvalidState, "complete %s in state %s", id, j.State)
	}
	j.State = domain.Complete
	j.Progress = 100
	j.UpdatedAt = time.Now().UTC()
	ev := store.Event{JobID: id, Type: j.Type, From: domain.Active, To: domain.Complete}
	s.mu.Unlock()

	s.Emit(ev)
	return nil
}

func (s *Store) Fail(_ context.Context, id, reason string, retryable bool) (bool, error) {
	s.mu.Lock()
	j, ok := s.jobs[id]
	if !ok {
		s.mu.Unlock()
		return false, errors.Wrap(domain.ErrNotFound, id)
	}
	if j.State != domain.Active {
		s.mu.Unlock()
		return false, errors.Wrapf(domain.ErrInvalidState, "fail %s in state %s", id, j.State)
	}
	now := time.Now().UTC()
	j.State = domain.Failed
	j.Error = reason
	j.UpdatedAt = now
	events := []store.Event{{JobID: id, Type: j.Type, From: domain.Active, To: domain.Failed}}

	requeued := false
	if retryable && j.Retries < j.MaxRetries {
		j.Retries++
		j.Progress = 0
		j.State = domain.Queued
		s.ready[j.Type] = append(s.ready[j.Type], id)
		events = append(events, store.Event{JobID: id, Type: j.Type, From: domain.Failed, To: domain.Queued})
		requeued = true
	}
	s.mu.Unlock()

	for _, ev := range events {
		s.Emit(ev)
	}
	return requeued, nil
}

func (s *Store) Get(_ context.Context, id string) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, errors.Wrap(domain.ErrNotFound, id)
	}
	cp := *j
	return &cp, nil
}
