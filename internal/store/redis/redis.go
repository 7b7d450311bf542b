// Package redis implements store.JobStore on Redis. Each job is a Hash,
// each type's ready list is a List (RPUSH/LPOP gives FIFO), and every
// transition is additionally published on a Redis channel so other
// processes can observe job lifecycles.
package redis

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"
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

// Store implements store.JobStore backed by Redis. The caller owns the
// client lifecycle.
type Store struct {
	store.Hub

	rdb        *goredis.Client
	maxRetries int
	log        *zap.Logger
}

// New creates a Redis-backed job store.
func New(rdb *goredis.Client, opts ...Option) *Store {
	s := &Store{rdb: rdb, maxRetries: 3, log: zap.NewNop()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Ping verifies the Redis connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return errors.Wrap(domain.ErrStoreUnavailable, err.Error())
	}
	return nil
}

func (s *Store) Create(ctx context.Context, jobType string, payload json.RawMessage) (*domain.Job, error) {
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
	if err := s.rdb.HSet(ctx, jobKey(j.ID), jobToMap(j)).Err(); err != nil {
		return nil, errors.Wrapf(domain.ErrStoreUnavailable, "create job: %v", err)
	}
	return j, nil
}

func (s *Store) Enqueue(ctx context.Context, id string) error {
	j, err := s.transition(ctx, id, domain.Created, domain.Queued, nil)
	if err != nil {
		return err
	}
	if err := s.rdb.RPush(ctx, queueKey(j.Type), id).Err(); err != nil {
		return errors.Wrapf(domain.ErrStoreUnavailable, "enqueue %s: %v", id, err)
	}
	s.publish(ctx, store.Event{JobID: id, Type: j.Type, From: domain.Created, To: domain.Queued})
	return nil
}

func (s *Store) Dequeue(ctx context.Context, jobType string) (string, error) {
	id, err := s.rdb.LPop(ctx, queueKey(jobType)).Result()
	if errors.Is(err, goredis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrapf(domain.ErrStoreUnavailable, "dequeue %s: %v", jobType, err)
	}
	return id, nil
}

func (s *Store) MarkActive(ctx context.Context, id string) error {
	j, err := s.transition(ctx, id, domain.Queued, domain.Active, nil)
	if err != nil {
		return err
	}
	s.publish(ctx, store.Event{JobID: id, Type: j.Type, From: domain.Queued, To: domain.Active})
	return nil
}

func (s *Store) ReportProgress(ctx context.Context, id string, percent int) error {
	j, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if j.State != domain.Active {
		return errors.Wrapf(domain.ErrInvalidProgress, "job %s is %s, not active", id, j.State)
	}
	if percent < 0 || percent > 100 || percent < j.Progress {
		return errors.Wrapf(domain.ErrInvalidProgress, "job %s: %d%% after %d%%", id, percent, j.Progress)
	}
	err = s.rdb.HSet(ctx, jobKey(id),
		"progress", percent,
		"updated_at", time.Now().UTC().Format(time.RFC3339Nano),
	).Err()
	if err != nil {
		return errors.Wrapf(domain.ErrStoreUnavailable, "report progress %s: %v", id, err)
	}
	return nil
}

func (s *Store) Complete(ctx context.Context, id string) error {
	j, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if j.State == domain.Complete {
		s.log.Info("duplicate completion ignored", zap.String("job_id", id))
		return nil
	}
	if _, err := s.transition(ctx, id, domain.Active, domain.Complete, map[string]any{"progress": 100}); err != nil {
		return err
	}
	s.publish(ctx, store.Event{JobID: id, Type: j.Type, From: domain.Active, To: domain.Complete})
	return nil
}

func (s *Store) Fail(ctx context.Context, id, reason string, retryable bool) (bool, error) {
	j, err := s.transition(ctx, id, domain.Active, domain.Failed, map[string]any{"error": reason})
	if err != nil {
		return false, err
	}
	s.publish(ctx, store.Event{JobID: id, Type: j.Type, From: domain.Active, To: domain.Failed})

	if !retryable || j.Retries >= j.MaxRetries {
		return false, nil
	}

	fields := map[string]any{
		"state":      string(domain.Queued),
		"progress":   0,
		"retries":    j.Retries + 1,
		"updated_at": time.Now().UTC().Format(time.RFC3339Nano),
	}
	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, jobKey(id), fields)
	pipe.RPush(ctx, queueKey(j.Type), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, errors.Wrapf(domain.ErrStoreUnavailable, "requeue %s: %v", id, err)
	}
	s.publish(ctx, store.Event{JobID: id, Type: j.Type, From: domain.Failed, To: domain.Queued})
	return true, nil
}

func (s *Store) Get(ctx context.Context, id string) (*domain.Job, error) {
	fields, err := s.rdb.HGetAll(ctx, jobKey(id)).Result()
	if err != nil {
		return nil, errors.Wrapf(domain.ErrStoreUnavailable, "get %s: %v", id, err)
	}
	if len(fields) == 0 {
		return nil, errors.Wrap(domain.ErrNotFound, id)
	}
	return jobFromMap(fields)
}

// transition validates the current state and writes the new one along
// with any extra hash fields. It returns the job as read before the
// transition.
func (s *Store) transition(ctx context.Context, id string, from, to domain.State, extra map[string]any) (*domain.Job, error) {
	j, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if j.State != from {
		return nil, errors.Wrapf(domain.ErrInvalidState, "%s → %s on job %s in state %s", from, to, id, j.State)
	}
	fields := map[string]any{
		"state":      string(to),
		"updated_at": time.Now().UTC().Format(time.RFC3339Nano),
	}
	for k, v := range extra {
		fields[k] = v
	}
	if err := s.rdb.HSet(ctx, jobKey(id), fields).Err(); err != nil {
		return nil, errors.Wrapf(domain.ErrStoreUnavailable, "transition %s: %v", id, err)
	}
	return j, nil
}

// publish emits the event to in-process listeners and on the Redis
// events channel. Publish failures are logged, never propagated, the
// transition itself has already been recorded.
func (s *Store) publish(ctx context.Context, ev store.Event) {
	s.Emit(ev)
	raw, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if err := s.rdb.Publish(ctx, eventsChannel, raw).Err(); err != nil {
		s.log.Warn("event publish failed",
			zap.String("job_id", ev.JobID),
			zap.Error(err),
		)
	}
}

func jobToMap(j *domain.Job) map[string]any {
	return map[string]any{
		"id":          j.ID,
		"type":        j.Type,
		"payload":     string(j.Payload),
		"state":       string(j.State),
		"progress":    j.Progress,
		"retries":     j.Retries,
		"max_retries": j.MaxRetries,
		"error":       j.Error,
		"created_at":  j.CreatedAt.Format(time.RFC3339Nano),
		"updated_at":  j.UpdatedAt.Format(time.RFC3339Nano),
	}
}

func jobFromMap(fields map[string]string) (*domain.Job, error) {
	j := &domain.Job{
		ID:    fields["id"],
		Type:  fields["type"],
		State: domain.State(fields["state"]),
		Error: fields["error"],
	}
	if p := fields["payload"]; p != "" {
		j.Payload = json.RawMessage(p)
	}
	var err error
	if j.Progress, err = strconv.Atoi(fields["progress"]); err != nil {
		return nil, errors.Wrapf(err, "job %s: bad progress", j.ID)
	}
	if j.Retries, err = strconv.Atoi(fields["retries"]); err != nil {
		return nil, errors.Wrapf(err, "job %s: bad retries", j.ID)
	}
	if j.MaxRetries, err = strconv.Atoi(fields["max_retries"]); err != nil {
		return nil, errors.Wrapf(err, "job %s: bad max_retries", j.ID)
	}
	if j.CreatedAt, err = time.Parse(time.RFC3339Nano, fields["created_at"]); err != nil {
		return nil, errors.Wrapf(err, "job %s: bad created_at", j.ID)
	}
	if j.UpdatedAt, err = time.Parse(time.RFC3339Nano, fields["updated_at"]); err != nil {
		return nil, errors.Wrapf(err, "job %s: bad updated_at", j.ID)
	}
	return j, nil
}
