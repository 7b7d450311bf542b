// Package notification delivers (simulated) push notifications as
// push_notification jobs, rejecting blacklisted recipients before any
// work happens.
package notification

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mgn-dev/alx-backend/internal/domain"
	"github.com/mgn-dev/alx-backend/internal/queue"
	"github.com/mgn-dev/alx-backend/internal/store"
)

// Payload is the job payload for push notifications.
type Payload struct {
	PhoneNumber string `json:"phoneNumber"`
	Message     string `json:"message"`
}

// DefaultBlacklist returns the built-in blocked recipients.
func DefaultBlacklist() []string {
	return []string{"4153518780", "4153518781"}
}

// Option configures the Service.
type Option func(*Service)

// WithDeliveryDelay sets the simulated delivery latency.
func WithDeliveryDelay(d time.Duration) Option {
	return func(s *Service) { s.delay = d }
}

// Service validates recipients and performs delivery. The blacklist is
// immutable for the service's runtime.
type Service struct {
	blacklist map[string]struct{}
	delay     time.Duration
	log       *zap.Logger
}

// New creates a notification service with the given blacklist.
func New(blacklist []string, log *zap.Logger, opts ...Option) *Service {
	s := &Service{
		blacklist: make(map[string]struct{}, len(blacklist)),
		delay:     2 * time.Second,
		log:       log,
	}
	for _, number := range blacklist {
		s.blacklist[number] = struct{}{}
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Blacklisted reports whether the recipient is blocked.
func (s *Service) Blacklisted(phoneNumber string) bool {
	_, ok := s.blacklist[phoneNumber]
	return ok
}

// Handle is the push_notification job handler. A blacklisted recipient
// fails immediately with progress frozen at 0%; otherwise progress goes
// 0 → 50, delivery is simulated, and completion implies 100.
func (s *Service) Handle(ctx context.Context, job *domain.Job, progress queue.ProgressFunc) error {
	var p Payload
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		return errors.Wrapf(err, "job %s: bad payload", job.ID)
	}

	if err := progress(0); err != nil {
		return err
	}

	if s.Blacklisted(p.PhoneNumber) {
		return errors.Wrapf(domain.ErrBlacklisted, "%s is blacklisted", p.PhoneNumber)
	}

	if err := progress(50); err != nil {
		return err
	}
	s.log.Info("sending notification",
		zap.String("job_id", job.ID),
		zap.String("phone_number", p.PhoneNumber),
		zap.String("message", p.Message),
	)

	select {
	case <-time.After(s.delay):
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// CreateJobs creates and enqueues one push_notification job per payload
// and returns the created jobs.
func CreateJobs(ctx context.Context, js store.JobStore, payloads []Payload, log *zap.Logger) ([]*domain.Job, error) {
	jobs := make([]*domain.Job, 0, len(payloads))
	for _, p := range payloads {
		raw, err := json.Marshal(p)
		if err != nil {
			return jobs, errors.Wrap(err, "encode payload")
		}
		j, err := js.Create(ctx, domain.TypePushNotification, raw)
		if err != nil {
			return jobs, err
		}
		if err := js.Enqueue(ctx, j.ID); err != nil {
			return jobs, err
		}
		log.Info("notification job created", zap.String("job_id", j.ID))
		jobs = append(jobs, j)
	}
	return jobs, nil
}
