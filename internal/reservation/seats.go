// Package reservation implements seat and product-stock reservation on
// top of the atomic counter store. All capacity decisions happen inside
// single compare-and-update operations; no value is ever cached across
// a store round trip and written back.
package reservation

import (
	"context"
	"sync/atomic"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mgn-dev/alx-backend/internal/counter"
	"github.com/mgn-dev/alx-backend/internal/domain"
	"github.com/mgn-dev/alx-backend/internal/queue"
)

// SeatsKey is the counter holding the number of available seats.
const SeatsKey = "available_seats"

// SeatService reserves seats from a shared decrementing counter. New
// reservation requests are accepted only while the window is open; the
// window closes when an attempt observes the last seat going.
type SeatService struct {
	counters counter.Store
	log      *zap.Logger
	open     atomic.Bool
}

// NewSeats creates a seat service. The window stays closed until Reset
// has initialized the counter.
func NewSeats(c counter.Store, log *zap.Logger) *SeatService {
	return &SeatService{counters: c, log: log}
}

// Reset sets the seat counter to capacity and reopens the window.
func (s *SeatService) Reset(ctx context.Context, capacity int64) error {
	if err := s.counters.Set(ctx, SeatsKey, capacity); err != nil {
		return err
	}
	s.open.Store(capacity > 0)
	s.log.Info("seat counter reset", zap.Int64("capacity", capacity))
	return nil
}

// Available returns the current seat count.
func (s *SeatService) Available(ctx context.Context) (int64, error) {
	return s.counters.Get(ctx, SeatsKey)
}

// Accepting reports whether new reservation requests are accepted.
func (s *SeatService) Accepting() bool {
	return s.open.Load()
}

// HandleReserve is the reserve_seat job handler. The decrement either
// applies atomically or leaves the counter untouched, so two racing
// reservations can never both take the last seat.
func (s *SeatService) HandleReserve(ctx context.Context, job *domain.Job, _ queue.ProgressFunc) error {
	remaining, ok, err := s.counters.DecrIfPositive(ctx, SeatsKey)
	if err != nil {
		return err
	}

	// Close the window once the last seat is claimed, reopen only via
	// Reset.
	if remaining < 1 {
		s.open.Store(false)
	}

	if !ok {
		return errors.Wrap(domain.ErrCapacityExceeded, "not enough seats available")
	}

	s.log.Info("seat reserved",
		zap.String("job_id", job.ID),
		zap.Int64("remaining", remaining),
	)
	return nil
}
