package reservation_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mgn-dev/alx-backend/internal/counter"
	"github.com/mgn-dev/alx-backend/internal/domain"
	"github.com/mgn-dev/alx-backend/internal/queue"
	"github.com/mgn-dev/alx-backend/internal/reservation"
	"github.com/mgn-dev/alx-backend/internal/store/memory"
)

func TestSeatsClosedUntilReset(t *testing.T) {
	seats := reservation.NewSeats(counter.NewMemory(), zap.NewNop())
	assert.False(t, seats.Accepting(), "window opens only after reset")

	require.NoError(t, seats.Reset(context.Background(), 50))
	assert.True(t, seats.Accepting())
}

func TestReserveDecrements(t *testing.T) {
	ctx := context.Background()
	seats := reservation.NewSeats(counter.NewMemory(), zap.NewNop())
	require.NoError(t, seats.Reset(ctx, 2))

	require.NoError(t, seats.HandleReserve(ctx, &domain.Job{ID: "j1"}, nil))
	n, err := seats.Available(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.True(t, seats.Accepting(), "one seat left, still open")

	require.NoError(t, seats.HandleReserve(ctx, &domain.Job{ID: "j2"}, nil))
	n, err = seats.Available(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
	assert.False(t, seats.Accepting(), "last seat taken, window closed")
}

func TestReserveAtZeroFails(t *testing.T) {
	ctx := context.Background()
	seats := reservation.NewSeats(counter.NewMemory(), zap.NewNop())
	require.NoError(t, seats.Reset(ctx, 0))

	err := seats.HandleReserve(ctx, &domain.Job{ID: "j1"}, nil)
	require.ErrorIs(t, err, domain.ErrCapacityExceeded)
	assert.Contains(t, err.Error(), "not enough seats available")

	n, gerr := seats.Available(ctx)
	require.NoError(t, gerr)
	assert.EqualValues(t, 0, n, "failed attempt leaves the counter unchanged")
}

func TestResetReopens(t *testing.T) {
	ctx := context.Background()
	seats := reservation.NewSeats(counter.NewMemory(), zap.NewNop())
	require.NoError(t, seats.Reset(ctx, 1))

	require.NoError(t, seats.HandleReserve(ctx, &domain.Job{ID: "j1"}, nil))
	assert.False(t, seats.Accepting())

	require.NoError(t, seats.Reset(ctx, 10))
	assert.True(t, seats.Accepting())
	n, err := seats.Available(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 10, n)
}

func TestNoDoubleBooking(t *testing.T) {
	ctx := context.Background()
	seats := reservation.NewSeats(counter.NewMemory(), zap.NewNop())
	require.NoError(t, seats.Reset(ctx, 50))

	const attempts = 80
	var succeeded, capacity atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := seats.HandleReserve(ctx, &domain.Job{ID: "j"}, nil)
			switch {
			case err == nil:
				succeeded.Add(1)
			case assert.ErrorIs(t, err, domain.ErrCapacityExceeded):
				capacity.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 50, succeeded.Load(), "exactly capacity reservations succeed")
	assert.EqualValues(t, 30, capacity.Load())
	n, err := seats.Available(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n, "never negative, never double-decremented")
	assert.False(t, seats.Accepting())
}

// Fifty queued reservations against fifty seats: all succeed, the
// counter ends at zero and the window closes.
func TestFiftySeatsFiftyJobs(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	seats := reservation.NewSeats(counter.NewMemory(), zap.NewNop())
	require.NoError(t, seats.Reset(ctx, 50))

	pool := queue.New(s, zap.NewNop(), queue.WithPollInterval(time.Millisecond))
	t.Cleanup(pool.Stop)
	require.NoError(t, pool.Register(domain.TypeReserveSeat, 5, seats.HandleReserve))

	ids := make([]string, 0, 50)
	for i := 0; i < 50; i++ {
		j, err := s.Create(ctx, domain.TypeReserveSeat, nil)
		require.NoError(t, err)
		require.NoError(t, s.Enqueue(ctx, j.ID))
		ids = append(ids, j.ID)
	}
	pool.Start()

	require.Eventually(t, func() bool {
		for _, id := range ids {
			j, err := s.Get(ctx, id)
			if err != nil || !j.Terminal() {
				return false
			}
		}
		return true
	}, 5*time.Second, 5*time.Millisecond)

	for _, id := range ids {
		j, err := s.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.Complete, j.State)
	}
	n, err := seats.Available(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
	assert.False(t, seats.Accepting())
}
