package counter_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mgn-dev/alx-backend/internal/counter"
)

func TestDecrIfPositive(t *testing.T) {
	ctx := context.Background()
	c := counter.NewMemory()
	require.NoError(t, c.Set(ctx, "seats", 2))

	v, ok, err := c.DecrIfPositive(ctx, "seats")
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 1, v)

	v, ok, err = c.DecrIfPositive(ctx, "seats")
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 0, v)

	v, ok, err = c.DecrIfPositive(ctx, "seats")
	require.NoError(t, err)
	require.False(t, ok, "decrement must not apply at zero")
	require.EqualValues(t, 0, v)
}

func TestDecrIfPositiveMissingKey(t *testing.T) {
	ctx := context.Background()
	c := counter.NewMemory()

	v, ok, err := c.DecrIfPositive(ctx, "absent")
	require.NoError(t, err)
	require.False(t, ok)
	require.EqualValues(t, 0, v)
}

func TestIncrWithCeiling(t *testing.T) {
	ctx := context.Background()
	c := counter.NewMemory()

	for want := int64(1); want <= 2; want++ {
		v, ok, err := c.IncrWithCeiling(ctx, "item.3", 2)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, want, v)
	}

	v, ok, err := c.IncrWithCeiling(ctx, "item.3", 2)
	require.NoError(t, err)
	require.False(t, ok, "increment must not pass the ceiling")
	require.EqualValues(t, 2, v)
}

func TestConcurrentDecrNeverOversells(t *testing.T) {
	ctx := context.Background()
	c := counter.NewMemory()
	require.NoError(t, c.Set(ctx, "seats", 50))

	const attempts = 80
	var succeeded atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := c.DecrIfPositive(ctx, "seats")
			require.NoError(t, err)
			if ok {
				succeeded.Add(1)
			}
		}()
	}
	wg.Wait()

	require.EqualValues(t, 50, succeeded.Load(), "exactly capacity attempts may succeed")
	final, err := c.Get(ctx, "seats")
	require.NoError(t, err)
	require.EqualValues(t, 0, final, "counter must end at zero, never negative")
}

func TestConcurrentIncrHonorsCeiling(t *testing.T) {
	ctx := context.Background()
	c := counter.NewMemory()

	const attempts = 3
	var succeeded atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := c.IncrWithCeiling(ctx, "item.3", 2)
			require.NoError(t, err)
			if ok {
				succeeded.Add(1)
			}
		}()
	}
	wg.Wait()

	require.EqualValues(t, 2, succeeded.Load())
	final, err := c.Get(ctx, "item.3")
	require.NoError(t, err)
	require.EqualValues(t, 2, final)
}
