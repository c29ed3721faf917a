package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/placescout/placescout/internal/scout"
)

func newTestPool(t *testing.T, capacity int, acquireTimeout time.Duration) *Pool {
	t.Helper()
	p, err := NewPool(Config{
		Capacity:       capacity,
		AcquireTimeout: acquireTimeout,
		Headless:       true,
	}, nil)
	require.NoError(t, err)
	t.Cleanup(p.Close)
	return p
}

func TestPool_CapacityIsBounded(t *testing.T) {
	t.Parallel()

	pool := newTestPool(t, 2, 5*time.Second)

	var (
		mu      sync.Mutex
		active  int
		peak    int
		wg      sync.WaitGroup
		acquire = func() {
			defer wg.Done()
			s, err := pool.Acquire(context.Background())
			require.NoError(t, err)
			mu.Lock()
			active++
			if active > peak {
				peak = active
			}
			mu.Unlock()

			time.Sleep(20 * time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
			require.NoError(t, pool.Release(s))
		}
	)

	for i := 0; i < 5; i++ {
		wg.Add(1)
		go acquire()
	}
	wg.Wait()

	require.LessOrEqual(t, peak, 2)
	require.Equal(t, 0, pool.InUse())
}

func TestPool_AcquireTimesOutWhenExhausted(t *testing.T) {
	t.Parallel()

	pool := newTestPool(t, 1, 50*time.Millisecond)

	held, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	defer func() { require.NoError(t, pool.Release(held)) }()

	_, err = pool.Acquire(context.Background())
	require.ErrorIs(t, err, scout.ErrPoolExhausted)
}

func TestPool_DoubleReleaseIsAnError(t *testing.T) {
	t.Parallel()

	pool := newTestPool(t, 1, time.Second)

	s, err := pool.Acquire(context.Background())
	require.NoError(t, err)

	require.NoError(t, pool.Release(s))
	require.ErrorIs(t, pool.Release(s), scout.ErrDoubleRelease)
}

func TestPool_WithReleasesOnError(t *testing.T) {
	t.Parallel()

	pool := newTestPool(t, 1, time.Second)

	boom := errors.New("boom")
	err := pool.With(context.Background(), func(scout.Session) error {
		require.Equal(t, 1, pool.InUse())
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.Equal(t, 0, pool.InUse())

	// The slot must be reusable after the failed callback.
	s, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	require.NoError(t, pool.Release(s))
}

func TestPool_AcquireAfterCloseFails(t *testing.T) {
	t.Parallel()

	pool := newTestPool(t, 1, time.Second)
	pool.Close()

	_, err := pool.Acquire(context.Background())
	require.ErrorIs(t, err, scout.ErrPoolClosed)
}

func TestPool_AcquireHonorsContextCancellation(t *testing.T) {
	t.Parallel()

	pool := newTestPool(t, 1, 5*time.Second)

	held, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	defer func() { require.NoError(t, pool.Release(held)) }()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err = pool.Acquire(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
