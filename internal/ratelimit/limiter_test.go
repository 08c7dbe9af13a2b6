package ratelimit

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAcquireEnforcesMinInterval(t *testing.T) {
	t.Parallel()

	interval := 50 * time.Millisecond
	limiter := New(Config{MinInterval: interval})
	ctx := context.Background()

	var grants []time.Time
	for i := 0; i < 3; i++ {
		require.NoError(t, limiter.Acquire(ctx))
		grants = append(grants, time.Now())
	}

	// Small tolerance for timer resolution.
	tolerance := 5 * time.Millisecond
	for i := 1; i < len(grants); i++ {
		gap := grants[i].Sub(grants[i-1])
		require.GreaterOrEqual(t, gap, interval-tolerance,
			"acquisitions %d and %d too close: %v", i-1, i, gap)
	}
}

func TestAcquireSerializesAcrossGoroutines(t *testing.T) {
	t.Parallel()

	interval := 30 * time.Millisecond
	limiter := New(Config{MinInterval: interval})
	ctx := context.Background()

	var (
		mu     sync.Mutex
		grants []time.Time
		wg     sync.WaitGroup
	)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, limiter.Acquire(ctx))
			mu.Lock()
			grants = append(grants, time.Now())
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, grants, 4)
	sort.Slice(grants, func(i, j int) bool { return grants[i].Before(grants[j]) })
	for i := 1; i < len(grants); i++ {
		gap := grants[i].Sub(grants[i-1])
		require.GreaterOrEqual(t, gap, interval-5*time.Millisecond)
	}
}

func TestSlowWidensInterval(t *testing.T) {
	t.Parallel()

	base := 20 * time.Millisecond
	limiter := New(Config{MinInterval: base, MaxSlowdown: 4})

	require.Equal(t, base, limiter.Interval())
	limiter.Slow()
	require.Equal(t, 2*base, limiter.Interval())
	limiter.Slow()
	require.Equal(t, 4*base, limiter.Interval())

	// Capped at MaxSlowdown * base; further signals are no-ops.
	limiter.Slow()
	require.Equal(t, 4*base, limiter.Interval())
}

func TestSlowIncreasesObservedSpacing(t *testing.T) {
	t.Parallel()

	base := 20 * time.Millisecond
	limiter := New(Config{MinInterval: base})
	ctx := context.Background()

	require.NoError(t, limiter.Acquire(ctx))
	limiter.Slow()

	before := time.Now()
	require.NoError(t, limiter.Acquire(ctx))
	require.NoError(t, limiter.Acquire(ctx))
	elapsed := time.Since(before)

	// Two post-throttle grants must reflect the doubled interval.
	require.GreaterOrEqual(t, elapsed, 2*base-10*time.Millisecond)
}

func TestAcquireHonorsContext(t *testing.T) {
	t.Parallel()

	limiter := New(Config{MinInterval: time.Minute})
	ctx := context.Background()
	require.NoError(t, limiter.Acquire(ctx))

	cancelCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	err := limiter.Acquire(cancelCtx)
	require.Error(t, err)
}

func TestUnlimitedWhenIntervalZero(t *testing.T) {
	t.Parallel()

	limiter := New(Config{})
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 10; i++ {
		require.NoError(t, limiter.Acquire(ctx))
	}
	require.Less(t, time.Since(start), 100*time.Millisecond)

	// Widening is meaningless without a base interval.
	limiter.Slow()
	require.Equal(t, time.Duration(0), limiter.Interval())
}
