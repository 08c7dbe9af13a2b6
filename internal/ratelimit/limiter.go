// Package ratelimit implements the process-wide request pacing gate. A single
// Limiter is shared by every worker so that no two requests depart within the
// configured minimum interval of each other, and explicit throttle signals
// from the remote widen that interval for the remainder of the run.
package ratelimit

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/dblp-tools/faculty-harvester/internal/metrics"
)

const defaultMaxSlowdown = 10

// Config holds rate limiter configuration.
type Config struct {
	// MinInterval is the minimum spacing between granted acquisitions.
	// Zero or negative disables pacing.
	MinInterval time.Duration
	// Jitter, when positive, adds a uniform random delay in [0, Jitter)
	// after each grant to avoid aligning with the remote's own limiter.
	Jitter time.Duration
	// MaxSlowdown caps adaptive widening at MaxSlowdown * MinInterval.
	// Defaults to 10.
	MaxSlowdown int
}

// Limiter paces outbound requests. Safe for concurrent use; Acquire is the
// single ordering point across all workers.
type Limiter struct {
	mu       sync.Mutex
	limiter  *rate.Limiter
	base     time.Duration
	interval time.Duration
	maxAllow time.Duration
	jitter   time.Duration
}

// New creates a Limiter from cfg.
func New(cfg Config) *Limiter {
	limit := rate.Inf
	if cfg.MinInterval > 0 {
		limit = rate.Every(cfg.MinInterval)
	}
	maxSlowdown := cfg.MaxSlowdown
	if maxSlowdown <= 0 {
		maxSlowdown = defaultMaxSlowdown
	}
	return &Limiter{
		limiter:  rate.NewLimiter(limit, 1),
		base:     cfg.MinInterval,
		interval: cfg.MinInterval,
		maxAllow: cfg.MinInterval * time.Duration(maxSlowdown),
		jitter:   cfg.Jitter,
	}
}

// Acquire blocks until the caller may dispatch a request, honoring the
// context. It returns an error only when the context finishes first.
func (l *Limiter) Acquire(ctx context.Context) error {
	start := time.Now()
	if err := l.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	if delay := time.Since(start); delay > time.Millisecond {
		metrics.ObserveLimiterDelay(delay)
	}
	if l.jitter > 0 {
		if err := sleepCtx(ctx, randomDelay(l.jitter)); err != nil {
			return fmt.Errorf("rate limit jitter: %w", err)
		}
	}
	return nil
}

// Slow widens the pacing interval in response to an explicit throttle signal.
// Each call doubles the current interval up to the configured cap; the
// interval is never narrowed again within the run.
func (l *Limiter) Slow() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.base <= 0 {
		return
	}
	next := l.interval * 2
	if next > l.maxAllow {
		next = l.maxAllow
	}
	if next == l.interval {
		return
	}
	l.interval = next
	l.limiter.SetLimit(rate.Every(next))
	metrics.IncThrottleSignals()
}

// Interval reports the current effective minimum interval.
func (l *Limiter) Interval() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.interval
}

func randomDelay(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(limit)))
	if err != nil {
		return limit / 2
	}
	return time.Duration(n.Int64())
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
