// Package retry wraps a single fetch in bounded, classified retries with
// exponential backoff.
package retry

import (
	"context"
	"crypto/rand"
	"math"
	"math/big"
	"time"

	"go.uber.org/zap"

	"github.com/dblp-tools/faculty-harvester/internal/harvest"
	"github.com/dblp-tools/faculty-harvester/internal/metrics"
)

// Config controls Policy behavior.
type Config struct {
	// MaxAttempts is the total number of fetches allowed, default 3.
	MaxAttempts int
	// BaseBackoff is the delay before the second attempt, default 5s.
	BaseBackoff time.Duration
	// Multiplier grows the backoff per attempt, default 2.0.
	Multiplier float64
	// MaxBackoff caps the computed delay, default 60s.
	MaxBackoff time.Duration
	// Jitter, when positive, adds a uniform random delay in [0, Jitter)
	// on top of each backoff sleep.
	Jitter time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = 5 * time.Second
	}
	if c.Multiplier <= 1 {
		c.Multiplier = 2.0
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 60 * time.Second
	}
	return c
}

// Policy executes fetches under the retry contract. Rate-limit responses are
// always retryable and additionally signal the throttler; fatal
// classifications stop the item on the first occurrence.
type Policy struct {
	cfg       Config
	classify  harvest.Classifier
	throttler harvest.Throttler
	logger    *zap.Logger
}

// New constructs a Policy. A nil classifier uses harvest.Classify; a nil
// throttler disables adaptive slowdown; a nil logger uses zap.NewNop.
func New(cfg Config, classify harvest.Classifier, throttler harvest.Throttler, logger *zap.Logger) *Policy {
	if classify == nil {
		classify = harvest.Classify
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Policy{
		cfg:       cfg.withDefaults(),
		classify:  classify,
		throttler: throttler,
		logger:    logger,
	}
}

// Execute runs fetch for item until success, a fatal failure, exhausted
// attempts, or context cancellation. Every path resolves to an AttemptResult;
// the caller inspects result.Err against the context to detect shutdown.
func (p *Policy) Execute(ctx context.Context, fetch harvest.Fetcher, item harvest.WorkItem) harvest.AttemptResult {
	var lastErr error
	for attempt := 1; attempt <= p.cfg.MaxAttempts; attempt++ {
		payload, err := fetch.Fetch(ctx, item)
		if err == nil {
			metrics.IncFetchAttempt("success")
			return harvest.AttemptResult{
				Key:        item.Key,
				Outcome:    harvest.OutcomeSuccess,
				Payload:    payload,
				Attempts:   attempt,
				FinishedAt: time.Now().UTC(),
			}
		}
		lastErr = err

		class := p.classify(err)
		if harvest.IsRateLimited(err) {
			// Throttle responses are always retryable, whatever the
			// classifier says, and widen the limiter for the rest of
			// the run.
			class = harvest.Retryable
			if p.throttler != nil {
				p.throttler.Slow()
			}
		}

		if class == harvest.Fatal {
			metrics.IncFetchAttempt("fatal")
			p.logger.Warn("fetch failed fatally",
				zap.String("key", item.Key),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			return harvest.AttemptResult{
				Key:        item.Key,
				Outcome:    harvest.OutcomeFatalFailure,
				Err:        err,
				Attempts:   attempt,
				FinishedAt: time.Now().UTC(),
			}
		}

		metrics.IncFetchAttempt("retryable")
		if attempt == p.cfg.MaxAttempts {
			break
		}

		delay := p.Backoff(attempt)
		p.logger.Warn("fetch failed, backing off",
			zap.String("key", item.Key),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", p.cfg.MaxAttempts),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)
		metrics.IncRetry()
		if err := p.sleep(ctx, delay); err != nil {
			// Shutdown during backoff: report the context error so the
			// worker leaves the item pending instead of marking it failed.
			return harvest.AttemptResult{
				Key:        item.Key,
				Outcome:    harvest.OutcomeRetryableFailure,
				Err:        err,
				Attempts:   attempt,
				FinishedAt: time.Now().UTC(),
			}
		}
	}

	return harvest.AttemptResult{
		Key:        item.Key,
		Outcome:    harvest.OutcomeRetryableFailure,
		Err:        lastErr,
		Attempts:   p.cfg.MaxAttempts,
		FinishedAt: time.Now().UTC(),
	}
}

// Backoff returns the deterministic delay before the attempt following
// attempt (1-based): min(base * multiplier^(attempt-1), max).
func (p *Policy) Backoff(attempt int) time.Duration {
	delay := float64(p.cfg.BaseBackoff) * math.Pow(p.cfg.Multiplier, float64(attempt-1))
	if delay > float64(p.cfg.MaxBackoff) {
		delay = float64(p.cfg.MaxBackoff)
	}
	return time.Duration(delay)
}

func (p *Policy) sleep(ctx context.Context, d time.Duration) error {
	d += randomJitter(p.cfg.Jitter)
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

func randomJitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	bound := big.NewInt(int64(limit))
	n, err := rand.Int(rand.Reader, bound)
	if err != nil {
		return limit / 2
	}
	return time.Duration(n.Int64())
}
