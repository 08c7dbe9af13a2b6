package cmd

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dblp-tools/faculty-harvester/internal/api"
	"github.com/dblp-tools/faculty-harvester/internal/clock/system"
	"github.com/dblp-tools/faculty-harvester/internal/config"
	"github.com/dblp-tools/faculty-harvester/internal/driver"
	"github.com/dblp-tools/faculty-harvester/internal/harvest"
	"github.com/dblp-tools/faculty-harvester/internal/ledger"
	ledgermem "github.com/dblp-tools/faculty-harvester/internal/ledger/memory"
	ledgerpg "github.com/dblp-tools/faculty-harvester/internal/ledger/postgres"
	ledgersqlite "github.com/dblp-tools/faculty-harvester/internal/ledger/sqlite"
	"github.com/dblp-tools/faculty-harvester/internal/ratelimit"
	"github.com/dblp-tools/faculty-harvester/internal/retry"
	"github.com/dblp-tools/faculty-harvester/internal/worker"
)

// openLedger builds the configured ledger backend.
func openLedger(ctx context.Context, cfg config.Config, clock harvest.Clock) (ledger.Ledger, error) {
	switch cfg.Ledger.Driver {
	case "sqlite":
		return ledgersqlite.New(cfg.Ledger.Path, clock)
	case "postgres":
		return ledgerpg.New(ctx, cfg.Ledger.DSN, clock)
	case "memory":
		return ledgermem.New(clock), nil
	default:
		return nil, fmt.Errorf("unknown ledger driver %q", cfg.Ledger.Driver)
	}
}

// buildDriver wires limiter, retry policy, and worker around the given
// fetcher and sink.
func buildDriver(
	cfg config.Config,
	led ledger.Ledger,
	fetcher harvest.Fetcher,
	snk harvest.Sink,
	clock harvest.Clock,
	logger *zap.Logger,
) *driver.Driver {
	limiter := ratelimit.New(ratelimit.Config{
		MinInterval: time.Duration(cfg.RateLimit.MinIntervalMs) * time.Millisecond,
		Jitter:      time.Duration(cfg.RateLimit.JitterMs) * time.Millisecond,
		MaxSlowdown: cfg.RateLimit.MaxSlowdown,
	})
	policy := retry.New(retry.Config{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseBackoff: time.Duration(cfg.Retry.BackoffInitialMs) * time.Millisecond,
		Multiplier:  cfg.Retry.Multiplier,
		MaxBackoff:  time.Duration(cfg.Retry.BackoffMaxMs) * time.Millisecond,
		Jitter:      time.Duration(cfg.Retry.JitterMs) * time.Millisecond,
	}, harvest.Classify, limiter, logger)

	w := worker.New(led, limiter, policy, fetcher, snk, logger)
	return driver.New(w, clock, driver.Config{
		Concurrency: cfg.Concurrency,
		FailsPath:   cfg.Output.FailsPath,
		FailsAppend: cfg.Output.FailsAppend,
	}, logger)
}

// startStatusServer starts the optional status server and returns its
// shutdown function (a no-op when disabled).
func startStatusServer(cfg config.Config, led ledger.Ledger, logger *zap.Logger) func(context.Context) {
	if !cfg.Status.Enabled {
		return func(context.Context) {}
	}
	srv := api.NewServer(led, cfg.Status.Port, logger)
	srv.Start()
	logger.Info("status server listening", zap.Int("port", cfg.Status.Port))
	return func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn("status server shutdown failed", zap.Error(err))
		}
	}
}

// newSystemClock keeps command wiring terse.
func newSystemClock() harvest.Clock {
	return system.New()
}
