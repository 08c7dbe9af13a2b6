// Package worker implements the per-item fetch pipeline: ledger
// short-circuit, rate limiter gate, retry-wrapped fetch, sink persist,
// ledger mark.
package worker

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/dblp-tools/faculty-harvester/internal/harvest"
	"github.com/dblp-tools/faculty-harvester/internal/ledger"
	"github.com/dblp-tools/faculty-harvester/internal/metrics"
)

// Gate is the rate limiter acquisition point shared by all workers.
type Gate interface {
	Acquire(ctx context.Context) error
}

// Executor runs one retry-wrapped fetch.
type Executor interface {
	Execute(ctx context.Context, fetch harvest.Fetcher, item harvest.WorkItem) harvest.AttemptResult
}

// Worker processes work items one at a time. It holds no per-item state;
// the ledger and sink are the only mutation paths and both are injected.
type Worker struct {
	ledger  ledger.Ledger
	gate    Gate
	policy  Executor
	fetcher harvest.Fetcher
	sink    harvest.Sink
	logger  *zap.Logger
}

// New constructs a Worker.
func New(
	ledger ledger.Ledger,
	gate Gate,
	policy Executor,
	fetcher harvest.Fetcher,
	sink harvest.Sink,
	logger *zap.Logger,
) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		ledger:  ledger,
		gate:    gate,
		policy:  policy,
		fetcher: fetcher,
		sink:    sink,
		logger:  logger,
	}
}

// Process resolves one item to an AttemptResult. Fetch failures are values
// in the result, never returned errors. A non-nil error means either the
// run is shutting down (ctx finished, item left pending) or a process-fatal
// condition: the ledger or sink cannot be written, in which case continuing
// would lose progress guarantees.
func (w *Worker) Process(ctx context.Context, item harvest.WorkItem) (harvest.AttemptResult, error) {
	done, err := w.ledger.IsDone(ctx, item.Key)
	if err != nil {
		return harvest.AttemptResult{}, fmt.Errorf("ledger check for %q: %w", item.Key, err)
	}
	if done {
		// Idempotent resume: no limiter acquisition, no network call.
		w.logger.Debug("skipping completed item", zap.String("key", item.Key))
		return harvest.AttemptResult{
			Key:     item.Key,
			Outcome: harvest.OutcomeSuccess,
		}, nil
	}

	if err := w.gate.Acquire(ctx); err != nil {
		// Only a finished context interrupts acquisition; the item stays
		// pending for the next run.
		return harvest.AttemptResult{}, err
	}

	res := w.policy.Execute(ctx, w.fetcher, item)
	if res.Outcome != harvest.OutcomeSuccess && w.interrupted(ctx, res.Err) {
		return res, ctx.Err()
	}

	// A shutdown signal lets the in-flight item finish; persist and mark on
	// a detached context so the ledger write cannot be cut short.
	persistCtx := context.WithoutCancel(ctx)

	switch res.Outcome {
	case harvest.OutcomeSuccess:
		if err := w.sink.Put(persistCtx, item, res.Payload); err != nil {
			return res, fmt.Errorf("persist payload for %q: %w", item.Key, err)
		}
		if err := w.ledger.MarkSucceeded(persistCtx, item.Key, res.Attempts); err != nil {
			return res, fmt.Errorf("mark %q succeeded: %w", item.Key, err)
		}
		metrics.IncItem(string(ledger.StatusSucceeded))
		w.logger.Info("item succeeded",
			zap.String("key", item.Key),
			zap.Int("attempts", res.Attempts),
		)
	case harvest.OutcomeRetryableFailure, harvest.OutcomeFatalFailure:
		fatal := res.Outcome == harvest.OutcomeFatalFailure
		if err := w.ledger.MarkFailed(persistCtx, item.Key, res.Attempts, res.Err, fatal); err != nil {
			return res, fmt.Errorf("mark %q failed: %w", item.Key, err)
		}
		metrics.IncItem(string(ledger.FailureStatus(fatal)))
		w.logger.Warn("item failed",
			zap.String("key", item.Key),
			zap.String("outcome", res.Outcome.String()),
			zap.Int("attempts", res.Attempts),
			zap.Error(res.Err),
		)
	}
	return res, nil
}

// interrupted reports whether a failed result was caused by shutdown rather
// than the remote service.
func (w *Worker) interrupted(ctx context.Context, err error) bool {
	if ctx.Err() == nil {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
