// Package driver iterates a work list through the fetch pipeline and
// aggregates the run into a BatchReport.
package driver

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dblp-tools/faculty-harvester/internal/harvest"
	"github.com/dblp-tools/faculty-harvester/internal/sink"
)

// Processor resolves one work item; satisfied by *worker.Worker.
type Processor interface {
	Process(ctx context.Context, item harvest.WorkItem) (harvest.AttemptResult, error)
}

// Config controls Driver behavior.
type Config struct {
	// Concurrency is the worker pool size, default 1. The rate limiter
	// still serializes dispatch timing for any pool size.
	Concurrency int
	// FailsPath, when set, receives the failed keys at the end of the run.
	FailsPath string
	// FailsAppend appends to the fails record instead of rewriting it.
	FailsAppend bool
}

// Driver owns the work list for one run and the report it produces.
type Driver struct {
	processor Processor
	clock     harvest.Clock
	cfg       Config
	logger    *zap.Logger
}

// New constructs a Driver.
func New(processor Processor, clock harvest.Clock, cfg Config, logger *zap.Logger) *Driver {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Driver{
		processor: processor,
		clock:     clock,
		cfg:       cfg,
		logger:    logger,
	}
}

type indexedItem struct {
	index int
	item  harvest.WorkItem
}

// Run processes items in input order. One item's failure never aborts the
// run; the returned error is non-nil only for process-fatal conditions
// (ledger or sink unwritable). On context cancellation the in-flight items
// finish, the remainder stay untouched, and the partial report is returned
// with a nil error.
func (d *Driver) Run(ctx context.Context, items []harvest.WorkItem) (harvest.BatchReport, error) {
	report := harvest.BatchReport{
		RunID:     uuid.NewString(),
		Total:     len(items),
		StartedAt: d.clock.Now(),
	}
	d.logger.Info("batch run starting",
		zap.String("run_id", report.RunID),
		zap.Int("total", report.Total),
		zap.Int("concurrency", d.cfg.Concurrency),
	)

	results := make([]*harvest.AttemptResult, len(items))
	feed := make(chan indexedItem)
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		fatalMu  sync.Mutex
		fatalErr error
	)
	for i := 0; i < d.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range feed {
				res, err := d.processor.Process(runCtx, job.item)
				if err != nil {
					if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
						// Shutdown: leave the item untouched-pending.
						return
					}
					fatalMu.Lock()
					if fatalErr == nil {
						fatalErr = err
					}
					fatalMu.Unlock()
					cancel()
					return
				}
				results[job.index] = &res
			}
		}()
	}

feedLoop:
	for i, item := range items {
		select {
		case <-runCtx.Done():
			break feedLoop
		case feed <- indexedItem{index: i, item: item}:
		}
	}
	close(feed)
	wg.Wait()

	for i, res := range results {
		if res == nil {
			continue // untouched-pending (shutdown before dispatch)
		}
		switch res.Outcome {
		case harvest.OutcomeSuccess:
			report.Succeeded++
			if res.Attempts == 0 {
				report.Skipped++
			}
		case harvest.OutcomeRetryableFailure, harvest.OutcomeFatalFailure:
			report.Failed++
			report.FailedKeys = append(report.FailedKeys, items[i].Key)
		}
	}
	report.FinishedAt = d.clock.Now()

	if fatalErr != nil {
		return report, fmt.Errorf("batch run aborted: %w", fatalErr)
	}

	if d.cfg.FailsPath != "" {
		if err := sink.WriteFails(d.cfg.FailsPath, report.FailedKeys, d.cfg.FailsAppend); err != nil {
			return report, fmt.Errorf("write fails record: %w", err)
		}
	}

	d.logger.Info("batch run finished",
		zap.String("run_id", report.RunID),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
		zap.Int("skipped", report.Skipped),
		zap.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)),
	)
	return report, nil
}
