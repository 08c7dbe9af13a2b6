// Package ledger defines the durable per-item progress record that makes
// batch runs resumable. Each mark operation persists before returning; a
// crash immediately after a mark never loses it. Succeeded is terminal
// across runs, failed items are re-attempted on the next run.
package ledger

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key has no ledger entry.
var ErrNotFound = errors.New("ledger: entry not found")

// Status is the persisted state of a work item.
type Status string

const (
	// StatusSucceeded means the item's payload was fetched and persisted.
	StatusSucceeded Status = "succeeded"
	// StatusFailed means retryable attempts were exhausted.
	StatusFailed Status = "failed"
	// StatusFailedFatal means a non-retryable error stopped the item.
	StatusFailedFatal Status = "failed_fatal"
)

// Entry is the persisted record for one work item key.
type Entry struct {
	Key       string    `json:"key"`
	Status    Status    `json:"status"`
	Attempts  int       `json:"attempts"`
	LastError string    `json:"last_error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Summary aggregates entry counts for reporting.
type Summary struct {
	Succeeded   int `json:"succeeded"`
	Failed      int `json:"failed"`
	FailedFatal int `json:"failed_fatal"`
}

// Total returns the number of recorded entries.
func (s Summary) Total() int {
	return s.Succeeded + s.Failed + s.FailedFatal
}

// Ledger is the single source of truth for resumability. Mutations are
// serialized by implementations; all methods are safe for concurrent use
// within one process.
type Ledger interface {
	// IsDone reports whether key is already marked succeeded.
	IsDone(ctx context.Context, key string) (bool, error)
	// MarkSucceeded durably records a success for key.
	MarkSucceeded(ctx context.Context, key string, attempts int) error
	// MarkFailed durably records a failure for key; fatal distinguishes
	// non-retryable errors from exhausted retries.
	MarkFailed(ctx context.Context, key string, attempts int, cause error, fatal bool) error
	// Get returns the entry for key or ErrNotFound.
	Get(ctx context.Context, key string) (Entry, error)
	// Summary returns aggregate counts over all recorded entries.
	Summary(ctx context.Context) (Summary, error)
	// Failures lists failed and fatally failed entries, oldest first.
	Failures(ctx context.Context) ([]Entry, error)
	// Close releases the backing store.
	Close() error
}

// FailureStatus maps the fatal flag of MarkFailed onto a Status.
func FailureStatus(fatal bool) Status {
	if fatal {
		return StatusFailedFatal
	}
	return StatusFailed
}

// ErrorText renders a mark cause for storage; nil becomes the empty string.
func ErrorText(cause error) string {
	if cause == nil {
		return ""
	}
	return cause.Error()
}
