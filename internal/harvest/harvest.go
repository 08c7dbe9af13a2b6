package harvest

import (
	"context"
	"time"
)

// WorkItem is one unit of retrieval work: a university to query or a faculty
// page to download. Items are immutable once built.
type WorkItem struct {
	// Key uniquely identifies the item across runs and is the ledger key.
	Key string
	// Target is what the fetcher acts on: a normalized university name for
	// stage one, an author page URL for stage two.
	Target string
	// Parent groups items for output layout, e.g. the university a faculty
	// page belongs to. Empty for top-level items.
	Parent string
}

// Outcome classifies how an item's processing ended.
type Outcome int

const (
	// OutcomeSuccess means the payload was fetched.
	OutcomeSuccess Outcome = iota
	// OutcomeRetryableFailure means attempts ran out on retryable errors.
	OutcomeRetryableFailure
	// OutcomeFatalFailure means a non-retryable error stopped the item.
	OutcomeFatalFailure
)

// String returns a stable label for logs and metrics.
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeRetryableFailure:
		return "retryable_failure"
	case OutcomeFatalFailure:
		return "fatal_failure"
	default:
		return "unknown"
	}
}

// AttemptResult is the resolved outcome of processing one WorkItem. Every
// item resolves to exactly one AttemptResult per run; failures are values
// here, never propagated errors.
type AttemptResult struct {
	Key     string
	Outcome Outcome
	// Payload holds the raw response on success, nil otherwise.
	Payload []byte
	// Err is the last error observed, nil on success.
	Err error
	// Attempts is how many fetches were made. Zero means the item was
	// resumed from the ledger without any network call.
	Attempts   int
	FinishedAt time.Time
}

// BatchReport summarizes one driver run.
type BatchReport struct {
	RunID     string
	Total     int
	Succeeded int
	Failed    int
	// Skipped counts items resumed from the ledger; they are included in
	// Succeeded as well.
	Skipped int
	// FailedKeys preserves input order for the fails record.
	FailedKeys []string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Fetcher retrieves the raw payload for a WorkItem. Implementations wrap the
// remote service (SPARQL endpoint, author page host) and translate transport
// and status failures into the harvest error taxonomy.
type Fetcher interface {
	Fetch(ctx context.Context, item WorkItem) ([]byte, error)
}

// FetchFunc adapts a plain function to the Fetcher interface.
type FetchFunc func(ctx context.Context, item WorkItem) ([]byte, error)

// Fetch implements Fetcher.
func (f FetchFunc) Fetch(ctx context.Context, item WorkItem) ([]byte, error) {
	return f(ctx, item)
}

// Sink persists one successful payload keyed by its WorkItem.
type Sink interface {
	Put(ctx context.Context, item WorkItem, payload []byte) error
}

// Throttler receives explicit throttle signals from the remote service so the
// rate limiter can widen its interval for the rest of the run.
type Throttler interface {
	Slow()
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
