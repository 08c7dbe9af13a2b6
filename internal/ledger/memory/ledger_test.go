package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dblp-tools/faculty-harvester/internal/ledger"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.now = c.now.Add(time.Second)
	return c.now
}

func newTestLedger() *Ledger {
	return New(&fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)})
}

func TestMarkSucceededIsDone(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	led := newTestLedger()

	done, err := led.IsDone(ctx, "mit")
	require.NoError(t, err)
	require.False(t, done)

	require.NoError(t, led.MarkSucceeded(ctx, "mit", 2))

	done, err = led.IsDone(ctx, "mit")
	require.NoError(t, err)
	require.True(t, done)

	entry, err := led.Get(ctx, "mit")
	require.NoError(t, err)
	require.Equal(t, ledger.StatusSucceeded, entry.Status)
	require.Equal(t, 2, entry.Attempts)
	require.Empty(t, entry.LastError)
}

func TestMarkFailedIsNotDone(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	led := newTestLedger()

	require.NoError(t, led.MarkFailed(ctx, "mit", 3, errors.New("boom"), false))

	done, err := led.IsDone(ctx, "mit")
	require.NoError(t, err)
	require.False(t, done, "failed items must be re-attempted on the next run")

	entry, err := led.Get(ctx, "mit")
	require.NoError(t, err)
	require.Equal(t, ledger.StatusFailed, entry.Status)
	require.Equal(t, "boom", entry.LastError)
}

func TestFatalFailureIsDistinct(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	led := newTestLedger()

	require.NoError(t, led.MarkFailed(ctx, "mit", 1, errors.New("404"), true))

	entry, err := led.Get(ctx, "mit")
	require.NoError(t, err)
	require.Equal(t, ledger.StatusFailedFatal, entry.Status)
}

func TestGetNotFound(t *testing.T) {
	t.Parallel()
	led := newTestLedger()

	_, err := led.Get(context.Background(), "nowhere")
	require.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestSummaryAndFailures(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	led := newTestLedger()

	require.NoError(t, led.MarkSucceeded(ctx, "a", 1))
	require.NoError(t, led.MarkFailed(ctx, "b", 3, errors.New("timeout"), false))
	require.NoError(t, led.MarkFailed(ctx, "c", 1, errors.New("bad page"), true))
	require.NoError(t, led.MarkSucceeded(ctx, "d", 1))

	summary, err := led.Summary(ctx)
	require.NoError(t, err)
	require.Equal(t, ledger.Summary{Succeeded: 2, Failed: 1, FailedFatal: 1}, summary)
	require.Equal(t, 4, summary.Total())

	failures, err := led.Failures(ctx)
	require.NoError(t, err)
	require.Len(t, failures, 2)
	require.Equal(t, "b", failures[0].Key)
	require.Equal(t, "c", failures[1].Key)
}

func TestRemarkOverwrites(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	led := newTestLedger()

	require.NoError(t, led.MarkFailed(ctx, "mit", 3, errors.New("boom"), false))
	require.NoError(t, led.MarkSucceeded(ctx, "mit", 1))

	done, err := led.IsDone(ctx, "mit")
	require.NoError(t, err)
	require.True(t, done)

	summary, err := led.Summary(ctx)
	require.NoError(t, err)
	require.Equal(t, ledger.Summary{Succeeded: 1}, summary)
}
