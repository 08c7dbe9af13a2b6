// Package memory implements an in-process ledger for tests and dry runs.
package memory

import (
	"context"
	"sync"

	"github.com/dblp-tools/faculty-harvester/internal/harvest"
	"github.com/dblp-tools/faculty-harvester/internal/ledger"
)

// Ledger keeps entries in a map guarded by a mutex. Nothing is durable; a
// process restart starts from scratch.
type Ledger struct {
	mu      sync.RWMutex
	entries map[string]ledger.Entry
	order   []string
	clock   harvest.Clock
}

// New creates an empty Ledger using clock for timestamps.
func New(clock harvest.Clock) *Ledger {
	return &Ledger{
		entries: make(map[string]ledger.Entry),
		clock:   clock,
	}
}

// IsDone reports whether key is marked succeeded.
func (l *Ledger) IsDone(_ context.Context, key string) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	entry, ok := l.entries[key]
	return ok && entry.Status == ledger.StatusSucceeded, nil
}

// MarkSucceeded records a success for key.
func (l *Ledger) MarkSucceeded(_ context.Context, key string, attempts int) error {
	l.put(ledger.Entry{
		Key:       key,
		Status:    ledger.StatusSucceeded,
		Attempts:  attempts,
		UpdatedAt: l.clock.Now(),
	})
	return nil
}

// MarkFailed records a failure for key.
func (l *Ledger) MarkFailed(_ context.Context, key string, attempts int, cause error, fatal bool) error {
	l.put(ledger.Entry{
		Key:       key,
		Status:    ledger.FailureStatus(fatal),
		Attempts:  attempts,
		LastError: ledger.ErrorText(cause),
		UpdatedAt: l.clock.Now(),
	})
	return nil
}

// Get returns the entry for key or ledger.ErrNotFound.
func (l *Ledger) Get(_ context.Context, key string) (ledger.Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	entry, ok := l.entries[key]
	if !ok {
		return ledger.Entry{}, ledger.ErrNotFound
	}
	return entry, nil
}

// Summary aggregates counts over all entries.
func (l *Ledger) Summary(_ context.Context) (ledger.Summary, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var s ledger.Summary
	for _, entry := range l.entries {
		switch entry.Status {
		case ledger.StatusSucceeded:
			s.Succeeded++
		case ledger.StatusFailed:
			s.Failed++
		case ledger.StatusFailedFatal:
			s.FailedFatal++
		}
	}
	return s, nil
}

// Failures lists failed entries in first-marked order.
func (l *Ledger) Failures(_ context.Context) ([]ledger.Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []ledger.Entry
	for _, key := range l.order {
		entry := l.entries[key]
		if entry.Status == ledger.StatusFailed || entry.Status == ledger.StatusFailedFatal {
			out = append(out, entry)
		}
	}
	return out, nil
}

// Close is a no-op.
func (l *Ledger) Close() error {
	return nil
}

// Seed preloads entries, useful for resume tests.
func (l *Ledger) Seed(entries ...ledger.Entry) {
	for _, entry := range entries {
		l.put(entry)
	}
}

func (l *Ledger) put(entry ledger.Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.entries[entry.Key]; !ok {
		l.order = append(l.order, entry.Key)
	}
	l.entries[entry.Key] = entry
}
