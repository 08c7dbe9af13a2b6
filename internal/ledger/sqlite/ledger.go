// Package sqlite implements the default single-file durable ledger. Every
// mark is an upsert committed before the call returns, so a crash right
// after a mark never loses it and a restarted run sees all prior marks.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/dblp-tools/faculty-harvester/internal/harvest"
	"github.com/dblp-tools/faculty-harvester/internal/ledger"
)

//go:embed schema.sql
var schema string

// Ledger stores entries in a local SQLite database.
type Ledger struct {
	db    *sql.DB
	clock harvest.Clock
}

// New opens (creating if needed) the ledger database at path. The connection
// pool is capped at one connection, which serializes mutations.
func New(path string, clock harvest.Clock) (*Ledger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open ledger db: %w", err)
	}
	db.SetMaxOpenConns(1)

	// WAL keeps readers cheap; FULL sync keeps each mark crash-safe.
	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = FULL;",
		"PRAGMA busy_timeout = 5000;",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply ledger schema: %w", err)
	}
	return &Ledger{db: db, clock: clock}, nil
}

// IsDone reports whether key is marked succeeded.
func (l *Ledger) IsDone(ctx context.Context, key string) (bool, error) {
	var status string
	err := l.db.QueryRowContext(ctx, `SELECT status FROM items WHERE key = ?;`, key).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query ledger entry: %w", err)
	}
	return ledger.Status(status) == ledger.StatusSucceeded, nil
}

// MarkSucceeded durably records a success for key.
func (l *Ledger) MarkSucceeded(ctx context.Context, key string, attempts int) error {
	return l.upsert(ctx, key, ledger.StatusSucceeded, attempts, "")
}

// MarkFailed durably records a failure for key.
func (l *Ledger) MarkFailed(ctx context.Context, key string, attempts int, cause error, fatal bool) error {
	return l.upsert(ctx, key, ledger.FailureStatus(fatal), attempts, ledger.ErrorText(cause))
}

func (l *Ledger) upsert(ctx context.Context, key string, status ledger.Status, attempts int, lastError string) error {
	query := `
		INSERT INTO items (key, status, attempts, last_error, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (key) DO UPDATE
		SET status = excluded.status,
		    attempts = excluded.attempts,
		    last_error = excluded.last_error,
		    updated_at = excluded.updated_at;
	`
	if _, err := l.db.ExecContext(ctx, query, key, string(status), attempts, lastError, l.clock.Now()); err != nil {
		return fmt.Errorf("mark %s as %s: %w", key, status, err)
	}
	return nil
}

// Get returns the entry for key or ledger.ErrNotFound.
func (l *Ledger) Get(ctx context.Context, key string) (ledger.Entry, error) {
	query := `SELECT key, status, attempts, last_error, updated_at FROM items WHERE key = ?;`
	var entry ledger.Entry
	var status string
	err := l.db.QueryRowContext(ctx, query, key).Scan(
		&entry.Key, &status, &entry.Attempts, &entry.LastError, &entry.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Entry{}, ledger.ErrNotFound
	}
	if err != nil {
		return ledger.Entry{}, fmt.Errorf("get ledger entry: %w", err)
	}
	entry.Status = ledger.Status(status)
	return entry, nil
}

// Summary aggregates counts by status.
func (l *Ledger) Summary(ctx context.Context) (ledger.Summary, error) {
	rows, err := l.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM items GROUP BY status;`)
	if err != nil {
		return ledger.Summary{}, fmt.Errorf("summarize ledger: %w", err)
	}
	defer rows.Close()

	var s ledger.Summary
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return ledger.Summary{}, fmt.Errorf("scan summary row: %w", err)
		}
		switch ledger.Status(status) {
		case ledger.StatusSucceeded:
			s.Succeeded = count
		case ledger.StatusFailed:
			s.Failed = count
		case ledger.StatusFailedFatal:
			s.FailedFatal = count
		}
	}
	if err := rows.Err(); err != nil {
		return ledger.Summary{}, fmt.Errorf("iterate summary rows: %w", err)
	}
	return s, nil
}

// Failures lists failed entries, oldest mark first.
func (l *Ledger) Failures(ctx context.Context) ([]ledger.Entry, error) {
	query := `
		SELECT key, status, attempts, last_error, updated_at
		FROM items
		WHERE status IN (?, ?)
		ORDER BY updated_at ASC, key ASC;
	`
	rows, err := l.db.QueryContext(ctx, query, string(ledger.StatusFailed), string(ledger.StatusFailedFatal))
	if err != nil {
		return nil, fmt.Errorf("list ledger failures: %w", err)
	}
	defer rows.Close()

	var out []ledger.Entry
	for rows.Next() {
		var entry ledger.Entry
		var status string
		if err := rows.Scan(&entry.Key, &status, &entry.Attempts, &entry.LastError, &entry.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan failure row: %w", err)
		}
		entry.Status = ledger.Status(status)
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate failure rows: %w", err)
	}
	return out, nil
}

// Close closes the database.
func (l *Ledger) Close() error {
	if err := l.db.Close(); err != nil {
		return fmt.Errorf("close ledger db: %w", err)
	}
	return nil
}
