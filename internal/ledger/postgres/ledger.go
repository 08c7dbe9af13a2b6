// Package postgres implements a Postgres-backed ledger for runs that share
// progress across operators or hosts.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dblp-tools/faculty-harvester/internal/harvest"
	"github.com/dblp-tools/faculty-harvester/internal/ledger"
)

// DB is the subset of pgxpool.Pool the ledger uses; pgxmock satisfies it in
// tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

const schema = `
	CREATE TABLE IF NOT EXISTS harvest_items (
		key        TEXT PRIMARY KEY,
		status     TEXT NOT NULL,
		attempts   INTEGER NOT NULL DEFAULT 0,
		last_error TEXT NOT NULL DEFAULT '',
		updated_at TIMESTAMPTZ NOT NULL
	);
`

// Ledger stores entries in Postgres.
type Ledger struct {
	db    DB
	clock harvest.Clock
}

// New connects to dsn and ensures the schema exists.
func New(ctx context.Context, dsn string, clock harvest.Clock) (*Ledger, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	l := &Ledger{db: pool, clock: clock}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply ledger schema: %w", err)
	}
	return l, nil
}

// NewWithDB wraps an existing connection; used by tests.
func NewWithDB(db DB, clock harvest.Clock) *Ledger {
	return &Ledger{db: db, clock: clock}
}

// IsDone reports whether key is marked succeeded.
func (l *Ledger) IsDone(ctx context.Context, key string) (bool, error) {
	var status string
	err := l.db.QueryRow(ctx, `SELECT status FROM harvest_items WHERE key = $1;`, key).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
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
		INSERT INTO harvest_items (key, status, attempts, last_error, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (key) DO UPDATE
		SET status = EXCLUDED.status,
		    attempts = EXCLUDED.attempts,
		    last_error = EXCLUDED.last_error,
		    updated_at = EXCLUDED.updated_at;
	`
	if _, err := l.db.Exec(ctx, query, key, string(status), attempts, lastError, l.clock.Now()); err != nil {
		return fmt.Errorf("mark %s as %s: %w", key, status, err)
	}
	return nil
}

// Get returns the entry for key or ledger.ErrNotFound.
func (l *Ledger) Get(ctx context.Context, key string) (ledger.Entry, error) {
	query := `SELECT key, status, attempts, last_error, updated_at FROM harvest_items WHERE key = $1;`
	var entry ledger.Entry
	var status string
	err := l.db.QueryRow(ctx, query, key).Scan(
		&entry.Key, &status, &entry.Attempts, &entry.LastError, &entry.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
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
	rows, err := l.db.Query(ctx, `SELECT status, COUNT(*) FROM harvest_items GROUP BY status;`)
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
		FROM harvest_items
		WHERE status IN ($1, $2)
		ORDER BY updated_at ASC, key ASC;
	`
	rows, err := l.db.Query(ctx, query, string(ledger.StatusFailed), string(ledger.StatusFailedFatal))
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

// Close closes the pool.
func (l *Ledger) Close() error {
	l.db.Close()
	return nil
}
