// Package sqlite is the embedded record store. Cancellation uses a
// conditional UPDATE on the stored status, so it keeps the same at-most-once
// guarantee as the mongo store without a server.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
)

// timeLayout is fixed width so stored times compare correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type Store struct {
	db *sql.DB
}

// Open opens (and migrates) the database at path. Use ":memory:" for tests.
// The pool holds one connection so an in-memory database is shared and
// writers are serialized.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	s := &Store{db: db}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS bookings (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		listing_id TEXT,
		guest_id TEXT NOT NULL,
		host_id TEXT NOT NULL,
		guest_name TEXT,
		guest_email TEXT,
		host_name TEXT,
		host_email TEXT,
		check_in TEXT NOT NULL,
		check_out TEXT,
		total_amount INTEGER NOT NULL,
		unit_rate INTEGER NOT NULL,
		currency TEXT NOT NULL,
		status TEXT NOT NULL,
		policy TEXT NOT NULL,
		cancelled_by TEXT,
		cancellation_reason TEXT,
		cancellation_penalty INTEGER,
		cancellation_refund INTEGER,
		cancelled_at TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		version INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS penalty_records (
		id TEXT PRIMARY KEY,
		booking_id TEXT NOT NULL,
		host_id TEXT NOT NULL,
		guest_id TEXT NOT NULL,
		amount INTEGER NOT NULL CHECK (amount > 0),
		currency TEXT NOT NULL,
		type TEXT NOT NULL,
		payment_method TEXT,
		status TEXT NOT NULL,
		waived_reason TEXT,
		admin_notes TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		resolved_at TEXT,
		version INTEGER NOT NULL DEFAULT 1
	);

	CREATE INDEX IF NOT EXISTS idx_penalty_status ON penalty_records(status, created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_penalty_host ON penalty_records(host_id, created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_penalty_booking ON penalty_records(booking_id);

	CREATE TABLE IF NOT EXISTS outbox (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		payload BLOB NOT NULL,
		occurred_at TEXT NOT NULL,
		aggregate TEXT,
		headers_json TEXT,
		state TEXT NOT NULL,
		attempts INTEGER NOT NULL DEFAULT 0,
		next_attempt_at TEXT NOT NULL,
		claimed_by TEXT,
		last_error TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_outbox_due ON outbox(state, next_attempt_at);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func nullTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(t), Valid: true}
}

func parseTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(timeLayout, raw)
}

func isUniqueConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey || sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
