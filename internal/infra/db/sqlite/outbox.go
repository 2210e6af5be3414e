package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	appoutbox "akwa/internal/app/outbox"
)

type outboxWriter struct {
	db execer
}

func (w outboxWriter) Add(ctx context.Context, record appoutbox.EventRecord) error {
	headers, err := json.Marshal(record.Headers)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	_, err = w.db.ExecContext(ctx, `INSERT INTO outbox
		(id, name, payload, occurred_at, aggregate, headers_json, state, attempts, next_attempt_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		record.ID, record.Name, record.Payload, formatTime(record.OccurredAt), record.Aggregate, string(headers),
		appoutbox.StateNew, formatTime(now), formatTime(now),
	)
	return err
}

// Claim marks the oldest due record as claimed by workerID.
func (s *Store) Claim(ctx context.Context, workerID string) (*appoutbox.Claimed, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var (
		rec                 appoutbox.Claimed
		occurredAt, headers string
		aggregate           sql.NullString
	)
	err = tx.QueryRowContext(ctx, `SELECT id, name, payload, occurred_at, aggregate, headers_json, attempts
		FROM outbox
		WHERE state IN (?, ?) AND next_attempt_at <= ?
		ORDER BY next_attempt_at, created_at LIMIT 1`,
		appoutbox.StateNew, appoutbox.StateFailed, formatTime(time.Now()),
	).Scan(&rec.ID, &rec.Name, &rec.Payload, &occurredAt, &aggregate, &headers, &rec.Attempts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE outbox SET state = ?, claimed_by = ? WHERE id = ?`,
		appoutbox.StateClaimed, workerID, rec.ID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	rec.Aggregate = aggregate.String
	if rec.OccurredAt, err = parseTime(occurredAt); err != nil {
		return nil, err
	}
	if headers != "" {
		if err := json.Unmarshal([]byte(headers), &rec.Headers); err != nil {
			return nil, err
		}
	}
	return &rec, nil
}

func (s *Store) MarkSent(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE outbox SET state = ?, last_error = NULL WHERE id = ?`, appoutbox.StateSent, id)
	return err
}

func (s *Store) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE outbox SET state = ?, attempts = attempts + 1, next_attempt_at = ?, last_error = ? WHERE id = ?`,
		appoutbox.StateFailed, formatTime(next), errMsg, id)
	return err
}

var (
	_ appoutbox.Outbox = outboxWriter{}
	_ appoutbox.Source = (*Store)(nil)
)
