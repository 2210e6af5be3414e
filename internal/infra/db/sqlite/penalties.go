package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	domainpenalty "akwa/internal/domain/penalty"
)

type penaltyRepository struct {
	db execer
}

const penaltyColumns = `id, booking_id, host_id, guest_id, amount, currency, type, payment_method, status,
	waived_reason, admin_notes, created_at, updated_at, resolved_at, version`

func (r penaltyRepository) ByID(ctx context.Context, id domainpenalty.PenaltyID) (*domainpenalty.Record, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+penaltyColumns+` FROM penalty_records WHERE id = ?`, string(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, domainpenalty.ErrPenaltyNotFound
	}
	return scanPenalty(rows)
}

func (r penaltyRepository) Create(ctx context.Context, rec *domainpenalty.Record) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO penalty_records (`+penaltyColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)`,
		string(rec.ID), rec.BookingID, rec.HostID, rec.GuestID, rec.Amount, rec.Currency,
		string(rec.Type), nullString(string(rec.PaymentMethod)), string(rec.Status),
		nullString(rec.WaivedReason), nullString(rec.AdminNotes),
		formatTime(rec.CreatedAt), formatTime(rec.UpdatedAt), resolvedAt(rec),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return domainpenalty.ErrConcurrentUpdate
		}
		return fmt.Errorf("sqlite: create penalty: %w", err)
	}
	rec.Version = 1
	return nil
}

func (r penaltyRepository) Save(ctx context.Context, rec *domainpenalty.Record) error {
	res, err := r.db.ExecContext(ctx, `UPDATE penalty_records SET
			payment_method = ?, status = ?, waived_reason = ?, admin_notes = ?,
			updated_at = ?, resolved_at = ?, version = version + 1
		WHERE id = ? AND version = ?`,
		nullString(string(rec.PaymentMethod)), string(rec.Status), nullString(rec.WaivedReason), nullString(rec.AdminNotes),
		formatTime(rec.UpdatedAt), resolvedAt(rec),
		string(rec.ID), rec.Version,
	)
	if err != nil {
		return fmt.Errorf("sqlite: save penalty: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.ByID(ctx, rec.ID); errors.Is(err, domainpenalty.ErrPenaltyNotFound) {
			return err
		}
		return domainpenalty.ErrConcurrentUpdate
	}
	rec.Version++
	return nil
}

func (r penaltyRepository) List(ctx context.Context, filter domainpenalty.ListFilter) ([]*domainpenalty.Record, int, error) {
	var where []string
	var args []any
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.HostID != "" {
		where = append(where, "host_id = ?")
		args = append(args, filter.HostID)
	}
	if filter.BookingID != "" {
		where = append(where, "booking_id = ?")
		args = append(args, filter.BookingID)
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM penalty_records`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = -1
	}
	query := `SELECT ` + penaltyColumns + ` FROM penalty_records` + clause + ` ORDER BY created_at DESC, id ASC LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, query, append(args, limit, max(filter.Offset, 0))...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []*domainpenalty.Record
	for rows.Next() {
		rec, err := scanPenalty(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, rec)
	}
	return out, total, rows.Err()
}

func resolvedAt(rec *domainpenalty.Record) sql.NullString {
	if rec.ResolvedAt == nil {
		return sql.NullString{}
	}
	return nullTime(*rec.ResolvedAt)
}

func scanPenalty(rows *sql.Rows) (*domainpenalty.Record, error) {
	var (
		rec                                   domainpenalty.Record
		id, typ, status, createdAt, updatedAt string
		method, reason, notes, resolved       sql.NullString
	)
	if err := rows.Scan(&id, &rec.BookingID, &rec.HostID, &rec.GuestID, &rec.Amount, &rec.Currency, &typ, &method, &status,
		&reason, &notes, &createdAt, &updatedAt, &resolved, &rec.Version); err != nil {
		return nil, err
	}
	rec.ID = domainpenalty.PenaltyID(id)
	rec.Type = domainpenalty.Type(typ)
	rec.PaymentMethod = domainpenalty.PaymentMethod(method.String)
	rec.Status = domainpenalty.Status(status)
	rec.WaivedReason = reason.String
	rec.AdminNotes = notes.String
	var err error
	if rec.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if rec.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if resolved.Valid {
		at, err := parseTime(resolved.String)
		if err != nil {
			return nil, err
		}
		rec.ResolvedAt = &at
	}
	return &rec, nil
}

var _ domainpenalty.Repository = penaltyRepository{}
