package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	domainbooking "akwa/internal/domain/booking"
	"akwa/internal/domain/cancellation"
	"akwa/internal/domain/shared/daterange"
	"akwa/internal/domain/shared/money"
)

type bookingRepository struct {
	db execer
}

const bookingColumns = `id, kind, listing_id, guest_id, host_id, guest_name, guest_email, host_name, host_email,
	check_in, check_out, total_amount, unit_rate, currency, status, policy,
	cancelled_by, cancellation_reason, cancellation_penalty, cancellation_refund, cancelled_at,
	created_at, updated_at, version`

func (r bookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, string(id))
	b, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domainbooking.ErrBookingNotFound
	}
	return b, err
}

// Save upserts b guarded by its version.
func (r bookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	var penalty, refund sql.NullInt64
	var by, reason, at sql.NullString
	if out := b.Cancellation; out != nil {
		by = nullString(string(out.CancelledBy))
		reason = sql.NullString{String: out.Reason, Valid: true}
		penalty = sql.NullInt64{Int64: out.Penalty, Valid: true}
		refund = sql.NullInt64{Int64: out.Refund, Valid: true}
		at = nullTime(out.CancelledAt)
	}
	checkOut := sql.NullString{}
	if !b.Range.OpenEnded() {
		checkOut = nullTime(b.Range.CheckOut)
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO bookings (`+bookingColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			kind = excluded.kind, listing_id = excluded.listing_id,
			guest_id = excluded.guest_id, host_id = excluded.host_id,
			guest_name = excluded.guest_name, guest_email = excluded.guest_email,
			host_name = excluded.host_name, host_email = excluded.host_email,
			check_in = excluded.check_in, check_out = excluded.check_out,
			total_amount = excluded.total_amount, unit_rate = excluded.unit_rate, currency = excluded.currency,
			status = excluded.status, policy = excluded.policy,
			cancelled_by = excluded.cancelled_by, cancellation_reason = excluded.cancellation_reason,
			cancellation_penalty = excluded.cancellation_penalty, cancellation_refund = excluded.cancellation_refund,
			cancelled_at = excluded.cancelled_at, updated_at = excluded.updated_at,
			version = excluded.version
		WHERE bookings.version = ?`,
		string(b.ID), string(b.Kind), b.ListingID, b.GuestID, b.HostID,
		b.Guest.Name, b.Guest.Email, b.Host.Name, b.Host.Email,
		formatTime(b.Range.CheckIn), checkOut,
		b.Total.Amount, b.UnitRate.Amount, b.Total.Currency,
		string(b.Status), string(b.Policy),
		by, reason, penalty, refund, at,
		formatTime(b.CreatedAt), formatTime(b.UpdatedAt), b.Version+1,
		b.Version,
	)
	if err != nil {
		return fmt.Errorf("sqlite: save booking: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domainbooking.ErrConcurrentUpdate
	}
	b.Version++
	return nil
}

func (r bookingRepository) CommitCancellation(ctx context.Context, b *domainbooking.Booking, expected domainbooking.Status) error {
	out := b.Cancellation
	if out == nil {
		return domainbooking.ErrInvalidState
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE bookings SET
			status = ?, cancelled_by = ?, cancellation_reason = ?,
			cancellation_penalty = ?, cancellation_refund = ?, cancelled_at = ?,
			updated_at = ?, version = version + 1
		WHERE id = ? AND status = ?`,
		string(b.Status), string(out.CancelledBy), out.Reason,
		out.Penalty, out.Refund, formatTime(out.CancelledAt),
		formatTime(b.UpdatedAt),
		string(b.ID), string(expected),
	)
	if err != nil {
		return fmt.Errorf("sqlite: commit cancellation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		b.Version++
		return nil
	}
	var exists int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM bookings WHERE id = ?`, string(b.ID)).Scan(&exists); err != nil {
		return err
	}
	if exists == 0 {
		return domainbooking.ErrBookingNotFound
	}
	return domainbooking.ErrConcurrentUpdate
}

func scanBooking(row *sql.Row) (*domainbooking.Booking, error) {
	var (
		b                                        domainbooking.Booking
		id, kind, status, policy, currency       string
		listing, guestName, guestEmail           sql.NullString
		hostName, hostEmail                      sql.NullString
		checkIn, createdAt, updatedAt            string
		checkOut, cancelledBy, reason, cancelled sql.NullString
		penalty, refund                          sql.NullInt64
		total, rate                              int64
	)
	err := row.Scan(&id, &kind, &listing, &b.GuestID, &b.HostID, &guestName, &guestEmail, &hostName, &hostEmail,
		&checkIn, &checkOut, &total, &rate, &currency, &status, &policy,
		&cancelledBy, &reason, &penalty, &refund, &cancelled,
		&createdAt, &updatedAt, &b.Version)
	if err != nil {
		return nil, err
	}
	b.ID = domainbooking.BookingID(id)
	b.Kind = domainbooking.Kind(kind)
	b.ListingID = listing.String
	b.Guest = domainbooking.Contact{Name: guestName.String, Email: guestEmail.String}
	b.Host = domainbooking.Contact{Name: hostName.String, Email: hostEmail.String}
	b.Total = money.Money{Amount: total, Currency: currency}
	b.UnitRate = money.Money{Amount: rate, Currency: currency}
	b.Status = domainbooking.Status(status)
	b.Policy = cancellation.ParsePolicy(policy)

	var dr daterange.DateRange
	if dr.CheckIn, err = parseTime(checkIn); err != nil {
		return nil, err
	}
	if dr.CheckOut, err = parseTime(checkOut.String); err != nil {
		return nil, err
	}
	b.Range = dr
	if b.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if b.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if cancelledBy.Valid {
		at, err := parseTime(cancelled.String)
		if err != nil {
			return nil, err
		}
		b.Cancellation = &domainbooking.Outcome{
			CancelledBy: domainbooking.Actor(cancelledBy.String),
			Reason:      reason.String,
			Penalty:     penalty.Int64,
			Refund:      refund.Int64,
			CancelledAt: at,
		}
	}
	return &b, nil
}

var _ domainbooking.Repository = bookingRepository{}
