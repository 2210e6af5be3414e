package penalty

import (
	"context"
	"errors"
	"strings"
	"time"

	"akwa/internal/domain/shared/events"
)

var (
	ErrPenaltyNotFound      = errors.New("penalty: not found")
	ErrInvalidTransition    = errors.New("penalty: only pending penalties can change status")
	ErrWaiveReasonRequired  = errors.New("penalty: waive reason required")
	ErrInvalidCollection    = errors.New("penalty: unknown collection method")
	ErrInvalidPaymentMethod = errors.New("penalty: unknown payment method")
	ErrConcurrentUpdate     = errors.New("penalty: concurrent update detected")
	ErrInvalidAmount        = errors.New("penalty: amount must be positive")
)

type PenaltyID string

type Type string

const (
	TypeHostCancellation        Type = "host_cancellation"
	TypeHostOngoingCancellation Type = "host_ongoing_cancellation"
)

type Status string

const (
	StatusPending           Status = "pending"
	StatusDeducted          Status = "deducted"
	StatusPaidDirectly      Status = "paid_directly"
	StatusCollectedManually Status = "collected_manually"
	StatusWaived            Status = "waived"
)

// PaymentMethod is how the host chose to settle the penalty when cancelling.
type PaymentMethod string

const (
	PaymentDeductFromPayout PaymentMethod = "deduct_from_payout"
	PaymentPayDirectly      PaymentMethod = "pay_directly"
)

// ParsePaymentMethod accepts an empty value as "not selected".
func ParsePaymentMethod(raw string) (PaymentMethod, error) {
	switch m := PaymentMethod(strings.ToLower(strings.TrimSpace(raw))); m {
	case "":
		return "", nil
	case PaymentDeductFromPayout, PaymentPayDirectly:
		return m, nil
	default:
		return "", ErrInvalidPaymentMethod
	}
}

// ParseCollection maps an admin collection method onto a terminal status.
// An empty value means collected manually.
func ParseCollection(raw string) (Status, error) {
	switch s := Status(strings.ToLower(strings.TrimSpace(raw))); s {
	case "":
		return StatusCollectedManually, nil
	case StatusDeducted, StatusPaidDirectly, StatusCollectedManually:
		return s, nil
	default:
		return "", ErrInvalidCollection
	}
}

// Record is a host penalty owed to the platform. Its lifecycle is independent
// from the booking it came from.
type Record struct {
	ID            PenaltyID
	BookingID     string
	HostID        string
	GuestID       string
	Amount        int64
	Currency      string
	Type          Type
	PaymentMethod PaymentMethod
	Status        Status
	WaivedReason  string
	AdminNotes    string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	ResolvedAt    *time.Time
	Version       int64
	events.EventRecorder
}

type CreateParams struct {
	ID            PenaltyID
	BookingID     string
	HostID        string
	GuestID       string
	Amount        int64
	Currency      string
	Type          Type
	PaymentMethod PaymentMethod
	CreatedAt     time.Time
}

func New(params CreateParams) (*Record, error) {
	if params.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	typ := params.Type
	if typ == "" {
		typ = TypeHostCancellation
	}
	now := params.CreatedAt.UTC()
	return &Record{
		ID:            params.ID,
		BookingID:     params.BookingID,
		HostID:        params.HostID,
		GuestID:       params.GuestID,
		Amount:        params.Amount,
		Currency:      params.Currency,
		Type:          typ,
		PaymentMethod: params.PaymentMethod,
		Status:        StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// Collect moves a pending penalty to a collected status.
func (r *Record) Collect(status Status, notes string, now time.Time) error {
	switch status {
	case StatusDeducted, StatusPaidDirectly, StatusCollectedManually:
	default:
		return ErrInvalidCollection
	}
	return r.transition(status, "", notes, now)
}

// Waive cancels the obligation. A reason is mandatory.
func (r *Record) Waive(reason, notes string, now time.Time) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return ErrWaiveReasonRequired
	}
	return r.transition(StatusWaived, reason, notes, now)
}

func (r *Record) transition(to Status, reason, notes string, now time.Time) error {
	if r.Status != StatusPending {
		return ErrInvalidTransition
	}
	now = now.UTC()
	from := r.Status
	r.Status = to
	r.WaivedReason = reason
	if notes = strings.TrimSpace(notes); notes != "" {
		r.AdminNotes = notes
	}
	r.UpdatedAt = now
	r.ResolvedAt = &now
	r.Record(StatusChanged{PenaltyID: r.ID, BookingID: r.BookingID, HostID: r.HostID, From: from, To: to, Amount: r.Amount, Currency: r.Currency, Reason: reason, At: now})
	return nil
}

type ListFilter struct {
	Status    Status
	HostID    string
	BookingID string
	Limit     int
	Offset    int
}

type Repository interface {
	ByID(ctx context.Context, id PenaltyID) (*Record, error)
	Create(ctx context.Context, rec *Record) error
	// Save persists a status change guarded by the record version.
	Save(ctx context.Context, rec *Record) error
	List(ctx context.Context, filter ListFilter) ([]*Record, int, error)
}

const EventStatusChanged = "penalty.status_changed"

type StatusChanged struct {
	PenaltyID PenaltyID `json:"penalty_id"`
	BookingID string    `json:"booking_id"`
	HostID    string    `json:"host_id"`
	From      Status    `json:"from"`
	To        Status    `json:"to"`
	Amount    int64     `json:"amount"`
	Currency  string    `json:"currency"`
	Reason    string    `json:"reason,omitempty"`
	At        time.Time `json:"at"`
}

func (e StatusChanged) EventName() string     { return EventStatusChanged }
func (e StatusChanged) AggregateID() string   { return string(e.PenaltyID) }
func (e StatusChanged) OccurredAt() time.Time { return e.At }
