package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"akwa/internal/domain/cancellation"
	"akwa/internal/domain/shared/daterange"
	"akwa/internal/domain/shared/events"
	"akwa/internal/domain/shared/money"
)

var (
	ErrInvalidState       = errors.New("booking: invalid state transition")
	ErrBookingNotFound    = errors.New("booking: not found")
	ErrAlreadyCancelled   = errors.New("booking: already cancelled")
	ErrConcurrentUpdate   = errors.New("booking: concurrent update detected")
	ErrInvalidKind        = errors.New("booking: kind must be property or vehicle")
	ErrInvalidParticipant = errors.New("booking: guest and host ids required")
	ErrInvalidPrice       = errors.New("booking: total price and rate must not be negative")
	ErrInvalidActor       = errors.New("booking: actor must be guest or host")
)

type BookingID string

type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusInProgress Status = "in_progress"
	StatusCancelled  Status = "cancelled"
	StatusCompleted  Status = "completed"
)

// Kind separates nightly property stays from daily vehicle rentals.
type Kind string

const (
	KindProperty Kind = "property"
	KindVehicle  Kind = "vehicle"
)

// Actor is the party initiating a cancellation.
type Actor string

const (
	ActorGuest Actor = "guest"
	ActorHost  Actor = "host"
)

func ParseActor(raw string) (Actor, error) {
	switch Actor(strings.ToLower(strings.TrimSpace(raw))) {
	case ActorGuest:
		return ActorGuest, nil
	case ActorHost:
		return ActorHost, nil
	}
	return "", ErrInvalidActor
}

// Outcome holds the cancellation fields written exactly once.
type Outcome struct {
	CancelledBy Actor
	Reason      string
	Penalty     int64
	Refund      int64
	CancelledAt time.Time
}

// Contact is where notifications for a participant are delivered.
type Contact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type Booking struct {
	ID        BookingID
	Kind      Kind
	ListingID string
	GuestID   string
	HostID    string
	Guest     Contact
	Host      Contact
	// Range is check-in/check-out for properties and start/end for vehicles.
	Range daterange.DateRange
	Total money.Money
	// UnitRate is the price per night, or the daily rate for vehicles.
	UnitRate     money.Money
	Status       Status
	Policy       cancellation.Policy
	Cancellation *Outcome
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Version      int64
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id BookingID) (*Booking, error)
	Save(ctx context.Context, booking *Booking) error
	// CommitCancellation persists b.Cancellation only if the stored status still
	// equals expected; otherwise it returns ErrConcurrentUpdate.
	CommitCancellation(ctx context.Context, b *Booking, expected Status) error
}

type CreateParams struct {
	ID        BookingID
	Kind      Kind
	ListingID string
	GuestID   string
	HostID    string
	Guest     Contact
	Host      Contact
	Range     daterange.DateRange
	Total     money.Money
	UnitRate  money.Money
	Status    Status
	Policy    string
	CreatedAt time.Time
}

func NewBooking(params CreateParams) (*Booking, error) {
	kind := params.Kind
	if kind == "" {
		kind = KindProperty
	}
	if kind != KindProperty && kind != KindVehicle {
		return nil, ErrInvalidKind
	}
	if strings.TrimSpace(params.GuestID) == "" || strings.TrimSpace(params.HostID) == "" {
		return nil, ErrInvalidParticipant
	}
	if err := params.Range.Validate(); err != nil {
		return nil, err
	}
	if params.Total.Amount < 0 || params.UnitRate.Amount < 0 {
		return nil, ErrInvalidPrice
	}
	status := params.Status
	if status == "" {
		status = StatusPending
	}
	switch status {
	case StatusPending, StatusConfirmed, StatusInProgress, StatusCompleted:
	default:
		return nil, ErrInvalidState
	}
	now := params.CreatedAt.UTC()
	return &Booking{
		ID:        params.ID,
		Kind:      kind,
		ListingID: params.ListingID,
		GuestID:   params.GuestID,
		HostID:    params.HostID,
		Guest:     params.Guest,
		Host:      params.Host,
		Range:     params.Range,
		Total:     params.Total,
		UnitRate:  params.UnitRate,
		Status:    status,
		Policy:    cancellation.ParsePolicy(params.Policy),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (b *Booking) Confirm(now time.Time) error {
	if b.Status != StatusPending {
		return ErrInvalidState
	}
	b.Status = StatusConfirmed
	b.UpdatedAt = now.UTC()
	return nil
}

func (b *Booking) Start(now time.Time) error {
	if b.Status != StatusConfirmed {
		return ErrInvalidState
	}
	b.Status = StatusInProgress
	b.UpdatedAt = now.UTC()
	return nil
}

func (b *Booking) Complete(now time.Time) error {
	if b.Status != StatusConfirmed && b.Status != StatusInProgress {
		return ErrInvalidState
	}
	b.Status = StatusCompleted
	b.UpdatedAt = now.UTC()
	return nil
}

// Participant returns the user id acting as actor on this booking.
func (b *Booking) Participant(actor Actor) string {
	if actor == ActorHost {
		return b.HostID
	}
	return b.GuestID
}

// Amounts returns the monetary inputs for the calculators. Fees are whatever
// the total carries beyond nights x rate.
func (b *Booking) Amounts() cancellation.Amounts {
	return cancellation.NewAmounts(b.Total.Amount, b.UnitRate.Amount, b.Range.Nights())
}

// Timing classifies the booking relative to now.
func (b *Booking) Timing(now time.Time) cancellation.Timing {
	return cancellation.Classify(cancellation.TimingInput{
		Range:     b.Range,
		Pending:   b.Status == StatusPending,
		Completed: b.Status == StatusCompleted,
		Now:       now,
	})
}

// Cancel writes the outcome and moves the booking to cancelled. The outcome
// can be written only once.
func (b *Booking) Cancel(outcome Outcome) error {
	switch b.Status {
	case StatusCancelled:
		return ErrAlreadyCancelled
	case StatusPending, StatusConfirmed, StatusInProgress:
	default:
		return ErrInvalidState
	}
	if outcome.CancelledBy != ActorGuest && outcome.CancelledBy != ActorHost {
		return ErrInvalidActor
	}
	outcome.CancelledAt = outcome.CancelledAt.UTC()
	b.Status = StatusCancelled
	b.Cancellation = &outcome
	b.UpdatedAt = outcome.CancelledAt
	b.Record(BookingCancelled{
		BookingID:   b.ID,
		Kind:        b.Kind,
		ListingID:   b.ListingID,
		GuestID:     b.GuestID,
		HostID:      b.HostID,
		Guest:       b.Guest,
		Host:        b.Host,
		CheckIn:     b.Range.CheckIn,
		CheckOut:    b.Range.CheckOut,
		Policy:      b.Policy,
		CancelledBy: outcome.CancelledBy,
		Reason:      outcome.Reason,
		Refund:      money.Money{Amount: outcome.Refund, Currency: b.Total.Currency},
		Penalty:     money.Money{Amount: outcome.Penalty, Currency: b.Total.Currency},
		At:          outcome.CancelledAt,
	})
	return nil
}
