package policies

import (
	"context"
	"time"

	"akwa/internal/domain/shared/money"
)

// Role is the recipient side of a cancellation notice.
type Role string

const (
	RoleGuest Role = "guest"
	RoleHost  Role = "host"
)

// CancellationNotice describes a committed cancellation to one recipient.
type CancellationNotice struct {
	BookingID     string
	Kind          string
	ListingID     string
	RecipientID   string
	RecipientName string
	Email         string
	CancelledBy   string
	Reason        string
	Policy        string
	Refund        money.Money
	Penalty       money.Money
	CheckIn       time.Time
	CheckOut      time.Time
	CancelledAt   time.Time
}

// Notifier delivers a notice over one channel. Implementations must not
// block on retries; the dispatcher logs their failures.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, role Role, notice CancellationNotice) error
}
