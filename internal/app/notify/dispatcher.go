package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"akwa/internal/app/policies"
	domainbooking "akwa/internal/domain/booking"
	domainpenalty "akwa/internal/domain/penalty"
)

var ErrUnknownEvent = errors.New("notify: unknown event")

// Dispatcher turns committed domain events into notices for the guest and
// the host and fans them out over every configured channel.
type Dispatcher struct {
	Notifiers []policies.Notifier
	Logger    *slog.Logger
}

func NewDispatcher(logger *slog.Logger, notifiers ...policies.Notifier) *Dispatcher {
	return &Dispatcher{Notifiers: notifiers, Logger: logger}
}

// HandleEvent decodes an outbox payload by name. Delivery failures are logged
// and returned joined; decoding failures are returned as is.
func (d *Dispatcher) HandleEvent(ctx context.Context, name string, payload []byte) error {
	switch name {
	case domainbooking.EventBookingCancelled:
		var ev domainbooking.BookingCancelled
		if err := json.Unmarshal(payload, &ev); err != nil {
			return fmt.Errorf("notify: decode %s: %w", name, err)
		}
		return d.BookingCancelled(ctx, ev)
	case domainpenalty.EventStatusChanged:
		var ev domainpenalty.StatusChanged
		if err := json.Unmarshal(payload, &ev); err != nil {
			return fmt.Errorf("notify: decode %s: %w", name, err)
		}
		d.logger().InfoContext(ctx, "penalty status changed",
			"penalty_id", ev.PenaltyID, "booking_id", ev.BookingID, "from", ev.From, "to", ev.To)
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnknownEvent, name)
	}
}

func (d *Dispatcher) BookingCancelled(ctx context.Context, ev domainbooking.BookingCancelled) error {
	var errs []error
	for _, role := range []policies.Role{policies.RoleGuest, policies.RoleHost} {
		notice := noticeFor(role, ev)
		for _, n := range d.Notifiers {
			if n == nil {
				continue
			}
			if err := n.Notify(ctx, role, notice); err != nil {
				d.logger().WarnContext(ctx, "cancellation notice failed",
					"booking_id", ev.BookingID, "role", role, "channel", n.Name(), "error", err)
				errs = append(errs, fmt.Errorf("%s/%s: %w", n.Name(), role, err))
			}
		}
	}
	return errors.Join(errs...)
}

func noticeFor(role policies.Role, ev domainbooking.BookingCancelled) policies.CancellationNotice {
	notice := policies.CancellationNotice{
		BookingID:   string(ev.BookingID),
		Kind:        string(ev.Kind),
		ListingID:   ev.ListingID,
		CancelledBy: string(ev.CancelledBy),
		Reason:      ev.Reason,
		Policy:      string(ev.Policy),
		Refund:      ev.Refund,
		Penalty:     ev.Penalty,
		CheckIn:     ev.CheckIn,
		CheckOut:    ev.CheckOut,
		CancelledAt: ev.At,
	}
	if role == policies.RoleHost {
		notice.RecipientID = ev.HostID
		notice.RecipientName = ev.Host.Name
		notice.Email = ev.Host.Email
	} else {
		notice.RecipientID = ev.GuestID
		notice.RecipientName = ev.Guest.Name
		notice.Email = ev.Guest.Email
	}
	return notice
}

func (d *Dispatcher) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}
