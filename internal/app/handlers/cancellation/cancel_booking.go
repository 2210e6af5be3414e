package cancellation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"akwa/internal/app/commands"
	"akwa/internal/app/dto"
	"akwa/internal/app/middleware"
	"akwa/internal/app/outbox"
	"akwa/internal/app/uow"
	domainbooking "akwa/internal/domain/booking"
	domaincancellation "akwa/internal/domain/cancellation"
	domainpenalty "akwa/internal/domain/penalty"
)

const cancelBookingKey = "booking.cancel"

var (
	ErrUnitOfWorkRequired = errors.New("cancellation: unit of work required")
	ErrActorMismatch      = errors.New("cancellation: caller is not the booking participant for this actor")
)

type CancelBookingCommand struct {
	BookingID            string `validate:"required"`
	Actor                string `validate:"required,oneof=guest host"`
	Reason               string `validate:"max=1000"`
	PenaltyPaymentMethod string `validate:"omitempty,oneof=deduct_from_payout pay_directly"`
	// RequestedBy is the authenticated user id, when the caller has one.
	RequestedBy     string
	IdempotencyKeyV string
}

func (c CancelBookingCommand) Key() string { return cancelBookingKey }

func (c CancelBookingCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c CancelBookingCommand) ResultPrototype() any { return &dto.CancellationResult{} }

// CancelBookingHandler cancels a booking at most once. Booking state, the
// host penalty record and the outbox events are written in one unit of work;
// notifications are relayed from the outbox after commit.
type CancelBookingHandler struct {
	UoWFactory  uow.UoWFactory
	Encoder     outbox.EventEncoder
	Clock       func() time.Time
	IDGenerator func() string
	Logger      *slog.Logger
}

func (h *CancelBookingHandler) Handle(ctx context.Context, cmd CancelBookingCommand) (*dto.CancellationResult, error) {
	actor, err := domainbooking.ParseActor(cmd.Actor)
	if err != nil {
		return nil, err
	}
	method, err := domainpenalty.ParsePaymentMethod(cmd.PenaltyPaymentMethod)
	if err != nil {
		return nil, err
	}

	unit, ok := uow.FromContext(ctx)
	managed := false
	committed := false
	if !ok {
		if h.UoWFactory == nil {
			return nil, ErrUnitOfWorkRequired
		}
		unit, err = h.UoWFactory.Begin(ctx, uow.TxOptions{})
		if err != nil {
			return nil, err
		}
		ctx = uow.Inject(ctx, unit)
		managed = true
		defer func() {
			if !committed {
				_ = unit.Rollback(ctx)
			}
		}()
	}

	id := domainbooking.BookingID(strings.TrimSpace(cmd.BookingID))
	b, err := unit.Bookings().ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if cmd.RequestedBy != "" && b.Participant(actor) != cmd.RequestedBy {
		return nil, ErrActorMismatch
	}
	if b.Status == domainbooking.StatusCancelled {
		return alreadyCancelled(b)
	}

	now := h.now()
	view, info := Quote(b, actor, now)
	if !info.CanCancel {
		return rejected(b, view, domaincancellation.Reject(domaincancellation.ErrPolicyForbids, info))
	}
	if actor == domainbooking.ActorHost && info.PenaltyAmount > 0 && method == "" {
		return rejected(b, view, domaincancellation.Reject(domaincancellation.ErrPaymentMethodRequired, info))
	}

	expected := b.Status
	outcome := domainbooking.Outcome{
		CancelledBy: actor,
		Reason:      strings.TrimSpace(cmd.Reason),
		Penalty:     info.PenaltyAmount,
		Refund:      info.RefundAmount,
		CancelledAt: now,
	}
	if err := b.Cancel(outcome); err != nil {
		return nil, err
	}
	if err := unit.Bookings().CommitCancellation(ctx, b, expected); err != nil {
		if errors.Is(err, domainbooking.ErrConcurrentUpdate) {
			return h.resolveConflict(ctx, unit, id, err)
		}
		return nil, err
	}

	result := dto.MapStoredOutcome(b)
	result.Info = &view

	evs := b.DrainEvents()
	if actor == domainbooking.ActorHost && info.PenaltyAmount > 0 {
		rec, err := domainpenalty.New(domainpenalty.CreateParams{
			ID:            domainpenalty.PenaltyID(h.newID()),
			BookingID:     string(b.ID),
			HostID:        b.HostID,
			GuestID:       b.GuestID,
			Amount:        info.PenaltyAmount,
			Currency:      b.Total.Currency,
			Type:          domainpenalty.Type(view.PenaltyType),
			PaymentMethod: method,
			CreatedAt:     now,
		})
		if err != nil {
			return nil, err
		}
		if err := unit.Penalties().Create(ctx, rec); err != nil {
			return nil, fmt.Errorf("cancellation: create penalty record: %w", err)
		}
		result.PenaltyID = string(rec.ID)
		evs = append(evs, rec.DrainEvents()...)
	}

	if err := outbox.RecordDomainEvents(ctx, unit.Outbox(), h.Encoder, evs); err != nil {
		return nil, err
	}

	if managed {
		if err := unit.Commit(ctx); err != nil {
			return nil, err
		}
		committed = true
	}

	h.logger().InfoContext(ctx, "booking cancelled",
		"booking_id", b.ID,
		"actor", actor,
		"policy", b.Policy,
		"refund_amount", info.RefundAmount,
		"penalty_amount", info.PenaltyAmount,
	)
	return &result, nil
}

// resolveConflict re-reads the booking after a lost conditional update. A
// competing cancellation that already committed turns into AlreadyCancelled.
func (h *CancelBookingHandler) resolveConflict(ctx context.Context, unit uow.UnitOfWork, id domainbooking.BookingID, cause error) (*dto.CancellationResult, error) {
	current, err := unit.Bookings().ByID(ctx, id)
	if err == nil && current.Status == domainbooking.StatusCancelled {
		return alreadyCancelled(current)
	}
	h.logger().WarnContext(ctx, "cancellation lost concurrent update", "booking_id", id)
	return nil, cause
}

func alreadyCancelled(b *domainbooking.Booking) (*dto.CancellationResult, error) {
	res := dto.MapStoredOutcome(b)
	res.AlreadyCancelled = true
	return &res, domainbooking.ErrAlreadyCancelled
}

func rejected(b *domainbooking.Booking, view dto.CancellationInfo, err error) (*dto.CancellationResult, error) {
	return &dto.CancellationResult{
		BookingID:     string(b.ID),
		Status:        string(b.Status),
		RefundAmount:  view.RefundAmount,
		PenaltyAmount: view.PenaltyAmount,
		Currency:      b.Total.Currency,
		Info:          &view,
		Error:         err.Error(),
	}, err
}

func (h *CancelBookingHandler) now() time.Time {
	if h.Clock != nil {
		return h.Clock().UTC()
	}
	return time.Now().UTC()
}

func (h *CancelBookingHandler) newID() string {
	if h.IDGenerator != nil {
		return h.IDGenerator()
	}
	return uuid.NewString()
}

func (h *CancelBookingHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

var _ commands.Handler[CancelBookingCommand, *dto.CancellationResult] = (*CancelBookingHandler)(nil)
var _ middleware.IdempotentCommand = CancelBookingCommand{}
