package cancellation

import (
	"context"
	"time"

	"akwa/internal/app/dto"
	"akwa/internal/app/handlers/support"
	"akwa/internal/app/queries"
	"akwa/internal/app/uow"
	domainbooking "akwa/internal/domain/booking"
	domaincancellation "akwa/internal/domain/cancellation"
)

const getQuoteKey = "booking.cancellation_quote"

type GetCancellationQuery struct {
	BookingID   string `validate:"required"`
	Actor       string `validate:"required,oneof=guest host"`
	RequestedBy string
}

func (q GetCancellationQuery) Key() string { return getQuoteKey }

// GetCancellationHandler computes what a cancellation would produce right now
// without changing anything.
type GetCancellationHandler struct {
	UoWFactory uow.UoWFactory
	Clock      func() time.Time
}

func (h *GetCancellationHandler) Handle(ctx context.Context, q GetCancellationQuery) (*dto.CancellationInfo, error) {
	actor, err := domainbooking.ParseActor(q.Actor)
	if err != nil {
		return nil, err
	}
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	b, err := unit.Bookings().ByID(execCtx, domainbooking.BookingID(q.BookingID))
	if err != nil {
		return nil, err
	}
	if q.RequestedBy != "" && b.Participant(actor) != q.RequestedBy {
		return nil, ErrActorMismatch
	}
	if b.Status == domainbooking.StatusCancelled {
		view := dto.MapCancelledQuote(b, actor)
		return &view, nil
	}
	now := time.Now().UTC()
	if h.Clock != nil {
		now = h.Clock().UTC()
	}
	view, _ := Quote(b, actor, now)
	return &view, nil
}

// Quote runs the timing classifier and the calculator for actor.
func Quote(b *domainbooking.Booking, actor domainbooking.Actor, now time.Time) (dto.CancellationInfo, domaincancellation.Info) {
	timing := b.Timing(now)
	if actor == domainbooking.ActorHost {
		q := domaincancellation.ComputeHost(timing, b.Amounts())
		q.Info.Policy = b.Policy
		return dto.MapHostQuote(b, q), q.Info
	}
	info := domaincancellation.ComputeGuest(b.Policy, timing, b.Amounts())
	return dto.MapCancellationInfo(b, actor, info), info
}

var _ queries.Handler[GetCancellationQuery, *dto.CancellationInfo] = (*GetCancellationHandler)(nil)
