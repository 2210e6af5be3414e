package penalties

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"akwa/internal/app/dto"
	"akwa/internal/app/outbox"
	"akwa/internal/app/uow"
	domainpenalty "akwa/internal/domain/penalty"
)

const (
	waivePenaltyKey   = "penalty.waive"
	collectPenaltyKey = "penalty.collect"

	// RoleAdmin is required for every penalty lifecycle operation.
	RoleAdmin = "admin"
)

var ErrUnitOfWorkRequired = errors.New("penalties: unit of work required")

type WaivePenaltyCommand struct {
	PenaltyID string `validate:"required"`
	Reason    string `validate:"required,max=1000"`
	Notes     string `validate:"max=2000"`
}

func (c WaivePenaltyCommand) Key() string          { return waivePenaltyKey }
func (c WaivePenaltyCommand) RequiredRole() string { return RoleAdmin }

type MarkCollectedCommand struct {
	PenaltyID string `validate:"required"`
	// Method is deducted, paid_directly or collected_manually (default).
	Method string `validate:"omitempty,oneof=deducted paid_directly collected_manually"`
	Notes  string `validate:"max=2000"`
}

func (c MarkCollectedCommand) Key() string          { return collectPenaltyKey }
func (c MarkCollectedCommand) RequiredRole() string { return RoleAdmin }

// LifecycleHandler applies administrator transitions to penalty records. It
// never touches the booking the penalty came from.
type LifecycleHandler struct {
	Encoder outbox.EventEncoder
	Clock   func() time.Time
	Logger  *slog.Logger
}

func (h *LifecycleHandler) Waive(ctx context.Context, cmd WaivePenaltyCommand) (*dto.PenaltyView, error) {
	return h.apply(ctx, cmd.PenaltyID, func(rec *domainpenalty.Record, now time.Time) error {
		return rec.Waive(cmd.Reason, cmd.Notes, now)
	})
}

func (h *LifecycleHandler) MarkCollected(ctx context.Context, cmd MarkCollectedCommand) (*dto.PenaltyView, error) {
	status, err := domainpenalty.ParseCollection(cmd.Method)
	if err != nil {
		return nil, err
	}
	return h.apply(ctx, cmd.PenaltyID, func(rec *domainpenalty.Record, now time.Time) error {
		return rec.Collect(status, cmd.Notes, now)
	})
}

func (h *LifecycleHandler) apply(ctx context.Context, id string, transition func(*domainpenalty.Record, time.Time) error) (*dto.PenaltyView, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return nil, ErrUnitOfWorkRequired
	}
	rec, err := unit.Penalties().ByID(ctx, domainpenalty.PenaltyID(id))
	if err != nil {
		return nil, err
	}
	from := rec.Status
	if err := transition(rec, h.now()); err != nil {
		return nil, err
	}
	if err := unit.Penalties().Save(ctx, rec); err != nil {
		return nil, err
	}
	if err := outbox.RecordDomainEvents(ctx, unit.Outbox(), h.Encoder, rec.DrainEvents()); err != nil {
		return nil, err
	}
	h.logger().InfoContext(ctx, "penalty status changed",
		"penalty_id", rec.ID, "booking_id", rec.BookingID, "from", from, "to", rec.Status)
	view := dto.MapPenalty(rec)
	return &view, nil
}

func (h *LifecycleHandler) now() time.Time {
	if h.Clock != nil {
		return h.Clock().UTC()
	}
	return time.Now().UTC()
}

func (h *LifecycleHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

