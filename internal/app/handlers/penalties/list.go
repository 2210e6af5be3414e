package penalties

import (
	"context"

	"akwa/internal/app/dto"
	"akwa/internal/app/handlers/support"
	"akwa/internal/app/queries"
	"akwa/internal/app/uow"
	domainpenalty "akwa/internal/domain/penalty"
)

const (
	listPenaltiesKey = "penalty.list"

	defaultListLimit = 50
	maxListLimit     = 200
)

type ListPenaltiesQuery struct {
	Status    string `validate:"omitempty,oneof=pending deducted paid_directly collected_manually waived"`
	HostID    string
	BookingID string
	Limit     int `validate:"gte=0"`
	Offset    int `validate:"gte=0"`
}

func (q ListPenaltiesQuery) Key() string          { return listPenaltiesKey }
func (q ListPenaltiesQuery) RequiredRole() string { return RoleAdmin }

type ListPenaltiesHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListPenaltiesHandler) Handle(ctx context.Context, q ListPenaltiesQuery) (*dto.PenaltyCollection, error) {
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	limit := q.Limit
	switch {
	case limit <= 0:
		limit = defaultListLimit
	case limit > maxListLimit:
		limit = maxListLimit
	}
	filter := domainpenalty.ListFilter{
		Status:    domainpenalty.Status(q.Status),
		HostID:    q.HostID,
		BookingID: q.BookingID,
		Limit:     limit,
		Offset:    q.Offset,
	}
	records, total, err := unit.Penalties().List(execCtx, filter)
	if err != nil {
		return nil, err
	}
	out := dto.PenaltyCollection{Items: make([]dto.PenaltyView, 0, len(records)), Total: total, Limit: limit, Offset: q.Offset}
	for _, rec := range records {
		out.Items = append(out.Items, dto.MapPenalty(rec))
	}
	return &out, nil
}

var _ queries.Handler[ListPenaltiesQuery, *dto.PenaltyCollection] = (*ListPenaltiesHandler)(nil)
