package memory

import (
	"context"
	"slices"

	domainpenalty "akwa/internal/domain/penalty"
	"akwa/internal/domain/shared/events"
)

type PenaltyRepository struct {
	table table[domainpenalty.PenaltyID, *domainpenalty.Record]
}

func NewPenaltyRepository() *PenaltyRepository {
	return &PenaltyRepository{table: newTable[domainpenalty.PenaltyID, *domainpenalty.Record]()}
}

func (r *PenaltyRepository) ByID(ctx context.Context, id domainpenalty.PenaltyID) (*domainpenalty.Record, error) {
	rec, ok := r.table.get(id)
	if !ok {
		return nil, domainpenalty.ErrPenaltyNotFound
	}
	return clonePenalty(rec), nil
}

// Create inserts rec outside any unit. Seeding and tests use it directly.
func (r *PenaltyRepository) Create(ctx context.Context, rec *domainpenalty.Record) (func(), error) {
	if _, exists := r.table.get(rec.ID); exists {
		return nil, domainpenalty.ErrConcurrentUpdate
	}
	rec.Version = 1
	return r.table.put(rec.ID, clonePenalty(rec)), nil
}

func (r *PenaltyRepository) List(ctx context.Context, filter domainpenalty.ListFilter) ([]*domainpenalty.Record, int, error) {
	r.table.mu.RLock()
	matched := make([]*domainpenalty.Record, 0, len(r.table.items))
	for _, rec := range r.table.items {
		if filter.Status != "" && rec.Status != filter.Status {
			continue
		}
		if filter.HostID != "" && rec.HostID != filter.HostID {
			continue
		}
		if filter.BookingID != "" && rec.BookingID != filter.BookingID {
			continue
		}
		matched = append(matched, clonePenalty(rec))
	}
	r.table.mu.RUnlock()

	// newest first, id as tie breaker
	slices.SortFunc(matched, func(a, b *domainpenalty.Record) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
	total := len(matched)
	start := min(max(filter.Offset, 0), total)
	end := total
	if filter.Limit > 0 {
		end = min(start+filter.Limit, total)
	}
	return matched[start:end], total, nil
}

func clonePenalty(rec *domainpenalty.Record) *domainpenalty.Record {
	c := *rec
	c.EventRecorder = events.EventRecorder{}
	if rec.ResolvedAt != nil {
		at := *rec.ResolvedAt
		c.ResolvedAt = &at
	}
	return &c
}

type penaltiesInUnit struct {
	repo *PenaltyRepository
	unit *Unit
}

func (v penaltiesInUnit) ByID(ctx context.Context, id domainpenalty.PenaltyID) (*domainpenalty.Record, error) {
	return v.repo.ByID(ctx, id)
}

func (v penaltiesInUnit) Create(ctx context.Context, rec *domainpenalty.Record) error {
	if err := v.unit.writable(); err != nil {
		return err
	}
	return v.repo.table.stage(ctx, v.unit, rec.ID, func(_ *domainpenalty.Record, found bool) (*domainpenalty.Record, error) {
		if found {
			return nil, domainpenalty.ErrConcurrentUpdate
		}
		rec.Version = 1
		return clonePenalty(rec), nil
	})
}

// Save stages rec only if the version seen by the unit still matches.
func (v penaltiesInUnit) Save(ctx context.Context, rec *domainpenalty.Record) error {
	if err := v.unit.writable(); err != nil {
		return err
	}
	return v.repo.table.stage(ctx, v.unit, rec.ID, func(current *domainpenalty.Record, found bool) (*domainpenalty.Record, error) {
		if !found {
			return nil, domainpenalty.ErrPenaltyNotFound
		}
		if current.Version != rec.Version {
			return nil, domainpenalty.ErrConcurrentUpdate
		}
		rec.Version++
		return clonePenalty(rec), nil
	})
}

func (v penaltiesInUnit) List(ctx context.Context, filter domainpenalty.ListFilter) ([]*domainpenalty.Record, int, error) {
	return v.repo.List(ctx, filter)
}

var _ domainpenalty.Repository = penaltiesInUnit{}
