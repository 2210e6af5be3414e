package uow

import (
	"context"

	"akwa/internal/app/outbox"
	domainbooking "akwa/internal/domain/booking"
	domainpenalty "akwa/internal/domain/penalty"
)

// UnitOfWork coordinates repositories inside a transaction boundary. Writes
// made through one unit become visible together on Commit or not at all.
type UnitOfWork interface {
	Bookings() domainbooking.Repository
	Penalties() domainpenalty.Repository
	Outbox() outbox.Outbox

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// UoWFactory starts unit of work instances.
type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

// TxOptions configure transaction boundaries.
type TxOptions struct {
	ReadOnly bool
}
