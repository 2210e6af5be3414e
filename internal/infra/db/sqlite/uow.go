package sqlite

import (
	"context"
	"database/sql"

	appoutbox "akwa/internal/app/outbox"
	"akwa/internal/app/uow"
	domainbooking "akwa/internal/domain/booking"
	domainpenalty "akwa/internal/domain/penalty"
)

// Begin starts a database transaction as a unit of work.
func (s *Store) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: opts.ReadOnly})
	if err != nil {
		return nil, err
	}
	return &Unit{tx: tx}, nil
}

type Unit struct {
	tx *sql.Tx
}

func (u *Unit) Bookings() domainbooking.Repository {
	return bookingRepository{db: u.tx}
}

func (u *Unit) Penalties() domainpenalty.Repository {
	return penaltyRepository{db: u.tx}
}

func (u *Unit) Outbox() appoutbox.Outbox {
	return outboxWriter{db: u.tx}
}

func (u *Unit) Commit(ctx context.Context) error {
	return u.tx.Commit()
}

func (u *Unit) Rollback(ctx context.Context) error {
	err := u.tx.Rollback()
	if err == sql.ErrTxDone {
		return nil
	}
	return err
}

// Bookings gives direct access outside a unit, for fixtures and tests.
func (s *Store) Bookings() domainbooking.Repository {
	return bookingRepository{db: s.db}
}

var _ uow.UoWFactory = (*Store)(nil)
