package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	appoutbox "akwa/internal/app/outbox"
	"akwa/internal/app/uow"
	domainbooking "akwa/internal/domain/booking"
	domainpenalty "akwa/internal/domain/penalty"
)

// Factory wires Mongo transactions into the generic UnitOfWork interface.
// Repositories join the transaction through the session context injected
// by the unit.
type Factory struct {
	DB *mongo.Database

	BookingRepo domainbooking.Repository
	PenaltyRepo domainpenalty.Repository
	OutboxStore appoutbox.Outbox
}

var ErrUnitOfWorkNotConfigured = errors.New("mongo: unit of work factory misconfigured")

func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.DB == nil || f.BookingRepo == nil || f.PenaltyRepo == nil || f.OutboxStore == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	session, err := f.DB.Client().StartSession()
	if err != nil {
		return nil, err
	}
	txnOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())
	if opts.ReadOnly {
		txnOpts = options.Transaction().SetReadConcern(readconcern.Majority())
	}
	if err := session.StartTransaction(txnOpts); err != nil {
		session.EndSession(ctx)
		return nil, err
	}
	return &Unit{session: session, factory: f}, nil
}

type Unit struct {
	session mongo.Session
	factory Factory
}

func (u *Unit) Bookings() domainbooking.Repository {
	return u.factory.BookingRepo
}

func (u *Unit) Penalties() domainpenalty.Repository {
	return u.factory.PenaltyRepo
}

func (u *Unit) Outbox() appoutbox.Outbox {
	return u.factory.OutboxStore
}

func (u *Unit) Commit(ctx context.Context) error {
	defer u.session.EndSession(ctx)
	return u.session.CommitTransaction(ctx)
}

func (u *Unit) Rollback(ctx context.Context) error {
	defer u.session.EndSession(ctx)
	return u.session.AbortTransaction(ctx)
}

// InjectContext makes the session available to repositories through ctx.
func (u *Unit) InjectContext(ctx context.Context) context.Context {
	return mongo.NewSessionContext(ctx, u.session)
}
