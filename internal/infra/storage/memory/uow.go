package memory

import (
	"context"
	"errors"
	"sync"

	appoutbox "akwa/internal/app/outbox"
	"akwa/internal/app/uow"
	domainbooking "akwa/internal/domain/booking"
	domainpenalty "akwa/internal/domain/penalty"
)

var (
	ErrFactoryMisconfigured = errors.New("memory: unit of work factory misconfigured")
	ErrReadOnlyUnit         = errors.New("memory: write in read-only unit of work")
	ErrUnitClosed           = errors.New("memory: unit of work already finished")
)

// Factory wires in-memory repositories into a unit-of-work boundary.
type Factory struct {
	BookingRepo *BookingRepository
	PenaltyRepo *PenaltyRepository
	OutboxStore *Outbox
}

func NewFactory() Factory {
	return Factory{
		BookingRepo: NewBookingRepository(),
		PenaltyRepo: NewPenaltyRepository(),
		OutboxStore: NewOutbox(),
	}
}

// Begin starts a unit. Writes are staged and become visible together on
// Commit; a record written by an open unit is held until that unit finishes.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.BookingRepo == nil || f.PenaltyRepo == nil || f.OutboxStore == nil {
		return nil, ErrFactoryMisconfigured
	}
	return &Unit{factory: f, readOnly: opts.ReadOnly}, nil
}

type Unit struct {
	factory  Factory
	readOnly bool

	mu      sync.Mutex
	undo    []func()
	commits []func()
	done    bool
}

func (u *Unit) Bookings() domainbooking.Repository {
	return bookingsInUnit{repo: u.factory.BookingRepo, unit: u}
}

func (u *Unit) Penalties() domainpenalty.Repository {
	return penaltiesInUnit{repo: u.factory.PenaltyRepo, unit: u}
}

func (u *Unit) Outbox() appoutbox.Outbox {
	return outboxInUnit{box: u.factory.OutboxStore, unit: u}
}

func (u *Unit) Commit(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.done {
		return ErrUnitClosed
	}
	u.done = true
	u.undo = nil
	for _, fn := range u.commits {
		fn()
	}
	u.commits = nil
	return nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.done {
		return nil
	}
	u.done = true
	for i := len(u.undo) - 1; i >= 0; i-- {
		u.undo[i]()
	}
	u.undo = nil
	u.commits = nil
	return nil
}

func (u *Unit) writable() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	switch {
	case u.done:
		return ErrUnitClosed
	case u.readOnly:
		return ErrReadOnlyUnit
	}
	return nil
}

func (u *Unit) journal(undo func()) {
	if undo == nil {
		return
	}
	u.mu.Lock()
	u.undo = append(u.undo, undo)
	u.mu.Unlock()
}

func (u *Unit) onCommit(fn func()) {
	u.mu.Lock()
	u.commits = append(u.commits, fn)
	u.mu.Unlock()
}
