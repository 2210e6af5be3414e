package memory

import (
	"context"

	domainbooking "akwa/internal/domain/booking"
	"akwa/internal/domain/shared/events"
)

// BookingRepository stores bookings in memory. Callers always get copies.
type BookingRepository struct {
	table table[domainbooking.BookingID, *domainbooking.Booking]
}

func NewBookingRepository() *BookingRepository {
	return &BookingRepository{table: newTable[domainbooking.BookingID, *domainbooking.Booking]()}
}

// ByID returns the committed booking.
func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	b, ok := r.table.get(id)
	if !ok {
		return nil, domainbooking.ErrBookingNotFound
	}
	return cloneBooking(b), nil
}

// Save upserts the booking outside any unit and returns a function restoring
// the previous state. Seeding and tests use it directly.
func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) (func(), error) {
	if prev, ok := r.table.get(b.ID); ok {
		b.Version = prev.Version
	}
	b.Version++
	return r.table.put(b.ID, cloneBooking(b)), nil
}

func cloneBooking(b *domainbooking.Booking) *domainbooking.Booking {
	c := *b
	c.EventRecorder = events.EventRecorder{}
	if b.Cancellation != nil {
		out := *b.Cancellation
		c.Cancellation = &out
	}
	return &c
}

// bookingsInUnit stages writes until the unit commits.
type bookingsInUnit struct {
	repo *BookingRepository
	unit *Unit
}

func (v bookingsInUnit) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	return v.repo.ByID(ctx, id)
}

func (v bookingsInUnit) Save(ctx context.Context, b *domainbooking.Booking) error {
	if err := v.unit.writable(); err != nil {
		return err
	}
	return v.repo.table.stage(ctx, v.unit, b.ID, func(current *domainbooking.Booking, found bool) (*domainbooking.Booking, error) {
		b.Version = 1
		if found {
			b.Version = current.Version + 1
		}
		return cloneBooking(b), nil
	})
}

// CommitCancellation stages b only when the status seen by the unit equals
// expected. A competing unit holding the booking is waited out first, so the
// guard is checked against committed state.
func (v bookingsInUnit) CommitCancellation(ctx context.Context, b *domainbooking.Booking, expected domainbooking.Status) error {
	if err := v.unit.writable(); err != nil {
		return err
	}
	return v.repo.table.stage(ctx, v.unit, b.ID, func(current *domainbooking.Booking, found bool) (*domainbooking.Booking, error) {
		if !found {
			return nil, domainbooking.ErrBookingNotFound
		}
		if current.Status != expected {
			return nil, domainbooking.ErrConcurrentUpdate
		}
		b.Version = current.Version + 1
		return cloneBooking(b), nil
	})
}

var _ domainbooking.Repository = bookingsInUnit{}
