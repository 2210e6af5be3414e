package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"akwa/internal/app/uow"
	domainbooking "akwa/internal/domain/booking"
	"akwa/internal/domain/shared/daterange"
	"akwa/internal/domain/shared/money"
)

type bookingFixture struct {
	ID        string                `json:"id"`
	Kind      string                `json:"kind"`
	ListingID string                `json:"listing_id"`
	GuestID   string                `json:"guest_id"`
	HostID    string                `json:"host_id"`
	Guest     domainbooking.Contact `json:"guest"`
	Host      domainbooking.Contact `json:"host"`
	CheckIn   time.Time             `json:"check_in"`
	CheckOut  *time.Time            `json:"check_out,omitempty"`
	Total     int64                 `json:"total"`
	UnitRate  int64                 `json:"unit_rate"`
	Currency  string                `json:"currency"`
	Status    string                `json:"status"`
	Policy    string                `json:"policy"`
}

// loadBookingFixtures seeds bookings from a JSON array. Bookings already in
// the store are left untouched so a restart does not revert a cancellation.
func (a *application) loadBookingFixtures(ctx context.Context, path string, logger *slog.Logger) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("booking fixtures file not found, skipping", "path", path)
			return nil
		}
		return fmt.Errorf("read fixtures: %w", err)
	}
	if len(data) == 0 {
		logger.Warn("booking fixtures file empty", "path", path)
		return nil
	}

	var fixtures []bookingFixture
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return fmt.Errorf("decode fixtures: %w", err)
	}

	now := time.Now()
	loaded := 0
	for _, fx := range fixtures {
		b, err := fx.toBooking(now)
		if err != nil {
			logger.Warn("skip invalid booking fixture", "id", fx.ID, "error", err)
			continue
		}
		created, err := a.seedBooking(ctx, b)
		if err != nil {
			return fmt.Errorf("save fixture %s: %w", fx.ID, err)
		}
		if created {
			loaded++
		}
	}
	logger.Info("booking fixtures loaded", "count", loaded, "path", path)
	return nil
}

func (fx bookingFixture) toBooking(now time.Time) (*domainbooking.Booking, error) {
	var checkOut time.Time
	if fx.CheckOut != nil {
		checkOut = *fx.CheckOut
	}
	dr, err := daterange.New(fx.CheckIn, checkOut)
	if err != nil {
		return nil, err
	}
	total, err := money.New(fx.Total, fx.Currency)
	if err != nil {
		return nil, err
	}
	rate, err := money.New(fx.UnitRate, fx.Currency)
	if err != nil {
		return nil, err
	}
	return domainbooking.NewBooking(domainbooking.CreateParams{
		ID:        domainbooking.BookingID(fx.ID),
		Kind:      domainbooking.Kind(fx.Kind),
		ListingID: fx.ListingID,
		GuestID:   fx.GuestID,
		HostID:    fx.HostID,
		Guest:     fx.Guest,
		Host:      fx.Host,
		Range:     dr,
		Total:     total,
		UnitRate:  rate,
		Status:    domainbooking.Status(fx.Status),
		Policy:    fx.Policy,
		CreatedAt: now,
	})
}

func (a *application) seedBooking(ctx context.Context, b *domainbooking.Booking) (bool, error) {
	unit, err := a.factory.Begin(ctx, uow.TxOptions{})
	if err != nil {
		return false, err
	}
	execCtx := uow.Inject(ctx, unit)

	created, err := insertIfMissing(execCtx, unit, b)
	if err != nil || !created {
		_ = unit.Rollback(execCtx)
		return false, err
	}
	return true, unit.Commit(execCtx)
}

func insertIfMissing(ctx context.Context, unit uow.UnitOfWork, b *domainbooking.Booking) (bool, error) {
	_, err := unit.Bookings().ByID(ctx, b.ID)
	switch {
	case err == nil:
		return false, nil
	case !errors.Is(err, domainbooking.ErrBookingNotFound):
		return false, err
	}
	if err := unit.Bookings().Save(ctx, b); err != nil {
		if errors.Is(err, domainbooking.ErrConcurrentUpdate) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
