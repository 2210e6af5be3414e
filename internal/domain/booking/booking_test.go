package booking_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"akwa/internal/domain/booking"
	"akwa/internal/domain/cancellation"
	"akwa/internal/domain/shared/daterange"
	"akwa/internal/domain/shared/money"
)

func newConfirmed(t *testing.T) *booking.Booking {
	t.Helper()
	checkIn := time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC)
	dr, err := daterange.New(checkIn, checkIn.AddDate(0, 0, 5))
	require.NoError(t, err)
	b, err := booking.NewBooking(booking.CreateParams{
		ID:        "bk-1",
		GuestID:   "guest-1",
		HostID:    "host-1",
		Range:     dr,
		Total:     money.Must(110_000, "XOF"),
		UnitRate:  money.Must(20_000, "XOF"),
		Status:    booking.StatusConfirmed,
		Policy:    "moderate",
		CreatedAt: checkIn.AddDate(0, -1, 0),
	})
	require.NoError(t, err)
	return b
}

func TestNewBooking_Defaults(t *testing.T) {
	dr, err := daterange.New(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), time.Time{})
	require.NoError(t, err)

	b, err := booking.NewBooking(booking.CreateParams{ID: "v-1", Kind: booking.KindVehicle, GuestID: "g", HostID: "h", Range: dr})
	require.NoError(t, err)

	assert.Equal(t, booking.StatusPending, b.Status)
	assert.Equal(t, cancellation.PolicyFlexible, b.Policy)
	assert.Equal(t, 1, b.Range.Nights())
}

func TestNewBooking_Validation(t *testing.T) {
	dr, err := daterange.New(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	_, err = booking.NewBooking(booking.CreateParams{Kind: "boat", GuestID: "g", HostID: "h", Range: dr})
	assert.ErrorIs(t, err, booking.ErrInvalidKind)

	_, err = booking.NewBooking(booking.CreateParams{GuestID: "g", Range: dr})
	assert.ErrorIs(t, err, booking.ErrInvalidParticipant)

	_, err = booking.NewBooking(booking.CreateParams{GuestID: "g", HostID: "h", Range: dr, Total: money.Money{Amount: -1}})
	assert.ErrorIs(t, err, booking.ErrInvalidPrice)

	_, err = booking.NewBooking(booking.CreateParams{GuestID: "g", HostID: "h", Range: dr, Status: booking.StatusCancelled})
	assert.ErrorIs(t, err, booking.ErrInvalidState)
}

func TestBooking_AmountsDerivesFees(t *testing.T) {
	b := newConfirmed(t)
	a := b.Amounts()
	assert.Equal(t, int64(10_000), a.FeesAndTaxes)
	assert.Equal(t, int64(100_000), a.Base())
}

func TestBooking_CancelWritesOutcomeOnce(t *testing.T) {
	b := newConfirmed(t)
	at := time.Date(2025, time.June, 20, 9, 0, 0, 0, time.UTC)

	err := b.Cancel(booking.Outcome{CancelledBy: booking.ActorGuest, Reason: "plans changed", Penalty: 0, Refund: 110_000, CancelledAt: at})
	require.NoError(t, err)

	assert.Equal(t, booking.StatusCancelled, b.Status)
	require.NotNil(t, b.Cancellation)
	assert.Equal(t, at, b.Cancellation.CancelledAt)

	evs := b.PendingEvents()
	require.Len(t, evs, 1)
	ev, ok := evs[0].(booking.BookingCancelled)
	require.True(t, ok)
	assert.Equal(t, int64(110_000), ev.Refund.Amount)
	assert.Equal(t, "XOF", ev.Refund.Currency)

	err = b.Cancel(booking.Outcome{CancelledBy: booking.ActorHost, Penalty: 5, CancelledAt: at.Add(time.Hour)})
	assert.ErrorIs(t, err, booking.ErrAlreadyCancelled)
	assert.Equal(t, booking.ActorGuest, b.Cancellation.CancelledBy)
	assert.Equal(t, at, b.Cancellation.CancelledAt)
}

func TestBooking_CancelRejectsCompleted(t *testing.T) {
	b := newConfirmed(t)
	require.NoError(t, b.Complete(time.Now()))
	assert.ErrorIs(t, b.Cancel(booking.Outcome{CancelledBy: booking.ActorGuest}), booking.ErrInvalidState)
}

func TestBooking_TimingUsesStatus(t *testing.T) {
	b := newConfirmed(t)
	now := time.Date(2025, time.June, 29, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, cancellation.PhasePreStart, b.Timing(now).Phase)

	b.Status = booking.StatusPending
	assert.Equal(t, cancellation.PhasePending, b.Timing(now).Phase)
}

func TestParseActor(t *testing.T) {
	a, err := booking.ParseActor(" Host ")
	require.NoError(t, err)
	assert.Equal(t, booking.ActorHost, a)

	_, err = booking.ParseActor("admin")
	assert.ErrorIs(t, err, booking.ErrInvalidActor)
}
