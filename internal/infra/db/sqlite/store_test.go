package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appoutbox "akwa/internal/app/outbox"
	"akwa/internal/app/uow"
	domainbooking "akwa/internal/domain/booking"
	domainpenalty "akwa/internal/domain/penalty"
	"akwa/internal/domain/shared/daterange"
	"akwa/internal/domain/shared/money"
	"akwa/internal/infra/db/sqlite"
)

func openStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func seedBooking(t *testing.T, store *sqlite.Store) *domainbooking.Booking {
	t.Helper()
	checkIn := time.Date(2025, time.August, 10, 14, 0, 0, 0, time.UTC)
	dr, err := daterange.New(checkIn, checkIn.AddDate(0, 0, 3))
	require.NoError(t, err)
	b, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID:        "bk-sql",
		ListingID: "lst-1",
		GuestID:   "guest-1",
		HostID:    "host-1",
		Guest:     domainbooking.Contact{Name: "Awa", Email: "awa@example.com"},
		Range:     dr,
		Total:     money.Must(65_000, "XOF"),
		UnitRate:  money.Must(20_000, "XOF"),
		Status:    domainbooking.StatusConfirmed,
		Policy:    "strict",
		CreatedAt: checkIn.AddDate(0, -1, 0),
	})
	require.NoError(t, err)
	require.NoError(t, store.Bookings().Save(context.Background(), b))
	return b
}

func TestStore_BookingRoundTrip(t *testing.T) {
	store := openStore(t)
	seeded := seedBooking(t, store)

	got, err := store.Bookings().ByID(context.Background(), seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, seeded.Range.CheckIn, got.Range.CheckIn)
	assert.Equal(t, seeded.Range.CheckOut, got.Range.CheckOut)
	assert.Equal(t, seeded.Total, got.Total)
	assert.Equal(t, seeded.Policy, got.Policy)
	assert.Equal(t, "awa@example.com", got.Guest.Email)
	assert.Equal(t, int64(1), got.Version)
	assert.Nil(t, got.Cancellation)

	_, err = store.Bookings().ByID(context.Background(), "missing")
	assert.ErrorIs(t, err, domainbooking.ErrBookingNotFound)
}

func TestStore_CommitCancellationOnlyOnce(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	seedBooking(t, store)
	at := time.Date(2025, time.August, 1, 9, 0, 0, 0, time.UTC)

	first, err := store.Bookings().ByID(ctx, "bk-sql")
	require.NoError(t, err)
	second, err := store.Bookings().ByID(ctx, "bk-sql")
	require.NoError(t, err)

	require.NoError(t, first.Cancel(domainbooking.Outcome{CancelledBy: domainbooking.ActorGuest, Refund: 32_500, Penalty: 32_500, CancelledAt: at}))
	require.NoError(t, store.Bookings().CommitCancellation(ctx, first, domainbooking.StatusConfirmed))

	require.NoError(t, second.Cancel(domainbooking.Outcome{CancelledBy: domainbooking.ActorHost, Penalty: 6_500, CancelledAt: at.Add(time.Minute)}))
	err = store.Bookings().CommitCancellation(ctx, second, domainbooking.StatusConfirmed)
	assert.ErrorIs(t, err, domainbooking.ErrConcurrentUpdate)

	stored, err := store.Bookings().ByID(ctx, "bk-sql")
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StatusCancelled, stored.Status)
	require.NotNil(t, stored.Cancellation)
	assert.Equal(t, domainbooking.ActorGuest, stored.Cancellation.CancelledBy)
	assert.Equal(t, int64(32_500), stored.Cancellation.Refund)
	assert.Equal(t, at, stored.Cancellation.CancelledAt)
}

func TestStore_RollbackDiscardsUnitWrites(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	seedBooking(t, store)

	unit, err := store.Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)
	b, err := unit.Bookings().ByID(ctx, "bk-sql")
	require.NoError(t, err)
	require.NoError(t, b.Cancel(domainbooking.Outcome{CancelledBy: domainbooking.ActorHost, CancelledAt: time.Now()}))
	require.NoError(t, unit.Bookings().CommitCancellation(ctx, b, domainbooking.StatusConfirmed))
	require.NoError(t, unit.Outbox().Add(ctx, appoutbox.EventRecord{ID: "evt-1", Name: "booking.cancelled", Payload: []byte(`{}`), OccurredAt: time.Now()}))
	require.NoError(t, unit.Rollback(ctx))

	stored, err := store.Bookings().ByID(ctx, "bk-sql")
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StatusConfirmed, stored.Status)

	claimed, err := store.Claim(ctx, "w-1")
	require.NoError(t, err)
	assert.Nil(t, claimed)
}

func TestStore_PenaltyLifecycle(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	base := time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC)

	unit, err := store.Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)
	for i, host := range []string{"host-1", "host-2", "host-1"} {
		rec, err := domainpenalty.New(domainpenalty.CreateParams{
			ID:        domainpenalty.PenaltyID("pen-" + string(rune('a'+i))),
			BookingID: "bk-" + string(rune('a'+i)),
			HostID:    host,
			GuestID:   "guest-1",
			Amount:    int64(1_000 * (i + 1)),
			Currency:  "XOF",
			CreatedAt: base.AddDate(0, 0, i),
		})
		require.NoError(t, err)
		require.NoError(t, unit.Penalties().Create(ctx, rec))
	}
	require.NoError(t, unit.Commit(ctx))

	unit, err = store.Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)
	defer unit.Rollback(ctx)

	items, total, err := unit.Penalties().List(ctx, domainpenalty.ListFilter{HostID: "host-1"})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, items, 2)
	assert.Equal(t, domainpenalty.PenaltyID("pen-c"), items[0].ID)

	items, total, err = unit.Penalties().List(ctx, domainpenalty.ListFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, items, 1)
	assert.Equal(t, domainpenalty.PenaltyID("pen-b"), items[0].ID)

	rec, err := unit.Penalties().ByID(ctx, "pen-a")
	require.NoError(t, err)
	stale := *rec
	require.NoError(t, rec.Waive("goodwill", "", base.AddDate(0, 1, 0)))
	require.NoError(t, unit.Penalties().Save(ctx, rec))
	assert.Equal(t, int64(2), rec.Version)

	require.NoError(t, stale.Collect(domainpenalty.StatusDeducted, "", base.AddDate(0, 1, 0)))
	assert.ErrorIs(t, unit.Penalties().Save(ctx, &stale), domainpenalty.ErrConcurrentUpdate)

	got, err := unit.Penalties().ByID(ctx, "pen-a")
	require.NoError(t, err)
	assert.Equal(t, domainpenalty.StatusWaived, got.Status)
	assert.Equal(t, "goodwill", got.WaivedReason)
	require.NotNil(t, got.ResolvedAt)
}

func TestStore_OutboxClaimAndRetry(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	unit, err := store.Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)
	require.NoError(t, unit.Outbox().Add(ctx, appoutbox.EventRecord{
		ID:         "evt-1",
		Name:       "booking.cancelled",
		Payload:    []byte(`{"booking_id":"bk-1"}`),
		OccurredAt: time.Now(),
		Aggregate:  "bk-1",
		Headers:    map[string]string{"trace": "abc"},
	}))
	require.NoError(t, unit.Commit(ctx))

	claimed, err := store.Claim(ctx, "w-1")
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, "evt-1", claimed.ID)
	assert.Equal(t, "bk-1", claimed.Aggregate)
	assert.Equal(t, "abc", claimed.Headers["trace"])
	assert.Equal(t, 0, claimed.Attempts)

	again, err := store.Claim(ctx, "w-2")
	require.NoError(t, err)
	assert.Nil(t, again)

	require.NoError(t, store.MarkFailed(ctx, "evt-1", time.Now().Add(-time.Second), "broker down"))
	retried, err := store.Claim(ctx, "w-1")
	require.NoError(t, err)
	require.NotNil(t, retried)
	assert.Equal(t, 1, retried.Attempts)

	require.NoError(t, store.MarkSent(ctx, "evt-1"))
	none, err := store.Claim(ctx, "w-1")
	require.NoError(t, err)
	assert.Nil(t, none)
}
