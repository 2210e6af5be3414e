package penalty_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"akwa/internal/domain/penalty"
)

func newPending(t *testing.T) *penalty.Record {
	t.Helper()
	rec, err := penalty.New(penalty.CreateParams{
		ID:            "pen-1",
		BookingID:     "bk-1",
		HostID:        "host-1",
		GuestID:       "guest-1",
		Amount:        80_000,
		Currency:      "XOF",
		PaymentMethod: penalty.PaymentDeductFromPayout,
		CreatedAt:     time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return rec
}

func TestNew_RequiresPositiveAmount(t *testing.T) {
	_, err := penalty.New(penalty.CreateParams{Amount: 0})
	assert.ErrorIs(t, err, penalty.ErrInvalidAmount)
}

func TestNew_StartsPending(t *testing.T) {
	rec := newPending(t)
	assert.Equal(t, penalty.StatusPending, rec.Status)
	assert.Equal(t, penalty.TypeHostCancellation, rec.Type)
	assert.Nil(t, rec.ResolvedAt)
}

func TestCollect_Transitions(t *testing.T) {
	for _, to := range []penalty.Status{penalty.StatusDeducted, penalty.StatusPaidDirectly, penalty.StatusCollectedManually} {
		t.Run(string(to), func(t *testing.T) {
			rec := newPending(t)
			now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

			require.NoError(t, rec.Collect(to, "settled in June payout", now))

			assert.Equal(t, to, rec.Status)
			assert.Equal(t, "settled in June payout", rec.AdminNotes)
			require.NotNil(t, rec.ResolvedAt)
			assert.Equal(t, now, *rec.ResolvedAt)
			evs := rec.PendingEvents()
			require.Len(t, evs, 1)
			ev := evs[0].(penalty.StatusChanged)
			assert.Equal(t, penalty.StatusPending, ev.From)
			assert.Equal(t, to, ev.To)
		})
	}
}

func TestCollect_RejectsUnknownStatus(t *testing.T) {
	rec := newPending(t)
	assert.ErrorIs(t, rec.Collect(penalty.StatusWaived, "", time.Now()), penalty.ErrInvalidCollection)
	assert.Equal(t, penalty.StatusPending, rec.Status)
}

func TestWaive_RequiresReason(t *testing.T) {
	rec := newPending(t)
	assert.ErrorIs(t, rec.Waive("   ", "", time.Now()), penalty.ErrWaiveReasonRequired)
	assert.Equal(t, penalty.StatusPending, rec.Status)

	require.NoError(t, rec.Waive("flood at the property", "verified by ops", time.Now()))
	assert.Equal(t, penalty.StatusWaived, rec.Status)
	assert.Equal(t, "flood at the property", rec.WaivedReason)
}

func TestTerminalStatesAreFinal(t *testing.T) {
	rec := newPending(t)
	require.NoError(t, rec.Waive("goodwill", "", time.Now()))

	assert.ErrorIs(t, rec.Collect(penalty.StatusDeducted, "", time.Now()), penalty.ErrInvalidTransition)
	assert.ErrorIs(t, rec.Waive("again", "", time.Now()), penalty.ErrInvalidTransition)
	assert.Equal(t, penalty.StatusWaived, rec.Status)
}

func TestParseCollection(t *testing.T) {
	s, err := penalty.ParseCollection("")
	require.NoError(t, err)
	assert.Equal(t, penalty.StatusCollectedManually, s)

	s, err = penalty.ParseCollection("Deducted")
	require.NoError(t, err)
	assert.Equal(t, penalty.StatusDeducted, s)

	_, err = penalty.ParseCollection("waived")
	assert.ErrorIs(t, err, penalty.ErrInvalidCollection)
}

func TestParsePaymentMethod(t *testing.T) {
	m, err := penalty.ParsePaymentMethod("")
	require.NoError(t, err)
	assert.Empty(t, m)

	m, err = penalty.ParsePaymentMethod("pay_directly")
	require.NoError(t, err)
	assert.Equal(t, penalty.PaymentPayDirectly, m)

	_, err = penalty.ParsePaymentMethod("card")
	assert.ErrorIs(t, err, penalty.ErrInvalidPaymentMethod)
}
