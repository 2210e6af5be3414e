package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	appoutbox "akwa/internal/app/outbox"
	"akwa/internal/app/policies"
	"akwa/internal/domain/shared/money"
	"akwa/internal/infra/outbox"
)

type capturingSender struct {
	messages []*gomail.Message
	err      error
}

func (s *capturingSender) DialAndSend(m ...*gomail.Message) error {
	s.messages = append(s.messages, m...)
	return s.err
}

func hostNotice() policies.CancellationNotice {
	return policies.CancellationNotice{
		BookingID:     "bk-1",
		RecipientID:   "host-1",
		RecipientName: "Koffi <admin>",
		Email:         "koffi@example.com",
		CancelledBy:   "host",
		Reason:        "roof leak",
		Policy:        "moderate",
		Refund:        money.Must(110_000, "XOF"),
		Penalty:       money.Must(20_000, "XOF"),
		CheckIn:       time.Date(2025, time.July, 1, 15, 0, 0, 0, time.UTC),
		CancelledAt:   time.Date(2025, time.June, 20, 10, 0, 0, 0, time.UTC),
	}
}

func TestEmail_SendsPenaltyNoticeToHost(t *testing.T) {
	sender := &capturingSender{}
	e := &Email{sender: sender, from: "no-reply@akwa.local"}

	require.NoError(t, e.Notify(context.Background(), policies.RoleHost, hostNotice()))

	require.Len(t, sender.messages, 1)
	m := sender.messages[0]
	assert.Equal(t, []string{"koffi@example.com"}, m.GetHeader("To"))
	assert.Equal(t, []string{"Booking bk-1 cancelled: penalty of 20000 XOF"}, m.GetHeader("Subject"))

	html := body(policies.RoleHost, hostNotice())
	assert.Contains(t, html, "Koffi &lt;admin&gt;")
	assert.Contains(t, html, "20000 XOF")
	assert.Contains(t, html, "open end")
}

func TestEmail_GuestBodyShowsRefund(t *testing.T) {
	n := hostNotice()
	html := body(policies.RoleGuest, n)
	assert.Contains(t, html, "Your refund: <b>110000 XOF</b>")
	assert.Equal(t, "Booking bk-1 cancelled", subject(policies.RoleGuest, n))
}

func TestEmail_Errors(t *testing.T) {
	e := &Email{sender: &capturingSender{err: errors.New("connection refused")}}
	assert.Error(t, e.Notify(context.Background(), policies.RoleHost, hostNotice()))

	n := hostNotice()
	n.Email = ""
	assert.ErrorIs(t, e.Notify(context.Background(), policies.RoleGuest, n), ErrNoRecipientEmail)
}

type memoryUploader struct {
	objects map[string][]byte
}

func (u *memoryUploader) Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if u.objects == nil {
		u.objects = map[string][]byte{}
	}
	u.objects[key] = data
	return "s3://test/" + key, nil
}

func TestReceipts_WritesOneObjectPerRole(t *testing.T) {
	up := &memoryUploader{}
	r := Receipts{Uploader: up}

	require.NoError(t, r.Notify(context.Background(), policies.RoleGuest, hostNotice()))
	require.NoError(t, r.Notify(context.Background(), policies.RoleHost, hostNotice()))

	require.Len(t, up.objects, 2)
	raw, ok := up.objects["cancellations/bk-1/host.json"]
	require.True(t, ok)
	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "host", got["role"])
	assert.Equal(t, float64(20_000), got["penalty_amount"])
	assert.NotContains(t, got, "check_out")
}

type countingHandler struct {
	names []string
	err   error
}

func (h *countingHandler) HandleEvent(ctx context.Context, name string, payload []byte) error {
	h.names = append(h.names, name)
	return h.err
}

func TestLocalProducer_DeliversAndSwallowsDeliveryErrors(t *testing.T) {
	payload, err := outbox.Wrap(appoutbox.EventRecord{ID: "evt-1", Name: "booking.cancelled", Payload: []byte(`{}`)}, "")
	require.NoError(t, err)
	h := &countingHandler{err: errors.New("email/guest: smtp timeout")}
	p := LocalProducer{Events: h}

	require.NoError(t, p.Publish(context.Background(), "booking.events.v1", "bk-1", payload, nil))
	assert.Equal(t, []string{"booking.cancelled"}, h.names)

	assert.ErrorIs(t, p.Publish(context.Background(), "booking.events.v1", "bk-1", []byte(`{}`), nil), outbox.ErrInvalidEnvelope)
}
