package kafka_test

import (
	"context"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appoutbox "akwa/internal/app/outbox"
	"akwa/internal/infra/broker/kafka"
	"akwa/internal/infra/inbox"
	"akwa/internal/infra/outbox"
)

type recordingEvents struct {
	handled []string
	err     error
}

func (r *recordingEvents) HandleEvent(ctx context.Context, name string, payload []byte) error {
	r.handled = append(r.handled, name)
	return r.err
}

func envelope(t *testing.T, id string) []byte {
	t.Helper()
	payload, err := outbox.Wrap(appoutbox.EventRecord{ID: id, Name: "booking.cancelled", Payload: []byte(`{"booking_id":"bk-1"}`), Aggregate: "bk-1"}, "")
	require.NoError(t, err)
	return payload
}

func TestNotificationHandler_DeduplicatesByEventID(t *testing.T) {
	events := &recordingEvents{}
	h := kafka.NotificationHandler{Inbox: inbox.NewMemory(), Events: events}
	msg := &sarama.ConsumerMessage{Topic: "booking.events.v1", Value: envelope(t, "evt-1")}

	require.NoError(t, h.Handle(context.Background(), msg))
	require.NoError(t, h.Handle(context.Background(), msg))
	require.NoError(t, h.Handle(context.Background(), &sarama.ConsumerMessage{Value: envelope(t, "evt-2")}))

	assert.Equal(t, []string{"booking.cancelled", "booking.cancelled"}, events.handled)
}

func TestNotificationHandler_DeliveryErrorsDoNotRedeliver(t *testing.T) {
	events := &recordingEvents{err: errors.New("email/host: smtp timeout")}
	h := kafka.NotificationHandler{Inbox: inbox.NewMemory(), Events: events}

	assert.NoError(t, h.Handle(context.Background(), &sarama.ConsumerMessage{Value: envelope(t, "evt-1")}))
	assert.NoError(t, h.Handle(context.Background(), &sarama.ConsumerMessage{Value: []byte("garbage")}))
	assert.Len(t, events.handled, 1)
}

func TestProducer_PublishesKeyedMessage(t *testing.T) {
	cfg := mocks.NewTestConfig()
	cfg.Producer.Return.Successes = true
	mock := mocks.NewSyncProducer(t, cfg)
	mock.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		if len(val) == 0 {
			return errors.New("empty payload")
		}
		return nil
	})
	p := kafka.NewProducerWith(mock)
	defer p.Close()

	err := p.Publish(context.Background(), "booking.events.v1", "bk-1", envelope(t, "evt-1"), map[string]string{"content-type": outbox.ContentType})
	assert.NoError(t, err)
}
