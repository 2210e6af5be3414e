package kafka

import (
	"context"
	"log/slog"

	"github.com/IBM/sarama"

	"akwa/internal/infra/outbox"
)

// Inbox records processed event ids. Seen reports whether id was already
// recorded and records it otherwise.
type Inbox interface {
	Seen(ctx context.Context, eventID string) (bool, error)
}

type EventHandler interface {
	HandleEvent(ctx context.Context, name string, payload []byte) error
}

// NotificationHandler feeds booking events from the broker into the
// notification dispatcher, once per event id.
type NotificationHandler struct {
	Inbox  Inbox
	Events EventHandler
	Logger *slog.Logger
}

func (h NotificationHandler) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	env, err := outbox.Unwrap(msg.Value)
	if err != nil {
		// poison message; marking it keeps the partition moving
		h.logger().ErrorContext(ctx, "dropping undecodable event", "topic", msg.Topic, "offset", msg.Offset, "error", err)
		return nil
	}
	if h.Inbox != nil {
		seen, err := h.Inbox.Seen(ctx, env.ID)
		if err != nil {
			return err
		}
		if seen {
			h.logger().DebugContext(ctx, "duplicate event skipped", "event_id", env.ID)
			return nil
		}
	}
	if err := h.Events.HandleEvent(ctx, env.EventName(), env.Data); err != nil {
		// delivery failures are logged by the dispatcher and not redelivered
		h.logger().WarnContext(ctx, "event handled with errors", "event_id", env.ID, "event", env.EventName(), "error", err)
	}
	return nil
}

func (h NotificationHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

var _ MessageHandler = NotificationHandler{}
