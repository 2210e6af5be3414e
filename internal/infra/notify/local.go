package notify

import (
	"context"
	"log/slog"

	"akwa/internal/infra/outbox"
)

type EventHandler interface {
	HandleEvent(ctx context.Context, name string, payload []byte) error
}

// LocalProducer stands in for the broker when none is configured: the outbox
// worker publishes straight into the dispatcher. Delivery errors are logged
// and not retried so one failing channel does not resend the others.
type LocalProducer struct {
	Events EventHandler
	Logger *slog.Logger
}

func (p LocalProducer) Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error {
	env, err := outbox.Unwrap(payload)
	if err != nil {
		return err
	}
	if err := p.Events.HandleEvent(ctx, env.EventName(), env.Data); err != nil {
		logger := p.Logger
		if logger == nil {
			logger = slog.Default()
		}
		logger.WarnContext(ctx, "event handled with errors", "event_id", env.ID, "event", env.EventName(), "topic", topic, "error", err)
	}
	return nil
}

var _ outbox.Producer = LocalProducer{}
