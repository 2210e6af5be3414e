package outbox

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	appoutbox "akwa/internal/app/outbox"
)

var ErrWorkerNotConfigured = errors.New("outbox: worker missing dependencies")

// flushBatch bounds how many records one Flush call relays.
const flushBatch = 100

type Producer interface {
	Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error
}

// Worker relays outbox records to a Producer, retrying failures with Backoff.
type Worker struct {
	Source      appoutbox.Source
	Producer    Producer
	Interval    time.Duration
	TopicPrefix string
	EventSource string
	ID          string
	Backoff     []time.Duration
	Logger      *slog.Logger

	idOnce sync.Once
	id     string
}

func (w *Worker) Run(ctx context.Context) error {
	if w.Source == nil || w.Producer == nil {
		return ErrWorkerNotConfigured
	}
	ticker := time.NewTicker(w.interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.drain(ctx, flushBatch); err != nil {
				w.logger().WarnContext(ctx, "outbox relay pass failed", "error", err)
			}
		}
	}
}

// Flush relays due records right away.
func (w *Worker) Flush(ctx context.Context) error {
	if w.Source == nil || w.Producer == nil {
		return ErrWorkerNotConfigured
	}
	_, err := w.drain(ctx, flushBatch)
	return err
}

func (w *Worker) drain(ctx context.Context, limit int) (int, error) {
	sent := 0
	for range limit {
		ok, err := w.processOnce(ctx)
		if err != nil || !ok {
			return sent, err
		}
		sent++
	}
	return sent, nil
}

// processOnce reports whether a record was claimed.
func (w *Worker) processOnce(ctx context.Context) (bool, error) {
	rec, err := w.Source.Claim(ctx, w.workerID())
	if err != nil || rec == nil {
		return false, err
	}
	payload, err := Wrap(rec.EventRecord, w.EventSource)
	if err != nil {
		w.fail(ctx, rec, err)
		return true, nil
	}
	headers := map[string]string{"content-type": ContentType}
	for k, v := range rec.Headers {
		headers[k] = v
	}
	if err := w.Producer.Publish(ctx, w.topicFor(rec.Name), rec.Aggregate, payload, headers); err != nil {
		w.fail(ctx, rec, err)
		return true, nil
	}
	return true, w.Source.MarkSent(ctx, rec.ID)
}

func (w *Worker) fail(ctx context.Context, rec *appoutbox.Claimed, cause error) {
	next := w.nextRetry(rec.Attempts)
	w.logger().WarnContext(ctx, "outbox publish failed",
		"event_id", rec.ID, "event", rec.Name, "attempts", rec.Attempts+1, "next_attempt_at", next, "error", cause)
	if err := w.Source.MarkFailed(ctx, rec.ID, next, cause.Error()); err != nil {
		w.logger().ErrorContext(ctx, "outbox mark failed", "event_id", rec.ID, "error", err)
	}
}

// TopicFor maps "booking.cancelled" to "<prefix>booking.events.v1".
func TopicFor(prefix, name string) string {
	base := name
	if idx := strings.IndexRune(name, '.'); idx > 0 {
		base = name[:idx]
	}
	return prefix + base + ".events.v1"
}

func (w *Worker) topicFor(name string) string {
	return TopicFor(w.TopicPrefix, name)
}

func (w *Worker) workerID() string {
	if w.ID != "" {
		return w.ID
	}
	w.idOnce.Do(func() { w.id = uuid.NewString() })
	return w.id
}

func (w *Worker) interval() time.Duration {
	if w.Interval <= 0 {
		return 500 * time.Millisecond
	}
	return w.Interval
}

func (w *Worker) nextRetry(attempts int) time.Time {
	if attempts < len(w.Backoff) {
		return time.Now().Add(w.Backoff[attempts])
	}
	if len(w.Backoff) > 0 {
		return time.Now().Add(w.Backoff[len(w.Backoff)-1])
	}
	return time.Now().Add(5 * time.Second)
}

func (w *Worker) logger() *slog.Logger {
	if w.Logger != nil {
		return w.Logger
	}
	return slog.Default()
}

var _ appoutbox.Flusher = (*Worker)(nil)
