package middleware

import (
	"context"
	"log/slog"

	"akwa/internal/app/commands"
	"akwa/internal/app/outbox"
)

// OutboxFlush nudges the relay after a command committed. It must sit outside
// Transaction. Flush failures are logged; the records stay in the outbox and
// the relay retries them on its own schedule.
func OutboxFlush(flusher outbox.Flusher, logger *slog.Logger) CommandMiddleware {
	if flusher == nil {
		panic("middleware: outbox flusher required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			res, err := next.Dispatch(ctx, cmd)
			if err != nil {
				return res, err
			}
			if ferr := flusher.Flush(context.WithoutCancel(ctx)); ferr != nil {
				logger.WarnContext(ctx, "outbox flush failed", "command", cmd.Key(), "error", ferr)
			}
			return res, nil
		})
	}
}
