package notify

import (
	"context"
	"log/slog"

	"akwa/internal/app/policies"
)

// Log writes every notice to the structured log. It is always configured.
type Log struct {
	Logger *slog.Logger
}

func (l Log) Name() string { return "log" }

func (l Log) Notify(ctx context.Context, role policies.Role, n policies.CancellationNotice) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "cancellation notice",
		"booking_id", n.BookingID,
		"role", role,
		"recipient_id", n.RecipientID,
		"cancelled_by", n.CancelledBy,
		"refund_amount", n.Refund.Amount,
		"penalty_amount", n.Penalty.Amount,
		"currency", n.Refund.Currency,
	)
	return nil
}
