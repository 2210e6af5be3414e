package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"akwa/internal/app/policies"
	"akwa/internal/infra/storage/s3"
)

// Receipts archives one JSON receipt per recipient in object storage.
type Receipts struct {
	Uploader s3.Uploader
	Prefix   string
}

type receipt struct {
	BookingID   string    `json:"booking_id"`
	Recipient   string    `json:"recipient"`
	Role        string    `json:"role"`
	CancelledBy string    `json:"cancelled_by"`
	Reason      string    `json:"reason,omitempty"`
	Policy      string    `json:"policy"`
	Refund      int64     `json:"refund_amount"`
	Penalty     int64     `json:"penalty_amount"`
	Currency    string    `json:"currency"`
	CheckIn     time.Time `json:"check_in"`
	CheckOut    time.Time `json:"check_out,omitzero"`
	CancelledAt time.Time `json:"cancelled_at"`
}

func (r Receipts) Name() string { return "receipt" }

func (r Receipts) Notify(ctx context.Context, role policies.Role, n policies.CancellationNotice) error {
	data, err := json.Marshal(receipt{
		BookingID:   n.BookingID,
		Recipient:   n.RecipientID,
		Role:        string(role),
		CancelledBy: n.CancelledBy,
		Reason:      n.Reason,
		Policy:      n.Policy,
		Refund:      n.Refund.Amount,
		Penalty:     n.Penalty.Amount,
		Currency:    n.Refund.Currency,
		CheckIn:     n.CheckIn,
		CheckOut:    n.CheckOut,
		CancelledAt: n.CancelledAt,
	})
	if err != nil {
		return err
	}
	_, err = r.Uploader.Upload(ctx, r.key(role, n), bytes.NewReader(data), int64(len(data)), "application/json")
	return err
}

func (r Receipts) key(role policies.Role, n policies.CancellationNotice) string {
	prefix := r.Prefix
	if prefix == "" {
		prefix = "cancellations"
	}
	return fmt.Sprintf("%s/%s/%s.json", prefix, n.BookingID, role)
}
