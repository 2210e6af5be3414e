package dto

import (
	"time"

	domainbooking "akwa/internal/domain/booking"
	"akwa/internal/domain/cancellation"
)

type MoneyDTO struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// CancellationInfo is the computed refund and penalty breakdown for one actor.
type CancellationInfo struct {
	BookingID             string  `json:"booking_id"`
	Actor                 string  `json:"actor"`
	Policy                string  `json:"policy"`
	Phase                 string  `json:"phase"`
	CanCancel             bool    `json:"can_cancel"`
	RefundPercentage      float64 `json:"refund_percentage"`
	IsInProgress          bool    `json:"is_in_progress"`
	RemainingNights       int     `json:"remaining_nights"`
	RemainingNightsAmount int64   `json:"remaining_nights_amount"`
	RefundAmount          int64   `json:"refund_amount"`
	PenaltyAmount         int64   `json:"penalty_amount"`
	Currency              string  `json:"currency"`
	// Host-only fields.
	PenaltyType           string `json:"penalty_type,omitempty"`
	PenaltyDescription    string `json:"penalty_description,omitempty"`
	PaymentMethodRequired bool   `json:"payment_method_required,omitempty"`
	// Set when the booking is already cancelled; amounts are the stored outcome.
	AlreadyCancelled bool       `json:"already_cancelled,omitempty"`
	CancelledBy      string     `json:"cancelled_by,omitempty"`
	CancelledAt      *time.Time `json:"cancelled_at,omitempty"`
}

// CancellationResult is returned by the cancel operation, including when the
// booking was already cancelled.
type CancellationResult struct {
	BookingID        string            `json:"booking_id"`
	Status           string            `json:"status"`
	CancelledBy      string            `json:"cancelled_by"`
	RefundAmount     int64             `json:"refund_amount"`
	PenaltyAmount    int64             `json:"penalty_amount"`
	Currency         string            `json:"currency"`
	CancelledAt      time.Time         `json:"cancelled_at"`
	AlreadyCancelled bool              `json:"already_cancelled,omitempty"`
	PenaltyID        string            `json:"penalty_id,omitempty"`
	Info             *CancellationInfo `json:"info,omitempty"`
	Error            string            `json:"error,omitempty"`
}

func MapCancellationInfo(b *domainbooking.Booking, actor domainbooking.Actor, info cancellation.Info) CancellationInfo {
	policy := info.Policy
	if policy == "" {
		policy = b.Policy
	}
	return CancellationInfo{
		BookingID:             string(b.ID),
		Actor:                 string(actor),
		Policy:                string(policy),
		Phase:                 string(info.Phase),
		CanCancel:             info.CanCancel,
		RefundPercentage:      info.RefundPercentage,
		IsInProgress:          info.IsInProgress,
		RemainingNights:       info.RemainingNights,
		RemainingNightsAmount: info.RemainingNightsAmount,
		RefundAmount:          info.RefundAmount,
		PenaltyAmount:         info.PenaltyAmount,
		Currency:              b.Total.Currency,
	}
}

func MapHostQuote(b *domainbooking.Booking, q cancellation.HostQuote) CancellationInfo {
	view := MapCancellationInfo(b, domainbooking.ActorHost, q.Info)
	view.PenaltyType = string(q.Kind)
	view.PenaltyDescription = q.Description
	view.PaymentMethodRequired = q.Info.PenaltyAmount > 0
	return view
}

// MapStoredOutcome reports the outcome written by the first cancellation.
func MapStoredOutcome(b *domainbooking.Booking) CancellationResult {
	res := CancellationResult{
		BookingID: string(b.ID),
		Status:    string(b.Status),
		Currency:  b.Total.Currency,
	}
	if out := b.Cancellation; out != nil {
		res.CancelledBy = string(out.CancelledBy)
		res.RefundAmount = out.Refund
		res.PenaltyAmount = out.Penalty
		res.CancelledAt = out.CancelledAt
	}
	return res
}

// MapCancelledQuote reports a cancelled booking to a quote caller: nothing left
// to cancel, amounts as committed by the first cancellation.
func MapCancelledQuote(b *domainbooking.Booking, actor domainbooking.Actor) CancellationInfo {
	view := CancellationInfo{
		BookingID:        string(b.ID),
		Actor:            string(actor),
		Policy:           string(b.Policy),
		Currency:         b.Total.Currency,
		AlreadyCancelled: true,
	}
	if out := b.Cancellation; out != nil {
		view.CancelledBy = string(out.CancelledBy)
		view.RefundAmount = out.Refund
		view.PenaltyAmount = out.Penalty
		at := out.CancelledAt
		view.CancelledAt = &at
	}
	return view
}
