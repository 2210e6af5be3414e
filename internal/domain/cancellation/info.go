package cancellation

import (
	"errors"
	"fmt"

	"akwa/internal/domain/shared/money"
)

var (
	ErrPolicyForbids         = errors.New("cancellation: policy forbids cancellation")
	ErrPaymentMethodRequired = errors.New("cancellation: penalty payment method required")
)

// Amounts are the monetary inputs of a calculation, in minor units.
type Amounts struct {
	TotalPrice   int64
	UnitRate     int64
	FeesAndTaxes int64
}

// NewAmounts derives the fees as total - nights*rate, clamped to [0, total].
func NewAmounts(total, rate int64, nights int) Amounts {
	fees := money.Clamp(total-int64(nights)*rate, 0, max(total, 0))
	return Amounts{TotalPrice: total, UnitRate: rate, FeesAndTaxes: fees}
}

// Base is the rental amount excluding fees and taxes.
func (a Amounts) Base() int64 {
	return a.TotalPrice - a.FeesAndTaxes
}

// Info is the derived outcome of a cancellation request. It is recomputed on
// every request and never stored as-is.
type Info struct {
	Policy                Policy
	Phase                 Phase
	CanCancel             bool
	RefundPercentage      float64
	IsInProgress          bool
	RemainingNights       int
	RemainingNightsAmount int64
	RefundAmount          int64
	PenaltyAmount         int64
}

// RejectionError reports a refused cancellation together with the computed
// info so callers can explain the refusal.
type RejectionError struct {
	Err  error
	Info Info
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("%s (refund %d, penalty %d)", e.Err, e.Info.RefundAmount, e.Info.PenaltyAmount)
}

func (e *RejectionError) Unwrap() error {
	return e.Err
}

// Reject wraps err with the computed info.
func Reject(err error, info Info) error {
	return &RejectionError{Err: err, Info: info}
}
