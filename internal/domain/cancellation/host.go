package cancellation

import (
	"fmt"

	"akwa/internal/domain/shared/money"
)

// Host-side thresholds. They do not depend on the listing policy.
const (
	hostOngoingPercent   = 40
	hostLateWindowHours  = 48
	hostLatePercent      = 40
	hostMediumWindowDays = 28
	hostMediumPercent    = 20
)

// HostPenaltyKind distinguishes penalties for upcoming and ongoing stays.
type HostPenaltyKind string

const (
	HostPenaltyCancellation        HostPenaltyKind = "host_cancellation"
	HostPenaltyOngoingCancellation HostPenaltyKind = "host_ongoing_cancellation"
)

// HostQuote is the outcome of a host-initiated cancellation: the guest gets
// the total back and the host owes PenaltyAmount to the platform.
type HostQuote struct {
	Info        Info
	Kind        HostPenaltyKind
	Description string
}

// ComputeHost applies the fixed host rule set.
func ComputeHost(t Timing, a Amounts) HostQuote {
	info := Info{
		Phase:            t.Phase,
		CanCancel:        true,
		IsInProgress:     t.Phase == PhaseInProgress,
		RemainingNights:  t.RemainingNights,
		RefundAmount:     max(a.TotalPrice, 0),
		RefundPercentage: 100,
	}
	bookingAmount := int64(t.TotalNights) * a.UnitRate
	q := HostQuote{Kind: HostPenaltyCancellation}

	switch {
	case t.Phase == PhaseCompleted:
		info.CanCancel = false
		info.RefundAmount = 0
		info.RefundPercentage = 0
		q.Description = "stay already completed"
	case t.Phase == PhasePending:
		info.RemainingNightsAmount = bookingAmount
		q.Description = "booking not confirmed, no penalty"
	case t.Phase == PhaseInProgress:
		remaining := int64(t.RemainingNights) * a.UnitRate
		info.RemainingNightsAmount = remaining
		info.PenaltyAmount = money.Percent(remaining, hostOngoingPercent)
		q.Kind = HostPenaltyOngoingCancellation
		q.Description = fmt.Sprintf("%d%% of %d unconsumed nights", hostOngoingPercent, t.RemainingNights)
	case t.HoursUntilCheckIn <= hostLateWindowHours:
		info.RemainingNightsAmount = bookingAmount
		info.PenaltyAmount = money.Percent(bookingAmount, hostLatePercent)
		q.Description = fmt.Sprintf("%d%% of booking amount, cancelled within %d hours of check-in", hostLatePercent, hostLateWindowHours)
	// Also covers more than 48 hours out with only two calendar days left.
	case t.DaysUntilCheckIn <= hostMediumWindowDays:
		info.RemainingNightsAmount = bookingAmount
		info.PenaltyAmount = money.Percent(bookingAmount, hostMediumPercent)
		q.Description = fmt.Sprintf("%d%% of booking amount, cancelled within %d days of check-in", hostMediumPercent, hostMediumWindowDays)
	default:
		info.RemainingNightsAmount = bookingAmount
		q.Description = fmt.Sprintf("more than %d days before check-in, no penalty", hostMediumWindowDays)
	}
	q.Info = info
	return q
}
