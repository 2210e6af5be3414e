package cancellation

import "akwa/internal/domain/shared/money"

// guestRule computes the refund for one policy once the booking is known to be
// confirmed and either pre-start or in progress with nights left.
type guestRule func(terms Terms, t Timing, a Amounts) (refund int64, percent float64)

var guestRules = map[Policy]struct {
	preStart   guestRule
	inProgress guestRule
}{
	PolicyFlexible:      {preStart: flexiblePreStart, inProgress: nightlyInProgress},
	PolicyModerate:      {preStart: moderatePreStart, inProgress: nightlyInProgress},
	PolicyStrict:        {preStart: strictPreStart, inProgress: nightlyInProgress},
	PolicyNonRefundable: {preStart: nonRefundablePreStart, inProgress: nightlyInProgress},
}

// ComputeGuest applies the guest-initiated rules for policy to the timing
// state. RefundAmount + PenaltyAmount always equals TotalPrice.
func ComputeGuest(policy Policy, t Timing, a Amounts) Info {
	terms := Lookup(policy)
	info := Info{
		Policy:          terms.Policy,
		Phase:           t.Phase,
		CanCancel:       true,
		IsInProgress:    t.Phase == PhaseInProgress,
		RemainingNights: t.RemainingNights,
	}
	rules := guestRules[terms.Policy]

	switch t.Phase {
	case PhasePending:
		info.RemainingNightsAmount = a.Base()
		return settle(info, a, a.TotalPrice, 100)
	case PhaseCompleted:
		info.CanCancel = false
		return settle(info, a, 0, 0)
	case PhaseInProgress:
		info.RemainingNightsAmount = int64(t.RemainingNights) * a.UnitRate
		if t.RemainingNights == 0 {
			return settle(info, a, 0, 0)
		}
		refund, pct := rules.inProgress(terms, t, a)
		return settle(info, a, refund, pct)
	default:
		info.RemainingNights = t.TotalNights
		info.RemainingNightsAmount = a.Base()
		if !terms.Refundable {
			info.CanCancel = false
		}
		refund, pct := rules.preStart(terms, t, a)
		return settle(info, a, refund, pct)
	}
}

// nightlyInProgress refunds NightlyRefundPercent of the unconsumed nights plus
// the pro-rated fees. Strict and non-refundable carry a zero percentage, so
// only the fees come back.
func nightlyInProgress(terms Terms, t Timing, a Amounts) (int64, float64) {
	remainingAmount := int64(t.RemainingNights) * a.UnitRate
	taxesProrata := money.Prorate(a.FeesAndTaxes, t.RemainingNights, t.TotalNights)
	return money.Percent(remainingAmount, terms.NightlyRefundPercent) + taxesProrata, float64(terms.NightlyRefundPercent)
}

func flexiblePreStart(terms Terms, t Timing, a Amounts) (int64, float64) {
	if t.HoursUntilCheckIn >= terms.FullRefundHours {
		return a.TotalPrice, 100
	}
	return lateNightly(terms, a)
}

func moderatePreStart(terms Terms, t Timing, a Amounts) (int64, float64) {
	if t.DaysUntilCheckIn >= terms.FullRefundDays {
		return a.TotalPrice, 100
	}
	return lateNightly(terms, a)
}

func strictPreStart(terms Terms, t Timing, a Amounts) (int64, float64) {
	switch {
	case t.DaysUntilCheckIn >= terms.FullRefundDays:
		return a.TotalPrice, 100
	case t.DaysUntilCheckIn >= terms.PartialRefundDays:
		return money.Percent(a.TotalPrice, terms.FlatRefundPercent), float64(terms.FlatRefundPercent)
	default:
		return a.FeesAndTaxes, 0
	}
}

func nonRefundablePreStart(Terms, Timing, Amounts) (int64, float64) {
	return 0, 0
}

// lateNightly is the in-progress formula with every night remaining, so the
// fees pass through whole.
func lateNightly(terms Terms, a Amounts) (int64, float64) {
	return money.Percent(a.Base(), terms.NightlyRefundPercent) + a.FeesAndTaxes, float64(terms.NightlyRefundPercent)
}

func settle(info Info, a Amounts, refund int64, percent float64) Info {
	total := max(a.TotalPrice, 0)
	info.RefundAmount = money.Clamp(refund, 0, total)
	info.PenaltyAmount = total - info.RefundAmount
	info.RefundPercentage = percent
	return info
}
