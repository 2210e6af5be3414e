package cancellation

import (
	"time"

	"akwa/internal/domain/shared/daterange"
)

// Phase is the temporal state of a booking relative to today.
type Phase string

const (
	PhasePending    Phase = "pending"
	PhasePreStart   Phase = "pre_start"
	PhaseInProgress Phase = "in_progress"
	PhaseCompleted  Phase = "completed"
)

// TimingInput carries what the classifier needs from a booking.
type TimingInput struct {
	Range     daterange.DateRange
	Pending   bool
	Completed bool
	Now       time.Time
}

// Timing is the classifier output consumed by the calculators.
type Timing struct {
	Phase             Phase
	TotalNights       int
	NightsElapsed     int
	RemainingNights   int
	DaysUntilCheckIn  int
	HoursUntilCheckIn float64
}

// Classify derives the booking phase and the elapsed/remaining quantities.
// Day counts compare calendar days; HoursUntilCheckIn uses the exact instant.
func Classify(in TimingInput) Timing {
	now := in.Now.UTC()
	today := daterange.Day(now)
	checkIn := daterange.Day(in.Range.CheckIn)
	checkOut := daterange.Day(in.Range.EffectiveCheckOut())

	total := in.Range.Nights()
	if total < 1 {
		total = 1
	}
	t := Timing{TotalNights: total, RemainingNights: total}
	if today.Before(checkIn) {
		t.DaysUntilCheckIn = daterange.DaysBetween(today, checkIn)
		t.HoursUntilCheckIn = in.Range.CheckIn.Sub(now).Hours()
	}

	switch {
	case in.Pending:
		t.Phase = PhasePending
	case in.Completed || today.After(checkOut):
		t.Phase = PhaseCompleted
		t.NightsElapsed = total
		t.RemainingNights = 0
	case !today.Before(checkIn):
		t.Phase = PhaseInProgress
		t.NightsElapsed = max(0, daterange.DaysBetween(checkIn, today))
		t.RemainingNights = max(0, total-t.NightsElapsed)
	default:
		t.Phase = PhasePreStart
	}
	return t
}
