package daterange

import (
	"errors"
	"math"
	"time"
)

var (
	ErrInvalidRange   = errors.New("daterange: checkout must be after checkin")
	ErrMissingCheckIn = errors.New("daterange: checkin required")
)

const day = 24 * time.Hour

// DateRange represents a half-open interval [checkIn, checkOut). A zero
// CheckOut marks an open-ended range.
type DateRange struct {
	CheckIn  time.Time
	CheckOut time.Time
}

func New(checkIn, checkOut time.Time) (DateRange, error) {
	dr := DateRange{CheckIn: checkIn.UTC()}
	if !checkOut.IsZero() {
		dr.CheckOut = checkOut.UTC()
	}
	if err := dr.Validate(); err != nil {
		return DateRange{}, err
	}
	return dr, nil
}

func (dr DateRange) Validate() error {
	if dr.CheckIn.IsZero() {
		return ErrMissingCheckIn
	}
	if dr.OpenEnded() {
		return nil
	}
	if !dr.CheckOut.After(dr.CheckIn) {
		return ErrInvalidRange
	}
	return nil
}

// OpenEnded reports whether the range has no checkout.
func (dr DateRange) OpenEnded() bool {
	return dr.CheckOut.IsZero()
}

// EffectiveCheckOut returns the checkout, or the day after check-in for
// open-ended ranges.
func (dr DateRange) EffectiveCheckOut() time.Time {
	if dr.OpenEnded() {
		return Day(dr.CheckIn).Add(day)
	}
	return dr.CheckOut
}

// Nights counts started days between check-in and checkout; open-ended
// ranges count as one night.
func (dr DateRange) Nights() int {
	if dr.OpenEnded() {
		return 1
	}
	return DaysBetween(Day(dr.CheckIn), Day(dr.CheckOut))
}

func (dr DateRange) Overlaps(other DateRange) bool {
	return dr.CheckIn.Before(other.EffectiveCheckOut()) && other.CheckIn.Before(dr.EffectiveCheckOut())
}

// ContainsDay reports whether the calendar day of t lies within
// [check-in day, checkout day], both ends inclusive.
func (dr DateRange) ContainsDay(t time.Time) bool {
	d := Day(t)
	return !d.Before(Day(dr.CheckIn)) && !d.After(Day(dr.EffectiveCheckOut()))
}

// Day truncates t to midnight UTC of its calendar day.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns ceil((to - from) / 24h).
func DaysBetween(from, to time.Time) int {
	return int(math.Ceil(to.Sub(from).Hours() / 24))
}
