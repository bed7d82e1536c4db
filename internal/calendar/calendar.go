// Package calendar implements the schedule date arithmetic for recurring
// payments. It is pure: no state, no clock, safe for any number of
// concurrent callers.
package calendar

import "time"

// Frequency enumerates how often a recurring payment fires.
type Frequency string

const (
	FrequencyOnce      Frequency = "ONCE"
	FrequencyDaily     Frequency = "DAILY"
	FrequencyWeekly    Frequency = "WEEKLY"
	FrequencyBiweekly  Frequency = "BIWEEKLY"
	FrequencyMonthly   Frequency = "MONTHLY"
	FrequencyQuarterly Frequency = "QUARTERLY"
	FrequencyYearly    Frequency = "YEARLY"
)

// Valid reports whether f is a known frequency.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyOnce, FrequencyDaily, FrequencyWeekly, FrequencyBiweekly,
		FrequencyMonthly, FrequencyQuarterly, FrequencyYearly:
		return true
	}
	return false
}

func (f Frequency) String() string { return string(f) }

// DateOf truncates t to a civil date: midnight UTC.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// NextOccurrence computes the occurrence after current for the given
// frequency, or nil when the schedule is terminal (ONCE).
//
// Monthly and quarterly steps clamp the day-of-month to the last valid day of
// the target month. The clamp is non-restoring: each step works from the
// current, possibly already-clamped, day value. Jan 31 -> Feb 28 -> Mar 28,
// not Mar 31. That matches "pay on this day, or the last day of short months"
// and is the documented product behavior, not an accident.
func NextOccurrence(current time.Time, freq Frequency) *time.Time {
	current = DateOf(current)

	var next time.Time
	switch freq {
	case FrequencyOnce:
		return nil
	case FrequencyDaily:
		next = current.AddDate(0, 0, 1)
	case FrequencyWeekly:
		next = current.AddDate(0, 0, 7)
	case FrequencyBiweekly:
		next = current.AddDate(0, 0, 14)
	case FrequencyMonthly:
		next = addMonthsClamped(current, 1)
	case FrequencyQuarterly:
		next = addMonthsClamped(current, 3)
	case FrequencyYearly:
		// Same month and day next year; only Feb 29 needs the clamp.
		next = clampedDate(current.Year()+1, current.Month(), current.Day())
	default:
		return nil
	}
	return &next
}

// addMonthsClamped advances by months, clamping the day to the target
// month's length. time.AddDate is unsuitable here: it normalizes Jan 31 + 1
// month to Mar 2/3 instead of clamping to the end of February.
func addMonthsClamped(d time.Time, months int) time.Time {
	year, month := d.Year(), int(d.Month())+months
	for month > 12 {
		month -= 12
		year++
	}
	return clampedDate(year, time.Month(month), d.Day())
}

func clampedDate(year int, month time.Month, day int) time.Time {
	if last := daysIn(year, month); day > last {
		day = last
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// daysIn returns the number of days in the given month, leap years included.
func daysIn(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
