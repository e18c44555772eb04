// Package schedule computes release slots for episodes. Releases go out
// Monday, Wednesday and Friday at 06:00 UTC.
package schedule

import "time"

// ReleaseHour is the UTC hour at which every episode goes live.
const ReleaseHour = 6

var releaseDays = []time.Weekday{time.Monday, time.Wednesday, time.Friday}

// NextSlot returns the first release slot strictly matching the
// Monday/Wednesday/Friday 06:00 UTC cadence on or after the day following t.
func NextSlot(t time.Time) time.Time {
	t = t.UTC()
	for _, day := range releaseDays {
		if day > t.Weekday() {
			return at(t.AddDate(0, 0, int(day-t.Weekday())))
		}
	}
	// Nothing left this week; roll over to Monday.
	daysAhead := 7 - int(t.Weekday()) + int(releaseDays[0])
	return at(t.AddDate(0, 0, daysAhead))
}

// Slots returns n consecutive release slots starting from the first slot
// after the given time.
func Slots(from time.Time, n int) []time.Time {
	slots := make([]time.Time, 0, n)
	current := NextSlot(from)
	for i := 0; i < n; i++ {
		slots = append(slots, current)
		current = NextSlot(current.AddDate(0, 0, 1))
	}
	return slots
}

func at(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), ReleaseHour, 0, 0, 0, time.UTC)
}
