package availability

import (
	"calbook/src/types"
	"time"
)

// Policy is the booking-window constraint of an event type, evaluated in the
// host's time zone.
type Policy struct {
	Type              types.PeriodType
	Days              uint
	CountCalendarDays bool
	StartDate         *time.Time
	EndDate           *time.Time
}

func endOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), loc)
}

// addBusinessDays advances n days skipping Saturday and Sunday.
func addBusinessDays(t time.Time, n uint) time.Time {
	added := uint(0)
	for added < n {
		t = t.AddDate(0, 0, 1)
		if wd := t.Weekday(); wd != time.Saturday && wd != time.Sunday {
			added++
		}
	}
	return t
}

// IsInPast reports whether the candidate falls on a day before today in the
// host's zone. Day granularity: a slot earlier today is not "past" for this
// check.
func IsInPast(candidate, now time.Time, loc *time.Location) bool {
	return candidate.Before(now) && !sameDay(candidate, now, loc)
}

func sameDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

// IsOutOfBounds reports whether a candidate start violates the booking
// window. The boundary day itself is bookable.
func IsOutOfBounds(candidate time.Time, p Policy, loc *time.Location, now time.Time) bool {
	switch p.Type {
	case types.PERIOD_ROLLING:
		var boundary time.Time
		if p.CountCalendarDays {
			boundary = endOfDay(now.In(loc).AddDate(0, 0, int(p.Days)), loc)
		} else {
			boundary = endOfDay(addBusinessDays(now.In(loc), p.Days), loc)
		}
		return endOfDay(candidate, loc).After(boundary)

	case types.PERIOD_RANGE:
		if p.StartDate == nil || p.EndDate == nil {
			return false
		}
		candidateDayEnd := endOfDay(candidate, loc)
		return candidateDayEnd.Before(endOfDay(*p.StartDate, loc)) ||
			candidateDayEnd.After(endOfDay(*p.EndDate, loc))

	default:
		return false
	}
}

// IsWithinPolicy combines the past-date check with the window bounds.
func IsWithinPolicy(candidate time.Time, p Policy, loc *time.Location, now time.Time) bool {
	if IsInPast(candidate, now, loc) {
		return false
	}
	return !IsOutOfBounds(candidate, p, loc, now)
}

// IsAvailable reports whether a candidate slot of the given length is free
// of conflicts. A conflict exists when the slot start falls inside a busy
// interval (inclusive start, exclusive end), the slot end falls strictly
// inside one, or a busy interval starts strictly inside the slot. Intervals
// that merely touch at an endpoint do not conflict.
func IsAvailable(busy []types.BusyInterval, candidateStart time.Time, lengthMinutes uint) bool {
	candidateEnd := candidateStart.Add(time.Duration(lengthMinutes) * time.Minute)
	for _, interval := range busy {
		if !candidateStart.Before(interval.Start) && candidateStart.Before(interval.End) {
			return false
		}
		if candidateEnd.After(interval.Start) && candidateEnd.Before(interval.End) {
			return false
		}
		if interval.Start.After(candidateStart) && interval.Start.Before(candidateEnd) {
			return false
		}
	}
	return true
}

// PadIntervals expands every interval by the buffer on both ends.
func PadIntervals(busy []types.BusyInterval, bufferMinutes uint) []types.BusyInterval {
	if bufferMinutes == 0 {
		return busy
	}
	buffer := time.Duration(bufferMinutes) * time.Minute
	padded := make([]types.BusyInterval, len(busy))
	for i, interval := range busy {
		padded[i] = types.BusyInterval{
			Start:  interval.Start.Add(-buffer),
			End:    interval.End.Add(buffer),
			Source: interval.Source,
		}
	}
	return padded
}
