package timeutil

import (
	"fmt"
	"time"
)

// Clock is a wall-clock time of day without a date or zone.
type Clock struct {
	Hour   int
	Minute int
}

// ParseClock parses an "HH:MM" string into a Clock.
func ParseClock(raw string) (Clock, error) {
	var c Clock
	if len(raw) != 5 || raw[2] != ':' {
		return c, fmt.Errorf("invalid time %q: want HH:MM", raw)
	}
	if _, err := fmt.Sscanf(raw, "%02d:%02d", &c.Hour, &c.Minute); err != nil {
		return c, fmt.Errorf("invalid time %q: %w", raw, err)
	}
	if c.Hour < 0 || c.Hour > 23 || c.Minute < 0 || c.Minute > 59 {
		return c, fmt.Errorf("invalid time %q: out of range", raw)
	}
	return c, nil
}

// Minutes returns the clock as minutes since midnight.
func (c Clock) Minutes() int {
	return c.Hour*60 + c.Minute
}

// Before reports whether c is strictly earlier than other.
func (c Clock) Before(other Clock) bool {
	return c.Minutes() < other.Minutes()
}

// String renders the clock back to HH:MM.
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// At anchors the clock on the given calendar day in the given zone.
// day's own zone and time-of-day are ignored; only its Y/M/D is used.
// time.Date normalises nonexistent wall times across DST transitions.
func (c Clock) At(day time.Time, loc *time.Location) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, c.Hour, c.Minute, 0, 0, loc)
}

// Overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// ClockOverlaps is Overlaps over time-of-day intervals on the same day.
func ClockOverlaps(aStart, aEnd, bStart, bEnd Clock) bool {
	return aStart.Minutes() < bEnd.Minutes() && bStart.Minutes() < aEnd.Minutes()
}

// StartOfDay truncates t to midnight in the given zone.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// DaysBetween returns the number of whole calendar days from a to b in loc.
// Negative when b precedes a.
func DaysBetween(a, b time.Time, loc *time.Location) int {
	start := StartOfDay(a, loc)
	end := StartOfDay(b, loc)
	return int(end.Sub(start).Hours() / 24)
}

// SameDate reports whether a and b fall on the same calendar date in loc.
func SameDate(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}
