package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	c, err := ParseClock("09:30")
	require.NoError(t, err)
	assert.Equal(t, 9, c.Hour)
	assert.Equal(t, 30, c.Minute)
	assert.Equal(t, "09:30", c.String())

	for _, raw := range []string{"9:30", "24:00", "12:60", "noon", "12-30", ""} {
		_, err := ParseClock(raw)
		assert.Error(t, err, raw)
	}
}

func TestClockBefore(t *testing.T) {
	a, _ := ParseClock("09:00")
	b, _ := ParseClock("09:30")
	assert.True(t, a.Before(b))
	assert.False(t, b.Before(a))
	assert.False(t, a.Before(a))
}

func TestClockAt(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Tashkent")
	require.NoError(t, err)
	c, _ := ParseClock("14:15")
	day := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)

	anchored := c.At(day, loc)
	assert.Equal(t, 14, anchored.Hour())
	assert.Equal(t, 15, anchored.Minute())
	assert.Equal(t, loc, anchored.Location())
	// Tashkent is UTC+5 year-round.
	assert.Equal(t, time.Date(2026, time.March, 2, 9, 15, 0, 0, time.UTC), anchored.UTC())
}

func TestOverlaps(t *testing.T) {
	base := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	at := func(m int) time.Time { return base.Add(time.Duration(m) * time.Minute) }

	// Partial overlap both directions.
	assert.True(t, Overlaps(at(0), at(60), at(30), at(90)))
	assert.True(t, Overlaps(at(30), at(90), at(0), at(60)))
	// Containment both directions.
	assert.True(t, Overlaps(at(0), at(120), at(30), at(60)))
	assert.True(t, Overlaps(at(30), at(60), at(0), at(120)))
	// Adjacent intervals do not overlap.
	assert.False(t, Overlaps(at(0), at(60), at(60), at(120)))
	assert.False(t, Overlaps(at(60), at(120), at(0), at(60)))
	// Disjoint.
	assert.False(t, Overlaps(at(0), at(30), at(90), at(120)))
}

func TestClockOverlaps(t *testing.T) {
	parse := func(raw string) Clock {
		c, err := ParseClock(raw)
		require.NoError(t, err)
		return c
	}
	assert.True(t, ClockOverlaps(parse("09:00"), parse("10:00"), parse("09:30"), parse("10:30")))
	assert.False(t, ClockOverlaps(parse("09:00"), parse("10:00"), parse("10:00"), parse("11:00")))
}

func TestDaysBetween(t *testing.T) {
	loc := time.UTC
	a := time.Date(2026, time.March, 2, 23, 0, 0, 0, loc)
	b := time.Date(2026, time.March, 5, 1, 0, 0, 0, loc)
	assert.Equal(t, 3, DaysBetween(a, b, loc))
	assert.Equal(t, -3, DaysBetween(b, a, loc))
	assert.Equal(t, 0, DaysBetween(a, a, loc))
}

func TestSameDate(t *testing.T) {
	loc := time.UTC
	a := time.Date(2026, time.March, 2, 0, 0, 0, 0, loc)
	b := time.Date(2026, time.March, 2, 23, 59, 0, 0, loc)
	assert.True(t, SameDate(a, b, loc))
	assert.False(t, SameDate(a, b.Add(time.Minute), loc))
}
