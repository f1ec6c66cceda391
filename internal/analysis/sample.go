package analysis

import (
	"math"
	"time"
)

// Sample is one measured active energy burn over an interval, in kcal.
type Sample struct {
	Start time.Time
	End   time.Time
	Value float64
}

// valid reports whether a sample can take part in aggregation.
func (s Sample) valid() bool {
	return s.Value >= 0 && !math.IsNaN(s.Value) && !math.IsInf(s.Value, 0)
}

// Weekday numbers days of the week 1 (Sunday) through 7 (Saturday).
type Weekday int

// AnyWeekday disables weekday filtering.
const AnyWeekday Weekday = 0

// WeekdayOf returns the weekday of t in its own location.
func WeekdayOf(t time.Time) Weekday {
	return Weekday(t.Weekday()) + 1
}

// Valid reports whether w is in 1..7.
func (w Weekday) Valid() bool {
	return w >= 1 && w <= 7
}

func (w Weekday) String() string {
	if !w.Valid() {
		return "Any"
	}
	return time.Weekday(w - 1).String()
}

// StartOfDay returns local midnight of the calendar day containing t.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// StartOfNextDay returns local midnight of the day after t.
func StartOfNextDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, t.Location())
}

// SameDay reports whether a falls on the same calendar day as b, judged in b's location.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.In(b.Location()).Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// hourEnd returns the instant hour h of day ends at (hour 23 ends at next midnight).
func hourEnd(day time.Time, h int) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, h+1, 0, 0, 0, day.Location())
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
