package analysis

import (
	"slices"
	"sort"
	"time"
)

// HourPoint is one point of a running-total curve. Time is the end of the
// hour the cumulative value covers.
type HourPoint struct {
	Time  time.Time
	Value float64
}

// IsOnHour reports whether the point sits exactly on an hour boundary.
func (p HourPoint) IsOnHour() bool {
	return p.Time.Minute() == 0 && p.Time.Second() == 0 && p.Time.Nanosecond() == 0
}

// InterpolatedValue returns the running total at an arbitrary instant.
//
// Only on-hour points form the interpolation basis, so a synthetic "now"
// point carried in from a cached series never feeds back into the result.
// Points must be sorted by time. Queries before the first point return the
// first value and queries after the last point return the last value.
// The second return value is false when there is no on-hour point at all.
func InterpolatedValue(points []HourPoint, at time.Time) (float64, bool) {
	basis := make([]HourPoint, 0, len(points))
	for _, p := range points {
		if p.IsOnHour() {
			basis = append(basis, p)
		}
	}
	if len(basis) == 0 {
		return 0, false
	}

	lower, upper := -1, -1
	for i, p := range basis {
		if p.Time.After(at) {
			upper = i
			break
		}
		lower = i
	}

	switch {
	case lower < 0:
		return basis[0].Value, true
	case upper < 0:
		return basis[len(basis)-1].Value, true
	}

	lo, hi := basis[lower], basis[upper]
	if lo.Time.Equal(at) {
		return lo.Value, true
	}
	span := hi.Time.Sub(lo.Time)
	if span <= 0 {
		return lo.Value, true
	}
	factor := float64(at.Sub(lo.Time)) / float64(span)
	return lo.Value + (hi.Value-lo.Value)*factor, true
}

// DailySeries is the running-total curve of a single calendar day.
type DailySeries struct {
	Day    time.Time
	Points []HourPoint
}

// Total is the value of the last point, or 0 for an empty series.
func (s DailySeries) Total() float64 {
	if len(s.Points) == 0 {
		return 0
	}
	return s.Points[len(s.Points)-1].Value
}

// TruncateAt drops every point after t. When t falls inside an hour the
// hour's cumulative value is carried onto a closing point at t.
func (s DailySeries) TruncateAt(t time.Time) DailySeries {
	out := DailySeries{Day: s.Day}
	for i, p := range s.Points {
		if !p.Time.After(t) {
			out.Points = append(out.Points, p)
			continue
		}
		if i > 0 && !s.Points[i-1].Time.Equal(t) {
			out.Points = append(out.Points, HourPoint{Time: t, Value: p.Value})
		}
		break
	}
	return out
}

// AverageSeries is the historical average running total for one weekday,
// laid over a concrete calendar day.
type AverageSeries struct {
	Day            time.Time
	Points         []HourPoint
	ProjectedTotal float64
	DaysSampled    int
}

// EndOfDay returns the point anchored at the start of the next day.
func (s AverageSeries) EndOfDay() (HourPoint, bool) {
	end := StartOfNextDay(s.Day)
	for _, p := range s.Points {
		if p.Time.Equal(end) {
			return p, true
		}
	}
	return HourPoint{}, false
}

// IsZero reports whether the series carries no points.
func (s AverageSeries) IsZero() bool {
	return len(s.Points) == 0
}

// WithNowPoint returns a copy with any previous off-hour point removed and,
// when now falls inside the day between hour boundaries, a fresh
// interpolated point for now. A non-positive interpolated value is not added.
func (s AverageSeries) WithNowPoint(now time.Time) AverageSeries {
	out := s
	out.Points = make([]HourPoint, 0, len(s.Points)+1)
	for _, p := range s.Points {
		if p.IsOnHour() {
			out.Points = append(out.Points, p)
		}
	}

	if s.Day.IsZero() || now.Before(s.Day) || !now.Before(StartOfNextDay(s.Day)) {
		return out
	}
	if (HourPoint{Time: now}).IsOnHour() {
		return out
	}
	v, ok := InterpolatedValue(out.Points, now)
	if !ok || v <= 0 {
		return out
	}

	i := sort.Search(len(out.Points), func(i int) bool {
		return out.Points[i].Time.After(now)
	})
	out.Points = slices.Insert(out.Points, i, HourPoint{Time: now, Value: v})
	return out
}

// Rebase moves the curve onto another calendar day, keeping each point's
// wall-clock hour. Off-hour points are dropped.
func (s AverageSeries) Rebase(day time.Time) AverageSeries {
	loc := day.Location()
	start := StartOfDay(day)
	y, m, d := start.Date()

	out := AverageSeries{
		Day:            start,
		ProjectedTotal: s.ProjectedTotal,
		DaysSampled:    s.DaysSampled,
		Points:         make([]HourPoint, 0, len(s.Points)),
	}
	oldDay := s.Day.In(loc)
	for _, p := range s.Points {
		if !p.IsOnHour() {
			continue
		}
		t := p.Time.In(loc)
		offset := 0
		if !SameDay(t, oldDay) {
			offset = 1
		}
		out.Points = append(out.Points, HourPoint{
			Time:  time.Date(y, m, d+offset, t.Hour(), 0, 0, 0, loc),
			Value: p.Value,
		})
	}
	return out
}
