package analysis

import (
	"testing"
	"time"
)

func at(day, hour, minute int) time.Time {
	return time.Date(2024, time.June, day, hour, minute, 0, 0, time.UTC)
}

func TestInterpolatedValue(t *testing.T) {
	points := []HourPoint{
		{Time: at(15, 0, 0), Value: 0},
		{Time: at(15, 1, 0), Value: 100},
		{Time: at(15, 2, 0), Value: 200},
		{Time: at(15, 2, 30), Value: 999}, // stale "now" point from a cached series
		{Time: at(15, 3, 0), Value: 300},
	}

	tests := []struct {
		name     string
		points   []HourPoint
		query    time.Time
		expected float64
		ok       bool
	}{
		{
			name:     "empty series",
			points:   nil,
			query:    at(15, 1, 0),
			expected: 0,
			ok:       false,
		},
		{
			name:     "only off-hour points",
			points:   []HourPoint{{Time: at(15, 1, 30), Value: 40}},
			query:    at(15, 1, 30),
			expected: 0,
			ok:       false,
		},
		{
			name:     "exact on-hour timestamp",
			points:   points,
			query:    at(15, 1, 0),
			expected: 100,
			ok:       true,
		},
		{
			name:     "midpoint between two hours",
			points:   points,
			query:    at(15, 1, 30),
			expected: 150,
			ok:       true,
		},
		{
			name:     "off-hour point is ignored",
			points:   points,
			query:    at(15, 2, 30),
			expected: 250,
			ok:       true,
		},
		{
			name:     "before first point",
			points:   points,
			query:    at(14, 23, 0),
			expected: 0,
			ok:       true,
		},
		{
			name:     "after last point",
			points:   points,
			query:    at(15, 5, 0),
			expected: 300,
			ok:       true,
		},
		{
			name:     "exactly at last point",
			points:   points,
			query:    at(15, 3, 0),
			expected: 300,
			ok:       true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := InterpolatedValue(tt.points, tt.query)
			if ok != tt.ok {
				t.Fatalf("InterpolatedValue() ok = %v, want %v", ok, tt.ok)
			}
			if got != tt.expected {
				t.Errorf("InterpolatedValue() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestInterpolatedValueExactAtEveryHour(t *testing.T) {
	var hourly [HoursPerDay]float64
	for h := range hourly {
		hourly[h] = float64(h) * 37.3
	}
	series := BuildAverageSeries(at(15, 0, 0), hourly, 900.1, at(15, 12, 17))

	for _, p := range series.Points {
		if !p.IsOnHour() {
			continue
		}
		got, ok := InterpolatedValue(series.Points, p.Time)
		if !ok || got != p.Value {
			t.Errorf("InterpolatedValue(%v) = %v, want %v", p.Time, got, p.Value)
		}
	}
}

func TestDailySeriesTruncateAt(t *testing.T) {
	series := DailySeries{
		Day: at(15, 0, 0),
		Points: []HourPoint{
			{Time: at(15, 0, 0), Value: 0},
			{Time: at(15, 1, 0), Value: 50},
			{Time: at(15, 2, 0), Value: 80},
			{Time: at(15, 2, 40), Value: 90},
		},
	}

	t.Run("inside an hour", func(t *testing.T) {
		got := series.TruncateAt(at(15, 1, 30))
		if len(got.Points) != 3 {
			t.Fatalf("len(Points) = %d, want 3", len(got.Points))
		}
		last := got.Points[2]
		if !last.Time.Equal(at(15, 1, 30)) || last.Value != 80 {
			t.Errorf("last point = %+v, want {01:30 80}", last)
		}
		if got.Total() != 80 {
			t.Errorf("Total() = %v, want 80", got.Total())
		}
	})

	t.Run("on an existing point", func(t *testing.T) {
		got := series.TruncateAt(at(15, 2, 0))
		if len(got.Points) != 3 {
			t.Fatalf("len(Points) = %d, want 3", len(got.Points))
		}
		if got.Total() != 80 {
			t.Errorf("Total() = %v, want 80", got.Total())
		}
	})

	t.Run("after the last point", func(t *testing.T) {
		got := series.TruncateAt(at(15, 9, 0))
		if len(got.Points) != 4 {
			t.Errorf("len(Points) = %d, want 4", len(got.Points))
		}
	})

	t.Run("empty series", func(t *testing.T) {
		if got := (DailySeries{}).Total(); got != 0 {
			t.Errorf("Total() = %v, want 0", got)
		}
	})
}

func TestAverageSeriesWithNowPoint(t *testing.T) {
	var hourly [HoursPerDay]float64
	for h := range hourly {
		hourly[h] = float64(h+1) * 10
	}
	base := BuildAverageSeries(at(15, 0, 0), hourly, 300, time.Time{})

	t.Run("adds a single interpolated point", func(t *testing.T) {
		s := base.WithNowPoint(at(15, 3, 30)).WithNowPoint(at(15, 3, 45))
		offHour := 0
		for _, p := range s.Points {
			if !p.IsOnHour() {
				offHour++
				if !p.Time.Equal(at(15, 3, 45)) {
					t.Errorf("now point at %v, want 03:45", p.Time)
				}
				// 03:00 holds hour 2 (30), 04:00 holds hour 3 (40)
				if p.Value != 37.5 {
					t.Errorf("now point value = %v, want 37.5", p.Value)
				}
			}
		}
		if offHour != 1 {
			t.Errorf("off-hour points = %d, want 1", offHour)
		}
		for i := 1; i < len(s.Points); i++ {
			if s.Points[i].Time.Before(s.Points[i-1].Time) {
				t.Fatalf("points out of order at %d", i)
			}
		}
	})

	t.Run("skips zero value at start of day", func(t *testing.T) {
		var empty [HoursPerDay]float64
		s := BuildAverageSeries(at(15, 0, 0), empty, 0, at(15, 0, 20))
		for _, p := range s.Points {
			if !p.IsOnHour() {
				t.Errorf("unexpected now point %+v", p)
			}
		}
	})

	t.Run("now outside the day", func(t *testing.T) {
		s := base.WithNowPoint(at(16, 10, 30))
		if len(s.Points) != HoursPerDay+1 {
			t.Errorf("len(Points) = %d, want %d", len(s.Points), HoursPerDay+1)
		}
	})
}

func TestAverageSeriesRebase(t *testing.T) {
	var hourly [HoursPerDay]float64
	for h := range hourly {
		hourly[h] = float64(h) * 20
	}
	s := BuildAverageSeries(at(15, 0, 0), hourly, 600, at(15, 10, 30))
	s.DaysSampled = 4

	got := s.Rebase(at(22, 8, 0))

	if !got.Day.Equal(at(22, 0, 0)) {
		t.Errorf("Day = %v, want 2024-06-22", got.Day)
	}
	if len(got.Points) != HoursPerDay+1 {
		t.Fatalf("len(Points) = %d, want %d", len(got.Points), HoursPerDay+1)
	}
	if !got.Points[0].Time.Equal(at(22, 0, 0)) || got.Points[0].Value != 0 {
		t.Errorf("first point = %+v, want {2024-06-22 00:00 0}", got.Points[0])
	}
	end, ok := got.EndOfDay()
	if !ok {
		t.Fatal("EndOfDay() missing after rebase")
	}
	if !end.Time.Equal(at(23, 0, 0)) || end.Value != 600 {
		t.Errorf("EndOfDay() = %+v, want {2024-06-23 00:00 600}", end)
	}
	if got.ProjectedTotal != 600 || got.DaysSampled != 4 {
		t.Errorf("ProjectedTotal, DaysSampled = %v, %v, want 600, 4", got.ProjectedTotal, got.DaysSampled)
	}
	var onHour []HourPoint
	for _, p := range s.Points {
		if p.IsOnHour() {
			onHour = append(onHour, p)
		}
	}
	for i, p := range got.Points {
		if p.Value != onHour[i].Value {
			t.Errorf("point %d value = %v, want %v", i, p.Value, onHour[i].Value)
		}
		if p.Time.Hour() != onHour[i].Time.Hour() {
			t.Errorf("point %d hour = %d, want %d", i, p.Time.Hour(), onHour[i].Time.Hour())
		}
	}
}
