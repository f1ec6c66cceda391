package service

import (
	"time"

	"burnpace/internal/analysis"
)

// Point is one chart point of a running-total curve
type Point struct {
	Time  time.Time `json:"t"`
	Value float64   `json:"v"`
}

func toPoints(points []analysis.HourPoint) []Point {
	if len(points) == 0 {
		return nil
	}
	out := make([]Point, len(points))
	for i, p := range points {
		out[i] = Point{Time: p.Time, Value: p.Value}
	}
	return out
}

// HourPoints converts chart points back into engine points
func HourPoints(points []Point) []analysis.HourPoint {
	out := make([]analysis.HourPoint, len(points))
	for i, p := range points {
		out[i] = analysis.HourPoint{Time: p.Time, Value: p.Value}
	}
	return out
}

// Summary is the result of one refresh, ready for display.
type Summary struct {
	TodayTotal     float64 `json:"today_total"`
	TodayHourly    []Point `json:"today_hourly"`
	AverageHourly  []Point `json:"average_hourly"`
	AverageAtNow   float64 `json:"average_at_now"`
	ProjectedTotal float64 `json:"projected_total"`
	MoveGoal       float64 `json:"move_goal"`
	DaysSampled    int     `json:"days_sampled"`
	// LatestSample is nil when there is no sample today.
	LatestSample *time.Time `json:"latest_sample,omitempty"`
	RefreshCount int64      `json:"refresh_count"`

	Freshness   analysis.Freshness      `json:"freshness"`
	Weekday     analysis.Weekday        `json:"weekday"`
	Crossing    *analysis.CrossingEvent `json:"crossing,omitempty"`
	RefreshID   string                  `json:"refresh_id"`
	GeneratedAt time.Time               `json:"generated_at"`
	FieldErrors map[string]string       `json:"field_errors,omitempty"`
}

// GoalProgress is today's total as a fraction of the move goal, or 0 when
// no goal is set.
func (s *Summary) GoalProgress() float64 {
	if s.MoveGoal <= 0 {
		return 0
	}
	return s.TodayTotal / s.MoveGoal
}

// Degraded reports whether any field fell back to cached or empty data.
func (s *Summary) Degraded() bool {
	return len(s.FieldErrors) > 0
}

// DataAge is how far the latest sample lags GeneratedAt.
func (s *Summary) DataAge() time.Duration {
	if s.LatestSample == nil {
		return 0
	}
	return s.GeneratedAt.Sub(*s.LatestSample)
}
