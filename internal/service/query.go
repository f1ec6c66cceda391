package service

import (
	"errors"
	"time"

	"burnpace/internal/analysis"
	"burnpace/internal/store"
)

// QueryService reads cached results for display without touching the
// health source.
type QueryService struct {
	store *store.DB
}

// NewQueryService creates a new query service
func NewQueryService(db *store.DB) *QueryService {
	return &QueryService{store: db}
}

// WeekdayStat is the cached projection for one weekday
type WeekdayStat struct {
	Weekday        analysis.Weekday `json:"weekday"`
	Name           string           `json:"name"`
	ProjectedTotal float64          `json:"projected_total"`
	DaysSampled    int              `json:"days_sampled"`
	ComputedAt     time.Time        `json:"computed_at"`
	Average        []Point          `json:"average,omitempty"`
	Stale          bool             `json:"stale"`
	Missing        bool             `json:"missing"`
}

// GetWeekday returns the cached projection for weekday. A missing or
// corrupt snapshot is reported as Missing rather than an error.
func (q *QueryService) GetWeekday(weekday analysis.Weekday, now time.Time) (*WeekdayStat, error) {
	if !weekday.Valid() {
		return nil, store.ErrInvalidWeekday
	}
	stat := &WeekdayStat{Weekday: weekday, Name: weekday.String()}

	snap, err := q.store.GetWeekdaySnapshot(weekday)
	if errors.Is(err, store.ErrSnapshotNotFound) || errors.Is(err, store.ErrSnapshotCorrupt) {
		stat.Missing = true
		return stat, nil
	}
	if err != nil {
		return nil, err
	}

	stat.ProjectedTotal = snap.ProjectedTotal
	stat.DaysSampled = snap.Average.DaysSampled
	stat.ComputedAt = snap.ComputedAt
	stat.Average = toPoints(snap.Average.Points)
	stat.Stale = snap.IsStale(now)
	return stat, nil
}

// GetWeekOverview returns the cached projection of every weekday, Sunday first.
func (q *QueryService) GetWeekOverview(now time.Time) ([]WeekdayStat, error) {
	stats := make([]WeekdayStat, 0, 7)
	for wd := analysis.Weekday(1); wd <= 7; wd++ {
		stat, err := q.GetWeekday(wd, now)
		if err != nil {
			return nil, err
		}
		stat.Average = nil
		stats = append(stats, *stat)
	}
	return stats, nil
}
