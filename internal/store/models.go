package store

import (
	"time"

	"burnpace/internal/analysis"
)

// SnapshotSchemaVersion is bumped whenever the snapshot payload layout changes.
// Snapshots with another version read back as ErrSnapshotCorrupt.
const SnapshotSchemaVersion = 1

// Auth represents OAuth tokens for the remote health API
type Auth struct {
	Subject      string    `db:"subject"`
	AccessToken  string    `db:"access_token"`
	RefreshToken string    `db:"refresh_token"`
	ExpiresAt    time.Time `db:"expires_at"`
}

// WeekdaySnapshot is the persisted average curve for one weekday.
type WeekdaySnapshot struct {
	Weekday        analysis.Weekday
	Average        analysis.AverageSeries
	ProjectedTotal float64
	ComputedAt     time.Time
	SchemaVersion  int
}

// IsStale reports whether the snapshot was computed on another calendar day.
func (s WeekdaySnapshot) IsStale(now time.Time) bool {
	return !analysis.SameDay(s.ComputedAt, now)
}

// TodaySnapshot is the last successfully computed "today" result.
type TodaySnapshot struct {
	Today        analysis.DailySeries
	TodayTotal   float64
	LatestSample time.Time // zero when there was no sample
	ComputedAt   time.Time
}
