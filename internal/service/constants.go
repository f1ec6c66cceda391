package service

import "time"

// Summary field names used in FieldErrors
const (
	FieldAuthorization = "authorization"
	FieldToday         = "today"
	FieldAverage       = "average"
	FieldGoal          = "goal"
)

const (
	// SyncWindow is the span of one sample request during sync
	SyncWindow = 24 * time.Hour

	// WarmConcurrency bounds concurrent weekday computations
	WarmConcurrency = 2
)
