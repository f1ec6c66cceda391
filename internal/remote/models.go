package remote

import (
	"time"

	"burnpace/internal/analysis"
)

// EnergySample is one active energy sample as returned by the API
type EnergySample struct {
	ID     string    `json:"id"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Value  float64   `json:"value"` // kcal
	Source string    `json:"source"`
}

func (s EnergySample) toAnalysis() analysis.Sample {
	return analysis.Sample{Start: s.Start, End: s.End, Value: s.Value}
}

// SamplePage is one page of /v1/samples/active_energy
type SamplePage struct {
	Samples []EnergySample `json:"samples"`
	Page    int            `json:"page"`
	HasMore bool           `json:"has_more"`
}

// Authorization is the response of /v1/authorization
type Authorization struct {
	Subject string   `json:"subject"`
	Read    []string `json:"read"`
}

// CanRead reports whether active energy reads were granted
func (a Authorization) CanRead() bool {
	for _, scope := range a.Read {
		if scope == "active_energy" {
			return true
		}
	}
	return false
}

// MoveGoal is the response of /v1/goals/move
type MoveGoal struct {
	Value     float64   `json:"value"` // kcal
	UpdatedAt time.Time `json:"updated_at"`
}
