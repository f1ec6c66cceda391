package analysis

import (
	"fmt"
	"time"
)

// Direction of a goal crossing.
type Direction int

const (
	BelowToAbove Direction = iota + 1
	AboveToBelow
)

func (d Direction) String() string {
	switch d {
	case BelowToAbove:
		return "below_to_above"
	case AboveToBelow:
		return "above_to_below"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

// MarshalText encodes the direction by name.
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// CrossingEvent is emitted when the projected total moves across the move goal.
type CrossingEvent struct {
	Direction      Direction `json:"direction"`
	ProjectedTotal float64   `json:"projected_total"`
	MoveGoal       float64   `json:"move_goal"`
	DetectedAt     time.Time `json:"detected_at"`
}

// DetectCrossing compares the previous and current projected totals against
// goal. Being exactly at goal counts as above. It returns nil when there is
// no previous value, the goal is disabled (<= 0), or both values sit on the
// same side.
func DetectCrossing(previous *float64, current, goal float64, now time.Time) *CrossingEvent {
	if previous == nil || goal <= 0 {
		return nil
	}

	wasAbove := *previous >= goal
	isAbove := current >= goal
	if wasAbove == isAbove {
		return nil
	}

	dir := BelowToAbove
	if wasAbove {
		dir = AboveToBelow
	}
	return &CrossingEvent{
		Direction:      dir,
		ProjectedTotal: current,
		MoveGoal:       goal,
		DetectedAt:     now,
	}
}

// Message renders a notification title and body for the event.
func (e CrossingEvent) Message() (title, body string) {
	switch e.Direction {
	case BelowToAbove:
		return "On pace for your move goal",
			fmt.Sprintf("Projected %.0f kcal today, goal is %.0f kcal.", e.ProjectedTotal, e.MoveGoal)
	default:
		return "Falling behind your move goal",
			fmt.Sprintf("Projected %.0f kcal today, %.0f kcal short of %.0f.", e.ProjectedTotal, e.MoveGoal-e.ProjectedTotal, e.MoveGoal)
	}
}
