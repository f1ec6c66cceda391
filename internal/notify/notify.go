// Package notify delivers goal crossing events to the user.
package notify

import (
	"context"
	"errors"

	"github.com/gen2brain/beeep"

	"burnpace/internal/analysis"
	"burnpace/internal/log"
)

// Notifier delivers a crossing event.
type Notifier interface {
	Notify(ctx context.Context, event analysis.CrossingEvent) error
}

// Desktop shows crossing events as desktop notifications.
type Desktop struct {
	send func(title, message string, icon any) error
}

// NewDesktop creates a desktop notifier. appName is shown as the sender
// on platforms that support it.
func NewDesktop(appName string) *Desktop {
	if appName != "" {
		beeep.AppName = appName
	}
	return &Desktop{send: beeep.Notify}
}

func (d *Desktop) Notify(ctx context.Context, event analysis.CrossingEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	title, body := event.Message()
	return d.send(title, body, "")
}

// Log records crossing events in the application log.
type Log struct{}

func (Log) Notify(ctx context.Context, event analysis.CrossingEvent) error {
	log.Infow("move goal crossing",
		"direction", event.Direction.String(),
		"projected_total", event.ProjectedTotal,
		"move_goal", event.MoveGoal,
		"detected_at", event.DetectedAt,
	)
	return nil
}

// Multi fans an event out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, event analysis.CrossingEvent) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Recorder keeps every event it is handed. Useful in tests and the demo.
type Recorder struct {
	Events []analysis.CrossingEvent
}

func (r *Recorder) Notify(ctx context.Context, event analysis.CrossingEvent) error {
	r.Events = append(r.Events, event)
	return nil
}
