package health

import (
	"context"
	"time"

	"burnpace/internal/analysis"
)

// Authorizer reports whether samples may be read.
type Authorizer interface {
	Authorized(ctx context.Context) (bool, error)
}

// Mirror reads samples and the move goal from a local copy while the
// remote that feeds the copy decides authorization.
type Mirror struct {
	Local  SampleReader
	Remote Authorizer
}

func (m Mirror) ReadSamples(ctx context.Context, from, to time.Time) ([]analysis.Sample, error) {
	return m.Local.ReadSamples(ctx, from, to)
}

func (m Mirror) MoveGoal(ctx context.Context) (float64, error) {
	return m.Local.MoveGoal(ctx)
}

func (m Mirror) Authorized(ctx context.Context) (bool, error) {
	return m.Remote.Authorized(ctx)
}
