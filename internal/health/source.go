// Package health defines the data source the refresh pipeline reads from and
// an engine-backed implementation over raw active energy samples.
package health

import (
	"context"
	"errors"
	"fmt"
	"time"

	"burnpace/internal/analysis"
)

// ErrUnavailable means there is no health data source on this installation.
var ErrUnavailable = errors.New("health data unavailable")

// ErrUnauthorized means the source refused read access.
var ErrUnauthorized = errors.New("health data access not authorized")

// Source is everything a refresh needs from the health store.
// Any error other than ErrUnavailable or ErrUnauthorized is a transient
// query failure for that call only.
type Source interface {
	CheckReadAuthorization(ctx context.Context) (bool, error)
	// FetchTodayHourlyTotals returns today's running-total curve and the end
	// of the latest sample (zero when there is none).
	FetchTodayHourlyTotals(ctx context.Context, now time.Time) (analysis.DailySeries, time.Time, error)
	FetchMoveGoal(ctx context.Context) (float64, error)
	// FetchAverageData returns the projected total and the average curve for
	// weekday, or for the weekday of now when weekday is AnyWeekday.
	FetchAverageData(ctx context.Context, now time.Time, weekday analysis.Weekday) (float64, analysis.AverageSeries, error)
}

// SampleReader provides raw samples and the move goal.
type SampleReader interface {
	// ReadSamples returns samples starting in [from, to).
	ReadSamples(ctx context.Context, from, to time.Time) ([]analysis.Sample, error)
	MoveGoal(ctx context.Context) (float64, error)
	Authorized(ctx context.Context) (bool, error)
}

// SampleSource implements Source by running the projection engine over
// samples read from a SampleReader.
type SampleSource struct {
	reader       SampleReader
	lookbackDays int
}

// NewSampleSource creates a source over reader. A non-positive lookback
// uses analysis.DefaultLookbackDays.
func NewSampleSource(reader SampleReader, lookbackDays int) *SampleSource {
	if lookbackDays <= 0 {
		lookbackDays = analysis.DefaultLookbackDays
	}
	return &SampleSource{reader: reader, lookbackDays: lookbackDays}
}

// CheckReadAuthorization asks the reader whether samples may be read.
func (s *SampleSource) CheckReadAuthorization(ctx context.Context) (bool, error) {
	ok, err := s.reader.Authorized(ctx)
	if errors.Is(err, ErrUnauthorized) {
		return false, nil
	}
	return ok, err
}

func (s *SampleSource) FetchTodayHourlyTotals(ctx context.Context, now time.Time) (analysis.DailySeries, time.Time, error) {
	samples, err := s.reader.ReadSamples(ctx, analysis.StartOfDay(now), analysis.StartOfNextDay(now))
	if err != nil {
		return analysis.DailySeries{}, time.Time{}, fmt.Errorf("reading today's samples: %w", err)
	}
	series, latest := analysis.TodaySeries(samples, now)
	return series, latest, nil
}

func (s *SampleSource) FetchMoveGoal(ctx context.Context) (float64, error) {
	goal, err := s.reader.MoveGoal(ctx)
	if err != nil {
		return 0, fmt.Errorf("reading move goal: %w", err)
	}
	return goal, nil
}

func (s *SampleSource) FetchAverageData(ctx context.Context, now time.Time, weekday analysis.Weekday) (float64, analysis.AverageSeries, error) {
	dayStart := analysis.StartOfDay(now)
	samples, err := s.reader.ReadSamples(ctx, dayStart.AddDate(0, 0, -s.lookbackDays), dayStart)
	if err != nil {
		return 0, analysis.AverageSeries{}, fmt.Errorf("reading history: %w", err)
	}

	p := analysis.Project(samples, now, analysis.ProjectionOptions{
		LookbackDays: s.lookbackDays,
		Weekday:      weekday,
	})
	return p.ProjectedTotal, p.Average, nil
}
