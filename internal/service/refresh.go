package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"burnpace/internal/analysis"
	"burnpace/internal/health"
	"burnpace/internal/log"
	"burnpace/internal/notify"
	"burnpace/internal/store"
)

// RefreshOptions tunes RefreshService
type RefreshOptions struct {
	// FreshnessTolerance is the lag below which data counts as fresh
	FreshnessTolerance time.Duration
	// DefaultMoveGoal is used when the goal was never fetched successfully
	DefaultMoveGoal float64
}

// RefreshService runs one refresh at a time against a health source,
// falling back to cached results field by field.
type RefreshService struct {
	source   health.Source
	store    *store.DB
	notifier notify.Notifier
	opts     RefreshOptions

	// mu serializes the previous-projection read-modify-write and cache commits
	mu sync.Mutex
}

// NewRefreshService creates a refresh service. notifier may be nil.
func NewRefreshService(source health.Source, db *store.DB, notifier notify.Notifier, opts RefreshOptions) *RefreshService {
	if opts.FreshnessTolerance <= 0 {
		opts.FreshnessTolerance = analysis.DefaultFreshnessTolerance
	}
	return &RefreshService{
		source:   source,
		store:    db,
		notifier: notifier,
		opts:     opts,
	}
}

// fetchResult holds what the concurrent fetches produced
type fetchResult struct {
	today     analysis.DailySeries
	latest    time.Time
	todayErr  error
	projected float64
	average   analysis.AverageSeries
	avgErr    error
	goal      float64
	goalErr   error
}

// Refresh computes a fresh Summary for now.
//
// It returns health.ErrUnavailable when there is no data source and the
// context error when ctx ends before results are committed. Every other
// failure degrades the affected field and is reported in FieldErrors.
func (s *RefreshService) Refresh(ctx context.Context, now time.Time) (*Summary, error) {
	summary := &Summary{
		RefreshID:   uuid.NewString(),
		GeneratedAt: now,
		Weekday:     analysis.WeekdayOf(now),
		FieldErrors: map[string]string{},
	}

	authorized, err := s.source.CheckReadAuthorization(ctx)
	switch {
	case errors.Is(err, health.ErrUnavailable):
		return nil, err
	case errors.Is(err, health.ErrUnauthorized):
		authorized = false
	case err != nil:
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		// Let the fetches surface their own failures
		log.Warnw("authorization check failed", "refresh_id", summary.RefreshID, "error", err)
		summary.FieldErrors[FieldAuthorization] = err.Error()
		authorized = true
	}

	if !authorized {
		summary.Freshness = analysis.Unauthorized
		summary.MoveGoal = s.lastKnownGoal()
		log.Infow("health data not authorized", "refresh_id", summary.RefreshID)
		return summary, nil
	}

	r := s.fetchAll(ctx, now)

	if r.todayErr != nil {
		summary.FieldErrors[FieldToday] = r.todayErr.Error()
		r.today, r.latest = s.cachedToday(now)
	}

	hasAverage := r.avgErr == nil
	if !hasAverage {
		summary.FieldErrors[FieldAverage] = r.avgErr.Error()
		r.projected, r.average, hasAverage = s.cachedAverage(now, summary.Weekday)
	}

	if r.goalErr != nil {
		summary.FieldErrors[FieldGoal] = r.goalErr.Error()
		r.goal = s.lastKnownGoal()
	}

	summary.Freshness = analysis.Classify(true, r.latest, now, s.opts.FreshnessTolerance)
	switch summary.Freshness {
	case analysis.Fresh:
		summary.TodayHourly = toPoints(r.today.Points)
		summary.TodayTotal = r.today.Total()
	case analysis.Delayed:
		summary.TodayHourly = toPoints(r.today.TruncateAt(r.latest).Points)
		summary.TodayTotal = r.today.Total()
	}
	if !r.latest.IsZero() {
		latest := r.latest
		summary.LatestSample = &latest
	}

	summary.AverageHourly = toPoints(r.average.Points)
	summary.ProjectedTotal = r.projected
	summary.DaysSampled = r.average.DaysSampled
	summary.MoveGoal = r.goal
	if v, ok := analysis.InterpolatedValue(r.average.Points, now); ok {
		summary.AverageAtNow = v
	}

	s.mu.Lock()
	var event *analysis.CrossingEvent
	if hasAverage {
		event = analysis.DetectCrossing(s.previousProjected(), r.projected, r.goal, now)
	}

	// An abandoned refresh must not leave partial results behind
	if err := ctx.Err(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.commit(summary, r, now)
	if hasAverage {
		s.logWrite("previous projected total", s.store.SetFloat(store.KeyPreviousProjected, r.projected))
	}
	s.mu.Unlock()

	if event != nil {
		summary.Crossing = event
		if s.notifier != nil {
			if err := s.notifier.Notify(ctx, *event); err != nil {
				log.Warnw("delivering crossing notification failed", "refresh_id", summary.RefreshID, "error", err)
			}
		}
	}

	if len(summary.FieldErrors) == 0 {
		summary.FieldErrors = nil
	}
	log.Debugw("refresh complete",
		"refresh_id", summary.RefreshID,
		"freshness", summary.Freshness.String(),
		"today_total", summary.TodayTotal,
		"projected_total", summary.ProjectedTotal,
		"degraded", summary.Degraded(),
	)
	return summary, nil
}

// fetchAll runs the today, average and goal queries concurrently. A failure
// in one never cancels the others.
func (s *RefreshService) fetchAll(ctx context.Context, now time.Time) fetchResult {
	var r fetchResult
	var g errgroup.Group

	g.Go(func() error {
		r.today, r.latest, r.todayErr = s.source.FetchTodayHourlyTotals(ctx, now)
		return nil
	})
	g.Go(func() error {
		r.projected, r.average, r.avgErr = s.source.FetchAverageData(ctx, now, analysis.AnyWeekday)
		return nil
	})
	g.Go(func() error {
		r.goal, r.goalErr = s.source.FetchMoveGoal(ctx)
		return nil
	})
	g.Wait()

	return r
}

// cachedToday returns the stored today curve if it belongs to now's day.
func (s *RefreshService) cachedToday(now time.Time) (analysis.DailySeries, time.Time) {
	snap, err := s.store.GetTodaySnapshot()
	if err != nil {
		if !errors.Is(err, store.ErrSnapshotNotFound) {
			log.Warnw("today snapshot unusable", "error", err)
		}
		return analysis.DailySeries{}, time.Time{}
	}
	if !analysis.SameDay(snap.ComputedAt, now) {
		return analysis.DailySeries{}, time.Time{}
	}
	return snap.Today, snap.LatestSample
}

// cachedAverage returns the stored weekday curve moved onto today with a
// fresh now point.
func (s *RefreshService) cachedAverage(now time.Time, weekday analysis.Weekday) (float64, analysis.AverageSeries, bool) {
	snap, err := s.store.GetWeekdaySnapshot(weekday)
	if err != nil {
		if !errors.Is(err, store.ErrSnapshotNotFound) {
			log.Warnw("weekday snapshot unusable", "weekday", weekday.String(), "error", err)
		}
		return 0, analysis.AverageSeries{}, false
	}
	avg := snap.Average.Rebase(now).WithNowPoint(now)
	return snap.ProjectedTotal, avg, true
}

func (s *RefreshService) lastKnownGoal() float64 {
	goal, ok, err := s.store.GetFloat(store.KeyLastMoveGoal)
	if err != nil {
		log.Warnw("reading last move goal failed", "error", err)
	}
	if !ok {
		return s.opts.DefaultMoveGoal
	}
	return goal
}

func (s *RefreshService) previousProjected() *float64 {
	v, ok, err := s.store.GetFloat(store.KeyPreviousProjected)
	if err != nil {
		log.Warnw("reading previous projected total failed", "error", err)
		return nil
	}
	if !ok {
		return nil
	}
	return &v
}

// commit writes caches for every field computed live. Callers hold s.mu.
func (s *RefreshService) commit(summary *Summary, r fetchResult, now time.Time) {
	if r.todayErr == nil {
		s.logWrite("today snapshot", s.store.SaveTodaySnapshot(store.TodaySnapshot{
			Today:        r.today,
			TodayTotal:   r.today.Total(),
			LatestSample: r.latest,
			ComputedAt:   now,
		}))
	}

	if r.avgErr == nil && s.weekdaySnapshotNeeded(summary.Weekday, now) {
		s.logWrite("weekday snapshot", s.store.SaveWeekdaySnapshot(store.WeekdaySnapshot{
			Weekday:        summary.Weekday,
			Average:        r.average,
			ProjectedTotal: r.projected,
			ComputedAt:     now,
		}))
	}

	if r.goalErr == nil {
		s.logWrite("move goal", s.store.SetFloat(store.KeyLastMoveGoal, r.goal))
	}

	count, err := s.store.IncrementInt(store.KeyRefreshCount)
	s.logWrite("refresh count", err)
	summary.RefreshCount = count
}

// weekdaySnapshotNeeded reports whether the weekday's snapshot is missing,
// unreadable or from another day.
func (s *RefreshService) weekdaySnapshotNeeded(weekday analysis.Weekday, now time.Time) bool {
	snap, err := s.store.GetWeekdaySnapshot(weekday)
	if err != nil {
		return true
	}
	return snap.IsStale(now)
}

func (s *RefreshService) logWrite(what string, err error) {
	if err != nil {
		log.Warnw("cache write failed", "what", what, "error", err)
	}
}
