package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"burnpace/internal/analysis"
	"burnpace/internal/health"
	"burnpace/internal/log"
	"burnpace/internal/store"
)

// WarmService pre-computes weekday snapshots so a refresh can fall back to
// any weekday without a live query.
type WarmService struct {
	source health.Source
	store  *store.DB
}

// NewWarmService creates a warm service
func NewWarmService(source health.Source, db *store.DB) *WarmService {
	return &WarmService{source: source, store: db}
}

// WarmResult reports what WarmWeekdays did
type WarmResult struct {
	Written int
	Errors  map[analysis.Weekday]error
}

// WarmWeekdays computes and stores the average curve of every weekday.
// A failing weekday leaves its previous snapshot in place.
func (w *WarmService) WarmWeekdays(ctx context.Context, now time.Time) (*WarmResult, error) {
	result := &WarmResult{Errors: map[analysis.Weekday]error{}}
	var mu sync.Mutex

	type computed struct {
		weekday   analysis.Weekday
		projected float64
		average   analysis.AverageSeries
	}
	var done []computed

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(WarmConcurrency)
	for wd := analysis.Weekday(1); wd <= 7; wd++ {
		g.Go(func() error {
			projected, avg, err := w.source.FetchAverageData(gctx, now, wd)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Errors[wd] = err
				return nil
			}
			done = append(done, computed{weekday: wd, projected: projected, average: avg})
			return nil
		})
	}
	g.Wait()

	// Nothing is written for an abandoned run
	if err := ctx.Err(); err != nil {
		return result, err
	}

	for _, c := range done {
		err := w.store.SaveWeekdaySnapshot(store.WeekdaySnapshot{
			Weekday:        c.weekday,
			Average:        c.average,
			ProjectedTotal: c.projected,
			ComputedAt:     now,
		})
		if err != nil {
			result.Errors[c.weekday] = fmt.Errorf("saving snapshot: %w", err)
			continue
		}
		result.Written++
	}

	log.Infow("weekday snapshots warmed", "written", result.Written, "failed", len(result.Errors))
	return result, nil
}
