package service

import (
	"context"
	"fmt"
	"time"

	"burnpace/internal/analysis"
	"burnpace/internal/health"
	"burnpace/internal/log"
	"burnpace/internal/store"
)

// SampleSourceName tags samples copied from the remote API
const SampleSourceName = "remote"

// SyncService copies raw samples from a remote reader into the local store
type SyncService struct {
	remote       health.SampleReader
	store        *store.DB
	lookbackDays int
}

// NewSyncService creates a new sync service. A non-positive lookback uses
// analysis.DefaultLookbackDays.
func NewSyncService(remote health.SampleReader, db *store.DB, lookbackDays int) *SyncService {
	if lookbackDays <= 0 {
		lookbackDays = analysis.DefaultLookbackDays
	}
	return &SyncService{remote: remote, store: db, lookbackDays: lookbackDays}
}

// SyncProgress reports progress during sync
type SyncProgress struct {
	Phase     string // "samples", "goal"
	Total     int
	Completed int
	Window    time.Time
	Error     error
}

// SyncResult contains the results of a sync operation
type SyncResult struct {
	Windows        int
	SamplesFetched int
	SamplesStored  int
	GoalUpdated    bool
	Pruned         int64
	Errors         []error
}

// syncWindows splits [from, to) into SyncWindow sized, day aligned windows.
func syncWindows(from, to time.Time) [][2]time.Time {
	var out [][2]time.Time
	for start := from; start.Before(to); {
		end := analysis.StartOfNextDay(start)
		if end.Sub(start) > SyncWindow {
			end = start.Add(SyncWindow)
		}
		if end.After(to) {
			end = to
		}
		out = append(out, [2]time.Time{start, end})
		start = end
	}
	return out
}

// Sync fetches every window since the last successful sync, then the move
// goal, and prunes samples that fell out of the lookback window. progress
// may be nil; it is closed when Sync returns.
func (s *SyncService) Sync(ctx context.Context, now time.Time, progress chan<- SyncProgress) (*SyncResult, error) {
	if progress != nil {
		defer close(progress)
	}
	report := func(p SyncProgress) {
		if progress != nil {
			progress <- p
		}
	}

	result := &SyncResult{}
	horizon := analysis.StartOfDay(now).AddDate(0, 0, -s.lookbackDays)

	from := horizon
	lastSync, err := s.store.GetTime(store.KeyLastSampleSync)
	if err != nil {
		log.Warnw("reading last sync time failed", "error", err)
	}
	// The day of the last sync was incomplete, fetch it again
	if resume := analysis.StartOfDay(lastSync.In(now.Location())); !lastSync.IsZero() && resume.After(from) {
		from = resume
	}

	windows := syncWindows(from, now)
	result.Windows = len(windows)
	report(SyncProgress{Phase: "samples", Total: len(windows)})

	var firstFailed time.Time
	for i, w := range windows {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		samples, err := s.remote.ReadSamples(ctx, w[0], w[1])
		if err == nil {
			result.SamplesFetched += len(samples)
			var n int
			n, err = s.store.UpsertSamples(ctx, SampleSourceName, samples)
			result.SamplesStored += n
		}
		if err != nil {
			err = fmt.Errorf("window %s: %w", w[0].Format("2006-01-02"), err)
			result.Errors = append(result.Errors, err)
			if firstFailed.IsZero() {
				firstFailed = w[0]
			}
		}

		report(SyncProgress{Phase: "samples", Total: len(windows), Completed: i + 1, Window: w[0], Error: err})
	}

	// Resume from the first gap next time
	mark := now
	if !firstFailed.IsZero() {
		mark = firstFailed
	}
	if err := s.store.SetTime(store.KeyLastSampleSync, mark); err != nil {
		result.Errors = append(result.Errors, fmt.Errorf("saving sync time: %w", err))
	}

	report(SyncProgress{Phase: "goal", Total: 1})
	goal, err := s.remote.MoveGoal(ctx)
	if err == nil {
		err = s.store.SetFloat(store.KeyMoveGoal, goal)
	}
	if err != nil {
		result.Errors = append(result.Errors, fmt.Errorf("syncing move goal: %w", err))
	} else {
		result.GoalUpdated = true
	}
	report(SyncProgress{Phase: "goal", Total: 1, Completed: 1, Error: err})

	pruned, err := s.store.PruneSamples(ctx, horizon)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Errorf("pruning samples: %w", err))
	}
	result.Pruned = pruned

	log.Infow("sample sync finished",
		"windows", result.Windows,
		"fetched", result.SamplesFetched,
		"stored", result.SamplesStored,
		"pruned", result.Pruned,
		"errors", len(result.Errors),
	)
	return result, nil
}

// RateLimitStatus reports the remote's remaining request budget, when the
// remote tracks one.
func (s *SyncService) RateLimitStatus() (short, daily int, ok bool) {
	limited, ok := s.remote.(interface{ RateLimitStatus() (int, int) })
	if !ok {
		return 0, 0, false
	}
	short, daily = limited.RateLimitStatus()
	return short, daily, true
}
