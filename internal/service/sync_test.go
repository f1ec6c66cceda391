package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"burnpace/internal/analysis"
	"burnpace/internal/health"
	"burnpace/internal/store"
)

func everyDay(day time.Time) health.DailyPattern {
	return health.DailyPattern{8: 50, 18: 100}
}

func TestSyncWindows(t *testing.T) {
	from := time.Date(2024, 6, 13, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 6, 15, 9, 30, 0, 0, time.UTC)

	windows := syncWindows(from, to)
	if len(windows) != 3 {
		t.Fatalf("len(windows) = %d, want 3", len(windows))
	}
	if !windows[2][0].Equal(time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)) || !windows[2][1].Equal(to) {
		t.Errorf("last window = %v, want [June 15, %v)", windows[2], to)
	}
	for i := 1; i < len(windows); i++ {
		if !windows[i][0].Equal(windows[i-1][1]) {
			t.Errorf("gap between windows %d and %d", i-1, i)
		}
	}
	if got := syncWindows(to, to); len(got) != 0 {
		t.Errorf("empty range produced %d windows", len(got))
	}
}

func TestSyncCopiesSamples(t *testing.T) {
	db := store.NewTestDB(t)
	ctx := context.Background()

	samples := append(health.History(scenarioNow, 14, everyDay), todayPattern.Samples(scenarioNow)...)
	remote := health.NewFixture(samples, 900)

	// An old local sample outside the lookback window
	old := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	if _, err := db.UpsertSamples(ctx, SampleSourceName, []analysis.Sample{{Start: old, End: old.Add(time.Minute), Value: 5}}); err != nil {
		t.Fatal(err)
	}

	progress := make(chan SyncProgress, 64)
	result, err := NewSyncService(remote, db, 7).Sync(ctx, scenarioNow, progress)
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}

	var updates int
	for range progress {
		updates++
	}
	if updates == 0 {
		t.Error("no progress reported")
	}

	// June 8 through June 14 with two samples each, plus three today
	if result.Windows != 8 {
		t.Errorf("Windows = %d, want 8", result.Windows)
	}
	if result.SamplesStored != 17 {
		t.Errorf("SamplesStored = %d, want 17", result.SamplesStored)
	}
	if result.Pruned != 1 {
		t.Errorf("Pruned = %d, want 1", result.Pruned)
	}
	if !result.GoalUpdated || len(result.Errors) != 0 {
		t.Errorf("GoalUpdated = %v, Errors = %v", result.GoalUpdated, result.Errors)
	}
	if goal, err := db.MoveGoal(ctx); err != nil || goal != 900 {
		t.Errorf("MoveGoal() = %v, %v, want 900", goal, err)
	}

	// The local store now answers the same projection as the remote
	local := health.NewSampleSource(db, 7)
	series, _, err := local.FetchTodayHourlyTotals(ctx, scenarioNow)
	if err != nil {
		t.Fatal(err)
	}
	if series.Total() != 550 {
		t.Errorf("local today total = %v, want 550", series.Total())
	}

	// A second sync only revisits today
	result, err = NewSyncService(remote, db, 7).Sync(ctx, scenarioNow.Add(time.Hour), nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.Windows != 1 {
		t.Errorf("second sync Windows = %d, want 1", result.Windows)
	}
}

func TestSyncRecordsFailures(t *testing.T) {
	db := store.NewTestDB(t)
	remote := health.NewFixture(nil, 0)
	remote.ReadErr = errors.New("remote down")
	remote.GoalErr = errors.New("remote down")

	result, err := NewSyncService(remote, db, 7).Sync(context.Background(), scenarioNow, nil)
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if len(result.Errors) != result.Windows+1 {
		t.Errorf("len(Errors) = %d, want %d", len(result.Errors), result.Windows+1)
	}
	if result.GoalUpdated {
		t.Error("GoalUpdated = true after goal failure")
	}

	last, err := db.GetTime(store.KeyLastSampleSync)
	if err != nil {
		t.Fatal(err)
	}
	wantResume := time.Date(2024, 6, 8, 0, 0, 0, 0, time.UTC)
	if !last.Equal(wantResume) {
		t.Errorf("last sync = %v, want resume point %v", last, wantResume)
	}
}

func TestSyncCancelled(t *testing.T) {
	db := store.NewTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewSyncService(health.NewFixture(nil, 0), db, 7).Sync(ctx, scenarioNow, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Sync() error = %v, want Canceled", err)
	}
}

func TestLiveRefresherSyncsFirst(t *testing.T) {
	db := store.NewTestDB(t)
	ctx := context.Background()
	remote := health.NewFixture(append(health.History(scenarioNow, 14, everyDay), todayPattern.Samples(scenarioNow)...), 900)

	src := health.NewSampleSource(health.Mirror{Local: db, Remote: remote}, 7)
	live := NewLiveRefresher(
		NewSyncService(remote, db, 7),
		NewRefreshService(src, db, nil, RefreshOptions{FreshnessTolerance: time.Hour}),
	)

	summary, err := live.Refresh(ctx, scenarioNow)
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if summary.TodayTotal != 550 || summary.MoveGoal != 900 {
		t.Errorf("Refresh() today = %v, goal = %v, want 550 and 900", summary.TodayTotal, summary.MoveGoal)
	}
	if summary.ProjectedTotal != 150 {
		t.Errorf("ProjectedTotal = %v, want 150", summary.ProjectedTotal)
	}

	// Offline remote: the stored copy still answers
	remote.ReadErr = errors.New("offline")
	remote.GoalErr = errors.New("offline")
	summary, err = live.Refresh(ctx, scenarioNow.Add(time.Minute))
	if err != nil {
		t.Fatalf("offline Refresh() error = %v", err)
	}
	if summary.TodayTotal != 550 || summary.Degraded() {
		t.Errorf("offline Refresh() today = %v, degraded = %v", summary.TodayTotal, summary.Degraded())
	}

	remote.Denied = true
	summary, err = live.Refresh(ctx, scenarioNow.Add(2*time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if summary.Freshness != analysis.Unauthorized {
		t.Errorf("Freshness = %v, want unauthorized", summary.Freshness)
	}
}
