package service

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"burnpace/internal/analysis"
	"burnpace/internal/health"
	"burnpace/internal/notify"
	"burnpace/internal/store"
)

var (
	saturdayPattern = health.DailyPattern{6: 200, 9: 150, 15: 160, 18: 300, 21: 203}
	todayPattern    = health.DailyPattern{7: 250, 12: 200, 15: 100}
)

// June 15 2024 is a Saturday.
var scenarioNow = time.Date(2024, 6, 15, 16, 0, 0, 0, time.UTC)

func saturdays(day time.Time) health.DailyPattern {
	if day.Weekday() == time.Saturday {
		return saturdayPattern
	}
	return nil
}

// scenarioFixture has history Saturdays before scenarioNow and today's
// samples summing to 550 by hour 15.
func scenarioFixture(historyDays int, goal float64) *health.Fixture {
	samples := health.History(scenarioNow, historyDays, saturdays)
	samples = append(samples, todayPattern.Samples(scenarioNow)...)
	return health.NewFixture(samples, goal)
}

func newRefresh(t *testing.T, src health.Source, n notify.Notifier, tolerance time.Duration) (*RefreshService, *store.DB) {
	t.Helper()
	db := store.NewTestDB(t)
	return NewRefreshService(src, db, n, RefreshOptions{FreshnessTolerance: tolerance, DefaultMoveGoal: 600}), db
}

// stubSource answers each query with fixed values.
type stubSource struct {
	authorized bool
	authErr    error

	today    analysis.DailySeries
	latest   time.Time
	todayErr error

	projected float64
	average   analysis.AverageSeries
	avgErr    error

	goal    float64
	goalErr error

	onFetch func()
}

func (s *stubSource) CheckReadAuthorization(ctx context.Context) (bool, error) {
	return s.authorized, s.authErr
}

func (s *stubSource) FetchTodayHourlyTotals(ctx context.Context, now time.Time) (analysis.DailySeries, time.Time, error) {
	if s.onFetch != nil {
		s.onFetch()
	}
	return s.today, s.latest, s.todayErr
}

func (s *stubSource) FetchMoveGoal(ctx context.Context) (float64, error) {
	return s.goal, s.goalErr
}

func (s *stubSource) FetchAverageData(ctx context.Context, now time.Time, weekday analysis.Weekday) (float64, analysis.AverageSeries, error) {
	return s.projected, s.average, s.avgErr
}

func assertFinite(t *testing.T, sum *Summary) {
	t.Helper()
	values := []float64{sum.TodayTotal, sum.AverageAtNow, sum.ProjectedTotal, sum.MoveGoal}
	for _, p := range sum.TodayHourly {
		values = append(values, p.Value)
	}
	for _, p := range sum.AverageHourly {
		values = append(values, p.Value)
	}
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("summary carries non-finite value %v", v)
		}
	}
}

func TestRefreshScenarios(t *testing.T) {
	tests := []struct {
		name        string
		historyDays int
	}{
		{name: "normal operation", historyDays: 70},
		{name: "sparse history", historyDays: 14},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, db := newRefresh(t, health.NewSampleSource(scenarioFixture(tt.historyDays, 800), 70), nil, time.Hour)

			sum, err := svc.Refresh(context.Background(), scenarioNow)
			if err != nil {
				t.Fatalf("Refresh() error = %v", err)
			}
			assertFinite(t, sum)

			if sum.TodayTotal != 550 {
				t.Errorf("TodayTotal = %v, want 550", sum.TodayTotal)
			}
			if sum.ProjectedTotal != 1013 {
				t.Errorf("ProjectedTotal = %v, want 1013", sum.ProjectedTotal)
			}
			if sum.AverageAtNow != 510 {
				t.Errorf("AverageAtNow = %v, want 510", sum.AverageAtNow)
			}
			if sum.MoveGoal != 800 {
				t.Errorf("MoveGoal = %v, want 800", sum.MoveGoal)
			}
			if sum.Freshness != analysis.Fresh {
				t.Errorf("Freshness = %v, want fresh", sum.Freshness)
			}
			if sum.RefreshCount != 1 {
				t.Errorf("RefreshCount = %d, want 1", sum.RefreshCount)
			}
			if sum.RefreshID == "" {
				t.Error("RefreshID is empty")
			}
			if sum.Degraded() {
				t.Errorf("FieldErrors = %v, want none", sum.FieldErrors)
			}

			snap, err := db.GetWeekdaySnapshot(analysis.WeekdayOf(scenarioNow))
			if err != nil {
				t.Fatalf("weekday snapshot not written: %v", err)
			}
			if snap.ProjectedTotal != 1013 {
				t.Errorf("snapshot ProjectedTotal = %v, want 1013", snap.ProjectedTotal)
			}
			if _, err := db.GetTodaySnapshot(); err != nil {
				t.Errorf("today snapshot not written: %v", err)
			}
			if goal, ok, _ := db.GetFloat(store.KeyLastMoveGoal); !ok || goal != 800 {
				t.Errorf("last move goal = %v (%v), want 800", goal, ok)
			}
		})
	}
}

func TestRefreshAuthorization(t *testing.T) {
	t.Run("denied", func(t *testing.T) {
		f := scenarioFixture(70, 800)
		f.Denied = true
		svc, db := newRefresh(t, health.NewSampleSource(f, 70), nil, 0)

		sum, err := svc.Refresh(context.Background(), scenarioNow)
		if err != nil {
			t.Fatalf("Refresh() error = %v", err)
		}
		if sum.Freshness != analysis.Unauthorized {
			t.Errorf("Freshness = %v, want unauthorized", sum.Freshness)
		}
		if sum.MoveGoal != 600 {
			t.Errorf("MoveGoal = %v, want default 600", sum.MoveGoal)
		}
		if n, _ := db.GetInt(store.KeyRefreshCount); n != 0 {
			t.Errorf("refresh count = %d, want 0", n)
		}
	})

	t.Run("unavailable", func(t *testing.T) {
		svc, _ := newRefresh(t, &stubSource{authErr: health.ErrUnavailable}, nil, 0)
		if _, err := svc.Refresh(context.Background(), scenarioNow); !errors.Is(err, health.ErrUnavailable) {
			t.Errorf("Refresh() error = %v, want ErrUnavailable", err)
		}
	})

	t.Run("transient check failure continues", func(t *testing.T) {
		src := &stubSource{authErr: errors.New("timeout"), goal: 500}
		svc, _ := newRefresh(t, src, nil, 0)
		sum, err := svc.Refresh(context.Background(), scenarioNow)
		if err != nil {
			t.Fatalf("Refresh() error = %v", err)
		}
		if sum.Freshness == analysis.Unauthorized {
			t.Error("Freshness = unauthorized, want the refresh to proceed")
		}
		if _, ok := sum.FieldErrors[FieldAuthorization]; !ok {
			t.Errorf("FieldErrors = %v, want authorization entry", sum.FieldErrors)
		}
	})
}

func TestRefreshGoalFallsBackToLastKnown(t *testing.T) {
	f := scenarioFixture(70, 800)
	svc, _ := newRefresh(t, health.NewSampleSource(f, 70), nil, time.Hour)
	ctx := context.Background()

	if _, err := svc.Refresh(ctx, scenarioNow); err != nil {
		t.Fatal(err)
	}

	f.GoalErr = errors.New("goal query failed")
	sum, err := svc.Refresh(ctx, scenarioNow.Add(time.Minute))
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if sum.MoveGoal != 800 {
		t.Errorf("MoveGoal = %v, want last known 800", sum.MoveGoal)
	}
	if _, ok := sum.FieldErrors[FieldGoal]; !ok {
		t.Errorf("FieldErrors = %v, want goal entry", sum.FieldErrors)
	}
	if sum.TodayTotal != 550 || sum.ProjectedTotal != 1013 {
		t.Errorf("goal failure affected other fields: today %v projected %v", sum.TodayTotal, sum.ProjectedTotal)
	}
	if sum.RefreshCount != 2 {
		t.Errorf("RefreshCount = %d, want 2", sum.RefreshCount)
	}
}

func TestRefreshAverageFallsBackToWeekdaySnapshot(t *testing.T) {
	lastSaturday := time.Date(2024, 6, 8, 0, 0, 0, 0, time.UTC)
	var hourly [analysis.HoursPerDay]float64
	for h := range hourly {
		hourly[h] = float64(10 * (h + 1))
	}
	cached := analysis.BuildAverageSeries(lastSaturday, hourly, 300, lastSaturday.Add(10*time.Hour+30*time.Minute))

	src := &stubSource{
		authorized: true,
		avgErr:     errors.New("history query failed"),
		goal:       400,
	}
	svc, db := newRefresh(t, src, nil, 0)
	err := db.SaveWeekdaySnapshot(store.WeekdaySnapshot{
		Weekday:        analysis.WeekdayOf(lastSaturday),
		Average:        cached,
		ProjectedTotal: 300,
		ComputedAt:     lastSaturday.Add(12 * time.Hour),
	})
	if err != nil {
		t.Fatal(err)
	}

	now := scenarioNow.Add(30 * time.Minute)
	sum, err := svc.Refresh(context.Background(), now)
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if sum.ProjectedTotal != 300 {
		t.Errorf("ProjectedTotal = %v, want 300 from snapshot", sum.ProjectedTotal)
	}
	// halfway between hour 15 (160) and hour 16 (170)
	if sum.AverageAtNow != 165 {
		t.Errorf("AverageAtNow = %v, want 165", sum.AverageAtNow)
	}

	var nowPoints, endPoints int
	for _, p := range sum.AverageHourly {
		if p.Time.Equal(now) {
			nowPoints++
		}
		if p.Time.Equal(time.Date(2024, 6, 16, 0, 0, 0, 0, time.UTC)) {
			endPoints++
			if p.Value != 300 {
				t.Errorf("end of day value = %v, want 300", p.Value)
			}
		}
		if p.Time.Before(time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("point %v not rebased onto today", p.Time)
		}
	}
	if nowPoints != 1 || endPoints != 1 {
		t.Errorf("now points = %d, end points = %d, want 1 each", nowPoints, endPoints)
	}

	// Fallback data is never written back as a fresh snapshot
	snap, err := db.GetWeekdaySnapshot(analysis.WeekdayOf(now))
	if err != nil {
		t.Fatal(err)
	}
	if !snap.ComputedAt.Equal(lastSaturday.Add(12 * time.Hour)) {
		t.Errorf("snapshot ComputedAt = %v, want it untouched", snap.ComputedAt)
	}
}

func TestRefreshCorruptSnapshotIsAMiss(t *testing.T) {
	src := &stubSource{authorized: true, avgErr: errors.New("down"), todayErr: errors.New("down"), goalErr: errors.New("down")}
	svc, db := newRefresh(t, src, nil, 0)

	_, err := db.Exec(`INSERT INTO weekday_snapshots (weekday, payload, computed_at, schema_version) VALUES (?, ?, ?, ?)`,
		int(analysis.WeekdayOf(scenarioNow)), []byte{0xc1}, scenarioNow.Unix(), store.SnapshotSchemaVersion)
	if err != nil {
		t.Fatal(err)
	}

	sum, err := svc.Refresh(context.Background(), scenarioNow)
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	assertFinite(t, sum)
	if sum.ProjectedTotal != 0 || sum.AverageAtNow != 0 || len(sum.AverageHourly) != 0 {
		t.Errorf("summary = %+v, want empty average", sum)
	}
	if sum.Freshness != analysis.StaleOtherDay {
		t.Errorf("Freshness = %v, want stale_other_day", sum.Freshness)
	}
	if sum.MoveGoal != 600 {
		t.Errorf("MoveGoal = %v, want default 600", sum.MoveGoal)
	}
	if len(sum.FieldErrors) != 3 {
		t.Errorf("FieldErrors = %v, want 3 entries", sum.FieldErrors)
	}
}

func TestRefreshTodayFallsBackToSnapshot(t *testing.T) {
	f := scenarioFixture(70, 800)
	svc, _ := newRefresh(t, health.NewSampleSource(f, 70), nil, time.Hour)
	ctx := context.Background()

	if _, err := svc.Refresh(ctx, scenarioNow); err != nil {
		t.Fatal(err)
	}

	f.ReadErr = errors.New("store offline")
	sum, err := svc.Refresh(ctx, scenarioNow.Add(10*time.Minute))
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if sum.TodayTotal != 550 {
		t.Errorf("TodayTotal = %v, want 550 from today snapshot", sum.TodayTotal)
	}
	if sum.ProjectedTotal != 1013 {
		t.Errorf("ProjectedTotal = %v, want 1013 from weekday snapshot", sum.ProjectedTotal)
	}

	// The cached today curve does not carry over to the next day
	sum, err = svc.Refresh(ctx, scenarioNow.AddDate(0, 0, 1))
	if err != nil {
		t.Fatal(err)
	}
	if sum.Freshness != analysis.StaleOtherDay || sum.TodayTotal != 0 {
		t.Errorf("next day = %v / %v, want stale_other_day / 0", sum.Freshness, sum.TodayTotal)
	}
}

func TestRefreshFreshness(t *testing.T) {
	t.Run("delayed truncates at latest sample", func(t *testing.T) {
		svc, _ := newRefresh(t, health.NewSampleSource(scenarioFixture(70, 800), 70), nil, 5*time.Minute)
		sum, err := svc.Refresh(context.Background(), scenarioNow)
		if err != nil {
			t.Fatal(err)
		}
		if sum.Freshness != analysis.Delayed {
			t.Fatalf("Freshness = %v, want delayed", sum.Freshness)
		}
		latest := time.Date(2024, 6, 15, 15, 30, 0, 0, time.UTC)
		last := sum.TodayHourly[len(sum.TodayHourly)-1]
		if !last.Time.Equal(latest) || last.Value != 550 {
			t.Errorf("last today point = %v/%v, want %v/550", last.Time, last.Value, latest)
		}
		if sum.LatestSample == nil || !sum.LatestSample.Equal(latest) {
			t.Errorf("LatestSample = %v, want %v", sum.LatestSample, latest)
		}
		if sum.DataAge() != 30*time.Minute {
			t.Errorf("DataAge() = %v, want 30m", sum.DataAge())
		}
	})

	t.Run("stale other day suppresses today", func(t *testing.T) {
		f := health.NewFixture(health.History(scenarioNow, 70, saturdays), 800)
		svc, _ := newRefresh(t, health.NewSampleSource(f, 70), nil, 0)
		sum, err := svc.Refresh(context.Background(), scenarioNow)
		if err != nil {
			t.Fatal(err)
		}
		if sum.Freshness != analysis.StaleOtherDay {
			t.Errorf("Freshness = %v, want stale_other_day", sum.Freshness)
		}
		if sum.TodayHourly != nil || sum.TodayTotal != 0 {
			t.Errorf("today = %v / %v, want suppressed", sum.TodayHourly, sum.TodayTotal)
		}
		if sum.ProjectedTotal != 1013 || sum.AverageAtNow != 510 {
			t.Errorf("projection = %v / %v, want 1013 / 510", sum.ProjectedTotal, sum.AverageAtNow)
		}
	})
}

func TestRefreshCrossing(t *testing.T) {
	rec := &notify.Recorder{}
	svc, db := newRefresh(t, health.NewSampleSource(scenarioFixture(70, 1000), 70), rec, time.Hour)
	ctx := context.Background()

	// First run has no previous projection
	sum, err := svc.Refresh(ctx, scenarioNow)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Crossing != nil {
		t.Errorf("first refresh Crossing = %+v, want nil", sum.Crossing)
	}

	if err := db.SetFloat(store.KeyPreviousProjected, 999); err != nil {
		t.Fatal(err)
	}
	sum, err = svc.Refresh(ctx, scenarioNow.Add(time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if sum.Crossing == nil || sum.Crossing.Direction != analysis.BelowToAbove {
		t.Fatalf("Crossing = %+v, want below_to_above", sum.Crossing)
	}
	if len(rec.Events) != 1 {
		t.Errorf("notifier got %d events, want 1", len(rec.Events))
	}

	// Same side again: nothing new
	sum, err = svc.Refresh(ctx, scenarioNow.Add(2*time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if sum.Crossing != nil || len(rec.Events) != 1 {
		t.Errorf("repeat refresh delivered another crossing (%d events)", len(rec.Events))
	}
}

func TestRefreshCancelledCommitsNothing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := &stubSource{
		authorized: true,
		projected:  700,
		average:    analysis.BuildAverageSeries(scenarioNow, [analysis.HoursPerDay]float64{}, 700, scenarioNow),
		goal:       500,
		onFetch:    cancel,
	}
	svc, db := newRefresh(t, src, nil, 0)

	if _, err := svc.Refresh(ctx, scenarioNow); !errors.Is(err, context.Canceled) {
		t.Fatalf("Refresh() error = %v, want Canceled", err)
	}
	if n, _ := db.GetInt(store.KeyRefreshCount); n != 0 {
		t.Errorf("refresh count = %d, want 0", n)
	}
	if _, ok, _ := db.GetFloat(store.KeyPreviousProjected); ok {
		t.Error("previous projected total was committed")
	}
	if _, err := db.GetWeekdaySnapshot(analysis.WeekdayOf(scenarioNow)); !errors.Is(err, store.ErrSnapshotNotFound) {
		t.Errorf("weekday snapshot error = %v, want ErrSnapshotNotFound", err)
	}
}

func TestRefreshKeepsFreshWeekdaySnapshot(t *testing.T) {
	svc, db := newRefresh(t, health.NewSampleSource(scenarioFixture(70, 800), 70), nil, time.Hour)
	ctx := context.Background()

	if _, err := svc.Refresh(ctx, scenarioNow); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Refresh(ctx, scenarioNow.Add(time.Hour)); err != nil {
		t.Fatal(err)
	}

	snap, err := db.GetWeekdaySnapshot(analysis.WeekdayOf(scenarioNow))
	if err != nil {
		t.Fatal(err)
	}
	if !snap.ComputedAt.Equal(scenarioNow) {
		t.Errorf("snapshot ComputedAt = %v, want first write %v", snap.ComputedAt, scenarioNow)
	}
}
