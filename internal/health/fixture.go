package health

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"burnpace/internal/analysis"
)

// Fixture is an in-memory SampleReader with injectable failures.
type Fixture struct {
	mu      sync.Mutex
	samples []analysis.Sample
	goal    float64

	Denied  bool
	AuthErr error
	ReadErr error
	GoalErr error
}

// NewFixture creates a fixture holding samples and goal.
func NewFixture(samples []analysis.Sample, goal float64) *Fixture {
	f := &Fixture{goal: goal}
	f.Add(samples...)
	return f
}

// Add appends samples, keeping them ordered by start.
func (f *Fixture) Add(samples ...analysis.Sample) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.samples = append(f.samples, samples...)
	sort.SliceStable(f.samples, func(i, j int) bool {
		return f.samples[i].Start.Before(f.samples[j].Start)
	})
}

// SetGoal replaces the move goal.
func (f *Fixture) SetGoal(goal float64) {
	f.mu.Lock()
	f.goal = goal
	f.mu.Unlock()
}

func (f *Fixture) ReadSamples(ctx context.Context, from, to time.Time) ([]analysis.Sample, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.ReadErr != nil {
		return nil, f.ReadErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	var out []analysis.Sample
	for _, s := range f.samples {
		if !s.Start.Before(from) && s.Start.Before(to) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *Fixture) MoveGoal(ctx context.Context) (float64, error) {
	if f.GoalErr != nil {
		return 0, f.GoalErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.goal, nil
}

func (f *Fixture) Authorized(ctx context.Context) (bool, error) {
	if f.AuthErr != nil {
		return false, f.AuthErr
	}
	return !f.Denied, nil
}

// DailyPattern maps an hour of day to the energy burned in it.
type DailyPattern map[int]float64

// Total returns the sum over all hours.
func (p DailyPattern) Total() float64 {
	var total float64
	for _, v := range p {
		total += v
	}
	return total
}

// Samples lays the pattern over day as one 20 minute sample per hour
// starting ten minutes past. Hours outside 0..23 are ignored.
func (p DailyPattern) Samples(day time.Time) []analysis.Sample {
	start := analysis.StartOfDay(day)
	y, m, d := start.Date()

	hours := make([]int, 0, len(p))
	for h := range p {
		if h >= 0 && h < analysis.HoursPerDay {
			hours = append(hours, h)
		}
	}
	sort.Ints(hours)

	out := make([]analysis.Sample, 0, len(hours))
	for _, h := range hours {
		s := time.Date(y, m, d, h, 10, 0, 0, start.Location())
		out = append(out, analysis.Sample{Start: s, End: s.Add(20 * time.Minute), Value: p[h]})
	}
	return out
}

// History generates days of samples ending the day before now, asking
// pattern for each day. A nil pattern skips the day.
func History(now time.Time, days int, pattern func(day time.Time) DailyPattern) []analysis.Sample {
	dayStart := analysis.StartOfDay(now)
	var out []analysis.Sample
	for i := days; i >= 1; i-- {
		day := dayStart.AddDate(0, 0, -i)
		if p := pattern(day); p != nil {
			out = append(out, p.Samples(day)...)
		}
	}
	return out
}

// Demo builds a deterministic fixture with ten weeks of history and today's
// samples up to now. Weekends burn more in the afternoon, weekdays around
// commutes.
func Demo(now time.Time, goal float64) *Fixture {
	rng := rand.New(rand.NewSource(7))

	base := func(day time.Time) DailyPattern {
		p := DailyPattern{}
		weekend := day.Weekday() == time.Saturday || day.Weekday() == time.Sunday
		for h := 7; h <= 22; h++ {
			p[h] = 10 + rng.Float64()*15
		}
		if weekend {
			p[10] += 120 + rng.Float64()*60
			p[15] += 180 + rng.Float64()*80
		} else {
			p[8] += 60 + rng.Float64()*30
			p[12] += 40 + rng.Float64()*20
			p[18] += 110 + rng.Float64()*70
		}
		return p
	}

	samples := History(now, analysis.DefaultLookbackDays, base)
	for _, s := range base(now).Samples(now) {
		if !s.End.After(now) {
			samples = append(samples, s)
		}
	}
	return NewFixture(samples, goal)
}
