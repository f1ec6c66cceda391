package analysis

import (
	"math"
	"math/rand"
	"testing"
	"time"
)

// sampleAt returns a 20 minute sample starting ten minutes into the hour.
func sampleAt(day time.Time, hour int, value float64) Sample {
	y, m, d := day.Date()
	start := time.Date(y, m, d, hour, 10, 0, 0, day.Location())
	return Sample{Start: start, End: start.Add(20 * time.Minute), Value: value}
}

func TestAggregateCarriesForward(t *testing.T) {
	day := at(8, 0, 0)
	samples := []Sample{
		sampleAt(day, 2, 10),
		sampleAt(day, 5, 5),
		sampleAt(day, 5, 1.5),
	}

	days := Aggregate(samples, time.UTC, AnyWeekday)
	if len(days) != 1 {
		t.Fatalf("len(days) = %d, want 1", len(days))
	}
	b := days[0]

	expected := map[int]float64{0: 0, 1: 0, 2: 10, 3: 10, 4: 10, 5: 16.5, 12: 16.5, 23: 16.5}
	for h, want := range expected {
		if b.Cumulative[h] != want {
			t.Errorf("Cumulative[%d] = %v, want %v", h, b.Cumulative[h], want)
		}
	}
	if b.Hourly[5] != 6.5 {
		t.Errorf("Hourly[5] = %v, want 6.5", b.Hourly[5])
	}
	if b.Total != 16.5 {
		t.Errorf("Total = %v, want 16.5", b.Total)
	}
	if b.Samples != 3 {
		t.Errorf("Samples = %d, want 3", b.Samples)
	}
	if !b.Latest.Equal(at(8, 5, 30)) {
		t.Errorf("Latest = %v, want 05:30", b.Latest)
	}
}

func TestAggregateCumulativeNonDecreasing(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	var samples []Sample
	for i := 0; i < 500; i++ {
		start := at(1, 0, 0).Add(time.Duration(rng.Int63n(int64(10 * 24 * time.Hour))))
		samples = append(samples, Sample{
			Start: start,
			End:   start.Add(time.Duration(rng.Intn(30)+1) * time.Minute),
			Value: rng.Float64() * 40,
		})
	}

	days := Aggregate(samples, time.UTC, AnyWeekday)
	if len(days) == 0 {
		t.Fatal("Aggregate() returned no days")
	}
	for _, d := range days {
		for h := 1; h < HoursPerDay; h++ {
			if d.Cumulative[h] < d.Cumulative[h-1] {
				t.Fatalf("%s: Cumulative[%d] = %v < Cumulative[%d] = %v",
					d.Day.Format("2006-01-02"), h, d.Cumulative[h], h-1, d.Cumulative[h-1])
			}
		}
		if d.Cumulative[HoursPerDay-1] != d.Total {
			t.Errorf("%s: last cumulative %v != Total %v", d.Day.Format("2006-01-02"), d.Cumulative[HoursPerDay-1], d.Total)
		}
	}
	for i := 1; i < len(days); i++ {
		if !days[i].Day.After(days[i-1].Day) {
			t.Fatalf("days not sorted at index %d", i)
		}
	}
}

func TestAggregateWeekdayFilter(t *testing.T) {
	saturday := at(8, 0, 0) // 2024-06-08
	friday := at(7, 0, 0)
	samples := []Sample{
		sampleAt(saturday, 9, 100),
		sampleAt(friday, 9, 70),
		sampleAt(friday, 10, 30),
	}

	tests := []struct {
		name     string
		weekday  Weekday
		wantDays int
	}{
		{"no filter", AnyWeekday, 2},
		{"saturday", 7, 1},
		{"friday", 6, 1},
		{"sunday", 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			days := Aggregate(samples, time.UTC, tt.weekday)
			if len(days) != tt.wantDays {
				t.Errorf("len(days) = %d, want %d", len(days), tt.wantDays)
			}
			for _, d := range days {
				if tt.weekday.Valid() && WeekdayOf(d.Day) != tt.weekday {
					t.Errorf("day %v has weekday %v, want %v", d.Day, WeekdayOf(d.Day), tt.weekday)
				}
			}
		})
	}
}

func TestAggregateUsesLocalDay(t *testing.T) {
	loc := time.FixedZone("UTC-7", -7*3600)
	// 02:00 UTC on the 9th is 19:00 on the 8th in UTC-7
	s := Sample{Start: time.Date(2024, 6, 9, 2, 0, 0, 0, time.UTC), End: time.Date(2024, 6, 9, 2, 5, 0, 0, time.UTC), Value: 12}

	days := Aggregate([]Sample{s}, loc, AnyWeekday)
	if len(days) != 1 {
		t.Fatalf("len(days) = %d, want 1", len(days))
	}
	if days[0].Day.Day() != 8 {
		t.Errorf("Day = %v, want the 8th", days[0].Day)
	}
	if days[0].Hourly[19] != 12 {
		t.Errorf("Hourly[19] = %v, want 12", days[0].Hourly[19])
	}
}

func TestAggregateSkipsInvalidSamples(t *testing.T) {
	day := at(8, 0, 0)
	samples := []Sample{
		sampleAt(day, 1, -5),
		sampleAt(day, 2, math.NaN()),
		sampleAt(day, 3, math.Inf(1)),
		sampleAt(day, 4, 8),
	}

	days := Aggregate(samples, time.UTC, AnyWeekday)
	if len(days) != 1 {
		t.Fatalf("len(days) = %d, want 1", len(days))
	}
	if days[0].Total != 8 || days[0].Samples != 1 {
		t.Errorf("Total, Samples = %v, %d, want 8, 1", days[0].Total, days[0].Samples)
	}
}

func TestAverageCumulativeExcludesZeroDays(t *testing.T) {
	late := AggregateDay([]Sample{sampleAt(at(1, 0, 0), 5, 100)}, at(1, 0, 0))
	early := AggregateDay([]Sample{sampleAt(at(8, 0, 0), 2, 50)}, at(8, 0, 0))

	avg := AverageCumulative([]DayBuckets{late, early})

	tests := []struct {
		hour     int
		expected float64
	}{
		{0, 0},   // nobody active yet
		{2, 50},  // only the early day counts
		{4, 50},  // late day still at zero
		{5, 75},  // both days
		{23, 75}, // carried forward
	}
	for _, tt := range tests {
		if avg[tt.hour] != tt.expected {
			t.Errorf("avg[%d] = %v, want %v", tt.hour, avg[tt.hour], tt.expected)
		}
	}
}

func TestAverageTotal(t *testing.T) {
	busy := AggregateDay([]Sample{sampleAt(at(1, 0, 0), 9, 100)}, at(1, 0, 0))
	idle := AggregateDay([]Sample{sampleAt(at(8, 0, 0), 9, 0)}, at(8, 0, 0))
	empty := DayBuckets{Day: at(15, 0, 0)}

	tests := []struct {
		name     string
		days     []DayBuckets
		expected float64
	}{
		{"no days", nil, 0},
		{"single day", []DayBuckets{busy}, 100},
		{"zero-value day still counts", []DayBuckets{busy, idle}, 50},
		{"day without samples is skipped", []DayBuckets{busy, empty}, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AverageTotal(tt.days); got != tt.expected {
				t.Errorf("AverageTotal() = %v, want %v", got, tt.expected)
			}
		})
	}

	// the hourly average ignores the idle day, the daily total does not
	if avg := AverageCumulative([]DayBuckets{busy, idle}); avg[23] != 100 {
		t.Errorf("AverageCumulative()[23] = %v, want 100", avg[23])
	}
}
