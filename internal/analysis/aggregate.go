package analysis

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// HoursPerDay is the number of hourly buckets in a day.
const HoursPerDay = 24

// DayBuckets holds one calendar day's samples bucketed by start hour.
type DayBuckets struct {
	Day        time.Time // local midnight
	Hourly     [HoursPerDay]float64
	Cumulative [HoursPerDay]float64
	Total      float64
	Samples    int
	Latest     time.Time // latest sample end
}

// accumulate fills Cumulative and Total from Hourly. Empty hours carry the
// previous running total forward.
func (b *DayBuckets) accumulate() {
	var running float64
	for h := 0; h < HoursPerDay; h++ {
		running += b.Hourly[h]
		b.Cumulative[h] = running
	}
	b.Total = running
}

func (b *DayBuckets) add(s Sample, start time.Time) {
	b.Hourly[start.Hour()] += s.Value
	b.Samples++
	if s.End.After(b.Latest) {
		b.Latest = s.End
	}
}

// Aggregate partitions samples by the local calendar day of their start
// instant and returns per-day hourly and cumulative buckets sorted by day.
// When weekday is valid, days falling on other weekdays are dropped.
func Aggregate(samples []Sample, loc *time.Location, weekday Weekday) []DayBuckets {
	if loc == nil {
		loc = time.Local
	}

	byDay := make(map[string]*DayBuckets)
	for _, s := range samples {
		if !s.valid() {
			continue
		}
		start := s.Start.In(loc)
		if weekday.Valid() && WeekdayOf(start) != weekday {
			continue
		}

		key := start.Format("2006-01-02")
		b, ok := byDay[key]
		if !ok {
			b = &DayBuckets{Day: StartOfDay(start)}
			byDay[key] = b
		}
		b.add(s, start)
	}

	days := make([]DayBuckets, 0, len(byDay))
	for _, b := range byDay {
		b.accumulate()
		days = append(days, *b)
	}
	sort.Slice(days, func(i, j int) bool {
		return days[i].Day.Before(days[j].Day)
	})
	return days
}

// AggregateDay buckets the samples starting on the calendar day of day.
func AggregateDay(samples []Sample, day time.Time) DayBuckets {
	start := StartOfDay(day)
	end := StartOfNextDay(day)

	b := DayBuckets{Day: start}
	for _, s := range samples {
		if !s.valid() {
			continue
		}
		st := s.Start.In(day.Location())
		if st.Before(start) || !st.Before(end) {
			continue
		}
		b.add(s, st)
	}
	b.accumulate()
	return b
}

// AverageCumulative averages each hour's cumulative value across days.
//
// A day only contributes to an hour once its cumulative value there is
// strictly positive, so days with no activity yet do not pull the average
// toward zero. An hour nobody contributed to averages to 0.
func AverageCumulative(days []DayBuckets) [HoursPerDay]float64 {
	var avg [HoursPerDay]float64
	values := make([]float64, 0, len(days))
	for h := 0; h < HoursPerDay; h++ {
		values = values[:0]
		for _, d := range days {
			if d.Cumulative[h] > 0 {
				values = append(values, d.Cumulative[h])
			}
		}
		avg[h] = mean(values)
	}
	return avg
}

// AverageTotal is the mean full-day total across days with at least one sample.
func AverageTotal(days []DayBuckets) float64 {
	totals := make([]float64, 0, len(days))
	for _, d := range days {
		if d.Samples > 0 {
			totals = append(totals, d.Total)
		}
	}
	return mean(totals)
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return finiteOrZero(stat.Mean(values, nil))
}
