package analysis

import "time"

// DefaultLookbackDays covers at least ten occurrences of every weekday even
// with a few missing days.
const DefaultLookbackDays = 70

// ProjectionOptions tunes Project.
type ProjectionOptions struct {
	LookbackDays int
	// Weekday overrides the weekday derived from now. The average curve is
	// then laid over the next occurrence of that weekday, today included.
	Weekday Weekday
}

// Projection is the result of one engine run.
type Projection struct {
	TodayTotal     float64
	Today          DailySeries
	Average        AverageSeries
	ProjectedTotal float64
	AverageAtNow   float64
	LatestSample   time.Time // zero when today has no samples
	Weekday        Weekday
}

// Project turns raw samples into today's running total, the historical
// same-weekday average curve and the projected full-day total.
func Project(samples []Sample, now time.Time, opts ProjectionOptions) Projection {
	lookback := opts.LookbackDays
	if lookback <= 0 {
		lookback = DefaultLookbackDays
	}
	weekday := opts.Weekday
	if !weekday.Valid() {
		weekday = WeekdayOf(now)
	}

	dayStart := StartOfDay(now)
	histStart := dayStart.AddDate(0, 0, -lookback)

	var today, history []Sample
	for _, s := range samples {
		switch {
		case !s.Start.Before(dayStart) && !s.Start.After(now):
			today = append(today, s)
		case !s.Start.Before(histStart) && s.Start.Before(dayStart):
			history = append(history, s)
		}
	}

	p := Projection{Weekday: weekday}
	p.Today, p.LatestSample = TodaySeries(today, now)
	p.TodayTotal = p.Today.Total()

	days := Aggregate(history, now.Location(), weekday)
	p.ProjectedTotal = AverageTotal(days)
	p.Average = BuildAverageSeries(anchorDay(dayStart, weekday), AverageCumulative(days), p.ProjectedTotal, now)
	p.Average.DaysSampled = len(days)

	if v, ok := InterpolatedValue(p.Average.Points, now); ok {
		p.AverageAtNow = v
	}
	return p
}

// TodaySeries builds the running-total curve for the day of now from samples
// started no later than now. It returns the series and the latest sample end.
func TodaySeries(samples []Sample, now time.Time) (DailySeries, time.Time) {
	dayStart := StartOfDay(now)

	var latest time.Time
	upToNow := make([]Sample, 0, len(samples))
	for _, s := range samples {
		if !s.valid() || s.Start.After(now) {
			continue
		}
		upToNow = append(upToNow, s)
	}
	b := AggregateDay(upToNow, now)
	if b.Samples > 0 {
		latest = b.Latest
	}

	current := now.Hour()
	points := make([]HourPoint, 0, current+2)
	points = append(points, HourPoint{Time: dayStart})
	for h := 0; h < current; h++ {
		points = append(points, HourPoint{Time: hourEnd(dayStart, h), Value: b.Cumulative[h]})
	}

	running := b.Cumulative[current]
	if (HourPoint{Time: now}).IsOnHour() {
		if len(points) > 1 {
			points[len(points)-1].Value = running
		}
	} else {
		points = append(points, HourPoint{Time: now, Value: running})
	}

	return DailySeries{Day: dayStart, Points: points}, latest
}

// BuildAverageSeries lays hourly average cumulative values over day: a
// leading (midnight, 0) point, one point per hour end for hours 0..22 and a
// single end-of-day point holding projected. A "now" point is added when
// now falls inside day.
func BuildAverageSeries(day time.Time, hourly [HoursPerDay]float64, projected float64, now time.Time) AverageSeries {
	start := StartOfDay(day)
	projected = finiteOrZero(projected)

	points := make([]HourPoint, 0, HoursPerDay+2)
	points = append(points, HourPoint{Time: start})
	for h := 0; h < HoursPerDay-1; h++ {
		points = append(points, HourPoint{Time: hourEnd(start, h), Value: finiteOrZero(hourly[h])})
	}
	points = append(points, HourPoint{Time: StartOfNextDay(start), Value: projected})

	s := AverageSeries{Day: start, Points: points, ProjectedTotal: projected}
	return s.WithNowPoint(now)
}

func anchorDay(dayStart time.Time, weekday Weekday) time.Time {
	diff := (int(weekday) - int(WeekdayOf(dayStart)) + 7) % 7
	return dayStart.AddDate(0, 0, diff)
}
