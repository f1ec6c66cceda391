package analysis

import (
	"fmt"
	"time"
)

// Freshness decides how today's curve is displayed.
type Freshness int

const (
	// Fresh means the latest sample is within tolerance of now.
	Fresh Freshness = iota
	// Delayed means today has data, but it lags now. Show today's curve up
	// to the latest sample and surface the gap.
	Delayed
	// StaleOtherDay means there is no sample from today. Only the average
	// and projection are shown.
	StaleOtherDay
	// Unauthorized means the data source refused read access.
	Unauthorized
)

// DefaultFreshnessTolerance is the lag below which data still counts as fresh.
const DefaultFreshnessTolerance = 5 * time.Minute

var freshnessNames = map[Freshness]string{
	Fresh:         "fresh",
	Delayed:       "delayed",
	StaleOtherDay: "stale_other_day",
	Unauthorized:  "unauthorized",
}

func (f Freshness) String() string {
	if name, ok := freshnessNames[f]; ok {
		return name
	}
	return fmt.Sprintf("freshness(%d)", int(f))
}

// MarshalText encodes the freshness by name.
func (f Freshness) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText decodes a name produced by MarshalText.
func (f *Freshness) UnmarshalText(text []byte) error {
	for k, v := range freshnessNames {
		if v == string(text) {
			*f = k
			return nil
		}
	}
	return fmt.Errorf("unknown freshness %q", text)
}

// ShowsToday reports whether today's curve should be displayed.
func (f Freshness) ShowsToday() bool {
	return f == Fresh || f == Delayed
}

// Classify compares the latest sample timestamp against now. A zero latest
// means there is no sample at all.
func Classify(authorized bool, latest, now time.Time, tolerance time.Duration) Freshness {
	if !authorized {
		return Unauthorized
	}
	if latest.IsZero() || !SameDay(latest, now) {
		return StaleOtherDay
	}
	if tolerance < 0 {
		tolerance = 0
	}
	if now.Sub(latest) > tolerance {
		return Delayed
	}
	return Fresh
}
