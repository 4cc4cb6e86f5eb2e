package scheduler

import (
	"time"

	"github.com/fieldops/dispatch-api/pkg/timewindow"
)

// Default policy values.
const (
	DefaultTravelBuffer     = 30 * time.Minute
	DefaultHighOverlapRatio = 0.5
)

// Config holds the scheduling policy knobs.
type Config struct {
	// TravelBuffer is the minimum gap required between jobs at different
	// locations before a LocationConflict is reported.
	TravelBuffer time.Duration
	// HighOverlapRatio is the share of either window's duration at or above
	// which a TimeOverlap becomes High instead of Medium.
	HighOverlapRatio float64
	// WorkloadPeriod returns the period in which committed windows are counted
	// to rank technicians. Defaults to the calendar day of the window start.
	WorkloadPeriod func(timewindow.TimeWindow) timewindow.TimeWindow
}

// DefaultConfig returns the default scheduling policy.
func DefaultConfig() Config {
	return Config{
		TravelBuffer:     DefaultTravelBuffer,
		HighOverlapRatio: DefaultHighOverlapRatio,
	}
}

func (c Config) withDefaults() Config {
	if c.TravelBuffer < 0 {
		c.TravelBuffer = 0
	}
	if c.HighOverlapRatio <= 0 || c.HighOverlapRatio > 1 {
		c.HighOverlapRatio = DefaultHighOverlapRatio
	}
	return c
}

// period returns the workload period for w, widened so it always covers w.
func (c Config) period(w timewindow.TimeWindow) timewindow.TimeWindow {
	var p timewindow.TimeWindow
	if c.WorkloadPeriod != nil {
		p = c.WorkloadPeriod(w)
	} else {
		p = timewindow.Day(w.Start())
	}
	return span(p, w)
}

// span returns the smallest window covering both a and b.
func span(a, b timewindow.TimeWindow) timewindow.TimeWindow {
	if a.IsZero() {
		return b
	}
	start, end := a.Start(), a.End()
	if b.Start().Before(start) {
		start = b.Start()
	}
	if b.End().After(end) {
		end = b.End()
	}
	return timewindow.MustNew(start, end)
}

// CalendarDayIn returns a WorkloadPeriod counting the calendar day of the
// window start in loc.
func CalendarDayIn(loc *time.Location) func(timewindow.TimeWindow) timewindow.TimeWindow {
	return func(w timewindow.TimeWindow) timewindow.TimeWindow {
		return timewindow.Day(w.Start().In(loc))
	}
}
