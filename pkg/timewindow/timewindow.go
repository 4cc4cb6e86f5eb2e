package timewindow

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrInvalidWindow is returned when a window does not start before it ends.
var ErrInvalidWindow = errors.New("invalid window: start must be before end")

// TimeWindow is a half-open interval [start, end). The zero value is not a
// valid window; use New.
type TimeWindow struct {
	start time.Time
	end   time.Time
}

// New builds a window, failing with ErrInvalidWindow when start >= end.
func New(start, end time.Time) (TimeWindow, error) {
	if !start.Before(end) {
		return TimeWindow{}, fmt.Errorf("%w (start %s, end %s)", ErrInvalidWindow,
			start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return TimeWindow{start: start, end: end}, nil
}

// MustNew is New for literals in tests and fixtures. It panics on error.
func MustNew(start, end time.Time) TimeWindow {
	w, err := New(start, end)
	if err != nil {
		panic(err)
	}
	return w
}

// Start returns the inclusive start instant.
func (w TimeWindow) Start() time.Time { return w.start }

// End returns the exclusive end instant.
func (w TimeWindow) End() time.Time { return w.end }

// IsZero reports whether w was never constructed.
func (w TimeWindow) IsZero() bool { return w.start.IsZero() && w.end.IsZero() }

// Duration returns end - start.
func (w TimeWindow) Duration() time.Duration { return w.end.Sub(w.start) }

// Hours calculates the duration of the window in hours
func (w TimeWindow) Hours() float64 { return w.Duration().Hours() }

// Equal reports whether both windows cover the same instants.
func (w TimeWindow) Equal(o TimeWindow) bool {
	return w.start.Equal(o.start) && w.end.Equal(o.end)
}

// Overlaps checks if two windows share any instant. Touching windows
// (a.End == b.Start) do not overlap so back-to-back jobs are allowed.
func Overlaps(a, b TimeWindow) bool {
	return a.start.Before(b.end) && b.start.Before(a.end)
}

// Overlaps is the method form of the package-level Overlaps.
func (w TimeWindow) Overlaps(o TimeWindow) bool { return Overlaps(w, o) }

// Contains reports whether instant t falls inside [start, end).
func Contains(w TimeWindow, t time.Time) bool {
	return !t.Before(w.start) && t.Before(w.end)
}

// Contains is the method form of the package-level Contains.
func (w TimeWindow) Contains(t time.Time) bool { return Contains(w, t) }

// Intersection returns the length of the shared part of a and b, zero when
// they do not overlap.
func Intersection(a, b TimeWindow) time.Duration {
	if !Overlaps(a, b) {
		return 0
	}
	start := a.start
	if b.start.After(start) {
		start = b.start
	}
	end := a.end
	if b.end.Before(end) {
		end = b.end
	}
	return end.Sub(start)
}

// Gap returns the idle time between two non-overlapping windows. It is zero
// for touching or overlapping windows.
func Gap(a, b TimeWindow) time.Duration {
	if Overlaps(a, b) {
		return 0
	}
	if !a.end.After(b.start) {
		return b.start.Sub(a.end)
	}
	return a.start.Sub(b.end)
}

// Extend widens the window by d on both sides.
func (w TimeWindow) Extend(d time.Duration) TimeWindow {
	return TimeWindow{start: w.start.Add(-d), end: w.end.Add(d)}
}

// Day returns the calendar day containing t, in t's location.
func Day(t time.Time) TimeWindow {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return TimeWindow{start: start, end: start.AddDate(0, 0, 1)}
}

func (w TimeWindow) String() string {
	return fmt.Sprintf("[%s, %s)", w.start.Format(time.RFC3339), w.end.Format(time.RFC3339))
}

type wireWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// MarshalJSON encodes the window as {"start": ..., "end": ...}.
func (w TimeWindow) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireWindow{Start: w.start, End: w.end})
}

// UnmarshalJSON decodes and validates a window.
func (w *TimeWindow) UnmarshalJSON(data []byte) error {
	var raw wireWindow
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := New(raw.Start, raw.End)
	if err != nil {
		return err
	}
	*w = parsed
	return nil
}
