package timescale

import (
	"time"

	"github.com/large-farva/skyengine/internal/skyerr"
)

// Window is a half-open search interval [Start, End).
type Window struct {
	Start Instant
	End   Instant
}

// NewWindow validates and returns the window [start, end).
func NewWindow(start, end Instant) (Window, error) {
	if start.IsZero() || end.IsZero() {
		return Window{}, skyerr.New(skyerr.InvalidWindow, "window bounds must be set")
	}
	if !end.After(start) {
		return Window{}, skyerr.New(skyerr.InvalidWindow, "window end %s is not after start %s", end, start)
	}
	return Window{Start: start, End: end}, nil
}

// Days returns the window starting at start and spanning the given number of
// calendar days. The end is computed with calendar-safe date addition, so a
// window crossing a month end never produces an invalid date.
func Days(start Instant, days int) (Window, error) {
	if days <= 0 {
		return Window{}, skyerr.New(skyerr.InvalidWindow, "days must be > 0, got %d", days)
	}
	return NewWindow(start, start.AddDate(0, 0, days))
}

// Years returns the window starting at start and spanning whole calendar years.
func Years(start Instant, years int) (Window, error) {
	if years <= 0 {
		return Window{}, skyerr.New(skyerr.InvalidWindow, "years must be > 0, got %d", years)
	}
	return NewWindow(start, start.AddDate(years, 0, 0))
}

// Duration returns the length of the window.
func (w Window) Duration() time.Duration { return w.End.Sub(w.Start) }

// Contains reports whether in lies in [Start, End).
func (w Window) Contains(in Instant) bool {
	return !in.Before(w.Start) && in.Before(w.End)
}
