package eclipse

import (
	"math"
	"time"

	"github.com/large-farva/skyengine/internal/timescale"
)

const (
	// NewMoon and FullMoon are the Moon-Sun elongations of the two phases
	// the eclipse searches need.
	NewMoon  = 0.0
	FullMoon = 180.0

	phaseScanStep = 24 * time.Hour
	phaseTol      = time.Second
)

// PhaseEvent is a named lunar phase instant.
type PhaseEvent struct {
	Type        string            `json:"type"`
	Time        timescale.Instant `json:"date"`
	Description string            `json:"description"`
}

// elongation returns the Moon's apparent ecliptic longitude minus the Sun's,
// less target, wrapped into [-180, 180).
func (s *Searcher) elongation(in timescale.Instant, target float64) float64 {
	jde := in.JDE()
	d := s.ds.Moon(jde).Lon.Deg() - s.ds.Sun(jde).Lon.Deg() - target
	d = math.Mod(d+180, 360)
	if d < 0 {
		d += 360
	}
	return d - 180
}

// Phases returns every instant in w at which the Moon-Sun elongation crosses
// target degrees, in time order. The function is sampled daily and each
// crossing is refined by bisection to one second.
func (s *Searcher) Phases(w timescale.Window, target float64) []timescale.Instant {
	var out []timescale.Instant
	prevT := w.Start
	prev := s.elongation(prevT, target)
	for t := w.Start.Add(phaseScanStep); ; t = t.Add(phaseScanStep) {
		if t.After(w.End) {
			t = w.End
		}
		cur := s.elongation(t, target)
		// Elongation grows about 12 degrees a day, so a genuine crossing is
		// a small negative to small positive step; the wrap at ±180 is not.
		if prev < 0 && cur >= 0 && cur-prev < 90 {
			out = append(out, s.refinePhase(prevT, t, target))
		}
		if !t.Before(w.End) {
			break
		}
		prevT, prev = t, cur
	}
	return out
}

func (s *Searcher) refinePhase(lo, hi timescale.Instant, target float64) timescale.Instant {
	for hi.Sub(lo) > phaseTol {
		mid := lo.Add(hi.Sub(lo) / 2)
		if s.elongation(mid, target) < 0 {
			lo = mid
		} else {
			hi = mid
		}
	}
	return lo.Add(hi.Sub(lo) / 2)
}

// NextPhases returns the first full moon and the first new moon after in,
// earliest first.
func (s *Searcher) NextPhases(in timescale.Instant) []PhaseEvent {
	// One synodic month plus margin always contains both phases.
	w := timescale.Window{Start: in, End: in.Add(31 * 24 * time.Hour)}
	var out []PhaseEvent
	if fm := s.Phases(w, FullMoon); len(fm) > 0 {
		out = append(out, PhaseEvent{Type: "Full Moon", Time: fm[0], Description: "Next full moon"})
	}
	if nm := s.Phases(w, NewMoon); len(nm) > 0 {
		out = append(out, PhaseEvent{Type: "New Moon", Time: nm[0], Description: "Next new moon"})
	}
	if len(out) == 2 && out[1].Time.Before(out[0].Time) {
		out[0], out[1] = out[1], out[0]
	}
	return out
}

func secondsDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
