package orbit

import (
	"math"
	"time"

	"github.com/large-farva/skyengine/internal/frame"
	"github.com/large-farva/skyengine/internal/timescale"
)

const (
	// DefaultMinAltitude is the rise/set threshold of DefaultPassOptions.
	DefaultMinAltitude = 10.0
	// DefaultMaxPasses caps a single search. The cap bounds the work done
	// per request; it does not mean later passes do not exist.
	DefaultMaxPasses = 20

	coarseStep = 30 * time.Second
	resolution = time.Second
)

// PassOptions tunes FindPasses. MinAltitude is taken literally, so zero is
// the geometric horizon; MaxPasses <= 0 takes DefaultMaxPasses.
type PassOptions struct {
	MinAltitude float64 // degrees; rise and set are crossings of this altitude
	MaxPasses   int
}

// DefaultPassOptions returns a 10 degree threshold and the default cap.
func DefaultPassOptions() PassOptions {
	return PassOptions{MinAltitude: DefaultMinAltitude, MaxPasses: DefaultMaxPasses}
}

func (o PassOptions) withDefaults() PassOptions {
	if o.MaxPasses <= 0 {
		o.MaxPasses = DefaultMaxPasses
	}
	return o
}

// PassEvent is one complete rise, culmination and set.
type PassEvent struct {
	RiseTime     timescale.Instant `json:"rise_time"`
	RiseAzimuth  float64           `json:"rise_azimuth"`
	MaxTime      timescale.Instant `json:"max_time"`
	MaxAltitude  float64           `json:"max_altitude"`
	MaxAzimuth   float64           `json:"max_azimuth"`
	SetTime      timescale.Instant `json:"set_time"`
	SetAzimuth   float64           `json:"set_azimuth"`
	DurationSecs float64           `json:"duration_seconds"`
}

// PassResult holds the passes found in time order. Truncated is set when
// MaxPasses was reached and at least one more complete pass exists in the
// window.
type PassResult struct {
	Passes    []PassEvent `json:"passes"`
	Truncated bool        `json:"truncated"`
}

// FindPasses walks w and returns every fully bracketed pass above
// opts.MinAltitude. A pass already in progress at w.Start, or still in
// progress at w.End, is dropped.
//
// The altitude is sampled every 30 s; crossings are refined by bisection to
// one second and the culmination by golden-section search. Passes shorter
// than the sampling step may be missed.
func (s *Satellite) FindPasses(f frame.Frame, w timescale.Window, opts PassOptions) (PassResult, error) {
	opts = opts.withDefaults()
	res := PassResult{Passes: []PassEvent{}}

	above := func(t timescale.Instant) (bool, frame.Look, error) {
		look, err := s.altitude(t, f)
		if err != nil {
			return false, look, err
		}
		return look.Altitude >= opts.MinAltitude, look, nil
	}

	prevT := w.Start
	prevUp, _, err := above(prevT)
	if err != nil {
		return PassResult{}, err
	}
	// A window that opens mid-pass waits for the satellite to set first.
	skipping := prevUp

	var rise timescale.Instant
	var riseAz float64
	inPass := false

	for t := w.Start.Add(coarseStep); ; t = t.Add(coarseStep) {
		if !t.Before(w.End) {
			t = w.End
		}
		up, _, err := above(t)
		if err != nil {
			return PassResult{}, err
		}

		switch {
		case up && !prevUp:
			tr, err := s.bisect(f, opts.MinAltitude, prevT, t, true)
			if err != nil {
				return PassResult{}, err
			}
			_, look, err := above(tr)
			if err != nil {
				return PassResult{}, err
			}
			rise, riseAz, inPass, skipping = tr, look.Azimuth, true, false

		case !up && prevUp && inPass:
			ts, err := s.bisect(f, opts.MinAltitude, prevT, t, false)
			if err != nil {
				return PassResult{}, err
			}
			inPass = false
			if !ts.After(rise) {
				break
			}
			if len(res.Passes) == opts.MaxPasses {
				res.Truncated = true
				return res, nil
			}
			ev, err := s.culminate(f, rise, ts)
			if err != nil {
				return PassResult{}, err
			}
			_, setLook, err := above(ts)
			if err != nil {
				return PassResult{}, err
			}
			ev.RiseTime, ev.RiseAzimuth = rise, riseAz
			ev.SetTime, ev.SetAzimuth = ts, setLook.Azimuth
			ev.DurationSecs = ts.Sub(rise).Seconds()
			res.Passes = append(res.Passes, ev)

		case !up && skipping:
			skipping = false
		}

		prevT, prevUp = t, up
		if !t.Before(w.End) {
			break
		}
	}
	return res, nil
}

// bisect narrows a threshold crossing between lo and hi to one second. For a
// rise it returns the first bracketed instant above the threshold, for a set
// the last one, so both ends of a pass are above it.
func (s *Satellite) bisect(f frame.Frame, minAlt float64, lo, hi timescale.Instant, rising bool) (timescale.Instant, error) {
	for hi.Sub(lo) > resolution {
		mid := lo.Add(hi.Sub(lo) / 2)
		look, err := s.altitude(mid, f)
		if err != nil {
			return timescale.Instant{}, err
		}
		if (look.Altitude >= minAlt) == rising {
			hi = mid
		} else {
			lo = mid
		}
	}
	if rising {
		return hi, nil
	}
	return lo, nil
}

var invPhi = (math.Sqrt(5) - 1) / 2

// culminate finds the altitude maximum strictly between rise and set.
func (s *Satellite) culminate(f frame.Frame, rise, set timescale.Instant) (PassEvent, error) {
	alt := func(t timescale.Instant) (float64, error) {
		look, err := s.altitude(t, f)
		return look.Altitude, err
	}

	a, b := rise, set
	c := b.Add(-time.Duration(float64(b.Sub(a)) * invPhi))
	d := a.Add(time.Duration(float64(b.Sub(a)) * invPhi))
	fc, err := alt(c)
	if err != nil {
		return PassEvent{}, err
	}
	fd, err := alt(d)
	if err != nil {
		return PassEvent{}, err
	}
	for b.Sub(a) > resolution {
		if fc > fd {
			b, d, fd = d, c, fc
			c = b.Add(-time.Duration(float64(b.Sub(a)) * invPhi))
			if fc, err = alt(c); err != nil {
				return PassEvent{}, err
			}
		} else {
			a, c, fc = c, d, fd
			d = a.Add(time.Duration(float64(b.Sub(a)) * invPhi))
			if fd, err = alt(d); err != nil {
				return PassEvent{}, err
			}
		}
	}

	peak := a.Add(b.Sub(a) / 2)
	look, err := s.altitude(peak, f)
	if err != nil {
		return PassEvent{}, err
	}
	return PassEvent{
		MaxTime:     peak,
		MaxAltitude: look.Altitude,
		MaxAzimuth:  look.Azimuth,
	}, nil
}
