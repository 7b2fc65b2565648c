package orbit

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/akhenakh/sgp4"
	satellite "github.com/joshuaferrara/go-satellite"
	"github.com/soniakeys/meeus/v3/sidereal"

	"github.com/large-farva/skyengine/internal/frame"
	"github.com/large-farva/skyengine/internal/skyerr"
	"github.com/large-farva/skyengine/internal/timescale"
)

// Earth polar radius, km. A propagated radius below it means the orbit has
// decayed or the model diverged.
const minRadiusKm = 6356.752

// WGS-72 gravitational parameter, km³/s², matching the propagator.
const muKm3s2 = 398600.8

// Orbits with a period at or above this many minutes use the deep-space
// branch of the model.
const deepSpacePeriodMin = 225.0

// maxTrackPoints bounds a single ground-track request.
const maxTrackPoints = 2000

// StateVector is a TEME position (km) and velocity (km/s).
type StateVector struct {
	At       timescale.Instant
	Position frame.Vec3
	Velocity frame.Vec3
}

// Subpoint is the geodetic point directly beneath the satellite.
type Subpoint struct {
	Time       timescale.Instant `json:"time"`
	Latitude   float64           `json:"latitude"`
	Longitude  float64           `json:"longitude"`
	AltitudeKm float64           `json:"altitude_km"`
}

// Observation is a satellite seen from an observer.
type Observation struct {
	Subpoint
	Altitude   float64 `json:"observer_altitude"`
	Azimuth    float64 `json:"observer_azimuth"`
	DistanceKm float64 `json:"distance_km"`
	Visible    bool    `json:"visible"`
}

// Satellite is a parsed element set ready for SGP4/SDP4 propagation.
// Propagation does not mutate it; a Satellite is safe for concurrent use.
type Satellite struct {
	elems ElementSet
	sat   satellite.Satellite

	// nearEarth is a second model used only to detect decay, since
	// go-satellite reports its error code on a copy.
	nearEarth *sgp4.TLE
	// maxRadiusKm is the epoch apogee with margin. A propagated radius
	// beyond it means the model diverged after decay.
	maxRadiusKm float64
}

// Parse validates the element set and initializes the propagator.
func Parse(name, line1, line2 string) (*Satellite, error) {
	elems, err := ParseElements(name, line1, line2)
	if err != nil {
		return nil, err
	}
	return New(elems)
}

// New initializes the propagator for an already validated element set.
func New(elems ElementSet) (*Satellite, error) {
	if elems.MeanMotion <= 0 || elems.Eccentricity < 0 || elems.Eccentricity >= 1 {
		return nil, skyerr.New(skyerr.PropagationError, "%s: degenerate orbit (mean motion %v, eccentricity %v)", elems.Name, elems.MeanMotion, elems.Eccentricity)
	}
	sat := satellite.TLEToSat(elems.Line1, elems.Line2, satellite.GravityWGS72)
	if sat.Error != 0 {
		return nil, skyerr.New(skyerr.PropagationError, "sgp4 init for %s: code %d %s", elems.Name, sat.Error, sat.ErrorStr)
	}

	s := &Satellite{elems: elems, sat: sat}
	a := semiMajorAxisKm(elems.MeanMotion)
	s.maxRadiusKm = a*(1+elems.Eccentricity)*1.25 + 500

	if 1440/elems.MeanMotion < deepSpacePeriodMin {
		label := elems.Name
		if label == "" {
			label = "UNKNOWN"
		}
		tle, err := sgp4.ParseTLE(label + "\n" + elems.Line1 + "\n" + elems.Line2)
		if err != nil {
			return nil, skyerr.Wrap(skyerr.MalformedElementSet, err, "parse %s", elems.Name)
		}
		s.nearEarth = tle
	}
	return s, nil
}

// semiMajorAxisKm derives the semi-major axis from a mean motion in
// revolutions per day.
func semiMajorAxisKm(revPerDay float64) float64 {
	n := revPerDay * 2 * math.Pi / 86400
	return math.Cbrt(muKm3s2 / (n * n))
}

// Elements returns the element set the satellite was built from.
func (s *Satellite) Elements() ElementSet { return s.elems }

// Name returns the satellite name.
func (s *Satellite) Name() string { return s.elems.Name }

// Propagate returns the TEME state at in.
func (s *Satellite) Propagate(in timescale.Instant) (StateVector, error) {
	utc := in.UTC()
	whole := utc.Truncate(time.Second)
	frac := utc.Sub(whole).Seconds()

	y, mo, d := whole.Date()
	h, mi, sec := whole.Clock()
	pos, vel := satellite.Propagate(s.sat, y, int(mo), d, h, mi, sec)

	// The library works in whole seconds; carry the remainder linearly.
	sv := StateVector{
		At:       in,
		Position: frame.Vec3{X: pos.X + vel.X*frac, Y: pos.Y + vel.Y*frac, Z: pos.Z + vel.Z*frac},
		Velocity: frame.Vec3{X: vel.X, Y: vel.Y, Z: vel.Z},
	}
	if !finite(sv.Position) || !finite(sv.Velocity) {
		return StateVector{}, skyerr.New(skyerr.PropagationError, "%s at %s: non-finite state", s.elems.Name, in)
	}
	r := sv.Position.Norm()
	if r < minRadiusKm {
		return StateVector{}, skyerr.New(skyerr.PropagationError, "%s at %s: radius %.1f km is below the surface", s.elems.Name, in, r)
	}
	if r > s.maxRadiusKm {
		return StateVector{}, skyerr.New(skyerr.PropagationError, "%s at %s: radius %.1f km beyond apogee, orbit has decayed", s.elems.Name, in, r)
	}
	if s.nearEarth != nil {
		if err := s.checkNearEarth(utc); err != nil {
			return StateVector{}, skyerr.Wrap(skyerr.PropagationError, err, "%s at %s", s.elems.Name, in)
		}
	}
	return sv, nil
}

// checkNearEarth runs the near-Earth model at t and reports decay or a
// model limit violation.
func (s *Satellite) checkNearEarth(t time.Time) error {
	_, err := s.nearEarth.FindPositionAtTime(t)
	var (
		decayed *sgp4.SatelliteDecayedError
		limits  *sgp4.SGP4ModelLimitsError
	)
	switch {
	case err == nil:
		return nil
	case errors.As(err, &decayed):
		return fmt.Errorf("decayed %.1f min after epoch: %w", decayed.Tsince, err)
	case errors.As(err, &limits):
		return fmt.Errorf("model limits exceeded (%s): %w", limits.Reason, err)
	}
	return err
}

// Subpoint returns the ground point beneath the satellite at in.
func (s *Satellite) Subpoint(in timescale.Instant) (Subpoint, error) {
	sv, err := s.Propagate(in)
	if err != nil {
		return Subpoint{}, err
	}
	return subpoint(sv, gmst(in)), nil
}

// Observe returns the subpoint and the observer-relative direction at in.
func (s *Satellite) Observe(in timescale.Instant, f frame.Frame) (Observation, error) {
	sv, err := s.Propagate(in)
	if err != nil {
		return Observation{}, err
	}
	g := gmst(in)
	look := f.LookAngles(temeToECEF(sv.Position, g))
	return Observation{
		Subpoint:   subpoint(sv, g),
		Altitude:   look.Altitude,
		Azimuth:    look.Azimuth,
		DistanceKm: look.RangeKm,
		Visible:    look.Altitude > 0,
	}, nil
}

// GroundTrack samples the subpoint every step across w.
func (s *Satellite) GroundTrack(w timescale.Window, step time.Duration) ([]Subpoint, error) {
	if step <= 0 {
		return nil, skyerr.New(skyerr.InvalidWindow, "ground track step must be positive")
	}
	n := int(w.Duration()/step) + 1
	if n > maxTrackPoints {
		return nil, skyerr.New(skyerr.InvalidWindow, "ground track of %d points exceeds %d", n, maxTrackPoints)
	}
	out := make([]Subpoint, 0, n)
	for t := w.Start; t.Before(w.End); t = t.Add(step) {
		p, err := s.Subpoint(t)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// altitude is the observer elevation angle alone, the pass search
// evaluation function.
func (s *Satellite) altitude(in timescale.Instant, f frame.Frame) (frame.Look, error) {
	sv, err := s.Propagate(in)
	if err != nil {
		return frame.Look{}, err
	}
	return f.LookAngles(temeToECEF(sv.Position, gmst(in))), nil
}

func gmst(in timescale.Instant) float64 {
	return sidereal.Mean(in.JD()).Rad()
}

// temeToECEF rotates a TEME vector about the pole by GMST. Polar motion is
// ignored.
func temeToECEF(p frame.Vec3, g float64) frame.Vec3 {
	sinG, cosG := math.Sincos(g)
	return frame.Vec3{
		X: p.X*cosG + p.Y*sinG,
		Y: -p.X*sinG + p.Y*cosG,
		Z: p.Z,
	}
}

func subpoint(sv StateVector, g float64) Subpoint {
	alt, _, ll := satellite.ECIToLLA(satellite.Vector3{X: sv.Position.X, Y: sv.Position.Y, Z: sv.Position.Z}, g)
	return Subpoint{
		Time:       sv.At,
		Latitude:   ll.Latitude * 180 / math.Pi,
		Longitude:  frame.WrapLongitude(ll.Longitude * 180 / math.Pi),
		AltitudeKm: alt,
	}
}

func finite(v frame.Vec3) bool {
	for _, c := range []float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
