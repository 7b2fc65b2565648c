package bodies

import (
	"fmt"
	"math"

	"github.com/soniakeys/meeus/v3/illum"
	"github.com/soniakeys/unit"
	"golang.org/x/sync/errgroup"

	"github.com/large-farva/skyengine/internal/ephemeris"
	"github.com/large-farva/skyengine/internal/frame"
	"github.com/large-farva/skyengine/internal/timescale"
)

const sunMagnitude = -26.74

// ApparentPosition is a body's place in the observer's sky. Visible means
// only that the body is above the geometric horizon: refraction and local
// obstructions are not modelled.
type ApparentPosition struct {
	Name       string   `json:"name"`
	Altitude   float64  `json:"altitude"`
	Azimuth    float64  `json:"azimuth"`
	RA         float64  `json:"ra"`
	Dec        float64  `json:"dec"`
	DistanceKm *float64 `json:"distance_km,omitempty"`
	Magnitude  *float64 `json:"magnitude"`
	Visible    bool     `json:"visible"`
}

// Solver places bodies for an observer. It holds only the read-only dataset
// and is safe for concurrent use.
type Solver struct {
	ds *ephemeris.Dataset
}

func NewSolver(ds *ephemeris.Dataset) *Solver {
	return &Solver{ds: ds}
}

// PositionOf returns the apparent position of b at in for the observer f.
func (s *Solver) PositionOf(b Body, in timescale.Instant, f frame.Frame) (ApparentPosition, error) {
	var (
		ra   unit.RA
		dec  unit.Angle
		dist *float64
		mag  *float64
	)
	jde := in.JDE()

	switch b := b.(type) {
	case FixedStar:
		ra, dec = b.RA, b.Dec
		mag = ptr(b.Magnitude)
	case MajorBody:
		switch b.kind {
		case kindSun:
			g := s.ds.Sun(jde)
			ra, dec = g.RA, g.Dec
			dist = ptr(g.DistanceKm)
			mag = ptr(sunMagnitude)
		case kindMoon:
			g := s.ds.Moon(jde)
			ra, dec = g.RA, g.Dec
			dist = ptr(g.DistanceKm)
			mag = ptr(moonMagnitude(s.ds.MoonPhaseAngle(jde)))
		default:
			g, err := s.ds.Planet(b.planet, jde)
			if err != nil {
				return ApparentPosition{}, fmt.Errorf("%s: %w", b.name, err)
			}
			ra, dec = g.RA, g.Dec
			dist = ptr(g.DistanceKm)
			mag = ptr(planetMagnitude(b.planet, g))
		}
	default:
		return ApparentPosition{}, fmt.Errorf("unsupported body %T", b)
	}

	h := f.Horizontal(ra, dec, in)
	return ApparentPosition{
		Name:       b.Name(),
		Altitude:   h.Altitude,
		Azimuth:    h.Azimuth,
		RA:         frame.NormalizeDegrees(ra.Deg()),
		Dec:        dec.Deg(),
		DistanceKm: dist,
		Magnitude:  mag,
		Visible:    h.Altitude > 0,
	}, nil
}

// PositionsOf computes each body independently and returns the results in
// input order. The first failure aborts the batch.
func (s *Solver) PositionsOf(bs []Body, in timescale.Instant, f frame.Frame) ([]ApparentPosition, error) {
	out := make([]ApparentPosition, len(bs))
	var g errgroup.Group
	for i, b := range bs {
		g.Go(func() error {
			p, err := s.PositionOf(b, in, f)
			if err != nil {
				return err
			}
			out[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// VisibleStars returns the catalog stars above the horizon, in catalog order.
func (s *Solver) VisibleStars(in timescale.Instant, f frame.Frame) []ApparentPosition {
	var out []ApparentPosition
	for _, st := range starCatalog {
		p, err := s.PositionOf(st, in, f)
		if err != nil || !p.Visible {
			continue
		}
		out = append(out, p)
	}
	return out
}

// moonMagnitude is the Allen photometric fit for the Moon at phase angle i
// degrees.
func moonMagnitude(i float64) float64 {
	i = math.Abs(i)
	return -12.73 + 0.026*i + 4e-9*i*i*i*i
}

func planetMagnitude(p ephemeris.Planet, g ephemeris.PlanetGeometry) float64 {
	r, Δ, i := g.SunDist, g.EarthDist, g.Phase
	switch p {
	case ephemeris.Mercury:
		return illum.Mercury(r, Δ, i)
	case ephemeris.Venus:
		return illum.Venus(r, Δ, i)
	case ephemeris.Mars:
		return illum.Mars(r, Δ, i)
	case ephemeris.Jupiter:
		return illum.Jupiter84(r, Δ, i)
	case ephemeris.Saturn:
		return illum.Saturn(r, Δ, g.RingTilt, g.RingΔU)
	case ephemeris.Uranus:
		return illum.Uranus(r, Δ)
	case ephemeris.Neptune:
		return illum.Neptune(r, Δ)
	}
	return math.NaN()
}

func ptr(v float64) *float64 { return &v }
