// Package bodies computes observer-relative apparent positions of the Sun,
// the Moon, the planets and a small catalog of bright stars.
package bodies

import (
	"strings"

	"github.com/soniakeys/unit"

	"github.com/large-farva/skyengine/internal/ephemeris"
)

// Body is a celestial target the Solver can place. It is implemented only by
// MajorBody and FixedStar.
type Body interface {
	Name() string
	body()
}

type majorKind int

const (
	kindSun majorKind = iota
	kindMoon
	kindPlanet
)

// MajorBody is a Solar System body served by the ephemeris dataset.
type MajorBody struct {
	name   string
	kind   majorKind
	planet ephemeris.Planet
}

func (b MajorBody) Name() string { return b.name }
func (MajorBody) body()          {}

// FixedStar is a catalog star. Positions are J2000 catalog values with no
// proper motion or precession applied.
type FixedStar struct {
	StarName  string
	RA        unit.RA
	Dec       unit.Angle
	Magnitude float64
}

func (s FixedStar) Name() string { return s.StarName }
func (FixedStar) body()          {}

var (
	Sun     = MajorBody{name: "Sun", kind: kindSun}
	Moon    = MajorBody{name: "Moon", kind: kindMoon}
	Mercury = MajorBody{name: "Mercury", kind: kindPlanet, planet: ephemeris.Mercury}
	Venus   = MajorBody{name: "Venus", kind: kindPlanet, planet: ephemeris.Venus}
	Mars    = MajorBody{name: "Mars", kind: kindPlanet, planet: ephemeris.Mars}
	Jupiter = MajorBody{name: "Jupiter", kind: kindPlanet, planet: ephemeris.Jupiter}
	Saturn  = MajorBody{name: "Saturn", kind: kindPlanet, planet: ephemeris.Saturn}
	Uranus  = MajorBody{name: "Uranus", kind: kindPlanet, planet: ephemeris.Uranus}
	Neptune = MajorBody{name: "Neptune", kind: kindPlanet, planet: ephemeris.Neptune}
)

func star(name string, raDeg, decDeg, mag float64) FixedStar {
	return FixedStar{
		StarName:  name,
		RA:        unit.RAFromDeg(raDeg),
		Dec:       unit.AngleFromDeg(decDeg),
		Magnitude: mag,
	}
}

// The fifteen brightest stars, brightest first.
var starCatalog = []FixedStar{
	star("Sirius", 101.287, -16.716, -1.46),
	star("Canopus", 95.988, -52.696, -0.74),
	star("Arcturus", 213.915, 19.182, -0.05),
	star("Vega", 279.234, 38.783, 0.03),
	star("Capella", 79.172, 45.998, 0.08),
	star("Rigel", 78.634, -8.202, 0.13),
	star("Procyon", 114.825, 5.225, 0.38),
	star("Betelgeuse", 88.793, 7.407, 0.50),
	star("Altair", 297.696, 8.868, 0.77),
	star("Aldebaran", 68.980, 16.509, 0.85),
	star("Spica", 201.298, -11.161, 0.98),
	star("Antares", 247.352, -26.432, 1.09),
	star("Pollux", 116.329, 28.026, 1.14),
	star("Deneb", 310.358, 45.280, 1.25),
	star("Regulus", 152.093, 11.967, 1.35),
}

// Planets returns the Solar System set reported by the planet listing:
// the seven planets, then the Moon and the Sun.
func Planets() []Body {
	return []Body{Mercury, Venus, Mars, Jupiter, Saturn, Uranus, Neptune, Moon, Sun}
}

// Stars returns a copy of the star catalog.
func Stars() []FixedStar {
	out := make([]FixedStar, len(starCatalog))
	copy(out, starCatalog)
	return out
}

// Lookup resolves a body by name, case-insensitively.
func Lookup(name string) (Body, bool) {
	n := strings.TrimSpace(name)
	for _, b := range Planets() {
		if strings.EqualFold(b.Name(), n) {
			return b, true
		}
	}
	for _, s := range starCatalog {
		if strings.EqualFold(s.StarName, n) {
			return s, true
		}
	}
	return nil, false
}
