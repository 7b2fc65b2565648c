package eclipse

import (
	"fmt"
	"math"
	"time"

	"github.com/soniakeys/unit"

	"github.com/large-farva/skyengine/internal/ephemeris"
	"github.com/large-farva/skyengine/internal/timescale"
)

const (
	sunRadiusKm  = 696000.0
	moonRadiusKm = 1737.4

	// shadowEnlargement widens the geometric shadow for the Earth's
	// atmosphere.
	shadowEnlargement = 1.02

	// greatest eclipse lies within a few hours of the opposition instant
	refineHalfSpan = 6 * time.Hour
	refineTolSecs  = 1.0
)

// LunarResult lists the lunar eclipses found in a window.
type LunarResult struct {
	Eclipses []Event `json:"eclipses"`
}

// shadow is the Earth's shadow geometry at one instant, all in degrees.
type shadow struct {
	dist     float64 // Moon center to shadow axis
	umbra    float64 // umbral radius at the Moon's distance
	penumbra float64 // penumbral radius
	moonRad  float64 // lunar semi-diameter
}

func (s *Searcher) shadowAt(in timescale.Instant) shadow {
	jde := in.JDE()
	sun := s.ds.Sun(jde)
	moon := s.ds.Moon(jde)

	axisRA := unit.RA(sun.RA.Rad() + math.Pi)
	axisDec := -sun.Dec

	πm := ephemeris.ParallaxDeg(moon.DistanceKm)
	πs := ephemeris.ParallaxDeg(sun.DistanceKm)
	ss := math.Asin(sunRadiusKm/sun.DistanceKm) * 180 / math.Pi

	return shadow{
		dist:     separation(moon.RA, moon.Dec, axisRA, axisDec),
		umbra:    shadowEnlargement * (πm + πs - ss),
		penumbra: shadowEnlargement * (πm + πs + ss),
		moonRad:  math.Asin(moonRadiusKm/moon.DistanceKm) * 180 / math.Pi,
	}
}

// Lunar finds every full moon in w, refines it to the instant of least
// distance between the Moon and the shadow axis, and classifies the
// eclipse by how deep the Moon enters the shadow. Full moons that miss the
// penumbra produce no event.
func (s *Searcher) Lunar(w timescale.Window) LunarResult {
	res := LunarResult{Eclipses: []Event{}}
	for _, fm := range s.Phases(w, FullMoon) {
		best := minimize(fm.Add(-refineHalfSpan), fm.Add(refineHalfSpan), refineTolSecs, func(t timescale.Instant) float64 {
			return s.shadowAt(t).dist
		})
		sh := s.shadowAt(best)

		penMag := (sh.penumbra + sh.moonRad - sh.dist) / (2 * sh.moonRad)
		if penMag <= 0 {
			continue
		}
		umbMag := (sh.umbra + sh.moonRad - sh.dist) / (2 * sh.moonRad)

		cat := Penumbral
		switch {
		case umbMag >= 1:
			cat = Total
		case umbMag > 0:
			cat = Partial
		}
		res.Eclipses = append(res.Eclipses, Event{
			Time:               best,
			Kind:               Lunar,
			Type:               cat,
			Description:        lunarDescription(cat, umbMag, penMag),
			Note:               "Visible from the night side of the Earth",
			UmbralMagnitude:    &umbMag,
			PenumbralMagnitude: &penMag,
		})
	}
	return res
}

func lunarDescription(cat Category, umb, pen float64) string {
	switch cat {
	case Total:
		return fmt.Sprintf("Total lunar eclipse, umbral magnitude %.3f", umb)
	case Partial:
		return fmt.Sprintf("Partial lunar eclipse, umbral magnitude %.3f", umb)
	}
	return fmt.Sprintf("Penumbral lunar eclipse, penumbral magnitude %.3f", pen)
}
