// Package eclipse searches time windows for lunar phases, lunar eclipses
// and geocentric solar eclipse candidates.
package eclipse

import (
	"math"

	"github.com/soniakeys/unit"

	"github.com/large-farva/skyengine/internal/ephemeris"
	"github.com/large-farva/skyengine/internal/timescale"
)

// Category is the closed set of eclipse classifications.
type Category string

const (
	Penumbral      Category = "Penumbral"
	Partial        Category = "Partial"
	Total          Category = "Total"
	TotalOrAnnular Category = "Total/Annular"
)

// Kind tells lunar and solar events apart.
type Kind string

const (
	Lunar Kind = "lunar"
	Solar Kind = "solar"
)

// Event is one detected eclipse.
type Event struct {
	Time        timescale.Instant `json:"datetime"`
	Kind        Kind              `json:"kind"`
	Type        Category          `json:"type"`
	Description string            `json:"description"`
	Note        string            `json:"note,omitempty"`

	UmbralMagnitude    *float64 `json:"umbral_magnitude,omitempty"`
	PenumbralMagnitude *float64 `json:"penumbral_magnitude,omitempty"`
	SeparationDeg      *float64 `json:"separation_deg,omitempty"`
}

// Searcher runs event searches against a dataset. Only the Sun and the Moon
// are consulted, so a lunisolar dataset suffices.
type Searcher struct {
	ds *ephemeris.Dataset
}

func NewSearcher(ds *ephemeris.Dataset) *Searcher {
	return &Searcher{ds: ds}
}

// separation returns the angle between two equatorial directions in
// degrees, using the haversine form for small angles.
func separation(ra1 unit.RA, dec1 unit.Angle, ra2 unit.RA, dec2 unit.Angle) float64 {
	dRA := ra1.Rad() - ra2.Rad()
	dDec := dec1.Rad() - dec2.Rad()
	h := math.Sin(dDec/2)*math.Sin(dDec/2) +
		dec1.Cos()*dec2.Cos()*math.Sin(dRA/2)*math.Sin(dRA/2)
	return 2 * math.Asin(math.Sqrt(math.Min(1, h))) * 180 / math.Pi
}

// minimize returns the instant in [a, b] where fn is smallest, by
// golden-section search down to tol. fn must be unimodal on the bracket.
func minimize(a, b timescale.Instant, tol float64, fn func(timescale.Instant) float64) timescale.Instant {
	const invPhi = 0.6180339887498949
	span := func() float64 { return b.Sub(a).Seconds() }
	at := func(from timescale.Instant, secs float64) timescale.Instant {
		return from.Add(secondsDuration(secs))
	}

	c := at(a, span()*(1-invPhi))
	d := at(a, span()*invPhi)
	fc, fd := fn(c), fn(d)
	for span() > tol {
		if fc < fd {
			b, d, fd = d, c, fc
			c = at(a, span()*(1-invPhi))
			fc = fn(c)
		} else {
			a, c, fc = c, d, fd
			d = at(a, span()*invPhi)
			fd = fn(d)
		}
	}
	return at(a, span()/2)
}
