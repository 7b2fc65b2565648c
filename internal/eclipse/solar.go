package eclipse

import (
	"fmt"

	"github.com/large-farva/skyengine/internal/timescale"
)

const (
	// DefaultMaxCandidates caps the new moons examined per search. The cap
	// bounds work per request; eclipses after it are not reported.
	DefaultMaxCandidates = 30

	candidateSepDeg = 2.0
	centralSepDeg   = 0.5

	solarNote = "Geocentric alignment only; visibility and timing from a given location are not determined"
)

// SolarResult lists geocentric solar eclipse candidates. Truncated is set
// when the window held more new moons than were examined.
type SolarResult struct {
	Eclipses          []Event `json:"eclipses"`
	Truncated         bool    `json:"truncated"`
	CandidatesScanned int     `json:"candidates_scanned"`
}

func (s *Searcher) sunMoonSep(in timescale.Instant) float64 {
	jde := in.JDE()
	sun := s.ds.Sun(jde)
	moon := s.ds.Moon(jde)
	return separation(sun.RA, sun.Dec, moon.RA, moon.Dec)
}

// Solar examines up to maxCandidates new moons in w (DefaultMaxCandidates
// when <= 0). Each is refined to the least geocentric Sun-Moon separation;
// under 2 degrees is a candidate, under 0.5 degrees is central.
func (s *Searcher) Solar(w timescale.Window, maxCandidates int) SolarResult {
	if maxCandidates <= 0 {
		maxCandidates = DefaultMaxCandidates
	}
	res := SolarResult{Eclipses: []Event{}}

	newMoons := s.Phases(w, NewMoon)
	if len(newMoons) > maxCandidates {
		newMoons = newMoons[:maxCandidates]
		res.Truncated = true
	}
	res.CandidatesScanned = len(newMoons)

	for _, nm := range newMoons {
		best := minimize(nm.Add(-refineHalfSpan), nm.Add(refineHalfSpan), refineTolSecs, s.sunMoonSep)
		sep := s.sunMoonSep(best)
		if sep >= candidateSepDeg {
			continue
		}
		cat := Partial
		if sep < centralSepDeg {
			cat = TotalOrAnnular
		}
		res.Eclipses = append(res.Eclipses, Event{
			Time:          best,
			Kind:          Solar,
			Type:          cat,
			Description:   fmt.Sprintf("%s solar eclipse candidate, Sun-Moon separation %.2f°", cat, sep),
			Note:          solarNote,
			SeparationDeg: &sep,
		})
	}
	return res
}
