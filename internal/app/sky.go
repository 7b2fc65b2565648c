package app

import (
	"net/http"
	"time"

	"github.com/large-farva/skyengine/internal/bodies"
)

// ---------------------------------------------------------------------------
// Bodies, stars and lunar phases
// ---------------------------------------------------------------------------

// handlePlanetPositions returns the nine-body set keyed by name.
func (a *App) handlePlanetPositions(w http.ResponseWriter, r *http.Request) {
	var req locationRequest
	if !decode(w, r, &req) {
		return
	}
	f, in, err := a.observer(req)
	if err != nil {
		a.writeError(w, err)
		return
	}

	positions, err := a.solver.PositionsOf(bodies.Planets(), in, f)
	if err != nil {
		a.writeError(w, err)
		return
	}
	out := make(map[string]bodies.ApparentPosition, len(positions))
	for _, p := range positions {
		out[p.Name] = p
	}
	writeJSON(w, http.StatusOK, out)
}

type bodiesRequest struct {
	locationRequest
	Bodies []string `json:"bodies"`
}

// handleBodyPositions places an arbitrary list of catalog bodies, in request
// order.
func (a *App) handleBodyPositions(w http.ResponseWriter, r *http.Request) {
	var req bodiesRequest
	if !decode(w, r, &req) {
		return
	}
	if len(req.Bodies) == 0 {
		jsonError(w, "", "bodies must name at least one body", http.StatusBadRequest)
		return
	}
	f, in, err := a.observer(req.locationRequest)
	if err != nil {
		a.writeError(w, err)
		return
	}

	list := make([]bodies.Body, 0, len(req.Bodies))
	for _, name := range req.Bodies {
		b, ok := bodies.Lookup(name)
		if !ok {
			jsonError(w, "", "unknown body: "+name, http.StatusBadRequest)
			return
		}
		list = append(list, b)
	}

	positions, err := a.solver.PositionsOf(list, in, f)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, positions)
}

func (a *App) handleVisibleStars(w http.ResponseWriter, r *http.Request) {
	var req locationRequest
	if !decode(w, r, &req) {
		return
	}
	f, in, err := a.observer(req)
	if err != nil {
		a.writeError(w, err)
		return
	}
	stars := a.solver.VisibleStars(in, f)
	if stars == nil {
		stars = []bodies.ApparentPosition{}
	}
	writeJSON(w, http.StatusOK, stars)
}

// handleAstronomyEvents lists the next full and new moon after the request
// time.
func (a *App) handleAstronomyEvents(w http.ResponseWriter, r *http.Request) {
	var req locationRequest
	if !decode(w, r, &req) {
		return
	}
	_, in, err := a.observer(req)
	if err != nil {
		a.writeError(w, err)
		return
	}
	started := time.Now()
	events := a.searcher.NextPhases(in)
	a.observeSearch("phases", len(events), false, started)
	writeJSON(w, http.StatusOK, events)
}

type constellation struct {
	Name       string `json:"name"`
	CommonName string `json:"common_name"`
	BestMonth  string `json:"best_month"`
}

var constellations = []constellation{
	{"Ursa Major", "Great Bear", "April"},
	{"Orion", "The Hunter", "January"},
	{"Cassiopeia", "The Queen", "November"},
	{"Leo", "The Lion", "April"},
	{"Scorpius", "The Scorpion", "July"},
	{"Cygnus", "The Swan", "September"},
	{"Sagittarius", "The Archer", "August"},
	{"Aquarius", "The Water Bearer", "October"},
	{"Gemini", "The Twins", "February"},
	{"Taurus", "The Bull", "January"},
}

func (a *App) handleConstellations(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, constellations)
}
