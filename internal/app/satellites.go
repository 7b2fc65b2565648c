package app

import (
	"errors"
	"net/http"
	"time"

	"github.com/large-farva/skyengine/internal/orbit"
	"github.com/large-farva/skyengine/internal/skyerr"
	"github.com/large-farva/skyengine/internal/timescale"
	"github.com/large-farva/skyengine/internal/tlesource"
)

// ---------------------------------------------------------------------------
// Satellite groups
// ---------------------------------------------------------------------------

func (a *App) handleSatelliteGroups(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, tlesource.Groups())
}

type tleJSON struct {
	Name          string `json:"name"`
	Line1         string `json:"line1"`
	Line2         string `json:"line2"`
	CatalogNumber int    `json:"catalog_number"`
}

func (a *App) handleGroupTLE(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("group")
	g, err := a.store.Fetch(r.Context(), id)
	if errors.Is(err, tlesource.ErrUnknownGroup) {
		jsonError(w, "", err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		a.logf("warn", "tlesource", "group %s unavailable: %v", id, err)
		jsonError(w, "", err.Error(), http.StatusBadGateway)
		return
	}
	a.metrics.ObserveTLEFetch(g.Group.ID, string(g.Source))

	sats := make([]tleJSON, len(g.Satellites))
	for i, es := range g.Satellites {
		sats[i] = tleJSON{Name: es.Name, Line1: es.Line1, Line2: es.Line2, CatalogNumber: es.CatalogNumber}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"group_id":   g.Group.ID,
		"group_name": g.Group.Name,
		"source":     g.Source,
		"skipped":    g.Skipped,
		"satellites": sats,
	})
}

// ---------------------------------------------------------------------------
// Propagation and passes
// ---------------------------------------------------------------------------

type elementsRequest struct {
	Name  string `json:"name"`
	Line1 string `json:"line1"`
	Line2 string `json:"line2"`
}

type satPositionRequest struct {
	elementsRequest
	locationRequest
}

type satPositionJSON struct {
	Name       string            `json:"name"`
	Latitude   float64           `json:"latitude"`
	Longitude  float64           `json:"longitude"`
	AltitudeKm float64           `json:"altitude_km"`
	DistanceKm float64           `json:"distance_km"`
	Visible    bool              `json:"visible"`
	Altitude   float64           `json:"observer_altitude"`
	Azimuth    float64           `json:"observer_azimuth"`
	Datetime   timescale.Instant `json:"datetime"`
}

func (a *App) handleSatellitePosition(w http.ResponseWriter, r *http.Request) {
	var req satPositionRequest
	if !decode(w, r, &req) {
		return
	}
	sat, err := orbit.Parse(req.Name, req.Line1, req.Line2)
	if err != nil {
		a.writeError(w, err)
		return
	}
	f, in, err := a.observer(req.locationRequest)
	if err != nil {
		a.writeError(w, err)
		return
	}

	obs, err := sat.Observe(in, f)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, satPositionJSON{
		Name:       sat.Name(),
		Latitude:   obs.Latitude,
		Longitude:  obs.Longitude,
		AltitudeKm: obs.AltitudeKm,
		DistanceKm: obs.DistanceKm,
		Visible:    obs.Visible,
		Altitude:   obs.Altitude,
		Azimuth:    obs.Azimuth,
		Datetime:   in,
	})
}

type passesRequest struct {
	elementsRequest
	locationRequest
	Days        *int     `json:"days"`
	MinAltitude *float64 `json:"min_altitude"`
}

func (a *App) handleSatellitePasses(w http.ResponseWriter, r *http.Request) {
	var req passesRequest
	if !decode(w, r, &req) {
		return
	}
	sat, err := orbit.Parse(req.Name, req.Line1, req.Line2)
	if err != nil {
		a.writeError(w, err)
		return
	}
	f, in, err := a.observer(req.locationRequest)
	if err != nil {
		a.writeError(w, err)
		return
	}

	days := a.cfg.Predict.DefaultDays
	if req.Days != nil {
		days = *req.Days
	}
	if days > a.cfg.Predict.MaxDays {
		a.writeError(w, skyerr.New(skyerr.InvalidWindow, "days %d exceeds the limit of %d", days, a.cfg.Predict.MaxDays))
		return
	}
	win, err := timescale.Days(in, days)
	if err != nil {
		a.writeError(w, err)
		return
	}

	opts := orbit.PassOptions{MinAltitude: a.cfg.Predict.MinAltitude, MaxPasses: a.cfg.Predict.MaxPasses}
	if req.MinAltitude != nil {
		if *req.MinAltitude < 0 || *req.MinAltitude >= 90 {
			jsonError(w, "", "min_altitude must be in [0, 90)", http.StatusBadRequest)
			return
		}
		opts.MinAltitude = *req.MinAltitude
	}

	started := time.Now()
	res, err := sat.FindPasses(f, win, opts)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.observeSearch("passes", len(res.Passes), res.Truncated, started)

	passes := res.Passes
	if passes == nil {
		passes = []orbit.PassEvent{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"name":      sat.Name(),
		"passes":    passes,
		"truncated": res.Truncated,
	})
}

type groundTrackRequest struct {
	elementsRequest
	Datetime    string `json:"datetime"`
	Minutes     int    `json:"minutes"`
	StepSeconds int    `json:"step_seconds"`
}

func (a *App) handleGroundTrack(w http.ResponseWriter, r *http.Request) {
	var req groundTrackRequest
	if !decode(w, r, &req) {
		return
	}
	sat, err := orbit.Parse(req.Name, req.Line1, req.Line2)
	if err != nil {
		a.writeError(w, err)
		return
	}
	in, err := a.instant(req.Datetime)
	if err != nil {
		a.writeError(w, err)
		return
	}

	minutes, step := req.Minutes, req.StepSeconds
	if minutes == 0 {
		minutes = 90
	}
	if step == 0 {
		step = 60
	}
	win, err := timescale.NewWindow(in, in.Add(time.Duration(minutes)*time.Minute))
	if err != nil {
		a.writeError(w, err)
		return
	}

	points, err := sat.GroundTrack(win, time.Duration(step)*time.Second)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"name":   sat.Name(),
		"points": points,
	})
}
