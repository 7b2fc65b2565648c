package app

import (
	"net/http"
	"strconv"
	"time"

	"github.com/large-farva/skyengine/internal/eclipse"
	"github.com/large-farva/skyengine/internal/skyerr"
	"github.com/large-farva/skyengine/internal/timescale"
)

// ---------------------------------------------------------------------------
// Eclipses
// ---------------------------------------------------------------------------

// eclipseWindow spans years from start, bounded by the configured maximum.
func (a *App) eclipseWindow(start timescale.Instant, years *int) (timescale.Window, error) {
	n := a.cfg.Eclipse.DefaultYears
	if years != nil {
		n = *years
	}
	if n > a.cfg.Eclipse.MaxYears {
		return timescale.Window{}, skyerr.New(skyerr.InvalidWindow, "years %d exceeds the limit of %d", n, a.cfg.Eclipse.MaxYears)
	}
	return timescale.Years(start, n)
}

// handleLunarEclipses accepts optional ?years= and ?datetime= parameters.
func (a *App) handleLunarEclipses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var years *int
	if s := q.Get("years"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			a.writeError(w, skyerr.New(skyerr.InvalidWindow, "years %q is not an integer", s))
			return
		}
		years = &n
	}
	start, err := a.instant(q.Get("datetime"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	win, err := a.eclipseWindow(start, years)
	if err != nil {
		a.writeError(w, err)
		return
	}

	started := time.Now()
	res := a.searcher.Lunar(win)
	a.observeSearch("lunar_eclipses", len(res.Eclipses), false, started)

	events := res.Eclipses
	if events == nil {
		events = []eclipse.Event{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"eclipses": events})
}

type solarRequest struct {
	locationRequest
	Years *int `json:"years"`
}

// handleSolarEclipses validates the observer for symmetry with the other
// engine endpoints, but the search itself is geocentric; every event says so
// in its note.
func (a *App) handleSolarEclipses(w http.ResponseWriter, r *http.Request) {
	var req solarRequest
	if !decode(w, r, &req) {
		return
	}
	_, in, err := a.observer(req.locationRequest)
	if err != nil {
		a.writeError(w, err)
		return
	}
	win, err := a.eclipseWindow(in, req.Years)
	if err != nil {
		a.writeError(w, err)
		return
	}

	started := time.Now()
	res := a.searcher.Solar(win, a.cfg.Eclipse.MaxCandidates)
	a.observeSearch("solar_eclipses", len(res.Eclipses), res.Truncated, started)

	if res.Eclipses == nil {
		res.Eclipses = []eclipse.Event{}
	}
	writeJSON(w, http.StatusOK, res)
}
