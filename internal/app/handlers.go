package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/large-farva/skyengine/internal/frame"
	"github.com/large-farva/skyengine/internal/refresh"
	"github.com/large-farva/skyengine/internal/skyerr"
	"github.com/large-farva/skyengine/internal/timescale"
	"github.com/large-farva/skyengine/internal/tlesource"
)

// ---------------------------------------------------------------------------
// Core handlers
// ---------------------------------------------------------------------------

func (a *App) handleHealthz(w http.ResponseWriter, r *http.Request) {
	// If the client asks for JSON, return component-level health checks.
	if r.Header.Get("Accept") == "application/json" {
		a.handleHealthDetailed(w, r)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (a *App) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Planetarium API"})
}

func (a *App) handleStatus(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{
		"name":             "skyengine",
		"uptime_seconds":   int64(time.Since(a.startedAt).Seconds()),
		"data_root":        a.cfg.Data.Root,
		"planetary_tables": a.ds.HasPlanets(),
		"vsop87_dir":       a.ds.Dir(),
		"ws_clients":       a.wsHub.Clients(),
		"tle_cache":        a.store.Info(),
		"refresh":          a.refresher.Snapshot(),
	}
	if du := diskUsage(a.cfg.Data.Root); du != nil {
		resp["disk"] = du
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleVersion reports the build and what this daemon can answer, so
// skyctl can tell a stale or reduced daemon from a current one.
func (a *App) handleVersion(w http.ResponseWriter, _ *http.Request) {
	goVersion := GoVersion
	if goVersion == "unknown" {
		goVersion = runtime.Version()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"version":          Version,
		"go_version":       goVersion,
		"built_at":         BuiltAt,
		"planetary_tables": a.ds.HasPlanets(),
		"tle_groups":       len(tlesource.Groups()),
	})
}

func (a *App) handleConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.cfg)
}

func (a *App) handleHealthDetailed(w http.ResponseWriter, _ *http.Request) {
	checks := map[string]any{}
	allOK := true

	tmpPath := filepath.Join(a.cfg.Data.Root, ".healthcheck")
	if err := os.MkdirAll(a.cfg.Data.Root, 0o755); err != nil {
		checks["data_dir"] = map[string]any{"ok": false, "error": err.Error()}
		allOK = false
	} else if err := os.WriteFile(tmpPath, []byte("ok"), 0o644); err != nil {
		checks["data_dir"] = map[string]any{"ok": false, "error": err.Error()}
		allOK = false
	} else {
		os.Remove(tmpPath)
		checks["data_dir"] = map[string]any{"ok": true, "path": a.cfg.Data.Root}
	}

	// Planet tables are optional for lunisolar work, so their absence is
	// reported without failing the check.
	checks["ephemeris"] = map[string]any{
		"ok":               true,
		"planetary_tables": a.ds.HasPlanets(),
		"dir":              a.ds.Dir(),
	}

	maxAge := time.Duration(a.cfg.Predict.TLERefreshHours) * time.Hour
	for _, ci := range a.store.Info() {
		fresh := !ci.FetchedAt.IsZero() && time.Since(ci.FetchedAt) < 2*maxAge
		checks["tle_"+ci.GroupID] = map[string]any{
			"ok":         fresh,
			"source":     ci.Source,
			"satellites": ci.Satellites,
		}
		if !fresh {
			allOK = false
		}
	}

	if a.configPath != "" {
		if _, err := os.Stat(a.configPath); err != nil {
			checks["config_file"] = map[string]any{"ok": false, "error": err.Error()}
			allOK = false
		} else {
			checks["config_file"] = map[string]any{"ok": true, "path": a.configPath}
		}
	}

	status := http.StatusOK
	if !allOK {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{
		"healthy": allOK,
		"checks":  checks,
	})
}

// ---------------------------------------------------------------------------
// TLE refresh controls
// ---------------------------------------------------------------------------

func (a *App) handleTLEInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"groups":  a.store.Info(),
		"refresh": a.refresher.Snapshot(),
	})
}

// handleTLERefresh accepts an optional {"group": "..."} body.
func (a *App) handleTLERefresh(w http.ResponseWriter, r *http.Request) {
	b, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		jsonError(w, "", "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	var payload json.RawMessage
	if len(bytes.TrimSpace(b)) > 0 {
		payload = b
	}
	a.sendRefreshCommand(w, r, "tle_refresh", payload)
}

func (a *App) handleTLEPause(w http.ResponseWriter, r *http.Request) {
	a.sendRefreshCommand(w, r, "pause", nil)
}

func (a *App) handleTLEResume(w http.ResponseWriter, r *http.Request) {
	a.sendRefreshCommand(w, r, "resume", nil)
}

// sendRefreshCommand forwards a command to the refresh loop and writes its
// result.
func (a *App) sendRefreshCommand(w http.ResponseWriter, r *http.Request, cmdType string, payload json.RawMessage) {
	if !a.running.Load() {
		jsonError(w, "", "refresh loop not running", http.StatusServiceUnavailable)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()
	writeCommandResult(w, a.refresher.Submit(ctx, cmdType, payload))
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

const maxBodyBytes = 1 << 20

// locationRequest is the observer part shared by the engine endpoints.
type locationRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Elevation float64  `json:"elevation"`
	Datetime  string   `json:"datetime"`
}

// observer validates the location and timestamp of a request. An absent
// datetime means now; a present but malformed one is an error.
func (a *App) observer(req locationRequest) (frame.Frame, timescale.Instant, error) {
	if req.Latitude == nil || req.Longitude == nil {
		return frame.Frame{}, timescale.Instant{}, skyerr.New(skyerr.InvalidLocation, "latitude and longitude are required")
	}
	loc, err := frame.NewLocation(*req.Latitude, *req.Longitude, req.Elevation)
	if err != nil {
		return frame.Frame{}, timescale.Instant{}, err
	}
	in, err := a.instant(req.Datetime)
	if err != nil {
		return frame.Frame{}, timescale.Instant{}, err
	}
	return frame.New(loc), in, nil
}

func (a *App) instant(s string) (timescale.Instant, error) {
	if s == "" {
		return timescale.FromTime(a.now()), nil
	}
	return timescale.Parse(s)
}

// decode reads a JSON body into v. On failure it writes a 400 (or 413 for
// an oversized body) and returns false.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
	if err == nil {
		return true
	}
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		jsonError(w, "", "request body too large", http.StatusRequestEntityTooLarge)
		return false
	}
	jsonError(w, "", "invalid request body: "+err.Error(), http.StatusBadRequest)
	return false
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// jsonError writes {"ok": false, "kind": ..., "error": ...}. kind is
// omitted when empty.
func jsonError(w http.ResponseWriter, kind skyerr.Kind, msg string, code int) {
	body := map[string]any{
		"ok":    false,
		"error": msg,
	}
	if kind != "" {
		body["kind"] = kind
	}
	writeJSON(w, code, body)
}

// statusFor maps an engine failure kind to its HTTP status.
func statusFor(kind skyerr.Kind) int {
	switch kind {
	case skyerr.InvalidTimestamp, skyerr.InvalidLocation, skyerr.InvalidWindow, skyerr.MalformedElementSet:
		return http.StatusBadRequest
	case skyerr.PropagationError:
		return http.StatusUnprocessableEntity
	case skyerr.EphemerisUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError reports err to the client. Engine errors keep their kind;
// anything else is an internal error and is logged.
func (a *App) writeError(w http.ResponseWriter, err error) {
	kind, ok := skyerr.KindOf(err)
	if !ok {
		a.logf("error", "http", "internal error: %v", err)
		jsonError(w, "", "internal error", http.StatusInternalServerError)
		return
	}
	code := statusFor(kind)
	if code >= 500 {
		a.logf("warn", "engine", "%v", err)
	}
	jsonError(w, kind, skyerr.DetailOf(err), code)
}

// writeCommandResult writes a refresh.CommandResult as JSON.
func writeCommandResult(w http.ResponseWriter, result refresh.CommandResult) {
	code := http.StatusOK
	if !result.OK {
		code = http.StatusInternalServerError
	}
	writeJSON(w, code, result)
}
