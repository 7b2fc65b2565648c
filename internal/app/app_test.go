package app

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/large-farva/skyengine/internal/config"
	"github.com/large-farva/skyengine/internal/skyerr"
	"github.com/large-farva/skyengine/internal/tlesource"
)

const (
	issLine1 = "1 25544U 98067A   24001.00000000  .00016717  00000+0  30287-3 0  9991"
	issLine2 = "2 25544  51.6416 208.5340 0002898 124.0432 236.0880 15.49815399432101"
)

func testApp(t *testing.T, tweak func(*config.Config)) (*App, http.Handler) {
	t.Helper()
	celestrak := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down for maintenance", http.StatusServiceUnavailable)
	}))
	t.Cleanup(celestrak.Close)

	cfg := config.Default()
	cfg.Data.Root = t.TempDir()
	cfg.Predict.TLEBaseURL = celestrak.URL
	cfg.Server.RateLimitPerMinute = 0
	if tweak != nil {
		tweak(&cfg)
	}

	a := New(Options{Logger: log.New(io.Discard, "", 0), Cfg: cfg})
	a.now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	return a, a.Handler()
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func newYork() map[string]any {
	return map[string]any{"latitude": 40.7128, "longitude": -74.0060, "datetime": "2024-01-01T00:00:00Z"}
}

func with(base map[string]any, kv ...any) map[string]any {
	out := make(map[string]any, len(base)+len(kv)/2)
	for k, v := range base {
		out[k] = v
	}
	for i := 0; i+1 < len(kv); i += 2 {
		out[kv[i].(string)] = kv[i+1]
	}
	return out
}

func TestRootAndHealth(t *testing.T) {
	_, h := testApp(t, nil)

	rec := do(t, h, http.MethodGet, "/api/", nil)
	if got := decodeBody[map[string]string](t, rec)["message"]; got != "Planetarium API" {
		t.Errorf("root message = %q", got)
	}

	rec = do(t, h, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "ok\n" {
		t.Errorf("healthz = %d %q", rec.Code, rec.Body.String())
	}

	rec = do(t, h, http.MethodGet, "/api/version", nil)
	v := decodeBody[map[string]any](t, rec)
	if v["version"] == "" || v["go_version"] == "unknown" {
		t.Errorf("version = %v", v)
	}
	if v["planetary_tables"] != false || v["tle_groups"] != float64(len(tlesource.Groups())) {
		t.Errorf("capabilities = %v", v)
	}
}

func TestErrorMapping(t *testing.T) {
	_, h := testApp(t, nil)

	iss := with(newYork(), "name", "ISS", "line1", issLine1, "line2", issLine2)

	tests := []struct {
		name     string
		method   string
		path     string
		body     any
		wantCode int
		wantKind skyerr.Kind
	}{
		{"bad timestamp", "POST", "/api/bodies/positions",
			with(newYork(), "datetime", "tomorrow-ish", "bodies", []string{"Sun"}), 400, skyerr.InvalidTimestamp},
		{"bad latitude", "POST", "/api/stars/visible",
			with(newYork(), "latitude", 91.0), 400, skyerr.InvalidLocation},
		{"missing location", "POST", "/api/astronomy/events",
			map[string]any{"datetime": "2024-01-01T00:00:00Z"}, 400, skyerr.InvalidLocation},
		{"bad line 1", "POST", "/api/satellites/position",
			with(iss, "line1", "X"+issLine1[1:]), 400, skyerr.MalformedElementSet},
		{"window too long", "POST", "/api/satellites/passes",
			with(iss, "days", 31), 400, skyerr.InvalidWindow},
		{"zero days", "POST", "/api/satellites/passes",
			with(iss, "days", 0), 400, skyerr.InvalidWindow},
		{"too many years", "GET", "/api/eclipses/lunar?years=11", nil, 400, skyerr.InvalidWindow},
		{"planets without tables", "POST", "/api/planets/positions",
			newYork(), 503, skyerr.EphemerisUnavailable},
		{"malformed json", "POST", "/api/stars/visible", "{", 400, ""},
		{"unknown body", "POST", "/api/bodies/positions",
			with(newYork(), "bodies", []string{"Vulcan"}), 400, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, tt.method, tt.path, tt.body)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.wantCode, rec.Body.String())
			}
			body := decodeBody[map[string]any](t, rec)
			if body["ok"] != false {
				t.Errorf("ok = %v", body["ok"])
			}
			kind, _ := body["kind"].(string)
			if skyerr.Kind(kind) != tt.wantKind {
				t.Errorf("kind = %q, want %q", kind, tt.wantKind)
			}
		})
	}
}

func TestStatusFor(t *testing.T) {
	tests := map[skyerr.Kind]int{
		skyerr.InvalidTimestamp:     400,
		skyerr.InvalidLocation:      400,
		skyerr.InvalidWindow:        400,
		skyerr.MalformedElementSet:  400,
		skyerr.PropagationError:     422,
		skyerr.EphemerisUnavailable: 503,
		"Unheard":                   500,
	}
	for kind, want := range tests {
		if got := statusFor(kind); got != want {
			t.Errorf("statusFor(%s) = %d, want %d", kind, got, want)
		}
	}
}

func TestMethodNotAllowed(t *testing.T) {
	_, h := testApp(t, nil)
	if rec := do(t, h, http.MethodGet, "/api/satellites/passes", nil); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d", rec.Code)
	}
}

type position struct {
	Name     string  `json:"name"`
	Altitude float64 `json:"altitude"`
	Azimuth  float64 `json:"azimuth"`
	Visible  bool    `json:"visible"`
}

func TestBodyPositions(t *testing.T) {
	_, h := testApp(t, nil)
	rec := do(t, h, http.MethodPost, "/api/bodies/positions",
		with(newYork(), "bodies", []string{"Sun", "moon", "Sirius"}))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	got := decodeBody[[]position](t, rec)
	want := []string{"Sun", "Moon", "Sirius"}
	if len(got) != len(want) {
		t.Fatalf("got %d positions", len(got))
	}
	for i, p := range got {
		if p.Name != want[i] {
			t.Errorf("position %d = %s, want %s", i, p.Name, want[i])
		}
		if p.Altitude < -90 || p.Altitude > 90 || p.Azimuth < 0 || p.Azimuth >= 360 {
			t.Errorf("%s out of range: %+v", p.Name, p)
		}
		if p.Visible != (p.Altitude > 0) {
			t.Errorf("%s visible = %v at altitude %v", p.Name, p.Visible, p.Altitude)
		}
	}
	// 19:00 local time in New York on New Year's Eve: the Sun is down.
	if got[0].Visible {
		t.Error("Sun should be below the horizon")
	}
}

func TestVisibleStarsAndConstellations(t *testing.T) {
	_, h := testApp(t, nil)

	stars := decodeBody[[]position](t, do(t, h, http.MethodPost, "/api/stars/visible", newYork()))
	if len(stars) == 0 {
		t.Fatal("no stars above New York")
	}
	for _, s := range stars {
		if s.Altitude <= 0 {
			t.Errorf("%s listed at altitude %v", s.Name, s.Altitude)
		}
	}

	cons := decodeBody[[]map[string]string](t, do(t, h, http.MethodGet, "/api/constellations", nil))
	if len(cons) != 10 || cons[1]["name"] != "Orion" {
		t.Errorf("constellations = %v", cons)
	}
}

func TestAstronomyEvents(t *testing.T) {
	_, h := testApp(t, nil)
	events := decodeBody[[]map[string]string](t, do(t, h, http.MethodPost, "/api/astronomy/events", newYork()))
	if len(events) != 2 {
		t.Fatalf("events = %v", events)
	}
	if events[0]["type"] != "New Moon" || !strings.HasPrefix(events[0]["date"], "2024-01-11") {
		t.Errorf("first event = %v", events[0])
	}
	if events[1]["type"] != "Full Moon" || !strings.HasPrefix(events[1]["date"], "2024-01-25") {
		t.Errorf("second event = %v", events[1])
	}
}

func TestSatellitePosition(t *testing.T) {
	_, h := testApp(t, nil)
	rec := do(t, h, http.MethodPost, "/api/satellites/position",
		with(newYork(), "name", "ISS (ZARYA)", "line1", issLine1, "line2", issLine2))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	got := decodeBody[map[string]any](t, rec)
	lat := got["latitude"].(float64)
	if lat < -51.7 || lat > 51.7 {
		t.Errorf("latitude = %v", lat)
	}
	if d := got["distance_km"].(float64); d <= 0 {
		t.Errorf("distance = %v", d)
	}
	if got["datetime"] != "2024-01-01T00:00:00Z" || got["name"] != "ISS (ZARYA)" {
		t.Errorf("response = %v", got)
	}
	for _, k := range []string{"observer_altitude", "observer_azimuth", "altitude_km", "visible", "longitude"} {
		if _, ok := got[k]; !ok {
			t.Errorf("missing %s", k)
		}
	}
}

func TestSatellitePasses(t *testing.T) {
	_, h := testApp(t, nil)
	rec := do(t, h, http.MethodPost, "/api/satellites/passes",
		with(newYork(), "name", "ISS", "line1", issLine1, "line2", issLine2, "days", 3, "min_altitude", 0))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var got struct {
		Name   string `json:"name"`
		Passes []struct {
			RiseTime    time.Time `json:"rise_time"`
			MaxTime     time.Time `json:"max_time"`
			SetTime     time.Time `json:"set_time"`
			MaxAltitude float64   `json:"max_altitude"`
		} `json:"passes"`
		Truncated bool `json:"truncated"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if len(got.Passes) == 0 {
		t.Fatal("expected horizon passes over three days")
	}
	for i, p := range got.Passes {
		if !p.RiseTime.Before(p.MaxTime) || !p.MaxTime.Before(p.SetTime) {
			t.Errorf("pass %d not ordered: %+v", i, p)
		}
		if i > 0 && p.RiseTime.Before(got.Passes[i-1].RiseTime) {
			t.Errorf("pass %d rises before pass %d", i, i-1)
		}
	}
}

func TestGroundTrack(t *testing.T) {
	_, h := testApp(t, nil)
	body := map[string]any{
		"name": "ISS", "line1": issLine1, "line2": issLine2,
		"datetime": "2024-01-01T00:00:00Z", "minutes": 30, "step_seconds": 60,
	}
	rec := do(t, h, http.MethodPost, "/api/satellites/groundtrack", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	got := decodeBody[struct {
		Points []map[string]any `json:"points"`
	}](t, rec)
	if len(got.Points) != 30 {
		t.Errorf("points = %d, want 30", len(got.Points))
	}

	body["step_seconds"] = -5
	if rec := do(t, h, http.MethodPost, "/api/satellites/groundtrack", body); rec.Code != http.StatusBadRequest {
		t.Errorf("negative step status = %d", rec.Code)
	}
}

func TestSatelliteGroups(t *testing.T) {
	_, h := testApp(t, nil)

	groups := decodeBody[[]map[string]string](t, do(t, h, http.MethodGet, "/api/satellites/list", nil))
	if len(groups) == 0 || groups[0]["group_id"] != "stations" || groups[0]["group_name"] == "" {
		t.Errorf("groups = %v", groups)
	}

	rec := do(t, h, http.MethodGet, "/api/satellites/tle/stations", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	got := decodeBody[map[string]any](t, rec)
	if got["source"] != "embedded" {
		t.Errorf("source = %v, want embedded while the network is down", got["source"])
	}
	if sats := got["satellites"].([]any); len(sats) == 0 {
		t.Error("no satellites")
	}

	if rec := do(t, h, http.MethodGet, "/api/satellites/tle/pluto", nil); rec.Code != http.StatusNotFound {
		t.Errorf("unknown group status = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/api/satellites/tle/starlink", nil); rec.Code != http.StatusBadGateway {
		t.Errorf("exhausted group status = %d", rec.Code)
	}
}

func TestEclipses(t *testing.T) {
	_, h := testApp(t, nil)

	lunar := decodeBody[struct {
		Eclipses []map[string]any `json:"eclipses"`
	}](t, do(t, h, http.MethodGet, "/api/eclipses/lunar?datetime=2024-01-01T00:00:00Z&years=1", nil))
	if len(lunar.Eclipses) != 2 {
		t.Fatalf("lunar = %v", lunar.Eclipses)
	}
	if lunar.Eclipses[0]["type"] != "Penumbral" || lunar.Eclipses[1]["type"] != "Partial" {
		t.Errorf("lunar types = %v, %v", lunar.Eclipses[0]["type"], lunar.Eclipses[1]["type"])
	}

	rec := do(t, h, http.MethodPost, "/api/eclipses/solar", with(newYork(), "years", 1))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	solar := decodeBody[struct {
		Eclipses []map[string]any `json:"eclipses"`
		Truncated bool            `json:"truncated"`
	}](t, rec)
	if solar.Truncated {
		t.Error("a one-year window should not hit the candidate cap")
	}
	found := false
	for _, e := range solar.Eclipses {
		if strings.HasPrefix(e["datetime"].(string), "2024-04-08") {
			found = e["type"] == "Total/Annular"
		}
		if e["note"] == nil {
			t.Errorf("solar event without note: %v", e)
		}
	}
	if !found {
		t.Errorf("2024-04-08 total eclipse missing: %v", solar.Eclipses)
	}
}

func TestCORS(t *testing.T) {
	_, h := testApp(t, func(c *config.Config) {
		c.Server.CORSOrigins = []string{"https://sky.example.org"}
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/stars/visible", nil)
	req.Header.Set("Origin", "https://sky.example.org")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://sky.example.org" {
		t.Errorf("allow origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/", nil)
	req.Header.Set("Origin", "https://elsewhere.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("foreign origin allowed: %q", got)
	}
}

func TestRateLimit(t *testing.T) {
	_, h := testApp(t, func(c *config.Config) {
		c.Server.RateLimitPerMinute = 1
		c.Server.RateBurst = 2
	})

	codes := make([]int, 3)
	var last *httptest.ResponseRecorder
	for i := range codes {
		last = do(t, h, http.MethodPost, "/api/stars/visible", newYork())
		codes[i] = last.Code
	}
	if codes[0] != 200 || codes[1] != 200 || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v", codes)
	}
	if got := last.Header().Get("Retry-After"); got != "60" {
		t.Errorf("Retry-After = %q, want 60 at one request per minute", got)
	}

	// Cheap endpoints are not limited.
	if rec := do(t, h, http.MethodGet, "/api/constellations", nil); rec.Code != http.StatusOK {
		t.Errorf("constellations status = %d", rec.Code)
	}

	metrics := do(t, h, http.MethodGet, "/metrics", nil).Body.String()
	if !strings.Contains(metrics, "skyengine_rate_limited_total 1") {
		t.Error("rate limit not counted")
	}
}

func TestRateLimitDefaults(t *testing.T) {
	d := config.Default()
	_, h := testApp(t, func(c *config.Config) {
		c.Server.RateLimitPerMinute = d.Server.RateLimitPerMinute
		c.Server.RateBurst = d.Server.RateBurst
	})

	limited := 0
	for i := 0; i < 25; i++ {
		rec := do(t, h, http.MethodPost, "/api/stars/visible", newYork())
		if i < d.Server.RateBurst && rec.Code != http.StatusOK {
			t.Fatalf("request %d within the burst got %d", i, rec.Code)
		}
		if rec.Code == http.StatusTooManyRequests {
			limited++
			if got := rec.Header().Get("Retry-After"); got != "1" {
				t.Errorf("Retry-After = %q, want 1 at the default rate", got)
			}
		}
	}
	if limited == 0 {
		t.Error("no request limited past the default burst")
	}
}

func TestLogsEndpoint(t *testing.T) {
	a, h := testApp(t, nil)
	a.logf("info", "test", "first")
	a.logf("warn", "test", "second")
	a.logf("debug", "test", "hidden at info level")

	all := decodeBody[map[string][]logEntry](t, do(t, h, http.MethodGet, "/api/logs", nil))["logs"]
	if len(all) != 2 {
		t.Fatalf("logs = %+v", all)
	}

	warn := decodeBody[map[string][]logEntry](t, do(t, h, http.MethodGet, "/api/logs?level=warn", nil))["logs"]
	if len(warn) != 1 || warn[0].Message != "second" {
		t.Errorf("warn logs = %+v", warn)
	}

	last := decodeBody[map[string][]logEntry](t, do(t, h, http.MethodGet, "/api/logs?limit=1", nil))["logs"]
	if len(last) != 1 || last[0].Message != "second" {
		t.Errorf("limited logs = %+v", last)
	}
}

func TestLogBufferBounded(t *testing.T) {
	a, _ := testApp(t, nil)
	for i := 0; i < logBufCap+25; i++ {
		a.logf("info", "test", "line %d", i)
	}
	if len(a.logBuf) != logBufCap {
		t.Fatalf("buffer length = %d", len(a.logBuf))
	}
	if a.logBuf[0].Message != "line 25" {
		t.Errorf("oldest = %q", a.logBuf[0].Message)
	}
}

func TestRefreshNotRunning(t *testing.T) {
	_, h := testApp(t, nil)
	if rec := do(t, h, http.MethodPost, "/api/tle/refresh", nil); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestMetricsExposition(t *testing.T) {
	_, h := testApp(t, nil)
	do(t, h, http.MethodGet, "/api/", nil)
	out := do(t, h, http.MethodGet, "/metrics", nil).Body.String()
	for _, want := range []string{
		`skyengine_http_requests_total{code="200",method="GET",route="GET /api/{$}"} 1`,
		"skyengine_ws_clients 0",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("metrics missing %s", want)
		}
	}
}
