// Package app wires the sky engine to the outside world: the HTTP API, the
// WebSocket event hub, Prometheus metrics and the background TLE refresh
// loop. It owns the daemon's lifecycle.
package app

import (
	"context"
	"log"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/large-farva/skyengine/internal/bodies"
	"github.com/large-farva/skyengine/internal/config"
	"github.com/large-farva/skyengine/internal/eclipse"
	"github.com/large-farva/skyengine/internal/ephemeris"
	"github.com/large-farva/skyengine/internal/metrics"
	"github.com/large-farva/skyengine/internal/refresh"
	"github.com/large-farva/skyengine/internal/telemetry"
	"github.com/large-farva/skyengine/internal/tlesource"
	"github.com/large-farva/skyengine/internal/ws"
)

// Options holds everything the App needs from the caller.
type Options struct {
	Logger *log.Logger
	Cfg    config.Config
	Bind   string

	// Dataset is the loaded ephemeris. When nil a lunisolar-only dataset is
	// used and planet requests fail with EphemerisUnavailable.
	Dataset *ephemeris.Dataset

	// ConfigPath is reported by the detailed health check.
	ConfigPath string
}

// App is the daemon process.
type App struct {
	log        *log.Logger
	cfg        config.Config
	bind       string
	configPath string
	startedAt  time.Time
	now        func() time.Time

	ds       *ephemeris.Dataset
	solver   *bodies.Solver
	searcher *eclipse.Searcher

	store     *tlesource.Store
	refresher *refresh.Runner
	running   atomic.Bool

	wsHub   *ws.Hub
	metrics *metrics.Collector
	limiter *ipLimiter

	logBufMu sync.Mutex
	logBuf   []logEntry
}

// New builds an App. Call Run to start serving, or Handler to mount the API
// elsewhere.
func New(opts Options) *App {
	ds := opts.Dataset
	if ds == nil {
		ds = ephemeris.NewLunisolar()
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.Writer(), "skyd ", log.LstdFlags|log.Lmicroseconds)
	}

	a := &App{
		log:        logger,
		cfg:        opts.Cfg,
		bind:       opts.Bind,
		configPath: opts.ConfigPath,
		startedAt:  time.Now(),
		now:        time.Now,
		ds:         ds,
		solver:     bodies.NewSolver(ds),
		searcher:   eclipse.NewSearcher(ds),
		wsHub:      ws.NewHub(opts.Cfg.Server.CORSOrigins),
		metrics:    metrics.New(),
	}

	a.store = tlesource.NewStore(a.cfg.Predict.TLEBaseURL, a.cfg.Data.Root, a.cfg.Predict.TLERefreshHours)
	a.refresher = refresh.New(a.store, a.wsHub, a.log, defaultRefreshGroups,
		time.Duration(a.cfg.Predict.TLERefreshHours)*time.Hour)
	a.refresher.OnFetch = func(group string, src tlesource.Source) {
		a.metrics.ObserveTLEFetch(group, string(src))
	}

	if per := a.cfg.Server.RateLimitPerMinute; per > 0 {
		a.limiter = newIPLimiter(per, a.cfg.Server.RateBurst)
	}

	a.metrics.Registry().MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "skyengine_ws_clients",
			Help: "Connected WebSocket watchers.",
		},
		func() float64 { return float64(a.wsHub.Clients()) },
	))
	return a
}

// defaultRefreshGroups are kept warm by the background loop. Other groups
// are fetched on demand.
var defaultRefreshGroups = []string{"stations", "visual", "weather"}

// Run starts the HTTP server, the hub, the heartbeat and the refresh loop.
// It blocks until ctx is cancelled or the server fails.
func (a *App) Run(ctx context.Context) error {
	bind := a.bind
	if bind == "" {
		bind = a.cfg.Server.Bind
	}

	srv := &http.Server{
		Addr:              bind,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", bind)
	if err != nil {
		return err
	}

	a.logf("info", "skyd", "listening on http://%s", bind)
	if !a.ds.HasPlanets() {
		a.logf("warn", "skyd", "planetary tables not loaded; planet requests will fail")
	}

	go a.wsHub.Run(ctx)
	go a.heartbeatLoop(ctx)
	a.running.Store(true)
	go a.refresher.Run(ctx)
	if a.limiter != nil {
		go a.limiter.sweepLoop(ctx, 10*time.Minute)
	}

	go func() {
		<-ctx.Done()
		a.logf("info", "skyd", "shutdown requested")
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}()

	return srv.Serve(ln)
}

// Handler returns the full HTTP handler: routes, CORS and metrics.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", a.handleHealthz)
	mux.HandleFunc("GET /api/{$}", a.handleRoot)
	mux.HandleFunc("GET /api/status", a.handleStatus)
	mux.HandleFunc("GET /api/version", a.handleVersion)
	mux.HandleFunc("GET /api/config", a.handleConfig)
	mux.HandleFunc("GET /api/logs", a.handleLogs)

	mux.Handle("POST /api/planets/positions", a.limited(a.handlePlanetPositions))
	mux.Handle("POST /api/bodies/positions", a.limited(a.handleBodyPositions))
	mux.Handle("POST /api/stars/visible", a.limited(a.handleVisibleStars))
	mux.HandleFunc("GET /api/constellations", a.handleConstellations)
	mux.Handle("POST /api/astronomy/events", a.limited(a.handleAstronomyEvents))

	mux.HandleFunc("GET /api/satellites/list", a.handleSatelliteGroups)
	mux.HandleFunc("GET /api/satellites/tle/{group}", a.handleGroupTLE)
	mux.Handle("POST /api/satellites/position", a.limited(a.handleSatellitePosition))
	mux.Handle("POST /api/satellites/passes", a.limited(a.handleSatellitePasses))
	mux.Handle("POST /api/satellites/groundtrack", a.limited(a.handleGroundTrack))

	mux.HandleFunc("GET /api/tle/info", a.handleTLEInfo)
	mux.HandleFunc("POST /api/tle/refresh", a.handleTLERefresh)
	mux.HandleFunc("POST /api/tle/pause", a.handleTLEPause)
	mux.HandleFunc("POST /api/tle/resume", a.handleTLEResume)

	mux.Handle("GET /api/eclipses/lunar", a.limited(a.handleLunarEclipses))
	mux.Handle("POST /api/eclipses/solar", a.limited(a.handleSolarEclipses))

	mux.Handle("GET /metrics", a.metrics.Handler())
	mux.Handle("GET /ws", a.wsHub.Handler())

	return a.metrics.Middleware(a.cors(a.requestLog(mux)))
}

// heartbeatLoop lets watchers detect connectivity and track uptime without
// polling.
func (a *App) heartbeatLoop(ctx context.Context) {
	t := time.NewTicker(10 * time.Second)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			a.wsHub.BroadcastJSON(telemetry.NewHeartbeat(time.Since(a.startedAt), a.wsHub.Clients(), a.ds.HasPlanets()))
		}
	}
}

// observeSearch records a finished engine search in metrics and tells
// watchers about it.
func (a *App) observeSearch(kind string, results int, truncated bool, started time.Time) {
	took := time.Since(started)
	a.metrics.ObserveSearch(kind, took, truncated)
	a.wsHub.BroadcastJSON(telemetry.NewSearch(kind, results, truncated, took))
	if truncated {
		a.logf("info", "engine", "%s search stopped at its cap after %d results", kind, results)
	}
}
