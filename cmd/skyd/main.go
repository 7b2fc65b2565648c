// Skyd is the sky engine daemon.
//
// It loads configuration and the ephemeris tables, serves the HTTP and
// WebSocket API, and keeps the satellite element sets fresh in the
// background. Shutdown is handled gracefully on SIGINT or SIGTERM.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/large-farva/skyengine/internal/app"
	"github.com/large-farva/skyengine/internal/config"
	"github.com/large-farva/skyengine/internal/ephemeris"
)

func main() {
	var (
		configPath = pflag.StringP("config", "c", "/etc/skyengine/skyengine.toml", "Path to config TOML (empty for defaults and environment only)")
		bind       = pflag.String("bind", "", "HTTP bind address (overrides server.bind)")
	)
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	logger := log.New(os.Stdout, "skyd ", log.LstdFlags|log.Lmicroseconds)

	ds, err := ephemeris.Load(cfg.Ephemeris.VSOP87Dir)
	if err != nil {
		logger.Fatalf("ephemeris load failed: %v", err)
	}
	logger.Printf("ephemeris tables loaded from %s", ds.Dir())

	a := app.New(app.Options{
		Logger:     logger,
		Cfg:        cfg,
		Bind:       *bind,
		Dataset:    ds,
		ConfigPath: *configPath,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Run(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("skyd failed: %v", err)
	}

	// Brief pause so in-flight log writes can flush before exit.
	time.Sleep(50 * time.Millisecond)
}
