package ctl

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/large-farva/skyengine/internal/config"
)

// Config fetches and displays the daemon's running configuration.
func Config(baseURL string, jsonOutput bool) error {
	var raw json.RawMessage
	if err := getJSON(baseURL, "/api/config", &raw); err != nil {
		return err
	}

	if jsonOutput {
		var v any
		_ = json.Unmarshal(raw, &v)
		return printJSON(v)
	}

	var cfg config.Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(header("  DAEMON CONFIGURATION"))
	fmt.Println(rule(50))

	section := func(name string) {
		fmt.Printf("\n  %s\n", colorize(bold, "["+name+"]"))
	}
	field := func(key string, val any) {
		fmt.Printf("    %-24s %v\n", colorize(dim, key+":"), val)
	}

	section("data")
	field("root", cfg.Data.Root)

	section("logging")
	field("level", cfg.Logging.Level)

	section("server")
	field("bind", cfg.Server.Bind)
	field("cors_origins", strings.Join(cfg.Server.CORSOrigins, ", "))
	field("rate_limit_per_minute", cfg.Server.RateLimitPerMinute)
	field("rate_burst", cfg.Server.RateBurst)

	section("observer")
	field("latitude", cfg.Observer.Latitude)
	field("longitude", cfg.Observer.Longitude)
	field("elevation", cfg.Observer.Elevation)
	field("use_gpsd", cfg.Observer.UseGPSD)
	field("gpsd_host", cfg.Observer.GPSDHost)

	section("ephemeris")
	field("vsop87_dir", cfg.Ephemeris.VSOP87Dir)

	section("predict")
	field("tle_base_url", cfg.Predict.TLEBaseURL)
	field("tle_refresh_hours", cfg.Predict.TLERefreshHours)
	field("default_days", cfg.Predict.DefaultDays)
	field("max_days", cfg.Predict.MaxDays)
	field("min_altitude", cfg.Predict.MinAltitude)
	field("max_passes", cfg.Predict.MaxPasses)

	section("eclipse")
	field("default_years", cfg.Eclipse.DefaultYears)
	field("max_years", cfg.Eclipse.MaxYears)
	field("max_candidates", cfg.Eclipse.MaxCandidates)

	fmt.Println()
	return nil
}
