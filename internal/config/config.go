// Package config handles loading, defaulting, and validation of the sky
// engine TOML configuration file. Every section maps to a typed struct so the
// rest of the codebase gets strong typing without manual key lookups.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"
)

// Config is the top-level configuration, mirroring the TOML sections.
type Config struct {
	Data      DataConfig      `toml:"data"      json:"data"`
	Logging   LoggingConfig   `toml:"logging"   json:"logging"`
	Server    ServerConfig    `toml:"server"    json:"server"`
	Observer  ObserverConfig  `toml:"observer"  json:"observer"`
	Ephemeris EphemerisConfig `toml:"ephemeris" json:"ephemeris"`
	Predict   PredictConfig   `toml:"predict"   json:"predict"`
	Eclipse   EclipseConfig   `toml:"eclipse"   json:"eclipse"`
}

type DataConfig struct {
	Root string `toml:"root" json:"root" env:"SKYENGINE_DATA_ROOT"`
}

type LoggingConfig struct {
	Level string `toml:"level" json:"level" env:"SKYENGINE_LOG_LEVEL"`
}

type ServerConfig struct {
	Bind               string   `toml:"bind"                  json:"bind"         env:"SKYENGINE_BIND"`
	CORSOrigins        []string `toml:"cors_origins"          json:"cors_origins" env:"CORS_ORIGINS" envSeparator:","`
	RateLimitPerMinute int      `toml:"rate_limit_per_minute" json:"rate_limit_per_minute"`
	RateBurst          int      `toml:"rate_burst"            json:"rate_burst"`
}

// ObserverConfig is the default location skyctl uses when none is given.
type ObserverConfig struct {
	Latitude  float64 `toml:"latitude"  json:"latitude"`
	Longitude float64 `toml:"longitude" json:"longitude"`
	Elevation float64 `toml:"elevation" json:"elevation"`
	UseGPSD   bool    `toml:"use_gpsd"  json:"use_gpsd"`
	GPSDHost  string  `toml:"gpsd_host" json:"gpsd_host"`
}

type EphemerisConfig struct {
	VSOP87Dir string `toml:"vsop87_dir" json:"vsop87_dir" env:"SKYENGINE_VSOP87_DIR"`
}

type PredictConfig struct {
	TLEBaseURL      string  `toml:"tle_base_url"      json:"tle_base_url" env:"SKYENGINE_TLE_BASE_URL"`
	TLERefreshHours int     `toml:"tle_refresh_hours" json:"tle_refresh_hours"`
	DefaultDays     int     `toml:"default_days"      json:"default_days"`
	MaxDays         int     `toml:"max_days"          json:"max_days"`
	MinAltitude     float64 `toml:"min_altitude"      json:"min_altitude"`
	MaxPasses       int     `toml:"max_passes"        json:"max_passes"`
}

type EclipseConfig struct {
	DefaultYears  int `toml:"default_years"  json:"default_years"`
	MaxYears      int `toml:"max_years"      json:"max_years"`
	MaxCandidates int `toml:"max_candidates" json:"max_candidates"`
}

var logLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// Default returns a Config populated with sane defaults. Values here are
// used whenever the TOML file omits a field.
func Default() Config {
	return Config{
		Data: DataConfig{
			Root: "/var/lib/skyengine",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Server: ServerConfig{
			Bind:               "0.0.0.0:8080",
			CORSOrigins:        []string{"*"},
			RateLimitPerMinute: 120,
			RateBurst:          20,
		},
		Observer: ObserverConfig{
			GPSDHost: "localhost:2947",
		},
		Ephemeris: EphemerisConfig{
			VSOP87Dir: "/usr/share/vsop87",
		},
		Predict: PredictConfig{
			TLEBaseURL:      "https://celestrak.org/NORAD/elements/gp.php",
			TLERefreshHours: 24,
			DefaultDays:     7,
			MaxDays:         30,
			MinAltitude:     10,
			MaxPasses:       20,
		},
		Eclipse: EclipseConfig{
			DefaultYears:  2,
			MaxYears:      10,
			MaxCandidates: 30,
		},
	}
}

// Load reads the TOML file at path, layers it on top of the defaults,
// applies environment overrides, and validates the result. An empty path
// skips the file. An error is returned if the file can't be read, parsed,
// or if any constraint is violated.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}

	if err := validate(cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func validate(cfg Config) error {
	if cfg.Data.Root == "" {
		return errors.New("data.root must not be empty")
	}
	if !logLevels[cfg.Logging.Level] {
		return errors.New("logging.level must be one of debug, info, warn, error")
	}
	if cfg.Server.Bind == "" {
		return errors.New("server.bind must not be empty")
	}
	if cfg.Server.RateLimitPerMinute < 0 {
		return errors.New("server.rate_limit_per_minute must be >= 0")
	}
	if cfg.Server.RateLimitPerMinute > 0 && cfg.Server.RateBurst < 1 {
		return errors.New("server.rate_burst must be >= 1 when rate limiting is enabled")
	}
	if cfg.Observer.Latitude < -90 || cfg.Observer.Latitude > 90 {
		return errors.New("observer.latitude must be between -90 and 90")
	}
	if cfg.Observer.Longitude < -180 || cfg.Observer.Longitude > 180 {
		return errors.New("observer.longitude must be between -180 and 180")
	}
	if cfg.Ephemeris.VSOP87Dir == "" {
		return errors.New("ephemeris.vsop87_dir must not be empty")
	}
	if cfg.Predict.TLEBaseURL == "" {
		return errors.New("predict.tle_base_url must not be empty")
	}
	if cfg.Predict.TLERefreshHours < 1 {
		return errors.New("predict.tle_refresh_hours must be >= 1")
	}
	if cfg.Predict.MaxDays < 1 {
		return errors.New("predict.max_days must be >= 1")
	}
	if cfg.Predict.DefaultDays < 1 || cfg.Predict.DefaultDays > cfg.Predict.MaxDays {
		return errors.New("predict.default_days must be between 1 and predict.max_days")
	}
	if cfg.Predict.MinAltitude < 0 || cfg.Predict.MinAltitude >= 90 {
		return errors.New("predict.min_altitude must be in [0, 90)")
	}
	if cfg.Predict.MaxPasses < 1 {
		return errors.New("predict.max_passes must be >= 1")
	}
	if cfg.Eclipse.MaxYears < 1 {
		return errors.New("eclipse.max_years must be >= 1")
	}
	if cfg.Eclipse.DefaultYears < 1 || cfg.Eclipse.DefaultYears > cfg.Eclipse.MaxYears {
		return errors.New("eclipse.default_years must be between 1 and eclipse.max_years")
	}
	if cfg.Eclipse.MaxCandidates < 1 {
		return errors.New("eclipse.max_candidates must be >= 1")
	}
	return nil
}
