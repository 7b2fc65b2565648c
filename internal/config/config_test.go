package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "skyengine.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	if err := validate(Default()); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadLayersOnDefaults(t *testing.T) {
	path := writeConfig(t, `
[server]
bind = "127.0.0.1:9090"
cors_origins = ["https://sky.example.org", "http://localhost:3000"]

[observer]
latitude = 40.7128
longitude = -74.0060

[predict]
max_days = 14
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Bind != "127.0.0.1:9090" {
		t.Errorf("bind = %q", cfg.Server.Bind)
	}
	if len(cfg.Server.CORSOrigins) != 2 {
		t.Errorf("cors origins = %v", cfg.Server.CORSOrigins)
	}
	if cfg.Observer.Latitude != 40.7128 {
		t.Errorf("latitude = %v", cfg.Observer.Latitude)
	}
	if cfg.Predict.MaxDays != 14 || cfg.Predict.DefaultDays != 7 {
		t.Errorf("predict = %+v", cfg.Predict)
	}
	if cfg.Eclipse.MaxCandidates != 30 {
		t.Errorf("eclipse defaults lost: %+v", cfg.Eclipse)
	}
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name, body, want string
	}{
		{"level", "[logging]\nlevel = \"loud\"", "logging.level"},
		{"latitude", "[observer]\nlatitude = 91.0", "observer.latitude"},
		{"default days", "[predict]\ndefault_days = 40", "predict.default_days"},
		{"min altitude", "[predict]\nmin_altitude = 90.0", "predict.min_altitude"},
		{"eclipse years", "[eclipse]\ndefault_years = 11", "eclipse.default_years"},
		{"vsop dir", "[ephemeris]\nvsop87_dir = \"\"", "ephemeris.vsop87_dir"},
		{"burst", "[server]\nrate_burst = 0", "server.rate_burst"},
		{"syntax", "[server\nbind = 1", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CORS_ORIGINS", "https://a.example.org,https://b.example.org")
	t.Setenv("SKYENGINE_BIND", "127.0.0.1:7070")

	path := writeConfig(t, "[server]\nbind = \"127.0.0.1:9090\"\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Bind != "127.0.0.1:7070" {
		t.Errorf("bind = %q, want env value", cfg.Server.Bind)
	}
	if got := cfg.Server.CORSOrigins; len(got) != 2 || got[1] != "https://b.example.org" {
		t.Errorf("cors origins = %v", got)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("unset env var changed level to %q", cfg.Logging.Level)
	}
}

func TestLoadWithoutFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Predict.MaxPasses != 20 {
		t.Errorf("max passes = %d", cfg.Predict.MaxPasses)
	}
}
