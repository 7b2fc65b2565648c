package ctl

import (
	"fmt"
	"strings"
)

// Stamped with -ldflags "-X .../internal/ctl.Version=...".
var (
	Version   = "dev"
	GoVersion = "unknown"
)

// DaemonVersion is the reply of GET /api/version.
type DaemonVersion struct {
	Version         string `json:"version"`
	GoVersion       string `json:"go_version"`
	BuiltAt         string `json:"built_at"`
	PlanetaryTables bool   `json:"planetary_tables"`
	TLEGroups       int    `json:"tle_groups"`
}

// versionSkew describes a CLI/daemon release mismatch, or returns "" when
// they agree or either side is an unstamped dev build.
func versionSkew(cli, daemon string) string {
	c, d := strings.TrimPrefix(cli, "v"), strings.TrimPrefix(daemon, "v")
	if c == "dev" || d == "dev" || c == "" || d == "" || c == d {
		return ""
	}
	return fmt.Sprintf("skyctl %s talking to skyd %s", cli, daemon)
}

// VersionInfo prints the CLI build next to the daemon's, plus what the
// daemon can answer.
func VersionInfo(baseURL string, jsonOutput bool) error {
	var daemon DaemonVersion
	daemonErr := getJSON(baseURL, "/api/version", &daemon)

	if jsonOutput {
		resp := map[string]any{
			"cli": map[string]string{"version": Version, "go_version": GoVersion},
		}
		if daemonErr != nil {
			resp["daemon_error"] = daemonErr.Error()
		} else {
			resp["daemon"] = daemon
			if skew := versionSkew(Version, daemon.Version); skew != "" {
				resp["skew"] = skew
			}
		}
		return printJSON(resp)
	}

	fmt.Println()
	fmt.Println(header("  SKYENGINE"))
	fmt.Println(rule(44))
	fmt.Printf("  %-14s %s (%s)\n", colorize(dim, "skyctl"), Version, GoVersion)
	if daemonErr != nil {
		fmt.Printf("  %-14s %s\n", colorize(dim, "skyd"), colorize(red, "unreachable: "+daemonErr.Error()))
		fmt.Println()
		return nil
	}

	fmt.Printf("  %-14s %s (%s)\n", colorize(dim, "skyd"), daemon.Version, daemon.GoVersion)
	if daemon.BuiltAt != "" {
		fmt.Printf("  %-14s %s\n", colorize(dim, "built"), daemon.BuiltAt)
	}
	planets := colorize(green, "loaded")
	if !daemon.PlanetaryTables {
		planets = colorize(yellow, "missing, Sun and Moon only")
	}
	fmt.Printf("  %-14s %s\n", colorize(dim, "planets"), planets)
	fmt.Printf("  %-14s %d\n", colorize(dim, "tle groups"), daemon.TLEGroups)
	if skew := versionSkew(Version, daemon.Version); skew != "" {
		fmt.Printf("\n  %s %s\n", colorize(yellow, "version skew:"), skew)
	}
	fmt.Println()
	return nil
}
