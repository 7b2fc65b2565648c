// Skyctl is the command-line client for a running skyd instance. It queries
// sky positions, satellite passes and eclipses over HTTP, controls the TLE
// refresh loop, and streams live events over WebSocket.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/large-farva/skyengine/internal/config"
	"github.com/large-farva/skyengine/internal/ctl"
)

func main() {
	var (
		host       = pflag.StringP("host", "H", "http://127.0.0.1:8080", "Sky daemon URL (e.g. http://192.168.8.1:8080)")
		jsonOut    = pflag.Bool("json", false, "Output raw JSON instead of formatted text")
		filter     = pflag.StringSlice("filter", nil, "Event types to show in watch (e.g. --filter log,tle_refresh)")
		configPath = pflag.StringP("config", "c", "", "Config TOML supplying the default observer")
		lat        = pflag.Float64("lat", 0, "Observer latitude in degrees")
		lon        = pflag.Float64("lon", 0, "Observer longitude in degrees")
		elev       = pflag.Float64("elev", 0, "Observer elevation in metres")
		at         = pflag.String("at", "", "Instant to compute for, RFC 3339 (default: now)")
		gpsd       = pflag.Bool("gpsd", false, "Take the observer location from gpsd")
	)

	// Stop parsing global flags at the first non-flag argument (the command
	// name), so subcommand-specific flags like --days are not rejected.
	pflag.CommandLine.SetInterspersed(false)
	pflag.Parse()

	if pflag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	cmd := pflag.Arg(0)
	subArgs := pflag.Args()[1:]

	observer := func() ctl.Observer {
		obs, err := resolveObserver(*configPath, *gpsd, *at, *lat, *lon, *elev)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		return obs
	}

	var err error
	switch cmd {
	// ── Daemon ────────────────────────────────────────────────────
	case "status":
		err = ctl.Status(*host, *jsonOut)

	case "health":
		err = ctl.Health(*host, *jsonOut)

	case "version":
		err = ctl.VersionInfo(*host, *jsonOut)

	case "config":
		err = ctl.Config(*host, *jsonOut)

	case "logs":
		opts := ctl.LogsOptions{JSON: *jsonOut}
		logFlags := pflag.NewFlagSet("logs", pflag.ContinueOnError)
		logFlags.StringVar(&opts.Level, "level", "", "Filter by log level (debug, info, warn, error)")
		logFlags.IntVar(&opts.Limit, "limit", 0, "Limit number of log entries shown")
		logFlags.BoolVar(&opts.Tail, "tail", false, "Stream live log events (like watch --filter log)")
		_ = logFlags.Parse(subArgs)
		err = ctl.Logs(*host, opts)

	// ── Sky ───────────────────────────────────────────────────────
	case "planets":
		err = ctl.Planets(*host, observer(), *jsonOut)

	case "bodies":
		if len(subArgs) == 0 {
			err = fmt.Errorf("bodies needs at least one name, e.g. skyctl bodies Moon Sirius")
			break
		}
		err = ctl.Bodies(*host, observer(), subArgs, *jsonOut)

	case "stars":
		err = ctl.Stars(*host, observer(), *jsonOut)

	case "events":
		err = ctl.Events(*host, observer(), *jsonOut)

	case "constellations":
		err = ctl.Constellations(*host, *jsonOut)

	case "eclipses":
		ecFlags := pflag.NewFlagSet("eclipses", pflag.ContinueOnError)
		years := ecFlags.Int("years", 0, "Years to search (default: daemon setting)")
		_ = ecFlags.Parse(subArgs)
		kind := "lunar"
		if ecFlags.NArg() > 0 {
			kind = ecFlags.Arg(0)
		}
		var obs ctl.Observer
		if kind == "solar" {
			obs = observer()
		} else {
			obs = ctl.Observer{Datetime: *at}
		}
		err = ctl.Eclipses(*host, kind, obs, *years, *jsonOut)

	// ── Satellites ────────────────────────────────────────────────
	case "groups":
		err = ctl.Groups(*host, *jsonOut)

	case "tle":
		tleFlags := pflag.NewFlagSet("tle", pflag.ContinueOnError)
		sat := tleFlags.String("satellite", "", "Filter by name or NORAD number")
		_ = tleFlags.Parse(subArgs)
		group := "stations"
		if tleFlags.NArg() > 0 {
			group = tleFlags.Arg(0)
		}
		err = ctl.GroupTLE(*host, group, *sat, *jsonOut)

	case "passes":
		opts := ctl.PassesOptions{JSON: *jsonOut}
		passFlags := pflag.NewFlagSet("passes", pflag.ContinueOnError)
		passFlags.StringVar(&opts.Group, "group", "stations", "Satellite group to search")
		passFlags.StringVar(&opts.Satellite, "satellite", "", "Filter by name or NORAD number")
		passFlags.IntVar(&opts.Days, "days", 0, "Days to search (default: daemon setting)")
		passFlags.IntVar(&opts.Count, "count", 0, "Limit number of passes shown")
		minAlt := passFlags.Float64("min-alt", 0, "Rise/set altitude threshold in degrees (default 10)")
		_ = passFlags.Parse(subArgs)
		if passFlags.Changed("min-alt") {
			opts.MinAltitude = minAlt
		}
		err = ctl.Passes(*host, observer(), opts)

	case "sat-position":
		if len(subArgs) < 2 {
			err = fmt.Errorf("usage: skyctl sat-position <group> <name|norad>")
			break
		}
		err = ctl.SatPosition(*host, observer(), subArgs[0], subArgs[1], *jsonOut)

	// ── TLE refresh ───────────────────────────────────────────────
	case "tle-info":
		err = ctl.TLEInfo(*host, *jsonOut)

	case "tle-refresh":
		group := ""
		if len(subArgs) > 0 {
			group = subArgs[0]
		}
		err = ctl.TLERefresh(*host, group, *jsonOut)

	case "pause":
		err = ctl.Pause(*host, *jsonOut)

	case "resume":
		err = ctl.Resume(*host, *jsonOut)

	// ── Live streaming ────────────────────────────────────────────
	case "watch":
		err = ctl.Watch(*host, ctl.WatchOptions{
			Filter: *filter,
			JSON:   *jsonOut,
		})

	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// resolveObserver picks the observer location: explicit --lat/--lon win,
// then gpsd (flag or config), then the config file's [observer] section.
func resolveObserver(configPath string, useGPSD bool, at string, lat, lon, elev float64) (ctl.Observer, error) {
	if pflag.CommandLine.Changed("lat") || pflag.CommandLine.Changed("lon") {
		return ctl.Observer{Latitude: lat, Longitude: lon, Elevation: elev, Datetime: at}, nil
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return ctl.Observer{}, fmt.Errorf("config load failed: %w", err)
	}

	if useGPSD || cfg.Observer.UseGPSD {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		obs, err := ctl.ObserverFromGPSD(ctx, cfg.Observer.GPSDHost)
		if err != nil {
			return ctl.Observer{}, err
		}
		obs.Datetime = at
		return obs, nil
	}

	return ctl.Observer{
		Latitude:  cfg.Observer.Latitude,
		Longitude: cfg.Observer.Longitude,
		Elevation: cfg.Observer.Elevation,
		Datetime:  at,
	}, nil
}

func usage() {
	fmt.Print(`
  skyctl - sky engine control CLI

  USAGE
    skyctl [flags] <command> [command-flags]

  COMMANDS (daemon)
    status          Show uptime, planetary tables, TLE cache and disk
    health          Run the daemon's component health checks
    version         Show CLI and daemon version information
    config          Show the daemon's running configuration
    logs            Show recent daemon log messages

  COMMANDS (sky)
    planets         Sun, Moon and planets for the observer
    bodies NAME...  Named bodies or catalog stars
    stars           Catalog stars above the horizon
    events          Next new and full moon
    constellations  Seasonal constellation guide
    eclipses [lunar|solar]
                    Upcoming eclipses

  COMMANDS (satellites)
    groups          List the satellite groups
    tle [GROUP]     List a group's members and where the elements came from
    passes          Predict passes for a group or one satellite
    sat-position GROUP NAME
                    Where a satellite is now

  COMMANDS (TLE refresh)
    tle-info        Show TLE cache status and the refresh loop
    tle-refresh [GROUP]
                    Refetch one group, or every warm group
    pause           Pause the periodic refresh
    resume          Resume the periodic refresh

  COMMANDS (live)
    watch           Stream live events from the daemon (Ctrl-C to stop)

  GLOBAL FLAGS
    -H, --host URL      Daemon base URL (default: http://127.0.0.1:8080)
        --json          Output raw JSON instead of formatted text
        --filter TYPE   Event types to show in watch (comma-separated)
    -c, --config PATH   Config TOML with the default [observer]
        --lat DEG       Observer latitude
        --lon DEG       Observer longitude
        --elev M        Observer elevation
        --at TIME       RFC 3339 instant to compute for (default: now)
        --gpsd          Read the observer location from gpsd

  COMMAND FLAGS
    passes:
        --group ID          Satellite group (default: stations)
        --satellite NAME    Filter by name or NORAD number
        --days N            Days to search
        --min-alt DEG       Rise/set altitude threshold (default 10)
        --count N           Limit number of passes shown

    tle:
        --satellite NAME    Filter by name or NORAD number

    eclipses:
        --years N           Years to search

    logs:
        --level LEVEL       Filter by log level
        --limit N           Limit number of log entries shown
        --tail              Stream live log events

  EXAMPLES
    skyctl status
    skyctl --lat 51.48 --lon 0 planets
    skyctl --gpsd stars
    skyctl --lat 40.71 --lon -74.01 passes --satellite ISS --days 3
    skyctl --lat 40.71 --lon -74.01 passes --group weather --min-alt 20 --count 10
    skyctl --lat 40.71 --lon -74.01 sat-position stations 25544
    skyctl eclipses lunar --years 5
    skyctl --at 2024-01-01T00:00:00Z eclipses solar
    skyctl tle weather
    skyctl tle-refresh stations
    skyctl logs --level warn --limit 20
    skyctl watch --filter log,tle_refresh

`)
}
