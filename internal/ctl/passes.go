package ctl

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// PassesOptions controls the passes command.
type PassesOptions struct {
	Group       string
	Satellite   string // name substring or NORAD number; empty means the whole group
	Days        int
	MinAltitude *float64
	Count       int
	JSON        bool
}

// maxGroupSatellites bounds how many members of an unfiltered group get a
// pass search, so "passes --group starlink" does not fan out thousands of
// requests. It matches the daemon's default rate-limit burst; requests past
// a lower configured burst are retried after Retry-After.
const maxGroupSatellites = 20

// Pass is one predicted pass, tagged with its satellite.
type Pass struct {
	Satellite    string  `json:"satellite"`
	RiseTime     string  `json:"rise_time"`
	RiseAzimuth  float64 `json:"rise_azimuth"`
	MaxTime      string  `json:"max_time"`
	MaxAltitude  float64 `json:"max_altitude"`
	MaxAzimuth   float64 `json:"max_azimuth"`
	SetTime      string  `json:"set_time"`
	SetAzimuth   float64 `json:"set_azimuth"`
	DurationSecs float64 `json:"duration_seconds"`
}

// Passes fetches a group's elements from the daemon and asks for the passes
// of each matching satellite, merging the results in rise order.
func Passes(baseURL string, obs Observer, opts PassesOptions) error {
	group, err := fetchGroup(baseURL, opts.Group)
	if err != nil {
		return err
	}
	sats := matchSatellites(group.Satellites, opts.Satellite)
	if len(sats) == 0 {
		return fmt.Errorf("no satellite in %s matches %q", opts.Group, opts.Satellite)
	}
	if len(sats) > maxGroupSatellites {
		sats = sats[:maxGroupSatellites]
	}

	var (
		mu        sync.Mutex
		passes    []Pass
		truncated []string
	)
	var g errgroup.Group
	g.SetLimit(4)
	for _, s := range sats {
		g.Go(func() error {
			extra := map[string]any{"name": s.Name, "line1": s.Line1, "line2": s.Line2}
			if opts.Days > 0 {
				extra["days"] = opts.Days
			}
			if opts.MinAltitude != nil {
				extra["min_altitude"] = *opts.MinAltitude
			}
			var resp struct {
				Passes    []Pass `json:"passes"`
				Truncated bool   `json:"truncated"`
			}
			if err := search(baseURL, "/api/satellites/passes", obs.request(extra), &resp); err != nil {
				return fmt.Errorf("%s: %w", s.Name, err)
			}
			mu.Lock()
			defer mu.Unlock()
			for _, p := range resp.Passes {
				p.Satellite = s.Name
				passes = append(passes, p)
			}
			if resp.Truncated {
				truncated = append(truncated, s.Name)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	sortPasses(passes)
	if opts.Count > 0 && len(passes) > opts.Count {
		passes = passes[:opts.Count]
	}

	if opts.JSON {
		return printJSON(map[string]any{"group": group.GroupID, "passes": passes, "truncated": truncated})
	}

	fmt.Println()
	fmt.Println(header("  UPCOMING PASSES"))
	fmt.Printf("  %s %s   %s %s (%s)\n",
		colorize(dim, "Observer:"), obs,
		colorize(dim, "Group:"), group.GroupName, colorize(sourceColor(group.Source), group.Source))
	fmt.Println(rule(76))

	if len(passes) == 0 {
		fmt.Println(colorize(dim, "  No upcoming passes found."))
		fmt.Println()
		return nil
	}

	t := newTable("  ", "#", "Satellite", "Rise", "Max", "Set", "Duration")
	for i, p := range passes {
		dur := formatDuration(time.Duration(p.DurationSecs) * time.Second)
		t.row(
			fmt.Sprint(i+1),
			colorize(bold, p.Satellite),
			formatLocalTime(p.RiseTime)+" "+colorize(dim, formatDegrees(p.RiseAzimuth)),
			formatDegrees(p.MaxAltitude),
			formatLocalTime(p.SetTime)+" "+colorize(dim, formatDegrees(p.SetAzimuth)),
			dur,
		)
	}
	t.flush()
	if len(truncated) > 0 {
		fmt.Printf("\n  %s %s\n", colorize(yellow, "capped:"), strings.Join(truncated, ", "))
	}
	fmt.Println()
	return nil
}

// sortPasses orders passes by rise time, then satellite name. Timestamps are
// RFC 3339 UTC strings of one layout, so they compare lexically.
func sortPasses(passes []Pass) {
	sort.SliceStable(passes, func(i, j int) bool {
		if passes[i].RiseTime != passes[j].RiseTime {
			return passes[i].RiseTime < passes[j].RiseTime
		}
		return passes[i].Satellite < passes[j].Satellite
	})
}
