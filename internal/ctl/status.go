package ctl

import (
	"fmt"
	"strings"
	"time"
)

// CacheEntry is one TLE group as reported by the daemon's cache.
type CacheEntry struct {
	GroupID    string    `json:"group_id"`
	Source     string    `json:"source"`
	FetchedAt  time.Time `json:"fetched_at"`
	Satellites int       `json:"satellites"`
	Skipped    int       `json:"skipped"`
}

// RefreshStatus mirrors the background refresh loop snapshot.
type RefreshStatus struct {
	Paused   bool      `json:"paused"`
	Interval string    `json:"interval"`
	Groups   []string  `json:"groups"`
	LastRun  time.Time `json:"last_run"`
	NextRun  time.Time `json:"next_run"`
}

// StatusResponse mirrors the JSON returned by GET /api/status.
type StatusResponse struct {
	Name            string        `json:"name"`
	UptimeSeconds   int64         `json:"uptime_seconds"`
	DataRoot        string        `json:"data_root"`
	PlanetaryTables bool          `json:"planetary_tables"`
	VSOP87Dir       string        `json:"vsop87_dir"`
	WSClients       int           `json:"ws_clients"`
	TLECache        []CacheEntry  `json:"tle_cache"`
	Refresh         RefreshStatus `json:"refresh"`
	Disk            *struct {
		TotalBytes     uint64  `json:"total_bytes"`
		UsedBytes      uint64  `json:"used_bytes"`
		AvailableBytes uint64  `json:"available_bytes"`
		UsedPercent    float64 `json:"used_percent"`
	} `json:"disk"`
}

// Status fetches the daemon status and prints a formatted summary.
func Status(baseURL string, jsonOutput bool) error {
	var s StatusResponse
	if err := getJSON(baseURL, "/api/status", &s); err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(s)
	}

	uptime := formatDuration(time.Duration(s.UptimeSeconds) * time.Second)
	tables := colorize(green, "loaded")
	if !s.PlanetaryTables {
		tables = colorize(yellow, "not loaded") + colorize(dim, " (Sun and Moon only)")
	}
	refresh := colorize(green, "running")
	if s.Refresh.Paused {
		refresh = colorize(yellow, "paused")
	}

	fmt.Println()
	fmt.Println(header("  SKY ENGINE STATUS"))
	fmt.Println(rule(38))
	fmt.Printf("  %-12s %s\n", colorize(dim, "Daemon:"), s.Name)
	fmt.Printf("  %-12s %s\n", colorize(dim, "Uptime:"), uptime)
	fmt.Printf("  %-12s %s\n", colorize(dim, "Planets:"), tables)
	fmt.Printf("  %-12s %s\n", colorize(dim, "Data:"), s.DataRoot)
	fmt.Printf("  %-12s %d\n", colorize(dim, "Watchers:"), s.WSClients)
	fmt.Printf("  %-12s %s every %s\n", colorize(dim, "Refresh:"), refresh, s.Refresh.Interval)
	if !s.Refresh.NextRun.IsZero() && !s.Refresh.Paused {
		fmt.Printf("  %-12s %s\n", colorize(dim, "Next fetch:"), s.Refresh.NextRun.Local().Format("2006-01-02 15:04 MST"))
	}
	if s.Disk != nil {
		fmt.Printf("  %-12s %s free of %s (%.0f%% used)\n", colorize(dim, "Disk:"),
			formatBytes(s.Disk.AvailableBytes), formatBytes(s.Disk.TotalBytes), s.Disk.UsedPercent)
	}
	fmt.Printf("  %-12s %s\n", colorize(dim, "Host:"), strings.TrimRight(baseURL, "/"))

	if len(s.TLECache) > 0 {
		fmt.Println()
		printCache(s.TLECache)
	}
	fmt.Println()
	return nil
}

func printCache(entries []CacheEntry) {
	t := newTable("  ", "Group", "Source", "Satellites", "Age")
	for _, e := range entries {
		age := "-"
		if !e.FetchedAt.IsZero() {
			age = formatDuration(time.Since(e.FetchedAt))
		}
		t.row(e.GroupID, colorize(sourceColor(e.Source), e.Source), fmt.Sprint(e.Satellites), age)
	}
	t.flush()
}
