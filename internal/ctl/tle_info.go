package ctl

import (
	"fmt"
)

// TLEInfo shows the TLE cache per group and the refresh loop state.
func TLEInfo(baseURL string, jsonOutput bool) error {
	var resp struct {
		Groups  []CacheEntry  `json:"groups"`
		Refresh RefreshStatus `json:"refresh"`
	}
	if err := getJSON(baseURL, "/api/tle/info", &resp); err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(resp)
	}

	fmt.Println()
	fmt.Println(header("  TLE CACHE INFO"))
	fmt.Println(rule(50))
	if len(resp.Groups) == 0 {
		fmt.Println(colorize(dim, "  Nothing fetched yet."))
	} else {
		printCache(resp.Groups)
	}

	state := colorize(green, "running")
	if resp.Refresh.Paused {
		state = colorize(yellow, "paused")
	}
	fmt.Println()
	fmt.Printf("  Refresh:    %s every %s\n", state, resp.Refresh.Interval)
	fmt.Printf("  Warm:       %v\n", resp.Refresh.Groups)
	if !resp.Refresh.LastRun.IsZero() {
		fmt.Printf("  Last run:   %s\n", resp.Refresh.LastRun.Local().Format("2006-01-02 15:04 MST"))
	}
	fmt.Println()
	return nil
}

// commandResult mirrors the daemon's reply to a refresh loop command.
type commandResult struct {
	OK                bool   `json:"ok"`
	Message           string `json:"message,omitempty"`
	Error             string `json:"error,omitempty"`
	GroupsUpdated     int    `json:"groups_updated,omitempty"`
	SatellitesUpdated int    `json:"satellites_updated,omitempty"`
	Failures          []struct {
		Group string `json:"group"`
		Error string `json:"error"`
	} `json:"failures,omitempty"`
}

// TLERefresh forces a refetch of one group, or of every warm group when
// group is empty.
func TLERefresh(baseURL, group string, jsonOutput bool) error {
	var body any
	if group != "" {
		body = map[string]string{"group": group}
	}
	var res commandResult
	err := do(searchClient, "POST", endpoint(baseURL, "/api/tle/refresh"), body, &res)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(res)
	}
	fmt.Printf("\n  %s  %s\n", colorize(green, "REFRESHED"), res.Message)
	fmt.Println()
	return nil
}

// Pause stops the daemon's periodic TLE refresh.
func Pause(baseURL string, jsonOutput bool) error {
	return refreshControl(baseURL, "/api/tle/pause", "PAUSED", jsonOutput)
}

// Resume restarts the periodic TLE refresh.
func Resume(baseURL string, jsonOutput bool) error {
	return refreshControl(baseURL, "/api/tle/resume", "RESUMED", jsonOutput)
}

func refreshControl(baseURL, path, label string, jsonOutput bool) error {
	var res commandResult
	if err := postJSON(baseURL, path, nil, &res); err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(res)
	}
	fmt.Printf("\n  %s  %s\n\n", colorize(green, label), res.Message)
	return nil
}
