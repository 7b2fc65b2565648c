package ctl

import (
	"fmt"
)

// SatPosition prints where the first satellite of group matching filter is
// now (or at obs.Datetime) and how it looks from the observer.
func SatPosition(baseURL string, obs Observer, group, filter string, jsonOutput bool) error {
	g, err := fetchGroup(baseURL, group)
	if err != nil {
		return err
	}
	sats := matchSatellites(g.Satellites, filter)
	if len(sats) == 0 {
		return fmt.Errorf("no satellite in %s matches %q", group, filter)
	}
	s := sats[0]

	var resp struct {
		Name       string  `json:"name"`
		Latitude   float64 `json:"latitude"`
		Longitude  float64 `json:"longitude"`
		AltitudeKm float64 `json:"altitude_km"`
		DistanceKm float64 `json:"distance_km"`
		Visible    bool    `json:"visible"`
		Altitude   float64 `json:"observer_altitude"`
		Azimuth    float64 `json:"observer_azimuth"`
		Datetime   string  `json:"datetime"`
	}
	body := obs.request(map[string]any{"name": s.Name, "line1": s.Line1, "line2": s.Line2})
	if err := postJSON(baseURL, "/api/satellites/position", body, &resp); err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(resp)
	}

	vis := colorize(dim, "below horizon")
	if resp.Visible {
		vis = colorize(green, "above horizon")
	}
	fmt.Println()
	fmt.Printf("%s  %s\n", header("  "+resp.Name), colorize(dim, fmt.Sprintf("NORAD %d", s.CatalogNumber)))
	fmt.Println(rule(44))
	fmt.Printf("  %-14s %s\n", colorize(dim, "Time:"), formatLocalTime(resp.Datetime))
	fmt.Printf("  %-14s %.4f, %.4f\n", colorize(dim, "Subpoint:"), resp.Latitude, resp.Longitude)
	fmt.Printf("  %-14s %.1f km\n", colorize(dim, "Height:"), resp.AltitudeKm)
	fmt.Printf("  %-14s %s alt, %s az (%s)\n", colorize(dim, "Look:"),
		formatDegrees(resp.Altitude), formatDegrees(resp.Azimuth), vis)
	fmt.Printf("  %-14s %.0f km\n", colorize(dim, "Range:"), resp.DistanceKm)
	fmt.Println()
	return nil
}
