package ctl

import (
	"fmt"
	"sort"
)

// Position mirrors the daemon's apparent position of a body or star.
type Position struct {
	Name       string   `json:"name"`
	Altitude   float64  `json:"altitude"`
	Azimuth    float64  `json:"azimuth"`
	RA         float64  `json:"ra"`
	Dec        float64  `json:"dec"`
	DistanceKm *float64 `json:"distance_km,omitempty"`
	Magnitude  *float64 `json:"magnitude"`
	Visible    bool     `json:"visible"`
}

// Planets prints the Sun, Moon and planets for the observer.
func Planets(baseURL string, obs Observer, jsonOutput bool) error {
	var resp map[string]Position
	if err := postJSON(baseURL, "/api/planets/positions", obs.request(nil), &resp); err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(resp)
	}
	list := make([]Position, 0, len(resp))
	for _, p := range resp {
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Altitude > list[j].Altitude })
	printPositions("PLANETS", obs, list)
	return nil
}

// Bodies prints the named bodies in the order given.
func Bodies(baseURL string, obs Observer, names []string, jsonOutput bool) error {
	var resp []Position
	if err := postJSON(baseURL, "/api/bodies/positions", obs.request(map[string]any{"bodies": names}), &resp); err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(resp)
	}
	printPositions("BODIES", obs, resp)
	return nil
}

// Stars prints the catalog stars above the observer's horizon.
func Stars(baseURL string, obs Observer, jsonOutput bool) error {
	var resp []Position
	if err := postJSON(baseURL, "/api/stars/visible", obs.request(nil), &resp); err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(resp)
	}
	sort.Slice(resp, func(i, j int) bool { return resp[i].Altitude > resp[j].Altitude })
	printPositions("VISIBLE STARS", obs, resp)
	return nil
}

func printPositions(title string, obs Observer, list []Position) {
	fmt.Println()
	fmt.Println(header("  " + title))
	fmt.Printf("  %s %s\n", colorize(dim, "Observer:"), obs)
	fmt.Println(rule(60))
	if len(list) == 0 {
		fmt.Println(colorize(dim, "  Nothing above the horizon."))
		fmt.Println()
		return
	}
	t := newTable("  ", "Name", "Alt", "Az", "RA", "Dec", "Mag")
	for _, p := range list {
		name := p.Name
		if p.Visible {
			name = colorize(green, name)
		} else {
			name = colorize(dim, name)
		}
		mag := "-"
		if p.Magnitude != nil {
			mag = fmt.Sprintf("%.2f", *p.Magnitude)
		}
		t.row(name, formatDegrees(p.Altitude), formatDegrees(p.Azimuth),
			formatDegrees(p.RA), formatDegrees(p.Dec), mag)
	}
	t.flush()
	fmt.Println()
}

// Events prints the next new and full moon.
func Events(baseURL string, obs Observer, jsonOutput bool) error {
	var resp []struct {
		Type        string `json:"type"`
		Date        string `json:"date"`
		Description string `json:"description"`
	}
	if err := postJSON(baseURL, "/api/astronomy/events", obs.request(nil), &resp); err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(resp)
	}
	fmt.Println()
	fmt.Println(header("  LUNAR PHASES"))
	fmt.Println(rule(50))
	for _, e := range resp {
		fmt.Printf("  %-10s %s  %s\n", colorize(bold, e.Type), formatLocalTime(e.Date), colorize(dim, e.Description))
	}
	fmt.Println()
	return nil
}

// Constellations prints the seasonal constellation guide.
func Constellations(baseURL string, jsonOutput bool) error {
	var resp []struct {
		Name       string `json:"name"`
		CommonName string `json:"common_name"`
		BestMonth  string `json:"best_month"`
	}
	if err := getJSON(baseURL, "/api/constellations", &resp); err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(resp)
	}
	fmt.Println()
	fmt.Println(header("  CONSTELLATIONS"))
	t := newTable("  ", "Name", "Common name", "Best month")
	for _, c := range resp {
		t.row(c.Name, c.CommonName, c.BestMonth)
	}
	t.flush()
	fmt.Println()
	return nil
}
