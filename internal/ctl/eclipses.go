package ctl

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// EclipseEvent mirrors one eclipse returned by the daemon.
type EclipseEvent struct {
	Datetime           string   `json:"datetime"`
	Kind               string   `json:"kind"`
	Type               string   `json:"type"`
	Description        string   `json:"description"`
	Note               string   `json:"note,omitempty"`
	UmbralMagnitude    *float64 `json:"umbral_magnitude,omitempty"`
	PenumbralMagnitude *float64 `json:"penumbral_magnitude,omitempty"`
	SeparationDeg      *float64 `json:"separation_deg,omitempty"`
}

// Eclipses lists lunar or solar eclipses over the next years (zero lets the
// daemon pick its default).
func Eclipses(baseURL, kind string, obs Observer, years int, jsonOutput bool) error {
	var resp struct {
		Eclipses  []EclipseEvent `json:"eclipses"`
		Truncated bool           `json:"truncated"`
	}

	switch kind {
	case "lunar":
		q := url.Values{}
		if years > 0 {
			q.Set("years", strconv.Itoa(years))
		}
		if obs.Datetime != "" {
			q.Set("datetime", obs.Datetime)
		}
		path := "/api/eclipses/lunar"
		if len(q) > 0 {
			path += "?" + q.Encode()
		}
		if err := do(searchClient, http.MethodGet, endpoint(baseURL, path), nil, &resp); err != nil {
			return err
		}
	case "solar":
		extra := map[string]any{}
		if years > 0 {
			extra["years"] = years
		}
		if err := search(baseURL, "/api/eclipses/solar", obs.request(extra), &resp); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown eclipse kind %q (want lunar or solar)", kind)
	}

	if jsonOutput {
		return printJSON(resp)
	}

	fmt.Println()
	if kind == "lunar" {
		fmt.Println(header("  LUNAR ECLIPSES"))
	} else {
		fmt.Println(header("  SOLAR ECLIPSES"))
	}
	fmt.Println(rule(70))
	if len(resp.Eclipses) == 0 {
		fmt.Println(colorize(dim, "  None in the window."))
	}
	for _, e := range resp.Eclipses {
		fmt.Printf("  %s  %s  %s\n", formatLocalTime(e.Datetime), colorize(bold, padRight(e.Type, 13)), e.Description)
	}
	if len(resp.Eclipses) > 0 && resp.Eclipses[0].Note != "" {
		fmt.Printf("\n  %s\n", colorize(dim, resp.Eclipses[0].Note))
	}
	if resp.Truncated {
		fmt.Printf("  %s\n", colorize(yellow, "search stopped at the candidate cap; shorten the window for a complete list"))
	}
	fmt.Println()
	return nil
}
