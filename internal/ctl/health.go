package ctl

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Health asks GET /healthz for the component checks and prints each one.
func Health(baseURL string, jsonOutput bool) error {
	baseURL = strings.TrimRight(baseURL, "/")

	status, body, err := getRaw(baseURL, "/healthz", "application/json")
	if err != nil {
		if jsonOutput {
			return printJSON(map[string]any{"healthy": false, "url": baseURL, "error": err.Error()})
		}
		return err
	}

	var resp struct {
		Healthy bool                      `json:"healthy"`
		Checks  map[string]map[string]any `json:"checks"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		// Older daemons answer with plain text.
		resp.Healthy = status == 200
	}

	if jsonOutput {
		return printJSON(map[string]any{"healthy": resp.Healthy, "url": baseURL, "checks": resp.Checks})
	}

	fmt.Println()
	if resp.Healthy {
		fmt.Printf("  %s  skyd is reachable at %s\n", colorize(green, "HEALTHY"), colorize(dim, baseURL))
	} else {
		fmt.Printf("  %s  skyd returned HTTP %d at %s\n", colorize(red, "UNHEALTHY"), status, colorize(dim, baseURL))
	}

	names := make([]string, 0, len(resp.Checks))
	for name := range resp.Checks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		c := resp.Checks[name]
		mark := colorize(green, "ok  ")
		if ok, _ := c["ok"].(bool); !ok {
			mark = colorize(red, "FAIL")
		}
		detail := ""
		if e, ok := c["error"].(string); ok {
			detail = e
		} else if src, ok := c["source"].(string); ok {
			detail = src
		} else if p, ok := c["path"].(string); ok {
			detail = p
		}
		fmt.Printf("    %s  %s %s\n", mark, padRight(name, 16), colorize(dim, detail))
	}
	fmt.Println()
	return nil
}
