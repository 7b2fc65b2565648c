package ctl

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ElementSet is one satellite's two-line elements as served by the daemon.
type ElementSet struct {
	Name          string `json:"name"`
	Line1         string `json:"line1"`
	Line2         string `json:"line2"`
	CatalogNumber int    `json:"catalog_number"`
}

// GroupTLEResponse mirrors GET /api/satellites/tle/{group}.
type GroupTLEResponse struct {
	GroupID    string       `json:"group_id"`
	GroupName  string       `json:"group_name"`
	Source     string       `json:"source"`
	Skipped    int          `json:"skipped"`
	Satellites []ElementSet `json:"satellites"`
}

// Groups lists the satellite groups the daemon can fetch.
func Groups(baseURL string, jsonOutput bool) error {
	var groups []struct {
		ID   string `json:"group_id"`
		Name string `json:"group_name"`
	}
	if err := getJSON(baseURL, "/api/satellites/list", &groups); err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(groups)
	}

	fmt.Println()
	fmt.Println(header("  SATELLITE GROUPS"))
	t := newTable("  ", "ID", "Name")
	for _, g := range groups {
		t.row(g.ID, g.Name)
	}
	t.flush()
	fmt.Println()
	return nil
}

func fetchGroup(baseURL, group string) (GroupTLEResponse, error) {
	var resp GroupTLEResponse
	err := do(searchClient, "GET", endpoint(baseURL, "/api/satellites/tle/"+url.PathEscape(group)), nil, &resp)
	return resp, err
}

// matchSatellites picks the members of a group whose name contains filter
// (case-insensitive) or whose catalog number equals it.
func matchSatellites(sats []ElementSet, filter string) []ElementSet {
	if filter == "" {
		return sats
	}
	num, numErr := strconv.Atoi(filter)
	needle := strings.ToLower(filter)
	var out []ElementSet
	for _, s := range sats {
		if strings.Contains(strings.ToLower(s.Name), needle) || (numErr == nil && s.CatalogNumber == num) {
			out = append(out, s)
		}
	}
	return out
}

// GroupTLE lists the members of one group and where their elements came
// from.
func GroupTLE(baseURL, group, filter string, jsonOutput bool) error {
	resp, err := fetchGroup(baseURL, group)
	if err != nil {
		return err
	}
	resp.Satellites = matchSatellites(resp.Satellites, filter)
	if jsonOutput {
		return printJSON(resp)
	}

	fmt.Println()
	fmt.Printf("%s  %s\n", header("  "+strings.ToUpper(resp.GroupName)), colorize(sourceColor(resp.Source), resp.Source))
	if resp.Skipped > 0 {
		fmt.Printf("  %s\n", colorize(yellow, fmt.Sprintf("%d malformed entries skipped", resp.Skipped)))
	}
	t := newTable("  ", "NORAD", "Name")
	for _, s := range resp.Satellites {
		t.row(strconv.Itoa(s.CatalogNumber), s.Name)
	}
	t.flush()
	fmt.Println()
	return nil
}
