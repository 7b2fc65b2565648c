// Package tlesource fetches two-line element sets for named satellite groups.
// Each group is cached on disk and resolved through a tiered fallback: fresh
// cache, network, stale cache, and finally element sets compiled into the
// binary.
package tlesource

import "strings"

// Group is one satellite group offered to clients.
type Group struct {
	ID   string `json:"group_id"`
	Name string `json:"group_name"`
	// Query is the CelesTrak GROUP parameter.
	Query string `json:"-"`
}

var groups = []Group{
	{ID: "stations", Name: "Space Stations", Query: "stations"},
	{ID: "visual", Name: "Brightest", Query: "visual"},
	{ID: "weather", Name: "Weather", Query: "weather"},
	{ID: "noaa", Name: "NOAA", Query: "noaa"},
	{ID: "gps-ops", Name: "GPS Operational", Query: "gps-ops"},
	{ID: "starlink", Name: "Starlink", Query: "starlink"},
	{ID: "amateur", Name: "Amateur Radio", Query: "amateur"},
	{ID: "science", Name: "Space & Earth Science", Query: "science"},
}

// Groups returns the group catalog in display order.
func Groups() []Group {
	out := make([]Group, len(groups))
	copy(out, groups)
	return out
}

// LookupGroup finds a group by ID, ignoring case.
func LookupGroup(id string) (Group, bool) {
	for _, g := range groups {
		if strings.EqualFold(g.ID, id) {
			return g, true
		}
	}
	return Group{}, false
}
