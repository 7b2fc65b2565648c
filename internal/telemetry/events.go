// Package telemetry defines the typed events skyd pushes to WebSocket
// watchers. Every event carries a type, a timestamp and the component that
// produced it.
package telemetry

import "time"

// EventType identifies the kind of WebSocket event.
type EventType string

const (
	EventHeartbeat  EventType = "heartbeat"
	EventLog        EventType = "log"
	EventTLERefresh EventType = "tle_refresh"
	EventSearch     EventType = "search"
)

// Event is the base envelope shared by every event type.
type Event struct {
	Type      EventType `json:"type"`
	TS        string    `json:"ts"`
	Component string    `json:"component"`
}

// NowTS returns the current UTC time as an RFC 3339 nano string, the
// timestamp format used across all events.
func NowTS() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func envelope(t EventType, component string) Event {
	return Event{Type: t, TS: NowTS(), Component: component}
}

// Heartbeat lets watchers detect connectivity and monitor uptime.
type Heartbeat struct {
	Event
	UptimeSeconds int64 `json:"uptime_seconds"`
	Clients       int   `json:"clients"`
	Ephemeris     bool  `json:"planetary_tables"`
}

func NewHeartbeat(uptime time.Duration, clients int, planets bool) Heartbeat {
	return Heartbeat{
		Event:         envelope(EventHeartbeat, "skyd"),
		UptimeSeconds: int64(uptime.Seconds()),
		Clients:       clients,
		Ephemeris:     planets,
	}
}

// LogLine carries a human-readable log message at a severity level.
type LogLine struct {
	Event
	Level   string `json:"level"`
	Message string `json:"message"`
}

func NewLogLine(component, level, message string) LogLine {
	return LogLine{Event: envelope(EventLog, component), Level: level, Message: message}
}

// TLERefresh reports the outcome of refreshing one satellite group.
type TLERefresh struct {
	Event
	Group      string `json:"group"`
	Source     string `json:"source"`
	Satellites int    `json:"satellites"`
	Error      string `json:"error,omitempty"`
}

func NewTLERefresh(group, source string, satellites int, err error) TLERefresh {
	ev := TLERefresh{
		Event:      envelope(EventTLERefresh, "refresh"),
		Group:      group,
		Source:     source,
		Satellites: satellites,
	}
	if err != nil {
		ev.Error = err.Error()
	}
	return ev
}

// Search summarizes a completed engine search such as a pass or eclipse
// sweep, so watchers can follow load without polling /metrics.
type Search struct {
	Event
	Kind       string  `json:"kind"`
	Results    int     `json:"results"`
	Truncated  bool    `json:"truncated"`
	DurationMS float64 `json:"duration_ms"`
}

func NewSearch(kind string, results int, truncated bool, took time.Duration) Search {
	return Search{
		Event:      envelope(EventSearch, "engine"),
		Kind:       kind,
		Results:    results,
		Truncated:  truncated,
		DurationMS: float64(took.Microseconds()) / 1000,
	}
}
