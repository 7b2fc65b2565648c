package ctl

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

// WatchOptions controls the watch command behavior.
type WatchOptions struct {
	Filter []string // event types to show (empty = all)
	JSON   bool     // output raw JSON per event
}

// Watch connects to the daemon's WebSocket endpoint and streams events to
// the terminal in a human-readable format until interrupted.
func Watch(baseURL string, opts WatchOptions) error {
	u, err := wsURL(baseURL)
	if err != nil {
		return err
	}

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	if !opts.JSON {
		fmt.Println()
		fmt.Printf("  %s %s\n", colorize(green, "connected"), colorize(dim, u.String()))
		if len(opts.Filter) > 0 {
			fmt.Printf("  %s %s\n", colorize(dim, "filter:"), colorize(dim, strings.Join(opts.Filter, ", ")))
		}
		fmt.Println(rule(50))
		fmt.Println()
	}

	want := eventFilter(opts.Filter)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}

			if !want(msg) {
				continue
			}
			if opts.JSON {
				fmt.Println(string(msg))
			} else {
				renderEvent(msg)
			}
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sig:
		if !opts.JSON {
			fmt.Println()
			fmt.Println(colorize(dim, "  disconnecting..."))
		}
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"),
			time.Now().Add(1*time.Second),
		)
		return nil
	case <-done:
		return nil
	}
}

// renderEvent parses a JSON event and prints it in a human-friendly format.
// Falls back to raw JSON for unrecognized event types.
func renderEvent(raw []byte) {
	var ev map[string]any
	if err := json.Unmarshal(raw, &ev); err != nil {
		fmt.Printf("  %s\n", string(raw))
		return
	}

	evType, _ := ev["type"].(string)
	ts := formatEventTime(ev)

	switch evType {
	case "heartbeat":
		uptime, _ := ev["uptime_seconds"].(float64)
		clients, _ := ev["clients"].(float64)
		tables, _ := ev["planetary_tables"].(bool)
		mode := "lunisolar"
		if tables {
			mode = "planets"
		}
		fmt.Printf("  %s %s  up %s  %s  %s\n",
			colorize(dim, ts),
			colorize(dim, "heartbeat"),
			colorize(dim, formatDuration(time.Duration(uptime)*time.Second)),
			colorize(dim, fmt.Sprintf("%.0f watching", clients)),
			colorize(dim, mode),
		)

	case "log":
		level, _ := ev["level"].(string)
		message, _ := ev["message"].(string)
		component, _ := ev["component"].(string)
		src := ""
		if component != "" {
			src = colorize(dim, "["+component+"] ")
		}
		fmt.Printf("  %s %s  %s%s\n", colorize(dim, ts), formatLogLevel(level), src, message)

	case "tle_refresh":
		group, _ := ev["group"].(string)
		source, _ := ev["source"].(string)
		sats, _ := ev["satellites"].(float64)
		if msg, _ := ev["error"].(string); msg != "" {
			fmt.Printf("  %s %s  %s %s\n", colorize(dim, ts), colorize(red, "TLE  "), padRight(group, 10), msg)
			return
		}
		fmt.Printf("  %s %s  %s %s  %.0f satellites\n",
			colorize(dim, ts),
			colorize(cyan, "TLE  "),
			padRight(group, 10),
			colorize(sourceColor(source), padRight(source, 11)),
			sats,
		)

	case "search":
		kind, _ := ev["kind"].(string)
		results, _ := ev["results"].(float64)
		ms, _ := ev["duration_ms"].(float64)
		capped := ""
		if t, _ := ev["truncated"].(bool); t {
			capped = colorize(yellow, " capped")
		}
		fmt.Printf("  %s %s  %s %.0f results in %.0f ms%s\n",
			colorize(dim, ts),
			colorize(blue, "SRCH "),
			padRight(kind, 14),
			results,
			ms,
			capped,
		)

	default:
		pretty, err := json.MarshalIndent(ev, "  ", "  ")
		if err != nil {
			fmt.Printf("  %s\n", string(raw))
			return
		}
		fmt.Printf("  %s\n", string(pretty))
	}
}

// formatEventTime extracts and shortens the timestamp from an event.
func formatEventTime(ev map[string]any) string {
	tsRaw, ok := ev["ts"].(string)
	if !ok {
		return "          "
	}
	t, err := time.Parse(time.RFC3339Nano, tsRaw)
	if err != nil {
		return padRight(tsRaw, 8)
	}
	return t.Local().Format("15:04:05")
}

// wsURL maps the daemon's HTTP base URL to its WebSocket endpoint.
func wsURL(baseURL string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	u.RawQuery = ""
	return u, nil
}

// eventFilter returns a predicate that keeps events whose type is in types.
// An empty list keeps everything, as does a message that is not JSON.
func eventFilter(types []string) func([]byte) bool {
	if len(types) == 0 {
		return func([]byte) bool { return true }
	}
	set := make(map[string]bool, len(types))
	for _, t := range types {
		set[strings.TrimSpace(t)] = true
	}
	return func(msg []byte) bool {
		var ev struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(msg, &ev); err != nil {
			return true
		}
		return set[ev.Type]
	}
}
