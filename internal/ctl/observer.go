package ctl

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"
)

// Observer is the location and time sent with every engine request. An empty
// Datetime lets the daemon use its current time.
type Observer struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Elevation float64 `json:"elevation"`
	Datetime  string  `json:"datetime,omitempty"`
}

// request merges the observer fields with extra request fields.
func (o Observer) request(extra map[string]any) map[string]any {
	body := map[string]any{
		"latitude":  o.Latitude,
		"longitude": o.Longitude,
		"elevation": o.Elevation,
	}
	if o.Datetime != "" {
		body["datetime"] = o.Datetime
	}
	for k, v := range extra {
		body[k] = v
	}
	return body
}

func (o Observer) String() string {
	return fmt.Sprintf("%.4f, %.4f, %.0fm", o.Latitude, o.Longitude, o.Elevation)
}

// tpvReport is the subset of a gpsd TPV JSON object we need.
type tpvReport struct {
	Class string  `json:"class"`
	Mode  int     `json:"mode"`
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Alt   float64 `json:"altMSL"`
}

var errNoFix = errors.New("gpsd: no fix obtained")

// ObserverFromGPSD connects to gpsd at addr, sends a WATCH command, and reads
// TPV reports until a 2D or 3D fix arrives or ctx expires. A 2D fix leaves
// the elevation at zero.
func ObserverFromGPSD(ctx context.Context, addr string) (Observer, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return Observer{}, fmt.Errorf("gpsd connect: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return Observer{}, fmt.Errorf("gpsd set deadline: %w", err)
		}
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()

	if _, err := fmt.Fprint(conn, `?WATCH={"enable":true,"json":true};`); err != nil {
		return Observer{}, fmt.Errorf("gpsd watch: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		var report tpvReport
		if err := json.Unmarshal(scanner.Bytes(), &report); err != nil {
			continue
		}
		if report.Class != "TPV" || report.Mode < 2 {
			continue
		}
		obs := Observer{Latitude: report.Lat, Longitude: report.Lon}
		if report.Mode >= 3 {
			obs.Elevation = report.Alt
		}
		return obs, nil
	}

	if err := scanner.Err(); err != nil {
		var ne net.Error
		if (errors.As(err, &ne) && ne.Timeout()) || ctx.Err() != nil {
			return Observer{}, fmt.Errorf("%w: %w", errNoFix, err)
		}
		return Observer{}, fmt.Errorf("gpsd read: %w", err)
	}
	return Observer{}, errNoFix
}
