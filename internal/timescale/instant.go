// Package timescale maps civil timestamps onto the continuous Terrestrial
// Time scale used by every ephemeris and orbit computation. It is the single
// place where leap seconds are applied, so all components agree on "now".
package timescale

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/soniakeys/meeus/v3/julian"

	"github.com/large-farva/skyengine/internal/skyerr"
)

// Instant is a point on the Terrestrial Time scale. The zero value is not a
// meaningful instant; construct one with Parse or FromTime.
//
// Internally the TT clock reading is held as a time.Time label. Go's time
// arithmetic has no leap seconds, so subtraction and ordering are uniform.
type Instant struct {
	tt time.Time
}

// Layouts accepted by Parse, tried in order. Offsets are required except in
// the bare forms, which are taken as UTC.
var layouts = []string{
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
}

// Parse converts an ISO-8601 date-time into an Instant. A trailing "Z" is
// normalized to "+00:00". Date-only strings and malformed offsets fail with
// skyerr.InvalidTimestamp.
func Parse(s string) (Instant, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return Instant{}, skyerr.New(skyerr.InvalidTimestamp, "empty timestamp")
	}
	norm := raw
	if strings.HasSuffix(norm, "Z") {
		norm = strings.TrimSuffix(norm, "Z") + "+00:00"
	}

	for _, layout := range layouts {
		t, err := time.Parse(layout, norm)
		if err == nil {
			return FromTime(t), nil
		}
	}
	return Instant{}, skyerr.New(skyerr.InvalidTimestamp, "cannot parse %q as an ISO-8601 date-time", raw)
}

// MustParse is Parse for compile-time constants; it panics on error.
func MustParse(s string) Instant {
	in, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return in
}

// FromTime converts a civil time (any zone) into an Instant.
func FromTime(t time.Time) Instant {
	utc := t.UTC()
	return Instant{tt: utc.Add(DeltaTTUTC(utc))}
}

// UTC returns the civil UTC time of the instant.
func (in Instant) UTC() time.Time {
	guess := in.tt.Add(-DeltaTTUTC(in.tt))
	return in.tt.Add(-DeltaTTUTC(guess))
}

// TT returns the Terrestrial Time clock reading as a time.Time label.
func (in Instant) TT() time.Time { return in.tt }

// JD returns the Julian date of the UTC reading, the argument for sidereal
// time and SGP4.
func (in Instant) JD() float64 { return julian.TimeToJD(in.UTC()) }

// JDE returns the Julian ephemeris date (TT), the argument for the
// planetary, solar and lunar theories.
func (in Instant) JDE() float64 { return julian.TimeToJD(in.tt) }

// IsZero reports whether in is the zero Instant.
func (in Instant) IsZero() bool { return in.tt.IsZero() }

// Add returns the instant d later on the continuous scale.
func (in Instant) Add(d time.Duration) Instant { return Instant{tt: in.tt.Add(d)} }

// AddDate adds calendar years, months and days to the UTC reading. Month
// ends normalize the way time.Time.AddDate does, so no invalid calendar
// date can result.
func (in Instant) AddDate(years, months, days int) Instant {
	return FromTime(in.UTC().AddDate(years, months, days))
}

// Sub returns in-u on the continuous scale.
func (in Instant) Sub(u Instant) time.Duration { return in.tt.Sub(u.tt) }

func (in Instant) Before(u Instant) bool { return in.tt.Before(u.tt) }
func (in Instant) After(u Instant) bool  { return in.tt.After(u.tt) }
func (in Instant) Equal(u Instant) bool  { return in.tt.Equal(u.tt) }

// String formats the instant as RFC 3339 in UTC.
func (in Instant) String() string {
	return in.UTC().Format(time.RFC3339Nano)
}

// ISO formats the instant as RFC 3339 in UTC truncated to whole seconds,
// the shape API payloads use.
func (in Instant) ISO() string {
	return in.UTC().Format(time.RFC3339)
}

// MarshalJSON encodes the instant as an RFC 3339 UTC string.
func (in Instant) MarshalJSON() ([]byte, error) {
	return json.Marshal(in.ISO())
}

// UnmarshalJSON accepts any string Parse accepts.
func (in *Instant) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return skyerr.Wrap(skyerr.InvalidTimestamp, err, "decode timestamp")
	}
	v, err := Parse(s)
	if err != nil {
		return err
	}
	*in = v
	return nil
}
