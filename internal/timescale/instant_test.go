package timescale

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/large-farva/skyengine/internal/skyerr"
)

func TestParseRoundTrip(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-01-01T00:00:00Z", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"2024-01-01T00:00:00+00:00", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"2024-03-10T18:45:12.123456789Z", time.Date(2024, 3, 10, 18, 45, 12, 123456789, time.UTC)},
		{"2024-03-10T20:45:12.5+02:00", time.Date(2024, 3, 10, 18, 45, 12, 500000000, time.UTC)},
		{"2016-12-31T23:59:59.999Z", time.Date(2016, 12, 31, 23, 59, 59, 999000000, time.UTC)},
		{"1999-06-15 08:00:00Z", time.Date(1999, 6, 15, 8, 0, 0, 0, time.UTC)},
		{"2030-07-04T12:00:00", time.Date(2030, 7, 4, 12, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			in, err := Parse(tt.in)
			if err != nil {
				t.Fatalf("Parse(%q): %v", tt.in, err)
			}
			if got := in.UTC(); !got.Equal(tt.want) {
				t.Errorf("UTC() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseRejects(t *testing.T) {
	for _, s := range []string{
		"",
		"yesterday",
		"2024-01-01",
		"2024-13-01T00:00:00Z",
		"2024-01-01T00:00:00+0000",
		"2024-01-01T25:00:00Z",
		"2024-01-01T00:00:00+05",
	} {
		t.Run(s, func(t *testing.T) {
			_, err := Parse(s)
			if !errors.Is(err, skyerr.ErrInvalidTimestamp) {
				t.Fatalf("Parse(%q) error = %v, want InvalidTimestamp", s, err)
			}
		})
	}
}

func TestDeltaTT(t *testing.T) {
	tests := []struct {
		utc  time.Time
		want time.Duration
	}{
		{time.Date(1960, 1, 1, 0, 0, 0, 0, time.UTC), 42184 * time.Millisecond},
		{time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC), 64184 * time.Millisecond},
		{time.Date(2016, 12, 31, 23, 59, 59, 0, time.UTC), 68184 * time.Millisecond},
		{time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC), 69184 * time.Millisecond},
		{time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC), 69184 * time.Millisecond},
	}
	for _, tt := range tests {
		if got := DeltaTTUTC(tt.utc); got != tt.want {
			t.Errorf("DeltaTTUTC(%v) = %v, want %v", tt.utc, got, tt.want)
		}
	}
}

func TestSubAcrossLeapSecond(t *testing.T) {
	// 2016-12-31 carried a leap second, so the elapsed continuous time
	// between these two civil readings is one second longer than the
	// civil difference.
	a := FromTime(time.Date(2016, 12, 31, 23, 59, 0, 0, time.UTC))
	b := FromTime(time.Date(2017, 1, 1, 0, 1, 0, 0, time.UTC))
	if got, want := b.Sub(a), 121*time.Second; got != want {
		t.Errorf("Sub = %v, want %v", got, want)
	}
}

func TestJDE(t *testing.T) {
	// J2000.0 is 2000-01-01 12:00 TT, i.e. 11:58:55.816 UTC.
	in := FromTime(time.Date(2000, 1, 1, 11, 58, 55, 816000000, time.UTC))
	if got := in.JDE(); math.Abs(got-2451545.0) > 1e-8 {
		t.Errorf("JDE = %.10f, want 2451545.0", got)
	}
	if got := in.JD(); math.Abs(got-(2451545.0-64.184/86400)) > 1e-8 {
		t.Errorf("JD = %.10f", got)
	}
}

func TestAddDateMonthBoundary(t *testing.T) {
	start := MustParse("2024-01-31T10:00:00Z")
	w, err := Days(start, 7)
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2024, 2, 7, 10, 0, 0, 0, time.UTC)
	if got := w.End.UTC(); !got.Equal(want) {
		t.Errorf("window end = %v, want %v", got, want)
	}

	leap := MustParse("2024-02-29T00:00:00Z").AddDate(1, 0, 0)
	if got, want := leap.UTC(), time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("AddDate over Feb 29 = %v, want %v", got, want)
	}
}

func TestWindowValidation(t *testing.T) {
	start := MustParse("2024-06-01T00:00:00Z")
	if _, err := Days(start, 0); !errors.Is(err, skyerr.ErrInvalidWindow) {
		t.Errorf("Days(0) error = %v, want InvalidWindow", err)
	}
	if _, err := NewWindow(start, start); !errors.Is(err, skyerr.ErrInvalidWindow) {
		t.Errorf("empty window error = %v, want InvalidWindow", err)
	}
	w, err := Years(start, 2)
	if err != nil {
		t.Fatal(err)
	}
	if !w.Contains(start) || w.Contains(w.End) {
		t.Error("window must be half-open [start, end)")
	}
}

func TestJSON(t *testing.T) {
	in := MustParse("2024-05-06T07:08:09Z")
	b, err := json.Marshal(in)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := string(b), `"2024-05-06T07:08:09Z"`; got != want {
		t.Errorf("Marshal = %s, want %s", got, want)
	}
	var back Instant
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatal(err)
	}
	if !back.Equal(in) {
		t.Errorf("Unmarshal = %v, want %v", back, in)
	}
	if err := json.Unmarshal([]byte(`"2024-05-06"`), &back); !errors.Is(err, skyerr.ErrInvalidTimestamp) {
		t.Errorf("date-only Unmarshal error = %v", err)
	}
}
