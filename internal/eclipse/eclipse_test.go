package eclipse

import (
	"math"
	"testing"
	"time"

	"github.com/soniakeys/unit"

	"github.com/large-farva/skyengine/internal/ephemeris"
	"github.com/large-farva/skyengine/internal/timescale"
)

func searcher() *Searcher {
	return NewSearcher(ephemeris.NewLunisolar())
}

func within(t *testing.T, got timescale.Instant, want string, tol time.Duration) {
	t.Helper()
	w := timescale.MustParse(want)
	if d := got.Sub(w); d < -tol || d > tol {
		t.Errorf("instant %s, want %s ±%v", got, want, tol)
	}
}

func TestPhases(t *testing.T) {
	s := searcher()
	w, _ := timescale.Days(timescale.MustParse("2024-01-01T00:00:00Z"), 60)

	full := s.Phases(w, FullMoon)
	if len(full) != 2 {
		t.Fatalf("got %d full moons, want 2", len(full))
	}
	within(t, full[0], "2024-01-25T17:54:00Z", 5*time.Minute)
	within(t, full[1], "2024-02-24T12:30:00Z", 5*time.Minute)

	nw := s.Phases(w, NewMoon)
	if len(nw) != 2 {
		t.Fatalf("got %d new moons, want 2", len(nw))
	}
	within(t, nw[0], "2024-01-11T11:57:00Z", 5*time.Minute)
	within(t, nw[1], "2024-02-09T22:59:00Z", 5*time.Minute)
}

func TestNextPhases(t *testing.T) {
	got := searcher().NextPhases(timescale.MustParse("2024-01-01T00:00:00Z"))
	if len(got) != 2 {
		t.Fatalf("got %d events", len(got))
	}
	if got[0].Type != "New Moon" || got[1].Type != "Full Moon" {
		t.Errorf("order = %s, %s", got[0].Type, got[1].Type)
	}
	within(t, got[0].Time, "2024-01-11T11:57:00Z", 5*time.Minute)
}

func TestLunar(t *testing.T) {
	w, _ := timescale.Years(timescale.MustParse("2024-01-01T00:00:00Z"), 2)
	res := searcher().Lunar(w)

	want := []struct {
		at  string
		cat Category
	}{
		{"2024-03-25T07:13:00Z", Penumbral},
		{"2024-09-18T02:44:00Z", Partial},
		{"2025-03-14T06:58:00Z", Total},
		{"2025-09-07T18:11:00Z", Total},
	}
	if len(res.Eclipses) != len(want) {
		for _, e := range res.Eclipses {
			t.Logf("%s %s", e.Time, e.Type)
		}
		t.Fatalf("got %d lunar eclipses, want %d", len(res.Eclipses), len(want))
	}
	for i, e := range res.Eclipses {
		within(t, e.Time, want[i].at, 30*time.Minute)
		if e.Type != want[i].cat {
			t.Errorf("%s: type %s, want %s", want[i].at, e.Type, want[i].cat)
		}
		if e.Kind != Lunar || e.Description == "" {
			t.Errorf("%s: kind %q description %q", want[i].at, e.Kind, e.Description)
		}
	}
}

func TestLunarCategories(t *testing.T) {
	w, _ := timescale.Years(timescale.MustParse("2020-01-01T00:00:00Z"), 8)
	res := searcher().Lunar(w)
	if len(res.Eclipses) == 0 {
		t.Fatal("no lunar eclipses in eight years")
	}
	for _, e := range res.Eclipses {
		switch e.Type {
		case Penumbral, Partial, Total:
		default:
			t.Errorf("unexpected lunar category %q", e.Type)
		}
		if *e.PenumbralMagnitude <= 0 {
			t.Errorf("%s reported with penumbral magnitude %.3f", e.Time, *e.PenumbralMagnitude)
		}
	}
}

func TestSolar(t *testing.T) {
	w, _ := timescale.Years(timescale.MustParse("2024-01-01T00:00:00Z"), 2)
	res := searcher().Solar(w, 0)
	if res.Truncated {
		t.Error("two years hold fewer than 30 new moons")
	}
	if res.CandidatesScanned < 24 || res.CandidatesScanned > 26 {
		t.Errorf("scanned %d new moons", res.CandidatesScanned)
	}

	var sawApril bool
	for _, e := range res.Eclipses {
		if e.Type != Partial && e.Type != TotalOrAnnular {
			t.Errorf("unexpected solar category %q", e.Type)
		}
		if *e.SeparationDeg >= 2.0 {
			t.Errorf("%s separation %.3f", e.Time, *e.SeparationDeg)
		}
		if e.Note == "" {
			t.Errorf("%s has no visibility note", e.Time)
		}
		if math.Abs(e.Time.Sub(timescale.MustParse("2024-04-08T18:17:00Z")).Hours()) < 1 {
			sawApril = true
			if e.Type != TotalOrAnnular {
				t.Errorf("2024-04-08 classified %s", e.Type)
			}
		}
	}
	if !sawApril {
		t.Error("missed the 2024-04-08 eclipse")
	}
}

func TestSolarCap(t *testing.T) {
	w, _ := timescale.Years(timescale.MustParse("2024-01-01T00:00:00Z"), 3)
	res := searcher().Solar(w, 30)
	if !res.Truncated || res.CandidatesScanned != 30 {
		t.Errorf("truncated=%v scanned=%d, want true and 30", res.Truncated, res.CandidatesScanned)
	}
}

func TestSeparation(t *testing.T) {
	tests := []struct {
		ra1, dec1, ra2, dec2, want float64
	}{
		{0, 0, 0, 0, 0},
		{0, 0, 180, 0, 180},
		{10, 89, 190, 89, 2},
		{100, 20, 101, 20, 0.93969},
	}
	for _, tt := range tests {
		got := separation(rad(tt.ra1), ang(tt.dec1), rad(tt.ra2), ang(tt.dec2))
		if math.Abs(got-tt.want) > 1e-4 {
			t.Errorf("separation(%v,%v,%v,%v) = %.5f, want %.5f", tt.ra1, tt.dec1, tt.ra2, tt.dec2, got, tt.want)
		}
	}
}

func rad(deg float64) unit.RA    { return unit.RAFromDeg(deg) }
func ang(deg float64) unit.Angle { return unit.AngleFromDeg(deg) }
