package tlesource

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

const issSet = `ISS (ZARYA)
1 25544U 98067A   24001.00000000  .00016717  00000+0  30287-3 0  9991
2 25544  51.6416 208.5340 0002898 124.0432 236.0880 15.49815399432101
`

const hstSet = `HST
1 20580U 90037B   24001.60000000  .00001305  00000+0  64321-4 0  9995
2 20580  28.4698 101.2345 0002551 112.3344 247.7890 15.15354736592318
`

type fakeCelestrak struct {
	status int
	body   string
	hits   atomic.Int32
	query  atomic.Value
}

func (f *fakeCelestrak) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.hits.Add(1)
	f.query.Store(r.URL.RawQuery)
	if f.status != http.StatusOK {
		http.Error(w, "unavailable", f.status)
		return
	}
	_, _ = w.Write([]byte(f.body))
}

func newStore(t *testing.T, fake *fakeCelestrak) (*Store, string) {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	root := t.TempDir()
	return NewStore(srv.URL+"/NORAD/elements/gp.php", root, 1), root
}

func TestFetchNetworkThenCache(t *testing.T) {
	fake := &fakeCelestrak{status: http.StatusOK, body: issSet + hstSet}
	s, root := newStore(t, fake)
	ctx := context.Background()

	got, err := s.Fetch(ctx, "visual")
	if err != nil {
		t.Fatal(err)
	}
	if got.Source != SourceNetwork || len(got.Satellites) != 2 {
		t.Fatalf("first fetch = %s with %d sets", got.Source, len(got.Satellites))
	}
	q, _ := fake.query.Load().(string)
	if !strings.Contains(q, "GROUP=visual") || !strings.Contains(q, "FORMAT=tle") {
		t.Errorf("query = %q", q)
	}
	if _, err := os.Stat(filepath.Join(root, "tle", "visual.txt")); err != nil {
		t.Errorf("cache file not written: %v", err)
	}

	again, err := s.Fetch(ctx, "visual")
	if err != nil {
		t.Fatal(err)
	}
	if again.Source != SourceCache {
		t.Errorf("second fetch source = %s, want cache", again.Source)
	}
	if n := fake.hits.Load(); n != 1 {
		t.Errorf("network hits = %d, want 1", n)
	}

	forced, err := s.Refresh(ctx, "visual")
	if err != nil {
		t.Fatal(err)
	}
	if forced.Source != SourceNetwork || fake.hits.Load() != 2 {
		t.Errorf("refresh source = %s, hits = %d", forced.Source, fake.hits.Load())
	}

	info := s.Info()
	if len(info) != 1 || info[0].GroupID != "visual" || info[0].Satellites != 2 {
		t.Errorf("info = %+v", info)
	}
}

func TestFetchStaleCache(t *testing.T) {
	fake := &fakeCelestrak{status: http.StatusServiceUnavailable}
	s, root := newStore(t, fake)

	path := filepath.Join(root, "tle", "stations.txt")
	if err := writeCache(path, issSet); err != nil {
		t.Fatal(err)
	}
	old := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatal(err)
	}

	got, err := s.Fetch(context.Background(), "stations")
	if err != nil {
		t.Fatal(err)
	}
	if got.Source != SourceStaleCache {
		t.Errorf("source = %s, want stale_cache", got.Source)
	}
	if fake.hits.Load() != 1 {
		t.Error("expected a network attempt before using the stale cache")
	}
}

func TestFetchEmbeddedFallback(t *testing.T) {
	fake := &fakeCelestrak{status: http.StatusInternalServerError}
	s, _ := newStore(t, fake)
	ctx := context.Background()

	got, err := s.Fetch(ctx, "stations")
	if err != nil {
		t.Fatal(err)
	}
	if got.Source != SourceEmbedded || got.Satellites[0].CatalogNumber != 25544 {
		t.Errorf("got %s %+v", got.Source, got.Satellites)
	}

	if _, err := s.Fetch(ctx, "starlink"); err == nil || !strings.Contains(err.Error(), "exhausted") {
		t.Errorf("starlink error = %v, want exhausted sources", err)
	}
}

func TestFetchSkipsTiersWithoutValidSets(t *testing.T) {
	fake := &fakeCelestrak{status: http.StatusOK, body: "No GP data found\n"}
	s, root := newStore(t, fake)
	ctx := context.Background()
	path := filepath.Join(root, "tle", "stations.txt")

	got, err := s.Fetch(ctx, "stations")
	if err != nil {
		t.Fatal(err)
	}
	if got.Source != SourceEmbedded {
		t.Errorf("source = %s, want embedded", got.Source)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("unusable body was cached: %v", err)
	}

	// A fresh cache file with nothing usable in it is a miss, not a hit.
	if err := writeCache(path, "garbage\n"); err != nil {
		t.Fatal(err)
	}
	fake.body = issSet
	got, err = s.Fetch(ctx, "stations")
	if err != nil {
		t.Fatal(err)
	}
	if got.Source != SourceNetwork || len(got.Satellites) != 1 {
		t.Errorf("after bad cache: %s with %d sets", got.Source, len(got.Satellites))
	}

	// A valid stale cache beats a network body that does not parse.
	old := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatal(err)
	}
	fake.body = "No GP data found\n"
	got, err = s.Refresh(ctx, "stations")
	if err != nil {
		t.Fatal(err)
	}
	if got.Source != SourceStaleCache || got.Satellites[0].CatalogNumber != 25544 {
		t.Errorf("got %s %+v", got.Source, got.Satellites)
	}
	if b, _ := os.ReadFile(path); string(b) != issSet {
		t.Errorf("cache overwritten with %q", b)
	}

	_, err = s.Fetch(ctx, "starlink")
	if err == nil || !errors.Is(err, errNoValidSets) {
		t.Errorf("starlink error = %v, want no valid sets", err)
	}
}

func TestFetchUnknownGroup(t *testing.T) {
	s, _ := newStore(t, &fakeCelestrak{status: http.StatusOK, body: issSet})
	if _, err := s.Fetch(context.Background(), "mars-orbiters"); !errors.Is(err, ErrUnknownGroup) {
		t.Errorf("error = %v, want ErrUnknownGroup", err)
	}
}

func TestEmbeddedFilesParse(t *testing.T) {
	entries, err := fallbackFS.ReadDir("fallback")
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		t.Run(e.Name(), func(t *testing.T) {
			id := strings.TrimSuffix(e.Name(), ".txt")
			if _, ok := LookupGroup(id); !ok {
				t.Errorf("fallback file for unknown group %q", id)
			}
			b, err := fallbackFS.ReadFile("fallback/" + e.Name())
			if err != nil {
				t.Fatal(err)
			}
			sets, skipped := ParseSets(string(b))
			if skipped != 0 || len(sets) == 0 {
				t.Errorf("parsed %d sets, skipped %d", len(sets), skipped)
			}
		})
	}
}

func TestParseSets(t *testing.T) {
	bad := strings.Replace(hstSet, "0  9995", "0  9990", 1)
	bare := strings.SplitN(issSet, "\n", 2)[1]

	tests := []struct {
		name        string
		raw         string
		wantNames   []string
		wantSkipped int
	}{
		{"three line", issSet + hstSet, []string{"ISS (ZARYA)", "HST"}, 0},
		{"bad checksum", bad + issSet, []string{"ISS (ZARYA)"}, 1},
		{"two line", bare, []string{"25544"}, 0},
		{"crlf", strings.ReplaceAll(issSet, "\n", "\r\n"), []string{"ISS (ZARYA)"}, 0},
		{"truncated", issSet + "HST\n1 20580U", []string{"ISS (ZARYA)"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sets, skipped := ParseSets(tt.raw)
			if skipped != tt.wantSkipped {
				t.Errorf("skipped = %d, want %d", skipped, tt.wantSkipped)
			}
			if len(sets) != len(tt.wantNames) {
				t.Fatalf("got %d sets, want %d", len(sets), len(tt.wantNames))
			}
			for i, want := range tt.wantNames {
				if sets[i].Name != want {
					t.Errorf("set %d name = %q, want %q", i, sets[i].Name, want)
				}
			}
		})
	}
}

func TestGroups(t *testing.T) {
	gs := Groups()
	if gs[0].ID != "stations" {
		t.Errorf("first group = %q", gs[0].ID)
	}
	gs[0].ID = "mutated"
	if Groups()[0].ID != "stations" {
		t.Error("Groups must return a copy")
	}
	if g, ok := LookupGroup("GPS-OPS"); !ok || g.Name != "GPS Operational" {
		t.Errorf("LookupGroup = %+v, %v", g, ok)
	}
}
