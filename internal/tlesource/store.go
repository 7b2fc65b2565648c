package tlesource

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/large-farva/skyengine/internal/orbit"
)

//go:embed fallback/*.txt
var fallbackFS embed.FS

// Source names where a group's element sets came from.
type Source string

const (
	SourceCache      Source = "cache"
	SourceNetwork    Source = "network"
	SourceStaleCache Source = "stale_cache"
	SourceEmbedded   Source = "embedded"
)

// ErrUnknownGroup is returned for a group ID not in the catalog.
var ErrUnknownGroup = errors.New("unknown satellite group")

// GroupTLE is a resolved group: its element sets plus provenance.
type GroupTLE struct {
	Group      Group              `json:"group"`
	Source     Source             `json:"source"`
	FetchedAt  time.Time          `json:"fetched_at"`
	Satellites []orbit.ElementSet `json:"satellites"`
	// Skipped counts entries that failed validation and were left out.
	Skipped int `json:"skipped"`
}

// CacheInfo describes the last resolution of one group.
type CacheInfo struct {
	GroupID    string    `json:"group_id"`
	Source     Source    `json:"source"`
	FetchedAt  time.Time `json:"fetched_at"`
	Satellites int       `json:"satellites"`
	Skipped    int       `json:"skipped"`
}

// Store fetches and caches group element sets under dataRoot. It is safe
// for concurrent use.
type Store struct {
	baseURL  string
	dataRoot string
	maxAge   time.Duration
	client   *http.Client

	mu   sync.Mutex
	info map[string]CacheInfo
}

// NewStore returns a store that queries baseURL (a CelesTrak gp.php style
// endpoint) and caches responses under dataRoot.
func NewStore(baseURL, dataRoot string, refreshHours int) *Store {
	return &Store{
		baseURL:  baseURL,
		dataRoot: dataRoot,
		maxAge:   time.Duration(refreshHours) * time.Hour,
		client:   &http.Client{Timeout: 30 * time.Second},
		info:     make(map[string]CacheInfo),
	}
}

// Fetch resolves a group through the fallback chain.
func (s *Store) Fetch(ctx context.Context, groupID string) (GroupTLE, error) {
	return s.resolve(ctx, groupID, false)
}

// Refresh skips the fresh-cache tier and goes to the network first. It
// still falls back to stale or embedded data when the network fails, so
// callers always get a usable group; the returned Source tells them which.
func (s *Store) Refresh(ctx context.Context, groupID string) (GroupTLE, error) {
	return s.resolve(ctx, groupID, true)
}

// Info returns the last resolution of every group fetched so far, sorted
// by group ID.
func (s *Store) Info() []CacheInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]CacheInfo, 0, len(s.info))
	for _, ci := range s.info {
		out = append(out, ci)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GroupID < out[j].GroupID })
	return out
}

func (s *Store) resolve(ctx context.Context, groupID string, force bool) (GroupTLE, error) {
	g, ok := LookupGroup(groupID)
	if !ok {
		return GroupTLE{}, fmt.Errorf("%w: %q", ErrUnknownGroup, groupID)
	}

	out, err := s.loadOrFetch(ctx, g, force)
	if err != nil {
		return GroupTLE{}, err
	}

	s.mu.Lock()
	s.info[g.ID] = CacheInfo{
		GroupID:    g.ID,
		Source:     out.Source,
		FetchedAt:  out.FetchedAt,
		Satellites: len(out.Satellites),
		Skipped:    out.Skipped,
	}
	s.mu.Unlock()
	return out, nil
}

// errNoValidSets marks a tier whose data parsed to zero element sets.
var errNoValidSets = errors.New("no valid element sets")

// parseTier turns raw tier data into a group, or errNoValidSets when none
// of its entries validate.
func parseTier(g Group, raw string, src Source, fetchedAt time.Time) (GroupTLE, error) {
	sats, skipped := ParseSets(raw)
	if len(sats) == 0 {
		return GroupTLE{}, fmt.Errorf("%s data: %w (%d skipped)", src, errNoValidSets, skipped)
	}
	return GroupTLE{Group: g, Source: src, FetchedAt: fetchedAt, Satellites: sats, Skipped: skipped}, nil
}

// loadOrFetch walks the chain: fresh cache, network, stale cache, embedded.
// A tier that yields no valid element sets counts as a miss, and a network
// body is only cached once it has parsed.
func (s *Store) loadOrFetch(ctx context.Context, g Group, force bool) (GroupTLE, error) {
	cachePath := s.cachePath(g)

	if !force {
		info, err := os.Stat(cachePath)
		if err == nil && time.Since(info.ModTime()) < s.maxAge {
			if b, readErr := os.ReadFile(cachePath); readErr == nil {
				if out, err := parseTier(g, string(b), SourceCache, info.ModTime()); err == nil {
					return out, nil
				}
			}
		}
	}

	body, fetchErr := s.fetchFromNetwork(ctx, g)
	if fetchErr == nil {
		out, err := parseTier(g, body, SourceNetwork, time.Now())
		if err == nil {
			// A failed cache write still leaves us with the data in memory.
			_ = writeCache(cachePath, body)
			return out, nil
		}
		fetchErr = err
	}

	if info, err := os.Stat(cachePath); err == nil {
		if b, readErr := os.ReadFile(cachePath); readErr == nil {
			if out, err := parseTier(g, string(b), SourceStaleCache, info.ModTime()); err == nil {
				return out, nil
			}
		}
	}

	if b, err := fallbackFS.ReadFile("fallback/" + g.ID + ".txt"); err == nil {
		if out, err := parseTier(g, string(b), SourceEmbedded, time.Time{}); err == nil {
			return out, nil
		}
	}

	return GroupTLE{}, fmt.Errorf("group %s: all TLE sources exhausted: %w", g.ID, fetchErr)
}

func (s *Store) cachePath(g Group) string {
	return filepath.Join(s.dataRoot, "tle", g.ID+".txt")
}

func (s *Store) fetchFromNetwork(ctx context.Context, g Group) (string, error) {
	u, err := url.Parse(s.baseURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("GROUP", g.Query)
	q.Set("FORMAT", "tle")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("TLE fetch returned HTTP %d", resp.StatusCode)
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return "", err
	}
	if len(strings.TrimSpace(string(b))) == 0 {
		return "", errors.New("TLE fetch returned an empty body")
	}
	return string(b), nil
}

// writeCache writes data via a temp file and rename so readers never see a
// half-written file.
func writeCache(cachePath, data string) error {
	dir := filepath.Dir(cachePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "tle-*.tmp")
	if err != nil {
		return err
	}

	if _, err := tmp.WriteString(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}

	return os.Rename(tmp.Name(), cachePath)
}

// ParseSets extracts element sets from a bulk text dump in 3-line (name,
// line 1, line 2) or bare 2-line form. Entries that fail validation are
// counted in skipped and left out.
func ParseSets(raw string) (sets []orbit.ElementSet, skipped int) {
	var lines []string
	for _, l := range strings.Split(raw, "\n") {
		if l = strings.TrimRight(l, "\r \t"); strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}

	for i := 0; i < len(lines); {
		name := ""
		if !strings.HasPrefix(lines[i], "1 ") {
			name = strings.TrimSpace(lines[i])
			i++
		}
		if i+1 >= len(lines) {
			skipped++
			break
		}
		es, err := orbit.ParseElements(name, lines[i], lines[i+1])
		if err != nil {
			skipped++
			i += 2
			continue
		}
		sets = append(sets, es)
		i += 2
	}
	return sets, skipped
}
