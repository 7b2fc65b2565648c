package refresh

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/large-farva/skyengine/internal/orbit"
	"github.com/large-farva/skyengine/internal/telemetry"
	"github.com/large-farva/skyengine/internal/tlesource"
)

type fakeStore struct {
	mu    sync.Mutex
	calls map[string]int
	fail  map[string]bool
}

func (f *fakeStore) Refresh(_ context.Context, id string) (tlesource.GroupTLE, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[id]++
	if f.fail[id] {
		return tlesource.GroupTLE{}, errors.New("all TLE sources exhausted")
	}
	g, _ := tlesource.LookupGroup(id)
	return tlesource.GroupTLE{
		Group:      g,
		Source:     tlesource.SourceNetwork,
		Satellites: make([]orbit.ElementSet, 3),
	}, nil
}

func (f *fakeStore) count(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[id]
}

type fakeHub struct {
	mu     sync.Mutex
	events []any
}

func (h *fakeHub) BroadcastJSON(v any) {
	h.mu.Lock()
	h.events = append(h.events, v)
	h.mu.Unlock()
}

func (h *fakeHub) refreshEvents() []telemetry.TLERefresh {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []telemetry.TLERefresh
	for _, e := range h.events {
		if ev, ok := e.(telemetry.TLERefresh); ok {
			out = append(out, ev)
		}
	}
	return out
}

func startRunner(t *testing.T, store *fakeStore, hub *fakeHub) *Runner {
	t.Helper()
	r := New(store, hub, nil, []string{"stations", "weather"}, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go r.Run(ctx)
	return r
}

func submit(t *testing.T, r *Runner, cmd string, payload string) CommandResult {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var raw []byte
	if payload != "" {
		raw = []byte(payload)
	}
	return r.Submit(ctx, cmd, raw)
}

func TestRunRefreshesAtStartup(t *testing.T) {
	store := &fakeStore{calls: map[string]int{}}
	hub := &fakeHub{}
	r := startRunner(t, store, hub)

	// The status reply is only produced after the first round finishes.
	res := submit(t, r, "status", "")
	if !res.OK || res.Status == nil {
		t.Fatalf("status = %+v", res)
	}
	if store.count("stations") != 1 || store.count("weather") != 1 {
		t.Errorf("calls = %v", store.calls)
	}
	if res.Status.LastRun.IsZero() || res.Status.Interval != "1h0m0s" {
		t.Errorf("status = %+v", res.Status)
	}
	if evs := hub.refreshEvents(); len(evs) != 2 || evs[0].Satellites != 3 {
		t.Errorf("refresh events = %+v", evs)
	}
}

func TestRefreshCommand(t *testing.T) {
	store := &fakeStore{calls: map[string]int{}, fail: map[string]bool{"weather": true}}
	r := startRunner(t, store, &fakeHub{})

	tests := []struct {
		name, payload string
		wantOK        bool
		wantGroups    int
	}{
		{"one group", `{"group":"stations"}`, true, 1},
		{"all groups", "", false, 1},
		{"unknown group", `{"group":"pluto"}`, false, 0},
		{"bad payload", `{"group":`, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := submit(t, r, "tle_refresh", tt.payload)
			if res.OK != tt.wantOK || res.GroupsUpdated != tt.wantGroups {
				t.Errorf("result = %+v", res)
			}
		})
	}

	res := submit(t, r, "tle_refresh", "")
	if len(res.Failures) != 1 || res.Failures[0].Group != "weather" {
		t.Errorf("failures = %+v", res.Failures)
	}
}

func TestPauseResume(t *testing.T) {
	r := startRunner(t, &fakeStore{calls: map[string]int{}}, &fakeHub{})

	if res := submit(t, r, "pause", ""); !res.OK {
		t.Fatalf("pause = %+v", res)
	}
	if !r.Snapshot().Paused {
		t.Error("expected paused")
	}
	if res := submit(t, r, "resume", ""); !res.OK {
		t.Fatalf("resume = %+v", res)
	}
	if r.Snapshot().Paused {
		t.Error("expected resumed")
	}
	if res := submit(t, r, "reboot", ""); res.OK || res.Error == "" {
		t.Errorf("unknown command = %+v", res)
	}
}

func TestSubmitHonoursContext(t *testing.T) {
	// No loop is running, so nothing ever replies.
	r := New(&fakeStore{calls: map[string]int{}}, &fakeHub{}, nil, nil, time.Hour)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if res := r.Submit(ctx, "status", nil); res.OK {
		t.Errorf("result = %+v, want a context error", res)
	}
}

func TestIntervalFloor(t *testing.T) {
	r := New(&fakeStore{}, &fakeHub{}, nil, nil, time.Second)
	if r.Interval != time.Minute {
		t.Errorf("interval = %v", r.Interval)
	}
}
