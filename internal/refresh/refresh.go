// Package refresh keeps the satellite group caches warm. A single loop
// re-resolves every configured group on an interval and accepts commands
// (force refresh, pause, resume, status) from the HTTP layer while it waits.
package refresh

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/large-farva/skyengine/internal/telemetry"
	"github.com/large-farva/skyengine/internal/tlesource"
)

// Fetcher resolves a satellite group, bypassing any fresh cache.
type Fetcher interface {
	Refresh(ctx context.Context, groupID string) (tlesource.GroupTLE, error)
}

// Broadcaster fans events out to watchers.
type Broadcaster interface {
	BroadcastJSON(v any)
}

// Command is sent to the loop via Runner.Commands. Reply receives exactly
// one result.
type Command struct {
	Type    string
	Payload json.RawMessage
	Reply   chan<- CommandResult
}

// CommandResult answers a Command.
type CommandResult struct {
	OK                bool         `json:"ok"`
	Message           string       `json:"message,omitempty"`
	Error             string       `json:"error,omitempty"`
	GroupsUpdated     int          `json:"groups_updated,omitempty"`
	SatellitesUpdated int          `json:"satellites_updated,omitempty"`
	Status            *Status      `json:"status,omitempty"`
	Failures          []GroupError `json:"failures,omitempty"`
}

// GroupError names a group whose refresh failed.
type GroupError struct {
	Group string `json:"group"`
	Error string `json:"error"`
}

// Status is a snapshot of the loop.
type Status struct {
	Paused   bool      `json:"paused"`
	Interval string    `json:"interval"`
	Groups   []string  `json:"groups"`
	LastRun  time.Time `json:"last_run,omitempty"`
	NextRun  time.Time `json:"next_run,omitempty"`
}

// Runner owns the refresh loop.
type Runner struct {
	Store    Fetcher
	Hub      Broadcaster
	Log      *log.Logger
	Groups   []string
	Interval time.Duration

	// OnFetch, when set, is told which tier served each group.
	OnFetch func(group string, source tlesource.Source)

	// Commands is checked while the loop waits between rounds.
	Commands chan Command

	paused atomic.Bool

	mu      sync.Mutex
	lastRun time.Time
	nextRun time.Time
}

// New returns a runner over the given groups. An interval below one minute
// is raised to one minute.
func New(store Fetcher, hub Broadcaster, logger *log.Logger, groups []string, interval time.Duration) *Runner {
	if interval < time.Minute {
		interval = time.Minute
	}
	return &Runner{
		Store:    store,
		Hub:      hub,
		Log:      logger,
		Groups:   groups,
		Interval: interval,
		Commands: make(chan Command, 4),
	}
}

// Run refreshes every group immediately and then once per Interval until
// ctx is cancelled.
func (r *Runner) Run(ctx context.Context) {
	r.broadcastLog("info", "tle refresh loop started")

	for {
		if ctx.Err() != nil {
			return
		}

		if !r.paused.Load() {
			r.refreshAll(ctx, r.Groups)
		}

		r.mu.Lock()
		r.nextRun = time.Now().Add(r.Interval)
		r.mu.Unlock()

		deadline := time.Now().Add(r.Interval)
		for {
			left := time.Until(deadline)
			if left <= 0 {
				break
			}
			if r.sleepOrCommand(ctx, left) == sleepCancelled {
				return
			}
		}
	}
}

// Submit sends a command and waits for the reply or for ctx to end.
func (r *Runner) Submit(ctx context.Context, cmdType string, payload json.RawMessage) CommandResult {
	reply := make(chan CommandResult, 1)
	select {
	case r.Commands <- Command{Type: cmdType, Payload: payload, Reply: reply}:
	case <-ctx.Done():
		return CommandResult{OK: false, Error: ctx.Err().Error()}
	}
	select {
	case res := <-reply:
		return res
	case <-ctx.Done():
		return CommandResult{OK: false, Error: ctx.Err().Error()}
	}
}

// Snapshot returns the loop status without going through the command
// channel.
func (r *Runner) Snapshot() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Status{
		Paused:   r.paused.Load(),
		Interval: r.Interval.String(),
		Groups:   append([]string(nil), r.Groups...),
		LastRun:  r.lastRun,
		NextRun:  r.nextRun,
	}
}

type sleepResult int

const (
	sleepCompleted   sleepResult = iota // timer expired normally
	sleepCancelled                      // context was cancelled
	sleepInterrupted                    // a command was received and handled
)

func (r *Runner) sleepOrCommand(ctx context.Context, d time.Duration) sleepResult {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return sleepCancelled
	case <-t.C:
		return sleepCompleted
	case cmd := <-r.Commands:
		r.handleCommand(ctx, cmd)
		return sleepInterrupted
	}
}

func (r *Runner) handleCommand(ctx context.Context, cmd Command) {
	switch cmd.Type {
	case "tle_refresh":
		r.handleRefreshCommand(ctx, cmd)
	case "pause":
		r.paused.Store(true)
		r.broadcastLog("info", "tle refresh paused")
		cmd.Reply <- CommandResult{OK: true, Message: "refresh paused"}
	case "resume":
		r.paused.Store(false)
		r.broadcastLog("info", "tle refresh resumed")
		cmd.Reply <- CommandResult{OK: true, Message: "refresh resumed"}
	case "status":
		st := r.Snapshot()
		cmd.Reply <- CommandResult{OK: true, Status: &st}
	default:
		cmd.Reply <- CommandResult{OK: false, Error: "unknown command: " + cmd.Type}
	}
}

// handleRefreshCommand refreshes one group when the payload names it
// ({"group": "stations"}), or every configured group otherwise. A manual
// refresh runs even while paused.
func (r *Runner) handleRefreshCommand(ctx context.Context, cmd Command) {
	var body struct {
		Group string `json:"group"`
	}
	if len(cmd.Payload) > 0 {
		if err := json.Unmarshal(cmd.Payload, &body); err != nil {
			cmd.Reply <- CommandResult{OK: false, Error: "invalid payload: " + err.Error()}
			return
		}
	}

	groups := r.Groups
	if body.Group != "" {
		if _, ok := tlesource.LookupGroup(body.Group); !ok {
			cmd.Reply <- CommandResult{OK: false, Error: fmt.Sprintf("unknown group %q", body.Group)}
			return
		}
		groups = []string{body.Group}
	}

	res := r.refreshAll(ctx, groups)
	res.OK = len(res.Failures) == 0
	if res.OK {
		res.Message = fmt.Sprintf("refreshed %d group(s)", res.GroupsUpdated)
	} else {
		res.Error = fmt.Sprintf("%d of %d group(s) failed", len(res.Failures), len(groups))
	}
	cmd.Reply <- res
}

func (r *Runner) refreshAll(ctx context.Context, groups []string) CommandResult {
	var res CommandResult
	for _, id := range groups {
		if ctx.Err() != nil {
			break
		}
		g, err := r.Store.Refresh(ctx, id)
		if err != nil {
			r.logf("tle refresh %s failed: %v", id, err)
			r.Hub.BroadcastJSON(telemetry.NewTLERefresh(id, "", 0, err))
			res.Failures = append(res.Failures, GroupError{Group: id, Error: err.Error()})
			continue
		}
		if r.OnFetch != nil {
			r.OnFetch(id, g.Source)
		}
		if g.Source != tlesource.SourceNetwork {
			r.logf("tle refresh %s: network unavailable, serving %s", id, g.Source)
		}
		r.Hub.BroadcastJSON(telemetry.NewTLERefresh(id, string(g.Source), len(g.Satellites), nil))
		res.GroupsUpdated++
		res.SatellitesUpdated += len(g.Satellites)
	}

	r.mu.Lock()
	r.lastRun = time.Now()
	r.mu.Unlock()
	return res
}

func (r *Runner) logf(format string, args ...any) {
	if r.Log != nil {
		r.Log.Printf(format, args...)
	}
}

func (r *Runner) broadcastLog(level, msg string) {
	r.logf("%s", msg)
	r.Hub.BroadcastJSON(telemetry.NewLogLine("refresh", level, msg))
}
