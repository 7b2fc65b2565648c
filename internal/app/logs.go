package app

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/large-farva/skyengine/internal/telemetry"
)

const logBufCap = 500

type logEntry struct {
	TS        string `json:"ts"`
	Level     string `json:"level"`
	Component string `json:"component"`
	Message   string `json:"message"`
}

var levelRank = map[string]int{"debug": 0, "info": 1, "warn": 2, "error": 3}

// logf writes to the daemon log, keeps the line in the ring buffer served
// by /api/logs, and broadcasts it to watchers. Lines below the configured
// level are dropped.
func (a *App) logf(level, component, format string, args ...any) {
	if levelRank[level] < levelRank[a.cfg.Logging.Level] {
		return
	}
	msg := fmt.Sprintf(format, args...)
	a.log.Printf("[%s] %s: %s", level, component, msg)

	ev := telemetry.NewLogLine(component, level, msg)
	a.logBufMu.Lock()
	a.logBuf = append(a.logBuf, logEntry{TS: ev.TS, Level: level, Component: component, Message: msg})
	if n := len(a.logBuf); n > logBufCap {
		a.logBuf = append(a.logBuf[:0], a.logBuf[n-logBufCap:]...)
	}
	a.logBufMu.Unlock()

	a.wsHub.BroadcastJSON(ev)
}

func (a *App) handleLogs(w http.ResponseWriter, r *http.Request) {
	a.logBufMu.Lock()
	entries := make([]logEntry, len(a.logBuf))
	copy(entries, a.logBuf)
	a.logBufMu.Unlock()

	if level := r.URL.Query().Get("level"); level != "" {
		var filtered []logEntry
		for _, e := range entries {
			if e.Level == level {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if n, err := strconv.Atoi(limitStr); err == nil && n > 0 && n < len(entries) {
			entries = entries[len(entries)-n:]
		}
	}

	if entries == nil {
		entries = []logEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"logs": entries})
}
