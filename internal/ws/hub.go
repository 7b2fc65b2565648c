// Package ws is the event fan-out between skyd and its watchers. Components
// hand JSON events to the hub and every connected client receives them; the
// hub pings clients so dead connections are dropped.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Hub owns the set of connected watchers. Register, unregister and broadcast
// all go through channels, so it is safe for concurrent use.
type Hub struct {
	clients    map[*websocket.Conn]struct{}
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	broadcast  chan []byte
	upgrader   websocket.Upgrader

	count   atomic.Int64
	dropped atomic.Int64
}

// NewHub allocates a hub that accepts upgrades from the given origins. An
// empty list or a "*" entry accepts any origin. Call Run in a goroutine to
// start the event loop.
func NewHub(origins []string) *Hub {
	allow := originChecker(origins)
	return &Hub{
		clients:    make(map[*websocket.Conn]struct{}),
		register:   make(chan *websocket.Conn, 16),
		unregister: make(chan *websocket.Conn, 16),
		broadcast:  make(chan []byte, 256),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allow(origin)
			},
		},
	}
}

func originChecker(origins []string) func(string) bool {
	set := make(map[string]bool, len(origins))
	for _, o := range origins {
		if o == "*" {
			return func(string) bool { return true }
		}
		set[o] = true
	}
	if len(set) == 0 {
		return func(string) bool { return true }
	}
	return func(o string) bool { return set[o] }
}

// Run serves registrations, broadcasts and keepalive pings from one loop.
// All clients are closed when ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	ping := time.NewTicker(20 * time.Second)
	defer ping.Stop()

	drop := func(c *websocket.Conn) {
		if _, ok := h.clients[c]; ok {
			delete(h.clients, c)
			h.count.Add(-1)
		}
		_ = c.Close()
	}

	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				drop(c)
			}
			return

		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.count.Add(1)

		case c := <-h.unregister:
			drop(c)

		case msg := <-h.broadcast:
			for c := range h.clients {
				_ = c.SetWriteDeadline(time.Now().Add(3 * time.Second))
				if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
					drop(c)
				}
			}

		case <-ping.C:
			for c := range h.clients {
				_ = c.SetWriteDeadline(time.Now().Add(2 * time.Second))
				if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
					drop(c)
				}
			}
		}
	}
}

// Handler upgrades requests to WebSocket connections and registers them.
func (h *Hub) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade has already written the failure response.
			return
		}
		h.register <- conn

		go func() {
			defer func() { h.unregister <- conn }()
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			conn.SetPongHandler(func(string) error {
				_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
				return nil
			})

			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	})
}

// BroadcastJSON marshals v and queues it for every client. When the queue is
// full the message is dropped and counted rather than blocking the caller.
func (h *Hub) BroadcastJSON(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	select {
	case h.broadcast <- b:
	default:
		h.dropped.Add(1)
	}
}

// Clients returns the number of connected watchers.
func (h *Hub) Clients() int { return int(h.count.Load()) }

// Dropped returns how many broadcasts were discarded on a full queue.
func (h *Hub) Dropped() int64 { return h.dropped.Load() }
