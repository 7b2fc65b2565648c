package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestOriginChecker(t *testing.T) {
	tests := []struct {
		name    string
		origins []string
		origin  string
		want    bool
	}{
		{"empty list", nil, "https://any.example", true},
		{"wildcard", []string{"https://a.example", "*"}, "https://b.example", true},
		{"listed", []string{"https://a.example"}, "https://a.example", true},
		{"unlisted", []string{"https://a.example"}, "https://b.example", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := originChecker(tt.origins)(tt.origin); got != tt.want {
				t.Errorf("allow(%q) = %v, want %v", tt.origin, got, tt.want)
			}
		})
	}
}

func TestBroadcastReachesClient(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := NewHub(nil)
	go h.Run(ctx)

	srv := httptest.NewServer(h.Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for h.Clients() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	h.BroadcastJSON(map[string]any{"type": "heartbeat"})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	if got := string(msg); got != `{"type":"heartbeat"}` {
		t.Errorf("message = %s", got)
	}
}

func TestRejectsForeignOrigin(t *testing.T) {
	h := NewHub([]string{"https://sky.example.org"})
	srv := httptest.NewServer(h.Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	hdr := http.Header{"Origin": []string{"https://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, hdr)
	if err == nil {
		t.Fatal("expected the upgrade to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("response = %v, want 403", resp)
	}
}

func TestBroadcastDropsWhenFull(t *testing.T) {
	h := NewHub(nil)
	for range cap(h.broadcast) + 3 {
		h.BroadcastJSON(map[string]int{"n": 1})
	}
	if got := h.Dropped(); got != 3 {
		t.Errorf("dropped = %d, want 3", got)
	}
}
