package spectate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/tomz197/starfall/internal/loop/config"
	"github.com/tomz197/starfall/internal/loop/session"
	"github.com/tomz197/starfall/internal/object"
	"github.com/tomz197/starfall/internal/progression"
)

func testFrame(t *testing.T) session.Frame {
	t.Helper()
	c := session.NewController("alice", progression.Default(), session.Options{
		Tuning: config.Default(),
		Logger: log.New(io.Discard),
		Seed:   1,
	})
	if err := c.Start(config.FirstLevel); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return c.Snapshot()
}

func startHub(t *testing.T, opts Options) (*Hub, *httptest.Server) {
	t.Helper()
	opts.Logger = log.New(io.Discard)
	h := NewHub(opts)
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	srv := httptest.NewServer(h.Handler())
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return h, srv
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// next reads messages until one of the given type arrives.
func next(t *testing.T, conn *websocket.Conn, typ string) map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("Waiting for %q: %v", typ, err)
		}
		var msg map[string]any
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("Bad message %s: %v", data, err)
		}
		if msg["type"] == typ {
			return msg
		}
	}
}

func TestNewFrameMessage(t *testing.T) {
	f := testFrame(t)
	f.Enemies = []*object.Enemy{{X: 10.4, Y: 20.6, Radius: 12}}
	f.Boss = &object.Boss{Name: "Sentinel", X: 400, Y: 80, HalfW: 60, HalfH: 30, Health: 250, MaxHealth: 1000}

	m := NewFrameMessage("g1", "alice", f)
	if m.Type != "frame" || m.ID != "g1" || m.Name != "alice" {
		t.Errorf("Header = %q %q %q", m.Type, m.ID, m.Name)
	}
	if m.Status != "paused" || m.Line == "" {
		t.Errorf("Status = %q, line = %q, want the intro dialogue", m.Status, m.Line)
	}
	if m.Width != config.PlayWidth || m.Height != config.PlayHeight {
		t.Errorf("Size = %dx%d", m.Width, m.Height)
	}
	if m.Player == nil || m.Health != 100 || m.MaxHealth != 100 {
		t.Errorf("Player = %+v, health %d/%d", m.Player, m.Health, m.MaxHealth)
	}
	if len(m.Enemies) != 1 || m.Enemies[0] != (Shape{X: 10, Y: 21, R: 12, Color: object.ColorRed}) {
		t.Errorf("Enemies = %+v", m.Enemies)
	}
	if m.Boss == nil || m.Boss.Health != 0.25 {
		t.Errorf("Boss = %+v", m.Boss)
	}
	if m.Outcome != "" {
		t.Errorf("Outcome = %q for a live run", m.Outcome)
	}
}

func TestPublishWithoutViewersIsSkipped(t *testing.T) {
	h := NewHub(Options{Logger: log.New(io.Discard)})
	h.Publish("g1", "alice", testFrame(t))
	if len(h.events) != 0 {
		t.Errorf("Queued %d events with no viewers", len(h.events))
	}
}

func TestViewerFollowsGame(t *testing.T) {
	h, srv := startHub(t, Options{FrameInterval: time.Nanosecond})
	conn := dial(t, srv, "")

	if msg := next(t, conn, "games"); len(msg["games"].([]any)) != 0 {
		t.Fatalf("Roster = %v, want empty", msg["games"])
	}

	h.Publish("g1", "alice", testFrame(t))
	msg := next(t, conn, "frame")
	if msg["id"] != "g1" || msg["name"] != "alice" {
		t.Fatalf("Frame = %v", msg)
	}

	h.Drop("g1")
	msg = next(t, conn, "games")
	if len(msg["games"].([]any)) != 0 {
		t.Errorf("Roster after drop = %v", msg["games"])
	}
}

func TestWatchSwitchesGame(t *testing.T) {
	h, srv := startHub(t, Options{FrameInterval: time.Nanosecond})
	conn := dial(t, srv, "?game=g2")
	next(t, conn, "games")

	f := testFrame(t)
	h.Publish("g1", "alice", f)
	h.Publish("g2", "bob", f)
	if msg := next(t, conn, "frame"); msg["id"] != "g2" {
		t.Fatalf("Got frame of %v, want g2", msg["id"])
	}

	if err := conn.WriteJSON(watchRequest{Type: "watch", ID: "g1"}); err != nil {
		t.Fatal(err)
	}
	// Switching replays the latest frame of the new game.
	for {
		msg := next(t, conn, "frame")
		if msg["id"] == "g1" {
			break
		}
	}
}

func TestFrameInterval(t *testing.T) {
	h := NewHub(Options{FrameInterval: time.Hour, Logger: log.New(io.Discard)})
	h.viewers.Store(1)
	f := testFrame(t)

	h.Publish("g1", "alice", f)
	h.Publish("g1", "alice", f)
	h.Publish("g2", "bob", f)
	if len(h.events) != 2 {
		t.Errorf("Queued %d events, want one per game", len(h.events))
	}
}

func TestMaxViewers(t *testing.T) {
	_, srv := startHub(t, Options{MaxViewers: 1})
	conn := dial(t, srv, "")
	next(t, conn, "games")

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatalf("Second viewer was accepted")
	}
	if resp == nil || resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("Response = %v, want 503", resp)
	}
}

func TestViewerPage(t *testing.T) {
	_, srv := startHub(t, Options{})
	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "STARFALL") {
		t.Errorf("Status %d, body %.60q", resp.StatusCode, body)
	}
}

func TestDropSurvivesFullQueue(t *testing.T) {
	h := NewHub(Options{FrameInterval: time.Nanosecond, Logger: log.New(io.Discard)})
	h.viewers.Store(1)
	f := testFrame(t)
	for i := 0; i < eventBuffer; i++ {
		h.Publish(fmt.Sprintf("g%03d", i), "alice", f)
	}
	if len(h.events) != eventBuffer {
		t.Fatalf("Queued %d events, want a full queue of %d", len(h.events), eventBuffer)
	}

	dropped := make(chan struct{})
	go func() {
		h.Drop("g000")
		close(dropped)
	}()

	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	srv := httptest.NewServer(h.Handler())
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})

	select {
	case <-dropped:
	case <-time.After(2 * time.Second):
		t.Fatal("Drop did not complete once the hub was running")
	}

	conn := dial(t, srv, "")
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		games := next(t, conn, "games")["games"].([]any)
		listed := false
		for _, g := range games {
			if g.(map[string]any)["id"] == "g000" {
				listed = true
			}
		}
		if !listed && len(games) == eventBuffer-1 {
			return
		}
	}
	t.Fatal("g000 still listed after Drop")
}
