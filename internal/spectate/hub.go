// Package spectate streams live games to browser viewers over WebSocket.
package spectate

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/tomz197/starfall/internal/loop/session"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512

	sendBuffer     = 16
	eventBuffer    = 256
	rosterInterval = time.Second

	// DefaultFrameInterval caps frames per game sent to viewers at about 15 per second.
	DefaultFrameInterval = time.Second / 15
)

// ErrHubClosed is returned when a viewer connects after the hub stopped.
var ErrHubClosed = errors.New("spectate: hub closed")

//go:embed static
var static embed.FS

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Options configures a Hub.
type Options struct {
	MaxViewers    int // 0 means unlimited
	FrameInterval time.Duration
	Logger        *log.Logger
}

type eventKind int

const (
	eventFrame eventKind = iota
	eventDrop
)

type event struct {
	kind    eventKind
	id      string
	info    GameInfo
	payload []byte
}

type viewer struct {
	id       string
	conn     *websocket.Conn
	send     chan []byte
	watching string // owned by the hub loop
}

type watch struct {
	v  *viewer
	id string
}

type game struct {
	info   GameInfo
	latest []byte
}

// Hub fans frames from running games out to connected viewers. Publish and Drop
// are safe to call from any goroutine and never block; the routing itself runs
// on the goroutine calling Run.
type Hub struct {
	logger   *log.Logger
	opts     Options
	viewers  atomic.Int32
	events   chan event
	register chan *viewer
	leave    chan *viewer
	watches  chan watch
	done     chan struct{}

	mu       sync.Mutex
	lastSent map[string]time.Time

	// owned by Run
	conns map[*viewer]struct{}
	games map[string]*game
}

// NewHub creates a hub. Call Run to start routing.
func NewHub(opts Options) *Hub {
	if opts.FrameInterval <= 0 {
		opts.FrameInterval = DefaultFrameInterval
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Hub{
		logger:   opts.Logger.With("component", "spectate"),
		opts:     opts,
		events:   make(chan event, eventBuffer),
		register: make(chan *viewer),
		leave:    make(chan *viewer),
		watches:  make(chan watch),
		done:     make(chan struct{}),
		lastSent: make(map[string]time.Time),
		conns:    make(map[*viewer]struct{}),
		games:    make(map[string]*game),
	}
}

// Viewers is the number of connected viewers.
func (h *Hub) Viewers() int { return int(h.viewers.Load()) }

// Publish implements client.FrameSink. Frames are dropped when nobody watches,
// when the game published too recently, or when the hub is backed up.
func (h *Hub) Publish(id, name string, f session.Frame) {
	if h.viewers.Load() == 0 {
		return
	}
	now := time.Now()
	h.mu.Lock()
	if now.Sub(h.lastSent[id]) < h.opts.FrameInterval {
		h.mu.Unlock()
		return
	}
	h.lastSent[id] = now
	h.mu.Unlock()

	msg := NewFrameMessage(id, name, f)
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Failed to encode frame", "game", id, "error", err)
		return
	}
	h.emit(event{
		kind:    eventFrame,
		id:      id,
		info:    GameInfo{ID: id, Name: name, Level: msg.Level, Elapsed: msg.Elapsed},
		payload: payload,
	})
}

// Drop implements client.FrameSink. Unlike frames, a drop is never discarded: it
// waits for room in the queue unless the hub has stopped.
func (h *Hub) Drop(id string) {
	h.mu.Lock()
	delete(h.lastSent, id)
	h.mu.Unlock()
	select {
	case h.events <- event{kind: eventDrop, id: id}:
	case <-h.done:
	}
}

func (h *Hub) emit(ev event) {
	select {
	case h.events <- ev:
	default:
		h.logger.Debug("Dropping spectator frame", "game", ev.id)
	}
}

// Run routes frames to viewers until ctx is cancelled, then disconnects everyone.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(rosterInterval)
	defer func() {
		ticker.Stop()
		close(h.done)
		for v := range h.conns {
			h.remove(v)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case v := <-h.register:
			h.conns[v] = struct{}{}
			h.deliver(v, h.roster())
			h.logger.Info("Viewer connected", "viewer", v.id, "viewers", len(h.conns))

		case v := <-h.leave:
			if _, ok := h.conns[v]; ok {
				h.remove(v)
				h.logger.Info("Viewer disconnected", "viewer", v.id, "viewers", len(h.conns))
			}

		case w := <-h.watches:
			if _, ok := h.conns[w.v]; !ok {
				break
			}
			w.v.watching = w.id
			if g, ok := h.games[w.id]; ok && g.latest != nil {
				h.deliver(w.v, g.latest)
			}

		case ev := <-h.events:
			h.route(ev)

		case <-ticker.C:
			if len(h.conns) == 0 {
				break
			}
			roster := h.roster()
			for v := range h.conns {
				h.deliver(v, roster)
			}
		}
	}
}

func (h *Hub) route(ev event) {
	switch ev.kind {
	case eventFrame:
		g, ok := h.games[ev.id]
		if !ok {
			g = &game{}
			h.games[ev.id] = g
		}
		g.info, g.latest = ev.info, ev.payload
		for v := range h.conns {
			if v.watching == "" {
				v.watching = ev.id
			}
			if v.watching == ev.id {
				h.deliver(v, ev.payload)
			}
		}

	case eventDrop:
		if _, ok := h.games[ev.id]; !ok {
			return
		}
		delete(h.games, ev.id)
		roster := h.roster()
		for v := range h.conns {
			if v.watching == ev.id {
				v.watching = ""
			}
			h.deliver(v, roster)
		}
	}
}

// deliver queues a message without blocking. A viewer too slow to keep up
// simply misses frames.
func (h *Hub) deliver(v *viewer, msg []byte) {
	select {
	case v.send <- msg:
	default:
	}
}

func (h *Hub) remove(v *viewer) {
	delete(h.conns, v)
	close(v.send)
	h.viewers.Add(-1)
}

func (h *Hub) roster() []byte {
	games := make([]GameInfo, 0, len(h.games))
	for _, g := range h.games {
		games = append(games, g.info)
	}
	sort.Slice(games, func(i, j int) bool { return games[i].ID < games[j].ID })
	payload, err := json.Marshal(RosterMessage{Type: "games", Games: games})
	if err != nil {
		h.logger.Error("Failed to encode roster", "error", err)
		return nil
	}
	return payload
}

// Handler serves the viewer page on / and the WebSocket on /ws.
func (h *Hub) Handler() http.Handler {
	page, err := fs.Sub(static, "static")
	if err != nil {
		panic(err)
	}
	mux := http.NewServeMux()
	mux.Handle("/", http.FileServer(http.FS(page)))
	mux.HandleFunc("/ws", h.serveWS)
	return mux
}

func (h *Hub) serveWS(w http.ResponseWriter, r *http.Request) {
	if limit := h.opts.MaxViewers; limit > 0 && h.Viewers() >= limit {
		http.Error(w, "too many viewers", http.StatusServiceUnavailable)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", "error", err)
		return
	}

	v := &viewer{
		id:       uuid.New().String(),
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
		watching: r.URL.Query().Get("game"),
	}
	h.viewers.Add(1)
	select {
	case h.register <- v:
	case <-h.done:
		h.viewers.Add(-1)
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, ErrHubClosed.Error()))
		conn.Close()
		return
	}

	go h.writePump(v)
	go h.readPump(v)
}

func (h *Hub) readPump(v *viewer) {
	defer func() {
		select {
		case h.leave <- v:
		case <-h.done:
		}
		v.conn.Close()
	}()

	v.conn.SetReadLimit(maxMessageSize)
	v.conn.SetReadDeadline(time.Now().Add(pongWait))
	v.conn.SetPongHandler(func(string) error {
		v.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := v.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("Viewer read failed", "viewer", v.id, "error", err)
			}
			return
		}
		var req watchRequest
		if err := json.Unmarshal(data, &req); err != nil || req.Type != "watch" {
			h.logger.Debug("Ignoring viewer message", "viewer", v.id)
			continue
		}
		select {
		case h.watches <- watch{v: v, id: req.ID}:
		case <-h.done:
			return
		}
	}
}

func (h *Hub) writePump(v *viewer) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		v.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-v.send:
			v.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				v.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := v.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			v.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := v.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
