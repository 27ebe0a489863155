// Package stream pushes analysis snapshots to WebSocket clients.
package stream

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"NavGuard/internal/usecase"
	"NavGuard/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// Config tunes connection keepalive and per-client buffering.
// AllowOrigins lists browser origins allowed to connect ("*" for any). When
// empty only same-origin upgrades are accepted.
type Config struct {
	PingInterval time.Duration
	WriteWait    time.Duration
	ClientBuffer int
	AllowOrigins []string
}

// checkOrigin returns nil for the upgrader's same-origin default.
func checkOrigin(origins []string) func(*http.Request) bool {
	if len(origins) == 0 {
		return nil
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range origins {
			if o == "*" || strings.EqualFold(o, origin) {
				return true
			}
		}
		return false
	}
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

// Hub fans snapshots out to every connected client. A new client first
// receives the most recent snapshot, then every later one in order.
type Hub struct {
	cfg      Config
	log      *logger.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
	last    []byte
	closed  bool
	wg      sync.WaitGroup
}

// NewHub creates a hub seeded with initial as the current snapshot.
func NewHub(cfg Config, initial usecase.Snapshot, log *logger.Logger) *Hub {
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = 10 * time.Second
	}
	if cfg.ClientBuffer <= 0 {
		cfg.ClientBuffer = 16
	}
	h := &Hub{
		cfg:     cfg,
		log:     log.With(logger.String("component", "stream")),
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: checkOrigin(cfg.AllowOrigins),
		},
	}
	h.last, _ = json.Marshal(initial)
	return h
}

// Broadcast sends s to every client. A client whose buffer is full is
// disconnected rather than allowed to slow the others.
func (h *Hub) Broadcast(s usecase.Snapshot) {
	b, err := json.Marshal(s)
	if err != nil {
		h.log.Error("marshal snapshot", logger.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = b
	for c := range h.clients {
		select {
		case c.send <- b:
		default:
			h.log.Warn("slow stream client dropped")
			h.removeLocked(c)
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Handle upgrades the request and serves the client until it disconnects.
func (h *Hub) Handle(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.log.Debug("websocket upgrade failed", logger.Error(err))
		return nil
	}

	cl := &client{conn: conn, send: make(chan []byte, h.cfg.ClientBuffer)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return nil
	}
	h.clients[cl] = struct{}{}
	cl.send <- h.last
	h.wg.Add(1)
	h.mu.Unlock()

	go h.writePump(cl)
	h.readPump(cl)
	return nil
}

// Close disconnects every client and waits for their writers to exit.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	for c := range h.clients {
		h.removeLocked(c)
	}
	h.mu.Unlock()

	h.wg.Wait()
}

func (h *Hub) removeLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	c.close()
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	h.removeLocked(c)
	h.mu.Unlock()
}

// readPump discards client frames; it exists to observe pongs and close.
func (h *Hub) readPump(c *client) {
	defer h.remove(c)

	readWait := h.cfg.PingInterval * 2
	_ = c.conn.SetReadDeadline(time.Now().Add(readWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(readWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
		h.wg.Done()
	}()

	for {
		select {
		case b, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				h.remove(c)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(c)
				return
			}
		}
	}
}
