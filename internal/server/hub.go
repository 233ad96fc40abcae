package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ayusman/attention/internal/gesture"
	"github.com/ayusman/attention/internal/metrics"
)

// WriteTimeout bounds a single message write to one client.
const WriteTimeout = 2 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// Message is the JSON envelope written to clients.
type Message struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type client struct {
	id   string
	conn *websocket.Conn
	// mu serialises writes; gorilla connections allow one concurrent writer.
	mu sync.Mutex
}

func (c *client) write(msg []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(WriteTimeout)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, msg)
}

// Hub keeps the connected WebSocket clients and broadcasts gesture events to
// all of them. It implements gesture.Emitter.
type Hub struct {
	logger  *zap.Logger
	metrics *metrics.Metrics

	mu      sync.RWMutex
	clients map[string]*client
}

// NewHub creates an empty Hub. Both arguments may be nil.
func NewHub(logger *zap.Logger, m *metrics.Metrics) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		logger:  logger,
		metrics: m,
		clients: make(map[string]*client),
	}
}

// ServeHTTP upgrades the request and keeps the client registered until its
// connection closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{id: uuid.NewString(), conn: conn}
	h.add(c)
	defer h.remove(c.id)

	h.logger.Info("client connected",
		zap.String("client_id", c.id),
		zap.String("remote", r.RemoteAddr))

	// Clients never send anything meaningful; reading detects disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// Emit sends ev to every connected client. Clients whose write fails are
// dropped. The error reports how many clients were lost, if any.
func (h *Hub) Emit(ctx context.Context, ev gesture.Event) error {
	msg, err := json.Marshal(Message{Event: ev.Name, Data: ev.Payload})
	if err != nil {
		return fmt.Errorf("encode %s: %w", ev.Name, err)
	}

	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	var failed []string
	for _, c := range targets {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := c.write(msg); err != nil {
			h.logger.Debug("client write failed",
				zap.String("client_id", c.id),
				zap.Error(err))
			failed = append(failed, c.id)
		}
	}

	for _, id := range failed {
		h.remove(id)
	}
	if len(failed) > 0 {
		return fmt.Errorf("dropped %d of %d clients", len(failed), len(targets))
	}
	return nil
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[string]*client)
	h.mu.Unlock()

	for _, c := range clients {
		c.conn.Close()
	}
	h.setClients(0)
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	h.clients[c.id] = c
	n := len(h.clients)
	h.mu.Unlock()
	h.setClients(n)
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	c, ok := h.clients[id]
	if ok {
		delete(h.clients, id)
	}
	n := len(h.clients)
	h.mu.Unlock()

	if !ok {
		return
	}
	c.conn.Close()
	h.setClients(n)
	h.logger.Info("client disconnected", zap.String("client_id", id))
}

func (h *Hub) setClients(n int) {
	if h.metrics != nil {
		h.metrics.SetClients(n)
	}
}
