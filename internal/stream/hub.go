// Package stream broadcasts live simulation rounds to WebSocket clients.
package stream

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"ekon-lab/internal/domain"
	"ekon-lab/internal/engine"
	"ekon-lab/internal/observability"
)

// Message types.
const (
	TypeRound  = "round"
	TypeStatus = "status"
)

const (
	sendBuffer   = 64
	writeTimeout = 5 * time.Second
	pongTimeout  = 60 * time.Second
	pingInterval = 30 * time.Second
)

// Message is a JSON message sent to WebSocket clients.
type Message struct {
	Type  string             `json:"type"`
	Round int                `json:"round"`
	Frame *domain.RoundFrame `json:"frame,omitempty"`
	Data  any                `json:"data,omitempty"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub manages WebSocket connections and broadcasts every finished round.
// It is an engine.Observer; broadcasting never blocks the engine and slow
// clients miss messages.
type Hub struct {
	logger   *slog.Logger
	metrics  *observability.Metrics
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*client]struct{}

	pendingMu sync.Mutex
	pending   []domain.ActionEvent
}

var _ engine.Observer = (*Hub)(nil)

// NewHub creates a new WebSocket hub.
func NewHub(logger *slog.Logger, metrics *observability.Metrics) *Hub {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Hub{
		logger:  logger,
		metrics: metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// OnAgentAction buffers e for the next round message.
func (h *Hub) OnAgentAction(e domain.ActionEvent) {
	h.pendingMu.Lock()
	h.pending = append(h.pending, e)
	h.pendingMu.Unlock()
}

// OnRoundEnd broadcasts the round and always continues.
func (h *Hub) OnRoundEnd(_ context.Context, snap *domain.RoundSnapshot) bool {
	h.pendingMu.Lock()
	events := h.pending
	h.pending = nil
	h.pendingMu.Unlock()

	h.Broadcast(Message{
		Type:  TypeRound,
		Round: snap.Round,
		Frame: &domain.RoundFrame{RoundSnapshot: *snap, Events: events},
	})
	return true
}

// Broadcast sends msg to every client. Clients with a full buffer skip it.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("ws marshal failed", "type", msg.Type, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.logger.Debug("ws client lagging, message dropped", "type", msg.Type)
		}
	}
}

// HandleWS handles WebSocket upgrade requests.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", "error", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	total := len(h.clients)
	h.mu.Unlock()
	disconnected := h.metrics.StreamClientConnected()
	h.logger.Info("ws client connected", "total", total)

	go h.writePump(c)
	h.readPump(c)

	h.mu.Lock()
	delete(h.clients, c)
	close(c.send)
	h.mu.Unlock()
	disconnected()
	h.logger.Info("ws client disconnected")
}

// readPump keeps the connection alive and detects disconnects.
func (h *Hub) readPump(c *client) {
	_ = c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump is the only writer of c.conn.
func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
