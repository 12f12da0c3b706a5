package api

import (
	"encoding/json"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"equipment-maintenance-dashboard/internal/dashboard"
)

const (
	liveWriteWait  = 10 * time.Second
	liveSendBuffer = 32
)

// liveMessage is the frame pushed to dashboard clients.
type liveMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type liveClient struct {
	conn *websocket.Conn
	send chan []byte
}

// LiveHub pushes state changes and notices to connected dashboards over
// websockets. A client that falls behind is dropped.
type LiveHub struct {
	upgrader websocket.Upgrader
	mu       sync.Mutex
	clients  map[*liveClient]struct{}
	logger   zerolog.Logger
}

// NewLiveHub creates a hub accepting connections from allowedOrigins;
// an empty list or "*" accepts any origin.
func NewLiveHub(allowedOrigins []string, logger zerolog.Logger) *LiveHub {
	h := &LiveHub{
		clients: make(map[*liveClient]struct{}),
		logger:  logger.With().Str("component", "live").Logger(),
	}
	h.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 || slices.Contains(allowedOrigins, "*") {
				return true
			}
			return slices.Contains(allowedOrigins, r.Header.Get("Origin"))
		},
	}
	return h
}

// Broadcast queues an event for every connected client.
func (h *LiveHub) Broadcast(event string, data any) {
	payload, err := json.Marshal(liveMessage{Type: event, Data: data})
	if err != nil {
		h.logger.Error().Err(err).Str("event", event).Msg("failed to encode live event")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			h.logger.Warn().Msg("live client too slow, dropping")
			h.removeLocked(c)
		}
	}
}

// StateChanged announces a newly published dashboard state. Clients
// refetch what they show.
func (h *LiveHub) StateChanged(s dashboard.State) {
	h.Broadcast("state", stateEvent(s))
}

func stateEvent(s dashboard.State) gin.H {
	return gin.H{
		"version":         s.Version,
		"synced_at":       s.SyncedAt,
		"degraded":        s.Degraded,
		"pending_reviews": len(s.PendingReviews),
	}
}

// Clients returns the number of connected clients.
func (h *LiveHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *LiveHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		h.removeLocked(c)
	}
}

// removeLocked forgets c and ends its writer. h.mu must be held.
func (h *LiveHub) removeLocked(c *liveClient) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

func (h *LiveHub) remove(c *liveClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

// Serve upgrades the request and keeps the connection until the client
// leaves. hello is sent first.
func (h *LiveHub) Serve(w http.ResponseWriter, r *http.Request, hello liveMessage) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := &liveClient{conn: conn, send: make(chan []byte, liveSendBuffer)}
	if payload, err := json.Marshal(hello); err == nil {
		client.send <- payload
	}

	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug().Str("remote", r.RemoteAddr).Msg("live client connected")

	go h.writeLoop(client)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.remove(client)
	h.logger.Debug().Str("remote", r.RemoteAddr).Msg("live client disconnected")
}

func (h *LiveHub) writeLoop(c *liveClient) {
	defer c.conn.Close()
	for payload := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.remove(c)
			return
		}
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// LiveUpdates handles GET /ws.
func (h *Handler) LiveUpdates(c *gin.Context) {
	if h.live == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, errorResponse{Error: "live updates are not available", Level: "error"})
		return
	}
	h.live.Serve(c.Writer, c.Request, liveMessage{Type: "init", Data: stateEvent(h.view.State())})
}
