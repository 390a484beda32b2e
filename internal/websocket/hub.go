package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/ff-draft-sim/internal/draft"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 16
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// SessionLookup returns the current state of a draft session.
type SessionLookup func(id uuid.UUID) (draft.Update, bool)

// Client is one websocket connection following a draft session.
type Client struct {
	SessionID uuid.UUID
	Conn      *websocket.Conn
	Send      chan []byte
	Hub       *Hub
}

// Hub fans draft session updates out to the connections following each
// session.
type Hub struct {
	sessions   map[uuid.UUID]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	lookup     SessionLookup
	logger     *logrus.Entry
	mutex      sync.RWMutex
}

func NewHub(lookup SessionLookup, logger *logrus.Logger) *Hub {
	return &Hub{
		sessions:   make(map[uuid.UUID]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		lookup:     lookup,
		logger:     logger.WithField("component", "websocket_hub"),
	}
}

// Run handles registration until ctx is done, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			clients, ok := h.sessions[client.SessionID]
			if !ok {
				clients = make(map[*Client]struct{})
				h.sessions[client.SessionID] = clients
			}
			clients[client] = struct{}{}
			// The first message is taken while broadcasts are held off, so
			// every later update is newer than it.
			h.sendCurrent(client)
			h.mutex.Unlock()

			h.logger.WithFields(logrus.Fields{
				"session_id":    client.SessionID.String(),
				"total_clients": h.ConnectionCount(),
			}).Info("WebSocket client connected")

		case client := <-h.unregister:
			h.remove(client)
			h.logger.WithFields(logrus.Fields{
				"session_id":    client.SessionID.String(),
				"total_clients": h.ConnectionCount(),
			}).Info("WebSocket client disconnected")

		case <-ctx.Done():
			close(h.done)
			h.mutex.Lock()
			for id, clients := range h.sessions {
				for client := range clients {
					close(client.Send)
				}
				delete(h.sessions, id)
			}
			h.mutex.Unlock()
			return
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	clients, ok := h.sessions[client.SessionID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	close(client.Send)
	if len(clients) == 0 {
		delete(h.sessions, client.SessionID)
	}
}

func (h *Hub) sendCurrent(client *Client) {
	current, ok := h.lookup(client.SessionID)
	if !ok {
		return
	}
	data, err := json.Marshal(current)
	if err != nil {
		h.logger.WithError(err).Error("Failed to marshal WebSocket message")
		return
	}
	select {
	case client.Send <- data:
	default:
	}
}

// HandleWebSocket upgrades GET /ws/drafts/:id and sends the session's
// current state before streaming updates.
func (h *Hub) HandleWebSocket(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid session ID"})
		return
	}
	if _, ok := h.lookup(id); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Draft session not found"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.WithError(err).Error("Failed to upgrade WebSocket connection")
		return
	}

	client := &Client{
		SessionID: id,
		Conn:      conn,
		Send:      make(chan []byte, sendBuffer),
		Hub:       h,
	}
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// Notify implements draft.Notifier.
func (h *Hub) Notify(update draft.Update) {
	h.BroadcastToSession(update.SessionID, update)
}

// BroadcastToSession sends a message to every connection following a
// session. Slow clients are dropped.
func (h *Hub) BroadcastToSession(id uuid.UUID, message interface{}) {
	h.mutex.RLock()
	clients := make([]*Client, 0, len(h.sessions[id]))
	for client := range h.sessions[id] {
		clients = append(clients, client)
	}
	h.mutex.RUnlock()

	if len(clients) == 0 {
		return
	}

	data, err := json.Marshal(message)
	if err != nil {
		h.logger.WithError(err).Error("Failed to marshal WebSocket message")
		return
	}

	var slow []*Client
	h.mutex.RLock()
	for _, client := range clients {
		if _, ok := h.sessions[id][client]; !ok {
			continue
		}
		select {
		case client.Send <- data:
		default:
			slow = append(slow, client)
		}
	}
	h.mutex.RUnlock()

	for _, client := range slow {
		h.logger.WithField("session_id", id.String()).Warn("Dropping slow WebSocket client")
		h.remove(client)
	}
}

// ConnectionCount returns the total number of active connections.
func (h *Hub) ConnectionCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	total := 0
	for _, clients := range h.sessions {
		total += len(clients)
	}
	return total
}

// SessionConnections returns the number of connections following a session.
func (h *Hub) SessionConnections(id uuid.UUID) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.sessions[id])
}

// readPump discards client messages and detects disconnects.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.Hub.unregister <- c:
		case <-c.Hub.done:
		}
		c.Conn.Close()
	}()

	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.WithError(err).Error("WebSocket error")
			}
			return
		}
	}
}

// writePump sends queued messages and keeps the connection alive.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.Hub.logger.WithError(err).Error("Failed to write WebSocket message")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
