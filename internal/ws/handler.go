package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pinfall/backend/internal/game"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // origins are checked by middleware.WebSocketCORSCheck
	},
}

// Client represents a connected WebSocket client
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	clientID  string
	sessionID string
	session   *game.Session
	manager   *game.Manager
	send      chan []byte
}

// Hub maintains the set of active clients. Each session has a room; a
// session may be watched from more than one tab
type Hub struct {
	clients    map[string]*Client            // clientID -> Client
	rooms      map[string]map[string]*Client // sessionID -> clientID -> Client
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once
	mu         sync.RWMutex
}

var _ game.Broadcaster = (*Hub)(nil)

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		rooms:      make(map[string]map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run processes registrations until stop is closed
func (h *Hub) Run(stop <-chan struct{}) {
	defer h.stopOnce.Do(func() { close(h.done) })
	for {
		select {
		case <-stop:
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.clientID] = client
			if _, exists := h.rooms[client.sessionID]; !exists {
				h.rooms[client.sessionID] = make(map[string]*Client)
			}
			h.rooms[client.sessionID][client.clientID] = client
			size := len(h.rooms[client.sessionID])
			if client.session != nil && client.session.Closed() {
				// the session ended while the upgrade was in flight
				h.remove(client)
				h.mu.Unlock()
				continue
			}
			h.mu.Unlock()

			log.Printf("[WS] Client %s joined session %s (room_size=%d)", client.clientID, client.sessionID, size)

			if client.session != nil {
				client.sendJSON(map[string]interface{}{
					"type": "session_joined",
					"data": map[string]interface{}{
						"session_id": client.sessionID,
						"scene":      client.session.Scene,
					},
				})
			}

		case client := <-h.unregister:
			h.mu.Lock()
			if h.remove(client) {
				log.Printf("[WS] Client %s left session %s", client.clientID, client.sessionID)
			}
			h.mu.Unlock()
		}
	}
}

// join hands client to Run. It reports false once the hub has stopped
func (h *Hub) join(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// leave hands client to Run for removal; a no-op once the hub has stopped
func (h *Hub) leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// remove drops client from the hub and closes its send channel. Callers
// hold h.mu
func (h *Hub) remove(client *Client) bool {
	cur, ok := h.clients[client.clientID]
	if !ok || cur != client {
		return false
	}
	delete(h.clients, client.clientID)
	if room, exists := h.rooms[client.sessionID]; exists {
		delete(room, client.clientID)
		if len(room) == 0 {
			delete(h.rooms, client.sessionID)
		}
	}
	close(client.send)
	return true
}

// BroadcastToSession sends a message to every client watching a session
func (h *Hub) BroadcastToSession(sessionID string, message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("[WS] Error marshaling message: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.rooms[sessionID] {
		select {
		case client.send <- data:
		default:
			// Client's buffer is full
			log.Printf("[WS] Send buffer full for client %s in session %s, dropping message", client.clientID, sessionID)
		}
	}
}

// BroadcastExcept sends a message to every room but one
func (h *Hub) BroadcastExcept(sessionID string, message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("[WS] Error marshaling message: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, room := range h.rooms {
		if id == sessionID {
			continue
		}
		for _, client := range room {
			select {
			case client.send <- data:
			default:
			}
		}
	}
}

// CloseRoom disconnects every client of a session. Messages already queued
// are flushed before the close frame
func (h *Hub) CloseRoom(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := 0
	for _, client := range h.rooms[sessionID] {
		if h.remove(client) {
			n++
		}
	}
	if n > 0 {
		log.Printf("[WS] Closed room %s (%d clients)", sessionID, n)
	}
}

// RoomSize returns the number of clients watching a session
func (h *Hub) RoomSize(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[sessionID])
}

// Message types
type WSMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// writePump writes messages to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				// Channel closed: the session ended or the client left.
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"))
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("[WS] Write error for client %s: %v", c.clientID, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("[WS] Ping error for client %s: %v", c.clientID, err)
				return
			}
		}
	}
}

// sendJSON queues a message for this client only
func (c *Client) sendJSON(message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		return
	}

	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if c.hub.clients[c.clientID] != c {
		return
	}
	select {
	case c.send <- data:
	default:
		log.Printf("[WS] Dropped direct message for client %s (buffer full)", c.clientID)
	}
}

// sendError sends an error message to the client
func (c *Client) sendError(message string) {
	c.sendJSON(map[string]interface{}{
		"type":    "error",
		"message": message,
	})
}
