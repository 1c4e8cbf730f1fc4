package ws

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/pinfall/backend/internal/auth"
	"github.com/pinfall/backend/internal/config"
	"github.com/pinfall/backend/internal/game"
	"github.com/pinfall/backend/internal/input"
)

func newClientID() string {
	b := make([]byte, 6)
	rand.Read(b)
	return "c_" + hex.EncodeToString(b)
}

// HandleWebSocket upgrades a browser connection onto a session. The token
// query parameter must be a session token issued for the id in the path
func HandleWebSocket(hub *Hub, manager *game.Manager, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.Param("id")
		token := c.Query("token")
		if sessionID == "" || token == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "session id and token required"})
			return
		}

		claims, err := auth.ParseSessionToken(cfg.JWTSecret, token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid session token"})
			return
		}
		if claims.SessionID != sessionID {
			c.JSON(http.StatusForbidden, gin.H{"error": "token does not belong to this session"})
			return
		}

		s, err := manager.GetSession(sessionID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("[WS] Upgrade error: %v", err)
			return
		}

		client := &Client{
			hub:       hub,
			conn:      conn,
			clientID:  newClientID(),
			sessionID: sessionID,
			session:   s,
			manager:   manager,
			send:      make(chan []byte, 256),
		}

		if !hub.join(client) {
			log.Printf("[WS] Hub stopped, refusing client for session %s", sessionID)
			conn.Close()
			return
		}

		go client.writePump()
		go client.readPump()
	}
}

// readPump forwards browser input into the session inbox
func (c *Client) readPump() {
	defer func() {
		c.hub.leave(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[WS] Unexpected close for client %s: %v", c.clientID, err)
			}
			break
		}

		var msg WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.sendError("Invalid message")
			continue
		}

		c.handleMessage(msg)
	}
}

// handleMessage processes one inbound message
func (c *Client) handleMessage(msg WSMessage) {
	switch msg.Type {
	case "input":
		var ev input.DeviceEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			c.sendError("Invalid input data")
			return
		}
		if c.session.Closed() {
			c.sendError(game.ErrSessionClosed.Error())
			return
		}
		if !c.session.Input(ev) {
			c.sendError("Input dropped, slow down")
			return
		}
		c.manager.MarkActive(c.sessionID)

	case "ping":
		c.sendJSON(map[string]interface{}{"type": "pong", "ts": time.Now().UnixMilli()})

	case "stats":
		c.sendJSON(map[string]interface{}{"type": "stats", "data": c.session.Stats()})

	default:
		c.sendError("Unknown message type")
	}
}
