package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/pinfall/backend/internal/config"
	"github.com/pinfall/backend/internal/game"
	"github.com/pinfall/backend/internal/ws"
)

// HandleSessionWebSocket handles real-time session communication
func HandleSessionWebSocket(hub *ws.Hub, m *game.Manager, cfg *config.Config) gin.HandlerFunc {
	return ws.HandleWebSocket(hub, m, cfg)
}
