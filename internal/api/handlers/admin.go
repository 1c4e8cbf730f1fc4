package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/pinfall/backend/internal/admin"
	"github.com/pinfall/backend/internal/game"
)

// AdminAuthMiddleware checks the X-Admin-User / X-Admin-Token pair against
// the bcrypt hash stored for that account
func AdminAuthMiddleware(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Admin API unavailable"})
			c.Abort()
			return
		}

		username := c.GetHeader("X-Admin-User")
		token := c.GetHeader("X-Admin-Token")
		acc, err := admin.ValidateAdminToken(db, username, token)
		if err != nil {
			if username != "" {
				admin.LogAdminAction(db, username, c.ClientIP(), c.FullPath(), admin.ActionAuth, nil, false)
			}
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			c.Abort()
			return
		}

		c.Set("admin_username", acc.Username)
		c.Next()
	}
}

// AdminMe returns the authenticated admin
func AdminMe() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"username": c.GetString("admin_username")})
	}
}

// AdminListSessions returns every live session on this process
func AdminListSessions(m *game.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessions := m.ActiveSessions()
		c.JSON(http.StatusOK, gin.H{"sessions": sessions, "total": len(sessions)})
	}
}

// AdminCloseSession tears a session down and disconnects its browsers
func AdminCloseSession(db *sqlx.DB, m *game.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		adminUsername := c.GetString("admin_username")
		sessionID := c.Param("id")

		err := m.CloseSession(sessionID)
		if errors.Is(err, game.ErrSessionNotFound) {
			admin.LogAdminAction(db, adminUsername, c.ClientIP(), "/api/v1/admin/sessions/"+sessionID, admin.ActionCloseSession, map[string]interface{}{"session_id": sessionID}, false)
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
			return
		}

		log.Printf("[ADMIN] %s closed session %s", adminUsername, sessionID)
		if err := admin.LogAdminAction(db, adminUsername, c.ClientIP(), "/api/v1/admin/sessions/"+sessionID, admin.ActionCloseSession, map[string]interface{}{"session_id": sessionID}, true); err != nil {
			log.Printf("[ADMIN] Failed to write audit entry: %v", err)
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "session_id": sessionID})
	}
}
