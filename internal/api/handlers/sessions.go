package handlers

import (
	"errors"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pinfall/backend/internal/auth"
	"github.com/pinfall/backend/internal/config"
	"github.com/pinfall/backend/internal/game"
	"github.com/pinfall/backend/internal/scene"
)

type createSessionRequest struct {
	Scene string `json:"scene"`
}

// CreateSession starts a new board and returns the token needed to join it
func CreateSession(m *game.Manager, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createSessionRequest
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		s, err := m.CreateSession(req.Scene)
		if err != nil {
			if errors.Is(err, scene.ErrUnknownScene) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown scene", "scenes": scene.Names()})
				return
			}
			log.Printf("[SESSION] Failed to create session: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
			return
		}

		ttl := time.Duration(cfg.SessionTokenTTLMinutes) * time.Minute
		token, err := auth.IssueSessionToken(cfg.JWTSecret, s.ID, s.Scene.Name, ttl)
		if err != nil {
			s.Close()
			log.Printf("[SESSION] Failed to issue token for %s: %v", s.ID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
			return
		}

		c.Header("X-Session-ID", s.ID)
		c.JSON(http.StatusCreated, gin.H{
			"session_id": s.ID,
			"scene":      s.Scene.Name,
			"token":      token,
			"ws_url":     "/api/v1/sessions/" + s.ID + "/ws?token=" + url.QueryEscape(token),
			"expires_in": int(ttl.Seconds()),
		})
	}
}

// GetSession returns a live session's counters
func GetSession(m *game.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, err := m.GetSession(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
			return
		}
		c.JSON(http.StatusOK, s.Stats())
	}
}
