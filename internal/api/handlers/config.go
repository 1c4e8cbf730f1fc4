package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pinfall/backend/internal/config"
	"github.com/pinfall/backend/internal/input"
	"github.com/pinfall/backend/internal/scene"
)

// GetConfig returns the config values the browser needs to drive a session
func GetConfig(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		bindings := map[string]input.Trigger{}
		for _, b := range input.DefaultBindings().List() {
			bindings[b.Key] = b.Trigger
		}
		c.JSON(http.StatusOK, gin.H{
			"default_scene":          cfg.DefaultScene,
			"scenes":                 scene.Names(),
			"tick_rate_hz":           cfg.TickRateHz,
			"max_bodies_per_session": cfg.MaxBodiesPerSession,
			"pointer_up_center":      cfg.PointerUpCenter,
			"key_bindings":           bindings,
		})
	}
}
