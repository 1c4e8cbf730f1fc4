package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/pinfall/backend/internal/game"
	"github.com/pinfall/backend/internal/scene"
	"github.com/redis/go-redis/v9"
)

// GetStats returns per-slot drop counts for one scene (?scene=) or all
func GetStats(rdb *redis.Client, m *game.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rdb == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Stats unavailable"})
			return
		}

		names := scene.Names()
		if name := c.Query("scene"); name != "" {
			if _, err := scene.Build(name); err != nil {
				c.JSON(http.StatusNotFound, gin.H{"error": "Scene not found"})
				return
			}
			names = []string{name}
		}

		histograms := make(map[string]map[int]int64, len(names))
		for _, name := range names {
			h, err := game.SlotHistogram(c.Request.Context(), rdb, name)
			if err != nil {
				log.Printf("[REDIS] Failed to read histogram for %s: %v", name, err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read stats"})
				return
			}
			histograms[name] = h
		}

		c.JSON(http.StatusOK, gin.H{
			"slot_histograms": histograms,
			"active_sessions": m.GetActiveSessionCount(),
		})
	}
}

// GetDrops returns the most recent drops (?limit=, ?session_id=)
func GetDrops(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Drop history unavailable"})
			return
		}

		limit := queryInt(c, "limit", 50, game.MaxRecentDrops)
		drops, err := game.RecentDrops(db, c.Query("session_id"), limit)
		if err != nil {
			log.Printf("[DB] Failed to fetch drops: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch drops"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"drops": drops, "limit": limit})
	}
}
