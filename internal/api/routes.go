package api

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/pinfall/backend/internal/api/handlers"
	"github.com/pinfall/backend/internal/config"
	"github.com/pinfall/backend/internal/game"
	"github.com/pinfall/backend/internal/middleware"
	"github.com/pinfall/backend/internal/ws"
	"github.com/redis/go-redis/v9"
)

// SetupRoutes configures all API routes. db and rdb may be nil; the
// endpoints that need them answer 503
func SetupRoutes(router *gin.Engine, db *sqlx.DB, rdb *redis.Client, cfg *config.Config, m *game.Manager, hub *ws.Hub) {
	router.Use(middleware.CORSMiddleware(cfg))

	if cfg.Environment != "production" {
		router.Use(func(c *gin.Context) {
			c.Header("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
			c.Header("Pragma", "no-cache")
			c.Header("Expires", "0")
			c.Next()
		})
		log.Println("[DEV MODE] no-cache headers enabled for all routes")
	}

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", handlers.HealthCheck(db, rdb))
		v1.GET("/config", handlers.GetConfig(cfg))

		v1.GET("/scenes", handlers.ListScenes)
		v1.GET("/scenes/:name", handlers.GetScene)

		sessions := v1.Group("/sessions")
		{
			sessions.POST("", handlers.CreateSession(m, cfg))
			sessions.GET("/:id", handlers.GetSession(m))
			sessions.GET("/:id/ws", middleware.WebSocketCORSCheck(cfg), handlers.HandleSessionWebSocket(hub, m, cfg))
		}

		v1.GET("/stats", handlers.GetStats(rdb, m))
		v1.GET("/drops", handlers.GetDrops(db))

		adminGroup := v1.Group("/admin", handlers.AdminAuthMiddleware(db))
		{
			adminGroup.GET("/me", handlers.AdminMe())
			adminGroup.GET("/sessions", handlers.AdminListSessions(m))
			adminGroup.DELETE("/sessions/:id", handlers.AdminCloseSession(db, m))
			adminGroup.GET("/audit", handlers.GetAdminAuditLogs(db))
		}
	}
}
