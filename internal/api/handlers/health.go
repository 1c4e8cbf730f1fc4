package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

var startTime = time.Now()

const version = "1.0.0"

// HealthCheck returns server health status. Database and redis are
// reported but never fail the check; the simulation runs without them
func HealthCheck(db *sqlx.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":   "ok",
			"service":  "pinfall-api",
			"version":  version,
			"uptime":   time.Since(startTime).String(),
			"database": dependencyStatus(db != nil, func() error { return db.PingContext(c.Request.Context()) }),
			"redis":    dependencyStatus(rdb != nil, func() error { return rdb.Ping(c.Request.Context()).Err() }),
		})
	}
}

func dependencyStatus(configured bool, ping func() error) string {
	if !configured {
		return "disabled"
	}
	if err := ping(); err != nil {
		return "down"
	}
	return "up"
}
