package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/pinfall/backend/internal/api"
	"github.com/pinfall/backend/internal/config"
	"github.com/pinfall/backend/internal/database"
	"github.com/pinfall/backend/internal/game"
	"github.com/pinfall/backend/internal/migrations"
	"github.com/pinfall/backend/internal/redis"
	"github.com/pinfall/backend/internal/ws"
	goredis "github.com/redis/go-redis/v9"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Initialize configuration
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database (optional)
	var db *sqlx.DB
	if cfg.DatabaseURL != "" {
		var err error
		db, err = database.Connect(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		// Run migrations on start if requested
		if cfg.MigrateOnStart {
			log.Println("↗ Running DB migrations on startup...")
			if err := migrations.RunMigrations(cfg.DatabaseURL, "migrations"); err != nil {
				log.Fatalf("Failed to run migrations: %v", err)
			}
		}
	} else {
		log.Println("DATABASE_URL not set; drop history and admin routes disabled")
	}

	// Initialize Redis (optional)
	var rdb *goredis.Client
	if cfg.RedisURL != "" {
		var err error
		rdb, err = redis.Connect(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer rdb.Close()
	} else {
		log.Println("REDIS_URL not set; stats disabled, idle tracking in memory")
	}

	// One hub for every session room on this process; it outlives the HTTP
	// server so pumps can still unregister during shutdown
	hub := ws.NewHub()
	hubStop := make(chan struct{})
	go hub.Run(hubStop)

	// Drops are persisted off the session loops
	hostname, _ := os.Hostname()
	origin := fmt.Sprintf("%s-%d", hostname, os.Getpid())
	recorder := game.NewDropRecorder(db, rdb, origin, 1024)
	recorder.Start(ctx)

	manager := game.NewManager(ctx, rdb, cfg, hub, recorder)

	// Relay drops and session events published by any process
	ws.StartEventSubscriber(ctx, hub, rdb, origin)

	// Close sessions nobody is playing
	game.StartIdleWorker(ctx, manager)

	// Set up Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	api.SetupRoutes(router, db, rdb, cfg, manager, hub)

	port := cfg.Port
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{Addr: ":" + port, Handler: router}

	go func() {
		log.Printf("Starting Pinfall server on port %s", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")
	manager.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	close(hubStop)
}
