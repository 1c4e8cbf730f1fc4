package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Environment
	Environment string

	// Database; empty disables drop history and admin routes
	DatabaseURL    string
	MigrateOnStart bool

	// Redis; empty keeps stats, idle deadlines and events in-process
	RedisURL string

	// Server
	Port        string
	FrontendURL string

	// Simulation
	DefaultScene        string
	TickRateHz          int
	MaxBodiesPerSession int
	SpawnSeed           uint64
	PointerUpCenter     bool

	// Sessions
	SessionIdleSeconds     int
	IdleWorkerPollInterval int
	SessionInboxSize       int

	// Security
	JWTSecret              string
	SessionTokenTTLMinutes int
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	return &Config{
		// Environment
		Environment: getEnv("APP_ENV", "development"),

		// Database
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		MigrateOnStart: getEnvBool("MIGRATE_ON_START", false),

		// Redis
		RedisURL: getEnv("REDIS_URL", ""),

		// Server
		Port:        getEnv("APP_PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),

		// Simulation
		DefaultScene:        getEnv("DEFAULT_SCENE", "classic"),
		TickRateHz:          getEnvInt("TICK_RATE_HZ", 60),
		MaxBodiesPerSession: getEnvInt("MAX_BODIES_PER_SESSION", 64),
		SpawnSeed:           uint64(getEnvInt("SPAWN_SEED", 0)),
		PointerUpCenter:     getEnvBool("POINTER_UP_CENTER", true),

		// Sessions
		SessionIdleSeconds:     getEnvInt("SESSION_IDLE_SECONDS", 300),
		IdleWorkerPollInterval: getEnvInt("IDLE_WORKER_POLL_SECONDS", 10),
		SessionInboxSize:       getEnvInt("SESSION_INBOX_SIZE", 64),

		// Security
		JWTSecret:              getEnv("JWT_SECRET", "change-me-in-production"),
		SessionTokenTTLMinutes: getEnvInt("SESSION_TOKEN_TTL_MINUTES", 60),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
