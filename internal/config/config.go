package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the API server and worker
type Config struct {
	HTTP     HTTPConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Storage  StorageConfig
	Jobs     JobsConfig
	Logging  LoggingConfig
}

// HTTPConfig holds listener and CORS settings
type HTTPConfig struct {
	Addr        string
	CORSOrigins []string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL string // SQLite file path
}

// RedisConfig holds Redis configuration for the job queue
type RedisConfig struct {
	Address string // host:port
}

// AuthConfig holds token signing settings
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// StorageConfig holds object storage settings
type StorageConfig struct {
	Dir       string // root directory, one sub-directory per bucket
	PublicURL string // externally reachable base URL of the API
}

// JobsConfig holds background job settings
type JobsConfig struct {
	OrphanCleanupSchedule string // cron expression, empty disables the scheduler
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string
	Format string // json, console
}

// DefaultCORSOrigin is the local frontend dev server
const DefaultCORSOrigin = "http://localhost:5173"

// Load loads configuration from .env files and environment variables
func Load() (*Config, error) {
	// Missing .env files are fine
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	ttl, err := time.ParseDuration(getEnv("TOKEN_TTL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid TOKEN_TTL: %w", err)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("invalid TOKEN_TTL: must be positive")
	}

	addr := getEnv("HTTP_ADDR", ":8080")

	origins := splitList(getEnv("CORS_ORIGINS", DefaultCORSOrigin))
	if len(origins) == 0 {
		return nil, fmt.Errorf("invalid CORS_ORIGINS: no origins listed")
	}

	return &Config{
		HTTP: HTTPConfig{
			Addr:        addr,
			CORSOrigins: origins,
		},
		Database: DatabaseConfig{
			URL: getEnv("DATABASE_URL", "reelfolio.sqlite"),
		},
		Redis: RedisConfig{
			Address: getEnv("REDIS_ADDRESS", "localhost:6379"),
		},
		Auth: AuthConfig{
			// Empty means the server generates and persists one on first start
			JWTSecret: os.Getenv("JWT_SECRET"),
			TokenTTL:  ttl,
		},
		Storage: StorageConfig{
			Dir:       getEnv("STORAGE_DIR", "storage"),
			PublicURL: strings.TrimRight(getEnv("PUBLIC_URL", "http://localhost"+addr), "/"),
		},
		Jobs: JobsConfig{
			OrphanCleanupSchedule: getEnv("ORPHAN_CLEANUP_SCHEDULE", "0 3 * * *"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
