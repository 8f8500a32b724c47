package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config captures everything main needs to wire the process. Values come
// from the environment with development defaults; a .env file is honored
// when present.
type Config struct {
	Addr          string
	DatabaseURL   string // empty means in-memory stores
	RedisURL      string // empty means no settings cache
	JWTSigningKey string
	TokenTTL      time.Duration
	DevLog        bool

	AdminEmail    string
	AdminPassword string
}

// FromEnv builds the config from environment variables so main stays lean.
func FromEnv() Config {
	_ = godotenv.Load()

	return Config{
		Addr:          envOr("SUCI_ADDR", ":8080"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RedisURL:      os.Getenv("REDIS_URL"),
		JWTSigningKey: envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		TokenTTL:      durationOr("TOKEN_TTL", 24*time.Hour),
		DevLog:        os.Getenv("SUCI_DEV_LOG") == "true",
		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
	}
}

func envOr(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

func durationOr(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
