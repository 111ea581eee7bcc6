package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config is the service configuration, sourced from the environment.
type Config struct {
	Addr          string
	Env           string
	DatabaseURL   string // empty selects the in-memory store
	ValkeyAddr    string // empty keeps checkpoints in the primary store
	JWTSecret     string
	AllowedOrigin string
	FeedPageSize  int
}

// LoadDotEnv loads .env files with priority: .env.local > .env.
// godotenv.Load does not overwrite already-set env vars, so OS env always wins.
// Returns the files actually loaded.
func LoadDotEnv() []string {
	candidates := []string{".env.local", ".env"}
	var loaded []string
	for _, f := range candidates {
		if _, err := os.Stat(f); err == nil {
			loaded = append(loaded, f)
		}
	}
	if len(loaded) > 0 {
		_ = godotenv.Load(loaded...)
	}
	return loaded
}

// Load reads the configuration from .env files and the environment.
func Load() *Config {
	LoadDotEnv()
	return &Config{
		Addr:          getenv("ADDR", ":8080"),
		Env:           getenv("APP_ENV", "development"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		ValkeyAddr:    os.Getenv("VALKEY_ADDR"),
		JWTSecret:     getenv("JWT_SECRET", "dev-secret-change-me"),
		AllowedOrigin: getenv("ALLOWED_ORIGIN", "http://127.0.0.1:5173"),
		FeedPageSize:  getint("FEED_PAGE_SIZE", 10),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getint(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
