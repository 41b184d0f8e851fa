// Package config loads and validates environment variables at startup.
// Fail-fast: if a required variable is missing, the process exits with an error.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration for the funnel service.
type Config struct {
	Port        string
	DatabaseURL string
	RedisURL    string

	// ContentPath points to the conversation content YAML; empty means the
	// embedded default.
	ContentPath string
	// SkipIntro starts new leads directly at CITY_SELECTION.
	SkipIntro bool

	// MaxReprompts is the consecutive re-prompt cap before HUMAN_HANDOFF.
	MaxReprompts int
	// CASMaxRetries bounds the read-decide-write loop on version conflicts.
	CASMaxRetries int
	// DedupeTTLSeconds must exceed the transport's redelivery window.
	DedupeTTLSeconds int
	// ContextTTLSeconds bounds the fast-tier copy of a lead context.
	ContextTTLSeconds int
	// StoreTimeoutMillis bounds every external store call.
	StoreTimeoutMillis int
	// VacancyRefreshMinutes is the vacancy snapshot refresh interval.
	VacancyRefreshMinutes int
}

// Load reads environment variables (optionally from a .env file) and returns
// a validated Config.
func Load() (*Config, error) {
	_ = godotenv.Load() // .env is optional

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: dbURL,
		RedisURL:    redisURL,
		ContentPath: os.Getenv("CONTENT_PATH"),
		SkipIntro:   os.Getenv("SKIP_INTRO") == "true",
	}

	var err error
	if cfg.MaxReprompts, err = getEnvInt("MAX_REPROMPTS", 3); err != nil {
		return nil, err
	}
	if cfg.CASMaxRetries, err = getEnvInt("CAS_MAX_RETRIES", 3); err != nil {
		return nil, err
	}
	if cfg.DedupeTTLSeconds, err = getEnvInt("DEDUPE_TTL_SECONDS", 300); err != nil {
		return nil, err
	}
	if cfg.ContextTTLSeconds, err = getEnvInt("CONTEXT_TTL_SECONDS", 86400); err != nil {
		return nil, err
	}
	if cfg.StoreTimeoutMillis, err = getEnvInt("STORE_TIMEOUT_MS", 2000); err != nil {
		return nil, err
	}
	if cfg.VacancyRefreshMinutes, err = getEnvInt("VACANCY_REFRESH_MINUTES", 5); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, s)
	}
	return v, nil
}
