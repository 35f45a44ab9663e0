package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Environment
	Env string // "development", "production", etc.

	// Server
	ServerAddr string
	BaseURL    string

	// Database
	DatabaseURL string

	// Cache
	RedisURL string        // empty disables the fit record cache
	CacheTTL time.Duration // TTL for cached fit records

	// API auth
	APIKey string // shared secret for /api routes; empty disables the check

	// Evaluator
	GeminiAPIKey     string
	GeminiModel      string
	EvaluatorTimeout time.Duration

	// External profile store
	ProfileStoreURL string

	// Engine
	BatchSize       int // universities per concurrent batch in compute-all
	FitCreditCost   int // credits charged per fit computation
	ImageCreditCost int // credits charged per infographic regeneration
	FreeCredits     int // starting balance for new accounts

	// Scoring band overrides (0 keeps the shipped defaults)
	SafetyBand int
	TargetBand int
	ReachBand  int

	// Catalog
	CatalogPath            string // JSON catalog file; empty keeps the embedded seed only
	CatalogRefreshInterval time.Duration

	// CORS
	CORSOrigins string // Comma-separated allowed origins

	// Logging
	LogJSON  bool
	LogDebug bool
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		Env:         getEnv("ENV", "development"),
		ServerAddr:  getEnv("SERVER_ADDR", ":3000"),
		BaseURL:     getEnv("BASE_URL", "http://localhost:3000"),
		DatabaseURL: getEnv("DATABASE_URL", "postgres://localhost:5432/unifit?sslmode=disable"),

		RedisURL: getEnv("REDIS_URL", ""),
		CacheTTL: getDuration("CACHE_TTL", 24*time.Hour),

		APIKey: getEnv("API_KEY", ""),

		GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),
		GeminiModel:      getEnv("GEMINI_MODEL", ""),
		EvaluatorTimeout: getDuration("EVALUATOR_TIMEOUT", 60*time.Second),

		ProfileStoreURL: getEnv("PROFILE_STORE_URL", "http://localhost:8080"),

		BatchSize:       getInt("BATCH_SIZE", 3),
		FitCreditCost:   getInt("FIT_CREDIT_COST", 1),
		ImageCreditCost: getInt("IMAGE_CREDIT_COST", 1),
		FreeCredits:     getInt("FREE_CREDITS", 5),

		SafetyBand: getInt("SAFETY_BAND", 0),
		TargetBand: getInt("TARGET_BAND", 0),
		ReachBand:  getInt("REACH_BAND", 0),

		CatalogPath:            getEnv("CATALOG_PATH", ""),
		CatalogRefreshInterval: getDuration("CATALOG_REFRESH_INTERVAL", 6*time.Hour),

		CORSOrigins: getEnv("CORS_ORIGINS", ""),

		LogJSON:  getEnv("LOG_JSON", "") != "",
		LogDebug: getEnv("LOG_DEBUG", "") != "",
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

// IsDev returns true if the environment is set to development.
func (c *Config) IsDev() bool {
	return c.Env == "development" || c.Env == "dev"
}
