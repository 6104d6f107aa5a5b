// Package config handles application configuration from environment variables.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

// Config holds all application configuration.
type Config struct {
	Port     string `validate:"required,numeric"`
	Env      string `validate:"required"`
	LogLevel string `validate:"required,oneof=debug info warn error"`
	LogFile  string

	CacheBackend  string `validate:"oneof=memory redis"`
	RedisAddr     string `validate:"required_if=CacheBackend redis"`
	RedisPassword string
	RedisDB       int `validate:"gte=0"`

	GoogleMapsAPIKey string
	DirectionsMode   string `validate:"oneof=walking driving bicycling transit"`
	ValidAPIKeys     []string

	ServiceAreasFile string `validate:"required"`

	HTTPTimeout           time.Duration `validate:"gt=0"`
	LockTTL               time.Duration `validate:"gt=0"`
	ResultTTL             time.Duration `validate:"gt=0"`
	RetryBackoff          time.Duration `validate:"gt=0"`
	RetryAttempts         int           `validate:"gt=0"`
	DistantThresholdMiles float64       `validate:"gt=0"`
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is applied first when present; it never
// overrides variables already set in the environment.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:     getEnv("PORT", "8000"),
		Env:      getEnv("ENV", "development"),
		LogLevel: strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFile:  getEnv("LOG_FILE", ""),

		CacheBackend:  strings.ToLower(getEnv("CACHE_BACKEND", CacheBackendMemory)),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),

		GoogleMapsAPIKey: getEnv("GOOGLE_MAPS_API_KEY", ""),
		DirectionsMode:   getEnv("DIRECTIONS_MODE", "walking"),
		ValidAPIKeys:     getListEnv("VALID_API_KEYS"),

		ServiceAreasFile: getEnv("SERVICE_AREAS_FILE", "data/areas.yml"),

		HTTPTimeout:           getDurationEnv("HTTP_TIMEOUT_SECONDS", 10) * time.Second,
		LockTTL:               getDurationEnv("LOCK_TTL_SECONDS", 10) * time.Second,
		ResultTTL:             getDurationEnv("RESULT_TTL_SECONDS", 86400) * time.Second,
		RetryBackoff:          getDurationEnv("RETRY_BACKOFF_MS", 500) * time.Millisecond,
		RetryAttempts:         getIntEnv("RETRY_ATTEMPTS", 3),
		DistantThresholdMiles: getFloatEnv("DISTANT_THRESHOLD_MILES", 200),
	}
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// AuthEnabled reports whether requests must carry an API key.
func (c *Config) AuthEnabled() bool {
	return len(c.ValidAPIKeys) > 0
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultUnits int) time.Duration {
	return time.Duration(getIntEnv(key, defaultUnits))
}

// getListEnv splits a comma-separated value, dropping blanks.
func getListEnv(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
