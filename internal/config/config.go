package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config contains all runtime settings for the live session service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	AllowAnyOrigin bool

	DatabaseURL string

	RoomsProvider string
	RoomsAPIURL   string
	RoomsAPIKey   string
	RoomExpiry    time.Duration

	LinkBaseURL string

	StateWriteTimeout time.Duration
	StateReadTimeout  time.Duration
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:         envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace: envOrDefault("APP_METRICS_NAMESPACE", "livesession"),
		AllowAnyOrigin:   false,
		DatabaseURL:      trimmedEnv("DATABASE_URL"),
		RoomsProvider:    envOrDefault("ROOMS_PROVIDER", "auto"),
		RoomsAPIURL:      envOrDefault("ROOMS_API_URL", "https://api.daily.co/v1"),
		RoomsAPIKey:      trimmedEnv("ROOMS_API_KEY"),
		LinkBaseURL:      envOrDefault("APP_LINK_BASE_URL", "https://app.mindhaven.io/join"),
		// Rooms are provisioned for the scheduled start plus this window.
		RoomExpiry:        2 * time.Hour,
		ShutdownTimeout:   15 * time.Second,
		StateWriteTimeout: 10 * time.Second,
		StateReadTimeout:  120 * time.Second,
	}
	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.RoomExpiry, err = durationFromEnv("ROOMS_EXPIRY", cfg.RoomExpiry)
	if err != nil {
		return Config{}, err
	}
	cfg.StateWriteTimeout, err = durationFromEnv("APP_STATE_WRITE_TIMEOUT", cfg.StateWriteTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.StateReadTimeout, err = durationFromEnv("APP_STATE_READ_TIMEOUT", cfg.StateReadTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}

	if cfg.RoomExpiry < 10*time.Minute {
		return Config{}, fmt.Errorf("ROOMS_EXPIRY must be at least 10m")
	}
	if cfg.StateWriteTimeout <= 0 {
		return Config{}, fmt.Errorf("APP_STATE_WRITE_TIMEOUT must be positive")
	}
	if cfg.StateReadTimeout <= 0 {
		return Config{}, fmt.Errorf("APP_STATE_READ_TIMEOUT must be positive")
	}
	switch strings.ToLower(strings.TrimSpace(cfg.RoomsProvider)) {
	case "auto", "http", "mock":
	default:
		return Config{}, fmt.Errorf("ROOMS_PROVIDER must be one of auto, http, mock")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func trimmedEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(trimmedEnv(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
