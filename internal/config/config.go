// Package config loads runtime settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/anvishah1/ForReal/internal/classifier"
	"github.com/anvishah1/ForReal/internal/handoff"
	"github.com/anvishah1/ForReal/internal/sessions"
)

// Environment variables read by Load.
const (
	EnvAddr              = "FORREAL_ADDR"
	EnvClassifierURL     = "CLASSIFIER_URL"
	EnvClassifierTimeout = "CLASSIFIER_TIMEOUT"
	EnvRedisAddr         = "REDIS_ADDR"
	EnvHandoffTTL        = "HANDOFF_TTL"
	EnvGameImagesDir     = "GAME_IMAGES_DIR"
	EnvMaxSessions       = "MAX_SESSIONS"
	EnvShutdownTimeout   = "SHUTDOWN_TIMEOUT"
)

// Config holds the settings of the ForReal app.
type Config struct {
	Addr              string
	ClassifierURL     string
	ClassifierTimeout time.Duration
	// RedisAddr selects the Redis handoff store; empty keeps results in memory.
	RedisAddr       string
	HandoffTTL      time.Duration
	GameImagesDir   string
	MaxSessions     int
	ShutdownTimeout time.Duration
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds the config from the process environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Addr:          getEnv(EnvAddr, ":8080"),
		ClassifierURL: getEnv(EnvClassifierURL, classifier.DefaultBaseURL),
		RedisAddr:     os.Getenv(EnvRedisAddr),
		GameImagesDir: os.Getenv(EnvGameImagesDir),
	}

	var err error
	if cfg.ClassifierTimeout, err = durationEnv(EnvClassifierTimeout, classifier.DefaultTimeout); err != nil {
		return nil, err
	}
	if cfg.HandoffTTL, err = durationEnv(EnvHandoffTTL, handoff.DefaultTTL); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = durationEnv(EnvShutdownTimeout, 15*time.Second); err != nil {
		return nil, err
	}
	if cfg.MaxSessions, err = intEnv(EnvMaxSessions, sessions.DefaultMaxSessions); err != nil {
		return nil, err
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return d, nil
}

func intEnv(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return n, nil
}
