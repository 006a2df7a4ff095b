package config

import (
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, key := range []string{
		EnvAddr, EnvClassifierURL, EnvClassifierTimeout, EnvRedisAddr,
		EnvHandoffTTL, EnvGameImagesDir, EnvMaxSessions, EnvShutdownTimeout,
	} {
		t.Setenv(key, "")
	}

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Fatalf("unexpected addr %q", cfg.Addr)
	}
	if cfg.ClassifierURL != "http://localhost:8000" {
		t.Fatalf("unexpected classifier url %q", cfg.ClassifierURL)
	}
	if cfg.ClassifierTimeout != 60*time.Second || cfg.HandoffTTL != 10*time.Minute || cfg.ShutdownTimeout != 15*time.Second {
		t.Fatalf("unexpected durations %+v", cfg)
	}
	if cfg.MaxSessions != 1024 || cfg.RedisAddr != "" || cfg.GameImagesDir != "" {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv(EnvAddr, ":9090")
	t.Setenv(EnvClassifierURL, "http://classifier:8000")
	t.Setenv(EnvClassifierTimeout, "5s")
	t.Setenv(EnvRedisAddr, "redis:6379")
	t.Setenv(EnvHandoffTTL, "1m")
	t.Setenv(EnvGameImagesDir, "/srv/game-images")
	t.Setenv(EnvMaxSessions, "10")
	t.Setenv(EnvShutdownTimeout, "3s")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Config{
		Addr:              ":9090",
		ClassifierURL:     "http://classifier:8000",
		ClassifierTimeout: 5 * time.Second,
		RedisAddr:         "redis:6379",
		HandoffTTL:        time.Minute,
		GameImagesDir:     "/srv/game-images",
		MaxSessions:       10,
		ShutdownTimeout:   3 * time.Second,
	}
	if *cfg != want {
		t.Fatalf("expected %+v, got %+v", want, *cfg)
	}
}

func TestFromEnvRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		EnvClassifierTimeout: "soon",
		EnvHandoffTTL:        "-1m",
		EnvShutdownTimeout:   "0s",
		EnvMaxSessions:       "many",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			if _, err := FromEnv(); err == nil {
				t.Fatalf("expected error for %s=%q", key, value)
			}
		})
	}
}
