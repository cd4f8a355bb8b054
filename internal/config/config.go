package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string
	RedisURL    string
	LogLevel    string
	LogFormat   string

	// Overlay behavior, read on every refresh.
	ClusterEnabled  bool
	ClusterRadius   float64
	ReframeOnUpdate bool

	MaxClientsPerMap int
	WatchInterval    time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", ""),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "text"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}

	var err error
	if cfg.ClusterEnabled, err = getBool("CLUSTER_ENABLED", false); err != nil {
		return nil, err
	}
	if cfg.ReframeOnUpdate, err = getBool("REFRAME_ON_UPDATE", true); err != nil {
		return nil, err
	}

	if cfg.ClusterRadius, err = getFloat("CLUSTER_RADIUS", 0.01); err != nil {
		return nil, err
	}
	if cfg.ClusterRadius <= 0 {
		return nil, fmt.Errorf("CLUSTER_RADIUS must be positive, got %g", cfg.ClusterRadius)
	}

	if cfg.MaxClientsPerMap, err = getInt("MAX_CLIENTS_PER_MAP", 50); err != nil {
		return nil, err
	}
	if cfg.MaxClientsPerMap < 1 {
		return nil, fmt.Errorf("MAX_CLIENTS_PER_MAP must be at least 1, got %d", cfg.MaxClientsPerMap)
	}

	watchMs, err := getInt("WATCH_INTERVAL_MS", 2000)
	if err != nil {
		return nil, err
	}
	if watchMs < 100 {
		return nil, fmt.Errorf("WATCH_INTERVAL_MS must be at least 100, got %d", watchMs)
	}
	cfg.WatchInterval = time.Duration(watchMs) * time.Millisecond

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean, got %q", key, raw)
	}
	return value, nil
}

func getInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, raw)
	}
	return value, nil
}

func getFloat(key string, defaultValue float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number, got %q", key, raw)
	}
	return value, nil
}
