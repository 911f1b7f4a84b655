// Package config provides configuration for the session backend.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Store driver names.
const (
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// Config holds the server configuration.
type Config struct {
	// Server settings
	HTTPPort int

	// Storage
	StoreDriver  string
	DatabaseURL  string
	RedisURL     string
	StoreTimeout time.Duration

	// Policy
	PolicyPath string

	// Logging
	LogLevel  string
	LogFormat string // console or json
}

// fileConfig mirrors Config for the optional YAML file. Durations are
// millisecond integers to match the env variables.
type fileConfig struct {
	HTTPPort       int    `yaml:"http_port"`
	StoreDriver    string `yaml:"store_driver"`
	DatabaseURL    string `yaml:"database_url"`
	RedisURL       string `yaml:"redis_url"`
	StoreTimeoutMS int    `yaml:"store_timeout_ms"`
	PolicyPath     string `yaml:"policy_path"`
	LogLevel       string `yaml:"log_level"`
	LogFormat      string `yaml:"log_format"`
}

// Load builds the configuration from defaults, then the YAML file named by
// GRAPHDESK_CONFIG (if any), then environment variable overrides.
func Load() (*Config, error) {
	cfg := &Config{
		HTTPPort:     8000,
		StoreDriver:  DriverSQLite,
		DatabaseURL:  "file:graphdesk.db?cache=shared&mode=rwc",
		RedisURL:     "redis://localhost:6379/0",
		StoreTimeout: 5 * time.Second,
		LogLevel:     "info",
		LogFormat:    "console",
	}

	if path := os.Getenv("GRAPHDESK_CONFIG"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	cfg.HTTPPort = getEnvInt("HTTP_PORT", cfg.HTTPPort)
	cfg.StoreDriver = getEnv("STORE_DRIVER", cfg.StoreDriver)
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.RedisURL = getEnv("REDIS_URL", cfg.RedisURL)
	cfg.StoreTimeout = time.Duration(getEnvInt("STORE_TIMEOUT_MS", int(cfg.StoreTimeout/time.Millisecond))) * time.Millisecond
	cfg.PolicyPath = getEnv("POLICY_PATH", cfg.PolicyPath)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("LOG_FORMAT", cfg.LogFormat)

	if cfg.StoreDriver != DriverSQLite && cfg.StoreDriver != DriverRedis {
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	if fc.HTTPPort != 0 {
		c.HTTPPort = fc.HTTPPort
	}
	if fc.StoreDriver != "" {
		c.StoreDriver = fc.StoreDriver
	}
	if fc.DatabaseURL != "" {
		c.DatabaseURL = fc.DatabaseURL
	}
	if fc.RedisURL != "" {
		c.RedisURL = fc.RedisURL
	}
	if fc.StoreTimeoutMS != 0 {
		c.StoreTimeout = time.Duration(fc.StoreTimeoutMS) * time.Millisecond
	}
	if fc.PolicyPath != "" {
		c.PolicyPath = fc.PolicyPath
	}
	if fc.LogLevel != "" {
		c.LogLevel = fc.LogLevel
	}
	if fc.LogFormat != "" {
		c.LogFormat = fc.LogFormat
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}
