// Package config loads service settings from a YAML file and the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Session  SessionConfig  `yaml:"session"`
	Database DatabaseConfig `yaml:"database"`
	Queue    QueueConfig    `yaml:"queue"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Port                string   `yaml:"port"`
	ReadTimeoutSeconds  int      `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds int      `yaml:"write_timeout_seconds"`
	AllowedOrigins      []string `yaml:"allowed_origins"`
}

type AnalysisConfig struct {
	DelayMS int `yaml:"delay_ms"`
}

type SessionConfig struct {
	TTLMinutes int `yaml:"ttl_minutes"`
}

// DatabaseConfig selects the comparison archive; an empty Driver disables it
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // "sqlite" or "postgres"
	DSN    string `yaml:"dsn"`
}

// QueueConfig enables background jobs when RedisAddr is set
type QueueConfig struct {
	RedisAddr   string `yaml:"redis_addr"`
	Concurrency int    `yaml:"concurrency"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Port:                "8080",
			ReadTimeoutSeconds:  30,
			WriteTimeoutSeconds: 60,
			AllowedOrigins:      []string{"*"},
		},
		Analysis: AnalysisConfig{
			DelayMS: 2000,
		},
		Session: SessionConfig{
			TTLMinutes: 30,
		},
		Queue: QueueConfig{
			Concurrency: 5,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads a YAML config file over defaults and then applies environment
// overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			slog.Info("no config file found, using defaults", "path", path)
		case err != nil:
			return cfg, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// applyEnv overrides settings from environment variables
func (c *Config) applyEnv() error {
	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.Database.Driver = getEnv("DB_DRIVER", c.Database.Driver)
	c.Database.DSN = getEnv("DB_DSN", c.Database.DSN)
	c.Queue.RedisAddr = getEnv("REDIS_ADDR", c.Queue.RedisAddr)
	c.Logging.Level = getEnv("LOG_LEVEL", c.Logging.Level)

	var err error
	if c.Analysis.DelayMS, err = getEnvInt("ANALYSIS_DELAY_MS", c.Analysis.DelayMS); err != nil {
		return err
	}
	if c.Session.TTLMinutes, err = getEnvInt("SESSION_TTL_MINUTES", c.Session.TTLMinutes); err != nil {
		return err
	}
	return nil
}

// Validate rejects settings the service cannot run with
func (c Config) Validate() error {
	if c.Analysis.DelayMS < 0 {
		return fmt.Errorf("analysis delay must not be negative: %d", c.Analysis.DelayMS)
	}
	if c.Session.TTLMinutes <= 0 {
		return fmt.Errorf("session ttl must be positive: %d", c.Session.TTLMinutes)
	}
	switch c.Database.Driver {
	case "":
	case "sqlite", "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("database driver %q needs a dsn", c.Database.Driver)
		}
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	return nil
}

// AnalysisDelay returns the simulated analysis delay
func (c Config) AnalysisDelay() time.Duration {
	return time.Duration(c.Analysis.DelayMS) * time.Millisecond
}

// SessionTTL returns the idle session expiry
func (c Config) SessionTTL() time.Duration {
	return time.Duration(c.Session.TTLMinutes) * time.Minute
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
