package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Storage backends accepted by STORAGE_BACKEND.
const (
	StorageMemory = "memory"
	StorageRedis  = "redis"
	StorageSQLite = "sqlite"
)

type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevelRaw string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile     string `env:"LOG_FILE"`
	LogLevel    slog.Level

	LLMBaseURL string        `env:"LLM_BASE_URL" envDefault:"https://api.deepseek.com"`
	LLMModel   string        `env:"LLM_MODEL" envDefault:"deepseek-reasoner"`
	LLMAPIKey  string        `env:"LLM_API_KEY"`
	LLMTimeout time.Duration `env:"LLM_TIMEOUT" envDefault:"0"`

	StorageBackend string `env:"STORAGE_BACKEND" envDefault:"sqlite"`
	RedisURL       string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	SQLitePath     string `env:"SQLITE_PATH" envDefault:"pale-notes.db"`

	StoryData string `env:"STORY_DATA" envDefault:"data/story.yaml"`

	SummaryInterval   int `env:"SUMMARY_INTERVAL" envDefault:"5"`
	HistoryWindow     int `env:"HISTORY_WINDOW" envDefault:"10"`
	SummaryMinHistory int `env:"SUMMARY_MIN_HISTORY" envDefault:"10"`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.LogLevel = parseLogLevel(cfg.LogLevelRaw)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values env tags cannot express.
func (c *Config) Validate() error {
	switch c.StorageBackend {
	case StorageMemory, StorageRedis, StorageSQLite:
	default:
		return fmt.Errorf("unknown storage backend %q", c.StorageBackend)
	}
	if c.SummaryInterval <= 0 {
		return fmt.Errorf("SUMMARY_INTERVAL must be positive, got %d", c.SummaryInterval)
	}
	if c.HistoryWindow <= 0 {
		return fmt.Errorf("HISTORY_WINDOW must be positive, got %d", c.HistoryWindow)
	}
	if c.LLMTimeout < 0 {
		return fmt.Errorf("LLM_TIMEOUT must not be negative")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
