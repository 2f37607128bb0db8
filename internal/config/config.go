// Package config exposes strongly typed application configuration structs loaded from YAML.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// App captures process-wide runtime settings such as name, environment, metrics, and logging levels.
type App struct {
	Name        string `yaml:"name"`
	Env         string `yaml:"env"`
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
}

// Feed describes the trade stream connection and its reconnect policy.
type Feed struct {
	Provider           string   `yaml:"provider"`
	BaseURL            string   `yaml:"base_url"`
	Symbols            []string `yaml:"symbols"`
	HandshakeTimeoutMs int      `yaml:"handshake_timeout_ms"`
	ReadTimeoutMs      int      `yaml:"read_timeout_ms"`
	PingIntervalMs     int      `yaml:"ping_interval_ms"`
	BackoffInitialMs   int      `yaml:"backoff_initial_ms"`
	BackoffMaxMs       int      `yaml:"backoff_max_ms"`
	BackoffFactor      float64  `yaml:"backoff_factor"`
}

// Store selects the tick ledger backend.
type Store struct {
	Backend     string `yaml:"backend"`
	DSN         string `yaml:"dsn"`
	MaxConns    int    `yaml:"max_conns"`
	RedisAddr   string `yaml:"redis_addr"`
	RedisPrefix string `yaml:"redis_prefix"`
	JournalPath string `yaml:"journal_path"`

	// FailureBudget is the consecutive failed writes one symbol tolerates before ingestion stops.
	FailureBudget int `yaml:"failure_budget"`
}

// Analytics holds the knobs for each refresh cycle.
type Analytics struct {
	Interval     string `yaml:"interval"`
	ZScoreWindow int    `yaml:"zscore_window"`
	CorrWindow   int    `yaml:"corr_window"`
	MinPoints    int    `yaml:"min_points"`
	TickLimit    int    `yaml:"tick_limit"`
	RefreshMs    int    `yaml:"refresh_ms"`
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App       App       `yaml:"app"`
	Feed      Feed      `yaml:"feed"`
	Store     Store     `yaml:"store"`
	Analytics Analytics `yaml:"analytics"`
}

// overrides are read from the process environment after the YAML file.
type overrides struct {
	LogLevel    string   `env:"PAIRWATCH_LOG_LEVEL"`
	MetricsAddr string   `env:"PAIRWATCH_METRICS_ADDR"`
	Provider    string   `env:"PAIRWATCH_FEED_PROVIDER"`
	Symbols     []string `env:"PAIRWATCH_SYMBOLS" envSeparator:","`
	Backend     string   `env:"PAIRWATCH_STORE_BACKEND"`
	DatabaseURL string   `env:"PAIRWATCH_DATABASE_URL"`
	RedisAddr   string   `env:"PAIRWATCH_REDIS_ADDR"`
	JournalPath string   `env:"PAIRWATCH_JOURNAL_PATH"`
}

// Defaults returns a config usable without any file: the btcusdt/ethusdt pair on Binance futures, in-memory store.
func Defaults() *Config {
	return &Config{
		App: App{Name: "pairwatch", Env: "dev", MetricsAddr: ":9102", LogLevel: "info"},
		Feed: Feed{
			Provider:           "binance",
			BaseURL:            "wss://fstream.binance.com/ws",
			Symbols:            []string{"btcusdt", "ethusdt"},
			HandshakeTimeoutMs: 10000,
			ReadTimeoutMs:      30000,
			PingIntervalMs:     15000,
			BackoffInitialMs:   1000,
			BackoffMaxMs:       30000,
			BackoffFactor:      1.8,
		},
		Store: Store{Backend: "memory", MaxConns: 4, RedisPrefix: "pairwatch", FailureBudget: 20},
		Analytics: Analytics{
			Interval:     "1min",
			ZScoreWindow: 60,
			CorrWindow:   60,
			MinPoints:    20,
			TickLimit:    10000,
			RefreshMs:    5000,
		},
	}
}

// Load reads a YAML file from disk on top of Defaults.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	config := Defaults()
	if err := yaml.NewDecoder(file).Decode(config); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return config, nil
}

// LoadWithEnv loads path (if it exists), then an optional .env file, then PAIRWATCH_* overrides.
func LoadWithEnv(path, dotenv string) (*Config, error) {
	cfg := Defaults()
	if path != "" {
		loaded, err := Load(path)
		switch {
		case err == nil:
			cfg = loaded
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, err
		}
	}
	if dotenv != "" {
		if err := godotenv.Load(dotenv); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load dotenv: %w", err)
		}
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	var ov overrides
	if err := env.Parse(&ov); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	if ov.LogLevel != "" {
		cfg.App.LogLevel = ov.LogLevel
	}
	if ov.MetricsAddr != "" {
		cfg.App.MetricsAddr = ov.MetricsAddr
	}
	if ov.Provider != "" {
		cfg.Feed.Provider = ov.Provider
	}
	if len(ov.Symbols) > 0 {
		cfg.Feed.Symbols = ov.Symbols
	}
	if ov.Backend != "" {
		cfg.Store.Backend = ov.Backend
	}
	if ov.DatabaseURL != "" {
		cfg.Store.DSN = ov.DatabaseURL
	}
	if ov.RedisAddr != "" {
		cfg.Store.RedisAddr = ov.RedisAddr
	}
	if ov.JournalPath != "" {
		cfg.Store.JournalPath = ov.JournalPath
	}
	return nil
}

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Pair returns the two legs of the traded pair. The first leg is the dependent side of the hedge.
func (c *Config) Pair() (string, string, error) {
	if len(c.Feed.Symbols) != 2 {
		return "", "", fmt.Errorf("expected exactly 2 symbols, got %d", len(c.Feed.Symbols))
	}
	return c.Feed.Symbols[0], c.Feed.Symbols[1], nil
}

// Millis converts a millisecond knob to a duration, substituting fallback for non-positive values.
func Millis(ms int, fallback time.Duration) time.Duration {
	if ms <= 0 {
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}
