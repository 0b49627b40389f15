package infra

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Feed modes.
const (
	FeedModeLive      = "live"
	FeedModeSynthetic = "synthetic"
)

// Config holds the full application configuration, loaded from YAML and then
// overridden by environment variables.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Feed struct {
		Mode                string   `yaml:"mode"` // live | synthetic
		WSURL               string   `yaml:"ws_url"`
		RestURL             string   `yaml:"rest_url"`
		Symbols             []string `yaml:"symbols"`
		MaxReconnects       int      `yaml:"max_reconnects"`
		SyntheticIntervalMS int      `yaml:"synthetic_interval_ms"`
	} `yaml:"feed"`

	Trading struct {
		InitialBalance    float64 `yaml:"initial_balance"` // quote currency units
		FeeBps            int64   `yaml:"fee_bps"`
		SlippageBps       int64   `yaml:"slippage_bps"`
		RevalueIntervalMS int     `yaml:"revalue_interval_ms"`
		Seed              int64   `yaml:"seed"` // 0 = time-seeded noise
	} `yaml:"trading"`

	Journal struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"journal"`

	API struct {
		Enabled bool   `yaml:"enabled"`
		Addr    string `yaml:"addr"`
	} `yaml:"api"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// DefaultConfig returns the configuration used when no file is present:
// synthetic feed, paper defaults matching the simulator contract.
func DefaultConfig() *Config {
	var cfg Config
	cfg.App.Name = "papertrade"
	cfg.Feed.Mode = FeedModeSynthetic
	cfg.Feed.WSURL = "wss://stream.binance.com:9443/ws/!ticker@arr"
	cfg.Feed.RestURL = "https://api.binance.com/api/v3/ticker/24hr"
	cfg.Feed.Symbols = []string{"BTCUSDT", "ETHUSDT"}
	cfg.Feed.MaxReconnects = 10
	cfg.Feed.SyntheticIntervalMS = 1000
	cfg.Trading.InitialBalance = 100_000
	cfg.Trading.FeeBps = 10
	cfg.Trading.SlippageBps = 10
	cfg.Trading.RevalueIntervalMS = 1000
	cfg.Journal.Path = "papertrade.db"
	cfg.API.Enabled = true
	cfg.API.Addr = ":8880"
	cfg.Logging.Level = "info"
	return &cfg
}

// LoadConfig reads and validates the configuration file. Missing fields fall
// back to defaults so a partial file is fine.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	overrideWithEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks configuration validity before anything starts.
func (c *Config) Validate() error {
	switch c.Feed.Mode {
	case FeedModeLive, FeedModeSynthetic:
	default:
		return fmt.Errorf("unknown feed mode %q", c.Feed.Mode)
	}
	if c.Feed.Mode == FeedModeLive {
		if !strings.HasPrefix(c.Feed.WSURL, "ws://") && !strings.HasPrefix(c.Feed.WSURL, "wss://") {
			return fmt.Errorf("invalid feed WS URL: %s", c.Feed.WSURL)
		}
	}
	if len(c.Feed.Symbols) == 0 {
		return fmt.Errorf("at least one feed symbol is required")
	}
	if c.Feed.SyntheticIntervalMS <= 0 {
		return fmt.Errorf("synthetic interval must be positive")
	}
	if c.Feed.MaxReconnects < 0 {
		return fmt.Errorf("max reconnects must not be negative")
	}
	if c.Trading.InitialBalance <= 0 {
		return fmt.Errorf("initial balance must be positive")
	}
	if c.Trading.FeeBps < 0 || c.Trading.SlippageBps < 0 {
		return fmt.Errorf("fee and slippage must not be negative")
	}
	if c.Trading.RevalueIntervalMS <= 0 {
		return fmt.Errorf("revalue interval must be positive")
	}
	if c.Journal.Enabled && c.Journal.Path == "" {
		return fmt.Errorf("journal enabled but no path configured")
	}
	return nil
}

// overrideWithEnv lets deployment environments flip the operational knobs
// without editing the config file.
func overrideWithEnv(cfg *Config) {
	if mode := os.Getenv("PAPERTRADE_FEED_MODE"); mode != "" {
		cfg.Feed.Mode = mode
	}
	if url := os.Getenv("PAPERTRADE_FEED_WS_URL"); url != "" {
		cfg.Feed.WSURL = url
	}
	if url := os.Getenv("PAPERTRADE_FEED_REST_URL"); url != "" {
		cfg.Feed.RestURL = url
	}
	if addr := os.Getenv("PAPERTRADE_API_ADDR"); addr != "" {
		cfg.API.Addr = addr
	}
	if level := os.Getenv("PAPERTRADE_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
}
