// Package config loads the marketplace configuration from YAML.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Redis  RedisConfig  `yaml:"redis"`
	Lock   LockConfig   `yaml:"lock"`
	Market MarketConfig `yaml:"market"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type LockConfig struct {
	TTL        Duration `yaml:"ttl"`
	MaxRetries int      `yaml:"max_retries"`
	BaseDelay  Duration `yaml:"base_delay"`
	MaxDelay   Duration `yaml:"max_delay"`
	Jitter     Duration `yaml:"jitter"`
}

// Duration lets YAML carry durations in "10s" notation.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

type MarketConfig struct {
	// MinDividendRate and MaxDividendRate are the inclusive percent
	// bounds a listing's dividend rate is clamped to.
	MinDividendRate int `yaml:"min_dividend_rate"`
	MaxDividendRate int `yaml:"max_dividend_rate"`
	// ResaleFeeRate is the percent of a resale price destroyed as fee.
	ResaleFeeRate int `yaml:"resale_fee_rate"`
	// DividendAttempts bounds how often a dividend distribution restarts
	// when its holder set changes between snapshot and lock.
	DividendAttempts int `yaml:"dividend_attempts"`
	// IndexPath is where the market index blob is persisted.
	IndexPath string `yaml:"index_path"`
}

// Load reads the config at path, applying defaults first. An empty path
// yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("market.yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("market.yaml: %w", err)
	}
	return cfg, nil
}

// Default returns the production defaults.
func Default() Config {
	return Config{
		Redis: RedisConfig{Addr: "127.0.0.1:6379"},
		Lock: LockConfig{
			TTL:        Duration(10 * time.Second),
			MaxRetries: 5,
			BaseDelay:  Duration(50 * time.Millisecond),
			MaxDelay:   Duration(800 * time.Millisecond),
			Jitter:     Duration(25 * time.Millisecond),
		},
		Market: MarketConfig{
			MinDividendRate:  0,
			MaxDividendRate:  80,
			ResaleFeeRate:    5,
			DividendAttempts: 3,
			IndexPath:        "market-index.json",
		},
	}
}

func (c Config) Validate() error {
	if c.Lock.TTL <= 0 {
		return fmt.Errorf("lock.ttl must be positive")
	}
	if c.Lock.MaxRetries < 0 {
		return fmt.Errorf("lock.max_retries must not be negative")
	}
	if c.Market.MinDividendRate < 0 || c.Market.MaxDividendRate > 100 ||
		c.Market.MinDividendRate > c.Market.MaxDividendRate {
		return fmt.Errorf("market dividend rate bounds invalid: [%d, %d]",
			c.Market.MinDividendRate, c.Market.MaxDividendRate)
	}
	if c.Market.ResaleFeeRate < 0 || c.Market.ResaleFeeRate > 100 {
		return fmt.Errorf("market.resale_fee_rate out of range: %d", c.Market.ResaleFeeRate)
	}
	if c.Market.DividendAttempts < 1 {
		return fmt.Errorf("market.dividend_attempts must be at least 1")
	}
	if strings.TrimSpace(c.Market.IndexPath) == "" {
		return fmt.Errorf("market.index_path must not be empty")
	}
	return nil
}
