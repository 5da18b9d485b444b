package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/aficcion/vinylbe/internal/logging"
)

// Config holds all application configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Discogs  DiscogsConfig  `yaml:"discogs"`
	LastFM   LastFMConfig   `yaml:"lastfm"`
	Resolver ResolverConfig `yaml:"resolver"`
	Logging  logging.Config `yaml:"logging"`
}

// DatabaseConfig holds SQLite settings.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// DiscogsConfig holds Discogs API credentials.
type DiscogsConfig struct {
	Key    string `yaml:"key"`
	Secret string `yaml:"secret"`
}

// LastFMConfig holds Last.fm API credentials and the account whose
// listening history feeds the scoring pipeline.
type LastFMConfig struct {
	APIKey   string `yaml:"api_key"`
	Username string `yaml:"username"`
}

// ResolverConfig holds artist resolution settings.
type ResolverConfig struct {
	CacheTTLDays int `yaml:"cache_ttl_days"`
	Workers      int `yaml:"workers"`
	TopN         int `yaml:"top_n"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path: "/data/vinylbe.db",
		},
		Resolver: ResolverConfig{
			CacheTTLDays: 7,
			Workers:      5,
			TopN:         3,
		},
		Logging: logging.Config{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads config from a YAML file (if it exists) and overrides with
// environment variables. Environment variables take precedence.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	cfg.loadFromEnv()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) loadFromEnv() {
	if v := os.Getenv("VB_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("VB_DISCOGS_KEY"); v != "" {
		c.Discogs.Key = v
	}
	if v := os.Getenv("VB_DISCOGS_SECRET"); v != "" {
		c.Discogs.Secret = v
	}
	if v := os.Getenv("VB_LASTFM_API_KEY"); v != "" {
		c.LastFM.APIKey = v
	}
	if v := os.Getenv("VB_LASTFM_USERNAME"); v != "" {
		c.LastFM.Username = v
	}
	if v := os.Getenv("VB_CACHE_TTL_DAYS"); v != "" {
		if days, err := strconv.Atoi(v); err == nil {
			c.Resolver.CacheTTLDays = days
		}
	}
	if v := os.Getenv("VB_RESOLVER_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Resolver.Workers = n
		}
	}
	if v := os.Getenv("VB_RESOLVER_TOP_N"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Resolver.TopN = n
		}
	}
	if v := os.Getenv("VB_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("VB_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("VB_LOG_FILE"); v != "" {
		c.Logging.FilePath = v
	}
}

func (c *Config) validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}
	if c.Resolver.CacheTTLDays < 1 {
		return fmt.Errorf("cache TTL must be at least one day, got %d", c.Resolver.CacheTTLDays)
	}
	if c.Resolver.Workers < 1 {
		return fmt.Errorf("resolver workers must be positive, got %d", c.Resolver.Workers)
	}
	if c.Resolver.TopN < 1 {
		return fmt.Errorf("resolver top_n must be positive, got %d", c.Resolver.TopN)
	}
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	if !logging.ValidFormat(c.Logging.Format) {
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}
	return nil
}
