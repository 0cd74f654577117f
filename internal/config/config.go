package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const defaultConfigPath = "config.yaml"

// Config holds all runtime settings of the consent-pdf service.
type Config struct {
	Server struct {
		Host    string `yaml:"host"`
		Port    string `yaml:"port"`
		Prefork bool   `yaml:"prefork"`
	} `yaml:"server"`

	Limits struct {
		MaxBodyBytes int `yaml:"max_body_bytes"`
		MaxPDFBytes  int `yaml:"max_pdf_bytes"`
	} `yaml:"limits"`

	Logger struct {
		File       string `yaml:"file"`
		Level      string `yaml:"level"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
		Compress   bool   `yaml:"compress"`
	} `yaml:"logger"`

	Cache struct {
		PDFCacheEnabled bool          `yaml:"pdf_cache_enabled"`
		PDFCacheTTL     time.Duration `yaml:"pdf_cache_ttl"`
		RedisHost       string        `yaml:"redis_host"`
		RateLimitDB     int           `yaml:"redis_rate_db"`
		PDFCacheDB      int           `yaml:"redis_pdf_db"`
	} `yaml:"cache"`

	RateLimiter struct {
		Interval          time.Duration `yaml:"interval"`
		UserLimit         int           `yaml:"user_limit"`
		EnableUserLimiter bool          `yaml:"enable_user_limiter"`
	} `yaml:"rate_limiter"`

	Auth struct {
		RequireAPIKey  bool           `yaml:"require_api_key"`
		ReloadInterval time.Duration  `yaml:"reload_interval"`
		Postgres       PostgresConfig `yaml:"postgres"`
	} `yaml:"auth"`

	Fonts struct {
		Candidates []string `yaml:"candidates"`
	} `yaml:"fonts"`
}

// PostgresConfig describes the database holding API tokens. Host may also be
// a full postgres:// URL.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

// Enabled reports whether a token database is configured.
func (p PostgresConfig) Enabled() bool {
	return p.Host != ""
}

// Default returns the configuration used when no file is present.
func Default() Config {
	var cfg Config
	cfg.Server.Port = ":8000"
	cfg.Limits.MaxBodyBytes = 64 * 1024
	cfg.Limits.MaxPDFBytes = 5 * 1024 * 1024
	cfg.Logger.Level = "info"
	cfg.Logger.MaxSizeMB = 10
	cfg.Logger.MaxBackups = 3
	cfg.Logger.MaxAgeDays = 7
	cfg.Cache.PDFCacheTTL = time.Minute
	cfg.Cache.RedisHost = "127.0.0.1:6379"
	cfg.Cache.RateLimitDB = 0
	cfg.Cache.PDFCacheDB = 1
	cfg.RateLimiter.Interval = time.Minute
	cfg.Auth.ReloadInterval = time.Minute
	return cfg
}

// Load reads the file named by CONFIG_PATH (or config.yaml). A missing default
// file yields Default(). It panics on unreadable or invalid configuration.
func Load() Config {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		if _, err := os.Stat(defaultConfigPath); errors.Is(err, fs.ErrNotExist) {
			cfg := Default()
			applyEnv(&cfg)
			mustValidate(cfg)
			return cfg
		}
		path = defaultConfigPath
	}
	return LoadFrom(path)
}

// LoadFrom reads the YAML file at path on top of Default() and applies
// environment overrides. It panics on any error.
func LoadFrom(path string) Config {
	raw, err := os.ReadFile(path)
	if err != nil {
		panic(fmt.Sprintf("config: read %s: %v", path, err))
	}

	cfg := Default()
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		panic(fmt.Sprintf("config: parse %s: %v", path, err))
	}
	applyEnv(&cfg)
	mustValidate(cfg)
	return cfg
}

func applyEnv(cfg *Config) {
	if port := os.Getenv("PORT"); port != "" {
		if !strings.HasPrefix(port, ":") {
			port = ":" + port
		}
		cfg.Server.Port = port
	}
}

func mustValidate(cfg Config) {
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if c.Server.Port == "" {
		return errors.New("server.port is empty")
	}
	if c.Limits.MaxBodyBytes <= 0 {
		return errors.New("limits.max_body_bytes must be positive")
	}
	if c.Limits.MaxPDFBytes <= 0 {
		return errors.New("limits.max_pdf_bytes must be positive")
	}
	if c.Cache.PDFCacheTTL < 0 {
		return errors.New("cache.pdf_cache_ttl must not be negative")
	}
	if c.RateLimiter.UserLimit < 0 {
		return errors.New("rate_limiter.user_limit must not be negative")
	}
	if c.RateLimiter.Interval <= 0 {
		return errors.New("rate_limiter.interval must be positive")
	}
	if c.Auth.Postgres.Enabled() && c.Auth.ReloadInterval <= 0 {
		return errors.New("auth.reload_interval must be positive")
	}
	return nil
}
