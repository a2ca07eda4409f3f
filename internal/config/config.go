package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all runtime settings. Durations are kept as strings in the
// file ("30s", "24h") and parsed through the accessor methods.
type Config struct {
	DataDir    string         `yaml:"data_dir"`
	Log        LogConfig      `yaml:"log"`
	Store      StoreConfig    `yaml:"store"`
	Assets     AssetsConfig   `yaml:"assets"`
	Server     ServerConfig   `yaml:"server"`
	Identity   IdentityConfig `yaml:"identity"`
	Publish    PublishConfig  `yaml:"publish"`
	Staging    StagingConfig  `yaml:"staging"`
	UpgradeURL string         `yaml:"upgrade_url"`
	LandingURL string         `yaml:"landing_url"`
}

type LogConfig struct {
	Level       string `yaml:"level"` // debug, info, warn, error
	Development bool   `yaml:"development"`
}

// StoreConfig selects the document-store backend.
type StoreConfig struct {
	Driver   string `yaml:"driver"` // sqlite, postgres, mysql, mongodb, redis
	DSN      string `yaml:"dsn"`    // full connection string, overrides host/port/...
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	// PasswordSecret names the secret-store key holding the password.
	PasswordSecret string `yaml:"password_secret"`
	SSLMode        string `yaml:"ssl_mode"`
	Collection     string `yaml:"collection"` // mongodb collection / redis key prefix
}

type AssetsConfig struct {
	Dir           string `yaml:"dir"`
	BaseURL       string `yaml:"base_url"`
	MaxImageBytes int64  `yaml:"max_image_bytes"`
}

type ServerConfig struct {
	Addr            string  `yaml:"addr"`
	PublicBaseURL   string  `yaml:"public_base_url"`
	RateLimit       float64 `yaml:"rate_limit"` // requests per second per client
	RateLimitTTL    string  `yaml:"rate_limit_ttl"`
	ShutdownTimeout string  `yaml:"shutdown_timeout"`
}

type IdentityConfig struct {
	UserID string `yaml:"user_id"`
	Email  string `yaml:"email"`
	Plan   string `yaml:"plan"`
}

type PublishConfig struct {
	Minify            bool `yaml:"minify"`
	UploadConcurrency int  `yaml:"upload_concurrency"`
}

type StagingConfig struct {
	SweepSchedule string `yaml:"sweep_schedule"`
	MaxAge        string `yaml:"max_age"`
}

var drivers = map[string]bool{
	"sqlite": true, "postgres": true, "mysql": true, "mongodb": true, "redis": true,
}

// DefaultDataDir returns ~/.local/share/linkbio.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".linkbio"
	}
	return filepath.Join(home, ".local", "share", "linkbio")
}

// DefaultPath returns ~/.config/linkbio/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "linkbio.yaml"
	}
	return filepath.Join(home, ".config", "linkbio", "config.yaml")
}

// Default returns a configuration with every field set to its default.
func Default() *Config {
	return &Config{
		DataDir: DefaultDataDir(),
		Log:     LogConfig{Level: "info"},
		Store:   StoreConfig{Driver: "sqlite", Collection: "documents"},
		Assets:  AssetsConfig{MaxImageBytes: 50 << 20},
		Server: ServerConfig{
			Addr:            ":8080",
			PublicBaseURL:   "http://localhost:8080",
			RateLimit:       10,
			RateLimitTTL:    "1h",
			ShutdownTimeout: "10s",
		},
		Identity:   IdentityConfig{UserID: "local", Plan: "free"},
		Publish:    PublishConfig{UploadConcurrency: 4},
		Staging:    StagingConfig{SweepSchedule: "@hourly", MaxAge: "24h"},
		UpgradeURL: "https://linkiwi.com.br/planos",
		LandingURL: "https://linkiwi.com.br",
	}
}

// Load reads path (a missing file yields defaults), applies LINKBIO_*
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg.applyEnvOverrides()
	cfg.resolve()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML, creating the directory.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	str("LINKBIO_DATA_DIR", &c.DataDir)
	str("LINKBIO_LOG_LEVEL", &c.Log.Level)
	str("LINKBIO_STORE_DRIVER", &c.Store.Driver)
	str("LINKBIO_STORE_DSN", &c.Store.DSN)
	str("LINKBIO_SERVER_ADDR", &c.Server.Addr)
	str("LINKBIO_PUBLIC_BASE_URL", &c.Server.PublicBaseURL)
	str("LINKBIO_USER_ID", &c.Identity.UserID)
	str("LINKBIO_USER_EMAIL", &c.Identity.Email)
	str("LINKBIO_PLAN", &c.Identity.Plan)
	if v := os.Getenv("LINKBIO_UPLOAD_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Publish.UploadConcurrency = n
		}
	}
	if v := os.Getenv("LINKBIO_MINIFY"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Publish.Minify = b
		}
	}
}

// resolve fills fields derived from others.
func (c *Config) resolve() {
	c.Server.PublicBaseURL = strings.TrimRight(c.Server.PublicBaseURL, "/")
	if c.Assets.Dir == "" {
		c.Assets.Dir = filepath.Join(c.DataDir, "assets")
	}
	if c.Assets.BaseURL == "" {
		c.Assets.BaseURL = c.Server.PublicBaseURL + "/assets"
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("config: data_dir is required")
	}
	if !drivers[c.Store.Driver] {
		return fmt.Errorf("config: unknown store driver %q", c.Store.Driver)
	}
	if c.Assets.MaxImageBytes <= 0 {
		return fmt.Errorf("config: assets.max_image_bytes must be positive")
	}
	if c.Publish.UploadConcurrency < 1 {
		return fmt.Errorf("config: publish.upload_concurrency must be at least 1")
	}
	if c.Server.RateLimit <= 0 {
		return fmt.Errorf("config: server.rate_limit must be positive")
	}
	for name, v := range map[string]string{
		"server.rate_limit_ttl":   c.Server.RateLimitTTL,
		"server.shutdown_timeout": c.Server.ShutdownTimeout,
		"staging.max_age":         c.Staging.MaxAge,
	} {
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("config: %s: %w", name, err)
		}
	}
	return nil
}

// DBPath is the SQLite file used for documents, settings and approvals.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "linkbio.db")
}

// StagingDir holds local binaries waiting to be uploaded.
func (c *Config) StagingDir() string {
	return filepath.Join(c.DataDir, "staging")
}

func (s ServerConfig) RateLimitTTLDuration() time.Duration {
	return parseDuration(s.RateLimitTTL, time.Hour)
}

func (s ServerConfig) ShutdownTimeoutDuration() time.Duration {
	return parseDuration(s.ShutdownTimeout, 10*time.Second)
}

func (s StagingConfig) MaxAgeDuration() time.Duration {
	return parseDuration(s.MaxAge, 24*time.Hour)
}

func parseDuration(v string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
