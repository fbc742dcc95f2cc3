// Package config loads and validates audit service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Audit    AuditConfig    `mapstructure:"audit"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Retry    RetryConfig    `mapstructure:"retry"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// AuditConfig governs discovery and the analysis pipeline.
type AuditConfig struct {
	Workers               int    `mapstructure:"workers"`
	QueueDepth            int    `mapstructure:"queue_depth"`
	UserAgent             string `mapstructure:"user_agent"`
	DefaultMaxPages       int    `mapstructure:"default_max_pages"`
	MaxPagesCap           int    `mapstructure:"max_pages_cap"`
	DefaultMaxConcurrency int    `mapstructure:"default_max_concurrency"`
	MaxConcurrencyCap     int    `mapstructure:"max_concurrency_cap"`
	CrawlDelayMs          int    `mapstructure:"crawl_delay_ms"`
	RespectRobots         bool   `mapstructure:"respect_robots"`
	JobTimeoutSeconds     int    `mapstructure:"job_timeout_seconds"`
}

// HTTPConfig configures outbound HTTP fetch behavior.
type HTTPConfig struct {
	TimeoutSeconds        int `mapstructure:"timeout_seconds"`
	ConnectTimeoutSeconds int `mapstructure:"connect_timeout_seconds"`
	ProbeTimeoutSeconds   int `mapstructure:"probe_timeout_seconds"`
	MaxBodyBytes          int `mapstructure:"max_body_bytes"`
}

// RetryConfig holds the backoff policies handed to the worker.
type RetryConfig struct {
	Discovery RetryPolicy `mapstructure:"discovery"`
	Page      RetryPolicy `mapstructure:"page"`
}

// RetryPolicy is one retry/backoff specification.
type RetryPolicy struct {
	MaxRetries       int     `mapstructure:"max_retries"`
	BackoffInitialMs int     `mapstructure:"backoff_initial_ms"`
	BackoffScaling   float64 `mapstructure:"backoff_scaling"`
}

// StorageConfig controls the optional filesystem report store. An
// empty ReportsDir keeps reports in memory unless a database DSN is
// configured.
type StorageConfig struct {
	ReportsDir string `mapstructure:"reports_dir"`
}

// DatabaseConfig controls the optional Postgres report store. An empty
// DSN keeps reports in memory.
type DatabaseConfig struct {
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("AUDITOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("audit.workers", 4)
	v.SetDefault("audit.queue_depth", 64)
	v.SetDefault("audit.user_agent", "siteaudit-bot/1.0")
	v.SetDefault("audit.default_max_pages", 25)
	v.SetDefault("audit.max_pages_cap", 100)
	v.SetDefault("audit.default_max_concurrency", 10)
	v.SetDefault("audit.max_concurrency_cap", 50)
	v.SetDefault("audit.crawl_delay_ms", 500)
	v.SetDefault("audit.respect_robots", true)
	v.SetDefault("audit.job_timeout_seconds", 600)
	v.SetDefault("http.timeout_seconds", 10)
	v.SetDefault("http.connect_timeout_seconds", 5)
	v.SetDefault("http.probe_timeout_seconds", 5)
	v.SetDefault("http.max_body_bytes", 10*1024*1024)
	v.SetDefault("retry.discovery.max_retries", 2)
	v.SetDefault("retry.discovery.backoff_initial_ms", 1000)
	v.SetDefault("retry.discovery.backoff_scaling", 1.5)
	v.SetDefault("retry.page.max_retries", 3)
	v.SetDefault("retry.page.backoff_initial_ms", 500)
	v.SetDefault("retry.page.backoff_scaling", 2.0)
	v.SetDefault("database.max_open_conns", 4)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Audit.Workers <= 0 {
		return fmt.Errorf("audit.workers must be > 0")
	}
	if c.Audit.QueueDepth <= 0 {
		return fmt.Errorf("audit.queue_depth must be > 0")
	}
	if c.Audit.MaxPagesCap < c.Audit.DefaultMaxPages {
		return fmt.Errorf("audit.max_pages_cap must be >= audit.default_max_pages")
	}
	if c.Audit.MaxConcurrencyCap < c.Audit.DefaultMaxConcurrency {
		return fmt.Errorf("audit.max_concurrency_cap must be >= audit.default_max_concurrency")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	return nil
}

// FetchTimeout returns the overall per-fetch budget.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// ConnectTimeout returns the dial budget for outbound requests.
func (c Config) ConnectTimeout() time.Duration {
	return time.Duration(c.HTTP.ConnectTimeoutSeconds) * time.Second
}

// ProbeTimeout returns the per-link-probe budget.
func (c Config) ProbeTimeout() time.Duration {
	return time.Duration(c.HTTP.ProbeTimeoutSeconds) * time.Second
}

// CrawlDelay returns the pacing delay between crawl fetches.
func (c Config) CrawlDelay() time.Duration {
	return time.Duration(c.Audit.CrawlDelayMs) * time.Millisecond
}

// JobTimeout returns the end-to-end budget for one audit job.
func (c Config) JobTimeout() time.Duration {
	return time.Duration(c.Audit.JobTimeoutSeconds) * time.Second
}
