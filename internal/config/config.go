// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Pool    PoolConfig    `mapstructure:"pool"`
	Search  SearchConfig  `mapstructure:"search"`
	Extract ExtractConfig `mapstructure:"extract"`
	Enrich  EnrichConfig  `mapstructure:"enrich"`
	Batch   BatchConfig   `mapstructure:"batch"`
	DB      DBConfig      `mapstructure:"db"`
	PubSub  PubSubConfig  `mapstructure:"pubsub"`
	Archive ArchiveConfig `mapstructure:"archive"`
	Logging LoggingConfig `mapstructure:"logging"`
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

// PoolConfig sizes the browser session pool.
type PoolConfig struct {
	Capacity          int    `mapstructure:"capacity"`
	AcquireTimeoutSec int    `mapstructure:"acquire_timeout_seconds"`
	UserAgent         string `mapstructure:"user_agent"`
	Headless          bool   `mapstructure:"headless"`
}

// SearchConfig governs the search-collection phase.
type SearchConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	MaxAttempts    int    `mapstructure:"max_attempts"`
	SettleDelayMs  int    `mapstructure:"settle_delay_ms"`
	NavTimeoutSec  int    `mapstructure:"nav_timeout_seconds"`
	FeedSelector   string `mapstructure:"feed_selector"`
	ResultSelector string `mapstructure:"result_selector"`
}

// ExtractConfig governs entity page extraction.
type ExtractConfig struct {
	NavTimeoutSec int    `mapstructure:"nav_timeout_seconds"`
	SettleDelayMs int    `mapstructure:"settle_delay_ms"`
	DetailLevel   string `mapstructure:"detail_level"`
}

// EnrichConfig governs external website enrichment.
type EnrichConfig struct {
	TimeoutSec     int      `mapstructure:"timeout_seconds"`
	MaxEmails      int      `mapstructure:"max_emails"`
	DeniedDomains  []string `mapstructure:"denied_domains"`
	PerHostRPS     float64  `mapstructure:"per_host_rps"`
	UserAgent      string   `mapstructure:"user_agent"`
	DisableEnrich  bool     `mapstructure:"disabled"`
	MaxStructBlobs int      `mapstructure:"max_structured_blocks"`
}

// BatchConfig paces extraction batches. Each inter-batch pause lasts
// delay_ms plus a random jitter up to jitter_ms.
type BatchConfig struct {
	DelayMs  int `mapstructure:"delay_ms"`
	JitterMs int `mapstructure:"jitter_ms"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// PubSubConfig holds metadata for run-completion notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// ArchiveConfig sets the blob archive destination for rendered pages.
type ArchiveConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PLACESCOUT")
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
	v.SetDefault("pool.capacity", 4)
	v.SetDefault("pool.acquire_timeout_seconds", 60)
	v.SetDefault("pool.headless", true)
	v.SetDefault("pool.user_agent",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Safari/537.36")
	v.SetDefault("search.base_url", "https://www.google.com/maps/search/")
	v.SetDefault("search.max_attempts", 50)
	v.SetDefault("search.settle_delay_ms", 1800)
	v.SetDefault("search.nav_timeout_seconds", 60)
	v.SetDefault("search.feed_selector", `div[role="feed"]`)
	v.SetDefault("search.result_selector", `a[href*="/maps/place/"]`)
	v.SetDefault("extract.nav_timeout_seconds", 30)
	v.SetDefault("extract.settle_delay_ms", 2000)
	v.SetDefault("extract.detail_level", "full")
	v.SetDefault("enrich.timeout_seconds", 25)
	v.SetDefault("enrich.max_emails", 5)
	v.SetDefault("enrich.per_host_rps", 1.0)
	v.SetDefault("enrich.max_structured_blocks", 10)
	v.SetDefault("batch.delay_ms", 1200)
	v.SetDefault("batch.jitter_ms", 800)
	v.SetDefault("archive.prefix", "runs")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Pool.Capacity <= 0 {
		return fmt.Errorf("pool.capacity must be > 0")
	}
	if c.Search.MaxAttempts <= 0 {
		return fmt.Errorf("search.max_attempts must be > 0")
	}
	if c.Extract.NavTimeoutSec <= 0 {
		return fmt.Errorf("extract.nav_timeout_seconds must be > 0")
	}
	if c.Enrich.TimeoutSec <= 0 {
		return fmt.Errorf("enrich.timeout_seconds must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	if c.Archive.Enabled && c.Archive.GCSBucket == "" {
		return fmt.Errorf("archive.gcs_bucket must be set when archiving is enabled")
	}
	return nil
}

// AcquireTimeout converts the pool acquisition timeout to a duration.
func (c Config) AcquireTimeout() time.Duration {
	return time.Duration(c.Pool.AcquireTimeoutSec) * time.Second
}

// BatchDelay converts the inter-batch base delay to a duration.
func (c Config) BatchDelay() time.Duration {
	return time.Duration(c.Batch.DelayMs) * time.Millisecond
}

// BatchJitter converts the inter-batch jitter bound to a duration.
func (c Config) BatchJitter() time.Duration {
	return time.Duration(c.Batch.JitterMs) * time.Millisecond
}
