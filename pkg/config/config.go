// Package config defines the talkpipeline configuration surface. Grounded
// on the teacher's pkg/config/config.go: one root Config struct with
// section structs tagged for every supported file format, paired
// ApplyDefaults/Validate methods, and a Duration wrapper for
// format-portable duration fields.
package config

import (
	"fmt"
	"time"

	"github.com/lucasvanbramer/talkpipeline/internal/common"
)

// Config is the complete configuration for a talkpipeline run.
type Config struct {
	// Title is the talk page to accumulate, e.g. "Talk:Epistemology".
	Title string `yaml:"title" json:"title" toml:"title"`

	// CacheFolder is where the intermediate document and revision log are persisted.
	CacheFolder string `yaml:"cache_folder" json:"cache_folder" toml:"cache_folder"`

	// Persist, if true, writes the intermediate document back to CacheFolder after each run.
	Persist bool `yaml:"persist" json:"persist" toml:"persist"`

	// Rough selects rough-mode corpus assembly (spec.md §4.9) over structured mode.
	Rough bool `yaml:"rough" json:"rough" toml:"rough"`

	MediaWiki MediaWikiConfig `yaml:"mediawiki" json:"mediawiki" toml:"mediawiki"`
	Retry     RetryConfig     `yaml:"retry" json:"retry" toml:"retry"`
	Metrics   MetricsConfig   `yaml:"metrics" json:"metrics" toml:"metrics"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging" toml:"logging"`
	Ledger    LedgerConfig    `yaml:"ledger" json:"ledger" toml:"ledger"`
}

// MediaWikiConfig configures the collaborator that talks to a MediaWiki instance.
type MediaWikiConfig struct {
	// BaseURL is the wiki's api.php endpoint, e.g. "https://en.wikipedia.org/w/api.php".
	BaseURL string `yaml:"base_url" json:"base_url" toml:"base_url"`

	// UserAgent is sent on every request, per MediaWiki API etiquette.
	UserAgent string `yaml:"user_agent" json:"user_agent" toml:"user_agent"`

	// RequestTimeout bounds a single HTTP round trip.
	RequestTimeout common.Duration `yaml:"request_timeout" json:"request_timeout" toml:"request_timeout"`

	// RevisionsPerPage is the page size used when listing revisions.
	RevisionsPerPage int `yaml:"revisions_per_page" json:"revisions_per_page" toml:"revisions_per_page"`
}

// ApplyDefaults fills in unset MediaWikiConfig fields.
func (m *MediaWikiConfig) ApplyDefaults() {
	if m.UserAgent == "" {
		m.UserAgent = "talkpipeline/1.0 (+https://github.com/lucasvanbramer/talkpipeline)"
	}
	if m.RequestTimeout.Duration == 0 {
		m.RequestTimeout = common.NewDuration(30 * time.Second)
	}
	if m.RevisionsPerPage == 0 {
		m.RevisionsPerPage = 50
	}
}

// RetryConfig configures retryWithBackoff for MediaWiki API calls.
type RetryConfig struct {
	MaxAttempts       int             `yaml:"max_attempts" json:"max_attempts" toml:"max_attempts"`
	InitialBackoff    common.Duration `yaml:"initial_backoff" json:"initial_backoff" toml:"initial_backoff"`
	MaxBackoff        common.Duration `yaml:"max_backoff" json:"max_backoff" toml:"max_backoff"`
	BackoffMultiplier float64         `yaml:"backoff_multiplier" json:"backoff_multiplier" toml:"backoff_multiplier"`
}

// ApplyDefaults fills in unset RetryConfig fields.
func (r *RetryConfig) ApplyDefaults() {
	if r.MaxAttempts == 0 {
		r.MaxAttempts = 5
	}
	if r.InitialBackoff.Duration == 0 {
		r.InitialBackoff = common.NewDuration(500 * time.Millisecond)
	}
	if r.MaxBackoff.Duration == 0 {
		r.MaxBackoff = common.NewDuration(30 * time.Second)
	}
	if r.BackoffMultiplier == 0 {
		r.BackoffMultiplier = 2.0
	}
}

// MetricsConfig configures the Prometheus exposition server.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled" toml:"enabled"`
	Addr    string `yaml:"addr" json:"addr" toml:"addr"`
}

// ApplyDefaults fills in unset MetricsConfig fields.
func (m *MetricsConfig) ApplyDefaults() {
	if m.Addr == "" {
		m.Addr = ":9090"
	}
}

// LoggingConfig configures component-scoped logging. Satisfies
// internal/logger.LoggingConfig.
type LoggingConfig struct {
	Default    string            `yaml:"default" json:"default" toml:"default"`
	Components map[string]string `yaml:"components" json:"components" toml:"components"`
	Dev        bool              `yaml:"dev" json:"dev" toml:"dev"`
}

// GetComponentLevel returns the configured level for component, or "" if unset.
func (l LoggingConfig) GetComponentLevel(component string) string {
	if l.Components == nil {
		return ""
	}
	return l.Components[component]
}

// GetDefaultLevel returns the fallback log level.
func (l LoggingConfig) GetDefaultLevel() string {
	if l.Default == "" {
		return "info"
	}
	return l.Default
}

// IsDevelopment reports whether development-mode (console, colorized) logging is requested.
func (l LoggingConfig) IsDevelopment() bool {
	return l.Dev
}

// LedgerConfig configures the SQLite mirror of the revision log.
type LedgerConfig struct {
	DB DatabaseConfig `yaml:"db" json:"db" toml:"db"`
}

// ApplyDefaults fills in unset LedgerConfig fields.
func (l *LedgerConfig) ApplyDefaults() {
	l.DB.ApplyDefaults()
}

// DatabaseConfig represents SQLite connection configuration, unchanged from
// the teacher's shape (it already generalizes past any one domain).
type DatabaseConfig struct {
	Path               string `yaml:"path" json:"path" toml:"path"`
	JournalMode        string `yaml:"journal_mode" json:"journal_mode" toml:"journal_mode"`
	Synchronous        string `yaml:"synchronous" json:"synchronous" toml:"synchronous"`
	BusyTimeout        int    `yaml:"busy_timeout" json:"busy_timeout" toml:"busy_timeout"`
	CacheSize          int    `yaml:"cache_size" json:"cache_size" toml:"cache_size"`
	MaxOpenConnections int    `yaml:"max_open_connections" json:"max_open_connections" toml:"max_open_connections"`
	MaxIdleConnections int    `yaml:"max_idle_connections" json:"max_idle_connections" toml:"max_idle_connections"`
	EnableForeignKeys  bool   `yaml:"enable_foreign_keys" json:"enable_foreign_keys" toml:"enable_foreign_keys"`
}

// ApplyDefaults fills in unset DatabaseConfig fields.
func (d *DatabaseConfig) ApplyDefaults() {
	if d.JournalMode == "" {
		d.JournalMode = "WAL"
	}
	if d.Synchronous == "" {
		d.Synchronous = "NORMAL"
	}
	if d.BusyTimeout == 0 {
		d.BusyTimeout = 5000
	}
	if d.CacheSize == 0 {
		d.CacheSize = 10000
	}
	if d.MaxOpenConnections == 0 {
		d.MaxOpenConnections = 25
	}
	if d.MaxIdleConnections == 0 {
		d.MaxIdleConnections = 5
	}
}

// ApplyDefaults fills in every unset field across the whole configuration tree.
func (c *Config) ApplyDefaults() {
	c.MediaWiki.ApplyDefaults()
	c.Retry.ApplyDefaults()
	c.Metrics.ApplyDefaults()
	c.Ledger.ApplyDefaults()
	if c.CacheFolder == "" {
		c.CacheFolder = "./cache"
	}
}

// Validate checks that a Config is usable, returning the first problem found.
func (c *Config) Validate() error {
	if c.Title == "" {
		return fmt.Errorf("title is required")
	}
	if c.MediaWiki.BaseURL == "" {
		return fmt.Errorf("mediawiki.base_url is required")
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1")
	}
	if c.Retry.BackoffMultiplier <= 1 {
		return fmt.Errorf("retry.backoff_multiplier must be greater than 1")
	}
	if c.Ledger.DB.Path == "" {
		return fmt.Errorf("ledger.db.path is required")
	}
	if jm := c.Ledger.DB.JournalMode; jm != "" && jm != "WAL" && jm != "DELETE" &&
		jm != "TRUNCATE" && jm != "PERSIST" && jm != "MEMORY" {
		return fmt.Errorf("ledger.db.journal_mode must be one of: WAL, DELETE, TRUNCATE, PERSIST, MEMORY")
	}
	if sy := c.Ledger.DB.Synchronous; sy != "" && sy != "FULL" && sy != "NORMAL" && sy != "OFF" {
		return fmt.Errorf("ledger.db.synchronous must be one of: FULL, NORMAL, OFF")
	}
	return nil
}
