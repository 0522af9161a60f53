package config

import (
	"testing"

	"github.com/lucasvanbramer/talkpipeline/pkg/config"
	"github.com/stretchr/testify/require"
)

func TestLoadFromYAML(t *testing.T) {
	cfg, err := LoadFromYAML("../../config.example.yaml")
	if err != nil {
		t.Fatalf("failed to load YAML config: %v", err)
	}

	validateConfig(t, cfg, "YAML")
}

func TestLoadFromJSON(t *testing.T) {
	cfg, err := LoadFromJSON("../../config.example.json")
	if err != nil {
		t.Fatalf("failed to load JSON config: %v", err)
	}

	validateConfig(t, cfg, "JSON")
}

func TestLoadFromTOML(t *testing.T) {
	cfg, err := LoadFromTOML("../../config.example.toml")
	if err != nil {
		t.Fatalf("failed to load TOML config: %v", err)
	}

	validateConfig(t, cfg, "TOML")
}

func TestLoadFromFile_YAML(t *testing.T) {
	cfg, err := LoadFromFile("../../config.example.yaml")
	if err != nil {
		t.Fatalf("failed to auto-load YAML config: %v", err)
	}

	validateConfig(t, cfg, "auto-detected YAML")
}

func TestLoadFromFile_JSON(t *testing.T) {
	cfg, err := LoadFromFile("../../config.example.json")
	if err != nil {
		t.Fatalf("failed to auto-load JSON config: %v", err)
	}

	validateConfig(t, cfg, "auto-detected JSON")
}

func TestLoadFromFile_TOML(t *testing.T) {
	cfg, err := LoadFromFile("../../config.example.toml")
	if err != nil {
		t.Fatalf("failed to auto-load TOML config: %v", err)
	}

	validateConfig(t, cfg, "auto-detected TOML")
}

func TestLoadFromFile_UnsupportedFormat(t *testing.T) {
	_, err := LoadFromFile("config.txt")
	require.Contains(t, err.Error(), "unsupported config file format")
}

// validateConfig checks that the loaded config has expected values and
// that ApplyDefaults ran as part of the load.
func validateConfig(t *testing.T, cfg *config.Config, format string) {
	t.Helper()

	require.NotEmpty(t, cfg.Title, "[%s] title should not be empty", format)
	require.NotEmpty(t, cfg.MediaWiki.BaseURL, "[%s] mediawiki.base_url should not be empty", format)

	require.NotEmpty(t, cfg.MediaWiki.UserAgent, "[%s] user_agent should have default value applied", format)
	require.NotZero(t, cfg.MediaWiki.RequestTimeout.Duration, "[%s] request_timeout should have default value applied", format)

	require.NotEmpty(t, cfg.Ledger.DB.Path, "[%s] ledger.db.path should not be empty", format)
	require.NotEmpty(t, cfg.Ledger.DB.JournalMode, "[%s] ledger.db.journal_mode should have default value", format)
	require.NotEmpty(t, cfg.Ledger.DB.Synchronous, "[%s] ledger.db.synchronous should have default value", format)

	require.NotZero(t, cfg.Retry.MaxAttempts, "[%s] retry.max_attempts should have default value", format)
}

func TestConfigDefaults(t *testing.T) {
	cfg := &config.Config{
		Title: "Talk:Example",
		MediaWiki: config.MediaWikiConfig{
			BaseURL: "https://en.wikipedia.org/w/api.php",
		},
		Ledger: config.LedgerConfig{
			DB: config.DatabaseConfig{Path: "./ledger.db"},
		},
	}

	cfg.ApplyDefaults()

	if cfg.Retry.MaxAttempts != 5 {
		t.Errorf("expected default retry.max_attempts=5, got %d", cfg.Retry.MaxAttempts)
	}

	if cfg.Retry.BackoffMultiplier != 2.0 {
		t.Errorf("expected default retry.backoff_multiplier=2.0, got %f", cfg.Retry.BackoffMultiplier)
	}

	if cfg.Ledger.DB.JournalMode != "WAL" {
		t.Errorf("expected default journal_mode=WAL, got %s", cfg.Ledger.DB.JournalMode)
	}

	if cfg.Ledger.DB.Synchronous != "NORMAL" {
		t.Errorf("expected default synchronous=NORMAL, got %s", cfg.Ledger.DB.Synchronous)
	}

	if cfg.Ledger.DB.BusyTimeout != 5000 {
		t.Errorf("expected default busy_timeout=5000, got %d", cfg.Ledger.DB.BusyTimeout)
	}

	if cfg.Metrics.Addr != ":9090" {
		t.Errorf("expected default metrics.addr=:9090, got %s", cfg.Metrics.Addr)
	}

	if cfg.CacheFolder != "./cache" {
		t.Errorf("expected default cache_folder=./cache, got %s", cfg.CacheFolder)
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.Config
		wantErr bool
	}{
		{
			name: "valid config",
			cfg: &config.Config{
				Title:     "Talk:Example",
				MediaWiki: config.MediaWikiConfig{BaseURL: "https://en.wikipedia.org/w/api.php"},
				Ledger:    config.LedgerConfig{DB: config.DatabaseConfig{Path: "./ledger.db"}},
			},
			wantErr: false,
		},
		{
			name: "missing title",
			cfg: &config.Config{
				MediaWiki: config.MediaWikiConfig{BaseURL: "https://en.wikipedia.org/w/api.php"},
				Ledger:    config.LedgerConfig{DB: config.DatabaseConfig{Path: "./ledger.db"}},
			},
			wantErr: true,
		},
		{
			name: "missing base_url",
			cfg: &config.Config{
				Title:  "Talk:Example",
				Ledger: config.LedgerConfig{DB: config.DatabaseConfig{Path: "./ledger.db"}},
			},
			wantErr: true,
		},
		{
			name: "missing ledger path",
			cfg: &config.Config{
				Title:     "Talk:Example",
				MediaWiki: config.MediaWikiConfig{BaseURL: "https://en.wikipedia.org/w/api.php"},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.ApplyDefaults()
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
