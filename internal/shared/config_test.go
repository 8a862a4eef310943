package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./albumsync.db" {
			t.Errorf("expected database path ./albumsync.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 3000 {
			t.Errorf("expected server port 3000, got %d", config.Server.Port)
		}

		if config.Credentials.YouTube.ProxyURL != "http://127.0.0.1:8080" {
			t.Errorf("expected youtube proxy URL http://127.0.0.1:8080, got %s", config.Credentials.YouTube.ProxyURL)
		}

		if config.Sync.TrackInterval != 2*time.Second {
			t.Errorf("expected track interval 2s, got %v", config.Sync.TrackInterval)
		}

		if config.Sync.PollInterval != 1500*time.Millisecond {
			t.Errorf("expected poll interval 1.5s, got %v", config.Sync.PollInterval)
		}

		if config.Sync.PollTimeout != 30*time.Second {
			t.Errorf("expected poll timeout 30s, got %v", config.Sync.PollTimeout)
		}

		if config.Sync.StallTimeout != 10*time.Second {
			t.Errorf("expected stall timeout 10s, got %v", config.Sync.StallTimeout)
		}

		if config.Sync.BundleCoverage != 0.5 {
			t.Errorf("expected bundle coverage 0.5, got %v", config.Sync.BundleCoverage)
		}

		if !config.Sync.Fallback {
			t.Error("expected fallback to be enabled by default")
		}

		if err := config.Validate(); err != nil {
			t.Errorf("default config should validate: %v", err)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		if _, err := os.Stat(configPath); err != nil {
			t.Fatalf("config file should exist: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		defaultConfig := DefaultConfig()
		if config.Database.Path != defaultConfig.Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[database]
path = "/custom/path.db"

[server]
host = "0.0.0.0"
port = 8080

[credentials.debrid]
api_token = "secret-token"
base_url = "http://localhost:9999"

[sync]
track_interval = "500ms"
scheduler = "token_bucket"
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Database.Path != "/custom/path.db" {
			t.Errorf("expected database path /custom/path.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 8080 {
			t.Errorf("expected server port 8080, got %d", config.Server.Port)
		}

		if config.Credentials.Debrid.APIToken != "secret-token" {
			t.Errorf("expected debrid api token secret-token, got %s", config.Credentials.Debrid.APIToken)
		}

		if config.Sync.TrackInterval != 500*time.Millisecond {
			t.Errorf("expected track interval 500ms, got %v", config.Sync.TrackInterval)
		}

		if config.Sync.Scheduler != "token_bucket" {
			t.Errorf("expected token_bucket scheduler, got %s", config.Sync.Scheduler)
		}

		if config.Sync.PollTimeout != 30*time.Second {
			t.Errorf("unset values should keep defaults, got poll timeout %v", config.Sync.PollTimeout)
		}
	})

	t.Run("LoadConfig rejects invalid values", func(t *testing.T) {
		tt := []struct {
			name string
			body string
		}{
			{name: "negative interval", body: "[sync]\ntrack_interval = \"-1s\"\n"},
			{name: "coverage above one", body: "[sync]\nbundle_coverage = 1.5\n"},
			{name: "unknown scheduler", body: "[sync]\nscheduler = \"round_robin\"\n"},
			{name: "timeout below interval", body: "[sync]\npoll_timeout = \"1s\"\npoll_interval = \"2s\"\n"},
			{name: "unknown log level", body: "[log]\nlevel = \"verbose\"\n"},
		}

		for _, tc := range tt {
			t.Run(tc.name, func(t *testing.T) {
				configPath := filepath.Join(t.TempDir(), "config.toml")
				if err := os.WriteFile(configPath, []byte(tc.body), 0644); err != nil {
					t.Fatalf("failed to write test config: %v", err)
				}

				_, err := LoadConfig(configPath)
				if !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("expected ErrInvalidConfig, got %v", err)
				}
			})
		}
	})

	t.Run("LoadConfig missing file", func(t *testing.T) {
		if _, err := LoadConfig("/nonexistent/config.toml"); err == nil {
			t.Error("expected error for missing config file")
		}
	})
}
