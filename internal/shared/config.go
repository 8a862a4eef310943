package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Sync        SyncConfig        `toml:"sync"`
	Log         LogConfig         `toml:"log"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Debrid  DebridConfig  `toml:"debrid"`
	YouTube YouTubeConfig `toml:"youtube"`
	Spotify SpotifyConfig `toml:"spotify"`
}

// DebridConfig contains the primary content-fetch provider endpoint and the per-user API token.
type DebridConfig struct {
	APIToken string `toml:"api_token"`
	BaseURL  string `toml:"base_url"`
}

// YouTubeConfig contains the YouTube Music search proxy used for fallback references.
type YouTubeConfig struct {
	ProxyURL string `toml:"proxy_url"`
}

// SpotifyConfig contains Spotify API credentials used for catalog lookups.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// SyncConfig tunes the album sync engine.
type SyncConfig struct {
	TrackInterval  time.Duration `toml:"track_interval"`  // delay between consecutive tracks
	PollInterval   time.Duration `toml:"poll_interval"`   // interval between select-and-resolve probes
	PollTimeout    time.Duration `toml:"poll_timeout"`    // absolute bound on one track's poll
	StallTimeout   time.Duration `toml:"stall_timeout"`   // zero-progress window before a poll is abandoned
	BundleCoverage float64       `toml:"bundle_coverage"` // fraction of tracks a bundle must cover to be preferred
	Scheduler      string        `toml:"scheduler"`       // "fixed" or "token_bucket"
	Fallback       bool          `toml:"fallback"`        // enables the secondary provider tier
}

// LogConfig controls logger verbosity.
type LogConfig struct {
	Level string `toml:"level"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep their defaults from the embedded example config.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate reports configuration values the sync engine cannot work with.
func (c *Config) Validate() error {
	s := c.Sync
	switch {
	case s.TrackInterval < 0:
		return fmt.Errorf("%w: sync.track_interval must not be negative", ErrInvalidConfig)
	case s.PollInterval <= 0:
		return fmt.Errorf("%w: sync.poll_interval must be positive", ErrInvalidConfig)
	case s.PollTimeout < s.PollInterval:
		return fmt.Errorf("%w: sync.poll_timeout must be at least sync.poll_interval", ErrInvalidConfig)
	case s.StallTimeout <= 0:
		return fmt.Errorf("%w: sync.stall_timeout must be positive", ErrInvalidConfig)
	case s.BundleCoverage < 0 || s.BundleCoverage > 1:
		return fmt.Errorf("%w: sync.bundle_coverage must be within [0, 1]", ErrInvalidConfig)
	}

	switch s.Scheduler {
	case "", "fixed", "token_bucket":
	default:
		return fmt.Errorf("%w: unknown sync.scheduler %q", ErrInvalidConfig, s.Scheduler)
	}

	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}

	return nil
}
