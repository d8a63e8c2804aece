// Package config loads and stores CLI configuration in the XDG config dir.
// Only non-secret settings are kept here; secrets go to OS keychain.
package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"retsync/cli/internal/xdg"
)

// Config holds non-sensitive CLI settings.
type Config struct {
	LogLevel string       `json:"log_level"`
	Server   ServerConfig `json:"server"`
	Sync     SyncConfig   `json:"sync"`
}

// ServerConfig holds the RETS server profile. Credentials are not stored
// here; they live in the OS keychain.
type ServerConfig struct {
	LoginURL    string `json:"login_url"`
	AuthScheme  string `json:"auth_scheme"`
	RETSVersion string `json:"rets_version"`
	UserAgent   string `json:"user_agent"`
	// TimeoutSeconds bounds each HTTP request; 0 uses the transport default.
	TimeoutSeconds int `json:"timeout_seconds"`
}

// SyncConfig holds tuning for the sync command.
type SyncConfig struct {
	// PageSize is the Limit sent per Search page while syncing.
	PageSize int `json:"page_size"`
}

// path returns the path to the config file.
func path() (string, error) {
	dir, err := xdg.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads configuration; missing file returns defaults.
func Load() (Config, error) {
	var c Config
	p, err := path()
	if err != nil {
		return c, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Defaults(), nil
		}
		return c, err
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return c, err
	}
	if c.Sync.PageSize <= 0 {
		c.Sync.PageSize = Defaults().Sync.PageSize
	}
	return c, nil
}

// Defaults returns the configuration used before `retsync connect` has run.
// The server profile is intentionally empty - fail-fast until configured.
func Defaults() Config {
	return Config{
		LogLevel: "info",
		Server: ServerConfig{
			AuthScheme:  "digest",
			RETSVersion: "RETS/1.7.2",
			UserAgent:   "retsync/1.0",
		},
		Sync: SyncConfig{PageSize: 500},
	}
}

// Save writes configuration with 0600 permissions.
func Save(c Config) error {
	p, err := path()
	if err != nil {
		return err
	}
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p, b, 0o600)
}
