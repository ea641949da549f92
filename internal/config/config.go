// Package config provides configuration for the IPTV player.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	// Required
	PlaylistURL string // http(s) URL or local file path

	// Optional extra EPG feeds, comma-separated; merged with feeds
	// advertised by the playlist itself.
	EPGURL string

	// Server
	BindAddr string
	Port     int
	LogLevel string

	// Persistence
	SettingsPath string

	// Data refresh
	RefreshInterval time.Duration
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BindAddr:        "0.0.0.0",
		Port:            8080,
		LogLevel:        "info",
		SettingsPath:    "settings.json",
		RefreshInterval: 30 * time.Minute,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.PlaylistURL == "" {
		return errors.New("--playlist is required")
	}

	if isHTTP(c.PlaylistURL) {
		if _, err := url.Parse(c.PlaylistURL); err != nil {
			return fmt.Errorf("invalid playlist URL: %w", err)
		}
	}

	for i, epgURL := range c.ExtraEPGURLs() {
		if _, err := url.Parse(epgURL); err != nil {
			return fmt.Errorf("invalid EPG URL at position %d: %w", i+1, err)
		}
	}

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}

	if c.RefreshInterval < time.Minute {
		return fmt.Errorf("refresh interval must be at least 1m, got %s", c.RefreshInterval)
	}

	return nil
}

// ListenAddr returns the full listen address.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.BindAddr, c.Port)
}

// ExtraEPGURLs returns the configured extra EPG feed URLs (comma-separated
// in EPGURL).
func (c *Config) ExtraEPGURLs() []string {
	if c.EPGURL == "" {
		return nil
	}

	urls := strings.Split(c.EPGURL, ",")
	result := make([]string, 0, len(urls))

	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u != "" {
			result = append(result, u)
		}
	}

	return result
}

func isHTTP(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
