// Package config loads the application configuration from TOML files
// and environment defaults.
package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Keys holds user-supplied API credentials. Gemini is carried for the
// artwork enhancement integration and not consumed by the search core.
type Keys struct {
	LastFM  string `koanf:"lastfm"  json:"lastfm"`
	Discogs string `koanf:"discogs" json:"discogs"`
	Gemini  string `koanf:"gemini"  json:"gemini"`
}

// Settings is the user-adjustable state consumed by the search layer:
// per-provider enablement and API keys. The search layer reads it as an
// injected snapshot and never writes it back.
type Settings struct {
	EnabledProviders map[string]bool `json:"enabledProviders"`
	APIKeys          Keys            `json:"apiKeys"`
}

type Config struct {
	// Providers maps provider ids to enablement overrides. Ids absent
	// from the map keep their built-in defaults.
	Providers map[string]bool `koanf:"providers"`

	Keys Keys `koanf:"keys"`

	LogLevel  string `koanf:"log_level"`  // zerolog level name (default: "info")
	LogFormat string `koanf:"log_format"` // "console" or "json"
}

func Load() (*Config, error) {
	// A .env in the working directory supplies environment defaults;
	// a missing file is fine.
	_ = godotenv.Load()

	k := koanf.New(".")

	// Try config files in order of priority (last wins)
	configPaths := getConfigPaths()

	for _, path := range configPaths {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, err
			}
		}
	}

	cfg := &Config{
		LogLevel:  "info",
		LogFormat: "console",
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	applyEnvFallbacks(cfg)

	return cfg, nil
}

func getConfigPaths() []string {
	paths := []string{}

	// 1. ~/.config/cratedigger/config.toml
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "cratedigger", "config.toml"))
	}

	// 2. ./config.toml (pwd, highest priority)
	paths = append(paths, "config.toml")

	return paths
}

func applyEnvFallbacks(cfg *Config) {
	if cfg.Keys.LastFM == "" {
		cfg.Keys.LastFM = os.Getenv("LASTFM_API_KEY")
	}
	if cfg.Keys.Discogs == "" {
		cfg.Keys.Discogs = os.Getenv("DISCOGS_TOKEN")
	}
	if cfg.Keys.Gemini == "" {
		cfg.Keys.Gemini = os.Getenv("GEMINI_API_KEY")
	}
}

// Settings derives the injectable settings snapshot from the loaded
// configuration.
func (c *Config) Settings() Settings {
	enabled := make(map[string]bool, len(c.Providers))
	for id, on := range c.Providers {
		enabled[id] = on
	}
	return Settings{
		EnabledProviders: enabled,
		APIKeys:          c.Keys,
	}
}

// HasLastFMKey returns true if a Last.fm API key is configured.
func (c *Config) HasLastFMKey() bool {
	return c.Keys.LastFM != ""
}

// HasDiscogsToken returns true if a Discogs personal access token is
// configured.
func (c *Config) HasDiscogsToken() bool {
	return c.Keys.Discogs != ""
}
