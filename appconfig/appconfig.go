// Package appconfig loads the start-up settings: Spotify credentials and
// file locations. User-facing settings live in the config package instead.
package appconfig

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const appName = "jucket"

// EnvPrefix is stripped from environment overrides. A double underscore
// separates nested keys: JUCKET_SPOTIFY__CLIENT_ID sets spotify.client_id.
const EnvPrefix = "JUCKET_"

type Config struct {
	Spotify SpotifyConfig `koanf:"spotify"`

	DBPath     string `koanf:"db_path"`
	StorageDir string `koanf:"storage_dir"`
	LogLevel   string `koanf:"log_level"`
	LogFile    string `koanf:"log_file"` // empty disables logging in the TUI

	PollInterval time.Duration `koanf:"poll_interval"`

	// Dislike list paging and search
	PageSize            int  `koanf:"page_size"`
	CaseSensitiveSearch bool `koanf:"case_sensitive_search"`
}

// SpotifyConfig holds the Web API application credentials.
type SpotifyConfig struct {
	ClientID     string `koanf:"client_id"`
	ClientSecret string `koanf:"client_secret"`
	RedirectURL  string `koanf:"redirect_url"`
	TokenPath    string `koanf:"token_path"`
}

// Default returns the settings used when no file or environment overrides
// are present.
func Default() *Config {
	return &Config{
		Spotify: SpotifyConfig{
			RedirectURL: "http://127.0.0.1:8888/callback",
			TokenPath:   filepath.Join(xdg.StateHome, appName, "token.json"),
		},
		DBPath:       filepath.Join(xdg.DataHome, appName, "dislikes.db"),
		StorageDir:   filepath.Join(xdg.DataHome, appName, "local"),
		LogLevel:     "info",
		LogFile:      filepath.Join(xdg.StateHome, appName, "jucket.log"),
		PollInterval: time.Second,
		PageSize:     10,
	}
}

// Load reads the standard config files and environment overrides.
func Load() (*Config, error) {
	return LoadFrom(getConfigPaths()...)
}

// LoadFrom reads the given TOML files in order (later files win; missing
// files are skipped), then applies environment overrides.
func LoadFrom(paths ...string) (*Config, error) {
	k := koanf.New(".")

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, err
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, err
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	cfg.DBPath = expandPath(cfg.DBPath)
	cfg.StorageDir = expandPath(cfg.StorageDir)
	cfg.LogFile = expandPath(cfg.LogFile)
	cfg.Spotify.TokenPath = expandPath(cfg.Spotify.TokenPath)

	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 10
	}
	return cfg, nil
}

// HasSpotifyCredentials reports whether an OAuth flow can be started.
func (c *Config) HasSpotifyCredentials() bool {
	return c.Spotify.ClientID != "" && c.Spotify.ClientSecret != ""
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

func getConfigPaths() []string {
	return []string{
		filepath.Join(xdg.ConfigHome, appName, "config.toml"),
		appName + ".toml",
	}
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
