// Package config holds the skin's user settings: one JSON record stored under
// the "config" key of the local storage directory.
package config

import (
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// StorageKey is the local storage key holding the serialized Config.
const StorageKey = "config"

// Theme selects the colour scheme of the skin.
type Theme string

const (
	ThemeAuto  Theme = "AUTO"
	ThemeLight Theme = "LIGHT"
	ThemeDark  Theme = "DARK"
)

// Themes lists the selectable themes in display order.
var Themes = []Theme{ThemeAuto, ThemeLight, ThemeDark}

// Valid reports whether t is one of the known themes.
func (t Theme) Valid() bool {
	switch t {
	case ThemeAuto, ThemeLight, ThemeDark:
		return true
	}
	return false
}

// ParseTheme accepts a theme name in any case.
func ParseTheme(s string) (Theme, error) {
	t := Theme(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown theme %q", s)
	}
	return t, nil
}

// Config is the persisted settings record.
type Config struct {
	AutoAuth      bool   `json:"auto_auth"`
	Theme         Theme  `json:"theme"`
	AutoSkip      bool   `json:"auto_skip"`
	SkipAtDislike bool   `json:"skip_at_dislike"`
	CustomCSS     string `json:"customCss"`
}

// Default returns the settings used when nothing is stored.
func Default() Config {
	return Config{
		Theme: ThemeAuto,
	}
}

// Storage is the subset of the local storage used for settings.
type Storage interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
}

// Load reads the stored record and merges it over Default. Unreadable or
// malformed data yields the defaults and a warning, never an error.
func Load(store Storage, logger *zap.Logger) Config {
	if logger == nil {
		logger = zap.NewNop()
	}

	cfg := Default()
	raw, found, err := store.Get(StorageKey)
	if err != nil {
		logger.Warn("Failed to read stored config, using defaults", zap.Error(err))
		return cfg
	}
	if !found || strings.TrimSpace(raw) == "" {
		return cfg
	}

	return Parse(raw, logger)
}

// Parse decodes raw over Default with the same fallbacks as Load.
func Parse(raw string, logger *zap.Logger) Config {
	if logger == nil {
		logger = zap.NewNop()
	}

	cfg := Default()
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		logger.Warn("Malformed stored config, using defaults", zap.Error(err))
		return Default()
	}
	if !cfg.Theme.Valid() {
		logger.Warn("Unknown theme in stored config", zap.String("theme", string(cfg.Theme)))
		cfg.Theme = ThemeAuto
	}
	return cfg
}

// Save writes the whole record as one blob.
func Save(store Storage, cfg Config) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := store.Set(StorageKey, string(data)); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

// ResolveTheme turns AUTO into LIGHT or DARK using prefersDark. Explicit
// themes are returned unchanged and prefersDark is not called.
func ResolveTheme(t Theme, prefersDark func() bool) Theme {
	switch t {
	case ThemeLight, ThemeDark:
		return t
	}
	if prefersDark != nil && prefersDark() {
		return ThemeDark
	}
	return ThemeLight
}
