package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Keys lists the settings names accepted by Get and Set, as stored.
var Keys = []string{"auto_auth", "theme", "auto_skip", "skip_at_dislike", "customCss"}

func canonicalKey(key string) string {
	switch strings.ToLower(strings.ReplaceAll(key, "-", "_")) {
	case "auto_auth":
		return "auto_auth"
	case "theme":
		return "theme"
	case "auto_skip":
		return "auto_skip"
	case "skip_at_dislike":
		return "skip_at_dislike"
	case "customcss", "custom_css":
		return "customCss"
	}
	return ""
}

// Get returns one setting as text.
func (c Config) Get(key string) (string, error) {
	switch canonicalKey(key) {
	case "auto_auth":
		return strconv.FormatBool(c.AutoAuth), nil
	case "theme":
		return string(c.Theme), nil
	case "auto_skip":
		return strconv.FormatBool(c.AutoSkip), nil
	case "skip_at_dislike":
		return strconv.FormatBool(c.SkipAtDislike), nil
	case "customCss":
		return c.CustomCSS, nil
	}
	return "", fmt.Errorf("unknown setting %q (known: %s)", key, strings.Join(Keys, ", "))
}

// Set parses value into the setting named key.
func (c *Config) Set(key, value string) error {
	k := canonicalKey(key)
	switch k {
	case "auto_auth", "auto_skip", "skip_at_dislike":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid value for %s: %q is not a boolean", k, value)
		}
		switch k {
		case "auto_auth":
			c.AutoAuth = b
		case "auto_skip":
			c.AutoSkip = b
		default:
			c.SkipAtDislike = b
		}
	case "theme":
		t, err := ParseTheme(value)
		if err != nil {
			return err
		}
		c.Theme = t
	case "customCss":
		c.CustomCSS = value
	default:
		return fmt.Errorf("unknown setting %q (known: %s)", key, strings.Join(Keys, ", "))
	}
	return nil
}
