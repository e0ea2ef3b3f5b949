package appconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)

	def := Default()
	assert.Equal(t, def.DBPath, cfg.DBPath)
	assert.Equal(t, time.Second, cfg.PollInterval)
	assert.Equal(t, 10, cfg.PageSize)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.HasSpotifyCredentials())
}

func TestLoadFrom_FileOverridesAndOrder(t *testing.T) {
	dir := t.TempDir()
	first := writeFile(t, dir, "a.toml", `
log_level = "debug"
page_size = 25
poll_interval = "2s"

[spotify]
client_id = "first"
client_secret = "secret"
`)
	second := writeFile(t, dir, "b.toml", `
[spotify]
client_id = "second"
`)

	cfg, err := LoadFrom(first, second)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 25, cfg.PageSize)
	assert.Equal(t, 2*time.Second, cfg.PollInterval)
	assert.Equal(t, "second", cfg.Spotify.ClientID)
	assert.Equal(t, "secret", cfg.Spotify.ClientSecret)
	assert.True(t, cfg.HasSpotifyCredentials())
}

func TestLoadFrom_EnvOverrides(t *testing.T) {
	t.Setenv("JUCKET_SPOTIFY__CLIENT_ID", "from-env")
	t.Setenv("JUCKET_DB_PATH", "~/music/dislikes.db")

	cfg, err := LoadFrom()
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Spotify.ClientID)
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "music", "dislikes.db"), cfg.DBPath)
}

func TestLoadFrom_InvalidFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bad.toml", "page_size = [")
	_, err := LoadFrom(path)
	assert.Error(t, err)
}

func TestLoadFrom_NonPositiveValuesFallBack(t *testing.T) {
	path := writeFile(t, t.TempDir(), "c.toml", `
page_size = 0
poll_interval = "-1s"
`)
	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.PageSize)
	assert.Equal(t, time.Second, cfg.PollInterval)
}
