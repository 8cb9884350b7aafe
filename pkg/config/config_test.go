package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWritesDefaultOnFirstRun(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.NotEmpty(t, cfg.Claude.Models)

	dir, err := os.UserConfigDir()
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "bones-agent", "config.toml"))
	assert.NoError(t, err)
}

func TestLoadReadsExistingFile(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmp)
	dir := filepath.Join(tmp, "bones-agent")
	require.NoError(t, os.MkdirAll(dir, 0755))
	content := `
loglevel = "DEBUG"
redis_addr = "redis.internal:6380"

[claude]
models = ["claude-haiku-4-5"]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0644))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, "redis.internal:6380", cfg.RedisAddr)
	assert.Equal(t, []string{"claude-haiku-4-5"}, cfg.Claude.Models)
}
