package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbordb/arbor/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, "path: /var/lib/arbor\nminimumFreeGB: 5\nlogLevel: debug\n")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/arbor", cfg.Path)
	assert.Equal(t, uint(5), cfg.MinimumFreeGB)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "path: /var/lib/arbor\n")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, uint(1), cfg.MinimumFreeGB)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadMissingPath(t *testing.T) {
	path := writeConfig(t, "logLevel: debug\n")

	_, err := config.Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadMalformedYaml(t *testing.T) {
	path := writeConfig(t, "path: [unclosed\n")

	_, err := config.Load(path)
	assert.Error(t, err)
}
