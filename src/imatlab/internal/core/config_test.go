package core

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, contents := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(contents), 0644))
	}
	return dir
}

func TestNewConfig(t *testing.T) {
	t.Run("loads listed files", func(t *testing.T) {
		dir := writeConfigDir(t, map[string]string{
			"meta.yaml": "files:\n  - base.yaml\n  - local.yaml\n",
			"base.yaml": "logging:\n  level: info\nlangserver:\n  version: v1.3.8\n",
		})
		t.Setenv("IMATLAB_CONFIG_DIR", dir)

		provider, err := NewConfig()
		require.NoError(t, err)
		require.NotNil(t, provider)

		cfg := provider.(Config)
		level := cfg.Get("logging.level")
		assert.True(t, level.HasValue())
		assert.Equal(t, "info", level.String())

		version := cfg.Get("langserver.version")
		assert.True(t, version.HasValue())
		assert.Equal(t, "v1.3.8", version.String())

		// local.yaml is listed but absent; it should be skipped, not fatal.
		assert.False(t, cfg.Get("nonexistent.path").HasValue())
	})

	t.Run("override file wins", func(t *testing.T) {
		dir := writeConfigDir(t, map[string]string{
			"meta.yaml":  "files:\n  - base.yaml\n  - local.yaml\n",
			"base.yaml":  "logging:\n  level: info\n",
			"local.yaml": "logging:\n  level: debug\n",
		})
		t.Setenv("IMATLAB_CONFIG_DIR", dir)

		provider, err := NewConfig()
		require.NoError(t, err)
		assert.Equal(t, "debug", provider.Get("logging.level").String())
	})

	t.Run("fails when config directory doesn't exist", func(t *testing.T) {
		t.Setenv("IMATLAB_CONFIG_DIR", "/nonexistent/path")
		provider, err := NewConfig()
		assert.Error(t, err)
		assert.Nil(t, provider)
	})

	t.Run("fails when no listed file exists", func(t *testing.T) {
		dir := writeConfigDir(t, map[string]string{
			"meta.yaml": "files:\n  - base.yaml\n",
		})
		t.Setenv("IMATLAB_CONFIG_DIR", dir)
		_, err := NewConfig()
		assert.Error(t, err)
	})
}

func TestConfigName(t *testing.T) {
	assert.Equal(t, "config", Config{}.Name())
}
