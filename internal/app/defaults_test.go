package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetDefaults(t *testing.T) {
	t.Run("uses env vars when set", func(t *testing.T) {
		t.Setenv("WMGUARD_CONFIG_PATH", "/custom/config.toml")
		t.Setenv("WMGUARD_HOME", "/custom/wmguard")

		defaults, err := GetDefaults()
		require.NoError(t, err)

		assert.Equal(t, "/custom/config.toml", defaults["config_path"])
		assert.Equal(t, "/custom/wmguard", defaults["base_dir"])
		assert.Equal(t, filepath.Join("/custom/wmguard", "log"), defaults["log_dir"])
	})

	t.Run("falls back to home dir defaults", func(t *testing.T) {
		t.Setenv("WMGUARD_CONFIG_PATH", "")
		t.Setenv("WMGUARD_HOME", "")

		defaults, err := GetDefaults()
		require.NoError(t, err)

		homeDir, _ := os.UserHomeDir()
		assert.Equal(t, filepath.Join(homeDir, ".config", "wmguard.toml"), defaults["config_path"])
		assert.Equal(t, filepath.Join(homeDir, ".local", "share", "wmguard"), defaults["base_dir"])
		assert.Equal(t, filepath.Join(homeDir, ".local", "share", "wmguard", "log"), defaults["log_dir"])
	})
}
