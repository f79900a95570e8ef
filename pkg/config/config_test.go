package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestInitWithCustomPath validates custom config path
func TestInitWithCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	customConfigPath := filepath.Join(tempDir, "custom", "path", "config.toml")

	require.NoError(t, Init(customConfigPath))

	assert.Equal(t, filepath.Join(tempDir, "custom", "path"), GetConfigDir())
	assert.Equal(t, customConfigPath, GetConfigFilePath())
	assert.Equal(t, filepath.Join(tempDir, "custom", "path", "credentials"), GetCredentialsPath())

	info, err := os.Stat(GetConfigDir())
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestDefaults(t *testing.T) {
	t.Setenv("THREADLINE_BACKEND_URL", "")
	os.Unsetenv("THREADLINE_BACKEND_URL")
	tempDir := t.TempDir()
	require.NoError(t, Init(filepath.Join(tempDir, "config.toml")))

	assert.Equal(t, "http://localhost:5000/api", GetString("api.base_url"))
	assert.Equal(t, 0, GetInt("api.timeout"))
	assert.Equal(t, "text", GetString("output.format"))
	assert.Equal(t, 30, GetInt("cache.stale_seconds"))
	assert.False(t, GetBool("cache.scoped_feed_keys"))
	assert.Equal(t, "file", GetString("cache.persist"))
	assert.Equal(t, filepath.Join(tempDir, "cache"), GetString("cache.dir"))
	assert.Equal(t, filepath.Join(tempDir, "threadline.log"), GetString("log.file"))
}

func TestUserConfigOverridesDefaults(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "config.toml")
	contents := "[api]\nbase_url = \"https://social.example.com/api\"\n\n[cache]\nscoped_feed_keys = true\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0600))

	require.NoError(t, Init(path))

	assert.Equal(t, "https://social.example.com/api", GetString("api.base_url"))
	assert.True(t, GetBool("cache.scoped_feed_keys"))
	assert.Equal(t, 30, GetInt("cache.stale_seconds"))
}

func TestBackendURLFromEnvironment(t *testing.T) {
	t.Setenv("THREADLINE_BACKEND_URL", "http://env.example.com/api")
	require.NoError(t, Init(filepath.Join(t.TempDir(), "config.toml")))

	assert.Equal(t, "http://env.example.com/api", GetString("api.base_url"))
}

func TestSetStringPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, Init(path))

	require.NoError(t, SetString("output.format", "json"))

	require.NoError(t, Init(path))
	assert.Equal(t, "json", GetString("output.format"))
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "cache"), expandPath("~/cache"))
	assert.Equal(t, "/abs/path", expandPath("/abs/path"))
	assert.Equal(t, "", expandPath(""))
}
