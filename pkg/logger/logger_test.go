package logger

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zfogg/threadline/pkg/config"
)

func TestLoggerFunctions_NoNilPointers(t *testing.T) {
	logger = nil
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("Logger function panicked: %v", r)
		}
	}()

	Debug("test debug", "key", "value")
	Info("test info", "key", "value")
	Warn("test warn", "key", "value")
	Error("test error", "key", "value")
}

func TestSetOutputRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, log.InfoLevel)

	Debug("hidden", "key", "value")
	Info("cache loaded", "key", "posts", "count", 3)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "cache loaded")
	assert.Contains(t, out, "key=posts")
	assert.Contains(t, out, "count=3")
}

func TestInitWritesToConfiguredFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, config.Init(filepath.Join(dir, "config.toml")))

	Init(true)
	require.NotNil(t, GetLogger())
	assert.Equal(t, log.DebugLevel, GetLogger().GetLevel())

	Init(false)
	assert.Equal(t, log.InfoLevel, GetLogger().GetLevel())
}
