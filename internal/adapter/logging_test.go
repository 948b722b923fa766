package adapter

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLogLevel("debug"))
	assert.Equal(t, slog.LevelInfo, parseLogLevel("INFO"))
	assert.Equal(t, slog.LevelWarn, parseLogLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLogLevel("Error"))
	assert.Equal(t, slog.LevelInfo, parseLogLevel("verbose"))
}

func TestSetupLoggerWritesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "livecast.log")

	logger, closer, err := SetupLogger(&LoggingConfig{File: path, Level: "warn"})
	require.NoError(t, err)

	logger.Info("dropped")
	logger.Warn("stream error", "details", "manifestLoadError")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "dropped")
	assert.Contains(t, string(data), `"details":"manifestLoadError"`)
	assert.Contains(t, string(data), `"app":"livecast"`)
}

func TestSetupLoggerExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	_, closer, err := SetupLogger(&LoggingConfig{File: "~/livecast.log"})
	require.NoError(t, err)
	defer closer.Close()
	assert.FileExists(t, filepath.Join(home, "livecast.log"))
}
