package adapter

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the config search path at an empty home and resets viper
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("APPDATA", home)
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	viper.Reset()
	t.Cleanup(viper.Reset)
	return home
}

func TestLoadConfigDefaults(t *testing.T) {
	isolate(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "rtmp://localhost", cfg.Server.RTMP)
	assert.Equal(t, "http://localhost:8080", cfg.Server.HLS)
	assert.Equal(t, EngineAuto, cfg.Playback.Engine)
	assert.True(t, cfg.Playback.LowLatency)
	assert.True(t, cfg.Playback.EnableWorker)
	assert.Equal(t, 90*time.Second, cfg.Playback.BackBuffer)
	assert.Equal(t, 3*time.Second, cfg.Playback.RetryDelay)
	assert.Zero(t, cfg.Playback.MaxNetworkRetries)

	client := cfg.ClientConfig()
	assert.True(t, client.LowLatencyMode)
	assert.Equal(t, 90*time.Second, client.BackBufferLength)
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	home := isolate(t)

	dir := filepath.Join(home, ".config", "livecast")
	require.NoError(t, os.MkdirAll(dir, 0755))
	yaml := `
server:
  hls: https://live.example.com
playback:
  engine: native
  retry_delay: 5s
  max_network_retries: 4
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))
	t.Setenv("LIVECAST_SERVER_RTMP", "rtmp://ingest.example.com")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "https://live.example.com", cfg.Server.HLS)
	assert.Equal(t, "rtmp://ingest.example.com", cfg.Server.RTMP)
	assert.Equal(t, EngineNative, cfg.Playback.Engine)
	assert.Equal(t, 5*time.Second, cfg.Playback.RetryDelay)
	assert.Equal(t, 4, cfg.Playback.MaxNetworkRetries)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	isolate(t)
	t.Setenv("LIVECAST_PLAYBACK_ENGINE", "webgl")

	_, err := LoadConfig()
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"builtin engine", func(c *Config) { c.Playback.Engine = EngineBuiltin }, false},
		{"unknown engine", func(c *Config) { c.Playback.Engine = "flash" }, true},
		{"zero retry delay", func(c *Config) { c.Playback.RetryDelay = 0 }, true},
		{"negative back buffer", func(c *Config) { c.Playback.BackBuffer = -time.Second }, true},
		{"negative retries", func(c *Config) { c.Playback.MaxNetworkRetries = -1 }, true},
		{"rtmp hls origin", func(c *Config) { c.Server.HLS = "rtmp://localhost" }, true},
		{"no host", func(c *Config) { c.Server.HLS = "http://" }, true},
		{"https origin", func(c *Config) { c.Server.HLS = "https://cdn.example.com/live" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSaveConfigRoundTrip(t *testing.T) {
	isolate(t)

	cfg := DefaultConfig()
	cfg.Server.HLS = "http://media.lan:8080"
	cfg.Player.Command = "vlc"
	cfg.Playback.BackBuffer = 30 * time.Second
	require.NoError(t, SaveConfig(cfg))
	assert.FileExists(t, filepath.Join(ConfigPath(), "config.yaml"))

	viper.Reset()
	loaded, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "http://media.lan:8080", loaded.Server.HLS)
	assert.Equal(t, "vlc", loaded.Player.Command)
	assert.Equal(t, 30*time.Second, loaded.Playback.BackBuffer)
}
