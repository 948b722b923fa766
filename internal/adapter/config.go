package adapter

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/mmcdole/livecast/internal/domain"
)

// ErrInvalidConfig is returned by Validate
var ErrInvalidConfig = errors.New("invalid configuration")

// EngineMode selects how a viewer session plays the stream
type EngineMode string

const (
	EngineAuto    EngineMode = "auto"    // built-in engine when the player reads stdin, else native
	EngineBuiltin EngineMode = "builtin" // always feed segments through the built-in engine
	EngineNative  EngineMode = "native"  // always hand the URL to the player
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Player   PlayerConfig   `mapstructure:"player"`
	Playback PlaybackConfig `mapstructure:"playback"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	History  HistoryConfig  `mapstructure:"history"`
}

// ServerConfig holds the streaming server origins
type ServerConfig struct {
	RTMP string `mapstructure:"rtmp"` // ingest origin, e.g. rtmp://localhost
	HLS  string `mapstructure:"hls"`  // playback origin, e.g. http://localhost:8080
}

// PlayerConfig holds media player configuration
type PlayerConfig struct {
	Command string   `mapstructure:"command"` // empty to auto-detect
	Args    []string `mapstructure:"args"`
}

// PlaybackConfig tunes viewer sessions and the built-in engine
type PlaybackConfig struct {
	Engine            EngineMode    `mapstructure:"engine"`
	LowLatency        bool          `mapstructure:"low_latency"`
	BackBuffer        time.Duration `mapstructure:"back_buffer"`
	EnableWorker      bool          `mapstructure:"enable_worker"`
	RetryDelay        time.Duration `mapstructure:"retry_delay"`
	MaxNetworkRetries int           `mapstructure:"max_network_retries"` // 0 retries forever
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// HistoryConfig holds the stream key history location
type HistoryConfig struct {
	Dir string `mapstructure:"dir"` // empty keeps history in memory only
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	client := domain.DefaultClientConfig()
	return &Config{
		Server: ServerConfig{
			RTMP: "rtmp://localhost",
			HLS:  "http://localhost:8080",
		},
		Player: PlayerConfig{
			Command: "",
			Args:    []string{},
		},
		Playback: PlaybackConfig{
			Engine:            EngineAuto,
			LowLatency:        client.LowLatencyMode,
			BackBuffer:        client.BackBufferLength,
			EnableWorker:      client.EnableWorker,
			RetryDelay:        3 * time.Second,
			MaxNetworkRetries: 0,
			RequestsPerSecond: 20,
		},
		Logging: LoggingConfig{
			File:  defaultLogPath(),
			Level: "INFO",
		},
		History: HistoryConfig{
			Dir: defaultDataPath(),
		},
	}
}

// ClientConfig returns the stream client settings
func (c *Config) ClientConfig() domain.ClientConfig {
	return domain.ClientConfig{
		LowLatencyMode:   c.Playback.LowLatency,
		BackBufferLength: c.Playback.BackBuffer,
		EnableWorker:     c.Playback.EnableWorker,
	}
}

// Validate checks values viper cannot type-check
func (c *Config) Validate() error {
	switch c.Playback.Engine {
	case EngineAuto, EngineBuiltin, EngineNative:
	default:
		return fmt.Errorf("%w: playback.engine %q must be auto, builtin or native", ErrInvalidConfig, c.Playback.Engine)
	}
	if c.Playback.RetryDelay <= 0 {
		return fmt.Errorf("%w: playback.retry_delay must be positive", ErrInvalidConfig)
	}
	if c.Playback.BackBuffer <= 0 {
		return fmt.Errorf("%w: playback.back_buffer must be positive", ErrInvalidConfig)
	}
	if c.Playback.MaxNetworkRetries < 0 {
		return fmt.Errorf("%w: playback.max_network_retries cannot be negative", ErrInvalidConfig)
	}

	u, err := url.Parse(c.Server.HLS)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: server.hls %q must be an http(s) URL", ErrInvalidConfig, c.Server.HLS)
	}
	return nil
}

// defaultLogPath returns the default log file path for the current OS
func defaultLogPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "livecast", "livecast.log")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "livecast", "livecast.log")
	}
}

// defaultDataPath returns the default history directory for the current OS
func defaultDataPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "livecast")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "livecast")
	}
}

// defaultConfigPath returns the default config file path for the current OS
func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "livecast")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "livecast")
	}
}

// setDefaults registers every key so environment overrides apply on Unmarshal
func setDefaults(cfg *Config) {
	viper.SetDefault("server.rtmp", cfg.Server.RTMP)
	viper.SetDefault("server.hls", cfg.Server.HLS)
	viper.SetDefault("player.command", cfg.Player.Command)
	viper.SetDefault("player.args", cfg.Player.Args)
	viper.SetDefault("playback.engine", string(cfg.Playback.Engine))
	viper.SetDefault("playback.low_latency", cfg.Playback.LowLatency)
	viper.SetDefault("playback.back_buffer", cfg.Playback.BackBuffer)
	viper.SetDefault("playback.enable_worker", cfg.Playback.EnableWorker)
	viper.SetDefault("playback.retry_delay", cfg.Playback.RetryDelay)
	viper.SetDefault("playback.max_network_retries", cfg.Playback.MaxNetworkRetries)
	viper.SetDefault("playback.requests_per_second", cfg.Playback.RequestsPerSecond)
	viper.SetDefault("logging.file", cfg.Logging.File)
	viper.SetDefault("logging.level", cfg.Logging.Level)
	viper.SetDefault("history.dir", cfg.History.Dir)
}

// LoadConfig loads configuration from file and environment
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()
	setDefaults(cfg)

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(defaultConfigPath())
	viper.AddConfigPath(".")

	// Environment variable overrides, e.g. LIVECAST_SERVER_HLS
	viper.SetEnvPrefix("LIVECAST")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveConfig saves the current configuration to file
func SaveConfig(cfg *Config) error {
	configPath := defaultConfigPath()

	// Ensure config directory exists
	if err := os.MkdirAll(configPath, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Set fields individually to ensure correct key names (snake_case)
	viper.Set("server.rtmp", cfg.Server.RTMP)
	viper.Set("server.hls", cfg.Server.HLS)

	viper.Set("player.command", cfg.Player.Command)
	viper.Set("player.args", cfg.Player.Args)

	viper.Set("playback.engine", string(cfg.Playback.Engine))
	viper.Set("playback.low_latency", cfg.Playback.LowLatency)
	viper.Set("playback.back_buffer", cfg.Playback.BackBuffer.String())
	viper.Set("playback.enable_worker", cfg.Playback.EnableWorker)
	viper.Set("playback.retry_delay", cfg.Playback.RetryDelay.String())
	viper.Set("playback.max_network_retries", cfg.Playback.MaxNetworkRetries)
	viper.Set("playback.requests_per_second", cfg.Playback.RequestsPerSecond)

	viper.Set("logging.file", cfg.Logging.File)
	viper.Set("logging.level", cfg.Logging.Level)

	viper.Set("history.dir", cfg.History.Dir)

	configFile := filepath.Join(configPath, "config.yaml")
	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ConfigPath returns the directory config.yaml is read from and saved to
func ConfigPath() string {
	return defaultConfigPath()
}
