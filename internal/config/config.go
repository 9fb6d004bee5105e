// Package config provides configuration management for dlcut using Viper.
// It supports configuration from files, environment variables, and defaults.
package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable override.
const EnvPrefix = "DLCUT"

// Default configuration values.
const (
	defaultServerHost      = "127.0.0.1"
	defaultServerPort      = 8765
	defaultServerTimeout   = 30 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultSSEHeartbeat    = 15 * time.Second
	defaultProgressBuffer  = 32
	defaultStderrLines     = 100
	defaultWaitDelay       = 5 * time.Second
	defaultSampleInterval  = 2 * time.Second
	defaultProbeTimeout    = 30 * time.Second
	defaultChunkSize       = 64 * 1024
	defaultReadBufferSize  = 4096
	defaultQuality         = 1080
	defaultCleanupSchedule = "0 0 * * * *" // hourly (6-field cron)
	defaultCleanupMaxAge   = 24 * time.Hour
	defaultInstallRetries  = 3
)

// Config holds all configuration for the application.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Binaries  BinariesConfig  `mapstructure:"binaries"`
	Jobs      JobsConfig      `mapstructure:"jobs"`
	Preview   PreviewConfig   `mapstructure:"preview"`
	Downloads DownloadsConfig `mapstructure:"downloads"`
	Cleanup   CleanupConfig   `mapstructure:"cleanup"`
	Install   InstallConfig   `mapstructure:"install"`
}

// ServerConfig holds control API configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"` // 0 keeps SSE streams open
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	SSEHeartbeat    time.Duration `mapstructure:"sse_heartbeat"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`  // debug, info, warn, error
	Format     string `mapstructure:"format"` // json, text
	AddSource  bool   `mapstructure:"add_source"`
	TimeFormat string `mapstructure:"time_format"`
}

// BinariesConfig locates the external tools.
type BinariesConfig struct {
	// BinDir holds installed tools (empty = <local data dir>/DLCut/bin).
	BinDir      string `mapstructure:"bin_dir"`
	YtDlpPath   string `mapstructure:"ytdlp_path"`   // empty = auto-detect
	FFmpegPath  string `mapstructure:"ffmpeg_path"`  // empty = auto-detect
	FFprobePath string `mapstructure:"ffprobe_path"` // empty = auto-detect
}

// JobsConfig tunes the job supervisor.
type JobsConfig struct {
	ProgressBuffer int           `mapstructure:"progress_buffer"`
	StderrLines    int           `mapstructure:"stderr_lines"`
	WaitDelay      time.Duration `mapstructure:"wait_delay"`
	SampleInterval time.Duration `mapstructure:"sample_interval"`
	ProbeTimeout   time.Duration `mapstructure:"probe_timeout"`
}

// PreviewConfig tunes the loopback file server.
type PreviewConfig struct {
	// ChunkSize is the body write size. Supports values like "64KB".
	ChunkSize      ByteSize `mapstructure:"chunk_size"`
	ReadBufferSize ByteSize `mapstructure:"read_buffer_size"`
}

// DownloadsConfig holds download defaults.
type DownloadsConfig struct {
	OutputDir      string `mapstructure:"output_dir"` // empty = ~/Downloads
	DefaultQuality int    `mapstructure:"default_quality"`
	DefaultMode    string `mapstructure:"default_mode"` // video_with_audio, audio_only
}

// CleanupConfig controls removal of abandoned partial downloads.
type CleanupConfig struct {
	Enabled  bool     `mapstructure:"enabled"`
	Schedule string   `mapstructure:"schedule"` // 6-field cron expression
	MaxAge   Duration `mapstructure:"max_age"`  // supports "1d", "12h"
	Dirs     []string `mapstructure:"dirs"`     // empty = downloads.output_dir
}

// InstallConfig overrides where tools are downloaded from.
type InstallConfig struct {
	YtDlpURL      string `mapstructure:"ytdlp_url"`  // empty = platform default
	FFmpegURL     string `mapstructure:"ffmpeg_url"` // empty = platform default
	RetryAttempts int    `mapstructure:"retry_attempts"`
}

// Load reads configuration from file and environment variables.
// Environment variables take precedence over file configuration.
// Environment variables are prefixed with DLCUT_ and use underscores for nesting.
// Example: DLCUT_SERVER_PORT=8765.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	SetDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.dlcut")
		v.AddConfigPath("/etc/dlcut")
	}

	BindEnv(v)

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	return FromViper(v)
}

// BindEnv enables DLCUT_ environment overrides on v.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
}

// FromViper decodes and validates the configuration held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(DecodeHook())); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// DecodeHook converts strings into durations, sizes and lists.
func DecodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

// SetDefaults configures default values for all configuration options.
// This should be called before reading the config file to ensure defaults are in place.
func SetDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", defaultServerHost)
	v.SetDefault("server.port", defaultServerPort)
	v.SetDefault("server.read_timeout", defaultServerTimeout)
	v.SetDefault("server.write_timeout", time.Duration(0))
	v.SetDefault("server.shutdown_timeout", defaultShutdownTimeout)
	v.SetDefault("server.sse_heartbeat", defaultSSEHeartbeat)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// Binary defaults
	v.SetDefault("binaries.bin_dir", "")
	v.SetDefault("binaries.ytdlp_path", "")
	v.SetDefault("binaries.ffmpeg_path", "")
	v.SetDefault("binaries.ffprobe_path", "")

	// Job defaults
	v.SetDefault("jobs.progress_buffer", defaultProgressBuffer)
	v.SetDefault("jobs.stderr_lines", defaultStderrLines)
	v.SetDefault("jobs.wait_delay", defaultWaitDelay)
	v.SetDefault("jobs.sample_interval", defaultSampleInterval)
	v.SetDefault("jobs.probe_timeout", defaultProbeTimeout)

	// Preview defaults
	v.SetDefault("preview.chunk_size", defaultChunkSize)
	v.SetDefault("preview.read_buffer_size", defaultReadBufferSize)

	// Download defaults
	v.SetDefault("downloads.output_dir", "")
	v.SetDefault("downloads.default_quality", defaultQuality)
	v.SetDefault("downloads.default_mode", "video_with_audio")

	// Cleanup defaults
	v.SetDefault("cleanup.enabled", true)
	v.SetDefault("cleanup.schedule", defaultCleanupSchedule)
	v.SetDefault("cleanup.max_age", defaultCleanupMaxAge)
	v.SetDefault("cleanup.dirs", []string{})

	// Install defaults
	v.SetDefault("install.ytdlp_url", "")
	v.SetDefault("install.ffmpeg_url", "")
	v.SetDefault("install.retry_attempts", defaultInstallRetries)
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	// Server validation
	const maxPort = 65535
	if c.Server.Port < 1 || c.Server.Port > maxPort {
		return fmt.Errorf("server.port must be between 1 and %d", maxPort)
	}
	if c.Server.SSEHeartbeat <= 0 {
		return fmt.Errorf("server.sse_heartbeat must be positive")
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	// Job validation
	if c.Jobs.ProgressBuffer < 1 {
		return fmt.Errorf("jobs.progress_buffer must be at least 1")
	}
	if c.Jobs.StderrLines < 1 {
		return fmt.Errorf("jobs.stderr_lines must be at least 1")
	}

	// Preview validation
	if c.Preview.ChunkSize < 1 {
		return fmt.Errorf("preview.chunk_size must be positive")
	}
	if c.Preview.ReadBufferSize < 1 {
		return fmt.Errorf("preview.read_buffer_size must be positive")
	}

	// Download validation
	validModes := map[string]bool{"video_with_audio": true, "audio_only": true}
	if !validModes[c.Downloads.DefaultMode] {
		return fmt.Errorf("downloads.default_mode must be one of: video_with_audio, audio_only")
	}
	if c.Downloads.DefaultQuality < 1 {
		return fmt.Errorf("downloads.default_quality must be positive")
	}

	// Cleanup validation
	if c.Cleanup.Enabled {
		if _, err := CronParser.Parse(c.Cleanup.Schedule); err != nil {
			return fmt.Errorf("cleanup.schedule is not a valid cron expression: %w", err)
		}
		if c.Cleanup.MaxAge <= 0 {
			return fmt.Errorf("cleanup.max_age must be positive")
		}
	}

	if c.Install.RetryAttempts < 0 {
		return fmt.Errorf("install.retry_attempts must not be negative")
	}

	return nil
}

// CronParser parses the 6-field (with seconds) cron expressions used in config.
var CronParser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Overrides returns the configured binary paths keyed by tool name.
func (c *BinariesConfig) Overrides() map[string]string {
	return map[string]string{
		"yt-dlp":  c.YtDlpPath,
		"ffmpeg":  c.FFmpegPath,
		"ffprobe": c.FFprobePath,
	}
}
