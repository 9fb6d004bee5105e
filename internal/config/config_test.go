package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTestConfig() *Config {
	return &Config{
		Server:    ServerConfig{Host: "127.0.0.1", Port: 8765, SSEHeartbeat: 15 * time.Second},
		Logging:   LoggingConfig{Level: "info", Format: "json"},
		Jobs:      JobsConfig{ProgressBuffer: 32, StderrLines: 100},
		Preview:   PreviewConfig{ChunkSize: 65536, ReadBufferSize: 4096},
		Downloads: DownloadsConfig{DefaultQuality: 1080, DefaultMode: "video_with_audio"},
		Cleanup:   CleanupConfig{Enabled: true, Schedule: "0 0 * * * *", MaxAge: Duration(time.Hour)},
		Install:   InstallConfig{RetryAttempts: 3},
	}
}

// chdirTemp runs the test from an empty directory so a stray config.yaml
// in the package directory is never picked up.
func chdirTemp(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("HOME", t.TempDir())
}

func TestLoad_Defaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load("")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	// Server defaults
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 8765, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Zero(t, cfg.Server.WriteTimeout)
	assert.Equal(t, 15*time.Second, cfg.Server.SSEHeartbeat)

	// Logging defaults
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)

	// Job defaults
	assert.Equal(t, 32, cfg.Jobs.ProgressBuffer)
	assert.Equal(t, 100, cfg.Jobs.StderrLines)
	assert.Equal(t, 5*time.Second, cfg.Jobs.WaitDelay)
	assert.Equal(t, 2*time.Second, cfg.Jobs.SampleInterval)

	// Preview defaults
	assert.Equal(t, ByteSize(64*1024), cfg.Preview.ChunkSize)
	assert.Equal(t, ByteSize(4096), cfg.Preview.ReadBufferSize)

	// Download defaults
	assert.Equal(t, 1080, cfg.Downloads.DefaultQuality)
	assert.Equal(t, "video_with_audio", cfg.Downloads.DefaultMode)
	assert.Empty(t, cfg.Downloads.OutputDir)

	// Cleanup defaults
	assert.True(t, cfg.Cleanup.Enabled)
	assert.Equal(t, 24*time.Hour, cfg.Cleanup.MaxAge.Duration())

	assert.Equal(t, 3, cfg.Install.RetryAttempts)
}

func TestLoad_FromFile(t *testing.T) {
	chdirTemp(t)
	configPath := filepath.Join(t.TempDir(), "config.yaml")

	configContent := `
server:
  host: "0.0.0.0"
  port: 9090
  read_timeout: 60s

logging:
  level: "debug"
  format: "json"

binaries:
  ffmpeg_path: "/opt/ffmpeg/bin/ffmpeg"

preview:
  chunk_size: "256KB"

downloads:
  output_dir: "/srv/videos"
  default_mode: "audio_only"

cleanup:
  max_age: "2d"
  dirs:
    - /srv/videos
    - /tmp/dlcut
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0o600))

	cfg, err := Load(configPath)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 60*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "/opt/ffmpeg/bin/ffmpeg", cfg.Binaries.FFmpegPath)
	assert.Equal(t, ByteSize(256*1024), cfg.Preview.ChunkSize)
	assert.Equal(t, "/srv/videos", cfg.Downloads.OutputDir)
	assert.Equal(t, "audio_only", cfg.Downloads.DefaultMode)
	assert.Equal(t, 48*time.Hour, cfg.Cleanup.MaxAge.Duration())
	assert.Equal(t, []string{"/srv/videos", "/tmp/dlcut"}, cfg.Cleanup.Dirs)
}

func TestLoad_EnvOverride(t *testing.T) {
	chdirTemp(t)
	t.Setenv("DLCUT_SERVER_PORT", "3000")
	t.Setenv("DLCUT_LOGGING_LEVEL", "warn")
	t.Setenv("DLCUT_JOBS_WAIT_DELAY", "10s")
	t.Setenv("DLCUT_CLEANUP_MAX_AGE", "1w")
	t.Setenv("DLCUT_PREVIEW_CHUNK_SIZE", "1MB")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, 10*time.Second, cfg.Jobs.WaitDelay)
	assert.Equal(t, 7*24*time.Hour, cfg.Cleanup.MaxAge.Duration())
	assert.Equal(t, ByteSize(1024*1024), cfg.Preview.ChunkSize)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	chdirTemp(t)
	configPath := filepath.Join(t.TempDir(), "config.yaml")

	configContent := `
server:
  port: 8080
logging:
  format: "json"
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0o600))

	t.Setenv("DLCUT_SERVER_PORT", "9000")

	cfg, err := Load(configPath)
	require.NoError(t, err)

	// Env should override file
	assert.Equal(t, 9000, cfg.Server.Port)
	// File value should be preserved
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_SearchesWorkingDirectory(t *testing.T) {
	chdirTemp(t)
	require.NoError(t, os.WriteFile("config.yaml", []byte("server:\n  port: 7000\n"), 0o600))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Server.Port)
}

func TestFromViper(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("downloads.default_quality", 720)

	cfg, err := FromViper(v)
	require.NoError(t, err)
	assert.Equal(t, 720, cfg.Downloads.DefaultQuality)

	v.Set("logging.level", "loud")
	_, err = FromViper(v)
	assert.ErrorContains(t, err, "logging.level")
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, validTestConfig().Validate())
}

func TestValidate_InvalidPort(t *testing.T) {
	tests := []struct {
		name string
		port int
	}{
		{"zero port", 0},
		{"negative port", -1},
		{"port too high", 70000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validTestConfig()
			cfg.Server.Port = tt.port
			err := cfg.Validate()
			assert.Error(t, err)
			assert.Contains(t, err.Error(), "server.port")
		})
	}
}

func TestValidate_Fields(t *testing.T) {
	tests := []struct {
		name        string
		modify      func(*Config)
		errContains string
	}{
		{"zero heartbeat", func(c *Config) { c.Server.SSEHeartbeat = 0 }, "server.sse_heartbeat"},
		{"invalid log level", func(c *Config) { c.Logging.Level = "invalid" }, "logging.level"},
		{"invalid log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"zero progress buffer", func(c *Config) { c.Jobs.ProgressBuffer = 0 }, "jobs.progress_buffer"},
		{"zero stderr lines", func(c *Config) { c.Jobs.StderrLines = 0 }, "jobs.stderr_lines"},
		{"zero chunk size", func(c *Config) { c.Preview.ChunkSize = 0 }, "preview.chunk_size"},
		{"zero read buffer", func(c *Config) { c.Preview.ReadBufferSize = 0 }, "preview.read_buffer_size"},
		{"unknown mode", func(c *Config) { c.Downloads.DefaultMode = "video_only" }, "downloads.default_mode"},
		{"zero quality", func(c *Config) { c.Downloads.DefaultQuality = 0 }, "downloads.default_quality"},
		{"bad cron", func(c *Config) { c.Cleanup.Schedule = "every hour" }, "cleanup.schedule"},
		{"zero max age", func(c *Config) { c.Cleanup.MaxAge = 0 }, "cleanup.max_age"},
		{"negative retries", func(c *Config) { c.Install.RetryAttempts = -1 }, "install.retry_attempts"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validTestConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func TestValidate_DisabledCleanupSkipsSchedule(t *testing.T) {
	cfg := validTestConfig()
	cfg.Cleanup.Enabled = false
	cfg.Cleanup.Schedule = "not a cron"
	assert.NoError(t, cfg.Validate())
}

func TestServerConfig_Address(t *testing.T) {
	tests := []struct {
		name     string
		host     string
		port     int
		expected string
	}{
		{"localhost", "127.0.0.1", 8765, "127.0.0.1:8765"},
		{"all interfaces", "0.0.0.0", 3000, "0.0.0.0:3000"},
		{"ipv6", "::1", 443, "[::1]:443"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &ServerConfig{Host: tt.host, Port: tt.port}
			assert.Equal(t, tt.expected, cfg.Address())
		})
	}
}

func TestBinariesConfig_Overrides(t *testing.T) {
	cfg := BinariesConfig{YtDlpPath: "/opt/yt-dlp"}
	o := cfg.Overrides()
	assert.Equal(t, "/opt/yt-dlp", o["yt-dlp"])
	assert.Empty(t, o["ffmpeg"])
}

func TestLoad_InvalidConfigFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")

	invalidContent := `
server:
  port: "not a number"
  invalid yaml structure
`
	require.NoError(t, os.WriteFile(configPath, []byte(invalidContent), 0o600))

	_, err := Load(configPath)
	assert.Error(t, err)
}

func TestLoad_NonExistentFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	assert.Error(t, err)
}
