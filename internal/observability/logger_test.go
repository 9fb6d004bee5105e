package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/dlcut/internal/apperr"
	"github.com/jmylchreest/dlcut/internal/config"
)

func TestNewLogger_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.LoggingConfig{
		Level:  "info",
		Format: "json",
	}

	logger := NewLoggerWithWriter(cfg, &buf)
	logger.Info("test message", slog.String("key", "value"))

	output := buf.String()
	assert.Contains(t, output, "test message")
	assert.Contains(t, output, `"key":"value"`)

	var parsed map[string]any
	require.NoError(t, json.Unmarshal([]byte(output), &parsed))
}

func TestNewLogger_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.LoggingConfig{
		Level:  "info",
		Format: "text",
	}

	logger := NewLoggerWithWriter(cfg, &buf)
	logger.Info("test message", slog.String("key", "value"))

	output := buf.String()
	assert.Contains(t, output, "test message")
	assert.Contains(t, output, "key=value")
}

func TestNewLogger_Levels(t *testing.T) {
	tests := []struct {
		name        string
		configLevel string
		logLevel    slog.Level
		shouldLog   bool
	}{
		{"debug logs at debug level", "debug", slog.LevelDebug, true},
		{"info suppresses debug", "info", slog.LevelDebug, false},
		{"info logs info", "info", slog.LevelInfo, true},
		{"warn suppresses info", "warn", slog.LevelInfo, false},
		{"error logs error", "error", slog.LevelError, true},
		{"error suppresses warn", "error", slog.LevelWarn, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLoggerWithWriter(config.LoggingConfig{Level: tt.configLevel, Format: "json"}, &buf)
			logger.Log(context.Background(), tt.logLevel, "message")

			if tt.shouldLog {
				assert.NotEmpty(t, buf.String())
			} else {
				assert.Empty(t, buf.String())
			}
		})
	}
}

func TestNewLogger_CustomTimeFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(config.LoggingConfig{Level: "info", Format: "json", TimeFormat: "2006"}, &buf)
	logger.Info("x")

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &parsed))
	assert.Len(t, parsed["time"], 4)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"WARNING", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLevel(tt.input))
		})
	}
}

func TestWithHelpers(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(config.LoggingConfig{Level: "info", Format: "json"}, &buf)

	logger = WithComponent(logger, "job_supervisor")
	logger = WithRequestID(logger, "req-1")
	logger = WithJob(logger, "01HZJOB", "cut")
	logger.Info("chained")

	output := buf.String()
	assert.Contains(t, output, `"component":"job_supervisor"`)
	assert.Contains(t, output, `"request_id":"req-1"`)
	assert.Contains(t, output, `"job_id":"01HZJOB"`)
	assert.Contains(t, output, `"kind":"cut"`)
}

func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(config.LoggingConfig{Level: "info", Format: "json"}, &buf)

	WithError(logger, apperr.Wrap(apperr.KindIO, "Failed to start preview server", errors.New("address in use"))).Info("x")
	assert.Contains(t, buf.String(), "Failed to start preview server: address in use")

	assert.Same(t, logger, WithError(logger, nil))
}

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, slog.Default(), LoggerFromContext(ctx))
	assert.Empty(t, RequestIDFromContext(ctx))

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	ctx = ContextWithLogger(ctx, logger)
	ctx = ContextWithRequestID(ctx, "abc")
	assert.Same(t, logger, LoggerFromContext(ctx))
	assert.Equal(t, "abc", RequestIDFromContext(ctx))
}

func TestTimedOperationWithError_Success(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(config.LoggingConfig{Level: "info", Format: "json"}, &buf)

	var err error
	done := TimedOperationWithError(context.Background(), logger, "success_op", &err)
	done()

	output := buf.String()
	assert.Contains(t, output, "operation completed")
	assert.Contains(t, output, "success_op")
	assert.NotContains(t, output, "operation failed")
}

func TestTimedOperationWithError_Failure(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantLevel string
	}{
		{"process failure is an error", apperr.New(apperr.KindProcessFailure, "Download failed: Download failed"), "ERROR"},
		{"invalid input is info", apperr.New(apperr.KindInvalidInput, "Invalid YouTube URL"), "INFO"},
		{"plain error is an error", errors.New("boom"), "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLoggerWithWriter(config.LoggingConfig{Level: "info", Format: "json"}, &buf)

			var err error
			done := TimedOperationWithError(context.Background(), logger, "failure_op", &err)
			err = tt.err
			done()

			var parsed map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &parsed))
			assert.Equal(t, "operation failed", parsed["msg"])
			assert.Equal(t, tt.wantLevel, parsed["level"])
			assert.Equal(t, apperr.Detail(tt.err), parsed["error"])
		})
	}
}
