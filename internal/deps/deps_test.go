package deps

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// skipOnWindows skips tests that rely on POSIX shell scripts as fake tools.
func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fakes need a POSIX shell")
	}
}

// isolatePath points PATH at an empty directory so real installs are not found.
func isolatePath(t *testing.T) {
	t.Helper()
	t.Setenv("PATH", t.TempDir())
}

func writeScript(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(fakeScript(body)), 0o755))
}

func fakeScript(body string) string {
	return "#!/bin/sh\n" + body + "\n"
}

const (
	fakeYtDlp  = `echo "2025.01.15"`
	fakeFFmpeg = `echo "ffmpeg version 7.1 Copyright (c) 2000-2024 the FFmpeg developers"`
)
