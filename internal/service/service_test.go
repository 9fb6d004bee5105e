package service

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

const testURL = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// toolResolver resolves tool names to scripts in a temp dir.
type toolResolver map[string]string

func (r toolResolver) Resolve(name string) (string, error) {
	if p, ok := r[name]; ok {
		return p, nil
	}
	return "", errors.New("binary " + name + " not found")
}

// writeTool writes an executable shell script standing in for an external tool.
func writeTool(t *testing.T, dir, name, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fakes need a POSIX shell")
	}
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

// lastArg is a shell snippet that stores the final argument in $out.
const lastArg = `for a in "$@"; do out="$a"; done`

// outputArg is a shell snippet that stores the value after -o in $out.
const outputArg = `out=""; prev=""
for a in "$@"; do
  if [ "$prev" = "-o" ]; then out="$a"; fi
  prev="$a"
done`
