// Package deps locates, checks and installs the external tools: yt-dlp and
// ffmpeg (with ffprobe where the archive ships it).
package deps

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
)

// AppDirName is the per-user directory holding installed tools.
const AppDirName = "DLCut"

// Tool names as passed to Resolve.
const (
	YtDlp   = "yt-dlp"
	FFmpeg  = "ffmpeg"
	FFprobe = "ffprobe"
)

// DefaultBinDir returns <local data dir>/DLCut/bin for the current user.
func DefaultBinDir() (string, error) {
	base, err := localDataDir(runtime.GOOS)
	if err != nil {
		return "", err
	}
	return filepath.Join(base, AppDirName, "bin"), nil
}

// localDataDir follows the platform conventions for per-user,
// non-roaming application data.
func localDataDir(goos string) (string, error) {
	switch goos {
	case "windows":
		if dir := os.Getenv("LOCALAPPDATA"); dir != "" {
			return dir, nil
		}
		return "", errors.New("LOCALAPPDATA is not set")
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Application Support"), nil
	default:
		if dir := os.Getenv("XDG_DATA_HOME"); dir != "" && filepath.IsAbs(dir) {
			return dir, nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".local", "share"), nil
	}
}

// ExecutableName appends the platform executable suffix to name.
func ExecutableName(name string) string {
	if runtime.GOOS == "windows" {
		return name + ".exe"
	}
	return name
}
