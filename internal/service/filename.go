package service

import (
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// maxFilenameBytes bounds the sanitized title, excluding the extension.
const maxFilenameBytes = 200

// GenerateFilename turns a video title into a safe file name with ext.
func GenerateFilename(title, ext string) string {
	sanitized := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, title)

	if len(sanitized) > maxFilenameBytes {
		cut := maxFilenameBytes
		for cut > 0 && !utf8.RuneStart(sanitized[cut]) {
			cut--
		}
		sanitized = sanitized[:cut]
	}

	return strings.TrimSpace(sanitized) + "." + strings.TrimPrefix(ext, ".")
}

// DefaultDownloadDir returns configured when set, otherwise ~/Downloads when
// it exists, otherwise the home directory. It returns "" when none is known.
func DefaultDownloadDir(configured string) string {
	if configured != "" {
		return configured
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	downloads := filepath.Join(home, "Downloads")
	if info, err := os.Stat(downloads); err == nil && info.IsDir() {
		return downloads
	}
	return home
}
