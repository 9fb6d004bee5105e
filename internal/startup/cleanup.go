// Package startup provides utilities for application startup tasks.
package startup

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultCleanupAge is the default maximum age for orphaned partial files.
const DefaultCleanupAge = 24 * time.Hour

// partialSuffixes are left behind by interrupted yt-dlp downloads and
// dependency installs.
var partialSuffixes = []string{".part", ".ytdl", ".download", ".tmp"}

// partialInfixes mark yt-dlp fragment and post-processing files.
var partialInfixes = []string{".part-Frag", ".temp."}

// IsPartialFile reports whether name looks like an unfinished download.
func IsPartialFile(name string) bool {
	for _, s := range partialSuffixes {
		if strings.HasSuffix(name, s) {
			return true
		}
	}
	for _, s := range partialInfixes {
		if strings.Contains(name, s) {
			return true
		}
	}
	return false
}

// CleanupPartialFiles removes partial download files in baseDir whose
// modification time is older than maxAge. Subdirectories are not visited.
//
// Returns the number of files removed and any error encountered.
func CleanupPartialFiles(logger *slog.Logger, baseDir string, maxAge time.Duration) (int, error) {
	if _, err := os.Stat(baseDir); os.IsNotExist(err) {
		logger.Debug("directory does not exist, skipping cleanup",
			"path", baseDir,
		)
		return 0, nil
	}

	entries, err := os.ReadDir(baseDir)
	if err != nil {
		logger.Error("failed to read directory for cleanup",
			"path", baseDir,
			"error", err,
		)
		return 0, err
	}

	cutoff := time.Now().Add(-maxAge)
	var removed int

	for _, entry := range entries {
		if entry.IsDir() || !IsPartialFile(entry.Name()) {
			continue
		}

		path := filepath.Join(baseDir, entry.Name())

		info, err := entry.Info()
		if err != nil {
			logger.Warn("failed to get file info",
				"path", path,
				"error", err,
			)
			continue
		}

		if info.ModTime().After(cutoff) {
			logger.Debug("preserving recent partial file",
				"path", path,
				"age", time.Since(info.ModTime()).Round(time.Second),
			)
			continue
		}

		if err := os.Remove(path); err != nil {
			logger.Warn("failed to remove partial file",
				"path", path,
				"error", err,
			)
			continue
		}

		logger.Info("removed partial file",
			"path", path,
			"age", time.Since(info.ModTime()).Round(time.Second),
		)
		removed++
	}

	return removed, nil
}

// CleanupDirs runs CleanupPartialFiles over every directory and returns the
// total removed. Unreadable directories are logged and skipped.
func CleanupDirs(logger *slog.Logger, dirs []string, maxAge time.Duration) int {
	var total int
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		n, err := CleanupPartialFiles(logger, dir, maxAge)
		if err != nil {
			continue
		}
		total += n
	}
	return total
}

// Cleaner runs CleanupDirs on a cron schedule.
type Cleaner struct {
	cron   *cron.Cron
	logger *slog.Logger
	dirs   []string
	maxAge time.Duration
}

// NewCleaner creates a cleaner for dirs. parser must accept schedule.
func NewCleaner(logger *slog.Logger, parser cron.Parser, schedule string, dirs []string, maxAge time.Duration) (*Cleaner, error) {
	c := &Cleaner{
		cron:   cron.New(cron.WithParser(parser)),
		logger: logger.With("component", "cleanup"),
		dirs:   dirs,
		maxAge: maxAge,
	}
	if _, err := c.cron.AddFunc(schedule, c.RunOnce); err != nil {
		return nil, err
	}
	return c, nil
}

// RunOnce performs one cleanup pass.
func (c *Cleaner) RunOnce() {
	removed := CleanupDirs(c.logger, c.dirs, c.maxAge)
	if removed > 0 {
		c.logger.Info("partial file cleanup finished", "removed", removed)
	}
}

// Start runs one pass immediately and then follows the schedule.
func (c *Cleaner) Start() {
	c.RunOnce()
	c.cron.Start()
}

// Stop halts the schedule and waits for a running pass to finish.
func (c *Cleaner) Stop() {
	<-c.cron.Stop().Done()
}
