package ffmpeg

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/jmylchreest/dlcut/internal/job"
)

// VersionInfo describes an ffmpeg build.
type VersionInfo struct {
	Full          string `json:"version"`
	Major         int    `json:"major"`
	Minor         int    `json:"minor"`
	BuildDate     string `json:"build_date,omitempty"`
	Configuration string `json:"configuration,omitempty"`
}

var versionNumber = regexp.MustCompile(`^n?(\d+)\.(\d+)`)

// ParseVersion reads "ffmpeg -version" output.
func ParseVersion(output string) (*VersionInfo, error) {
	info := &VersionInfo{}

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimRight(line, "\r")
		switch {
		case strings.HasPrefix(line, "ffmpeg version"):
			// "ffmpeg version 6.0 Copyright...", "ffmpeg version n6.0-2-g..."
			parts := strings.Fields(line)
			if len(parts) >= 3 {
				info.Full = parts[2]
				if m := versionNumber.FindStringSubmatch(parts[2]); m != nil {
					info.Major, _ = strconv.Atoi(m[1])
					info.Minor, _ = strconv.Atoi(m[2])
				}
			}
		case strings.HasPrefix(line, "built with"):
			info.BuildDate = strings.TrimPrefix(line, "built with ")
		case strings.HasPrefix(line, "configuration:"):
			info.Configuration = strings.TrimPrefix(line, "configuration: ")
		}
	}

	if info.Full == "" {
		return nil, fmt.Errorf("failed to parse ffmpeg version")
	}
	return info, nil
}

// SupportsMinVersion returns true if the version is at least major.minor.
// Git snapshot builds without a numeric version always pass.
func (v *VersionInfo) SupportsMinVersion(major, minor int) bool {
	if v.Major == 0 && v.Minor == 0 {
		return true
	}
	if v.Major != major {
		return v.Major > major
	}
	return v.Minor >= minor
}

// DetectVersion runs "<ffmpegPath> -version".
func DetectVersion(ctx context.Context, ffmpegPath string) (*VersionInfo, error) {
	res, err := job.Capture(ctx, job.Invocation{Program: ffmpegPath, Args: []string{"-version"}})
	if err != nil {
		return nil, err
	}
	return ParseVersion(string(res.Stdout))
}
