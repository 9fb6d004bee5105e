// Package version holds build metadata for dlcut.
//
// Release builds inject the values with ldflags:
//
//	go build -ldflags "-X github.com/jmylchreest/dlcut/internal/version.Version=1.2.3 \
//	                   -X github.com/jmylchreest/dlcut/internal/version.Commit=$(git rev-parse HEAD) \
//	                   -X github.com/jmylchreest/dlcut/internal/version.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
//
// Builds made with plain `go build` or `go install` fall back to the module
// and VCS stamps the toolchain records.
package version

import (
	"encoding/json"
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

// Set through ldflags.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
	// Dirty is "true" when the build tree had uncommitted changes.
	Dirty = "false"
)

// ApplicationName is used in the CLI, the API title and the User-Agent.
const ApplicationName = "dlcut"

const shortSHALen = 8

func init() {
	if bi, ok := debug.ReadBuildInfo(); ok {
		fromBuildInfo(bi)
	}
}

// fromBuildInfo fills any value still at its default from toolchain stamps.
func fromBuildInfo(bi *debug.BuildInfo) {
	if Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		Version = strings.TrimPrefix(bi.Main.Version, "v")
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if Commit == "unknown" {
				Commit = s.Value
			}
		case "vcs.time":
			if Date == "unknown" {
				Date = s.Value
			}
		case "vcs.modified":
			if s.Value == "true" {
				Dirty = "true"
			}
		}
	}
}

// Info is the structured form printed by `dlcut version --json`.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	Dirty     bool   `json:"dirty"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// GetInfo returns the current build information.
func GetInfo() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		Dirty:     Dirty == "true",
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// commitRef is the short SHA, marked with "*" for dirty trees.
func commitRef() string {
	if Commit == "unknown" || len(Commit) < shortSHALen {
		return ""
	}
	ref := Commit[:shortSHALen]
	if Dirty == "true" {
		ref += "*"
	}
	return ref
}

// String returns the long human-readable version line.
func String() string {
	info := GetInfo()
	if ref := commitRef(); ref != "" {
		return fmt.Sprintf("%s version %s (commit: %s, built: %s, %s, %s)",
			ApplicationName, info.Version, ref, info.Date, info.GoVersion, info.Platform)
	}
	return fmt.Sprintf("%s version %s (%s, %s)", ApplicationName, info.Version, info.GoVersion, info.Platform)
}

// Short is used for cobra's --version, which prefixes the command name.
func Short() string {
	if ref := commitRef(); ref != "" {
		return fmt.Sprintf("%s (%s)", Version, ref)
	}
	return Version
}

// JSON returns GetInfo as indented JSON.
func JSON() string {
	data, err := json.MarshalIndent(GetInfo(), "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}

// UserAgent is sent when downloading tool releases.
func UserAgent() string {
	return ApplicationName + "/" + Version
}
