package progress

import (
	"fmt"
	"regexp"
	"strconv"
)

// LineParser turns one decoded line of tool output into at most one update.
// Lines that do not carry progress are ignored, never reported as errors.
type LineParser interface {
	ParseLine(line string) (Update, bool)
}

// LineParserFunc adapts a function to LineParser.
type LineParserFunc func(line string) (Update, bool)

// ParseLine calls f(line).
func (f LineParserFunc) ParseLine(line string) (Update, bool) {
	return f(line)
}

// NoProgress ignores every line.
var NoProgress LineParser = LineParserFunc(func(string) (Update, bool) { return Update{}, false })

// downloadPattern matches yt-dlp --newline progress lines such as
//
//	[download]  42.5% of 10.00MiB at 1.20MiB/s ETA 00:05
//	[download] 100% of 10.00MiB in 00:03
var downloadPattern = regexp.MustCompile(
	`\[download\]\s+(\d+(?:\.\d+)?)%(?:.*?\bat\s+(\d+\.?\d*\w+/s))?(?:.*?\bETA\s+(\S+))?`)

// DownloadParser extracts percentage, speed and ETA from downloader output.
type DownloadParser struct{}

// ParseLine implements LineParser.
func (DownloadParser) ParseLine(line string) (Update, bool) {
	m := downloadPattern.FindStringSubmatch(line)
	if m == nil {
		return Update{}, false
	}

	percent, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return Update{}, false
	}
	percent = clampPercent(percent)

	return Update{
		Stage:   StageDownloading,
		Percent: percent,
		Message: fmt.Sprintf("Downloading... %.1f%%", percent),
		Speed:   m[2],
		ETA:     m[3],
	}, true
}

var cutPattern = regexp.MustCompile(`out_time_ms=(\d+)`)

// CutParser reads ffmpeg "-progress pipe:1" output. TotalMicros is the
// length of the clip being produced; a non-positive total reports 0%.
type CutParser struct {
	TotalMicros int64
	// Label prefixes the message, e.g. "Cutting video" or "Re-encoding".
	Label string
}

// ParseLine implements LineParser.
func (p CutParser) ParseLine(line string) (Update, bool) {
	m := cutPattern.FindStringSubmatch(line)
	if m == nil {
		return Update{}, false
	}

	elapsed, err := strconv.ParseUint(m[1], 10, 64)
	if err != nil {
		return Update{}, false
	}

	percent := CutPercent(elapsed, p.TotalMicros)
	label := p.Label
	if label == "" {
		label = "Cutting video"
	}

	return Update{
		Stage:   StageCutting,
		Percent: percent,
		Message: fmt.Sprintf("%s... %.0f%%", label, percent),
	}, true
}

// CutPercent computes min(100, elapsed/total*100), or 0 when total is not positive.
func CutPercent(elapsedMicros uint64, totalMicros int64) float64 {
	if totalMicros <= 0 {
		return 0
	}
	return clampPercent(float64(elapsedMicros) / float64(totalMicros) * 100)
}

func clampPercent(p float64) float64 {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}
