package ytdlp

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jmylchreest/dlcut/internal/apperr"
)

// Mode selects what is downloaded.
type Mode string

const (
	ModeVideoWithAudio Mode = "video_with_audio"
	ModeAudioOnly      Mode = "audio_only"
)

// DefaultHeight is used when a video quality is missing or unparsable.
const DefaultHeight = 1080

// DownloadRequest describes a download. Quality is a height such as "720"
// for video, or high, medium or low for audio.
type DownloadRequest struct {
	URL        string   `json:"url"`
	Quality    string   `json:"quality"`
	Mode       Mode     `json:"mode"`
	OutputPath string   `json:"output_path"`
	Start      *float64 `json:"start_time,omitempty"`
	End        *float64 `json:"end_time,omitempty"`
}

// Validate rejects requests that must never reach the downloader.
func (r DownloadRequest) Validate() error {
	if err := ValidateURL(r.URL); err != nil {
		return err
	}
	if strings.TrimSpace(r.OutputPath) == "" {
		return apperr.New(apperr.KindInvalidInput, "Output path is required")
	}
	switch r.Mode {
	case "", ModeVideoWithAudio, ModeAudioOnly:
	default:
		return apperr.Newf(apperr.KindInvalidInput, "Unknown download mode %q", r.Mode)
	}
	if r.Start != nil && *r.Start < 0 {
		return apperr.New(apperr.KindInvalidInput, "Invalid timestamp: start must not be negative")
	}
	if r.Start != nil && r.End != nil && *r.End <= *r.Start {
		return apperr.New(apperr.KindInvalidInput, "Invalid timestamp: end must be after start")
	}
	return nil
}

// InfoArgs returns the arguments for a metadata-only run.
func InfoArgs(url string) []string {
	return []string{
		"--dump-json",
		"--no-download",
		"--no-warnings",
		"--no-playlist",
		"--flat-playlist",
		strings.TrimSpace(url),
	}
}

// Args returns the full argument list for the download. The URL is always last.
func (r DownloadRequest) Args() []string {
	args := []string{"--newline", "--no-warnings", "--no-playlist"}

	switch r.Mode {
	case ModeAudioOnly:
		args = append(args,
			"-f", "bestaudio/best",
			"-x",
			"--audio-format", "mp3",
			"--audio-quality", audioQuality(r.Quality),
		)
	default:
		h := height(r.Quality)
		args = append(args,
			"-f", fmt.Sprintf("bestvideo[height<=%d]+bestaudio/best[height<=%d]", h, h),
			"--merge-output-format", "mp4",
		)
	}

	args = append(args, "-o", r.OutputPath)

	if section := sectionArg(r.Start, r.End); section != "" {
		args = append(args, "--download-sections", section, "--force-keyframes-at-cuts")
	}

	return append(args, strings.TrimSpace(r.URL))
}

// Extension returns the container the download will produce.
func (r DownloadRequest) Extension() string {
	if r.Mode == ModeAudioOnly {
		return "mp3"
	}
	return "mp4"
}

func height(quality string) int {
	h, err := strconv.Atoi(strings.TrimSuffix(strings.TrimSpace(quality), "p"))
	if err != nil || h <= 0 {
		return DefaultHeight
	}
	return h
}

// audioQuality maps presets to LAME VBR levels.
func audioQuality(quality string) string {
	switch quality {
	case "medium":
		return "5"
	case "low":
		return "9"
	default:
		return "0"
	}
}

func sectionArg(start, end *float64) string {
	switch {
	case start != nil && end != nil:
		return fmt.Sprintf("*%.2f-%.2f", *start, *end)
	case start != nil:
		return fmt.Sprintf("*%.2f-inf", *start)
	case end != nil:
		return fmt.Sprintf("*0-%.2f", *end)
	default:
		return ""
	}
}
