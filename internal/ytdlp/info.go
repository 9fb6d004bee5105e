package ytdlp

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/jmylchreest/dlcut/pkg/format"
)

const maxQualityOptions = 8

// VideoFormat is one selectable video stream.
type VideoFormat struct {
	FormatID       string   `json:"format_id"`
	Ext            string   `json:"ext"`
	Resolution     string   `json:"resolution"`
	FPS            *float64 `json:"fps,omitempty"`
	VCodec         string   `json:"vcodec,omitempty"`
	ACodec         string   `json:"acodec,omitempty"`
	Filesize       *uint64  `json:"filesize,omitempty"`
	FilesizeApprox string   `json:"filesize_approx,omitempty"`
	Quality        string   `json:"quality"`
	HasVideo       bool     `json:"has_video"`
	HasAudio       bool     `json:"has_audio"`
}

// Label returns a short description such as "1080p • avc1 • ~12.3 MB".
func (f VideoFormat) Label() string {
	parts := []string{f.Quality}
	if f.VCodec != "" && f.VCodec != "none" {
		parts = append(parts, f.VCodec)
	}
	if f.FilesizeApprox != "" {
		parts = append(parts, "~"+f.FilesizeApprox)
	}
	return strings.Join(parts, " • ")
}

// VideoQuality is a height the user can pick for video downloads.
type VideoQuality struct {
	Height         int    `json:"height"`
	Label          string `json:"label"`
	FilesizeApprox string `json:"filesize_approx,omitempty"`
}

// AudioQuality is a preset for audio-only downloads.
type AudioQuality struct {
	QualityID string `json:"quality_id"`
	Label     string `json:"label"`
	Bitrate   int    `json:"bitrate"`
}

// AudioQualities are fixed; the downloader picks the best source stream.
var AudioQualities = []AudioQuality{
	{QualityID: "high", Label: "High Quality (320kbps)", Bitrate: 320},
	{QualityID: "medium", Label: "Medium Quality (192kbps)", Bitrate: 192},
	{QualityID: "low", Label: "Low Quality (128kbps)", Bitrate: 128},
}

// VideoInfo is the metadata shown before a download.
type VideoInfo struct {
	ID             string         `json:"id"`
	Title          string         `json:"title"`
	Duration       float64        `json:"duration"`
	DurationString string         `json:"duration_string"`
	Thumbnail      string         `json:"thumbnail,omitempty"`
	Uploader       string         `json:"uploader,omitempty"`
	Formats        []VideoFormat  `json:"formats"`
	VideoQualities []VideoQuality `json:"video_qualities"`
	AudioQualities []AudioQuality `json:"audio_qualities"`
}

type rawFormat struct {
	FormatID       string   `json:"format_id"`
	Ext            string   `json:"ext"`
	Resolution     *string  `json:"resolution"`
	FPS            *float64 `json:"fps"`
	VCodec         *string  `json:"vcodec"`
	ACodec         *string  `json:"acodec"`
	Filesize       *uint64  `json:"filesize"`
	FilesizeApprox *uint64  `json:"filesize_approx"`
	FormatNote     *string  `json:"format_note"`
	Height         *int     `json:"height"`
	Width          *int     `json:"width"`
}

func (f rawFormat) hasVideo() bool {
	return f.VCodec != nil && *f.VCodec != "none"
}

func (f rawFormat) hasAudio() bool {
	return f.ACodec != nil && *f.ACodec != "none"
}

func (f rawFormat) size() *uint64 {
	if f.Filesize != nil {
		return f.Filesize
	}
	return f.FilesizeApprox
}

type rawInfo struct {
	ID        string      `json:"id"`
	Title     string      `json:"title"`
	Duration  *float64    `json:"duration"`
	Thumbnail *string     `json:"thumbnail"`
	Uploader  *string     `json:"uploader"`
	Formats   []rawFormat `json:"formats"`
}

// ParseInfo decodes the downloader's --dump-json output.
func ParseInfo(data []byte) (*VideoInfo, error) {
	var raw rawInfo
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding video info: %w", err)
	}

	var duration float64
	if raw.Duration != nil {
		duration = *raw.Duration
	}

	formats := make([]VideoFormat, 0, len(raw.Formats))
	for _, rf := range raw.Formats {
		if f, ok := convertFormat(rf); ok {
			formats = append(formats, f)
		}
	}

	return &VideoInfo{
		ID:             raw.ID,
		Title:          raw.Title,
		Duration:       duration,
		DurationString: format.Clock(duration),
		Thumbnail:      deref(raw.Thumbnail),
		Uploader:       deref(raw.Uploader),
		Formats:        filterFormats(formats),
		VideoQualities: videoQualities(raw.Formats),
		AudioQualities: append([]AudioQuality(nil), AudioQualities...),
	}, nil
}

// convertFormat keeps formats that carry video.
func convertFormat(rf rawFormat) (VideoFormat, bool) {
	if !rf.hasVideo() {
		return VideoFormat{}, false
	}

	resolution := "unknown"
	switch {
	case rf.Resolution != nil:
		resolution = *rf.Resolution
	case rf.Width != nil && rf.Height != nil:
		resolution = fmt.Sprintf("%dx%d", *rf.Width, *rf.Height)
	}

	quality := "unknown"
	switch {
	case rf.Height != nil:
		quality = fmt.Sprintf("%dp", *rf.Height)
	case rf.FormatNote != nil:
		quality = *rf.FormatNote
	}

	f := VideoFormat{
		FormatID:   rf.FormatID,
		Ext:        rf.Ext,
		Resolution: resolution,
		FPS:        rf.FPS,
		VCodec:     deref(rf.VCodec),
		ACodec:     deref(rf.ACodec),
		Filesize:   rf.size(),
		Quality:    quality,
		HasVideo:   true,
		HasAudio:   rf.hasAudio(),
	}
	if f.Filesize != nil {
		f.FilesizeApprox = format.Bytes(*f.Filesize)
	}
	return f, true
}

// filterFormats keeps the first format per quality label, highest first.
func filterFormats(formats []VideoFormat) []VideoFormat {
	sort.SliceStable(formats, func(i, j int) bool {
		return qualityHeight(formats[i].Quality) > qualityHeight(formats[j].Quality)
	})

	seen := make(map[string]bool)
	out := make([]VideoFormat, 0, maxQualityOptions)
	for _, f := range formats {
		if seen[f.Quality] {
			continue
		}
		seen[f.Quality] = true
		out = append(out, f)
		if len(out) == maxQualityOptions {
			break
		}
	}
	return out
}

// videoQualities lists unique video heights, highest first.
func videoQualities(raw []rawFormat) []VideoQuality {
	video := make([]rawFormat, 0, len(raw))
	for _, f := range raw {
		if f.hasVideo() && f.Height != nil {
			video = append(video, f)
		}
	}
	sort.SliceStable(video, func(i, j int) bool {
		return *video[i].Height > *video[j].Height
	})

	seen := make(map[int]bool)
	out := make([]VideoQuality, 0, maxQualityOptions)
	for _, f := range video {
		h := *f.Height
		if seen[h] {
			continue
		}
		seen[h] = true

		q := VideoQuality{Height: h, Label: fmt.Sprintf("%dp", h)}
		if size := f.size(); size != nil {
			q.FilesizeApprox = format.Bytes(*size)
		}
		out = append(out, q)
		if len(out) == maxQualityOptions {
			break
		}
	}
	return out
}

// qualityHeight extracts 1080 from "1080p"; anything else is 0.
func qualityHeight(quality string) int {
	h, err := strconv.Atoi(strings.TrimSuffix(quality, "p"))
	if err != nil {
		return 0
	}
	return h
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
