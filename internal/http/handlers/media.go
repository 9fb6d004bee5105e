package handlers

import (
	"context"
	"path/filepath"

	"github.com/danielgtaylor/huma/v2"

	"github.com/jmylchreest/dlcut/internal/service"
	"github.com/jmylchreest/dlcut/internal/ytdlp"
	"github.com/jmylchreest/dlcut/pkg/format"
)

// MediaHandler serves metadata, validation and probing endpoints.
type MediaHandler struct {
	downloads *service.DownloadService
}

// NewMediaHandler creates a new media handler.
func NewMediaHandler(downloads *service.DownloadService) *MediaHandler {
	return &MediaHandler{downloads: downloads}
}

// VideoInfoInput is the input for fetching video info.
type VideoInfoInput struct {
	URL string `query:"url" required:"true" doc:"YouTube video URL"`
}

// VideoInfoOutput is the output for fetching video info.
type VideoInfoOutput struct {
	Body *ytdlp.VideoInfo
}

// ValidateTimestampsInput is the input for timestamp validation.
type ValidateTimestampsInput struct {
	Body struct {
		Start    *string `json:"start,omitempty" doc:"Start timestamp (SS, MM:SS or HH:MM:SS)" example:"0:30"`
		End      *string `json:"end,omitempty" doc:"End timestamp (SS, MM:SS or HH:MM:SS)" example:"1:30"`
		Duration float64 `json:"duration" doc:"Video duration in seconds" minimum:"0"`
	}
}

// ValidateTimestampsOutput is the output for timestamp validation.
type ValidateTimestampsOutput struct {
	Body struct {
		StartTime *float64 `json:"start_time,omitempty"`
		EndTime   *float64 `json:"end_time,omitempty"`
	}
}

// FilenameInput is the input for filename generation.
type FilenameInput struct {
	Body struct {
		Title     string `json:"title" doc:"Video title"`
		Extension string `json:"ext" doc:"File extension" example:"mp4"`
	}
}

// FilenameOutput is the output for filename generation.
type FilenameOutput struct {
	Body struct {
		Filename  string `json:"filename"`
		OutputDir string `json:"output_dir,omitempty"`
		Path      string `json:"path,omitempty"`
	}
}

// DurationInput is the input for duration probing.
type DurationInput struct {
	Path string `query:"path" required:"true" doc:"Local media file path"`
}

// DurationOutput is the output for duration probing.
type DurationOutput struct {
	Body struct {
		Path      string  `json:"path"`
		Duration  float64 `json:"duration"`
		Formatted string  `json:"formatted"`
	}
}

// Register registers the media routes with the API.
func (h *MediaHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "getVideoInfo",
		Method:      "GET",
		Path:        "/api/v1/info",
		Summary:     "Fetch video info",
		Description: "Fetches title, duration and available qualities with yt-dlp",
		Tags:        []string{"Media"},
	}, h.GetVideoInfo)

	huma.Register(api, huma.Operation{
		OperationID: "validateTimestamps",
		Method:      "POST",
		Path:        "/api/v1/timestamps/validate",
		Summary:     "Validate timestamps",
		Description: "Parses start and end timestamps and checks them against the video duration",
		Tags:        []string{"Media"},
	}, h.ValidateTimestamps)

	huma.Register(api, huma.Operation{
		OperationID: "generateFilename",
		Method:      "POST",
		Path:        "/api/v1/filename",
		Summary:     "Generate filename",
		Description: "Builds a filesystem-safe file name from a video title",
		Tags:        []string{"Media"},
	}, h.GenerateFilename)

	huma.Register(api, huma.Operation{
		OperationID: "getMediaDuration",
		Method:      "GET",
		Path:        "/api/v1/media/duration",
		Summary:     "Probe duration",
		Description: "Returns the length of a local media file",
		Tags:        []string{"Media"},
	}, h.GetDuration)
}

// GetVideoInfo fetches video metadata.
func (h *MediaHandler) GetVideoInfo(ctx context.Context, input *VideoInfoInput) (*VideoInfoOutput, error) {
	info, err := h.downloads.FetchInfo(ctx, input.URL)
	if err != nil {
		return nil, toHumaError(err)
	}
	return &VideoInfoOutput{Body: info}, nil
}

// ValidateTimestamps checks a start/end pair.
func (h *MediaHandler) ValidateTimestamps(ctx context.Context, input *ValidateTimestampsInput) (*ValidateTimestampsOutput, error) {
	start, end, err := service.ValidateTimestamps(input.Body.Start, input.Body.End, input.Body.Duration)
	if err != nil {
		return nil, toHumaError(err)
	}
	out := &ValidateTimestampsOutput{}
	out.Body.StartTime = start
	out.Body.EndTime = end
	return out, nil
}

// GenerateFilename sanitizes a title into a file name.
func (h *MediaHandler) GenerateFilename(ctx context.Context, input *FilenameInput) (*FilenameOutput, error) {
	out := &FilenameOutput{}
	out.Body.Filename = service.GenerateFilename(input.Body.Title, input.Body.Extension)
	if dir := h.downloads.OutputDir(); dir != "" {
		out.Body.OutputDir = dir
		out.Body.Path = filepath.Join(dir, out.Body.Filename)
	}
	return out, nil
}

// GetDuration probes a local file.
func (h *MediaHandler) GetDuration(ctx context.Context, input *DurationInput) (*DurationOutput, error) {
	d, err := h.downloads.ProbeDuration(ctx, input.Path)
	if err != nil {
		return nil, toHumaError(err)
	}
	out := &DurationOutput{}
	out.Body.Path = input.Path
	out.Body.Duration = d
	out.Body.Formatted = format.Clock(d)
	return out, nil
}
