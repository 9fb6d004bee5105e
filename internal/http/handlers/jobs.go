package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/jmylchreest/dlcut/internal/ffmpeg"
	"github.com/jmylchreest/dlcut/internal/job"
	"github.com/jmylchreest/dlcut/internal/service"
	"github.com/jmylchreest/dlcut/internal/ytdlp"
)

// JobHandler starts, inspects and cancels supervised jobs.
type JobHandler struct {
	downloads *service.DownloadService
}

// NewJobHandler creates a new job handler.
func NewJobHandler(downloads *service.DownloadService) *JobHandler {
	return &JobHandler{downloads: downloads}
}

// JobStartedResponse is returned when a job has been accepted.
type JobStartedResponse struct {
	ID         string    `json:"id" doc:"Job ID (ULID)"`
	Kind       job.Kind  `json:"kind"`
	StartedAt  time.Time `json:"started_at"`
	OutputPath string    `json:"output_path"`
}

// JobStartedOutput is the output for job creation endpoints.
type JobStartedOutput struct {
	Body JobStartedResponse
}

// StartDownloadInput is the input for starting a download.
type StartDownloadInput struct {
	Body struct {
		URL        string     `json:"url" doc:"YouTube video URL"`
		Quality    string     `json:"quality,omitempty" doc:"Video height such as 720, or high, medium, low for audio" example:"1080"`
		Mode       ytdlp.Mode `json:"mode,omitempty" enum:"video_with_audio,audio_only" doc:"What to download"`
		OutputPath string     `json:"output_path" doc:"Output file. Relative paths are placed in the download directory."`
		StartTime  *float64   `json:"start_time,omitempty" doc:"Section start in seconds" minimum:"0"`
		EndTime    *float64   `json:"end_time,omitempty" doc:"Section end in seconds"`
	}
}

// StartCutInput is the input for cutting a local file.
type StartCutInput struct {
	Body struct {
		InputPath  string  `json:"input_path" doc:"Source media file"`
		OutputPath string  `json:"output_path" doc:"Output file. Relative paths are placed in the download directory."`
		StartTime  float64 `json:"start_time" doc:"Clip start in seconds" minimum:"0"`
		EndTime    float64 `json:"end_time" doc:"Clip end in seconds"`
	}
}

// ActiveJobInput is the input for the active job endpoints.
type ActiveJobInput struct{}

// ActiveJobOutput is the output for the active job endpoint.
type ActiveJobOutput struct {
	Body job.Status
}

// Register registers the job routes with the API.
func (h *JobHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID:   "startDownload",
		Method:        "POST",
		Path:          "/api/v1/jobs/download",
		Summary:       "Start download",
		Description:   "Starts a yt-dlp download. Only one job runs at a time.",
		Tags:          []string{"Jobs"},
		DefaultStatus: http.StatusAccepted,
	}, h.StartDownload)

	huma.Register(api, huma.Operation{
		OperationID:   "startCut",
		Method:        "POST",
		Path:          "/api/v1/jobs/cut",
		Summary:       "Start cut",
		Description:   "Cuts a local file with ffmpeg, re-encoding when a stream copy fails.",
		Tags:          []string{"Jobs"},
		DefaultStatus: http.StatusAccepted,
	}, h.StartCut)

	huma.Register(api, huma.Operation{
		OperationID: "getActiveJob",
		Method:      "GET",
		Path:        "/api/v1/jobs/active",
		Summary:     "Active job",
		Description: "Returns the running job with its last progress update",
		Tags:        []string{"Jobs"},
	}, h.GetActive)

	huma.Register(api, huma.Operation{
		OperationID: "cancelActiveJob",
		Method:      "DELETE",
		Path:        "/api/v1/jobs/active",
		Summary:     "Cancel active job",
		Description: "Kills the running job. Partial output is left on disk.",
		Tags:        []string{"Jobs"},
	}, h.CancelActive)
}

// StartDownload starts a download job.
func (h *JobHandler) StartDownload(ctx context.Context, input *StartDownloadInput) (*JobStartedOutput, error) {
	req := ytdlp.DownloadRequest{
		URL:        input.Body.URL,
		Quality:    input.Body.Quality,
		Mode:       input.Body.Mode,
		OutputPath: input.Body.OutputPath,
		Start:      input.Body.StartTime,
		End:        input.Body.EndTime,
	}
	handle, err := h.downloads.StartDownload(ctx, req, nil)
	if err != nil {
		return nil, toHumaError(err)
	}
	return started(handle), nil
}

// StartCut starts a cut job.
func (h *JobHandler) StartCut(ctx context.Context, input *StartCutInput) (*JobStartedOutput, error) {
	req := ffmpeg.CutRequest{
		Input:  input.Body.InputPath,
		Output: input.Body.OutputPath,
		Start:  input.Body.StartTime,
		End:    input.Body.EndTime,
	}
	handle, err := h.downloads.StartCut(ctx, req, nil)
	if err != nil {
		return nil, toHumaError(err)
	}
	return started(handle), nil
}

// GetActive returns the running job.
func (h *JobHandler) GetActive(ctx context.Context, input *ActiveJobInput) (*ActiveJobOutput, error) {
	st, ok := h.downloads.Active()
	if !ok {
		return nil, toHumaError(job.ErrNothingRunning)
	}
	return &ActiveJobOutput{Body: st}, nil
}

// CancelActive cancels the running job.
func (h *JobHandler) CancelActive(ctx context.Context, input *ActiveJobInput) (*struct{}, error) {
	if err := h.downloads.Cancel(); err != nil {
		return nil, toHumaError(err)
	}
	return nil, nil
}

func started(h *job.Handle) *JobStartedOutput {
	return &JobStartedOutput{Body: JobStartedResponse{
		ID:         h.ID,
		Kind:       h.Kind,
		StartedAt:  h.StartedAt,
		OutputPath: h.OutputPath,
	}}
}
