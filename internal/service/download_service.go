// Package service composes the supervisor, the tool clients and the progress
// hub into the operations exposed by the CLI and the control API.
package service

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/oklog/ulid/v2"

	"github.com/jmylchreest/dlcut/internal/ffmpeg"
	"github.com/jmylchreest/dlcut/internal/job"
	"github.com/jmylchreest/dlcut/internal/observability"
	"github.com/jmylchreest/dlcut/internal/progress"
	"github.com/jmylchreest/dlcut/internal/ytdlp"
)

// DownloadService runs metadata fetches, downloads and cuts.
type DownloadService struct {
	ytdlp      *ytdlp.Client
	cutter     *ffmpeg.Cutter
	prober     *ffmpeg.Prober
	supervisor *job.Supervisor
	hub        *progress.Hub
	outputDir  string
	quality    string
	mode       ytdlp.Mode
	logger     *slog.Logger
}

// NewDownloadService creates a new DownloadService.
func NewDownloadService(
	yt *ytdlp.Client,
	cutter *ffmpeg.Cutter,
	prober *ffmpeg.Prober,
	supervisor *job.Supervisor,
	hub *progress.Hub,
) *DownloadService {
	return &DownloadService{
		ytdlp:      yt,
		cutter:     cutter,
		prober:     prober,
		supervisor: supervisor,
		hub:        hub,
		logger:     slog.Default(),
	}
}

// WithLogger sets a custom logger.
func (s *DownloadService) WithLogger(logger *slog.Logger) *DownloadService {
	s.logger = observability.WithComponent(logger, "download_service")
	return s
}

// WithOutputDir sets the directory relative output paths are placed in.
func (s *DownloadService) WithOutputDir(dir string) *DownloadService {
	s.outputDir = dir
	return s
}

// WithDefaults sets the quality and mode used when a request leaves them empty.
func (s *DownloadService) WithDefaults(quality string, mode ytdlp.Mode) *DownloadService {
	s.quality = quality
	s.mode = mode
	return s
}

// OutputDir returns the directory used for relative output paths.
func (s *DownloadService) OutputDir() string {
	return DefaultDownloadDir(s.outputDir)
}

// FetchInfo retrieves video metadata. Progress is broadcast as a fetch job
// but the active-job slot is not taken.
func (s *DownloadService) FetchInfo(ctx context.Context, url string) (info *ytdlp.VideoInfo, err error) {
	id := ulid.Make().String()
	logger := observability.WithJob(s.logger, id, string(job.KindFetch))

	done := observability.TimedOperationWithError(ctx, logger, "fetch_info", &err)
	defer done()

	return s.ytdlp.FetchInfo(ctx, url, s.sink(id, job.KindFetch, nil))
}

// StartDownload validates req and starts the download in the background.
// The job outlives ctx's cancellation; use Cancel to stop it.
func (s *DownloadService) StartDownload(ctx context.Context, req ytdlp.DownloadRequest, extra progress.Sink) (*job.Handle, error) {
	req.OutputPath = s.resolveOutput(req.OutputPath)
	if req.Quality == "" {
		req.Quality = s.quality
	}
	if req.Mode == "" {
		req.Mode = s.mode
	}

	j, err := s.ytdlp.DownloadJob(req)
	if err != nil {
		return nil, err
	}
	return s.start(ctx, j, extra)
}

// StartCut validates req and starts the cut in the background.
func (s *DownloadService) StartCut(ctx context.Context, req ffmpeg.CutRequest, extra progress.Sink) (*job.Handle, error) {
	req.Output = s.resolveOutput(req.Output)

	j, err := s.cutter.CutJob(req)
	if err != nil {
		return nil, err
	}
	return s.start(ctx, j, extra)
}

func (s *DownloadService) start(ctx context.Context, j job.Job, extra progress.Sink) (*job.Handle, error) {
	j.ID = ulid.Make().String()
	jobCtx := context.WithoutCancel(ctx)

	h, err := s.supervisor.Start(jobCtx, j, s.sink(j.ID, j.Kind, extra))
	if err != nil {
		return nil, err
	}

	logger := observability.WithJob(s.logger, h.ID, string(h.Kind))
	logger.Info("job started", slog.String("output", j.OutputPath))

	go func() {
		var err error
		done := observability.TimedOperationWithError(jobCtx, logger, string(h.Kind), &err)
		defer done()
		_, err = h.Wait()
	}()

	return h, nil
}

// Cancel stops the active job and announces the cancellation on the hub.
func (s *DownloadService) Cancel() error {
	st, _ := s.supervisor.Active()
	if err := s.supervisor.CancelActive(); err != nil {
		return err
	}
	if s.hub != nil && st.ID != "" {
		s.hub.Cancelled(st.ID, string(st.Kind))
	}
	return nil
}

// Active reports the running job, if any.
func (s *DownloadService) Active() (job.Status, bool) {
	return s.supervisor.Active()
}

// ProbeDuration returns the length of a local media file in seconds.
func (s *DownloadService) ProbeDuration(ctx context.Context, path string) (d float64, err error) {
	done := observability.TimedOperationWithError(ctx, s.logger, "probe_duration", &err)
	defer done()
	return s.prober.Duration(ctx, path)
}

// sink fans a job's updates out to the hub and an optional extra sink.
func (s *DownloadService) sink(id string, kind job.Kind, extra progress.Sink) progress.Sink {
	var sinks []progress.Sink
	if s.hub != nil {
		sinks = append(sinks, s.hub.JobSink(id, string(kind)))
	}
	if extra != nil {
		sinks = append(sinks, extra)
	}
	switch len(sinks) {
	case 0:
		return progress.Discard
	case 1:
		return sinks[0]
	}
	return progress.SinkFunc(func(u progress.Update) {
		for _, sk := range sinks {
			sk.Publish(u)
		}
	})
}

func (s *DownloadService) resolveOutput(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	dir := s.OutputDir()
	if dir == "" {
		return path
	}
	return filepath.Join(dir, path)
}
