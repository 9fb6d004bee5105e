package cmd

import (
	"fmt"
	"log/slog"

	"github.com/jmylchreest/dlcut/internal/config"
	"github.com/jmylchreest/dlcut/internal/deps"
	"github.com/jmylchreest/dlcut/internal/ffmpeg"
	"github.com/jmylchreest/dlcut/internal/fileserver"
	"github.com/jmylchreest/dlcut/internal/job"
	"github.com/jmylchreest/dlcut/internal/progress"
	"github.com/jmylchreest/dlcut/internal/service"
	"github.com/jmylchreest/dlcut/internal/version"
	"github.com/jmylchreest/dlcut/internal/ytdlp"
	"github.com/jmylchreest/dlcut/pkg/httpclient"
)

// app holds the components shared by the CLI commands and the server.
type app struct {
	cfg        *config.Config
	logger     *slog.Logger
	resolver   *deps.Resolver
	checker    *deps.Checker
	installer  *deps.Installer
	supervisor *job.Supervisor
	hub        *progress.Hub
	downloads  *service.DownloadService
	previews   *service.PreviewService
}

// newApp wires every component from cfg.
func newApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	binDir := cfg.Binaries.BinDir
	if binDir == "" {
		dir, err := deps.DefaultBinDir()
		if err != nil {
			return nil, fmt.Errorf("locating deps directory: %w", err)
		}
		binDir = dir
	}

	resolver := deps.NewResolver(binDir, cfg.Binaries.Overrides(), logger)
	checker := deps.NewChecker(resolver, logger)

	httpCfg := httpclient.DefaultConfig()
	httpCfg.Timeout = 0
	httpCfg.RetryAttempts = cfg.Install.RetryAttempts
	httpCfg.UserAgent = version.UserAgent()
	httpCfg.Logger = logger

	installer := deps.NewInstaller(resolver, checker, logger,
		deps.WithSources(deps.Sources{YtDlp: cfg.Install.YtDlpURL, FFmpeg: cfg.Install.FFmpegURL}),
		deps.WithHTTPClient(httpclient.New(httpCfg)),
	)

	supervisor := job.NewSupervisor(
		job.WithLogger(logger),
		job.WithProgressBuffer(cfg.Jobs.ProgressBuffer),
		job.WithStderrLines(cfg.Jobs.StderrLines),
		job.WithWaitDelay(cfg.Jobs.WaitDelay),
		job.WithSampleInterval(cfg.Jobs.SampleInterval),
	)

	hub := progress.NewHub(logger)

	prober := ffmpeg.NewProber(resolver, logger)
	if cfg.Jobs.ProbeTimeout > 0 {
		prober = prober.WithTimeout(cfg.Jobs.ProbeTimeout)
	}

	downloads := service.NewDownloadService(
		ytdlp.NewClient(resolver, logger),
		ffmpeg.NewCutter(resolver, logger),
		prober,
		supervisor,
		hub,
	).
		WithLogger(logger).
		WithOutputDir(cfg.Downloads.OutputDir).
		WithDefaults(fmt.Sprint(cfg.Downloads.DefaultQuality), ytdlp.Mode(cfg.Downloads.DefaultMode))

	previews := service.NewPreviewService(
		fileserver.WithChunkSize(int(cfg.Preview.ChunkSize.Bytes())),
		fileserver.WithReadBufferSize(int(cfg.Preview.ReadBufferSize.Bytes())),
	).WithLogger(logger)

	return &app{
		cfg:        cfg,
		logger:     logger,
		resolver:   resolver,
		checker:    checker,
		installer:  installer,
		supervisor: supervisor,
		hub:        hub,
		downloads:  downloads,
		previews:   previews,
	}, nil
}

// cleanupDirs returns the directories swept for partial downloads.
func (a *app) cleanupDirs() []string {
	if len(a.cfg.Cleanup.Dirs) > 0 {
		return a.cfg.Cleanup.Dirs
	}
	if dir := a.downloads.OutputDir(); dir != "" {
		return []string{dir}
	}
	return nil
}
