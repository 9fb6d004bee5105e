package deps

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"sync/atomic"

	"github.com/jmylchreest/dlcut/internal/apperr"
	"github.com/jmylchreest/dlcut/internal/progress"
	"github.com/jmylchreest/dlcut/pkg/httpclient"
)

// ErrInstallInProgress is returned when Install is called while another
// installation is running.
var ErrInstallInProgress = apperr.New(apperr.KindInvalidInput, "Dependency installation already in progress")

// Sources are the download URLs for the tools.
type Sources struct {
	YtDlp  string `json:"ytdlp_url"`
	FFmpeg string `json:"ffmpeg_url"`
}

// DefaultSources returns the release URLs for a platform.
func DefaultSources(goos, goarch string) Sources {
	switch goos {
	case "windows":
		return Sources{
			YtDlp:  "https://github.com/yt-dlp/yt-dlp/releases/latest/download/yt-dlp.exe",
			FFmpeg: "https://github.com/BtbN/FFmpeg-Builds/releases/download/latest/ffmpeg-master-latest-win64-gpl.zip",
		}
	case "darwin":
		return Sources{
			YtDlp:  "https://github.com/yt-dlp/yt-dlp/releases/latest/download/yt-dlp_macos",
			FFmpeg: "https://evermeet.cx/ffmpeg/getrelease/zip",
		}
	default:
		if goarch == "arm64" {
			return Sources{
				YtDlp:  "https://github.com/yt-dlp/yt-dlp/releases/latest/download/yt-dlp_linux_aarch64",
				FFmpeg: "https://johnvansickle.com/ffmpeg/releases/ffmpeg-release-arm64-static.tar.xz",
			}
		}
		return Sources{
			YtDlp:  "https://github.com/yt-dlp/yt-dlp/releases/latest/download/yt-dlp",
			FFmpeg: "https://johnvansickle.com/ffmpeg/releases/ffmpeg-release-amd64-static.tar.xz",
		}
	}
}

// Installer downloads missing tools into the resolver's bin directory.
type Installer struct {
	resolver *Resolver
	checker  *Checker
	client   *httpclient.Client
	sources  Sources
	logger   *slog.Logger

	running atomic.Bool
}

// InstallerOption configures an Installer.
type InstallerOption func(*Installer)

// WithSources overrides the download URLs. Empty fields keep the defaults.
func WithSources(s Sources) InstallerOption {
	return func(i *Installer) {
		if s.YtDlp != "" {
			i.sources.YtDlp = s.YtDlp
		}
		if s.FFmpeg != "" {
			i.sources.FFmpeg = s.FFmpeg
		}
	}
}

// WithHTTPClient sets the client used for downloads.
func WithHTTPClient(c *httpclient.Client) InstallerOption {
	return func(i *Installer) {
		if c != nil {
			i.client = c
		}
	}
}

// NewInstaller creates an installer for the current platform.
func NewInstaller(resolver *Resolver, checker *Checker, logger *slog.Logger, opts ...InstallerOption) *Installer {
	if logger == nil {
		logger = slog.Default()
	}
	cfg := httpclient.DefaultConfig()
	cfg.Timeout = 0
	cfg.Logger = logger

	i := &Installer{
		resolver: resolver,
		checker:  checker,
		client:   httpclient.New(cfg),
		sources:  DefaultSources(runtime.GOOS, runtime.GOARCH),
		logger:   logger.With("component", "deps_installer"),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Install downloads whichever tools are not already usable and reports
// progress to sink. yt-dlp covers 0-50% and ffmpeg 50-100%.
func (i *Installer) Install(ctx context.Context, sink progress.Sink) (Status, error) {
	if !i.running.CompareAndSwap(false, true) {
		return Status{}, ErrInstallInProgress
	}
	defer i.running.Store(false)

	return i.install(ctx, sink)
}

// InstallAsync starts Install in the background. It returns
// ErrInstallInProgress immediately if an install is already running.
func (i *Installer) InstallAsync(ctx context.Context, sink progress.Sink) error {
	if !i.running.CompareAndSwap(false, true) {
		return ErrInstallInProgress
	}
	go func() {
		defer i.running.Store(false)
		_, _ = i.install(ctx, sink)
	}()
	return nil
}

// Running reports whether an install is in progress.
func (i *Installer) Running() bool {
	return i.running.Load()
}

func (i *Installer) install(ctx context.Context, sink progress.Sink) (Status, error) {
	if sink == nil {
		sink = progress.Discard
	}

	before := i.checker.Status(ctx)
	if before.Ready {
		sink.Publish(progress.Update{Stage: progress.StageComplete, Percent: 100, Message: "All dependencies are already installed"})
		return before, nil
	}

	binDir := i.resolver.BinDir()
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		err = apperr.Wrap(apperr.KindIO, "Failed to create deps directory", err)
		sink.Publish(progress.Failure(err.Error()))
		return before, err
	}

	if !before.YtDlpInstalled {
		if err := i.installYtDlp(ctx, binDir, sink); err != nil {
			return i.fail(ctx, sink, err)
		}
	}
	if !before.FFmpegInstalled {
		if err := i.installFFmpeg(ctx, binDir, sink); err != nil {
			return i.fail(ctx, sink, err)
		}
	}

	after := i.checker.Status(ctx)
	if !after.Ready {
		return i.fail(ctx, sink, apperr.New(apperr.KindUnavailableTool, "Installed tools did not pass their version check"))
	}
	sink.Publish(progress.Update{Stage: progress.StageComplete, Percent: 100, Message: "Dependencies installed"})
	i.logger.Info("dependencies installed", slog.String("bin_dir", binDir), slog.Any("versions", after.Versions))
	return after, nil
}

func (i *Installer) fail(ctx context.Context, sink progress.Sink, err error) (Status, error) {
	if ctx.Err() != nil {
		err = apperr.Wrap(apperr.KindCancelled, "Operation cancelled", ctx.Err())
	} else {
		sink.Publish(progress.Failure(apperr.Message(err)))
	}
	i.logger.Warn("dependency installation failed", slog.String("error", apperr.Detail(err)))
	return i.checker.Status(context.WithoutCancel(ctx)), err
}

func (i *Installer) installYtDlp(ctx context.Context, binDir string, sink progress.Sink) error {
	target := filepath.Join(binDir, ExecutableName(YtDlp))

	const msg = "Downloading yt-dlp..."
	sink.Publish(progress.Update{Stage: progress.StageDownloading, Percent: 0, Message: msg})

	if err := i.download(ctx, i.sources.YtDlp, target, 0o755, sink, msg, 0, 50); err != nil {
		return apperr.Wrap(apperr.KindIO, "Failed to download yt-dlp", err)
	}

	sink.Publish(progress.Update{Stage: progress.StageDownloading, Percent: 50, Message: "yt-dlp ready!"})
	i.logger.Info("yt-dlp installed", slog.String("path", target))
	return nil
}

func (i *Installer) installFFmpeg(ctx context.Context, binDir string, sink progress.Sink) error {
	archive := filepath.Join(binDir, "ffmpeg-archive")
	defer os.Remove(archive)

	const msg = "Downloading ffmpeg..."
	sink.Publish(progress.Update{Stage: progress.StageDownloading, Percent: 50, Message: msg})

	if err := i.download(ctx, i.sources.FFmpeg, archive, 0o644, sink, msg, 50, 90); err != nil {
		return apperr.Wrap(apperr.KindIO, "Failed to download ffmpeg", err)
	}

	sink.Publish(progress.Update{Stage: progress.StageDownloading, Percent: 90, Message: "Extracting ffmpeg..."})

	written, err := extractTools(archive, binDir, []string{ExecutableName(FFmpeg), ExecutableName(FFprobe)})
	if err != nil {
		return apperr.Wrap(apperr.KindIO, "Failed to extract ffmpeg", err)
	}
	if !slices.Contains(written, ExecutableName(FFmpeg)) {
		return apperr.Wrap(apperr.KindIO, "Failed to extract ffmpeg", fmt.Errorf("%s: %w", FFmpeg, ErrToolNotInArchive))
	}

	sink.Publish(progress.Update{Stage: progress.StageDownloading, Percent: 100, Message: "ffmpeg ready!"})
	i.logger.Info("ffmpeg installed", slog.String("bin_dir", binDir), slog.Any("files", written))
	return nil
}

// download fetches url into path, mapping byte progress onto [from, to] percent.
// Updates are only published when the whole percent changes.
func (i *Installer) download(ctx context.Context, url, path string, mode os.FileMode, sink progress.Sink, msg string, from, to float64) error {
	last := math.Floor(from)
	return i.client.DownloadFile(ctx, url, path, mode, func(written, total int64) {
		if total <= 0 {
			return
		}
		p := from + (to-from)*float64(min(written, total))/float64(total)
		if math.Floor(p) <= last {
			return
		}
		last = math.Floor(p)
		sink.Publish(progress.Update{Stage: progress.StageDownloading, Percent: last, Message: msg})
	})
}
