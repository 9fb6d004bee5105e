package deps

import (
	"context"
	"log/slog"
	"sync"

	"github.com/jmylchreest/dlcut/internal/ffmpeg"
	"github.com/jmylchreest/dlcut/internal/ytdlp"
)

// Status reports which tools are usable.
type Status struct {
	YtDlpInstalled  bool              `json:"ytdlp_installed"`
	FFmpegInstalled bool              `json:"ffmpeg_installed"`
	Ready           bool              `json:"ready"`
	Versions        map[string]string `json:"versions,omitempty"`
	Paths           map[string]string `json:"paths,omitempty"`
}

// Checker probes tools by running them with their version flag.
type Checker struct {
	resolver *Resolver
	ytdlp    *ytdlp.Client
	logger   *slog.Logger
}

// NewChecker creates a checker.
func NewChecker(resolver *Resolver, logger *slog.Logger) *Checker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{
		resolver: resolver,
		ytdlp:    ytdlp.NewClient(resolver, logger),
		logger:   logger.With("component", "deps_checker"),
	}
}

// Status runs both version checks concurrently. A tool counts as installed
// only if it resolves and its version command succeeds.
func (c *Checker) Status(ctx context.Context) Status {
	st := Status{Versions: map[string]string{}, Paths: map[string]string{}}
	var mu sync.Mutex
	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		v, err := c.ytdlp.Version(ctx)
		if err != nil {
			c.logger.Debug("yt-dlp unavailable", slog.String("error", err.Error()))
			return
		}
		path, _ := c.resolver.Resolve(YtDlp)
		mu.Lock()
		st.YtDlpInstalled = true
		st.Versions[YtDlp] = v
		st.Paths[YtDlp] = path
		mu.Unlock()
	}()
	go func() {
		defer wg.Done()
		path, err := c.resolver.Resolve(FFmpeg)
		if err != nil {
			c.logger.Debug("ffmpeg not found", slog.String("error", err.Error()))
			return
		}
		v, err := ffmpeg.DetectVersion(ctx, path)
		if err != nil {
			c.logger.Debug("ffmpeg unavailable", slog.String("error", err.Error()))
			return
		}
		mu.Lock()
		st.FFmpegInstalled = true
		st.Versions[FFmpeg] = v.Full
		st.Paths[FFmpeg] = path
		mu.Unlock()
	}()
	wg.Wait()

	st.Ready = st.YtDlpInstalled && st.FFmpegInstalled
	return st
}
