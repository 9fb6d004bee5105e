// Package ytdlp drives the yt-dlp command line tool: URL validation,
// metadata fetches and download job construction.
package ytdlp

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/jmylchreest/dlcut/internal/apperr"
	"github.com/jmylchreest/dlcut/internal/job"
	"github.com/jmylchreest/dlcut/internal/progress"
)

// BinaryName is the executable looked up by the resolver.
const BinaryName = "yt-dlp"

// ErrNotFound is returned when the downloader cannot be located.
var ErrNotFound = apperr.New(apperr.KindUnavailableTool, "yt-dlp not found. Please ensure yt-dlp is installed and in PATH")

// Resolver locates executables by name.
type Resolver interface {
	Resolve(name string) (string, error)
}

// Client builds and runs yt-dlp invocations.
type Client struct {
	resolver Resolver
	logger   *slog.Logger
}

// NewClient creates a client that looks the binary up on every call, so a
// freshly installed copy is picked up without a restart.
func NewClient(resolver Resolver, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{resolver: resolver, logger: logger.With("component", "ytdlp")}
}

func (c *Client) binary() (string, error) {
	path, err := c.resolver.Resolve(BinaryName)
	if err != nil {
		return "", apperr.Wrap(apperr.KindUnavailableTool, ErrNotFound.Message, err)
	}
	return path, nil
}

// Version runs "yt-dlp --version".
func (c *Client) Version(ctx context.Context) (string, error) {
	bin, err := c.binary()
	if err != nil {
		return "", err
	}
	res, err := job.Capture(ctx, job.Invocation{Program: bin, Args: []string{"--version"}})
	if err != nil {
		return "", apperr.Wrap(apperr.KindUnavailableTool, ErrNotFound.Message, err)
	}
	return strings.TrimSpace(string(res.Stdout)), nil
}

// FetchInfo retrieves metadata for url. It does not use the job slot, so it
// may run while a download is in progress.
func (c *Client) FetchInfo(ctx context.Context, url string, sink progress.Sink) (*VideoInfo, error) {
	if sink == nil {
		sink = progress.Discard
	}

	info, err := c.fetchInfo(ctx, url, sink)
	if err != nil {
		if !apperr.Is(err, apperr.KindCancelled) {
			sink.Publish(progress.Failure(apperr.Message(err)))
		}
		return nil, err
	}
	return info, nil
}

func (c *Client) fetchInfo(ctx context.Context, url string, sink progress.Sink) (*VideoInfo, error) {
	if err := ValidateURL(url); err != nil {
		return nil, err
	}
	bin, err := c.binary()
	if err != nil {
		return nil, err
	}

	sink.Publish(progress.Update{Stage: progress.StageFetching, Message: "Fetching video information..."})

	res, err := job.Capture(ctx, job.Invocation{Program: bin, Args: InfoArgs(url)})
	if err != nil {
		var exitErr *job.ExitError
		switch {
		case errors.As(err, &exitErr):
			line := exitErr.StderrLine()
			if line == "" {
				line = "Unknown error"
			}
			c.logger.Debug("metadata fetch failed", slog.String("url", url), slog.Any("stderr", exitErr.Result.Stderr))
			return nil, apperr.Wrap(apperr.KindProcessFailure, "Failed to fetch video information: yt-dlp error: "+line, err)
		case apperr.Is(err, apperr.KindCancelled):
			return nil, err
		case apperr.Is(err, apperr.KindUnavailableTool):
			return nil, apperr.Wrap(apperr.KindUnavailableTool, ErrNotFound.Message, err)
		default:
			return nil, apperr.Wrap(apperr.KindProcessFailure, "Failed to fetch video information: Failed to run yt-dlp", err)
		}
	}

	info, err := ParseInfo(res.Stdout)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindProcessFailure, "Failed to fetch video information: Failed to parse video info", err)
	}

	sink.Publish(progress.Update{Stage: progress.StageFetching, Percent: 100, Message: "Video information loaded"})
	c.logger.Debug("fetched video info",
		slog.String("id", info.ID),
		slog.Int("formats", len(info.Formats)),
		slog.Float64("duration", info.Duration),
	)
	return info, nil
}

// DownloadJob validates req and builds the supervised job for it.
func (c *Client) DownloadJob(req DownloadRequest) (job.Job, error) {
	if err := req.Validate(); err != nil {
		return job.Job{}, err
	}
	bin, err := c.binary()
	if err != nil {
		return job.Job{}, err
	}

	return job.Job{
		Kind:       job.KindDownload,
		OutputPath: req.OutputPath,
		Strategies: []job.Strategy{{
			Name:       "download",
			Invocation: job.Invocation{Program: bin, Args: req.Args()},
			Announce:   progress.Update{Stage: progress.StageDownloading, Message: "Starting download..."},
			Parser:     progress.DownloadParser{},
		}},
		Done:           progress.Update{Stage: progress.StageComplete, Percent: 100, Message: "Download complete!"},
		FailureMessage: "Download failed: Download failed",
	}, nil
}
