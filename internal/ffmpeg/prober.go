package ffmpeg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jmylchreest/dlcut/internal/apperr"
	"github.com/jmylchreest/dlcut/internal/job"
)

// ProbeResult is the subset of ffprobe JSON output that is used.
type ProbeResult struct {
	Format ProbeFormat `json:"format"`
}

// ProbeFormat contains container format information.
type ProbeFormat struct {
	Filename   string `json:"filename"`
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	BitRate    string `json:"bit_rate"`
}

// Seconds parses the container duration.
func (f ProbeFormat) Seconds() (float64, error) {
	d, err := strconv.ParseFloat(strings.TrimSpace(f.Duration), 64)
	if err != nil {
		return 0, fmt.Errorf("parsing duration %q: %w", f.Duration, err)
	}
	return d, nil
}

// Prober reads media metadata with ffprobe, falling back to ffmpeg's own
// input banner when ffprobe is not installed.
type Prober struct {
	resolver Resolver
	timeout  time.Duration
	logger   *slog.Logger
}

// NewProber creates a prober.
func NewProber(resolver Resolver, logger *slog.Logger) *Prober {
	if logger == nil {
		logger = slog.Default()
	}
	return &Prober{
		resolver: resolver,
		timeout:  30 * time.Second,
		logger:   logger.With("component", "ffmpeg_prober"),
	}
}

// WithTimeout sets the probe timeout.
func (p *Prober) WithTimeout(timeout time.Duration) *Prober {
	p.timeout = timeout
	return p
}

// Probe runs ffprobe on path.
func (p *Prober) Probe(ctx context.Context, path string) (*ProbeResult, error) {
	bin, err := p.resolver.Resolve(FFprobeBinary)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnavailableTool, "ffprobe not found", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	res, err := job.Capture(ctx, job.Invocation{
		Program: bin,
		Args:    []string{"-v", "error", "-show_format", "-of", "json", path},
	})
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, apperr.Wrap(apperr.KindProcessFailure, "Failed to read media duration", fmt.Errorf("probe timeout after %v", p.timeout))
		}
		return nil, err
	}

	var result ProbeResult
	if err := json.Unmarshal(res.Stdout, &result); err != nil {
		return nil, fmt.Errorf("parsing ffprobe output: %w", err)
	}
	return &result, nil
}

// Duration returns the media length of path in seconds.
func (p *Prober) Duration(ctx context.Context, path string) (float64, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, apperr.Wrap(apperr.KindInvalidInput, "Input file not found", err)
		}
		return 0, apperr.Wrap(apperr.KindIO, "Input file not readable", err)
	}

	result, err := p.Probe(ctx, path)
	switch {
	case err == nil:
		d, perr := result.Format.Seconds()
		if perr != nil {
			return 0, apperr.Wrap(apperr.KindProcessFailure, "Failed to read media duration", perr)
		}
		return d, nil
	case apperr.Is(err, apperr.KindUnavailableTool):
		p.logger.Debug("ffprobe unavailable, reading duration from ffmpeg", slog.String("path", path))
		return p.durationFromFFmpeg(ctx, path)
	case apperr.Is(err, apperr.KindCancelled):
		return 0, err
	default:
		return 0, apperr.Wrap(apperr.KindProcessFailure, "Failed to read media duration", err)
	}
}

// durationFromFFmpeg runs "ffmpeg -i <path>", which exits non-zero because no
// output is given but still prints the input's Duration line.
func (p *Prober) durationFromFFmpeg(ctx context.Context, path string) (float64, error) {
	bin, err := p.resolver.Resolve(FFmpegBinary)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindUnavailableTool, ErrNotFound.Message, err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	res, err := job.Capture(ctx, job.Invocation{Program: bin, Args: []string{"-hide_banner", "-i", path}})
	var exitErr *job.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return 0, err
	}

	if d, ok := ParseDurationLine(res.Stderr); ok {
		return d, nil
	}
	return 0, apperr.New(apperr.KindProcessFailure, "Failed to read media duration")
}

var durationLine = regexp.MustCompile(`Duration:\s*(\d+):(\d{2}):(\d{2}(?:\.\d+)?)`)

// ParseDurationLine finds "Duration: HH:MM:SS.xx" in ffmpeg's stderr.
func ParseDurationLine(lines []string) (float64, bool) {
	for _, line := range lines {
		m := durationLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		h, _ := strconv.ParseFloat(m[1], 64)
		mins, _ := strconv.ParseFloat(m[2], 64)
		secs, _ := strconv.ParseFloat(m[3], 64)
		return h*3600 + mins*60 + secs, true
	}
	return 0, false
}
