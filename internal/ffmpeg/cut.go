package ffmpeg

import (
	"errors"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"strings"

	"github.com/jmylchreest/dlcut/internal/apperr"
	"github.com/jmylchreest/dlcut/internal/job"
	"github.com/jmylchreest/dlcut/internal/progress"
)

// Binary names looked up by the resolver.
const (
	FFmpegBinary  = "ffmpeg"
	FFprobeBinary = "ffprobe"
)

// Cut strategy names.
const (
	StrategyStreamCopy = "stream-copy"
	StrategyReencode   = "re-encode"
)

// ErrNotFound is returned when ffmpeg cannot be located.
var ErrNotFound = apperr.New(apperr.KindUnavailableTool, "ffmpeg not found. Please ensure ffmpeg is installed and in PATH")

// Resolver locates executables by name.
type Resolver interface {
	Resolve(name string) (string, error)
}

// CutRequest trims Input to [Start, End) seconds and writes Output.
type CutRequest struct {
	Input  string  `json:"input_path"`
	Output string  `json:"output_path"`
	Start  float64 `json:"start_time"`
	End    float64 `json:"end_time"`
}

// Length returns the clip length in seconds.
func (r CutRequest) Length() float64 {
	return r.End - r.Start
}

// Validate checks the request before anything is spawned.
func (r CutRequest) Validate() error {
	if strings.TrimSpace(r.Output) == "" {
		return apperr.New(apperr.KindInvalidInput, "Output path is required")
	}
	if r.Start < 0 || math.IsNaN(r.Start) || math.IsNaN(r.End) {
		return apperr.New(apperr.KindInvalidInput, "Invalid timestamp: start must not be negative")
	}
	if r.End <= r.Start {
		return apperr.New(apperr.KindInvalidInput, "Invalid timestamp: end must be after start")
	}
	if _, err := os.Stat(r.Input); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return apperr.Wrap(apperr.KindInvalidInput, "Failed to cut video: Input file not found", err)
		}
		return apperr.Wrap(apperr.KindIO, "Failed to cut video: Input file not readable", err)
	}
	return nil
}

// Cutter turns cut requests into supervised jobs.
type Cutter struct {
	resolver Resolver
	logger   *slog.Logger
}

// NewCutter creates a cutter.
func NewCutter(resolver Resolver, logger *slog.Logger) *Cutter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cutter{resolver: resolver, logger: logger.With("component", "ffmpeg_cutter")}
}

// CutJob builds a job that first tries a lossless stream copy and falls back
// to re-encoding when the copy fails.
func (c *Cutter) CutJob(req CutRequest) (job.Job, error) {
	if err := req.Validate(); err != nil {
		return job.Job{}, err
	}
	bin, err := c.resolver.Resolve(FFmpegBinary)
	if err != nil {
		return job.Job{}, apperr.Wrap(apperr.KindUnavailableTool, ErrNotFound.Message, err)
	}

	total := int64(req.Length() * 1_000_000)

	copyCmd := NewCommandBuilder(bin).
		Overwrite().
		Seek(req.Start).
		Input(req.Input).
		Duration(req.Length()).
		StreamCopy().
		OutputArgs("-avoid_negative_ts", "make_zero").
		ProgressToStdout().
		Output(req.Output)

	reencodeCmd := NewCommandBuilder(bin).
		Overwrite().
		Seek(req.Start).
		Input(req.Input).
		Duration(req.Length()).
		VideoCodec("libx264").
		VideoPreset("fast").
		CRF(23).
		AudioCodec("aac").
		AudioBitrate("128k").
		ProgressToStdout().
		Output(req.Output)

	c.logger.Debug("built cut job",
		slog.String("input", req.Input),
		slog.String("output", req.Output),
		slog.Float64("start", req.Start),
		slog.Float64("end", req.End),
	)

	return job.Job{
		Kind:       job.KindCut,
		OutputPath: req.Output,
		Strategies: []job.Strategy{
			{
				Name:       StrategyStreamCopy,
				Invocation: copyCmd.Build(),
				Announce:   progress.Update{Stage: progress.StageCutting, Message: "Starting video cut..."},
				Parser:     progress.CutParser{TotalMicros: total, Label: "Cutting video"},
			},
			{
				Name:       StrategyReencode,
				Invocation: reencodeCmd.Build(),
				Announce:   progress.Update{Stage: progress.StageCutting, Message: "Re-encoding video (this may take longer)..."},
				Parser:     progress.CutParser{TotalMicros: total, Label: "Re-encoding"},
			},
		},
		Done:           progress.Update{Stage: progress.StageComplete, Percent: 100, Message: "Cut complete!"},
		FailureMessage: "Failed to cut video: ffmpeg encoding failed",
	}, nil
}
