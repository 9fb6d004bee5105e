// Package ffmpeg builds ffmpeg invocations for cutting clips and reads media
// metadata through ffprobe.
package ffmpeg

import (
	"strconv"

	"github.com/jmylchreest/dlcut/internal/job"
)

// CommandBuilder builds ffmpeg invocations with a fluent API.
type CommandBuilder struct {
	binary     string
	globalArgs []string
	inputArgs  []string
	input      string
	outputArgs []string
	output     string
	logLevel   string
	overwrite  bool
}

// NewCommandBuilder creates a builder for the ffmpeg at ffmpegPath.
func NewCommandBuilder(ffmpegPath string) *CommandBuilder {
	return &CommandBuilder{binary: ffmpegPath}
}

// LogLevel sets -loglevel. Empty leaves ffmpeg's default.
func (b *CommandBuilder) LogLevel(level string) *CommandBuilder {
	b.logLevel = level
	return b
}

// HideBanner hides the ffmpeg banner.
func (b *CommandBuilder) HideBanner() *CommandBuilder {
	b.globalArgs = append(b.globalArgs, "-hide_banner")
	return b
}

// Overwrite enables output file overwriting.
func (b *CommandBuilder) Overwrite() *CommandBuilder {
	b.overwrite = true
	return b
}

// Seek positions the input before demuxing, which is fast for stream copy.
func (b *CommandBuilder) Seek(seconds float64) *CommandBuilder {
	b.inputArgs = append(b.inputArgs, "-ss", Seconds(seconds))
	return b
}

// Input sets the input file.
func (b *CommandBuilder) Input(input string) *CommandBuilder {
	b.input = input
	return b
}

// Duration limits the output length.
func (b *CommandBuilder) Duration(seconds float64) *CommandBuilder {
	b.outputArgs = append(b.outputArgs, "-t", Seconds(seconds))
	return b
}

// StreamCopy copies every stream without re-encoding.
func (b *CommandBuilder) StreamCopy() *CommandBuilder {
	b.outputArgs = append(b.outputArgs, "-c", "copy")
	return b
}

// VideoCodec sets the video codec.
func (b *CommandBuilder) VideoCodec(codec string) *CommandBuilder {
	b.outputArgs = append(b.outputArgs, "-c:v", codec)
	return b
}

// VideoPreset sets the encoder preset.
func (b *CommandBuilder) VideoPreset(preset string) *CommandBuilder {
	b.outputArgs = append(b.outputArgs, "-preset", preset)
	return b
}

// CRF sets the constant rate factor.
func (b *CommandBuilder) CRF(crf int) *CommandBuilder {
	b.outputArgs = append(b.outputArgs, "-crf", strconv.Itoa(crf))
	return b
}

// AudioCodec sets the audio codec.
func (b *CommandBuilder) AudioCodec(codec string) *CommandBuilder {
	b.outputArgs = append(b.outputArgs, "-c:a", codec)
	return b
}

// AudioBitrate sets the audio bitrate.
func (b *CommandBuilder) AudioBitrate(bitrate string) *CommandBuilder {
	b.outputArgs = append(b.outputArgs, "-b:a", bitrate)
	return b
}

// OutputArgs adds arbitrary output arguments.
func (b *CommandBuilder) OutputArgs(args ...string) *CommandBuilder {
	b.outputArgs = append(b.outputArgs, args...)
	return b
}

// ProgressToStdout makes ffmpeg write machine-readable progress to stdout.
func (b *CommandBuilder) ProgressToStdout() *CommandBuilder {
	b.outputArgs = append(b.outputArgs, "-progress", "pipe:1")
	return b
}

// Output sets the output file.
func (b *CommandBuilder) Output(output string) *CommandBuilder {
	b.output = output
	return b
}

// Args returns the argument list without the binary.
func (b *CommandBuilder) Args() []string {
	var args []string

	args = append(args, b.globalArgs...)
	if b.logLevel != "" {
		args = append(args, "-loglevel", b.logLevel)
	}
	if b.overwrite {
		args = append(args, "-y")
	}

	args = append(args, b.inputArgs...)
	args = append(args, "-i", b.input)
	args = append(args, b.outputArgs...)

	return append(args, b.output)
}

// Build returns the invocation.
func (b *CommandBuilder) Build() job.Invocation {
	return job.Invocation{Program: b.binary, Args: b.Args()}
}

// Seconds formats a time in seconds with millisecond precision.
func Seconds(s float64) string {
	return strconv.FormatFloat(s, 'f', 3, 64)
}
