package job

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/jmylchreest/dlcut/internal/apperr"
	"github.com/jmylchreest/dlcut/internal/progress"
)

// defaultWaitDelay bounds how long Wait keeps copying output after the
// process has exited or been killed.
const defaultWaitDelay = 5 * time.Second

// stderrTail keeps the last max lines written to it.
type stderrTail struct {
	mu      sync.Mutex
	max     int
	lines   []string
	partial []byte
}

func newStderrTail(max int) *stderrTail {
	if max <= 0 {
		max = 100
	}
	return &stderrTail{max: max, lines: make([]string, 0, max)}
}

func (t *stderrTail) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	data := append(t.partial, p...)
	for {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			break
		}
		t.push(progress.DecodeLine(data[:i]))
		data = data[i+1:]
	}
	t.partial = append(t.partial[:0], data...)
	return len(p), nil
}

func (t *stderrTail) push(line string) {
	if line == "" {
		return
	}
	if len(t.lines) >= t.max {
		t.lines = t.lines[1:]
	}
	t.lines = append(t.lines, line)
}

// Lines returns a copy of the retained lines, including an unterminated last line.
func (t *stderrTail) Lines() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	lines := make([]string, len(t.lines), len(t.lines)+1)
	copy(lines, t.lines)
	if len(t.partial) > 0 {
		lines = append(lines, progress.DecodeLine(t.partial))
	}
	return lines
}

// FirstLine returns the first non-empty retained line.
func (t *stderrTail) FirstLine() string {
	return firstNonEmpty(t.Lines())
}

func newCommand(ctx context.Context, inv Invocation, waitDelay time.Duration) *exec.Cmd {
	cmd := exec.CommandContext(ctx, inv.Program, inv.Args...)
	cmd.Dir = inv.Dir
	if len(inv.Env) > 0 {
		cmd.Env = append(os.Environ(), inv.Env...)
	}
	cmd.Stdin = nil
	cmd.WaitDelay = waitDelay
	hideWindow(cmd)
	return cmd
}

// spawnError classifies a failure to start a process.
func spawnError(message string, err error) error {
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
		return apperr.Wrap(apperr.KindUnavailableTool, message, err)
	}
	return apperr.Wrap(apperr.KindIO, message, err)
}

// pumpLines reads r until EOF, handing each decoded line to fn. Lines have no
// length limit. fn is skipped once ctx is done but the reader keeps draining
// so the writer side never blocks.
func pumpLines(ctx context.Context, r io.Reader, fn func(string)) error {
	br := bufio.NewReader(r)
	for {
		raw, err := br.ReadBytes('\n')
		if len(raw) > 0 && ctx.Err() == nil {
			fn(progress.DecodeLine(raw))
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

// CaptureResult is the output of a short-lived process.
type CaptureResult struct {
	Stdout   []byte
	Stderr   []string
	ExitCode int
}

// Capture runs inv to completion outside the job slot and returns its output.
// A non-zero exit is reported as a process failure carrying the result.
func Capture(ctx context.Context, inv Invocation) (*CaptureResult, error) {
	var stdout bytes.Buffer
	tail := newStderrTail(100)

	cmd := newCommand(ctx, inv, defaultWaitDelay)
	cmd.Stdout = &stdout
	cmd.Stderr = tail

	if err := cmd.Start(); err != nil {
		return nil, spawnError("Failed to start "+inv.Program, err)
	}
	err := cmd.Wait()

	result := &CaptureResult{
		Stdout:   stdout.Bytes(),
		Stderr:   tail.Lines(),
		ExitCode: cmd.ProcessState.ExitCode(),
	}

	switch {
	case err == nil:
		return result, nil
	case ctx.Err() != nil:
		return result, apperr.Wrap(apperr.KindCancelled, "Operation cancelled", ctx.Err())
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return result, &ExitError{Result: result, Err: err}
		}
		return result, apperr.Wrap(apperr.KindIO, "Failed to read process output", err)
	}
}

// ExitError reports a captured process that exited non-zero.
type ExitError struct {
	Result *CaptureResult
	Err    error
}

func (e *ExitError) Error() string {
	if line := firstNonEmpty(e.Result.Stderr); line != "" {
		return line
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// StderrLine returns the first non-empty stderr line, or "" if there was none.
func (e *ExitError) StderrLine() string {
	return firstNonEmpty(e.Result.Stderr)
}

func firstNonEmpty(lines []string) string {
	for _, l := range lines {
		if s := strings.TrimSpace(l); s != "" {
			return s
		}
	}
	return ""
}
