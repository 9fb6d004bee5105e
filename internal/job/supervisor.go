package job

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/jmylchreest/dlcut/internal/apperr"
	"github.com/jmylchreest/dlcut/internal/progress"
)

// Default tuning values.
const (
	DefaultProgressBuffer = 32
	DefaultStderrLines    = 100
	DefaultSampleInterval = 2 * time.Second
)

// Status describes the job currently holding the slot.
type Status struct {
	ID         string          `json:"id"`
	Kind       Kind            `json:"kind"`
	StartedAt  time.Time       `json:"started_at"`
	OutputPath string          `json:"output_path,omitempty"`
	Strategy   string          `json:"strategy,omitempty"`
	Last       progress.Update `json:"last"`
	Process    *ProcessStats   `json:"process,omitempty"`
}

// Handle tracks one started job.
type Handle struct {
	ID         string
	Kind       Kind
	StartedAt  time.Time
	OutputPath string

	done chan struct{}
	path string
	err  error
}

// Done is closed when the job has finished and every update has been delivered.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the job finishes and returns its output path or error.
func (h *Handle) Wait() (string, error) {
	<-h.done
	return h.path, h.err
}

// active is the slot entry for a running job.
type active struct {
	id        string
	kind      Kind
	startedAt time.Time
	output    string
	cancel    context.CancelFunc
	cancelled atomic.Bool

	// pubMu serialises sink delivery against cancellation so nothing is
	// published once CancelActive has returned.
	pubMu sync.Mutex

	mu       sync.RWMutex
	last     progress.Update
	strategy string
	sampler  *ProcessSampler
}

func (a *active) status() Status {
	a.mu.RLock()
	defer a.mu.RUnlock()

	st := Status{
		ID:         a.id,
		Kind:       a.kind,
		StartedAt:  a.startedAt,
		OutputPath: a.output,
		Strategy:   a.strategy,
		Last:       a.last,
	}
	if a.sampler != nil {
		stats := a.sampler.Stats()
		st.Process = &stats
	}
	return st
}

// Supervisor runs jobs one at a time.
type Supervisor struct {
	mu     sync.Mutex
	active *active

	logger         *slog.Logger
	progressBuffer int
	stderrLines    int
	waitDelay      time.Duration
	sampleInterval time.Duration
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Supervisor) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithProgressBuffer sets the capacity of the per-job update channel.
func WithProgressBuffer(n int) Option {
	return func(s *Supervisor) {
		if n > 0 {
			s.progressBuffer = n
		}
	}
}

// WithStderrLines sets how many stderr lines are kept for diagnostics.
func WithStderrLines(n int) Option {
	return func(s *Supervisor) {
		if n > 0 {
			s.stderrLines = n
		}
	}
}

// WithWaitDelay bounds output copying after a process exits or is killed.
func WithWaitDelay(d time.Duration) Option {
	return func(s *Supervisor) {
		if d > 0 {
			s.waitDelay = d
		}
	}
}

// WithSampleInterval sets the process resource sampling interval.
func WithSampleInterval(d time.Duration) Option {
	return func(s *Supervisor) {
		if d > 0 {
			s.sampleInterval = d
		}
	}
}

// NewSupervisor creates an idle supervisor.
func NewSupervisor(opts ...Option) *Supervisor {
	s := &Supervisor{
		logger:         slog.Default(),
		progressBuffer: DefaultProgressBuffer,
		stderrLines:    DefaultStderrLines,
		waitDelay:      defaultWaitDelay,
		sampleInterval: DefaultSampleInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "job_supervisor")
	return s
}

// Start reserves the slot and runs j in the background. It returns
// ErrAlreadyRunning without spawning anything if another job is active.
// ctx bounds the job's lifetime; cancelling it kills the process.
func (s *Supervisor) Start(ctx context.Context, j Job, sink progress.Sink) (*Handle, error) {
	if err := j.validate(); err != nil {
		return nil, apperr.Wrap(apperr.KindInvalidInput, "Invalid job", err)
	}
	if sink == nil {
		sink = progress.Discard
	}

	id := j.ID
	if id == "" {
		id = ulid.Make().String()
	}

	jobCtx, cancel := context.WithCancel(ctx)
	a := &active{
		id:        id,
		kind:      j.Kind,
		startedAt: time.Now(),
		output:    j.OutputPath,
		cancel:    cancel,
	}

	s.mu.Lock()
	if s.active != nil {
		s.mu.Unlock()
		cancel()
		return nil, ErrAlreadyRunning
	}
	s.active = a
	s.mu.Unlock()

	h := &Handle{
		ID:         a.id,
		Kind:       a.kind,
		StartedAt:  a.startedAt,
		OutputPath: a.output,
		done:       make(chan struct{}),
	}

	go s.run(jobCtx, a, j, sink, h)
	return h, nil
}

// Run starts j and waits for it to finish.
func (s *Supervisor) Run(ctx context.Context, j Job, sink progress.Sink) (string, error) {
	h, err := s.Start(ctx, j, sink)
	if err != nil {
		return "", err
	}
	return h.Wait()
}

// CancelActive kills the running job and frees the slot. Partial output is
// left on disk.
func (s *Supervisor) CancelActive() error {
	s.mu.Lock()
	a := s.active
	s.active = nil
	s.mu.Unlock()

	if a == nil {
		return ErrNothingRunning
	}

	a.pubMu.Lock()
	a.cancelled.Store(true)
	a.pubMu.Unlock()
	a.cancel()

	s.logger.Info("job cancelled", slog.String("job_id", a.id), slog.String("kind", string(a.kind)))
	return nil
}

// Active reports the running job, if any.
func (s *Supervisor) Active() (Status, bool) {
	s.mu.Lock()
	a := s.active
	s.mu.Unlock()

	if a == nil {
		return Status{}, false
	}
	return a.status(), true
}

func (s *Supervisor) release(a *active) {
	s.mu.Lock()
	if s.active == a {
		s.active = nil
	}
	s.mu.Unlock()
}

func (s *Supervisor) run(ctx context.Context, a *active, j Job, sink progress.Sink, h *Handle) {
	defer close(h.done)
	defer a.cancel()

	logger := s.logger.With(slog.String("job_id", a.id), slog.String("kind", string(j.Kind)))

	updates := make(chan progress.Update, s.progressBuffer)
	forwarded := make(chan struct{})
	go func() {
		defer close(forwarded)
		for u := range updates {
			a.pubMu.Lock()
			if !a.cancelled.Load() {
				a.mu.Lock()
				a.last = u
				a.mu.Unlock()
				sink.Publish(u)
			}
			a.pubMu.Unlock()
		}
	}()

	var guard progress.Monotonic
	emit := func(u progress.Update) {
		u, ok := guard.Admit(u)
		if !ok {
			return
		}
		select {
		case updates <- u:
		case <-ctx.Done():
		}
	}

	err := s.runStrategies(ctx, a, j, emit, &guard, logger)

	switch {
	case err == nil:
		if !j.Done.IsZero() {
			emit(j.Done)
		}
		h.path = j.OutputPath
		logger.Info("job completed", slog.String("output", j.OutputPath), slog.Duration("elapsed", time.Since(a.startedAt)))
	case a.cancelled.Load() || ctx.Err() != nil:
		a.pubMu.Lock()
		a.cancelled.Store(true)
		a.pubMu.Unlock()
		err = ErrCancelled
		logger.Info("job ended by cancellation")
	default:
		emit(progress.Failure(apperr.Message(err)))
		logger.Warn("job failed", slog.String("error", apperr.Detail(err)))
	}

	close(updates)
	<-forwarded

	h.err = err
	s.release(a)
}

// runStrategies tries each strategy in order, moving on only after a
// non-zero exit.
func (s *Supervisor) runStrategies(ctx context.Context, a *active, j Job, emit func(progress.Update), guard *progress.Monotonic, logger *slog.Logger) error {
	var err error
	for i, st := range j.Strategies {
		if i > 0 {
			guard.Reset()
			logger.Info("falling back to next strategy", slog.String("strategy", st.Name))
		}
		a.mu.Lock()
		a.strategy = st.Name
		a.mu.Unlock()

		if !st.Announce.IsZero() {
			emit(st.Announce)
		}

		err = s.runOnce(ctx, a, j, st, emit, logger)
		if err == nil || ctx.Err() != nil {
			return err
		}
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return err
		}
	}
	return err
}

// runOnce spawns one strategy's process and pumps its stdout until exit.
func (s *Supervisor) runOnce(ctx context.Context, a *active, j Job, st Strategy, emit func(progress.Update), logger *slog.Logger) error {
	parser := st.Parser
	if parser == nil {
		parser = progress.NoProgress
	}

	pr, pw := io.Pipe()
	tail := newStderrTail(s.stderrLines)

	cmd := newCommand(ctx, st.Invocation, s.waitDelay)
	cmd.Stdout = pw
	cmd.Stderr = tail

	logger.Debug("starting process", slog.String("strategy", st.Name), slog.String("command", st.Invocation.String()))

	if err := cmd.Start(); err != nil {
		pw.Close()
		pr.Close()
		return spawnError(j.failureMessage(), err)
	}

	var sampler *ProcessSampler
	if ps, err := NewProcessSampler(ctx, cmd.Process.Pid, s.sampleInterval); err == nil {
		sampler = ps
		sampler.Start()
		a.mu.Lock()
		a.sampler = sampler
		a.mu.Unlock()
	}

	pumped := make(chan error, 1)
	go func() {
		pumped <- pumpLines(ctx, pr, func(line string) {
			if u, ok := parser.ParseLine(line); ok {
				emit(u)
			}
		})
	}()

	waitErr := cmd.Wait()
	pw.Close()
	readErr := <-pumped

	if sampler != nil {
		stats := sampler.Stop()
		a.mu.Lock()
		a.sampler = nil
		a.mu.Unlock()
		logger.Debug("process finished",
			slog.String("strategy", st.Name),
			slog.Int("pid", int(stats.PID)),
			slog.Float64("cpu_percent", stats.CPUPercent),
			slog.Uint64("peak_rss_bytes", stats.PeakRSSBytes),
		)
	}

	if waitErr == nil && readErr != nil {
		waitErr = readErr
	}
	if waitErr == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	logger.Debug("process stderr", slog.String("strategy", st.Name), slog.Any("lines", tail.Lines()))

	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		logger.Info("process exited with failure", slog.String("strategy", st.Name), slog.Int("exit_code", exitErr.ExitCode()))
		return apperr.Wrap(apperr.KindProcessFailure, j.failureMessage(), waitErr)
	}
	return apperr.Wrap(apperr.KindIO, j.failureMessage(), waitErr)
}
