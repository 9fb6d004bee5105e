package service

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/jmylchreest/dlcut/internal/apperr"
	"github.com/jmylchreest/dlcut/internal/fileserver"
	"github.com/jmylchreest/dlcut/internal/observability"
)

// ErrNoPreview is returned by Stop when no preview server is running.
var ErrNoPreview = apperr.New(apperr.KindInvalidInput, "No preview is running")

// Preview describes the running preview server.
type Preview struct {
	URL  string `json:"url"`
	Path string `json:"path"`
}

// PreviewService keeps at most one preview file server running.
type PreviewService struct {
	mu     sync.Mutex
	server *fileserver.Server
	opts   []fileserver.Option
	logger *slog.Logger
}

// NewPreviewService creates a new PreviewService. opts are applied to every
// server it starts.
func NewPreviewService(opts ...fileserver.Option) *PreviewService {
	return &PreviewService{
		opts:   opts,
		logger: slog.Default(),
	}
}

// WithLogger sets a custom logger.
func (s *PreviewService) WithLogger(logger *slog.Logger) *PreviewService {
	s.logger = observability.WithComponent(logger, "preview_service")
	s.opts = append(s.opts, fileserver.WithLogger(logger))
	return s
}

// Start serves path, replacing any preview already running.
func (s *PreviewService) Start(path string) (Preview, error) {
	if strings.TrimSpace(path) == "" {
		return Preview{}, apperr.New(apperr.KindInvalidInput, "Path is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		s.server.Stop()
		s.server = nil
	}

	srv, err := fileserver.Start(path, s.opts...)
	if err != nil {
		return Preview{}, err
	}
	s.server = srv

	s.logger.Info("preview started", slog.String("url", srv.URL()), slog.String("path", path))
	return Preview{URL: srv.URL(), Path: path}, nil
}

// Current returns the running preview, if any.
func (s *PreviewService) Current() (Preview, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server == nil {
		return Preview{}, false
	}
	return Preview{URL: s.server.URL(), Path: s.server.Path()}, true
}

// Stop shuts the preview server down.
func (s *PreviewService) Stop() error {
	s.mu.Lock()
	srv := s.server
	s.server = nil
	s.mu.Unlock()

	if srv == nil {
		return ErrNoPreview
	}
	srv.Stop()
	s.logger.Info("preview stopped", slog.String("url", srv.URL()))
	return nil
}

// Close stops any running preview.
func (s *PreviewService) Close() {
	_ = s.Stop()
}
