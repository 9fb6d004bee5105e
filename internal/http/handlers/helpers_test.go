package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/dlcut/internal/deps"
	"github.com/jmylchreest/dlcut/internal/ffmpeg"
	"github.com/jmylchreest/dlcut/internal/http/handlers"
	"github.com/jmylchreest/dlcut/internal/job"
	"github.com/jmylchreest/dlcut/internal/progress"
	"github.com/jmylchreest/dlcut/internal/service"
	"github.com/jmylchreest/dlcut/internal/ytdlp"
)

const testURL = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testEnv wires every handler onto one router backed by fake tools.
type testEnv struct {
	router    *chi.Mux
	hub       *progress.Hub
	downloads *service.DownloadService
	installer *deps.Installer
	binDir    string
	outDir    string
}

// newTestEnv creates an environment whose bin dir holds the given shell
// scripts. PATH is emptied so real installs are never picked up.
func newTestEnv(t *testing.T, tools map[string]string) *testEnv {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fakes need a POSIX shell")
	}
	// Scripts keep the real PATH for sleep and cat.
	script := "#!/bin/sh\nPATH='" + os.Getenv("PATH") + "'\n"
	t.Setenv("PATH", t.TempDir())

	binDir := t.TempDir()
	for name, body := range tools {
		path := filepath.Join(binDir, name)
		require.NoError(t, os.WriteFile(path, []byte(script+body+"\n"), 0o755))
	}
	outDir := t.TempDir()

	logger := testLogger()
	hub := progress.NewHub(logger)
	resolver := deps.NewResolver(binDir, nil, logger)
	checker := deps.NewChecker(resolver, logger)
	installer := deps.NewInstaller(resolver, checker, logger)
	sup := job.NewSupervisor(job.WithLogger(logger), job.WithWaitDelay(time.Second))

	downloads := service.NewDownloadService(
		ytdlp.NewClient(resolver, logger),
		ffmpeg.NewCutter(resolver, logger),
		ffmpeg.NewProber(resolver, logger),
		sup,
		hub,
	).WithLogger(logger).WithOutputDir(outDir)
	previews := service.NewPreviewService().WithLogger(logger)
	t.Cleanup(previews.Close)
	t.Cleanup(func() { _ = downloads.Cancel() })

	router := chi.NewRouter()
	api := humachi.New(router, huma.DefaultConfig("Test API", "1.0.0"))
	handlers.NewHealthHandler("1.0.0").WithJobs(downloads).Register(api)
	handlers.NewDepsHandler(context.Background(), checker, installer, hub).Register(api)
	handlers.NewMediaHandler(downloads).Register(api)
	handlers.NewJobHandler(downloads).Register(api)
	handlers.NewPreviewHandler(previews).Register(api)
	handlers.NewProgressHandler(hub).RegisterSSE(router)

	return &testEnv{
		router:    router,
		hub:       hub,
		downloads: downloads,
		installer: installer,
		binDir:    binDir,
		outDir:    outDir,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), rec.Body.String())
	return v
}

// problem is the subset of huma's error body the tests look at.
type problem struct {
	Status int    `json:"status"`
	Detail string `json:"detail"`
}

func expectProblem(t *testing.T, rec *httptest.ResponseRecorder, status int, detail string) {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
	p := decode[problem](t, rec)
	require.Equal(t, detail, p.Detail)
}
