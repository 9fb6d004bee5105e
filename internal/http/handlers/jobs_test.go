package handlers_test

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/dlcut/internal/http/handlers"
	"github.com/jmylchreest/dlcut/internal/job"
)

const slowYtDlp = `echo "[download]   1.0% of 4.00MiB at 1.20MiB/s ETA 01:00"
sleep 30`

const fakeCutFFmpeg = `for a in "$@"; do out="$a"; done
echo "out_time_ms=1000000"
printf 'clip' > "$out"`

func TestJobHandler_DownloadLifecycle(t *testing.T) {
	env := newTestEnv(t, map[string]string{"yt-dlp": slowYtDlp})

	rec := env.do(t, http.MethodPost, "/api/v1/jobs/download", map[string]any{
		"url":         testURL,
		"output_path": "video.mp4",
	})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	started := decode[handlers.JobStartedResponse](t, rec)
	assert.NotEmpty(t, started.ID)
	assert.Equal(t, job.KindDownload, started.Kind)
	assert.Equal(t, filepath.Join(env.outDir, "video.mp4"), started.OutputPath)

	rec = env.do(t, http.MethodPost, "/api/v1/jobs/download", map[string]any{
		"url":         testURL,
		"output_path": "other.mp4",
	})
	expectProblem(t, rec, http.StatusConflict, "An operation is already in progress")

	rec = env.do(t, http.MethodGet, "/api/v1/jobs/active", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	st := decode[job.Status](t, rec)
	assert.Equal(t, started.ID, st.ID)

	rec = env.do(t, http.MethodDelete, "/api/v1/jobs/active", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/v1/jobs/active", nil)
	expectProblem(t, rec, http.StatusNotFound, "No operation is running")

	rec = env.do(t, http.MethodGet, "/api/v1/jobs/active", nil)
	expectProblem(t, rec, http.StatusNotFound, "No operation is running")
}

func TestJobHandler_DownloadValidation(t *testing.T) {
	env := newTestEnv(t, map[string]string{"yt-dlp": slowYtDlp})

	rec := env.do(t, http.MethodPost, "/api/v1/jobs/download", map[string]any{
		"url":         "https://vimeo.com/123",
		"output_path": "video.mp4",
	})
	expectProblem(t, rec, http.StatusBadRequest, "Invalid YouTube URL")

	_, running := env.downloads.Active()
	assert.False(t, running)
}

func TestJobHandler_DownloadMissingTool(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/v1/jobs/download", map[string]any{
		"url":         testURL,
		"output_path": "video.mp4",
	})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestJobHandler_Cut(t *testing.T) {
	env := newTestEnv(t, map[string]string{"ffmpeg": fakeCutFFmpeg})
	input := filepath.Join(env.outDir, "input.mp4")
	require.NoError(t, os.WriteFile(input, []byte("source"), 0o644))

	rec := env.do(t, http.MethodPost, "/api/v1/jobs/cut", map[string]any{
		"input_path":  input,
		"output_path": "clip.mp4",
		"start_time":  1.0,
		"end_time":    2.0,
	})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	started := decode[handlers.JobStartedResponse](t, rec)
	assert.Equal(t, job.KindCut, started.Kind)

	assert.Eventually(t, func() bool {
		_, running := env.downloads.Active()
		return !running
	}, 10*time.Second, 10*time.Millisecond)
	assert.FileExists(t, filepath.Join(env.outDir, "clip.mp4"))
}

func TestJobHandler_CutInvalidRange(t *testing.T) {
	env := newTestEnv(t, map[string]string{"ffmpeg": fakeCutFFmpeg})
	input := filepath.Join(env.outDir, "input.mp4")
	require.NoError(t, os.WriteFile(input, []byte("source"), 0o644))

	rec := env.do(t, http.MethodPost, "/api/v1/jobs/cut", map[string]any{
		"input_path":  input,
		"output_path": "clip.mp4",
		"start_time":  5.0,
		"end_time":    2.0,
	})
	expectProblem(t, rec, http.StatusBadRequest, "Invalid timestamp: end must be after start")
}
