package ytdlp

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/dlcut/internal/apperr"
	"github.com/jmylchreest/dlcut/internal/job"
	"github.com/jmylchreest/dlcut/internal/progress"
)

type staticResolver struct {
	path string
	err  error
}

func (r staticResolver) Resolve(string) (string, error) {
	return r.path, r.err
}

type collectSink struct {
	mu      sync.Mutex
	updates []progress.Update
}

func (c *collectSink) Publish(u progress.Update) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updates = append(c.updates, u)
}

// fakeTool writes an executable shell script standing in for yt-dlp.
func fakeTool(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fakes need a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "yt-dlp")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func newTestClient(path string) *Client {
	return NewClient(staticResolver{path: path}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestClient_FetchInfo(t *testing.T) {
	fixture, err := filepath.Abs("testdata/info.json")
	require.NoError(t, err)
	tool := fakeTool(t, `[ "$1" = "--dump-json" ] || exit 3
cat '`+fixture+`'`)

	sink := &collectSink{}
	info, err := newTestClient(tool).FetchInfo(context.Background(), testURL, sink)
	require.NoError(t, err)
	assert.Equal(t, "dQw4w9WgXcQ", info.ID)

	require.Len(t, sink.updates, 2)
	assert.Equal(t, progress.Update{Stage: progress.StageFetching, Message: "Fetching video information..."}, sink.updates[0])
	assert.Equal(t, progress.Update{Stage: progress.StageFetching, Percent: 100, Message: "Video information loaded"}, sink.updates[1])
}

func TestClient_FetchInfoToolError(t *testing.T) {
	tool := fakeTool(t, `echo "ERROR: [youtube] dQw4w9WgXcQ: Video unavailable" >&2
echo "second line" >&2
exit 1`)

	sink := &collectSink{}
	_, err := newTestClient(tool).FetchInfo(context.Background(), testURL, sink)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindProcessFailure))
	assert.Equal(t, "Failed to fetch video information: yt-dlp error: ERROR: [youtube] dQw4w9WgXcQ: Video unavailable", err.Error())

	last := sink.updates[len(sink.updates)-1]
	assert.Equal(t, progress.StageError, last.Stage)
	assert.Equal(t, err.Error(), last.Message)
}

func TestClient_FetchInfoBadJSON(t *testing.T) {
	tool := fakeTool(t, `echo "not json"`)

	_, err := newTestClient(tool).FetchInfo(context.Background(), testURL, nil)
	require.Error(t, err)
	assert.Equal(t, "Failed to fetch video information: Failed to parse video info", err.Error())
}

func TestClient_FetchInfoRejectsURLBeforeSpawn(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "ran")
	tool := fakeTool(t, `touch '`+marker+`'`)

	_, err := newTestClient(tool).FetchInfo(context.Background(), "https://example.com/video", nil)
	assert.ErrorIs(t, err, ErrInvalidURL)
	assert.NoFileExists(t, marker)
}

func TestClient_MissingBinary(t *testing.T) {
	c := NewClient(staticResolver{err: errors.New("not on PATH")}, nil)

	_, err := c.FetchInfo(context.Background(), testURL, nil)
	assert.True(t, apperr.Is(err, apperr.KindUnavailableTool))
	assert.Equal(t, ErrNotFound.Message, err.Error())

	_, err = c.DownloadJob(DownloadRequest{URL: testURL, OutputPath: "/o.mp4"})
	assert.True(t, apperr.Is(err, apperr.KindUnavailableTool))

	_, err = c.Version(context.Background())
	assert.True(t, apperr.Is(err, apperr.KindUnavailableTool))
}

func TestClient_Version(t *testing.T) {
	tool := fakeTool(t, `[ "$1" = "--version" ] && echo "2024.12.13"`)

	v, err := newTestClient(tool).Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2024.12.13", v)
}

func TestClient_DownloadJob(t *testing.T) {
	c := newTestClient("/opt/bin/yt-dlp")
	req := DownloadRequest{URL: testURL, Quality: "720", Mode: ModeVideoWithAudio, OutputPath: "/out/v.mp4"}

	j, err := c.DownloadJob(req)
	require.NoError(t, err)

	assert.Equal(t, job.KindDownload, j.Kind)
	assert.Equal(t, "/out/v.mp4", j.OutputPath)
	require.Len(t, j.Strategies, 1)
	assert.Equal(t, "/opt/bin/yt-dlp", j.Strategies[0].Invocation.Program)
	assert.Equal(t, req.Args(), j.Strategies[0].Invocation.Args)
	assert.Equal(t, "Starting download...", j.Strategies[0].Announce.Message)
	assert.IsType(t, progress.DownloadParser{}, j.Strategies[0].Parser)
	assert.Equal(t, progress.StageComplete, j.Done.Stage)
	assert.Equal(t, "Download complete!", j.Done.Message)
}

func TestClient_DownloadRunsUnderSupervisor(t *testing.T) {
	tool := fakeTool(t, `echo "[download]  42.5% of 10.00MiB at 1.20MiB/s ETA 00:05"
echo "[download] 100% of 10.00MiB in 00:09"`)

	j, err := newTestClient(tool).DownloadJob(DownloadRequest{URL: testURL, OutputPath: "/out/v.mp4"})
	require.NoError(t, err)

	sink := &collectSink{}
	sup := job.NewSupervisor(job.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	out, err := sup.Run(context.Background(), j, sink)
	require.NoError(t, err)
	assert.Equal(t, "/out/v.mp4", out)

	require.Len(t, sink.updates, 4)
	assert.Equal(t, progress.Update{
		Stage: progress.StageDownloading, Percent: 42.5, Message: "Downloading... 42.5%",
		Speed: "1.20MiB/s", ETA: "00:05",
	}, sink.updates[1])
	assert.Equal(t, progress.StageComplete, sink.updates[3].Stage)
}
