package handlers_test

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/dlcut/internal/http/handlers"
	"github.com/jmylchreest/dlcut/internal/progress"
)

func setupProgressRouter(hub *progress.Hub, heartbeat time.Duration) *chi.Mux {
	router := chi.NewRouter()
	handler := handlers.NewProgressHandler(hub)
	handler.SetHeartbeatInterval(heartbeat)
	handler.RegisterSSE(router)
	return router
}

// waitForSubscribers polls until the SSE handler has subscribed.
func waitForSubscribers(t *testing.T, hub *progress.Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.SubscriberCount() >= n }, 5*time.Second, 5*time.Millisecond)
}

func parseSSEEvents(body string) []map[string]string {
	var events []map[string]string
	scanner := bufio.NewScanner(strings.NewReader(body))

	var current map[string]string
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			if current != nil {
				events = append(events, current)
				current = nil
			}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		if current == nil {
			current = make(map[string]string)
		}
		current[key] = strings.TrimPrefix(value, " ")
	}
	if current != nil {
		events = append(events, current)
	}
	return events
}

func TestProgressHandler_SSEEvents(t *testing.T) {
	t.Run("establishes SSE connection", func(t *testing.T) {
		hub := progress.NewHub(testLogger())
		router := setupProgressRouter(hub, time.Minute)

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		req := httptest.NewRequest("GET", "/api/v1/progress/events", nil).WithContext(ctx)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
		assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
		assert.Contains(t, rec.Body.String(), ":connected")
		assert.Zero(t, hub.SubscriberCount(), "subscriber is removed on disconnect")
	})

	t.Run("streams job events", func(t *testing.T) {
		hub := progress.NewHub(testLogger())
		router := setupProgressRouter(hub, time.Minute)

		ctx, cancel := context.WithCancel(context.Background())
		req := httptest.NewRequest("GET", "/api/v1/progress/events", nil).WithContext(ctx)
		rec := httptest.NewRecorder()

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			router.ServeHTTP(rec, req)
		}()
		waitForSubscribers(t, hub, 1)

		sink := hub.JobSink("01JOB", "download")
		sink.Publish(progress.Update{Stage: progress.StageDownloading, Percent: 42, Message: "Downloading... 42.0%", Speed: "1.20MiB/s"})
		sink.Publish(progress.Update{Stage: progress.StageComplete, Percent: 100, Message: "Download complete!"})

		time.Sleep(50 * time.Millisecond)
		cancel()
		wg.Wait()

		events := parseSSEEvents(rec.Body.String())
		require.Len(t, events, 2)
		assert.Equal(t, "progress", events[0]["event"])
		assert.Equal(t, "completed", events[1]["event"])
		assert.NotEmpty(t, events[0]["id"])

		var ev progress.Event
		require.NoError(t, json.Unmarshal([]byte(events[0]["data"]), &ev))
		assert.Equal(t, "01JOB", ev.JobID)
		assert.Equal(t, 42.0, ev.Update.Percent)
		assert.Equal(t, "1.20MiB/s", ev.Update.Speed)
	})

	t.Run("filters by job kind", func(t *testing.T) {
		hub := progress.NewHub(testLogger())
		router := setupProgressRouter(hub, time.Minute)

		ctx, cancel := context.WithCancel(context.Background())
		req := httptest.NewRequest("GET", "/api/v1/progress/events?job_kind=cut", nil).WithContext(ctx)
		rec := httptest.NewRecorder()

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			router.ServeHTTP(rec, req)
		}()
		waitForSubscribers(t, hub, 1)

		hub.JobSink("01DL", "download").Publish(progress.Update{Stage: progress.StageDownloading, Message: "Starting download..."})
		hub.JobSink("01CUT", "cut").Publish(progress.Update{Stage: progress.StageCutting, Message: "Starting video cut..."})
		hub.Cancelled("01CUT", "cut")

		time.Sleep(50 * time.Millisecond)
		cancel()
		wg.Wait()

		body := rec.Body.String()
		assert.NotContains(t, body, "01DL")
		events := parseSSEEvents(body)
		require.Len(t, events, 2)
		assert.Equal(t, "cancelled", events[1]["event"])
	})
}

func TestProgressHandler_SSEHeartbeat(t *testing.T) {
	hub := progress.NewHub(testLogger())
	router := setupProgressRouter(hub, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	req := httptest.NewRequest("GET", "/api/v1/progress/events", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Contains(t, rec.Body.String(), ":heartbeat")
}
