package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jmylchreest/dlcut/internal/observability"
	"github.com/jmylchreest/dlcut/internal/progress"
)

// DefaultHeartbeatInterval is how often idle SSE streams get a comment line.
const DefaultHeartbeatInterval = 15 * time.Second

// ProgressHandler streams hub events over SSE.
type ProgressHandler struct {
	hub               *progress.Hub
	heartbeatInterval time.Duration
}

// NewProgressHandler creates a new progress handler.
func NewProgressHandler(hub *progress.Hub) *ProgressHandler {
	return &ProgressHandler{
		hub:               hub,
		heartbeatInterval: DefaultHeartbeatInterval,
	}
}

// SetHeartbeatInterval sets the SSE heartbeat interval.
func (h *ProgressHandler) SetHeartbeatInterval(interval time.Duration) {
	if interval > 0 {
		h.heartbeatInterval = interval
	}
}

// RegisterSSE registers the SSE endpoint on a chi router.
// Huma does not stream, so this bypasses it.
func (h *ProgressHandler) RegisterSSE(router interface {
	Get(pattern string, handlerFn http.HandlerFunc)
}) {
	router.Get("/api/v1/progress/events", h.HandleSSEEvents)
}

// HandleSSEEvents streams events until the client disconnects.
// Query parameters job_id and job_kind narrow the stream.
func (h *ProgressHandler) HandleSSEEvents(w http.ResponseWriter, r *http.Request) {
	logger := observability.LoggerFromContext(r.Context())

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	query := r.URL.Query()
	sub := h.hub.Subscribe(&progress.Filter{
		JobID:   query.Get("job_id"),
		JobKind: query.Get("job_kind"),
	})
	defer h.hub.Unsubscribe(sub.ID)

	rc := http.NewResponseController(w)

	heartbeat := time.NewTicker(h.heartbeatInterval)
	defer heartbeat.Stop()

	ctx := r.Context()

	fmt.Fprintf(w, ":connected\n\n")
	if err := rc.Flush(); err != nil {
		logger.Error("failed to flush initial SSE connection", slog.String("error", err.Error()))
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			fmt.Fprintf(w, ":heartbeat %d\n\n", time.Now().Unix())
			if err := rc.Flush(); err != nil {
				logger.Debug("heartbeat flush failed, client likely disconnected", slog.String("error", err.Error()))
				return
			}
		case event, ok := <-sub.Events:
			if !ok {
				return
			}
			if err := writeSSEEvent(w, event); err != nil {
				logger.Debug("failed to write SSE event",
					slog.String("event_type", string(event.Type)),
					slog.String("job_id", event.JobID),
					slog.String("error", err.Error()),
				)
				return
			}
			if err := rc.Flush(); err != nil {
				logger.Debug("event flush failed, client likely disconnected", slog.String("error", err.Error()))
				return
			}
		}
	}
}

// writeSSEEvent writes one event as a single SSE message.
func writeSSEEvent(w http.ResponseWriter, event *progress.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}

	message := []byte(fmt.Sprintf("id: %s\nevent: %s\ndata: %s\n\n", event.ID, event.Type, data))
	n, err := w.Write(message)
	if err != nil {
		return err
	}
	if n < len(message) {
		return fmt.Errorf("short write: wrote %d of %d bytes", n, len(message))
	}
	return nil
}
