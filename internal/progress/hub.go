package progress

import (
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// EventType classifies hub events for SSE clients.
type EventType string

const (
	EventProgress  EventType = "progress"
	EventCompleted EventType = "completed"
	EventError     EventType = "error"
	EventCancelled EventType = "cancelled"
	EventInstall   EventType = "install"
)

// subscriberBuffer is the per-subscriber event queue length.
const subscriberBuffer = 100

// retainedJobs bounds how many jobs keep a latest-event record.
const retainedJobs = 50

// Event is one update as seen by hub subscribers.
type Event struct {
	ID      string    `json:"id"`
	Type    EventType `json:"type"`
	JobID   string    `json:"job_id,omitempty"`
	JobKind string    `json:"job_kind,omitempty"`
	Update  Update    `json:"update"`
	Time    time.Time `json:"time"`
}

// Filter selects events for a subscriber. Empty fields match everything.
type Filter struct {
	JobID   string
	JobKind string
}

// Matches reports whether e passes the filter. A nil filter matches all events.
func (f *Filter) Matches(e *Event) bool {
	if f == nil {
		return true
	}
	if f.JobID != "" && f.JobID != e.JobID {
		return false
	}
	if f.JobKind != "" && f.JobKind != e.JobKind {
		return false
	}
	return true
}

// Subscriber receives events on Events until it is unsubscribed.
type Subscriber struct {
	ID     string
	Filter *Filter
	Events chan *Event
}

// Hub broadcasts events to subscribers without ever blocking the publisher.
// A subscriber whose queue is full misses events rather than stalling a job.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]*Subscriber
	latest      map[string]*Event
	order       []string
	logger      *slog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		subscribers: make(map[string]*Subscriber),
		latest:      make(map[string]*Event),
		logger:      logger.With("component", "progress_hub"),
	}
}

// Subscribe registers a subscriber for events matching filter.
func (h *Hub) Subscribe(filter *Filter) *Subscriber {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub := &Subscriber{
		ID:     ulid.Make().String(),
		Filter: filter,
		Events: make(chan *Event, subscriberBuffer),
	}
	h.subscribers[sub.ID] = sub

	h.logger.Debug("subscriber added", "subscriber_id", sub.ID)
	return sub
}

// Unsubscribe removes a subscriber and closes its channel.
func (h *Hub) Unsubscribe(subscriberID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sub, ok := h.subscribers[subscriberID]; ok {
		close(sub.Events)
		delete(h.subscribers, subscriberID)
		h.logger.Debug("subscriber removed", "subscriber_id", subscriberID)
	}
}

// Broadcast stamps e with an ID and time and delivers it to matching subscribers.
func (h *Hub) Broadcast(e Event) {
	e.ID = ulid.Make().String()
	if e.Time.IsZero() {
		e.Time = time.Now()
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if e.JobID != "" {
		h.rememberLocked(&e)
	}

	for _, sub := range h.subscribers {
		if !sub.Filter.Matches(&e) {
			continue
		}
		ev := e
		select {
		case sub.Events <- &ev:
		default:
			h.logger.Warn("subscriber event channel full, dropping event",
				"subscriber_id", sub.ID,
				"job_id", e.JobID,
			)
		}
	}
}

func (h *Hub) rememberLocked(e *Event) {
	if _, ok := h.latest[e.JobID]; !ok {
		h.order = append(h.order, e.JobID)
		if len(h.order) > retainedJobs {
			delete(h.latest, h.order[0])
			h.order = h.order[1:]
		}
	}
	h.latest[e.JobID] = e
}

// Latest returns the most recent event recorded for a job.
func (h *Hub) Latest(jobID string) (Event, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	e, ok := h.latest[jobID]
	if !ok {
		return Event{}, false
	}
	return *e, true
}

// SubscriberCount returns the number of active subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// JobSink returns a Sink that broadcasts a job's updates. Terminal stages are
// mapped to completed and error events.
func (h *Hub) JobSink(jobID, jobKind string) Sink {
	return SinkFunc(func(u Update) {
		h.Broadcast(Event{
			Type:    eventTypeForStage(u.Stage),
			JobID:   jobID,
			JobKind: jobKind,
			Update:  u,
		})
	})
}

// InstallSink returns a Sink for dependency installation progress.
func (h *Hub) InstallSink() Sink {
	return SinkFunc(func(u Update) {
		h.Broadcast(Event{Type: EventInstall, JobKind: "install", Update: u})
	})
}

// Cancelled announces that a job was cancelled. It carries no Update stage of
// its own; the last update the job emitted stays its final progress.
func (h *Hub) Cancelled(jobID, jobKind string) {
	h.Broadcast(Event{
		Type:    EventCancelled,
		JobID:   jobID,
		JobKind: jobKind,
		Update:  Update{Message: "Operation cancelled"},
	})
}

func eventTypeForStage(s Stage) EventType {
	switch s {
	case StageComplete:
		return EventCompleted
	case StageError:
		return EventError
	default:
		return EventProgress
	}
}
