// Package progress defines the progress protocol emitted by supervised jobs,
// the line parsers that produce it from raw tool output, and a hub that fans
// updates out to subscribers.
package progress

// Stage is the logical phase a job is in.
type Stage string

const (
	// StageFetching covers metadata retrieval.
	StageFetching Stage = "fetching"
	// StageDownloading covers media transfer by the external downloader.
	StageDownloading Stage = "downloading"
	// StageCutting covers trimming or re-encoding.
	StageCutting Stage = "cutting"
	// StageComplete is the successful terminal stage.
	StageComplete Stage = "complete"
	// StageError is the failed terminal stage.
	StageError Stage = "error"
)

var stageRank = map[Stage]int{
	StageFetching:    0,
	StageDownloading: 1,
	StageCutting:     2,
	StageComplete:    3,
	StageError:       4,
}

// Rank returns the position of the stage in the pipeline. Unknown stages rank -1.
func (s Stage) Rank() int {
	if r, ok := stageRank[s]; ok {
		return r
	}
	return -1
}

// Valid reports whether s is one of the declared stages.
func (s Stage) Valid() bool {
	return s.Rank() >= 0
}

// IsTerminal returns true for complete and error.
func (s Stage) IsTerminal() bool {
	return s == StageComplete || s == StageError
}

// Update is an immutable progress snapshot. Speed and ETA are only populated
// during downloads; empty means absent.
type Update struct {
	Stage   Stage   `json:"stage"`
	Percent float64 `json:"percent"`
	Message string  `json:"message"`
	Speed   string  `json:"speed,omitempty"`
	ETA     string  `json:"eta,omitempty"`
}

// IsZero reports whether u is the zero Update.
func (u Update) IsZero() bool {
	return u == Update{}
}

// Failure builds the terminal update published when a job fails.
func Failure(message string) Update {
	return Update{Stage: StageError, Percent: 0, Message: message}
}

// Sink receives progress updates. Delivery is fire-and-forget: a sink must
// not block for long and failures are never reported back to the producer.
type Sink interface {
	Publish(Update)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Update)

// Publish calls f(u).
func (f SinkFunc) Publish(u Update) {
	f(u)
}

// Discard drops every update.
var Discard Sink = SinkFunc(func(Update) {})
