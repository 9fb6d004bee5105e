// Package job supervises the external processes that do the actual work:
// metadata fetches, downloads and cuts. At most one job runs at a time.
package job

import (
	"errors"
	"strings"

	"github.com/jmylchreest/dlcut/internal/progress"
)

// Kind identifies what a job does.
type Kind string

const (
	KindFetch    Kind = "fetch"
	KindDownload Kind = "download"
	KindCut      Kind = "cut"
)

// Invocation is a fully constructed external command.
type Invocation struct {
	Program string
	Args    []string
	Dir     string
	// Env is appended to the current environment when non-empty.
	Env []string
}

// String returns the command line for logging.
func (i Invocation) String() string {
	parts := make([]string, 0, len(i.Args)+1)
	parts = append(parts, i.Program)
	for _, a := range i.Args {
		if strings.ContainsAny(a, " \t\"'") {
			a = "\"" + strings.ReplaceAll(a, "\"", "\\\"") + "\""
		}
		parts = append(parts, a)
	}
	return strings.Join(parts, " ")
}

// Strategy is one way of producing a job's output.
type Strategy struct {
	Name       string
	Invocation Invocation
	// Announce is published before the process is spawned, if non-zero.
	Announce progress.Update
	// Parser turns stdout lines into updates. Nil means no progress output.
	Parser progress.LineParser
}

// Job describes a unit of supervised work.
//
// Strategies are tried in order. The next one runs only when the previous
// process exited non-zero; spawn and read errors end the job immediately.
type Job struct {
	// ID is assigned by the supervisor when empty.
	ID         string
	Kind       Kind
	OutputPath string
	Strategies []Strategy
	// Done is published after a successful exit, if non-zero.
	Done progress.Update
	// FailureMessage is the user-visible text of the terminal error update.
	FailureMessage string
}

func (j Job) validate() error {
	if j.Kind == "" {
		return errors.New("job kind is required")
	}
	if len(j.Strategies) == 0 {
		return errors.New("job has no strategies")
	}
	for _, s := range j.Strategies {
		if s.Invocation.Program == "" {
			return errors.New("strategy " + s.Name + " has no program")
		}
	}
	return nil
}

func (j Job) failureMessage() string {
	if j.FailureMessage != "" {
		return j.FailureMessage
	}
	return "Operation failed"
}
