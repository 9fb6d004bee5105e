package job

import "github.com/jmylchreest/dlcut/internal/apperr"

var (
	// ErrAlreadyRunning is returned by Start while another job holds the slot.
	ErrAlreadyRunning = apperr.New(apperr.KindInvalidInput, "An operation is already in progress")
	// ErrNothingRunning is returned by CancelActive when the slot is empty.
	ErrNothingRunning = apperr.New(apperr.KindInvalidInput, "No operation is running")
	// ErrCancelled is returned by a job's Wait after it was cancelled.
	ErrCancelled = apperr.New(apperr.KindCancelled, "Operation cancelled")
)
