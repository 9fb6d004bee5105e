// Package handlers provides HTTP API handlers for dlcut.
package handlers

import (
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/jmylchreest/dlcut/internal/apperr"
	"github.com/jmylchreest/dlcut/internal/deps"
	"github.com/jmylchreest/dlcut/internal/job"
	"github.com/jmylchreest/dlcut/internal/service"
)

// toHumaError maps a domain error onto an HTTP status. Only the safe message
// reaches the response body.
func toHumaError(err error) error {
	msg := apperr.Message(err)

	switch {
	case errors.Is(err, job.ErrAlreadyRunning), errors.Is(err, deps.ErrInstallInProgress):
		return huma.Error409Conflict(msg)
	case errors.Is(err, job.ErrNothingRunning), errors.Is(err, service.ErrNoPreview):
		return huma.Error404NotFound(msg)
	}

	switch apperr.KindOf(err) {
	case apperr.KindInvalidInput:
		return huma.Error400BadRequest(msg)
	case apperr.KindUnavailableTool:
		return huma.Error503ServiceUnavailable(msg)
	default:
		return huma.Error500InternalServerError(msg)
	}
}
