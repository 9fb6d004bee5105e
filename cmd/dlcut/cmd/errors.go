package cmd

import (
	"errors"
	"log/slog"

	"github.com/jmylchreest/dlcut/internal/apperr"
	"github.com/jmylchreest/dlcut/internal/observability"
)

// cmdLogger returns the logger installed by loadConfig.
func cmdLogger() *slog.Logger {
	return slog.Default()
}

// cliError reduces err to its user-facing message. The full chain is logged
// at debug level.
func cliError(err error) error {
	if err == nil {
		return nil
	}
	observability.WithError(cmdLogger(), err).Debug("command failed", slog.String("kind", string(apperr.KindOf(err))))
	return errors.New(apperr.Message(err))
}
