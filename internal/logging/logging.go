// Package logging provides small helpers on top of log/slog so that
// operational events and errors are logged with a consistent shape.
package logging

import (
	"database/sql"
	"errors"
	"io"
	"log/slog"
)

// LogOperation records a structured operational event.
func LogOperation(logger *slog.Logger, operation string, args ...any) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info(operation, args...)
}

// LogError records an error with an explanatory message.
func LogError(logger *slog.Logger, msg string, err error, args ...any) {
	if logger == nil {
		logger = slog.Default()
	}
	args = append(args, slog.Any("error", err))
	logger.Error(msg, args...)
}

// SafeRollbackWithLogging rolls back tx and logs a failure instead of
// dropping it. A rollback after a successful commit is a no-op, not an error.
func SafeRollbackWithLogging(tx interface{ Rollback() error }, logger *slog.Logger, operation string) {
	if tx == nil {
		return
	}
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		LogError(logger, "failed to roll back transaction", err, slog.String("operation", operation))
	}
}

// SafeCloseWithLogging closes c and logs a failure instead of dropping it.
// Intended for defer statements where the close error cannot change the outcome.
func SafeCloseWithLogging(c io.Closer, logger *slog.Logger, resource string) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		LogError(logger, "failed to close resource", err, slog.String("resource", resource))
	}
}
