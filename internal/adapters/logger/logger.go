// Package logger implements the logging adapter on top of log/slog.
package logger

import (
	"io"
	"log/slog"
	"os"
	"sync/atomic"

	"go.trai.ch/lane/internal/core/ports"
)

// debugEnv enables debug-level output when set to any non-empty value.
const debugEnv = "LANE_DEBUG"

var _ ports.Logger = (*Logger)(nil)

// Logger implements ports.Logger. The underlying slog.Logger is held behind
// an atomic pointer so SetOutput can swap it while steps are logging
// concurrently.
type Logger struct {
	logger atomic.Pointer[slog.Logger]
}

// New creates a Logger writing human-readable text to stderr. Verbosity is
// controlled by the LANE_DEBUG environment variable.
func New() *Logger {
	l := &Logger{}
	l.logger.Store(newSlog(os.Stderr))
	return l
}

// SetOutput redirects all subsequent log output to w.
func (l *Logger) SetOutput(w io.Writer) {
	l.logger.Store(newSlog(w))
}

func newSlog(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv(debugEnv) != "" {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Info logs an informational message.
func (l *Logger) Info(msg string) {
	l.logger.Load().Info(msg)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string) {
	l.logger.Load().Warn(msg)
}

// Error logs a failed operation.
func (l *Logger) Error(err error) {
	l.logger.Load().Error("operation failed", "error", err)
}
