// Package logging sets up the collector's structured log (spec.md §6:
// logs/daemon.log). Grounded on github.com/charmbracelet/log, present in
// the example pack's dependency tree (DanielLaubacher-gogrep).
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// Logger wraps a *log.Logger with the file handle so Close can release it.
type Logger struct {
	*log.Logger
	file *os.File

	// RunID identifies this collector process's lifetime across restarts;
	// every log line carries its first eight characters so grep'd daemon.log output can be split
	// by run even though the pid may be reused by the OS later.
	RunID string
}

// levelFromString maps the config.Daemon.LogLevel floor to charmbracelet/log's
// Level type. An unrecognized level silently falls back to Info.
func levelFromString(s string) log.Level {
	switch s {
	case "debug":
		return log.DebugLevel
	case "info":
		return log.InfoLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// Open creates (or appends to) the daemon log file and returns a Logger at
// the given severity floor.
func Open(path string, level string) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}

	runID := uuid.New().String()

	lg := log.NewWithOptions(f, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "2006-01-02T15:04:05Z07:00",
		Prefix:          "collector",
	})
	lg.SetLevel(levelFromString(level))
	lg = lg.With("run", runID[:8])

	return &Logger{Logger: lg, file: f, RunID: runID}, nil
}

// Reopen re-opens the underlying file, tolerating external log rotation
// (spec.md §1: "log file rotation policies ... treated as external
// collaborators" — cctop only needs to survive the file being moved out
// from under it, not perform the rotation itself).
func (l *Logger) Reopen(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("reopen log file %s: %w", path, err)
	}
	old := l.file
	l.file = f
	l.Logger.SetOutput(f)
	return old.Close()
}

// Close releases the underlying file handle.
func (l *Logger) Close() error {
	return l.file.Close()
}

// Discard returns a Logger that writes nowhere, used by tests and by the
// viewer (which has no daemon.log of its own).
func Discard() *Logger {
	lg := log.NewWithOptions(io.Discard, log.Options{})
	return &Logger{Logger: lg}
}
