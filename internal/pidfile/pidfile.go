// Package pidfile implements the collector's single-instance marker
// (spec.md §6: runtime/daemon.pid) and the liveness/staleness checks that
// back it (spec.md §9: "multi-process coordination by timeouts... the
// marker is the sole coordination point").
package pidfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"
)

// Marker is the JSON contents of runtime/daemon.pid (spec.md §6).
type Marker struct {
	PID             int      `json:"pid"`
	StartedAtUnixMs int64    `json:"started_at_unix_ms"`
	WorkingDir      string   `json:"working_directory"`
	WatchPaths      []string `json:"watch_paths"`
	ConfigPath      string   `json:"config_path"`
}

// ErrLive is returned by Acquire when another collector already holds the
// marker and is confirmed running.
var ErrLive = errors.New("pidfile: another collector is already running")

// Read loads and parses the marker file. A missing file is reported via
// os.IsNotExist on the returned error.
func Read(path string) (Marker, error) {
	var m Marker
	data, err := os.ReadFile(path)
	if err != nil {
		return m, err
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("parse pidfile %s: %w", path, err)
	}
	return m, nil
}

// IsLive reports whether pid refers to a running process, using
// signal 0 (no-op existence probe; does not actually signal the process).
func IsLive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

// Acquire creates the marker for this process, first removing a stale one
// if present. Returns ErrLive if another collector is confirmed running.
func Acquire(path string, watchPaths []string, configPath string) (Marker, error) {
	existing, err := Read(path)
	if err == nil {
		if IsLive(existing.PID) {
			return existing, ErrLive
		}
		// Stale marker: remove and continue.
		_ = os.Remove(path)
	} else if !os.IsNotExist(err) {
		return Marker{}, err
	}

	wd, err := os.Getwd()
	if err != nil {
		return Marker{}, fmt.Errorf("getwd: %w", err)
	}

	m := Marker{
		PID:             os.Getpid(),
		StartedAtUnixMs: time.Now().UnixMilli(),
		WorkingDir:      wd,
		WatchPaths:      watchPaths,
		ConfigPath:      configPath,
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Marker{}, fmt.Errorf("create runtime dir: %w", err)
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return Marker{}, fmt.Errorf("marshal pidfile: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return Marker{}, fmt.Errorf("write pidfile %s: %w", path, err)
	}

	return m, nil
}

// Release removes the marker, used on graceful collector shutdown.
func Release(path string) error {
	err := os.Remove(path)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

// Status reports the current marker state for `daemon status`, cleaning a
// stale marker as a side effect (spec.md §6).
type StatusResult struct {
	Running bool
	PID     int
}

// Status reads path and reports whether the recorded pid is live. A stale
// marker is removed.
func Status(path string) (StatusResult, error) {
	m, err := Read(path)
	if err != nil {
		if os.IsNotExist(err) {
			return StatusResult{Running: false}, nil
		}
		return StatusResult{}, err
	}

	if IsLive(m.PID) {
		return StatusResult{Running: true, PID: m.PID}, nil
	}

	_ = os.Remove(path)
	return StatusResult{Running: false}, nil
}
