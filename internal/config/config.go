// Package config loads the collector and viewer configuration surfaces
// described in spec.md §6. Each component gets exactly one configuration
// type with defaults; legacy/mirrored key shapes (a pattern in the teacher
// repo this was distilled from, per spec.md §9) are not supported.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Collector is the daemon's configuration surface.
type Collector struct {
	Monitoring Monitoring `json:"monitoring"`
	Daemon     Daemon     `json:"daemon"`
	Database   Database   `json:"database"`
}

// Monitoring controls the watcher and classifier.
type Monitoring struct {
	WatchPaths       []string `json:"watchPaths"`
	ExcludePatterns  []string `json:"excludePatterns"`
	DebounceMs       int      `json:"debounceMs"`
	MoveThresholdMs  int      `json:"moveThresholdMs"`
	MaxDepth         int      `json:"maxDepth"`
}

// Daemon controls process-level concerns.
type Daemon struct {
	PIDFile  string `json:"pidFile"`
	LogFile  string `json:"logFile"`
	LogLevel string `json:"logLevel"`
}

// Database holds store tuning. CacheSize and BusyTimeout are passed to the
// store; WriteMode and SyncMode are loaded but not applied, since the store
// always opens in WAL mode with synchronous=NORMAL.
type Database struct {
	WriteMode    string `json:"writeMode"`
	SyncMode     string `json:"syncMode"`
	CacheSize    int    `json:"cacheSize"`
	BusyTimeout  int    `json:"busyTimeout"`
}

// DefaultCollector returns the documented defaults (spec.md §6).
func DefaultCollector() Collector {
	return Collector{
		Monitoring: Monitoring{
			WatchPaths:      []string{"."},
			ExcludePatterns: []string{"**/node_modules/**", "**/.git/**", ".cctop/**"},
			DebounceMs:      100,
			MoveThresholdMs: 100,
			MaxDepth:        0, // 0 = unbounded
		},
		Daemon: Daemon{
			PIDFile:  ".cctop/runtime/daemon.pid",
			LogFile:  ".cctop/logs/daemon.log",
			LogLevel: "info",
		},
		Database: Database{
			WriteMode:   "wal",
			SyncMode:    "normal",
			CacheSize:   2000,
			BusyTimeout: 5000,
		},
	}
}

// LoadCollector reads path, merging recognized keys over the defaults. An
// empty path or a missing file yields the defaults with no error. An
// unreadable or invalid file yields the defaults together with a
// config-kind error per §7, which the caller logs before continuing.
func LoadCollector(path string) (Collector, error) {
	cfg := DefaultCollector()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	var override Collector
	if err := json.Unmarshal(data, &override); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	mergeCollector(&cfg, override, data)
	return cfg, nil
}

// mergeCollector overlays only the keys present in the raw JSON, so that an
// override file naming a single key doesn't zero out the rest.
func mergeCollector(cfg *Collector, override Collector, raw []byte) {
	var present map[string]json.RawMessage
	if err := json.Unmarshal(raw, &present); err != nil {
		return
	}

	if _, ok := present["monitoring"]; ok {
		mergeMonitoring(&cfg.Monitoring, override.Monitoring, present["monitoring"])
	}
	if _, ok := present["daemon"]; ok {
		mergeDaemon(&cfg.Daemon, override.Daemon, present["daemon"])
	}
	if _, ok := present["database"]; ok {
		mergeDatabase(&cfg.Database, override.Database, present["database"])
	}
}

func mergeMonitoring(dst *Monitoring, src Monitoring, raw json.RawMessage) {
	keys := presentKeys(raw)
	if keys["watchPaths"] {
		dst.WatchPaths = src.WatchPaths
	}
	if keys["excludePatterns"] {
		dst.ExcludePatterns = src.ExcludePatterns
	}
	if keys["debounceMs"] {
		dst.DebounceMs = src.DebounceMs
	}
	if keys["moveThresholdMs"] {
		dst.MoveThresholdMs = src.MoveThresholdMs
	}
	if keys["maxDepth"] {
		dst.MaxDepth = src.MaxDepth
	}
}

func mergeDaemon(dst *Daemon, src Daemon, raw json.RawMessage) {
	keys := presentKeys(raw)
	if keys["pidFile"] {
		dst.PIDFile = src.PIDFile
	}
	if keys["logFile"] {
		dst.LogFile = src.LogFile
	}
	if keys["logLevel"] {
		dst.LogLevel = src.LogLevel
	}
}

func mergeDatabase(dst *Database, src Database, raw json.RawMessage) {
	keys := presentKeys(raw)
	if keys["writeMode"] {
		dst.WriteMode = src.WriteMode
	}
	if keys["syncMode"] {
		dst.SyncMode = src.SyncMode
	}
	if keys["cacheSize"] {
		dst.CacheSize = src.CacheSize
	}
	if keys["busyTimeout"] {
		dst.BusyTimeout = src.BusyTimeout
	}
}

func presentKeys(raw json.RawMessage) map[string]bool {
	var m map[string]json.RawMessage
	keys := make(map[string]bool)
	if err := json.Unmarshal(raw, &m); err != nil {
		return keys
	}
	for k := range m {
		keys[k] = true
	}
	return keys
}

// Viewer is the terminal viewer's configuration surface.
type Viewer struct {
	Display Display `json:"display"`
}

// Display controls rendering.
type Display struct {
	RefreshIntervalMs  int                   `json:"refreshInterval"`
	Columns            map[string]Column     `json:"columns"`
	DirectoryMutePaths []string              `json:"directoryMutePaths"`
}

// Column is a per-column override.
type Column struct {
	Visible bool `json:"visible"`
	Width   int  `json:"width"`
}

// DefaultViewer returns the documented defaults (spec.md §6).
func DefaultViewer() Viewer {
	return Viewer{
		Display: Display{
			RefreshIntervalMs:  100,
			Columns:            map[string]Column{},
			DirectoryMutePaths: nil,
		},
	}
}

// LoadViewer reads path, merging recognized keys over the defaults.
func LoadViewer(path string) (Viewer, error) {
	cfg := DefaultViewer()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	var override Viewer
	if err := json.Unmarshal(data, &override); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	if override.Display.RefreshIntervalMs > 0 {
		cfg.Display.RefreshIntervalMs = override.Display.RefreshIntervalMs
	}
	if len(override.Display.Columns) > 0 {
		for name, col := range override.Display.Columns {
			cfg.Display.Columns[name] = col
		}
	}
	if override.Display.DirectoryMutePaths != nil {
		cfg.Display.DirectoryMutePaths = override.Display.DirectoryMutePaths
	}

	return cfg, nil
}
