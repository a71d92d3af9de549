// Package collector implements C5: the collector runtime that owns the
// filesystem watcher, enforces exclude patterns and a single-instance
// lock, runs the startup reconciler once, then dispatches live signals
// into the classifier (spec.md §4.2 "Startup reconciliation", §5, §6).
// Grounded on the retrieved standardbeagle-lci FileWatcher
// (fsnotify.Watcher + doublestar exclude + debounce), adapted from its
// index-rebuild domain to activity classification, and on the teacher's
// internal/ui.Chat for the single-loop signal-handling idiom
// (signal.Notify + select-driven shutdown).
package collector

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/cctop/cctop/internal/classify"
	"github.com/cctop/cctop/internal/config"
	"github.com/cctop/cctop/internal/excludes"
	"github.com/cctop/cctop/internal/logging"
	"github.com/cctop/cctop/internal/pidfile"
	"github.com/cctop/cctop/internal/store"
)

// TickInterval services the classifier's move-window and debounce timers
// (spec.md §5: "a single background timer services move-window expiries
// and debounce flushes").
const TickInterval = 25 * time.Millisecond

// Runtime owns the watcher, the classifier, and the process marker.
type Runtime struct {
	cfg   config.Collector
	store *store.Store
	log   *logging.Logger
	excl  *excludes.Matcher
	cl    *classify.Classifier

	watcher *fsnotify.Watcher
	marker  pidfile.Marker

	watchedInodes sync.Map // path(string) -> uint64, tracks last-known inode per watched path
}

// New builds a Runtime from a loaded config, an opened writable store, and
// a logger. Acquires the single-instance marker; returns an error wrapping
// pidfile.ErrLive, naming the live pid, if another collector is already
// running against this working directory.
// configPath is recorded in the marker for diagnostics (spec.md §6).
func New(cfg config.Collector, st *store.Store, log *logging.Logger, configPath string) (*Runtime, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getwd: %w", err)
	}

	marker, err := pidfile.Acquire(cfg.Daemon.PIDFile, cfg.Monitoring.WatchPaths, configPath)
	if err != nil {
		if errors.Is(err, pidfile.ErrLive) {
			return nil, fmt.Errorf("%w (pid %d)", err, marker.PID)
		}
		return nil, err
	}

	excl := excludes.New(cwd, cfg.Monitoring.ExcludePatterns)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		_ = pidfile.Release(cfg.Daemon.PIDFile)
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	cl := classify.New(st, excl, log, classify.Options{
		MoveWindow: time.Duration(cfg.Monitoring.MoveThresholdMs) * time.Millisecond,
		Debounce:   time.Duration(cfg.Monitoring.DebounceMs) * time.Millisecond,
	})

	return &Runtime{
		cfg:     cfg,
		store:   st,
		log:     log,
		excl:    excl,
		cl:      cl,
		watcher: watcher,
		marker:  marker,
	}, nil
}

// Start runs the startup reconciler, begins watching the configured roots,
// and blocks dispatching signals until ctx is canceled. On return, the
// watcher is closed, pending state is flushed, and the process marker is
// released (spec.md §5 "Cancellation").
func (r *Runtime) Start(ctx context.Context) error {
	recon := classify.NewReconciler(r.store, r.excl, r.cfg.Monitoring.MaxDepth)
	if err := recon.Run(r.cfg.Monitoring.WatchPaths, time.Now()); err != nil {
		return fmt.Errorf("startup reconciliation: %w", err)
	}

	for _, root := range r.cfg.Monitoring.WatchPaths {
		if err := r.addTree(root); err != nil {
			r.log.Warn("failed to watch root", "root", root, "err", err)
		}
	}

	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.shutdown()
			return nil

		case ev, ok := <-r.watcher.Events:
			if !ok {
				r.shutdown()
				return nil
			}
			r.handleFsnotify(ev)

		case err, ok := <-r.watcher.Errors:
			if !ok {
				continue
			}
			r.log.Warn("watcher error", "err", err)

		case now := <-ticker.C:
			r.cl.Tick(now)
		}
	}
}

func (r *Runtime) shutdown() {
	r.cl.Tick(time.Now().Add(24 * time.Hour)) // force-expire any pending deletes
	r.watcher.Close()
	_ = r.store.Close()
	_ = pidfile.Release(r.cfg.Daemon.PIDFile)
}

func (r *Runtime) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if r.excl.Excluded(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if werr := r.watcher.Add(path); werr != nil {
				r.log.Warn("watch add failed", "path", path, "err", werr)
			}
			return nil
		}
		if info, ierr := d.Info(); ierr == nil {
			r.watchedInodes.Store(path, inodeOf(info))
		}
		return nil
	})
}

// handleFsnotify translates one fsnotify.Event into the raw-add/change/
// remove alphabet the classifier consumes (spec.md §4.2). fsnotify cannot
// stat a path that has already vanished, so the runtime tracks the last
// inode observed per path and supplies it for remove/rename signals.
func (r *Runtime) handleFsnotify(ev fsnotify.Event) {
	if r.excl.Excluded(ev.Name) {
		return
	}

	now := time.Now()

	switch {
	case ev.Op&fsnotify.Create != 0:
		info, err := os.Stat(ev.Name)
		if err != nil {
			return
		}
		if info.IsDir() {
			_ = r.addTree(ev.Name)
			return
		}
		inode := inodeOf(info)
		r.watchedInodes.Store(ev.Name, inode)
		r.cl.Dispatch(classify.RawSignal{Kind: classify.RawAdd, Path: ev.Name, Inode: inode, Now: now})

	case ev.Op&fsnotify.Write != 0:
		info, err := os.Stat(ev.Name)
		if err != nil {
			return
		}
		if info.IsDir() {
			return
		}
		inode := inodeOf(info)
		r.watchedInodes.Store(ev.Name, inode)
		r.cl.Dispatch(classify.RawSignal{Kind: classify.RawChange, Path: ev.Name, Inode: inode, Now: now})

	case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		v, ok := r.watchedInodes.Load(ev.Name)
		if !ok {
			return
		}
		r.watchedInodes.Delete(ev.Name)
		r.cl.Dispatch(classify.RawSignal{Kind: classify.RawRemove, Path: ev.Name, Inode: v.(uint64), Now: now})
	}
}
