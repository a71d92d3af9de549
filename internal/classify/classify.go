// Package classify implements C2 (Event Classifier) and C4 (Startup
// Reconciler): translating raw filesystem signals into the six-kind event
// taxonomy, pairing delete+add into move, detecting restore, coalescing
// modifies, and reconciling store state against disk at collector start
// (spec.md §4.2). Grounded on the teacher's single-threaded dispatch idiom
// (internal/ui/chat.go's one-loop-one-owner style) generalized from chat
// intents to filesystem signals.
package classify

import (
	"path/filepath"
	"time"

	"github.com/cctop/cctop/internal/excludes"
	"github.com/cctop/cctop/internal/logging"
	"github.com/cctop/cctop/internal/measure"
	"github.com/cctop/cctop/internal/model"
	"github.com/cctop/cctop/internal/store"
)

// RawKind is the alphabet of filesystem signals the watcher produces.
type RawKind int

const (
	RawAdd RawKind = iota
	RawChange
	RawRemove
)

// RawSignal is one notification from the filesystem watcher, already
// stat'd where applicable (spec.md §4.2).
type RawSignal struct {
	Kind  RawKind
	Path  string
	Inode uint64
	Now   time.Time
}

// Options configures the classifier from monitoring config (spec.md §6).
type Options struct {
	MoveWindow time.Duration
	Debounce   time.Duration
}

type pendingDelete struct {
	fileID  int64
	path    string
	name    string
	dir     string
	removedAt time.Time
}

type pendingModify struct {
	fileID   int64
	inode    uint64
	path     string
	name     string
	dir      string
	lastSeen time.Time
}

// Classifier owns the pending-delete map and the debounce map, per
// spec.md §5: both are exclusive to the classifier and never shared.
type Classifier struct {
	store    *store.Store
	excludes *excludes.Matcher
	log      *logging.Logger
	opts     Options

	pendingDeletes map[uint64]pendingDelete
	pendingModifies map[uint64]pendingModify
}

// New constructs a Classifier. excl may be nil (no exclusions).
func New(st *store.Store, excl *excludes.Matcher, log *logging.Logger, opts Options) *Classifier {
	if opts.MoveWindow <= 0 {
		opts.MoveWindow = 100 * time.Millisecond
	}
	if opts.Debounce <= 0 {
		opts.Debounce = 100 * time.Millisecond
	}
	return &Classifier{
		store:           st,
		excludes:        excl,
		log:             log,
		opts:            opts,
		pendingDeletes:  make(map[uint64]pendingDelete),
		pendingModifies: make(map[uint64]pendingModify),
	}
}

// Dispatch processes one raw signal in arrival order (spec.md §5: signals
// for the same path are processed in arrival order, which is what makes
// move-pairing and debounce-coalescing correct).
func (c *Classifier) Dispatch(sig RawSignal) {
	if c.excludes != nil && c.excludes.Excluded(sig.Path) {
		return
	}

	switch sig.Kind {
	case RawRemove:
		c.handleRemove(sig)
	case RawAdd:
		c.handleAdd(sig)
	case RawChange:
		c.handleChange(sig)
	}
}

// Tick services move-window expiries and debounce flushes. The collector
// runtime calls this from its single background timer (spec.md §5).
func (c *Classifier) Tick(now time.Time) {
	for inode, pd := range c.pendingDeletes {
		if now.Before(pd.removedAt.Add(c.opts.MoveWindow)) {
			continue
		}
		delete(c.pendingDeletes, inode)
		c.emitKnownFileDelete(pd, now)
	}

	for inode, pm := range c.pendingModifies {
		if now.Before(pm.lastSeen.Add(c.opts.Debounce)) {
			continue
		}
		delete(c.pendingModifies, inode)
		c.flushModify(pm, now)
	}
}

func (c *Classifier) handleRemove(sig RawSignal) {
	// A pending modify for this inode is superseded by its removal; the
	// debounce window cannot fire for a file that no longer exists.
	delete(c.pendingModifies, sig.Inode)

	f, err := c.store.FileByInode(sig.Inode)
	var fileID int64
	var path string
	if err == nil {
		fileID = f.ID
		if p, perr := c.store.LatestPathForFile(f.ID); perr == nil {
			path = p
		} else {
			path = sig.Path
		}
	} else {
		// Unknown inode being removed: nothing to pair or emit against.
		return
	}

	c.pendingDeletes[sig.Inode] = pendingDelete{
		fileID:    fileID,
		path:      path,
		name:      filepath.Base(path),
		dir:       filepath.Dir(path),
		removedAt: sig.Now,
	}
}

func (c *Classifier) handleAdd(sig RawSignal) {
	if pd, ok := c.pendingDeletes[sig.Inode]; ok {
		delete(c.pendingDeletes, sig.Inode)
		c.emitMove(pd, sig)
		return
	}

	f, err := c.store.FileByInode(sig.Inode)
	isRestore := false
	if err == nil && !f.IsActive {
		isRestore = true
	}
	if !isRestore {
		if _, found, perr := c.store.FileWithPriorDeleteAt(sig.Path); perr == nil && found {
			isRestore = true
		}
	}

	meas := c.measure(sig.Path, sig.Inode)

	kind := model.KindCreate
	if isRestore {
		kind = model.KindRestore
	}

	c.emit(store.WriteEvent{
		Timestamp:   sig.Now.Unix(),
		Kind:        kind,
		Inode:       sig.Inode,
		Path:        sig.Path,
		Name:        filepath.Base(sig.Path),
		Dir:         filepath.Dir(sig.Path),
		Measurement: &meas,
	})
}

func (c *Classifier) handleChange(sig RawSignal) {
	c.pendingModifies[sig.Inode] = pendingModify{
		inode:    sig.Inode,
		path:     sig.Path,
		name:     filepath.Base(sig.Path),
		dir:      filepath.Dir(sig.Path),
		lastSeen: sig.Now,
	}
}

func (c *Classifier) flushModify(pm pendingModify, now time.Time) {
	meas := c.measure(pm.path, pm.inode)
	c.emit(store.WriteEvent{
		Timestamp:   now.Unix(),
		Kind:        model.KindModify,
		Inode:       pm.inode,
		Path:        pm.path,
		Name:        pm.name,
		Dir:         pm.dir,
		Measurement: &meas,
	})
}

func (c *Classifier) emitMove(pd pendingDelete, sig RawSignal) {
	c.emit(store.WriteEvent{
		Timestamp:   sig.Now.Unix(),
		Kind:        model.KindMove,
		Inode:       sig.Inode,
		Path:        sig.Path,
		Name:        filepath.Base(sig.Path),
		Dir:         filepath.Dir(sig.Path),
		KnownFileID: pd.fileID,
	})
}

func (c *Classifier) emitKnownFileDelete(pd pendingDelete, now time.Time) {
	c.emit(store.WriteEvent{
		Timestamp:   now.Unix(),
		Kind:        model.KindDelete,
		Path:        pd.path,
		Name:        pd.name,
		Dir:         pd.dir,
		KnownFileID: pd.fileID,
	})
}

func (c *Classifier) measure(path string, inode uint64) model.Measurement {
	r, err := measure.Calculate(path)
	if err != nil {
		if c.log != nil {
			c.log.Warn("measurement failed, substituting zero values", "path", path, "err", err)
		}
		return model.Measurement{Inode: inode}
	}
	return model.Measurement{Inode: inode, Size: r.Size, Lines: r.Lines, Blocks: r.Blocks, IsBinary: r.IsBinary}
}

// emit writes an event, retrying once on failure and dropping it on a
// second failure without blocking the caller (spec.md §4.2, §7).
func (c *Classifier) emit(we store.WriteEvent) {
	_, _, err := c.store.InsertEvent(we)
	if err == nil {
		return
	}
	_, _, err2 := c.store.InsertEvent(we)
	if err2 == nil {
		return
	}
	if c.log != nil {
		c.log.Error("dropping event after retry", "kind", we.Kind, "path", we.Path, "err", err2)
	}
}
