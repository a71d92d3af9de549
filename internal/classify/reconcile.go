package classify

import (
	"os"
	"path/filepath"
	"time"

	"github.com/cctop/cctop/internal/measure"
	"github.com/cctop/cctop/internal/model"
	"github.com/cctop/cctop/internal/store"
)

// measureFor computes a measurement tuple for the reconciler's find events,
// substituting zero values on read failure rather than aborting the walk
// (spec.md §4.1, §7: unreadability is recorded, not propagated).
func measureFor(path string, inode uint64) model.Measurement {
	r, err := measure.Calculate(path)
	if err != nil {
		return model.Measurement{Inode: inode}
	}
	return model.Measurement{Inode: inode, Size: r.Size, Lines: r.Lines, Blocks: r.Blocks, IsBinary: r.IsBinary}
}

// inodeOf extracts the platform inode number from a stat result. Isolated
// so the reconciler walk stays portable at the call site.
var inodeOf = defaultInodeOf

// Reconciler is C4: the one-shot startup pass that brings the store into
// agreement with what is on disk (spec.md §4.2 step 1-3).
type Reconciler struct {
	store    *store.Store
	excludes excludeMatcher
	maxDepth int
}

type excludeMatcher interface {
	Excluded(path string) bool
}

// NewReconciler builds a Reconciler. maxDepth <= 0 means unbounded.
func NewReconciler(st *store.Store, excl excludeMatcher, maxDepth int) *Reconciler {
	return &Reconciler{store: st, excludes: excl, maxDepth: maxDepth}
}

// Run walks roots, emits `find` for unknown present files (step 1-2), then
// emits `delete` for active files no longer observed (step 3). Safe to
// call more than once: a clean second run with no intervening change
// produces no events (spec.md §8).
func (r *Reconciler) Run(roots []string, now time.Time) error {
	seen := make(map[int64]bool)

	for _, root := range roots {
		if err := r.walk(root, seen, now); err != nil {
			return err
		}
	}

	activeIDs, err := r.store.ActiveFileIDs()
	if err != nil {
		return err
	}

	for _, id := range activeIDs {
		if seen[id] {
			continue
		}
		path, perr := r.store.LatestPathForFile(id)
		if perr != nil {
			continue
		}
		_, _, err := r.store.InsertEvent(store.WriteEvent{
			Timestamp:   now.Unix(),
			Kind:        model.KindDelete,
			Path:        path,
			Name:        filepath.Base(path),
			Dir:         filepath.Dir(path),
			KnownFileID: id,
		})
		if err != nil {
			return err
		}
	}

	return nil
}

func (r *Reconciler) walk(root string, seen map[int64]bool, now time.Time) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // unreadable entries are a transient-io concern, skipped
		}
		if r.excludes != nil && r.excludes.Excluded(path) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() {
			if r.maxDepth > 0 && depthOf(path)-depthOf(root) >= r.maxDepth {
				return filepath.SkipDir
			}
			return nil
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		inode := inodeOf(info)

		f, err := r.store.FileByInode(inode)
		if err == nil {
			seen[f.ID] = true
			return nil
		}

		meas := measureFor(path, inode)
		_, fileID, insErr := r.store.InsertEvent(store.WriteEvent{
			Timestamp:   now.Unix(),
			Kind:        model.KindFind,
			Inode:       inode,
			Path:        path,
			Name:        filepath.Base(path),
			Dir:         filepath.Dir(path),
			Measurement: &meas,
		})
		if insErr != nil {
			return insErr
		}
		seen[fileID] = true
		return nil
	})
}

func depthOf(path string) int {
	clean := filepath.Clean(path)
	n := 0
	for _, r := range clean {
		if r == filepath.Separator {
			n++
		}
	}
	return n
}
