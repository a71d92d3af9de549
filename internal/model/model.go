// Package model defines the shared data types for the file-activity store:
// event kinds, files, events, measurements, and aggregates (spec.md §3).
package model

import "time"

// Kind is one of the six semantic event categories. Values are stable
// integer identities matching the event_types table (§6).
type Kind int

const (
	KindFind Kind = iota + 1
	KindCreate
	KindModify
	KindDelete
	KindMove
	KindRestore
)

// Kinds lists every kind in stable order, used wherever "all kinds" means
// "no filter".
var Kinds = []Kind{KindFind, KindCreate, KindModify, KindDelete, KindMove, KindRestore}

func (k Kind) String() string {
	switch k {
	case KindFind:
		return "find"
	case KindCreate:
		return "create"
	case KindModify:
		return "modify"
	case KindDelete:
		return "delete"
	case KindMove:
		return "move"
	case KindRestore:
		return "restore"
	default:
		return "unknown"
	}
}

// ParseKind maps a display name back to its Kind, used by the viewer's
// kind-filter editing state and by config.
func ParseKind(s string) (Kind, bool) {
	for _, k := range Kinds {
		if k.String() == s {
			return k, true
		}
	}
	return 0, false
}

// HasMeasurement reports whether events of this kind carry a measurement
// row (§3 invariant: measurement exists iff kind ∈ {find, create, modify, restore}).
func (k Kind) HasMeasurement() bool {
	switch k {
	case KindFind, KindCreate, KindModify, KindRestore:
		return true
	default:
		return false
	}
}

// MakesActive reports whether an event of this kind leaves the file active.
func (k Kind) MakesActive() bool {
	return k != KindDelete
}

// File is the identity record for a watched inode (§3, §9: file is strictly
// an identity record; latest path is derived from the max-id event).
type File struct {
	ID       int64
	Inode    uint64
	IsActive bool
}

// Measurement is the size/lines/blocks triple attached to content-bearing
// events.
type Measurement struct {
	EventID    int64
	Inode      uint64
	Size       int64
	Lines      int64
	Blocks     int64
	IsBinary   bool
}

// Event is one immutable row in the activity timeline.
type Event struct {
	ID        int64
	Timestamp time.Time
	Kind      Kind
	FileID    int64
	Path      string
	Name      string
	Dir       string

	// Measurement is nil for kinds that don't carry one (delete, move).
	Measurement *Measurement
}

// Aggregate holds the per-file running totals maintained by store triggers.
type Aggregate struct {
	FileID            int64
	CountByKind        [7]int64 // indexed by Kind (1..6); index 0 unused
	FirstEventAt       time.Time
	LastEventAt        time.Time
	SizeMin            int64
	SizeFirst          int64
	SizeLast           int64
}

// Less reports whether a precedes b in the canonical (timestamp, id)
// ordering, oldest first. The "all" view lists events in the reverse of
// this order: (timestamp DESC, id DESC).
func Less(a, b Event) bool {
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.Before(b.Timestamp)
	}
	return a.ID < b.ID
}
