// Package viewerstate implements C9: the viewer's explicit tagged state
// machine (spec.md §4.7, §9 — replacing the source's "state machine by
// ad-hoc booleans" with a single transition function). Grounded on the
// teacher's internal/ui/intent.go dispatch-by-parsed-intent shape,
// generalized from chat intents to viewer keystrokes.
package viewerstate

import (
	"time"

	"github.com/cctop/cctop/internal/model"
)

// State is the FSM's tagged union of viewer modes (spec.md §4.7).
type State int

const (
	StreamLive State = iota
	StreamPaused
	EditingKindFilter
	EditingKeywordFilter
)

func (s State) String() string {
	switch s {
	case StreamLive:
		return "stream-live"
	case StreamPaused:
		return "stream-paused"
	case EditingKindFilter:
		return "editing-kind-filter"
	case EditingKeywordFilter:
		return "editing-keyword-filter"
	default:
		return "unknown"
	}
}

// ViewMode mirrors query.Mode without importing it, keeping viewerstate
// free of a dependency on the query engine.
type ViewMode int

const (
	ModeAll ViewMode = iota
	ModeLatestPerFile
)

// snapshot captures the pre-edit filter/keyword, restored on Escape from
// an editing state (spec.md §4.7).
type snapshot struct {
	kinds   map[model.Kind]bool
	keyword string
}

// Debounce is the keyword-search debounce window (spec.md §4.7).
const Debounce = 300 * time.Millisecond

// MaxAutoFillRounds bounds the auto-fill loop (spec.md §4.7: "bounded to
// prevent runaway loops").
const MaxAutoFillRounds = 20

// Machine holds the full FSM state: current mode, filters, and auxiliary
// viewport/selection/loading state.
type Machine struct {
	state State
	mode  ViewMode

	kinds   map[model.Kind]bool // nil means "no filter" (all kinds)
	keyword string
	// dbApplied is true once Enter has promoted the in-progress keyword
	// pattern to a full database search; false while only the local,
	// debounced search is active (spec.md §4.7).
	dbApplied bool

	snap *snapshot

	ViewportStart int
	Selected      int
	HasMoreData   bool
	IsLoadingMore bool

	lastKeystroke time.Time
}

// New builds a Machine in the default stream-live state with no filters.
func New() *Machine {
	return &Machine{state: StreamLive, mode: ModeAll}
}

func (m *Machine) State() State         { return m.state }
func (m *Machine) Mode() ViewMode       { return m.mode }
func (m *Machine) Keyword() string      { return m.keyword }
func (m *Machine) DBApplied() bool      { return m.dbApplied }
func (m *Machine) Kinds() map[model.Kind]bool {
	return m.kinds
}

// SetMode switches between all/latest-per-file display modes. Caller is
// responsible for invalidating the result cache (spec.md §4.6).
func (m *Machine) SetMode(mode ViewMode) {
	m.mode = mode
}

// TogglePause implements the space keybinding (spec.md §4.7, §6).
func (m *Machine) TogglePause() {
	switch m.state {
	case StreamLive:
		m.state = StreamPaused
	case StreamPaused:
		m.state = StreamLive
	}
}

// EnterKindFilterEditing implements the `f` keybinding from a streaming
// state, snapshotting the current filter and keyword.
func (m *Machine) EnterKindFilterEditing() {
	if m.state != StreamLive && m.state != StreamPaused {
		return
	}
	m.snap = &snapshot{kinds: cloneKinds(m.kinds), keyword: m.keyword}
	m.state = EditingKindFilter
}

// ToggleKind flips inclusion of k in the in-progress kind filter, used
// while in EditingKindFilter.
func (m *Machine) ToggleKind(k model.Kind) {
	if m.state != EditingKindFilter {
		return
	}
	if m.kinds == nil {
		m.kinds = make(map[model.Kind]bool, len(model.Kinds))
		for _, kk := range model.Kinds {
			m.kinds[kk] = true
		}
	}
	m.kinds[k] = !m.kinds[k]
}

// EnterKeywordFilterEditing implements the `/` keybinding, snapshotting
// state and clearing the DB-applied flag (spec.md §4.7).
func (m *Machine) EnterKeywordFilterEditing() {
	if m.state != StreamLive && m.state != StreamPaused {
		return
	}
	m.snap = &snapshot{kinds: cloneKinds(m.kinds), keyword: m.keyword}
	m.dbApplied = false
	m.state = EditingKeywordFilter
}

// TypeRune appends a printable 7-bit character to the in-progress keyword
// pattern (spec.md §4.7: only 0x20..0x7E are appended).
func (m *Machine) TypeRune(r rune, now time.Time) {
	if m.state != EditingKeywordFilter {
		return
	}
	if r < 0x20 || r > 0x7E {
		return
	}
	m.keyword += string(r)
	m.lastKeystroke = now
}

// Backspace removes the last code point of the in-progress keyword.
func (m *Machine) Backspace(now time.Time) {
	if m.state != EditingKeywordFilter {
		return
	}
	runes := []rune(m.keyword)
	if len(runes) == 0 {
		return
	}
	m.keyword = string(runes[:len(runes)-1])
	m.lastKeystroke = now
}

// DebounceElapsed reports whether the 300ms local-search debounce has
// expired since the last keystroke (spec.md §4.7).
func (m *Machine) DebounceElapsed(now time.Time) bool {
	return !now.Before(m.lastKeystroke.Add(Debounce))
}

// Confirm implements Enter from an editing state: drop the snapshot,
// return to stream-live, and signal the caller to re-query (spec.md §4.7).
// For EditingKeywordFilter, Enter additionally promotes the pattern to a
// full database search.
func (m *Machine) Confirm() {
	switch m.state {
	case EditingKindFilter:
		m.snap = nil
		m.state = StreamLive
	case EditingKeywordFilter:
		m.dbApplied = true
		m.snap = nil
		m.state = StreamLive
	}
}

// Cancel implements Escape from an editing state: restore the snapshot,
// return to stream-live, and re-query (spec.md §4.7).
func (m *Machine) Cancel() {
	switch m.state {
	case EditingKindFilter, EditingKeywordFilter:
		if m.snap != nil {
			m.kinds = m.snap.kinds
			m.keyword = m.snap.keyword
		}
		m.snap = nil
		m.state = StreamLive
	}
}

// Reset implements Escape from a streaming state: resets mode, kind
// filter, and keyword to defaults. Caller must invalidate the cache
// (spec.md §4.7).
func (m *Machine) Reset() {
	if m.state != StreamLive && m.state != StreamPaused {
		return
	}
	m.mode = ModeAll
	m.kinds = nil
	m.keyword = ""
	m.dbApplied = false
}

// MoveDown advances the selection by one row, bounded by loadedCount (no
// wrap at the bottom; spec.md §4.7).
func (m *Machine) MoveDown(loadedCount int) {
	if m.Selected+1 < loadedCount {
		m.Selected++
	}
}

// MoveUp retreats the selection by one row; no wrap at the top.
func (m *Machine) MoveUp() {
	if m.Selected > 0 {
		m.Selected--
	}
}

// FilterActive reports whether a kind filter or a keyword filter is
// currently applied (spec.md §4.7's "any filter has ... been applied").
func (m *Machine) FilterActive() bool {
	if m.keyword != "" {
		return true
	}
	if m.kinds == nil {
		return false
	}
	for _, k := range model.Kinds {
		if !m.kinds[k] {
			return true
		}
	}
	return false
}

// RefreshSuspended reports whether the periodic re-query should be
// skipped: while paused, while the viewport is scrolled away from the
// top, or while an applied filter has already exhausted the data set
// (spec.md §4.7).
func (m *Machine) RefreshSuspended() bool {
	if m.state == StreamPaused {
		return true
	}
	if m.ViewportStart > 0 {
		return true
	}
	if m.FilterActive() && !m.HasMoreData {
		return true
	}
	return false
}

// ShouldAutoFill reports whether another page should be requested after a
// refresh: the loaded set is smaller than the viewport, more data exists,
// and refresh isn't suspended (spec.md §4.7).
func (m *Machine) ShouldAutoFill(loadedCount, viewportHeight int) bool {
	if m.state == StreamPaused || m.ViewportStart > 0 {
		return false
	}
	if !m.HasMoreData {
		return false
	}
	return loadedCount < viewportHeight
}

func cloneKinds(kinds map[model.Kind]bool) map[model.Kind]bool {
	if kinds == nil {
		return nil
	}
	out := make(map[model.Kind]bool, len(kinds))
	for k, v := range kinds {
		out[k] = v
	}
	return out
}
