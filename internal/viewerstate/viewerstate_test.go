package viewerstate

import (
	"testing"
	"time"

	"github.com/cctop/cctop/internal/model"
)

func TestTogglePause(t *testing.T) {
	m := New()
	if m.State() != StreamLive {
		t.Fatalf("expected default state stream-live, got %v", m.State())
	}
	m.TogglePause()
	if m.State() != StreamPaused {
		t.Fatalf("expected stream-paused, got %v", m.State())
	}
	m.TogglePause()
	if m.State() != StreamLive {
		t.Fatalf("expected stream-live, got %v", m.State())
	}
}

func TestKeywordEditConfirmPromotesDBSearch(t *testing.T) {
	m := New()
	m.EnterKeywordFilterEditing()
	if m.State() != EditingKeywordFilter {
		t.Fatalf("expected editing-keyword-filter, got %v", m.State())
	}

	now := time.Unix(0, 0)
	for _, r := range "test" {
		m.TypeRune(r, now)
	}
	if m.Keyword() != "test" {
		t.Fatalf("keyword = %q, want %q", m.Keyword(), "test")
	}
	if m.DBApplied() {
		t.Fatal("expected db-applied false before Confirm")
	}

	m.Confirm()
	if m.State() != StreamLive {
		t.Fatalf("expected return to stream-live after Confirm, got %v", m.State())
	}
	if !m.DBApplied() {
		t.Fatal("expected db-applied true after Confirm")
	}
	if m.Keyword() != "test" {
		t.Fatalf("keyword should survive Confirm, got %q", m.Keyword())
	}
}

func TestKeywordEditCancelRestoresSnapshot(t *testing.T) {
	m := New()
	m.EnterKeywordFilterEditing()
	now := time.Unix(0, 0)
	for _, r := range "original" {
		m.TypeRune(r, now)
	}
	m.Confirm()

	m.EnterKeywordFilterEditing()
	for _, r := range "xxxx" {
		m.TypeRune(r, now)
	}
	m.Cancel()

	if m.State() != StreamLive {
		t.Fatalf("expected stream-live after Cancel, got %v", m.State())
	}
	if m.Keyword() != "original" {
		t.Fatalf("expected keyword reverted to %q, got %q", "original", m.Keyword())
	}
}

func TestBackspaceRemovesOneCodePoint(t *testing.T) {
	m := New()
	m.EnterKeywordFilterEditing()
	now := time.Unix(0, 0)
	for _, r := range "abc" {
		m.TypeRune(r, now)
	}
	m.Backspace(now)
	if m.Keyword() != "ab" {
		t.Fatalf("keyword = %q, want %q", m.Keyword(), "ab")
	}
}

func TestNonPrintableRunesIgnored(t *testing.T) {
	m := New()
	m.EnterKeywordFilterEditing()
	now := time.Unix(0, 0)
	m.TypeRune('\t', now)
	m.TypeRune('a', now)
	m.TypeRune(0x7F, now)
	if m.Keyword() != "a" {
		t.Fatalf("keyword = %q, want %q", m.Keyword(), "a")
	}
}

func TestResetFromStreamingClearsFilters(t *testing.T) {
	m := New()
	m.SetMode(ModeLatestPerFile)
	m.EnterKindFilterEditing()
	m.ToggleKind(model.KindCreate)
	m.Confirm()

	m.Reset()

	if m.Mode() != ModeAll {
		t.Errorf("expected mode reset to all, got %v", m.Mode())
	}
	if m.Kinds() != nil {
		t.Errorf("expected kind filter reset to nil, got %v", m.Kinds())
	}
	if m.Keyword() != "" {
		t.Errorf("expected keyword reset, got %q", m.Keyword())
	}
}

func TestSelectionNoWrapAtBottom(t *testing.T) {
	m := New()
	m.MoveDown(3)
	m.MoveDown(3)
	m.MoveDown(3) // already at last index (2), should be a no-op
	if m.Selected != 2 {
		t.Errorf("Selected = %d, want 2 (no wrap)", m.Selected)
	}
}

func TestSelectionNoWrapAtTop(t *testing.T) {
	m := New()
	m.MoveUp()
	if m.Selected != 0 {
		t.Errorf("Selected = %d, want 0 (no wrap)", m.Selected)
	}
}

func TestDebounceElapsed(t *testing.T) {
	m := New()
	m.EnterKeywordFilterEditing()
	t0 := time.Unix(100, 0)
	m.TypeRune('a', t0)

	if m.DebounceElapsed(t0.Add(100 * time.Millisecond)) {
		t.Error("expected debounce not yet elapsed at +100ms")
	}
	if !m.DebounceElapsed(t0.Add(301 * time.Millisecond)) {
		t.Error("expected debounce elapsed at +301ms")
	}
}

func TestShouldAutoFillSuspendedWhilePaused(t *testing.T) {
	m := New()
	m.HasMoreData = true
	m.TogglePause()
	if m.ShouldAutoFill(1, 10) {
		t.Error("expected auto-fill suspended while paused")
	}
}

func TestShouldAutoFillWhenUnderfilled(t *testing.T) {
	m := New()
	m.HasMoreData = true
	if !m.ShouldAutoFill(1, 10) {
		t.Error("expected auto-fill requested when loaded < viewport and more data exists")
	}
	if m.ShouldAutoFill(10, 10) {
		t.Error("expected no auto-fill when loaded fills viewport")
	}
}

func TestRefreshSuspendedWhilePaused(t *testing.T) {
	m := New()
	m.TogglePause()
	if !m.RefreshSuspended() {
		t.Error("expected refresh suspended while paused")
	}
}

func TestRefreshSuspendedWhenScrolledAwayFromTop(t *testing.T) {
	m := New()
	m.ViewportStart = 3
	if !m.RefreshSuspended() {
		t.Error("expected refresh suspended when viewport is scrolled away from top")
	}
}

func TestRefreshSuspendedWhenFilterExhausted(t *testing.T) {
	m := New()
	m.EnterKeywordFilterEditing()
	m.TypeRune('x', time.Time{})
	m.Confirm()
	m.HasMoreData = false
	if !m.RefreshSuspended() {
		t.Error("expected refresh suspended when an applied filter has produced no more data")
	}
}

func TestRefreshNotSuspendedByDefault(t *testing.T) {
	m := New()
	m.HasMoreData = true
	if m.RefreshSuspended() {
		t.Error("expected refresh live with no filter, no scroll, and more data available")
	}
}

func TestFilterActiveForKeywordAndKindFilter(t *testing.T) {
	m := New()
	if m.FilterActive() {
		t.Error("expected no filter active by default")
	}

	m.EnterKeywordFilterEditing()
	m.TypeRune('x', time.Time{})
	m.Confirm()
	if !m.FilterActive() {
		t.Error("expected filter active once a keyword is confirmed")
	}

	m2 := New()
	m2.EnterKindFilterEditing()
	m2.ToggleKind(model.KindDelete)
	m2.Confirm()
	if !m2.FilterActive() {
		t.Error("expected filter active once a kind is excluded")
	}
}
