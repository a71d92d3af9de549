package query

import (
	"path/filepath"
	"testing"

	"github.com/cctop/cctop/internal/cache"
	"github.com/cctop/cctop/internal/model"
	"github.com/cctop/cctop/internal/store"
)

func openTest(t *testing.T) *store.Store {
	t.Helper()
	dir := t.TempDir()
	s, err := store.Open(filepath.Join(dir, "activity.db"), store.Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seed(t *testing.T, s *store.Store) {
	t.Helper()
	events := []struct {
		ts   int64
		kind model.Kind
		ino  uint64
		path string
	}{
		{100, model.KindCreate, 1, "/src/test.ts"},
		{200, model.KindCreate, 2, "/logs/debug.log"},
		{300, model.KindCreate, 3, "/tests/index.test.ts"},
	}
	for _, e := range events {
		var meas *model.Measurement
		if e.kind.HasMeasurement() {
			meas = &model.Measurement{Size: 1, Lines: 1, Blocks: 1}
		}
		_, _, err := s.InsertEvent(store.WriteEvent{
			Timestamp: e.ts, Kind: e.kind, Inode: e.ino, Path: e.path,
			Name: filepath.Base(e.path), Dir: filepath.Dir(e.path), Measurement: meas,
		})
		if err != nil {
			t.Fatalf("seed insert: %v", err)
		}
	}
}

func TestKeywordSearchWorkedExample(t *testing.T) {
	s := openTest(t)
	seed(t, s)

	e := New(s, nil)
	events, err := e.Page(Request{Mode: ModeAll, Keyword: "  test\n\tdebug  ", Limit: 10})
	if err != nil {
		t.Fatalf("Page: %v", err)
	}
	// No seeded event has both "test" and "debug" in its name or directory.
	if len(events) != 0 {
		t.Fatalf("expected no events to match both tokens, got %v", events)
	}
}

func TestPageUsesCacheOnFirstPage(t *testing.T) {
	s := openTest(t)
	seed(t, s)

	c := cache.New(3)
	e := New(s, c)

	req := Request{Mode: ModeAll, Limit: 10}
	if _, err := e.Page(req); err != nil {
		t.Fatalf("Page: %v", err)
	}
	if c.Len() != 1 {
		t.Fatalf("expected 1 cached entry after first page, got %d", c.Len())
	}

	// Insert another event directly; cached page should still return the
	// stale set since the cache is not a consistency boundary (spec.md §4.6).
	_, _, err := s.InsertEvent(store.WriteEvent{
		Timestamp: 400, Kind: model.KindCreate, Inode: 99, Path: "/new.txt",
		Name: "new.txt", Dir: "/", Measurement: &model.Measurement{Size: 1, Lines: 1, Blocks: 1},
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	events, err := e.Page(req)
	if err != nil {
		t.Fatalf("Page (cached): %v", err)
	}
	if len(events) != 3 {
		t.Errorf("expected cached 3-event result despite new insert, got %d", len(events))
	}
}

func TestInvalidateCacheForcesRequery(t *testing.T) {
	s := openTest(t)
	seed(t, s)

	c := cache.New(3)
	e := New(s, c)

	req := Request{Mode: ModeAll, Limit: 10}
	e.Page(req)
	e.InvalidateCache()

	_, _, err := s.InsertEvent(store.WriteEvent{
		Timestamp: 400, Kind: model.KindCreate, Inode: 99, Path: "/new.txt",
		Name: "new.txt", Dir: "/", Measurement: &model.Measurement{Size: 1, Lines: 1, Blocks: 1},
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	events, err := e.Page(req)
	if err != nil {
		t.Fatalf("Page: %v", err)
	}
	if len(events) != 4 {
		t.Errorf("expected fresh 4-event result after invalidate, got %d", len(events))
	}
}

func TestCountIgnoresPageSize(t *testing.T) {
	s := openTest(t)
	seed(t, s)

	e := New(s, nil)
	n, err := e.Count(Request{Mode: ModeAll})
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 3 {
		t.Errorf("Count = %d, want 3", n)
	}

	events, err := e.Page(Request{Mode: ModeAll, Limit: 1})
	if err != nil {
		t.Fatalf("Page: %v", err)
	}
	if len(events) != 1 {
		t.Errorf("Page limit=1 returned %d", len(events))
	}
}
