package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/cctop/cctop/internal/model"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "activity.db"), Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func insert(t *testing.T, s *Store, ts int64, kind model.Kind, inode uint64, path, name, dir string, size int64) int64 {
	t.Helper()
	var meas *model.Measurement
	if kind.HasMeasurement() {
		meas = &model.Measurement{Size: size, Lines: 1, Blocks: 1}
	}
	eventID, _, err := s.InsertEvent(WriteEvent{
		Timestamp: ts, Kind: kind, Inode: inode, Path: path, Name: name, Dir: dir, Measurement: meas,
	})
	if err != nil {
		t.Fatalf("InsertEvent: %v", err)
	}
	return eventID
}

func TestInsertEventCreatesFileOnce(t *testing.T) {
	s := openTest(t)

	insert(t, s, 100, model.KindFind, 42, "/a/b.txt", "b.txt", "/a", 10)
	insert(t, s, 200, model.KindModify, 42, "/a/b.txt", "b.txt", "/a", 20)

	f, err := s.FileByInode(42)
	if err != nil {
		t.Fatalf("FileByInode: %v", err)
	}
	if !f.IsActive {
		t.Error("expected file active after modify")
	}

	ids, err := s.ActiveFileIDs()
	if err != nil {
		t.Fatalf("ActiveFileIDs: %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("expected exactly one active file, got %d", len(ids))
	}
}

func TestFindOnKnownFileIsEventNoop(t *testing.T) {
	s := openTest(t)

	insert(t, s, 100, model.KindCreate, 7, "/x.go", "x.go", "/", 5)
	eventID := insert(t, s, 200, model.KindFind, 7, "/x.go", "x.go", "/", 5)

	if eventID != 0 {
		t.Errorf("expected no-op find to report eventID 0, got %d", eventID)
	}

	n, err := s.Count(Filter{})
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 event row (find suppressed), got %d", n)
	}
}

func TestDeleteMakesFileInactive(t *testing.T) {
	s := openTest(t)

	insert(t, s, 100, model.KindCreate, 9, "/y.txt", "y.txt", "/", 1)
	insert(t, s, 200, model.KindDelete, 9, "/y.txt", "y.txt", "/", 0)

	f, err := s.FileByInode(9)
	if err != nil {
		t.Fatalf("FileByInode: %v", err)
	}
	if f.IsActive {
		t.Error("expected file inactive after delete")
	}
}

func TestAggregateCountsMatchEventCounts(t *testing.T) {
	s := openTest(t)

	insert(t, s, 100, model.KindCreate, 1, "/f", "f", "/", 1)
	insert(t, s, 200, model.KindModify, 1, "/f", "f", "/", 2)
	insert(t, s, 300, model.KindModify, 1, "/f", "f", "/", 3)

	var countModify int64
	var sizeMin, sizeFirst, sizeLast int64
	err := s.DB().QueryRow(
		"SELECT count_modify, size_min, size_first, size_last FROM aggregates WHERE file_id = 1",
	).Scan(&countModify, &sizeMin, &sizeFirst, &sizeLast)
	if err != nil {
		t.Fatalf("query aggregates: %v", err)
	}

	if countModify != 2 {
		t.Errorf("count_modify = %d, want 2", countModify)
	}
	if sizeFirst != 1 {
		t.Errorf("size_first = %d, want 1", sizeFirst)
	}
	if sizeLast != 3 {
		t.Errorf("size_last = %d, want 3", sizeLast)
	}
	if sizeMin != 1 {
		t.Errorf("size_min = %d, want 1", sizeMin)
	}
}

func TestMeasurementExistsOnlyForContentKinds(t *testing.T) {
	s := openTest(t)

	insert(t, s, 100, model.KindCreate, 1, "/f", "f", "/", 5)
	insert(t, s, 200, model.KindDelete, 1, "/f", "f", "/", 0)

	events, err := s.Page(Filter{}, 10, 0)
	if err != nil {
		t.Fatalf("Page: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}

	for _, ev := range events {
		wantMeasurement := ev.Kind.HasMeasurement()
		gotMeasurement := ev.Measurement != nil
		if wantMeasurement != gotMeasurement {
			t.Errorf("kind %s: measurement presence = %v, want %v", ev.Kind, gotMeasurement, wantMeasurement)
		}
	}
}

func TestPageOrderingIsTimestampThenIDDescending(t *testing.T) {
	s := openTest(t)

	insert(t, s, 100, model.KindCreate, 1, "/a", "a", "/", 1)
	insert(t, s, 100, model.KindCreate, 2, "/b", "b", "/", 1)
	insert(t, s, 50, model.KindCreate, 3, "/c", "c", "/", 1)

	events, err := s.Page(Filter{}, 10, 0)
	if err != nil {
		t.Fatalf("Page: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	for i := 1; i < len(events); i++ {
		if model.Less(events[i-1], events[i]) {
			t.Errorf("events not in descending (timestamp,id) order at index %d", i)
		}
	}
}

func TestLatestPerFileReducesBeforeFiltering(t *testing.T) {
	s := openTest(t)

	// File's most recent event is a modify; an earlier create on the same
	// file must not leak through a create-only filter (spec.md §4.5: filter
	// is applied after reducing to latest-per-file).
	insert(t, s, 100, model.KindCreate, 1, "/f", "f", "/", 1)
	insert(t, s, 200, model.KindModify, 1, "/f", "f", "/", 2)

	events, err := s.Page(Filter{Latest: true, Kinds: map[model.Kind]bool{model.KindCreate: true}}, 10, 0)
	if err != nil {
		t.Fatalf("Page: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("expected latest-per-file create filter to exclude superseded create, got %d events", len(events))
	}

	events, err = s.Page(Filter{Latest: true, Kinds: map[model.Kind]bool{model.KindModify: true}}, 10, 0)
	if err != nil {
		t.Fatalf("Page: %v", err)
	}
	if len(events) != 1 {
		t.Errorf("expected 1 latest-per-file modify event, got %d", len(events))
	}
}

func TestCountIgnoresPageSize(t *testing.T) {
	s := openTest(t)

	for i := int64(1); i <= 5; i++ {
		insert(t, s, 100+i, model.KindCreate, uint64(i), "/f", "f", "/", i)
	}

	n, err := s.Count(Filter{})
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 5 {
		t.Errorf("Count = %d, want 5", n)
	}

	events, err := s.Page(Filter{}, 3, 0)
	if err != nil {
		t.Fatalf("Page: %v", err)
	}
	if len(events) != 3 {
		t.Errorf("Page limit=3 returned %d", len(events))
	}
}

func TestEventIDsStrictlyIncreasing(t *testing.T) {
	s := openTest(t)

	var last int64
	for i := int64(1); i <= 10; i++ {
		id := insert(t, s, 100+i, model.KindCreate, uint64(i), "/f", "f", "/", i)
		if id <= last {
			t.Fatalf("event id not strictly increasing: %d <= %d", id, last)
		}
		last = id
	}
}

func TestReconciliationDeleteUsesKnownFileID(t *testing.T) {
	s := openTest(t)

	insert(t, s, 100, model.KindCreate, 55, "/gone.txt", "gone.txt", "/", 1)
	f, err := s.FileByInode(55)
	if err != nil {
		t.Fatalf("FileByInode: %v", err)
	}

	_, fileID, err := s.InsertEvent(WriteEvent{
		Timestamp:   time.Now().Unix(),
		Kind:        model.KindDelete,
		Inode:       0,
		Path:        "/gone.txt",
		Name:        "gone.txt",
		Dir:         "/",
		KnownFileID: f.ID,
	})
	if err != nil {
		t.Fatalf("InsertEvent reconciliation delete: %v", err)
	}
	if fileID != f.ID {
		t.Errorf("fileID = %d, want %d", fileID, f.ID)
	}

	after, err := s.FileByInode(55)
	if err != nil {
		t.Fatalf("FileByInode after delete: %v", err)
	}
	if after.IsActive {
		t.Error("expected file inactive after reconciliation delete")
	}
}
