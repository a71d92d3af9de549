package cache

import (
	"testing"

	"github.com/cctop/cctop/internal/model"
)

func key(n string) Key {
	return Key{Keywords: n}
}

func TestCapacityNPlusOneEvictsOldest(t *testing.T) {
	c := New(3)

	c.Put(key("a"), []model.Event{{ID: 1}})
	c.Put(key("b"), []model.Event{{ID: 2}})
	c.Put(key("c"), []model.Event{{ID: 3}})
	c.Put(key("d"), []model.Event{{ID: 4}}) // 4th distinct insert, no intervening reads

	if _, ok := c.Get(key("a")); ok {
		t.Error("expected first-inserted key to be evicted")
	}
	if _, ok := c.Get(key("d")); !ok {
		t.Error("expected most-recent key to survive")
	}
}

func TestGetPromotesToMostRecentlyUsed(t *testing.T) {
	c := New(3)

	c.Put(key("a"), []model.Event{{ID: 1}})
	c.Put(key("b"), []model.Event{{ID: 2}})
	c.Put(key("c"), []model.Event{{ID: 3}})

	// Touch "a" so it is no longer the least-recently-used entry.
	if _, ok := c.Get(key("a")); !ok {
		t.Fatal("expected a to be present before eviction")
	}

	c.Put(key("d"), []model.Event{{ID: 4}})

	if _, ok := c.Get(key("a")); !ok {
		t.Error("expected a to survive eviction after being read")
	}
	if _, ok := c.Get(key("b")); ok {
		t.Error("expected b (least-recently-used) to be evicted instead of a")
	}
}

func TestInvalidateClearsAllEntries(t *testing.T) {
	c := New(3)
	c.Put(key("a"), []model.Event{{ID: 1}})
	c.Put(key("b"), []model.Event{{ID: 2}})

	c.Invalidate()

	if c.Len() != 0 {
		t.Errorf("expected empty cache after Invalidate, got %d entries", c.Len())
	}
	if _, ok := c.Get(key("a")); ok {
		t.Error("expected a to be gone after Invalidate")
	}
}

func TestNewKeyEncodesKindSetOrderIndependently(t *testing.T) {
	k1 := NewKey(true, map[model.Kind]bool{model.KindCreate: true, model.KindDelete: true}, "foo")
	k2 := NewKey(true, map[model.Kind]bool{model.KindDelete: true, model.KindCreate: true}, "foo")
	if k1 != k2 {
		t.Errorf("expected identical keys regardless of map iteration order, got %+v vs %+v", k1, k2)
	}
}
