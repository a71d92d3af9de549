// Package cache implements C8: a bounded LRU mapping search keys to
// materialized result lists for the viewer's immediate back-and-forth
// between keystrokes (spec.md §4.6). Grounded on
// github.com/hashicorp/golang-lru/v2, already an indirect dependency of
// the teacher (pulled in via chzyer/readline's completion cache) and
// promoted here to a direct, actively-exercised dependency.
package cache

import (
	"sort"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/cctop/cctop/internal/model"
)

// DefaultCapacity matches spec.md §4.6's "small (3 by default)".
const DefaultCapacity = 3

// Key encodes (mode, kind-filter-set, normalized-keyword-string) into a
// single comparable cache key (spec.md §4.6).
type Key struct {
	Latest   bool
	Kinds    string // sorted, comma-joined kind ids; "" means no filter
	Keywords string // normalized keyword string
}

// NewKey builds a Key from the query parameters the viewer is about to
// issue.
func NewKey(latest bool, kinds map[model.Kind]bool, normalizedKeyword string) Key {
	ids := make([]int, 0, len(kinds))
	for k, include := range kinds {
		if include {
			ids = append(ids, int(k))
		}
	}
	sort.Ints(ids)

	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}

	return Key{Latest: latest, Kinds: strings.Join(parts, ","), Keywords: normalizedKeyword}
}

// Cache is a bounded LRU from Key to a materialized event list.
type Cache struct {
	lru *lru.Cache[Key, []model.Event]
}

// New builds a Cache with the given capacity (DefaultCapacity if <= 0).
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	c, err := lru.New[Key, []model.Event](capacity)
	if err != nil {
		// Only returned by golang-lru for a non-positive size, which the
		// guard above already rules out.
		panic(err)
	}
	return &Cache{lru: c}
}

// Get reports a cache hit and the stored result list. A hit promotes the
// entry to most-recently-used (spec.md §4.6, §8).
func (c *Cache) Get(k Key) ([]model.Event, bool) {
	return c.lru.Get(k)
}

// Put stores events under k, evicting the least-recently-used entry if the
// cache is at capacity.
func (c *Cache) Put(k Key, events []model.Event) {
	c.lru.Add(k, events)
}

// Invalidate clears the entire cache, used on mode switch, keyword clear,
// filter reset, or kind-filter change (spec.md §4.6).
func (c *Cache) Invalidate() {
	c.lru.Purge()
}

// Len reports the number of entries currently cached.
func (c *Cache) Len() int {
	return c.lru.Len()
}
