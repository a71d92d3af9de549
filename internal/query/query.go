// Package query implements C6: the viewer's paged, filtered, keyword-aware
// reader over the store, optionally backed by the result cache (spec.md
// §4.5). Grounded on the teacher's internal/session.Manager (a thin,
// parameter-validated wrapper over core.Engine queries), generalized from
// session/message CRUD to paged event reads.
package query

import (
	"github.com/cctop/cctop/internal/cache"
	"github.com/cctop/cctop/internal/keyword"
	"github.com/cctop/cctop/internal/model"
	"github.com/cctop/cctop/internal/store"
)

// Mode selects between the two display modes (spec.md §4.5).
type Mode int

const (
	ModeAll Mode = iota
	ModeLatestPerFile
)

// Request describes one page request from the viewer.
type Request struct {
	Mode    Mode
	Kinds   map[model.Kind]bool // nil/full set means "no filter"
	Keyword string               // raw, not-yet-normalized search text
	Limit   int
	Offset  int
}

// Engine is C6, wired to a Store and optionally a Cache (nil disables
// caching).
type Engine struct {
	store *store.Store
	cache *cache.Cache
}

// New builds a query Engine. c may be nil.
func New(st *store.Store, c *cache.Cache) *Engine {
	return &Engine{store: st, cache: c}
}

func (r Request) filter() store.Filter {
	tokens := keyword.Tokenize(r.Keyword)
	return store.Filter{
		Latest:   r.Mode == ModeLatestPerFile,
		Kinds:    r.Kinds,
		Keywords: tokens,
	}
}

func (r Request) cacheKey() cache.Key {
	return cache.NewKey(r.Mode == ModeLatestPerFile, r.Kinds, keyword.Normalize(r.Keyword))
}

// Page returns one page of events, consulting the cache first when the
// request is for the first page. The cache holds the first page as it was
// fetched for a search key (at most that request's Limit events); later
// pages bypass it (spec.md §4.6's "immediate back-and-forth between typed
// keystrokes" scope).
func (e *Engine) Page(req Request) ([]model.Event, error) {
	if e.cache != nil && req.Offset == 0 {
		if cached, ok := e.cache.Get(req.cacheKey()); ok {
			return sliceLimit(cached, req.Limit), nil
		}
	}

	events, err := e.store.Page(req.filter(), req.Limit, req.Offset)
	if err != nil {
		return nil, err
	}

	if e.cache != nil && req.Offset == 0 {
		e.cache.Put(req.cacheKey(), events)
	}

	return events, nil
}

// Count returns the number of events matching the request's filters, not
// the page size.
func (e *Engine) Count(req Request) (int, error) {
	return e.store.Count(req.filter())
}

// InvalidateCache clears the result cache. Call on mode switch, kind
// filter change, keyword clear, or filter reset (spec.md §4.6).
func (e *Engine) InvalidateCache() {
	if e.cache != nil {
		e.cache.Invalidate()
	}
}

func sliceLimit(events []model.Event, limit int) []model.Event {
	if limit <= 0 || limit >= len(events) {
		return events
	}
	return events[:limit]
}
