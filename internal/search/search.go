// Package search caches query results and dispatches misses to the metadata engine.
package search

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"grabarr/internal/domain/consts"
	"grabarr/internal/domain/logger"
	"grabarr/internal/models"
	"grabarr/internal/parsing"
	"grabarr/internal/surface"
)

// Fetcher runs a provider search.
type Fetcher interface {
	Search(ctx context.Context, query string, limit int) ([]models.VideoSummary, error)
}

// Dispatcher serves searches from a write-once cache and applies the newest result.
//
// Every Search call supersedes all earlier ones. A fetch that completes after a newer
// Search call is dropped, and superseded fetches are never cancelled.
type Dispatcher struct {
	ctx     context.Context
	fetcher Fetcher
	poster  surface.Poster
	apply   func(models.SearchResultSet)
	limit   int

	mu    sync.RWMutex
	cache map[string]models.SearchResultSet

	gen    atomic.Uint64
	flight singleflight.Group
}

// NewDispatcher returns a dispatcher whose apply func runs through poster.
func NewDispatcher(ctx context.Context, f Fetcher, p surface.Poster, apply func(models.SearchResultSet)) *Dispatcher {
	if apply == nil {
		apply = func(models.SearchResultSet) {}
	}
	return &Dispatcher{
		ctx:     ctx,
		fetcher: f,
		poster:  p,
		apply:   apply,
		limit:   consts.SearchLimit,
		cache:   make(map[string]models.SearchResultSet),
	}
}

// Pending tracks one Search call.
type Pending struct {
	Query   string
	done    chan struct{}
	result  models.SearchResultSet
	applied bool
}

func newPending(q string) *Pending {
	return &Pending{Query: q, done: make(chan struct{})}
}

func (p *Pending) finish(rs models.SearchResultSet, applied bool) {
	p.result = rs
	p.applied = applied
	close(p.done)
}

// Done is closed once the search has been applied or dropped.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Result returns the result set and whether it was applied. Valid after Done.
func (p *Pending) Result() (models.SearchResultSet, bool) {
	<-p.done
	return p.result, p.applied
}

// Wait blocks until Done or ctx ends.
func (p *Pending) Wait(ctx context.Context) (models.SearchResultSet, bool, error) {
	select {
	case <-p.done:
		return p.result, p.applied, nil
	case <-ctx.Done():
		return models.SearchResultSet{}, false, ctx.Err()
	}
}

// Search returns immediately. A blank query clears the visible results, a cache hit is
// applied synchronously, and a miss is fetched in the background.
func (d *Dispatcher) Search(query string) *Pending {
	q := parsing.NormalizeQuery(query)
	g := d.gen.Add(1)
	p := newPending(q)

	if q == "" {
		rs := models.SearchResultSet{}
		d.apply(rs)
		p.finish(rs, true)
		return p
	}

	if rs, ok := d.Cached(q); ok {
		logger.Pl.D(2, "Search cache hit for %q", q)
		d.apply(rs)
		p.finish(rs, true)
		return p
	}

	logger.Pl.D(2, "Dispatching search %q (generation %d)", q, g)
	go d.dispatch(q, g, p)
	return p
}

func (d *Dispatcher) dispatch(q string, g uint64, p *Pending) {
	v, err, shared := d.flight.Do(q, func() (any, error) {
		return d.fetcher.Search(d.ctx, q, d.limit)
	})
	if shared {
		logger.Pl.D(3, "Search %q shared an in-flight fetch", q)
	}

	var rs models.SearchResultSet
	if err != nil {
		logger.Pl.W("Search %q failed: %v", q, err)
		rs = models.SearchResultSet{Query: q, Err: err}
	} else {
		entries, _ := v.([]models.VideoSummary)
		rs = models.SearchResultSet{Query: q, Entries: entries, NoResults: len(entries) == 0}
	}

	if !d.current(g) {
		logger.Pl.D(2, "Dropping stale search %q (generation %d)", q, g)
		p.finish(rs, false)
		return
	}

	d.poster.Post(func() {
		if !d.current(g) {
			p.finish(rs, false)
			return
		}
		if !rs.Failed() {
			rs = d.store(rs)
		}
		d.apply(rs)
		p.finish(rs, true)
	})
}

func (d *Dispatcher) current(g uint64) bool {
	return d.gen.Load() == g
}

// store writes rs under its query unless an entry already exists, and returns the stored set.
func (d *Dispatcher) store(rs models.SearchResultSet) models.SearchResultSet {
	d.mu.Lock()
	defer d.mu.Unlock()

	if existing, ok := d.cache[rs.Query]; ok {
		return existing
	}
	d.cache[rs.Query] = rs
	return rs
}

// Cached returns the stored result set for a normalized query.
func (d *Dispatcher) Cached(q string) (models.SearchResultSet, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	rs, ok := d.cache[q]
	return rs, ok
}

// Len returns the number of cached queries.
func (d *Dispatcher) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.cache)
}
