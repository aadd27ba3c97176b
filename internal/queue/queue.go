// Package queue holds the ordered list of links waiting for the next batch.
package queue

import (
	"context"
	"image"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"grabarr/internal/domain/logger"
	"grabarr/internal/models"
	"grabarr/internal/parsing"
	"grabarr/internal/scraper"
	"grabarr/internal/surface"
	"grabarr/internal/thumbs"
	"grabarr/internal/workers"
)

// Resolver looks up canonical metadata for a URL.
type Resolver interface {
	Resolve(ctx context.Context, url string) (models.VideoMeta, error)
}

// PageScraper reads metadata straight from a page.
type PageScraper interface {
	PageMeta(ctx context.Context, url string) (scraper.PageMeta, error)
}

// ThumbnailFetcher delivers rendered thumbnails by video ID.
type ThumbnailFetcher interface {
	Fetch(id string, sink thumbs.Sink)
}

// Hooks are called on the interactive goroutine.
type Hooks struct {
	OnHydrated  func(item models.LinkItem)
	OnThumbnail func(handle string, img image.Image)
}

// Queue is the ordered link list. Duplicates are independent entries.
type Queue struct {
	mu    sync.RWMutex
	items []*models.LinkItem

	resolver Resolver
	scraper  PageScraper
	thumbs   ThumbnailFetcher
	pool     *workers.Pool
	poster   surface.Poster
	hooks    Hooks
}

// New returns an empty queue. scraper and thumbs may be nil.
func New(r Resolver, s PageScraper, t ThumbnailFetcher, pool *workers.Pool, poster surface.Poster, hooks Hooks) *Queue {
	return &Queue{
		resolver: r,
		scraper:  s,
		thumbs:   t,
		pool:     pool,
		poster:   poster,
		hooks:    hooks,
	}
}

// Add appends a link. With a known id and title the item is complete at once,
// otherwise hydration runs in the background and the URL is shown meanwhile.
func (q *Queue) Add(rawURL, id, title string) models.LinkItem {
	rawURL = strings.TrimSpace(rawURL)
	title = strings.TrimSpace(title)

	item := &models.LinkItem{
		Handle: uuid.NewString(),
		ID:     id,
		URL:    rawURL,
		Title:  title,
	}
	if item.ID == "" {
		item.ID = deriveID(rawURL)
	}
	known := id != "" && title != ""
	if known {
		item.ThumbnailKey = id
		item.Hydrated = true
	}

	q.mu.Lock()
	q.items = append(q.items, item)
	snapshot := *item
	q.mu.Unlock()

	logger.Pl.D(2, "Queued %q (handle %s)", rawURL, snapshot.Handle)

	if known {
		q.fetchThumbnail(snapshot.Handle, snapshot.ThumbnailKey)
	} else {
		q.hydrate(snapshot.Handle, rawURL)
	}
	return snapshot
}

// deriveID extracts a video ID from the URL, or generates one.
func deriveID(rawURL string) string {
	if id, ok := parsing.VideoIDFromURL(rawURL); ok {
		return id
	}
	if u, err := uuid.NewV7(); err == nil {
		return u.String()
	}
	return uuid.NewString()
}

// Remove deletes the item with this URL and handle. Removing a missing item is a no-op.
func (q *Queue) Remove(rawURL, handle string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	i := slices.IndexFunc(q.items, func(it *models.LinkItem) bool {
		return it.Handle == handle && it.URL == rawURL
	})
	if i < 0 {
		return false
	}
	q.items = slices.Delete(q.items, i, i+1)
	return true
}

// Clear empties the queue.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = nil
}

// List returns a copy of the items in insertion order.
func (q *Queue) List() []models.LinkItem {
	q.mu.RLock()
	defer q.mu.RUnlock()

	out := make([]models.LinkItem, len(q.items))
	for i, it := range q.items {
		out[i] = *it
	}
	return out
}

// Len returns the number of queued items.
func (q *Queue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.items)
}

// Get returns a copy of the item with handle.
func (q *Queue) Get(handle string) (models.LinkItem, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	for _, it := range q.items {
		if it.Handle == handle {
			return *it, true
		}
	}
	return models.LinkItem{}, false
}

type hydration struct {
	id    string
	title string
}

func (q *Queue) hydrate(handle, rawURL string) {
	if q.pool == nil || q.resolver == nil {
		return
	}
	ok := q.pool.Submit(func(ctx context.Context) {
		h, ok := q.lookup(ctx, rawURL)
		if !ok {
			return
		}
		q.poster.Post(func() { q.apply(handle, h) })
	})
	if !ok {
		logger.Pl.D(2, "Worker pool closed, %q stays unhydrated", rawURL)
	}
}

// lookup asks the metadata engine first, then the page itself.
func (q *Queue) lookup(ctx context.Context, rawURL string) (hydration, bool) {
	meta, err := q.resolver.Resolve(ctx, rawURL)
	if err == nil && meta.Title != "" {
		return hydration{id: meta.ID, title: meta.Title}, true
	}
	logger.Pl.D(1, "Metadata lookup failed for %q: %v", rawURL, err)

	if q.scraper == nil {
		return hydration{}, false
	}
	pm, serr := q.scraper.PageMeta(ctx, rawURL)
	if serr != nil {
		logger.Pl.W("Could not hydrate %q: %v", rawURL, serr)
		return hydration{}, false
	}
	return hydration{id: pm.ID, title: pm.Title}, true
}

func (q *Queue) apply(handle string, h hydration) {
	q.mu.Lock()
	var snapshot models.LinkItem
	found := false
	for _, it := range q.items {
		if it.Handle != handle {
			continue
		}
		if h.id != "" {
			it.ID = h.id
			it.ThumbnailKey = h.id
		}
		it.Title = h.title
		it.Hydrated = true
		snapshot = *it
		found = true
		break
	}
	q.mu.Unlock()

	if !found {
		logger.Pl.D(2, "Dropping hydration for removed item %s", handle)
		return
	}
	if q.hooks.OnHydrated != nil {
		q.hooks.OnHydrated(snapshot)
	}
	q.fetchThumbnail(handle, snapshot.ThumbnailKey)
}

func (q *Queue) fetchThumbnail(handle, key string) {
	if q.thumbs == nil || key == "" {
		return
	}
	q.thumbs.Fetch(key, func(_ string, img image.Image) {
		if _, ok := q.Get(handle); !ok {
			return
		}
		if q.hooks.OnThumbnail != nil {
			q.hooks.OnThumbnail(handle, img)
		}
	})
}
