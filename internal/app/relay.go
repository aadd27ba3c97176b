package app

import (
	"fmt"
	"sync"

	"grabarr/internal/domain/consts"
	"grabarr/internal/models"
	"grabarr/internal/surface"
)

// StatusListener is implemented by subscribers that want status line changes.
type StatusListener interface {
	OnStatus(text string)
}

// SearchListener is implemented by subscribers that want applied search results.
type SearchListener interface {
	OnSearchResults(rs models.SearchResultSet)
}

// LinksListener is implemented by subscribers that want the link list after every change.
type LinksListener interface {
	OnLinksChanged(items []models.LinkItem)
}

// relay receives orchestrator events on the batch goroutine, moves them onto the loop,
// keeps the status line current and fans them out to subscribers.
type relay struct {
	poster surface.Poster
	status *surface.Status

	mu     sync.RWMutex
	subs   map[int]models.Observer
	nextID int

	// Touched only on the loop.
	titles    map[string]string
	total     int
	processed int
}

func newRelay(poster surface.Poster) *relay {
	r := &relay{
		poster: poster,
		subs:   make(map[int]models.Observer),
		titles: make(map[string]string),
	}
	r.status = surface.NewStatus(r.statusChanged)
	return r
}

// subscribe registers obs and returns a func removing it.
func (r *relay) subscribe(obs models.Observer) func() {
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.subs[id] = obs
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.subs, id)
			r.mu.Unlock()
		})
	}
}

func (r *relay) each(fn func(models.Observer)) {
	r.mu.RLock()
	subs := make([]models.Observer, 0, len(r.subs))
	for _, s := range r.subs {
		subs = append(subs, s)
	}
	r.mu.RUnlock()

	for _, s := range subs {
		fn(s)
	}
}

// setStatus posts a status change.
func (r *relay) setStatus(text string) {
	r.poster.Post(func() { r.status.Set(text) })
}

func (r *relay) statusChanged(text string) {
	r.each(func(o models.Observer) {
		if l, ok := o.(StatusListener); ok {
			l.OnStatus(text)
		}
	})
}

// begin resets the per-batch counters before a batch starts.
func (r *relay) begin(snapshot []models.LinkItem) {
	titles := make(map[string]string, len(snapshot))
	for _, item := range snapshot {
		titles[item.Handle] = item.DisplayTitle()
	}
	r.poster.Post(func() {
		r.titles = titles
		r.total = len(snapshot)
		r.processed = 0
	})
}

// OnItemProgress implements models.Observer.
func (r *relay) OnItemProgress(handle string, fraction float64) {
	r.poster.Post(func() {
		r.each(func(o models.Observer) { o.OnItemProgress(handle, fraction) })
	})
}

// OnItemState implements models.Observer.
func (r *relay) OnItemState(handle string, state models.ItemState, err error) {
	r.poster.Post(func() {
		title := r.titles[handle]
		switch state {
		case models.StateDownloading:
			r.status.Set("Downloading: " + title)
		case models.StateTranscoding:
			r.status.Set("Converting: " + title)
		case models.StateDone, models.StateFailed:
			r.processed++
			r.status.Set(fmt.Sprintf("Completed: %d/%d", r.processed, r.total))
		}
		r.each(func(o models.Observer) { o.OnItemState(handle, state, err) })
	})
}

// OnBatchComplete implements models.Observer.
func (r *relay) OnBatchComplete(result models.BatchResult) {
	r.poster.Post(func() {
		if result.Failed == 0 {
			r.status.Set(consts.StatusAllComplete)
		} else {
			r.status.Set(fmt.Sprintf("Completed: %d/%d", result.Completed, result.Total))
		}
		r.each(func(o models.Observer) { o.OnBatchComplete(result) })
	})
}

// OnBatchProgress implements models.BatchProgressObserver.
func (r *relay) OnBatchProgress(result models.BatchResult) {
	r.poster.Post(func() {
		r.each(func(o models.Observer) {
			if l, ok := o.(models.BatchProgressObserver); ok {
				l.OnBatchProgress(result)
			}
		})
	})
}

// OnError implements models.Observer.
func (r *relay) OnError(message string) {
	r.poster.Post(func() {
		r.status.Set("Error: " + message)
		r.each(func(o models.Observer) { o.OnError(message) })
	})
}

func (r *relay) searchApplied(rs models.SearchResultSet) {
	r.each(func(o models.Observer) {
		if l, ok := o.(SearchListener); ok {
			l.OnSearchResults(rs)
		}
	})
}

func (r *relay) linksChanged(items []models.LinkItem) {
	r.each(func(o models.Observer) {
		if l, ok := o.(LinksListener); ok {
			l.OnLinksChanged(items)
		}
	})
}
