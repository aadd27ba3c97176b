// Package thumbs fetches, renders and caches video thumbnails.
package thumbs

import (
	"context"
	"fmt"
	"image"
	// Registered decoders.
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	_ "golang.org/x/image/webp"
	"golang.org/x/time/rate"

	"grabarr/internal/domain/consts"
	"grabarr/internal/domain/errs"
	"grabarr/internal/domain/logger"
	"grabarr/internal/surface"
	"grabarr/internal/workers"
)

// Sink receives a rendered thumbnail.
type Sink func(id string, img image.Image)

// Options configures a Fetcher.
type Options struct {
	URLTemplate string
	Timeout     time.Duration
	RatePerSec  float64
	Dedupe      bool
}

// DefaultOptions returns the stock fetcher settings.
func DefaultOptions() Options {
	return Options{
		URLTemplate: consts.ThumbnailURLTemplate,
		Timeout:     consts.ThumbnailTimeout,
		RatePerSec:  consts.ThumbnailRatePerSec,
		Dedupe:      true,
	}
}

const maxImageBytes = 8 << 20

// Fetcher caches rendered thumbnails by video ID. Entries are write-once and never evicted.
type Fetcher struct {
	client  *http.Client
	pool    *workers.Pool
	poster  surface.Poster
	limiter *rate.Limiter
	opts    Options

	mu       sync.RWMutex
	cache    map[string]image.Image
	inflight map[string][]Sink
}

// New returns a fetcher running downloads on pool and delivering through poster.
func New(client *http.Client, pool *workers.Pool, poster surface.Poster, opts Options) *Fetcher {
	if client == nil {
		client = &http.Client{}
	}
	if opts.URLTemplate == "" {
		opts.URLTemplate = consts.ThumbnailURLTemplate
	}
	if opts.Timeout <= 0 {
		opts.Timeout = consts.ThumbnailTimeout
	}

	limit := rate.Inf
	burst := 1
	if opts.RatePerSec > 0 {
		limit = rate.Limit(opts.RatePerSec)
		burst = max(1, int(opts.RatePerSec))
	}

	return &Fetcher{
		client:   client,
		pool:     pool,
		poster:   poster,
		limiter:  rate.NewLimiter(limit, burst),
		opts:     opts,
		cache:    make(map[string]image.Image),
		inflight: make(map[string][]Sink),
	}
}

// Get returns a cached thumbnail.
func (f *Fetcher) Get(id string) (image.Image, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	img, ok := f.cache[id]
	return img, ok
}

// Len returns the number of cached thumbnails.
func (f *Fetcher) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.cache)
}

// Fetch delivers the thumbnail for id to sink. Cache hits are delivered synchronously,
// misses are fetched on the pool. On failure the sink is never called.
func (f *Fetcher) Fetch(id string, sink Sink) {
	if id == "" {
		return
	}
	if sink == nil {
		sink = func(string, image.Image) {}
	}

	if img, ok := f.Get(id); ok {
		sink(id, img)
		return
	}

	if !f.opts.Dedupe {
		f.submit(id, func() []Sink { return []Sink{sink} })
		return
	}

	f.mu.Lock()
	if img, ok := f.cache[id]; ok {
		f.mu.Unlock()
		sink(id, img)
		return
	}
	waiting, running := f.inflight[id]
	f.inflight[id] = append(waiting, sink)
	f.mu.Unlock()

	if running {
		logger.Pl.D(4, "Thumbnail %q already in flight", id)
		return
	}
	f.submit(id, func() []Sink {
		f.mu.Lock()
		defer f.mu.Unlock()
		sinks := f.inflight[id]
		delete(f.inflight, id)
		return sinks
	})
}

// submit runs the download on the pool. takeSinks is called exactly once when it finishes.
func (f *Fetcher) submit(id string, takeSinks func() []Sink) {
	ok := f.pool.Submit(func(ctx context.Context) {
		img, err := f.download(ctx, id)
		if err != nil {
			takeSinks()
			logger.Pl.D(1, "Thumbnail %q unavailable: %v", id, err)
			return
		}

		f.mu.Lock()
		if existing, ok := f.cache[id]; ok {
			img = existing
		} else {
			f.cache[id] = img
		}
		f.mu.Unlock()

		sinks := takeSinks()
		f.poster.Post(func() {
			for _, s := range sinks {
				s(id, img)
			}
		})
	})
	if !ok {
		takeSinks()
		logger.Pl.D(2, "Worker pool closed, skipping thumbnail %q", id)
	}
}

// URL returns the source image URL for id.
func (f *Fetcher) URL(id string) string {
	return fmt.Sprintf(f.opts.URLTemplate, url.PathEscape(id))
}

func (f *Fetcher) download(ctx context.Context, id string) (image.Image, error) {
	ctx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrTransientFetch, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL(id), nil)
	if err != nil {
		return nil, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrTransientFetch, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Pl.D(3, "Failed to close thumbnail body for %q: %v", id, err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: thumbnail request for %q returned %s", errs.ErrTransientFetch, id, resp.Status)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "image/") && !strings.HasPrefix(ct, "application/octet-stream") {
		return nil, fmt.Errorf("unexpected content type %q for thumbnail %q", ct, id)
	}

	src, format, err := image.Decode(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("could not decode thumbnail %q: %w", id, err)
	}
	logger.Pl.D(4, "Decoded %s thumbnail %q (%v)", format, id, src.Bounds().Size())

	return Render(src), nil
}
