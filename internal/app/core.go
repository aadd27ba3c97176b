// Package app wires grabarr's components into the Core driven by the CLI and HTTP surfaces.
package app

import (
	"context"
	"errors"
	"fmt"
	"image"
	"net/http"
	"time"

	"grabarr/internal/capability"
	"grabarr/internal/database"
	"grabarr/internal/domain/consts"
	"grabarr/internal/domain/errs"
	"grabarr/internal/domain/logger"
	"grabarr/internal/downloads"
	"grabarr/internal/engine"
	"grabarr/internal/models"
	"grabarr/internal/parsing"
	"grabarr/internal/queue"
	"grabarr/internal/repo"
	"grabarr/internal/scraper"
	"grabarr/internal/search"
	"grabarr/internal/surface"
	"grabarr/internal/thumbs"
	"grabarr/internal/workers"
)

// Options configures a Core.
type Options struct {
	YTDLPPath          string
	FFmpegPath         string
	CookiesFromBrowser string
	Destination        string
	Workers            int
	ProbeTimeout       time.Duration
	Thumbnails         thumbs.Options

	// DBName names the in-memory session store (consts.ProgramName when empty).
	DBName string
	// Runner starts the engine processes. Nil uses engine.ExecRunner.
	Runner engine.Runner
	// Transport is used for thumbnail and page requests. Nil uses the default transport.
	Transport http.RoundTripper
}

// Core owns every component of one grabarr session.
type Core struct {
	ctx    context.Context
	cancel context.CancelFunc

	loop   *surface.Loop
	relay  *relay
	pool   *workers.Pool
	db     *database.Database
	store  *repo.Store
	caps   *capability.Cache
	thumbs *thumbs.Fetcher
	queue  *queue.Queue
	search *search.Dispatcher
	orch   *downloads.Orchestrator

	results models.SearchResultSet // loop only
}

// New builds and starts a Core. Close releases it.
func New(ctx context.Context, opts Options) (*Core, error) {
	ctx, cancel := context.WithCancel(ctx)
	c := &Core{
		ctx:    ctx,
		cancel: cancel,
		loop:   surface.NewLoop(),
	}
	go c.loop.Run(ctx)
	c.relay = newRelay(c.loop)

	db, err := database.InitDB(opts.DBName)
	if err != nil {
		cancel()
		return nil, err
	}
	c.db = db
	c.store = repo.InitStores(db.DB)

	runner := opts.Runner
	if runner == nil {
		runner = engine.NewExecRunner()
	}
	ytdlp := engine.NewYTDLP(runner, opts.YTDLPPath, opts.FFmpegPath, opts.CookiesFromBrowser)
	ffmpeg := engine.NewFFmpeg(runner, opts.FFmpegPath)
	c.caps = capability.NewCache(capability.NewProber(ffmpeg, opts.ProbeTimeout))
	// Probed once per process, independent of whichever request first needs the profile
	c.caps.Start(ctx)

	c.pool = workers.New(ctx, opts.Workers)

	cookies := scraper.NewCookieManager(opts.CookiesFromBrowser != "")
	thumbOpts := opts.Thumbnails
	if thumbOpts.URLTemplate == "" {
		thumbOpts = thumbs.DefaultOptions()
	}
	client := &http.Client{Transport: opts.Transport}
	if jar, err := cookies.Jar(ctx, fmt.Sprintf(thumbOpts.URLTemplate, "x")); err != nil {
		logger.Pl.W("Thumbnail requests will carry no cookies: %v", err)
	} else {
		client.Jar = jar
	}
	c.thumbs = thumbs.New(client, c.pool, c.loop, thumbOpts)

	pages := scraper.New(cookies)
	if opts.Transport != nil {
		pages.WithTransport(opts.Transport)
	}

	c.queue = queue.New(ytdlp, pages, c.thumbs, c.pool, c.loop, queue.Hooks{
		OnHydrated: func(models.LinkItem) { c.relay.linksChanged(c.queue.List()) },
	})
	c.search = search.NewDispatcher(ctx, ytdlp, c.loop, c.applySearch)

	c.orch = downloads.New(downloads.Config{
		Meta:     ytdlp,
		FFmpeg:   ffmpeg,
		Caps:     c.caps,
		Queue:    loopClearer{c},
		History:  c.store.HistoryStore(),
		Observer: c.relay,
	})

	if opts.Destination != "" {
		if err := c.orch.SetDestination(opts.Destination); err != nil {
			c.Close()
			return nil, err
		}
	}
	return c, nil
}

// Close stops background work and discards the session store.
func (c *Core) Close() {
	c.cancel()
	if err := c.pool.Close(); err != nil {
		logger.Pl.D(1, "Worker pool closed with error: %v", err)
	}
	if err := c.db.Close(); err != nil {
		logger.Pl.E("Failed to close session store: %v", err)
	}
}

// Flush blocks until everything posted to the interactive loop so far has run.
func (c *Core) Flush(ctx context.Context) error {
	return surface.Wait(ctx, c.loop)
}

// Subscribe registers obs for orchestration events. Observers may also implement
// StatusListener, SearchListener and LinksListener. Callbacks run on the loop.
func (c *Core) Subscribe(obs models.Observer) (unsubscribe func()) {
	return c.relay.subscribe(obs)
}

// Status returns the status line.
func (c *Core) Status() string {
	return c.relay.status.Get()
}

// SelectDestination sets the output directory for future batches.
func (c *Core) SelectDestination(path string) error {
	if err := c.orch.SetDestination(path); err != nil {
		return err
	}
	c.relay.setStatus(consts.StatusReady)
	return nil
}

// Destination returns the selected output directory, if any.
func (c *Core) Destination() string {
	return c.orch.Destination()
}

// EnqueueLink appends a link to the queue.
func (c *Core) EnqueueLink(rawURL, id, title string) models.LinkItem {
	item := c.queue.Add(rawURL, id, title)
	c.notifyLinks()
	return item
}

// RemoveLink removes the entry matching both rawURL and handle.
func (c *Core) RemoveLink(rawURL, handle string) bool {
	ok := c.queue.Remove(rawURL, handle)
	if ok {
		c.notifyLinks()
	}
	return ok
}

// ClearLinks empties the queue.
func (c *Core) ClearLinks() {
	c.queue.Clear()
	c.notifyLinks()
}

// Links returns a copy of the queue.
func (c *Core) Links() []models.LinkItem {
	return c.queue.List()
}

func (c *Core) notifyLinks() {
	items := c.queue.List()
	c.loop.Post(func() { c.relay.linksChanged(items) })
}

// loopClearer empties the queue after a batch. The clear runs on the loop so link
// listeners see it like any other queue change.
type loopClearer struct{ c *Core }

// Clear implements downloads.Clearer.
func (l loopClearer) Clear() {
	l.c.loop.Post(func() {
		l.c.queue.Clear()
		l.c.relay.linksChanged(l.c.queue.List())
	})
}

// Search runs a search. The returned Pending completes once the result is applied or dropped.
func (c *Core) Search(query string) *search.Pending {
	q := parsing.NormalizeQuery(query)
	if q != "" {
		if _, hit := c.search.Cached(q); !hit {
			c.relay.setStatus(consts.StatusSearching)
		}
	}
	return c.search.Search(q)
}

// SearchResults returns the currently visible result set.
func (c *Core) SearchResults(ctx context.Context) (models.SearchResultSet, error) {
	var rs models.SearchResultSet
	done := make(chan struct{})
	c.loop.Post(func() {
		rs = c.results
		close(done)
	})
	select {
	case <-done:
		return rs, nil
	case <-ctx.Done():
		return models.SearchResultSet{}, ctx.Err()
	}
}

// applySearch is handed every result set the dispatcher applies.
func (c *Core) applySearch(rs models.SearchResultSet) {
	c.loop.Post(func() {
		c.results = rs
		switch {
		case rs.Failed():
			c.relay.status.Set(consts.StatusSearchFailed)
		case rs.NoResults:
			c.relay.status.Set(consts.StatusNoResults)
		default:
			c.relay.status.Set(consts.StatusReady)
		}
		for _, e := range rs.Entries {
			c.thumbs.Fetch(e.ID, nil)
		}
		c.relay.searchApplied(rs)
	})
}

// Thumbnail delivers the rendered thumbnail for id to sink on the loop.
func (c *Core) Thumbnail(id string, sink thumbs.Sink) {
	c.thumbs.Fetch(id, sink)
}

// CachedThumbnail returns a rendered thumbnail if present, starting a fetch otherwise.
func (c *Core) CachedThumbnail(id string) (image.Image, bool) {
	if img, ok := c.thumbs.Get(id); ok {
		return img, true
	}
	c.thumbs.Fetch(id, nil)
	return nil, false
}

// Capabilities returns the encoder profile, waiting for the startup probe if needed.
func (c *Core) Capabilities(ctx context.Context) models.CapabilityProfile {
	return c.caps.Get(ctx)
}

// Busy reports whether a batch is running.
func (c *Core) Busy() bool {
	return c.orch.Busy()
}

// CurrentBatch returns the running batch with its progress so far.
func (c *Core) CurrentBatch() (models.BatchResult, bool) {
	return c.orch.Current()
}

// LastResult returns the most recent batch outcome.
func (c *Core) LastResult() (models.BatchResult, bool) {
	return c.orch.LastResult()
}

// History returns up to limit recorded batches, newest first.
func (c *Core) History(ctx context.Context, limit int) ([]models.BatchResult, error) {
	return c.store.HistoryStore().Batches(ctx, limit)
}

// StartBatch snapshots the queue and runs it in the background.
func (c *Core) StartBatch(mt models.MediaType, sel models.Selections) error {
	snapshot, err := c.prepareBatch()
	if err != nil {
		return err
	}
	return c.orch.Start(c.ctx, mt, snapshot, sel, nil)
}

// RunBatch snapshots the queue and runs it on the calling goroutine.
func (c *Core) RunBatch(ctx context.Context, mt models.MediaType, sel models.Selections) (models.BatchResult, error) {
	snapshot, err := c.prepareBatch()
	if err != nil {
		return models.BatchResult{}, err
	}
	return c.orch.Run(ctx, mt, snapshot, sel)
}

func (c *Core) prepareBatch() ([]models.LinkItem, error) {
	if c.orch.Busy() {
		return nil, errs.ErrBatchRunning
	}
	if c.orch.Destination() == "" {
		c.relay.setStatus(consts.StatusNoDest)
		return nil, fmt.Errorf("%w: %w", errs.ErrValidation, errs.ErrNoDestination)
	}
	snapshot := c.queue.List()
	c.relay.begin(snapshot)
	return snapshot, nil
}

// IsUserError reports whether err was caused by bad input rather than the environment.
func IsUserError(err error) bool {
	return errors.Is(err, errs.ErrValidation) || errors.Is(err, errs.ErrBatchRunning)
}
