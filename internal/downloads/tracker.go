package downloads

import (
	"context"
	"sync"
	"time"

	"grabarr/internal/contracts"
	"grabarr/internal/domain/consts"
	"grabarr/internal/domain/logger"
	"grabarr/internal/models"
)

// itemTracker validates state transitions for one item and forwards them to the observer.
type itemTracker struct {
	handle   string
	observer models.Observer

	mu           sync.Mutex
	state        models.ItemState
	lastFraction float64
	lastSent     time.Time
}

func newItemTracker(handle string, obs models.Observer) *itemTracker {
	return &itemTracker{handle: handle, state: models.StatePending, observer: obs}
}

// transition moves to next. Illegal moves are logged and ignored.
func (t *itemTracker) transition(next models.ItemState, err error) bool {
	t.mu.Lock()
	prev := t.state
	if !prev.CanTransition(next) {
		t.mu.Unlock()
		logger.Pl.E("Dev Error: illegal state transition %s -> %s for item %s", prev, next, t.handle)
		return false
	}
	t.state = next
	t.mu.Unlock()

	t.observer.OnItemState(t.handle, next, err)
	return true
}

// progress reports a stage fraction, throttled except for completion.
func (t *itemTracker) progress(fraction float64) {
	fraction = min(max(fraction, 0), 1)

	t.mu.Lock()
	now := time.Now()
	if fraction < t.lastFraction || (fraction < 1 && now.Sub(t.lastSent) < consts.ProgressThrottle) {
		t.mu.Unlock()
		return
	}
	t.lastFraction = fraction
	t.lastSent = now
	t.mu.Unlock()

	t.observer.OnItemProgress(t.handle, fraction)
}

// resetProgress starts a new stage from zero.
func (t *itemTracker) resetProgress() {
	t.mu.Lock()
	t.lastFraction = 0
	t.lastSent = time.Time{}
	t.mu.Unlock()
}

// historyRecorder writes batch outcomes to the session store, retrying transient failures.
type historyRecorder struct {
	store contracts.HistoryStore
}

func (h historyRecorder) start(ctx context.Context, b *models.BatchResult) {
	if h.store == nil {
		return
	}
	h.retry(ctx, "start batch", func(ctx context.Context) error {
		id, err := h.store.StartBatch(ctx, b)
		if err == nil {
			b.ID = id
		}
		return err
	})
}

func (h historyRecorder) item(ctx context.Context, b *models.BatchResult, it models.ItemResult) {
	if h.store == nil || b.ID == 0 {
		return
	}
	h.retry(ctx, "record item", func(ctx context.Context) error {
		return h.store.RecordItem(ctx, b.ID, it)
	})
}

func (h historyRecorder) finish(ctx context.Context, b *models.BatchResult) {
	if h.store == nil || b.ID == 0 {
		return
	}
	h.retry(ctx, "finish batch", func(ctx context.Context) error {
		return h.store.FinishBatch(ctx, b)
	})
}

// retry runs fn up to three times with a growing backoff. History is best effort.
func (h historyRecorder) retry(ctx context.Context, what string, fn func(context.Context) error) {
	// Outcomes are still recorded while the batch context is shutting down.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	backoff := consts.Interval100ms
	maxRetries := 3

	for attempt := range maxRetries {
		err := fn(ctx)
		if err == nil {
			return
		}
		if attempt == maxRetries-1 {
			logger.Pl.E("Failed to %s after %d attempts: %v", what, maxRetries, err)
			return
		}
		logger.Pl.W("Retrying %s after failure (attempt %d/%d): %v", what, attempt+1, maxRetries, err)
		time.Sleep(backoff * time.Duration(attempt+1))
	}
}
