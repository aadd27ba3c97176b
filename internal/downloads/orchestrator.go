// Package downloads runs batches of queued links through the metadata and transcode engines.
package downloads

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"

	"grabarr/internal/contracts"
	"grabarr/internal/domain/errs"
	"grabarr/internal/domain/logger"
	"grabarr/internal/engine"
	"grabarr/internal/models"
)

// MetadataEngine resolves and downloads media.
type MetadataEngine interface {
	Available() error
	Resolve(ctx context.Context, url string) (models.VideoMeta, error)
	Download(ctx context.Context, req engine.DownloadRequest, onProgress func(float64)) (string, error)
}

// TranscodeEngine converts downloaded media.
type TranscodeEngine interface {
	Verify(ctx context.Context) error
	Transcode(ctx context.Context, input, output string, codecArgs []string, duration float64, onProgress func(float64)) error
}

// CapabilitySource supplies the cached encoder profile.
type CapabilitySource interface {
	Get(ctx context.Context) models.CapabilityProfile
}

// Clearer empties the link queue after a batch.
type Clearer interface {
	Clear()
}

// Orchestrator runs at most one batch at a time, strictly in queue order.
type Orchestrator struct {
	meta     MetadataEngine
	ffmpeg   TranscodeEngine
	caps     CapabilitySource
	queue    Clearer
	history  historyRecorder
	observer models.Observer
	verifier AudioVerifier

	busy atomic.Bool

	mu          sync.RWMutex
	destination string
	current     *models.BatchResult
	last        *models.BatchResult
}

// Config collects the orchestrator's collaborators. History, Queue and Observer may be nil.
type Config struct {
	Meta     MetadataEngine
	FFmpeg   TranscodeEngine
	Caps     CapabilitySource
	Queue    Clearer
	History  contracts.HistoryStore
	Observer models.Observer
}

// New returns an idle orchestrator with no destination selected.
func New(cfg Config) *Orchestrator {
	obs := cfg.Observer
	if obs == nil {
		obs = models.NopObserver{}
	}
	return &Orchestrator{
		meta:     cfg.Meta,
		ffmpeg:   cfg.FFmpeg,
		caps:     cfg.Caps,
		queue:    cfg.Queue,
		history:  historyRecorder{store: cfg.History},
		observer: obs,
		verifier: tagVerifier{},
	}
}

// SetDestination selects the output directory.
func (o *Orchestrator) SetDestination(path string) error {
	if path == "" {
		return fmt.Errorf("%w: %w", errs.ErrValidation, errs.ErrNoDestination)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("%w: invalid destination %q: %w", errs.ErrValidation, path, err)
	}
	if err := checkDir(abs); err != nil {
		return err
	}

	o.mu.Lock()
	o.destination = abs
	o.mu.Unlock()
	logger.Pl.I("Destination set to %q", abs)
	return nil
}

// Destination returns the selected output directory, or "".
func (o *Orchestrator) Destination() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.destination
}

// Busy reports whether a batch is running.
func (o *Orchestrator) Busy() bool {
	return o.busy.Load()
}

// LastResult returns the most recent finished batch.
func (o *Orchestrator) LastResult() (models.BatchResult, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.last == nil {
		return models.BatchResult{}, false
	}
	return *o.last, true
}

// Current returns the running batch as of its last finished item.
func (o *Orchestrator) Current() (models.BatchResult, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.current == nil {
		return models.BatchResult{}, false
	}
	return *o.current, true
}

// publish stores a copy of the running result and hands it to the observer.
func (o *Orchestrator) publish(result *models.BatchResult) {
	snap := *result
	snap.Items = slices.Clone(result.Items)

	o.mu.Lock()
	o.current = &snap
	o.mu.Unlock()

	if bp, ok := o.observer.(models.BatchProgressObserver); ok {
		bp.OnBatchProgress(snap)
	}
}

// Start runs the batch on its own goroutine. done, if set, receives the outcome.
func (o *Orchestrator) Start(ctx context.Context, mt models.MediaType, snapshot []models.LinkItem, sel models.Selections, done func(models.BatchResult, error)) error {
	if !o.busy.CompareAndSwap(false, true) {
		return errs.ErrBatchRunning
	}
	go func() {
		defer o.busy.Store(false)
		res, err := o.run(ctx, mt, snapshot, sel)
		if done != nil {
			done(res, err)
		}
	}()
	return nil
}

// Run executes a batch on the calling goroutine.
func (o *Orchestrator) Run(ctx context.Context, mt models.MediaType, snapshot []models.LinkItem, sel models.Selections) (models.BatchResult, error) {
	if !o.busy.CompareAndSwap(false, true) {
		return models.BatchResult{}, errs.ErrBatchRunning
	}
	defer o.busy.Store(false)
	return o.run(ctx, mt, snapshot, sel)
}

// checkDir verifies path is an existing directory.
func checkDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: destination %q: %w", errs.ErrValidation, path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: destination %q is not a directory", errs.ErrValidation, path)
	}
	return nil
}
