package downloads

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"grabarr/internal/domain/consts"
	"grabarr/internal/domain/errs"
	"grabarr/internal/domain/logger"
	"grabarr/internal/models"
	"grabarr/internal/parsing"
)

func (o *Orchestrator) run(ctx context.Context, mt models.MediaType, snapshot []models.LinkItem, sel models.Selections) (models.BatchResult, error) {
	if _, err := models.ParseMediaType(string(mt)); err != nil {
		o.observer.OnError(err.Error())
		return models.BatchResult{}, err
	}

	dest, err := o.preconditions(ctx)
	if err != nil {
		logger.Pl.E("Batch aborted: %v", err)
		o.observer.OnError(err.Error())
		return models.BatchResult{}, err
	}

	if len(snapshot) == 0 {
		err := fmt.Errorf("%w: no links queued", errs.ErrValidation)
		o.observer.OnError(err.Error())
		return models.BatchResult{}, err
	}

	caps := models.SoftwareOnlyProfile()
	if mt == models.MediaVideo && o.caps != nil {
		caps = o.caps.Get(ctx)
	}

	result := &models.BatchResult{
		MediaType: mt,
		Total:     len(snapshot),
		StartedAt: time.Now(),
		Items:     make([]models.ItemResult, 0, len(snapshot)),
	}
	o.history.start(ctx, result)
	o.publish(result)
	logger.Pl.I("Starting %s batch of %d item(s) into %q", mt, result.Total, dest)

	used := make(map[string]struct{}, len(snapshot))
	var runErr error
	for i, item := range snapshot {
		if err := ctx.Err(); err != nil {
			runErr = err
			logger.Pl.W("Batch interrupted after %d of %d item(s)", i, result.Total)
			break
		}

		ir := o.processItem(ctx, dest, i, item, mt, sel, caps, used)
		result.Record(ir)
		o.publish(result)
		o.history.item(ctx, result, ir)
		logger.Pl.D(1, "Batch progress %.0f%% (%d done, %d failed)", result.Progress*100, result.Completed, result.Failed)
	}
	result.FinishedAt = time.Now()
	o.history.finish(ctx, result)

	if runErr == nil && o.queue != nil {
		o.queue.Clear()
	}

	final := *result
	o.mu.Lock()
	o.current = nil
	o.last = &final
	o.mu.Unlock()

	if final.Failed == 0 {
		logger.Pl.S("Completed: %d/%d", final.Completed, final.Total)
	} else {
		logger.Pl.W("Completed: %d/%d (%d failed)", final.Completed, final.Total, final.Failed)
	}
	o.observer.OnBatchComplete(final)
	return final, runErr
}

// preconditions are checked at the start of every batch and return the destination.
func (o *Orchestrator) preconditions(ctx context.Context) (string, error) {
	dest := o.Destination()
	if dest == "" {
		return "", fmt.Errorf("%w: %w", errs.ErrValidation, errs.ErrNoDestination)
	}
	if err := checkDir(dest); err != nil {
		return "", err
	}
	if err := o.ffmpeg.Verify(ctx); err != nil {
		return "", err
	}
	if err := o.meta.Available(); err != nil {
		return "", fmt.Errorf("metadata engine unavailable: %w", err)
	}
	return dest, nil
}

// processItem runs one item to a terminal state. It never returns an error: failures are
// recorded on the item and the batch moves on.
func (o *Orchestrator) processItem(ctx context.Context, dest string, pos int, item models.LinkItem, mt models.MediaType, sel models.Selections, caps models.CapabilityProfile, used map[string]struct{}) models.ItemResult {
	tr := newItemTracker(item.Handle, o.observer)
	res := models.ItemResult{
		Position: pos,
		Handle:   item.Handle,
		URL:      item.URL,
		Title:    item.Title,
	}
	fail := func(err error) models.ItemResult {
		tr.transition(models.StateFailed, err)
		res.State = models.StateFailed
		res.Error = err.Error()
		logger.Pl.E("Item %d (%s) failed: %v", pos+1, item.URL, err)
		return res
	}

	if _, err := parsing.ValidateURL(item.URL); err != nil {
		return fail(err)
	}

	tr.transition(models.StateResolving, nil)
	meta, err := o.meta.Resolve(ctx, item.URL)
	if err != nil {
		return fail(err)
	}

	p := buildPlan(dest, item, meta, mt, sel, caps, used)
	res.Title = p.job.Title
	logger.Pl.I("Downloading %q as %s", p.job.Title, mt)

	// Audio is converted by the metadata engine's own post-processor.
	var converting sync.Once
	startConverting := func() {
		converting.Do(func() {
			tr.transition(models.StateTranscoding, nil)
			tr.resetProgress()
			logger.Pl.I("Converting %q to %s", p.job.Title, mt)
		})
	}
	if mt == models.MediaAudio {
		p.request.OnPostProcess = startConverting
	}

	tr.transition(models.StateDownloading, nil)
	downloaded, err := o.meta.Download(ctx, p.request, tr.progress)
	if err != nil {
		cleanupPartials(dest, p.baseName)
		return fail(err)
	}

	switch mt {
	case models.MediaAudio:
		startConverting()
		if err := o.verifier.Verify(downloaded); err != nil {
			logger.Pl.W("Audio output %q did not verify: %v", downloaded, err)
		}
		tr.progress(1)
		res.OutputPath = downloaded

	case models.MediaVideo:
		tr.progress(1)
		tr.transition(models.StateTranscoding, nil)
		tr.resetProgress()
		logger.Pl.I("Converting %q with %s at %s", p.job.Title, p.job.Encoder, p.job.Bitrate)

		err := o.ffmpeg.Transcode(ctx, downloaded, p.job.OutputPath, p.codecArgs, p.job.Duration, tr.progress)
		removeFile(downloaded)
		if err != nil {
			removeFile(p.job.OutputPath)
			cleanupPartials(dest, p.baseName)
			return fail(err)
		}
		tr.progress(1)
		res.OutputPath = p.job.OutputPath
	}

	tr.transition(models.StateDone, nil)
	res.State = models.StateDone
	logger.Pl.S("Saved %q", res.OutputPath)
	return res
}

// cleanupPartials removes the engine's partial and intermediate files for base.
func cleanupPartials(dest, base string) {
	patterns := []string{
		filepath.Join(dest, base+"*"+consts.PartialSuffix),
		filepath.Join(dest, base+"*.ytdl"),
		filepath.Join(dest, consts.TempTag+base+"*"),
	}
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			logger.Pl.D(2, "Bad cleanup pattern %q: %v", pattern, err)
			continue
		}
		for _, m := range matches {
			removeFile(m)
		}
	}
}

func removeFile(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Pl.W("Failed to remove %q: %v", path, err)
		return
	}
	logger.Pl.D(3, "Removed %q", path)
}
