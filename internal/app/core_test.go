package app

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"grabarr/internal/domain/consts"
	"grabarr/internal/domain/errs"
	"grabarr/internal/engine"
	"grabarr/internal/engine/enginetest"
	"grabarr/internal/models"
	"grabarr/internal/thumbs"
)

const testEncoders = `Encoders:
 V..... = Video
 ------
 V....D libx264              libx264 H.264 / AVC / MPEG-4 AVC (codec h264)
`

// scriptedRunner answers like yt-dlp and ffmpeg would for a small fixed catalogue.
func scriptedRunner() *enginetest.FakeRunner {
	return &enginetest.FakeRunner{
		OutputFunc: func(_ context.Context, c engine.Cmd) ([]byte, error) {
			switch {
			case enginetest.HasArg(c, "-encoders"):
				return []byte(testEncoders), nil
			case enginetest.HasArg(c, "-version"):
				return []byte("ffmpeg version 7.0"), nil
			case enginetest.HasArg(c, "--flat-playlist"):
				return []byte(`{"entries":[{"id":"aaaaaaaaaaa","title":"First"},{"id":"bbbbbbbbbbb","title":"Second"}]}`), nil
			case enginetest.HasArg(c, "--skip-download"):
				u := enginetest.LastArg(c)
				if !strings.Contains(u, "://") {
					return nil, fmt.Errorf("%w: unsupported URL", errs.ErrEngine)
				}
				return []byte(`{"id":"abcdefghijk","title":"My Song","duration":3}`), nil
			}
			return nil, nil
		},
		StreamFunc: func(_ context.Context, c engine.Cmd, onLine func(string)) error {
			tmpl := enginetest.ArgAfter(c, "-o")
			out := strings.Replace(tmpl, "%(ext)s", "mp3", 1)
			if err := os.WriteFile(out, []byte("media"), 0o644); err != nil {
				return err
			}
			onLine("[download]  50.0% of 1.00MiB")
			onLine("[download] 100.0% of 1.00MiB")
			onLine("[ExtractAudio] Destination: " + out)
			onLine(out)
			return nil
		},
	}
}

func thumbnailServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		img := image.NewRGBA(image.Rect(0, 0, 32, 18))
		for i := range img.Pix {
			img.Pix[i] = 0xaa
		}
		img.Set(0, 0, color.Black)
		w.Header().Set("Content-Type", "image/png")
		_ = png.Encode(w, img)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func newTestCore(t *testing.T, r *enginetest.FakeRunner, dest string) (*Core, *atomic.Int32) {
	t.Helper()
	srv, hits := thumbnailServer(t)

	opts := thumbs.DefaultOptions()
	opts.URLTemplate = srv.URL + "/%s.png"
	opts.RatePerSec = 0

	c, err := New(context.Background(), Options{
		Destination: dest,
		Workers:     2,
		Thumbnails:  opts,
		DBName:      uuid.NewString(),
		Runner:      r,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(c.Close)
	return c, hits
}

func flush(t *testing.T, c *Core) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for range 2 {
		if err := c.Flush(ctx); err != nil {
			t.Fatalf("flush: %v", err)
		}
		c.pool.Wait()
	}
	if err := c.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
}

type recorder struct {
	mu       sync.Mutex
	statuses []string
	states   []models.ItemState
	results  []models.BatchResult
	searches []models.SearchResultSet
	links    int
	last     []models.LinkItem
}

func (r *recorder) OnItemProgress(string, float64) {}

func (r *recorder) OnItemState(_ string, s models.ItemState, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *recorder) OnBatchComplete(res models.BatchResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
}

func (r *recorder) OnError(string) {}

func (r *recorder) OnStatus(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, text)
}

func (r *recorder) OnSearchResults(rs models.SearchResultSet) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.searches = append(r.searches, rs)
}

func (r *recorder) OnLinksChanged(items []models.LinkItem) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.links++
	r.last = items
}

func TestRunBatchMixedLinks(t *testing.T) {
	t.Parallel()

	dest := t.TempDir()
	r := scriptedRunner()
	c, _ := newTestCore(t, r, dest)

	rec := &recorder{}
	unsubscribe := c.Subscribe(rec)
	defer unsubscribe()

	c.EnqueueLink("not-a-url", "", "")
	c.EnqueueLink("https://www.youtube.com/watch?v=abcdefghijk", "abcdefghijk", "My Song")
	if n := len(c.Links()); n != 2 {
		t.Fatalf("expected 2 links, got %d", n)
	}

	res, err := c.RunBatch(context.Background(), models.MediaAudio, models.Selections{})
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if res.Total != 2 || res.Completed != 1 || res.Failed != 1 || res.Progress != 1.0 {
		t.Fatalf("unexpected result %+v", res)
	}
	if _, err := os.Stat(res.Items[1].OutputPath); err != nil {
		t.Fatalf("expected output file: %v", err)
	}

	flush(t, c)
	if n := len(c.Links()); n != 0 {
		t.Fatalf("expected queue cleared, got %d links", n)
	}
	if got := c.Status(); got != "Completed: 1/2" {
		t.Fatalf("unexpected status %q", got)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.results) != 1 {
		t.Fatalf("expected one batch completion, got %d", len(rec.results))
	}
	if !slices.Contains(rec.statuses, "Downloading: My Song") || !slices.Contains(rec.statuses, "Converting: My Song") {
		t.Fatalf("expected downloading and converting statuses, got %v", rec.statuses)
	}
	if rec.links == 0 {
		t.Fatal("expected link change notifications")
	}
	if len(rec.last) != 0 {
		t.Fatalf("link listeners still see %d links after the batch", len(rec.last))
	}

	history, err := c.History(context.Background(), 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 1 || history[0].Completed != 1 || history[0].Failed != 1 {
		t.Fatalf("unexpected history %+v", history)
	}
}

func TestAllDownloadsCompletedStatus(t *testing.T) {
	t.Parallel()

	c, _ := newTestCore(t, scriptedRunner(), t.TempDir())
	c.EnqueueLink("https://youtu.be/abcdefghijk", "abcdefghijk", "My Song")

	if _, err := c.RunBatch(context.Background(), models.MediaAudio, models.Selections{}); err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	flush(t, c)
	if got := c.Status(); got != consts.StatusAllComplete {
		t.Fatalf("unexpected status %q", got)
	}
	if last, ok := c.LastResult(); !ok || last.Completed != 1 {
		t.Fatalf("unexpected last result %+v, %v", last, ok)
	}
}

func TestStartBatchWithoutDestination(t *testing.T) {
	t.Parallel()

	r := scriptedRunner()
	c, _ := newTestCore(t, r, "")
	c.EnqueueLink("https://youtu.be/abcdefghijk", "abcdefghijk", "My Song")

	err := c.StartBatch(models.MediaAudio, models.Selections{})
	if !errors.Is(err, errs.ErrValidation) || !errors.Is(err, errs.ErrNoDestination) {
		t.Fatalf("expected missing destination error, got %v", err)
	}
	if !IsUserError(err) {
		t.Fatal("expected a user error")
	}

	flush(t, c)
	if got := c.Status(); got != consts.StatusNoDest {
		t.Fatalf("unexpected status %q", got)
	}
	if n := r.CountArg("--newline"); n != 0 {
		t.Fatalf("expected no downloads, got %d", n)
	}
	if n := len(c.Links()); n != 1 {
		t.Fatalf("expected queue untouched, got %d links", n)
	}
}

func TestStartBatchRunsInBackground(t *testing.T) {
	t.Parallel()

	c, _ := newTestCore(t, scriptedRunner(), t.TempDir())
	c.EnqueueLink("https://youtu.be/abcdefghijk", "abcdefghijk", "My Song")

	done := make(chan models.BatchResult, 1)
	c.Subscribe(batchDone(done))

	if err := c.StartBatch(models.MediaAudio, models.Selections{}); err != nil {
		t.Fatalf("StartBatch: %v", err)
	}

	select {
	case res := <-done:
		if res.Completed != 1 {
			t.Fatalf("unexpected result %+v", res)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("batch did not complete")
	}
}

type batchDone chan models.BatchResult

func (batchDone) OnItemProgress(string, float64) {}

func (batchDone) OnItemState(string, models.ItemState, error) {}

func (b batchDone) OnBatchComplete(res models.BatchResult) { b <- res }

func (batchDone) OnError(string) {}

func TestSearchAppliesAndCaches(t *testing.T) {
	t.Parallel()

	r := scriptedRunner()
	c, hits := newTestCore(t, r, "")
	rec := &recorder{}
	c.Subscribe(rec)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, applied, err := c.Search("  lofi   beats ").Wait(ctx); err != nil || !applied {
		t.Fatalf("search not applied: %v", err)
	}
	flush(t, c)

	rs, err := c.SearchResults(ctx)
	if err != nil {
		t.Fatalf("SearchResults: %v", err)
	}
	if rs.Query != "lofi beats" || len(rs.Entries) != 2 {
		t.Fatalf("unexpected results %+v", rs)
	}
	if got := c.Status(); got != consts.StatusReady {
		t.Fatalf("unexpected status %q", got)
	}
	if n := hits.Load(); n != 2 {
		t.Fatalf("expected 2 thumbnail requests, got %d", n)
	}
	if _, ok := c.CachedThumbnail("aaaaaaaaaaa"); !ok {
		t.Fatal("expected cached thumbnail")
	}

	p := c.Search("lofi beats")
	select {
	case <-p.Done():
	default:
		t.Fatal("expected a cache hit to complete synchronously")
	}
	if n := r.CountArg("--flat-playlist"); n != 1 {
		t.Fatalf("expected 1 search fetch, got %d", n)
	}

	flush(t, c)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.searches) != 2 || !slices.Contains(rec.statuses, consts.StatusSearching) {
		t.Fatalf("unexpected notifications %d, %v", len(rec.searches), rec.statuses)
	}
}

func TestRemoveAndClearLinks(t *testing.T) {
	t.Parallel()

	c, _ := newTestCore(t, scriptedRunner(), "")
	a := c.EnqueueLink("https://youtu.be/abcdefghijk", "abcdefghijk", "A")
	c.EnqueueLink("https://youtu.be/abcdefghijk", "abcdefghijk", "A")
	c.EnqueueLink("https://youtu.be/bbbbbbbbbbb", "bbbbbbbbbbb", "B")

	if !c.RemoveLink(a.URL, a.Handle) {
		t.Fatal("expected removal by handle")
	}
	if c.RemoveLink(a.URL, a.Handle) {
		t.Fatal("expected second removal to fail")
	}
	if n := len(c.Links()); n != 2 {
		t.Fatalf("expected 2 links, got %d", n)
	}
	c.ClearLinks()
	if n := len(c.Links()); n != 0 {
		t.Fatalf("expected empty queue, got %d", n)
	}
}

func TestCapabilitiesSoftwareOnly(t *testing.T) {
	t.Parallel()

	c, _ := newTestCore(t, scriptedRunner(), "")
	p := c.Capabilities(context.Background())
	if p.GPUVendor != consts.GPUNone || !p.Has(consts.EncoderSoftware) {
		t.Fatalf("unexpected profile %+v", p)
	}
}

func TestSelectDestination(t *testing.T) {
	t.Parallel()

	c, _ := newTestCore(t, scriptedRunner(), "")
	if err := c.SelectDestination(""); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	dir := t.TempDir()
	if err := c.SelectDestination(dir); err != nil {
		t.Fatalf("SelectDestination: %v", err)
	}
	if c.Destination() != dir {
		t.Fatalf("unexpected destination %q", c.Destination())
	}
}

func TestBatchClearNotifiesLinkListeners(t *testing.T) {
	t.Parallel()

	c, _ := newTestCore(t, scriptedRunner(), t.TempDir())
	rec := &recorder{}
	c.Subscribe(rec)

	c.EnqueueLink("https://youtu.be/abcdefghijk", "abcdefghijk", "My Song")
	flush(t, c)
	rec.mu.Lock()
	before := rec.links
	rec.mu.Unlock()

	if _, err := c.RunBatch(context.Background(), models.MediaAudio, models.Selections{}); err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	flush(t, c)

	if n := len(c.Links()); n != 0 {
		t.Fatalf("expected queue cleared, got %d links", n)
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.links <= before {
		t.Fatal("expected a link change notification for the post-batch clear")
	}
	if len(rec.last) != 0 {
		t.Fatalf("last notification still lists %d links", len(rec.last))
	}
}

func TestBatchProgressReachesSubscribers(t *testing.T) {
	t.Parallel()

	c, _ := newTestCore(t, scriptedRunner(), t.TempDir())
	rec := &progressRecorder{}
	c.Subscribe(rec)

	c.EnqueueLink("not-a-url", "", "")
	c.EnqueueLink("https://youtu.be/abcdefghijk", "abcdefghijk", "My Song")
	if _, err := c.RunBatch(context.Background(), models.MediaAudio, models.Selections{}); err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	flush(t, c)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	want := []float64{0, 0.5, 1}
	if !slices.Equal(rec.fractions, want) {
		t.Fatalf("expected progress %v, got %v", want, rec.fractions)
	}
	if _, running := c.CurrentBatch(); running {
		t.Fatal("no batch should be running")
	}
}

type progressRecorder struct {
	models.NopObserver
	mu        sync.Mutex
	fractions []float64
}

func (p *progressRecorder) OnBatchProgress(res models.BatchResult) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fractions = append(p.fractions, res.Progress)
}
