package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"grabarr/internal/domain/consts"
	"grabarr/internal/domain/errs"
	"grabarr/internal/models"
	"grabarr/internal/search"
	"grabarr/internal/surface"
)

type fakeFetcher struct{}

func (fakeFetcher) Search(_ context.Context, q string, _ int) ([]models.VideoSummary, error) {
	if q == "broken" {
		return nil, fmt.Errorf("%w: provider unreachable", errs.ErrTransientFetch)
	}
	return []models.VideoSummary{{ID: "abc", Title: "Result for " + q}}, nil
}

type fakeCore struct {
	mu      sync.Mutex
	dest    string
	links   []models.LinkItem
	busy    bool
	current *models.BatchResult
	started []models.Selections
	thumbs  map[string]image.Image
	obs     models.Observer
	search  *search.Dispatcher
}

func newFakeCore() *fakeCore {
	return &fakeCore{
		thumbs: map[string]image.Image{"cached": image.NewRGBA(image.Rect(0, 0, 4, 4))},
		search: search.NewDispatcher(context.Background(), fakeFetcher{}, surface.Sync{}, nil),
	}
}

func (f *fakeCore) SelectDestination(path string) error {
	if path == "" {
		return fmt.Errorf("%w: %w", errs.ErrValidation, errs.ErrNoDestination)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dest = path
	return nil
}

func (f *fakeCore) Destination() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dest
}

func (f *fakeCore) EnqueueLink(rawURL, id, title string) models.LinkItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	item := models.LinkItem{Handle: fmt.Sprintf("h%d", len(f.links)), ID: id, URL: rawURL, Title: title}
	f.links = append(f.links, item)
	if f.obs != nil {
		if l, ok := f.obs.(interface{ OnLinksChanged([]models.LinkItem) }); ok {
			l.OnLinksChanged(append([]models.LinkItem(nil), f.links...))
		}
	}
	return item
}

func (f *fakeCore) RemoveLink(rawURL, handle string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, it := range f.links {
		if it.Handle == handle && it.URL == rawURL {
			f.links = append(f.links[:i], f.links[i+1:]...)
			return true
		}
	}
	return false
}

func (f *fakeCore) ClearLinks() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.links = nil
}

func (f *fakeCore) Links() []models.LinkItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.LinkItem{}, f.links...)
}

func (f *fakeCore) Search(q string) *search.Pending {
	return f.search.Search(q)
}

func (f *fakeCore) CachedThumbnail(id string) (image.Image, bool) {
	img, ok := f.thumbs[id]
	return img, ok
}

func (f *fakeCore) StartBatch(_ models.MediaType, sel models.Selections) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.busy {
		return errs.ErrBatchRunning
	}
	if f.dest == "" {
		return fmt.Errorf("%w: %w", errs.ErrValidation, errs.ErrNoDestination)
	}
	f.busy = true
	f.started = append(f.started, sel)
	return nil
}

func (f *fakeCore) Busy() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.busy
}

func (f *fakeCore) CurrentBatch() (models.BatchResult, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current == nil {
		return models.BatchResult{}, false
	}
	return *f.current, true
}

func (f *fakeCore) LastResult() (models.BatchResult, bool) {
	return models.BatchResult{}, false
}

func (f *fakeCore) Capabilities(context.Context) models.CapabilityProfile {
	return models.SoftwareOnlyProfile()
}

func (f *fakeCore) Status() string { return consts.StatusReady }

func (f *fakeCore) History(context.Context, int) ([]models.BatchResult, error) {
	return nil, nil
}

func (f *fakeCore) Subscribe(obs models.Observer) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.obs = obs
	return func() {}
}

func newTestServer(t *testing.T) (*fakeCore, *httptest.Server) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	core := newFakeCore()
	s := New(ctx, core)
	t.Cleanup(s.Close)

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return core, ts
}

func do(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestLinksLifecycle(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t)
	base := ts.URL + "/api/v1/links"

	resp := do(t, http.MethodPost, base, linkRequest{URL: "https://youtu.be/abcdefghijk"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var item models.LinkItem
	if err := json.NewDecoder(resp.Body).Decode(&item); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if resp := do(t, http.MethodPost, base, linkRequest{}); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty url, got %d", resp.StatusCode)
	}

	resp = do(t, http.MethodGet, base, nil)
	var items []models.LinkItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(items) != 1 || items[0].Handle != item.Handle {
		t.Fatalf("unexpected links %+v", items)
	}

	remove := base + "/" + item.Handle + "?url=" + item.URL
	if resp := do(t, http.MethodDelete, remove, nil); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	if resp := do(t, http.MethodDelete, remove, nil); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected repeated delete to be a no-op, got %d", resp.StatusCode)
	}
	if resp := do(t, http.MethodDelete, base+"/unknown-handle?url=https://youtu.be/x", nil); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected delete of an unknown link to be a no-op, got %d", resp.StatusCode)
	}
	if resp := do(t, http.MethodDelete, base, nil); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204 on clear, got %d", resp.StatusCode)
	}
}

func TestDestinationAndBatch(t *testing.T) {
	t.Parallel()
	core, ts := newTestServer(t)
	api := ts.URL + "/api/v1"

	if resp := do(t, http.MethodPost, api+"/batch/audio", nil); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 without destination, got %d", resp.StatusCode)
	}
	if resp := do(t, http.MethodPut, api+"/destination", destinationRequest{}); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty path, got %d", resp.StatusCode)
	}
	if resp := do(t, http.MethodPut, api+"/destination", destinationRequest{Path: "/music"}); resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if resp := do(t, http.MethodPost, api+"/batch/gif", nil); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad media, got %d", resp.StatusCode)
	}

	sel := models.Selections{Resolution: 480, Bitrate: "2M", Encoder: "auto"}
	if resp := do(t, http.MethodPost, api+"/batch/video", sel); resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}
	if resp := do(t, http.MethodPost, api+"/batch/video", sel); resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 while busy, got %d", resp.StatusCode)
	}

	core.mu.Lock()
	defer core.mu.Unlock()
	if len(core.started) != 1 || core.started[0] != sel {
		t.Fatalf("unexpected selections %+v", core.started)
	}
}

func TestSearchEndpoint(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t)

	resp := do(t, http.MethodGet, ts.URL+"/api/v1/search?q=lofi", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !sr.Applied || len(sr.Entries) != 1 || sr.Entries[0].Title != "Result for lofi" {
		t.Fatalf("unexpected response %+v", sr)
	}

	resp = do(t, http.MethodGet, ts.URL+"/api/v1/search?q=broken", nil)
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.StatusCode)
	}
}

func TestThumbnailEndpoint(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t)

	resp := do(t, http.MethodGet, ts.URL+"/api/v1/thumbnails/cached", nil)
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/png" {
		t.Fatalf("unexpected response %d %q", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	if resp := do(t, http.MethodGet, ts.URL+"/api/v1/thumbnails/missing", nil); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestStatusCapabilitiesHistory(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t)
	api := ts.URL + "/api/v1"

	var st statusResponse
	if err := json.NewDecoder(do(t, http.MethodGet, api+"/status", nil).Body).Decode(&st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.Status != consts.StatusReady || st.Busy {
		t.Fatalf("unexpected status %+v", st)
	}

	var caps capabilitiesResponse
	if err := json.NewDecoder(do(t, http.MethodGet, api+"/capabilities", nil).Body).Decode(&caps); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if caps.GPUVendor != string(consts.GPUNone) || len(caps.Encoders) != 1 {
		t.Fatalf("unexpected capabilities %+v", caps)
	}

	resp := do(t, http.MethodGet, api+"/history", nil)
	var batches []models.BatchResult
	if err := json.NewDecoder(resp.Body).Decode(&batches); err != nil || batches == nil {
		t.Fatalf("expected empty list, got %v, %v", batches, err)
	}
	if resp := do(t, http.MethodGet, api+"/history?limit=zero", nil); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestStatusReportsRunningBatch(t *testing.T) {
	t.Parallel()
	core, ts := newTestServer(t)

	core.mu.Lock()
	core.busy = true
	core.current = &models.BatchResult{MediaType: models.MediaAudio, Total: 4, Completed: 1, Progress: 0.25}
	core.mu.Unlock()

	var st statusResponse
	if err := json.NewDecoder(do(t, http.MethodGet, ts.URL+"/api/v1/status", nil).Body).Decode(&st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !st.Busy || st.Batch == nil || st.Batch.Progress != 0.25 || st.Batch.Total != 4 {
		t.Fatalf("unexpected running batch %+v", st.Batch)
	}
	if st.LastResult != nil {
		t.Fatalf("unexpected last result %+v", st.LastResult)
	}
}

func TestEventStream(t *testing.T) {
	t.Parallel()
	core, ts := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	core.mu.Lock()
	obs := core.obs
	core.mu.Unlock()

	// The client registers after the upgrade completes, so publish until one arrives.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(20 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				obs.OnItemState("h0", models.StateFailed, errors.New("boom"))
			}
		}
	}()

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var ev Event
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if ev.Type != EventItemState || ev.Handle != "h0" || ev.State != models.StateFailed || ev.Message != "boom" {
		t.Fatalf("unexpected event %+v", ev)
	}
}
