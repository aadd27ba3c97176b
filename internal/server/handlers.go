package server

import (
	"encoding/json"
	"errors"
	"image/png"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"grabarr/internal/domain/errs"
	"grabarr/internal/domain/logger"
	"grabarr/internal/models"
)

const (
	defaultHistoryLimit = 20
	maxBodyBytes        = 1 << 20
)

type destinationRequest struct {
	Path string `json:"path"`
}

type linkRequest struct {
	URL   string `json:"url"`
	ID    string `json:"id"`
	Title string `json:"title"`
}

type searchResponse struct {
	models.SearchResultSet
	Error   string `json:"error,omitempty"`
	Applied bool   `json:"applied"`
}

type statusResponse struct {
	Status      string              `json:"status"`
	Busy        bool                `json:"busy"`
	Destination string              `json:"destination,omitempty"`
	Batch       *models.BatchResult `json:"batch,omitempty"`
	LastResult  *models.BatchResult `json:"last_result,omitempty"`
}

type capabilitiesResponse struct {
	GPUVendor string   `json:"gpu_vendor"`
	Encoders  []string `json:"encoders"`
}

// handleSetDestination selects the output directory.
func (s *Server) handleSetDestination(w http.ResponseWriter, r *http.Request) {
	var req destinationRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.core.SelectDestination(req.Path); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, destinationRequest{Path: s.core.Destination()})
}

// handleListLinks returns the link queue in order.
func (s *Server) handleListLinks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.core.Links())
}

// handleAddLink appends a link to the queue.
func (s *Server) handleAddLink(w http.ResponseWriter, r *http.Request) {
	var req linkRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		writeError(w, http.StatusBadRequest, errors.New("url is required"))
		return
	}
	writeJSON(w, http.StatusCreated, s.core.EnqueueLink(req.URL, req.ID, req.Title))
}

// handleRemoveLink removes one queue entry by handle and URL. Removing an entry that is
// already gone is a no-op.
func (s *Server) handleRemoveLink(w http.ResponseWriter, r *http.Request) {
	handle := chi.URLParam(r, "handle")
	if !s.core.RemoveLink(r.URL.Query().Get("url"), handle) {
		logger.Pl.D(2, "No queued link %s to remove", handle)
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleClearLinks empties the queue.
func (s *Server) handleClearLinks(w http.ResponseWriter, r *http.Request) {
	s.core.ClearLinks()
	w.WriteHeader(http.StatusNoContent)
}

// handleSearch runs a search and waits for it to be applied or superseded.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	p := s.core.Search(r.URL.Query().Get("q"))
	rs, applied, err := p.Wait(r.Context())
	if err != nil {
		writeError(w, http.StatusRequestTimeout, err)
		return
	}

	resp := searchResponse{SearchResultSet: rs, Applied: applied}
	if rs.Failed() {
		resp.Error = rs.Err.Error()
		writeJSON(w, http.StatusBadGateway, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleThumbnail serves a cached thumbnail as PNG, starting a fetch on a miss.
func (s *Server) handleThumbnail(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	img, ok := s.core.CachedThumbnail(id)
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("thumbnail not cached yet"))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "max-age=3600")
	if err := png.Encode(w, img); err != nil {
		logger.Pl.D(1, "Failed to write thumbnail %q: %v", id, err)
	}
}

// handleStartBatch starts a batch over the current queue.
func (s *Server) handleStartBatch(w http.ResponseWriter, r *http.Request) {
	mt, err := models.ParseMediaType(chi.URLParam(r, "media"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var sel models.Selections
	if r.ContentLength != 0 {
		if !decodeBody(w, r, &sel) {
			return
		}
	}

	if err := s.core.StartBatch(mt, sel); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusAccepted, statusResponse{Status: s.core.Status(), Busy: true, Destination: s.core.Destination()})
}

// handleStatus reports the status line and batch state.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Status:      s.core.Status(),
		Busy:        s.core.Busy(),
		Destination: s.core.Destination(),
	}
	if cur, ok := s.core.CurrentBatch(); ok {
		resp.Batch = &cur
	}
	if last, ok := s.core.LastResult(); ok {
		resp.LastResult = &last
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleCapabilities reports the detected encoder profile.
func (s *Server) handleCapabilities(w http.ResponseWriter, r *http.Request) {
	p := s.core.Capabilities(r.Context())
	writeJSON(w, http.StatusOK, capabilitiesResponse{GPUVendor: string(p.GPUVendor), Encoders: p.Encoders()})
}

// handleHistory lists recorded batches, newest first.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, errors.New("limit must be a positive integer"))
			return
		}
		limit = n
	}

	batches, err := s.core.History(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if batches == nil {
		batches = []models.BatchResult{}
	}
	writeJSON(w, http.StatusOK, batches)
}

// handleEvents upgrades to a websocket streaming core events.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Pl.D(1, "Websocket upgrade failed: %v", err)
		return
	}
	c := newClient(s.hub, conn, r)
	if !s.hub.registerClient(c) {
		_ = conn.Close()
		return
	}
	go c.writePump()
	go c.readPump()
}

// ----------------- Helpers ----------------------------------------------------------------------------------------

// statusFor maps an error class to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errs.ErrBatchRunning):
		return http.StatusConflict
	case errors.Is(err, errs.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrEnvironment):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// decodeBody decodes a JSON body into v, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Pl.D(1, "Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
