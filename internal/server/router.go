// Package server exposes the grabarr core over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"image"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"grabarr/internal/domain/consts"
	"grabarr/internal/domain/logger"
	"grabarr/internal/models"
	"grabarr/internal/search"
)

// Core is the part of app.Core the server drives.
type Core interface {
	SelectDestination(path string) error
	Destination() string
	EnqueueLink(rawURL, id, title string) models.LinkItem
	RemoveLink(rawURL, handle string) bool
	ClearLinks()
	Links() []models.LinkItem
	Search(query string) *search.Pending
	CachedThumbnail(id string) (image.Image, bool)
	StartBatch(mt models.MediaType, sel models.Selections) error
	Busy() bool
	CurrentBatch() (models.BatchResult, bool)
	LastResult() (models.BatchResult, bool)
	Capabilities(ctx context.Context) models.CapabilityProfile
	Status() string
	History(ctx context.Context, limit int) ([]models.BatchResult, error)
	Subscribe(obs models.Observer) (unsubscribe func())
}

// Server serves the HTTP API and the event stream.
type Server struct {
	core        Core
	hub         *hub
	router      chi.Router
	unsubscribe func()
}

// New returns a server whose event hub runs until ctx is done.
func New(ctx context.Context, core Core) *Server {
	s := &Server{
		core: core,
		hub:  newHub(),
	}
	go s.hub.run(ctx)
	s.unsubscribe = core.Subscribe(s.hub)
	s.router = s.newRouter()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close detaches the server from the core's events.
func (s *Server) Close() {
	s.unsubscribe()
}

func (s *Server) newRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		r.Put("/destination", s.handleSetDestination)

		r.Route("/links", func(r chi.Router) {
			r.Get("/", s.handleListLinks)
			r.Post("/", s.handleAddLink)
			r.Delete("/", s.handleClearLinks)
			r.Delete("/{handle}", s.handleRemoveLink)
		})

		r.Get("/search", s.handleSearch)
		r.Get("/thumbnails/{id}", s.handleThumbnail)
		r.Post("/batch/{media}", s.handleStartBatch)
		r.Get("/status", s.handleStatus)
		r.Get("/capabilities", s.handleCapabilities)
		r.Get("/history", s.handleHistory)
		r.Get("/events", s.handleEvents)
	})
	return r
}

// requestLogger logs each request through the program logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logger.Pl.D(2, "%s %s -> %d (%s) [%s]", r.Method, r.URL.Path, ww.Status(), time.Since(start), middleware.GetReqID(r.Context()))
	})
}

// Run listens on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, host string, port int) error {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: consts.HTTPReadTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Pl.S("%s web server running on http://%s", consts.ProgramName, addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), consts.ProcessWaitDelay)
	defer cancel()
	logger.Pl.I("Shutting down web server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
