// Package server provides the HTTP API for listingsearch.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/artisan-point/listingsearch/internal/config"
	"github.com/artisan-point/listingsearch/internal/search"
	"github.com/artisan-point/listingsearch/internal/source"
	"github.com/artisan-point/listingsearch/internal/syncer"
)

// Server is the HTTP server for the listingsearch API.
type Server struct {
	searcher *search.Service
	engine   *syncer.Engine
	catalog  source.Catalog
	config   *config.ServerConfig
	logger   *zap.Logger
	server   *http.Server
}

// NewServer creates a server with the given dependencies. catalog may be nil
// when the catalog is maintained elsewhere; the listing write endpoints then
// return 501.
func NewServer(
	searcher *search.Service,
	engine *syncer.Engine,
	catalog source.Catalog,
	cfg *config.ServerConfig,
	logger *zap.Logger,
) *Server {
	return &Server{
		searcher: searcher,
		engine:   engine,
		catalog:  catalog,
		config:   cfg,
		logger:   logger,
	}
}

// Router builds the chi router with all routes and middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/search", s.handleSearch)
	r.Post("/api/v1/sync", s.handleSync)
	r.Post("/api/v1/rebuild", s.handleRebuild)
	r.Get("/api/v1/status", s.handleStatus)
	r.Post("/api/v1/listings", s.handleCreateListing)
	r.Get("/api/v1/listings/{id}", s.handleGetListing)
	r.Put("/api/v1/listings/{id}", s.handleUpdateListing)
	r.Delete("/api/v1/listings/{id}", s.handleDeleteListing)
	r.Get("/health", s.handleHealth)

	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
