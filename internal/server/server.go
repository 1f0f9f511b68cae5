// Package server provides the HTTP API over the concept graph.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/chalkline/papergraph/internal/config"
	"github.com/chalkline/papergraph/internal/query"
	"github.com/chalkline/papergraph/internal/search"
	"github.com/chalkline/papergraph/internal/store"
)

// Server is the HTTP server for the papergraph API.
type Server struct {
	store  store.Store
	engine *query.Engine
	index  *search.ConceptIndex // optional, nil when search is LIKE-only
	config *config.ServerConfig
	logger *zap.Logger
	server *http.Server
}

// NewServer creates a server with the given dependencies. index may be nil;
// search then falls back to the store's substring query.
func NewServer(
	s store.Store,
	engine *query.Engine,
	index *search.ConceptIndex,
	cfg *config.ServerConfig,
	logger *zap.Logger,
) *Server {
	return &Server{
		store:  s,
		engine: engine,
		index:  index,
		config: cfg,
		logger: logger,
	}
}

// Router builds the chi router with all API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Get("/health", s.handleHealth)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/api/v1/concepts", s.handleListConcepts)
	r.Get("/api/v1/concepts/{id}", s.handleConceptDetail)
	r.Get("/api/v1/categories", s.handleCategories)
	r.Get("/api/v1/search", s.handleSearch)
	r.Get("/api/v1/papers", s.handleListPapers)
	r.Get("/api/v1/trends", s.handleTrends)
	r.Get("/api/v1/cooccurrences", s.handleCoOccurrences)

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
