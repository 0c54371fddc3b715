// Package server provides the HTTP API for Miru.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/miru/internal/config"
	"github.com/hyperjump/miru/internal/ingest"
	"github.com/hyperjump/miru/internal/search"
	"github.com/hyperjump/miru/internal/storage"
)

// Server is the HTTP server for the Miru API.
type Server struct {
	engine   *search.Engine
	ingestor *ingest.Ingestor
	storage  storage.Store
	config   *config.ServerConfig
	appCfg   *config.Config
	logger   *zap.Logger
	server   *http.Server
}

// NewServer creates a server with the given dependencies. appCfg may be nil;
// when set, the status endpoint echoes configuration.
func NewServer(
	engine *search.Engine,
	ingestor *ingest.Ingestor,
	store storage.Store,
	cfg *config.ServerConfig,
	logger *zap.Logger,
	appCfg *config.Config,
) *Server {
	return &Server{
		engine:   engine,
		ingestor: ingestor,
		storage:  store,
		config:   cfg,
		appCfg:   appCfg,
		logger:   logger,
	}
}

// Router returns the configured chi router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/upload", s.handleUpload)
	r.Post("/api/v1/search", s.handleSearch)
	r.Post("/api/v1/keyword-search", s.handleKeywordSearch)
	r.Get("/api/v1/images/{hash}", s.handleGetImage)
	r.Get("/api/v1/status", s.handleStatus)
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
