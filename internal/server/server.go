package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bmcfleet/goldfish/internal/store"
)

// Server exposes the run history over a read-only JSON API.
type Server struct {
	store      *store.Store
	logger     *slog.Logger
	version    string
	router     *gin.Engine
	httpServer *http.Server
}

// NewServer creates a new Server instance. In dev mode gin keeps its
// default debug output; otherwise it runs in release mode.
func NewServer(st *store.Store, logger *slog.Logger, version string, dev bool) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if !dev {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		store:   st,
		logger:  logger,
		version: version,
	}
	s.router = s.setupRoutes()
	return s
}

// setupRoutes registers all API routes on a new gin engine.
func (s *Server) setupRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	api := router.Group("/api")
	{
		api.GET("/health", s.handleHealth)
		api.GET("/runs", s.handleListRuns)
		api.GET("/runs/:id", s.handleGetRun)
	}

	return router
}

// Start starts the HTTP server on the given listen address and blocks
// until it stops.
func (s *Server) Start(listenAddr string) error {
	s.httpServer = &http.Server{
		Addr:         listenAddr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting HTTP server", "addr", listenAddr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
