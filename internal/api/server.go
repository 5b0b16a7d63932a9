package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mlevan/watchshelf/internal/api/handlers"
	"github.com/mlevan/watchshelf/internal/api/middleware"
	"github.com/mlevan/watchshelf/internal/config"
	"github.com/mlevan/watchshelf/internal/controllers"
	"github.com/mlevan/watchshelf/internal/models"
	"github.com/sirupsen/logrus"
)

// Server represents the HTTP server
type Server struct {
	server      *http.Server
	db          *models.Database
	libraryCtrl *controllers.LibraryController
	suggestCtrl *controllers.SuggestionController
	logger      *logrus.Logger
}

// NewServer creates a new HTTP server
func NewServer(
	cfg *config.Config,
	db *models.Database,
	libraryCtrl *controllers.LibraryController,
	suggestCtrl *controllers.SuggestionController,
	logger *logrus.Logger,
) *Server {
	s := &Server{
		db:          db,
		libraryCtrl: libraryCtrl,
		suggestCtrl: suggestCtrl,
		logger:      logger,
	}

	mux := http.NewServeMux()
	s.setupRoutes(mux)

	s.server = &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      middleware.Logging(mux, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 45 * time.Second, // watch long-poll holds the connection
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(mux *http.ServeMux) {
	// Health check
	healthHandler := handlers.NewHealthHandler(s.logger)
	mux.HandleFunc("GET /health", healthHandler.ServeHTTP)

	// Library stats
	statusHandler := handlers.NewStatusHandler(s.db, s.logger)
	mux.HandleFunc("GET /status", statusHandler.ServeHTTP)

	// Library CRUD
	libraryHandler := handlers.NewLibraryHandler(s.libraryCtrl, s.logger)
	mux.HandleFunc("GET /api/media", libraryHandler.List)
	mux.HandleFunc("POST /api/media", libraryHandler.Create)
	mux.HandleFunc("DELETE /api/media/{id}", libraryHandler.Delete)
	mux.HandleFunc("POST /api/media/{id}/status", libraryHandler.CycleStatus)
	mux.HandleFunc("PUT /api/media/{id}/rating", libraryHandler.SetRating)
	mux.HandleFunc("DELETE /api/media/{id}/rating", libraryHandler.ClearRating)
	mux.HandleFunc("POST /api/media/accept", libraryHandler.AcceptSuggestion)

	// AI suggestions
	suggestHandler := handlers.NewSuggestHandler(s.suggestCtrl, s.db, s.logger)
	mux.HandleFunc("POST /api/suggestions/refresh", suggestHandler.Refresh)
	mux.HandleFunc("GET /api/suggestions", suggestHandler.Current)
	mux.HandleFunc("GET /api/suggestions/surprise", suggestHandler.Surprise)
	mux.HandleFunc("GET /api/lookup", suggestHandler.Lookup)
	mux.HandleFunc("POST /api/autocomplete", suggestHandler.Type)
	mux.HandleFunc("GET /api/autocomplete", suggestHandler.Completions)
	mux.HandleFunc("GET /api/picks", suggestHandler.Picks)

	// Library change long-poll
	watchHandler := handlers.NewWatchHandler(s.db, s.logger)
	mux.HandleFunc("GET /api/media/watch", watchHandler.ServeHTTP)
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	s.logger.WithField("port", s.server.Addr).Info("Starting HTTP server")

	errChan := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}
