// Package web serves the attendance API and the admin frontend.
package web

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/kozaktomas/face-attend/internal/database"
	"github.com/kozaktomas/face-attend/internal/export"
	"github.com/kozaktomas/face-attend/internal/web/handlers"
	"github.com/kozaktomas/face-attend/internal/web/middleware"
)

// Server represents the web server.
type Server struct {
	store       database.Store
	exporter    *export.Exporter
	recognition *handlers.RecognitionManager
	router      *chi.Mux
	httpServer  *http.Server
}

// NewServer creates a new web server.
func NewServer(
	store database.Store,
	exporter *export.Exporter,
	sessionFactory handlers.SessionFactory,
	port int,
	host string,
	sessionSecret string,
) *Server {
	r := chi.NewRouter()
	sessionManager := middleware.NewSessionManager(sessionSecret)

	s := &Server{
		store:       store,
		exporter:    exporter,
		recognition: handlers.NewRecognitionManager(sessionFactory),
		router:      r,
	}

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(time.Minute))
	r.Use(middleware.CORS())

	s.setupRoutes(sessionManager)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", host, port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	log.Printf("Starting web server on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server and any running
// recognition session.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down web server...")

	s.recognition.Stop()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Router returns the chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}
