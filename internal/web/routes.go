package web

import (
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-attend/internal/web/handlers"
	"github.com/kozaktomas/face-attend/internal/web/middleware"
	"github.com/kozaktomas/face-attend/internal/web/static"
)

func (s *Server) setupRoutes(sessionManager *middleware.SessionManager) {
	authHandler := handlers.NewAuthHandler(s.store, sessionManager)
	attendanceHandler := handlers.NewAttendanceHandler(s.store, s.exporter)
	subjectsHandler := handlers.NewSubjectsHandler(s.store)
	studentsHandler := handlers.NewStudentsHandler(s.store)
	queriesHandler := handlers.NewQueriesHandler(s.store)
	recognitionHandler := handlers.NewRecognitionHandler(s.recognition)

	// Health check (no auth required)
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/logout", authHandler.Logout)
		r.Get("/auth/status", authHandler.Status)

		// Routes for any logged-in user.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(sessionManager))

			r.Get("/attendance", attendanceHandler.List)
			r.Get("/attendance/stats", attendanceHandler.Stats)
			r.Get("/subjects", subjectsHandler.List)
			r.Get("/me/summary", studentsHandler.Summary)
			r.Post("/queries", queriesHandler.Create)
		})

		// Admin-only routes.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(sessionManager))
			r.Use(middleware.RequireAdmin())

			r.Post("/attendance", attendanceHandler.Add)
			r.Delete("/attendance/{id}", attendanceHandler.Absent)
			r.Post("/attendance/import", attendanceHandler.Import)
			r.Post("/attendance/export", attendanceHandler.Export)

			r.Post("/subjects", subjectsHandler.Upsert)
			r.Get("/students", studentsHandler.List)
			r.Post("/students", studentsHandler.Upsert)

			r.Get("/queries", queriesHandler.List)
			r.Post("/queries/{id}/resolve", queriesHandler.Resolve)

			r.Post("/recognition/start", recognitionHandler.Start)
			r.Post("/recognition/stop", recognitionHandler.Stop)
			r.Get("/recognition/status", recognitionHandler.Status)
		})
	})

	// Static frontend with SPA fallback.
	s.router.Get("/*", serveStatic)
}

func serveStatic(w http.ResponseWriter, r *http.Request) {
	if static.HasDist() {
		fs := static.GetFileSystem()
		path := r.URL.Path

		if f, err := fs.Open(path); err == nil {
			defer f.Close()
			if stat, err := f.Stat(); err == nil && !stat.IsDir() {
				http.FileServer(fs).ServeHTTP(w, r)
				return
			}
		}

		// For SPA routing, serve index.html for non-asset paths
		if !strings.HasPrefix(path, "/assets/") {
			indexFile, err := fs.Open("/index.html")
			if err == nil {
				defer indexFile.Close()
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				w.WriteHeader(http.StatusOK)
				io.Copy(w, indexFile)
				return
			}
		}
	}

	http.NotFound(w, r)
}
