package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	// Order matters: the request id must exist before logging, and panics
	// are recovered inside the logger so they are recorded as 500s.
	r.Use(requestIDMiddleware)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(compressionMiddleware)
	r.Use(securityHeadersMiddleware)
	r.Use(corsMiddleware(s.cfg.CORSOrigins))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, http.StatusNotFound, "not_found", "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
	})

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Get("/metrics", s.handleMetrics)

	// The web client reaches the API through an /api prefix; direct callers
	// use the bare paths.
	s.apiRoutes(r)
	r.Route("/api", s.apiRoutes)

	return r
}

func (s *Server) apiRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(s.limiter.middleware(s))
		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)
	})

	r.Route("/file", func(r chi.Router) {
		r.Post("/upload", s.handleUpload)
		r.Get("/list/{userId}", s.handleListFiles)
		r.Get("/shared/{userId}", s.handleSharedFiles)
		r.Get("/download/{fileId}", s.handleDownload)
		r.Get("/download/{fileId}/raw", s.handleDownloadRaw)
		r.Post("/share", s.handleShare)
		r.Delete("/{fileId}/{userId}", s.handleDelete)
	})
}
