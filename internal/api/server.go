package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"newsfeed/internal/ports"
)

// Server exposes the thin read API over the persisted article corpus.
type Server struct {
	store        ports.ReadStore
	thumbnailDir string
	logger       *slog.Logger
}

// NewServer wires the read store and the thumbnail asset directory.
func NewServer(store ports.ReadStore, thumbnailDir string, logger *slog.Logger) *Server {
	return &Server{store: store, thumbnailDir: thumbnailDir, logger: logger}
}

// Router builds the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/api/health", s.handleHealth)
	r.Get("/api/news", s.handleListNews)
	r.Get("/api/news/{id}", s.handleGetNews)
	r.Get("/api/categories", s.handleListCategories)
	r.Post("/api/categories/batch", s.handleCategoriesBatch)
	r.Post("/api/related/batch", s.handleRelatedBatch)

	fileServer := http.FileServer(http.Dir(s.thumbnailDir))
	r.Handle("/thumbnails/*", http.StripPrefix("/thumbnails/", fileServer))

	return r
}
