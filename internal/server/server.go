// Package server exposes the folder and import API over HTTP.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/wordhaven/vocab-cli/internal/blob"
	"github.com/wordhaven/vocab-cli/internal/config"
	"github.com/wordhaven/vocab-cli/internal/importer"
	"github.com/wordhaven/vocab-cli/internal/store"
)

// Server wires the store, upload storage, and import queue behind the API.
type Server struct {
	store store.Store
	blob  *blob.Storage
	queue *importer.Queue
	cfg   *config.Config
}

func New(st store.Store, bs *blob.Storage, q *importer.Queue, cfg *config.Config) *Server {
	return &Server{store: st, blob: bs, queue: q, cfg: cfg}
}

// Router builds the HTTP handler tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/folders", s.createFolder)
		r.Get("/folders/{folderID}", s.getFolder)
		r.Get("/folders/{folderID}/words", s.listWords)
		r.Post("/folders/{folderID}/imports", s.createImport)
		r.Get("/imports/{jobID}", s.getImport)
		r.Get("/imports/{jobID}/report", s.getImportReport)
		r.Get("/jobs", s.listJobs)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("server: response not written", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
