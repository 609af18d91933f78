package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/recallkit/recall/internal/assistant"
	"github.com/recallkit/recall/internal/memory"
	"github.com/recallkit/recall/internal/router"
	"github.com/recallkit/recall/internal/store"
)

// Server is the recall HTTP API server.
type Server struct {
	db        *store.DB
	manager   *memory.Manager
	memories  *router.Router
	assistant *assistant.Assistant
	mux       chi.Router
	log       *zap.Logger
	version   string
	started   time.Time
}

// New creates a Server. assistant may be nil when no LLM is configured; the
// chat route then answers 503 while everything else keeps working. log may
// be nil.
func New(db *store.DB, manager *memory.Manager, memories *router.Router, asst *assistant.Assistant, version string, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		db:        db,
		manager:   manager,
		memories:  memories,
		assistant: asst,
		log:       log,
		version:   version,
		started:   time.Now(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/chat", s.handleChat)

		r.Get("/memories/search", s.handleSearch)
		r.Post("/memories", s.handleUpsertMemories)
		r.Delete("/memories", s.handleDeleteMemories)
		r.Delete("/memories/all", s.handleWipeMemories)

		r.Get("/profile", s.handleProfile)
	})

	s.mux = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbOK := s.db.Ping() == nil

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.started).Seconds(),
		"db":      dbOK,
		"db_path": s.db.Path,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
