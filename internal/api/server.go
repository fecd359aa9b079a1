// Package api exposes the concord facade over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/cognicore/concord/pkg/concord"
	"github.com/cognicore/concord/pkg/concord/internalerr"
)

// MaxBodyBytes bounds request bodies.
const MaxBodyBytes = 64 << 20

// Server is the HTTP API server for concord.
type Server struct {
	router chi.Router
	cc     *concord.Concord
	log    *slog.Logger
}

// NewServer creates and configures the HTTP server.
func NewServer(cc *concord.Concord, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{cc: cc, log: log}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	r.Get("/health", s.handleHealth)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/annotate", s.handleAnnotate)
		r.Post("/align", s.handleAlign)
		r.Post("/ingest", s.handleIngest)
		r.Get("/runs/{runID}", s.handleGetRun)
		r.Get("/documents/{docID}/runs", s.handleListRuns)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"language": s.cc.Config().Language,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps the error taxonomy onto HTTP codes. Anything outside the
// taxonomy is an engine or I/O failure.
func statusFor(err error) int {
	switch {
	case internalerr.IsAlignment(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, internalerr.ErrNotFound):
		return http.StatusNotFound
	}
	return http.StatusBadGateway
}
