// Package httptrigger exposes the pipeline's node-trigger surface over
// HTTP, playing the role of the filesystem-observer/webhook external
// collaborator: an external change-notification
// source calls this surface, which in turn calls a node's Trigger().
//
// Grounded on 2389-research-mammoth/web/server.go's chi router
// construction (chi.NewRouter, route groups, middleware.Logger/Recoverer)
// and smilemakc-mbflow/internal/infrastructure/api/rest's handler shape.
package httptrigger

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/smilemakc/anacostia/internal/logging"
	"github.com/smilemakc/anacostia/internal/pipeline"
)

// Server is a small HTTP surface over a Pipeline's lifecycle and trigger
// operations.
type Server struct {
	router   chi.Router
	pipeline *pipeline.Pipeline
	log      logging.Sink
}

// New builds a Server bound to p. Routes:
//
//	POST /nodes/{name}/trigger  -- invoke a node's Trigger()
//	GET  /status                -- current node statuses
//	GET  /health                -- liveness probe
func New(p *pipeline.Pipeline, log logging.Sink) *Server {
	if log == nil {
		log = logging.Noop
	}
	s := &Server{pipeline: p, log: log}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/status", s.handleStatus)
	r.Post("/nodes/{name}/trigger", s.handleTrigger)

	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := s.pipeline.Status()
	out := make(map[string]string, len(status))
	for name, st := range status {
		out[name] = st.String()
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	n, ok := s.pipeline.Node(name)
	if !ok {
		http.Error(w, "unknown node: "+name, http.StatusNotFound)
		return
	}
	n.Trigger()
	s.log.Info("triggered via http", logging.F("node", name))
	w.WriteHeader(http.StatusAccepted)
}
