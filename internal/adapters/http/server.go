// Package http exposes the orchestrator as a JSON API: session lifecycle,
// decision-agent context, transition evaluation, and the advance step.
package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/parleyhq/parley"
	"github.com/parleyhq/parley/pkg/domain"
)

// Server wires the orchestrator into HTTP handlers.
type Server struct {
	Orchestrator *parley.Orchestrator
}

// NewHandler creates the HTTP handler for the orchestrator.
func NewHandler(o *parley.Orchestrator) http.Handler {
	s := &Server{Orchestrator: o}
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.CreateSession)
		r.Get("/", s.ListSessions)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", s.GetSession)
			r.Delete("/", s.DeleteSession)
			r.Get("/context", s.GetContext)
			r.Get("/transitions", s.GetTransitions)
			r.Post("/advance", s.Advance)
		})
	})

	return r
}

// corsMiddleware allows browser-based decision agents to call the API.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	info := map[string]string{
		"app":     "parley-http",
		"version": parley.Version,
	}
	if s.Orchestrator != nil {
		info["flow"] = s.Orchestrator.Name
		info["initial_stage"] = s.Orchestrator.Document().InitialStage
	}
	writeJSON(w, http.StatusOK, info)
}

// CreateSessionRequest is the body for POST /sessions.
type CreateSessionRequest struct {
	SessionID string `json:"session_id,omitempty"`
}

// CreateSession handles the POST /sessions request. An omitted session_id
// gets a generated UUID.
func (s *Server) CreateSession(w http.ResponseWriter, r *http.Request) {
	var body CreateSessionRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	snap, err := s.Orchestrator.StartSession(r.Context(), body.SessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

// ListSessions handles the GET /sessions request.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Orchestrator.ListSessions(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"sessions": ids})
}

// GetSession handles the GET /sessions/{sessionID} request.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	snap, err := s.Orchestrator.Session(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// DeleteSession handles the DELETE /sessions/{sessionID} request.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.Orchestrator.EndSession(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetContext handles the GET /sessions/{sessionID}/context request. The
// caller-owned turn counter arrives as the "turn" query parameter.
func (s *Server) GetContext(w http.ResponseWriter, r *http.Request) {
	turn, ok := turnParam(w, r)
	if !ok {
		return
	}

	sc, err := s.Orchestrator.Context(r.Context(), chi.URLParam(r, "sessionID"), turn, r.URL.Query().Get("message"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

// GetTransitions handles the GET /sessions/{sessionID}/transitions request.
func (s *Server) GetTransitions(w http.ResponseWriter, r *http.Request) {
	turn, ok := turnParam(w, r)
	if !ok {
		return
	}

	views, err := s.Orchestrator.Transitions(r.Context(), chi.URLParam(r, "sessionID"), turn)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if views == nil {
		views = []domain.TransitionView{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"transitions": views})
}

// AdvanceRequest is the body for POST /sessions/{sessionID}/advance.
type AdvanceRequest struct {
	Turn        int    `json:"turn"`
	Trigger     string `json:"trigger,omitempty"`
	Reason      string `json:"reason,omitempty"`
	UserMessage string `json:"user_message,omitempty"`
}

// Advance handles the POST /sessions/{sessionID}/advance request.
func (s *Server) Advance(w http.ResponseWriter, r *http.Request) {
	var body AdvanceRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Turn < 0 {
		writeError(w, http.StatusBadRequest, "turn must be non-negative")
		return
	}

	result, err := s.Orchestrator.Advance(r.Context(), chi.URLParam(r, "sessionID"), body.Turn, body.Trigger, body.Reason, body.UserMessage)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// -- Helpers --

func turnParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("turn")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "missing required query parameter: turn")
		return 0, false
	}
	turn, err := strconv.Atoi(raw)
	if err != nil || turn < 0 {
		writeError(w, http.StatusBadRequest, "turn must be a non-negative integer")
		return 0, false
	}
	return turn, true
}

func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrSessionNotFound) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
