// Package inspect serves a read-only HTTP view of a bus System: the
// registered modules, the functions offered per interface and how a name
// resolves.
package inspect

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/systemshift/bus/internal/version"
	"github.com/systemshift/bus/pkg/bus"
	"github.com/systemshift/bus/pkg/diag"
	"github.com/systemshift/bus/pkg/guid"
	"github.com/systemshift/bus/pkg/journal"
)

// Server holds the handler dependencies
type Server struct {
	sys     *bus.System
	guard   sync.Locker
	journal *journal.Journal
}

// NewHandler returns the router. Every System access is made while holding
// guard. j may be nil, in which case /api/loads answers 404.
func NewHandler(sys *bus.System, guard sync.Locker, j *journal.Journal) http.Handler {
	s := &Server{sys: sys, guard: guard, journal: j}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Get("/health", s.HealthCheck)
	r.Route("/api", func(r chi.Router) {
		r.Get("/version", s.Version)
		r.Get("/modules", s.ListModules)
		r.Get("/interfaces/{iface}/functions", s.ListFunctions)
		r.Get("/interfaces/{iface}/resolve", s.Resolve)
		r.Get("/loads", s.ListLoads)
	})
	return r
}

// FunctionResponse describes one implementation
type FunctionResponse struct {
	ID     string    `json:"id"`
	Module guid.GUID `json:"module"`
	Name   string    `json:"name"`
	Impl   guid.GUID `json:"impl"`
	Class  guid.GUID `json:"class"`
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// HealthCheck handles GET /health
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Version handles GET /api/version
func (s *Server) Version(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"bus":     version.Bus,
		"version": version.Version(),
	})
}

// ListModules handles GET /api/modules
func (s *Server) ListModules(w http.ResponseWriter, r *http.Request) {
	s.guard.Lock()
	modules := s.sys.ListModules()
	s.guard.Unlock()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"modules": modules,
		"count":   len(modules),
	})
}

// ListFunctions handles GET /api/interfaces/{iface}/functions
func (s *Server) ListFunctions(w http.ResponseWriter, r *http.Request) {
	iface, ok := parseInterface(w, r)
	if !ok {
		return
	}

	s.guard.Lock()
	cands := s.sys.Candidates(iface)
	s.guard.Unlock()

	funcs := make([]FunctionResponse, 0, len(cands))
	for _, c := range cands {
		funcs = append(funcs, functionResponse(c))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"interface": iface,
		"functions": funcs,
		"count":     len(funcs),
	})
}

// Resolve handles GET /api/interfaces/{iface}/resolve?name=
func (s *Server) Resolve(w http.ResponseWriter, r *http.Request) {
	iface, ok := parseInterface(w, r)
	if !ok {
		return
	}
	name := r.URL.Query().Get("name")
	if name == "" {
		writeError(w, http.StatusBadRequest, errors.New("missing name parameter"))
		return
	}

	s.guard.Lock()
	id, err := s.sys.ResolveName(name, iface)
	var cand bus.Candidate
	if err == nil {
		for _, c := range s.sys.Candidates(iface) {
			if c.Function == id {
				cand = c
				break
			}
		}
	}
	s.guard.Unlock()

	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	writeJSON(w, http.StatusOK, functionResponse(cand))
}

// ListLoads handles GET /api/loads?limit=N&failed=true
func (s *Server) ListLoads(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		writeError(w, http.StatusNotFound, errors.New("load journal disabled"))
		return
	}

	query := r.URL.Query()
	limit := 50
	if v := query.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, errors.New("invalid limit parameter"))
			return
		}
		limit = n
	}

	var entries []journal.Entry
	var err error
	if query.Get("failed") == "true" {
		entries, err = s.journal.Failures(r.Context(), limit)
	} else {
		entries, err = s.journal.Recent(r.Context(), limit)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if entries == nil {
		entries = []journal.Entry{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"loads": entries,
		"count": len(entries),
	})
}

func parseInterface(w http.ResponseWriter, r *http.Request) (guid.GUID, bool) {
	raw := chi.URLParam(r, "iface")
	if unescaped, err := url.PathUnescape(raw); err == nil {
		raw = unescaped
	}
	iface, err := guid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return guid.Nil, false
	}
	return iface, true
}

func functionResponse(c bus.Candidate) FunctionResponse {
	return FunctionResponse{
		ID:     c.Function.String(),
		Module: c.Function.Module,
		Name:   c.Function.Name,
		Impl:   c.Impl,
		Class:  c.Class,
	}
}

func statusOf(err error) int {
	switch diag.KindOf(err) {
	case diag.MalformedIdentifier:
		return http.StatusBadRequest
	case diag.NotFound, diag.ModuleNotFound, diag.ImplementationNotFound:
		return http.StatusNotFound
	case diag.AmbiguousName:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	resp := ErrorResponse{Error: err.Error()}
	var e *diag.Error
	if errors.As(err, &e) {
		resp.Kind = e.Kind.String()
	}
	writeJSON(w, status, resp)
}
