package server

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/netdisco/internal/discoverable"
	"github.com/muurk/netdisco/internal/discovery"
)

// ErrorResponse is the body of every non-2xx reply
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// TypeSummary describes one loaded discoverable type
type TypeSummary struct {
	Name       string `json:"name"`
	Discovered bool   `json:"discovered"`
}

// EntryView is a raw record with its protocol identity
type EntryView struct {
	Source string             `json:"source"`
	ID     string             `json:"id"`
	Record discoverable.Entry `json:"record"`
}

// Handler returns the HTTP routes
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/types", s.listTypes)
	mux.HandleFunc("GET /api/discover", s.discover)
	mux.HandleFunc("GET /api/types/{name}/info", s.typeInfo)
	mux.HandleFunc("GET /api/types/{name}/entries", s.typeEntries)
	mux.HandleFunc("GET /api/raw", s.raw)
	mux.HandleFunc("POST /api/scan", s.scan)
	mux.HandleFunc("GET /ws", s.hub.serveWS(s.Snapshot))

	return s.logRequests(mux)
}

func (s *Server) listTypes(w http.ResponseWriter, r *http.Request) {
	found := map[string]bool{}
	if names, err := s.disco.Discover(); err == nil {
		for _, name := range names {
			found[name] = true
		}
	}

	types := []TypeSummary{}
	for _, name := range s.disco.Types() {
		types = append(types, TypeSummary{Name: name, Discovered: found[name]})
	}
	s.writeJSON(w, types, http.StatusOK)
}

func (s *Server) discover(w http.ResponseWriter, r *http.Request) {
	found, err := s.disco.Discover()
	if err != nil {
		s.writeDiscoveryError(w, err)
		return
	}
	s.writeJSON(w, found, http.StatusOK)
}

func (s *Server) typeInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.disco.Info(r.PathValue("name"))
	if err != nil {
		s.writeDiscoveryError(w, err)
		return
	}
	if info == nil {
		info = []discoverable.Info{}
	}
	s.writeJSON(w, info, http.StatusOK)
}

func (s *Server) typeEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := s.disco.Entries(r.PathValue("name"))
	if err != nil {
		s.writeDiscoveryError(w, err)
		return
	}

	views := make([]EntryView, 0, len(entries))
	for _, e := range entries {
		views = append(views, EntryView{Source: e.Source(), ID: e.ID(), Record: e})
	}
	s.writeJSON(w, views, http.StatusOK)
}

func (s *Server) raw(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.disco.RawEntries(), http.StatusOK)
}

func (s *Server) scan(w http.ResponseWriter, r *http.Request) {
	s.RequestRescan()
	s.writeJSON(w, map[string]string{"status": "scheduled"}, http.StatusAccepted)
}

// writeDiscoveryError maps coordinator errors to HTTP status codes
func (s *Server) writeDiscoveryError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case discovery.IsUnknownType(err):
		status = http.StatusNotFound
	case discovery.IsInvalidState(err):
		status = http.StatusConflict
	case errors.Is(err, discovery.ErrScanTransport):
		status = http.StatusBadGateway
	}
	s.writeError(w, err.Error(), discovery.GetTroubleshootingHint(err), status)
}

func (s *Server) writeJSON(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("Failed to encode JSON", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, message, details string, statusCode int) {
	s.writeJSON(w, ErrorResponse{Error: message, Details: details}, statusCode)
}

// statusRecorder captures the status code for request logging
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Hijack is required by the WebSocket upgrade
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("took", time.Since(started)),
			zap.String("remote_addr", r.RemoteAddr),
		)
	})
}
