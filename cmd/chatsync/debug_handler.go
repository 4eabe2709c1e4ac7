package main

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// The debug endpoints expose the chat debug store. They are derived,
// read-only snapshots and carry no message content.

func (s *Server) handleDebugEvents() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.debug.Enabled() {
			http.NotFound(w, r)
			return
		}

		limit := 100
		if raw := r.URL.Query().Get("limit"); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil && n > 0 {
				limit = n
			}
		}

		s.writeDebugJSON(w, s.debug.Events(limit))
	}
}

func (s *Server) handleDebugMetrics() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.debug.Enabled() {
			http.NotFound(w, r)
			return
		}
		s.writeDebugJSON(w, s.debug.Metrics())
	}
}

func (s *Server) handleDebugSockets() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.debug.Enabled() {
			http.NotFound(w, r)
			return
		}
		s.writeDebugJSON(w, s.debug.ActiveSockets())
	}
}

func (s *Server) writeDebugJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		s.logger.WithError(err).Error("Failed to encode debug response")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
