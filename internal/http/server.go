// Package http exposes the ingest and query API.
package http

import (
	"context"
	"net/http"
	"time"

	"till/internal/services"
	"till/internal/storage"
)

type Server struct {
	http.Server

	ingest  *services.IngestService
	storage *storage.SQLiteRepository
}

// NewServer configures routes, returning a ready-to-run http.Server.
func NewServer(addr string, ingest *services.IngestService, storage *storage.SQLiteRepository) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		ingest:  ingest,
		storage: storage,
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/api/messages", s.handleIngestMessage)
	mux.HandleFunc("/api/staged/pending", s.handleListPending)
	mux.HandleFunc("/api/staged/processed", s.handleMarkProcessed)
	mux.HandleFunc("/api/summaries", s.handleListSummaries)

	return s
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if _, err := s.storage.ListSummaries(ctx, "", 1); err != nil {
		writeError(w, http.StatusServiceUnavailable, "storage not ready")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
