// Package httpapi exposes the ticket-generation operations over HTTP for
// the dashboard.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/samad-cloud/ticketsmith/internal/runstore"
	"github.com/samad-cloud/ticketsmith/internal/runtracker"
)

// TicketRunner is the slice of the run tracker the API drives.
type TicketRunner interface {
	RunSingleDomain(ctx context.Context, auditID string) (*runtracker.Outcome, error)
	RunCrossDomain(ctx context.Context) (*runtracker.Outcome, error)
	LatestCombined(ctx context.Context) (*runtracker.CombinedStatus, error)
	ClearCombined(ctx context.Context, runDate string) error
}

type Server struct {
	runner     TicketRunner
	httpServer *http.Server // Store server instance for graceful shutdown
}

func NewServer(runner TicketRunner) *Server {
	return &Server{runner: runner}
}

func (s *Server) Start(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/audits/", func(w http.ResponseWriter, r *http.Request) {
		log.Printf("Received request: %s %s", r.Method, r.URL.Path)
		s.handleSingleDomain(w, r)
	})
	mux.HandleFunc("/api/tickets/combined", func(w http.ResponseWriter, r *http.Request) {
		log.Printf("Received request: %s %s", r.Method, r.URL.Path)
		s.handleCombined(w, r)
	})
	mux.HandleFunc("/api/tickets/combined/", func(w http.ResponseWriter, r *http.Request) {
		log.Printf("Received request: %s %s", r.Method, r.URL.Path)
		s.handleClearCombined(w, r)
	})

	// Store server instance for graceful shutdown
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.enableCORS(mux),
	}

	log.Printf("HTTP Server listening on: %s", addr)
	return s.httpServer.ListenAndServe()
}

// Stop gracefully shuts down the HTTP server with a timeout.
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	log.Printf("Stopping HTTP server...")

	// 5 second timeout for graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}

	log.Printf("HTTP server stopped successfully")
	return nil
}

// handleSingleDomain serves POST /api/audits/{auditID}/tickets.
func (s *Server) handleSingleDomain(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not supported", http.StatusMethodNotAllowed)
		return
	}

	parts := strings.Split(r.URL.Path, "/")
	if len(parts) != 5 || parts[4] != "tickets" || parts[3] == "" {
		http.Error(w, "Invalid path", http.StatusBadRequest)
		return
	}
	auditID := parts[3]

	log.Printf("Ticket generation request for audit: %s", auditID)

	outcome, err := s.runner.RunSingleDomain(r.Context(), auditID)
	if err != nil {
		s.writeRunError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, outcome)
}

// handleCombined serves POST (generate) and GET (latest) on
// /api/tickets/combined.
func (s *Server) handleCombined(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		outcome, err := s.runner.RunCrossDomain(r.Context())
		if err != nil {
			s.writeRunError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, outcome)

	case http.MethodGet:
		status, err := s.runner.LatestCombined(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, status)

	default:
		http.Error(w, "Method not supported", http.StatusMethodNotAllowed)
	}
}

// handleClearCombined serves DELETE /api/tickets/combined/{runDate}.
func (s *Server) handleClearCombined(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not supported", http.StatusMethodNotAllowed)
		return
	}

	runDate := strings.TrimPrefix(r.URL.Path, "/api/tickets/combined/")
	if runDate == "" || strings.Contains(runDate, "/") {
		http.Error(w, "Invalid path", http.StatusBadRequest)
		return
	}

	log.Printf("Clearing combined run record: %s", runDate)

	if err := s.runner.ClearCombined(r.Context(), runDate); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared", "runDate": runDate})
}

// writeRunError maps tracker errors onto status codes: unknown audit is
// 404, a run already in flight is 409, bad input is 400.
func (s *Server) writeRunError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, runstore.ErrAuditNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, runtracker.ErrRunInProgress):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, runtracker.ErrNoAudits), errors.Is(err, runtracker.ErrNoReport):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(value)
}

func (s *Server) enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
