// Package server exposes the scan orchestrator over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/vulnsight/vulnsight/api/schemas"
	"github.com/vulnsight/vulnsight/internal/config"
	"github.com/vulnsight/vulnsight/internal/coordinator"
	"github.com/vulnsight/vulnsight/internal/mailer"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Server wires the coordinator, store and mailer behind the HTTP API. Store
// and mailer are optional; their routes report unavailability when unset.
type Server struct {
	cfg    config.ServerConfig
	logger *zap.Logger
	coord  *coordinator.Coordinator
	store  schemas.ScanStore
	mailer *mailer.Mailer
}

// New builds the HTTP server around a coordinator.
func New(cfg config.ServerConfig, logger *zap.Logger, coord *coordinator.Coordinator, store schemas.ScanStore, mail *mailer.Mailer) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		cfg:    cfg,
		logger: logger.Named("server"),
		coord:  coord,
		store:  store,
		mailer: mail,
	}
}

// Handler returns the route mux. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /", s.handleHome)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST /scan", s.handleScan)
	mux.HandleFunc("GET /scans", s.handleScans)
	mux.HandleFunc("POST /send-report", s.handleSendReport)
	return mux
}

// ListenAndServe runs the server until the context is canceled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Listen,
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", zap.String("addr", s.cfg.Listen))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		s.writeError(w, http.StatusNotFound, "not found")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "VulnSight scanner backend is running"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// scanRequestBody is the wire shape of a scan submission. The optional user
// ID is resolved by the deployment's auth layer; the API accepts it directly.
type scanRequestBody struct {
	URL             string   `json:"url"`
	Vulnerabilities []string `json:"vulnerabilities"`
	UserID          *int64   `json:"user_id"`
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var body scanRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	report, err := s.coord.Run(r.Context(), schemas.ScanRequest{
		Target:   body.URL,
		ProbeIDs: body.Vulnerabilities,
		UserID:   body.UserID,
	})
	if err != nil {
		if errors.Is(err, coordinator.ErrInvalidTarget) {
			s.writeError(w, http.StatusBadRequest, "Invalid URL provided")
			return
		}
		s.logger.Error("Scan failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "scan failed")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":      "success",
		"scan_id":     report.ScanID,
		"url":         report.Target,
		"results":     report.Findings,
		"risk_score":  report.RiskScore,
		"risk_level":  report.RiskLevel,
		"llm_summary": report.Summary,
		"urlscan":     report.Intel,
	})
}

func (s *Server) handleScans(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, http.StatusServiceUnavailable, "scan history is not available")
		return
	}

	userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "user_id query parameter is required")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			s.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
	}

	scans, err := s.store.RecentScans(r.Context(), userID, limit)
	if err != nil {
		s.logger.Error("Failed to list scans", zap.Int64("user_id", userID), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to list scans")
		return
	}
	if scans == nil {
		scans = []schemas.ScanSummary{}
	}

	s.writeJSON(w, http.StatusOK, map[string]any{"status": "success", "scans": scans})
}

func (s *Server) handleSendReport(w http.ResponseWriter, r *http.Request) {
	if s.mailer == nil {
		s.writeError(w, http.StatusServiceUnavailable, "report mail is not configured")
		return
	}

	var mail mailer.ReportMail
	if err := json.NewDecoder(r.Body).Decode(&mail); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := s.mailer.SendReport(mail); err != nil {
		s.logger.Error("Failed to send report mail", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"status": "success", "message": "Report sent"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"status": "error", "message": msg})
}
