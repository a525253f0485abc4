// Package server exposes the HTTP intake and status surface.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/example/screenshotai/internal/config"
	"github.com/example/screenshotai/internal/events"
	"github.com/example/screenshotai/internal/models"
	"github.com/example/screenshotai/internal/pipeline"
	"github.com/example/screenshotai/internal/store"
)

const serverName = "Screenshot AI Server"

// Server owns the HTTP surface and its lifecycle.
type Server struct {
	cfg      *config.Config
	pipeline *pipeline.Pipeline
	store    *store.Store
	hub      *events.Hub
	log      *zap.Logger

	httpServer *http.Server
	once       sync.Once
}

// New constructs a Server. hub may be nil when no UI clients are expected.
func New(cfg *config.Config, p *pipeline.Pipeline, st *store.Store, hub *events.Hub, log *zap.Logger) *Server {
	return &Server{cfg: cfg, pipeline: p, store: st, hub: hub, log: log}
}

// Router builds the HTTP handler; exposed for tests.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/screenshot", s.handleScreenshot).Methods(http.MethodPost)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/screenshots", s.handleScreenshots).Methods(http.MethodGet)
	if s.hub != nil {
		r.HandleFunc("/ws", s.hub.ServeWS)
	}

	return Chain(r, Logger(s.log), Recover(s.log), CORS())
}

// Run starts the listener and blocks until the context is cancelled or the
// server fails.
func (s *Server) Run(ctx context.Context) error {
	s.once.Do(func() {
		s.httpServer = &http.Server{
			Addr:    s.cfg.Address(),
			Handler: s.Router(),
		}
	})

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.log.Warn("server forced to shutdown", zap.Error(err))
		}
	}()

	s.log.Info("screenshot server running",
		zap.String("addr", s.cfg.Address()),
		zap.String("endpoint", fmt.Sprintf("http://%s:%d/screenshot", localIP(), s.cfg.ServerPort)))

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type screenshotRequest struct {
	Image    string                     `json:"image"`
	Metadata *models.ScreenshotMetadata `json:"metadata,omitempty"`
}

// handleScreenshot accepts one image submission. Pipeline-level failures ride
// inside the JSON body with HTTP 200; only an unreadable request is an HTTP
// error.
func (s *Server) handleScreenshot(w http.ResponseWriter, r *http.Request) {
	var req screenshotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, &models.ProcessingResult{
			Success:   false,
			Timestamp: time.Now().UTC(),
			Error:     "invalid request body: " + err.Error(),
		})
		return
	}

	meta := models.ScreenshotMetadata{}
	if req.Metadata != nil {
		meta = *req.Metadata
	}

	result := s.pipeline.Process(r.Context(), req.Image, meta)
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"server":    serverName,
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, models.ServerStatus{
		Server:                  serverName,
		Status:                  "running",
		LocalIP:                 localIP(),
		Port:                    s.cfg.ServerPort,
		TotalRequests:           s.store.TotalRequests(),
		LastRequest:             s.store.LastRequest(),
		ActiveAnalyses:          s.store.Count(),
		TelegramConfigured:      s.cfg.TelegramConfigured(),
		DesktopDetectionEnabled: s.cfg.EnableDesktopDetection,
	})
}

func (s *Server) handleScreenshots(w http.ResponseWriter, r *http.Request) {
	records := s.store.Recent(store.RecentLimit)
	summaries := make([]models.ScreenshotSummary, 0, len(records))
	for _, rec := range records {
		summaries = append(summaries, rec.Summary())
	}
	respondJSON(w, http.StatusOK, summaries)
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// localIP best-effort discovers the machine's LAN address so mobile clients
// can reach the intake endpoint.
func localIP() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "127.0.0.1"
	}
	for _, addr := range addrs {
		if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
			if ip4 := ipnet.IP.To4(); ip4 != nil {
				return ip4.String()
			}
		}
	}
	return "127.0.0.1"
}
