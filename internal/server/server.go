// Package server provides the HTTP server for the Don't Touch dashboard.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/donttouch/internal/config"
	"github.com/ayusman/donttouch/internal/server/api"
	"github.com/ayusman/donttouch/internal/store"
)

// shutdownTimeout bounds how long open requests may run after shutdown starts.
const shutdownTimeout = 5 * time.Second

// Backend is what the dashboard endpoints need from the running app.
type Backend interface {
	api.Monitor
	api.SettingsTarget
	EventSource
	FrameSource
}

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Store     *store.Store
	App       Backend
	Languages api.Languages
	Logger    logrus.FieldLogger
}

// Server represents the HTTP server for the dashboard.
type Server struct {
	config Config
	log    logrus.FieldLogger
	mux    *http.ServeMux
	start  time.Time

	// closers end long-lived streams when the server shuts down.
	closers []func()
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	log := config.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	s := &Server{
		config: config,
		log:    log.WithField("component", "server"),
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if b := s.config.App; b != nil {
		monitoring := api.NewMonitoringHandler(b, s.log)
		s.mux.HandleFunc("/api/status", monitoring.Status)
		s.mux.HandleFunc("/api/monitoring", monitoring.Monitoring)
		s.mux.HandleFunc("/api/analyzer/reset", monitoring.Reset)

		var kv config.KeyValueStore
		if s.config.Store != nil {
			kv = s.config.Store.Settings()
		}
		s.mux.Handle("/api/settings", api.NewSettingsHandler(b, kv, s.log))

		events := NewEventsHandler(b, s.log)
		stream := NewStreamHandler(b)
		s.mux.Handle("/api/events", events)
		s.mux.Handle("/api/stream", stream)
		s.closers = append(s.closers, events.Close, stream.Close)
	}

	if s.config.Languages != nil {
		s.mux.Handle("/api/languages", api.LanguagesHandler(s.config.Languages))
	}

	if s.config.Store != nil {
		stats := api.NewStatsHandler(s.config.Store, s.log)
		s.mux.Handle("/api/stats", stats)
		s.mux.Handle("/api/stats/", stats)
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	for _, c := range s.closers {
		srv.RegisterOnShutdown(c)
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("dashboard listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
