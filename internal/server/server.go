// Package server provides the HTTP and WebSocket front of the gesture server.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/attention/internal/capture"
	"github.com/ayusman/attention/internal/metrics"
	"github.com/ayusman/attention/internal/skeleton"
	"github.com/ayusman/attention/internal/store"
)

// LivenessText is the body of GET /.
const LivenessText = "Kinect Server Running"

// Limits for GET /api/events.
const (
	DefaultEventLimit = 50
	MaxEventLimit     = 500
)

// EventLister lists recorded gesture events, newest first.
type EventLister interface {
	List(limit int) ([]*store.GestureEvent, error)
}

// TrackingState reports whether body acquisition is running.
type TrackingState interface {
	IsEnabled() bool
}

// Config holds the server configuration.
type Config struct {
	// StaticDir is served under /app/ when set.
	StaticDir string
	Hub       *Hub
	Events    EventLister
	Tracking  TrackingState
	// Camera enables /api/stream. Cell supplies the skeleton overlay.
	Camera  capture.Camera
	Cell    *skeleton.Cell
	Metrics *metrics.Metrics
	Logger  *zap.Logger
}

// Server represents the HTTP server for the gesture broadcaster.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
	logger *zap.Logger
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if config.Hub == nil {
		config.Hub = NewHub(config.Logger, config.Metrics)
	}

	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
		logger: config.Logger,
	}
	s.setupRoutes()
	return s
}

// Hub returns the WebSocket hub events are broadcast through.
func (s *Server) Hub() *Hub {
	return s.config.Hub
}

func (s *Server) setupRoutes() {
	s.handle("liveness", "/{$}", http.HandlerFunc(s.handleLiveness))
	s.mux.Handle("/ws", s.config.Hub)
	s.handle("health", "/api/health", http.HandlerFunc(s.handleHealth))

	if s.config.Events != nil {
		s.handle("events", "/api/events", http.HandlerFunc(s.handleEvents))
	}

	if s.config.Camera != nil {
		s.mux.Handle("/api/stream", NewStreamHandler(s.config.Camera, s.config.Cell, s.logger))
	}

	if s.config.Metrics != nil {
		s.mux.Handle("/metrics", s.config.Metrics.Handler())
	}

	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/app/", http.StripPrefix("/app/", fs))
	}
}

// handle registers h, counted by the metrics middleware when metrics are on.
func (s *Server) handle(endpoint, pattern string, h http.Handler) {
	if s.config.Metrics != nil {
		h = s.config.Metrics.Middleware(endpoint, h)
	}
	s.mux.Handle(pattern, h)
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(LivenessText))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	tracking := false
	if s.config.Tracking != nil {
		tracking = s.config.Tracking.IsEnabled()
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"uptime":   time.Since(s.start).Round(time.Second).String(),
		"clients":  s.config.Hub.Clients(),
		"tracking": tracking,
	})
}

type eventJSON struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Data      json.RawMessage `json:"data"`
	BodyID    uint32          `json:"body_id"`
	CreatedAt time.Time       `json:"created_at"`
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := DefaultEventLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(n, MaxEventLimit)
	}

	events, err := s.config.Events.List(limit)
	if err != nil {
		s.logger.Error("list events", zap.Error(err))
		http.Error(w, "Failed to list events", http.StatusInternalServerError)
		return
	}

	out := make([]eventJSON, 0, len(events))
	for _, e := range events {
		out = append(out, eventJSON{
			ID:        e.ID,
			Name:      e.Name,
			Data:      e.Data,
			BodyID:    e.BodyID,
			CreatedAt: e.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ShutdownTimeout bounds the graceful part of a server shutdown.
const ShutdownTimeout = 5 * time.Second

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully and disconnects WebSocket clients.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener. Open preview streams are
// ended when shutdown begins.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	// Requests derive from baseCtx so long-lived streams see the shutdown.
	baseCtx, endStreams := context.WithCancel(context.Background())
	defer endStreams()

	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}
	srv.RegisterOnShutdown(endStreams)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("gesture server listening", zap.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	s.config.Hub.Close()
	err := srv.Shutdown(shutdownCtx)
	switch {
	case err == nil, errors.Is(err, http.ErrServerClosed):
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		s.logger.Warn("graceful shutdown timed out, closing remaining connections",
			zap.Duration("timeout", ShutdownTimeout))
		srv.Close()
		return nil
	default:
		return err
	}
}
