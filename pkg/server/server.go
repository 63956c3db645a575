package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/realtime-ai/streamview/pkg/logger"
)

// Config holds the HTTP server settings.
type Config struct {
	// Addr is the address to listen on (e.g., ":8090").
	Addr string

	// Path is the websocket endpoint path.
	Path string

	ReadHeaderTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Addr:              ":8090",
		Path:              "/ws",
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// Server serves the hub plus /metrics and /healthz.
type Server struct {
	cfg  Config
	hub  *Hub
	log  logger.Logger
	mux  *http.ServeMux
	http *http.Server
}

func New(cfg Config, hub *Hub, log logger.Logger) *Server {
	def := DefaultConfig()
	if cfg.Addr == "" {
		cfg.Addr = def.Addr
	}
	if cfg.Path == "" {
		cfg.Path = def.Path
	}
	if cfg.ReadHeaderTimeout <= 0 {
		cfg.ReadHeaderTimeout = def.ReadHeaderTimeout
	}
	if log == nil {
		log = logger.NewNop()
	}

	s := &Server{
		cfg: cfg,
		hub: hub,
		log: log.With("component", "server"),
		mux: http.NewServeMux(),
	}
	s.mux.Handle(cfg.Path, hub)
	s.mux.Handle("/metrics", promhttp.Handler())
	s.mux.HandleFunc("/healthz", s.handleHealth)
	return s
}

// Handler returns the routed handler, for embedding or tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := struct {
		Status  string `json:"status"`
		State   string `json:"state,omitempty"`
		Clients int    `json:"clients"`
	}{Status: "ok", Clients: s.hub.Clients()}
	if ctrl := s.hub.commander(); ctrl != nil {
		resp.State = ctrl.Snapshot().State.String()
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// Start listens in the background. It returns the listen error if the server
// fails within its first 100ms.
func (s *Server) Start(ctx context.Context) error {
	s.http = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.mux,
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	s.log.Info("server starting", "addr", s.cfg.Addr, "path", s.cfg.Path)

	errCh := make(chan error, 1)
	go func() {
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-time.After(100 * time.Millisecond):
		return nil
	}
}

// Stop disconnects clients and shuts the HTTP server down.
func (s *Server) Stop(ctx context.Context) error {
	s.hub.Close()
	if s.http != nil {
		return s.http.Shutdown(ctx)
	}
	return nil
}
