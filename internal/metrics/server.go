package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server exposes a collector registry to Prometheus scrapes.
type Server struct {
	logger    *slog.Logger
	addr      string
	boundAddr string
	srv       *http.Server
	doneCh    chan struct{}
}

// NewServer creates a scrape endpoint for the given collectors. The
// server is inert until Start is called.
func NewServer(addr string, m *Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{}))

	return &Server{
		logger: logger,
		addr:   addr,
		srv: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start binds the listen address and serves scrapes in the background.
// Bind failures are reported synchronously.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to bind metrics listener: %w", err)
	}

	s.boundAddr = ln.Addr().String()
	s.doneCh = make(chan struct{})

	go func() {
		defer close(s.doneCh)
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metrics server failed", "error", err)
		}
	}()

	s.logger.Info("metrics server listening", "addr", s.boundAddr)
	return nil
}

// Addr returns the bound listen address once the server has started.
func (s *Server) Addr() string {
	return s.boundAddr
}

// Stop shuts the server down, waiting briefly for in-flight scrapes.
func (s *Server) Stop() {
	if s.doneCh == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := s.srv.Shutdown(ctx); err != nil {
		s.logger.Warn("metrics server shutdown", "error", err)
	}

	// Wait for goroutine to finish
	<-s.doneCh
}
