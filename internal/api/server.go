package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/zjrosen/tokenwatt/internal/log"
)

// Server wraps the Handler with an http.Server for lifecycle management.
type Server struct {
	handler  *Handler
	server   *http.Server
	listener net.Listener
	addr     string
	port     int // Actual port after binding (useful when using :0)

	// cancel ends long-lived streams, which Shutdown does not interrupt.
	cancel context.CancelFunc
}

// ServerConfig configures the API server.
type ServerConfig struct {
	// Addr is the address to listen on (e.g., "127.0.0.1:7420").
	Addr    string
	Handler HandlerConfig
	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout time.Duration
}

// NewServer creates a new API server and binds its listener.
// If Addr uses port 0, the OS assigns a port; see Port.
func NewServer(cfg ServerConfig) (*Server, error) {
	handler := NewHandler(cfg.Handler)

	readTimeout := cfg.ReadTimeout
	if readTimeout == 0 {
		readTimeout = 30 * time.Second
	}

	listener, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", cfg.Addr, err)
	}

	port := 0
	if tcpAddr, ok := listener.Addr().(*net.TCPAddr); ok {
		port = tcpAddr.Port
	}

	base, cancel := context.WithCancel(context.Background())
	return &Server{
		handler:  handler,
		addr:     cfg.Addr,
		port:     port,
		listener: listener,
		cancel:   cancel,
		server: &http.Server{
			Handler:           handler.Routes(),
			ReadTimeout:       readTimeout,
			ReadHeaderTimeout: 10 * time.Second,
			// No write timeout: SSE and WebSocket responses are long-lived.
			BaseContext: func(net.Listener) context.Context { return base },
		},
	}, nil
}

// Start serves until the server is stopped or fails. A clean Stop returns nil.
func (s *Server) Start() error {
	log.Info(log.CatAPI, "Starting API server", "addr", s.listener.Addr().String(), "port", s.port)
	if err := s.server.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	log.Info(log.CatAPI, "Stopping API server")
	s.cancel()
	return s.server.Shutdown(ctx)
}

// Handler returns the server's handler.
func (s *Server) Handler() *Handler {
	return s.handler
}

// Port returns the actual port the server is listening on.
func (s *Server) Port() int {
	return s.port
}

// Addr returns the bound listener address.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}
