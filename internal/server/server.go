package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/omarluq/multilogin/internal/config"
)

// Default server timeouts.
const (
	DefaultReadTimeout  = 10 * time.Second
	DefaultWriteTimeout = 30 * time.Second
	DefaultIdleTimeout  = 120 * time.Second
)

// Server wraps http.Server with multilogin configuration.
type Server struct {
	httpServer *http.Server
	addr       string
}

// NewServer creates a Server for cfg.
// server.timeout_ms overrides the write timeout, which must cover the
// slowest verifier. With enable_http2 the handler also accepts h2c.
func NewServer(cfg config.ServerConfig, handler http.Handler) *Server {
	finalHandler := handler
	if cfg.EnableHTTP2 {
		finalHandler = h2c.NewHandler(handler, &http2.Server{})
	}

	return &Server{
		addr: cfg.Listen,
		httpServer: &http.Server{
			Addr:         cfg.Listen,
			Handler:      finalHandler,
			ReadTimeout:  DefaultReadTimeout,
			WriteTimeout: cfg.GetTimeoutOption().OrElse(DefaultWriteTimeout),
			IdleTimeout:  DefaultIdleTimeout,
		},
	}
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.addr
}

// ListenAndServe starts the server (blocks). A graceful shutdown is not an error.
func (s *Server) ListenAndServe() error {
	return ignoreClosed(s.httpServer.ListenAndServe())
}

// Serve accepts connections on ln (blocks).
func (s *Server) Serve(ln net.Listener) error {
	return ignoreClosed(s.httpServer.Serve(ln))
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func ignoreClosed(err error) error {
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
