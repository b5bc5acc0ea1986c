package di

import (
	"context"
	"time"

	"github.com/samber/do/v2"

	"github.com/omarluq/multilogin/internal/server"
)

// ShutdownTimeout bounds graceful server shutdown.
const ShutdownTimeout = 30 * time.Second

// ServerService wraps the HTTP server.
type ServerService struct {
	Server *server.Server
}

// NewHTTPServer creates the HTTP server. The listen address and timeouts
// are fixed at startup.
func NewHTTPServer(i do.Injector) (*ServerService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)
	handlerSvc := do.MustInvoke[*HandlerService](i)

	return &ServerService{
		Server: server.NewServer(cfgSvc.Get().Server, handlerSvc.Handler),
	}, nil
}

// Shutdown implements do.Shutdowner for graceful server shutdown.
func (s *ServerService) Shutdown() error {
	if s.Server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	return s.Server.Shutdown(ctx)
}
