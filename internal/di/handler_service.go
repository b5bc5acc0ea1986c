package di

import (
	"fmt"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/omarluq/multilogin/internal/endpoint"
	"github.com/omarluq/multilogin/internal/server"
)

// HandlerService wraps the HTTP handler.
type HandlerService struct {
	Handler http.Handler
	Live    *server.LiveHandler
}

// NewHandler creates the HTTP handler with all middleware. The login routes
// follow the method table across reloads.
func NewHandler(i do.Injector) (*HandlerService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)
	loggerSvc := do.MustInvoke[*LoggerService](i)
	methodSvc := do.MustInvoke[*MethodService](i)
	trackerSvc := do.MustInvoke[*HealthTrackerService](i)
	limiterSvc := do.MustInvoke[*LimiterService](i)
	auditSvc := do.MustInvoke[*AuditService](i)
	concurrencySvc := do.MustInvoke[*ConcurrencyService](i)

	opts := []endpoint.Option{
		endpoint.WithLimiter(limiterSvc),
		endpoint.WithRequestID(server.GetRequestID),
	}
	if auditSvc.Stream != nil {
		opts = append(opts, endpoint.WithRecorder(auditSvc.Stream))
	}

	live, err := server.NewLiveHandler(methodSvc.Get(), server.RouteOptions{
		Tracker:   trackerSvc.Tracker,
		Endpoints: opts,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to setup login routes: %w", err)
	}
	methodSvc.OnSwap(live.Prepare)

	handler := server.SetupRoutes(live, server.Middleware{
		Runtime:     cfgSvc,
		Concurrency: concurrencySvc.Limiter,
		Logger:      loggerSvc.Logger,
	})

	return &HandlerService{Handler: handler, Live: live}, nil
}
