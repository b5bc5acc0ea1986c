package di

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/omarluq/multilogin/internal/audit"
)

// AuditService owns the login audit stream. Stream is nil when audit is disabled.
type AuditService struct {
	Stream *audit.Stream
	cancel context.CancelFunc
}

// NewAudit starts the audit stream if enabled.
func NewAudit(i do.Injector) (*AuditService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)
	loggerSvc := do.MustInvoke[*LoggerService](i)

	cfg := cfgSvc.Get().Audit
	if !cfg.Enabled {
		return &AuditService{}, nil
	}

	logger := loggerSvc.Logger.With().Str("component", "audit").Logger()
	ctx, cancel := context.WithCancel(context.Background())
	return &AuditService{
		Stream: audit.NewStream(ctx, cfg, &logger),
		cancel: cancel,
	}, nil
}

// Shutdown implements do.Shutdowner. Buffered events are flushed first.
func (a *AuditService) Shutdown() error {
	if a.Stream != nil {
		a.Stream.Close()
	}
	if a.cancel != nil {
		a.cancel()
	}
	return nil
}
