// Package server wires resolved login methods into an HTTP server.
package server

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"

	"github.com/omarluq/multilogin/internal/config"
)

// Fields every login log line may carry. The console layout pins them next
// to the message.
const (
	FieldRequestID   = "request_id"
	FieldLoginMethod = "login_method"
)

type ctxKey string

// RequestIDKey is the context key for request IDs.
const RequestIDKey ctxKey = FieldRequestID

// NewLogger builds the process logger. The returned closer releases a log
// file and is a no-op for stdout and stderr.
func NewLogger(cfg config.LoggingConfig) (zerolog.Logger, io.Closer, error) {
	out, closer, err := openOutput(cfg.Output)
	if err != nil {
		return zerolog.Logger{}, nil, err
	}

	var w io.Writer = out
	if console(cfg, out) {
		w = consoleWriter(out, isTerminal(out))
	}

	logger := zerolog.New(w).
		Level(cfg.ParseLevel()).
		With().
		Timestamp().
		Logger()
	return logger, closer, nil
}

type closeFunc func() error

func (f closeFunc) Close() error { return f() }

func openOutput(output string) (*os.File, io.Closer, error) {
	noop := closeFunc(func() error { return nil })
	switch output {
	case "", "stdout":
		return os.Stdout, noop, nil
	case "stderr":
		return os.Stderr, noop, nil
	}
	f, err := os.OpenFile(filepath.Clean(output), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("open log output: %w", err)
	}
	return f, f, nil
}

// console reports whether lines are rendered for humans. An explicit format
// wins; otherwise a terminal gets the console layout.
func console(cfg config.LoggingConfig, out *os.File) bool {
	switch {
	case cfg.Pretty, cfg.Format == "pretty":
		return true
	case cfg.Format == "json":
		return false
	default:
		return isTerminal(out)
	}
}

func isTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// consoleWriter puts the login method and request ID between the level and
// the message so interleaved attempts stay readable.
func consoleWriter(out io.Writer, color bool) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        out,
		NoColor:    !color,
		TimeFormat: "15:04:05.000",
		PartsOrder: []string{
			zerolog.TimestampFieldName,
			zerolog.LevelFieldName,
			FieldLoginMethod,
			FieldRequestID,
			zerolog.MessageFieldName,
		},
		FieldsExclude: []string{FieldLoginMethod, FieldRequestID},
		// Lines outside a login request have no method or request ID.
		FormatFieldValue: func(i any) string {
			if i == nil {
				return ""
			}
			return fmt.Sprintf("%s", i)
		},
	}
}

// AddRequestID stores requestID, or a fresh UUID when it is empty, in ctx
// and in the context logger.
func AddRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		requestID = uuid.NewString()
	}
	ctx = context.WithValue(ctx, RequestIDKey, requestID)
	return zerolog.Ctx(ctx).With().Str(FieldRequestID, requestID).Logger().WithContext(ctx)
}

// GetRequestID retrieves the request ID from context.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}
