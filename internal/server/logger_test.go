package server

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omarluq/multilogin/internal/config"
)

func TestNewLogger_Levels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		level string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"bogus", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			t.Parallel()
			logger, closer, err := NewLogger(config.LoggingConfig{Level: tt.level, Format: "json", Output: "stderr"})
			require.NoError(t, err)
			assert.Equal(t, tt.want, logger.GetLevel())
			assert.NoError(t, closer.Close(), "closing stderr output is a no-op")
		})
	}
}

func TestNewLogger_FileOutput(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "multilogin.log")
	logger, closer, err := NewLogger(config.LoggingConfig{Level: "info", Format: "json", Output: path})
	require.NoError(t, err)

	logger.Info().Str(FieldLoginMethod, "password").Msg("hello")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"login_method":"password"`)
}

func TestNewLogger_BadFile(t *testing.T) {
	t.Parallel()

	_, _, err := NewLogger(config.LoggingConfig{Output: filepath.Join(t.TempDir(), "missing", "x.log")})
	assert.Error(t, err)
}

func TestConsoleSelection(t *testing.T) {
	t.Parallel()

	file, err := os.CreateTemp(t.TempDir(), "log")
	require.NoError(t, err)
	t.Cleanup(func() { _ = file.Close() })

	tests := []struct {
		name string
		cfg  config.LoggingConfig
		want bool
	}{
		{name: "pretty flag", cfg: config.LoggingConfig{Pretty: true, Format: "json"}, want: true},
		{name: "pretty format", cfg: config.LoggingConfig{Format: "pretty"}, want: true},
		{name: "json format", cfg: config.LoggingConfig{Format: "json"}, want: false},
		{name: "console to a file", cfg: config.LoggingConfig{Format: "console"}, want: false},
		{name: "unset to a file", cfg: config.LoggingConfig{}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, console(tt.cfg, file))
		})
	}
	assert.False(t, isTerminal(nil))
}

func TestConsoleWriterPinsLoginFields(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := zerolog.New(consoleWriter(&buf, false)).With().Timestamp().Logger()
	logger.Info().
		Str(FieldRequestID, "req-9").
		Str(FieldLoginMethod, "sms").
		Str("client_type", "APP").
		Msg("login failed")

	line := buf.String()
	assert.Regexp(t, `INF sms req-9 login failed`, line)
	assert.Contains(t, line, "client_type=APP")
	assert.NotContains(t, line, "request_id=")
	assert.NotContains(t, line, "\x1b[", "no color when not a terminal")

	buf.Reset()
	logger.Info().Msg("config file reloaded")
	assert.Regexp(t, `INF config file reloaded`, buf.String())
	assert.NotContains(t, buf.String(), "nil")
}

func TestAddRequestID(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	base := zerolog.New(&buf)
	ctx := base.WithContext(context.Background())

	ctx = AddRequestID(ctx, "req-123")
	assert.Equal(t, "req-123", GetRequestID(ctx))

	zerolog.Ctx(ctx).Info().Msg("x")
	assert.Contains(t, buf.String(), `"request_id":"req-123"`)
}

func TestAddRequestID_Generates(t *testing.T) {
	t.Parallel()

	ctx := AddRequestID(context.Background(), "")
	assert.Len(t, GetRequestID(ctx), 36)
	assert.Empty(t, GetRequestID(context.Background()))
}
