package audit_test

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omarluq/multilogin/internal/audit"
	"github.com/omarluq/multilogin/internal/config"
)

// syncBuffer guards a bytes.Buffer written from the stream goroutine.
type syncBuffer struct {
	buf bytes.Buffer
	mu  sync.Mutex
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestStreamLogsEvents(t *testing.T) {
	t.Parallel()

	out := &syncBuffer{}
	logger := zerolog.New(out)
	s := audit.NewStream(context.Background(), config.AuditConfig{Enabled: true, EventsPerMinute: 1000}, &logger)

	s.Record(audit.Event{
		Time:       time.Now(),
		Method:     "password",
		ClientType: "APP",
		RemoteAddr: "10.0.0.1",
		RequestID:  "req-1",
		Outcome:    audit.OutcomeSuccess,
	})
	s.Record(audit.Event{
		Time:       time.Now(),
		Method:     "password",
		RemoteAddr: "10.0.0.2",
		Outcome:    audit.OutcomeFailure,
		ErrorType:  "authentication_error",
	})
	s.Close()

	logs := out.String()
	lines := strings.Split(strings.TrimSpace(logs), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"level":"info"`)
	assert.Contains(t, lines[0], `"client_type":"APP"`)
	assert.Contains(t, lines[0], `"request_id":"req-1"`)
	assert.Contains(t, lines[1], `"level":"warn"`)
	assert.Contains(t, lines[1], `"error_type":"authentication_error"`)
	assert.Zero(t, s.Dropped())
}

func TestStreamRecordAfterCloseIsDropped(t *testing.T) {
	t.Parallel()

	logger := zerolog.Nop()
	s := audit.NewStream(context.Background(), config.AuditConfig{}, &logger)
	s.Close()
	s.Close()

	s.Record(audit.Event{Method: "password"})
	assert.Equal(t, int64(1), s.Dropped())
}

func TestStreamConcurrentRecord(t *testing.T) {
	t.Parallel()

	logger := zerolog.Nop()
	s := audit.NewStream(context.Background(), config.AuditConfig{BufferSize: 8}, &logger)

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Record(audit.Event{Method: "sms", RemoteAddr: string(rune('a' + i%5))})
		}()
	}
	wg.Wait()
	s.Close()

	assert.LessOrEqual(t, s.Dropped(), int64(50))
}
