package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWatcher(t *testing.T, opts ...WatcherOption) (*Watcher, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "multilogin.yaml")
	writeTestConfig(t, path, 0)

	w, err := NewWatcher(path, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	return w, path
}

func startWatcher(t *testing.T, w *Watcher) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		_ = w.Watch(ctx)
	}()
	// Allow watcher to initialize
	time.Sleep(50 * time.Millisecond)
	return cancel
}

// storeStage commits every accepted config into the returned pointer.
func storeStage() (Stage, *atomic.Pointer[Config]) {
	var got atomic.Pointer[Config]
	return func(cfg *Config) (func(), error) {
		return func() { got.Store(cfg) }, nil
	}, &got
}

func TestNewWatcherPathResolution(t *testing.T) {
	t.Parallel()

	w, path := newTestWatcher(t)

	abs, err := filepath.Abs(path)
	require.NoError(t, err)
	assert.Equal(t, abs, w.Path())
}

func TestNewWatcherInvalidPath(t *testing.T) {
	t.Parallel()

	_, err := NewWatcher("/nonexistent/path/to/multilogin.yaml")
	assert.Error(t, err)
}

func TestWatcherAppliesChangedFile(t *testing.T) {
	t.Parallel()

	w, path := newTestWatcher(t)
	stage, got := storeStage()
	w.AddStage("store", stage)

	cancel := startWatcher(t, w)
	defer cancel()

	writeTestConfig(t, path, 7)

	require.Eventually(t, func() bool {
		cfg := got.Load()
		return cfg != nil && cfg.Server.TimeoutMS == 60007
	}, 2*time.Second, 20*time.Millisecond)
	assert.Contains(t, got.Load().Login.Methods, "password")
}

func TestWatcherDebounce(t *testing.T) {
	t.Parallel()

	w, path := newTestWatcher(t, WithDebounceDelay(200*time.Millisecond))

	var prepared atomic.Int32
	w.AddStage("count", func(*Config) (func(), error) {
		prepared.Add(1)
		return nil, nil
	})

	cancel := startWatcher(t, w)
	for i := range 5 {
		writeTestConfig(t, path, i)
		time.Sleep(20 * time.Millisecond)
	}
	time.Sleep(400 * time.Millisecond)
	cancel()

	count := prepared.Load()
	assert.LessOrEqual(t, count, int32(2), "debounce should collapse rapid writes")
	assert.GreaterOrEqual(t, count, int32(1))
}

func TestWatcherStopsOnCancelAndClose(t *testing.T) {
	t.Parallel()

	tests := []struct {
		stop func(*Watcher, context.CancelFunc)
		name string
	}{
		{name: "context canceled", stop: func(_ *Watcher, cancel context.CancelFunc) { cancel() }},
		{name: "watcher closed", stop: func(w *Watcher, _ context.CancelFunc) { _ = w.Close() }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w, _ := newTestWatcher(t)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			done := make(chan struct{})
			go func() {
				_ = w.Watch(ctx)
				close(done)
			}()

			time.Sleep(50 * time.Millisecond)
			tt.stop(w, cancel)

			select {
			case <-done:
			case <-time.After(time.Second):
				t.Fatal("Watch did not return")
			}
		})
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	t.Parallel()

	w, path := newTestWatcher(t)
	var prepared atomic.Int32
	w.AddStage("count", func(*Config) (func(), error) {
		prepared.Add(1)
		return nil, nil
	})

	cancel := startWatcher(t, w)
	writeTestConfig(t, filepath.Join(filepath.Dir(path), "other.yaml"), 1)
	time.Sleep(200 * time.Millisecond)
	cancel()

	assert.Equal(t, int32(0), prepared.Load())
}

func TestWatcherReloadRejectsBrokenFile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		step    string
	}{
		{name: "unparseable yaml", content: "invalid: yaml: :::", step: StepLoad},
		{name: "fails validation", content: "server:\n  listen: \"no-port\"\n", step: StepValidate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w, path := newTestWatcher(t)
			stage, got := storeStage()
			w.AddStage("store", stage)

			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))
			err := w.Reload()

			var rerr *ReloadError
			require.ErrorAs(t, err, &rerr)
			assert.Equal(t, tt.step, rerr.Step)
			assert.Equal(t, w.Path(), rerr.Path)
			assert.Nil(t, got.Load())
		})
	}
}

func TestWatcherReloadIsAllOrNothing(t *testing.T) {
	t.Parallel()

	w, path := newTestWatcher(t)
	errLogin := errors.New("login methods do not resolve")

	first, firstGot := storeStage()
	w.AddStage("first", first)
	w.AddStage("login", func(cfg *Config) (func(), error) {
		if cfg.Server.TimeoutMS == 60009 {
			return nil, errLogin
		}
		return nil, nil
	})
	last, lastGot := storeStage()
	w.AddStage("last", last)

	writeTestConfig(t, path, 9)
	err := w.Reload()
	require.ErrorIs(t, err, errLogin)

	var rerr *ReloadError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "login", rerr.Step)
	assert.Nil(t, firstGot.Load(), "an earlier stage must not commit a rejected reload")
	assert.Nil(t, lastGot.Load())

	writeTestConfig(t, path, 1)
	require.NoError(t, w.Reload())
	assert.Equal(t, 60001, firstGot.Load().Server.TimeoutMS)
	assert.Equal(t, 60001, lastGot.Load().Server.TimeoutMS)
}

func TestWatcherCommitsInStageOrder(t *testing.T) {
	t.Parallel()

	w, _ := newTestWatcher(t)

	var mu sync.Mutex
	var order []string
	for _, name := range []string{"config", "login", "limits"} {
		w.AddStage(name, func(*Config) (func(), error) {
			return func() {
				mu.Lock()
				order = append(order, name)
				mu.Unlock()
			}, nil
		})
	}

	require.NoError(t, w.Reload())
	assert.Equal(t, []string{"config", "login", "limits"}, order)
}

func TestWatcherClose(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "multilogin.yaml")
	writeTestConfig(t, path, 0)

	w, err := NewWatcher(path)
	require.NoError(t, err)

	require.NoError(t, w.Close())
	assert.ErrorIs(t, w.Close(), ErrWatcherClosed)
}

func TestWatcherConcurrentStageRegistration(t *testing.T) {
	t.Parallel()

	w, _ := newTestWatcher(t)

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.AddStage(fmt.Sprintf("s%d", i), func(*Config) (func(), error) { return nil, nil })
		}()
	}
	wg.Wait()
	require.NoError(t, w.Reload())
}

func writeTestConfig(t *testing.T, path string, variant int) {
	t.Helper()
	content := fmt.Sprintf(`
server:
  listen: "127.0.0.1:8080"
  timeout_ms: %d

login:
  enabled: true
  methods:
    password:
      principal_params: [username]
      credential_params: [password]

logging:
  level: "info"
  format: "json"
`, 60000+variant)

	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}
