package server

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omarluq/multilogin/internal/config"
)

func TestNewServer_Timeouts(t *testing.T) {
	t.Parallel()

	s := NewServer(config.ServerConfig{Listen: "127.0.0.1:0"}, okHandler())
	assert.Equal(t, "127.0.0.1:0", s.Addr())
	assert.Equal(t, DefaultReadTimeout, s.httpServer.ReadTimeout)
	assert.Equal(t, DefaultWriteTimeout, s.httpServer.WriteTimeout)
	assert.Equal(t, DefaultIdleTimeout, s.httpServer.IdleTimeout)

	s = NewServer(config.ServerConfig{Listen: "127.0.0.1:0", TimeoutMS: 2500}, okHandler())
	assert.Equal(t, 2500*time.Millisecond, s.httpServer.WriteTimeout)
}

func TestNewServer_HTTP2WrapsHandler(t *testing.T) {
	t.Parallel()

	h := okHandler()
	s := NewServer(config.ServerConfig{Listen: "127.0.0.1:0", EnableHTTP2: true}, h)
	assert.NotNil(t, s.httpServer.Handler)
}

func TestServer_ListenAndServe_InvalidAddress(t *testing.T) {
	t.Parallel()

	s := NewServer(config.ServerConfig{Listen: "invalid-address:99999"}, okHandler())
	assert.Error(t, s.ListenAndServe())
}

func TestServer_ServeAndShutdown(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := NewServer(config.ServerConfig{Listen: ln.Addr().String()}, okHandler())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ln) }()

	require.Eventually(t, func() bool {
		resp, getErr := http.Get("http://" + ln.Addr().String() + "/")
		if getErr != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))
	assert.NoError(t, <-done)
}
