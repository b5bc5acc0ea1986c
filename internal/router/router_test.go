package router_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omarluq/multilogin/internal/auth"
	"github.com/omarluq/multilogin/internal/router"
)

type user struct {
	Name    string
	Channel string
}

// recordingVerifier returns a user tagged with its channel and remembers the params it saw.
type recordingVerifier struct {
	seen    map[string]string
	channel string
	calls   int
}

func (v *recordingVerifier) Verify(_ context.Context, params map[string]string) (any, error) {
	v.calls++
	v.seen = params
	return &user{Name: params["username"], Channel: v.channel}, nil
}

func newToken(clientType string) *auth.Token {
	return auth.NewToken(
		map[string]string{"username": "alice", "password": "secret"},
		clientType,
		[]string{"username"},
		[]string{"password"},
	)
}

func TestDispatchRoutesByClientType(t *testing.T) {
	t.Parallel()

	pc := &recordingVerifier{channel: "pc"}
	app := &recordingVerifier{channel: "app"}
	d := router.NewDispatcher(map[string]auth.Verifier{"PC": pc, "APP": app})

	tok, err := d.Dispatch(context.Background(), newToken("APP"))
	require.NoError(t, err)

	assert.True(t, tok.Authenticated())
	assert.Equal(t, &user{Name: "alice", Channel: "app"}, tok.Principal())
	assert.Equal(t, 0, pc.calls)
	assert.Equal(t, 1, app.calls)
	assert.Equal(t, map[string]string{"username": "alice", "password": "secret"}, app.seen)
}

func TestDispatchUnroutable(t *testing.T) {
	t.Parallel()

	d := router.NewDispatcher(map[string]auth.Verifier{"PC": &recordingVerifier{}})

	tok, err := d.Dispatch(context.Background(), newToken("H5"))
	assert.Nil(t, tok)
	require.ErrorIs(t, err, router.ErrUnroutableClientType)

	var uerr *router.UnroutableError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, "H5", uerr.ClientType)
	assert.Contains(t, err.Error(), `"H5"`)
}

func TestDispatchPropagatesVerifierError(t *testing.T) {
	t.Parallel()

	rejection := auth.Reject("bad_credentials", "invalid password")
	d := router.NewDispatcher(map[string]auth.Verifier{
		"PC": auth.VerifierFunc(func(context.Context, map[string]string) (any, error) {
			return nil, rejection
		}),
	})

	tok := newToken("PC")
	_, err := d.Dispatch(context.Background(), tok)
	assert.Same(t, rejection, err)
	assert.False(t, tok.Authenticated())
}

func TestDispatchEmptyPrincipal(t *testing.T) {
	t.Parallel()

	var nilUser *user

	tests := []struct {
		principal any
		name      string
	}{
		{name: "nil", principal: nil},
		{name: "typed nil pointer", principal: nilUser},
		{name: "empty string", principal: ""},
		{name: "nil map", principal: map[string]string(nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			d := router.NewDispatcher(map[string]auth.Verifier{
				"PC": auth.VerifierFunc(func(context.Context, map[string]string) (any, error) {
					return tt.principal, nil
				}),
			})
			_, err := d.Dispatch(context.Background(), newToken("PC"))
			assert.ErrorIs(t, err, auth.ErrPrincipalNotFound)
		})
	}
}

func TestDispatchNonPointerPrincipals(t *testing.T) {
	t.Parallel()

	for _, principal := range []any{0, false, user{}, "bob"} {
		d := router.NewDispatcher(map[string]auth.Verifier{
			"PC": auth.VerifierFunc(func(context.Context, map[string]string) (any, error) {
				return principal, nil
			}),
		})
		tok, err := d.Dispatch(context.Background(), newToken("PC"))
		require.NoError(t, err, "principal %#v", principal)
		assert.Equal(t, principal, tok.Principal())
	}
}

func TestDispatchCanceledContextSkipsVerifier(t *testing.T) {
	t.Parallel()

	v := &recordingVerifier{}
	d := router.NewDispatcher(map[string]auth.Verifier{"PC": v})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.Dispatch(ctx, newToken("PC"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, v.calls)
}

func TestDispatchResult(t *testing.T) {
	t.Parallel()

	d := router.NewDispatcher(map[string]auth.Verifier{"PC": &recordingVerifier{channel: "pc"}})

	ok := d.DispatchResult(context.Background(), newToken("PC"))
	require.True(t, ok.IsOk())
	assert.True(t, ok.MustGet().Authenticated())

	bad := d.DispatchResult(context.Background(), newToken("APP"))
	require.True(t, bad.IsError())
	assert.True(t, errors.Is(bad.Error(), router.ErrUnroutableClientType))
}

func TestDispatcherIsolatedFromCallerMap(t *testing.T) {
	t.Parallel()

	routes := map[string]auth.Verifier{"PC": &recordingVerifier{}}
	d := router.NewDispatcher(routes)
	routes["APP"] = &recordingVerifier{}

	assert.Equal(t, []string{"PC"}, d.ClientTypes())
	_, ok := d.Route("APP")
	assert.False(t, ok)
}
