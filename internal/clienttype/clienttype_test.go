package clienttype_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omarluq/multilogin/internal/clienttype"
)

const clientHeader = "request-client"

var channels = []string{"PC", "APP", "H5"}

func requestWithHeader(value string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/login/password", http.NoBody)
	if value != "" {
		req.Header.Set(clientHeader, value)
	}
	return req
}

func TestHeaderResolve(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		header string
		want   string
	}{
		{name: "allowed value", header: "APP", want: "APP"},
		{name: "first allowed value", header: "PC", want: "PC"},
		{name: "absent header falls back", header: "", want: "PC"},
		{name: "unknown value falls back", header: "TV", want: "PC"},
		{name: "values are case sensitive", header: "app", want: "PC"},
		{name: "surrounding spaces are ignored", header: " H5 ", want: "H5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := clienttype.NewHeader().Resolve(requestWithHeader(tt.header), clientHeader, channels)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolversRejectEmptyAllowedList(t *testing.T) {
	t.Parallel()

	resolvers := []clienttype.Resolver{
		clienttype.NewHeader(),
		clienttype.NewQuery(),
		clienttype.NewStrictHeader(),
	}
	for _, r := range resolvers {
		t.Run(r.Name(), func(t *testing.T) {
			t.Parallel()

			_, err := r.Resolve(requestWithHeader("APP"), clientHeader, nil)
			assert.ErrorIs(t, err, clienttype.ErrClientTypeUnresolvable)
		})
	}
}

func TestQueryResolve(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/login/sms?client=APP", http.NoBody)
	got, err := clienttype.NewQuery().Resolve(req, "client", channels)
	require.NoError(t, err)
	assert.Equal(t, "APP", got)

	req = httptest.NewRequest(http.MethodGet, "/login/sms", http.NoBody)
	req.Header.Set("client", "APP")
	got, err = clienttype.NewQuery().Resolve(req, "client", channels)
	require.NoError(t, err)
	assert.Equal(t, "PC", got, "headers are not consulted")
}

func TestStrictHeaderResolve(t *testing.T) {
	t.Parallel()

	strict := clienttype.NewStrictHeader()

	got, err := strict.Resolve(requestWithHeader(""), clientHeader, channels)
	require.NoError(t, err)
	assert.Equal(t, "PC", got)

	got, err = strict.Resolve(requestWithHeader("H5"), clientHeader, channels)
	require.NoError(t, err)
	assert.Equal(t, "H5", got)

	_, err = strict.Resolve(requestWithHeader("TV"), clientHeader, channels)
	require.ErrorIs(t, err, clienttype.ErrUnknownClientType)
	var unknown *clienttype.UnknownError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "TV", unknown.Value)
	assert.Contains(t, err.Error(), "PC, APP, H5")
}
