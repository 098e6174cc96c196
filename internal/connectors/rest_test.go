package connectors

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRestFetchDataPassthrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "42", r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"rows":[]}`))
	}))
	defer server.Close()

	recorder := &UsageRecorder{}
	conn, err := NewRest(Config{
		Locator:    server.URL + "?limit=42",
		HTTPClient: server.Client(),
		Usage:      recorder,
	})
	require.NoError(t, err)

	payload, err := conn.FetchData(context.Background(), nil)
	require.NoError(t, err)
	require.JSONEq(t, `{"rows":[]}`, string(payload.Body))
	require.Equal(t, "application/json", payload.ContentType)
	require.Equal(t, int64(1), recorder.Count())
}

func TestRestMergesParams(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "kept", r.URL.Query().Get("fixed"))
		require.Equal(t, []string{"a", "b"}, r.URL.Query()["tag"])
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	conn, err := NewRest(Config{
		Locator:    server.URL + "?fixed=kept",
		HTTPClient: server.Client(),
	})
	require.NoError(t, err)

	_, err = conn.FetchData(context.Background(), map[string][]string{"tag": {"a", "b"}})
	require.NoError(t, err)
}

func TestRestAppliesBasicAuth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		require.Equal(t, "secret", user)
		require.Empty(t, pass)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	conn, err := NewRest(Config{
		Locator:    server.URL,
		APIKey:     "secret",
		Auth:       AuthBasic,
		HTTPClient: server.Client(),
	})
	require.NoError(t, err)

	_, err = conn.FetchData(context.Background(), nil)
	require.NoError(t, err)
}

func TestRestUpstreamFailureCountsAndPassesStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	recorder := &UsageRecorder{}
	conn, err := NewRest(Config{Locator: server.URL, HTTPClient: server.Client(), Usage: recorder})
	require.NoError(t, err)

	_, err = conn.FetchData(context.Background(), nil)

	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	require.Equal(t, http.StatusServiceUnavailable, upstream.HTTPStatus())
	require.Equal(t, int64(1), recorder.Count())
}

func TestRestRejectsNonHTTPLocator(t *testing.T) {
	_, err := NewRest(Config{Locator: "ftp://example.com/data"})
	require.Error(t, err)

	_, err = NewRest(Config{Locator: "/var/data/file"})
	require.Error(t, err)
}

func TestRestOptionalCapabilitiesUnsupported(t *testing.T) {
	conn, err := NewRest(Config{Locator: "http://example.com"})
	require.NoError(t, err)

	require.Equal(t, Capabilities{}, conn.Capabilities())

	_, err = conn.FetchMetadata(context.Background(), nil)
	require.ErrorIs(t, err, ErrCapabilityUnsupported)

	_, err = conn.ListDatasets(context.Background(), nil)
	require.ErrorIs(t, err, ErrCapabilityUnsupported)

	_, err = conn.Descend(context.Background(), "child")
	require.ErrorIs(t, err, ErrCapabilityUnsupported)
}

func TestUpstreamErrorStatusMapping(t *testing.T) {
	require.Equal(t, http.StatusFailedDependency, (&UpstreamError{StatusCode: 0}).HTTPStatus())
	require.Equal(t, http.StatusFailedDependency, (&UpstreamError{StatusCode: http.StatusOK}).HTTPStatus())
	require.Equal(t, http.StatusNotFound, (&UpstreamError{StatusCode: http.StatusNotFound}).HTTPStatus())
	require.Equal(t, http.StatusBadGateway, (&UpstreamError{StatusCode: http.StatusBadGateway}).HTTPStatus())
}
