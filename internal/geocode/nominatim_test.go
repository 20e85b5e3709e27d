package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeNominatim(t *testing.T, response string) (*httptest.Server, *http.Request) {
	t.Helper()

	var captured http.Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = *r
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(server.Close)

	return server, &captured
}

func TestClient_Lookup(t *testing.T) {
	ctx := context.Background()

	t.Run("resolves coordinates", func(t *testing.T) {
		server, captured := fakeNominatim(t, `[{"lat":"52.5170365","lon":"13.3888599"}]`)
		client := NewClient(Config{BaseURL: server.URL})

		coords, err := client.Lookup(ctx, "Berlin")
		require.NoError(t, err)
		require.NotNil(t, coords)

		assert.InDelta(t, 52.5170365, coords.Latitude, 1e-9)
		assert.InDelta(t, 13.3888599, coords.Longitude, 1e-9)

		assert.Equal(t, "/search", captured.URL.Path)
		assert.Equal(t, "Berlin", captured.URL.Query().Get("q"))
		assert.Equal(t, "json", captured.URL.Query().Get("format"))
		assert.Equal(t, "1", captured.URL.Query().Get("limit"))
	})

	t.Run("sends fixed user agent", func(t *testing.T) {
		server, captured := fakeNominatim(t, `[]`)
		client := NewClient(Config{BaseURL: server.URL})

		_, err := client.Lookup(ctx, "Berlin")
		require.NoError(t, err)

		assert.Contains(t, captured.Header.Get("User-Agent"), "nociq")
	})

	t.Run("unknown location is a miss, not an error", func(t *testing.T) {
		server, _ := fakeNominatim(t, `[]`)
		client := NewClient(Config{BaseURL: server.URL})

		coords, err := client.Lookup(ctx, "Nowhereville")
		require.NoError(t, err)
		assert.Nil(t, coords)
	})

	t.Run("blank query short-circuits", func(t *testing.T) {
		requested := false
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			requested = true
		}))
		defer server.Close()

		client := NewClient(Config{BaseURL: server.URL})

		coords, err := client.Lookup(ctx, "   ")
		require.NoError(t, err)
		assert.Nil(t, coords)
		assert.False(t, requested)
	})

	t.Run("upstream error status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		client := NewClient(Config{BaseURL: server.URL})

		_, err := client.Lookup(ctx, "Berlin")
		assert.Error(t, err)
	})

	t.Run("unparseable coordinates", func(t *testing.T) {
		server, _ := fakeNominatim(t, `[{"lat":"not-a-number","lon":"13.4"}]`)
		client := NewClient(Config{BaseURL: server.URL})

		_, err := client.Lookup(ctx, "Berlin")
		assert.Error(t, err)
	})
}
