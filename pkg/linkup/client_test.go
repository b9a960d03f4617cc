package linkup

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/crm-enrich/internal/resilience"
)

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var req map[string]any
		require.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, "Jane Doe Acme site:linkedin.com/in/", req["q"])
		assert.Equal(t, "searchResults", req["outputType"])

		w.Write([]byte(`{"results": [
			{"name": "Jane Doe - Acme | LinkedIn", "url": "https://www.linkedin.com/in/janedoe", "content": "CTO at Acme"}
		]}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL))
	results, err := c.Search(context.Background(), "Jane Doe Acme site:linkedin.com/in/")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "https://www.linkedin.com/in/janedoe", results[0].URL)
}

func TestSearch_TransientStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := c.Search(context.Background(), "x")
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
}

func TestSearch_PermanentStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient("bad-key", WithBaseURL(srv.URL))
	_, err := c.Search(context.Background(), "x")
	require.Error(t, err)
	assert.False(t, resilience.IsTransient(err))
}

func TestSearch_EmptyResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"results": []}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL))
	results, err := c.Search(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, results)
}
