package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSearchParsesOrganicResults(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/search.json", r.URL.Path)
		q := r.URL.Query()
		require.Equal(t, "AI copyright report", q.Get("q"))
		require.Equal(t, "test-key", q.Get("api_key"))
		require.Equal(t, "qdr:d10", q.Get("tbs"))
		require.Equal(t, "5", q.Get("num"))

		_, _ = w.Write([]byte(`{"organic_results": [
			{"link": "https://copyright.gov/ai/part2"},
			{"link": ""},
			{"link": "https://wipo.int/ai-report"}
		]}`))
	}))
	defer srv.Close()

	c, err := New(Config{APIKey: "test-key", BaseURL: srv.URL})
	require.NoError(t, err)

	urls, err := c.Search(context.Background(), "AI copyright report", 5, 10)
	require.NoError(t, err)
	require.Equal(t, []string{"https://copyright.gov/ai/part2", "https://wipo.int/ai-report"}, urls)
}

func TestSearchTruncatesToNum(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"organic_results": [
			{"link": "https://a.example/1"},
			{"link": "https://a.example/2"},
			{"link": "https://a.example/3"}
		]}`))
	}))
	defer srv.Close()

	c, err := New(Config{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	urls, err := c.Search(context.Background(), "q", 2, 7)
	require.NoError(t, err)
	require.Len(t, urls, 2)
}

func TestSearchHTTPError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	c, err := New(Config{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = c.Search(context.Background(), "q", 5, 10)
	require.Error(t, err)
}

func TestNewRequiresAPIKey(t *testing.T) {
	t.Parallel()

	_, err := New(Config{})
	require.Error(t, err)
}
