package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aipdigest/reportcrawl/internal/metrics"
	"github.com/aipdigest/reportcrawl/internal/report"
	"github.com/aipdigest/reportcrawl/internal/storage/memory"
)

func TestMain(m *testing.M) {
	metrics.Init()
	os.Exit(m.Run())
}

var testNow = time.Date(2025, 5, 5, 12, 0, 0, 0, time.UTC)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func newTestServer(t *testing.T) (*Server, *memory.CandidateStore) {
	t.Helper()
	store := memory.NewCandidateStore(10, fixedClock{testNow})
	return NewServer(store, fixedClock{testNow}, nil), store
}

func seed(t *testing.T, store *memory.CandidateStore, reportURL string) report.Record {
	t.Helper()
	published := testNow.Add(-48 * time.Hour)
	rec, created, err := store.Upsert(context.Background(), report.RecordFields{
		SourceName:  "US Copyright Office",
		SourceType:  report.SourceGovernment,
		Title:       "AI and Copyright Study",
		ReportURL:   reportURL,
		PublishedAt: &published,
	})
	require.NoError(t, err)
	require.True(t, created)
	return rec
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	require.NotEmpty(t, rr.Header().Get("X-Request-ID"))
	require.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestReadyz(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	require.Equal(t, http.StatusOK, rr.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "go_goroutines")
}

func TestListReports(t *testing.T) {
	t.Parallel()

	srv, store := newTestServer(t)
	seed(t, store, "https://www.copyright.gov/ai/part2.pdf")

	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/reports", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var payload struct {
		Reports []report.Record `json:"reports"`
		Count   int             `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &payload))
	require.Equal(t, 1, payload.Count)
	require.Equal(t, "https://www.copyright.gov/ai/part2.pdf", payload.Reports[0].ReportURL)
}

func TestListReportsRespectsLimit(t *testing.T) {
	t.Parallel()

	srv, store := newTestServer(t)
	seed(t, store, "https://www.copyright.gov/ai/part1.pdf")
	seed(t, store, "https://www.copyright.gov/ai/part2.pdf")

	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/reports?limit=1", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var payload struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &payload))
	require.Equal(t, 1, payload.Count)
}

func TestListUnverifiedExcludesVerified(t *testing.T) {
	t.Parallel()

	srv, store := newTestServer(t)
	rec := seed(t, store, "https://www.copyright.gov/ai/part1.pdf")
	seed(t, store, "https://www.copyright.gov/ai/part2.pdf")

	yes := true
	require.NoError(t, store.SaveVerification(context.Background(), rec.ID, report.Verification{Verified: &yes}))

	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/reports/unverified", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var payload struct {
		Reports []report.Record `json:"reports"`
		Count   int             `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &payload))
	require.Equal(t, 1, payload.Count)
	require.Equal(t, "https://www.copyright.gov/ai/part2.pdf", payload.Reports[0].ReportURL)
}

func TestUnknownRouteReturns404(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/nope", nil))
	require.Equal(t, http.StatusNotFound, rr.Code)
}
