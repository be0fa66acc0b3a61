package verify

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aipdigest/reportcrawl/internal/report"
	"github.com/aipdigest/reportcrawl/internal/storage/memory"
)

var testNow = time.Date(2025, 5, 5, 12, 0, 0, 0, time.UTC)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type fakeFetcher struct {
	pages map[string]report.FetchResponse
	errs  map[string]error
}

func (f *fakeFetcher) Fetch(_ context.Context, req report.FetchRequest) (report.FetchResponse, error) {
	if err, ok := f.errs[req.URL]; ok {
		return report.FetchResponse{}, err
	}
	if resp, ok := f.pages[req.URL]; ok {
		return resp, nil
	}
	return report.FetchResponse{}, fmt.Errorf("no route for %s", req.URL)
}

type stubProvider struct {
	verdict report.Verdict
	err     error
}

func (s stubProvider) Name() string { return "stub" }

func (s stubProvider) Classify(context.Context, report.Evidence) (report.Verdict, error) {
	return s.verdict, s.err
}

func seedRecord(t *testing.T, store *memory.CandidateStore, reportURL, landingURL string) report.Record {
	t.Helper()
	published := testNow.Add(-72 * time.Hour)
	rec, created, err := store.Upsert(context.Background(), report.RecordFields{
		SourceName:     "US Copyright Office",
		SourceType:     report.SourceGovernment,
		Title:          "AI and Copyright Study",
		LandingPageURL: landingURL,
		ReportURL:      reportURL,
		PublishedAt:    &published,
	})
	require.NoError(t, err)
	require.True(t, created)
	return rec
}

func TestRunVerifiesRelevantRecord(t *testing.T) {
	t.Parallel()

	store := memory.NewCandidateStore(10, fixedClock{testNow})
	rec := seedRecord(t, store, "https://www.copyright.gov/ai/part2.pdf", "https://www.copyright.gov/ai")

	fetcher := &fakeFetcher{pages: map[string]report.FetchResponse{
		"https://www.copyright.gov/ai": {StatusCode: 200, Body: []byte("<html><body>AI policy report</body></html>")},
	}}
	v, err := New(Config{}, Deps{
		Store:      store,
		Fetcher:    fetcher,
		Classifier: stubProvider{verdict: report.Verdict{Relevant: true, Confidence: 0.9, Reason: "on topic"}},
		Clock:      fixedClock{testNow},
	})
	require.NoError(t, err)

	summary, err := v.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, Summary{Checked: 1, Verified: 1}, summary)

	verified, err := store.ListVerifiedUnsent(context.Background(), testNow.AddDate(0, 0, -14), 10)
	require.NoError(t, err)
	require.Len(t, verified, 1)
	require.Equal(t, rec.ID, verified[0].ID)
	require.NotNil(t, verified[0].Verification.Score)
	require.Equal(t, 90, *verified[0].Verification.Score)
	require.Equal(t, "on topic", verified[0].Verification.Reason)

	// A verified record is no longer picked up by later passes.
	remaining, err := store.ListUnverified(context.Background(), testNow.AddDate(0, 0, -14), 10)
	require.NoError(t, err)
	require.Empty(t, remaining)
}

func TestRunRejectsWhenPageUnreachable(t *testing.T) {
	t.Parallel()

	store := memory.NewCandidateStore(10, fixedClock{testNow})
	seedRecord(t, store, "https://www.copyright.gov/ai/part2.pdf", "https://www.copyright.gov/ai")

	fetcher := &fakeFetcher{errs: map[string]error{
		"https://www.copyright.gov/ai": fmt.Errorf("connection refused"),
	}}
	v, err := New(Config{}, Deps{
		Store:      store,
		Fetcher:    fetcher,
		Classifier: stubProvider{verdict: report.Verdict{Relevant: true}},
		Clock:      fixedClock{testNow},
	})
	require.NoError(t, err)

	summary, err := v.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, Summary{Checked: 1, Rejected: 1}, summary)

	// Rejection is recorded with a reason, not deleted.
	recent, err := store.ListRecent(context.Background(), testNow.AddDate(0, 0, -14), 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	require.NotNil(t, recent[0].Verification.Verified)
	require.False(t, *recent[0].Verification.Verified)
	require.Contains(t, recent[0].Verification.Reason, "unreachable")
}

func TestRunRejectsOnHTTPError(t *testing.T) {
	t.Parallel()

	store := memory.NewCandidateStore(10, fixedClock{testNow})
	seedRecord(t, store, "https://www.copyright.gov/ai/part2.pdf", "https://www.copyright.gov/ai")

	fetcher := &fakeFetcher{pages: map[string]report.FetchResponse{
		"https://www.copyright.gov/ai": {StatusCode: 404},
	}}
	v, err := New(Config{}, Deps{
		Store:      store,
		Fetcher:    fetcher,
		Classifier: stubProvider{verdict: report.Verdict{Relevant: true}},
		Clock:      fixedClock{testNow},
	})
	require.NoError(t, err)

	summary, err := v.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, Summary{Checked: 1, Rejected: 1}, summary)

	recent, err := store.ListRecent(context.Background(), testNow.AddDate(0, 0, -14), 10)
	require.NoError(t, err)
	require.Contains(t, recent[0].Verification.Reason, "HTTP 404")
}

func TestRunRejectsOnClassifierFailure(t *testing.T) {
	t.Parallel()

	store := memory.NewCandidateStore(10, fixedClock{testNow})
	seedRecord(t, store, "https://www.copyright.gov/ai/part2.pdf", "https://www.copyright.gov/ai")

	fetcher := &fakeFetcher{pages: map[string]report.FetchResponse{
		"https://www.copyright.gov/ai": {StatusCode: 200, Body: []byte("<html><body>text</body></html>")},
	}}
	v, err := New(Config{}, Deps{
		Store:      store,
		Fetcher:    fetcher,
		Classifier: stubProvider{err: fmt.Errorf("rate limited")},
		Clock:      fixedClock{testNow},
	})
	require.NoError(t, err)

	summary, err := v.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, Summary{Checked: 1, Rejected: 1}, summary)

	recent, err := store.ListRecent(context.Background(), testNow.AddDate(0, 0, -14), 10)
	require.NoError(t, err)
	require.Contains(t, recent[0].Verification.Reason, "classifier unavailable")
}

func TestNewValidatesDeps(t *testing.T) {
	t.Parallel()

	_, err := New(Config{}, Deps{})
	require.Error(t, err)
}
