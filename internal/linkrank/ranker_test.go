package linkrank

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aipdigest/reportcrawl/internal/report"
)

type fakeProber struct {
	status      int
	contentType string
	err         error
	calls       int
}

func (p *fakeProber) Head(_ context.Context, _ string) (int, string, error) {
	p.calls++
	return p.status, p.contentType, p.err
}

func TestRankSameDomainReportLink(t *testing.T) {
	t.Parallel()

	html := `<html><body>
		<a href="/docs/ai-policy.pdf">Download the Report (PDF)</a>
	</body></html>`

	got := New(nil, Config{}).Rank(context.Background(), "https://www.example.gov/pubs", html)
	require.Len(t, got, 1)
	require.Equal(t, "https://www.example.gov/docs/ai-policy.pdf", got[0].URL)
	require.Equal(t, report.EvidenceHref, got[0].Evidence)
	// base 10, same host +2, positive context +6
	require.Equal(t, 18, got[0].Score)
}

func TestRankNegativeContextLowersScore(t *testing.T) {
	t.Parallel()

	html := `<html><body>
		<a href="/docs/ai-policy.pdf">Press Release</a>
	</body></html>`

	got := New(nil, Config{}).Rank(context.Background(), "https://www.example.gov/pubs", html)
	require.Len(t, got, 1)
	// base 10, same host +2, negative context -5
	require.Equal(t, 7, got[0].Score)
}

func TestRankCrossDomainPenalty(t *testing.T) {
	t.Parallel()

	html := `<html><body>
		<a href="https://cdn.other.net/doc.pdf">Annual Report</a>
	</body></html>`

	got := New(nil, Config{}).Rank(context.Background(), "https://www.example.org/pubs", html)
	require.Len(t, got, 1)
	// base 10, cross host -1, positive context +6
	require.Equal(t, 15, got[0].Score)
}

func TestRankShortContextPenalty(t *testing.T) {
	t.Parallel()

	html := `<html><body><a href="/a.pdf">PDF</a></body></html>`
	got := New(nil, Config{}).Rank(context.Background(), "https://www.example.org/", html)
	require.Len(t, got, 1)
	// base 10, same host +2, short context -1
	require.Equal(t, 11, got[0].Score)
}

func TestRankDedupesByCanonicalURLKeepingBestScore(t *testing.T) {
	t.Parallel()

	html := `<html><body>
		<a href="/doc.pdf?utm_source=hub">Press Release</a>
		<a href="/doc.pdf">Policy Report</a>
	</body></html>`

	got := New(nil, Config{}).Rank(context.Background(), "https://www.example.org/", html)
	require.Len(t, got, 1)
	require.Equal(t, "https://www.example.org/doc.pdf", got[0].URL)
	require.Equal(t, 18, got[0].Score)
}

func TestRankSrcEvidence(t *testing.T) {
	t.Parallel()

	html := `<html><body>
		<iframe src="/viewer/report-2025.pdf" title="Guidance document"></iframe>
		<img src="/assets/pdf-icon.pdf" alt="icon">
	</body></html>`

	got := New(nil, Config{}).Rank(context.Background(), "https://www.example.org/", html)
	require.Len(t, got, 1)
	require.Equal(t, report.EvidenceSrc, got[0].Evidence)
	// base 6, same host +1, positive context +6
	require.Equal(t, 13, got[0].Score)
}

func TestRankOrderedBestFirst(t *testing.T) {
	t.Parallel()

	html := `<html><body>
		<a href="/one.pdf">Newsletter signup page link</a>
		<a href="/two.pdf">Consultation paper</a>
	</body></html>`

	got := New(nil, Config{}).Rank(context.Background(), "https://www.example.org/", html)
	require.Len(t, got, 2)
	require.Equal(t, "https://www.example.org/two.pdf", got[0].URL)
	require.Equal(t, "https://www.example.org/one.pdf", got[1].URL)
	require.Greater(t, got[0].Score, got[1].Score)
}

func TestConfirmDocumentViaProbe(t *testing.T) {
	t.Parallel()

	prober := &fakeProber{status: 200, contentType: "application/pdf; charset=binary"}
	html := `<html><body>
		<a href="/download?id=42">Working paper on AI licensing</a>
	</body></html>`

	got := New(prober, Config{}).Rank(context.Background(), "https://www.example.org/", html)
	require.Len(t, got, 1)
	require.Equal(t, 1, prober.calls)
}

func TestConfirmDocumentProbeFailureFallsBackToSuffix(t *testing.T) {
	t.Parallel()

	prober := &fakeProber{err: fmt.Errorf("connection refused")}
	html := `<html><body>
		<a href="/download?id=42">Working paper on AI licensing</a>
		<a href="/real.pdf">Policy report</a>
	</body></html>`

	got := New(prober, Config{}).Rank(context.Background(), "https://www.example.org/", html)
	// Probe failure drops only the suffix-less candidate.
	require.Len(t, got, 1)
	require.Equal(t, "https://www.example.org/real.pdf", got[0].URL)
}

func TestRankIgnoresUnparseableHTMLGracefully(t *testing.T) {
	t.Parallel()

	got := New(nil, Config{}).Rank(context.Background(), "https://www.example.org/", "")
	require.Empty(t, got)
}
