package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aipdigest/reportcrawl/internal/report"
	"github.com/aipdigest/reportcrawl/internal/storage/postgres"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

var testNow = time.Date(2025, 5, 5, 12, 0, 0, 0, time.UTC)

func newStore() *CandidateStore {
	return NewCandidateStore(10, fixedClock{testNow})
}

func fields(url string, published time.Time) report.RecordFields {
	return report.RecordFields{
		SourceName:        "WIPO",
		SourceType:        report.SourceIntergovernmental,
		Title:             "Generative AI and IP",
		LandingPageURL:    "https://wipo.int/ai",
		ReportURL:         url,
		ReportFormat:      "pdf",
		PublishedAt:       &published,
		PublishedAtSource: "jsonld",
		PublishedAtRaw:    published.Format("2006-01-02"),
	}
}

func TestUpsertCreateThenDuplicate(t *testing.T) {
	t.Parallel()

	s := newStore()
	f := fields("https://wipo.int/ai/report.pdf", testNow.Add(-24*time.Hour))

	rec, changed, err := s.Upsert(context.Background(), f)
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, testNow, rec.DiscoveredAt)

	// An identical re-observation writes nothing.
	again, changed, err := s.Upsert(context.Background(), f)
	require.NoError(t, err)
	require.False(t, changed)
	require.Equal(t, rec.ID, again.ID)
}

func TestUpsertBackfillsEmptyFieldsOnly(t *testing.T) {
	t.Parallel()

	s := newStore()
	f := fields("https://wipo.int/ai/report.pdf", testNow.Add(-24*time.Hour))
	f.Title = ""
	f.SourceType = report.SourceOther
	_, _, err := s.Upsert(context.Background(), f)
	require.NoError(t, err)

	// Second pass supplies the missing title and a better source type, and
	// tries to overwrite the source name.
	g := fields("https://wipo.int/ai/report.pdf", testNow.Add(-24*time.Hour))
	g.SourceName = "Someone Else"
	rec, changed, err := s.Upsert(context.Background(), g)
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, "Generative AI and IP", rec.Title)
	require.Equal(t, report.SourceIntergovernmental, rec.SourceType)
	require.Equal(t, "WIPO", rec.SourceName)
}

func TestUpsertPublishedAtMovesForwardOnly(t *testing.T) {
	t.Parallel()

	s := newStore()
	first := testNow.Add(-48 * time.Hour)
	_, _, err := s.Upsert(context.Background(), fields("https://wipo.int/r.pdf", first))
	require.NoError(t, err)

	// An older observation is ignored.
	older := fields("https://wipo.int/r.pdf", testNow.Add(-96*time.Hour))
	rec, changed, err := s.Upsert(context.Background(), older)
	require.NoError(t, err)
	require.False(t, changed)
	require.True(t, rec.PublishedAt.Equal(first))

	// A newer observation wins and carries its provenance.
	newer := fields("https://wipo.int/r.pdf", testNow.Add(-12*time.Hour))
	newer.PublishedAtSource = "meta"
	rec, changed, err = s.Upsert(context.Background(), newer)
	require.NoError(t, err)
	require.True(t, changed)
	require.True(t, rec.PublishedAt.Equal(testNow.Add(-12*time.Hour)))
	require.Equal(t, "meta", rec.PublishedAtSource)
}

func TestUpsertChangedReflectsWrites(t *testing.T) {
	t.Parallel()

	s := newStore()
	f := fields("https://wipo.int/changed.pdf", testNow.Add(-96*time.Hour))
	f.Title = ""
	_, changed, err := s.Upsert(context.Background(), f)
	require.NoError(t, err)
	require.True(t, changed)

	// Re-observed with the same data: nothing to write.
	_, changed, err = s.Upsert(context.Background(), f)
	require.NoError(t, err)
	require.False(t, changed)

	// Re-observed with a later date and the missing title: a real write,
	// and the caller must see it as one.
	g := fields("https://wipo.int/changed.pdf", testNow.Add(-48*time.Hour))
	rec, changed, err := s.Upsert(context.Background(), g)
	require.NoError(t, err)
	require.True(t, changed, "a write happened, the changed flag must say so")
	require.Equal(t, "Generative AI and IP", rec.Title)
	require.True(t, rec.PublishedAt.Equal(testNow.Add(-48*time.Hour)))
}

func TestUpsertGatesNewRecordsOnly(t *testing.T) {
	t.Parallel()

	s := newStore()
	_, _, err := s.Upsert(context.Background(), fields("https://wipo.int/stale.pdf", testNow.Add(-30*24*time.Hour)))
	require.ErrorIs(t, err, postgres.ErrStale)

	undated := fields("https://wipo.int/undated.pdf", testNow)
	undated.PublishedAt = nil
	_, _, err = s.Upsert(context.Background(), undated)
	require.ErrorIs(t, err, postgres.ErrNoPublishedDate)

	// Once a record exists, a stale re-observation still merges without
	// error; an older date adds nothing, so nothing is written.
	_, _, err = s.Upsert(context.Background(), fields("https://wipo.int/fresh.pdf", testNow.Add(-24*time.Hour)))
	require.NoError(t, err)
	_, changed, err := s.Upsert(context.Background(), fields("https://wipo.int/fresh.pdf", testNow.Add(-30*24*time.Hour)))
	require.NoError(t, err)
	require.False(t, changed)
}

func TestVerificationAndSendFlow(t *testing.T) {
	t.Parallel()

	s := newStore()
	ctx := context.Background()
	rec, _, err := s.Upsert(ctx, fields("https://wipo.int/flow.pdf", testNow.Add(-24*time.Hour)))
	require.NoError(t, err)

	unverified, err := s.ListUnverified(ctx, testNow.Add(-time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, unverified, 1)

	verified := true
	require.NoError(t, s.SaveVerification(ctx, rec.ID, report.Verification{Verified: &verified, Reason: "checked"}))

	unverified, err = s.ListUnverified(ctx, testNow.Add(-time.Hour), 10)
	require.NoError(t, err)
	require.Empty(t, unverified)

	unsent, err := s.ListVerifiedUnsent(ctx, testNow.Add(-time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, unsent, 1)

	require.NoError(t, s.MarkSent(ctx, []int64{rec.ID}, testNow))
	unsent, err = s.ListVerifiedUnsent(ctx, testNow.Add(-time.Hour), 10)
	require.NoError(t, err)
	require.Empty(t, unsent)
}

func TestSaveVerificationUnknownID(t *testing.T) {
	t.Parallel()

	s := newStore()
	require.Error(t, s.SaveVerification(context.Background(), 42, report.Verification{}))
}
