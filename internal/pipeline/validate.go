package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/aipdigest/reportcrawl/internal/doctext"
	"github.com/aipdigest/reportcrawl/internal/htmltext"
	"github.com/aipdigest/reportcrawl/internal/linkrank"
	"github.com/aipdigest/reportcrawl/internal/metrics"
	"github.com/aipdigest/reportcrawl/internal/pubdate"
	"github.com/aipdigest/reportcrawl/internal/report"
	"github.com/aipdigest/reportcrawl/internal/source"
	"github.com/aipdigest/reportcrawl/internal/storage/postgres"
)

// AdmissionEvent is the payload published for every admitted record.
type AdmissionEvent struct {
	RecordID    int64      `json:"record_id"`
	ReportURL   string     `json:"report_url"`
	Title       string     `json:"title"`
	SourceName  string     `json:"source_name"`
	SourceType  string     `json:"source_type"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	BlobURI     string     `json:"blob_uri,omitempty"`
	AdmittedAt  time.Time  `json:"admitted_at"`
}

// validateCandidate runs one candidate through the full admission ladder:
// junk filter, cross-domain filter, dedup, date gate, document fetch,
// classification, then the store upsert. Returns true only when the upsert
// actually wrote something.
func (p *Pipeline) validateCandidate(
	ctx context.Context,
	pageURL, pageTitle, pageHTML string,
	resolved *report.ResolvedDate,
	cand report.LinkCandidate,
	counters *report.RunCounters,
) bool {
	logger := p.deps.Logger.With(
		zap.String("landing_page", pageURL),
		zap.String("candidate", cand.URL),
	)

	if linkrank.IsJunk(cand.URL, cand.Context) {
		counters.SkippedJunk++
		metrics.ObserveCandidate("skipped_junk")
		return false
	}
	if linkrank.IsCrossDomain(pageURL, cand.URL) {
		counters.SkippedCrossDomain++
		metrics.ObserveCandidate("skipped_cross_domain")
		return false
	}
	if exists, err := p.deps.Store.Exists(ctx, cand.URL); err != nil {
		logger.Warn("dedup check failed", zap.Error(err))
		return false
	} else if exists {
		counters.SkippedDuplicate++
		metrics.ObserveCandidate("skipped_duplicate")
		return false
	}

	if resolved == nil {
		counters.SkippedNoDate++
		metrics.ObserveCandidate("skipped_no_date")
		logger.Debug("no publication date on landing page")
		return false
	}
	if !pubdate.IsRecent(resolved, p.cfg.WindowDays, p.deps.Clock.Now()) {
		counters.SkippedStale++
		metrics.ObserveCandidate("skipped_stale")
		return false
	}

	docBody, err := p.fetchDocument(ctx, cand.URL)
	if err != nil {
		counters.SkippedTransport++
		metrics.ObserveCandidate("skipped_transport")
		logger.Debug("document fetch failed", zap.Error(err))
		return false
	}

	excerpt := p.documentExcerpt(docBody, pageHTML)
	ev := report.Evidence{
		TodayISO:       p.deps.Clock.Now().Format("2006-01-02"),
		Title:          pageTitle,
		LandingPageURL: pageURL,
		ReportURL:      cand.URL,
		DateISO:        resolved.Timestamp.Format("2006-01-02"),
		DateSource:     resolved.Strategy,
		DateRaw:        resolved.Raw,
		Excerpt:        excerpt,
	}
	sourceName, sourceType := source.Infer(pageURL)
	ev.SourceName = sourceName

	decision := p.deps.Classifier.Classify(ctx, ev)
	switch decision.Outcome {
	case report.OutcomeUnknown:
		counters.ClassifierUnknown++
		metrics.ObserveCandidate("classifier_unknown")
		if !p.cfg.AdmitUnknown {
			logger.Warn("classification unavailable, skipping", zap.String("reason", decision.Reason))
			return false
		}
		// Admitted provisionally; the verification pass re-checks it.
		logger.Warn("classification unavailable, admitting for verification",
			zap.String("reason", decision.Reason))
	case report.OutcomeNotRelevant:
		counters.SkippedNotRelevant++
		metrics.ObserveCandidate("skipped_not_relevant")
		logger.Debug("not relevant", zap.String("reason", decision.Reason))
		return false
	}

	published := resolved.Timestamp
	rec, changed, err := p.deps.Store.Upsert(ctx, report.RecordFields{
		SourceName:        sourceName,
		SourceType:        sourceType,
		Title:             pageTitle,
		LandingPageURL:    pageURL,
		ReportURL:         cand.URL,
		ReportFormat:      cand.Format,
		PublishedAt:       &published,
		PublishedAtSource: resolved.Strategy,
		PublishedAtRaw:    resolved.Raw,
	})
	switch {
	case errors.Is(err, postgres.ErrStale):
		counters.SkippedStale++
		metrics.ObserveCandidate("skipped_stale")
		return false
	case errors.Is(err, postgres.ErrNoPublishedDate):
		counters.SkippedNoDate++
		metrics.ObserveCandidate("skipped_no_date")
		return false
	case err != nil:
		logger.Warn("upsert failed", zap.Error(err))
		return false
	case !changed:
		// Re-observed a known report and nothing new was written.
		counters.SkippedDuplicate++
		metrics.ObserveCandidate("skipped_duplicate")
		return false
	}

	counters.Admitted++
	metrics.ObserveCandidate("admitted")
	metrics.ObserveAdmission(string(rec.SourceType))
	logger.Info("candidate admitted",
		zap.Int64("record_id", rec.ID),
		zap.String("source", rec.SourceName),
		zap.Time("published_at", published),
		zap.String("date_strategy", resolved.Strategy),
	)

	blobURI := p.archiveDocument(ctx, rec, docBody, logger)
	p.publishAdmission(ctx, rec, blobURI, logger)
	return true
}

func (p *Pipeline) fetchDocument(ctx context.Context, docURL string) ([]byte, error) {
	resp, err := p.deps.Fetcher.Fetch(ctx, report.FetchRequest{URL: docURL})
	if err != nil {
		return nil, err
	}
	metrics.ObserveFetch(docURL, resp.StatusCode)
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("document HTTP %d", resp.StatusCode)
	}
	if len(resp.Body) == 0 {
		return nil, fmt.Errorf("document returned empty body")
	}
	return resp.Body, nil
}

// documentExcerpt prefers the document's own opening pages; unreadable
// documents fall back to the landing page's visible text.
func (p *Pipeline) documentExcerpt(docBody []byte, pageHTML string) string {
	text, err := doctext.FromPDF(docBody, doctext.Options{
		MaxPages: p.cfg.DocumentMaxPages,
		MaxChars: p.cfg.ExcerptMaxChars,
	})
	if err == nil && text != "" {
		return text
	}
	return htmltext.Excerpt(pageHTML, p.cfg.ExcerptMaxChars)
}

// archiveDocument writes the raw document bytes to the blob store. Archival
// failures are logged and never veto an admission.
func (p *Pipeline) archiveDocument(ctx context.Context, rec report.Record, docBody []byte, logger *zap.Logger) string {
	if p.deps.Blobs == nil {
		return ""
	}
	path := fmt.Sprintf("%s/%s/%d-%s",
		p.cfg.ArchivePrefix,
		report.Host(rec.ReportURL),
		rec.ID,
		archiveFilename(rec.ReportURL),
	)
	uri, err := p.deps.Blobs.PutObject(ctx, path, "application/pdf", bytes.NewReader(docBody))
	if err != nil {
		logger.Warn("document archival failed", zap.Error(err))
		return ""
	}
	return uri
}

// publishAdmission emits the admission event. Publish failures are logged
// and never veto an admission.
func (p *Pipeline) publishAdmission(ctx context.Context, rec report.Record, blobURI string, logger *zap.Logger) {
	if p.deps.Publisher == nil {
		return
	}
	event := AdmissionEvent{
		RecordID:    rec.ID,
		ReportURL:   rec.ReportURL,
		Title:       rec.Title,
		SourceName:  rec.SourceName,
		SourceType:  string(rec.SourceType),
		PublishedAt: rec.PublishedAt,
		BlobURI:     blobURI,
		AdmittedAt:  p.deps.Clock.Now(),
	}
	if _, err := p.deps.Publisher.Publish(ctx, p.cfg.AdmissionTopic, event); err != nil {
		logger.Warn("admission publish failed", zap.Error(err))
	}
}
