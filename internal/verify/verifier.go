// Package verify re-checks admitted records against a fresh page fetch and a
// second classification round before they can enter a digest.
package verify

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/aipdigest/reportcrawl/internal/htmltext"
	"github.com/aipdigest/reportcrawl/internal/report"
)

// Config tunes a verification pass.
type Config struct {
	LookbackDays    int // how far back unverified records are picked up, default 14
	Limit           int // max records per pass, default 100
	ExcerptMaxChars int
}

// Deps holds the verifier's collaborators.
type Deps struct {
	Store      report.CandidateStore
	Fetcher    report.Fetcher
	Classifier report.TopicalClassifier
	Clock      report.Clock
	Logger     *zap.Logger
}

// Summary reports the outcome of one verification pass.
type Summary struct {
	Checked  int
	Verified int
	Rejected int
}

// Verifier runs the post-admission verification pass.
type Verifier struct {
	cfg  Config
	deps Deps
}

// New builds a Verifier.
func New(cfg Config, deps Deps) (*Verifier, error) {
	if deps.Store == nil || deps.Fetcher == nil || deps.Classifier == nil || deps.Clock == nil {
		return nil, fmt.Errorf("store, fetcher, classifier, and clock are required")
	}
	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = 14
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 100
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Verifier{cfg: cfg, deps: deps}, nil
}

// Run verifies every unverified record within the lookback window. A record
// is never deleted here: failures are recorded as a negative verification
// with the reason attached.
func (v *Verifier) Run(ctx context.Context) (Summary, error) {
	since := v.deps.Clock.Now().AddDate(0, 0, -v.cfg.LookbackDays)
	records, err := v.deps.Store.ListUnverified(ctx, since, v.cfg.Limit)
	if err != nil {
		return Summary{}, fmt.Errorf("list unverified: %w", err)
	}

	var summary Summary
	for _, rec := range records {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
		summary.Checked++
		result := v.verifyRecord(ctx, rec)
		if err := v.deps.Store.SaveVerification(ctx, rec.ID, result); err != nil {
			v.deps.Logger.Warn("save verification failed",
				zap.Int64("record_id", rec.ID),
				zap.Error(err),
			)
			continue
		}
		if result.Verified != nil && *result.Verified {
			summary.Verified++
		} else {
			summary.Rejected++
		}
	}

	v.deps.Logger.Info("verification pass finished",
		zap.Int("checked", summary.Checked),
		zap.Int("verified", summary.Verified),
		zap.Int("rejected", summary.Rejected),
	)
	return summary, nil
}

func (v *Verifier) verifyRecord(ctx context.Context, rec report.Record) report.Verification {
	logger := v.deps.Logger.With(
		zap.Int64("record_id", rec.ID),
		zap.String("report_url", rec.ReportURL),
	)

	pageURL := rec.LandingPageURL
	if pageURL == "" {
		pageURL = rec.ReportURL
	}
	resp, err := v.deps.Fetcher.Fetch(ctx, report.FetchRequest{URL: pageURL})
	if err != nil || resp.StatusCode >= 400 {
		reason := "landing page unreachable"
		if err != nil {
			reason = fmt.Sprintf("landing page unreachable: %v", err)
		} else {
			reason = fmt.Sprintf("landing page HTTP %d", resp.StatusCode)
		}
		logger.Debug("verification fetch failed", zap.String("reason", reason))
		return v.negative(reason)
	}

	html := string(resp.Body)
	ev := report.Evidence{
		TodayISO:       v.deps.Clock.Now().Format("2006-01-02"),
		Title:          rec.Title,
		SourceName:     rec.SourceName,
		LandingPageURL: rec.LandingPageURL,
		ReportURL:      rec.ReportURL,
		Excerpt:        htmltext.Excerpt(html, v.cfg.ExcerptMaxChars),
	}
	if rec.PublishedAt != nil {
		ev.DateISO = rec.PublishedAt.Format("2006-01-02")
		ev.DateSource = rec.PublishedAtSource
		ev.DateRaw = rec.PublishedAtRaw
	}

	verdict, err := v.deps.Classifier.Classify(ctx, ev)
	if err != nil {
		logger.Warn("verification classify failed", zap.Error(err))
		return v.negative(fmt.Sprintf("classifier unavailable: %v", err))
	}

	verified := verdict.Relevant
	score := int(verdict.Confidence * 100)
	now := v.deps.Clock.Now().UTC()
	return report.Verification{
		Verified:   &verified,
		Score:      &score,
		Reason:     verdict.Reason,
		VerifiedAt: &now,
	}
}

func (v *Verifier) negative(reason string) report.Verification {
	verified := false
	score := 0
	now := v.deps.Clock.Now().UTC()
	return report.Verification{
		Verified:   &verified,
		Score:      &score,
		Reason:     reason,
		VerifiedAt: &now,
	}
}
