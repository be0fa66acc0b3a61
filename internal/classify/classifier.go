package classify

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/aipdigest/reportcrawl/internal/metrics"
	"github.com/aipdigest/reportcrawl/internal/report"
)

// Policy selects how provider verdicts and the keyword fallback combine.
type Policy string

// Decision policies.
//
// Light truth table (E = errored, excluded from the vote):
//
//	any provider yes OR keyword yes -> relevant
//	all informative signals no      -> not relevant
//	no informative signal at all    -> unknown
//
// Strict truth table:
//
//	any non-errored provider no     -> not relevant
//	else any yes (provider/keyword) -> relevant
//	else                            -> unknown
const (
	PolicyLight  Policy = "light"
	PolicyStrict Policy = "strict"
)

// TagCourtLitigation marks content with court/litigation focus. It is
// surfaced for downstream filtering and never causes rejection here.
const TagCourtLitigation = "court/litigation"

// Classifier orchestrates independent topical providers plus the keyword
// fallback under a configurable decision policy.
type Classifier struct {
	providers []report.TopicalClassifier
	policy    Policy
	logger    *zap.Logger
}

// New builds a Classifier. Providers may be empty; the keyword fallback
// always participates.
func New(policy Policy, logger *zap.Logger, providers ...report.TopicalClassifier) *Classifier {
	if policy == "" {
		policy = PolicyLight
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{providers: providers, policy: policy, logger: logger}
}

type providerResult struct {
	name    string
	verdict report.Verdict
}

// Classify runs all providers concurrently, computes the keyword fallback
// over title+excerpt, and combines everything under the configured policy.
// A provider error is recorded as an errored verdict and never counts as a
// negative signal.
func (c *Classifier) Classify(ctx context.Context, ev report.Evidence) report.Classification {
	blob := ev.Title + " " + ev.Excerpt
	hits := KeywordHits(blob)
	ev.KeywordHits = hits
	keywordOK := keywordSignal(hits, blob)

	results := c.collectVerdicts(ctx, ev)

	outcome, reason := c.decide(results, keywordOK, len(hits))

	var tags []string
	if hasLitigationSignal(blob) {
		tags = append(tags, TagCourtLitigation)
	}

	return report.Classification{Outcome: outcome, Tags: tags, Reason: reason}
}

// collectVerdicts fans out to every provider so one slow provider does not
// block another's answer.
func (c *Classifier) collectVerdicts(ctx context.Context, ev report.Evidence) []providerResult {
	ch := make(chan providerResult, len(c.providers))
	for _, p := range c.providers {
		go func(p report.TopicalClassifier) {
			verdict, err := p.Classify(ctx, ev)
			if err != nil {
				c.logger.Warn("classifier provider failed",
					zap.String("provider", p.Name()),
					zap.Error(err),
				)
				verdict = report.Verdict{Errored: true, Reason: err.Error()}
			}
			metrics.ObserveClassifierVerdict(p.Name(), verdictLabel(verdict))
			ch <- providerResult{name: p.Name(), verdict: verdict}
		}(p)
	}

	results := make([]providerResult, 0, len(c.providers))
	for range c.providers {
		results = append(results, <-ch)
	}
	return results
}

func verdictLabel(v report.Verdict) string {
	switch {
	case v.Errored:
		return "errored"
	case v.Relevant:
		return "relevant"
	default:
		return "not_relevant"
	}
}

func (c *Classifier) decide(results []providerResult, keywordOK bool, hitCount int) (report.Outcome, string) {
	var (
		anyYes        bool
		anyExplicitNo bool
		informative   bool
		parts         []string
	)
	for _, r := range results {
		switch {
		case r.verdict.Errored:
			parts = append(parts, fmt.Sprintf("%s: error (%s)", r.name, r.verdict.Reason))
		case r.verdict.Relevant:
			anyYes = true
			informative = true
			parts = append(parts, fmt.Sprintf("%s: relevant (%s)", r.name, r.verdict.Reason))
		default:
			anyExplicitNo = true
			informative = true
			parts = append(parts, fmt.Sprintf("%s: not relevant (%s)", r.name, r.verdict.Reason))
		}
	}
	parts = append(parts, fmt.Sprintf("keywords: %d hits, signal=%t", hitCount, keywordOK))
	reason := strings.Join(parts, " | ")

	if c.policy == PolicyStrict && anyExplicitNo {
		return report.OutcomeNotRelevant, reason
	}
	if anyYes || keywordOK {
		return report.OutcomeRelevant, reason
	}
	if !informative && !keywordOK {
		// Every provider errored and the fallback found nothing: there is
		// no evidence either way.
		return report.OutcomeUnknown, reason
	}
	return report.OutcomeNotRelevant, reason
}
