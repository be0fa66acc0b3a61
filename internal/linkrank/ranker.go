// Package linkrank detects and ranks document links on a page.
package linkrank

import (
	"context"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/aipdigest/reportcrawl/internal/report"
)

// Base scores by evidence kind. An href is a deliberate link to the
// document; a src is usually an embedded viewer and less intentional.
const (
	hrefBaseScore = 10
	srcBaseScore  = 6

	maxContextLen = 200
)

var (
	docSuffixPat = regexp.MustCompile(`(?i)\.pdf(\?|$)`)

	// Icon/asset/sprite/thumbnail URLs are near-certainly not documents
	// when discovered through embedded-resource evidence.
	assetHintPat = regexp.MustCompile(`(?i)(icon|logo|sprite|thumb|thumbnail|svg|png|jpg|jpeg|webp|gif|badge|button)`)

	positiveContextPat = regexp.MustCompile(`(?i)(report|white\s*paper|guidance|consultation|policy|law|framework|working\s*paper|brief|analysis|memorandum|submission|proposal|study)`)
	negativeContextPat = regexp.MustCompile(`(?i)(press|news|newsletter|blog|podcast|video|webinar|promo|advert|marketing)`)
)

// Config controls detection behavior.
type Config struct {
	Format      string // format tag attached to candidates, default "pdf"
	ContentType string // content type the probe must confirm, default "application/pdf"
}

// Ranker turns page HTML into scored, deduplicated document-link candidates.
type Ranker struct {
	prober report.HeadProber
	cfg    Config
}

// New builds a Ranker. The prober is optional; without one, candidates are
// accepted on URL suffix alone.
func New(prober report.HeadProber, cfg Config) *Ranker {
	if cfg.Format == "" {
		cfg.Format = "pdf"
	}
	if cfg.ContentType == "" {
		cfg.ContentType = "application/pdf"
	}
	return &Ranker{prober: prober, cfg: cfg}
}

// Rank returns document-link candidates ordered best-score first,
// deduplicated by canonical URL (ties broken by first-seen).
func (r *Ranker) Rank(ctx context.Context, pageURL, pageHTML string) []report.LinkCandidate {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return nil
	}

	var candidates []report.LinkCandidate
	candidates = append(candidates, r.detectHrefLinks(ctx, pageURL, doc)...)
	candidates = append(candidates, r.detectSrcLinks(ctx, pageURL, doc)...)

	return dedupeBest(candidates)
}

func (r *Ranker) detectHrefLinks(ctx context.Context, pageURL string, doc *goquery.Document) []report.LinkCandidate {
	var out []report.LinkCandidate
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" {
			return
		}
		u, ok := resolveCanonical(pageURL, href)
		if !ok {
			return
		}
		context := truncate(strings.Join(strings.Fields(s.Text()), " "), maxContextLen)
		if !r.confirmDocument(ctx, u, context) {
			return
		}

		score := hrefBaseScore
		if report.SameHost(pageURL, u) {
			score += 2
		} else {
			score--
		}
		score += scoreContext(context)

		out = append(out, report.LinkCandidate{
			URL:      u,
			Format:   r.cfg.Format,
			Evidence: report.EvidenceHref,
			Context:  context,
			Score:    score,
		})
	})
	return out
}

func (r *Ranker) detectSrcLinks(ctx context.Context, pageURL string, doc *goquery.Document) []report.LinkCandidate {
	var out []report.LinkCandidate
	doc.Find("[src]").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		src = strings.TrimSpace(src)
		if src == "" {
			return
		}
		u, ok := resolveCanonical(pageURL, src)
		if !ok {
			return
		}
		if !docSuffixPat.MatchString(u) {
			return
		}
		// Asset-style URLs are dropped outright for src evidence.
		if assetHintPat.MatchString(u) {
			return
		}

		context := srcContext(s)
		if !r.confirmDocument(ctx, u, context) {
			return
		}

		score := srcBaseScore
		if report.SameHost(pageURL, u) {
			score++
		} else {
			score--
		}
		score += scoreContext(context)

		out = append(out, report.LinkCandidate{
			URL:      u,
			Format:   r.cfg.Format,
			Evidence: report.EvidenceSrc,
			Context:  context,
			Score:    score,
		})
	})
	return out
}

// confirmDocument accepts a URL when its path carries the expected suffix,
// or when a metadata probe confirms the expected content type. Probe
// failures fall back to suffix-only acceptance rather than failing the
// candidate pipeline.
func (r *Ranker) confirmDocument(ctx context.Context, u, context string) bool {
	if docSuffixPat.MatchString(u) {
		return true
	}
	if r.prober == nil {
		return false
	}
	// Only spend a probe on links whose context suggests a document.
	if !positiveContextPat.MatchString(context) {
		return false
	}
	status, contentType, err := r.prober.Head(ctx, u)
	if err != nil || status >= 400 {
		return false
	}
	return strings.Contains(strings.ToLower(contentType), r.cfg.ContentType)
}

// scoreContext awards positive lexical cues and penalizes news/promo cues;
// context shorter than 6 characters carries too little signal.
func scoreContext(text string) int {
	t := strings.TrimSpace(text)
	if t == "" {
		return 0
	}
	s := 0
	if positiveContextPat.MatchString(t) {
		s += 6
	}
	if negativeContextPat.MatchString(t) {
		s -= 5
	}
	if len(t) < 6 {
		s--
	}
	return s
}

func srcContext(s *goquery.Selection) string {
	parts := []string{
		s.AttrOr("alt", ""),
		s.AttrOr("title", ""),
		s.AttrOr("aria-label", ""),
		s.AttrOr("class", ""),
	}
	return truncate(strings.TrimSpace(strings.Join(parts, " ")), maxContextLen)
}

func resolveCanonical(pageURL, ref string) (string, bool) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return "", false
	}
	rel, err := url.Parse(ref)
	if err != nil {
		return "", false
	}
	abs := base.ResolveReference(rel).String()
	canonical, err := report.Canonicalize(abs)
	if err != nil {
		return "", false
	}
	return canonical, true
}

// dedupeBest collapses candidates sharing a canonical URL, keeping the
// best-scored instance, then orders the result best-first. First-seen
// position is the tiebreak for equal scores.
func dedupeBest(candidates []report.LinkCandidate) []report.LinkCandidate {
	type slot struct {
		cand  report.LinkCandidate
		order int
	}
	best := make(map[string]slot, len(candidates))
	for i, c := range candidates {
		existing, ok := best[c.URL]
		if !ok || c.Score > existing.cand.Score {
			order := i
			if ok {
				order = existing.order
			}
			best[c.URL] = slot{cand: c, order: order}
		}
	}

	out := make([]slot, 0, len(best))
	for _, s := range best {
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].cand.Score != out[j].cand.Score {
			return out[i].cand.Score > out[j].cand.Score
		}
		return out[i].order < out[j].order
	})

	result := make([]report.LinkCandidate, len(out))
	for i, s := range out {
		result[i] = s.cand
	}
	return result
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
