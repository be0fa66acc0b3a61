package linkrank

import (
	"strings"

	"github.com/aipdigest/reportcrawl/internal/report"
)

// junkTokens mark documents that are never policy reports: media kits,
// rate cards, brochures, forms, slide decks, meeting minutes.
var junkTokens = []string{
	"media-kit",
	"mediakit",
	"media_kit",
	"press-kit",
	"presskit",
	"rate-card",
	"ratecard",
	"advertis",
	"sponsor",
	"brochure",
	"catalog",
	"flyer",
	"infographic",
	"agenda",
	"schedule",
	"template",
	"pricing",
	"newsletter",
	"magazine",
	"slides",
	"deck",
	"presentation",
	"minutes",
	"transcript",
	"promo",
	"terms",
	"privacy",
	"cookie",
	"application-form",
	"form-",
}

// IsJunk reports whether a candidate URL or its context matches a
// known-junk token. Applied after ranking, before classification.
func IsJunk(candidateURL, context string) bool {
	u := strings.ToLower(candidateURL)
	c := strings.ToLower(context)
	for _, tok := range junkTokens {
		if strings.Contains(u, tok) || strings.Contains(c, tok) {
			return true
		}
	}
	return false
}

// IsCrossDomain reports whether the candidate is hosted outside the landing
// page's organization. Same-organization CDNs are allowed.
func IsCrossDomain(landingURL, candidateURL string) bool {
	return report.CrossDomain(landingURL, candidateURL)
}
