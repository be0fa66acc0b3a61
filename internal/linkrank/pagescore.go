package linkrank

import (
	"net/url"
	"strings"
)

var positivePathTokens = []string{
	"report",
	"reports",
	"publication",
	"publications",
	"guidance",
	"consultation",
	"policy",
	"law",
	"framework",
	"working-paper",
	"research",
	"whitepaper",
	"white-paper",
}

var negativePathTokens = []string{
	"press",
	"news",
	"media",
	"blog",
	"podcast",
	"video",
	"webinar",
}

var positiveTitleTokens = []string{
	"report",
	"white paper",
	"guidance",
	"consultation",
	"policy",
	"framework",
	"analysis",
	"memorandum",
	"submission",
	"working paper",
}

var negativeTitleTokens = []string{
	"press release",
	"newsletter",
	"blog",
	"podcast",
	"video",
	"webinar",
}

// ScorePage rates a landing page for query-driven discovery. The page score
// is added to each link's own score before final ranking, so a trustworthy
// hub boosts every document found on it.
func ScorePage(pageURL, title string) int {
	u, err := url.Parse(pageURL)
	if err != nil {
		return 0
	}
	host := strings.ToLower(u.Host)
	path := strings.ToLower(u.Path)

	s := tldBonus(host)

	for _, tok := range positivePathTokens {
		if strings.Contains(path, tok) {
			s += 2
		}
	}
	for _, tok := range negativePathTokens {
		if strings.Contains(path, tok) {
			s -= 2
		}
	}

	t := strings.ToLower(title)
	for _, tok := range positiveTitleTokens {
		if strings.Contains(t, tok) {
			s += 2
		}
	}
	for _, tok := range negativeTitleTokens {
		if strings.Contains(t, tok) {
			s -= 2
		}
	}
	return s
}

// tldBonus encodes top-level-domain trust: government and intergovernmental
// hosts outrank academic, which outrank nonprofit.
func tldBonus(host string) int {
	switch {
	case strings.HasSuffix(host, ".gov"), strings.HasSuffix(host, ".gov.uk"), strings.Contains(host, ".gov."):
		return 7
	case strings.HasSuffix(host, ".int"):
		return 6
	case strings.HasSuffix(host, ".edu"):
		return 5
	case strings.HasSuffix(host, ".org"):
		return 3
	default:
		return 0
	}
}
