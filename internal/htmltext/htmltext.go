// Package htmltext extracts titles, visible text, and navigable child links
// from landing page HTML.
package htmltext

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/aipdigest/reportcrawl/internal/report"
)

const (
	maxTitleLen   = 600
	maxExcerptLen = 4000
)

// Title extracts the page title, preferring the first h1, then og:title,
// then the title tag.
func Title(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	if h1 := collapse(doc.Find("h1").First().Text()); h1 != "" {
		return truncate(h1, maxTitleLen)
	}
	if og, ok := doc.Find(`meta[property="og:title"]`).First().Attr("content"); ok {
		if og = collapse(og); og != "" {
			return truncate(og, maxTitleLen)
		}
	}
	return truncate(collapse(doc.Find("title").First().Text()), maxTitleLen)
}

// Excerpt returns the page's visible text with navigation chrome removed,
// capped at maxLen (or the default when maxLen <= 0).
func Excerpt(html string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = maxExcerptLen
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	doc.Find("script, style, noscript, nav, header, footer, aside").Remove()

	body := doc.Find("body")
	if body.Length() == 0 {
		return truncate(collapse(doc.Text()), maxLen)
	}
	return truncate(collapse(body.Text()), maxLen)
}

// ChildLinks returns absolute same-site links from a seed page whose paths
// look like report landing pages. Navigation-heavy paths are skipped. The
// result preserves document order, deduplicated by canonical URL.
func ChildLinks(pageURL, html string, max int) []string {
	if max <= 0 {
		max = 25
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	pageCanonical, err := report.Canonicalize(pageURL)
	if err != nil {
		return nil
	}

	seen := make(map[string]bool)
	var out []string
	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, _ := sel.Attr("href")
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return true
		}
		abs := base.ResolveReference(ref)
		if abs.Scheme != "http" && abs.Scheme != "https" {
			return true
		}
		if !report.SameHost(pageURL, abs.String()) {
			return true
		}
		canonical, err := report.Canonicalize(abs.String())
		if err != nil {
			return true
		}
		if seen[canonical] || canonical == pageCanonical {
			return true
		}
		if !interestingPath(abs.Path) {
			return true
		}
		seen[canonical] = true
		out = append(out, canonical)
		return len(out) < max
	})
	return out
}

var childPositiveTokens = []string{
	"report",
	"publication",
	"guidance",
	"consultation",
	"policy",
	"research",
	"paper",
	"study",
	"analysis",
}

var childNegativeTokens = []string{
	"login",
	"signup",
	"subscribe",
	"contact",
	"about",
	"careers",
	"privacy",
	"terms",
	"cookie",
	"search",
	"tag/",
	"category/",
}

func interestingPath(path string) bool {
	p := strings.ToLower(path)
	for _, tok := range childNegativeTokens {
		if strings.Contains(p, tok) {
			return false
		}
	}
	for _, tok := range childPositiveTokens {
		if strings.Contains(p, tok) {
			return true
		}
	}
	return false
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
