package pubdate

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/aipdigest/reportcrawl/internal/report"
)

// metaKeys are the attribute/value pairs checked for structured metadata
// dates, in a fixed order so resolution stays deterministic.
var metaKeys = []struct{ attr, key string }{
	{"property", "article:published_time"},
	{"property", "article:modified_time"},
	{"name", "pubdate"},
	{"name", "publish-date"},
	{"name", "publishdate"},
	{"name", "date"},
	{"name", "dc.date"},
	{"name", "dc.date.issued"},
	{"name", "DC.date.issued"},
	{"itemprop", "datePublished"},
	{"itemprop", "dateModified"},
}

var jsonLDDateKeys = []string{"datePublished", "dateModified", "uploadDate"}

// boostTokens mark text-scan matches that sit near publication wording.
var boostTokens = []string{
	"published",
	"updated",
	"posted",
	"date",
	"released",
	"last updated",
}

func fromMetaTags(doc *goquery.Document) []report.DateObservation {
	var out []report.DateObservation
	for _, mk := range metaKeys {
		sel := doc.Find(fmt.Sprintf(`meta[%s=%q]`, mk.attr, mk.key)).First()
		if sel.Length() == 0 {
			continue
		}
		content, ok := sel.Attr("content")
		if !ok || content == "" {
			content, _ = sel.Attr("value")
		}
		if content == "" {
			continue
		}
		if ts, parsed := parseAny(content); parsed {
			out = append(out, report.DateObservation{
				Timestamp: ts,
				Strategy:  fmt.Sprintf("meta[%s=%s]", mk.attr, mk.key),
				Raw:       content,
			})
		}
	}
	return out
}

func fromJSONLD(doc *goquery.Document) []report.DateObservation {
	var out []report.DateObservation
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		txt := strings.TrimSpace(s.Text())
		if txt == "" {
			return
		}
		var data any
		if err := json.Unmarshal([]byte(txt), &data); err != nil {
			// Some pages concatenate multiple JSON objects; skip rather
			// than attempt a salvage parse.
			return
		}
		nodes, ok := data.([]any)
		if !ok {
			nodes = []any{data}
		}
		for _, node := range nodes {
			obj, ok := node.(map[string]any)
			if !ok {
				continue
			}
			for _, key := range jsonLDDateKeys {
				v, ok := obj[key].(string)
				if !ok {
					continue
				}
				if ts, parsed := parseAny(v); parsed {
					out = append(out, report.DateObservation{
						Timestamp: ts,
						Strategy:  "jsonld." + key,
						Raw:       v,
					})
				}
			}
		}
	})
	return out
}

func fromTimeTags(doc *goquery.Document) []report.DateObservation {
	var out []report.DateObservation
	doc.Find("time").Each(func(_ int, s *goquery.Selection) {
		raw, ok := s.Attr("datetime")
		if !ok || strings.TrimSpace(raw) == "" {
			raw = strings.TrimSpace(s.Text())
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return
		}
		if ts, parsed := parseAny(raw); parsed {
			out = append(out, report.DateObservation{
				Timestamp: ts,
				Strategy:  "time_tag",
				Raw:       raw,
			})
		}
	})
	return out
}

// fromTextScan runs the free-text strategy over visible text. Matches are
// restricted to a tolerant three-year window around now to bound false
// positives; matches within 80 characters of a publication keyword get a
// distinguishing strategy tag.
func fromTextScan(doc *goquery.Document, now time.Time) []report.DateObservation {
	text := strings.Join(strings.Fields(doc.Text()), " ")
	if text == "" {
		return nil
	}
	text = normalizeOrdinals(text)

	years := map[int]struct{}{
		now.Year() - 1: {},
		now.Year():     {},
		now.Year() + 1: {},
	}
	anyYear := false
	for y := range years {
		if strings.Contains(text, fmt.Sprintf("%d", y)) {
			anyYear = true
			break
		}
	}
	if !anyYear {
		return nil
	}

	type match struct {
		pos int
		ts  time.Time
		raw string
	}
	var candidates []match

	for _, loc := range numericDatePat.FindAllStringIndex(text, -1) {
		raw := text[loc[0]:loc[1]]
		if ts, ok := parseISOLike(raw); ok {
			if _, inWindow := years[ts.Year()]; inWindow {
				candidates = append(candidates, match{pos: loc[0], ts: ts, raw: raw})
			}
		}
	}
	for _, loc := range monthDayYearPat.FindAllStringIndex(text, -1) {
		raw := text[loc[0]:loc[1]]
		if ts, ok := parseMonthNameDate(raw); ok {
			if _, inWindow := years[ts.Year()]; inWindow {
				candidates = append(candidates, match{pos: loc[0], ts: ts, raw: raw})
			}
		}
	}
	for _, loc := range dayMonthYearPat.FindAllStringIndex(text, -1) {
		raw := text[loc[0]:loc[1]]
		if ts, ok := parseMonthNameDate(raw); ok {
			if _, inWindow := years[ts.Year()]; inWindow {
				candidates = append(candidates, match{pos: loc[0], ts: ts, raw: raw})
			}
		}
	}

	out := make([]report.DateObservation, 0, len(candidates))
	lower := strings.ToLower(text)
	for _, c := range candidates {
		left := max(0, c.pos-80)
		right := min(len(lower), c.pos+80)
		window := lower[left:right]

		strategy := "text_year_scan"
		for _, tok := range boostTokens {
			if strings.Contains(window, tok) {
				strategy = "text_year_scan_near_pubtoken"
				break
			}
		}
		out = append(out, report.DateObservation{Timestamp: c.ts, Strategy: strategy, Raw: c.raw})
	}
	return out
}
