package pubdate

import (
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/aipdigest/reportcrawl/internal/report"
)

const (
	// maxFutureSkew tolerates clock drift and timezone offsets while still
	// rejecting copyright-footer years like "2099".
	maxFutureSkew = 48 * time.Hour
	// minYear guards against unrelated legal boilerplate dates.
	minYear = 1990
)

// Resolver combines date observations from all strategies into a single
// resolved publication date.
type Resolver struct {
	clock report.Clock
}

// NewResolver builds a Resolver using the provided clock.
func NewResolver(clock report.Clock) *Resolver {
	return &Resolver{clock: clock}
}

// Observe runs every extraction strategy over the HTML and returns the raw
// observation pool, unfiltered.
func (r *Resolver) Observe(html string) []report.DateObservation {
	if strings.TrimSpace(html) == "" {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var obs []report.DateObservation
	obs = append(obs, fromMetaTags(doc)...)
	obs = append(obs, fromJSONLD(doc)...)
	obs = append(obs, fromTimeTags(doc)...)
	obs = append(obs, fromTextScan(doc, r.clock.Now())...)
	return obs
}

// Resolve picks the best publication date for a page, or nil when no
// observation survives filtering.
//
// Selection is latest-timestamp-wins across the whole pool: strategy
// identity is recorded but carries no precedence. A free-text match dated
// later than a structured metadata match will win.
func (r *Resolver) Resolve(html string) *report.ResolvedDate {
	return r.pick(r.Observe(html))
}

func (r *Resolver) pick(obs []report.DateObservation) *report.ResolvedDate {
	now := r.clock.Now()
	cutoffFuture := now.Add(maxFutureSkew)

	cleaned := make([]report.DateObservation, 0, len(obs))
	for _, o := range obs {
		if o.Timestamp.After(cutoffFuture) {
			continue
		}
		if o.Timestamp.Year() < minYear {
			continue
		}
		cleaned = append(cleaned, o)
	}
	if len(cleaned) == 0 {
		return nil
	}

	// Stable sort keeps strategy order as the tiebreak for equal
	// timestamps, so identical HTML always resolves identically.
	sort.SliceStable(cleaned, func(i, j int) bool {
		return cleaned[i].Timestamp.After(cleaned[j].Timestamp)
	})

	best := cleaned[0]
	return &report.ResolvedDate{
		Timestamp: best.Timestamp,
		Strategy:  best.Strategy,
		Raw:       best.Raw,
	}
}
