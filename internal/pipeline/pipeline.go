// Package pipeline drives discovery runs: search or seed pages in, admitted
// report records out.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/aipdigest/reportcrawl/internal/fetcher/headless/detector"
	"github.com/aipdigest/reportcrawl/internal/htmltext"
	"github.com/aipdigest/reportcrawl/internal/linkrank"
	"github.com/aipdigest/reportcrawl/internal/metrics"
	"github.com/aipdigest/reportcrawl/internal/pubdate"
	"github.com/aipdigest/reportcrawl/internal/report"
)

// Config tunes a discovery run.
type Config struct {
	WindowDays       int
	ResultsPerQuery  int
	MaxChildLinks    int
	ExcerptMaxChars  int
	DocumentMaxPages int
	Concurrency      int
	ArchivePrefix    string
	AdmissionTopic   string
	// AdmitUnknown lets candidates the classifiers could not judge through
	// to the store; the verification pass re-checks them later. Off by
	// default: unknown outcomes are counted and skipped.
	AdmitUnknown bool
}

// Classifier is the combined topical decision surface the pipeline needs.
type Classifier interface {
	Classify(ctx context.Context, ev report.Evidence) report.Classification
}

// Deps holds the pipeline's collaborators. Fetcher, Ranker, Resolver,
// Classifier, Store, and Clock are required; the rest degrade gracefully
// when nil.
type Deps struct {
	Fetcher    report.Fetcher
	Headless   report.Fetcher
	Promoter   *detector.Heuristic
	Ranker     *linkrank.Ranker
	Resolver   *pubdate.Resolver
	Classifier Classifier
	Store      report.CandidateStore
	Blobs      report.BlobStore
	Publisher  report.Publisher
	Searcher   report.Searcher
	Clock      report.Clock
	IDs        report.IDGenerator
	Logger     *zap.Logger
}

// Summary reports the outcome of one discovery run.
type Summary struct {
	RunID    string
	Counters report.RunCounters
	Duration time.Duration
}

// Pipeline validates link candidates and admits recent, on-topic reports.
type Pipeline struct {
	cfg  Config
	deps Deps
}

// New builds a Pipeline.
func New(cfg Config, deps Deps) (*Pipeline, error) {
	if deps.Fetcher == nil || deps.Ranker == nil || deps.Resolver == nil ||
		deps.Classifier == nil || deps.Store == nil || deps.Clock == nil {
		return nil, fmt.Errorf("fetcher, ranker, resolver, classifier, store, and clock are required")
	}
	if cfg.WindowDays <= 0 {
		cfg.WindowDays = 10
	}
	if cfg.ResultsPerQuery <= 0 {
		cfg.ResultsPerQuery = 8
	}
	if cfg.MaxChildLinks <= 0 {
		cfg.MaxChildLinks = 25
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.ArchivePrefix == "" {
		cfg.ArchivePrefix = "reports"
	}
	if cfg.AdmissionTopic == "" {
		cfg.AdmissionTopic = "reports.admitted"
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Pipeline{cfg: cfg, deps: deps}, nil
}

// RunQueries performs query-driven discovery. Each query's result pages are
// visited in rank order and the query stops at its first admitted
// candidate; queries run concurrently up to the configured limit.
func (p *Pipeline) RunQueries(ctx context.Context, queries []string) (Summary, error) {
	if p.deps.Searcher == nil {
		return Summary{}, fmt.Errorf("searcher is required for query-driven discovery")
	}
	return p.run(ctx, queries, p.runQuery)
}

// RunSeeds performs seed-driven discovery. Every child page of every seed is
// validated exhaustively; seeds run concurrently up to the configured limit.
func (p *Pipeline) RunSeeds(ctx context.Context, seeds []string) (Summary, error) {
	return p.run(ctx, seeds, p.runSeed)
}

func (p *Pipeline) run(ctx context.Context, units []string, work func(context.Context, string, *report.RunCounters)) (Summary, error) {
	runID := p.newRunID()
	start := p.deps.Clock.Now()
	logger := p.deps.Logger.With(zap.String("run_id", runID))
	logger.Info("discovery run starting", zap.Int("units", len(units)))

	var (
		mu    sync.Mutex
		total report.RunCounters
		wg    sync.WaitGroup
	)
	sem := make(chan struct{}, p.cfg.Concurrency)
	for _, unit := range units {
		wg.Add(1)
		go func(unit string) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}
			metrics.IncActiveWorkers()
			defer metrics.DecActiveWorkers()

			var counters report.RunCounters
			work(ctx, unit, &counters)
			mu.Lock()
			total.Add(counters)
			mu.Unlock()
		}(unit)
	}
	wg.Wait()

	duration := p.deps.Clock.Now().Sub(start)
	metrics.ObserveRunDuration(duration)
	logger.Info("discovery run finished",
		zap.Int("admitted", total.Admitted),
		zap.Int("skipped_transport", total.SkippedTransport),
		zap.Int("skipped_no_date", total.SkippedNoDate),
		zap.Int("skipped_stale", total.SkippedStale),
		zap.Int("skipped_not_relevant", total.SkippedNotRelevant),
		zap.Int("classifier_unknown", total.ClassifierUnknown),
		zap.Duration("duration", duration),
	)
	return Summary{RunID: runID, Counters: total, Duration: duration}, ctx.Err()
}

// runQuery visits a query's result pages in order and stops at the first
// admitted candidate.
func (p *Pipeline) runQuery(ctx context.Context, query string, counters *report.RunCounters) {
	logger := p.deps.Logger.With(zap.String("query", query))
	urls, err := p.deps.Searcher.Search(ctx, query, p.cfg.ResultsPerQuery, p.cfg.WindowDays)
	if err != nil {
		logger.Warn("search failed", zap.Error(err))
		return
	}
	for _, pageURL := range urls {
		if ctx.Err() != nil {
			return
		}
		if p.processLandingPage(ctx, pageURL, counters, true) {
			logger.Info("query satisfied", zap.String("landing_page", pageURL))
			return
		}
	}
}

// runSeed extracts a seed page's child links and validates every one.
func (p *Pipeline) runSeed(ctx context.Context, seedURL string, counters *report.RunCounters) {
	logger := p.deps.Logger.With(zap.String("seed", seedURL))
	resp, err := p.fetchPage(ctx, seedURL)
	if err != nil {
		logger.Warn("seed fetch failed", zap.Error(err))
		counters.SkippedTransport++
		return
	}

	children := htmltext.ChildLinks(seedURL, string(resp.Body), p.cfg.MaxChildLinks)
	logger.Debug("seed expanded", zap.Int("children", len(children)))

	// The seed itself may be a report landing page.
	pages := append([]string{seedURL}, children...)
	for _, pageURL := range pages {
		if ctx.Err() != nil {
			return
		}
		p.processLandingPage(ctx, pageURL, counters, false)
	}
}

// processLandingPage fetches a landing page, ranks its document links, and
// validates candidates in score order. With stopAtFirst it returns after
// the first admission.
func (p *Pipeline) processLandingPage(ctx context.Context, pageURL string, counters *report.RunCounters, stopAtFirst bool) bool {
	logger := p.deps.Logger.With(zap.String("landing_page", pageURL))

	resp, err := p.fetchPage(ctx, pageURL)
	if err != nil {
		logger.Debug("landing fetch failed", zap.Error(err))
		counters.SkippedTransport++
		metrics.ObserveCandidate("skipped_transport")
		return false
	}

	html := string(resp.Body)
	title := htmltext.Title(html)
	resolved := p.deps.Resolver.Resolve(html)
	if resolved != nil {
		metrics.ObserveDateResolution(resolved.Strategy)
	}

	candidates := p.deps.Ranker.Rank(ctx, pageURL, html)
	pageScore := linkrank.ScorePage(pageURL, title)
	for i := range candidates {
		candidates[i].Score += pageScore
	}

	admitted := false
	for _, cand := range candidates {
		if ctx.Err() != nil {
			return admitted
		}
		if p.validateCandidate(ctx, pageURL, title, html, resolved, cand, counters) {
			admitted = true
			if stopAtFirst {
				return true
			}
		}
	}
	return admitted
}

// fetchPage fetches via the plain fetcher, promoting to headless when the
// response looks like a client-rendered shell. Failures of the headless
// path fall back to the original response.
func (p *Pipeline) fetchPage(ctx context.Context, pageURL string) (report.FetchResponse, error) {
	resp, err := p.deps.Fetcher.Fetch(ctx, report.FetchRequest{URL: pageURL})
	if err != nil {
		return report.FetchResponse{}, err
	}
	metrics.ObserveFetch(pageURL, resp.StatusCode)
	if resp.StatusCode >= 400 {
		return report.FetchResponse{}, fmt.Errorf("landing page HTTP %d", resp.StatusCode)
	}

	if p.deps.Headless != nil && p.deps.Promoter != nil && p.deps.Promoter.ShouldPromote(resp) {
		rendered, hErr := p.deps.Headless.Fetch(ctx, report.FetchRequest{URL: pageURL, UseHeadless: true})
		if hErr != nil {
			p.deps.Logger.Debug("headless promotion failed",
				zap.String("landing_page", pageURL),
				zap.Error(hErr),
			)
			return resp, nil
		}
		return rendered, nil
	}
	if len(resp.Body) == 0 {
		return report.FetchResponse{}, fmt.Errorf("landing page returned empty body")
	}
	return resp, nil
}

func (p *Pipeline) newRunID() string {
	if p.deps.IDs != nil {
		if id, err := p.deps.IDs.NewID(); err == nil {
			return id
		}
	}
	return fmt.Sprintf("run-%d", p.deps.Clock.Now().UnixNano())
}

func archiveFilename(reportURL string) string {
	trimmed := strings.TrimSuffix(reportURL, "/")
	if i := strings.LastIndex(trimmed, "/"); i >= 0 && i < len(trimmed)-1 {
		trimmed = trimmed[i+1:]
	}
	if i := strings.IndexByte(trimmed, '?'); i >= 0 {
		trimmed = trimmed[:i]
	}
	if trimmed == "" || trimmed == "http:" || trimmed == "https:" {
		return "document.pdf"
	}
	return trimmed
}
