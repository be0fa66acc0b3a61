// Package metrics exposes Prometheus collectors for the report crawler.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	pagesFetchedTotal          *prometheus.CounterVec
	candidatesTotal            *prometheus.CounterVec
	admittedTotal              *prometheus.CounterVec
	dateResolutionsTotal       *prometheus.CounterVec
	classifierVerdictsTotal    *prometheus.CounterVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	runDurationSeconds         prometheus.Histogram
	activeWorkers              prometheus.Gauge

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		pagesFetchedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reportcrawl_pages_fetched_total",
				Help: "Total landing pages and documents fetched, labeled by site and status.",
			},
			[]string{"site", "status"},
		)

		candidatesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reportcrawl_candidates_total",
				Help: "Total link candidates processed, labeled by final outcome.",
			},
			[]string{"outcome"},
		)

		admittedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reportcrawl_admitted_total",
				Help: "Total admitted report records, labeled by source type.",
			},
			[]string{"source_type"},
		)

		dateResolutionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reportcrawl_date_resolutions_total",
				Help: "Total resolved publication dates, labeled by winning strategy.",
			},
			[]string{"strategy"},
		)

		classifierVerdictsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reportcrawl_classifier_verdicts_total",
				Help: "Total classifier provider answers, labeled by provider and verdict.",
			},
			[]string{"provider", "verdict"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)

		runDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "reportcrawl_run_duration_seconds",
				Help:    "Histogram of end-to-end discovery run durations.",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
		)

		activeWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "reportcrawl_active_workers",
				Help: "Number of workers currently validating a candidate.",
			},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveFetch increments the page fetch metrics.
func ObserveFetch(site string, statusCode int) {
	pagesFetchedTotal.WithLabelValues(SanitizeSite(site), strconv.Itoa(statusCode)).Inc()
}

// ObserveCandidate records a candidate's final pipeline outcome.
func ObserveCandidate(outcome string) {
	candidatesTotal.WithLabelValues(outcome).Inc()
}

// ObserveAdmission records an admitted report by source type.
func ObserveAdmission(sourceType string) {
	admittedTotal.WithLabelValues(sourceType).Inc()
}

// ObserveDateResolution records which strategy produced the winning date.
func ObserveDateResolution(strategy string) {
	dateResolutionsTotal.WithLabelValues(strategy).Inc()
}

// ObserveClassifierVerdict records one provider answer.
func ObserveClassifierVerdict(provider, verdict string) {
	classifierVerdictsTotal.WithLabelValues(provider, verdict).Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveRunDuration records an end-to-end run duration.
func ObserveRunDuration(d time.Duration) {
	runDurationSeconds.Observe(d.Seconds())
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	activeWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	activeWorkers.Dec()
}
