// Package report defines core types shared across subsystems.
package report

import (
	"net/http"
	"time"
)

// EvidenceKind identifies how a document link was discovered on a page.
type EvidenceKind string

// Evidence kinds attached to link candidates.
const (
	EvidenceHref EvidenceKind = "href"
	EvidenceSrc  EvidenceKind = "src"
)

// SourceType classifies the publishing organization.
type SourceType string

// Source types persisted with candidate records.
const (
	SourceGovernment        SourceType = "government"
	SourceIntergovernmental SourceType = "intergovernmental"
	SourceRegulator         SourceType = "regulator"
	SourceCourt             SourceType = "court"
	SourceResearchCenter    SourceType = "research_center"
	SourceUniversity        SourceType = "university"
	SourceLawFirm           SourceType = "law_firm"
	SourceConsultingFirm    SourceType = "consulting_firm"
	SourceThinkTank         SourceType = "think_tank"
	SourceStandardsBody     SourceType = "standards_body"
	SourceOther             SourceType = "other"
)

// LinkCandidate is a scored document link detected on a page. Candidates are
// ephemeral; only admitted ones reach the store as Records.
type LinkCandidate struct {
	URL      string       `json:"url"`
	Format   string       `json:"format"`
	Evidence EvidenceKind `json:"evidence"`
	Context  string       `json:"context"`
	Score    int          `json:"score"`
}

// DateObservation is a single dated piece of evidence found in page HTML.
type DateObservation struct {
	Timestamp time.Time
	Strategy  string
	Raw       string
}

// ResolvedDate is the observation chosen to represent a page's publication
// date. Timestamp is always within [1990, now+2d] when present.
type ResolvedDate struct {
	Timestamp time.Time
	Strategy  string
	Raw       string
}

// Outcome is the tri-state result of topical classification.
type Outcome string

// Classification outcomes. Unknown means every signal source was
// unavailable; it must never be conflated with NotRelevant.
const (
	OutcomeRelevant    Outcome = "relevant"
	OutcomeNotRelevant Outcome = "not_relevant"
	OutcomeUnknown     Outcome = "unknown"
)

// Verdict is one classifier invocation's answer. Errored verdicts carry the
// failure reason and must not count as a negative signal.
type Verdict struct {
	Relevant   bool    `json:"relevant"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
	Errored    bool    `json:"errored"`
}

// Classification is the combined decision over all signal sources.
type Classification struct {
	Outcome Outcome  `json:"outcome"`
	Tags    []string `json:"tags,omitempty"`
	Reason  string   `json:"reason"`
}

// Evidence is the bundle handed to topical classifiers.
type Evidence struct {
	TodayISO       string   `json:"today_iso"`
	Title          string   `json:"title"`
	SourceName     string   `json:"source_name"`
	LandingPageURL string   `json:"landing_page_url"`
	ReportURL      string   `json:"report_url"`
	DateISO        string   `json:"date_iso"`
	DateSource     string   `json:"date_source"`
	DateRaw        string   `json:"date_raw"`
	Excerpt        string   `json:"excerpt"`
	KeywordHits    []string `json:"keyword_hits,omitempty"`
}

// Verification holds the result of the post-admission verification pass.
type Verification struct {
	Verified   *bool      `json:"verified,omitempty"`
	Score      *int       `json:"score,omitempty"`
	Reason     string     `json:"reason,omitempty"`
	VerifiedAt *time.Time `json:"verified_at,omitempty"`
}

// RecordFields is the caller-supplied slice of a Record used by Upsert.
type RecordFields struct {
	SourceName        string
	SourceType        SourceType
	Title             string
	LandingPageURL    string
	ReportURL         string
	ReportFormat      string
	PublishedAt       *time.Time
	PublishedAtSource string
	PublishedAtRaw    string
}

// Record is the persisted form of an admitted candidate. ReportURL is the
// unique dedup key; DiscoveredAt is set once at creation and never mutated.
type Record struct {
	ID                int64        `json:"id"`
	SourceName        string       `json:"source_name"`
	SourceType        SourceType   `json:"source_type"`
	Title             string       `json:"title"`
	LandingPageURL    string       `json:"landing_page_url"`
	ReportURL         string       `json:"report_url"`
	ReportFormat      string       `json:"report_format"`
	PublishedAt       *time.Time   `json:"published_at,omitempty"`
	PublishedAtSource string       `json:"published_at_source"`
	PublishedAtRaw    string       `json:"published_at_raw"`
	DiscoveredAt      time.Time    `json:"discovered_at"`
	SentAt            *time.Time   `json:"sent_at,omitempty"`
	Verification      Verification `json:"verification"`
}

// FetchRequest captures everything needed to fetch a URL.
type FetchRequest struct {
	URL         string
	Headers     http.Header
	UseHeadless bool
}

// FetchResponse is the result returned by a Fetcher implementation.
type FetchResponse struct {
	URL          string
	StatusCode   int
	Headers      http.Header
	Body         []byte
	Duration     time.Duration
	UsedHeadless bool
}

// RunCounters tracks per-run pipeline outcomes.
type RunCounters struct {
	Admitted           int `json:"admitted"`
	SkippedTransport   int `json:"skipped_transport"`
	SkippedNoDate      int `json:"skipped_no_date"`
	SkippedStale       int `json:"skipped_stale"`
	SkippedNotRelevant int `json:"skipped_not_relevant"`
	SkippedJunk        int `json:"skipped_junk"`
	SkippedCrossDomain int `json:"skipped_cross_domain"`
	SkippedDuplicate   int `json:"skipped_duplicate"`
	ClassifierUnknown  int `json:"classifier_unknown"`
}

// Add accumulates another counter set into c.
func (c *RunCounters) Add(other RunCounters) {
	c.Admitted += other.Admitted
	c.SkippedTransport += other.SkippedTransport
	c.SkippedNoDate += other.SkippedNoDate
	c.SkippedStale += other.SkippedStale
	c.SkippedNotRelevant += other.SkippedNotRelevant
	c.SkippedJunk += other.SkippedJunk
	c.SkippedCrossDomain += other.SkippedCrossDomain
	c.SkippedDuplicate += other.SkippedDuplicate
	c.ClassifierUnknown += other.ClassifierUnknown
}
