package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aipdigest/reportcrawl/internal/pubdate"
	"github.com/aipdigest/reportcrawl/internal/report"
	"github.com/aipdigest/reportcrawl/internal/storage/postgres"
)

// CandidateStore provides an in-memory implementation for development and
// testing. It mirrors the Postgres store's merge semantics: empty fields are
// backfilled, source_type is promoted away from "other", published_at moves
// forward only, and brand-new inserts must pass the recency gate.
type CandidateStore struct {
	mu         sync.RWMutex
	byURL      map[string]*report.Record
	nextID     int64
	clock      report.Clock
	windowDays int
}

// NewCandidateStore constructs a CandidateStore.
func NewCandidateStore(windowDays int, clock report.Clock) *CandidateStore {
	if windowDays <= 0 {
		windowDays = 10
	}
	return &CandidateStore{
		byURL:      make(map[string]*report.Record),
		nextID:     1,
		clock:      clock,
		windowDays: windowDays,
	}
}

// Upsert creates or merges a record keyed by report URL. The returned bool
// reports whether anything was written: a new row, a backfill, a source_type
// promotion, or a forward move of the published date.
func (s *CandidateStore) Upsert(_ context.Context, fields report.RecordFields) (report.Record, bool, error) {
	if fields.ReportURL == "" {
		return report.Record{}, false, fmt.Errorf("report url is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.byURL[fields.ReportURL]; ok {
		changed := merge(existing, fields)
		return *existing, changed, nil
	}

	if fields.PublishedAt == nil {
		return report.Record{}, false, postgres.ErrNoPublishedDate
	}
	if !pubdate.IsRecentTime(fields.PublishedAt, s.windowDays, s.clock.Now()) {
		return report.Record{}, false, postgres.ErrStale
	}

	sourceType := fields.SourceType
	if sourceType == "" {
		sourceType = report.SourceOther
	}
	published := *fields.PublishedAt
	rec := &report.Record{
		ID:                s.nextID,
		SourceName:        fields.SourceName,
		SourceType:        sourceType,
		Title:             fields.Title,
		LandingPageURL:    fields.LandingPageURL,
		ReportURL:         fields.ReportURL,
		ReportFormat:      fields.ReportFormat,
		PublishedAt:       &published,
		PublishedAtSource: fields.PublishedAtSource,
		PublishedAtRaw:    fields.PublishedAtRaw,
		DiscoveredAt:      s.clock.Now().UTC(),
	}
	s.nextID++
	s.byURL[fields.ReportURL] = rec
	return *rec, true, nil
}

// merge folds new observations into an existing record and reports whether
// any field was actually written.
func merge(rec *report.Record, fields report.RecordFields) bool {
	changed := false
	if rec.SourceName == "" && fields.SourceName != "" {
		rec.SourceName = fields.SourceName
		changed = true
	}
	if rec.SourceType == report.SourceOther && fields.SourceType != "" && fields.SourceType != report.SourceOther {
		rec.SourceType = fields.SourceType
		changed = true
	}
	if rec.Title == "" && fields.Title != "" {
		rec.Title = fields.Title
		changed = true
	}
	if rec.LandingPageURL == "" && fields.LandingPageURL != "" {
		rec.LandingPageURL = fields.LandingPageURL
		changed = true
	}
	if rec.ReportFormat == "" && fields.ReportFormat != "" {
		rec.ReportFormat = fields.ReportFormat
		changed = true
	}
	if fields.PublishedAt != nil && (rec.PublishedAt == nil || fields.PublishedAt.After(*rec.PublishedAt)) {
		published := *fields.PublishedAt
		rec.PublishedAt = &published
		rec.PublishedAtSource = fields.PublishedAtSource
		rec.PublishedAtRaw = fields.PublishedAtRaw
		changed = true
	}
	return changed
}

// Exists reports whether a record with the given report URL is stored.
func (s *CandidateStore) Exists(_ context.Context, reportURL string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byURL[reportURL]
	return ok, nil
}

// ListUnverified returns records discovered since the given time with no
// verification result yet.
func (s *CandidateStore) ListUnverified(_ context.Context, since time.Time, limit int) ([]report.Record, error) {
	return s.filter(since, limit, func(r *report.Record) bool {
		return r.Verification.Verified == nil
	}), nil
}

// ListVerifiedUnsent returns verified records not yet included in a digest.
func (s *CandidateStore) ListVerifiedUnsent(_ context.Context, since time.Time, limit int) ([]report.Record, error) {
	return s.filter(since, limit, func(r *report.Record) bool {
		return r.Verification.Verified != nil && *r.Verification.Verified && r.SentAt == nil
	}), nil
}

// ListRecent returns records discovered since the given time.
func (s *CandidateStore) ListRecent(_ context.Context, since time.Time, limit int) ([]report.Record, error) {
	return s.filter(since, limit, func(*report.Record) bool { return true }), nil
}

func (s *CandidateStore) filter(since time.Time, limit int, keep func(*report.Record) bool) []report.Record {
	if limit <= 0 {
		limit = 100
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []report.Record
	for _, rec := range s.byURL {
		if rec.DiscoveredAt.Before(since) || !keep(rec) {
			continue
		}
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DiscoveredAt.Equal(out[j].DiscoveredAt) {
			return out[i].DiscoveredAt.After(out[j].DiscoveredAt)
		}
		return out[i].ID > out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// SaveVerification stores the verification pass result for a record.
func (s *CandidateStore) SaveVerification(_ context.Context, id int64, v report.Verification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.byURL {
		if rec.ID == id {
			rec.Verification = v
			return nil
		}
	}
	return fmt.Errorf("record %d not found", id)
}

// MarkSent stamps SentAt on the given records, skipping already-sent ones.
func (s *CandidateStore) MarkSent(_ context.Context, ids []int64, sentAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	wanted := make(map[int64]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	at := sentAt.UTC()
	for _, rec := range s.byURL {
		if wanted[rec.ID] && rec.SentAt == nil {
			ts := at
			rec.SentAt = &ts
		}
	}
	return nil
}
