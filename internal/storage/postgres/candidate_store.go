// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aipdigest/reportcrawl/internal/pubdate"
	"github.com/aipdigest/reportcrawl/internal/report"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Errors returned by Upsert for records that must not be created.
var (
	ErrNoPublishedDate = errors.New("published date is required for new records")
	ErrStale           = errors.New("published date is outside the recency window")
)

// CandidateStoreConfig controls the Postgres connection pool used for
// candidate records.
type CandidateStoreConfig struct {
	DSN             string
	Table           string
	WindowDays      int
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// CandidateStore persists admitted candidates keyed by canonical report URL.
// It enforces the recency gate on brand-new inserts; merges into existing
// rows are never re-gated.
//
// It assumes a table schema like:
//
//	CREATE TABLE report_items (
//		id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
//		source_name TEXT NOT NULL DEFAULT '',
//		source_type TEXT NOT NULL DEFAULT 'other',
//		title TEXT NOT NULL DEFAULT '',
//		landing_page_url TEXT NOT NULL DEFAULT '',
//		report_url TEXT NOT NULL UNIQUE,
//		report_format TEXT NOT NULL DEFAULT '',
//		published_at TIMESTAMPTZ,
//		published_at_source TEXT NOT NULL DEFAULT '',
//		published_at_raw TEXT NOT NULL DEFAULT '',
//		discovered_at TIMESTAMPTZ NOT NULL,
//		sent_at TIMESTAMPTZ,
//		verified BOOLEAN,
//		verification_score INT,
//		verification_reason TEXT,
//		verified_at TIMESTAMPTZ
//	);
type CandidateStore struct {
	pool       pgxPool
	table      string
	clock      report.Clock
	windowDays int
}

// NewCandidateStore creates a Postgres-backed CandidateStore using the
// provided config.
func NewCandidateStore(ctx context.Context, cfg CandidateStoreConfig, clock report.Clock) (*CandidateStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return newStore(pool, cfg.Table, cfg.WindowDays, clock)
}

// NewCandidateStoreWithPool constructs a store from an existing pool
// (primarily for testing).
func NewCandidateStoreWithPool(pool pgxPool, table string, windowDays int, clock report.Clock) (*CandidateStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return newStore(pool, table, windowDays, clock)
}

func newStore(pool pgxPool, table string, windowDays int, clock report.Clock) (*CandidateStore, error) {
	if table == "" {
		table = "report_items"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	if windowDays <= 0 {
		windowDays = 10
	}
	if clock == nil {
		return nil, fmt.Errorf("clock is required")
	}
	return &CandidateStore{
		pool:       pool,
		table:      table,
		clock:      clock,
		windowDays: windowDays,
	}, nil
}

// Close releases the underlying pool resources.
func (s *CandidateStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

const recordColumns = `
	id,
	source_name,
	source_type,
	title,
	landing_page_url,
	report_url,
	report_format,
	published_at,
	published_at_source,
	published_at_raw,
	discovered_at,
	sent_at,
	verified,
	verification_score,
	verification_reason,
	verified_at`

// Upsert creates or merges a record keyed by report_url. New rows must carry
// a published date inside the recency window. Existing rows only gain data:
// empty text fields are backfilled, source_type is promoted away from
// "other", and published_at moves forward only. The returned bool reports
// whether anything was written; a conflicting row with nothing to gain
// returns the stored record unchanged with false.
func (s *CandidateStore) Upsert(ctx context.Context, fields report.RecordFields) (report.Record, bool, error) {
	if fields.ReportURL == "" {
		return report.Record{}, false, fmt.Errorf("report url is required")
	}

	exists, err := s.Exists(ctx, fields.ReportURL)
	if err != nil {
		return report.Record{}, false, err
	}
	if !exists {
		if fields.PublishedAt == nil {
			return report.Record{}, false, ErrNoPublishedDate
		}
		if !pubdate.IsRecentTime(fields.PublishedAt, s.windowDays, s.clock.Now()) {
			return report.Record{}, false, ErrStale
		}
	}

	// The WHERE clause repeats the merge conditions so a conflicting row
	// with nothing to gain is not rewritten; QueryRow then sees no rows and
	// the caller gets changed=false.
	query := fmt.Sprintf(`
INSERT INTO %s AS cur (
	source_name,
	source_type,
	title,
	landing_page_url,
	report_url,
	report_format,
	published_at,
	published_at_source,
	published_at_raw,
	discovered_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10
)
ON CONFLICT (report_url) DO UPDATE SET
	source_name = CASE WHEN cur.source_name = '' THEN EXCLUDED.source_name ELSE cur.source_name END,
	source_type = CASE WHEN cur.source_type = 'other' AND EXCLUDED.source_type <> 'other' THEN EXCLUDED.source_type ELSE cur.source_type END,
	title = CASE WHEN cur.title = '' THEN EXCLUDED.title ELSE cur.title END,
	landing_page_url = CASE WHEN cur.landing_page_url = '' THEN EXCLUDED.landing_page_url ELSE cur.landing_page_url END,
	report_format = CASE WHEN cur.report_format = '' THEN EXCLUDED.report_format ELSE cur.report_format END,
	published_at = CASE
		WHEN EXCLUDED.published_at IS NOT NULL AND (cur.published_at IS NULL OR EXCLUDED.published_at > cur.published_at)
		THEN EXCLUDED.published_at ELSE cur.published_at END,
	published_at_source = CASE
		WHEN EXCLUDED.published_at IS NOT NULL AND (cur.published_at IS NULL OR EXCLUDED.published_at > cur.published_at)
		THEN EXCLUDED.published_at_source ELSE cur.published_at_source END,
	published_at_raw = CASE
		WHEN EXCLUDED.published_at IS NOT NULL AND (cur.published_at IS NULL OR EXCLUDED.published_at > cur.published_at)
		THEN EXCLUDED.published_at_raw ELSE cur.published_at_raw END
WHERE (cur.source_name = '' AND EXCLUDED.source_name <> '')
	OR (cur.source_type = 'other' AND EXCLUDED.source_type <> 'other')
	OR (cur.title = '' AND EXCLUDED.title <> '')
	OR (cur.landing_page_url = '' AND EXCLUDED.landing_page_url <> '')
	OR (cur.report_format = '' AND EXCLUDED.report_format <> '')
	OR (EXCLUDED.published_at IS NOT NULL AND (cur.published_at IS NULL OR EXCLUDED.published_at > cur.published_at))
RETURNING`+recordColumns, s.table)

	sourceType := fields.SourceType
	if sourceType == "" {
		sourceType = report.SourceOther
	}

	row := s.pool.QueryRow(ctx, query,
		fields.SourceName,
		string(sourceType),
		fields.Title,
		fields.LandingPageURL,
		fields.ReportURL,
		fields.ReportFormat,
		fields.PublishedAt,
		fields.PublishedAtSource,
		fields.PublishedAtRaw,
		s.clock.Now().UTC(),
	)

	var rec report.Record
	err = scanRecord(row, &rec)
	if errors.Is(err, pgx.ErrNoRows) {
		// Conflict with nothing new to write. Return the stored row as-is.
		rec, err = s.getByURL(ctx, fields.ReportURL)
		if err != nil {
			return report.Record{}, false, err
		}
		return rec, false, nil
	}
	if err != nil {
		return report.Record{}, false, fmt.Errorf("upsert candidate: %w", err)
	}
	return rec, true, nil
}

func (s *CandidateStore) getByURL(ctx context.Context, reportURL string) (report.Record, error) {
	query := fmt.Sprintf(`
SELECT`+recordColumns+`
FROM %s
WHERE report_url = $1`, s.table)
	var rec report.Record
	if err := scanRecord(s.pool.QueryRow(ctx, query, reportURL), &rec); err != nil {
		return report.Record{}, fmt.Errorf("get candidate: %w", err)
	}
	return rec, nil
}

// Exists reports whether a record with the given report URL is stored.
func (s *CandidateStore) Exists(ctx context.Context, reportURL string) (bool, error) {
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE report_url = $1)`, s.table)
	var exists bool
	if err := s.pool.QueryRow(ctx, query, reportURL).Scan(&exists); err != nil {
		return false, fmt.Errorf("check candidate exists: %w", err)
	}
	return exists, nil
}

// ListUnverified returns records discovered since the given time that have
// no verification result yet.
func (s *CandidateStore) ListUnverified(ctx context.Context, since time.Time, limit int) ([]report.Record, error) {
	query := fmt.Sprintf(`
SELECT`+recordColumns+`
FROM %s
WHERE verified IS NULL AND discovered_at >= $1
ORDER BY discovered_at DESC
LIMIT $2`, s.table)
	return s.list(ctx, query, since, limit)
}

// ListVerifiedUnsent returns verified records that have not been included in
// a digest yet.
func (s *CandidateStore) ListVerifiedUnsent(ctx context.Context, since time.Time, limit int) ([]report.Record, error) {
	query := fmt.Sprintf(`
SELECT`+recordColumns+`
FROM %s
WHERE verified = TRUE AND sent_at IS NULL AND discovered_at >= $1
ORDER BY discovered_at DESC
LIMIT $2`, s.table)
	return s.list(ctx, query, since, limit)
}

// ListRecent returns records discovered since the given time.
func (s *CandidateStore) ListRecent(ctx context.Context, since time.Time, limit int) ([]report.Record, error) {
	query := fmt.Sprintf(`
SELECT`+recordColumns+`
FROM %s
WHERE discovered_at >= $1
ORDER BY discovered_at DESC
LIMIT $2`, s.table)
	return s.list(ctx, query, since, limit)
}

func (s *CandidateStore) list(ctx context.Context, query string, since time.Time, limit int) ([]report.Record, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, query, since, limit)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	defer rows.Close()

	var records []report.Record
	for rows.Next() {
		var rec report.Record
		if err := scanRecord(rows, &rec); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	return records, nil
}

// SaveVerification stores the verification pass result for a record.
func (s *CandidateStore) SaveVerification(ctx context.Context, id int64, v report.Verification) error {
	query := fmt.Sprintf(`
UPDATE %s
SET verified = $2, verification_score = $3, verification_reason = $4, verified_at = $5
WHERE id = $1`, s.table)
	tag, err := s.pool.Exec(ctx, query, id, v.Verified, v.Score, v.Reason, v.VerifiedAt)
	if err != nil {
		return fmt.Errorf("save verification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("save verification: record %d not found", id)
	}
	return nil
}

// MarkSent stamps sent_at on the given records. Already-sent records are
// left untouched.
func (s *CandidateStore) MarkSent(ctx context.Context, ids []int64, sentAt time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	query := fmt.Sprintf(`UPDATE %s SET sent_at = $2 WHERE id = ANY($1) AND sent_at IS NULL`, s.table)
	if _, err := s.pool.Exec(ctx, query, ids, sentAt.UTC()); err != nil {
		return fmt.Errorf("mark sent: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner, rec *report.Record) error {
	var (
		sourceType string
		verReason  *string
	)
	if err := row.Scan(
		&rec.ID,
		&rec.SourceName,
		&sourceType,
		&rec.Title,
		&rec.LandingPageURL,
		&rec.ReportURL,
		&rec.ReportFormat,
		&rec.PublishedAt,
		&rec.PublishedAtSource,
		&rec.PublishedAtRaw,
		&rec.DiscoveredAt,
		&rec.SentAt,
		&rec.Verification.Verified,
		&rec.Verification.Score,
		&verReason,
		&rec.Verification.VerifiedAt,
	); err != nil {
		return err
	}
	rec.SourceType = report.SourceType(sourceType)
	if verReason != nil {
		rec.Verification.Reason = *verReason
	}
	return nil
}
