package report

import (
	"context"
	"io"
	"time"
)

// Fetcher fetches a URL and returns the body plus metadata.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (FetchResponse, error)
}

// HeadProber performs a lightweight metadata probe against a URL.
type HeadProber interface {
	Head(ctx context.Context, url string) (statusCode int, contentType string, err error)
}

// TopicalClassifier answers whether an evidence bundle is on-topic.
// Implementations return an error for transport/parse failures; an explicit
// negative answer is a successful call with Relevant=false.
type TopicalClassifier interface {
	Name() string
	Classify(ctx context.Context, ev Evidence) (Verdict, error)
}

// CandidateStore persists admitted candidates keyed by canonical report URL.
type CandidateStore interface {
	// Upsert creates or merges a record. It refuses brand-new inserts whose
	// published date fails the recency gate; backfills of existing records
	// are not re-gated. The bool reports whether anything was written: an
	// insert, a backfill, or a forward move of the published date. A
	// re-observation that adds nothing returns false.
	Upsert(ctx context.Context, fields RecordFields) (Record, bool, error)
	Exists(ctx context.Context, reportURL string) (bool, error)
	ListUnverified(ctx context.Context, since time.Time, limit int) ([]Record, error)
	ListVerifiedUnsent(ctx context.Context, since time.Time, limit int) ([]Record, error)
	ListRecent(ctx context.Context, since time.Time, limit int) ([]Record, error)
	SaveVerification(ctx context.Context, id int64, v Verification) error
	MarkSent(ctx context.Context, ids []int64, sentAt time.Time) error
}

// BlobStore writes raw artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// Publisher pushes admission events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Searcher returns result page URLs for a discovery query.
type Searcher interface {
	Search(ctx context.Context, query string, num int, recencyDays int) ([]string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
