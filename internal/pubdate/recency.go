package pubdate

import (
	"time"

	"github.com/aipdigest/reportcrawl/internal/report"
)

// IsRecent reports whether a resolved date falls within the trailing
// windowDays period ending at now. A nil resolved date is never recent;
// the caller decides whether "unknown date" means skip or keep-unverified.
func IsRecent(resolved *report.ResolvedDate, windowDays int, now time.Time) bool {
	if resolved == nil {
		return false
	}
	cutoff := now.Add(-time.Duration(windowDays) * 24 * time.Hour)
	return !resolved.Timestamp.Before(cutoff)
}

// IsRecentTime is the same gate applied to a bare timestamp, used by the
// store when enforcing its insert precondition.
func IsRecentTime(ts *time.Time, windowDays int, now time.Time) bool {
	if ts == nil {
		return false
	}
	cutoff := now.Add(-time.Duration(windowDays) * 24 * time.Hour)
	return !ts.Before(cutoff)
}
