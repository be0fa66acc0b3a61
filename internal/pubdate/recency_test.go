package pubdate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aipdigest/reportcrawl/internal/report"
)

func TestIsRecent(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 5, 5, 0, 0, 0, 0, time.UTC)

	require.False(t, IsRecent(nil, 10, now))

	oneDayAgo := &report.ResolvedDate{Timestamp: now.Add(-24 * time.Hour)}
	require.True(t, IsRecent(oneDayAgo, 10, now))

	elevenDaysAgo := &report.ResolvedDate{Timestamp: now.Add(-11 * 24 * time.Hour)}
	require.False(t, IsRecent(elevenDaysAgo, 10, now))

	exactlyAtCutoff := &report.ResolvedDate{Timestamp: now.Add(-10 * 24 * time.Hour)}
	require.True(t, IsRecent(exactlyAtCutoff, 10, now))
}

func TestIsRecentTime(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 5, 5, 0, 0, 0, 0, time.UTC)

	require.False(t, IsRecentTime(nil, 10, now))

	fresh := now.Add(-2 * 24 * time.Hour)
	require.True(t, IsRecentTime(&fresh, 10, now))

	stale := now.Add(-30 * 24 * time.Hour)
	require.False(t, IsRecentTime(&stale, 10, now))
}
