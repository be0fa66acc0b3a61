package pubdate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseISOLike(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"2026-01-15", time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), true},
		{"2026/01/15", time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), true},
		{"2026.01.15", time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), true},
		{"2026-01-15T12:34:56Z", time.Date(2026, 1, 15, 12, 34, 56, 0, time.UTC), true},
		{"2026-01-15T12:34:56+02:00", time.Date(2026, 1, 15, 10, 34, 56, 0, time.UTC), true},
		{"", time.Time{}, false},
		{"not a date", time.Time{}, false},
		{"2026-13-40", time.Time{}, false},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			t.Parallel()
			got, ok := parseISOLike(tc.in)
			require.Equal(t, tc.ok, ok)
			if tc.ok {
				require.True(t, got.Equal(tc.want), "got %v want %v", got, tc.want)
			}
		})
	}
}

func TestParseMonthNameDate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"January 15, 2026", time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), true},
		{"Jan 15 2026", time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), true},
		{"15 January 2026", time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), true},
		{"3rd March 2026", time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC), true},
		{"March 3rd, 2026", time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC), true},
		{"Smarch 13 2026", time.Time{}, false},
		{"", time.Time{}, false},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			t.Parallel()
			got, ok := parseMonthNameDate(tc.in)
			require.Equal(t, tc.ok, ok)
			if tc.ok {
				require.Equal(t, tc.want, got)
			}
		})
	}
}
