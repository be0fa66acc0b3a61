// Package pubdate extracts and resolves publication dates from page HTML.
package pubdate

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var months = map[string]time.Month{
	"jan": time.January, "january": time.January,
	"feb": time.February, "february": time.February,
	"mar": time.March, "march": time.March,
	"apr": time.April, "april": time.April,
	"may": time.May,
	"jun": time.June, "june": time.June,
	"jul": time.July, "july": time.July,
	"aug": time.August, "august": time.August,
	"sep": time.September, "sept": time.September, "september": time.September,
	"oct": time.October, "october": time.October,
	"nov": time.November, "november": time.November,
	"dec": time.December, "december": time.December,
}

var (
	numericDatePat   = regexp.MustCompile(`\b(20\d{2})[./-](\d{1,2})[./-](\d{1,2})\b`)
	monthDayYearPat  = regexp.MustCompile(`\b([A-Za-z]{3,9})\s+(\d{1,2})(?:,)?\s+(20\d{2})\b`)
	dayMonthYearPat  = regexp.MustCompile(`\b(\d{1,2})\s+([A-Za-z]{3,9})(?:,)?\s+(20\d{2})\b`)
	ordinalSuffixPat = regexp.MustCompile(`(?i)\b(\d{1,2})(st|nd|rd|th)\b`)
)

// normalizeOrdinals rewrites "1st"/"2nd"/"3rd"/"4th" day forms to bare digits
// so the month-name patterns can match.
func normalizeOrdinals(s string) string {
	return ordinalSuffixPat.ReplaceAllString(s, "$1")
}

// parseISOLike parses 2026-01-15, 2026/01/15, 2026.01.15 and full ISO
// datetimes (with or without a zone). Naive values are assumed UTC.
func parseISOLike(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}

	m := numericDatePat.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}
	return buildDate(m[1], m[2], m[3])
}

// parseMonthNameDate parses "January 15, 2026", "Jan 15 2026" and
// "15 January 2026" after ordinal normalization.
func parseMonthNameDate(s string) (time.Time, bool) {
	t := normalizeOrdinals(strings.Join(strings.Fields(s), " "))
	if t == "" {
		return time.Time{}, false
	}

	if m := monthDayYearPat.FindStringSubmatch(t); m != nil {
		if mon, ok := months[strings.ToLower(m[1])]; ok {
			return buildMonthDate(m[3], mon, m[2])
		}
	}
	if m := dayMonthYearPat.FindStringSubmatch(t); m != nil {
		if mon, ok := months[strings.ToLower(m[2])]; ok {
			return buildMonthDate(m[3], mon, m[1])
		}
	}
	return time.Time{}, false
}

// parseAny tries the numeric forms first, then month-name forms.
func parseAny(s string) (time.Time, bool) {
	if t, ok := parseISOLike(s); ok {
		return t, true
	}
	return parseMonthNameDate(s)
}

func buildDate(year, month, day string) (time.Time, bool) {
	y, err := strconv.Atoi(year)
	if err != nil {
		return time.Time{}, false
	}
	mo, err := strconv.Atoi(month)
	if err != nil || mo < 1 || mo > 12 {
		return time.Time{}, false
	}
	d, err := strconv.Atoi(day)
	if err != nil || d < 1 || d > 31 {
		return time.Time{}, false
	}
	return time.Date(y, time.Month(mo), d, 0, 0, 0, 0, time.UTC), true
}

func buildMonthDate(year string, month time.Month, day string) (time.Time, bool) {
	y, err := strconv.Atoi(year)
	if err != nil {
		return time.Time{}, false
	}
	d, err := strconv.Atoi(day)
	if err != nil || d < 1 || d > 31 {
		return time.Time{}, false
	}
	return time.Date(y, month, d, 0, 0, 0, 0, time.UTC), true
}
