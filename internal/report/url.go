package report

import (
	"fmt"
	"net/url"
	"strings"
)

// trackingParams are query parameters stripped before a URL is used as a
// dedup key.
var trackingParams = map[string]struct{}{
	"utm_source":   {},
	"utm_medium":   {},
	"utm_campaign": {},
	"utm_term":     {},
	"utm_content":  {},
	"gclid":        {},
	"fbclid":       {},
	"mc_cid":       {},
	"mc_eid":       {},
}

// Canonicalize produces a stable dedup key for a URL. It lowercases the
// scheme and host, removes default ports and fragments, strips known
// tracking parameters, and sorts the remaining query parameters.
func Canonicalize(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	if u.Scheme == "http" {
		u.Host = strings.TrimSuffix(u.Host, ":80")
	}
	if u.Scheme == "https" {
		u.Host = strings.TrimSuffix(u.Host, ":443")
	}

	u.Fragment = ""

	q := u.Query()
	for key := range q {
		if _, tracked := trackingParams[key]; tracked {
			q.Del(key)
		}
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// Host returns the lowercased host of a URL, or "" if it cannot be parsed.
func Host(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}

// SameHost reports whether two URLs share a host.
func SameHost(a, b string) bool {
	ha, hb := Host(a), Host(b)
	return ha != "" && ha == hb
}

// CrossDomain reports whether candidateURL points at a different
// organization than landingURL. Hosts sharing the landing host's base label
// (www stripped) are treated as same-organization CDNs and allowed.
func CrossDomain(landingURL, candidateURL string) bool {
	h1 := Host(landingURL)
	h2 := Host(candidateURL)
	if h1 == "" || h2 == "" {
		return false
	}
	if h1 == h2 {
		return false
	}
	base := strings.TrimPrefix(h1, "www.")
	if base != "" && strings.Contains(strings.TrimPrefix(h2, "www."), base) {
		return false
	}
	return true
}
