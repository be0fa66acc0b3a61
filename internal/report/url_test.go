package report

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanonicalizeStripsTrackingParams(t *testing.T) {
	t.Parallel()

	got, err := Canonicalize("https://Example.com/report.pdf?utm_source=mail&b=2&a=1&gclid=xyz#section")
	require.NoError(t, err)
	require.Equal(t, "https://example.com/report.pdf?a=1&b=2", got)
}

func TestCanonicalizeRemovesDefaultPorts(t *testing.T) {
	t.Parallel()

	got, err := Canonicalize("https://example.com:443/a")
	require.NoError(t, err)
	require.Equal(t, "https://example.com/a", got)

	got, err = Canonicalize("http://example.com:80/a")
	require.NoError(t, err)
	require.Equal(t, "http://example.com/a", got)
}

func TestCanonicalizeSameKeyForTrackingVariants(t *testing.T) {
	t.Parallel()

	a, err := Canonicalize("https://example.com/r.pdf?fbclid=123")
	require.NoError(t, err)
	b, err := Canonicalize("https://example.com/r.pdf")
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestCrossDomain(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		landing   string
		candidate string
		want      bool
	}{
		{"same host", "https://www.wipo.int/p", "https://www.wipo.int/doc.pdf", false},
		{"cdn subdomain", "https://www.oecd.org/p", "https://cdn.oecd.org/doc.pdf", false},
		{"unrelated host", "https://www.oecd.org/p", "https://mirror.example.net/doc.pdf", true},
		{"unparseable candidate", "https://www.oecd.org/p", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, CrossDomain(tc.landing, tc.candidate))
		})
	}
}
