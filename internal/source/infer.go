// Package source infers publishing organizations from URLs.
package source

import (
	"net/url"
	"strings"

	"github.com/aipdigest/reportcrawl/internal/report"
)

type known struct {
	name string
	kind report.SourceType
}

// domainMap covers organizations the pipeline encounters most often. Hosts
// not listed fall back to the bare hostname with type "other"; the store
// promotes the type later if a better observation arrives.
var domainMap = map[string]known{
	"wipo.int":             {"WIPO", report.SourceIntergovernmental},
	"copyright.gov":        {"US Copyright Office", report.SourceGovernment},
	"uspto.gov":            {"USPTO", report.SourceGovernment},
	"nist.gov":             {"NIST", report.SourceGovernment},
	"gov.uk":               {"UK Government (GOV.UK)", report.SourceGovernment},
	"euipo.europa.eu":      {"EUIPO", report.SourceRegulator},
	"epo.org":              {"EPO", report.SourceRegulator},
	"edpb.europa.eu":       {"EDPB", report.SourceRegulator},
	"oecd.org":             {"OECD", report.SourceIntergovernmental},
	"wto.org":              {"WTO", report.SourceIntergovernmental},
	"whitehouse.gov":       {"The White House", report.SourceGovernment},
	"congress.gov":         {"U.S. Congress", report.SourceGovernment},
	"uschamber.com":        {"U.S. Chamber of Commerce", report.SourceOther},
	"commerce.gov":         {"U.S. Department of Commerce", report.SourceGovernment},
	"patentlyo.com":        {"Patently-O", report.SourceOther},
	"stateof.ai":           {"State of AI Report", report.SourceResearchCenter},
	"jpo.go.jp":            {"JPO", report.SourceGovernment},
	"kipo.go.kr":           {"KIPO", report.SourceGovernment},
	"ipindia.gov.in":       {"IPO India", report.SourceGovernment},
	"ipaustralia.gov.au":   {"IP Australia", report.SourceGovernment},
	"ised-isde.canada.ca":  {"CIPO (Canada)", report.SourceGovernment},
}

// Infer maps a URL to a source name and type. Unknown hosts return the host
// itself as the name and type "other".
func Infer(rawURL string) (string, report.SourceType) {
	host := ""
	if u, err := url.Parse(rawURL); err == nil {
		host = strings.ToLower(u.Host)
	}
	if host == "" {
		return "Unknown", report.SourceOther
	}
	lookup := strings.TrimPrefix(host, "www.")
	if k, ok := domainMap[lookup]; ok {
		return k.name, k.kind
	}
	return host, report.SourceOther
}
