// Package classify decides topical relevance of candidate documents.
package classify

import "strings"

// topicKeywords is the fixed vocabulary for the deterministic fallback.
var topicKeywords = []string{
	"copyright",
	"patent",
	"inventorship",
	"trademark",
	"trade secret",
	"licensing",
	"royalty",
	"infringement",
	"fair use",
	"fair dealing",
	"text and data mining",
	"tdm",
	"database right",
	"scraping",
	"training data",
	"dataset",
	"model output",
	"ai-generated",
	"generative ai",
	"deepfake",
	"synthetic media",
}

// aiIndicators must accompany topic keywords for the fallback to fire;
// IP-only documents with no AI angle are not in scope.
var aiIndicators = []string{
	" ai ",
	"artificial intelligence",
	"generative ai",
	"foundation model",
	"training data",
	"model output",
}

// litigationTokens attach a court/litigation tag; they never cause
// rejection by themselves.
var litigationTokens = []string{
	" v. ",
	" vs. ",
	"lawsuit",
	"court",
	"judge",
	"ruling",
	"verdict",
	"litigation",
	"appeal",
	"supreme court",
	"district court",
	"complaint",
	"plaintiff",
	"defendant",
	"injunction",
	"class action",
	"settlement",
}

const maxKeywordHits = 25

// KeywordHits returns the topic keywords present in the text, capped.
func KeywordHits(text string) []string {
	blob := strings.ToLower(text)
	var hits []string
	for _, kw := range topicKeywords {
		if strings.Contains(blob, kw) {
			hits = append(hits, kw)
			if len(hits) >= maxKeywordHits {
				break
			}
		}
	}
	return hits
}

// keywordSignal is the deterministic fallback: at least two topic keywords
// and at least one AI indicator.
func keywordSignal(hits []string, text string) bool {
	if len(hits) < 2 {
		return false
	}
	blob := strings.ToLower(text)
	for _, ind := range aiIndicators {
		if strings.Contains(blob, ind) {
			return true
		}
	}
	return false
}

// hasLitigationSignal reports whether the text reads court/litigation
// focused.
func hasLitigationSignal(text string) bool {
	blob := strings.ToLower(text)
	for _, tok := range litigationTokens {
		if strings.Contains(blob, tok) {
			return true
		}
	}
	return false
}
