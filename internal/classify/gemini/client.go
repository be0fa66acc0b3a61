// Package gemini implements a topical classifier backed by the Gemini
// generateContent API.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aipdigest/reportcrawl/internal/report"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com"

// Config controls the Gemini client.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// Client calls Gemini generateContent and parses a strict-JSON verdict.
type Client struct {
	cfg  Config
	http *http.Client
}

// New builds a Client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-1.5-flash"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Name identifies this provider in combined decisions.
func (c *Client) Name() string { return "gemini" }

type generateRequest struct {
	Contents []content `json:"contents"`
	Config   genConfig `json:"generationConfig"`
}

type content struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type genConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

type verdictPayload struct {
	IsAIIPReport bool    `json:"is_ai_ip_report"`
	Confidence   float64 `json:"confidence"`
	Reason       string  `json:"reason"`
}

// Classify asks the model whether the evidence describes an AI-and-IP
// policy/report document. Transport and parse failures are errors; callers
// must not treat them as negative verdicts.
func (c *Client) Classify(ctx context.Context, ev report.Evidence) (report.Verdict, error) {
	reqBody := generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: buildPrompt(ev)}}}},
		Config:   genConfig{Temperature: 0.2, MaxOutputTokens: 400},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return report.Verdict{}, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.cfg.BaseURL, c.cfg.Model, c.cfg.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return report.Verdict{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return report.Verdict{}, fmt.Errorf("gemini request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return report.Verdict{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return report.Verdict{}, fmt.Errorf("gemini HTTP %d: %s", resp.StatusCode, truncate(string(body), 180))
	}

	var gr generateResponse
	if err := json.Unmarshal(body, &gr); err != nil {
		return report.Verdict{}, fmt.Errorf("decode response: %w", err)
	}
	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		return report.Verdict{}, fmt.Errorf("gemini returned no candidates")
	}

	text := strings.TrimSpace(gr.Candidates[0].Content.Parts[0].Text)
	vp, err := parseVerdictJSON(text)
	if err != nil {
		return report.Verdict{}, fmt.Errorf("gemini non-JSON verdict: %w", err)
	}

	return report.Verdict{
		Relevant:   vp.IsAIIPReport,
		Confidence: vp.Confidence,
		Reason:     vp.Reason,
	}, nil
}

// parseVerdictJSON tolerates markdown code fences the model sometimes wraps
// around its JSON.
func parseVerdictJSON(text string) (verdictPayload, error) {
	cleaned := strings.TrimSpace(text)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.Trim(cleaned, "`")
		cleaned = strings.TrimSpace(strings.TrimPrefix(cleaned, "json"))
	}
	var vp verdictPayload
	if err := json.Unmarshal([]byte(cleaned), &vp); err == nil {
		return vp, nil
	}
	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(cleaned[start:end+1]), &vp); err == nil {
			return vp, nil
		}
	}
	return verdictPayload{}, fmt.Errorf("no JSON object in %q", truncate(text, 180))
}

func buildPrompt(ev report.Evidence) string {
	var b strings.Builder
	b.WriteString("You validate whether a candidate report is an AI + Intellectual Property policy/law/guidance document.\n")
	b.WriteString("Be generous on relevance (copyright, patent, trademark, trade secrets, licensing, training data, TDM, IP office guidance).\n")
	b.WriteString("Court/litigation analyses are allowed if they discuss broader policy/guidance/compliance implications.\n\n")
	b.WriteString("Return ONLY JSON with keys: is_ai_ip_report (boolean), confidence (number 0-1), reason (short string).\n\n")
	fmt.Fprintf(&b, "Today: %s\n", ev.TodayISO)
	fmt.Fprintf(&b, "Title: %s\n", ev.Title)
	fmt.Fprintf(&b, "Source: %s\n", ev.SourceName)
	fmt.Fprintf(&b, "Landing page: %s\n", ev.LandingPageURL)
	fmt.Fprintf(&b, "Document: %s\n", ev.ReportURL)
	fmt.Fprintf(&b, "Landing page date evidence: %s (%s | %s)\n", ev.DateISO, ev.DateSource, ev.DateRaw)
	if len(ev.KeywordHits) > 0 {
		fmt.Fprintf(&b, "Keyword hits: %s\n", strings.Join(ev.KeywordHits, ", "))
	}
	fmt.Fprintf(&b, "\nDocument excerpt:\n%s\n", truncate(ev.Excerpt, 2000))
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
