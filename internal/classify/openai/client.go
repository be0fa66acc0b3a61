// Package openai implements a topical classifier backed by the OpenAI chat
// completions API.
package openai

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

const defaultBaseURL = "https://api.openai.com"

// Config controls the OpenAI client.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// Client calls the chat completions endpoint and parses a strict-JSON
// verdict.
type Client struct {
	cfg  Config
	http *http.Client
}

// New builds a Client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
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
func (c *Client) Name() string { return "openai" }

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type verdictPayload struct {
	IsAIIPReport bool    `json:"is_ai_ip_report"`
	Confidence   float64 `json:"confidence"`
	Reason       string  `json:"reason"`
}

// Classify asks the model whether the evidence describes an AI-and-IP
// policy/report document.
func (c *Client) Classify(ctx context.Context, ev report.Evidence) (report.Verdict, error) {
	reqBody := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "user", Content: buildPrompt(ev)},
		},
		Temperature: 0,
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return report.Verdict{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return report.Verdict{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return report.Verdict{}, fmt.Errorf("openai request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return report.Verdict{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return report.Verdict{}, fmt.Errorf("openai HTTP %d: %s", resp.StatusCode, truncate(string(body), 180))
	}

	var cr chatResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return report.Verdict{}, fmt.Errorf("decode response: %w", err)
	}
	if len(cr.Choices) == 0 {
		return report.Verdict{}, fmt.Errorf("openai returned no choices")
	}

	text := strings.TrimSpace(cr.Choices[0].Message.Content)
	var vp verdictPayload
	if err := json.Unmarshal([]byte(stripFences(text)), &vp); err != nil {
		return report.Verdict{}, fmt.Errorf("openai non-JSON verdict: %s", truncate(text, 180))
	}

	return report.Verdict{
		Relevant:   vp.IsAIIPReport,
		Confidence: vp.Confidence,
		Reason:     vp.Reason,
	}, nil
}

func stripFences(text string) string {
	cleaned := strings.TrimSpace(text)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.Trim(cleaned, "`")
		cleaned = strings.TrimSpace(strings.TrimPrefix(cleaned, "json"))
	}
	return cleaned
}

func buildPrompt(ev report.Evidence) string {
	var b strings.Builder
	b.WriteString("You are validating whether a candidate report is an AI + Intellectual Property policy/law/guidance document.\n")
	b.WriteString("Return ONLY JSON with keys: is_ai_ip_report (boolean), confidence (number 0-1), reason (short string).\n\n")
	fmt.Fprintf(&b, "Today: %s\n", ev.TodayISO)
	fmt.Fprintf(&b, "Title: %s\n", ev.Title)
	fmt.Fprintf(&b, "Source: %s\n", ev.SourceName)
	fmt.Fprintf(&b, "Landing page: %s\n", ev.LandingPageURL)
	fmt.Fprintf(&b, "Document: %s\n", ev.ReportURL)
	fmt.Fprintf(&b, "Landing page date (evidence): %s (%s | %s)\n", ev.DateISO, ev.DateSource, ev.DateRaw)
	fmt.Fprintf(&b, "\nDocument excerpt:\n%s\n", truncate(ev.Excerpt, 2000))
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
