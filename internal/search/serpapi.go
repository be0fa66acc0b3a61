// Package search implements query-driven discovery via the SerpAPI Google
// endpoint.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	defaultBaseURL = "https://serpapi.com"
	maxResults     = 15
)

// Config controls the SerpAPI client.
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Client queries SerpAPI and returns organic result URLs.
type Client struct {
	cfg  Config
	http *http.Client
}

// New builds a Client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("serpapi api key is required")
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

type searchResponse struct {
	OrganicResults []struct {
		Link string `json:"link"`
	} `json:"organic_results"`
}

// Search runs a recency-biased query and returns up to num organic result
// URLs in rank order.
func (c *Client) Search(ctx context.Context, query string, num int, recencyDays int) ([]string, error) {
	if num <= 0 || num > maxResults {
		num = maxResults
	}
	if recencyDays <= 0 {
		recencyDays = 10
	}

	params := url.Values{}
	params.Set("engine", "google")
	params.Set("q", query)
	params.Set("api_key", c.cfg.APIKey)
	params.Set("num", strconv.Itoa(num))
	params.Set("hl", "en")
	params.Set("gl", "us")
	params.Set("safe", "active")
	// Bias results to the trailing recency window.
	params.Set("tbs", fmt.Sprintf("qdr:d%d", recencyDays))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/search.json?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("serpapi request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read search response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("serpapi HTTP %d", resp.StatusCode)
	}

	var sr searchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	urls := make([]string, 0, len(sr.OrganicResults))
	for _, item := range sr.OrganicResults {
		if item.Link == "" {
			continue
		}
		urls = append(urls, item.Link)
		if len(urls) >= num {
			break
		}
	}
	return urls, nil
}
