package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// SerpAPIBackend queries the SerpAPI Google results proxy.
type SerpAPIBackend struct {
	apiKey string
}

// NewSerpAPIBackend creates a SerpAPI backend.
func NewSerpAPIBackend(apiKey string) *SerpAPIBackend {
	return &SerpAPIBackend{apiKey: apiKey}
}

// Name returns the registry name of this backend.
func (s *SerpAPIBackend) Name() string { return "serpapi" }

// Tier returns the trust tier of this backend.
func (s *SerpAPIBackend) Tier() Tier { return TierAPI }

// Search performs a search through SerpAPI and parses the organic results.
func (s *SerpAPIBackend) Search(ctx context.Context, query string, opts Options) (*Batch, error) {
	started := time.Now()

	if s.apiKey == "" {
		return nil, ConfigFailure(s.Name(), ErrMissingAPIKey)
	}

	num := opts.MaxResults
	if num <= 0 {
		num = 10
	}

	params := url.Values{}
	params.Set("engine", "google")
	params.Set("q", query)
	params.Set("api_key", s.apiKey)
	params.Set("num", strconv.Itoa(num))

	fullURL := "https://serpapi.com/search.json?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, Transient(s.Name(), fmt.Errorf("failed to create request: %w", err))
	}

	client := newHTTPClient(opts)
	resp, err := client.Do(req)
	if err != nil {
		return nil, Transient(s.Name(), fmt.Errorf("failed to execute request: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ConfigFailure(s.Name(), fmt.Errorf("credentials rejected with status %d", resp.StatusCode))
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, Transient(s.Name(), fmt.Errorf("rate limit exceeded"))
	case resp.StatusCode != http.StatusOK:
		return nil, Transient(s.Name(), fmt.Errorf("request failed with status %d", resp.StatusCode))
	}

	var apiResponse struct {
		OrganicResults []struct {
			Title   string `json:"title"`
			Link    string `json:"link"`
			Snippet string `json:"snippet"`
		} `json:"organic_results"`
		Error string `json:"error,omitempty"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return nil, Transient(s.Name(), fmt.Errorf("failed to parse response: %w", err))
	}
	if apiResponse.Error != "" {
		return nil, Transient(s.Name(), fmt.Errorf("API error: %s", apiResponse.Error))
	}

	results := make([]Result, 0, len(apiResponse.OrganicResults))
	for _, item := range apiResponse.OrganicResults {
		if item.Title == "" || item.Link == "" {
			continue
		}
		if len(results) >= num {
			break
		}
		results = append(results, Result{
			Title:   item.Title,
			URL:     item.Link,
			Snippet: item.Snippet,
			Source:  "serpapi",
		})
	}

	return newBatch(s.Name(), query, started, results), nil
}
