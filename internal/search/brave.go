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

// BraveBackend queries the Brave Search API.
type BraveBackend struct {
	apiKey string
}

// NewBraveBackend creates a Brave Search API backend.
func NewBraveBackend(apiKey string) *BraveBackend {
	return &BraveBackend{apiKey: apiKey}
}

// Name returns the registry name of this backend.
func (b *BraveBackend) Name() string { return "brave" }

// Tier returns the trust tier of this backend.
func (b *BraveBackend) Tier() Tier { return TierAPI }

// Search performs a search using the Brave Search API.
func (b *BraveBackend) Search(ctx context.Context, query string, opts Options) (*Batch, error) {
	started := time.Now()

	if b.apiKey == "" {
		return nil, ConfigFailure(b.Name(), ErrMissingAPIKey)
	}

	count := opts.MaxResults
	if count <= 0 || count > 20 {
		count = 10
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("count", strconv.Itoa(count))
	params.Set("mkt", "en-US")
	params.Set("safesearch", "moderate")

	fullURL := "https://api.search.brave.com/res/v1/web/search?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, Transient(b.Name(), fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", b.apiKey)

	client := newHTTPClient(opts)
	resp, err := client.Do(req)
	if err != nil {
		return nil, Transient(b.Name(), fmt.Errorf("failed to execute request: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, ConfigFailure(b.Name(), fmt.Errorf("invalid API key"))
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, Transient(b.Name(), fmt.Errorf("rate limit exceeded"))
	case resp.StatusCode != http.StatusOK:
		return nil, Transient(b.Name(), fmt.Errorf("request failed with status %d", resp.StatusCode))
	}

	var apiResponse struct {
		Web struct {
			Results []struct {
				Title       string `json:"title"`
				URL         string `json:"url"`
				Description string `json:"description"`
			} `json:"results"`
		} `json:"web"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return nil, Transient(b.Name(), fmt.Errorf("failed to parse response: %w", err))
	}

	results := make([]Result, 0, len(apiResponse.Web.Results))
	for _, item := range apiResponse.Web.Results {
		if item.Title == "" || item.URL == "" {
			continue
		}
		snippet := item.Description
		if snippet == "" {
			snippet = "No description available"
		}
		results = append(results, Result{
			Title:   item.Title,
			URL:     item.URL,
			Snippet: snippet,
			Source:  "brave",
		})
	}

	return newBatch(b.Name(), query, started, results), nil
}
