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

// GoogleBackend queries the Google Custom Search JSON API.
type GoogleBackend struct {
	apiKey   string
	searchID string
}

// NewGoogleBackend creates a Google Custom Search backend. Missing
// credentials surface as a configuration failure at search time so the
// orchestrator can report them per-backend.
func NewGoogleBackend(apiKey, searchID string) *GoogleBackend {
	return &GoogleBackend{apiKey: apiKey, searchID: searchID}
}

// Name returns the registry name of this backend.
func (g *GoogleBackend) Name() string { return "google" }

// Tier returns the trust tier of this backend.
func (g *GoogleBackend) Tier() Tier { return TierAPI }

// Search performs a search using the Google Custom Search API.
func (g *GoogleBackend) Search(ctx context.Context, query string, opts Options) (*Batch, error) {
	started := time.Now()

	if g.apiKey == "" {
		return nil, ConfigFailure(g.Name(), ErrMissingAPIKey)
	}
	if g.searchID == "" {
		return nil, ConfigFailure(g.Name(), ErrMissingSearchID)
	}

	params := url.Values{}
	params.Set("key", g.apiKey)
	params.Set("cx", g.searchID)
	params.Set("q", query)
	// Google CSE allows at most 10 results per request.
	num := opts.MaxResults
	if num <= 0 || num > 10 {
		num = 10
	}
	params.Set("num", strconv.Itoa(num))

	fullURL := "https://www.googleapis.com/customsearch/v1?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, Transient(g.Name(), fmt.Errorf("failed to create request: %w", err))
	}

	client := newHTTPClient(opts)
	resp, err := client.Do(req)
	if err != nil {
		return nil, Transient(g.Name(), fmt.Errorf("failed to execute request: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized:
		return nil, ConfigFailure(g.Name(), fmt.Errorf("credentials rejected with status %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return nil, Transient(g.Name(), fmt.Errorf("request failed with status %d", resp.StatusCode))
	}

	var apiResponse struct {
		Items []struct {
			Title   string `json:"title"`
			Link    string `json:"link"`
			Snippet string `json:"snippet"`
		} `json:"items"`
		Error struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error,omitempty"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return nil, Transient(g.Name(), fmt.Errorf("failed to parse response: %w", err))
	}
	if apiResponse.Error.Code != 0 {
		return nil, Transient(g.Name(), fmt.Errorf("API error (%d): %s", apiResponse.Error.Code, apiResponse.Error.Message))
	}

	results := make([]Result, 0, len(apiResponse.Items))
	for _, item := range apiResponse.Items {
		if item.Title == "" || item.Link == "" {
			continue
		}
		results = append(results, Result{
			Title:   item.Title,
			URL:     item.Link,
			Snippet: item.Snippet,
			Source:  "google",
		})
	}

	return newBatch(g.Name(), query, started, results), nil
}
