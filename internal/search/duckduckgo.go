package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// DuckDuckGoBackend scrapes the static HTML version of DuckDuckGo. No
// credentials required, but results are best-effort: the endpoint throttles
// and occasionally serves a CAPTCHA.
type DuckDuckGoBackend struct{}

// NewDuckDuckGoBackend creates a new DuckDuckGo scraping backend.
func NewDuckDuckGoBackend() *DuckDuckGoBackend {
	return &DuckDuckGoBackend{}
}

// Name returns the registry name of this backend.
func (d *DuckDuckGoBackend) Name() string { return "duckduckgo" }

// Tier returns the trust tier of this backend.
func (d *DuckDuckGoBackend) Tier() Tier { return TierScrape }

// Search performs a search against html.duckduckgo.com and parses the
// result list out of the returned HTML.
func (d *DuckDuckGoBackend) Search(ctx context.Context, query string, opts Options) (*Batch, error) {
	started := time.Now()

	params := url.Values{}
	params.Set("q", query)
	params.Set("kl", "us-en")
	params.Set("s", "0")
	searchURL := "https://html.duckduckgo.com/html/?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, Transient(d.Name(), fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("User-Agent", opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	client := newHTTPClient(opts)
	resp, err := client.Do(req)
	if err != nil {
		return nil, Transient(d.Name(), fmt.Errorf("failed to execute search request: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, Transient(d.Name(), fmt.Errorf("search request failed with status %d", resp.StatusCode))
	}

	results, err := parseDuckDuckGoResults(resp.Body, opts.MaxResults)
	if err != nil {
		return nil, Transient(d.Name(), err)
	}

	return newBatch(d.Name(), query, started, results), nil
}

// parseDuckDuckGoResults extracts results from the HTML response body.
// A page that parses cleanly but contains no results yields an empty slice,
// not an error.
func parseDuckDuckGoResults(body io.Reader, maxResults int) ([]Result, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	lowered := strings.ToLower(string(raw))
	if strings.Contains(lowered, "captcha") {
		return nil, fmt.Errorf("search blocked by CAPTCHA")
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(raw)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse response HTML: %w", err)
	}

	var results []Result
	doc.Find(".result").EachWithBreak(func(i int, s *goquery.Selection) bool {
		if maxResults > 0 && len(results) >= maxResults {
			return false
		}

		titleLink := s.Find("a.result__a").First()
		title := strings.TrimSpace(titleLink.Text())
		href, _ := titleLink.Attr("href")
		finalURL := resolveDuckDuckGoRedirect(href)
		if title == "" || finalURL == "" {
			return true
		}

		snippet := strings.TrimSpace(s.Find(".result__snippet").First().Text())
		if snippet == "" {
			snippet = "No snippet available"
		}

		results = append(results, Result{
			Title:   title,
			URL:     finalURL,
			Snippet: collapseSpaces(snippet),
			Source:  "duckduckgo",
		})
		return true
	})

	return results, nil
}

// resolveDuckDuckGoRedirect unwraps DuckDuckGo's /l/?uddg= redirect URLs to
// the destination they point at.
func resolveDuckDuckGoRedirect(raw string) string {
	if strings.HasPrefix(raw, "//") {
		raw = "https:" + raw
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if uddg := parsed.Query().Get("uddg"); uddg != "" {
		if decoded, err := url.QueryUnescape(uddg); err == nil {
			return decoded
		}
		return ""
	}
	if strings.HasPrefix(raw, "http") {
		return raw
	}
	return ""
}

// collapseSpaces squeezes runs of whitespace into single spaces.
func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
