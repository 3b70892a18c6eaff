package search

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"websearch/internal/logger"
)

// BrowserBackend drives a headless Chrome session against the DuckDuckGo
// JavaScript frontend. It survives markup changes that break the static
// scraper, at the cost of much higher latency, so it sits one tier above the
// plain scrape backends.
type BrowserBackend struct{}

// NewBrowserBackend creates a headless browser backend.
func NewBrowserBackend() *BrowserBackend {
	return &BrowserBackend{}
}

// Name returns the registry name of this backend.
func (b *BrowserBackend) Name() string { return "browser" }

// Tier returns the trust tier of this backend.
func (b *BrowserBackend) Tier() Tier { return TierBrowser }

// browserLink is the shape the extraction script produces per result.
type browserLink struct {
	Href    string `json:"href"`
	Text    string `json:"text"`
	Snippet string `json:"snippet"`
}

// Search runs the query in a headless browser and extracts result links from
// the rendered page. Each invocation owns its own browser process.
func (b *BrowserBackend) Search(ctx context.Context, query string, opts Options) (*Batch, error) {
	started := time.Now()

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.DisableGPU,
		chromedp.NoSandbox,
		chromedp.Headless,
		chromedp.UserAgent(opts.UserAgent),
		chromedp.Flag("accept-language", "en-US,en;q=0.9"),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("exclude-switches", "enable-automation"),
		chromedp.Flag("disable-extensions", ""),
	)
	if opts.Proxy != "" {
		allocOpts = append(allocOpts, chromedp.ProxyServer(opts.Proxy))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer allocCancel()
	taskCtx, taskCancel := chromedp.NewContext(allocCtx)
	defer taskCancel()

	searchURL := "https://duckduckgo.com/?q=" + url.QueryEscape(query)
	logger.Debug("navigating headless browser", "url", searchURL)

	err := chromedp.Run(taskCtx,
		chromedp.Navigate(searchURL),
		chromedp.WaitVisible("body"),
		chromedp.Evaluate(`
			Object.defineProperty(navigator, 'webdriver', {
				get: () => undefined,
			});
			window.chrome = { runtime: {} };
		`, nil),
		chromedp.WaitVisible(`article[data-testid="result"]`, chromedp.ByQuery),
	)
	if err != nil {
		return nil, Transient(b.Name(), fmt.Errorf("navigation failed: %w", err))
	}

	var rawLinks []browserLink
	script := `
		Array.from(document.querySelectorAll('article[data-testid="result"]')).map(article => {
			const link = article.querySelector('a[data-testid="result-title-a"]');
			const snippet = article.querySelector('div[data-result="snippet"]');
			return {
				href: link ? link.href : '',
				text: link ? link.textContent.trim() : '',
				snippet: snippet ? snippet.textContent.trim() : ''
			};
		}).filter(l => l.href && !l.href.startsWith('javascript:') && l.text.length > 0)
	`
	if err := chromedp.Run(taskCtx, chromedp.Evaluate(script, &rawLinks)); err != nil {
		return nil, Transient(b.Name(), fmt.Errorf("link extraction failed: %w", err))
	}

	results := make([]Result, 0, len(rawLinks))
	for _, link := range rawLinks {
		if opts.MaxResults > 0 && len(results) >= opts.MaxResults {
			break
		}
		if !strings.HasPrefix(link.Href, "http") {
			continue
		}
		snippet := link.Snippet
		if snippet == "" {
			snippet = "No snippet available"
		}
		results = append(results, Result{
			Title:   link.Text,
			URL:     link.Href,
			Snippet: collapseSpaces(snippet),
			Source:  "browser",
		})
	}

	return newBatch(b.Name(), query, started, results), nil
}
