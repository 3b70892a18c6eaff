package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"

	"websearch/internal/logger"
)

// ErrInvalidURL reports a URL the extractor cannot even attempt to fetch.
// It is the only error Extract returns; every fetch/parse problem is carried
// in the Content's quality assessment instead.
var ErrInvalidURL = errors.New("invalid URL")

// Quality reasons carried on unusable content.
const (
	ReasonFetchError    = "fetch_error"
	ReasonTimeout       = "timeout"
	ReasonParseError    = "parse_error"
	ReasonTooShort      = "too_short"
	ReasonErrorPage     = "error_page_detected"
	ReasonNoMainContent = "no_main_content_found"
)

// Quality is the extractor's assessment of one page's text.
type Quality struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

// Content is the extraction outcome for one URL. Text is empty when the
// quality gate rejects the page.
type Content struct {
	URL     string  `json:"url"`
	Text    string  `json:"text,omitempty"`
	Quality Quality `json:"quality"`
}

// Config holds extraction tunables.
type Config struct {
	Timeout   time.Duration
	MinLength int
	UserAgent string
	Proxy     string
}

// Extractor fetches pages and pulls their main textual content.
type Extractor struct {
	client    *http.Client
	userAgent string
	minLength int
}

// containers tried in priority order before falling back to readability.
var (
	contentIDs = []string{
		"content", "main-content", "post-content", "article-body",
		"entry-content", "main", "article", "post", "story",
	}
	contentClasses = []string{
		"content", "main-content", "post-content", "article-body",
		"entry-content", "post", "article", "blog-post", "story", "text",
		"page-content", "main", "body-content", "entry", "post-body",
	}
	contentTags = []string{"article", "main", "section"}

	noiseSelector = strings.Join([]string{
		"script", "style", "noscript", "iframe", "svg", "nav", "header",
		"footer", "aside", "form", ".sidebar", "#sidebar", ".navigation",
		".menu", ".nav", ".comments", "#comments", ".advertisement", ".ads",
		".ad", ".related", ".recommended", ".share", ".social",
	}, ", ")
)

// errorPageSignatures mark pages that came back 200 but carry an error shell
// instead of an article.
var errorPageSignatures = []string{
	"404 not found",
	"page not found",
	"access denied",
	"captcha",
	"are you a robot",
	"enable javascript to continue",
}

// New creates an extractor. Zero-value config fields get safe defaults.
func New(cfg Config) *Extractor {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MinLength <= 0 {
		cfg.MinLength = 200
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	}

	transport := &http.Transport{}
	if cfg.Proxy != "" {
		if proxyURL, err := url.Parse(cfg.Proxy); err == nil {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	return &Extractor{
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		userAgent: cfg.UserAgent,
		minLength: cfg.MinLength,
	}
}

// Extract fetches one URL and returns its content with a quality assessment.
// Fetch and parse failures are data, not errors; the only error case is a URL
// the extractor cannot attempt at all.
func (e *Extractor) Extract(ctx context.Context, rawURL string) (Content, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return Content{}, fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return Content{}, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, parsed.Scheme)
	}

	body, reason := e.fetch(ctx, rawURL)
	if reason != "" {
		return unusable(rawURL, reason), nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return unusable(rawURL, ReasonParseError), nil
	}

	doc.Find(noiseSelector).Remove()

	text := extractByPriority(doc)
	if text == "" {
		text = readabilityFallback(body, parsed)
	}
	if text == "" {
		text = paragraphFallback(doc)
	}
	if text == "" {
		return unusable(rawURL, ReasonNoMainContent), nil
	}

	text = collapseWhitespace(text)

	if isErrorPage(text) {
		return unusable(rawURL, ReasonErrorPage), nil
	}
	if len(text) < e.minLength {
		return unusable(rawURL, ReasonTooShort), nil
	}

	logger.Debug("extracted page content", "url", rawURL, "chars", len(text))
	return Content{URL: rawURL, Text: text, Quality: Quality{OK: true}}, nil
}

// ExtractAll extracts every URL concurrently. The result slice lines up with
// the input by index; one bad page never aborts the rest.
func (e *Extractor) ExtractAll(ctx context.Context, urls []string) []Content {
	contents := make([]Content, len(urls))

	var wg sync.WaitGroup
	for i, u := range urls {
		wg.Add(1)
		go func(i int, u string) {
			defer wg.Done()
			c, err := e.Extract(ctx, u)
			if err != nil {
				c = unusable(u, ReasonFetchError)
			}
			contents[i] = c
		}(i, u)
	}
	wg.Wait()

	return contents
}

// fetch performs the GET and returns the body, or a quality reason on failure.
func (e *Extractor) fetch(ctx context.Context, rawURL string) (string, string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", ReasonFetchError
	}
	req.Header.Set("User-Agent", e.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := e.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return "", ReasonTimeout
		}
		return "", ReasonFetchError
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", ReasonFetchError
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", ReasonFetchError
	}
	return string(raw), ""
}

// extractByPriority tries known content containers in decreasing order of
// specificity: IDs, then classes, then semantic tags, then the div holding
// the most paragraphs.
func extractByPriority(doc *goquery.Document) string {
	for _, id := range contentIDs {
		if text := strings.TrimSpace(doc.Find("#" + id).First().Text()); text != "" {
			return text
		}
	}

	for _, class := range contentClasses {
		sel := doc.Find("." + class)
		if sel.Length() == 0 {
			continue
		}
		var parts []string
		sel.Each(func(_ int, s *goquery.Selection) {
			if text := strings.TrimSpace(s.Text()); text != "" {
				parts = append(parts, text)
			}
		})
		if len(parts) > 0 {
			return strings.Join(parts, " ")
		}
	}

	for _, tag := range contentTags {
		best := ""
		doc.Find(tag).Each(func(_ int, s *goquery.Selection) {
			if text := strings.TrimSpace(s.Text()); len(text) > len(best) {
				best = text
			}
		})
		if len(best) > 200 {
			return best
		}
	}

	var bestDiv *goquery.Selection
	bestCount := 0
	doc.Find("div").Each(func(_ int, s *goquery.Selection) {
		if n := s.Find("p").Length(); n > bestCount {
			bestCount = n
			bestDiv = s
		}
	})
	if bestDiv != nil && bestCount > 3 {
		return strings.TrimSpace(bestDiv.Text())
	}

	return ""
}

// readabilityFallback runs the page through the readability algorithm, which
// handles layouts the priority selectors miss.
func readabilityFallback(body string, pageURL *url.URL) string {
	article, err := readability.FromReader(strings.NewReader(body), pageURL)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(article.TextContent)
}

// paragraphFallback joins all non-trivial paragraphs on the page.
func paragraphFallback(doc *goquery.Document) string {
	var parts []string
	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); len(text) > 50 {
			parts = append(parts, text)
		}
	})
	return strings.Join(parts, " ")
}

// isErrorPage checks short pages for signatures of error shells served with
// a 200 status.
func isErrorPage(text string) bool {
	if len(text) > 2000 {
		return false
	}
	lowered := strings.ToLower(text)
	for _, sig := range errorPageSignatures {
		if strings.Contains(lowered, sig) {
			return true
		}
	}
	return false
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func unusable(url, reason string) Content {
	logger.Debug("page content unusable", "url", url, "reason", reason)
	return Content{URL: url, Quality: Quality{OK: false, Reason: reason}}
}
