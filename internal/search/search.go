package search

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"websearch/internal/config"
)

// Tier is the trust tier of a backend, used by the default ranking policy.
// Commercial APIs rank above browser automation, which ranks above plain
// HTML scraping.
type Tier int

const (
	TierScrape Tier = iota + 1
	TierBrowser
	TierAPI
)

// String returns the tier name for status output.
func (t Tier) String() string {
	switch t {
	case TierAPI:
		return "api"
	case TierBrowser:
		return "browser"
	case TierScrape:
		return "scrape"
	default:
		return "unknown"
	}
}

// Result represents a single search result. Results are immutable values;
// once produced by a backend they are never modified.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
	Source  string `json:"source"`
}

// Batch is the standardized output of one backend invocation for one query.
type Batch struct {
	Source      string        `json:"source_name"`
	Query       string        `json:"query"`
	CompletedAt time.Time     `json:"completed_at"`
	Duration    time.Duration `json:"duration"`
	Results     []Result      `json:"results"`
}

// newBatch stamps a finished backend invocation. An empty result slice is a
// valid batch: "no results" is a normal outcome, not an error.
func newBatch(source, query string, started time.Time, results []Result) *Batch {
	now := time.Now().UTC()
	return &Batch{
		Source:      source,
		Query:       query,
		CompletedAt: now,
		Duration:    time.Since(started),
		Results:     results,
	}
}

// Options holds per-invocation search parameters.
type Options struct {
	MaxResults int
	Timeout    time.Duration
	UserAgent  string
	Proxy      string
}

// Backend is one pluggable search-result source. Implementations must own
// their resources (HTTP client, browser) per invocation and release them
// unconditionally on every exit path.
type Backend interface {
	// Search runs the query and returns a batch. A batch with zero results
	// is a successful empty search; errors are reserved for transient and
	// configuration failures.
	Search(ctx context.Context, query string, opts Options) (*Batch, error)

	// Name returns the registry name of this backend.
	Name() string

	// Tier returns the trust tier used by the default ranking policy.
	Tier() Tier
}

// Registry is an explicit static mapping from backend name to implementation,
// populated at startup. Enumeration order is registration order, which makes
// merge tie-breaks deterministic regardless of completion order.
type Registry struct {
	names    []string
	backends map[string]Backend
}

// NewRegistry creates an empty backend registry.
func NewRegistry() *Registry {
	return &Registry{backends: make(map[string]Backend)}
}

// Register adds a backend under its name. Re-registering a name replaces the
// implementation but keeps its original enumeration position.
func (r *Registry) Register(b Backend) {
	name := b.Name()
	if _, exists := r.backends[name]; !exists {
		r.names = append(r.names, name)
	}
	r.backends[name] = b
}

// Get returns the backend registered under name.
func (r *Registry) Get(name string) (Backend, bool) {
	b, ok := r.backends[name]
	return b, ok
}

// Names returns all registered backend names in enumeration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Resolve maps a set of enabled backend names to backends in enumeration
// order. An empty set or the single sentinel "all" selects every registered
// backend. Unknown names fail with *UnknownBackendError.
func (r *Registry) Resolve(enabled []string) ([]Backend, error) {
	if len(enabled) == 0 || (len(enabled) == 1 && strings.TrimSpace(enabled[0]) == "all") {
		out := make([]Backend, 0, len(r.names))
		for _, name := range r.names {
			out = append(out, r.backends[name])
		}
		return out, nil
	}

	want := make(map[string]bool, len(enabled))
	for _, name := range enabled {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := r.backends[name]; !ok {
			return nil, &UnknownBackendError{Name: name}
		}
		want[name] = true
	}

	out := make([]Backend, 0, len(want))
	for _, name := range r.names {
		if want[name] {
			out = append(out, r.backends[name])
		}
	}
	return out, nil
}

// NewDefaultRegistry builds the standard backend set from configuration.
// Backends missing credentials are still registered; they surface a
// configuration failure when invoked, which the orchestrator records in the
// per-backend status report.
func NewDefaultRegistry(cfg *config.Config) *Registry {
	r := NewRegistry()
	r.Register(NewBraveBackend(cfg.Search.Providers.Brave.APIKey))
	r.Register(NewGoogleBackend(cfg.Search.Providers.Google.APIKey, cfg.Search.Providers.Google.SearchID))
	r.Register(NewSerpAPIBackend(cfg.Search.Providers.SerpAPI.APIKey))
	r.Register(NewBrowserBackend())
	r.Register(NewDuckDuckGoBackend())
	return r
}

// newHTTPClient builds a fresh HTTP client for one backend invocation so
// that no connection state is shared across concurrent searches.
func newHTTPClient(opts Options) *http.Client {
	transport := &http.Transport{}
	if opts.Proxy != "" {
		if proxyURL, err := url.Parse(opts.Proxy); err == nil {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}
	return &http.Client{
		Timeout:   opts.Timeout,
		Transport: transport,
	}
}
