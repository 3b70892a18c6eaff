package search

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"time"

	"websearch/internal/logger"
)

// BackendStatus reports the outcome of one backend invocation.
type BackendStatus struct {
	Backend  string        `json:"backend"`
	OK       bool          `json:"ok"`
	Duration time.Duration `json:"duration"`
	Results  int           `json:"results"`
	Err      string        `json:"error,omitempty"`
}

// Output is the merged, ranked result of one orchestrated search run.
type Output struct {
	Query       string          `json:"query"`
	Merged      []Result        `json:"results"`
	Statuses    []BackendStatus `json:"backend_statuses"`
	CompletedAt time.Time       `json:"completed_at"`
	Duration    time.Duration   `json:"duration"`
}

// Orchestrator runs every enabled backend concurrently, isolates per-backend
// failures, and folds the surviving batches into a single ranked,
// deduplicated result list.
type Orchestrator struct {
	registry *Registry
	ranker   Ranker
}

// NewOrchestrator creates a search orchestrator. A nil ranker selects the
// default tier-based policy.
func NewOrchestrator(registry *Registry, ranker Ranker) *Orchestrator {
	if ranker == nil {
		ranker = NewTierRanker(registry)
	}
	return &Orchestrator{registry: registry, ranker: ranker}
}

// Run executes the query on all enabled backends. Individual backend failures
// are recorded in the status report and excluded from the merge; only total
// failure is an error, returned as *AllFailedError.
func (o *Orchestrator) Run(ctx context.Context, query string, opts Options, enabled []string) (*Output, error) {
	backends, err := o.registry.Resolve(enabled)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	logger.Info("running search backends", "query", query, "backends", len(backends))

	// One goroutine per backend gives each invocation its own scheduling
	// slot, so an internally blocking backend (headless browser) cannot
	// stall its siblings. Slots are indexed so that merge later consumes
	// batches in registry enumeration order, never completion order.
	type slot struct {
		batch    *Batch
		err      error
		duration time.Duration
	}
	slots := make([]slot, len(backends))

	var wg sync.WaitGroup
	for i, b := range backends {
		wg.Add(1)
		go func(i int, b Backend) {
			defer wg.Done()
			invCtx := ctx
			if opts.Timeout > 0 {
				var cancel context.CancelFunc
				invCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
				defer cancel()
			}
			invStarted := time.Now()
			batch, err := b.Search(invCtx, query, opts)
			if err != nil && errors.Is(err, context.DeadlineExceeded) {
				err = Transient(b.Name(), context.DeadlineExceeded)
			}
			slots[i] = slot{batch: batch, err: err, duration: time.Since(invStarted)}
		}(i, b)
	}
	wg.Wait()

	statuses := make([]BackendStatus, len(backends))
	batches := make([]*Batch, 0, len(backends))
	failed := 0
	for i, b := range backends {
		s := BackendStatus{Backend: b.Name(), Duration: slots[i].duration}
		if slots[i].err != nil {
			s.Err = slots[i].err.Error()
			failed++
			logger.Warn("search backend failed", "backend", b.Name(), "error", s.Err, "duration", s.Duration)
		} else {
			s.OK = true
			s.Results = len(slots[i].batch.Results)
			batches = append(batches, slots[i].batch)
			logger.Info("search backend completed", "backend", b.Name(), "results", s.Results, "duration", s.Duration)
		}
		statuses[i] = s
	}

	if failed == len(backends) {
		return nil, &AllFailedError{Query: query, Statuses: statuses}
	}

	merged := mergeBatches(batches)
	ranked := o.ranker.Rank(merged)

	logger.Info("search orchestration completed", "query", query, "merged", len(ranked), "failed_backends", failed)

	return &Output{
		Query:       query,
		Merged:      ranked,
		Statuses:    statuses,
		CompletedAt: time.Now().UTC(),
		Duration:    time.Since(started),
	}, nil
}

// mergeBatches folds batches into a single list unique by normalized URL.
// Batches are consumed in the given (enumeration) order and the first-seen
// instance of a URL wins, which makes dedup tie-breaks deterministic and
// merging idempotent.
func mergeBatches(batches []*Batch) []Result {
	seen := make(map[string]bool)
	var merged []Result
	for _, batch := range batches {
		if batch == nil {
			continue
		}
		for _, r := range batch.Results {
			key := normalizeURL(r.URL)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			merged = append(merged, r)
		}
	}
	return merged
}

// normalizeURL produces the deduplication identity of a URL: lowercase,
// fragment and query dropped, trailing slash stripped. Unparseable URLs fall
// back to a lowercased, slash-trimmed string form.
func normalizeURL(raw string) string {
	parsed, err := url.Parse(strings.ToLower(strings.TrimSpace(raw)))
	if err != nil || parsed.Host == "" {
		return strings.TrimRight(strings.ToLower(strings.TrimSpace(raw)), "/")
	}
	path := strings.TrimRight(parsed.Path, "/")
	return parsed.Scheme + "://" + parsed.Host + path
}
