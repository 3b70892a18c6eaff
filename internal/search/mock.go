package search

import (
	"context"
	"time"
)

// MockBackend implements Backend for testing purposes.
type MockBackend struct {
	name    string
	tier    Tier
	results []Result
	err     error
	delay   time.Duration
}

// NewMockBackend creates a mock backend returning canned results.
func NewMockBackend(name string, tier Tier, results []Result) *MockBackend {
	return &MockBackend{name: name, tier: tier, results: results}
}

// Name returns the configured mock name.
func (m *MockBackend) Name() string { return m.name }

// Tier returns the configured mock tier.
func (m *MockBackend) Tier() Tier { return m.tier }

// SetError makes every subsequent Search call fail with err.
func (m *MockBackend) SetError(err error) { m.err = err }

// SetDelay makes Search sleep before responding, to simulate a slow backend.
func (m *MockBackend) SetDelay(d time.Duration) { m.delay = d }

// Search returns the canned results, honoring context cancellation during the
// configured delay.
func (m *MockBackend) Search(ctx context.Context, query string, opts Options) (*Batch, error) {
	started := time.Now()

	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if m.err != nil {
		return nil, m.err
	}

	max := len(m.results)
	if opts.MaxResults > 0 && opts.MaxResults < max {
		max = opts.MaxResults
	}
	results := make([]Result, max)
	copy(results, m.results[:max])

	return newBatch(m.name, query, started, results), nil
}
