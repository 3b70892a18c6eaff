package search

import "sort"

// Ranker orders a deduplicated result list. It is swappable without touching
// merge/dedup logic.
type Ranker interface {
	Rank(results []Result) []Result
}

// TierRanker is the default ranking policy: partition results by the trust
// tier of their source backend and stable-sort so that relative order within
// a tier is preserved from the merged list.
type TierRanker struct {
	tiers map[string]Tier
}

// NewTierRanker builds a tier ranker from the registry's backends.
func NewTierRanker(r *Registry) *TierRanker {
	tiers := make(map[string]Tier, len(r.names))
	for _, name := range r.names {
		tiers[name] = r.backends[name].Tier()
	}
	return &TierRanker{tiers: tiers}
}

// Rank returns a new slice ordered by descending tier. Results from sources
// not known to the ranker sort last.
func (t *TierRanker) Rank(results []Result) []Result {
	ranked := make([]Result, len(results))
	copy(ranked, results)
	sort.SliceStable(ranked, func(i, j int) bool {
		return t.tiers[ranked[i].Source] > t.tiers[ranked[j].Source]
	})
	return ranked
}

// RankerFunc adapts a plain function to the Ranker interface.
type RankerFunc func(results []Result) []Result

func (f RankerFunc) Rank(results []Result) []Result {
	return f(results)
}
