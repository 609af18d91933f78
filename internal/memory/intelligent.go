package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
)

// IntelligentRetriever fans one query out through the expander, searches per
// expanded query, and merges the candidates. Scores stay comparable across
// sub-queries because each one is discounted by its query rank:
// combined = (similarity + timeScore) * (1 - 0.1*rank). The first, most
// direct query is weighted fully; each later query loses 10%.
type IntelligentRetriever struct {
	store     Store
	expander  *Expander
	decayRate float64
	now       func() time.Time
	log       *zap.Logger
}

// NewIntelligentRetriever creates a multi-query retriever. A nil expander
// degrades every call to a single-query pass with the multi-query formula.
func NewIntelligentRetriever(store Store, expander *Expander, decayRate float64, log *zap.Logger) *IntelligentRetriever {
	if decayRate <= 0 || decayRate >= 1 {
		decayRate = DefaultDecayRate
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &IntelligentRetriever{
		store:     store,
		expander:  expander,
		decayRate: decayRate,
		now:       func() time.Time { return time.Now().UTC() },
		log:       log,
	}
}

// Retrieve returns the top k items for query across all expanded queries.
// Sub-queries run in order so the merge is deterministic: candidates keep
// their first-seen position and a stable sort breaks score ties by it.
func (r *IntelligentRetriever) Retrieve(ctx context.Context, query string, k int) ([]Item, error) {
	if k <= 0 {
		return nil, nil
	}

	queries := []string{query}
	if r.expander != nil {
		queries = r.expander.Expand(ctx, query)
	}

	// Smaller per-query over-fetch than the basic retriever; the fan-out
	// itself widens the candidate pool.
	candidatesK := 2 * k
	if candidatesK > 15 {
		candidatesK = 15
	}

	now := r.now()

	// Dedup by identity across sub-queries. When the same item surfaces from
	// several queries the higher combined score wins (max-merge, not a sum).
	seen := make(map[string]int, candidatesK)
	var merged []scoredCandidate

	for qi, q := range queries {
		candidates, err := r.store.Search(ctx, q, candidatesK)
		if err != nil {
			return nil, fmt.Errorf("similarity search %q: %w", q, err)
		}

		boost := 1.0 - 0.1*float64(qi)
		for pos, item := range candidates {
			sim := similarityFromRank(pos, len(candidates))
			combined := (sim + timeScore(item, now, r.decayRate)) * boost

			key := identityKey(item)
			if idx, ok := seen[key]; ok {
				if combined > merged[idx].combined {
					merged[idx] = scoredCandidate{item: item, combined: combined}
				}
				continue
			}
			seen[key] = len(merged)
			merged = append(merged, scoredCandidate{item: item, combined: combined})
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].combined > merged[j].combined
	})
	if len(merged) > k {
		merged = merged[:k]
	}

	selected := make([]Item, len(merged))
	for i, sc := range merged {
		selected[i] = sc.item
	}

	r.log.Debug("retrieved multi-query",
		zap.String("query", query),
		zap.Int("queries", len(queries)),
		zap.Int("merged", len(seen)),
		zap.Int("selected", len(selected)))

	touchItems(ctx, r.store, selected, now, r.log)
	return selected, nil
}
