package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
)

// Retriever answers one query against the store and re-ranks candidates by
// recency. Recency dominates: combined = timeScore + decayRate*similarity,
// so similarity acts as a tie-breaker scaled by the same knob that controls
// decay. The multi-query retriever weighs the terms differently; the two
// formulas are tuned for their own contexts and stay separate.
type Retriever struct {
	store     Store
	decayRate float64
	now       func() time.Time
	log       *zap.Logger
}

// NewRetriever creates a basic time-weighted retriever. Rates outside (0,1)
// fall back to DefaultDecayRate.
func NewRetriever(store Store, decayRate float64, log *zap.Logger) *Retriever {
	if decayRate <= 0 || decayRate >= 1 {
		decayRate = DefaultDecayRate
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Retriever{
		store:     store,
		decayRate: decayRate,
		now:       func() time.Time { return time.Now().UTC() },
		log:       log,
	}
}

// scoredCandidate is retrieval-time only, never persisted.
type scoredCandidate struct {
	item     Item
	combined float64
}

// Retrieve returns the top k items for query, most relevant first. The final
// selection gets its last_accessed_at refreshed via a best-effort write-back.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]Item, error) {
	if k <= 0 {
		return nil, nil
	}

	// Over-fetch so re-ranking has something to work with, capped to keep
	// result sets small.
	candidatesK := 3 * k
	if candidatesK > 20 {
		candidatesK = 20
	}

	candidates, err := r.store.Search(ctx, query, candidatesK)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	now := r.now()
	scored := make([]scoredCandidate, len(candidates))
	for i, item := range candidates {
		sim := similarityFromRank(i, len(candidates))
		scored[i] = scoredCandidate{
			item:     item,
			combined: timeScore(item, now, r.decayRate) + r.decayRate*sim,
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].combined > scored[j].combined
	})
	if len(scored) > k {
		scored = scored[:k]
	}

	selected := make([]Item, len(scored))
	for i, sc := range scored {
		selected[i] = sc.item
	}

	r.log.Debug("retrieved",
		zap.String("query", query),
		zap.Int("candidates", len(candidates)),
		zap.Int("selected", len(selected)))

	touchItems(ctx, r.store, selected, now, r.log)
	return selected, nil
}
