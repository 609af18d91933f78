package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/recallkit/recall/internal/embedding"
	"github.com/recallkit/recall/internal/memory"
)

// VectorIndex exposes the memories table as a memory.Store. Search embeds the
// query and ranks every stored row by cosine similarity; callers get items in
// rank order and nothing else. Upsert embeds new or changed content; a row
// whose content is unchanged keeps its vector, so metadata-only writes (the
// retriever's touch updates) never call the embedding service.
type VectorIndex struct {
	db       *DB
	embedder embedding.Embedder
	log      *zap.Logger
}

// NewVectorIndex wraps db with the given embedder.
func NewVectorIndex(db *DB, embedder embedding.Embedder, log *zap.Logger) *VectorIndex {
	if log == nil {
		log = zap.NewNop()
	}
	return &VectorIndex{db: db, embedder: embedder, log: log}
}

// Upsert writes items to the memories table, embedding where needed, and
// returns their ids in input order.
func (vi *VectorIndex) Upsert(ctx context.Context, items []memory.Item) ([]string, error) {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		if item.ID == "" {
			item.ID = memory.DeriveID(item.Content, time.Now().UTC())
		}

		meta := "{}"
		if item.Metadata != nil {
			raw, err := json.Marshal(item.Metadata)
			if err != nil {
				return nil, fmt.Errorf("marshal metadata for %s: %w", item.ID, err)
			}
			meta = string(raw)
		}

		vec, model, err := vi.vectorFor(ctx, item)
		if err != nil {
			return nil, err
		}

		rec := &MemoryRecord{
			ID:         item.ID,
			Content:    item.Content,
			Metadata:   meta,
			Embedding:  vec,
			EmbedModel: model,
		}
		if err := vi.db.UpsertMemory(rec); err != nil {
			return nil, err
		}
		ids = append(ids, item.ID)
	}
	return ids, nil
}

// vectorFor returns the embedding for an item, reusing the stored vector when
// the content has not changed under the current model.
func (vi *VectorIndex) vectorFor(ctx context.Context, item memory.Item) ([]float64, string, error) {
	existing, err := vi.db.GetMemory(item.ID)
	if err != nil {
		return nil, "", err
	}
	if existing != nil && existing.Content == item.Content &&
		existing.EmbedModel == vi.embedder.Model() && len(existing.Embedding) > 0 {
		return existing.Embedding, existing.EmbedModel, nil
	}

	vec, err := vi.embedder.Embed(ctx, item.Content)
	if err != nil {
		return nil, "", fmt.Errorf("embed %s: %w", item.ID, err)
	}
	return vec, vi.embedder.Model(), nil
}

// Search returns the k most similar items for query, best match first.
func (vi *VectorIndex) Search(ctx context.Context, query string, k int) ([]memory.Item, error) {
	if k <= 0 {
		return nil, nil
	}

	queryVec, err := vi.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	records, err := vi.db.AllMemories()
	if err != nil {
		return nil, err
	}

	type match struct {
		rec MemoryRecord
		sim float64
	}
	matches := make([]match, len(records))
	for i, rec := range records {
		// Rows embedded under another model score 0 and sink to the bottom.
		matches[i] = match{rec: rec, sim: embedding.Cosine(queryVec, rec.Embedding)}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].sim > matches[j].sim
	})
	if len(matches) > k {
		matches = matches[:k]
	}

	items := make([]memory.Item, len(matches))
	for i, m := range matches {
		items[i] = vi.itemFromRecord(m.rec)
	}

	vi.log.Debug("vector search",
		zap.String("query", query),
		zap.Int("scanned", len(records)),
		zap.Int("returned", len(items)))
	return items, nil
}

func (vi *VectorIndex) itemFromRecord(rec MemoryRecord) memory.Item {
	item := memory.Item{ID: rec.ID, Content: rec.Content}
	if rec.Metadata != "" && rec.Metadata != "{}" {
		if err := json.Unmarshal([]byte(rec.Metadata), &item.Metadata); err != nil {
			vi.log.Warn("bad metadata json, dropping",
				zap.String("id", rec.ID), zap.Error(err))
			item.Metadata = nil
		}
	}
	return item
}
