package router

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/recallkit/recall/internal/memory"
	"github.com/recallkit/recall/internal/store"
)

// coreTypes are the item types mirrored into permanent_memories. Everything
// else lives only in the vector index and is subject to time decay at read
// time; core rows are always on hand for the user-context block.
var coreTypes = map[string]bool{
	memory.TypePreference: true,
	memory.TypeFact:       true,
	memory.TypeProfile:    true,
	memory.TypeUserCore:   true,
}

// Router sends memory items to the stores that should hold them: every item
// goes to the vector index for semantic retrieval, and core-typed items are
// additionally mirrored into the permanent table.
type Router struct {
	manager *memory.Manager
	db      *store.DB
	log     *zap.Logger
	now     func() time.Time
}

// New creates a Router over the given facade and database.
func New(manager *memory.Manager, db *store.DB, log *zap.Logger) *Router {
	if log == nil {
		log = zap.NewNop()
	}
	return &Router{
		manager: manager,
		db:      db,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Summary counts what a routing operation touched in each store. Save also
// reports the ids it wrote, since missing ids are derived during
// normalization and the caller has no other way to learn them.
type Summary struct {
	VectorUpserts    int      `json:"vector_upserts"`
	PermanentUpserts int      `json:"permanent_upserts"`
	VectorDeletes    int      `json:"vector_deletes"`
	PermanentDeletes int      `json:"permanent_deletes"`
	IDs              []string `json:"ids,omitempty"`
}

// Save normalizes and stores items. Core-typed items are mirrored into the
// permanent table; all items go to the vector index unless toVector is false.
func (r *Router) Save(ctx context.Context, items []memory.Item, toVector bool) (Summary, error) {
	var sum Summary
	chunks := make([]memory.Chunk, 0, len(items))

	for _, raw := range items {
		item := r.normalize(raw)
		sum.IDs = append(sum.IDs, item.ID)

		if typ := strings.ToLower(item.MetaString(memory.MetaType)); coreTypes[typ] {
			tags := []string{typ}
			if cat := item.MetaString("category"); cat != "" {
				tags = append(tags, cat)
			}
			rawTags, err := json.Marshal(tags)
			if err != nil {
				return sum, fmt.Errorf("marshal tags for %s: %w", item.ID, err)
			}

			perm := &store.PermanentMemory{
				ID:      item.ID,
				Content: item.Content,
				Tags:    string(rawTags),
				Source:  item.MetaString(memory.MetaSource),
			}
			if err := r.db.UpsertPermanentMemory(perm); err != nil {
				return sum, fmt.Errorf("mirror core memory %s: %w", item.ID, err)
			}
			sum.PermanentUpserts++
		}

		if toVector {
			chunks = append(chunks, memory.Chunk{
				ID:       item.ID,
				Content:  item.Content,
				Metadata: item.Metadata,
			})
		}
	}

	if len(chunks) > 0 {
		if err := r.manager.Ingest(ctx, chunks); err != nil {
			return sum, err
		}
		sum.VectorUpserts = len(chunks)
	}
	return sum, nil
}

// normalize fills the fields every stored item must carry. The input is not
// mutated.
func (r *Router) normalize(item memory.Item) memory.Item {
	meta := make(map[string]any, len(item.Metadata)+2)
	for k, v := range item.Metadata {
		meta[k] = v
	}
	item.Metadata = meta

	now := r.now()
	if item.ID == "" {
		item.ID = memory.DeriveID(item.Content, now)
	}
	if item.MetaString(memory.MetaCreatedAt) == "" {
		item.SetMeta(memory.MetaCreatedAt, memory.FormatTimestamp(now))
	}
	if item.MetaString(memory.MetaSource) == "" {
		item.SetMeta(memory.MetaSource, "manual")
	}
	return item
}

// Delete removes ids from both stores. Missing ids are not an error; the
// summary reports how many rows each store actually dropped.
func (r *Router) Delete(ctx context.Context, ids []string) (Summary, error) {
	var sum Summary

	n, err := r.db.DeleteMemories(ids)
	if err != nil {
		return sum, err
	}
	sum.VectorDeletes = n

	n, err = r.db.DeletePermanentMemories(ids)
	if err != nil {
		return sum, err
	}
	sum.PermanentDeletes = n
	return sum, nil
}

// Wipe clears both stores.
func (r *Router) Wipe(ctx context.Context) (Summary, error) {
	var sum Summary

	n, err := r.db.WipeMemories()
	if err != nil {
		return sum, err
	}
	sum.VectorDeletes = n

	n, err = r.db.WipePermanentMemories()
	if err != nil {
		return sum, err
	}
	sum.PermanentDeletes = n

	r.log.Info("wiped memory stores",
		zap.Int("vector_rows", sum.VectorDeletes),
		zap.Int("permanent_rows", sum.PermanentDeletes))
	return sum, nil
}

// SearchAll aggregates semantic results with substring-matched permanent rows,
// deduplicated by id with the vector order first, capped at 2k.
func (r *Router) SearchAll(ctx context.Context, query string, k int) ([]memory.Item, error) {
	if k <= 0 {
		k = memory.DefaultK
	}

	vector, err := r.manager.Search(ctx, query, k, false)
	if err != nil {
		return nil, err
	}

	permanent, err := r.db.SearchPermanentMemories(query, k)
	if err != nil {
		// Core rows are a bonus on this path, not a requirement.
		r.log.Warn("permanent memory search failed", zap.Error(err))
		permanent = nil
	}

	seen := make(map[string]bool, len(vector)+len(permanent))
	combined := make([]memory.Item, 0, len(vector)+len(permanent))
	for _, it := range vector {
		if it.ID != "" && seen[it.ID] {
			continue
		}
		seen[it.ID] = true
		combined = append(combined, it)
	}
	for _, p := range permanent {
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		combined = append(combined, permanentItem(p))
	}

	if len(combined) > 2*k {
		combined = combined[:2*k]
	}
	return combined, nil
}

// UserContext renders the newest core memories as a prompt-ready block.
// Returns "" when nothing permanent is stored.
func (r *Router) UserContext(ctx context.Context, limit int) (string, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.ListPermanentMemories(limit)
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", nil
	}

	var prefs, facts []string
	for _, p := range rows {
		line := "- " + p.Content
		if firstTag(p.Tags) == memory.TypePreference {
			prefs = append(prefs, line)
		} else {
			facts = append(facts, line)
		}
	}

	var b strings.Builder
	if len(prefs) > 0 {
		b.WriteString("USER PREFERENCES:\n")
		b.WriteString(strings.Join(prefs, "\n"))
	}
	if len(facts) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("IMPORTANT USER FACTS:\n")
		b.WriteString(strings.Join(facts, "\n"))
	}
	return b.String(), nil
}

// permanentItem converts a permanent row into the item shape the rest of the
// system speaks.
func permanentItem(p store.PermanentMemory) memory.Item {
	item := memory.Item{ID: p.ID, Content: p.Content}
	if typ := firstTag(p.Tags); typ != "" {
		item.SetMeta(memory.MetaType, typ)
	}
	if p.Source != "" {
		item.SetMeta(memory.MetaSource, p.Source)
	}
	item.SetMeta(memory.MetaCreatedAt, memory.FormatTimestamp(time.UnixMilli(p.CreatedAt).UTC()))
	return item
}

// firstTag returns the first entry of a JSON tags array, the slot the item
// type is written to.
func firstTag(tags string) string {
	var parsed []string
	if err := json.Unmarshal([]byte(tags), &parsed); err != nil || len(parsed) == 0 {
		return ""
	}
	return parsed[0]
}
