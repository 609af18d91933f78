package memory

import (
	"fmt"
	"hash/fnv"
	"time"
)

// Reserved metadata keys with system meaning. Everything else in an item's
// metadata passes through untouched.
const (
	MetaSource       = "source"
	MetaCreatedAt    = "created_at"
	MetaLastAccessed = "last_accessed_at"
	MetaType         = "type"
)

// Item types. The router mirrors core types into the permanent store;
// anything unrecognized is treated as a plain document.
const (
	TypeDocument   = "document"
	TypePreference = "preference"
	TypeFact       = "fact"
	TypeProfile    = "profile"
	TypeUserCore   = "user_core"
)

// Item is the unit of storage and retrieval: a content body plus an open
// metadata map. Re-upserting an ID overwrites the prior content and metadata
// entirely; there is no versioning.
type Item struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// MetaString returns a metadata value as a string, or "" when the key is
// absent or holds a non-string.
func (it Item) MetaString(key string) string {
	s, _ := it.Metadata[key].(string)
	return s
}

// SetMeta sets a metadata key, allocating the map if needed.
func (it *Item) SetMeta(key string, value any) {
	if it.Metadata == nil {
		it.Metadata = make(map[string]any, 1)
	}
	it.Metadata[key] = value
}

// View merges metadata and content into one flat map, the shape handed to API
// responses and prompt builders.
func (it Item) View() map[string]any {
	out := make(map[string]any, len(it.Metadata)+2)
	for k, v := range it.Metadata {
		out[k] = v
	}
	out["id"] = it.ID
	out["content"] = it.Content
	return out
}

// identityKey is the key candidates are deduplicated by across sub-queries:
// the explicit ID when present, else a truncated content prefix.
func identityKey(it Item) string {
	if it.ID != "" {
		return it.ID
	}
	if len(it.Content) > 50 {
		return it.Content[:50]
	}
	return it.Content
}

// cloneMeta copies a metadata map so stored items and caller-held chunks
// never share one.
func cloneMeta(meta map[string]any) map[string]any {
	if meta == nil {
		return nil
	}
	out := make(map[string]any, len(meta))
	for k, v := range meta {
		out[k] = v
	}
	return out
}

// DeriveID builds a deterministic id for a chunk that arrived without one,
// seeded by the ingestion time and the chunk content.
func DeriveID(content string, now time.Time) string {
	h := fnv.New32a()
	h.Write([]byte(content))
	return fmt.Sprintf("mem_%d_%08d", now.UnixMilli(), h.Sum32()%100000000)
}

// Chunk is the ingestion input: a content body plus arbitrary metadata
// fields. Missing IDs are derived at ingestion time.
type Chunk struct {
	ID       string         `json:"id,omitempty"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}
