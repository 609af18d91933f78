package store

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"time"
)

// MemoryRecord is one row of the memories table. Metadata is a JSON object
// serialized as text; Embedding is the content's vector under EmbedModel.
type MemoryRecord struct {
	ID         string
	Content    string
	Metadata   string
	Embedding  []float64
	EmbedModel string
	CreatedAt  int64
	UpdatedAt  int64
}

// encodeEmbedding converts a []float64 to a binary BLOB (8 bytes per float64).
func encodeEmbedding(vec []float64) []byte {
	buf := make([]byte, len(vec)*8)
	for i, v := range vec {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf
}

// decodeEmbedding converts a binary BLOB back to []float64.
func decodeEmbedding(buf []byte) []float64 {
	n := len(buf) / 8
	vec := make([]float64, n)
	for i := 0; i < n; i++ {
		vec[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[i*8:]))
	}
	return vec
}

// UpsertMemory inserts or replaces a memory row. The id wins conflicts: the
// newer content, metadata and embedding overwrite the old row while created_at
// keeps its original value.
func (db *DB) UpsertMemory(rec *MemoryRecord) error {
	now := time.Now().UnixMilli()
	if rec.Metadata == "" {
		rec.Metadata = "{}"
	}
	blob := encodeEmbedding(rec.Embedding)

	_, err := db.Exec(`
		INSERT INTO memories (id, content, metadata, embedding, embed_model, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			content = excluded.content,
			metadata = excluded.metadata,
			embedding = excluded.embedding,
			embed_model = excluded.embed_model,
			updated_at = excluded.updated_at
	`, rec.ID, rec.Content, rec.Metadata, blob, rec.EmbedModel, now, now)
	if err != nil {
		return fmt.Errorf("upsert memory %s: %w", rec.ID, err)
	}
	rec.UpdatedAt = now
	return nil
}

// GetMemory returns a memory row by id, or nil if not found.
func (db *DB) GetMemory(id string) (*MemoryRecord, error) {
	var rec MemoryRecord
	var blob []byte
	err := db.QueryRow(`
		SELECT id, content, metadata, embedding, embed_model, created_at, updated_at
		FROM memories WHERE id = ?
	`, id).Scan(&rec.ID, &rec.Content, &rec.Metadata, &blob, &rec.EmbedModel, &rec.CreatedAt, &rec.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get memory %s: %w", id, err)
	}
	rec.Embedding = decodeEmbedding(blob)
	return &rec, nil
}

// AllMemories returns every memory row, newest first. The search path scans
// these in full; memories are a personal corpus, not a warehouse.
func (db *DB) AllMemories() ([]MemoryRecord, error) {
	rows, err := db.Query(`
		SELECT id, content, metadata, embedding, embed_model, created_at, updated_at
		FROM memories ORDER BY created_at DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("all memories: %w", err)
	}
	defer rows.Close()

	var records []MemoryRecord
	for rows.Next() {
		var rec MemoryRecord
		var blob []byte
		if err := rows.Scan(&rec.ID, &rec.Content, &rec.Metadata, &blob,
			&rec.EmbedModel, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan memory: %w", err)
		}
		rec.Embedding = decodeEmbedding(blob)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// DeleteMemories removes rows by id and reports how many were deleted.
func (db *DB) DeleteMemories(ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	result, err := db.Exec(
		fmt.Sprintf("DELETE FROM memories WHERE id IN (%s)", strings.Join(placeholders, ",")),
		args...)
	if err != nil {
		return 0, fmt.Errorf("delete memories: %w", err)
	}
	n, _ := result.RowsAffected()
	return int(n), nil
}

// WipeMemories removes every memory row.
func (db *DB) WipeMemories() (int, error) {
	result, err := db.Exec("DELETE FROM memories")
	if err != nil {
		return 0, fmt.Errorf("wipe memories: %w", err)
	}
	n, _ := result.RowsAffected()
	return int(n), nil
}

// CountMemories returns the number of memory rows.
func (db *DB) CountMemories() (int, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM memories").Scan(&count)
	return count, err
}
