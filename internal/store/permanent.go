package store

import (
	"fmt"
	"strings"
	"time"
)

// PermanentMemory is a core user fact that never decays and is always eligible
// for the user-context block. Tags is a JSON array serialized as text.
type PermanentMemory struct {
	ID        string
	Content   string
	Tags      string
	Source    string
	CreatedAt int64
}

// UpsertPermanentMemory inserts or replaces a permanent memory by id.
func (db *DB) UpsertPermanentMemory(p *PermanentMemory) error {
	if p.Tags == "" {
		p.Tags = "[]"
	}
	if p.CreatedAt == 0 {
		p.CreatedAt = time.Now().UnixMilli()
	}

	_, err := db.Exec(`
		INSERT INTO permanent_memories (id, content, tags, source, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			content = excluded.content,
			tags = excluded.tags,
			source = excluded.source
	`, p.ID, p.Content, p.Tags, p.Source, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert permanent memory %s: %w", p.ID, err)
	}
	return nil
}

// ListPermanentMemories returns permanent memories newest first. limit <= 0
// returns all of them.
func (db *DB) ListPermanentMemories(limit int) ([]PermanentMemory, error) {
	query := `
		SELECT id, content, tags, source, created_at
		FROM permanent_memories ORDER BY created_at DESC, id
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list permanent memories: %w", err)
	}
	defer rows.Close()

	var memories []PermanentMemory
	for rows.Next() {
		var p PermanentMemory
		if err := rows.Scan(&p.ID, &p.Content, &p.Tags, &p.Source, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan permanent memory: %w", err)
		}
		memories = append(memories, p)
	}
	return memories, rows.Err()
}

// SearchPermanentMemories returns rows whose content contains the query,
// case-insensitively, newest first.
func (db *DB) SearchPermanentMemories(query string, limit int) ([]PermanentMemory, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.Query(`
		SELECT id, content, tags, source, created_at
		FROM permanent_memories
		WHERE content LIKE '%' || ? || '%'
		ORDER BY created_at DESC, id LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search permanent memories: %w", err)
	}
	defer rows.Close()

	var memories []PermanentMemory
	for rows.Next() {
		var p PermanentMemory
		if err := rows.Scan(&p.ID, &p.Content, &p.Tags, &p.Source, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan permanent memory: %w", err)
		}
		memories = append(memories, p)
	}
	return memories, rows.Err()
}

// DeletePermanentMemories removes rows by id and reports how many matched.
func (db *DB) DeletePermanentMemories(ids []string) (int, error) {
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
		fmt.Sprintf("DELETE FROM permanent_memories WHERE id IN (%s)", strings.Join(placeholders, ",")),
		args...)
	if err != nil {
		return 0, fmt.Errorf("delete permanent memories: %w", err)
	}
	n, _ := result.RowsAffected()
	return int(n), nil
}

// WipePermanentMemories removes every permanent memory row.
func (db *DB) WipePermanentMemories() (int, error) {
	result, err := db.Exec("DELETE FROM permanent_memories")
	if err != nil {
		return 0, fmt.Errorf("wipe permanent memories: %w", err)
	}
	n, _ := result.RowsAffected()
	return int(n), nil
}
