package store

import (
	"database/sql"
	"fmt"
	"time"
)

// ChatSession represents one conversation thread.
type ChatSession struct {
	ID        string
	Title     string
	CreatedAt int64
	UpdatedAt int64
}

// EnsureChatSession returns the session with the given id, creating it when
// missing. title is only applied on creation.
func (db *DB) EnsureChatSession(id, title string) (*ChatSession, error) {
	existing, err := db.GetChatSession(id)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	now := time.Now().UnixMilli()
	if _, err := db.Exec(`
		INSERT INTO chat_sessions (id, title, created_at, updated_at)
		VALUES (?, ?, ?, ?)
	`, id, title, now, now); err != nil {
		return nil, fmt.Errorf("insert chat session: %w", err)
	}
	return &ChatSession{ID: id, Title: title, CreatedAt: now, UpdatedAt: now}, nil
}

// GetChatSession returns a session by id, or nil if not found.
func (db *DB) GetChatSession(id string) (*ChatSession, error) {
	var s ChatSession
	err := db.QueryRow(`
		SELECT id, title, created_at, updated_at
		FROM chat_sessions WHERE id = ?
	`, id).Scan(&s.ID, &s.Title, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get chat session: %w", err)
	}
	return &s, nil
}

// TouchChatSession bumps a session's updated_at to now.
func (db *DB) TouchChatSession(id string) error {
	_, err := db.Exec(`
		UPDATE chat_sessions SET updated_at = ? WHERE id = ?
	`, time.Now().UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("touch chat session: %w", err)
	}
	return nil
}

// RecentChatSessions returns the most recently active sessions.
func (db *DB) RecentChatSessions(limit int) ([]ChatSession, error) {
	rows, err := db.Query(`
		SELECT id, title, created_at, updated_at
		FROM chat_sessions ORDER BY updated_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent chat sessions: %w", err)
	}
	defer rows.Close()

	var sessions []ChatSession
	for rows.Next() {
		var s ChatSession
		if err := rows.Scan(&s.ID, &s.Title, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan chat session: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// DeleteChatSession removes a session; its messages cascade.
func (db *DB) DeleteChatSession(id string) error {
	_, err := db.Exec("DELETE FROM chat_sessions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete chat session: %w", err)
	}
	return nil
}
