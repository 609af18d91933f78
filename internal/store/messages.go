package store

import (
	"fmt"
	"time"
)

// Message roles accepted by the chat_messages table.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// ChatMessage is one turn inside a chat session.
type ChatMessage struct {
	ID        int64
	SessionID string
	Role      string
	Content   string
	CreatedAt int64
}

// AddChatMessage appends a message to a session and bumps the session's
// updated_at.
func (db *DB) AddChatMessage(sessionID, role, content string) (*ChatMessage, error) {
	now := time.Now().UnixMilli()
	result, err := db.Exec(`
		INSERT INTO chat_messages (session_id, role, content, created_at)
		VALUES (?, ?, ?, ?)
	`, sessionID, role, content, now)
	if err != nil {
		return nil, fmt.Errorf("insert chat message: %w", err)
	}
	if err := db.TouchChatSession(sessionID); err != nil {
		return nil, err
	}

	id, _ := result.LastInsertId()
	return &ChatMessage{
		ID:        id,
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: now,
	}, nil
}

// RecentChatMessages returns the last limit messages of a session in
// chronological order.
func (db *DB) RecentChatMessages(sessionID string, limit int) ([]ChatMessage, error) {
	rows, err := db.Query(`
		SELECT id, session_id, role, content, created_at
		FROM chat_messages WHERE session_id = ?
		ORDER BY id DESC LIMIT ?
	`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent chat messages: %w", err)
	}
	defer rows.Close()

	var messages []ChatMessage
	for rows.Next() {
		var m ChatMessage
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Newest-first from the query; flip to reading order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// CountChatMessages returns the number of messages in a session.
func (db *DB) CountChatMessages(sessionID string) (int, error) {
	var count int
	err := db.QueryRow(
		"SELECT COUNT(*) FROM chat_messages WHERE session_id = ?", sessionID,
	).Scan(&count)
	return count, err
}
