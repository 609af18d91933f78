package assistant

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/recallkit/recall/internal/llm"
	"github.com/recallkit/recall/internal/memory"
	"github.com/recallkit/recall/internal/router"
	"github.com/recallkit/recall/internal/store"
)

const (
	// DefaultContextK is how many memories back an answer.
	DefaultContextK = 5
	// historyLimit is how many prior messages are replayed into the prompt.
	historyLimit = 10
	// historyClip bounds each history message inside the prompt.
	historyClip = 200
	// titleClip bounds the session title derived from the first question.
	titleClip = 80
)

// Assistant answers questions from stored memories and keeps per-session
// chat history in SQLite.
type Assistant struct {
	manager *memory.Manager
	router  *router.Router
	db      *store.DB
	client  llm.Client
	log     *zap.Logger

	k       int
	extract bool
	spawn   func(func()) // runs background work; swapped inline in tests
}

// Config tunes an Assistant.
type Config struct {
	// ContextK is how many memories to retrieve per answer. Zero means
	// DefaultContextK.
	ContextK int
	// ExtractFacts mines each finished turn for durable preferences and
	// facts in the background.
	ExtractFacts bool
}

// New wires an Assistant. log may be nil.
func New(manager *memory.Manager, r *router.Router, db *store.DB, client llm.Client, cfg Config, log *zap.Logger) *Assistant {
	if log == nil {
		log = zap.NewNop()
	}
	k := cfg.ContextK
	if k <= 0 {
		k = DefaultContextK
	}
	return &Assistant{
		manager: manager,
		router:  r,
		db:      db,
		client:  client,
		log:     log,
		k:       k,
		extract: cfg.ExtractFacts,
		spawn:   func(f func()) { go f() },
	}
}

// Result is one answered turn.
type Result struct {
	SessionID string `json:"session_id"`
	Answer    string `json:"answer"`
}

// Ask answers question inside the given session, creating the session when
// sessionID is empty. The turn is persisted to chat history, and when
// extraction is enabled the finished turn is mined for durable facts off the
// request path.
func (a *Assistant) Ask(ctx context.Context, sessionID, question string) (*Result, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("empty question")
	}

	if sessionID == "" {
		sessionID = store.NewID()
	}
	if _, err := a.db.EnsureChatSession(sessionID, clip(question, titleClip)); err != nil {
		return nil, fmt.Errorf("ensure session: %w", err)
	}

	history, err := a.db.RecentChatMessages(sessionID, historyLimit)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	memories, err := a.manager.Search(ctx, question, a.k, true)
	if err != nil {
		return nil, fmt.Errorf("retrieve memories: %w", err)
	}

	userContext, err := a.router.UserContext(ctx, 0)
	if err != nil {
		a.log.Warn("user context unavailable", zap.Error(err))
		userContext = ""
	}

	prompt := llm.AnswerPrompt(userContext, formatMemories(memories), formatHistory(history), question)
	resp, err := a.client.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("complete answer: %w", err)
	}
	answer := strings.TrimSpace(resp.Content)

	if _, err := a.db.AddChatMessage(sessionID, store.RoleUser, question); err != nil {
		return nil, fmt.Errorf("save user message: %w", err)
	}
	if _, err := a.db.AddChatMessage(sessionID, store.RoleAssistant, answer); err != nil {
		return nil, fmt.Errorf("save assistant message: %w", err)
	}

	a.log.Debug("answered question",
		zap.String("session", sessionID),
		zap.Int("memories", len(memories)),
		zap.Int("history", len(history)))

	if a.extract {
		a.spawn(func() { a.extractTurn(question, answer) })
	}

	return &Result{SessionID: sessionID, Answer: answer}, nil
}

// formatMemories renders retrieved items for the answer prompt. Preference
// and fact rows are left out here; they arrive through the user-context
// block instead.
func formatMemories(items []memory.Item) string {
	var parts []string
	for _, item := range items {
		typ := item.MetaString(memory.MetaType)
		if typ == memory.TypePreference || typ == memory.TypeFact {
			continue
		}

		var b strings.Builder
		fmt.Fprintf(&b, "[Memory %d]", len(parts)+1)
		if created := item.MetaString(memory.MetaCreatedAt); created != "" {
			fmt.Fprintf(&b, " (from %s)", created)
		}
		if source := item.MetaString(memory.MetaSource); source != "" {
			fmt.Fprintf(&b, " [Source: %s]", source)
		}
		b.WriteString("\n")
		b.WriteString(item.Content)
		parts = append(parts, b.String())
	}
	return strings.Join(parts, "\n\n")
}

// formatHistory renders recent chat turns oldest first, clipping long
// messages so one verbose answer cannot crowd out the rest of the prompt.
func formatHistory(messages []store.ChatMessage) string {
	lines := make([]string, 0, len(messages))
	for _, msg := range messages {
		role := "User"
		switch msg.Role {
		case store.RoleAssistant:
			role = "Assistant"
		case store.RoleSystem:
			role = "System"
		}
		lines = append(lines, fmt.Sprintf("%s: %s", role, clip(msg.Content, historyClip)))
	}
	return strings.Join(lines, "\n")
}

func clip(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
