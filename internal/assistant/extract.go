package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/recallkit/recall/internal/llm"
	"github.com/recallkit/recall/internal/memory"
)

const (
	// maxExtracted caps how many candidates one turn may store.
	maxExtracted = 3
	// maxExtractContent rejects runaway candidate sentences.
	maxExtractContent = 500
	// extractTimeout bounds the background extraction turn.
	extractTimeout = 30 * time.Second
)

// extractedFact is one candidate from the extraction model.
type extractedFact struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// extractTurn mines one finished turn for durable preferences and facts and
// stores whatever qualifies. It runs off the request path with its own
// deadline; every failure is logged and dropped.
func (a *Assistant) extractTurn(question, answer string) {
	ctx, cancel := context.WithTimeout(context.Background(), extractTimeout)
	defer cancel()

	resp, err := a.client.Complete(ctx, llm.ExtractFactsPrompt(question, answer))
	if err != nil {
		a.log.Warn("fact extraction failed", zap.Error(err))
		return
	}

	facts, err := parseFacts(resp.Content)
	if err != nil {
		a.log.Warn("fact extraction returned no usable candidates", zap.Error(err))
		return
	}
	if len(facts) == 0 {
		return
	}

	now := time.Now().UTC()
	stamp := memory.FormatTimestamp(now)
	items := make([]memory.Item, 0, len(facts))
	for _, f := range facts {
		items = append(items, memory.Item{
			ID:      extractionID(f.Type, f.Content, now),
			Content: f.Content,
			Metadata: map[string]any{
				memory.MetaType:      f.Type,
				memory.MetaSource:    "auto_extracted",
				memory.MetaCreatedAt: stamp,
			},
		})
	}

	if _, err := a.router.Save(ctx, items, true); err != nil {
		a.log.Warn("extracted facts not saved", zap.Error(err))
		return
	}
	a.log.Info("stored extracted facts", zap.Int("count", len(items)))
}

// parseFacts pulls the JSON array out of an extraction response that may be
// wrapped in markdown fences or prose, then validates each candidate.
func parseFacts(content string) ([]extractedFact, error) {
	content = strings.TrimSpace(content)

	// Strip markdown code fences if present
	if strings.HasPrefix(content, "```") {
		lines := strings.Split(content, "\n")
		if len(lines) > 2 {
			content = strings.Join(lines[1:len(lines)-1], "\n")
		}
	}
	content = strings.TrimSpace(content)

	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON array in response")
	}

	var raw []extractedFact
	if err := json.Unmarshal([]byte(content[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("unmarshal facts: %w", err)
	}

	kept := raw[:0]
	for _, f := range raw {
		f.Type = strings.ToLower(strings.TrimSpace(f.Type))
		f.Content = strings.TrimSpace(f.Content)
		if f.Type != memory.TypePreference && f.Type != memory.TypeFact {
			continue
		}
		if f.Content == "" || len(f.Content) > maxExtractContent {
			continue
		}
		kept = append(kept, f)
		if len(kept) == maxExtracted {
			break
		}
	}
	return kept, nil
}

// extractionID builds the id scheme for auto-extracted rows: type, content
// hash, and the extraction time.
func extractionID(typ, content string, now time.Time) string {
	h := fnv.New32a()
	h.Write([]byte(content))
	return fmt.Sprintf("%s_%d_%d", typ, h.Sum32(), now.Unix())
}
