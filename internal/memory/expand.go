package memory

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/recallkit/recall/internal/llm"
)

// maxExpandedQueries caps the fan-out width. The per-query rank boost in the
// intelligent retriever is unclamped and only stays positive while the rank
// is below 10, so this cap is a load-bearing invariant, not a tuning knob.
const maxExpandedQueries = 5

// Expander turns one user query into up to five related search queries via a
// text-generation client. It is the only read-path component that talks to a
// generative model.
type Expander struct {
	client llm.Client
	log    *zap.Logger
}

// NewExpander creates an Expander. client may not be nil in practice; a nil
// client simply degrades every expansion to the original query.
func NewExpander(client llm.Client, log *zap.Logger) *Expander {
	if log == nil {
		log = zap.NewNop()
	}
	return &Expander{client: client, log: log}
}

// Expand returns 1..5 search queries for query. Every failure mode — client
// error, non-JSON output, wrong shape, non-string elements — falls back to
// the original query alone, so the caller always has something to search.
func (e *Expander) Expand(ctx context.Context, query string) []string {
	queries, err := e.expand(ctx, query)
	if err != nil {
		e.log.Warn("query expansion failed, using original query",
			zap.String("query", query), zap.Error(err))
		return []string{query}
	}
	return queries
}

func (e *Expander) expand(ctx context.Context, query string) ([]string, error) {
	if e.client == nil {
		return nil, softf(KindExpansion, "no llm client configured")
	}

	resp, err := e.client.Complete(ctx, llm.ExpandQueryPrompt(query))
	if err != nil {
		return nil, soft(KindExpansion, err)
	}

	queries, err := parseQueryList(resp.Content)
	if err != nil {
		return nil, err
	}
	if len(queries) > maxExpandedQueries {
		queries = queries[:maxExpandedQueries]
	}
	return queries, nil
}

// parseQueryList extracts a JSON array of strings from an LLM response that
// may be wrapped in markdown fences or prose.
func parseQueryList(content string) ([]string, error) {
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
		return nil, softf(KindExpansion, "no JSON array in response")
	}

	var queries []string
	if err := json.Unmarshal([]byte(content[start:end+1]), &queries); err != nil {
		return nil, softf(KindExpansion, "unmarshal queries: %v", err)
	}

	kept := queries[:0]
	for _, q := range queries {
		if s := strings.TrimSpace(q); s != "" {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		return nil, softf(KindExpansion, "empty query list")
	}
	return kept, nil
}
