package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/recallkit/recall/internal/memory"
)

// searchTimeout bounds one search request. The intelligent path calls out to
// an LLM for query expansion, so this is generous.
const searchTimeout = 60 * time.Second

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"session_id"`
		Message   string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message required")
		return
	}

	if s.assistant == nil {
		writeError(w, http.StatusServiceUnavailable, "chat not available: no llm configured")
		return
	}

	res, err := s.assistant.Ask(r.Context(), req.SessionID, req.Message)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "q parameter required")
		return
	}

	k := memory.DefaultK
	if raw := r.URL.Query().Get("k"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			k = n
		}
	}

	mode := r.URL.Query().Get("mode")
	if mode == "" {
		mode = "basic"
	}
	var timeWeighted bool
	switch mode {
	case "plain":
	case "basic", "intelligent":
		timeWeighted = true
	default:
		writeError(w, http.StatusBadRequest, "mode must be plain, basic, or intelligent")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), searchTimeout)
	defer cancel()

	var items []memory.Item
	var err error
	if all := r.URL.Query().Get("all"); all == "1" || all == "true" {
		// Merged view: vector hits plus permanent-store substring hits.
		mode = "all"
		items, err = s.memories.SearchAll(ctx, query, k)
	} else {
		items, err = s.manager.Search(ctx, query, k, timeWeighted)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	results := make([]map[string]any, len(items))
	for i, item := range items {
		results[i] = item.View()
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"query":   query,
		"mode":    mode,
		"count":   len(results),
		"results": results,
	})
}

func (s *Server) handleUpsertMemories(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Items []memory.Item `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, "items required")
		return
	}
	for i, item := range req.Items {
		if strings.TrimSpace(item.Content) == "" {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("items[%d]: content required", i))
			return
		}
	}

	sum, err := s.memories.Save(r.Context(), req.Items, true)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"inserted": sum.VectorUpserts,
		"mirrored": sum.PermanentUpserts,
		"ids":      sum.IDs,
	})
}

func (s *Server) handleDeleteMemories(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []string `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if len(req.IDs) == 0 {
		writeError(w, http.StatusBadRequest, "ids required")
		return
	}

	sum, err := s.memories.Delete(r.Context(), req.IDs)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleWipeMemories(w http.ResponseWriter, r *http.Request) {
	sum, err := s.memories.Wipe(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	block, err := s.memories.UserContext(r.Context(), 0)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	rows, err := s.db.ListPermanentMemories(0)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]map[string]any, 0, len(rows))
	for _, p := range rows {
		var tags []string
		if err := json.Unmarshal([]byte(p.Tags), &tags); err != nil {
			tags = nil
		}
		out = append(out, map[string]any{
			"id":         p.ID,
			"content":    p.Content,
			"tags":       tags,
			"source":     p.Source,
			"created_at": memory.FormatTimestamp(time.UnixMilli(p.CreatedAt).UTC()),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"context": block,
		"count":   len(out),
		"rows":    out,
	})
}
