package embedding

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/recallkit/recall/internal/config"
)

// Embedder generates vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	Model() string
	Dimensions() int
}

// NewFromConfig builds the configured embedder. An empty provider probes
// Ollama once and falls back to the deterministic hash embedder, so a fresh
// install works without any embedding service running.
func NewFromConfig(cfg config.EmbeddingConfig, log *zap.Logger) (Embedder, error) {
	if log == nil {
		log = zap.NewNop()
	}

	switch cfg.Provider {
	case "ollama":
		return NewOllama(cfg.OllamaURL, cfg.Model, cfg.Dimensions), nil
	case "openai":
		if cfg.OpenAIKey == "" {
			return nil, fmt.Errorf("openai embeddings require an api key")
		}
		return NewOpenAI(cfg.OpenAIKey, cfg.Model)
	case "hash":
		return NewHash(cfg.Dimensions), nil
	case "":
		if ProbeOllama(cfg.OllamaURL, cfg.Model) {
			log.Info("using ollama embeddings",
				zap.String("url", cfg.OllamaURL), zap.String("model", cfg.Model))
			return NewOllama(cfg.OllamaURL, cfg.Model, cfg.Dimensions), nil
		}
		log.Info("ollama not reachable, using hash embeddings")
		return NewHash(0), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}

// Cosine computes the cosine similarity between two vectors. Mismatched or
// empty vectors score 0.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	return dot / denom
}

// normalize performs in-place L2 normalization.
func normalize(vec []float64) {
	var sum float64
	for _, v := range vec {
		sum += v * v
	}
	if sum == 0 {
		return
	}
	norm := math.Sqrt(sum)
	for i := range vec {
		vec[i] /= norm
	}
}
