package embedding

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms/openai"
)

const defaultOpenAIModel = "text-embedding-3-small"

// OpenAI embeds text through the OpenAI embeddings API.
type OpenAI struct {
	llm   *openai.LLM
	model string
	dims  int
}

// NewOpenAI creates an OpenAI-backed embedder.
func NewOpenAI(apiKey, model string) (*OpenAI, error) {
	if model == "" {
		model = defaultOpenAIModel
	}
	llm, err := openai.New(
		openai.WithToken(apiKey),
		openai.WithEmbeddingModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("create openai client: %w", err)
	}
	return &OpenAI{llm: llm, model: model}, nil
}

func (o *OpenAI) Model() string   { return "openai:" + o.model }
func (o *OpenAI) Dimensions() int { return o.dims }

// Embed returns the embedding vector for text.
func (o *OpenAI) Embed(ctx context.Context, text string) ([]float64, error) {
	vectors, err := o.llm.CreateEmbedding(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("openai embed: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("openai returned no embeddings")
	}

	vec := make([]float64, len(vectors[0]))
	for i, v := range vectors[0] {
		vec[i] = float64(v)
	}
	o.dims = len(vec)
	return vec, nil
}
