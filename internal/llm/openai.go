package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
)

// OpenAI calls an OpenAI-compatible chat completion API via langchaingo.
// A custom base URL points it at compatible gateways (OpenRouter etc.).
type OpenAI struct {
	llm   llms.Model
	model string
}

// NewOpenAI creates a new OpenAI client.
func NewOpenAI(apiKey, model, baseURL string) (*OpenAI, error) {
	opts := []openai.Option{
		openai.WithToken(apiKey),
		openai.WithModel(model),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create openai client: %w", err)
	}

	return &OpenAI{llm: client, model: model}, nil
}

// Complete sends a prompt as a single user message.
func (o *OpenAI) Complete(ctx context.Context, prompt string) (*Response, error) {
	messages := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeHuman, prompt),
	}

	completion, err := o.llm.GenerateContent(ctx, messages,
		llms.WithTemperature(0.3),
		llms.WithMaxTokens(2048),
	)
	if err != nil {
		return nil, fmt.Errorf("openai api: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("openai api: no choices in completion")
	}

	return &Response{
		Content:  completion.Choices[0].Content,
		Provider: "openai",
	}, nil
}
