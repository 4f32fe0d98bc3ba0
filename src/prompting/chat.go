package prompting

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/openai"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"hybridchat/src/model"
)

// ChatModel wraps an OpenAI-compatible chat completion model.
type ChatModel struct {
	model openai.ChatModel
}

// NewChatModel builds the chat model from config.
func NewChatModel(ctx context.Context, cfg model.ChatConfig) (*ChatModel, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}

	maxTokens := cfg.MaxTokens
	temperature := float32(cfg.Temperature)

	m, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		Model:       cfg.Model,
		MaxTokens:   &maxTokens,
		Temperature: &temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating chat model: %w", err)
	}
	return &ChatModel{model: *m}, nil
}

// Generate runs one chat completion and returns the answer text.
// maxTokens overrides the configured budget when positive.
func (c *ChatModel) Generate(ctx context.Context, messages []*schema.Message, maxTokens int) (string, error) {
	var opts []einomodel.Option
	if maxTokens > 0 {
		opts = append(opts, einomodel.WithMaxTokens(maxTokens))
	}

	out, err := c.model.Generate(ctx, messages, opts...)
	if err != nil {
		return "", fmt.Errorf("error generating response: %w", err)
	}
	return out.Content, nil
}
