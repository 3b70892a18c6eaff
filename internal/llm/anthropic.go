package llm

import (
	"context"
	"fmt"

	"github.com/liushuangls/go-anthropic/v2"

	"websearch/internal/config"
)

// AnthropicProvider speaks the Anthropic Messages API.
type AnthropicProvider struct {
	client *anthropic.Client
	model  anthropic.Model
}

func newAnthropicProvider(cfg config.LLM) (*AnthropicProvider, error) {
	if cfg.Anthropic.APIKey == "" {
		return nil, fmt.Errorf("anthropic: %w", ErrMissingAPIKey)
	}

	model := cfg.Model
	if model == "" {
		model = string(anthropic.ModelClaude3Dot5HaikuLatest)
	}

	return &AnthropicProvider{
		client: anthropic.NewClient(cfg.Anthropic.APIKey),
		model:  anthropic.Model(model),
	}, nil
}

// Name returns the provider name.
func (p *AnthropicProvider) Name() string { return "anthropic" }

// Generate runs one messages call. The API has no JSON response mode, so
// JSONMode relies on the prompt alone.
func (p *AnthropicProvider) Generate(ctx context.Context, req Request) (string, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	msgReq := anthropic.MessagesRequest{
		Model: p.model,
		Messages: []anthropic.Message{
			anthropic.NewUserTextMessage(req.Prompt),
		},
		MaxTokens: maxTokens,
	}
	if req.System != "" {
		msgReq.System = req.System
	}
	if req.Temperature > 0 {
		temp := req.Temperature
		msgReq.Temperature = &temp
	}

	resp, err := p.client.CreateMessages(ctx, msgReq)
	if err != nil {
		return "", fmt.Errorf("anthropic API error: %w", err)
	}

	text := resp.GetFirstContentText()
	if text == "" {
		return "", fmt.Errorf("anthropic returned empty content")
	}
	return text, nil
}
