package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"websearch/internal/config"
	"websearch/internal/logger"
)

var (
	// ErrMissingAPIKey reports a provider selected without its credential.
	ErrMissingAPIKey = errors.New("missing API key")
	// ErrUnsupportedProvider reports an unknown provider name.
	ErrUnsupportedProvider = errors.New("unsupported LLM provider")
)

// Request is one generation call. JSONMode asks the provider for a JSON
// object response where the API supports it; prompts must still spell out the
// expected shape.
type Request struct {
	Prompt      string
	System      string
	Temperature float32
	MaxTokens   int
	JSONMode    bool
}

// Provider is a text generation backend.
type Provider interface {
	Generate(ctx context.Context, req Request) (string, error)
	Name() string
}

// New builds the provider selected by cfg.Provider. A missing credential is a
// construction-time error so the CLI can fail before any search work starts.
func New(cfg config.LLM) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai", "openrouter", "":
		return newOpenAIProvider(cfg)
	case "anthropic":
		return newAnthropicProvider(cfg)
	case "gemini":
		return newGeminiProvider(cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, cfg.Provider)
	}
}

// GenerateWithRetry calls the provider, retrying transient failures with a
// capped exponential backoff. attempts <= 0 selects a single try.
func GenerateWithRetry(ctx context.Context, p Provider, req Request, attempts int) (string, error) {
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	backoff := 500 * time.Millisecond
	for i := 0; i < attempts; i++ {
		if i > 0 {
			logger.Debug("retrying LLM call", "provider", p.Name(), "attempt", i+1, "backoff", backoff)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
			backoff *= 2
			if backoff > 8*time.Second {
				backoff = 8 * time.Second
			}
		}

		out, err := p.Generate(ctx, req)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}

	return "", fmt.Errorf("LLM generation failed after %d attempts: %w", attempts, lastErr)
}
