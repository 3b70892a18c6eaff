package synthesis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"websearch/internal/llm"
	"websearch/internal/logger"
)

// ErrEmptyInput reports a synthesis attempt with no usable source material.
var ErrEmptyInput = errors.New("no content snippets to synthesize from")

// ProviderError wraps an LLM failure that survived the retry policy.
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: provider failure: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Synthesizer turns extracted page content into a grounded answer.
type Synthesizer struct {
	provider    llm.Provider
	temperature float32
	maxTokens   int
	retries     int
}

// NewSynthesizer creates a synthesizer on top of an LLM provider.
func NewSynthesizer(provider llm.Provider, temperature float32, maxTokens, retries int) *Synthesizer {
	if maxTokens <= 0 {
		maxTokens = 500
	}
	return &Synthesizer{
		provider:    provider,
		temperature: temperature,
		maxTokens:   maxTokens,
		retries:     retries,
	}
}

const synthesisPromptTemplate = `You are an expert assistant tasked with synthesizing a concise and accurate answer to a user's query based on provided text snippets.

Here's the user's query:
"%s"

Here are the text snippets from various web pages. Use ONLY the information present in these snippets to formulate your answer. Do NOT use any outside knowledge.

---
%s
---

Based on the query and the provided snippets, please synthesize a direct, concise, and factual answer. If the snippets do not contain enough information to answer the query, state that clearly.

Synthesized Answer:`

// Synthesize produces an answer grounded exclusively in the given snippets.
func (s *Synthesizer) Synthesize(ctx context.Context, query string, snippets []string) (string, error) {
	usable := make([]string, 0, len(snippets))
	for _, snippet := range snippets {
		if strings.TrimSpace(snippet) != "" {
			usable = append(usable, snippet)
		}
	}
	if len(usable) == 0 {
		return "", ErrEmptyInput
	}

	prompt := fmt.Sprintf(synthesisPromptTemplate, query, strings.Join(usable, "\n\n---\n\n"))

	logger.Debug("synthesizing answer", "provider", s.provider.Name(), "snippets", len(usable))

	out, err := llm.GenerateWithRetry(ctx, s.provider, llm.Request{
		Prompt:      prompt,
		Temperature: s.temperature,
		MaxTokens:   s.maxTokens,
	}, s.retries)
	if err != nil {
		return "", &ProviderError{Op: "synthesize", Err: err}
	}

	answer := strings.TrimSpace(out)
	if answer == "" {
		return "", &ProviderError{Op: "synthesize", Err: errors.New("empty answer from provider")}
	}

	return answer, nil
}
