package synthesis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"websearch/internal/llm"
	"websearch/internal/logger"
)

// Evaluation holds the advisory quality scores for a synthesized answer.
// Scores are in [0,1].
type Evaluation struct {
	FactualConsistency float64 `json:"factual_consistency_score"`
	Relevance          float64 `json:"relevance_score"`
	Completeness       float64 `json:"completeness_score"`
	Conciseness        float64 `json:"conciseness_score"`
	Feedback           string  `json:"llm_feedback"`
}

// Evaluator scores a synthesized answer against its source content.
type Evaluator struct {
	provider  llm.Provider
	maxTokens int
	retries   int
}

// NewEvaluator creates an evaluator on top of an LLM provider.
func NewEvaluator(provider llm.Provider, maxTokens, retries int) *Evaluator {
	if maxTokens <= 0 {
		maxTokens = 500
	}
	return &Evaluator{provider: provider, maxTokens: maxTokens, retries: retries}
}

const evaluationPromptTemplate = `You are an expert evaluator of synthesized answers. Your task is to assess the quality of a synthesized answer based on the original query and the source content it was derived from.

Original Query:
"%s"

Synthesized Answer:
"%s"

Original Source Content:
---
%s
---

Evaluate the answer based on the following criteria, providing a score from 0.0 to 1.0 for each, and a brief textual feedback.

1. Factual Consistency (0.0-1.0): How well does the synthesized answer align with the facts presented in the original source content? (1.0 = perfectly consistent, 0.0 = completely inconsistent or contains hallucinations)
2. Relevance (0.0-1.0): How relevant is the synthesized answer to the original query? (1.0 = perfectly relevant, 0.0 = completely irrelevant)
3. Completeness (0.0-1.0): How complete is the synthesized answer given the information available in the original source content? (1.0 = covers all key points from source relevant to query, 0.0 = misses crucial information)
4. Conciseness (0.0-1.0): How concise is the synthesized answer without losing important information? (1.0 = perfectly concise, 0.0 = overly verbose or too brief)

Provide your evaluation in a JSON format with the following keys: factual_consistency_score, relevance_score, completeness_score, conciseness_score, and llm_feedback (a string).

Example JSON output:
{"factual_consistency_score": 0.9, "relevance_score": 0.8, "completeness_score": 0.7, "conciseness_score": 0.9, "llm_feedback": "The answer is mostly accurate but could be more comprehensive."}

JSON Evaluation:`

// Evaluate scores the answer. The result is advisory; callers must not treat
// a low score or an evaluation failure as a pipeline failure.
func (e *Evaluator) Evaluate(ctx context.Context, query, answer string, content []string) (*Evaluation, error) {
	prompt := fmt.Sprintf(evaluationPromptTemplate, query, answer, strings.Join(content, "\n\n---\n\n"))

	logger.Debug("evaluating answer", "provider", e.provider.Name())

	out, err := llm.GenerateWithRetry(ctx, e.provider, llm.Request{
		Prompt:    prompt,
		MaxTokens: e.maxTokens,
		JSONMode:  true,
	}, e.retries)
	if err != nil {
		return nil, &ProviderError{Op: "evaluate", Err: err}
	}

	eval, err := parseEvaluation(out)
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}
	return eval, nil
}

// parseEvaluation decodes the provider's JSON, tolerating markdown code
// fences, and clamps every score into [0,1].
func parseEvaluation(raw string) (*Evaluation, error) {
	cleaned := stripCodeFences(strings.TrimSpace(raw))

	var eval Evaluation
	if err := json.Unmarshal([]byte(cleaned), &eval); err != nil {
		return nil, fmt.Errorf("malformed evaluation JSON: %w", err)
	}

	eval.FactualConsistency = clamp01(eval.FactualConsistency)
	eval.Relevance = clamp01(eval.Relevance)
	eval.Completeness = clamp01(eval.Completeness)
	eval.Conciseness = clamp01(eval.Conciseness)

	return &eval, nil
}

// stripCodeFences unwraps ```json ... ``` blocks some models emit despite
// JSON mode.
func stripCodeFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
