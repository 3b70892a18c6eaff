package synthesis

import (
	"context"
	"errors"
	"strings"
	"testing"

	"websearch/internal/llm"
)

type stubProvider struct {
	response string
	err      error
	lastReq  llm.Request
}

func (s *stubProvider) Generate(ctx context.Context, req llm.Request) (string, error) {
	s.lastReq = req
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func (s *stubProvider) Name() string { return "stub" }

func TestSynthesizeEmptyInput(t *testing.T) {
	s := NewSynthesizer(&stubProvider{response: "answer"}, 0.2, 500, 1)

	for _, snippets := range [][]string{nil, {}, {"", "   "}} {
		_, err := s.Synthesize(context.Background(), "query", snippets)
		if !errors.Is(err, ErrEmptyInput) {
			t.Errorf("Expected ErrEmptyInput for %v, got %v", snippets, err)
		}
	}
}

func TestSynthesizeIncludesSnippetsInPrompt(t *testing.T) {
	p := &stubProvider{response: "the answer"}
	s := NewSynthesizer(p, 0.2, 500, 1)

	out, err := s.Synthesize(context.Background(), "what is x", []string{"snippet one", "snippet two"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if out != "the answer" {
		t.Errorf("Expected trimmed provider response, got %q", out)
	}
	if !strings.Contains(p.lastReq.Prompt, "what is x") {
		t.Error("Expected prompt to include the query")
	}
	if !strings.Contains(p.lastReq.Prompt, "snippet one") || !strings.Contains(p.lastReq.Prompt, "snippet two") {
		t.Error("Expected prompt to include all snippets")
	}
	if p.lastReq.Temperature != 0.2 {
		t.Errorf("Expected temperature 0.2, got %v", p.lastReq.Temperature)
	}
}

func TestSynthesizeProviderError(t *testing.T) {
	p := &stubProvider{err: errors.New("boom")}
	s := NewSynthesizer(p, 0.2, 500, 1)

	_, err := s.Synthesize(context.Background(), "q", []string{"snippet"})
	var provErr *ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("Expected *ProviderError, got %T: %v", err, err)
	}
	if provErr.Op != "synthesize" {
		t.Errorf("Expected op synthesize, got %s", provErr.Op)
	}
}

func TestSynthesizeEmptyAnswerIsError(t *testing.T) {
	p := &stubProvider{response: "   \n  "}
	s := NewSynthesizer(p, 0.2, 500, 1)

	_, err := s.Synthesize(context.Background(), "q", []string{"snippet"})
	var provErr *ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("Expected *ProviderError for blank answer, got %v", err)
	}
}

func TestEvaluateParsesScores(t *testing.T) {
	p := &stubProvider{response: `{"factual_consistency_score": 0.9, "relevance_score": 0.8, "completeness_score": 0.7, "conciseness_score": 0.95, "llm_feedback": "solid"}`}
	e := NewEvaluator(p, 500, 1)

	eval, err := e.Evaluate(context.Background(), "q", "a", []string{"content"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if eval.FactualConsistency != 0.9 || eval.Relevance != 0.8 || eval.Completeness != 0.7 || eval.Conciseness != 0.95 {
		t.Errorf("Unexpected scores: %+v", eval)
	}
	if eval.Feedback != "solid" {
		t.Errorf("Expected feedback solid, got %q", eval.Feedback)
	}
	if !p.lastReq.JSONMode {
		t.Error("Expected evaluation to request JSON mode")
	}
}

func TestEvaluateClampsScores(t *testing.T) {
	p := &stubProvider{response: `{"factual_consistency_score": 1.7, "relevance_score": -0.3, "completeness_score": 0.5, "conciseness_score": 2.0, "llm_feedback": ""}`}
	e := NewEvaluator(p, 500, 1)

	eval, err := e.Evaluate(context.Background(), "q", "a", []string{"content"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if eval.FactualConsistency != 1.0 {
		t.Errorf("Expected clamp to 1.0, got %v", eval.FactualConsistency)
	}
	if eval.Relevance != 0.0 {
		t.Errorf("Expected clamp to 0.0, got %v", eval.Relevance)
	}
	if eval.Conciseness != 1.0 {
		t.Errorf("Expected clamp to 1.0, got %v", eval.Conciseness)
	}
}

func TestEvaluateStripsCodeFences(t *testing.T) {
	p := &stubProvider{response: "```json\n{\"factual_consistency_score\": 0.5, \"relevance_score\": 0.5, \"completeness_score\": 0.5, \"conciseness_score\": 0.5, \"llm_feedback\": \"fenced\"}\n```"}
	e := NewEvaluator(p, 500, 1)

	eval, err := e.Evaluate(context.Background(), "q", "a", []string{"content"})
	if err != nil {
		t.Fatalf("Expected fenced JSON to parse, got %v", err)
	}
	if eval.Feedback != "fenced" {
		t.Errorf("Expected feedback fenced, got %q", eval.Feedback)
	}
}

func TestEvaluateMalformedJSON(t *testing.T) {
	p := &stubProvider{response: "I think the answer is pretty good overall."}
	e := NewEvaluator(p, 500, 1)

	_, err := e.Evaluate(context.Background(), "q", "a", []string{"content"})
	if err == nil {
		t.Fatal("Expected error for non-JSON evaluation output")
	}
}

func TestEvaluateProviderError(t *testing.T) {
	p := &stubProvider{err: errors.New("rate limited")}
	e := NewEvaluator(p, 500, 1)

	_, err := e.Evaluate(context.Background(), "q", "a", []string{"content"})
	var provErr *ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("Expected *ProviderError, got %v", err)
	}
	if provErr.Op != "evaluate" {
		t.Errorf("Expected op evaluate, got %s", provErr.Op)
	}
}
