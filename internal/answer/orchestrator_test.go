package answer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"websearch/internal/extract"
	"websearch/internal/search"
	"websearch/internal/synthesis"
)

type stubSearcher struct {
	out *search.Output
	err error
}

func (s *stubSearcher) Run(ctx context.Context, query string, opts search.Options, enabled []string) (*search.Output, error) {
	return s.out, s.err
}

type stubExtractor struct {
	contents []extract.Content
}

func (s *stubExtractor) ExtractAll(ctx context.Context, urls []string) []extract.Content {
	if s.contents != nil {
		return s.contents
	}
	out := make([]extract.Content, len(urls))
	for i, u := range urls {
		out[i] = extract.Content{URL: u, Text: "content of " + u, Quality: extract.Quality{OK: true}}
	}
	return out
}

type stubSynthesizer struct {
	answer string
	err    error
}

func (s *stubSynthesizer) Synthesize(ctx context.Context, query string, snippets []string) (string, error) {
	return s.answer, s.err
}

type stubEvaluator struct {
	eval *synthesis.Evaluation
	err  error
}

func (s *stubEvaluator) Evaluate(ctx context.Context, query, answer string, content []string) (*synthesis.Evaluation, error) {
	return s.eval, s.err
}

type recordedEntry struct {
	backend string
	ok      bool
}

type stubRecorder struct {
	entries []recordedEntry
	err     error
}

func (s *stubRecorder) Record(runID, backend, query string, duration time.Duration, results int, ok bool, errMsg string) error {
	s.entries = append(s.entries, recordedEntry{backend: backend, ok: ok})
	return s.err
}

func searchOutput(urls ...string) *search.Output {
	results := make([]search.Result, len(urls))
	for i, u := range urls {
		results[i] = search.Result{Title: u, URL: u, Source: "mock"}
	}
	return &search.Output{
		Query:  "q",
		Merged: results,
		Statuses: []search.BackendStatus{
			{Backend: "mock", OK: true, Results: len(urls)},
		},
	}
}

func TestRunHappyPath(t *testing.T) {
	o := NewOrchestrator(
		&stubSearcher{out: searchOutput("https://a.example/1", "https://a.example/2")},
		&stubExtractor{},
		&stubSynthesizer{answer: "the answer"},
		&stubEvaluator{eval: &synthesis.Evaluation{Relevance: 0.9}},
		nil,
	)

	out, err := o.Run(context.Background(), "q", Options{Evaluate: true})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if out.State != StateDone {
		t.Errorf("Expected state DONE, got %s", out.State)
	}
	if out.Answer == nil || out.Answer.Text != "the answer" {
		t.Errorf("Expected synthesized answer, got %+v", out.Answer)
	}
	if out.Evaluation == nil || out.Evaluation.Relevance != 0.9 {
		t.Errorf("Expected evaluation, got %+v", out.Evaluation)
	}
	if len(out.SourceURLs) != 2 {
		t.Errorf("Expected 2 source URLs, got %d", len(out.SourceURLs))
	}
	if len(out.Errors) != 0 {
		t.Errorf("Expected no recorded errors, got %v", out.Errors)
	}
	if out.RunID == "" {
		t.Error("Expected a run ID")
	}
}

func TestRunPartialBackendFailureIsVisible(t *testing.T) {
	searchOut := searchOutput("https://a.example/1")
	searchOut.Statuses = append(searchOut.Statuses, search.BackendStatus{
		Backend: "broken",
		Err:     "connection refused",
	})
	o := NewOrchestrator(
		&stubSearcher{out: searchOut},
		&stubExtractor{},
		&stubSynthesizer{answer: "answer"},
		nil,
		nil,
	)

	out, err := o.Run(context.Background(), "q", Options{})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if out.State != StateDone {
		t.Errorf("Expected state DONE, got %s", out.State)
	}
	if len(out.Errors) != 1 {
		t.Fatalf("Expected failed backend recorded in Errors, got %v", out.Errors)
	}
	if !strings.Contains(out.Errors[0], "broken") || !strings.Contains(out.Errors[0], "connection refused") {
		t.Errorf("Expected backend name and cause in the error entry, got %q", out.Errors[0])
	}
}

func TestRunSearchTotalFailure(t *testing.T) {
	allFailed := &search.AllFailedError{
		Query: "q",
		Statuses: []search.BackendStatus{
			{Backend: "a", Err: "boom"},
		},
	}
	o := NewOrchestrator(&stubSearcher{err: allFailed}, &stubExtractor{}, &stubSynthesizer{}, nil, nil)

	out, err := o.Run(context.Background(), "q", Options{})
	if err == nil {
		t.Fatal("Expected error on total search failure")
	}
	if out.State != StateFailed {
		t.Errorf("Expected state FAILED, got %s", out.State)
	}
	if len(out.BackendStatuses) != 1 {
		t.Errorf("Expected failed statuses preserved in output, got %d", len(out.BackendStatuses))
	}
	if len(out.Errors) == 0 {
		t.Error("Expected the failure recorded in errors")
	}
}

func TestRunEmptyMergedListFails(t *testing.T) {
	o := NewOrchestrator(&stubSearcher{out: searchOutput()}, &stubExtractor{}, &stubSynthesizer{}, nil, nil)

	out, err := o.Run(context.Background(), "q", Options{})
	if err == nil {
		t.Fatal("Expected error when no links are available")
	}
	if out.State != StateFailed {
		t.Errorf("Expected state FAILED, got %s", out.State)
	}
}

func TestRunAllExtractionUnusableDegrades(t *testing.T) {
	contents := []extract.Content{
		{URL: "https://a.example/1", Quality: extract.Quality{OK: false, Reason: extract.ReasonTooShort}},
		{URL: "https://a.example/2", Quality: extract.Quality{OK: false, Reason: extract.ReasonFetchError}},
	}
	o := NewOrchestrator(
		&stubSearcher{out: searchOutput("https://a.example/1", "https://a.example/2")},
		&stubExtractor{contents: contents},
		&stubSynthesizer{answer: "never used"},
		nil,
		nil,
	)

	out, err := o.Run(context.Background(), "q", Options{})
	if err != nil {
		t.Fatalf("Expected degraded completion, not error, got %v", err)
	}
	if out.State != StateDegradedDone {
		t.Errorf("Expected state DEGRADED_DONE, got %s", out.State)
	}
	if out.Answer != nil {
		t.Error("Expected no answer in degraded state")
	}
	if len(out.Errors) < 3 {
		t.Errorf("Expected per-URL errors plus the summary entry, got %v", out.Errors)
	}
	if len(out.Contents) != 2 {
		t.Errorf("Expected extraction outcomes preserved, got %d", len(out.Contents))
	}
}

func TestRunSynthesisFailureDegrades(t *testing.T) {
	o := NewOrchestrator(
		&stubSearcher{out: searchOutput("https://a.example/1")},
		&stubExtractor{},
		&stubSynthesizer{err: errors.New("provider down")},
		nil,
		nil,
	)

	out, err := o.Run(context.Background(), "q", Options{})
	if err != nil {
		t.Fatalf("Expected degraded completion, not error, got %v", err)
	}
	if out.State != StateDegradedDone {
		t.Errorf("Expected state DEGRADED_DONE, got %s", out.State)
	}
	if out.Answer != nil {
		t.Error("Expected no answer after synthesis failure")
	}
	if len(out.Contents) != 1 {
		t.Error("Expected extracted content preserved for diagnostics")
	}
}

func TestRunEvaluationFailureStillDone(t *testing.T) {
	o := NewOrchestrator(
		&stubSearcher{out: searchOutput("https://a.example/1")},
		&stubExtractor{},
		&stubSynthesizer{answer: "answer"},
		&stubEvaluator{err: errors.New("eval down")},
		nil,
	)

	out, err := o.Run(context.Background(), "q", Options{Evaluate: true})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if out.State != StateDone {
		t.Errorf("Expected state DONE despite evaluation failure, got %s", out.State)
	}
	if out.Evaluation != nil {
		t.Error("Expected nil evaluation after evaluator failure")
	}
	if out.Answer == nil || out.Answer.Text != "answer" {
		t.Error("Expected the answer to survive evaluation failure")
	}
	if len(out.Errors) != 1 {
		t.Errorf("Expected one recorded error, got %v", out.Errors)
	}
}

func TestRunEvaluationSkippedWhenDisabled(t *testing.T) {
	eval := &stubEvaluator{eval: &synthesis.Evaluation{Relevance: 1}}
	o := NewOrchestrator(
		&stubSearcher{out: searchOutput("https://a.example/1")},
		&stubExtractor{},
		&stubSynthesizer{answer: "answer"},
		eval,
		nil,
	)

	out, err := o.Run(context.Background(), "q", Options{Evaluate: false})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if out.Evaluation != nil {
		t.Error("Expected no evaluation when disabled")
	}
	if out.State != StateDone {
		t.Errorf("Expected state DONE, got %s", out.State)
	}
}

func TestRunNumLinksLimitsSelection(t *testing.T) {
	searcher := &stubSearcher{out: searchOutput(
		"https://a.example/1", "https://a.example/2", "https://a.example/3", "https://a.example/4",
	)}
	o := NewOrchestrator(searcher, &stubExtractor{}, &stubSynthesizer{answer: "answer"}, nil, nil)

	out, err := o.Run(context.Background(), "q", Options{NumLinks: 2})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(out.SourceURLs) != 2 {
		t.Errorf("Expected 2 selected links, got %d", len(out.SourceURLs))
	}
	if out.SourceURLs[0] != "https://a.example/1" || out.SourceURLs[1] != "https://a.example/2" {
		t.Errorf("Expected rank order preserved, got %v", out.SourceURLs)
	}
}

func TestRunRecordsBackendOutcomes(t *testing.T) {
	rec := &stubRecorder{}
	o := NewOrchestrator(
		&stubSearcher{out: searchOutput("https://a.example/1")},
		&stubExtractor{},
		&stubSynthesizer{answer: "answer"},
		nil,
		rec,
	)

	if _, err := o.Run(context.Background(), "q", Options{}); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(rec.entries) != 1 {
		t.Fatalf("Expected one recorded entry, got %d", len(rec.entries))
	}
	if rec.entries[0].backend != "mock" || !rec.entries[0].ok {
		t.Errorf("Unexpected recorded entry: %+v", rec.entries[0])
	}
}

func TestRunRecorderFailureIsIgnored(t *testing.T) {
	rec := &stubRecorder{err: errors.New("disk full")}
	o := NewOrchestrator(
		&stubSearcher{out: searchOutput("https://a.example/1")},
		&stubExtractor{},
		&stubSynthesizer{answer: "answer"},
		nil,
		rec,
	)

	out, err := o.Run(context.Background(), "q", Options{})
	if err != nil {
		t.Fatalf("Expected recorder failure to be ignored, got %v", err)
	}
	if out.State != StateDone {
		t.Errorf("Expected state DONE, got %s", out.State)
	}
}
