package answer

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"websearch/internal/extract"
	"websearch/internal/logger"
	"websearch/internal/search"
	"websearch/internal/synthesis"
)

// State is the pipeline position surfaced in the final output.
type State string

const (
	StateSearching      State = "SEARCHING"
	StateSelectingLinks State = "SELECTING_LINKS"
	StateExtracting     State = "EXTRACTING"
	StateSynthesizing   State = "SYNTHESIZING"
	StateEvaluating     State = "EVALUATING"
	StateDone           State = "DONE"
	StateDegradedDone   State = "DEGRADED_DONE"
	StateFailed         State = "FAILED"
)

// Searcher runs the multi-backend search stage.
type Searcher interface {
	Run(ctx context.Context, query string, opts search.Options, enabled []string) (*search.Output, error)
}

// Extractor runs the content extraction fan-out.
type Extractor interface {
	ExtractAll(ctx context.Context, urls []string) []extract.Content
}

// Synthesizer produces an answer from extracted content.
type Synthesizer interface {
	Synthesize(ctx context.Context, query string, snippets []string) (string, error)
}

// Evaluator scores a synthesized answer. Advisory only.
type Evaluator interface {
	Evaluate(ctx context.Context, query, answer string, content []string) (*synthesis.Evaluation, error)
}

// Recorder receives per-backend outcome records after each run. Failures are
// logged and ignored; recording never affects the pipeline result.
type Recorder interface {
	Record(runID, backend, query string, duration time.Duration, results int, ok bool, errMsg string) error
}

// SynthesizedAnswer is the answer stage's product.
type SynthesizedAnswer struct {
	Text       string        `json:"text"`
	SourceURLs []string      `json:"source_urls"`
	ProducedAt time.Time     `json:"produced_at"`
	Duration   time.Duration `json:"duration"`
}

// Output is the final structured result of one answer run. Done and
// DegradedDone share this shape; the difference is which optional fields are
// populated and what the Errors list records.
type Output struct {
	RunID           string                 `json:"run_id"`
	Query           string                 `json:"query"`
	State           State                  `json:"state"`
	Answer          *SynthesizedAnswer     `json:"answer,omitempty"`
	Evaluation      *synthesis.Evaluation  `json:"evaluation,omitempty"`
	SourceURLs      []string               `json:"source_urls"`
	Contents        []extract.Content      `json:"extracted_contents,omitempty"`
	BackendStatuses []search.BackendStatus `json:"backend_statuses,omitempty"`
	Duration        time.Duration          `json:"duration"`
	GeneratedAt     time.Time              `json:"generated_at"`
	Errors          []string               `json:"errors,omitempty"`
}

// Options holds per-run parameters for the answer pipeline.
type Options struct {
	Search   search.Options
	Backends []string
	NumLinks int
	Evaluate bool
}

// Orchestrator sequences search, link selection, extraction, synthesis and
// evaluation, containing failures per stage: only the first stage can fail
// the whole run, everything after it degrades.
type Orchestrator struct {
	searcher    Searcher
	extractor   Extractor
	synthesizer Synthesizer
	evaluator   Evaluator
	recorder    Recorder
}

// NewOrchestrator wires the pipeline stages. evaluator and recorder may be
// nil to disable their stages.
func NewOrchestrator(searcher Searcher, extractor Extractor, synthesizer Synthesizer, evaluator Evaluator, recorder Recorder) *Orchestrator {
	return &Orchestrator{
		searcher:    searcher,
		extractor:   extractor,
		synthesizer: synthesizer,
		evaluator:   evaluator,
		recorder:    recorder,
	}
}

// Run executes the full pipeline for one query. The returned Output is valid
// in every terminal state; err is non-nil only alongside StateFailed.
func (o *Orchestrator) Run(ctx context.Context, query string, opts Options) (*Output, error) {
	started := time.Now()
	out := &Output{
		RunID: uuid.NewString(),
		Query: query,
		State: StateSearching,
	}
	finish := func() {
		out.Duration = time.Since(started)
		out.GeneratedAt = time.Now().UTC()
	}

	if opts.NumLinks <= 0 {
		opts.NumLinks = 3
	}

	// Stage 1: search. Total backend failure is the only unrecoverable
	// stage; nothing downstream is possible without results.
	searchOut, err := o.searcher.Run(ctx, query, opts.Search, opts.Backends)
	if err != nil {
		var allFailed *search.AllFailedError
		if errors.As(err, &allFailed) {
			out.BackendStatuses = allFailed.Statuses
		}
		out.State = StateFailed
		out.Errors = append(out.Errors, err.Error())
		finish()
		return out, err
	}
	out.BackendStatuses = searchOut.Statuses
	for _, s := range searchOut.Statuses {
		if !s.OK {
			out.Errors = append(out.Errors, "search backend "+s.Backend+" failed: "+s.Err)
		}
	}
	o.record(out.RunID, query, searchOut.Statuses)

	// Stage 2: link selection. Merged results are already deduplicated and
	// rank-ordered; take the top N.
	out.State = StateSelectingLinks
	urls := selectURLs(searchOut.Merged, opts.NumLinks)
	if len(urls) == 0 {
		err := errors.New("search produced no links to extract")
		out.State = StateFailed
		out.Errors = append(out.Errors, err.Error())
		finish()
		return out, err
	}
	logger.Info("selected links for extraction", "run_id", out.RunID, "count", len(urls))

	// Stage 3: extraction. Unusable pages are filtered, not fatal; only a
	// complete blank degrades the run.
	out.State = StateExtracting
	contents := o.extractor.ExtractAll(ctx, urls)
	out.Contents = contents

	var snippets []string
	for _, c := range contents {
		if c.Quality.OK {
			snippets = append(snippets, c.Text)
			out.SourceURLs = append(out.SourceURLs, c.URL)
		} else {
			out.Errors = append(out.Errors, "extraction failed for "+c.URL+": "+c.Quality.Reason)
		}
	}
	if len(snippets) == 0 {
		logger.Warn("no usable content extracted", "run_id", out.RunID, "urls", len(urls))
		out.State = StateDegradedDone
		out.Errors = append(out.Errors, "no usable content could be extracted from any selected link")
		finish()
		return out, nil
	}

	// Stage 4: synthesis. Failure degrades but keeps the extracted content
	// for diagnostics.
	out.State = StateSynthesizing
	synthStarted := time.Now()
	answerText, err := o.synthesizer.Synthesize(ctx, query, snippets)
	if err != nil {
		logger.Warn("answer synthesis failed", "run_id", out.RunID, "error", err)
		out.State = StateDegradedDone
		out.Errors = append(out.Errors, "synthesis failed: "+err.Error())
		finish()
		return out, nil
	}
	out.Answer = &SynthesizedAnswer{
		Text:       answerText,
		SourceURLs: out.SourceURLs,
		ProducedAt: time.Now().UTC(),
		Duration:   time.Since(synthStarted),
	}

	// Stage 5: evaluation. Advisory; any failure still completes as DONE.
	if opts.Evaluate && o.evaluator != nil {
		out.State = StateEvaluating
		eval, err := o.evaluator.Evaluate(ctx, query, answerText, snippets)
		if err != nil {
			logger.Warn("answer evaluation failed", "run_id", out.RunID, "error", err)
			out.Errors = append(out.Errors, "evaluation failed: "+err.Error())
		} else {
			out.Evaluation = eval
		}
	}

	out.State = StateDone
	finish()
	logger.Info("answer run completed", "run_id", out.RunID, "state", out.State, "duration", out.Duration)
	return out, nil
}

// selectURLs takes the top-n URLs from the merged list, preserving rank
// order. The merged list is already unique by normalized URL.
func selectURLs(results []search.Result, n int) []string {
	urls := make([]string, 0, n)
	for _, r := range results {
		if r.URL == "" {
			continue
		}
		urls = append(urls, r.URL)
		if len(urls) >= n {
			break
		}
	}
	return urls
}

// record forwards per-backend outcomes to the recorder, if configured.
func (o *Orchestrator) record(runID, query string, statuses []search.BackendStatus) {
	if o.recorder == nil {
		return
	}
	for _, s := range statuses {
		if err := o.recorder.Record(runID, s.Backend, query, s.Duration, s.Results, s.OK, s.Err); err != nil {
			logger.Warn("failed to record backend outcome", "backend", s.Backend, "error", err)
		}
	}
}
