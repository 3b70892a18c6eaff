package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"websearch/internal/answer"
	"websearch/internal/config"
	"websearch/internal/evallog"
	"websearch/internal/extract"
	"websearch/internal/llm"
	"websearch/internal/logger"
	"websearch/internal/output"
	"websearch/internal/search"
	"websearch/internal/synthesis"
)

// NewAnswerCmd creates the answer command.
func NewAnswerCmd() *cobra.Command {
	var (
		backends  string
		numLinks  int
		outputDir string
		provider  string
		model     string
		noEval    bool
		noSave    bool
	)

	cmd := &cobra.Command{
		Use:   "answer [query]",
		Short: "Generate a synthesized answer for a query",
		Long: `Run the full pipeline: search all enabled backends, extract content from
the top results, and synthesize an LLM answer grounded in that content.

Exit codes: 0 = full answer, 1 = failed, 2 = degraded (partial result).

Examples:
  websearch answer "what is the current go release cadence"
  websearch answer --backends brave,duckduckgo --num-links 5 "query"
  websearch answer --provider anthropic --no-eval "query"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if backends != "" {
				cfg.Search.Backends = backends
			}
			if numLinks > 0 {
				cfg.Search.MaxURLs = numLinks
			}
			if outputDir != "" {
				cfg.Output.Directory = outputDir
			}
			if provider != "" {
				cfg.LLM.Provider = provider
			}
			if model != "" {
				cfg.LLM.Model = model
			}
			if noEval {
				cfg.LLM.Evaluation = false
			}

			ctx, cancel := answerContext(cmd.Context())
			defer cancel()

			query := strings.Join(args, " ")
			return runAnswer(ctx, cfg, query, !noSave)
		},
	}

	cmd.Flags().StringVarP(&backends, "backends", "b", "", "comma-separated backend list, or \"all\"")
	cmd.Flags().IntVarP(&numLinks, "num-links", "n", 0, "number of top results to extract content from")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "directory for saved answer JSON")
	cmd.Flags().StringVar(&provider, "provider", "", "LLM provider: openai, anthropic, gemini")
	cmd.Flags().StringVar(&model, "model", "", "LLM model name")
	cmd.Flags().BoolVar(&noEval, "no-eval", false, "skip answer quality evaluation")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "do not write the answer JSON to disk")

	return cmd
}

func runAnswer(ctx context.Context, cfg *config.Config, query string, save bool) error {
	provider, err := llm.New(cfg.LLM)
	if err != nil {
		return fmt.Errorf("failed to initialize LLM provider: %w", err)
	}

	registry := search.NewDefaultRegistry(cfg)
	searcher := search.NewOrchestrator(registry, nil)

	extractor := extract.New(extract.Config{
		Timeout:   cfg.SearchTimeout(),
		MinLength: cfg.Advanced.MinContentLength,
		UserAgent: cfg.Advanced.UserAgent,
		Proxy:     cfg.Advanced.Proxy,
	})

	synthesizer := synthesis.NewSynthesizer(provider, cfg.LLM.Temperature, cfg.LLM.MaxTokens, cfg.Advanced.RetryCount)

	var evaluator answer.Evaluator
	if cfg.LLM.Evaluation {
		evaluator = synthesis.NewEvaluator(provider, cfg.LLM.MaxTokens, cfg.Advanced.RetryCount)
	}

	var recorder answer.Recorder
	if cfg.EvaluationLog.Enabled {
		log, err := evallog.Open(cfg.EvaluationLog.Path)
		if err != nil {
			logger.Warn("evaluation log unavailable", "error", err)
		} else {
			defer log.Close()
			recorder = log
		}
	}

	orchestrator := answer.NewOrchestrator(searcher, extractor, synthesizer, evaluator, recorder)

	out, runErr := orchestrator.Run(ctx, query, answer.Options{
		Search: search.Options{
			MaxResults: cfg.Search.MaxResults,
			Timeout:    cfg.SearchTimeout(),
			UserAgent:  cfg.Advanced.UserAgent,
			Proxy:      cfg.Advanced.Proxy,
		},
		Backends: splitBackends(cfg.Search.Backends),
		NumLinks: cfg.Search.MaxURLs,
		Evaluate: cfg.LLM.Evaluation,
	})

	// Unknown backend names are caller errors, not pipeline outcomes.
	var unknown *search.UnknownBackendError
	if errors.As(runErr, &unknown) {
		return runErr
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	fmt.Println(string(data))

	if save && out.State != answer.StateFailed {
		writer := output.NewWriter(cfg.Output.Directory, cfg.Output.File)
		if path, err := writer.Write(out); err != nil {
			logger.Warn("failed to save answer output", "error", err)
		} else {
			fmt.Fprintln(os.Stderr, "saved:", path)
		}
	}

	exitCode = exitCodeFor(out.State)
	return nil
}

// answerContext bounds a full pipeline run. Search, extraction and LLM calls
// each carry tighter per-stage timeouts inside it.
func answerContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, 5*time.Minute)
}
