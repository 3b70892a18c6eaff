// Package handlers wires the CLI commands to the internal pipeline.
package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"websearch/internal/answer"
	"websearch/internal/config"
	"websearch/internal/logger"
)

// Exit codes let callers distinguish a clean answer from a degraded one.
const (
	ExitDone     = 0
	ExitFailed   = 1
	ExitDegraded = 2
)

var (
	cfgFile string

	// exitCode is the process exit code reported by Execute. Commands that
	// finish in a degraded or failed terminal state set it instead of calling
	// os.Exit, so their deferred cleanup still runs.
	exitCode = ExitDone
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "websearch",
	Short: "websearch runs multi-backend web searches and synthesizes grounded answers",
	Long: `websearch queries several search backends concurrently, merges and ranks
their results, extracts the main content of the top pages, and uses an LLM
to synthesize an answer grounded exclusively in that content.

Diagnostics go to stderr; results are printed to stdout as JSON.`,
}

// Execute adds all child commands to the root command, runs it, and returns
// the process exit code. It is called once from main. The command context is
// cancelled on SIGINT or SIGTERM so in-flight backend invocations (including
// headless browser sessions) unwind their deferred cleanup before the process
// exits.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.AddCommand(NewAnswerCmd())
	rootCmd.AddCommand(NewSearchCmd())
	rootCmd.AddCommand(NewBackendsCmd())

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return ExitFailed
	}
	return exitCode
}

// exitCodeFor maps a terminal pipeline state to the process exit code.
func exitCodeFor(state answer.State) int {
	switch state {
	case answer.StateDone:
		return ExitDone
	case answer.StateDegradedDone:
		return ExitDegraded
	default:
		return ExitFailed
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./.websearch.yaml or $HOME/.websearch.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
}

// loadConfig loads configuration and applies the logging level from config or
// the --log-level flag.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	level := cfg.Logging.Level
	if flagLevel, _ := cmd.Flags().GetString("log-level"); flagLevel != "" {
		level = flagLevel
	}
	switch strings.ToLower(level) {
	case "debug":
		logger.SetLevel(slog.LevelDebug)
	case "warn":
		logger.SetLevel(slog.LevelWarn)
	case "error":
		logger.SetLevel(slog.LevelError)
	default:
		logger.SetLevel(slog.LevelInfo)
	}

	return cfg, nil
}

// splitBackends turns a comma-separated backend list into names, keeping the
// "all" sentinel intact.
func splitBackends(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
