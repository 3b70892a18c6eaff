package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"websearch/internal/search"
)

// NewSearchCmd creates the search command.
func NewSearchCmd() *cobra.Command {
	var (
		backends   string
		maxResults int
	)

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Run an orchestrated search without answer synthesis",
		Long: `Query the enabled search backends concurrently and print the merged,
deduplicated, ranked result list as JSON, along with per-backend statuses.

Examples:
  websearch search "golang structured logging"
  websearch search --backends duckduckgo --max-results 5 "query"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if backends != "" {
				cfg.Search.Backends = backends
			}
			if maxResults > 0 {
				cfg.Search.MaxResults = maxResults
			}

			registry := search.NewDefaultRegistry(cfg)
			orchestrator := search.NewOrchestrator(registry, nil)

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()

			query := strings.Join(args, " ")
			out, err := orchestrator.Run(ctx, query, search.Options{
				MaxResults: cfg.Search.MaxResults,
				Timeout:    cfg.SearchTimeout(),
				UserAgent:  cfg.Advanced.UserAgent,
				Proxy:      cfg.Advanced.Proxy,
			}, splitBackends(cfg.Search.Backends))
			if err != nil {
				return err
			}

			data, err := json.MarshalIndent(out, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode output: %w", err)
			}
			fmt.Println(string(data))
			return nil
		},
	}

	cmd.Flags().StringVarP(&backends, "backends", "b", "", "comma-separated backend list, or \"all\"")
	cmd.Flags().IntVarP(&maxResults, "max-results", "m", 0, "maximum results per backend")

	return cmd
}
