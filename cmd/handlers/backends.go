package handlers

import (
	"fmt"

	"github.com/spf13/cobra"

	"websearch/internal/config"
	"websearch/internal/search"
)

// NewBackendsCmd creates the backends command.
func NewBackendsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backends",
		Short: "List registered search backends",
		Long:  `Display every registered backend, its trust tier, and whether its credentials are configured.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			registry := search.NewDefaultRegistry(cfg)

			fmt.Println("Registered backends:")
			for _, name := range registry.Names() {
				b, _ := registry.Get(name)
				fmt.Printf("  %-12s tier=%-8s %s\n", name, b.Tier(), credentialStatus(name, cfg))
			}
			return nil
		},
	}
}

// credentialStatus reports whether a backend has what it needs to run.
func credentialStatus(name string, cfg *config.Config) string {
	switch name {
	case "google":
		if cfg.Search.Providers.Google.APIKey == "" || cfg.Search.Providers.Google.SearchID == "" {
			return "missing credentials (GOOGLE_API_KEY, GOOGLE_CSE_ID)"
		}
	case "brave":
		if cfg.Search.Providers.Brave.APIKey == "" {
			return "missing credentials (BRAVE_API_KEY)"
		}
	case "serpapi":
		if cfg.Search.Providers.SerpAPI.APIKey == "" {
			return "missing credentials (SERPAPI_API_KEY)"
		}
	}
	return "ready"
}
