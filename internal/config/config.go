package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration. It is threaded explicitly
// through every component's constructor; there is no global configuration
// singleton.
type Config struct {
	Search        Search        `mapstructure:"search"`
	LLM           LLM           `mapstructure:"llm"`
	Output        Output        `mapstructure:"output"`
	EvaluationLog EvaluationLog `mapstructure:"evaluation_log"`
	Advanced      Advanced      `mapstructure:"advanced"`
	Logging       Logging       `mapstructure:"logging"`
}

// Search holds search backend configuration.
type Search struct {
	// Backends is a comma-separated list of backend names, or "all".
	Backends   string    `mapstructure:"backends"`
	MaxResults int       `mapstructure:"max_results"`
	MaxURLs    int       `mapstructure:"max_urls"`
	Timeout    string    `mapstructure:"timeout"`
	Providers  Providers `mapstructure:"providers"`
}

// Providers holds per-backend credentials.
type Providers struct {
	Google  GoogleConfig  `mapstructure:"google"`
	Brave   BraveConfig   `mapstructure:"brave"`
	SerpAPI SerpAPIConfig `mapstructure:"serpapi"`
}

// GoogleConfig holds Google Custom Search configuration.
type GoogleConfig struct {
	APIKey   string `mapstructure:"api_key"`
	SearchID string `mapstructure:"search_id"`
}

// BraveConfig holds Brave Search API configuration.
type BraveConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// SerpAPIConfig holds SerpAPI configuration.
type SerpAPIConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// LLM holds configuration for the language model boundary shared by the
// answer synthesizer and evaluator.
type LLM struct {
	Provider    string          `mapstructure:"provider"`
	Model       string          `mapstructure:"model"`
	Temperature float32         `mapstructure:"temperature"`
	MaxTokens   int             `mapstructure:"max_tokens"`
	Evaluation  bool            `mapstructure:"evaluation"`
	OpenAI      OpenAIConfig    `mapstructure:"openai"`
	Anthropic   AnthropicConfig `mapstructure:"anthropic"`
	Gemini      GeminiConfig    `mapstructure:"gemini"`
}

// OpenAIConfig holds OpenAI (or OpenAI-compatible, e.g. OpenRouter)
// configuration.
type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// AnthropicConfig holds Anthropic configuration.
type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// GeminiConfig holds Google Gemini configuration.
type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// Output holds output configuration.
type Output struct {
	Directory string `mapstructure:"directory"`
	File      string `mapstructure:"file"`
	Format    string `mapstructure:"format"`
}

// EvaluationLog holds configuration for the append-only backend evaluation log.
type EvaluationLog struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Advanced holds tuning knobs that rarely need changing.
type Advanced struct {
	Proxy            string `mapstructure:"proxy"`
	UserAgent        string `mapstructure:"user_agent"`
	RetryCount       int    `mapstructure:"retry_count"`
	MinContentLength int    `mapstructure:"min_content_length"`
}

// Logging holds logging configuration.
type Logging struct {
	Level string `mapstructure:"level"`
}

// SearchTimeout returns the per-backend search timeout as a duration.
func (c *Config) SearchTimeout() time.Duration {
	d, err := time.ParseDuration(c.Search.Timeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// Load loads the configuration: built-in defaults, overridden by environment
// variables (a .env file is honored if present), overridden by a YAML config
// file. CLI flags are applied by the command layer on top of the returned
// struct.
func Load(configFile string) (*Config, error) {
	// Load .env file if it exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: error loading .env file: %v\n", err)
		}
	}

	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME")
		v.SetConfigName(".websearch")
		v.SetConfigType("yaml")
	}

	setDefaults(v)
	bindEnvironmentVariables(v)
	applyEnvironmentOverrides(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validate(config); err != nil {
		return nil, err
	}

	return config, nil
}

// setDefaults sets built-in default configuration values.
func setDefaults(v *viper.Viper) {
	// Search defaults
	v.SetDefault("search.backends", "all")
	v.SetDefault("search.max_results", 10)
	v.SetDefault("search.max_urls", 3)
	v.SetDefault("search.timeout", "30s")

	// LLM defaults
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.max_tokens", 500)
	v.SetDefault("llm.evaluation", true)
	v.SetDefault("llm.openai.base_url", "")

	// Output defaults
	v.SetDefault("output.directory", "output")
	v.SetDefault("output.file", "answer")
	v.SetDefault("output.format", "json")

	// Evaluation log defaults
	v.SetDefault("evaluation_log.enabled", false)
	v.SetDefault("evaluation_log.path", "evaluation_log.db")

	// Advanced defaults
	v.SetDefault("advanced.user_agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	v.SetDefault("advanced.retry_count", 3)
	v.SetDefault("advanced.min_content_length", 200)

	// Logging defaults
	v.SetDefault("logging.level", "info")
}

// bindEnvironmentVariables sets up flexible environment variable binding so
// that credentials can come in under the names users already export.
func bindEnvironmentVariables(v *viper.Viper) {
	bindEnvKeys(v, "search.providers.google.api_key", []string{
		"GOOGLE_API_KEY",
		"GOOGLE_CSE_API_KEY",
		"GOOGLE_CUSTOM_SEARCH_API_KEY",
	})
	bindEnvKeys(v, "search.providers.google.search_id", []string{
		"GOOGLE_CSE_ID",
		"GOOGLE_CUSTOM_SEARCH_ID",
	})
	bindEnvKeys(v, "search.providers.brave.api_key", []string{
		"BRAVE_API_KEY",
		"BRAVE_SEARCH_API_KEY",
	})
	bindEnvKeys(v, "search.providers.serpapi.api_key", []string{
		"SERPAPI_API_KEY",
		"SERPAPI_KEY",
	})
	bindEnvKeys(v, "llm.openai.api_key", []string{
		"OPENAI_API_KEY",
		"OPENROUTER_API_KEY",
	})
	bindEnvKeys(v, "llm.openai.base_url", []string{
		"OPENAI_BASE_URL",
		"OPENROUTER_BASE_URL",
	})
	bindEnvKeys(v, "llm.anthropic.api_key", []string{
		"ANTHROPIC_API_KEY",
	})
	bindEnvKeys(v, "llm.gemini.api_key", []string{
		"GEMINI_API_KEY",
		"GOOGLE_GEMINI_API_KEY",
		"GOOGLE_AI_API_KEY",
	})
}

// bindEnvKeys binds a config key to multiple possible environment variables,
// first match wins. The value lands in the defaults layer so that an explicit
// config-file entry still overrides it.
func bindEnvKeys(v *viper.Viper, configKey string, envKeys []string) {
	for _, envKey := range envKeys {
		if value := os.Getenv(envKey); value != "" {
			v.SetDefault(configKey, value)
			return
		}
	}
}

// applyEnvironmentOverrides layers environment variables between the built-in
// defaults and the config file: SEARCH_MAX_RESULTS replaces the default for
// search.max_results but loses to a value set in the file.
func applyEnvironmentOverrides(v *viper.Viper) {
	replacer := strings.NewReplacer(".", "_")
	for _, key := range v.AllKeys() {
		if value := os.Getenv(strings.ToUpper(replacer.Replace(key))); value != "" {
			v.SetDefault(key, value)
		}
	}
}

// validate checks structural configuration problems that would fail every
// downstream component anyway.
func validate(c *Config) error {
	if c.Search.MaxResults <= 0 {
		return fmt.Errorf("search.max_results must be positive, got %d", c.Search.MaxResults)
	}
	if c.Search.MaxURLs <= 0 {
		return fmt.Errorf("search.max_urls must be positive, got %d", c.Search.MaxURLs)
	}
	if _, err := time.ParseDuration(c.Search.Timeout); err != nil {
		return fmt.Errorf("search.timeout is not a valid duration: %w", err)
	}
	if c.Advanced.RetryCount < 1 {
		return fmt.Errorf("advanced.retry_count must be at least 1, got %d", c.Advanced.RetryCount)
	}
	return nil
}
