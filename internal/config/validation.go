package config

import (
	"fmt"
	"os"
)

// Validate validates configuration values.
// Returns sentinel errors that can be checked with errors.Is().
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	switch c.Provider {
	case ProviderGemini, ProviderOpenAI:
	default:
		return fmt.Errorf("%w: %q (supported: gemini, openai)", ErrInvalidProvider, c.Provider)
	}

	// API key is required for all AI operations. The pipeline itself
	// degrades gracefully at runtime when embedding fails, but a serve/ask
	// invocation without credentials is a configuration mistake worth
	// failing fast on.
	if c.Provider == ProviderGemini && os.Getenv("GEMINI_API_KEY") == "" {
		return fmt.Errorf("%w: GEMINI_API_KEY environment variable is required", ErrMissingAPIKey)
	}
	if c.Provider == ProviderOpenAI && os.Getenv("OPENAI_API_KEY") == "" {
		return fmt.Errorf("%w: OPENAI_API_KEY environment variable is required", ErrMissingAPIKey)
	}

	if c.ModelName == "" {
		return fmt.Errorf("%w: model_name cannot be empty", ErrInvalidModelName)
	}
	if c.EmbedderModel == "" {
		return fmt.Errorf("%w: embedder_model cannot be empty", ErrInvalidEmbedderModel)
	}
	if c.Temperature < 0.0 || c.Temperature > 2.0 {
		return fmt.Errorf("%w: must be between 0.0 and 2.0, got %.2f", ErrInvalidTemperature, c.Temperature)
	}

	if c.CacheSimilarity <= 0 || c.CacheSimilarity > 1 {
		return fmt.Errorf("%w: cache_similarity must be in (0, 1], got %.2f", ErrInvalidThreshold, c.CacheSimilarity)
	}
	if c.SourceSimilarity <= 0 || c.SourceSimilarity > 1 {
		return fmt.Errorf("%w: source_similarity must be in (0, 1], got %.2f", ErrInvalidThreshold, c.SourceSimilarity)
	}
	// The cache returns previously generated answers verbatim, so its
	// threshold must stay stricter than topical source retrieval.
	if c.CacheSimilarity <= c.SourceSimilarity {
		return fmt.Errorf("%w: cache_similarity (%.2f) must exceed source_similarity (%.2f)",
			ErrInvalidThreshold, c.CacheSimilarity, c.SourceSimilarity)
	}

	if c.MaxSources < 1 || c.MaxSources > 20 {
		return fmt.Errorf("%w: max_sources must be between 1 and 20, got %d", ErrInvalidMaxSources, c.MaxSources)
	}

	if c.BaseTTLDays < 1 {
		return fmt.Errorf("%w: cache_ttl_days must be positive, got %d", ErrInvalidTTL, c.BaseTTLDays)
	}
	if c.HighTTLDays < c.BaseTTLDays {
		return fmt.Errorf("%w: cache_ttl_days_max (%d) must be >= cache_ttl_days (%d)",
			ErrInvalidTTL, c.HighTTLDays, c.BaseTTLDays)
	}

	if c.PostgresHost == "" {
		return fmt.Errorf("%w: host cannot be empty", ErrInvalidPostgresHost)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: must be between 1 and 65535, got %d", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if c.PostgresDBName == "" {
		return fmt.Errorf("%w: database name cannot be empty", ErrInvalidPostgresDBName)
	}

	return nil
}
