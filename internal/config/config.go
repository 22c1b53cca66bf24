// Package config provides application configuration with multi-source
// priority.
//
// Sources (highest to lowest priority):
//  1. Environment variables (NOOR_* plus DATABASE_URL)
//  2. Config file (~/.noor/config.yaml or ./config.yaml)
//  3. Defaults
//
// Categories:
//   - AI: provider, model, embedder, temperature
//   - Storage: PostgreSQL connection for the source corpus and semantic cache
//   - Retrieval: similarity thresholds, source limits, cache TTLs
//   - Rate limiting: per-service minimum call spacing
//   - Observability: OTLP trace export (see observability.go)
//
// Validation uses sentinel errors checkable with errors.Is().
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates a required API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidModelName indicates the model name is invalid.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidEmbedderModel indicates the embedder model is invalid.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidProvider indicates the AI provider is not supported.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrInvalidTemperature indicates the temperature value is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidThreshold indicates a similarity threshold is out of range.
	ErrInvalidThreshold = errors.New("invalid similarity threshold")

	// ErrInvalidMaxSources indicates the source limit is out of range.
	ErrInvalidMaxSources = errors.New("invalid max sources")

	// ErrInvalidTTL indicates a cache TTL is out of range.
	ErrInvalidTTL = errors.New("invalid cache TTL")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")
)

// AI provider identifiers used in Config.Provider.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// DefaultEmbedderModel is the default Gemini embedder model. It outputs
// 3072 dimensions by default but supports truncation; the pgvector schema
// stores 768, see database.VectorDimension.
const DefaultEmbedderModel = "gemini-embedding-001"

// Config stores application configuration.
type Config struct {
	// AI provider and model configuration
	Provider      string  `mapstructure:"provider"`
	ModelName     string  `mapstructure:"model_name"`
	EmbedderModel string  `mapstructure:"embedder_model"`
	Temperature   float32 `mapstructure:"temperature"`

	// Storage configuration
	PostgresHost     string `mapstructure:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password"` // SENSITIVE: never logged
	PostgresDBName   string `mapstructure:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode"`

	// Retrieval configuration
	CacheSimilarity  float32 `mapstructure:"cache_similarity"`   // semantic cache hit floor
	SourceSimilarity float32 `mapstructure:"source_similarity"`  // source retrieval floor
	MaxSources       int     `mapstructure:"max_sources"`        // sources per answer
	EmbeddingCacheN  int     `mapstructure:"embedding_cache_n"`  // LRU capacity
	BaseTTLDays      int     `mapstructure:"cache_ttl_days"`     // baseline answer TTL
	HighTTLDays      int     `mapstructure:"cache_ttl_days_max"` // high-confidence answer TTL

	// Rate limiting: minimum spacing between calls per external service
	EmbedInterval    time.Duration `mapstructure:"embed_interval"`
	SearchInterval   time.Duration `mapstructure:"search_interval"`
	GenerateInterval time.Duration `mapstructure:"generate_interval"`

	// Timeouts for external calls
	EmbedTimeout    time.Duration `mapstructure:"embed_timeout"`
	GenerateTimeout time.Duration `mapstructure:"generate_timeout"`

	// HTTP surface
	ListenAddr  string   `mapstructure:"listen_addr"`
	CORSOrigins []string `mapstructure:"cors_origins"`

	// Observability
	Tracing TracingConfig `mapstructure:"tracing"`
}

// Load loads configuration from defaults, config file, and environment.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".noor")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	setDefaults(v)

	v.SetEnvPrefix("NOOR")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("provider", ProviderGemini)
	v.SetDefault("model_name", "gemini-2.5-flash")
	v.SetDefault("embedder_model", DefaultEmbedderModel)
	v.SetDefault("temperature", 0.4)

	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "noor")
	v.SetDefault("postgres_db_name", "noor")
	v.SetDefault("postgres_ssl_mode", "disable")

	v.SetDefault("cache_similarity", 0.95)
	v.SetDefault("source_similarity", 0.60)
	v.SetDefault("max_sources", 5)
	v.SetDefault("embedding_cache_n", 100)
	v.SetDefault("cache_ttl_days", 7)
	v.SetDefault("cache_ttl_days_max", 30)

	v.SetDefault("embed_interval", 200*time.Millisecond)
	v.SetDefault("search_interval", 100*time.Millisecond)
	v.SetDefault("generate_interval", 500*time.Millisecond)

	v.SetDefault("embed_timeout", 10*time.Second)
	v.SetDefault("generate_timeout", 120*time.Second)

	v.SetDefault("listen_addr", "127.0.0.1:8799")

	v.SetDefault("tracing.endpoint", "localhost:4318")
	v.SetDefault("tracing.environment", "dev")
	v.SetDefault("tracing.service_name", "noor")
}
