package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
	"github.com/firebase/genkit/go/core/tracing"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/compat_oai/openai"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/noorchat/noor/internal/config"
	"github.com/noorchat/noor/internal/database"
	"github.com/noorchat/noor/internal/embedding"
	"github.com/noorchat/noor/internal/generate"
	"github.com/noorchat/noor/internal/lru"
	"github.com/noorchat/noor/internal/pipeline"
	"github.com/noorchat/noor/internal/ratelimit"
	"github.com/noorchat/noor/internal/semcache"
	"github.com/noorchat/noor/internal/sources"
)

// Setup initializes the full application. On error, everything already
// initialized is released before returning.
func Setup(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, retErr error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	a := &App{Config: cfg, Logger: logger}
	defer func() {
		if retErr != nil {
			a.Close()
		}
	}()

	pool, err := provideDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Pool = pool

	// Must run before Genkit init so its TracerProvider is ready.
	a.otelCleanup = provideOtelShutdown(ctx, cfg, logger)

	g, err := provideGenkit(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	// A missing embedder degrades the pipeline (no semantic cache, no
	// vector search) instead of aborting startup.
	a.Embedder = provideEmbedder(g, cfg)
	if a.Embedder == nil {
		logger.Warn("embedder unavailable, running without semantic retrieval",
			"provider", cfg.Provider, "embedder_model", cfg.EmbedderModel)
	}

	limiter := ratelimit.New(map[string]time.Duration{
		ratelimit.KeyEmbedding:  cfg.EmbedInterval,
		ratelimit.KeySearch:     cfg.SearchInterval,
		ratelimit.KeyGeneration: cfg.GenerateInterval,
	})

	a.Embedding = embedding.New(a.Embedder, lru.New(cfg.EmbeddingCacheN), limiter, cfg.EmbedTimeout, logger)

	a.Cache, err = semcache.New(pool, cfg.CacheSimilarity, logger)
	if err != nil {
		return nil, fmt.Errorf("creating semantic cache: %w", err)
	}

	a.Searcher, err = sources.New(pool, cfg.MaxSources, cfg.SourceSimilarity, logger)
	if err != nil {
		return nil, fmt.Errorf("creating source searcher: %w", err)
	}

	a.Generator, err = generate.New(g, cfg.ModelName, limiter, cfg.GenerateTimeout, logger)
	if err != nil {
		return nil, fmt.Errorf("creating generator: %w", err)
	}

	a.Pipeline, err = pipeline.New(a.Embedding, a.Cache, a.Searcher, a.Generator, logger)
	if err != nil {
		return nil, fmt.Errorf("creating pipeline: %w", err)
	}

	return a, nil
}

// provideOtelShutdown registers an OTLP HTTP span exporter with Genkit's
// TracerProvider, exporting to a local collector agent. The agent handles
// authentication, buffering, and forwarding.
//
// Returns the shutdown function for App.Close. Exporter setup failure
// disables tracing and never aborts startup.
func provideOtelShutdown(ctx context.Context, cfg *config.Config, logger *slog.Logger) func() {
	tc := cfg.Tracing

	endpoint := tc.Endpoint
	if endpoint == "" {
		endpoint = "localhost:4318"
	}

	// Genkit's TracerProvider reads these at init. Setenv is not
	// concurrent-safe, but Setup runs once before any goroutine starts.
	if tc.ServiceName != "" {
		_ = os.Setenv("OTEL_SERVICE_NAME", tc.ServiceName)
	}
	if tc.Environment != "" {
		_ = os.Setenv("OTEL_RESOURCE_ATTRIBUTES", "deployment.environment="+tc.Environment)
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(), // localhost doesn't need TLS
	)
	if err != nil {
		logger.Warn("creating trace exporter, tracing disabled", "error", err)
		return nil
	}

	processor := sdktrace.NewBatchSpanProcessor(exporter)
	tracing.TracerProvider().RegisterSpanProcessor(processor)

	logger.Debug("trace export enabled",
		"endpoint", endpoint,
		"service", tc.ServiceName,
		"environment", tc.Environment,
	)

	shutdown := tracing.TracerProvider().Shutdown

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Warn("shutting down tracer provider", "error", err)
		}
	}
}

// provideDBPool runs migrations and opens the connection pool.
func provideDBPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if err := database.Migrate(cfg.PostgresURL()); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	pool, err := database.Open(ctx, cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return pool, nil
}

// provideGenkit initializes Genkit with the configured AI provider
// plugin.
func provideGenkit(ctx context.Context, cfg *config.Config) (*genkit.Genkit, error) {
	var g *genkit.Genkit
	switch cfg.Provider {
	case config.ProviderOpenAI:
		g = genkit.Init(ctx, genkit.WithPlugins(&openai.OpenAI{}))
	default: // gemini
		g = genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
	}
	if g == nil {
		return nil, fmt.Errorf("initializing genkit with provider %q", cfg.Provider)
	}
	return g, nil
}

// provideEmbedder looks up the embedder registered by the provider
// plugin. Providers register embedders differently: Gemini constructs
// them by model name, OpenAI auto-registers them in Init.
func provideEmbedder(g *genkit.Genkit, cfg *config.Config) ai.Embedder {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return genkit.LookupEmbedder(g, api.NewName("openai", cfg.EmbedderModel))
	default: // gemini
		return googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
	}
}
