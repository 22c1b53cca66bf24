// Package app assembles the application: configuration, database,
// Genkit provider plugins, and the question pipeline with all of its
// stages wired together.
package app

import (
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noorchat/noor/internal/config"
	"github.com/noorchat/noor/internal/embedding"
	"github.com/noorchat/noor/internal/generate"
	"github.com/noorchat/noor/internal/pipeline"
	"github.com/noorchat/noor/internal/semcache"
	"github.com/noorchat/noor/internal/sources"
)

// App is the assembled application container.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	Genkit   *genkit.Genkit
	Embedder ai.Embedder
	Pool     *pgxpool.Pool

	Embedding *embedding.Service
	Cache     *semcache.Store
	Searcher  *sources.Searcher
	Generator *generate.Service
	Pipeline  *pipeline.Pipeline

	// otelCleanup flushes and shuts down the tracer provider; nil when
	// tracing is disabled.
	otelCleanup func()
}

// Close releases held resources. Safe to call on a partially
// initialized App.
func (a *App) Close() {
	if a.otelCleanup != nil {
		a.otelCleanup()
		a.otelCleanup = nil
	}
	if a.Pool != nil {
		a.Pool.Close()
		a.Logger.Info("database pool closed")
	}
}
