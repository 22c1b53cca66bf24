// Package embedding converts query text into dense vectors through the
// configured Genkit embedder, with LRU memoization and rate limiting in
// front of the remote call.
//
// Failure contract: Embed returns nil on any failure (missing embedder,
// network error, malformed response, timeout) and never returns an error.
// A nil vector is the signal that disables grounded retrieval for the
// request; the pipeline falls back to ungrounded generation.
package embedding

import (
	"context"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/firebase/genkit/go/ai"

	"github.com/noorchat/noor/internal/lru"
	"github.com/noorchat/noor/internal/ratelimit"
)

// maxInputChars bounds text sent to the embedding API. Longer input is
// truncated, not rejected.
const maxInputChars = 8000

// DefaultTimeout bounds one embedding call when no timeout is configured.
const DefaultTimeout = 10 * time.Second

// Service memoizes and rate-limits embedding generation.
type Service struct {
	embedder ai.Embedder
	cache    *lru.Cache
	limiter  *ratelimit.Limiter
	timeout  time.Duration
	logger   *slog.Logger
}

// New creates a Service. embedder may be nil (no credentials configured),
// in which case Embed always returns nil. logger nil uses slog.Default.
func New(embedder ai.Embedder, cache *lru.Cache, limiter *ratelimit.Limiter, timeout time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if cache == nil {
		cache = lru.New(lru.DefaultCapacity)
	}
	return &Service{
		embedder: embedder,
		cache:    cache,
		limiter:  limiter,
		timeout:  timeout,
		logger:   logger,
	}
}

// Embed returns the embedding vector for text, or nil when embedding is
// unavailable. The vector is immutable once returned; callers must not
// modify it.
func (s *Service) Embed(ctx context.Context, text string) []float32 {
	if s.embedder == nil {
		return nil
	}
	if text == "" {
		return nil
	}

	if vec, ok := s.cache.Get(text); ok {
		return vec
	}

	input := truncate(text, maxInputChars)

	embedCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := ratelimit.Throttle(embedCtx, s.limiter, ratelimit.KeyEmbedding,
		func(ctx context.Context) (*ai.EmbedResponse, error) {
			return s.embedder.Embed(ctx, &ai.EmbedRequest{
				Input: []*ai.Document{ai.DocumentFromText(input, nil)},
			})
		})
	if err != nil {
		s.logger.Warn("embedding failed", "error", err, "text_length", len(text))
		return nil
	}
	if resp == nil || len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		s.logger.Warn("embedding response empty", "text_length", len(text))
		return nil
	}

	vec := resp.Embeddings[0].Embedding
	s.cache.Set(text, vec)
	return vec
}

// truncate caps text at maxRunes characters without splitting a
// multi-byte rune.
func truncate(text string, maxRunes int) string {
	if utf8.RuneCountInString(text) <= maxRunes {
		return text
	}
	runes := []rune(text)
	return string(runes[:maxRunes])
}
