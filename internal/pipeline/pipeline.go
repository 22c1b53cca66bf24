// Package pipeline orchestrates a question's full journey: deduplicate,
// embed, consult the semantic cache, classify, retrieve sources, build
// grounding context, generate, validate, and finally cache the answer.
//
// The pipeline degrades instead of failing: a dead embedder, an
// unreachable cache or an empty retrieval each disable one stage and the
// rest proceed. Only generation failure (with nothing cached to serve)
// surfaces to the user, as a localized fallback message.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/noorchat/noor/internal/classify"
	"github.com/noorchat/noor/internal/dedup"
	"github.com/noorchat/noor/internal/generate"
	"github.com/noorchat/noor/internal/i18n"
	"github.com/noorchat/noor/internal/rag"
	"github.com/noorchat/noor/internal/ragctx"
	"github.com/noorchat/noor/internal/semcache"
	"github.com/noorchat/noor/internal/sources"
	"github.com/noorchat/noor/internal/validate"
)

// writeBackTimeout bounds the detached cache write after an answer is
// delivered.
const writeBackTimeout = 10 * time.Second

// ErrEmptyQuery is returned when the query contains no content after
// whitespace normalization.
var ErrEmptyQuery = errors.New("query is empty")

// Embedder produces a query vector, or nil when embedding is
// unavailable.
type Embedder interface {
	Embed(ctx context.Context, text string) []float32
}

// Cache is the persisted semantic answer cache.
type Cache interface {
	Lookup(ctx context.Context, embedding []float32, language string) (*semcache.Hit, error)
	Write(ctx context.Context, embedding []float32, question, answer string, sourceBadges []rag.SourceBadge, language string, ttlDays int) error
}

// Searcher retrieves grounding documents.
type Searcher interface {
	Search(ctx context.Context, embedding []float32, category rag.Category, queryText string) []rag.Document
	KeywordSearch(ctx context.Context, queryText string) []rag.Document
}

// Generator produces the streamed answer.
type Generator interface {
	Stream(ctx context.Context, query, contextBlock, language string, onDelta func(delta string)) (*generate.Reply, error)
}

// Answer is a completed, validated response.
type Answer struct {
	Text        string              `json:"text"`
	ArabicText  string              `json:"arabic_text,omitempty"`
	Translation string              `json:"translation,omitempty"`
	Sources     []rag.SourceBadge   `json:"sources,omitempty"`
	Category    rag.Category        `json:"category"`
	Confidence  validate.Confidence `json:"confidence"`
	Warnings    []string            `json:"warnings,omitempty"`
	FromCache   bool                `json:"from_cache"`
}

// Pipeline wires the stages together.
type Pipeline struct {
	embedder  Embedder
	cache     Cache
	searcher  Searcher
	generator Generator
	dedup     dedup.Group
	logger    *slog.Logger
}

// New creates a Pipeline. All stage dependencies are required.
func New(embedder Embedder, cache Cache, searcher Searcher, generator Generator, logger *slog.Logger) (*Pipeline, error) {
	if embedder == nil || cache == nil || searcher == nil || generator == nil {
		return nil, fmt.Errorf("all pipeline stages are required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		embedder:  embedder,
		cache:     cache,
		searcher:  searcher,
		generator: generator,
		logger:    logger,
	}, nil
}

// ProcessQuery runs the retrieval half of the pipeline and returns either
// a cache hit or the grounding context for generation. Concurrent calls
// asking the same normalized question share a single execution.
//
// A nil embedding disables both cache lookup and vector search; the only
// remaining retrieval is a keyword search, attempted when the question
// looks like a hadith request. The returned error is reserved for
// empty queries and context cancellation; every backend failure degrades
// to a leaner Result instead.
func (p *Pipeline) ProcessQuery(ctx context.Context, query, language string) (*rag.Result, error) {
	if rag.NormalizeQuery(query) == "" {
		return nil, ErrEmptyQuery
	}

	v, err := p.dedup.Do(ctx, query, func(ctx context.Context) (any, error) {
		return p.retrieve(ctx, query, language)
	})
	if err != nil {
		return nil, err
	}
	return v.(*rag.Result), nil
}

func (p *Pipeline) retrieve(ctx context.Context, query, language string) (*rag.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	category := classify.Classify(query)
	result := &rag.Result{Category: category}

	embedding := p.embedder.Embed(ctx, query)
	result.Embedding = embedding

	if embedding == nil {
		// No vector, no cache lookup, no semantic search. Keyword
		// retrieval still works for hadith-style questions.
		if classify.IsHadithQuery(query) {
			docs := p.searcher.KeywordSearch(ctx, query)
			result.Context = ragctx.Build(docs)
			result.Sources = sources.Badges(docs)
		}
		return result, nil
	}

	hit, err := p.cache.Lookup(ctx, embedding, language)
	if err != nil {
		p.logger.Warn("semantic cache lookup failed, treating as miss", "error", err)
	} else if hit != nil {
		result.CacheHit = true
		result.CachedAnswer = hit.Answer
		result.CachedSources = hit.Sources
		return result, nil
	}

	docs := p.searcher.Search(ctx, embedding, category, query)
	if len(docs) == 0 && classify.IsHadithQuery(query) {
		docs = p.searcher.KeywordSearch(ctx, query)
	}

	result.Context = ragctx.Build(docs)
	result.Sources = sources.Badges(docs)
	return result, nil
}

// Answer runs the complete pipeline. Deltas stream through onDelta as
// they arrive (a cache hit delivers the whole answer in one delta);
// onDelta may be nil. The answer is validated, and answers worth keeping
// are written back to the semantic cache in a detached task.
//
// Cancellation by the caller returns context.Canceled. Generation
// failure returns a localized fallback answer instead of an error.
func (p *Pipeline) Answer(ctx context.Context, query, language string, onDelta func(delta string)) (*Answer, error) {
	if language == "" {
		language = i18n.Detect(query)
	}

	result, err := p.ProcessQuery(ctx, query, language)
	if err != nil {
		return nil, err
	}

	if result.CacheHit {
		if onDelta != nil {
			onDelta(result.CachedAnswer)
		}
		return &Answer{
			Text:       result.CachedAnswer,
			Sources:    result.CachedSources,
			Category:   result.Category,
			Confidence: validate.ConfidenceHigh,
			FromCache:  true,
		}, nil
	}

	reply, err := p.generator.Stream(ctx, query, result.Context, language, onDelta)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, context.Canceled
		}
		p.logger.Error("answer generation failed", "error", err)
		fallback := i18n.Msg(language, "answer.offline")
		if onDelta != nil {
			onDelta(fallback)
		}
		return &Answer{
			Text:       fallback,
			Category:   result.Category,
			Confidence: validate.ConfidenceLow,
		}, nil
	}

	avgSim := averageSimilarity(result.Sources)
	checked := validate.Validate(reply.Text, len(result.Sources), avgSim, result.Category, language)

	// Validation may append a disclaimer; streaming consumers assembled
	// the answer from deltas, so they receive only the appended suffix.
	if suffix := strings.TrimPrefix(checked.Text, reply.Text); suffix != "" && suffix != checked.Text && onDelta != nil {
		onDelta(suffix)
	}

	if checked.Confidence != validate.ConfidenceLow && len(result.Embedding) > 0 {
		p.writeBack(ctx, result, query, checked.Text, language, avgSim)
	}

	return &Answer{
		Text:        checked.Text,
		ArabicText:  reply.ArabicText,
		Translation: reply.Translation,
		Sources:     result.Sources,
		Category:    result.Category,
		Confidence:  checked.Confidence,
		Warnings:    checked.Warnings,
	}, nil
}

// writeBack persists the answer in a detached task so a slow insert
// never delays the response.
func (p *Pipeline) writeBack(ctx context.Context, result *rag.Result, query, answer, language string, avgSim float32) {
	ttlDays := semcache.TTLDays(len(result.Sources), avgSim)
	detached := context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(detached, writeBackTimeout)
		defer cancel()
		if err := p.cache.Write(ctx, result.Embedding, query, answer, result.Sources, language, ttlDays); err != nil {
			p.logger.Warn("semantic cache write failed", "error", err)
		}
	}()
}

func averageSimilarity(badges []rag.SourceBadge) float32 {
	if len(badges) == 0 {
		return 0
	}
	var sum float32
	for _, b := range badges {
		sum += b.Similarity
	}
	return sum / float32(len(badges))
}
