// Package sources searches the indexed corpus of religious source texts.
//
// Retrieval is hybrid: cosine similarity over pgvector embeddings blended
// with full-text relevance, weighted 0.7/0.3. Results are filtered by
// question category and by authenticity grade, with a single unfiltered
// retry when a category-filtered search comes back empty.
//
// Failure contract: Search and KeywordSearch log and return empty results
// on any error. Retrieval failures only reduce the context available to
// generation; they never abort a query.
package sources

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/noorchat/noor/internal/rag"
)

// Retrieval constants. The similarity floor is intentionally loose
// compared to the semantic cache threshold: sources only need topical
// relevance, a cache hit replays a verbatim answer.
const (
	DefaultMaxSources    = 5
	DefaultMinSimilarity = 0.60

	weightVector = 0.7
	weightText   = 0.3
)

// searchTimeout bounds one search round trip.
const searchTimeout = 10 * time.Second

// sourceCols is the SELECT column list shared by all search queries.
const sourceCols = `id, source_type, title, reference, grade, narrator,
	verse_key, arabic_text, translation, content, created_at`

// Searcher queries the sources table.
type Searcher struct {
	pool          *pgxpool.Pool
	maxSources    int
	minSimilarity float32
	logger        *slog.Logger
}

// New creates a Searcher. Non-positive limits fall back to defaults.
func New(pool *pgxpool.Pool, maxSources int, minSimilarity float32, logger *slog.Logger) (*Searcher, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if maxSources <= 0 {
		maxSources = DefaultMaxSources
	}
	if minSimilarity <= 0 {
		minSimilarity = DefaultMinSimilarity
	}
	return &Searcher{
		pool:          pool,
		maxSources:    maxSources,
		minSimilarity: minSimilarity,
		logger:        logger,
	}, nil
}

// Search retrieves up to maxSources documents relevant to the query,
// biased toward the classified category. A category of general means no
// filter. If the filtered search yields nothing, one unfiltered retry
// runs before giving up.
func (s *Searcher) Search(ctx context.Context, embedding []float32, category rag.Category, queryText string) []rag.Document {
	if len(embedding) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	filter := ""
	if category != rag.CategoryGeneral && category != "" {
		filter = string(category)
	}

	docs, err := s.hybridQuery(ctx, embedding, queryText, filter)
	if err != nil {
		s.logger.Warn("source search failed", "category", category, "error", err)
		return nil
	}

	if len(docs) == 0 && filter != "" {
		docs, err = s.hybridQuery(ctx, embedding, queryText, "")
		if err != nil {
			s.logger.Warn("unfiltered source search failed", "error", err)
			return nil
		}
	}

	return docs
}

func (s *Searcher) hybridQuery(ctx context.Context, embedding []float32, queryText, typeFilter string) ([]rag.Document, error) {
	vec := pgvector.NewVector(embedding)
	rows, err := s.pool.Query(ctx,
		`SELECT `+sourceCols+`,
		        1 - (embedding <=> $1) AS similarity,
		        ($4 * (1 - (embedding <=> $1))
		         + $5 * LEAST(1.0, COALESCE(ts_rank_cd(search_text, plainto_tsquery('english', $2), 1), 0))
		        ) AS relevance
		 FROM sources
		 WHERE ($3 = '' OR source_type = $3)
		   AND (grade = '' OR lower(grade) IN ('sahih', 'hasan'))
		   AND 1 - (embedding <=> $1) >= $6
		 ORDER BY relevance DESC
		 LIMIT $7`,
		vec, queryText, typeFilter,
		weightVector, weightText,
		s.minSimilarity, s.maxSources,
	)
	if err != nil {
		return nil, fmt.Errorf("hybrid searching sources: %w", err)
	}
	defer rows.Close()

	return scanDocuments(rows)
}

// KeywordSearch runs a plain full-text search with no embedding. It is
// the last-resort fallback for hadith-keyword queries when vector
// retrieval is unavailable or empty.
func (s *Searcher) KeywordSearch(ctx context.Context, queryText string) []rag.Document {
	if queryText == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT `+sourceCols+`,
		        0::float4 AS similarity,
		        ts_rank_cd(search_text, plainto_tsquery('english', $1), 1) AS relevance
		 FROM sources
		 WHERE search_text @@ plainto_tsquery('english', $1)
		 ORDER BY relevance DESC
		 LIMIT $2`,
		queryText, s.maxSources,
	)
	if err != nil {
		s.logger.Warn("keyword search failed", "error", err)
		return nil
	}
	defer rows.Close()

	docs, err := scanDocuments(rows)
	if err != nil {
		s.logger.Warn("scanning keyword search rows", "error", err)
		return nil
	}
	return docs
}

func scanDocuments(rows pgx.Rows) ([]rag.Document, error) {
	var docs []rag.Document
	for rows.Next() {
		var d rag.Document
		var sourceType string
		var relevance float32
		if err := rows.Scan(
			&d.ID, &sourceType, &d.Title, &d.Reference, &d.Grade, &d.Narrator,
			&d.VerseKey, &d.ArabicText, &d.Translation, &d.Content, &d.CreatedAt,
			&d.Similarity, &relevance,
		); err != nil {
			return nil, fmt.Errorf("scanning source row: %w", err)
		}
		d.Type = rag.Category(sourceType)
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading source rows: %w", err)
	}
	return docs, nil
}
