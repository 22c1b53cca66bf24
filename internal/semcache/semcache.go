// Package semcache implements the persisted semantic answer cache backed
// by PostgreSQL + pgvector.
//
// Entries are keyed by question embedding, not by exact text: a lookup is
// a nearest-neighbor search, and a hit means the stored question is a
// near-paraphrase of the asked one. Because a hit returns a previously
// generated answer verbatim, the hit threshold (0.95 by default) is far
// stricter than topical source retrieval.
//
// Store is safe for concurrent use by multiple goroutines.
package semcache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/noorchat/noor/internal/rag"
)

// DefaultThreshold is the minimum cosine similarity for a cache hit.
const DefaultThreshold = 0.95

// candidateLimit caps how many above-threshold rows are considered for
// language matching.
const candidateLimit = 5

// detachedTimeout bounds fire-and-forget writes (hit counts) so a stuck
// connection cannot leak goroutines indefinitely.
const detachedTimeout = 5 * time.Second

// Hit is one successful cache lookup.
type Hit struct {
	EntryID    uuid.UUID
	Answer     string
	Sources    []rag.SourceBadge
	Language   string
	Similarity float32
}

// candidate is one above-threshold row, ordered best-first.
type candidate struct {
	id         uuid.UUID
	answer     string
	sourcesRaw []byte
	language   string
	similarity float32
}

// Store is the pgvector-backed semantic cache.
type Store struct {
	pool      *pgxpool.Pool
	threshold float32
	logger    *slog.Logger
}

// New creates a Store. threshold <= 0 uses DefaultThreshold.
func New(pool *pgxpool.Pool, threshold float32, logger *slog.Logger) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Store{pool: pool, threshold: threshold, logger: logger}, nil
}

// Lookup searches for a cached answer whose question embedding is at least
// threshold-similar to the given one. Expired rows are filtered at query
// time. When language is non-empty and several candidates qualify, a row
// stored in that language is preferred; otherwise the top row wins even if
// its language differs (documented fallback, see DESIGN.md).
//
// On a hit, the entry's hit_count is incremented in a detached task;
// increment failures are logged and never affect the read path.
//
// Returns (nil, nil) on a miss.
func (s *Store) Lookup(ctx context.Context, embedding []float32, language string) (*Hit, error) {
	if len(embedding) == 0 {
		return nil, nil
	}

	vec := pgvector.NewVector(embedding)
	rows, err := s.pool.Query(ctx,
		`SELECT id, answer_text, answer_sources, language,
		        1 - (question_embedding <=> $1) AS similarity
		 FROM semantic_cache
		 WHERE expires_at > now()
		   AND 1 - (question_embedding <=> $1) >= $2
		 ORDER BY question_embedding <=> $1
		 LIMIT $3`,
		vec, s.threshold, candidateLimit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying semantic cache: %w", err)
	}
	defer rows.Close()

	var candidates []candidate
	for rows.Next() {
		var c candidate
		if err := rows.Scan(&c.id, &c.answer, &c.sourcesRaw, &c.language, &c.similarity); err != nil {
			return nil, fmt.Errorf("scanning cache row: %w", err)
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading cache rows: %w", err)
	}

	chosen, ok := pickCandidate(candidates, language)
	if !ok {
		return nil, nil
	}

	var sources []rag.SourceBadge
	if err := json.Unmarshal(chosen.sourcesRaw, &sources); err != nil {
		s.logger.Warn("parsing cached answer sources", "entry_id", chosen.id, "error", err)
		sources = nil
	}

	s.incrementHitCount(ctx, chosen.id)

	return &Hit{
		EntryID:    chosen.id,
		Answer:     chosen.answer,
		Sources:    sources,
		Language:   chosen.language,
		Similarity: chosen.similarity,
	}, nil
}

// pickCandidate selects the row to serve: same-language first, otherwise
// the best match. Candidates must be ordered best-first.
func pickCandidate(candidates []candidate, language string) (candidate, bool) {
	if len(candidates) == 0 {
		return candidate{}, false
	}
	if language != "" {
		for _, c := range candidates {
			if c.language == language {
				return c, true
			}
		}
	}
	return candidates[0], true
}

// incrementHitCount bumps hit_count in a detached task.
func (s *Store) incrementHitCount(ctx context.Context, id uuid.UUID) {
	detached := context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(detached, detachedTimeout)
		defer cancel()
		if _, err := s.pool.Exec(ctx,
			`UPDATE semantic_cache SET hit_count = hit_count + 1 WHERE id = $1`,
			id,
		); err != nil {
			s.logger.Warn("incrementing cache hit count", "entry_id", id, "error", err)
		}
	}()
}

// Write inserts a new cache entry expiring ttlDays from now. The caller
// treats this as best-effort and usually detaches it.
func (s *Store) Write(ctx context.Context, embedding []float32, question, answer string, sources []rag.SourceBadge, language string, ttlDays int) error {
	if len(embedding) == 0 {
		return fmt.Errorf("embedding is required")
	}
	if ttlDays <= 0 {
		return fmt.Errorf("ttlDays must be positive, got %d", ttlDays)
	}

	sourcesJSON, err := json.Marshal(sources)
	if err != nil {
		return fmt.Errorf("marshaling answer sources: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO semantic_cache
		   (id, question_text, question_embedding, answer_text, answer_sources, language, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, now() + make_interval(days => $7))`,
		uuid.New(), question, pgvector.NewVector(embedding), answer, sourcesJSON, language, ttlDays,
	)
	if err != nil {
		return fmt.Errorf("inserting cache entry: %w", err)
	}
	return nil
}

// PurgeExpired deletes rows past their expiry. Maintenance operation; the
// read path filters expired rows regardless.
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM semantic_cache WHERE expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("purging expired cache entries: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Stats reports live entry count and accumulated hits.
func (s *Store) Stats(ctx context.Context) (entries, hits int64, err error) {
	err = s.pool.QueryRow(ctx,
		`SELECT count(*), coalesce(sum(hit_count), 0)
		 FROM semantic_cache
		 WHERE expires_at > now()`,
	).Scan(&entries, &hits)
	if err != nil {
		return 0, 0, fmt.Errorf("reading cache stats: %w", err)
	}
	return entries, hits, nil
}
