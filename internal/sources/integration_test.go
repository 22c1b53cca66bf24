package sources_test

import (
	"context"
	"testing"

	"github.com/pgvector/pgvector-go"

	"github.com/noorchat/noor/internal/log"
	"github.com/noorchat/noor/internal/rag"
	"github.com/noorchat/noor/internal/sources"
	"github.com/noorchat/noor/internal/testutil"
)

func unitVector(dim, axis int) []float32 {
	v := make([]float32, dim)
	v[axis] = 1
	return v
}

func insertSource(t *testing.T, db *testutil.TestDB, sourceType, title, grade, content string, embedding []float32) {
	t.Helper()
	_, err := db.Pool.Exec(context.Background(),
		`INSERT INTO sources (source_type, title, grade, content, embedding)
		 VALUES ($1, $2, $3, $4, $5)`,
		sourceType, title, grade, content, pgvector.NewVector(embedding),
	)
	if err != nil {
		t.Fatalf("inserting source: %v", err)
	}
}

func TestSearchFiltersAndFallback(t *testing.T) {
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	s, err := sources.New(db.Pool, 5, 0.5, log.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	vec := unitVector(768, 0)
	insertSource(t, db, "hadith", "Sahih al-Bukhari 1", "Sahih", "Actions are judged by intentions.", vec)
	insertSource(t, db, "quran", "Surah Al-Baqarah", "", "This is the Book without doubt.", vec)

	// Category filter keeps only the matching type.
	docs := s.Search(ctx, vec, rag.CategoryHadith, "intentions")
	if len(docs) != 1 || docs[0].Type != rag.CategoryHadith {
		t.Errorf("filtered search = %+v, want the single hadith row", docs)
	}

	// A category with no rows falls back to an unfiltered search.
	docs = s.Search(ctx, vec, rag.CategorySeerah, "intentions")
	if len(docs) != 2 {
		t.Errorf("fallback search returned %d rows, want 2", len(docs))
	}

	// general means no filter at all.
	docs = s.Search(ctx, vec, rag.CategoryGeneral, "intentions")
	if len(docs) != 2 {
		t.Errorf("unfiltered search returned %d rows, want 2", len(docs))
	}
}

func TestSearchExcludesWeakGrades(t *testing.T) {
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	s, err := sources.New(db.Pool, 5, 0.5, log.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	vec := unitVector(768, 1)
	insertSource(t, db, "hadith", "Graded weak", "Daif", "A weakly attested narration.", vec)
	insertSource(t, db, "hadith", "Graded sound", "Hasan", "A soundly attested narration.", vec)

	docs := s.Search(ctx, vec, rag.CategoryHadith, "narration")
	if len(docs) != 1 || docs[0].Grade != "Hasan" {
		t.Errorf("search returned %+v, want only the hasan-graded row", docs)
	}
}

func TestSearchSimilarityFloor(t *testing.T) {
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	s, err := sources.New(db.Pool, 5, 0.5, log.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	// Orthogonal embedding: cosine similarity 0, below any floor.
	insertSource(t, db, "quran", "Unrelated", "", "Unrelated content.", unitVector(768, 2))

	docs := s.Search(ctx, unitVector(768, 3), rag.CategoryGeneral, "unrelated")
	if len(docs) != 0 {
		t.Errorf("search returned %+v, want nothing below the similarity floor", docs)
	}
}

func TestKeywordSearch(t *testing.T) {
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	s, err := sources.New(db.Pool, 5, 0.5, log.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	insertSource(t, db, "hadith", "On patience", "Sahih", "Patience is illumination.", unitVector(768, 4))
	insertSource(t, db, "hadith", "On anger", "Sahih", "Do not become angry.", unitVector(768, 5))

	docs := s.KeywordSearch(ctx, "patience")
	if len(docs) != 1 || docs[0].Title != "On patience" {
		t.Errorf("KeywordSearch = %+v, want the patience row", docs)
	}

	if docs := s.KeywordSearch(ctx, ""); docs != nil {
		t.Errorf("KeywordSearch(\"\") = %+v, want nil", docs)
	}
}
