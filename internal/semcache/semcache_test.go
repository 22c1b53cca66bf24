package semcache

import (
	"testing"

	"github.com/google/uuid"
)

func TestPickCandidatePrefersLanguageMatch(t *testing.T) {
	en := candidate{id: uuid.New(), language: "en", similarity: 0.99}
	ar := candidate{id: uuid.New(), language: "ar", similarity: 0.96}

	chosen, ok := pickCandidate([]candidate{en, ar}, "ar")
	if !ok {
		t.Fatal("expected a candidate")
	}
	if chosen.id != ar.id {
		t.Error("same-language candidate should win over a higher-similarity one")
	}
}

// When no candidate matches the query language, the top row is served even
// though its language differs. This mirrors the reference behavior: the
// caller may receive an answer in the wrong language. Intentional, see
// DESIGN.md.
func TestPickCandidateFallsBackToTopRow(t *testing.T) {
	first := candidate{id: uuid.New(), language: "en", similarity: 0.99}
	second := candidate{id: uuid.New(), language: "en", similarity: 0.97}

	chosen, ok := pickCandidate([]candidate{first, second}, "ar")
	if !ok {
		t.Fatal("expected a candidate")
	}
	if chosen.id != first.id {
		t.Error("expected the best match when no language matches")
	}
}

func TestPickCandidateNoLanguagePreference(t *testing.T) {
	first := candidate{id: uuid.New(), language: "ar", similarity: 0.99}
	second := candidate{id: uuid.New(), language: "en", similarity: 0.98}

	chosen, _ := pickCandidate([]candidate{first, second}, "")
	if chosen.id != first.id {
		t.Error("empty language should take the top row")
	}
}

func TestPickCandidateEmpty(t *testing.T) {
	if _, ok := pickCandidate(nil, "en"); ok {
		t.Error("no candidates should be a miss")
	}
}

func TestTTLDaysMonotonic(t *testing.T) {
	if TTLDays(3, 0.85) <= TTLDays(1, 0.5) {
		t.Error("well-grounded answers must outlive thinly grounded ones")
	}
}

func TestTTLDaysBoundaries(t *testing.T) {
	tests := []struct {
		sourceCount int
		avgSim      float32
		want        int
	}{
		{3, 0.85, HighTTLDays},
		{5, 0.9, HighTTLDays},
		{3, 0.8, BaseTTLDays}, // similarity must strictly exceed 0.8
		{2, 0.95, BaseTTLDays},
		{0, 0, BaseTTLDays},
	}
	for _, tt := range tests {
		if got := TTLDays(tt.sourceCount, tt.avgSim); got != tt.want {
			t.Errorf("TTLDays(%d, %.2f) = %d, want %d", tt.sourceCount, tt.avgSim, got, tt.want)
		}
	}
}
