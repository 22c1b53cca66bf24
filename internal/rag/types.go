// Package rag defines the shared domain types of the retrieval pipeline:
// question categories, source documents and their citation badges, and the
// result contract handed to the calling chat layer.
package rag

import (
	"strings"
	"time"
)

// Category classifies a question by its subject area. Categories bias
// source retrieval toward the matching corpus partition.
type Category string

// Question categories, from most to least specific. The order here mirrors
// the classifier's first-match-wins rule table.
const (
	CategoryTafsir  Category = "tafsir"
	CategoryQuran   Category = "quran"
	CategoryHadith  Category = "hadith"
	CategoryAqeedah Category = "aqeedah"
	CategoryFiqh    Category = "fiqh"
	CategorySeerah  Category = "seerah"
	CategoryGeneral Category = "general"
)

// SourceBadge carries the citation metadata of one retrieved source,
// rendered by the chat layer next to the answer.
type SourceBadge struct {
	Type       Category `json:"type"`
	Label      string   `json:"label"`
	Reference  string   `json:"reference,omitempty"`
	Grade      string   `json:"grade,omitempty"`
	GradeColor string   `json:"gradeColor,omitempty"`
	VerseKey   string   `json:"verseKey,omitempty"`
	Similarity float32  `json:"similarity,omitempty"`
}

// Document is one indexed source text as returned by the source store.
type Document struct {
	ID          string
	Type        Category
	Title       string
	Reference   string
	Grade       string
	Narrator    string
	VerseKey    string
	ArabicText  string
	Translation string
	Content     string
	Similarity  float32
	CreatedAt   time.Time
}

// Result is the orchestrator's single return contract. Either CacheHit is
// true and CachedAnswer/CachedSources carry a previously generated answer,
// or Context/Sources/Embedding describe the retrieval outcome for a fresh
// generation. Embedding is nil when embedding failed, which disables both
// caching and grounded retrieval for the request.
type Result struct {
	Context       string
	Category      Category
	Sources       []SourceBadge
	CacheHit      bool
	CachedAnswer  string
	CachedSources []SourceBadge
	Embedding     []float32
}

// NormalizeQuery canonicalizes user text for cache keys and request
// deduplication: lowercased, trimmed, inner whitespace collapsed.
func NormalizeQuery(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}
