package sources

import (
	"strings"

	"github.com/noorchat/noor/internal/rag"
)

// Badges converts retrieved documents into the compact citation badges
// shown alongside an answer.
func Badges(docs []rag.Document) []rag.SourceBadge {
	if len(docs) == 0 {
		return nil
	}
	badges := make([]rag.SourceBadge, 0, len(docs))
	for _, d := range docs {
		badges = append(badges, rag.SourceBadge{
			Type:       d.Type,
			Label:      d.Title,
			Reference:  d.Reference,
			Grade:      d.Grade,
			GradeColor: gradeColor(d.Grade),
			VerseKey:   d.VerseKey,
			Similarity: d.Similarity,
		})
	}
	return badges
}

// gradeColor maps a hadith authenticity grade to a display color.
// Unknown or absent grades render gray.
func gradeColor(grade string) string {
	switch strings.ToLower(strings.TrimSpace(grade)) {
	case "sahih":
		return "green"
	case "hasan":
		return "blue"
	case "daif", "da'if":
		return "orange"
	default:
		return "gray"
	}
}
