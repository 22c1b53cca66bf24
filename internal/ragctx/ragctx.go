// Package ragctx assembles retrieved source documents into the grounding
// context block handed to the generation model.
package ragctx

import (
	"fmt"
	"strings"

	"github.com/noorchat/noor/internal/rag"
)

// Build renders documents as numbered [Source N] blocks. The numbering
// matches the citation markers the model is instructed to emit, so the
// answer's references can be resolved back to concrete sources.
//
// An empty document list returns an empty string: generation then runs
// without grounding and the answer is marked low confidence downstream.
func Build(docs []rag.Document) string {
	if len(docs) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Answer using ONLY the sources below. Cite each claim with its [Source N] marker.\n\n")

	for i, d := range docs {
		fmt.Fprintf(&b, "[Source %d] (%s) %s\n", i+1, d.Type, d.Title)
		if d.Reference != "" {
			fmt.Fprintf(&b, "Reference: %s\n", d.Reference)
		}
		if d.Grade != "" {
			fmt.Fprintf(&b, "Grade: %s\n", d.Grade)
		}
		if d.Narrator != "" {
			fmt.Fprintf(&b, "Narrator: %s\n", d.Narrator)
		}
		if d.VerseKey != "" {
			fmt.Fprintf(&b, "Verse: %s\n", d.VerseKey)
		}
		if d.ArabicText != "" {
			fmt.Fprintf(&b, "Arabic: %s\n", d.ArabicText)
		}
		if d.Translation != "" {
			fmt.Fprintf(&b, "Translation: %s\n", d.Translation)
		}
		if d.Content != "" && d.Content != d.Translation {
			fmt.Fprintf(&b, "Text: %s\n", d.Content)
		}
		if d.Similarity > 0 {
			fmt.Fprintf(&b, "Relevance: %.0f%%\n", d.Similarity*100)
		}
		b.WriteString("\n")
	}

	b.WriteString("If the sources do not contain the answer, say so explicitly rather than guessing.\n")
	return b.String()
}
