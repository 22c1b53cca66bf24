// Package validate scores generated answers before they are shown or
// cached. Validation never rejects an answer; it grades confidence,
// collects warnings, and appends a scholarly disclaimer when grounding
// is weak.
package validate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/noorchat/noor/internal/i18n"
	"github.com/noorchat/noor/internal/rag"
)

// Confidence grades how well an answer is grounded in retrieved sources.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Confidence thresholds. High requires broad, strong grounding; medium
// requires at least one reasonably similar source.
const (
	highMinSources    = 3
	highMinSimilarity = 0.8
	mediumMinSources  = 1
	mediumMinSim      = 0.65
)

// The Quran has 114 surahs.
const maxSurahNumber = 114

var (
	citationRe = regexp.MustCompile(`\[Source \d+\]`)
	// \b is ASCII-only and never matches before Arabic letters, so the
	// boundary lives inside the Latin branch.
	surahRefRe = regexp.MustCompile(`(?i)(?:\bsurah|سورة)\s+(\d+)`)
	verseKeyRe = regexp.MustCompile(`\b(\d+):\d+\b`)
)

// Result is a validated answer.
type Result struct {
	Text       string     `json:"text"`
	Confidence Confidence `json:"confidence"`
	Warnings   []string   `json:"warnings,omitempty"`
}

// Validate grades an answer generated from sourceCount sources with the
// given average similarity. Low-confidence answers get a disclaimer in
// the user's language appended; the text is otherwise unchanged.
func Validate(text string, sourceCount int, avgSimilarity float32, category rag.Category, lang string) Result {
	r := Result{
		Text:       text,
		Confidence: grade(sourceCount, avgSimilarity),
	}

	if !citationRe.MatchString(text) && sourceCount > 0 {
		r.Warnings = append(r.Warnings, "answer cites no sources despite retrieved context")
	}

	r.Warnings = append(r.Warnings, surahRangeWarnings(text)...)

	if r.Confidence == ConfidenceLow {
		r.Text = appendDisclaimer(r.Text, lang)
	}
	return r
}

func grade(sourceCount int, avgSimilarity float32) Confidence {
	switch {
	case sourceCount >= highMinSources && avgSimilarity > highMinSimilarity:
		return ConfidenceHigh
	case sourceCount >= mediumMinSources && avgSimilarity > mediumMinSim:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// surahRangeWarnings flags surah references outside 1..114, a telltale
// sign of a hallucinated citation.
func surahRangeWarnings(text string) []string {
	var warnings []string
	seen := make(map[int]bool)
	flag := func(numText string) {
		n, err := strconv.Atoi(numText)
		if err != nil || seen[n] {
			return
		}
		if n < 1 || n > maxSurahNumber {
			seen[n] = true
			warnings = append(warnings, fmt.Sprintf("surah %d does not exist (valid range 1-%d)", n, maxSurahNumber))
		}
	}
	for _, m := range surahRefRe.FindAllStringSubmatch(text, -1) {
		flag(m[1])
	}
	for _, m := range verseKeyRe.FindAllStringSubmatch(text, -1) {
		flag(m[1])
	}
	return warnings
}

// appendDisclaimer adds the low-confidence notice once. Re-validating an
// already disclaimed answer must not stack a second copy.
func appendDisclaimer(text, lang string) string {
	disclaimer := i18n.Msg(lang, "answer.disclaimer")
	if strings.Contains(text, disclaimer) {
		return text
	}
	if text == "" {
		return disclaimer
	}
	return text + "\n\n" + disclaimer
}
