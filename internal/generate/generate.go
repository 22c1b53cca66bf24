// Package generate produces grounded answers with a Genkit model,
// streaming plain-text deltas to the caller.
package generate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/noorchat/noor/internal/i18n"
	"github.com/noorchat/noor/internal/ratelimit"
)

// DefaultTimeout bounds a full generation, streaming included.
const DefaultTimeout = 60 * time.Second

const systemPrompt = `You are a careful assistant answering questions about Islam.

Rules:
- Ground every claim in the provided sources and cite them as [Source N].
- Quote Quranic verses in Arabic followed by their translation.
- Name the authenticity grade when citing a hadith.
- If the sources are insufficient, say so plainly instead of speculating.
- Do not issue personal religious rulings; present what the sources say.`

// Reply is a completed generation. ArabicText and Translation are
// extracted from answers that quote original Arabic alongside its
// rendering, for clients that display the two separately.
type Reply struct {
	Text        string
	ArabicText  string
	Translation string
}

// Service wraps model access behind throttling, timeouts and markdown
// stripping.
type Service struct {
	genkit    *genkit.Genkit
	modelName string
	limiter   *ratelimit.Limiter
	timeout   time.Duration
	logger    *slog.Logger
}

// New creates a generation Service. A zero timeout uses DefaultTimeout.
func New(g *genkit.Genkit, modelName string, limiter *ratelimit.Limiter, timeout time.Duration, logger *slog.Logger) (*Service, error) {
	if g == nil {
		return nil, fmt.Errorf("genkit instance is required")
	}
	if modelName == "" {
		return nil, fmt.Errorf("model name is required")
	}
	if limiter == nil {
		return nil, fmt.Errorf("rate limiter is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Service{
		genkit:    g,
		modelName: modelName,
		limiter:   limiter,
		timeout:   timeout,
		logger:    logger,
	}, nil
}

// Stream generates an answer for the query grounded in contextBlock,
// invoking onDelta with each cleaned text delta as it arrives. onDelta
// may be nil. The returned Reply.Text equals the concatenation of every
// delta, already stripped of markdown.
//
// A caller-initiated cancellation surfaces as context.Canceled so the
// orchestrator can tell an abandoned request from a model failure.
func (s *Service) Stream(ctx context.Context, query, contextBlock, language string, onDelta func(delta string)) (*Reply, error) {
	if err := s.limiter.Wait(ctx, ratelimit.KeyGeneration); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, context.Canceled
		}
		return nil, fmt.Errorf("waiting for generation slot: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	prompt := buildPrompt(query, contextBlock, language)

	var raw strings.Builder
	var cleaner StreamCleaner
	emit := func(clean string) {
		if clean != "" && onDelta != nil {
			onDelta(clean)
		}
	}

	resp, err := genkit.Generate(ctx, s.genkit,
		ai.WithModelName(s.modelName),
		ai.WithSystem(systemPrompt),
		ai.WithPrompt(prompt),
		ai.WithStreaming(func(ctx context.Context, chunk *ai.ModelResponseChunk) error {
			text := chunk.Text()
			raw.WriteString(text)
			emit(cleaner.Feed(text))
			return ctx.Err()
		}),
	)
	if err != nil {
		if cause := context.Cause(ctx); errors.Is(cause, context.Canceled) {
			return nil, context.Canceled
		}
		return nil, fmt.Errorf("generating answer: %w", err)
	}

	full := raw.String()
	if full == "" {
		full = resp.Text()
		emit(cleaner.Feed(full))
	}
	emit(cleaner.Flush())

	text := StripMarkdown(full)
	arabic, translation := splitArabic(text)
	return &Reply{Text: text, ArabicText: arabic, Translation: translation}, nil
}

func buildPrompt(query, contextBlock, language string) string {
	var b strings.Builder
	if contextBlock != "" {
		b.WriteString(contextBlock)
		b.WriteString("\n")
	}
	if language == i18n.LangAR {
		b.WriteString("Answer in Arabic.\n\n")
	} else {
		b.WriteString("Answer in English.\n\n")
	}
	b.WriteString("Question: ")
	b.WriteString(query)
	return b.String()
}

// splitArabic separates an answer's quoted Arabic lines from the rest.
// Both results are empty unless the answer mixes scripts; a monolingual
// answer has nothing to split.
func splitArabic(text string) (arabic, translation string) {
	var arabicLines, otherLines []string
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if isMostlyArabic(trimmed) {
			arabicLines = append(arabicLines, trimmed)
		} else {
			otherLines = append(otherLines, trimmed)
		}
	}
	if len(arabicLines) == 0 || len(otherLines) == 0 {
		return "", ""
	}
	return strings.Join(arabicLines, "\n"), strings.Join(otherLines, "\n")
}

func isMostlyArabic(s string) bool {
	var arabic, letters int
	for _, r := range s {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if unicode.Is(unicode.Arabic, r) {
			arabic++
		}
	}
	return letters > 0 && arabic*2 > letters
}
