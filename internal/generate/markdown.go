package generate

import (
	"regexp"
	"strings"
)

// The chat surface renders plain text, so model output is stripped of
// markdown before it reaches the client. The rules are chosen so that
// stripping is idempotent and, within complete lines, stable under
// appended input. Character-level removals hold everywhere; the
// line-anchored rules only fire on whole lines, which is why the stream
// cleaner buffers the trailing partial line.
var (
	headingRe    = regexp.MustCompile(`(?m)^#+[ \t]*`)
	blockquoteRe = regexp.MustCompile(`(?m)^(?:>[ \t]?)+`)
	hrRe         = regexp.MustCompile(`(?m)^-{3,}[ \t]*$\n?`)
	inlineChars  = strings.NewReplacer(
		"*", "",
		"`", "",
		"_", "",
		"—", "-", // em dash
		"–", "-", // en dash
	)
)

// StripMarkdown converts markdown-formatted text to plain text.
// Applying it twice yields the same result as applying it once.
func StripMarkdown(text string) string {
	if text == "" {
		return ""
	}
	text = inlineChars.Replace(text)
	text = headingRe.ReplaceAllString(text, "")
	text = blockquoteRe.ReplaceAllString(text, "")
	text = hrRe.ReplaceAllString(text, "")
	return text
}

// StreamCleaner applies StripMarkdown incrementally to a token stream.
// Each Feed returns only the newly cleaned text, so concatenating every
// return value (plus the final Flush) equals StripMarkdown over the full
// stream. Text already handed out is never revised.
type StreamCleaner struct {
	pending string // raw tail not yet terminated by a newline
}

// Feed appends a raw chunk and returns the cleaned text that is now
// final. Output stops at the last newline seen; the trailing partial
// line stays buffered because a line-anchored rule could still match it.
func (c *StreamCleaner) Feed(chunk string) string {
	c.pending += chunk
	idx := strings.LastIndexByte(c.pending, '\n')
	if idx < 0 {
		return ""
	}
	complete := c.pending[:idx+1]
	c.pending = c.pending[idx+1:]
	return StripMarkdown(complete)
}

// Flush cleans and returns whatever remains buffered. Call it once,
// after the stream ends.
func (c *StreamCleaner) Flush() string {
	out := StripMarkdown(c.pending)
	c.pending = ""
	return out
}
