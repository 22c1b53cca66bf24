// Package i18n holds the user-facing message tables and the language
// detection utility. The pipeline is language-aware in two places: the
// semantic cache prefers answers stored in the asker's language, and
// error/disclaimer text shown to the user is localized.
package i18n

import (
	"fmt"
	"strings"
)

// Supported languages.
const (
	LangEN = "en"
	LangAR = "ar"
)

// messages maps language -> key -> text. Populated at init from the
// per-language files.
var messages = map[string]map[string]string{
	LangEN: englishMessages(),
	LangAR: arabicMessages(),
}

// Normalize maps common language code variants to a supported code.
// Unknown codes fall back to English.
func Normalize(lang string) string {
	switch strings.ToLower(strings.TrimSpace(lang)) {
	case "ar", "ar-sa", "ar-eg", "arabic":
		return LangAR
	default:
		return LangEN
	}
}

// Msg returns the message for key in the given language, falling back to
// English, then to the key itself.
func Msg(lang, key string) string {
	if m, ok := messages[Normalize(lang)]; ok {
		if s, ok := m[key]; ok {
			return s
		}
	}
	if s, ok := messages[LangEN][key]; ok {
		return s
	}
	return key
}

// Sprintf formats the localized message for key.
func Sprintf(lang, key string, args ...any) string {
	return fmt.Sprintf(Msg(lang, key), args...)
}

// Supported returns the supported language codes.
func Supported() []string {
	return []string{LangEN, LangAR}
}

// Detect guesses the language of text by script. Arabic-block runes beyond
// a small threshold mean Arabic; everything else is treated as English.
// Pure, no external calls.
func Detect(text string) string {
	var arabic, letters int
	for _, r := range text {
		switch {
		case r >= 0x0600 && r <= 0x06FF, // Arabic
			r >= 0x0750 && r <= 0x077F, // Arabic Supplement
			r >= 0xFB50 && r <= 0xFDFF, // Arabic Presentation Forms-A
			r >= 0xFE70 && r <= 0xFEFF: // Arabic Presentation Forms-B
			arabic++
			letters++
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			letters++
		}
	}
	if letters > 0 && arabic*3 >= letters {
		return LangAR
	}
	return LangEN
}
