package i18n

// englishMessages returns all English translations.
func englishMessages() map[string]string {
	return map[string]string{
		// Application
		"app.name":    "Noor",
		"app.version": "Noor v%s",

		// Answer pipeline
		"answer.offline":    "I could not reach the answer service right now. Please check your connection and try again.",
		"answer.disclaimer": "Allah knows best. This answer may be incomplete; please verify important matters with a qualified scholar.",
		"answer.no_answer":  "I could not find a well-grounded answer to this question. Please consult a qualified scholar.",

		// Chat surface
		"chat.cancelled": "Request cancelled.",
		"chat.thinking":  "Searching sources...",
	}
}
