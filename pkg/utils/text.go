package utils

// Excerpt caps text at maxLen runes. Embedding providers have input limits;
// the head of a briefing carries most of its signal.
func Excerpt(text string, maxLen int) string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	return string(runes[:maxLen])
}
