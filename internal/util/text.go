package util

import "strings"

func SanitizePostgresText(value string) string {
	if value == "" {
		return value
	}

	sanitized := strings.ToValidUTF8(value, "")
	return strings.ReplaceAll(sanitized, "\x00", "")
}

// WordCount counts whitespace-separated tokens.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// ReadingTimeMinutes estimates reading time at 200 words per minute,
// never reporting less than one minute for non-empty text.
func ReadingTimeMinutes(words int) int {
	minutes := words / 200
	if minutes < 1 {
		return 1
	}
	return minutes
}

// FirstSentence returns the text up to and including the first sentence
// terminator, or the whole text if none is found.
func FirstSentence(text string) string {
	trimmed := strings.TrimSpace(text)
	for i, r := range trimmed {
		if r == '.' || r == '!' || r == '?' {
			return trimmed[:i+1]
		}
	}
	return trimmed
}
