package util

import (
	"strings"
	"unicode"
)

func SanitizePostgresText(value string) string {
	if value == "" {
		return value
	}

	sanitized := strings.ToValidUTF8(value, "")
	return strings.ReplaceAll(sanitized, "\x00", "")
}

// PerDocumentBudget splits a total character budget evenly across count
// documents. Documents shorter than their share leave the surplus on the
// table, the staircase truncation in the synthesizer handles that.
func PerDocumentBudget(totalBudget, count int) int {
	if count <= 0 {
		return totalBudget
	}
	if totalBudget <= 0 {
		return 0
	}
	return totalBudget / count
}

// TruncateRunes cuts text to at most limit runes, trying to break on the
// last whitespace before the limit so words stay intact.
func TruncateRunes(text string, limit int) string {
	if limit <= 0 {
		return ""
	}

	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}

	cut := limit
	for i := limit - 1; i > limit/2; i-- {
		if unicode.IsSpace(runes[i]) {
			cut = i
			break
		}
	}

	return strings.TrimRight(string(runes[:cut]), " \t\n")
}

// Slug converts a topic name into a stable lowercase identifier. Runs of
// non-alphanumeric characters collapse into a single hyphen.
func Slug(value string) string {
	var builder strings.Builder
	builder.Grow(len(value))

	lastHyphen := true
	for _, r := range strings.ToLower(value) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			builder.WriteRune(r)
			lastHyphen = false
		case !lastHyphen:
			builder.WriteRune('-')
			lastHyphen = true
		}
	}

	return strings.TrimRight(builder.String(), "-")
}

// FirstParagraph returns the text up to the first blank line, used as a
// short summary when no dedicated one exists.
func FirstParagraph(text string) string {
	trimmed := strings.TrimSpace(text)
	if idx := strings.Index(trimmed, "\n\n"); idx >= 0 {
		return strings.TrimSpace(trimmed[:idx])
	}
	return trimmed
}
