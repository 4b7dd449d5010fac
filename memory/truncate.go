package memory

import "strings"

const truncationNotice = "\n\n[Context truncated for length...]"

// approximate characters per token for budget math
const charsPerToken = 4

// truncateContext trims text to roughly maxTokens, preferring to cut at
// a sentence boundary when one falls in the last fifth of the budget.
func truncateContext(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return text
	}
	maxChars := maxTokens * charsPerToken
	if len(text) <= maxChars {
		return text
	}

	cut := text[:maxChars]
	if idx := strings.LastIndex(cut, ". "); idx > maxChars*4/5 {
		cut = cut[:idx+1]
	}
	return cut + truncationNotice
}

func wordCount(text string) int {
	return len(strings.Fields(text))
}

func titleWord(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
