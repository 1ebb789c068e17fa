package utils

import (
	"strings"

	"quiz-server/models"
)

// Recognized spellings, lowercase. Polish forms include the common
// diacritic-stripped and misspelled variants seen in subject files.
var (
	trueSpellings  = []string{"true", "prawda"}
	falseSpellings = []string{"false", "fałsz", "falsz", "fałs", "fals", "falš"}
)

// NormalizeAnswer canonicalizes free-form true/false text into TRUE or FALSE.
// Unrecognized input comes back trimmed and uppercased, so the function is
// idempotent.
func NormalizeAnswer(s string) models.Answer {
	trimmed := strings.TrimSpace(s)
	lower := strings.ToLower(trimmed)
	if ContainsString(trueSpellings, lower) {
		return models.AnswerTrue
	}
	if ContainsString(falseSpellings, lower) {
		return models.AnswerFalse
	}
	return models.Answer(strings.ToUpper(trimmed))
}

// ContainsString checks if a string slice contains a specific string.
func ContainsString(slice []string, item string) bool {
	for _, a := range slice {
		if a == item {
			return true
		}
	}
	return false
}

// SplitRight splits s around sep starting from the right, performing at most
// n splits. The result is in left-to-right order, so the leftmost element
// keeps any extra separators.
func SplitRight(s, sep string, n int) []string {
	if n <= 0 || sep == "" {
		return []string{s}
	}
	var tail []string
	for len(tail) < n {
		i := strings.LastIndex(s, sep)
		if i < 0 {
			break
		}
		tail = append(tail, s[i+len(sep):])
		s = s[:i]
	}
	out := make([]string, 0, len(tail)+1)
	out = append(out, s)
	for i := len(tail) - 1; i >= 0; i-- {
		out = append(out, tail[i])
	}
	return out
}
