package predict

import (
	"strings"
)

var matchStripper = strings.NewReplacer("'", "", "-", "")

// matchForm lowercases s and drops apostrophes and hyphens.
func matchForm(s string) string {
	return matchStripper.Replace(strings.ToLower(s))
}

// promoteMatches moves the suggestions that spell the input, ignoring case,
// apostrophes and hyphens, ahead of the rest. Relative order is kept within
// both groups.
func promoteMatches(input string, suggestions []Suggestion) []Suggestion {
	target := matchForm(input)
	out := make([]Suggestion, 0, len(suggestions))
	for _, s := range suggestions {
		if matchForm(s.Word) == target {
			out = append(out, s)
		}
	}
	if len(out) == 0 || len(out) == len(suggestions) {
		return suggestions
	}
	for _, s := range suggestions {
		if matchForm(s.Word) != target {
			out = append(out, s)
		}
	}
	return out
}
