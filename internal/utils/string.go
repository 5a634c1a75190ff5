package utils

import (
	"strings"
	"unicode"
)

// objectReplacement marks embedded objects in a text field and counts as
// whitespace.
const objectReplacement = '￼'

// IsWhitespace reports whether r separates words without punctuating.
func IsWhitespace(r rune) bool {
	return unicode.IsSpace(r) || r == objectReplacement
}

// IsWordSeparator reports whether r ends a word: whitespace or one of . , ? ! ; :
func IsWordSeparator(r rune) bool {
	switch r {
	case '.', ',', '?', '!', ';', ':':
		return true
	}
	return IsWhitespace(r)
}

// IsSentenceEnd reports whether r ends a sentence.
func IsSentenceEnd(r rune) bool {
	return r == '.' || r == '?' || r == '!'
}

// IsUpperCase reports whether every rune changes when lowercased. Empty input
// is not uppercase.
func IsUpperCase(runes []rune) bool {
	if len(runes) == 0 {
		return false
	}
	for _, r := range runes {
		if unicode.ToLower(r) == r {
			return false
		}
	}
	return true
}

// MatchCase uppercases word entirely when input is an all-uppercase word of
// more than one letter, so typing "HELO" offers "HELLO".
func MatchCase(word, input string) string {
	runes := []rune(input)
	if len(runes) > 1 && IsUpperCase(runes) {
		return strings.ToUpper(word)
	}
	return word
}
