package session

import (
	"testing"

	"github.com/bastiangx/keyserve/pkg/keys"
)

func TestBufferPredicates(t *testing.T) {
	testCases := []struct {
		description   string
		text          string
		cursor        int
		selEnd        int
		atWordEnd     bool
		word          string
		sentenceStart bool
		upper         bool
	}{
		{"empty field", "", 0, 0, false, "", true, true},
		{"end of a word", "hello", 5, 0, true, "hello", false, false},
		{"word before a space", "hello world", 5, 0, true, "hello", false, false},
		{"inside a word", "hello", 3, 0, false, "hel", false, false},
		{"after a space", "hello ", 6, 0, false, "", false, false},
		{"after a sentence", "Hi. ", 4, 0, false, "", true, true},
		{"after a question and spaces", "Why?  ", 6, 0, false, "", true, true},
		{"after a comma", "so, ", 4, 0, false, "", false, false},
		{"only spaces", "   ", 3, 0, false, "", true, true},
		{"after punctuation", "end.", 4, 0, false, "", false, false},
		{"second word", "one two", 7, 0, true, "two", false, false},
		{"apostrophe is part of a word", "don't", 5, 0, true, "don't", false, false},
		{"selection", "hello", 0, 5, false, "", true, true},
		{"caps", "ABC", 3, 0, true, "ABC", false, true},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			b := newBuffer(tc.text, tc.cursor, tc.selEnd)
			if got := b.atWordEnd(); got != tc.atWordEnd {
				t.Errorf("atWordEnd() = %v, want %v", got, tc.atWordEnd)
			}
			if got := b.wordBeforeCursor(); got != tc.word {
				t.Errorf("wordBeforeCursor() = %q, want %q", got, tc.word)
			}
			if got := b.atSentenceStart(); got != tc.sentenceStart {
				t.Errorf("atSentenceStart() = %v, want %v", got, tc.sentenceStart)
			}
			if got := b.wantsUpperCase(); got != tc.upper {
				t.Errorf("wantsUpperCase() = %v, want %v", got, tc.upper)
			}
		})
	}
}

func TestBufferEdits(t *testing.T) {
	testCases := []struct {
		description string
		text        string
		cursor      int
		selEnd      int
		code        rune
		want        string
		wantCursor  int
	}{
		{"insert", "ac", 1, 0, 'b', "abc", 2},
		{"insert unicode", "caf", 3, 0, 'é', "café", 4},
		{"return", "a", 1, 0, keys.CodeReturn, "a\n", 2},
		{"backspace", "abc", 2, 0, keys.CodeBackspace, "ac", 1},
		{"backspace at start", "abc", 0, 0, keys.CodeBackspace, "abc", 0},
		{"backspace selection", "abcd", 1, 3, keys.CodeBackspace, "ad", 1},
		{"type over selection", "abcd", 1, 3, 'x', "axd", 2},
		{"shift does nothing", "ab", 1, 0, keys.CodeShift, "ab", 1},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			b := newBuffer(tc.text, tc.cursor, tc.selEnd)
			got := b.key(tc.code)
			if got.String() != tc.want || got.cursor != tc.wantCursor || got.hasSelection() {
				t.Errorf("key(%d) = %q@%d (selection %v), want %q@%d",
					tc.code, got.String(), got.cursor, got.hasSelection(), tc.want, tc.wantCursor)
			}
			if b.String() != tc.text {
				t.Errorf("key() modified the original buffer: %q", b.String())
			}
		})
	}
}

func TestBufferSurrounding(t *testing.T) {
	b := newBuffer("say teh end", 7, 0)
	got := b.surrounding("the", 3, 0)
	if got.String() != "say the end" || got.cursor != 7 {
		t.Errorf("surrounding() = %q@%d", got.String(), got.cursor)
	}
	if got := b.beforeCursor(4); got != " teh" {
		t.Errorf("beforeCursor(4) = %q", got)
	}
	if got := b.beforeCursor(20); got != "say teh" {
		t.Errorf("beforeCursor(20) = %q", got)
	}
}
