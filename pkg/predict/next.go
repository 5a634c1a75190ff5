package predict

import (
	"fmt"
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/bastiangx/keyserve/pkg/dictionary"
)

// NextChar is a character that can follow a prefix. Char 0 means the
// prefix is itself a complete word.
type NextChar struct {
	Char      rune `msgpack:"char"`
	Frequency int  `msgpack:"frequency"`
}

// PredictNextChar follows prefix exactly through the trie and lists the
// characters that may come next, most likely first. A prefix that isn't in
// the dictionary yields no characters.
func (e *Engine) PredictNextChar(prefix string) ([]NextChar, error) {
	dict := e.snapshot().dict
	if dict == nil {
		return nil, ErrNotInitialized
	}
	if dict.TreeSize() == 0 {
		return nil, nil
	}

	pointer, ok, err := walkPrefix(dict, prefix)
	if err != nil || !ok {
		return nil, err
	}

	var result []NextChar
	for pointer != dictionary.NoOffset {
		node, err := dict.Node(pointer)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptTrie, err)
		}
		result = append(result, NextChar{Char: node.Char, Frequency: node.Frequency})
		pointer = node.Next
	}
	return result, nil
}

// WordWeight is the weight a search would give word if it were typed in
// full: its frequency, scaled down once per case-folded character. Reserved
// words weigh reservedInputMatchWeight. Words not in the dictionary weigh 0.
func (e *Engine) WordWeight(word string) (float64, error) {
	dict := e.snapshot().dict
	if dict == nil {
		return 0, ErrNotInitialized
	}
	if word == "" || dict.TreeSize() == 0 {
		return 0, nil
	}

	best := 0.0
	for _, form := range caseForms(word) {
		freq, err := wordFrequency(dict, form)
		if err != nil {
			return 0, err
		}
		if freq == 0 {
			continue
		}
		weight := float64(reservedInputMatchWeight)
		if freq > 1 {
			weight = float64(freq) * math.Pow(variantMultiplier, float64(runeChanges(word, form)))
		}
		best = max(best, weight)
	}
	return best, nil
}

// caseForms lists word as typed, with its first letter lowered, and fully
// lowered, without repeats.
func caseForms(word string) []string {
	forms := []string{word}
	r, size := utf8.DecodeRuneInString(word)
	if first := string(unicode.ToLower(r)) + word[size:]; first != word {
		forms = append(forms, first)
	}
	if lower := strings.ToLower(word); lower != forms[len(forms)-1] && lower != word {
		forms = append(forms, lower)
	}
	return forms
}

func runeChanges(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	n := 0
	for i := range min(len(ra), len(rb)) {
		if ra[i] != rb[i] {
			n++
		}
	}
	return n
}

// walkPrefix follows prefix exactly and returns the offset of the first
// node after it. ok is false when the dictionary has no such prefix.
func walkPrefix(dict *dictionary.Dictionary, prefix string) (pointer int, ok bool, err error) {
	for _, r := range prefix {
		found := false
		for pointer != dictionary.NoOffset {
			node, err := dict.Node(pointer)
			if err != nil {
				return 0, false, fmt.Errorf("%w: %v", ErrCorruptTrie, err)
			}
			if node.Char == r && !node.IsWordEnd() {
				pointer = node.Child
				found = true
				break
			}
			pointer = node.Next
		}
		if !found {
			return 0, false, nil
		}
	}
	return pointer, true, nil
}

// wordFrequency is the stored frequency of word, 0 if it isn't a word.
func wordFrequency(dict *dictionary.Dictionary, word string) (int, error) {
	pointer, ok, err := walkPrefix(dict, word)
	if err != nil || !ok {
		return 0, err
	}
	for pointer != dictionary.NoOffset {
		node, err := dict.Node(pointer)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrCorruptTrie, err)
		}
		if node.IsWordEnd() {
			return node.Frequency, nil
		}
		pointer = node.Next
	}
	return 0, nil
}
