package predict

import (
	"github.com/bastiangx/keyserve/pkg/dictionary"
	"github.com/bastiangx/keyserve/pkg/keys"
)

// charSet is the set of input characters a search can do something with.
type charSet map[rune]struct{}

// buildValidChars collects the dictionary's characters, their variants and
// any key that sits next to one of those on the keyboard.
func buildValidChars(dict *dictionary.Dictionary, nearby keys.NearbyMap) charSet {
	set := make(charSet)
	for _, ch := range dict.Chars() {
		set[ch] = struct{}{}
		p, _ := dict.Profile(ch)
		for _, v := range p.Variants {
			set[v] = struct{}{}
		}
	}

	known := make(charSet, len(set))
	for ch := range set {
		known[ch] = struct{}{}
	}
	for key, near := range nearby {
		if _, ok := known[key]; ok {
			continue
		}
		for n := range near {
			if _, ok := known[n]; ok {
				set[key] = struct{}{}
				break
			}
		}
	}
	return set
}

func (s charSet) contains(r rune) bool {
	_, ok := s[r]
	return ok
}

func (s charSet) all(input string) bool {
	for _, r := range input {
		if !s.contains(r) {
			return false
		}
	}
	return true
}
