package dictionary

import (
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// foldTable covers letters that don't decompose into a base letter plus
// combining marks, and so can't be folded with NFD alone.
var foldTable = map[rune]rune{
	'Æ': 'a', 'æ': 'a', 'Ǣ': 'a', 'ǣ': 'a', 'Ǽ': 'a', 'ǽ': 'a', 'Ⱥ': 'a', 'ⱥ': 'a',
	'Ƀ': 'b', 'ƀ': 'b', 'Ɓ': 'b', 'ɓ': 'b', 'Ƃ': 'b', 'ƃ': 'b',
	'Ȼ': 'c', 'ȼ': 'c', 'Ƈ': 'c', 'ƈ': 'c',
	'Đ': 'd', 'đ': 'd', 'Ɗ': 'd', 'ɗ': 'd', 'Ƌ': 'd', 'ƌ': 'd', 'ð': 'd',
	'Ƒ': 'f', 'ƒ': 'f',
	'Ǥ': 'g', 'ǥ': 'g', 'Ɠ': 'g', 'ɠ': 'g',
	'Ħ': 'h', 'ħ': 'h', 'Ⱨ': 'h', 'ⱨ': 'h',
	'ı': 'i', 'Ɨ': 'i', 'ɨ': 'i',
	'Ɉ': 'j', 'ɉ': 'j',
	'Ƙ': 'k', 'ƙ': 'k', 'Ⱪ': 'k', 'ⱪ': 'k',
	'Ł': 'l', 'ł': 'l', 'Ŀ': 'l', 'ŀ': 'l', 'Ƚ': 'l', 'ƚ': 'l', 'Ⱡ': 'l', 'ⱡ': 'l', 'Ɫ': 'l', 'ɫ': 'l',
	'Ɱ': 'm', 'ɱ': 'm',
	'Ɲ': 'n', 'ɲ': 'n', 'Ƞ': 'n', 'ƞ': 'n',
	'Ø': 'o', 'ø': 'o', 'Œ': 'o', 'œ': 'o',
	'Ƥ': 'p', 'ƥ': 'p', 'Ᵽ': 'p', 'ᵽ': 'p',
	'Ɍ': 'r', 'ɍ': 'r', 'Ɽ': 'r', 'ɽ': 'r',
	'ß': 's', '$': 's',
	'Ŧ': 't', 'ŧ': 't', 'Ⱦ': 't', 'ⱦ': 't', 'Ƭ': 't', 'ƭ': 't', 'Ʈ': 't', 'ʈ': 't',
	'Ʋ': 'v', 'ʋ': 'v',
	'Ⱳ': 'w', 'ⱳ': 'w',
	'Ƴ': 'y', 'ƴ': 'y', 'Ɏ': 'y', 'ɏ': 'y',
	'Ƶ': 'z', 'ƶ': 'z', 'Ȥ': 'z', 'ȥ': 'z', 'Ⱬ': 'z', 'ⱬ': 'z',
}

// foldAccent returns the unaccented lowercase ASCII letter r is a form of.
// Plain ASCII letters are not accented forms of anything.
func foldAccent(r rune) (rune, bool) {
	if r < 0x80 && r != '$' {
		return 0, false
	}
	if root, ok := foldTable[r]; ok {
		return root, true
	}

	decomposed := []rune(norm.NFD.String(string(r)))
	if len(decomposed) < 2 {
		return 0, false
	}
	for _, mark := range decomposed[1:] {
		if !unicode.Is(unicode.Mn, mark) {
			return 0, false
		}
	}
	base := unicode.ToLower(decomposed[0])
	if base < 'a' || base > 'z' {
		return 0, false
	}
	return base, true
}

// Fold maps r to the form nearby-key lookups are keyed by: accents removed,
// lowercase.
func Fold(r rune) rune {
	if root, ok := foldAccent(r); ok {
		return root
	}
	return unicode.ToLower(r)
}

// CharacterProfile describes how one dictionary character may be matched.
type CharacterProfile struct {
	Char      rune
	Frequency uint32
	// Variants lists input characters accepted in place of Char without
	// counting as a correction: other case forms and, for accented letters,
	// the unaccented letter in both cases.
	Variants []rune
	// Root is the form used to look up nearby keys.
	Root rune
}

// IsPunctuation reports whether the character is word-internal punctuation,
// which is any character without variants (apostrophe, hyphen, digits).
func (p CharacterProfile) IsPunctuation() bool {
	return len(p.Variants) == 0
}

// HasVariant reports whether r is an accepted variant of the character.
func (p CharacterProfile) HasVariant(r rune) bool {
	for _, v := range p.Variants {
		if v == r {
			return true
		}
	}
	return false
}

func newProfile(ch rune, freq uint32) CharacterProfile {
	p := CharacterProfile{Char: ch, Frequency: freq, Root: ch}

	upper := unicode.ToUpper(ch)
	lower := unicode.ToLower(ch)
	if upper != ch {
		p.Variants = append(p.Variants, upper)
	}
	if lower != ch {
		p.Variants = append(p.Variants, lower)
		p.Root = lower
	}

	if root, ok := foldAccent(ch); ok {
		p.Root = root
		p.Variants = appendUnique(p.Variants, root, unicode.ToUpper(root))
	}
	return p
}

func appendUnique(dst []rune, rs ...rune) []rune {
	for _, r := range rs {
		found := false
		for _, have := range dst {
			if have == r {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, r)
		}
	}
	return dst
}
