package session

import (
	"github.com/bastiangx/keyserve/internal/utils"
	"github.com/bastiangx/keyserve/pkg/keys"
)

// buffer mirrors the host's text field. Edits always build a new slice so
// a copied buffer is a stable snapshot.
type buffer struct {
	text   []rune
	cursor int
	// selEnd is the end of the selection, 0 when nothing is selected.
	selEnd int
}

func newBuffer(text string, cursor, selEnd int) buffer {
	runes := []rune(text)
	cursor = clamp(cursor, 0, len(runes))
	if selEnd <= cursor || selEnd > len(runes) {
		selEnd = 0
	}
	return buffer{text: runes, cursor: cursor, selEnd: selEnd}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (b buffer) String() string {
	return string(b.text)
}

func (b buffer) hasSelection() bool {
	return b.selEnd > b.cursor
}

func (b buffer) at(i int) (rune, bool) {
	if i < 0 || i >= len(b.text) {
		return 0, false
	}
	return b.text[i], true
}

// replace swaps text[from:to] for s and puts the cursor after it.
func (b buffer) replace(from, to int, s string) buffer {
	from = clamp(from, 0, len(b.text))
	to = clamp(to, from, len(b.text))
	ins := []rune(s)
	out := make([]rune, 0, len(b.text)-(to-from)+len(ins))
	out = append(out, b.text[:from]...)
	out = append(out, ins...)
	out = append(out, b.text[to:]...)
	return buffer{text: out, cursor: from + len(ins)}
}

// key applies a key the host has accepted.
func (b buffer) key(code rune) buffer {
	switch {
	case code == keys.CodeBackspace:
		if b.hasSelection() {
			return b.replace(b.cursor, b.selEnd, "")
		}
		if b.cursor == 0 {
			return b
		}
		return b.replace(b.cursor-1, b.cursor, "")
	case code == keys.CodeReturn:
		code = '\n'
	case keys.IsSpecial(code) && code != keys.CodeSpace:
		return b
	}
	end := b.cursor
	if b.hasSelection() {
		end = b.selEnd
	}
	return b.replace(b.cursor, end, string(code))
}

// surrounding applies a ReplaceSurroundingText the host has accepted.
func (b buffer) surrounding(text string, before, after int) buffer {
	return b.replace(b.cursor-before, b.cursor+after, text)
}

// beforeCursor returns the n runes before the cursor, or fewer at the start.
func (b buffer) beforeCursor(n int) string {
	return string(b.text[clamp(b.cursor-n, 0, b.cursor):b.cursor])
}

// atWordEnd reports whether the cursor sits right after a word: no
// selection, whitespace or the end of the field after it, and a word
// character before it.
func (b buffer) atWordEnd() bool {
	if b.hasSelection() {
		return false
	}
	if r, ok := b.at(b.cursor); ok && !utils.IsWhitespace(r) {
		return false
	}
	if b.cursor <= 0 {
		return false
	}
	return !utils.IsWordSeparator(b.text[b.cursor-1])
}

// wordStart is the index of the first rune of the word before the cursor.
func (b buffer) wordStart() int {
	i := b.cursor - 1
	for i >= 0 && !utils.IsWordSeparator(b.text[i]) {
		i--
	}
	return i + 1
}

func (b buffer) wordBeforeCursor() string {
	return string(b.text[b.wordStart():b.cursor])
}

// atSentenceStart reports whether the cursor follows whitespace that itself
// follows the end of a sentence or the start of the field.
func (b buffer) atSentenceStart() bool {
	i := b.cursor - 1
	if i < 0 {
		return true
	}
	if !utils.IsWhitespace(b.text[i]) {
		return false
	}
	for i >= 0 && utils.IsWhitespace(b.text[i]) {
		i--
	}
	if i < 0 {
		return true
	}
	return utils.IsSentenceEnd(b.text[i])
}

// wantsUpperCase decides the shift state from the text before the cursor.
func (b buffer) wantsUpperCase() bool {
	switch {
	case b.cursor == 0:
		return true
	case b.cursor >= 2 && utils.IsUpperCase(b.text[b.cursor-2:b.cursor]):
		return true
	case !utils.IsWhitespace(b.text[b.cursor-1]):
		return false
	default:
		return b.atSentenceStart()
	}
}
