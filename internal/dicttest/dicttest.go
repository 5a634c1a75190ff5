// Package dicttest encodes small word lists into the binary dictionary
// format for tests.
package dicttest

import (
	"encoding/binary"
	"math"
	"sort"
)

const (
	magic   uint32 = 0x4B455953
	family  uint32 = 0x44494354
	version uint32 = 1

	maxFreq = 32
)

type trieNode struct {
	children map[rune]*trieNode
	best     int // highest word frequency at or below this node
	end      int // frequency of the word ending here, 0 if none
}

func newTrieNode() *trieNode {
	return &trieNode{children: make(map[rune]*trieNode)}
}

type entry struct {
	char rune
	freq int
	node *trieNode
}

// Quantize scales raw frequencies into the 1..32 range the trie stores.
// Lists whose maximum is already at most 32 are only clamped. Scaled values
// never drop to 1 unless they started there, since 1 marks reserved words.
func Quantize(words map[string]int) map[string]int {
	top := 0
	for _, f := range words {
		if f > top {
			top = f
		}
	}
	out := make(map[string]int, len(words))
	for w, f := range words {
		q := f
		if top > maxFreq {
			q = int(math.Round(float64(f) * maxFreq / float64(top)))
			if f > 1 && q < 2 {
				q = 2
			}
		}
		if q < 1 {
			q = 1
		}
		if q > maxFreq {
			q = maxFreq
		}
		out[w] = q
	}
	return out
}

// Build encodes words (word -> raw frequency) as a dictionary blob.
func Build(words map[string]int) []byte {
	words = Quantize(words)

	root := newTrieNode()
	charFreq := make(map[rune]uint32)
	maxLen := 0
	for w, f := range words {
		runes := []rune(w)
		if len(runes) > maxLen {
			maxLen = len(runes)
		}
		n := root
		if f > n.best {
			n.best = f
		}
		for _, r := range runes {
			charFreq[r] += uint32(f)
			child, ok := n.children[r]
			if !ok {
				child = newTrieNode()
				n.children[r] = child
			}
			n = child
			if f > n.best {
				n.best = f
			}
		}
		if f > n.end {
			n.end = f
		}
	}

	var tree []byte
	if len(words) > 0 {
		tree = emit(nil, root)
	}
	return Assemble(maxLen, charFreq, tree)
}

// Assemble writes a header and character table in front of an encoded trie.
func Assemble(maxLen int, charFreq map[rune]uint32, tree []byte) []byte {
	chars := make([]rune, 0, len(charFreq))
	for r := range charFreq {
		chars = append(chars, r)
	}
	sort.Slice(chars, func(i, j int) bool { return chars[i] < chars[j] })

	buf := make([]byte, 15, 15+6*len(chars)+len(tree))
	binary.BigEndian.PutUint32(buf[0:], magic)
	binary.BigEndian.PutUint32(buf[4:], family)
	binary.BigEndian.PutUint32(buf[8:], version)
	buf[12] = byte(maxLen)
	binary.BigEndian.PutUint16(buf[13:], uint16(len(chars)))
	for _, r := range chars {
		var rec [6]byte
		binary.BigEndian.PutUint16(rec[0:], uint16(r))
		binary.BigEndian.PutUint32(rec[2:], charFreq[r])
		buf = append(buf, rec[:]...)
	}
	return append(buf, tree...)
}

// emit appends the sibling chain of n's children (plus its end-of-word
// marker), each node followed by its own children.
func emit(buf []byte, n *trieNode) []byte {
	entries := make([]entry, 0, len(n.children)+1)
	if n.end > 0 {
		entries = append(entries, entry{char: 0, freq: n.end})
	}
	for r, child := range n.children {
		entries = append(entries, entry{char: r, freq: child.best, node: child})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].freq != entries[j].freq {
			return entries[i].freq > entries[j].freq
		}
		return entries[i].char < entries[j].char
	})

	for i, e := range entries {
		header := byte(e.freq - 1)
		hasNext := i < len(entries)-1
		if e.char != 0 {
			header |= 0x80
			if e.char > 0xFF {
				header |= 0x40
			}
		}
		if hasNext {
			header |= 0x20
		}
		buf = append(buf, header)
		if e.char > 0xFF {
			buf = append(buf, byte(e.char>>8), byte(e.char))
		} else if e.char != 0 {
			buf = append(buf, byte(e.char))
		}
		patch := len(buf)
		if hasNext {
			buf = append(buf, 0, 0, 0)
		}
		if e.node != nil {
			buf = emit(buf, e.node)
		}
		if hasNext {
			next := len(buf)
			buf[patch] = byte(next >> 16)
			buf[patch+1] = byte(next >> 8)
			buf[patch+2] = byte(next)
		}
	}
	return buf
}
