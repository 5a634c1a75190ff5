/*
Package dictionary reads the binary trie dictionaries used for word prediction.

A dictionary blob holds a fixed header, a character frequency table and a
compact ternary trie. Nodes are decoded on demand from the raw byte buffer,
so a loaded Dictionary costs little more than the blob itself.
*/
package dictionary

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/charmbracelet/log"
	"golang.org/x/exp/maps"
)

// Dictionary is a loaded, immutable dictionary.
type Dictionary struct {
	header   Header
	profiles map[rune]CharacterProfile
	tree     []byte
}

// Load parses a dictionary blob. The returned Dictionary keeps its own copy
// of the trie bytes.
func Load(data []byte) (*Dictionary, error) {
	h, err := ParseHeader(data)
	if err != nil {
		return nil, err
	}

	profiles := make(map[rune]CharacterProfile, h.CharCount)
	for i := 0; i < h.CharCount; i++ {
		rec := data[headerSize+i*charRecordSize:]
		ch := rune(binary.BigEndian.Uint16(rec))
		freq := binary.BigEndian.Uint32(rec[2:])
		profiles[ch] = newProfile(ch, freq)
	}

	tree := make([]byte, len(data)-h.TreeOffset())
	copy(tree, data[h.TreeOffset():])

	log.Debugf("Loaded dictionary: %d chars, %d trie bytes, max word length %d",
		len(profiles), len(tree), h.MaxWordLength)

	return &Dictionary{header: h, profiles: profiles, tree: tree}, nil
}

// MaxWordLength is the longest input the dictionary accepts, one more than
// the longest stored word so a trailing extra keystroke can still match.
func (d *Dictionary) MaxWordLength() int {
	return d.header.MaxWordLength + 1
}

// Header returns the parsed header.
func (d *Dictionary) Header() Header {
	return d.header
}

// Profile returns the profile of a dictionary character.
func (d *Dictionary) Profile(ch rune) (CharacterProfile, bool) {
	p, ok := d.profiles[ch]
	return p, ok
}

// Chars returns every character of the frequency table in code point order.
func (d *Dictionary) Chars() []rune {
	chars := maps.Keys(d.profiles)
	sort.Slice(chars, func(i, j int) bool { return chars[i] < chars[j] })
	return chars
}

// RootOf returns the form of an input character used for nearby-key lookup.
func (d *Dictionary) RootOf(r rune) rune {
	if p, ok := d.profiles[r]; ok {
		return p.Root
	}
	return Fold(r)
}

// TreeSize is the length of the trie in bytes.
func (d *Dictionary) TreeSize() int {
	return len(d.tree)
}

// Node decodes the trie node at offset. The root node is at offset 0.
func (d *Dictionary) Node(offset int) (Node, error) {
	return DecodeNode(d.tree, offset)
}

// Walk calls fn for every word stored in the trie with the frequency of its
// terminal node. Words are visited depth first, most frequent branch first.
// Walk stops at the first error returned by fn.
func (d *Dictionary) Walk(fn func(word string, freq int) error) error {
	if len(d.tree) == 0 {
		return nil
	}
	buf := make([]rune, 0, d.MaxWordLength())
	return d.walk(0, buf, fn)
}

func (d *Dictionary) walk(offset int, prefix []rune, fn func(string, int) error) error {
	if len(prefix) > d.MaxWordLength() {
		return fmt.Errorf("%w: word deeper than %d chars", ErrBadOffset, d.MaxWordLength())
	}
	for offset != NoOffset {
		node, err := d.Node(offset)
		if err != nil {
			return err
		}
		if node.IsWordEnd() {
			if err := fn(string(prefix), node.Frequency); err != nil {
				return err
			}
		} else if err := d.walk(node.Child, append(prefix, node.Char), fn); err != nil {
			return err
		}
		if node.Next != NoOffset && node.Next <= offset {
			return fmt.Errorf("%w: sibling pointer %d does not advance past %d", ErrBadOffset, node.Next, offset)
		}
		offset = node.Next
	}
	return nil
}
