package dictionary

import (
	"errors"
	"fmt"
)

// NoOffset marks a missing sibling or child pointer.
const NoOffset = -1

const (
	flagHasChar = 0x80
	flagBigChar = 0x40
	flagHasNext = 0x20
	maskFreq    = 0x1F
)

// ErrBadOffset is returned when a node pointer falls outside the trie.
var ErrBadOffset = errors.New("trie offset out of range")

// Node is one decoded trie node. Char 0 marks the end of a word; such nodes
// have no children. Siblings are chained from the most to the least frequent.
type Node struct {
	Frequency int  // 1..32, highest word frequency below this node
	Char      rune // 0 when a word terminates here
	Next      int  // offset of the next sibling, or NoOffset
	Child     int  // offset of the first child, or NoOffset
}

// IsWordEnd reports whether the node terminates a word.
func (n Node) IsWordEnd() bool {
	return n.Char == 0
}

// DecodeNode reads the node at offset from tree.
func DecodeNode(tree []byte, offset int) (Node, error) {
	if offset < 0 || offset >= len(tree) {
		return Node{}, fmt.Errorf("%w: %d (trie is %d bytes)", ErrBadOffset, offset, len(tree))
	}

	header := tree[offset]
	pos := offset + 1
	node := Node{
		Frequency: int(header&maskFreq) + 1,
		Next:      NoOffset,
		Child:     NoOffset,
	}

	if header&flagHasChar != 0 {
		width := 1
		if header&flagBigChar != 0 {
			width = 2
		}
		if pos+width > len(tree) {
			return Node{}, fmt.Errorf("%w: character at %d", ErrBadOffset, pos)
		}
		if width == 2 {
			node.Char = rune(tree[pos])<<8 | rune(tree[pos+1])
		} else {
			node.Char = rune(tree[pos])
		}
		pos += width
	}

	if header&flagHasNext != 0 {
		if pos+3 > len(tree) {
			return Node{}, fmt.Errorf("%w: sibling pointer at %d", ErrBadOffset, pos)
		}
		node.Next = int(tree[pos])<<16 | int(tree[pos+1])<<8 | int(tree[pos+2])
		pos += 3
	}

	// The first child is stored right after its parent.
	if node.Char != 0 {
		node.Child = pos
	}
	return node, nil
}
