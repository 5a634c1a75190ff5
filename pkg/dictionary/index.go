package dictionary

import (
	"sort"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/tchap/go-patricia/v2/patricia"
)

// WordFreq is a stored word with its frequency.
type WordFreq struct {
	Word      string `msgpack:"word"`
	Frequency int    `msgpack:"frequency"`
}

// Index is an exact-match index over every word of a dictionary.
type Index struct {
	trie  *patricia.Trie
	words int
}

// NewIndex enumerates the words of dict into a patricia trie.
func NewIndex(dict *Dictionary) (*Index, error) {
	idx := &Index{trie: patricia.NewTrie()}
	err := dict.Walk(func(word string, freq int) error {
		// The same word may end in several branches; keep the best.
		if item := idx.trie.Get(patricia.Prefix(word)); item != nil {
			if item.(int) >= freq {
				return nil
			}
			idx.trie.Set(patricia.Prefix(word), freq)
			return nil
		}
		idx.trie.Insert(patricia.Prefix(word), freq)
		idx.words++
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Debugf("Indexed %d words", idx.words)
	return idx, nil
}

// Len is the number of distinct words.
func (idx *Index) Len() int {
	return idx.words
}

// Frequency returns the frequency of word, or 0 if it isn't stored.
func (idx *Index) Frequency(word string) int {
	if item := idx.trie.Get(patricia.Prefix(word)); item != nil {
		return item.(int)
	}
	return 0
}

// Contains reports whether word is stored exactly.
func (idx *Index) Contains(word string) bool {
	return idx.Frequency(word) > 0
}

// Complete lists stored words starting with prefix, most frequent first.
// Ties are broken alphabetically. limit <= 0 means no limit. Reserved words
// (frequency 1) are only listed when they equal prefix, ignoring case.
func (idx *Index) Complete(prefix string, limit int) []WordFreq {
	var results []WordFreq
	err := idx.trie.VisitSubtree(patricia.Prefix(prefix), func(p patricia.Prefix, item patricia.Item) error {
		word, freq := string(p), item.(int)
		if freq == 1 && !strings.EqualFold(word, prefix) {
			return nil
		}
		results = append(results, WordFreq{Word: word, Frequency: freq})
		return nil
	})
	if err != nil {
		log.Warnf("Index visit for %q failed: %v", prefix, err)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Frequency != results[j].Frequency {
			return results[i].Frequency > results[j].Frequency
		}
		return results[i].Word < results[j].Word
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}
