/*
Package predict turns raw keystrokes into ranked word suggestions.

The engine walks a dictionary trie breadth first, most frequent branch
first, growing candidates by exact matches, case and accent variants,
nearby-key and arbitrary substitutions, insertions, transpositions and
deletions. Each operation scales a candidate's weight by a fixed
multiplier; two bounded priority queues keep the best partial candidates and
the best finished words, and the search stops as soon as no candidate can
beat the worst word kept.

Searches are cooperative: they run in batches and check for cancellation
between batches. Finished results are cached per (input, limits) until the
dictionary or the nearby-key map changes.
*/
package predict

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/bastiangx/keyserve/pkg/dictionary"
	"github.com/bastiangx/keyserve/pkg/keys"
)

// DefaultBatchSize is how many candidates a search processes between
// cancellation checks.
const DefaultBatchSize = 10

var (
	// ErrNotInitialized is returned by searches started before both a
	// dictionary and a nearby-key map were set.
	ErrNotInitialized = errors.New("prediction engine not initialized")
	// ErrSearchAborted is the terminal result of an aborted search. It is
	// not a failure; no suggestions are delivered.
	ErrSearchAborted = errors.New("search aborted")
	// ErrCorruptTrie is returned when the trie references bytes outside
	// itself or a sibling chain doesn't move forward.
	ErrCorruptTrie = errors.New("corrupt dictionary trie")
)

// Suggestion is a proposed word and its weight; higher is better.
type Suggestion struct {
	Word   string  `msgpack:"word"`
	Weight float64 `msgpack:"weight"`
}

// Limits bound one search.
type Limits struct {
	MaxSuggestions int `msgpack:"max_suggestions"`
	MaxCandidates  int `msgpack:"max_candidates"`
	MaxCorrections int `msgpack:"max_corrections"`
}

var (
	// DefaultLimits are the limits the input session uses.
	DefaultLimits = Limits{MaxSuggestions: 4, MaxCandidates: 10, MaxCorrections: 1}
	// MaxLimits caps every search; larger limits are clamped.
	MaxLimits = Limits{MaxSuggestions: 100, MaxCandidates: 1000, MaxCorrections: 8}
)

func (l Limits) normalize() Limits {
	l.MaxSuggestions = min(max(l.MaxSuggestions, 1), MaxLimits.MaxSuggestions)
	l.MaxCandidates = min(max(l.MaxCandidates, 1), MaxLimits.MaxCandidates)
	l.MaxCorrections = min(max(l.MaxCorrections, 0), MaxLimits.MaxCorrections)
	return l
}

// Options configure an Engine.
type Options struct {
	CacheSize int
	BatchSize int
}

// state is everything a search reads. It is replaced wholesale whenever the
// dictionary or nearby-key map changes, never mutated.
type state struct {
	dict   *dictionary.Dictionary
	nearby keys.NearbyMap
	valid  charSet
	cache  *resultCache
}

// Engine predicts words from one dictionary. It is safe for concurrent use;
// each search works on the dictionary that was current when it was created.
type Engine struct {
	mu        sync.RWMutex
	cur       *state
	cacheSize int
	batchSize int

	traversals atomic.Int64
}

// NewEngine creates an engine with no dictionary.
func NewEngine(opts Options) *Engine {
	if opts.CacheSize < 1 {
		opts.CacheSize = DefaultCacheSize
	}
	if opts.BatchSize < 1 {
		opts.BatchSize = DefaultBatchSize
	}
	e := &Engine{cacheSize: opts.CacheSize, batchSize: opts.BatchSize}
	e.cur = &state{cache: newResultCache(e.cacheSize)}
	return e
}

// SetDictionary installs dict and clears the result cache. A nil dict
// leaves the engine uninitialized.
func (e *Engine) SetDictionary(dict *dictionary.Dictionary) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cur = e.rebuild(dict, e.cur.nearby)
}

// LoadDictionary parses and installs a dictionary blob. On error the
// current dictionary is dropped too, so a failed language switch never
// keeps serving the previous language.
func (e *Engine) LoadDictionary(data []byte) error {
	dict, err := dictionary.Load(data)
	if err != nil {
		e.SetDictionary(nil)
		return err
	}
	e.SetDictionary(dict)
	return nil
}

// SetNearbyKeys installs the nearby-key map and clears the result cache.
func (e *Engine) SetNearbyKeys(nearby keys.NearbyMap) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cur = e.rebuild(e.cur.dict, nearby.Clone())
}

func (e *Engine) rebuild(dict *dictionary.Dictionary, nearby keys.NearbyMap) *state {
	s := &state{dict: dict, nearby: nearby, cache: newResultCache(e.cacheSize)}
	if dict != nil {
		s.valid = buildValidChars(dict, nearby)
		log.Debugf("Engine ready: %d valid input chars", len(s.valid))
	}
	return s
}

func (e *Engine) snapshot() *state {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cur
}

// Ready reports whether searches can run.
func (e *Engine) Ready() bool {
	s := e.snapshot()
	return s.dict != nil && s.nearby != nil
}

// Dictionary returns the current dictionary, or nil.
func (e *Engine) Dictionary() *dictionary.Dictionary {
	return e.snapshot().dict
}

// Traversals is the number of trie nodes searches have examined.
func (e *Engine) Traversals() int64 {
	return e.traversals.Load()
}

// CacheStats reports on the current result cache.
func (e *Engine) CacheStats() CacheStats {
	return e.snapshot().cache.snapshot()
}

// Predict prepares a search for input. Nothing happens until Run is called;
// Abort may be called from any goroutine at any time.
func (e *Engine) Predict(input string, limits Limits) *Search {
	return &Search{
		engine: e,
		st:     e.snapshot(),
		input:  input,
		limits: limits.normalize(),
	}
}
