package predict

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"strings"
	"sync/atomic"
	"unicode"
	"unicode/utf8"

	"github.com/bastiangx/keyserve/pkg/dictionary"
)

// Weight multipliers for each way of growing a candidate.
const (
	variantMultiplier        = .99 // slightly prefer exact matches
	punctuationMultiplier    = .95 // apostrophes are almost free
	nearbyKeyMultiplier      = 1   // scaled by key proximity
	transpositionMultiplier  = .3
	insertionMultiplier      = .3
	substitutionMultiplier   = .2 // also the floor for nearby keys
	deletionMultiplier       = .1
	wordExtensionMultiplier  = .4
	uncorrectedBoost         = 100
	reservedInputMatchWeight = 15
)

// SearchState is the lifecycle of a Search.
type SearchState int32

const (
	StatePending SearchState = iota
	StateRunning
	StateDone
	StateAborted
	StateFailed
)

func (s SearchState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StateDone:
		return "done"
	case StateAborted:
		return "aborted"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("SearchState(%d)", int32(s))
	}
}

// Search is one prediction request.
type Search struct {
	engine *Engine
	st     *state
	input  string
	limits Limits

	state    atomic.Int32
	aborting atomic.Bool
}

// Input is the word being predicted.
func (s *Search) Input() string {
	return s.input
}

// State returns the current lifecycle state.
func (s *Search) State() SearchState {
	return SearchState(s.state.Load())
}

// Abort asks the search to stop at its next batch boundary. Aborting a
// finished search has no effect.
func (s *Search) Abort() {
	switch s.State() {
	case StateDone, StateAborted, StateFailed:
		return
	}
	s.aborting.Store(true)
}

func (s *Search) shouldStop(ctx context.Context) bool {
	return s.aborting.Load() || ctx.Err() != nil
}

// Run performs the search in the calling goroutine and returns at most
// Limits.MaxSuggestions suggestions, best first. An aborted search returns
// ErrSearchAborted and no suggestions. Run may only be called once.
func (s *Search) Run(ctx context.Context) ([]Suggestion, error) {
	if !s.state.CompareAndSwap(int32(StatePending), int32(StateRunning)) {
		return nil, fmt.Errorf("search for %q already %s", s.input, s.State())
	}

	if s.shouldStop(ctx) {
		s.state.Store(int32(StateAborted))
		return nil, ErrSearchAborted
	}

	st := s.st
	if st.dict == nil || st.nearby == nil {
		s.state.Store(int32(StateFailed))
		return nil, ErrNotInitialized
	}

	if utf8.RuneCountInString(s.input) > st.dict.MaxWordLength() || !st.valid.all(s.input) {
		s.state.Store(int32(StateDone))
		return []Suggestion{}, nil
	}

	key := cacheKey{input: s.input, limits: s.limits}
	if cached, ok := st.cache.get(key); ok {
		s.state.Store(int32(StateDone))
		return cached, nil
	}

	w := newWalker(st, s.input, s.limits, &s.engine.traversals)
	w.addCandidate(0, s.input, "", 1, 1, 0)

	for {
		if s.shouldStop(ctx) {
			s.state.Store(int32(StateAborted))
			return nil, ErrSearchAborted
		}

		done, err := w.batch(s.engine.batchSize)
		if err != nil {
			s.state.Store(int32(StateFailed))
			return nil, err
		}
		if done {
			break
		}
		runtime.Gosched()
	}

	result := promoteMatches(s.input, w.results())
	st.cache.put(key, result)
	s.state.Store(int32(StateDone))
	return cloneSuggestions(result), nil
}

type candidate struct {
	pointer     int
	remaining   string
	output      string
	multiplier  float64
	weight      float64
	corrections int
}

// walker holds the queues of one search.
type walker struct {
	dict       *dictionary.Dictionary
	st         *state
	input      string
	limits     Limits
	capitalize bool
	traversals *atomic.Int64

	candidates *boundedQueue[candidate]
	words      *boundedQueue[Suggestion]
}

func newWalker(st *state, input string, limits Limits, traversals *atomic.Int64) *walker {
	first, _ := utf8.DecodeRuneInString(input)
	return &walker{
		dict:       st.dict,
		st:         st,
		input:      input,
		limits:     limits,
		capitalize: unicode.IsUpper(first),
		traversals: traversals,
		candidates: newBoundedQueue[candidate](limits.MaxCandidates),
		words:      newBoundedQueue[Suggestion](limits.MaxSuggestions),
	}
}

// batch processes up to n candidates and reports whether the search is over.
func (w *walker) batch(n int) (bool, error) {
	for count := 0; count < n; count++ {
		c, ok := w.candidates.remove()
		if !ok || c.weight <= w.words.threshold {
			return true, nil
		}
		if err := w.process(c); err != nil {
			return false, err
		}
	}
	return false, nil
}

func (w *walker) results() []Suggestion {
	return cloneSuggestions(w.words.items)
}

func (w *walker) addCandidate(pointer int, remaining, output string, multiplier, frequency float64, corrections int) {
	weight := frequency * multiplier

	// Uncorrected candidates, including ones extended by a single letter,
	// go ahead of every corrected one so the word being typed is never
	// pushed out by frequent look-alikes. The boost doesn't reach words.
	if corrections == 0 && multiplier > wordExtensionMultiplier*wordExtensionMultiplier {
		weight += uncorrectedBoost
	}

	if weight <= w.words.threshold {
		return
	}

	w.candidates.add(candidate{
		pointer:     pointer,
		remaining:   remaining,
		output:      output,
		multiplier:  multiplier,
		weight:      weight,
		corrections: corrections,
	}, weight)
}

func (w *walker) addWord(word string, weight float64) {
	if w.capitalize {
		r, size := utf8.DecodeRuneInString(word)
		word = string(unicode.ToUpper(r)) + word[size:]
	}

	for i, item := range w.words.items {
		if item.Word == word {
			if w.words.priorities[i] >= weight {
				return
			}
			w.words.removeAt(i)
			break
		}
	}
	w.words.add(Suggestion{Word: word, Weight: weight}, weight)
}

// process visits every node reachable from the candidate's pointer through
// sibling links, most frequent first, and grows new candidates from those
// that loosely match the next input character.
func (w *walker) process(c candidate) error {
	var (
		ch, second rune
		rest       string // remaining input after ch
		afterNext  string // remaining input after second
		hasSecond  bool
	)
	if c.remaining != "" {
		var size int
		ch, size = utf8.DecodeRuneInString(c.remaining)
		rest = c.remaining[size:]
		if rest != "" {
			second, size = utf8.DecodeRuneInString(rest)
			afterNext = rest[size:]
			hasSecond = true
		}
	}
	canCorrect := c.corrections < w.limits.MaxCorrections

	for next := c.pointer; next != dictionary.NoOffset; {
		node, err := w.dict.Node(next)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrCorruptTrie, err)
		}
		w.traversals.Add(1)

		frequency := float64(node.Frequency)
		weight := frequency * c.multiplier

		// Siblings only get less frequent. Uncorrected candidates are
		// boosted in addCandidate, so only corrected ones can stop early.
		if c.corrections > 0 && weight <= w.candidates.threshold {
			break
		}

		w.grow(c, node, next, ch, second, rest, afterNext, hasSecond, canCorrect)

		if node.Next != dictionary.NoOffset && node.Next <= next {
			return fmt.Errorf("%w: sibling pointer %d at %d", ErrCorruptTrie, node.Next, next)
		}
		next = node.Next
	}
	return nil
}

func (w *walker) grow(c candidate, node dictionary.Node, offset int, ch, second rune,
	rest, afterNext string, hasSecond, canCorrect bool) {
	frequency := float64(node.Frequency)
	m := c.multiplier

	// Input used up: finish words or extend toward one.
	if c.remaining == "" {
		if node.IsWordEnd() {
			if node.Frequency == 1 {
				// Reserved words only show up when typed in full.
				if strings.EqualFold(w.input, c.output) {
					w.addWord(c.output, reservedInputMatchWeight)
				}
			} else {
				w.addWord(c.output, frequency*m)
			}
			return
		}
		w.addCandidate(node.Child, "", c.output+string(node.Char), m*wordExtensionMultiplier, frequency, c.corrections)
		return
	}

	if node.IsWordEnd() {
		// One stray character after a complete word: drop it and revisit
		// this node.
		if rest == "" && canCorrect {
			w.addCandidate(offset, "", c.output, m*deletionMultiplier, frequency, c.corrections+1)
		}
		return
	}

	profile, _ := w.dict.Profile(node.Char)
	output := c.output + string(node.Char)

	// Match or substitute the node character for ch, best multiplier first.
	switch {
	case node.Char == ch:
		w.addCandidate(node.Child, rest, output, m, frequency, c.corrections)
	case profile.HasVariant(ch):
		w.addCandidate(node.Child, rest, output, m*variantMultiplier, frequency, c.corrections)
	case canCorrect:
		if near := w.st.nearby.Weight(profile.Root, w.dict.RootOf(ch)); near > 0 {
			adjust := math.Max(near*nearbyKeyMultiplier, substitutionMultiplier)
			w.addCandidate(node.Child, rest, output, m*adjust, frequency, c.corrections+1)
		} else if c.output != "" {
			// The first letter is assumed right.
			w.addCandidate(node.Child, rest, output, m*substitutionMultiplier, frequency, c.corrections+1)
		}
	}

	// Insert the node character without consuming input.
	if profile.IsPunctuation() {
		w.addCandidate(node.Child, c.remaining, output, m*punctuationMultiplier, frequency, c.corrections)
	} else if canCorrect && c.output != "" {
		w.addCandidate(node.Child, c.remaining, output, m*insertionMultiplier, frequency, c.corrections+1)
	}

	// The node matches the character after ch: either ch and second were
	// swapped, or ch shouldn't be there at all.
	if canCorrect && hasSecond && c.output != "" &&
		(node.Char == second || profile.HasVariant(second)) {
		w.addCandidate(node.Child, string(ch)+afterNext, output, m*transpositionMultiplier, frequency, c.corrections+1)
		w.addCandidate(node.Child, afterNext, output, m*deletionMultiplier, frequency, c.corrections+1)
	}
}

// IsAborted reports whether err marks an aborted search.
func IsAborted(err error) bool {
	return errors.Is(err, ErrSearchAborted)
}
