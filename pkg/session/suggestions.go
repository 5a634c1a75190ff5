package session

import (
	"time"
	"unicode/utf8"

	"github.com/bastiangx/keyserve/internal/utils"
	"github.com/bastiangx/keyserve/pkg/predict"
	"github.com/bastiangx/keyserve/pkg/worker"
)

func (c *Controller) stopRepeat() {
	c.repeatGen++
	if c.repeatTimer != nil {
		c.repeatTimer.Stop()
		c.repeatTimer = nil
	}
}

// updateSuggestions asks the engine about the word before the cursor. While
// a key auto-repeats the request waits until the repeating stops.
func (c *Controller) updateSuggestions(repeat bool) {
	if (!c.suggesting && !c.correcting) || c.engine == nil {
		return
	}

	c.stopRepeat()
	if repeat {
		gen := c.repeatGen
		c.repeatTimer = time.AfterFunc(c.cfg.AutoRepeatDelay, func() {
			c.queue.Post(func() {
				if gen == c.repeatGen {
					c.repeatTimer = nil
					c.updateSuggestions(false)
				}
			})
		})
		return
	}

	if !c.st.buf.atWordEnd() {
		if c.suggesting {
			c.host.SendCandidates([]Candidate{})
		}
		return
	}

	word := c.st.buf.wordBeforeCursor()
	if word == "" {
		return
	}
	id, err := c.engine.Predict(word)
	if err != nil {
		c.log.Warnf("Requesting predictions for %q: %v", word, err)
		return
	}
	c.requestID = id
}

// handlePredictions shows the engine's answer for the event's input and
// picks the auto-correction, unless the user has moved on to another word.
func (c *Controller) handlePredictions(ev worker.Event) {
	input, suggestions := ev.Input, ev.Suggestions
	if len(suggestions) == 0 || c.st.buf.wordBeforeCursor() != input {
		if len(suggestions) > 0 {
			c.log.Debugf("Dropping stale predictions %s for %q, latest request is %s", ev.ID, input, c.requestID)
		}
		c.host.SendCandidates([]Candidate{})
		return
	}

	canCorrect := c.correcting && !c.correctionBlocked()
	candidates := c.rank(input, suggestions, ev.InputWeight, canCorrect)
	if len(candidates) > 0 && candidates[0].AutoCorrect {
		c.st.autoCorrection = candidates[0].Word
	}
	if !c.suggesting {
		return
	}
	c.host.SendCandidates(candidates)
}

// rank turns suggestions for input into the words to display. The input
// itself is never shown. The first word is flagged as the auto-correction
// when it is clearly better than what was typed. inputWeight is the
// dictionary weight of input, 0 when it isn't a word; input counts as a word
// even when it fell out of suggestions.
func (c *Controller) rank(input string, suggestions []predict.Suggestion, inputWeight float64, canCorrect bool) []Candidate {
	words := make([]predict.Suggestion, 0, len(suggestions))
	seen := make(map[string]bool, len(suggestions))
	for _, s := range suggestions {
		s.Word = utils.MatchCase(s.Word, input)
		if seen[s.Word] {
			continue
		}
		seen[s.Word] = true
		words = append(words, s)
	}

	inputIsWord := inputWeight > 0
	for i, s := range words {
		if s.Word == input {
			inputIsWord = true
			inputWeight = max(inputWeight, s.Weight)
			words = append(words[:i], words[i+1:]...)
			break
		}
	}
	if len(words) == 0 {
		return []Candidate{}
	}
	if len(words) > c.cfg.MaxDisplayed {
		words = words[:c.cfg.MaxDisplayed]
	}

	candidates := make([]Candidate, len(words))
	for i, s := range words {
		candidates[i] = Candidate{Word: s.Word}
	}

	top := words[0]
	if canCorrect &&
		(!inputIsWord || top.Weight > inputWeight*c.cfg.AutoCorrectThreshold) &&
		c.lengthPlausible(input, top) {
		candidates[0].AutoCorrect = true
	}
	return candidates
}

// lengthPlausible rejects corrections that change the length of the word
// too much: a single letter only becomes another single letter, two
// lengths never differ by more than one, and a one-letter difference needs
// a heavy suggestion.
func (c *Controller) lengthPlausible(input string, top predict.Suggestion) bool {
	in, out := utf8.RuneCountInString(input), utf8.RuneCountInString(top.Word)
	if in <= 1 {
		return out == 1
	}
	diff := in - out
	if diff < 0 {
		diff = -diff
	}
	switch {
	case diff > 1:
		return false
	case diff == 1:
		return top.Weight >= c.cfg.MinMismatchWeight
	default:
		return true
	}
}
