package session

import (
	"time"

	"github.com/bastiangx/keyserve/internal/utils"
	"github.com/bastiangx/keyserve/pkg/keys"
)

// correctionBlocked reports whether auto-correction is off for the word
// being typed.
func (c *Controller) correctionBlocked() bool {
	return c.st.correctionDisabled && c.st.buf.wordStart() == c.st.disabledAt
}

func (c *Controller) disableCorrection(wordStart int) {
	c.st.correctionDisabled = true
	c.st.disabledAt = wordStart
}

func (c *Controller) handleKey(code rune, repeat bool) error {
	if err := c.sendKey(code, repeat); err != nil {
		return err
	}
	if code == keys.CodeBackspace && c.st.correctionDisabled && c.st.buf.wordBeforeCursor() == "" {
		c.st.correctionDisabled = false
	}
	return nil
}

// handleCorrections runs for keys that end a word. It applies the pending
// auto-correction, or fixes the spacing around punctuation, or just types
// the key.
func (c *Controller) handleCorrections(code rune) error {
	buf := c.st.buf
	if c.correcting && c.st.autoCorrection != "" && !c.correctionBlocked() &&
		buf.atWordEnd() && buf.wordBeforeCursor() != c.st.autoCorrection {
		return c.autoCorrect(code)
	}

	if c.punctuating && buf.cursor >= 2 {
		prev, prev2 := buf.text[buf.cursor-1], buf.text[buf.cursor-2]
		if utils.IsWhitespace(prev) && prev != '\n' && !utils.IsWordSeparator(prev2) {
			return c.autoPunctuate(code)
		}
	}
	return c.handleKey(code, false)
}

func (c *Controller) autoCorrect(code rune) error {
	word := c.st.buf.wordBeforeCursor()
	correction := c.st.autoCorrection

	if err := c.replaceBeforeCursor(word, correction); err != nil {
		return err
	}
	if err := c.sendKey(code, false); err != nil {
		return err
	}

	typed := string(keyChar(code))
	c.st.revertTo = word + typed
	c.st.revertFrom = correction + typed
	c.st.justAutoCorrected = true
	c.log.Debugf("Auto-corrected %q to %q", word, correction)
	return nil
}

func keyChar(code rune) rune {
	if code == keys.CodeReturn {
		return '\n'
	}
	return code
}

func (c *Controller) autoPunctuate(code rune) error {
	switch code {
	case keys.CodeSpace:
		if !c.st.lastSpace.IsZero() && c.cfg.Now().Sub(c.st.lastSpace) < c.cfg.DoubleSpace {
			return c.fixPunctuation('.', keys.CodeSpace)
		}
		return c.handleKey(code, false)
	case '.', '?', '!', ',':
		return c.fixPunctuation(code, code)
	default:
		// Colons and semicolons after a space start smileys.
		return c.handleKey(code, false)
	}
}

// fixPunctuation turns "word |" into "word<mark> |". Backspace restores the
// space followed by revertChar.
func (c *Controller) fixPunctuation(mark, revertChar rune) error {
	for _, code := range []rune{keys.CodeBackspace, mark, keys.CodeSpace} {
		if err := c.sendKey(code, false); err != nil {
			return err
		}
	}
	c.st.revertTo = " " + string(revertChar)
	c.st.revertFrom = string(mark) + " "
	c.st.justAutoCorrected = false
	return nil
}

// handleBackspace undoes the last correction if nothing was typed since,
// otherwise deletes a character.
func (c *Controller) handleBackspace(repeat bool) error {
	from := c.st.revertFrom
	if from == "" || c.st.buf.beforeCursor(len([]rune(from))) != from {
		return c.handleKey(keys.CodeBackspace, repeat)
	}

	start := c.st.buf.cursor - len([]rune(from))
	if err := c.replaceBeforeCursor(from, c.st.revertTo); err != nil {
		return err
	}
	if c.st.justAutoCorrected {
		c.disableCorrection(start)
	}
	c.st.revertFrom, c.st.revertTo = "", ""
	c.st.justAutoCorrected = false
	return nil
}

func (c *Controller) selectWord(word string) error {
	saved := c.st
	old := c.st.buf.wordBeforeCursor()
	start := c.st.buf.wordStart()
	replacement := word + " "

	if err := c.replaceBeforeCursor(old, replacement); err != nil {
		buf := c.st.buf
		c.st = saved
		c.st.buf = buf
		return err
	}

	c.st.revertFrom = replacement
	c.st.revertTo = old
	c.st.justAutoCorrected = false
	// The choice was explicit: leave that word alone if the user goes back
	// into it.
	c.disableCorrection(start)
	c.st.autoCorrection = ""

	c.host.SendCandidates([]Candidate{})
	c.updateCapitalization()
	return nil
}

func (c *Controller) dismiss() error {
	c.host.SendCandidates([]Candidate{})
	if err := c.sendKey(keys.CodeSpace, false); err != nil {
		return err
	}
	c.st.lastSpace = time.Time{}
	c.st.autoCorrection = ""
	c.st.revertFrom, c.st.revertTo = "", ""
	c.st.justAutoCorrected = false
	c.st.correctionDisabled = false
	c.updateCapitalization()
	return nil
}
