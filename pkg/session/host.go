package session

import (
	"errors"
)

// ErrHostRejected wraps any error returned by the host. The key that caused
// it leaves the session state unchanged.
var ErrHostRejected = errors.New("host rejected the edit")

// DefaultLayoutPage is the alphabetic page of the keyboard.
const DefaultLayoutPage = 0

// Candidate is one word shown in the suggestion bar. AutoCorrect marks the
// word that the next boundary key will substitute for the typed one.
type Candidate struct {
	Word        string `msgpack:"word"`
	AutoCorrect bool   `msgpack:"auto_correct,omitempty"`
}

// Host is the keyboard UI and the text field behind it.
type Host interface {
	// SendKey types code into the field. Backspace deletes the selection or
	// the character before the cursor.
	SendKey(code rune, repeat bool) error
	// ReplaceSurroundingText deletes before runes before the cursor and
	// after runes after it, then inserts text at the cursor.
	ReplaceSurroundingText(text string, before, after int) error
	SendCandidates(candidates []Candidate)
	SetUpperCase(upper bool)
	ResetUpperCase()
	SetLayoutPage(page int)
	// GetData returns a bundled resource such as a dictionary.
	GetData(path string) ([]byte, error)
}
