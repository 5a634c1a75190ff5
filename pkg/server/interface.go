/*
Package server exposes an input session over msgpack IPC on stdin/stdout.

The client is the keyboard UI. It sends requests; every request gets exactly
one response carrying the same id. Edits the session wants applied to the
text field, and suggestion updates, arrive as notifications without an id,
interleaved with responses. Messages are back-to-back msgpack values with
no framing.

A session starts by activating a field:

	{"id": "1", "action": "activate", "lang": "en", "field": {"type": "textarea"}}

Keys are sent one at a time, already resolved to the character typed:

	{"id": "2", "action": "key", "key": 104}

and the session answers with notifications such as

	{"event": "key", "key": 104}
	{"event": "candidates", "candidates": [{"word": "hello", "auto_correct": true}]}

Direct lookups bypass the session: "predict" runs a search for "p",
"next" lists the characters that may follow "p", "complete" lists
dictionary words starting with "p", and "languages" lists the dictionaries
on disk.
*/
package server

import (
	"github.com/bastiangx/keyserve/pkg/dictionary"
	"github.com/bastiangx/keyserve/pkg/session"
)

// Request is any client message.
type Request struct {
	ID     string      `msgpack:"id"`
	Action string      `msgpack:"action"`
	Lang   string      `msgpack:"lang,omitempty"`
	Field  *FieldState `msgpack:"field,omitempty"`
	Key    int32       `msgpack:"key,omitempty"`
	Repeat bool        `msgpack:"repeat,omitempty"`
	Word   string      `msgpack:"w,omitempty"`
	Layout string      `msgpack:"layout,omitempty"`
	Prefix string      `msgpack:"p,omitempty"`
	Limit  int         `msgpack:"l,omitempty"`
}

// FieldState describes the field being activated or its new contents.
type FieldState struct {
	Type         string `msgpack:"type"`
	InputMode    string `msgpack:"inputmode,omitempty"`
	Text         string `msgpack:"text,omitempty"`
	Cursor       int    `msgpack:"cursor,omitempty"`
	SelectionEnd int    `msgpack:"selection_end,omitempty"`
	Suggest      *bool  `msgpack:"suggest,omitempty"`
	Correct      *bool  `msgpack:"correct,omitempty"`
}

// Suggestion is one ranked word. Rank 1 is the best.
type Suggestion struct {
	Word   string  `msgpack:"w"`
	Rank   uint16  `msgpack:"r"`
	Weight float64 `msgpack:"weight"`
}

// NextChar is one possible next character.
type NextChar struct {
	Char      string `msgpack:"c"`
	Frequency int    `msgpack:"f"`
}

// StateInfo mirrors session.Snapshot.
type StateInfo struct {
	Text           string `msgpack:"text"`
	Cursor         int    `msgpack:"cursor"`
	SelectionEnd   int    `msgpack:"selection_end"`
	Mode           string `msgpack:"mode"`
	Language       string `msgpack:"lang"`
	AutoCorrection string `msgpack:"auto_correction,omitempty"`
	EngineRunning  bool   `msgpack:"engine_running"`
}

// Response answers one Request.
type Response struct {
	ID          string                    `msgpack:"id"`
	Status      string                    `msgpack:"status"`
	Error       string                    `msgpack:"error,omitempty"`
	Suggestions []Suggestion              `msgpack:"s,omitempty"`
	Chars       []NextChar                `msgpack:"chars,omitempty"`
	Words       []dictionary.WordFreq     `msgpack:"words,omitempty"`
	Languages   []dictionary.LanguageInfo `msgpack:"languages,omitempty"`
	State       *StateInfo                `msgpack:"state,omitempty"`
	Count       int                       `msgpack:"c"`
	TimeTaken   int64                     `msgpack:"t"`
}

// Notification is an unsolicited message from the session.
type Notification struct {
	Event      string              `msgpack:"event"`
	Key        int32               `msgpack:"key,omitempty"`
	Repeat     bool                `msgpack:"repeat,omitempty"`
	Text       string              `msgpack:"text,omitempty"`
	Before     int                 `msgpack:"before,omitempty"`
	After      int                 `msgpack:"after,omitempty"`
	Candidates []session.Candidate `msgpack:"candidates"`
	Upper      *bool               `msgpack:"upper,omitempty"`
	Page       int                 `msgpack:"page,omitempty"`
}

const (
	statusOK    = "ok"
	statusError = "error"
)
