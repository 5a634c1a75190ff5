package session

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"
)

// Replacement records one ReplaceSurroundingText call.
type Replacement struct {
	Text   string `msgpack:"text"`
	Before int    `msgpack:"before"`
	After  int    `msgpack:"after"`
}

// BufferHost is a Host backed by an in-memory text field. Resources come
// from a map first and then from Root on disk. It is safe for concurrent
// use.
type BufferHost struct {
	// Root is where GetData looks when a path isn't in the map.
	Root string

	mu             sync.Mutex
	buf            buffer
	data           map[string][]byte
	candidates     []Candidate
	candidateCalls int
	upper          bool
	upperSet       bool
	page           int
	sent           []rune
	replacements   []Replacement
	reject         error
}

// NewBufferHost creates a host holding text with the cursor at cursor.
func NewBufferHost(text string, cursor int) *BufferHost {
	return &BufferHost{buf: newBuffer(text, cursor, 0), data: map[string][]byte{}}
}

// SetData makes GetData(path) return data.
func (h *BufferHost) SetData(path string, data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.data[path] = data
}

// RejectNext makes the next SendKey or ReplaceSurroundingText fail with err.
func (h *BufferHost) RejectNext(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.reject = err
}

func (h *BufferHost) takeReject() error {
	err := h.reject
	h.reject = nil
	return err
}

func (h *BufferHost) SendKey(code rune, repeat bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.takeReject(); err != nil {
		return err
	}
	h.sent = append(h.sent, code)
	h.buf = h.buf.key(code)
	return nil
}

func (h *BufferHost) ReplaceSurroundingText(text string, before, after int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.takeReject(); err != nil {
		return err
	}
	if before > h.buf.cursor || h.buf.cursor+after > len(h.buf.text) {
		return fmt.Errorf("replace %d before and %d after cursor %d of %d", before, after, h.buf.cursor, len(h.buf.text))
	}
	h.replacements = append(h.replacements, Replacement{Text: text, Before: before, After: after})
	h.buf = h.buf.surrounding(text, before, after)
	return nil
}

func (h *BufferHost) SendCandidates(candidates []Candidate) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.candidates = slices.Clone(candidates)
	h.candidateCalls++
}

func (h *BufferHost) SetUpperCase(upper bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.upper, h.upperSet = upper, true
}

func (h *BufferHost) ResetUpperCase() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.upper, h.upperSet = false, false
}

func (h *BufferHost) SetLayoutPage(page int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.page = page
}

func (h *BufferHost) GetData(path string) ([]byte, error) {
	h.mu.Lock()
	data, ok := h.data[path]
	root := h.Root
	h.mu.Unlock()
	if ok {
		return data, nil
	}
	if root == "" {
		return nil, fmt.Errorf("%s: %w", path, fs.ErrNotExist)
	}
	return os.ReadFile(filepath.Join(root, filepath.FromSlash(path)))
}

// Text returns the field contents and the cursor.
func (h *BufferHost) Text() (string, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.buf.String(), h.buf.cursor
}

// Candidates returns the last list sent and how many lists were sent.
func (h *BufferHost) Candidates() ([]Candidate, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.candidates), h.candidateCalls
}

// UpperCase returns the shift state; set is false after ResetUpperCase.
func (h *BufferHost) UpperCase() (upper, set bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.upper, h.upperSet
}

// LayoutPage returns the last page set.
func (h *BufferHost) LayoutPage() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.page
}

// SentKeys returns every key code sent so far.
func (h *BufferHost) SentKeys() []rune {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.sent)
}

// Replacements returns every accepted ReplaceSurroundingText call.
func (h *BufferHost) Replacements() []Replacement {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.replacements)
}
