package server

import (
	"github.com/bastiangx/keyserve/pkg/dictionary"
	"github.com/bastiangx/keyserve/pkg/session"
)

// ipcHost forwards session edits to the client as notifications. The client
// applies them on its own, so edits are never rejected here.
type ipcHost struct {
	s *Server
}

func (h *ipcHost) SendKey(code rune, repeat bool) error {
	h.s.notify(Notification{Event: "key", Key: code, Repeat: repeat})
	return nil
}

func (h *ipcHost) ReplaceSurroundingText(text string, before, after int) error {
	h.s.notify(Notification{Event: "replace", Text: text, Before: before, After: after})
	return nil
}

func (h *ipcHost) SendCandidates(candidates []session.Candidate) {
	if candidates == nil {
		candidates = []session.Candidate{}
	}
	h.s.notify(Notification{Event: "candidates", Candidates: candidates})
}

func (h *ipcHost) SetUpperCase(upper bool) {
	h.s.notify(Notification{Event: "upper", Upper: &upper})
}

func (h *ipcHost) ResetUpperCase() {
	h.s.notify(Notification{Event: "reset_upper"})
}

func (h *ipcHost) SetLayoutPage(page int) {
	h.s.notify(Notification{Event: "page", Page: page})
}

// GetData reads dictionaries from disk, refusing files with a bad header.
func (h *ipcHost) GetData(path string) ([]byte, error) {
	return dictionary.ReadFile(path)
}
