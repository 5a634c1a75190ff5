package keys

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"
)

// Model remembers the last layout it was given and only rebuilds the
// nearby-key map when the layout actually changes. Consumers that cache
// search results keyed on the map use the changed flag to know when to
// invalidate.
type Model struct {
	mu          sync.Mutex
	fingerprint []byte
	current     NearbyMap
}

// NewModel returns an empty model.
func NewModel() *Model {
	return &Model{}
}

// Update returns the nearby-key map for layout and whether it differs from
// the one returned by the previous call.
func (m *Model) Update(layout Layout) (NearbyMap, bool, error) {
	fp, err := msgpack.Marshal(layout)
	if err != nil {
		return nil, false, fmt.Errorf("failed to fingerprint layout: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil && bytes.Equal(fp, m.fingerprint) {
		return m.current, false, nil
	}

	m.current = Build(layout)
	m.fingerprint = fp
	log.Debugf("Rebuilt nearby-key map for %d keys", len(layout.Keys))
	return m.current, true, nil
}

// Current returns the last map built, or nil.
func (m *Model) Current() NearbyMap {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Reset forgets the last layout.
func (m *Model) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = nil
	m.fingerprint = nil
}
