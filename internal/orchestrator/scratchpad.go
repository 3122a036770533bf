package orchestrator

import (
	"encoding/json"
	"sync"
)

// Scratchpad is the shared key/value memory agents accumulate within one
// scene workflow. Every concurrent scene gets its own instance, passed
// explicitly; nothing here is process-wide, so parallel scenes can never read
// each other's agent output.
type Scratchpad struct {
	mu      sync.Mutex
	entries map[string]json.RawMessage
	order   []string
}

func NewScratchpad() *Scratchpad {
	return &Scratchpad{entries: make(map[string]json.RawMessage)}
}

// Reset clears all stored entries. Called once before the first agent of a
// workflow executes.
func (s *Scratchpad) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]json.RawMessage)
	s.order = nil
}

// Write stores or overwrites the value under key.
func (s *Scratchpad) Write(key string, value json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[key]; !exists {
		s.order = append(s.order, key)
	}
	s.entries[key] = value
}

// Read returns the stored value for key. Agents must tolerate ok == false:
// earlier agents may not have run in a given workflow subset.
func (s *Scratchpad) Read(key string) (json.RawMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.entries[key]
	return value, ok
}

// Snapshot returns all entries in write order.
func (s *Scratchpad) Snapshot() []ScratchpadEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := make([]ScratchpadEntry, 0, len(s.order))
	for _, key := range s.order {
		snapshot = append(snapshot, ScratchpadEntry{Key: key, Value: s.entries[key]})
	}
	return snapshot
}

// ScratchpadEntry is one key/value pair of a scratchpad snapshot.
type ScratchpadEntry struct {
	Key   string
	Value json.RawMessage
}
