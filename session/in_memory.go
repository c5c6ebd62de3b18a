package session

import (
	"sync"

	"github.com/jacksongrove/impossibly/core"
)

// InMemoryStore is a volatile HistoryStore keeping histories in a process
// local map (sessionID -> node name -> entries). It is safe for concurrent
// access. Returned histories are copies so callers cannot mutate stored
// entries.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]map[string][]core.Content
}

// NewInMemoryStore constructs an empty in‑memory history store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string]map[string][]core.Content)}
}

// Append adds one entry to the node's history, creating the session lazily.
func (s *InMemoryStore) Append(sessionID, node string, c core.Content) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		sess = make(map[string][]core.Content)
		s.sessions[sessionID] = sess
	}
	sess[node] = append(sess[node], c.Clone())
	return nil
}

// Messages returns a copy of the node's history. Unknown sessions and nodes
// yield an empty history.
func (s *InMemoryStore) Messages(sessionID, node string) ([]core.Content, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := s.sessions[sessionID][node]
	out := make([]core.Content, len(entries))
	for i, c := range entries {
		out[i] = c.Clone()
	}
	return out, nil
}

// Delete drops the session and every history recorded under it.
func (s *InMemoryStore) Delete(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

// Sessions returns the number of live sessions.
func (s *InMemoryStore) Sessions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
