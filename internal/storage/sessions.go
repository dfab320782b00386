package storage

import (
	"sync"
	"time"
)

// Sessions hands out one [Memory] store per session id, the server-side stand-in for a tab's session storage.
type Sessions struct {
	mu      sync.Mutex
	entries map[string]*sessionEntry
	now     func() time.Time
}

type sessionEntry struct {
	store    *Memory
	lastSeen time.Time
}

// NewSessions creates an empty registry.
func NewSessions() *Sessions {
	return &Sessions{entries: make(map[string]*sessionEntry), now: time.Now}
}

// Get returns the store for id, creating it on first use. The bool is true when the store was just created.
func (s *Sessions) Get(id string) (*Memory, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[id]; ok {
		e.lastSeen = s.now()
		return e.store, false
	}

	e := &sessionEntry{store: NewMemory(), lastSeen: s.now()}
	s.entries[id] = e
	return e.store, true
}

// Drop forgets the store for id.
func (s *Sessions) Drop(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
}

// Sweep drops every session idle for longer than ttl and returns the removed ids.
func (s *Sessions) Sweep(ttl time.Duration) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-ttl)
	var removed []string
	for id, e := range s.entries {
		if e.lastSeen.Before(cutoff) {
			delete(s.entries, id)
			removed = append(removed, id)
		}
	}
	return removed
}

// Len returns the number of live sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
