package concurrency

import "sync"

// Sequencer hands out per-key tickets and admits results in ticket order.
// A result whose ticket is older than the last committed one for the same
// key is rejected, so a slow early request cannot overwrite a newer one.
type Sequencer struct {
	mu        sync.Mutex
	issued    map[string]uint64
	committed map[string]uint64
}

func NewSequencer() *Sequencer {
	return &Sequencer{
		issued:    make(map[string]uint64),
		committed: make(map[string]uint64),
	}
}

// Next draws a new ticket for key.
func (s *Sequencer) Next(key string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued[key]++
	return s.issued[key]
}

// Commit reports whether ticket may be applied and records it if so.
func (s *Sequencer) Commit(key string, ticket uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ticket <= s.committed[key] {
		return false
	}
	s.committed[key] = ticket
	return true
}

// Latest returns the newest ticket issued for key.
func (s *Sequencer) Latest(key string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issued[key]
}
