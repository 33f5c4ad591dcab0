// Package store provides the bounded in-memory message store. Message
// handles are kept so a later request can download media for a message
// whose summary was returned earlier; media bytes themselves are never
// cached here.
package store

import (
	"sync"

	"github.com/elliotchance/orderedmap/v3"

	"github.com/nextshop/wabridge/internal/wa"
)

// DefaultCap is the maximum number of message handles retained.
const DefaultCap = 2000

// MessageStore is an insertion-ordered cache of message handles keyed by
// message ID. When the store grows past its cap, Prune evicts the
// oldest-inserted entries first. Eviction is by insertion order, not by
// message timestamp or last access; messages older than the effective
// retention are simply unavailable for media re-fetch.
type MessageStore struct {
	mu  sync.Mutex
	m   *orderedmap.OrderedMap[string, wa.Message]
	cap int
}

// NewMessageStore creates a store bounded to capacity entries. A
// non-positive capacity falls back to DefaultCap.
func NewMessageStore(capacity int) *MessageStore {
	if capacity <= 0 {
		capacity = DefaultCap
	}
	return &MessageStore{
		m:   orderedmap.NewOrderedMap[string, wa.Message](),
		cap: capacity,
	}
}

// Put inserts or updates a message handle. Re-inserting an existing key
// keeps its position in the eviction order.
func (s *MessageStore) Put(id string, msg wa.Message) {
	if id == "" || msg == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m.Set(id, msg)
}

// Get returns the handle for id, or false if it was never stored or has
// been evicted.
func (s *MessageStore) Get(id string) (wa.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m.Get(id)
}

// Prune evicts the oldest-inserted entries until the store is within its
// cap. It is a no-op while the store is at or under the cap.
func (s *MessageStore) Prune() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.m.Len() > s.cap {
		front := s.m.Front()
		if front == nil {
			return
		}
		s.m.Delete(front.Key)
	}
}

// Clear drops every entry. Called on disconnect so no message handle from
// a previous session can leak into the next one.
func (s *MessageStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m = orderedmap.NewOrderedMap[string, wa.Message]()
}

// Len returns the current number of entries.
func (s *MessageStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m.Len()
}
