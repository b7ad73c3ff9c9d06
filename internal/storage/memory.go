package storage

import (
	"slices"
	"sync"
	"sync/atomic"

	"github.com/getmockd/stubd/pkg/stub"
)

// MappingSet is a copy-on-write MappingStore. Readers load an immutable sorted
// snapshot without locking; writers serialize on a mutex and publish a new
// snapshot atomically, so a reader never sees a partially inserted mapping.
type MappingSet struct {
	mu       sync.Mutex
	snapshot atomic.Pointer[[]*stub.Mapping]
}

var _ MappingStore = (*MappingSet)(nil)

// NewMappingSet creates an empty set.
func NewMappingSet() *MappingSet {
	s := &MappingSet{}
	s.snapshot.Store(&[]*stub.Mapping{})
	return s
}

// Snapshot returns the current ordered mappings.
func (s *MappingSet) Snapshot() []*stub.Mapping {
	return *s.snapshot.Load()
}

// Insert adds m after every mapping that orders before or equal to it.
func (s *MappingSet) Insert(m *stub.Mapping) {
	if m == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.Snapshot()
	pos, _ := slices.BinarySearchFunc(cur, m, stub.Compare)
	for pos < len(cur) && stub.Compare(cur[pos], m) <= 0 {
		pos++
	}
	next := make([]*stub.Mapping, 0, len(cur)+1)
	next = append(next, cur[:pos]...)
	next = append(next, m)
	next = append(next, cur[pos:]...)
	s.snapshot.Store(&next)
}

// Get retrieves a mapping by ID. Returns nil if not found.
func (s *MappingSet) Get(id string) *stub.Mapping {
	for _, m := range s.Snapshot() {
		if m.ID == id {
			return m
		}
	}
	return nil
}

// Remove deletes a mapping by ID. Returns true if deleted, false if not found.
func (s *MappingSet) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.Snapshot()
	i := slices.IndexFunc(cur, func(m *stub.Mapping) bool { return m.ID == id })
	if i < 0 {
		return false
	}
	next := slices.Delete(slices.Clone(cur), i, i+1)
	s.snapshot.Store(&next)
	return true
}

// Count returns the number of stored mappings.
func (s *MappingSet) Count() int {
	return len(s.Snapshot())
}

// Clear removes all stored mappings.
func (s *MappingSet) Clear() {
	s.mu.Lock()
	s.snapshot.Store(&[]*stub.Mapping{})
	s.mu.Unlock()
}
