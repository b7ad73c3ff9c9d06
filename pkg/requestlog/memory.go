package requestlog

import (
	"strings"
	"sync"
	"time"

	"github.com/getmockd/stubd/internal/id"
)

// DefaultMaxEntries bounds a MemoryStore created with a non-positive size.
const DefaultMaxEntries = 1000

// MemoryStore is a bounded in-memory journal. The oldest entry is evicted
// when the store is full.
type MemoryStore struct {
	mu         sync.RWMutex
	entries    []*Entry
	maxEntries int
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a journal holding at most maxEntries entries.
func NewMemoryStore(maxEntries int) *MemoryStore {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &MemoryStore{
		entries:    make([]*Entry, 0, min(maxEntries, 64)),
		maxEntries: maxEntries,
	}
}

// Log records an entry, assigning its ID and timestamp when unset. Entries
// without a request are dropped.
func (s *MemoryStore) Log(entry *Entry) {
	if entry == nil || entry.Request == nil {
		return
	}
	if entry.ID == "" {
		entry.ID = id.Short()
	}
	if entry.LoggedAt.IsZero() {
		entry.LoggedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.entries) >= s.maxEntries {
		s.entries = append(s.entries[:0:0], s.entries[len(s.entries)-s.maxEntries+1:]...)
	}
	s.entries = append(s.entries, entry)
}

// Enabled is always true.
func (s *MemoryStore) Enabled() bool { return true }

// Get retrieves an entry by ID.
func (s *MemoryStore) Get(id string) *Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.entries {
		if e.ID == id {
			return e
		}
	}
	return nil
}

// List returns entries newest first.
func (s *MemoryStore) List(filter *Filter) ([]*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*Entry, 0, len(s.entries))
	for i := len(s.entries) - 1; i >= 0; i-- {
		if filter == nil || matchesFilter(s.entries[i], filter) {
			result = append(result, s.entries[i])
		}
	}

	if filter != nil {
		if filter.Offset > 0 {
			if filter.Offset >= len(result) {
				return []*Entry{}, nil
			}
			result = result[filter.Offset:]
		}
		if filter.Limit > 0 && filter.Limit < len(result) {
			result = result[:filter.Limit]
		}
	}
	return result, nil
}

func matchesFilter(e *Entry, f *Filter) bool {
	if f.Method != "" && !strings.EqualFold(e.Request.Method, f.Method) {
		return false
	}
	if f.Path != "" && !strings.HasPrefix(e.Request.Path(), f.Path) {
		return false
	}
	if f.MappingID != "" && e.MappingID != f.MappingID {
		return false
	}
	if f.Unmatched && e.WasMatched {
		return false
	}
	if f.StatusCode != 0 && e.ResponseStatus != f.StatusCode {
		return false
	}
	return true
}

// Find returns the entries whose request m matches, oldest first.
func (s *MemoryStore) Find(m Matcher) ([]*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*Entry
	for _, e := range s.entries {
		if m.Matches(e.Request) {
			result = append(result, e)
		}
	}
	return result, nil
}

// CountMatching counts the entries whose request m matches.
func (s *MemoryStore) CountMatching(m Matcher) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, e := range s.entries {
		if m.Matches(e.Request) {
			n++
		}
	}
	return n, nil
}

// Clear removes all entries.
func (s *MemoryStore) Clear() {
	s.mu.Lock()
	s.entries = s.entries[:0:0]
	s.mu.Unlock()
}

// Count returns the number of entries.
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
