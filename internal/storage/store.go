// Package storage holds registered stub mappings in selection order.
package storage

import (
	"github.com/getmockd/stubd/pkg/stub"
)

// MappingStore defines how the engine stores mappings.
type MappingStore interface {
	// Insert adds a mapping at its priority/insertion position.
	Insert(m *stub.Mapping)

	// Snapshot returns every mapping in selection order. The slice must not be modified.
	Snapshot() []*stub.Mapping

	// Get retrieves a mapping by ID. Returns nil if not found.
	Get(id string) *stub.Mapping

	// Remove deletes a mapping by ID. Returns true if deleted, false if not found.
	Remove(id string) bool

	// Count returns the number of stored mappings.
	Count() int

	// Clear removes all stored mappings.
	Clear()
}
