// Package scenario tracks the current state of named scenarios.
//
// A scenario starts in Started and only moves when a stub mapping that belongs
// to it, and declares a new state, is served. Scenarios are independent of one
// another: each holds its state in its own atomic cell, so serving requests
// against different scenarios never contends on a lock.
package scenario

import (
	"slices"
	"strings"
	"sync"
	"sync/atomic"
)

// Started is the state every scenario begins in and returns to on reset.
const Started = "Started"

// Scenario is one named state cell.
type Scenario struct {
	name  string
	state atomic.Pointer[string]
}

func newScenario(name string) *Scenario {
	s := &Scenario{name: name}
	s.Reset()
	return s
}

// Name returns the scenario name.
func (s *Scenario) Name() string { return s.name }

// State returns the current state.
func (s *Scenario) State() string { return *s.state.Load() }

// SetState moves the scenario to state. Concurrent calls are last-write-wins.
func (s *Scenario) SetState(state string) {
	s.state.Store(&state)
}

// Reset returns the scenario to Started.
func (s *Scenario) Reset() {
	started := Started
	s.state.Store(&started)
}

// Allows reports whether a mapping that requires state may be served now.
// An empty requirement allows any state.
func (s *Scenario) Allows(required string) bool {
	return required == "" || s.State() == required
}

// Snapshot is a point-in-time view of a scenario, used by the admin API.
type Snapshot struct {
	Name  string `json:"name"`
	State string `json:"state"`
}

// Registry owns the scenarios of one server instance.
type Registry struct {
	mu        sync.RWMutex
	scenarios map[string]*Scenario
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{scenarios: make(map[string]*Scenario)}
}

// ForName returns the named scenario, creating it in Started if unknown.
func (r *Registry) ForName(name string) *Scenario {
	r.mu.RLock()
	s, ok := r.scenarios[name]
	r.mu.RUnlock()
	if ok {
		return s
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok = r.scenarios[name]; ok {
		return s
	}
	s = newScenario(name)
	r.scenarios[name] = s
	return s
}

// Get returns the named scenario if it exists.
func (r *Registry) Get(name string) (*Scenario, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.scenarios[name]
	return s, ok
}

// ResetAll returns every scenario to Started. Scenarios are kept.
func (r *Registry) ResetAll() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.scenarios {
		s.Reset()
	}
}

// Clear forgets every scenario.
func (r *Registry) Clear() {
	r.mu.Lock()
	r.scenarios = make(map[string]*Scenario)
	r.mu.Unlock()
}

// Len returns the number of known scenarios.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.scenarios)
}

// List returns all scenarios sorted by name.
func (r *Registry) List() []Snapshot {
	r.mu.RLock()
	out := make([]Snapshot, 0, len(r.scenarios))
	for _, s := range r.scenarios {
		out = append(out, Snapshot{Name: s.name, State: s.State()})
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b Snapshot) int { return strings.Compare(a.Name, b.Name) })
	return out
}
