package engine

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/getmockd/stubd/internal/matching"
	"github.com/getmockd/stubd/internal/storage"
	"github.com/getmockd/stubd/pkg/capture"
	"github.com/getmockd/stubd/pkg/logging"
	"github.com/getmockd/stubd/pkg/random"
	"github.com/getmockd/stubd/pkg/request"
	"github.com/getmockd/stubd/pkg/scenario"
	"github.com/getmockd/stubd/pkg/stub"
)

// nearMissLimit bounds the candidates logged for an unmatched request.
const nearMissLimit = 3

// StubMappings owns the registered mappings and their scenarios and selects
// the mapping that answers a request.
//
// Serve never takes a lock: it scans an immutable snapshot of the mapping set.
// Register and Reset serialize on mu so that a reset cannot interleave with a
// half-finished registration.
type StubMappings struct {
	mu        sync.Mutex
	mappings  storage.MappingStore
	scenarios *scenario.Registry
	nextIndex atomic.Int64
	log       *slog.Logger
}

// StubMappingsOption configures StubMappings.
type StubMappingsOption func(*StubMappings)

// WithMappingStore replaces the default in-memory mapping set.
func WithMappingStore(s storage.MappingStore) StubMappingsOption {
	return func(sm *StubMappings) {
		if s != nil {
			sm.mappings = s
		}
	}
}

// WithStubLogger sets the operational logger.
func WithStubLogger(log *slog.Logger) StubMappingsOption {
	return func(sm *StubMappings) {
		if log != nil {
			sm.log = log
		}
	}
}

// NewStubMappings creates an empty mapping store.
func NewStubMappings(opts ...StubMappingsOption) *StubMappings {
	sm := &StubMappings{
		mappings:  storage.NewMappingSet(),
		scenarios: scenario.NewRegistry(),
		log:       logging.Nop(),
	}
	for _, opt := range opts {
		opt(sm)
	}
	return sm
}

// Register validates m and adds it to the store. A mapping naming an unknown
// scenario creates that scenario in the Started state.
func (sm *StubMappings) Register(m *stub.Mapping) error {
	if err := m.Validate(); err != nil {
		return err
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()

	m.SetInsertionIndex(sm.nextIndex.Add(1))
	if m.IsInScenario() {
		m.LinkScenario(sm.scenarios.ForName(m.ScenarioName))
	}
	sm.mappings.Insert(m)

	sm.log.Debug("registered stub mapping", "id", m.ID, "mapping", m.String(), "priority", m.EffectivePriority())
	return nil
}

// Serve selects the first mapping, by priority then registration order,
// whose predicate matches req and whose scenario allows it. The returned
// definition is a private copy ready for rendering. Unmatched requests get
// stub.NotConfigured().
func (sm *StubMappings) Serve(req *request.Request) *stub.ResponseDefinition {
	def, _ := sm.ServeMapping(req)
	return def
}

// ServeMapping is Serve that also reports the winning mapping (nil when none).
func (sm *StubMappings) ServeMapping(req *request.Request) (*stub.ResponseDefinition, *stub.Mapping) {
	for _, m := range sm.mappings.Snapshot() {
		if !m.Request.Matches(req) || !m.IsEligible() {
			continue
		}
		m.UpdateScenarioState()
		return sm.prepare(m, req), m
	}

	sm.logUnmatched(req)
	return stub.NotConfigured(), nil
}

func (sm *StubMappings) prepare(m *stub.Mapping, req *request.Request) *stub.ResponseDefinition {
	def := m.Response.Copy()
	def.SetOriginalRequest(req)

	if !m.HasCaptures() && !m.HasRandomValues() {
		return def
	}

	vars := random.Values(m.RandomValues)
	if vars == nil {
		vars = make(map[string]string, len(m.Captures))
	}
	for name, value := range capture.Collect(req, m.Captures) {
		vars[name] = value
	}

	r, err := capture.NewReplacer(vars, m.PlaceholderDelimiters)
	if err != nil {
		// Delimiters are checked by Validate; keep serving without substitution.
		sm.log.Warn("placeholder delimiters rejected at serve time", "id", m.ID, "error", err)
		return def
	}
	def.AttachReplacer(r)
	return def
}

func (sm *StubMappings) logUnmatched(req *request.Request) {
	if !sm.log.Enabled(context.Background(), slog.LevelDebug) {
		sm.log.Info("no stub mapping matched", "method", req.Method, "url", req.URL)
		return
	}
	misses := sm.NearMisses(req, nearMissLimit)
	attrs := []any{"method", req.Method, "url", req.URL, "near_misses", len(misses)}
	if len(misses) > 0 {
		attrs = append(attrs, "closest", misses[0].MappingID, "reason", misses[0].Reason)
	}
	sm.log.Debug("no stub mapping matched", attrs...)
}

// NearMisses ranks the registered mappings by how closely they match req.
func (sm *StubMappings) NearMisses(req *request.Request, topN int) []matching.NearMiss {
	snap := sm.mappings.Snapshot()
	candidates := make([]matching.Candidate, 0, len(snap))
	for _, m := range snap {
		candidates = append(candidates, matching.Candidate{ID: m.ID, Pattern: m.Request})
	}
	return matching.CollectNearMisses(candidates, req, topN)
}

// Reset drops every mapping and scenario. Insertion indexes keep increasing
// across resets.
func (sm *StubMappings) Reset() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.mappings.Clear()
	sm.scenarios.Clear()
	sm.log.Debug("stub mappings reset")
}

// ResetScenarios returns every scenario to Started.
func (sm *StubMappings) ResetScenarios() {
	sm.scenarios.ResetAll()
}

// List returns the mappings in match order.
func (sm *StubMappings) List() []*stub.Mapping {
	return sm.mappings.Snapshot()
}

// Get returns the mapping with the given id, or nil.
func (sm *StubMappings) Get(id string) *stub.Mapping {
	return sm.mappings.Get(id)
}

// Remove deletes the mapping with the given id. Its scenario is kept.
func (sm *StubMappings) Remove(id string) bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.mappings.Remove(id)
}

// Count returns the number of registered mappings.
func (sm *StubMappings) Count() int {
	return sm.mappings.Count()
}

// Scenarios returns the scenario registry.
func (sm *StubMappings) Scenarios() *scenario.Registry {
	return sm.scenarios
}
