package stub

import (
	"cmp"
	"errors"
	"fmt"

	"github.com/getmockd/stubd/internal/id"
	"github.com/getmockd/stubd/internal/matching"
	"github.com/getmockd/stubd/pkg/capture"
	"github.com/getmockd/stubd/pkg/random"
	"github.com/getmockd/stubd/pkg/scenario"
)

// DefaultPriority applies to mappings that do not set one.
const DefaultPriority = 5

// ErrInvalidMapping wraps every validation failure of a mapping.
var ErrInvalidMapping = errors.New("invalid stub mapping")

// Mapping is one configured rule: a request predicate and the response it serves.
type Mapping struct {
	ID                    string                   `json:"id,omitempty" yaml:"id,omitempty"`
	Name                  string                   `json:"name,omitempty" yaml:"name,omitempty"`
	Request               *matching.RequestPattern `json:"request" yaml:"request"`
	Response              *ResponseDefinition      `json:"response" yaml:"response"`
	Priority              *int                     `json:"priority,omitempty" yaml:"priority,omitempty"`
	ScenarioName          string                   `json:"scenarioName,omitempty" yaml:"scenarioName,omitempty"`
	RequiredScenarioState string                   `json:"requiredScenarioState,omitempty" yaml:"requiredScenarioState,omitempty"`
	NewScenarioState      string                   `json:"newScenarioState,omitempty" yaml:"newScenarioState,omitempty"`
	Captures              []*capture.Capture       `json:"captures,omitempty" yaml:"captures,omitempty"`
	PlaceholderDelimiters []string                 `json:"placeholderDelimiters,omitempty" yaml:"placeholderDelimiters,omitempty"`
	RandomValues          []random.Pattern         `json:"randomValues,omitempty" yaml:"randomValues,omitempty"`

	insertionIndex int64
	scenario       *scenario.Scenario
}

// New returns a mapping for req and resp.
func New(req *matching.RequestPattern, resp *ResponseDefinition) *Mapping {
	return &Mapping{Request: req, Response: resp}
}

// WithPriority sets the priority and returns m.
func (m *Mapping) WithPriority(p int) *Mapping {
	m.Priority = &p
	return m
}

// InScenario places m in a scenario and returns m.
func (m *Mapping) InScenario(name string) *Mapping {
	m.ScenarioName = name
	return m
}

// WhenScenarioStateIs sets the required scenario state and returns m.
func (m *Mapping) WhenScenarioStateIs(state string) *Mapping {
	m.RequiredScenarioState = state
	return m
}

// WillSetStateTo sets the state the scenario moves to once m is served.
func (m *Mapping) WillSetStateTo(state string) *Mapping {
	m.NewScenarioState = state
	return m
}

// WithCapture appends a capture and returns m.
func (m *Mapping) WithCapture(c *capture.Capture) *Mapping {
	m.Captures = append(m.Captures, c)
	return m
}

// WithRandomValue appends a random value template and returns m.
func (m *Mapping) WithRandomValue(target, pattern string) *Mapping {
	m.RandomValues = append(m.RandomValues, random.Pattern{Target: target, Pattern: pattern})
	return m
}

// EffectivePriority returns Priority or DefaultPriority.
func (m *Mapping) EffectivePriority() int {
	if m.Priority == nil {
		return DefaultPriority
	}
	return *m.Priority
}

// InsertionIndex returns the registration order assigned by the store.
func (m *Mapping) InsertionIndex() int64 { return m.insertionIndex }

// SetInsertionIndex is called by the store at registration.
func (m *Mapping) SetInsertionIndex(i int64) { m.insertionIndex = i }

// Compare orders mappings by priority, then insertion index.
func Compare(a, b *Mapping) int {
	if c := cmp.Compare(a.EffectivePriority(), b.EffectivePriority()); c != 0 {
		return c
	}
	return cmp.Compare(a.insertionIndex, b.insertionIndex)
}

// IsInScenario reports whether m belongs to a scenario.
func (m *Mapping) IsInScenario() bool { return m.ScenarioName != "" }

// ModifiesScenarioState reports whether serving m moves its scenario.
func (m *Mapping) ModifiesScenarioState() bool { return m.NewScenarioState != "" }

// LinkScenario attaches the scenario cell m reads and writes.
func (m *Mapping) LinkScenario(s *scenario.Scenario) { m.scenario = s }

// Scenario returns the linked scenario, or nil.
func (m *Mapping) Scenario() *scenario.Scenario { return m.scenario }

// IsEligible reports whether m may be served in the current scenario state.
func (m *Mapping) IsEligible() bool {
	if !m.IsInScenario() || m.RequiredScenarioState == "" {
		return true
	}
	return m.scenario != nil && m.scenario.State() == m.RequiredScenarioState
}

// UpdateScenarioState applies the postcondition, if any.
func (m *Mapping) UpdateScenarioState() {
	if m.IsInScenario() && m.ModifiesScenarioState() && m.scenario != nil {
		m.scenario.SetState(m.NewScenarioState)
	}
}

// HasCaptures reports whether m declares captures.
func (m *Mapping) HasCaptures() bool { return len(m.Captures) > 0 }

// HasRandomValues reports whether m declares random values.
func (m *Mapping) HasRandomValues() bool { return len(m.RandomValues) > 0 }

// Validate checks m, compiles its predicate and captures, and assigns an ID
// when missing. Every problem is reported; all wrap ErrInvalidMapping.
func (m *Mapping) Validate() error {
	var errs []error

	if m.Request == nil {
		errs = append(errs, errors.New("request is required"))
	} else if err := m.Request.Compile(); err != nil {
		errs = append(errs, fmt.Errorf("request: %w", err))
	}

	if m.Response == nil {
		errs = append(errs, errors.New("response is required"))
	} else if err := m.Response.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("response: %w", err))
	}

	for i, c := range m.Captures {
		if c == nil {
			errs = append(errs, fmt.Errorf("captures[%d]: missing mandatory data in capture definition", i))
			continue
		}
		if err := c.Compile(); err != nil {
			errs = append(errs, fmt.Errorf("captures[%d]: %w", i, err))
		}
	}

	if m.PlaceholderDelimiters != nil {
		if _, _, err := capture.ParseDelimiters(m.PlaceholderDelimiters); err != nil {
			errs = append(errs, err)
		}
	}

	for i, rv := range m.RandomValues {
		if err := rv.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("randomValues[%d]: %w", i, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidMapping, errors.Join(errs...))
	}

	if m.ID == "" {
		m.ID = id.UUID()
	} else if id.IsValidUUID(id.Normalize(m.ID)) {
		m.ID = id.Normalize(m.ID)
	}
	return nil
}

// String summarises m for logs.
func (m *Mapping) String() string {
	label := m.ID
	if m.Name != "" {
		label = m.Name
	}
	req := "<no request>"
	if m.Request != nil {
		req = m.Request.String()
	}
	return fmt.Sprintf("%s [%s, priority %d]", label, req, m.EffectivePriority())
}
