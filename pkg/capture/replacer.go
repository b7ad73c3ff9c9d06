package capture

import (
	"errors"
	"maps"
	"slices"
	"strings"
)

// Default placeholder delimiters.
const (
	DefaultDelimiterStart = "${"
	DefaultDelimiterEnd   = "}"
)

// ErrInvalidDelimiters is returned when a delimiter list does not have exactly two entries.
var ErrInvalidDelimiters = errors.New("placeholder delimiters must have exactly 2 entries")

// Replacer substitutes ${name} style placeholders with variable values.
// It is immutable and safe for concurrent use. A nil *Replacer behaves like
// one with no variables.
type Replacer struct {
	variables map[string]string
	names     []string
	start     string
	end       string
}

// NewReplacer creates a Replacer. A nil delimiters slice selects the defaults;
// otherwise it must hold exactly two entries.
func NewReplacer(variables map[string]string, delimiters []string) (*Replacer, error) {
	start, end, err := ParseDelimiters(delimiters)
	if err != nil {
		return nil, err
	}
	vars := maps.Clone(variables)
	if vars == nil {
		vars = map[string]string{}
	}
	names := slices.Sorted(maps.Keys(vars))
	return &Replacer{variables: vars, names: names, start: start, end: end}, nil
}

// ParseDelimiters validates a delimiter list and returns the start and end tokens.
func ParseDelimiters(delimiters []string) (string, string, error) {
	if delimiters == nil {
		return DefaultDelimiterStart, DefaultDelimiterEnd, nil
	}
	if len(delimiters) != 2 {
		return "", "", ErrInvalidDelimiters
	}
	return delimiters[0], delimiters[1], nil
}

// HasVariables reports whether any variable is configured.
func (r *Replacer) HasVariables() bool {
	return r != nil && len(r.variables) > 0
}

// Variables returns a copy of the configured variables.
func (r *Replacer) Variables() map[string]string {
	if r == nil {
		return nil
	}
	return maps.Clone(r.variables)
}

// Delimiters returns the start and end tokens.
func (r *Replacer) Delimiters() (string, string) {
	if r == nil {
		return DefaultDelimiterStart, DefaultDelimiterEnd
	}
	return r.start, r.end
}

// Replace substitutes every placeholder of every variable in input.
// Variables are applied one after another in name order; within one variable
// occurrences are replaced left to right and the inserted value is not scanned
// again. Without variables input is returned unchanged.
func (r *Replacer) Replace(input string) string {
	if !r.HasVariables() {
		return input
	}
	result := input
	for _, name := range r.names {
		token := r.start + name + r.end
		if strings.Contains(result, token) {
			result = strings.ReplaceAll(result, token, r.variables[name])
		}
	}
	return result
}

// ReplaceAll applies Replace to every element, returning a new slice.
// Without variables the input slice itself is returned.
func (r *Replacer) ReplaceAll(inputs []string) []string {
	if !r.HasVariables() || inputs == nil {
		return inputs
	}
	out := make([]string, len(inputs))
	for i, s := range inputs {
		out[i] = r.Replace(s)
	}
	return out
}
