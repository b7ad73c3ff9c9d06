package stub

import (
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
	"slices"

	"gopkg.in/yaml.v3"
)

// Headers are response headers. In documents each value may be a single
// string or a list of strings.
type Headers map[string][]string

// Clone returns a deep copy.
func (h Headers) Clone() Headers {
	if h == nil {
		return nil
	}
	out := make(Headers, len(h))
	for k, v := range h {
		out[k] = slices.Clone(v)
	}
	return out
}

// HTTPHeader converts to http.Header, canonicalising names.
func (h Headers) HTTPHeader() http.Header {
	out := make(http.Header, len(h))
	for k, vs := range h {
		for _, v := range vs {
			out.Add(k, v)
		}
	}
	return out
}

// MarshalJSON writes single values as strings and the rest as arrays.
func (h Headers) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(h))
	for _, k := range slices.Sorted(maps.Keys(h)) {
		if v := h[k]; len(v) == 1 {
			out[k] = v[0]
		} else {
			out[k] = v
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts string or array values.
func (h *Headers) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Headers, len(raw))
	for k, v := range raw {
		var single string
		if err := json.Unmarshal(v, &single); err == nil {
			out[k] = []string{single}
			continue
		}
		var multi []string
		if err := json.Unmarshal(v, &multi); err != nil {
			return fmt.Errorf("header %q: value must be a string or an array of strings", k)
		}
		out[k] = multi
	}
	*h = out
	return nil
}

// UnmarshalYAML accepts scalar or sequence values.
func (h *Headers) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("headers: expected mapping node, got %d", value.Kind)
	}
	out := make(Headers, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		key, val := value.Content[i].Value, value.Content[i+1]
		switch val.Kind {
		case yaml.ScalarNode:
			out[key] = []string{val.Value}
		case yaml.SequenceNode:
			var multi []string
			if err := val.Decode(&multi); err != nil {
				return fmt.Errorf("header %q: %w", key, err)
			}
			out[key] = multi
		default:
			return fmt.Errorf("header %q: value must be a string or a list of strings", key)
		}
	}
	*h = out
	return nil
}
