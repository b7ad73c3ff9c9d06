package stub

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is a mapping document encoding.
type Format string

// Supported formats.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ErrUnsupportedFormat is returned for file extensions other than json, yaml and yml.
var ErrUnsupportedFormat = errors.New("unsupported mapping format")

// Document holds several mappings.
type Document struct {
	Mappings []*Mapping `json:"mappings" yaml:"mappings"`
}

// FormatForPath picks the format from a file extension.
func FormatForPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
}

// Decode parses a document that is a single mapping, a list of mappings, or
// an object with a "mappings" list. Mappings are not validated.
func Decode(data []byte, format Format) ([]*Mapping, error) {
	switch format {
	case FormatJSON:
		return DecodeJSON(data)
	case FormatYAML:
		return DecodeYAML(data)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

// DecodeJSON parses a JSON mapping document.
func DecodeJSON(data []byte) ([]*Mapping, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("empty mapping document")
	}

	if trimmed[0] == '[' {
		var list []*Mapping
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("decoding mapping list: %w", err)
		}
		return list, nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, fmt.Errorf("decoding mapping document: %w", err)
	}
	if _, ok := envelope["mappings"]; ok {
		var doc Document
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return nil, fmt.Errorf("decoding mappings: %w", err)
		}
		return doc.Mappings, nil
	}

	var m Mapping
	if err := json.Unmarshal(trimmed, &m); err != nil {
		return nil, fmt.Errorf("decoding mapping: %w", err)
	}
	return []*Mapping{&m}, nil
}

// DecodeYAML parses a YAML mapping document.
func DecodeYAML(data []byte) ([]*Mapping, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("decoding mapping document: %w", err)
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, errors.New("empty mapping document")
	}
	node := root.Content[0]

	switch node.Kind {
	case yaml.SequenceNode:
		var list []*Mapping
		if err := node.Decode(&list); err != nil {
			return nil, fmt.Errorf("decoding mapping list: %w", err)
		}
		return list, nil
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			if node.Content[i].Value == "mappings" {
				var doc Document
				if err := node.Decode(&doc); err != nil {
					return nil, fmt.Errorf("decoding mappings: %w", err)
				}
				return doc.Mappings, nil
			}
		}
		var m Mapping
		if err := node.Decode(&m); err != nil {
			return nil, fmt.Errorf("decoding mapping: %w", err)
		}
		return []*Mapping{&m}, nil
	}
	return nil, fmt.Errorf("decoding mapping document: unexpected node kind %d", node.Kind)
}
