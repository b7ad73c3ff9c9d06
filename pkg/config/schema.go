package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/getmockd/stubd/pkg/stub"
)

//go:embed schema/mapping.schema.json
var mappingSchemaJSON []byte

const mappingSchemaURL = "https://stubd.getmockd.dev/schema/mapping.schema.json"

// ErrSchema wraps every schema violation.
var ErrSchema = errors.New("mapping document does not match schema")

var (
	schemaOnce     sync.Once
	mappingSchema  *jsonschema.Schema
	mappingSchemaE error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		if err := compiler.AddResource(mappingSchemaURL, bytes.NewReader(mappingSchemaJSON)); err != nil {
			mappingSchemaE = fmt.Errorf("loading mapping schema: %w", err)
			return
		}
		mappingSchema, mappingSchemaE = compiler.Compile(mappingSchemaURL)
	})
	return mappingSchema, mappingSchemaE
}

// MappingSchema returns the embedded JSON Schema for mapping documents.
func MappingSchema() []byte {
	return bytes.Clone(mappingSchemaJSON)
}

// ValidateDocument checks a mapping document against the embedded schema.
func ValidateDocument(data []byte, format stub.Format) error {
	sch, err := compiledSchema()
	if err != nil {
		return err
	}

	var doc any
	switch format {
	case stub.FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&doc); err != nil {
			return fmt.Errorf("parsing JSON: %w", err)
		}
	case stub.FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parsing YAML: %w", err)
		}
	default:
		return fmt.Errorf("%w: %q", stub.ErrUnsupportedFormat, format)
	}

	if err := sch.Validate(doc); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return fmt.Errorf("%w: %s", ErrSchema, describe(ve))
		}
		return fmt.Errorf("%w: %w", ErrSchema, err)
	}
	return nil
}

// describe reports the deepest cause, which names the offending field.
func describe(ve *jsonschema.ValidationError) string {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	loc := ve.InstanceLocation
	if loc == "" {
		loc = "/"
	}
	return loc + ": " + ve.Message
}
