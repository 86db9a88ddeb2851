// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package dispatch

import (
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
)

// methodSchema pairs a method's declared parameter schema with its resolved,
// validate-able form, built once at registration time.
type methodSchema struct {
	schema   *jsonschema.Schema
	resolved *jsonschema.Resolved
}

func newMethodSchema(s *jsonschema.Schema) (*methodSchema, error) {
	resolved, err := s.Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("resolve schema: %w", err)
	}
	return &methodSchema{schema: s, resolved: resolved}, nil
}

// validate checks params against the method's declared schema, the same
// validate-on-the-resolved-schema pattern the MCP tool server in the example
// pack follows for its own InputSchema declarations.
func (m *methodSchema) validate(params map[string]any) error {
	return m.resolved.Validate(params)
}

func stringSchema(description string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Description: description}
}

func intSchema(description string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "integer", Description: description}
}

func boolSchema(description string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "boolean", Description: description}
}

func stringArraySchema(description string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "array", Items: &jsonschema.Schema{Type: "string"}, Description: description}
}

func objectSchema(properties map[string]*jsonschema.Schema, required []string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "object", Properties: properties, Required: required}
}

// jsonschemaShorthand is a small builder so registerAll's method table reads
// as one line per parameter instead of a nested struct literal per method.
type jsonschemaShorthand struct {
	properties map[string]*jsonschema.Schema
	required   []string
}

func params() *jsonschemaShorthand {
	return &jsonschemaShorthand{properties: map[string]*jsonschema.Schema{}}
}

func (j *jsonschemaShorthand) str(name, description string) *jsonschemaShorthand {
	j.properties[name] = stringSchema(description)
	return j
}

func (j *jsonschemaShorthand) strArray(name, description string) *jsonschemaShorthand {
	j.properties[name] = stringArraySchema(description)
	return j
}

func (j *jsonschemaShorthand) integer(name, description string) *jsonschemaShorthand {
	j.properties[name] = intSchema(description)
	return j
}

func (j *jsonschemaShorthand) boolean(name, description string) *jsonschemaShorthand {
	j.properties[name] = boolSchema(description)
	return j
}

func (j *jsonschemaShorthand) require(names ...string) *jsonschemaShorthand {
	j.required = append(j.required, names...)
	return j
}

func (j *jsonschemaShorthand) build() *jsonschema.Schema {
	return objectSchema(j.properties, j.required)
}
