// Package tools provides a metadata-driven registry for MCP tool definitions.
// Tools are declared once in AllTools; their JSON schemas, argument checks
// and MCP registration are all derived from that table.
package tools

import (
	"encoding/json"

	"github.com/google/jsonschema-go/jsonschema"
)

// Backend names used in ToolSpec.Backend.
const (
	BackendConfluence = "confluence"
	BackendJira       = "jira"
)

// Param types understood by the dispatcher.
const (
	TypeString  = "string"
	TypeInteger = "integer"
	TypeBoolean = "boolean"
	TypeObject  = "object"
	// TypeObjectOrString accepts a JSON object or a string holding one.
	TypeObjectOrString = "object|string"
)

// Param describes one tool argument.
type Param struct {
	Name        string
	Type        string
	Description string
	Required    bool

	// Default is applied when the argument is absent or null.
	Default any

	// Min rejects smaller integers. Max clamps larger ones.
	Min *int
	Max *int
}

// ToolSpec defines a tool's metadata for declarative registration.
// Each spec maps to a dispatcher method with a matching Args type.
type ToolSpec struct {
	// Name is the MCP tool name (e.g., "confluence_search")
	Name string

	// Method is the dispatcher method name (e.g., "ConfluenceSearch")
	Method string

	// Description is the tool description shown to LLMs
	Description string

	// Title is the human-readable tool title for annotations
	Title string

	// Category groups tools logically (search, read, write)
	Category string

	// Backend is the Atlassian product the tool needs
	Backend string

	Params []Param

	// ReadOnly indicates the tool doesn't modify backend state
	ReadOnly bool

	// Destructive indicates the tool can delete or overwrite data
	Destructive bool

	// Idempotent indicates repeated calls have the same effect
	Idempotent bool

	// OpenWorld indicates the tool accesses external resources
	OpenWorld bool
}

// InputSchema builds the JSON schema for the tool's arguments.
func (s ToolSpec) InputSchema() *jsonschema.Schema {
	schema := &jsonschema.Schema{
		Type:       "object",
		Properties: make(map[string]*jsonschema.Schema, len(s.Params)),
	}
	for _, p := range s.Params {
		prop := &jsonschema.Schema{Description: p.Description}
		if p.Type == TypeObjectOrString {
			prop.Types = []string{TypeObject, TypeString}
		} else {
			prop.Type = p.Type
		}
		if p.Default != nil {
			if raw, err := json.Marshal(p.Default); err == nil {
				prop.Default = raw
			}
		}
		if p.Min != nil {
			prop.Minimum = ptr(float64(*p.Min))
		}
		if p.Max != nil {
			prop.Maximum = ptr(float64(*p.Max))
		}
		schema.Properties[p.Name] = prop
		if p.Required {
			schema.Required = append(schema.Required, p.Name)
		}
	}
	return schema
}

// Lookup returns the spec for a tool name.
func Lookup(name string) (ToolSpec, bool) {
	for _, spec := range AllTools {
		if spec.Name == name {
			return spec, true
		}
	}
	return ToolSpec{}, false
}

// ToolsByBackend returns the tools served by one backend.
func ToolsByBackend(backend string) []ToolSpec {
	var out []ToolSpec
	for _, spec := range AllTools {
		if spec.Backend == backend {
			out = append(out, spec)
		}
	}
	return out
}

// ToolsByCategory returns the tools in one category.
func ToolsByCategory(category string) []ToolSpec {
	var out []ToolSpec
	for _, spec := range AllTools {
		if spec.Category == category {
			out = append(out, spec)
		}
	}
	return out
}

// ptr is a helper to create a pointer to a value.
func ptr[T any](v T) *T {
	return &v
}
