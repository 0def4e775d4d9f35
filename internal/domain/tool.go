package domain

import "encoding/json"

// Tool represents a callable warehouse operation exposed over the
// Model Context Protocol (MCP).
// Based on MCP Spec 2025-03-26: https://modelcontextprotocol.io/specification/2025-03-26
type Tool struct {
	// Name is the fixed tool name (e.g. "run_query").
	// It MUST be unique within the MCP server.
	Name string `json:"name"`

	// Description provides a natural language explanation of what the tool does.
	// This is crucial for the LLM to understand when to use the tool.
	Description string `json:"description"`

	// InputSchema defines the structure of the arguments the tool expects.
	// Arguments are validated against it before the handler runs.
	InputSchema JSONSchemaProps `json:"input_schema"`
}

// JSONSchemaProps represents the subset of JSON Schema used for tool inputs.
type JSONSchemaProps struct {
	Type        string                     `json:"type"`                  // e.g., "object", "string", "integer", "boolean"
	Description string                     `json:"description,omitempty"` // Shown to the caller
	Properties  map[string]JSONSchemaProps `json:"properties,omitempty"`  // For type "object"
	Required    []string                   `json:"required,omitempty"`    // For type "object"
	MinLength   *int                       `json:"minLength,omitempty"`   // For type "string"
	Minimum     *float64                   `json:"minimum,omitempty"`     // For numeric types
	Default     interface{}                `json:"default,omitempty"`     // Informational only
}

// RawSchema returns the schema encoded as JSON, suitable for registering the
// tool with an MCP server or compiling it with a JSON Schema validator.
func (s JSONSchemaProps) RawSchema() ([]byte, error) {
	raw, err := json.Marshal(s)
	if err != nil || s.Type != "object" || len(s.Properties) > 0 {
		return raw, err
	}
	// An empty object schema must still carry "properties" for some MCP clients.
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	m["properties"] = map[string]interface{}{}
	return json.Marshal(m)
}

// NonEmptyString returns a string property that rejects the empty string.
func NonEmptyString(description string) JSONSchemaProps {
	one := 1
	return JSONSchemaProps{Type: "string", Description: description, MinLength: &one}
}

// NonNegativeInteger returns an integer property with a lower bound of zero.
func NonNegativeInteger(description string) JSONSchemaProps {
	zero := 0.0
	return JSONSchemaProps{Type: "integer", Description: description, Minimum: &zero}
}
