package domain

import (
	"encoding/json"
	"fmt"
)

// ErrorPrefix starts the text of every failed tool result.
const ErrorPrefix = "Error: "

// TextContent is a single text block of a tool result.
type TextContent struct {
	Type string `json:"type"` // always "text"
	Text string `json:"text"`
}

// ToolResult is the envelope returned by every tool handler.
// IsError=true means Text starts with ErrorPrefix; IsError=false means
// Text is an indented JSON payload.
type ToolResult struct {
	Content []TextContent `json:"content"`
	IsError bool          `json:"isError,omitempty"`
}

// Text returns the text of the first content block, or "" when empty.
func (r *ToolResult) Text() string {
	if r == nil || len(r.Content) == 0 {
		return ""
	}
	return r.Content[0].Text
}

// Success serializes payload as indented JSON.
func Success(payload any) *ToolResult {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return Failure(fmt.Sprintf("failed to encode result: %v", err))
	}
	return &ToolResult{
		Content: []TextContent{{Type: "text", Text: string(data)}},
	}
}

// Failure wraps message into an error result.
func Failure(message string) *ToolResult {
	return &ToolResult{
		Content: []TextContent{{Type: "text", Text: ErrorPrefix + message}},
		IsError: true,
	}
}
