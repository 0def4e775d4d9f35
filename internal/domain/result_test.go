package domain_test

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i2y/bqmcp/internal/domain"
)

func TestSuccess(t *testing.T) {
	payload := domain.QueryRows{{"n": 1.0}}

	result := domain.Success(payload)

	assert.False(t, result.IsError)
	require.Len(t, result.Content, 1)
	assert.Equal(t, "text", result.Content[0].Type)
	assert.Equal(t, "[\n  {\n    \"n\": 1\n  }\n]", result.Text())

	var decoded domain.QueryRows
	require.NoError(t, json.Unmarshal([]byte(result.Text()), &decoded))
	assert.Equal(t, payload, decoded)
}

func TestSuccess_UnencodablePayload(t *testing.T) {
	result := domain.Success(math.Inf(1))

	assert.True(t, result.IsError)
	assert.True(t, strings.HasPrefix(result.Text(), "Error: failed to encode result:"), result.Text())
}

func TestFailure(t *testing.T) {
	result := domain.Failure("Only read-only queries are allowed.")

	assert.True(t, result.IsError)
	require.Len(t, result.Content, 1)
	assert.Equal(t, "text", result.Content[0].Type)
	assert.Equal(t, "Error: Only read-only queries are allowed.", result.Text())
}

func TestToolResult_TextOfEmpty(t *testing.T) {
	var nilResult *domain.ToolResult
	assert.Equal(t, "", nilResult.Text())
	assert.Equal(t, "", (&domain.ToolResult{}).Text())
}

func TestJSONSchemaProps_RawSchema(t *testing.T) {
	t.Run("empty object gets properties", func(t *testing.T) {
		raw, err := domain.JSONSchemaProps{Type: "object"}.RawSchema()
		require.NoError(t, err)
		assert.JSONEq(t, `{"type":"object","properties":{}}`, string(raw))
	})

	t.Run("constraints are encoded", func(t *testing.T) {
		raw, err := domain.JSONSchemaProps{
			Type: "object",
			Properties: map[string]domain.JSONSchemaProps{
				"query":   domain.NonEmptyString("SQL"),
				"maxRows": domain.NonNegativeInteger("rows"),
			},
			Required: []string{"query"},
		}.RawSchema()
		require.NoError(t, err)
		assert.JSONEq(t, `{
			"type": "object",
			"properties": {
				"query": {"type": "string", "description": "SQL", "minLength": 1},
				"maxRows": {"type": "integer", "description": "rows", "minimum": 0}
			},
			"required": ["query"]
		}`, string(raw))
	})
}
