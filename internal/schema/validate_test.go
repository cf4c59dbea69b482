package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pathSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{"type": "string"},
			"mode": map[string]any{"type": "string", "default": "read"},
		},
		"required": []any{"path"},
	}
}

func TestValidate_MissingRequired(t *testing.T) {
	_, fail := Validate(pathSchema(), map[string]any{})
	require.NotNil(t, fail)
	assert.Equal(t, "path", fail.Field)
}

func TestValidate_WrongType(t *testing.T) {
	_, fail := Validate(pathSchema(), map[string]any{"path": 42})
	require.NotNil(t, fail)
	assert.Equal(t, "path", fail.Field)
	assert.Contains(t, fail.Violation, "string")
}

func TestValidate_DefaultsMaterialized(t *testing.T) {
	out, fail := Validate(pathSchema(), map[string]any{"path": "/tmp"})
	require.Nil(t, fail)
	assert.Equal(t, "read", out["mode"])
}

func TestValidate_UnknownFieldRejected(t *testing.T) {
	_, fail := Validate(pathSchema(), map[string]any{"path": "/tmp", "bogus": true})
	require.NotNil(t, fail)
	assert.Equal(t, "bogus", fail.Field)
}

func TestValidate_AdditionalPropertiesAllowed(t *testing.T) {
	s := pathSchema()
	s["additionalProperties"] = true
	out, fail := Validate(s, map[string]any{"path": "/tmp", "extra": "ok"})
	require.Nil(t, fail)
	assert.Equal(t, "ok", out["extra"])
}

func TestValidate_EnumRejectsOutOfRange(t *testing.T) {
	s := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"format": map[string]any{"type": "string", "enum": []any{"graph", "list"}},
		},
	}
	_, fail := Validate(s, map[string]any{"format": "xml"})
	require.NotNil(t, fail)
	assert.Equal(t, "format", fail.Field)
}

func TestValidate_NestedObjectAndArray(t *testing.T) {
	s := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"filters": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"tags": map[string]any{
						"type":  "array",
						"items": map[string]any{"type": "string"},
					},
				},
			},
		},
	}
	_, fail := Validate(s, map[string]any{
		"filters": map[string]any{"tags": []any{"a", 1}},
	})
	require.NotNil(t, fail)
	assert.Equal(t, "filters.tags[1]", fail.Field)
}
