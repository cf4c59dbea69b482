package notes

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codomyrmex/mcp-core/internal/schema"
)

func TestRegisterTools_SchemasValidateAgainstGeneratedShape(t *testing.T) {
	descriptors, err := RegisterTools()
	require.NoError(t, err)

	byName := make(map[string]map[string]any, len(descriptors))
	for _, d := range descriptors {
		byName[d.Name] = d.ParameterSchema
	}

	_, failure := schema.Validate(byName["codomyrmex.notes.put"], map[string]any{"content": "hi"})
	assert.Nil(t, failure)

	_, failure = schema.Validate(byName["codomyrmex.notes.put"], map[string]any{})
	require.NotNil(t, failure)
	assert.Equal(t, "content", failure.Field)
}

func TestPutGetDelete_RoundTrip(t *testing.T) {
	ctx := context.Background()

	putOut, err := put(ctx, map[string]any{"content": "hello world"})
	require.NoError(t, err)
	key := putOut["digest"].(string)
	require.NotEmpty(t, key)

	getOut, err := get(ctx, map[string]any{"digest": key})
	require.NoError(t, err)
	assert.Equal(t, "hello world", getOut["content"])

	delOut, err := delete_(ctx, map[string]any{"digest": key})
	require.NoError(t, err)
	assert.Equal(t, true, delOut["deleted"])

	_, err = get(ctx, map[string]any{"digest": key})
	assert.Error(t, err)
}

func TestPut_RejectsEmptyContent(t *testing.T) {
	_, err := put(context.Background(), map[string]any{"content": ""})
	assert.Error(t, err)
}
