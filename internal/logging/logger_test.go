package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONFormatCarriesServiceField(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Level: "debug", Format: "json", Output: &buf})
	logger.Info().Msg("hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "codomyrmex-mcp", line["service"])
	assert.Equal(t, "hello", line["message"])
}

func TestNew_UnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Level: "chatty", Format: "json", Output: &buf})

	logger.Debug().Msg("dropped")
	assert.Empty(t, buf.Bytes())

	logger.Info().Msg("kept")
	assert.NotEmpty(t, buf.Bytes())
}

func TestForDispatch_StampsCorrelationAndTool(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Format: "json", Output: &buf})

	ForDispatch(logger, "corr-1", "codomyrmex.echo").Info().Msg("state")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "corr-1", line["correlation_id"])
	assert.Equal(t, "codomyrmex.echo", line["tool_name"])
}

func TestDiscard_EmitsNothing(t *testing.T) {
	logger := Discard()
	logger.Error().Msg("nowhere")
}
