package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codomyrmex/mcp-core/internal/audit"
	"github.com/codomyrmex/mcp-core/internal/mcperrors"
	"github.com/codomyrmex/mcp-core/internal/registry"
	"github.com/codomyrmex/mcp-core/internal/trust"
)

func newTestDispatcher(t *testing.T) (*Dispatcher, *registry.Registry, *audit.Log) {
	t.Helper()
	reg := registry.New()
	log := audit.NewLog(100)
	gw := trust.NewGateway(nil, log, time.Second)
	return New(reg, gw, nil, zerolog.Nop(), time.Second), reg, log
}

func TestDispatch_UnknownToolReturnsEnvelope(t *testing.T) {
	d, _, auditLog := newTestDispatcher(t)
	tctx := trust.NewContext("s1", trust.Untrusted)

	out := d.Dispatch(context.Background(), tctx, "codomyrmex.nonexistent", nil)

	errField, ok := out["error"].(*mcperrors.Envelope)
	require.True(t, ok)
	assert.Equal(t, mcperrors.UnknownTool, errField.Code)
	assert.Equal(t, "codomyrmex.nonexistent", errField.ToolName)
	assert.NotEmpty(t, errField.CorrelationID)

	// Even a rejection that never reached the gateway emits one audit record.
	require.Equal(t, 1, auditLog.Len())
	record := auditLog.Tail(1)[0]
	assert.Equal(t, string(mcperrors.UnknownTool), record.Outcome)
	assert.Equal(t, errField.CorrelationID, record.CorrelationID)
}

func TestDispatch_ValidationFailureReturnsEnvelopeNoHandlerCall(t *testing.T) {
	d, reg, auditLog := newTestDispatcher(t)
	called := false
	require.NoError(t, reg.Register(&registry.Descriptor{
		Name:       "codomyrmex.needs_path",
		TrustClass: registry.Safe,
		ParameterSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path": map[string]any{"type": "string"},
			},
			"required": []any{"path"},
		},
		Handler: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			called = true
			return map[string]any{}, nil
		},
	}, registry.RegisterOptions{}))

	tctx := trust.NewContext("s1", trust.Untrusted)
	out := d.Dispatch(context.Background(), tctx, "codomyrmex.needs_path", map[string]any{"path": 42})

	errField, ok := out["error"].(*mcperrors.Envelope)
	require.True(t, ok)
	assert.Equal(t, mcperrors.ValidationError, errField.Code)
	assert.Equal(t, "path", errField.Details["field"])
	assert.False(t, called)

	require.Equal(t, 1, auditLog.Len())
	assert.Equal(t, string(mcperrors.ValidationError), auditLog.Tail(1)[0].Outcome)
}

func TestDispatch_SuccessWrapsResultAndCorrelationID(t *testing.T) {
	d, reg, _ := newTestDispatcher(t)
	require.NoError(t, reg.Register(&registry.Descriptor{
		Name:       "codomyrmex.echo",
		TrustClass: registry.Safe,
		ParameterSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
		Handler: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			return map[string]any{"ok": true}, nil
		},
	}, registry.RegisterOptions{}))

	tctx := trust.NewContext("s1", trust.Untrusted)
	out := d.Dispatch(context.Background(), tctx, "codomyrmex.echo", nil)

	require.Nil(t, out["error"])
	result := out["result"].(map[string]any)
	assert.Equal(t, true, result["ok"])
	assert.NotEmpty(t, out["correlation_id"])
}

func TestDispatch_DestructiveDeniedCarriesCorrelationID(t *testing.T) {
	d, reg, _ := newTestDispatcher(t)
	require.NoError(t, reg.Register(&registry.Descriptor{
		Name:       "codomyrmex.delete_all",
		TrustClass: registry.Destructive,
		ParameterSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
		Handler: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			return map[string]any{}, nil
		},
	}, registry.RegisterOptions{}))

	tctx := trust.NewContext("s1", trust.Standard)
	out := d.Dispatch(context.Background(), tctx, "codomyrmex.delete_all", nil)

	errField, ok := out["error"].(*mcperrors.Envelope)
	require.True(t, ok)
	assert.Equal(t, mcperrors.AccessDenied, errField.Code)
	assert.Equal(t, "ELEVATED", errField.Details["required"])
	assert.NotEmpty(t, errField.CorrelationID)
}
