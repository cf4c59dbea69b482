package transport

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codomyrmex/mcp-core/internal/audit"
	"github.com/codomyrmex/mcp-core/internal/config"
	"github.com/codomyrmex/mcp-core/internal/discovery"
	"github.com/codomyrmex/mcp-core/internal/dispatch"
	"github.com/codomyrmex/mcp-core/internal/logging"
	"github.com/codomyrmex/mcp-core/internal/registry"
	"github.com/codomyrmex/mcp-core/internal/trust"
)

func TestServer_NewWithWarmUpBuildsServerAndTrustContext(t *testing.T) {
	reg := registry.New()
	engine := discovery.NewEngine(reg, nil, time.Minute, logging.Discard())
	gateway := trust.NewGateway(nil, audit.NewLog(10), time.Second)
	dispatcher := dispatch.New(reg, gateway, engine, logging.Discard(), time.Second)

	cfg := config.DefaultConfig()
	cfg.WarmUpDiscovery = true

	srv, err := New(cfg, reg, dispatcher, engine, logging.Discard())
	require.NoError(t, err)
	assert.NotNil(t, srv)
	assert.NotNil(t, srv.TrustContext())
}

func TestServer_ElevationToolRaisesSessionTrustLevel(t *testing.T) {
	reg := registry.New()
	engine := discovery.NewEngine(reg, nil, time.Minute, logging.Discard())
	gateway := trust.NewGateway(nil, audit.NewLog(10), time.Second)
	dispatcher := dispatch.New(reg, gateway, engine, logging.Discard(), time.Second)

	cfg := config.DefaultConfig()
	cfg.ElevationSigningKey = "test-signing-key"

	srv, err := New(cfg, reg, dispatcher, engine, logging.Discard())
	require.NoError(t, err)

	token, err := trust.MintElevationToken([]byte(cfg.ElevationSigningKey), srv.TrustContext().SessionID, trust.Full, time.Minute)
	require.NoError(t, err)

	d := reg.Lookup("codomyrmex.session.elevate")
	require.NotNil(t, d)

	out, err := d.Handler(context.Background(), map[string]any{"token": token})
	require.NoError(t, err)
	assert.Equal(t, "FULL", out["trust_level"])
	assert.Equal(t, trust.Full, srv.TrustContext().Level())
}

func TestServer_PromptRegisteredAndRenders(t *testing.T) {
	reg := registry.New()
	engine := discovery.NewEngine(reg, nil, time.Minute, logging.Discard())
	gateway := trust.NewGateway(nil, audit.NewLog(10), time.Second)
	dispatcher := dispatch.New(reg, gateway, engine, logging.Discard(), time.Second)

	srv, err := New(config.DefaultConfig(), reg, dispatcher, engine, logging.Discard())
	require.NoError(t, err)

	d := reg.LookupPrompt("codomyrmex.confirm_destructive_call")
	require.NotNil(t, d)
	assert.Equal(t, []string{"tool_name"}, d.Arguments)

	rendered, err := d.Template(map[string]string{"tool_name": "codomyrmex.shell.run"})
	require.NoError(t, err)
	assert.Contains(t, rendered, "codomyrmex.shell.run")
	assert.Contains(t, rendered, "DESTRUCTIVE")

	_, err = d.Template(map[string]string{})
	assert.Error(t, err)

	assert.NotNil(t, srv)
}

func TestServer_ShutdownReturnsImmediatelyWhenIdle(t *testing.T) {
	reg := registry.New()
	engine := discovery.NewEngine(reg, nil, time.Minute, logging.Discard())
	gateway := trust.NewGateway(nil, audit.NewLog(10), time.Second)
	dispatcher := dispatch.New(reg, gateway, engine, logging.Discard(), time.Second)

	srv, err := New(config.DefaultConfig(), reg, dispatcher, engine, logging.Discard())
	require.NoError(t, err)

	start := time.Now()
	srv.Shutdown(time.Second)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}
