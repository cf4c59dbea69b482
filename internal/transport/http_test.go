package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
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

func newTestServer(t *testing.T) *Server {
	t.Helper()
	reg := registry.New()
	require.NoError(t, reg.Register(&registry.Descriptor{
		Name:        "codomyrmex.test.echo",
		Description: "echoes its input",
		TrustClass:  registry.Safe,
		ParameterSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"value": map[string]any{"type": "string"}},
		},
		Handler: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			return map[string]any{"echoed": args["value"]}, nil
		},
	}, registry.RegisterOptions{}))

	engine := discovery.NewEngine(reg, nil, time.Minute, logging.Discard())
	gateway := trust.NewGateway(nil, audit.NewLog(10), time.Second)
	dispatcher := dispatch.New(reg, gateway, engine, logging.Discard(), time.Second)

	srv, err := New(config.DefaultConfig(), reg, dispatcher, engine, logging.Discard())
	require.NoError(t, err)
	return srv
}

func postJSON(t *testing.T, ts *httptest.Server, body any) map[string]any {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(ts.URL, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestHTTP_ListToolsIncludesRegisteredTool(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv)
	defer ts.Close()

	out := postJSON(t, ts, httpRequest{Method: "list_tools"})
	tools, ok := out["tools"].([]any)
	require.True(t, ok)

	names := make([]string, 0, len(tools))
	for _, raw := range tools {
		tool := raw.(map[string]any)
		names = append(names, tool["name"].(string))
	}
	assert.Contains(t, names, "codomyrmex.test.echo")
}

func TestHTTP_CallToolReturnsResult(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv)
	defer ts.Close()

	out := postJSON(t, ts, httpRequest{
		Method:    "call_tool",
		Name:      "codomyrmex.test.echo",
		Arguments: map[string]any{"value": "hi"},
	})
	require.NotContains(t, out, "error")
	result, ok := out["result"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "hi", result["echoed"])
}

func TestHTTP_CallToolUnknownNameReturnsEnvelope(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv)
	defer ts.Close()

	out := postJSON(t, ts, httpRequest{Method: "call_tool", Name: "codomyrmex.does_not_exist"})
	errBody, ok := out["error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "UNKNOWN_TOOL", errBody["code"])
}

func TestHTTP_ReadResourceReturnsMetrics(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv)
	defer ts.Close()

	out := postJSON(t, ts, httpRequest{Method: "read_resource", URI: "codomyrmex://discovery/metrics"})
	contents, ok := out["contents"].([]any)
	require.True(t, ok)
	require.Len(t, contents, 1)
}

func TestHTTP_ListPromptsIncludesBuiltinPrompt(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv)
	defer ts.Close()

	out := postJSON(t, ts, httpRequest{Method: "list_prompts"})
	prompts, ok := out["prompts"].([]any)
	require.True(t, ok)

	names := make([]string, 0, len(prompts))
	for _, raw := range prompts {
		names = append(names, raw.(map[string]any)["name"].(string))
	}
	assert.Contains(t, names, "codomyrmex.confirm_destructive_call")
}

func TestHTTP_GetPromptRendersTemplate(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv)
	defer ts.Close()

	out := postJSON(t, ts, httpRequest{
		Method:          "get_prompt",
		Name:            "codomyrmex.confirm_destructive_call",
		PromptArguments: map[string]string{"tool_name": "codomyrmex.shell.run"},
	})
	require.NotContains(t, out, "error")
	rendered, ok := out["prompt"].(string)
	require.True(t, ok)
	assert.Contains(t, rendered, "codomyrmex.shell.run")
}

func TestHTTP_GetPromptUnknownNameReturnsNotFound(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv)
	defer ts.Close()

	out := postJSON(t, ts, httpRequest{Method: "get_prompt", Name: "codomyrmex.does_not_exist"})
	errBody, ok := out["error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "NOT_FOUND", errBody["code"])
}

func TestHTTP_UnknownMethodReturnsBadRequest(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv)
	defer ts.Close()

	resp, err := http.Post(ts.URL, "application/json", bytes.NewReader([]byte(`{"method":"bogus"}`)))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
