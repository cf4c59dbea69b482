// Package transport implements the Server Transport Shell: the stdio MCP
// front end that frames requests, maintains the session Trust Context, and
// routes every call_tool/list_tools/read_resource request into the
// dispatcher. Registration with mcp-go is a generic loop over the tool
// plane's uniform Descriptor registry rather than per-tool hand-written
// structs.
package transport

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/codomyrmex/mcp-core/internal/config"
	"github.com/codomyrmex/mcp-core/internal/discovery"
	"github.com/codomyrmex/mcp-core/internal/dispatch"
	"github.com/codomyrmex/mcp-core/internal/registry"
	"github.com/codomyrmex/mcp-core/internal/trust"
)

// Server wraps an *mcp-go* server, wiring it to the tool plane's registry,
// dispatcher, and discovery engine.
type Server struct {
	mcpServer    *server.MCPServer
	reg          *registry.Registry
	dispatcher   *dispatch.Dispatcher
	engine       *discovery.Engine
	logger       zerolog.Logger
	tctx         *trust.Context
	active       int64
	elevationKey []byte
}

// New builds a Server over a registry that the caller has already populated
// with static core tools and proxy tools (cliapp.Build does this, so the
// same registry is equally usable by the one-shot CLI commands without
// starting a transport at all). When cfg.WarmUpDiscovery is set, New performs
// a warm-up discovery scan so the first client request does not pay the scan
// latency. It then mirrors
// every currently known descriptor into the mcp-go server.
func New(
	cfg *config.Config,
	reg *registry.Registry,
	dispatcher *dispatch.Dispatcher,
	engine *discovery.Engine,
	logger zerolog.Logger,
) (*Server, error) {
	mcpServer := server.NewMCPServer(
		"codomyrmex-mcp",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, true),
	)

	s := &Server{
		mcpServer:    mcpServer,
		reg:          reg,
		dispatcher:   dispatcher,
		engine:       engine,
		logger:       logger,
		tctx:         trust.NewContext(uuid.NewString(), defaultLevel(cfg)),
		elevationKey: resolveElevationKey(cfg.ElevationSigningKey, logger),
	}

	if cfg.WarmUpDiscovery {
		report := engine.GetReport()
		logger.Info().
			Int("tools", len(report.Tools)).
			Int("failed_modules", len(report.FailedModules)).
			Int64("scan_duration_ms", report.ScanDurationMS).
			Msg("discovery warm-up complete")
	}

	s.registerElevationTool()
	s.registerMCPTools()
	s.registerResources()
	s.registerPrompts()

	logger.Info().Int("tool_count", reg.Count()).Msg("transport shell initialized")
	return s, nil
}

func defaultLevel(cfg *config.Config) trust.Level {
	level, err := trust.ParseLevel(cfg.TrustDefaultLevel)
	if err != nil {
		return trust.Untrusted
	}
	return level
}

// resolveElevationKey returns the configured HMAC key, or generates an
// ephemeral one for this process if none is set.
func resolveElevationKey(configured string, logger zerolog.Logger) []byte {
	if configured != "" {
		return []byte(configured)
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		logger.Warn().Err(err).Msg("failed to generate ephemeral elevation signing key; elevation tokens will not be usable")
		return nil
	}
	logger.Info().Msg("no elevation signing key configured; generated an ephemeral one for this process")
	return key
}

// registerElevationTool installs codomyrmex.session.elevate directly into
// the registry, ahead of the static core/proxy tools mirrored by
// registerMCPTools. Its own trust class is SAFE: authorization for this
// tool comes from possessing a validly-signed token, not from the caller's
// current trust level, which is exactly the level this tool exists to
// raise.
func (s *Server) registerElevationTool() {
	d := &registry.Descriptor{
		Name:        "codomyrmex.session.elevate",
		Description: "Present a signed elevation token to raise this session's trust level.",
		Category:    "security",
		TrustClass:  registry.Safe,
		ParameterSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"token": map[string]any{"type": "string"},
			},
			"required": []any{"token"},
		},
		Handler: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			token, _ := args["token"].(string)
			if token == "" {
				return nil, fmt.Errorf("token must not be empty")
			}
			if len(s.elevationKey) == 0 {
				return nil, fmt.Errorf("no elevation signing key is configured for this server")
			}
			if err := trust.ApplyElevationToken(s.elevationKey, s.tctx, token); err != nil {
				return nil, err
			}
			return map[string]any{"trust_level": s.tctx.Level().String()}, nil
		},
	}
	if err := s.reg.Register(d, registry.RegisterOptions{}); err != nil {
		s.logger.Error().Err(err).Msg("failed to register session elevation tool")
	}
}

// registerMCPTools mirrors every Descriptor currently in the registry (static
// core and proxy tools, the session elevation tool, and any tools a warm-up
// scan has discovered) into the mcp-go server. Tools that later discovery
// scans add to the registry are not mirrored into mcp-go.
func (s *Server) registerMCPTools() {
	for _, d := range s.reg.ListTools() {
		schemaBytes, err := json.Marshal(d.ParameterSchema)
		if err != nil {
			s.logger.Error().Err(err).Str("tool", d.Name).Msg("failed to marshal parameter schema")
			continue
		}
		tool := mcp.NewToolWithRawSchema(d.Name, d.Description, schemaBytes)
		s.mcpServer.AddTool(tool, s.handlerFor(d.Name))
	}
}

func (s *Server) handlerFor(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		atomic.AddInt64(&s.active, 1)
		defer atomic.AddInt64(&s.active, -1)

		args, _ := request.Params.Arguments.(map[string]any)
		out := s.dispatcher.Dispatch(ctx, s.tctx, name, args)

		payload, err := json.Marshal(out)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to marshal dispatch result: %v", err)), nil
		}
		if _, failed := out["error"]; failed {
			return mcp.NewToolResultError(string(payload)), nil
		}
		return mcp.NewToolResultText(string(payload)), nil
	}
}

func (s *Server) registerResources() {
	modules := mcp.NewResource(
		"codomyrmex://modules",
		"modules",
		mcp.WithResourceDescription("Known module inventory"),
		mcp.WithMIMEType("application/json"),
	)
	s.mcpServer.AddResource(modules, s.readModulesResource)
	s.reg.RegisterResource(&registry.ResourceDescriptor{
		URI:      "codomyrmex://modules",
		Name:     "modules",
		MimeType: "application/json",
		ContentProvider: func(ctx context.Context) ([]byte, error) {
			return json.Marshal(map[string]any{"modules": s.engine.ModulePaths()})
		},
	})

	metrics := mcp.NewResource(
		"codomyrmex://discovery/metrics",
		"discovery-metrics",
		mcp.WithResourceDescription("Discovery scan duration, failures, and cache hit count"),
		mcp.WithMIMEType("application/json"),
	)
	s.mcpServer.AddResource(metrics, s.readMetricsResource)
	s.reg.RegisterResource(&registry.ResourceDescriptor{
		URI:      "codomyrmex://discovery/metrics",
		Name:     "discovery-metrics",
		MimeType: "application/json",
		ContentProvider: func(ctx context.Context) ([]byte, error) {
			return json.Marshal(s.engine.Metrics())
		},
	})
}

// registerPrompts installs the one built-in prompt template: a short brief
// an agent can render before calling a DESTRUCTIVE tool, reminding it to
// check trust level and confirmation requirements first. Prompt and
// Resource Descriptors are parallel, simpler variants of Tool Descriptor,
// so this mirrors registerResources' shape: one registry.PromptDescriptor
// for the tool plane's own bookkeeping, one mcp.Prompt for mcp-go's wire
// framing.
func (s *Server) registerPrompts() {
	const name = "codomyrmex.confirm_destructive_call"
	args := []string{"tool_name"}

	s.reg.RegisterPrompt(&registry.PromptDescriptor{
		Name:      name,
		Arguments: args,
		Template: func(a map[string]string) (string, error) {
			tool := a["tool_name"]
			if tool == "" {
				return "", fmt.Errorf("tool_name argument is required")
			}
			return fmt.Sprintf(
				"%s is a DESTRUCTIVE tool. Before calling it, confirm the session "+
					"holds ELEVATED trust or higher and that the operator has approved "+
					"this specific invocation.", tool,
			), nil
		},
	})

	prompt := mcp.NewPrompt(name,
		mcp.WithPromptDescription("Render a confirmation reminder before invoking a destructive tool."),
		mcp.WithArgument("tool_name",
			mcp.ArgumentDescription("Dotted name of the tool about to be called."),
			mcp.RequiredArgument(),
		),
	)
	s.mcpServer.AddPrompt(prompt, s.renderConfirmPrompt)
}

func (s *Server) renderConfirmPrompt(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	d := s.reg.LookupPrompt("codomyrmex.confirm_destructive_call")
	if d == nil {
		return nil, fmt.Errorf("prompt not registered")
	}
	rendered, err := d.Template(request.Params.Arguments)
	if err != nil {
		return nil, err
	}
	return mcp.NewGetPromptResult(
		d.Name,
		[]mcp.PromptMessage{
			mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(rendered)),
		},
	), nil
}

func (s *Server) readModulesResource(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	body, err := json.Marshal(map[string]any{"modules": s.engine.ModulePaths()})
	if err != nil {
		return nil, fmt.Errorf("marshal modules resource: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{URI: request.Params.URI, MIMEType: "application/json", Text: string(body)},
	}, nil
}

func (s *Server) readMetricsResource(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	body, err := json.Marshal(s.engine.Metrics())
	if err != nil {
		return nil, fmt.Errorf("marshal discovery metrics resource: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{URI: request.Params.URI, MIMEType: "application/json", Text: string(body)},
	}, nil
}

// ServeStdio blocks serving MCP requests over stdio until the client closes
// the connection or the process receives a termination signal.
func (s *Server) ServeStdio() error {
	s.logger.Info().Msg("starting MCP server on stdio")
	return server.ServeStdio(s.mcpServer)
}

// Shutdown waits up to grace for in-flight handlers to finish, then returns
// regardless of whether any are still running.
func (s *Server) Shutdown(grace time.Duration) {
	deadline := time.Now().Add(grace)
	for time.Now().Before(deadline) {
		if atomic.LoadInt64(&s.active) == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	if n := atomic.LoadInt64(&s.active); n > 0 {
		s.logger.Warn().Int64("still_running", n).Msg("shutdown grace window elapsed; abandoning remaining handlers")
	}
}

// TrustContext exposes the server's single session Trust Context so callers
// such as tests can inspect or act on it directly.
func (s *Server) TrustContext() *trust.Context {
	return s.tctx
}
