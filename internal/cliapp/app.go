// Package cliapp wires every package the tool plane is built from into one
// running instance: config, logging, registry, discovery, the trust gateway,
// dispatch, the module proxy, and the static core tools. It is the single
// place cmd/codomyrmexd's subcommands go to get a constructed App, so every
// subcommand shares one bootstrap path.
package cliapp

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/codomyrmex/mcp-core/internal/audit"
	"github.com/codomyrmex/mcp-core/internal/config"
	"github.com/codomyrmex/mcp-core/internal/coretools"
	"github.com/codomyrmex/mcp-core/internal/discovery"
	"github.com/codomyrmex/mcp-core/internal/dispatch"
	"github.com/codomyrmex/mcp-core/internal/logging"
	"github.com/codomyrmex/mcp-core/internal/moduletools/notes"
	"github.com/codomyrmex/mcp-core/internal/moduletools/sysinfo"
	"github.com/codomyrmex/mcp-core/internal/proxy"
	"github.com/codomyrmex/mcp-core/internal/registry"
	"github.com/codomyrmex/mcp-core/internal/transport"
	"github.com/codomyrmex/mcp-core/internal/trust"
)

// ConfigError wraps a failure in loading or validating configuration. main
// maps it to exit code 2 ("invalid config"), distinct from a general fatal
// init error (exit code 1).
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string { return e.Err.Error() }
func (e *ConfigError) Unwrap() error { return e.Err }

var sysinfoReadme = `# sysinfo

Reports host CPU, memory, and load-average snapshots via gopsutil.
This module has no mutating tools; every call is SAFE.
`

var notesReadme = `# notes

A content-addressed note store. get is SAFE and put is MUTATING;
delete is DESTRUCTIVE and requires ELEVATED trust plus interactive
confirmation.
`

// App bundles every constructed component a CLI subcommand might need.
type App struct {
	Config     *config.Config
	Logger     zerolog.Logger
	Registry   *registry.Registry
	Engine     *discovery.Engine
	Gateway    *trust.Gateway
	AuditLog   *audit.Log
	Dispatcher *dispatch.Dispatcher
	Proxy      *proxy.Proxy
}

// Build loads configuration from configPath (layered over defaults and the
// environment) and constructs every downstream component. It does not start
// serving; that is transport.Server's job.
func Build(configPath string) (*App, error) {
	loader := config.NewLayeredLoader()
	cfg, err := loader.Load(configPath)
	if err != nil {
		return nil, &ConfigError{Err: err}
	}

	logger := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})

	reg := registry.New()
	auditLog := audit.NewLog(cfg.AuditLogCapacity)
	if cfg.AuditLogPath != "" {
		if f, ferr := os.OpenFile(cfg.AuditLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644); ferr == nil {
			auditLog.SetSink(f)
		} else {
			logger.Warn().Err(ferr).Str("path", cfg.AuditLogPath).Msg("could not open audit log file; audit trail is in-memory only")
		}
	}

	rules := make([]trust.Rule, 0, len(cfg.Policy.Rules))
	for _, r := range cfg.Policy.Rules {
		rules = append(rules, trust.Rule{Name: r.Name, Expression: r.Expression})
	}
	policy, err := trust.NewPolicyEngine(rules)
	if err != nil {
		return nil, &ConfigError{Err: fmt.Errorf("policy configuration: %w", err)}
	}

	gateway := trust.NewGateway(policy, auditLog, cfg.GatewayTimeout())

	sources := []discovery.ModuleSource{
		{Path: sysinfo.ModulePath, Register: sysinfo.RegisterTools},
		{Path: notes.ModulePath, Register: notes.RegisterTools},
	}
	engine := discovery.NewEngine(reg, sources, cfg.CacheTTL(), logging.ForComponent(logger, "discovery"))

	for _, d := range coretools.RegisterTools(coretools.Deps{Registry: reg, StartedAt: time.Now(), Version: version}) {
		if err := reg.Register(d, registry.RegisterOptions{}); err != nil {
			return nil, fmt.Errorf("register core tool %s: %w", d.Name, err)
		}
	}

	docs := map[string]proxy.ModuleDoc{
		sysinfo.ModulePath: {Summary: "host resource metrics", Readme: sysinfoReadme},
		notes.ModulePath:   {Summary: "content-addressed note store", Readme: notesReadme},
	}
	px := proxy.New(reg, engine, docs)
	for _, d := range px.RegisterTools() {
		if err := reg.Register(d, registry.RegisterOptions{}); err != nil {
			return nil, fmt.Errorf("register proxy tool %s: %w", d.Name, err)
		}
	}

	dispatcher := dispatch.New(reg, gateway, engine, logging.ForComponent(logger, "dispatch"), cfg.GatewayTimeout())

	return &App{
		Config:     cfg,
		Logger:     logger,
		Registry:   reg,
		Engine:     engine,
		Gateway:    gateway,
		AuditLog:   auditLog,
		Dispatcher: dispatcher,
		Proxy:      px,
	}, nil
}

// version is the reported server/CLI version, surfaced by codomyrmex.pai.status.
const version = "0.1.0"

// Version returns the build's version string.
func Version() string { return version }

// NewTransport builds the Server Transport Shell over an already-built App.
func (a *App) NewTransport() (*transport.Server, error) {
	return transport.New(a.Config, a.Registry, a.Dispatcher, a.Engine, a.Logger)
}

// NewSessionID mints a fresh session identifier for a one-shot CLI
// invocation (call-tool), distinct from a served stdio session's
// own UUID.
func NewSessionID() string {
	return uuid.NewString()
}

// ResolveElevationKey loads just enough config to find the configured
// elevation signing key. A running server generates an ephemeral key of its
// own when none is configured, which this command has no way to discover
// from outside the process, so minting a token against an unconfigured key
// is rejected here rather than silently producing a token nothing will
// accept.
func ResolveElevationKey(configPath string) ([]byte, error) {
	cfg, err := config.NewLayeredLoader().Load(configPath)
	if err != nil {
		return nil, &ConfigError{Err: err}
	}
	if cfg.ElevationSigningKey == "" {
		return nil, fmt.Errorf("no elevation signing key configured; set CODOMYRMEX_ELEVATION_KEY or elevation_signing_key in %s", config.ResolveConfigPath())
	}
	return []byte(cfg.ElevationSigningKey), nil
}

// ResolveAuditLogPath loads just enough config to find the audit log path, so
// `codomyrmexd audit tail` doesn't need to pay for a full App construction
// (discovery engine, trust gateway, proxy docs) just to read a file path.
func ResolveAuditLogPath(configPath string) (string, error) {
	cfg, err := config.NewLayeredLoader().Load(configPath)
	if err != nil {
		return "", &ConfigError{Err: err}
	}
	return cfg.AuditLogPath, nil
}
