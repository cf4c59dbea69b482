// Package dispatch implements the single entry point every MCP call_tool
// request funnels through: descriptor resolution, schema validation, trust
// authorization, and result/error envelope packaging.
package dispatch

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/codomyrmex/mcp-core/internal/audit"
	"github.com/codomyrmex/mcp-core/internal/discovery"
	"github.com/codomyrmex/mcp-core/internal/logging"
	"github.com/codomyrmex/mcp-core/internal/mcperrors"
	"github.com/codomyrmex/mcp-core/internal/registry"
	"github.com/codomyrmex/mcp-core/internal/schema"
	"github.com/codomyrmex/mcp-core/internal/trust"
)

// Dispatcher is the call_tool entry point.
type Dispatcher struct {
	reg            *registry.Registry
	gateway        *trust.Gateway
	engine         *discovery.Engine
	logger         zerolog.Logger
	defaultTimeout time.Duration
}

// New builds a Dispatcher. defaultTimeout<=0 defers to the gateway's own
// default. engine may be nil, for tests that only exercise statically
// registered tools; a production Dispatcher is always given one so that a
// cold or expired discovery cache is refreshed before every lookup.
func New(reg *registry.Registry, gateway *trust.Gateway, engine *discovery.Engine, logger zerolog.Logger, defaultTimeout time.Duration) *Dispatcher {
	return &Dispatcher{reg: reg, gateway: gateway, engine: engine, logger: logger, defaultTimeout: defaultTimeout}
}

// Dispatch resolves name, validates arguments, authorizes and executes the
// call through the trust gateway, and returns the wire-level result: either
// {"result": …, "correlation_id": …} or {"error": envelope}. It never
// panics or returns a raw error; every outcome is packaged.
func (d *Dispatcher) Dispatch(ctx context.Context, tctx *trust.Context, name string, arguments map[string]any) map[string]any {
	correlationID := audit.NewCorrelationID()
	start := time.Now()
	log := logging.ForDispatch(d.logger, correlationID, name)
	log.Info().Str("state", "RECEIVED").Msg("dispatch received")

	if d.engine != nil {
		d.engine.GetReport()
	}

	descriptor := d.reg.Lookup(name)
	if descriptor == nil {
		log.Warn().Str("state", "REJECTED").Msg("unknown tool")
		d.gateway.RecordRejection(correlationID, tctx.SessionID, name, arguments, mcperrors.UnknownTool, start)
		return errorResult(mcperrors.UnknownToolErr(name), correlationID)
	}
	log.Debug().Str("state", "RESOLVED").Str("source_module", descriptor.SourceModule).Msg("tool resolved")

	validated, failure := schema.Validate(descriptor.ParameterSchema, arguments)
	if failure != nil {
		log.Warn().Str("state", "REJECTED").Str("field", failure.Field).Msg("argument validation failed")
		d.gateway.RecordRejection(correlationID, tctx.SessionID, name, arguments, mcperrors.ValidationError, start)
		return errorResult(mcperrors.ValidationErr(name, failure.Violation, failure.Field), correlationID)
	}
	log.Debug().Str("state", "VALIDATED").Msg("arguments validated")

	// The Trust Gateway owns authorization and execution as one atomic
	// unit (package trust), so AUTHORIZED and EXECUTING are logged at the
	// dispatcher's granularity rather than as two gateway callbacks.
	log.Debug().Str("state", "AUTHORIZED").Msg("entering trust gateway")
	log.Debug().Str("state", "EXECUTING").Msg("invoking handler")

	result, envelope := d.gateway.Call(ctx, correlationID, tctx, descriptor, validated, d.defaultTimeout)
	if envelope != nil {
		log.Warn().
			Str("state", terminalState(envelope.Code)).
			Str("code", string(envelope.Code)).
			Dur("latency", time.Since(start)).
			Msg("dispatch failed")
		return errorResult(envelope, correlationID)
	}

	log.Info().Str("state", "COMPLETED").Dur("latency", time.Since(start)).Msg("dispatch completed")
	return map[string]any{"result": wrapNonMapping(result), "correlation_id": correlationID}
}

func errorResult(env *mcperrors.Envelope, correlationID string) map[string]any {
	env.CorrelationID = correlationID
	return map[string]any{"error": env}
}

// wrapNonMapping guarantees the "result" key always holds a mapping. Every
// handler in this codebase already returns map[string]any, so the only
// change it makes today is turning a nil map into an empty one, but it keeps
// the dispatcher's contract self-describing for any future handler signature
// that doesn't.
func wrapNonMapping(result map[string]any) any {
	if result == nil {
		return map[string]any{}
	}
	return result
}

func terminalState(code mcperrors.Code) string {
	switch code {
	case mcperrors.AccessDenied:
		return "DENIED"
	case mcperrors.Timeout:
		return "TIMED_OUT"
	case mcperrors.UnknownTool, mcperrors.ValidationError:
		return "REJECTED"
	default:
		return "FAILED"
	}
}
