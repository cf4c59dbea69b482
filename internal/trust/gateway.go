package trust

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/codomyrmex/mcp-core/internal/audit"
	"github.com/codomyrmex/mcp-core/internal/mcperrors"
	"github.com/codomyrmex/mcp-core/internal/registry"
)

// DefaultTimeout is the gateway's per-call deadline when neither NewGateway
// nor Call is given a positive timeout. Descriptors carry no timeout of
// their own.
const DefaultTimeout = 30 * time.Second

// Gateway authorizes and executes every tool dispatch. It is the sole path
// through which a handler is ever invoked.
type Gateway struct {
	policy         *PolicyEngine
	auditLog       *audit.Log
	defaultTimeout time.Duration
}

// NewGateway builds a Gateway. policy may be nil to use only the static
// trust-class table.
func NewGateway(policy *PolicyEngine, auditLog *audit.Log, defaultTimeout time.Duration) *Gateway {
	if defaultTimeout <= 0 {
		defaultTimeout = DefaultTimeout
	}
	return &Gateway{policy: policy, auditLog: auditLog, defaultTimeout: defaultTimeout}
}

// requiredLevel is the static trust-class-to-minimum-level policy table.
func requiredLevel(class registry.TrustClass) Level {
	switch class {
	case registry.Safe:
		return Untrusted
	case registry.Mutating:
		return Standard
	case registry.Destructive:
		return Elevated
	case registry.System:
		return Full
	default:
		return Full
	}
}

// decision captures why a call was or wasn't authorized, for the audit
// trail.
type decision struct {
	allowed bool
	reason  string
}

// effectiveRequiredLevel applies a descriptor's RequiresElevated override on
// top of the static trust-class table.
func effectiveRequiredLevel(d *registry.Descriptor) Level {
	required := requiredLevel(d.TrustClass)
	if d.RequiresElevated && required < Elevated {
		required = Elevated
	}
	return required
}

func (g *Gateway) authorize(tctx *Context, d *registry.Descriptor, args map[string]any) decision {
	required := effectiveRequiredLevel(d)
	level := tctx.Level()
	hasException := tctx.HasException(d.Name)

	if level >= required {
		if d.TrustClass == registry.Destructive && !tctx.Confirm(d.Name, args) {
			return decision{allowed: false, reason: "destructive call requires interactive confirmation"}
		}
		return decision{allowed: true, reason: "static-table-allow"}
	}

	if hasException && level >= Elevated {
		if d.TrustClass == registry.Destructive && !tctx.Confirm(d.Name, args) {
			return decision{allowed: false, reason: "destructive call requires interactive confirmation"}
		}
		return decision{allowed: true, reason: "granted-exception"}
	}

	allowedByPolicy, err := g.policy.Allow(d.Name, d.Category, string(d.TrustClass), level, hasException)
	if err == nil && allowedByPolicy {
		if d.TrustClass == registry.Destructive && !tctx.Confirm(d.Name, args) {
			return decision{allowed: false, reason: "destructive call requires interactive confirmation"}
		}
		return decision{allowed: true, reason: "policy-rule-allow"}
	}

	return decision{allowed: false, reason: "insufficient trust level"}
}

// Call authorizes, applies a deadline, invokes the handler, and appends an
// audit record regardless of outcome. It never lets a handler panic escape.
func (g *Gateway) Call(
	ctx context.Context,
	correlationID string,
	tctx *Context,
	d *registry.Descriptor,
	args map[string]any,
	timeout time.Duration,
) (map[string]any, *mcperrors.Envelope) {
	start := time.Now()
	fingerprint := audit.FingerprintArguments(args)

	dec := g.authorize(tctx, d, args)
	if !dec.allowed {
		g.record(correlationID, tctx.SessionID, d.Name, fingerprint, dec.reason, string(mcperrors.AccessDenied), start, nil)
		return nil, mcperrors.AccessDeniedErr(d.Name, dec.reason, effectiveRequiredLevel(d).String())
	}

	if timeout <= 0 {
		timeout = g.defaultTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		result map[string]any
		err    error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("handler panicked: %v", r)}
			}
		}()
		result, err := d.Handler(callCtx, args)
		done <- outcome{result: result, err: err}
	}()

	select {
	case o := <-done:
		if o.err != nil {
			g.record(correlationID, tctx.SessionID, d.Name, fingerprint, dec.reason, string(mcperrors.ExecutionError), start, nil)
			if env, ok := o.err.(*mcperrors.Envelope); ok {
				return nil, env
			}
			return nil, mcperrors.ExecutionErr(d.Name, o.err, d.SourceModule)
		}
		result, coerced := coerceResult(o.result)
		var details map[string]any
		if coerced {
			details = map[string]any{"coerced": true}
		}
		g.record(correlationID, tctx.SessionID, d.Name, fingerprint, dec.reason, "ok", start, details)
		return result, nil

	case <-callCtx.Done():
		g.record(correlationID, tctx.SessionID, d.Name, fingerprint, dec.reason, string(mcperrors.Timeout), start, nil)
		// Handler cancellation is cooperative: the goroutine above may still
		// be running and its side effects may still complete. We return
		// TIMEOUT to the caller regardless.
		return nil, mcperrors.TimeoutErr(d.Name, timeout.Milliseconds())
	}
}

// RecordRejection appends the audit record for a dispatch that never reached
// authorization: an unknown tool name or a schema validation failure. The
// dispatcher calls this so every dispatch emits exactly one record,
// regardless of how early it terminated.
func (g *Gateway) RecordRejection(correlationID, sessionID, toolName string, args map[string]any, code mcperrors.Code, start time.Time) {
	g.record(correlationID, sessionID, toolName, audit.FingerprintArguments(args), "rejected-before-authorization", string(code), start, nil)
}

func (g *Gateway) record(correlationID, sessionID, toolName, fingerprint, trustDecision, outcome string, start time.Time, details map[string]any) {
	if g.auditLog == nil {
		return
	}
	g.auditLog.Append(audit.Record{
		CorrelationID:        correlationID,
		SessionID:            sessionID,
		ToolName:             toolName,
		ArgumentsFingerprint: fingerprint,
		TrustDecision:        trustDecision,
		Outcome:              outcome,
		LatencyMS:            time.Since(start).Milliseconds(),
		Details:              details,
	})
}

// coerceResult replaces any value json.Marshal cannot represent with its
// string form, so a handler returning a channel or function value still
// produces a servable result instead of a marshal failure at the transport
// boundary. The caller records coerced=true in the audit trail when this
// fires.
func coerceResult(result map[string]any) (map[string]any, bool) {
	if result == nil {
		return nil, false
	}
	if _, err := json.Marshal(result); err == nil {
		return result, false
	}
	out := make(map[string]any, len(result))
	for k, v := range result {
		if _, err := json.Marshal(v); err == nil {
			out[k] = v
			continue
		}
		out[k] = fmt.Sprintf("%v", v)
	}
	return out, true
}
