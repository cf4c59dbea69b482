package trust

import (
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"
)

// Rule is one operator-supplied CEL policy rule loaded from config. A rule
// evaluating true grants access even where the static trust-class table
// would deny it.
type Rule struct {
	Name       string `yaml:"name"`
	Expression string `yaml:"expression"`
}

// compiledRule pairs a Rule with its compiled CEL program.
type compiledRule struct {
	rule    Rule
	program cel.Program
}

// PolicyEngine evaluates the operator's additional CEL rules on top of the
// static trust-class table in the gateway.
type PolicyEngine struct {
	env   *cel.Env
	rules []compiledRule
}

// NewPolicyEngine compiles rules, failing closed (returning an error) if any
// rule is malformed or violates the DESTRUCTIVE/has_exception safety
// constraint. A server should treat this error as a fatal configuration
// error (exit code 2).
func NewPolicyEngine(rules []Rule) (*PolicyEngine, error) {
	env, err := cel.NewEnv(
		cel.Variable("trust_level", cel.IntType),
		cel.Variable("trust_class", cel.StringType),
		cel.Variable("tool_name", cel.StringType),
		cel.Variable("category", cel.StringType),
		cel.Variable("has_exception", cel.BoolType),
	)
	if err != nil {
		return nil, fmt.Errorf("construct CEL environment: %w", err)
	}

	engine := &PolicyEngine{env: env}
	for _, r := range rules {
		if err := validateDestructiveSafety(r); err != nil {
			return nil, fmt.Errorf("policy rule %q: %w", r.Name, err)
		}

		ast, issues := env.Compile(r.Expression)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("policy rule %q: compile: %w", r.Name, issues.Err())
		}
		prg, err := env.Program(ast)
		if err != nil {
			return nil, fmt.Errorf("policy rule %q: program: %w", r.Name, err)
		}

		engine.rules = append(engine.rules, compiledRule{rule: r, program: prg})
	}

	return engine, nil
}

// validateDestructiveSafety enforces that any rule whose expression tests
// trust_class against "DESTRUCTIVE" also references has_exception, so a
// misconfigured rule can never blanket-authorize destructive tools. This is
// a deliberately simple textual check rather than a full AST walk, in
// keeping with the "small validator, not a full engine" design note.
func validateDestructiveSafety(r Rule) error {
	if strings.Contains(r.Expression, "DESTRUCTIVE") && !strings.Contains(r.Expression, "has_exception") {
		return fmt.Errorf("rules that test trust_class against DESTRUCTIVE must also reference has_exception")
	}
	return nil
}

// Allow reports whether any configured rule grants access for this call. A
// PolicyEngine with no rules (the default) always returns false, leaving
// the static table as sole authority.
func (p *PolicyEngine) Allow(toolName, category string, trustClass string, level Level, hasException bool) (bool, error) {
	if p == nil {
		return false, nil
	}

	vars := map[string]any{
		"trust_level":   int64(level),
		"trust_class":   trustClass,
		"tool_name":     toolName,
		"category":      category,
		"has_exception": hasException,
	}

	for _, cr := range p.rules {
		out, _, err := cr.program.Eval(vars)
		if err != nil {
			return false, fmt.Errorf("evaluate rule %q: %w", cr.rule.Name, err)
		}
		if b, ok := out.Value().(bool); ok && b {
			return true, nil
		}
	}
	return false, nil
}
