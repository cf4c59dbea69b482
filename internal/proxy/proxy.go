// Package proxy implements the Universal Module Proxy: four reflective
// handlers letting an agent list modules and functions and invoke one by
// dotted path without a bespoke tool existing for it.
//
// Go has no runtime reflection over an import namespace the way a dynamic
// language does, so "the module namespace" is modeled as the same registry
// and discovery machinery the rest of the tool plane already builds: a
// "module" is a discovery ModuleSource path, and its "functions" are the
// registry descriptors whose SourceModule matches it. Docstrings and
// READMEs, which Go cannot recover at runtime either, are supplied
// out-of-band as a small Docs map populated alongside each domain module's
// registration.
package proxy

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/codomyrmex/mcp-core/internal/discovery"
	"github.com/codomyrmex/mcp-core/internal/registry"
)

// ModuleDoc supplies the human-readable material a real language runtime
// would pull from docstrings and a README file on disk.
type ModuleDoc struct {
	Summary string
	Readme  string
}

const readmeTruncateLimit = 5000

// Proxy resolves list_modules, list_module_functions, call_module_function,
// and get_module_readme against a Registry and Discovery Engine.
type Proxy struct {
	reg    *registry.Registry
	engine *discovery.Engine
	docs   map[string]ModuleDoc
}

// New builds a Proxy. docs may be nil; modules without an entry simply
// report an empty summary and readme.
func New(reg *registry.Registry, engine *discovery.Engine, docs map[string]ModuleDoc) *Proxy {
	if docs == nil {
		docs = map[string]ModuleDoc{}
	}
	return &Proxy{reg: reg, engine: engine, docs: docs}
}

// RegisterTools returns the four canonical proxy descriptors, ready for
// static registration alongside the server's other core tools.
// call_module_function alone carries RequiresElevated: its downstream
// target may be arbitrarily destructive and no per-target classification
// exists yet; the introspection-only handlers need no such override.
func (p *Proxy) RegisterTools() []*registry.Descriptor {
	return []*registry.Descriptor{
		{
			Name:        "codomyrmex.proxy.list_modules",
			Description: "Enumerate all known submodules under the tool plane's root namespace.",
			Category:    "proxy",
			TrustClass:  registry.Mutating,
			ParameterSchema: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
			Handler: p.listModules,
		},
		{
			Name:        "codomyrmex.proxy.list_module_functions",
			Description: "Import a module and enumerate its public tool functions.",
			Category:    "proxy",
			TrustClass:  registry.Mutating,
			ParameterSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"module": map[string]any{"type": "string"},
				},
				"required": []any{"module"},
			},
			Handler: p.listModuleFunctions,
		},
		{
			Name:             "codomyrmex.proxy.call_module_function",
			Description:      "Invoke a registered tool function by its dotted name with the given kwargs.",
			Category:         "proxy",
			TrustClass:       registry.Mutating,
			RequiresElevated: true,
			ParameterSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"function": map[string]any{"type": "string"},
					"kwargs":   map[string]any{"type": "object"},
				},
				"required": []any{"function"},
			},
			Handler: p.callModuleFunction,
		},
		{
			Name:        "codomyrmex.proxy.get_module_readme",
			Description: "Return a module's README content, truncated to 5000 characters.",
			Category:    "proxy",
			TrustClass:  registry.Mutating,
			ParameterSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"module": map[string]any{"type": "string"},
				},
				"required": []any{"module"},
			},
			Handler: p.getModuleReadme,
		},
	}
}

func (p *Proxy) listModules(ctx context.Context, args map[string]any) (map[string]any, error) {
	paths := p.engine.ModulePaths()
	sort.Strings(paths)

	modules := make([]map[string]any, 0, len(paths))
	for _, path := range paths {
		modules = append(modules, map[string]any{
			"module":  path,
			"summary": p.docs[path].Summary,
		})
	}
	return map[string]any{"modules": modules}, nil
}

func (p *Proxy) listModuleFunctions(ctx context.Context, args map[string]any) (map[string]any, error) {
	module, _ := args["module"].(string)
	if module == "" {
		return nil, fmt.Errorf("module must not be empty")
	}

	var functions []map[string]any
	for _, d := range p.reg.ListTools() {
		if d.SourceModule != module {
			continue
		}
		functions = append(functions, map[string]any{
			"name":      d.Name,
			"signature": parameterSignature(d.ParameterSchema),
			"doc":       truncate(d.Description, 200),
		})
	}
	sort.Slice(functions, func(i, j int) bool {
		return functions[i]["name"].(string) < functions[j]["name"].(string)
	})

	return map[string]any{"module": module, "functions": functions}, nil
}

// callModuleFunction resolves function as a registry tool name and invokes
// it directly. This handler never propagates a Go error of its own:
// failures are reported in the returned {"error": …} field so a caller
// always gets {"result": …} or {"error": …}, distinct from the
// dispatcher-level error envelope that wraps a handler fault.
func (p *Proxy) callModuleFunction(ctx context.Context, args map[string]any) (map[string]any, error) {
	function, _ := args["function"].(string)
	if function == "" || strings.HasPrefix(lastSegment(function), "_") {
		return map[string]any{"error": fmt.Sprintf("invalid function name %q", function)}, nil
	}

	d := p.reg.Lookup(function)
	if d == nil || d.Handler == nil {
		return map[string]any{"error": fmt.Sprintf("no callable function %q", function)}, nil
	}

	kwargs, _ := args["kwargs"].(map[string]any)
	result, err := d.Handler(ctx, kwargs)
	if err != nil {
		return map[string]any{"error": err.Error()}, nil
	}
	return map[string]any{"result": coerceJSONSerializable(result)}, nil
}

func (p *Proxy) getModuleReadme(ctx context.Context, args map[string]any) (map[string]any, error) {
	module, _ := args["module"].(string)
	if module == "" {
		return nil, fmt.Errorf("module must not be empty")
	}

	readme := p.docs[module].Readme
	truncated := false
	if len(readme) > readmeTruncateLimit {
		readme = readme[:readmeTruncateLimit]
		truncated = true
	}
	return map[string]any{"module": module, "readme": readme, "truncated": truncated}, nil
}

func parameterSignature(schema map[string]any) string {
	properties, _ := schema["properties"].(map[string]any)
	if len(properties) == 0 {
		return "()"
	}
	names := make([]string, 0, len(properties))
	for name := range properties {
		names = append(names, name)
	}
	sort.Strings(names)
	return "(" + strings.Join(names, ", ") + ")"
}

func lastSegment(dotted string) string {
	parts := strings.Split(dotted, ".")
	return parts[len(parts)-1]
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}

// coerceJSONSerializable falls back to a string representation for any
// value json.Marshal cannot round-trip, so call_module_function always
// returns something servable.
func coerceJSONSerializable(result map[string]any) map[string]any {
	if _, err := json.Marshal(result); err == nil {
		return result
	}
	out := make(map[string]any, len(result))
	for k, v := range result {
		if _, err := json.Marshal(v); err == nil {
			out[k] = v
			continue
		}
		out[k] = fmt.Sprintf("%v", v)
	}
	return out
}
