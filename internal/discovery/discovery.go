// Package discovery implements the Tool Discovery Engine: it walks the
// known module namespace, builds Tool Descriptors, and caches the result
// with TTL-based invalidation and single-flight stampede protection.
//
// Go has no runtime package-import reflection, so "walking the namespace"
// works without language metaprogramming: every domain module exposes an
// explicit RegisterTools function, and the Engine is handed the static
// list of module sources to walk at construction time. This preserves the
// discovery contract (lazy scan, per-module failure isolation, collision
// recording) without requiring dynamic code loading.
package discovery

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/codomyrmex/mcp-core/internal/registry"
)

// ModuleSource is one scannable unit of the namespace: a module path (ending
// in the discovery marker suffix, e.g. "_mcp_tools") and the function that
// enumerates its tagged callables.
type ModuleSource struct {
	Path     string
	Register func() ([]*registry.Descriptor, error)
}

// FailedModule records a single module's scan failure; the scan continues
// past it.
type FailedModule struct {
	ModulePath string
	Error      string
}

// Report is the result of one discovery scan.
type Report struct {
	Tools          []*registry.Descriptor
	FailedModules  []FailedModule
	ModulesScanned int
	ScanDurationMS int64
	ScannedAt      time.Time
}

// Engine owns the TTL cache and single-flight gate over repeated scans.
type Engine struct {
	mu        sync.Mutex
	sources   []ModuleSource
	ttl       time.Duration
	logger    zerolog.Logger
	reg       *registry.Registry
	report    *Report
	expiresAt time.Time
	cacheHits uint64
	inflight  chan struct{}
}

// NewEngine builds an Engine over sources, backed by reg for merging
// discovered tools, with cache entries valid for ttl.
func NewEngine(reg *registry.Registry, sources []ModuleSource, ttl time.Duration, logger zerolog.Logger) *Engine {
	if ttl <= 0 {
		ttl = 300 * time.Second
	}
	return &Engine{sources: sources, ttl: ttl, logger: logger, reg: reg}
}

// GetReport returns the cached report if still valid, otherwise performs a
// fresh scan. Concurrent callers during a cold cache share exactly one
// scan (single-flight).
func (e *Engine) GetReport() *Report {
	e.mu.Lock()

	if e.report != nil && time.Now().Before(e.expiresAt) {
		e.cacheHits++
		r := e.report
		e.mu.Unlock()
		return r
	}

	if e.inflight != nil {
		ch := e.inflight
		e.mu.Unlock()
		<-ch
		e.mu.Lock()
		e.cacheHits++
		r := e.report
		e.mu.Unlock()
		return r
	}

	ch := make(chan struct{})
	e.inflight = ch
	e.mu.Unlock()

	report := e.scan(e.sources)

	e.mu.Lock()
	e.report = report
	e.expiresAt = time.Now().Add(e.ttl)
	e.inflight = nil
	e.mu.Unlock()
	close(ch)

	return report
}

// Invalidate forces the next GetReport to perform a fresh scan. With no
// arguments it invalidates the whole cache; given module paths, it rescans
// only those modules and merges the result into the existing report.
func (e *Engine) Invalidate(modulePaths ...string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(modulePaths) == 0 {
		e.expiresAt = time.Time{}
		return
	}

	wanted := make(map[string]struct{}, len(modulePaths))
	for _, p := range modulePaths {
		wanted[p] = struct{}{}
	}
	var subset []ModuleSource
	for _, s := range e.sources {
		if _, ok := wanted[s.Path]; ok {
			subset = append(subset, s)
		}
	}
	if len(subset) == 0 || e.report == nil {
		e.expiresAt = time.Time{}
		return
	}

	partial := e.scanLocked(subset)

	merged := make(map[string]*registry.Descriptor, len(e.report.Tools))
	for _, t := range e.report.Tools {
		merged[t.Name] = t
	}
	for _, t := range partial.Tools {
		merged[t.Name] = t
	}
	tools := make([]*registry.Descriptor, 0, len(merged))
	for _, t := range merged {
		tools = append(tools, t)
	}
	// The partial scan replaced every discovered registry entry with the
	// subset's tools alone; reinstall the merged set.
	if e.reg != nil {
		e.reg.ReplaceDiscovered(tools)
	}

	e.report = &Report{
		Tools:          tools,
		FailedModules:  append(e.report.FailedModules, partial.FailedModules...),
		ModulesScanned: e.report.ModulesScanned,
		ScanDurationMS: partial.ScanDurationMS,
		ScannedAt:      time.Now(),
	}
	e.expiresAt = time.Now().Add(e.ttl)
}

// CacheHits returns the number of GetReport calls served from cache.
func (e *Engine) CacheHits() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cacheHits
}

// ModulePaths returns every configured module path, regardless of whether
// its most recent scan succeeded. This backs the proxy tool list_modules,
// which enumerates all known submodules rather than only the ones that
// imported cleanly.
func (e *Engine) ModulePaths() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.sources))
	for i, s := range e.sources {
		out[i] = s.Path
	}
	return out
}

func (e *Engine) scan(sources []ModuleSource) *Report {
	return e.scanLocked(sources)
}

// scanLocked performs the scan itself. It does not need e.mu held while
// running (scans may take arbitrary I/O time); GetReport calls it from
// within the single-flight section above, and Invalidate calls it for a
// partial rescan while holding e.mu.
func (e *Engine) scanLocked(sources []ModuleSource) *Report {
	start := time.Now()

	report := &Report{ModulesScanned: len(sources), ScannedAt: start}
	seen := make(map[string]string) // tool name -> module path that registered it

	for _, src := range sources {
		tools, err := e.importModule(src)
		if err != nil {
			report.FailedModules = append(report.FailedModules, FailedModule{ModulePath: src.Path, Error: err.Error()})
			continue
		}

		for _, t := range tools {
			if t.Name == "" || t.Name[0] == '_' {
				continue
			}
			if t.TrustClass == "" {
				t.TrustClass = registry.Safe
			}
			t.SourceModule = src.Path

			if prevModule, dup := seen[t.Name]; dup && prevModule != src.Path {
				report.FailedModules = append(report.FailedModules, FailedModule{
					ModulePath: src.Path,
					Error:      fmt.Sprintf("CONFLICT: tool %q already registered by %s; later registration wins", t.Name, prevModule),
				})
			}
			seen[t.Name] = src.Path
			report.Tools = append(report.Tools, t)
		}
	}

	// Later registration wins: keep only the last descriptor per name.
	report.Tools = dedupeLastWins(report.Tools)

	if e.reg != nil {
		e.reg.ReplaceDiscovered(report.Tools)
	}

	report.ScanDurationMS = time.Since(start).Milliseconds()
	return report
}

// importModule recovers from a panicking module so one broken module never
// aborts the scan of the others.
func (e *Engine) importModule(src ModuleSource) (tools []*registry.Descriptor, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("module panicked during import: %v", r)
		}
	}()
	return src.Register()
}

func dedupeLastWins(tools []*registry.Descriptor) []*registry.Descriptor {
	byName := make(map[string]*registry.Descriptor, len(tools))
	order := make([]string, 0, len(tools))
	for _, t := range tools {
		if _, exists := byName[t.Name]; !exists {
			order = append(order, t.Name)
		}
		byName[t.Name] = t
	}
	out := make([]*registry.Descriptor, 0, len(order))
	for _, name := range order {
		out = append(out, byName[name])
	}
	return out
}
